// Copyright (c) 2024 Uber Technologies, Inc.
//
// Permission is hereby granted, free of charge, to any person obtaining a copy
// of this software and associated documentation files (the "Software"), to deal
// in the Software without restriction, including without limitation the rights
// to use, copy, modify, merge, publish, distribute, sublicense, and/or sell
// copies of the Software, and to permit persons to whom the Software is
// furnished to do so, subject to the following conditions:
//
// The above copyright notice and this permission notice shall be included in
// all copies or substantial portions of the Software.
//
// THE SOFTWARE IS PROVIDED "AS IS", WITHOUT WARRANTY OF ANY KIND, EXPRESS OR
// IMPLIED, INCLUDING BUT NOT LIMITED TO THE WARRANTIES OF MERCHANTABILITY,
// FITNESS FOR A PARTICULAR PURPOSE AND NONINFRINGEMENT. IN NO EVENT SHALL THE
// AUTHORS OR COPYRIGHT HOLDERS BE LIABLE FOR ANY CLAIM, DAMAGES OR OTHER
// LIABILITY, WHETHER IN AN ACTION OF CONTRACT, TORT OR OTHERWISE, ARISING FROM,
// OUT OF OR IN CONNECTION WITH THE SOFTWARE OR THE USE OR OTHER DEALINGS IN
// THE SOFTWARE.

package yarpcnaming

// staticActivity is an Activity whose state never changes after
// construction. It is what Bind returns today, since evaluation in this
// module is synchronous: every namer resolves in one shot. The Activity
// interface is kept general so a future namer (DNS, a service registry)
// can publish further transitions without changing any caller.
type staticActivity struct {
	state State
}

// NewStaticActivity returns an Activity that immediately reports state to
// every Observer and never transitions again.
func NewStaticActivity(state State) Activity {
	return staticActivity{state: state}
}

func (a staticActivity) Observe(obs Observer) Subscription {
	obs.OnUpdate(a.state)
	return noopSubscription{}
}

type noopSubscription struct{}

func (noopSubscription) Close() {}
