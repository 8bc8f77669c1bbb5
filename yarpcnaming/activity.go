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

// State is the sum type delivered to an Observer: a name resolution is
// always Pending until the first update, then alternates between Ok and
// Failed as the underlying source changes.
type State struct {
	kind  stateKind
	names []BoundName
	err   error
}

type stateKind int

const (
	statePending stateKind = iota
	stateOk
	stateFailed
)

// Pending constructs the initial, not-yet-resolved state.
func Pending() State { return State{kind: statePending} }

// Ok constructs a resolved state carrying the current bound names.
func Ok(names []BoundName) State { return State{kind: stateOk, names: names} }

// Failed constructs a resolution failure. The names of the last successful
// Ok, if any, are the observer's responsibility to retain, not the source's.
func Failed(err error) State { return State{kind: stateFailed, err: err} }

// IsPending reports whether no resolution has completed yet.
func (s State) IsPending() bool { return s.kind == statePending }

// Names returns the bound names of an Ok state, or nil otherwise.
func (s State) Names() []BoundName {
	if s.kind != stateOk {
		return nil
	}
	return s.names
}

// Err returns the error of a Failed state, or nil otherwise.
func (s State) Err() error {
	if s.kind != stateFailed {
		return nil
	}
	return s.err
}

// Observer receives the sequence of states a reactive name passes through.
// OnUpdate is called with Pending at most once, immediately, then with Ok or
// Failed each time the source's resolution changes.
type Observer interface {
	OnUpdate(State)
}

// ObserverFunc adapts a plain function to the Observer interface.
type ObserverFunc func(State)

// OnUpdate implements Observer.
func (f ObserverFunc) OnUpdate(s State) { f(s) }

// Subscription is the token returned by Activity.Observe. Dropping it (by
// calling Close) stops further delivery to the Observer that registered it;
// Close is idempotent and safe to call from any goroutine.
type Subscription interface {
	Close()
}

// Activity is a reactive name: a value that changes over time and pushes
// its changes to registered Observers, starting with its current state.
type Activity interface {
	// Observe attaches obs to this Activity. obs is notified of the current
	// state before Observe returns, then of every subsequent transition
	// until the returned Subscription is closed.
	Observe(Observer) Subscription
}
