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

// Package dynname bridges a reactive yarpcnaming.Activity to the
// synchronous yarpcbind.Factory interface: callers that arrive while the
// name is still Pending are queued and released, in arrival order, the
// moment the name resolves.
package dynname

import (
	"context"
	"sync"

	"go.uber.org/yarpcbind/yarpcbind"
	"go.uber.org/yarpcbind/yarpcnaming"
)

// NewService builds the child Service for a resolved BoundName. It is
// called once per queued caller when the name transitions out of Pending,
// and once per caller that arrives after the name is already resolved.
type NewService func(ctx context.Context, name yarpcnaming.BoundName) (yarpcbind.Service, error)

// resolution is the factory's local mirror of yarpcnaming.State's three
// variants, plus Closed, which yarpcnaming.State has no equivalent for.
type resolution int

const (
	resPending resolution = iota
	resNamed
	resFailed
	resClosed
)

type pendingCall struct {
	ctx    context.Context
	result chan acquireResult
}

type acquireResult struct {
	svc yarpcbind.Service
	err error
}

// Option configures a Factory.
type Option func(*options)

type options struct {
	tracer yarpcbind.Tracer
}

// WithTracer sets the tracer whose failure hook is invoked when the
// reactive name resolves to Failed.
func WithTracer(t yarpcbind.Tracer) Option {
	return func(o *options) { o.tracer = t }
}

// Factory is a yarpcbind.Factory backed by a reactive yarpcnaming.Activity.
type Factory struct {
	newService NewService
	opts       options
	sub        yarpcnaming.Subscription

	mu       sync.Mutex
	res      resolution
	name     yarpcnaming.BoundName
	err      error
	pending  []pendingCall
}

// New subscribes to activity and returns a Factory that bridges it to the
// synchronous Acquire interface. newService builds the child service once
// a name is known.
func New(activity yarpcnaming.Activity, newService NewService, opts ...Option) *Factory {
	o := options{tracer: yarpcbind.NoopTracer{}}
	for _, opt := range opts {
		opt(&o)
	}
	f := &Factory{newService: newService, opts: o, res: resPending}
	f.sub = activity.Observe(yarpcnaming.ObserverFunc(f.onUpdate))
	return f
}

// Acquire implements yarpcbind.Factory.
func (f *Factory) Acquire(ctx context.Context) (yarpcbind.Service, error) {
	f.mu.Lock()
	switch f.res {
	case resNamed:
		name := f.name
		f.mu.Unlock()
		return f.newService(ctx, name)
	case resFailed:
		err := f.err
		f.mu.Unlock()
		f.opts.tracer.RecordBinary("namer.failure", err.Error())
		return nil, err
	case resClosed:
		f.mu.Unlock()
		return nil, &yarpcbind.ServiceClosed{}
	}

	// resPending: enqueue and wait, honoring cancellation while queued.
	call := pendingCall{ctx: ctx, result: make(chan acquireResult, 1)}
	f.pending = append(f.pending, call)
	f.mu.Unlock()

	select {
	case r := <-call.result:
		if ne, ok := r.err.(*yarpcbind.NamingException); ok {
			f.opts.tracer.RecordBinary("namer.failure", ne.Cause.Error())
			return r.svc, ne.Cause
		}
		return r.svc, r.err
	case <-ctx.Done():
		f.cancel(call)
		return nil, &yarpcbind.CancelledConnection{Cause: ctx.Err()}
	}
}

// cancel removes call from the pending queue if it is still there. If the
// name resolved concurrently and call was already delivered a result, this
// is a harmless no-op racing the buffered channel send.
func (f *Factory) cancel(call pendingCall) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for i, p := range f.pending {
		if p == call {
			f.pending = append(f.pending[:i], f.pending[i+1:]...)
			return
		}
	}
}

// onUpdate is the yarpcnaming.Observer callback. It runs on whatever
// goroutine the Activity delivers updates from; state transitions happen
// under f.mu, and the queue-draining work (starting newService, completing
// pending calls) happens after releasing it to avoid reentrancy.
func (f *Factory) onUpdate(s yarpcnaming.State) {
	f.mu.Lock()
	if f.res == resClosed {
		f.mu.Unlock()
		return
	}

	switch {
	case s.IsPending():
		f.mu.Unlock()
		return
	case s.Err() != nil:
		wasPending := f.res == resPending
		f.res = resFailed
		f.err = s.Err()
		var drained []pendingCall
		if wasPending {
			drained, f.pending = f.pending, nil
		}
		f.mu.Unlock()
		for _, call := range drained {
			call.result <- acquireResult{err: &yarpcbind.NamingException{Cause: s.Err()}}
		}
	default:
		names := s.Names()
		wasPending := f.res == resPending
		f.res = resNamed
		var name yarpcnaming.BoundName
		if len(names) > 0 {
			name = names[0]
		}
		f.name = name
		var drained []pendingCall
		if wasPending {
			drained, f.pending = f.pending, nil
		}
		f.mu.Unlock()
		for _, call := range drained {
			svc, err := f.newService(call.ctx, name)
			call.result <- acquireResult{svc: svc, err: err}
		}
	}
}

// IsAvailable implements yarpcbind.Factory: true once a name is known.
func (f *Factory) IsAvailable() bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.res == resNamed
}

// Close implements yarpcbind.Factory: terminal, failing any queued callers
// with ServiceClosed and cancelling the subscription to the reactive name.
func (f *Factory) Close(context.Context) error {
	f.mu.Lock()
	if f.res == resClosed {
		f.mu.Unlock()
		return nil
	}
	f.res = resClosed
	drained := f.pending
	f.pending = nil
	f.mu.Unlock()

	for _, call := range drained {
		call.result <- acquireResult{err: &yarpcbind.ServiceClosed{}}
	}
	f.sub.Close()
	return nil
}
