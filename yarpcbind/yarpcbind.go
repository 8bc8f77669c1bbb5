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

// Package yarpcbind defines the narrow interfaces shared by every layer of
// the binding stack (failfast, servicecache, dynname, binding): a Conn is
// the context that scopes one acquisition, a Factory is anything acquirable,
// a Service is what acquisition produces, and a Tracer records diagnostic
// annotations along the way.
package yarpcbind

import "context"

// Conn is the context under which a Factory is acquired; it carries the
// caller's cancellation and deadline. There is no separate cancellation
// channel: a caller cancels an in-flight Acquire by cancelling its Conn.
type Conn = context.Context

// Service is a bound, usable endpoint. Close is idempotent; in a Factory
// produced by servicecache.Cache, it decrements the cache's refcount for
// the key that produced this Service.
type Service interface {
	Apply(ctx context.Context, request interface{}) (response interface{}, err error)
	Close(ctx context.Context) error
}

// Factory is anything acquirable: a leaf endpoint factory, a
// *failfast.Factory, a *servicecache.Cache, or a *dynname.Factory. Layers
// compose by each both consuming and implementing this interface, without
// knowing the concrete type on either side.
type Factory interface {
	Acquire(ctx context.Context) (Service, error)
	IsAvailable() bool
	Close(ctx context.Context) error
}

// Tracer records key/value annotations against the acquisition currently in
// flight. The layers that record annotations call RecordBinary without a
// nil check, so a Tracer must be non-nil; NoopTracer discards everything.
type Tracer interface {
	RecordBinary(key, value string)
}

// NoopTracer discards every annotation.
type NoopTracer struct{}

// RecordBinary implements Tracer.
func (NoopTracer) RecordBinary(string, string) {}
