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

package dynname

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"

	"go.uber.org/yarpcbind/yarpcbind"
	"go.uber.org/yarpcbind/yarpcnaming"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

type pendingActivity struct {
	mu  sync.Mutex
	obs yarpcnaming.Observer
}

func (a *pendingActivity) Observe(obs yarpcnaming.Observer) yarpcnaming.Subscription {
	a.mu.Lock()
	a.obs = obs
	a.mu.Unlock()
	obs.OnUpdate(yarpcnaming.Pending())
	return &noopSub{}
}

func (a *pendingActivity) push(s yarpcnaming.State) {
	a.mu.Lock()
	obs := a.obs
	a.mu.Unlock()
	obs.OnUpdate(s)
}

type noopSub struct{ closed bool }

func (s *noopSub) Close() { s.closed = true }

// countingTracer records every RecordBinary call so tests can assert both
// the number of invocations and the values traced.
type countingTracer struct {
	mu    sync.Mutex
	calls []struct{ key, value string }
}

func (t *countingTracer) RecordBinary(key, value string) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.calls = append(t.calls, struct{ key, value string }{key, value})
}

func (t *countingTracer) count(key string) int {
	t.mu.Lock()
	defer t.mu.Unlock()
	n := 0
	for _, c := range t.calls {
		if c.key == key {
			n++
		}
	}
	return n
}

type tracingService struct {
	name string
}

func (s *tracingService) Apply(context.Context, interface{}) (interface{}, error) { return s.name, nil }
func (s *tracingService) Close(context.Context) error                            { return nil }

func newServiceEcho(ctx context.Context, name yarpcnaming.BoundName) (yarpcbind.Service, error) {
	return &tracingService{name: name.ID.(string)}, nil
}

func TestFactoryQueuesWhilePendingThenResolves(t *testing.T) {
	act := &pendingActivity{}
	f := New(act, newServiceEcho)

	type result struct {
		svc yarpcbind.Service
		err error
	}
	results := make(chan result, 1)
	go func() {
		svc, err := f.Acquire(context.Background())
		results <- result{svc, err}
	}()

	// Give the goroutine a chance to enqueue before resolving.
	time.Sleep(10 * time.Millisecond)
	act.push(yarpcnaming.Ok([]yarpcnaming.BoundName{{ID: "inet!10.0.0.1:1010"}}))

	select {
	case r := <-results:
		require.NoError(t, r.err)
		svc := r.svc.(*tracingService)
		assert.Equal(t, "inet!10.0.0.1:1010", svc.name)
	case <-time.After(2 * time.Second):
		t.Fatal("Acquire never resolved")
	}
	assert.True(t, f.IsAvailable())
}

func TestFactoryAcquireAfterResolutionIsImmediate(t *testing.T) {
	act := &pendingActivity{}
	f := New(act, newServiceEcho)
	act.push(yarpcnaming.Ok([]yarpcnaming.BoundName{{ID: "inet!10.0.0.2:1010"}}))

	svc, err := f.Acquire(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "inet!10.0.0.2:1010", svc.(*tracingService).name)
}

func TestFactoryFailedResolutionFailsQueuedCallers(t *testing.T) {
	act := &pendingActivity{}
	tracer := &countingTracer{}
	f := New(act, newServiceEcho, WithTracer(tracer))

	errc := make(chan error, 1)
	go func() {
		_, err := f.Acquire(context.Background())
		errc <- err
	}()
	time.Sleep(10 * time.Millisecond)

	cause := errors.New("no such service")
	act.push(yarpcnaming.Failed(cause))

	select {
	case err := <-errc:
		require.Error(t, err)
		assert.Equal(t, cause, err)
		var ne *yarpcbind.NamingException
		assert.False(t, errors.As(err, &ne), "NamingException must not leak past Acquire")
	case <-time.After(2 * time.Second):
		t.Fatal("Acquire never resolved")
	}
	assert.Equal(t, 1, tracer.count("namer.failure"))
}

// TestFactoryFailedResolutionTracesEveryQueuedCaller covers the case where
// more than one caller is queued when the name resolves to Failed: the
// failure tracer must fire once per queued caller, exactly as it does once
// per direct resFailed Acquire.
func TestFactoryFailedResolutionTracesEveryQueuedCaller(t *testing.T) {
	act := &pendingActivity{}
	tracer := &countingTracer{}
	f := New(act, newServiceEcho, WithTracer(tracer))

	errc := make(chan error, 2)
	for i := 0; i < 2; i++ {
		go func() {
			_, err := f.Acquire(context.Background())
			errc <- err
		}()
	}
	time.Sleep(10 * time.Millisecond)

	cause := errors.New("no such service")
	act.push(yarpcnaming.Failed(cause))

	for i := 0; i < 2; i++ {
		select {
		case err := <-errc:
			require.Error(t, err)
			assert.Equal(t, cause, err)
		case <-time.After(2 * time.Second):
			t.Fatal("Acquire never resolved")
		}
	}
	assert.Equal(t, 2, tracer.count("namer.failure"))
}

func TestFactoryCancelledWhilePending(t *testing.T) {
	act := &pendingActivity{}
	f := New(act, newServiceEcho)

	ctx, cancel := context.WithCancel(context.Background())
	errc := make(chan error, 1)
	go func() {
		_, err := f.Acquire(ctx)
		errc <- err
	}()
	time.Sleep(10 * time.Millisecond)
	cancel()

	select {
	case err := <-errc:
		require.Error(t, err)
		var cancelled *yarpcbind.CancelledConnection
		assert.ErrorAs(t, err, &cancelled)
	case <-time.After(2 * time.Second):
		t.Fatal("Acquire never resolved")
	}
}

func TestFactoryCloseFailsQueuedAndFutureCallers(t *testing.T) {
	act := &pendingActivity{}
	f := New(act, newServiceEcho)

	errc := make(chan error, 1)
	go func() {
		_, err := f.Acquire(context.Background())
		errc <- err
	}()
	time.Sleep(10 * time.Millisecond)

	require.NoError(t, f.Close(context.Background()))

	select {
	case err := <-errc:
		require.Error(t, err)
		var closed *yarpcbind.ServiceClosed
		assert.ErrorAs(t, err, &closed)
	case <-time.After(2 * time.Second):
		t.Fatal("Acquire never resolved")
	}

	_, err := f.Acquire(context.Background())
	require.Error(t, err)
}
