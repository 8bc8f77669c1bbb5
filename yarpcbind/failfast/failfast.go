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

// Package failfast wraps a yarpcbind.Factory with a fast-fail circuit: once
// an acquisition fails, further callers are rejected immediately while a
// background probe retries on a jittered exponential schedule, so a
// thundering herd of callers never all pile onto a known-dead endpoint at
// once.
package failfast

import (
	"context"
	"sync"
	"time"

	"go.uber.org/net/metrics"
	"go.uber.org/zap"

	"go.uber.org/yarpcbind/yarpcbind"
	"go.uber.org/yarpcbind/api/backoff"
	ibackoff "go.uber.org/yarpcbind/internal/backoff"
	"go.uber.org/yarpcbind/internal/clock"
	"go.uber.org/yarpcbind/pkg/lifecycle"
)

// state is the health state of the wrapped factory.
type state int

const (
	stateOk state = iota
	stateRetrying
)

// observation is an input to the state machine, delivered in order by the
// single-consumer event processor.
type observation int

const (
	obsSuccess observation = iota
	obsFail
	obsTimeout
	obsTimeoutFail
	obsClose
)

// Option configures a Factory.
type Option func(*options)

type options struct {
	backoffStrategy backoff.Strategy
	logger          *zap.Logger
	meter           *metrics.Scope
	endpoint        string
	clock           clock.Clock
}

// WithBackoff overrides the default exponential backoff schedule.
func WithBackoff(s backoff.Strategy) Option {
	return func(o *options) { o.backoffStrategy = s }
}

// WithLogger sets the logger used for state transitions.
func WithLogger(logger *zap.Logger) Option {
	return func(o *options) { o.logger = logger }
}

// WithMeter sets the metrics scope counters and gauges are registered on.
func WithMeter(meter *metrics.Scope) Option {
	return func(o *options) { o.meter = meter }
}

// WithEndpoint names the wrapped endpoint for logging and metric tags.
func WithEndpoint(endpoint string) Option {
	return func(o *options) { o.endpoint = endpoint }
}

// withClock is a test-only hook for substituting internal/clock.FakeClock.
func withClock(c clock.Clock) Option {
	return func(o *options) { o.clock = c }
}

var defaultBackoffStrategy = constStrategy{}

// constStrategy reproduces the default schedule described in this
// package's documentation: exponential 1s,2s,4s,8s,16s then 32s forever,
// each plus a uniform jitter of up to 10% truncated to milliseconds, drawn
// from internal/backoff.Exponential.
type constStrategy struct{}

// defaultScheduleLength is the number of TimeoutFail observations the
// default schedule tolerates before optimistic recovery (§4.1: "Retrying,
// TimeoutFail, rest empty -> Ok"). It matches the 5 finite steps
// (1s,2s,4s,8s,16s) before the schedule repeats 32s forever.
const defaultScheduleLength = 5

func (constStrategy) Backoff() backoff.Backoff {
	b, err := ibackoff.NewExponential(
		ibackoff.BaseJump(time.Second),
		ibackoff.MinBackoff(0),
		ibackoff.MaxBackoff(32*time.Second),
	)
	if err != nil {
		panic(err) // the literal constants above are always valid
	}
	return boundedExponential{exp: b, maxAttempt: defaultScheduleLength}
}

// boundedExponential caps Duration's attempts argument at maxAttempt so the
// schedule is 1s,2s,4s,8s,16s,32s,32s,... rather than growing unboundedly,
// and reports itself exhausted once attempts reaches maxAttempt, letting
// Factory drive optimistic recovery off maxAttempt instead of a constant
// that ignores whatever Strategy the caller supplied.
type boundedExponential struct {
	exp        *ibackoff.Exponential
	maxAttempt uint
}

func (b boundedExponential) Duration(attempts uint) time.Duration {
	if attempts > b.maxAttempt {
		attempts = b.maxAttempt
	}
	// exp.Duration is uniform in [0, 2^attempts s], so a tenth of it is a
	// jitter of up to 10% of the nominal duration.
	nominal := time.Second << attempts
	return nominal + (b.exp.Duration(attempts) / 10).Truncate(time.Millisecond)
}

// Exhausted implements backoff.ExhaustibleBackoff.
func (b boundedExponential) Exhausted(attempts uint) bool {
	return attempts >= b.maxAttempt
}

// Factory wraps a yarpcbind.Factory with the fast-fail circuit described in
// this package's documentation.
type Factory struct {
	wrapped yarpcbind.Factory
	opts    options
	obs     *observer
	once    *lifecycle.Once

	events chan observation
	done   chan struct{}

	mu      sync.RWMutex
	state   state
	since   time.Time
	ntries  uint
	backoff backoff.Backoff
	timer   clock.Timer
}

// New wraps wrapped with a fast-fail circuit.
func New(wrapped yarpcbind.Factory, opts ...Option) *Factory {
	o := options{
		backoffStrategy: defaultBackoffStrategy,
		logger:          zap.NewNop(),
		clock:           clock.NewReal(),
	}
	for _, opt := range opts {
		opt(&o)
	}

	f := &Factory{
		wrapped: wrapped,
		opts:    o,
		obs:     newObserver(o.meter, o.logger, o.endpoint),
		once:    lifecycle.NewOnce(),
		events:  make(chan observation, 64),
		done:    make(chan struct{}),
		state:   stateOk,
		backoff: o.backoffStrategy.Backoff(),
	}
	if err := f.once.Start(func() error {
		go f.loop()
		return nil
	}); err != nil {
		o.logger.Error("failfast event processor failed to start", zap.Error(err))
	}
	return f
}

// Acquire implements yarpcbind.Factory. While the circuit is Retrying, it
// fails immediately with EndpointMarkedDown without touching the wrapped
// factory. Otherwise it forwards to the wrapped factory and reports the
// result (Success or Fail) back to the state machine.
func (f *Factory) Acquire(ctx context.Context) (yarpcbind.Service, error) {
	if f.currentState() == stateRetrying {
		return nil, &yarpcbind.EndpointMarkedDown{Endpoint: f.opts.endpoint}
	}

	svc, err := f.wrapped.Acquire(ctx)
	if err != nil {
		f.enqueue(obsFail)
		return nil, err
	}
	f.enqueue(obsSuccess)
	return svc, nil
}

// IsAvailable implements yarpcbind.Factory: true iff the circuit is Ok and
// the wrapped factory reports available.
func (f *Factory) IsAvailable() bool {
	return f.currentState() == stateOk && f.wrapped.IsAvailable()
}

// Close implements yarpcbind.Factory: terminal and idempotent.
func (f *Factory) Close(ctx context.Context) error {
	f.enqueue(obsClose)
	select {
	case <-f.done:
	case <-ctx.Done():
		return ctx.Err()
	}
	return f.wrapped.Close(ctx)
}

func (f *Factory) currentState() state {
	f.mu.RLock()
	defer f.mu.RUnlock()
	return f.state
}

func (f *Factory) enqueue(obs observation) {
	select {
	case f.events <- obs:
	case <-f.done:
	}
}

// loop is the single-consumer event processor: the only goroutine that
// mutates state, since, ntries, and timer.
func (f *Factory) loop() {
	for {
		select {
		case obs := <-f.events:
			if f.apply(obs) {
				close(f.done)
				return
			}
		}
	}
}

// apply handles one observation and returns true if the processor should
// stop (i.e. obs was Close).
func (f *Factory) apply(obs observation) bool {
	f.mu.Lock()
	from := f.state

	switch obs {
	case obsFail:
		if from == stateOk {
			f.state = stateRetrying
			f.since = f.opts.clock.Now()
			f.ntries = 0
			f.obs.incMarkedDead()
			f.scheduleProbeLocked()
		}
	case obsSuccess:
		if from == stateRetrying {
			f.cancelTimerLocked()
			f.state = stateOk
			f.obs.incMarkedAvailable()
		}
	case obsTimeout:
		if from == stateRetrying {
			f.mu.Unlock()
			f.probe()
			return false
		}
	case obsTimeoutFail:
		if from == stateRetrying {
			f.ntries++
			if f.exhaustedLocked() {
				f.state = stateOk
				f.obs.incMarkedAvailable()
			} else {
				f.scheduleProbeLocked()
			}
		}
	case obsClose:
		f.cancelTimerLocked()
		f.state = stateOk
		f.updateGaugesLocked()
		f.mu.Unlock()
		return true
	}
	f.updateGaugesLocked()
	f.mu.Unlock()
	return false
}

func (f *Factory) updateGaugesLocked() {
	if f.state == stateOk {
		f.obs.setUnhealthy(0, 0)
		return
	}
	forMs := f.opts.clock.Now().Sub(f.since).Milliseconds()
	f.obs.setUnhealthy(forMs, int64(f.ntries))
}

func (f *Factory) cancelTimerLocked() {
	if f.timer != nil {
		f.timer.Stop()
		f.timer = nil
	}
}

// exhaustedLocked reports whether f.backoff's schedule has run its course
// for f.ntries. A Backoff that does not implement backoff.ExhaustibleBackoff
// (a bare Strategy supplied only for Duration's sake) never exhausts, and
// the circuit keeps probing on whatever cadence Duration keeps returning.
func (f *Factory) exhaustedLocked() bool {
	eb, ok := f.backoff.(backoff.ExhaustibleBackoff)
	if !ok {
		return false
	}
	return eb.Exhausted(f.ntries)
}

func (f *Factory) scheduleProbeLocked() {
	d := f.backoff.Duration(f.ntries)
	f.timer = f.opts.clock.AfterFunc(d, func() {
		f.enqueue(obsTimeout)
	})
}

// probe calls the wrapped factory with a background context to test
// whether the endpoint has recovered. Its failure is never surfaced
// directly to a caller, only turned into a TimeoutFail observation.
func (f *Factory) probe() {
	svc, err := f.wrapped.Acquire(context.Background())
	if err != nil {
		f.enqueue(obsTimeoutFail)
		return
	}
	_ = svc.Close(context.Background())
	f.enqueue(obsSuccess)
}
