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

// Package binding assembles a path into a callable Service: it evaluates the
// effective delegation table for the calling context, resolves the result to
// a bound name, and hands that name to a DynNameFactory. The child factory for
// each resolved name is cached by the name's identity. The per-Dtab cache
// entry holds no evaluation result: every Acquire evaluates the path against
// the effective Dtab again and calls NewChildService for the resolved name.
package binding

import (
	"context"
	"fmt"
	"sync"

	"go.uber.org/multierr"
	"go.uber.org/zap"

	"go.uber.org/net/metrics"

	"go.uber.org/yarpcbind/yarpcbind"
	"go.uber.org/yarpcbind/yarpcbind/dynname"
	"go.uber.org/yarpcbind/yarpcbind/failfast"
	"go.uber.org/yarpcbind/yarpcbind/servicecache"
	"go.uber.org/yarpcbind/yarpcnaming"
)

// defaultNamerCacheSize and defaultNameCacheSize match this package's
// documented defaults: delegation tables are few and reused across most
// calls to a given path, while resolved names proliferate faster as traffic
// fans out across more downstreams.
const (
	defaultNamerCacheSize = 4
	defaultNameCacheSize  = 8
)

// NewChildService builds the Service that ultimately serves calls to a
// resolved BoundName, e.g. dialing a connection and wrapping it.
type NewChildService func(ctx context.Context, name yarpcnaming.BoundName) (yarpcbind.Service, error)

// BaseDtabProvider returns the process-wide base delegation table at call
// time, letting it be swapped out (e.g. for tests) instead of always reading
// yarpcnaming.BaseDtab.
type BaseDtabProvider func() yarpcnaming.Dtab

// Option configures a Factory.
type Option func(*options)

type options struct {
	maxNamerCacheSize int
	maxNameCacheSize  int
	baseDtabProvider  BaseDtabProvider
	failFast          bool
	failFastOpts      []failfast.Option
	logger            *zap.Logger
	meter             *metrics.Scope
	tracer            yarpcbind.Tracer
}

// WithMaxNamerCacheSize overrides the number of distinct effective Dtabs
// kept resolved at once. Default 4.
func WithMaxNamerCacheSize(n int) Option {
	return func(o *options) { o.maxNamerCacheSize = n }
}

// WithMaxNameCacheSize overrides the number of distinct child factories,
// keyed by resolved BoundName, kept alive at once. Default 8.
func WithMaxNameCacheSize(n int) Option {
	return func(o *options) { o.maxNameCacheSize = n }
}

// WithBaseDtabProvider overrides how the process-wide base delegation table
// is read. Default yarpcnaming.BaseDtab.
func WithBaseDtabProvider(p BaseDtabProvider) Option {
	return func(o *options) { o.baseDtabProvider = p }
}

// WithFailFast wraps every child factory in a failfast.Factory constructed
// with opts, so a downstream that starts refusing connections is marked
// down instead of retried on every call.
func WithFailFast(opts ...failfast.Option) Option {
	return func(o *options) { o.failFast = true; o.failFastOpts = opts }
}

// WithLogger sets the logger passed through to both caches.
func WithLogger(logger *zap.Logger) Option {
	return func(o *options) { o.logger = logger }
}

// WithMeter sets the metrics scope both caches register instruments on.
func WithMeter(meter *metrics.Scope) Option {
	return func(o *options) { o.meter = meter }
}

// WithTracer sets the tracer that receives the namer.path, namer.dtab.base,
// namer.name, and namer.failure annotations recorded against every
// acquisition. Default NoopTracer.
func WithTracer(t yarpcbind.Tracer) Option {
	return func(o *options) { o.tracer = t }
}

// Factory turns a logical Path into a Service, caching both the delegation
// table resolution (DtabCache, keyed by effective Dtab) and the child
// factory for a resolved name (NameCache, keyed by BoundName identity).
type Factory struct {
	path yarpcnaming.Path
	opts options

	dtabCache *servicecache.Cache
	nameCache *servicecache.Cache

	// namesMu and names let a BoundName's Addrs survive the trip through
	// nameCache, which is keyed by the comparable name.Key() alone: a
	// BoundName itself is not comparable, since Addrs is a slice.
	namesMu sync.Mutex
	names   map[interface{}]yarpcnaming.BoundName
}

// New returns a Factory that resolves path against the effective Dtab of
// each call's context. newChild builds the terminal Service for a resolved
// name.
func New(path yarpcnaming.Path, newChild NewChildService, opts ...Option) *Factory {
	o := options{
		maxNamerCacheSize: defaultNamerCacheSize,
		maxNameCacheSize:  defaultNameCacheSize,
		baseDtabProvider:  yarpcnaming.BaseDtab,
		logger:            zap.NewNop(),
		tracer:            yarpcbind.NoopTracer{},
	}
	for _, opt := range opts {
		opt(&o)
	}

	f := &Factory{path: path, opts: o, names: make(map[interface{}]yarpcnaming.BoundName)}

	f.nameCache = servicecache.New(f.newNameFactory(newChild),
		servicecache.WithCapacity(o.maxNameCacheSize),
		servicecache.WithLogger(o.logger),
		servicecache.WithMeter(o.meter),
		servicecache.WithName("name"))

	f.dtabCache = servicecache.New(f.newDtabFactory(),
		servicecache.WithCapacity(o.maxNamerCacheSize),
		servicecache.WithLogger(o.logger),
		servicecache.WithMeter(o.meter),
		servicecache.WithName("dtab"))

	return f
}

// newNameFactory returns the servicecache.NewFactory used by nameCache: it
// builds a dynname.Factory bound to the (already resolved) name's Activity.
func (f *Factory) newNameFactory(newChild NewChildService) servicecache.NewFactory {
	return func(key interface{}) (yarpcbind.Factory, error) {
		name := f.lookupName(key)
		activity := yarpcnaming.NewStaticActivity(yarpcnaming.Ok([]yarpcnaming.BoundName{name}))
		child := yarpcbind.Factory(dynname.New(activity, dynname.NewService(newChild), dynname.WithTracer(f.opts.tracer)))
		if f.opts.failFast {
			child = failfast.New(child, f.opts.failFastOpts...)
		}
		return child, nil
	}
}

// rememberName records name under its Key() so newNameFactory can recover
// its Addrs on a name cache miss, then returns the key.
func (f *Factory) rememberName(name yarpcnaming.BoundName) interface{} {
	key := name.Key()
	f.namesMu.Lock()
	f.names[key] = name
	f.namesMu.Unlock()
	return key
}

// lookupName recovers the BoundName last remembered under key. A key with
// no remembered name (should not happen in normal operation) resolves to a
// bare BoundName carrying only the identity.
func (f *Factory) lookupName(key interface{}) yarpcnaming.BoundName {
	f.namesMu.Lock()
	defer f.namesMu.Unlock()
	if name, ok := f.names[key]; ok {
		return name
	}
	return yarpcnaming.BoundName{ID: key}
}

// dtabKey identifies one effective Dtab resolution for this Factory's path.
// Dtab itself is a slice and so not directly comparable; its String form is
// exactly the identity Eval depends on (order and content of entries).
type dtabKey string

// newDtabFactory returns the servicecache.NewFactory used by dtabCache: it
// checks that key is a dtabKey and returns a dtabResolution for this Factory.
// It evaluates nothing itself; evaluation happens in dtabResolution.Acquire.
func (f *Factory) newDtabFactory() servicecache.NewFactory {
	return func(key interface{}) (yarpcbind.Factory, error) {
		if _, ok := key.(dtabKey); !ok {
			return nil, fmt.Errorf("binding: dtab cache key %v is not a dtabKey", key)
		}
		return &dtabResolution{factory: f}, nil
	}
}

// dtabResolution is the DtabCache entry for one effective Dtab: a factory
// whose Acquire re-resolves the effective Dtab from ctx and forwards to
// nameCache. It does not cache the Dtab's value itself, since dtabCache's
// key (the Dtab's rendered string) is already that identity; re-deriving it
// from ctx on every Acquire keeps this type free of any mutable state.
type dtabResolution struct {
	factory *Factory
}

func (r *dtabResolution) Acquire(ctx context.Context) (yarpcbind.Service, error) {
	tracer := r.factory.opts.tracer
	base := r.factory.opts.baseDtabProvider()
	dtab := base.Concat(yarpcnaming.LocalDtabFromContext(ctx))
	tracer.RecordBinary("namer.path", r.factory.path.String())
	tracer.RecordBinary("namer.dtab.base", base.String())

	var resolvedErr error
	var name yarpcnaming.BoundName
	sub := yarpcnaming.Bind(dtab, r.factory.path).Observe(yarpcnaming.ObserverFunc(func(s yarpcnaming.State) {
		if s.IsPending() {
			return
		}
		if err := s.Err(); err != nil {
			resolvedErr = err
			return
		}
		if names := s.Names(); len(names) > 0 {
			name = names[0]
		}
	}))
	sub.Close()

	if resolvedErr != nil {
		if nb, ok := resolvedErr.(*yarpcnaming.NoBrokersAvailable); ok {
			err := nb.WithLocalDtab(yarpcnaming.LocalDtabFromContext(ctx))
			tracer.RecordBinary("namer.failure", err.Error())
			return nil, err
		}
		tracer.RecordBinary("namer.failure", resolvedErr.Error())
		return nil, resolvedErr
	}
	tracer.RecordBinary("namer.name", yarpcnaming.RenderID(name.ID))
	key := r.factory.rememberName(name)
	return r.factory.nameCache.Acquire(ctx, key)
}

func (r *dtabResolution) IsAvailable() bool { return true }

func (r *dtabResolution) Close(context.Context) error { return nil }

// Acquire resolves this Factory's path against the effective Dtab of ctx and
// returns the terminal Service for the result, reusing cached resolutions
// and cached child factories wherever possible.
func (f *Factory) Acquire(ctx context.Context) (yarpcbind.Service, error) {
	dtab := f.opts.baseDtabProvider().Concat(yarpcnaming.LocalDtabFromContext(ctx))
	return f.dtabCache.Acquire(ctx, dtabKey(dtab.String()))
}

// IsAvailable reports the DtabCache's availability only. Every DtabCache
// entry (a dtabResolution) reports itself available, so the result does not
// reflect the health of resolved names or their child factories. A cold
// Factory that has never resolved anything reports available, matching
// servicecache.Cache's empty-cache convention.
func (f *Factory) IsAvailable() bool {
	return f.dtabCache.IsAvailable()
}

// Close closes both caches, combining any errors from the two.
func (f *Factory) Close(ctx context.Context) error {
	return multierr.Append(f.dtabCache.Close(ctx), f.nameCache.Close(ctx))
}
