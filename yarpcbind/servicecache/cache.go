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

// Package servicecache bounds the number of child factories kept alive at
// once, evicting the least recently used entry that has no callers
// currently holding a Service from it. An entry that would need eviction
// while every cached entry is pinned is served from a one-shot factory
// instead of growing the cache past capacity.
package servicecache

import (
	"container/list"
	"context"
	"fmt"
	"sync"

	"go.uber.org/multierr"
	"go.uber.org/net/metrics"
	"go.uber.org/zap"

	"go.uber.org/yarpcbind/yarpcbind"
)

// NewFactory builds the child Factory for a cache miss on key.
type NewFactory func(key interface{}) (yarpcbind.Factory, error)

// Option configures a Cache.
type Option func(*options)

type options struct {
	capacity int
	logger   *zap.Logger
	meter    *metrics.Scope
	name     string
}

// WithCapacity sets the maximum number of factories held at once. The
// default is 8, matching this package's documented default for the name
// cache; callers needing the delegation-table cache's default of 4 must
// set it explicitly.
func WithCapacity(n int) Option {
	return func(o *options) { o.capacity = n }
}

// WithLogger sets the logger used for eviction and one-shot diagnostics.
func WithLogger(logger *zap.Logger) Option {
	return func(o *options) { o.logger = logger }
}

// WithMeter sets the metrics scope size/eviction/oneshot instruments are
// registered on.
func WithMeter(meter *metrics.Scope) Option {
	return func(o *options) { o.meter = meter }
}

// WithName tags this cache's metrics and log lines, distinguishing e.g.
// the dtab cache from the name cache.
func WithName(name string) Option {
	return func(o *options) { o.name = name }
}

// entry is one cached factory: its refcount and its position in the LRU
// list. An eviction candidate (refcount == 0) is found by scanning the list
// from the back, past any pinned entries.
type entry struct {
	key      interface{}
	factory  yarpcbind.Factory
	refcount int
	elem     *list.Element
}

// Cache is a bounded, refcounted cache of child Factories, itself a
// yarpcbind-shaped Factory-of-factories keyed by an arbitrary comparable
// value (a Dtab's rendered string or a BoundName identity, in this module's
// two call sites).
type Cache struct {
	newFactory NewFactory
	opts       options
	obs        *observer

	mu      sync.Mutex
	entries map[interface{}]*entry
	lru     *list.List // front = most recently used, back = least
	closed  bool
}

// New returns an empty Cache. newFactory builds the child factory for key
// on a cache miss.
func New(newFactory NewFactory, opts ...Option) *Cache {
	o := options{capacity: 8, logger: zap.NewNop(), name: "servicecache"}
	for _, opt := range opts {
		opt(&o)
	}
	return &Cache{
		newFactory: newFactory,
		opts:       o,
		obs:        newObserver(o.meter, o.logger, o.name),
		entries:    make(map[interface{}]*entry),
		lru:        list.New(),
	}
}

// cachedService wraps the Service returned by a cached entry's factory so
// that closing it decrements the entry's refcount and makes it eligible
// for eviction again. Only the first Close decrements.
type cachedService struct {
	yarpcbind.Service
	release func()
	once    sync.Once
}

func (s *cachedService) Close(ctx context.Context) error {
	s.once.Do(s.release)
	return s.Service.Close(ctx)
}

// Acquire looks up the factory for key, creating it via newFactory on a
// miss, and forwards to its Acquire. The returned Service's Close
// decrements key's refcount.
func (c *Cache) Acquire(ctx context.Context, key interface{}) (yarpcbind.Service, error) {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return nil, &yarpcbind.ServiceClosed{Name: c.opts.name}
	}

	e, ok := c.entries[key]
	if ok {
		e.refcount++
		c.lru.MoveToFront(e.elem)
		c.mu.Unlock()
		return c.acquireFrom(ctx, key, e)
	}

	factory, newEntry, err := c.getOrCreateLocked(key)
	if err != nil {
		c.mu.Unlock()
		return nil, err
	}
	c.mu.Unlock()

	if newEntry == nil {
		c.obs.incOneshots()
		svc, err := factory.Acquire(ctx)
		if err != nil {
			_ = factory.Close(context.Background())
			return nil, err
		}
		return &cachedService{Service: svc, release: func() {
			_ = factory.Close(context.Background())
		}}, nil
	}
	return c.acquireFrom(ctx, key, newEntry)
}

func (c *Cache) acquireFrom(ctx context.Context, key interface{}, e *entry) (yarpcbind.Service, error) {
	svc, err := e.factory.Acquire(ctx)
	if err != nil {
		c.release(key)
		return nil, err
	}
	return &cachedService{Service: svc, release: func() { c.release(key) }}, nil
}

// getOrCreateLocked must be called with c.mu held. It returns the factory
// to use for key. When admitted is non-nil, the factory was inserted as a
// new cache entry with refcount already 1. When admitted is nil, the cache
// was full with every entry pinned, and factory is a one-shot not admitted
// to the cache at all.
func (c *Cache) getOrCreateLocked(key interface{}) (factory yarpcbind.Factory, admitted *entry, err error) {
	if len(c.entries) >= c.opts.capacity {
		if victim := c.findEvictableLocked(); victim != nil {
			c.evictLocked(victim)
		} else {
			f, err := c.newFactory(key)
			if err != nil {
				return nil, nil, err
			}
			return f, nil, nil
		}
	}

	f, err := c.newFactory(key)
	if err != nil {
		return nil, nil, err
	}
	e := &entry{key: key, factory: f, refcount: 1}
	e.elem = c.lru.PushFront(e)
	c.entries[key] = e
	c.obs.setSize(len(c.entries))
	return f, e, nil
}

// findEvictableLocked returns the least recently used entry with a zero
// refcount, or nil if every entry is pinned.
func (c *Cache) findEvictableLocked() *entry {
	for elem := c.lru.Back(); elem != nil; elem = elem.Prev() {
		e := elem.Value.(*entry)
		if e.refcount == 0 {
			return e
		}
	}
	return nil
}

func (c *Cache) evictLocked(e *entry) {
	delete(c.entries, e.key)
	c.lru.Remove(e.elem)
	c.obs.setSize(len(c.entries))
	c.obs.incEvictions()
	go func() {
		if err := e.factory.Close(context.Background()); err != nil {
			c.opts.logger.Error("error closing evicted factory",
				zap.Any("key", e.key), zap.Error(err))
		}
	}()
}

// release decrements key's refcount; a reference to a no-longer-cached
// entry (evicted while pinned is impossible by invariant, but a one-shot
// caller never reaches here) is a no-op.
func (c *Cache) release(key interface{}) {
	c.mu.Lock()
	defer c.mu.Unlock()
	e, ok := c.entries[key]
	if !ok {
		return
	}
	e.refcount--
	if e.refcount < 0 {
		e.refcount = 0
	}
}

// IsAvailable implements yarpcbind.Factory: true iff every cached factory
// is available, or the cache is empty.
func (c *Cache) IsAvailable() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	for _, e := range c.entries {
		if !e.factory.IsAvailable() {
			return false
		}
	}
	return true
}

// Close closes every cached factory and rejects further Acquire calls.
func (c *Cache) Close(ctx context.Context) error {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return nil
	}
	c.closed = true
	entries := make([]*entry, 0, len(c.entries))
	for _, e := range c.entries {
		entries = append(entries, e)
	}
	c.entries = make(map[interface{}]*entry)
	c.lru = list.New()
	c.mu.Unlock()

	var err error
	for _, e := range entries {
		if cerr := e.factory.Close(ctx); cerr != nil {
			err = multierr.Append(err, fmt.Errorf("closing cached factory for key %v: %w", e.key, cerr))
		}
	}
	return err
}

// Len reports the number of factories currently cached, for tests.
func (c *Cache) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.entries)
}
