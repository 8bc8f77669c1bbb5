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

package servicecache

import (
	"context"
	"fmt"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"go.uber.org/yarpcbind/yarpcbind"
)

type countingService struct {
	closed *atomic.Bool
}

func (s *countingService) Apply(context.Context, interface{}) (interface{}, error) { return nil, nil }
func (s *countingService) Close(context.Context) error                            { s.closed.Store(true); return nil }

type countingFactory struct {
	key    interface{}
	closed atomic.Bool
}

func (f *countingFactory) Acquire(context.Context) (yarpcbind.Service, error) {
	return &countingService{closed: &f.closed}, nil
}
func (f *countingFactory) IsAvailable() bool { return true }
func (f *countingFactory) Close(context.Context) error {
	f.closed.Store(true)
	return nil
}

func newCountingCache(t *testing.T, capacity int) (*Cache, *int32) {
	var news int32
	c := New(func(key interface{}) (yarpcbind.Factory, error) {
		atomic.AddInt32(&news, 1)
		return &countingFactory{key: key}, nil
	}, WithCapacity(capacity), WithName(t.Name()))
	return c, &news
}

func TestCacheReusesSameKey(t *testing.T) {
	c, news := newCountingCache(t, 4)
	ctx := context.Background()

	s1, err := c.Acquire(ctx, "a")
	require.NoError(t, err)
	s2, err := c.Acquire(ctx, "a")
	require.NoError(t, err)

	assert.EqualValues(t, 1, atomic.LoadInt32(news))
	require.NoError(t, s1.Close(ctx))
	require.NoError(t, s2.Close(ctx))
}

func TestCacheBoundedByCapacity(t *testing.T) {
	c, _ := newCountingCache(t, 2)
	ctx := context.Background()

	for _, key := range []string{"a", "b", "c"} {
		svc, err := c.Acquire(ctx, key)
		require.NoError(t, err)
		require.NoError(t, svc.Close(ctx))
		assert.LessOrEqual(t, c.Len(), 2)
	}
}

func TestCacheEvictsLeastRecentlyUsed(t *testing.T) {
	c, _ := newCountingCache(t, 2)
	ctx := context.Background()

	sa, err := c.Acquire(ctx, "a")
	require.NoError(t, err)
	require.NoError(t, sa.Close(ctx))

	sb, err := c.Acquire(ctx, "b")
	require.NoError(t, err)
	require.NoError(t, sb.Close(ctx))

	// "a" is now least recently used; inserting "c" should evict it, not "b".
	sc, err := c.Acquire(ctx, "c")
	require.NoError(t, err)
	require.NoError(t, sc.Close(ctx))

	c.mu.Lock()
	_, hasB := c.entries["b"]
	_, hasA := c.entries["a"]
	c.mu.Unlock()
	assert.True(t, hasB)
	assert.False(t, hasA)
}

func TestCacheDoesNotEvictPinnedEntry(t *testing.T) {
	c, news := newCountingCache(t, 1)
	ctx := context.Background()

	pinned, err := c.Acquire(ctx, "a")
	require.NoError(t, err)
	defer pinned.Close(ctx)

	// "a" is pinned (never closed) and the cache is full: "b" must be
	// served one-shot, not admitted, and "a" must remain cached.
	svc, err := c.Acquire(ctx, "b")
	require.NoError(t, err)
	require.NoError(t, svc.Close(ctx))

	assert.EqualValues(t, 2, atomic.LoadInt32(news))
	assert.Equal(t, 1, c.Len())
	c.mu.Lock()
	_, hasA := c.entries["a"]
	c.mu.Unlock()
	assert.True(t, hasA)
}

func TestCacheIsAvailableWhenEmpty(t *testing.T) {
	c, _ := newCountingCache(t, 4)
	assert.True(t, c.IsAvailable())
}

func TestCacheRejectsAfterClose(t *testing.T) {
	c, _ := newCountingCache(t, 4)
	ctx := context.Background()
	require.NoError(t, c.Close(ctx))

	_, err := c.Acquire(ctx, "a")
	require.Error(t, err)
}

func TestCacheNewFactoryErrorPropagates(t *testing.T) {
	c := New(func(key interface{}) (yarpcbind.Factory, error) {
		return nil, fmt.Errorf("boom: %v", key)
	}, WithName(t.Name()))
	_, err := c.Acquire(context.Background(), "a")
	require.Error(t, err)
	assert.Equal(t, 0, c.Len())
}
