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
	"go.uber.org/net/metrics"
	"go.uber.org/zap"
)

type observer struct {
	size      *metrics.Gauge
	evictions *metrics.Counter
	oneshots  *metrics.Counter
}

func newObserver(meter *metrics.Scope, logger *zap.Logger, name string) *observer {
	if meter == nil {
		meter = metrics.New().Scope()
	}
	tags := metrics.Tags{"cache": name, "component": "servicecache"}

	size, err := meter.Gauge(metrics.Spec{
		Name:      "size",
		Help:      "Number of factories currently cached.",
		ConstTags: tags,
	})
	if err != nil {
		logger.Error("failed to create size gauge", zap.Error(err))
	}

	evictions, err := meter.Counter(metrics.Spec{
		Name:      "evictions",
		Help:      "Total number of factories evicted to make room for a new entry.",
		ConstTags: tags,
	})
	if err != nil {
		logger.Error("failed to create evictions counter", zap.Error(err))
	}

	oneshots, err := meter.Counter(metrics.Spec{
		Name:      "oneshots",
		Help:      "Total number of factories created outside the cache because every entry was pinned.",
		ConstTags: tags,
	})
	if err != nil {
		logger.Error("failed to create oneshots counter", zap.Error(err))
	}

	return &observer{size: size, evictions: evictions, oneshots: oneshots}
}

func (o *observer) setSize(n int) {
	if o.size != nil {
		o.size.Store(int64(n))
	}
}

func (o *observer) incEvictions() {
	if o.evictions != nil {
		o.evictions.Inc()
	}
}

func (o *observer) incOneshots() {
	if o.oneshots != nil {
		o.oneshots.Inc()
	}
}
