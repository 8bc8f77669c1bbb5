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

package failfast

import (
	"go.uber.org/net/metrics"
	"go.uber.org/zap"
)

type observer struct {
	markedDead      *metrics.Counter
	markedAvailable *metrics.Counter
	unhealthyForMs  *metrics.Gauge
	unhealthyTries  *metrics.Gauge
}

func newObserver(meter *metrics.Scope, logger *zap.Logger, endpoint string) *observer {
	if meter == nil {
		meter = metrics.New().Scope()
	}
	tags := metrics.Tags{"endpoint": endpoint, "component": "failfast"}

	markedDead, err := meter.Counter(metrics.Spec{
		Name:      "marked_dead",
		Help:      "Total number of times this endpoint transitioned from healthy to retrying.",
		ConstTags: tags,
	})
	if err != nil {
		logger.Error("failed to create marked_dead counter", zap.Error(err))
	}

	markedAvailable, err := meter.Counter(metrics.Spec{
		Name:      "marked_available",
		Help:      "Total number of times this endpoint transitioned back to healthy.",
		ConstTags: tags,
	})
	if err != nil {
		logger.Error("failed to create marked_available counter", zap.Error(err))
	}

	unhealthyForMs, err := meter.Gauge(metrics.Spec{
		Name:      "unhealthy_for_ms",
		Help:      "Milliseconds since this endpoint entered the retrying state, or 0 if healthy.",
		ConstTags: tags,
	})
	if err != nil {
		logger.Error("failed to create unhealthy_for_ms gauge", zap.Error(err))
	}

	unhealthyTries, err := meter.Gauge(metrics.Spec{
		Name:      "unhealthy_num_tries",
		Help:      "Number of probe attempts since this endpoint entered the retrying state, or 0 if healthy.",
		ConstTags: tags,
	})
	if err != nil {
		logger.Error("failed to create unhealthy_num_tries gauge", zap.Error(err))
	}

	return &observer{
		markedDead:      markedDead,
		markedAvailable: markedAvailable,
		unhealthyForMs:  unhealthyForMs,
		unhealthyTries:  unhealthyTries,
	}
}

func (o *observer) incMarkedDead() {
	if o.markedDead != nil {
		o.markedDead.Inc()
	}
}

func (o *observer) incMarkedAvailable() {
	if o.markedAvailable != nil {
		o.markedAvailable.Inc()
	}
}

func (o *observer) setUnhealthy(forMs, tries int64) {
	if o.unhealthyForMs != nil {
		o.unhealthyForMs.Store(forMs)
	}
	if o.unhealthyTries != nil {
		o.unhealthyTries.Store(tries)
	}
}
