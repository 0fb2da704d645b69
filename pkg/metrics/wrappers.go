/*
 * Copyright (c) 2026, WSO2 LLC. (https://www.wso2.com).
 *
 * WSO2 LLC. licenses this file to you under the Apache License,
 * Version 2.0 (the "License"); you may not use this file except
 * in compliance with the License.
 * You may obtain a copy of the License at
 *
 * http://www.apache.org/licenses/LICENSE-2.0
 *
 * Unless required by applicable law or agreed to in writing,
 * software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY
 * KIND, either express or implied.  See the License for the
 * specific language governing permissions and limitations
 * under the License.
 */

package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

// Enabled switches collection on. Set once at startup, before Init.
var Enabled bool

// SetEnabled must be called before Init.
func SetEnabled(e bool) {
	Enabled = e
}

type Counter interface {
	Inc()
	Add(float64)
}

type Histogram interface {
	Observe(float64)
}

type Gauge interface {
	Set(float64)
	Inc()
	Dec()
}

// Vec is a family of metrics of kind M partitioned by label values
type Vec[M any] interface {
	WithLabelValues(labels ...string) M
}

type (
	CounterVec   = Vec[Counter]
	HistogramVec = Vec[Histogram]
	GaugeVec     = Vec[Gauge]
)

// discard satisfies every metric kind and records nothing
type discard struct{}

func (discard) Inc()            {}
func (discard) Dec()            {}
func (discard) Add(float64)     {}
func (discard) Set(float64)     {}
func (discard) Observe(float64) {}

// family adapts a prometheus vector to Vec. collector is nil while disabled.
type family[M any] struct {
	collector prometheus.Collector
	with      func(labels ...string) M
}

func (f family[M]) WithLabelValues(labels ...string) M {
	return f.with(labels...)
}

func (f family[M]) Collector() prometheus.Collector {
	return f.collector
}

func disabled[M any](m M) family[M] {
	return family[M]{with: func(...string) M { return m }}
}

func newCounterVec(opts prometheus.CounterOpts, labelNames []string) CounterVec {
	if !Enabled {
		return disabled[Counter](discard{})
	}
	v := prometheus.NewCounterVec(opts, labelNames)
	return family[Counter]{collector: v, with: func(l ...string) Counter { return v.WithLabelValues(l...) }}
}

func newHistogramVec(opts prometheus.HistogramOpts, labelNames []string) HistogramVec {
	if !Enabled {
		return disabled[Histogram](discard{})
	}
	v := prometheus.NewHistogramVec(opts, labelNames)
	return family[Histogram]{collector: v, with: func(l ...string) Histogram { return v.WithLabelValues(l...) }}
}

func newGaugeVec(opts prometheus.GaugeOpts, labelNames []string) GaugeVec {
	if !Enabled {
		return disabled[Gauge](discard{})
	}
	v := prometheus.NewGaugeVec(opts, labelNames)
	return family[Gauge]{collector: v, with: func(l ...string) Gauge { return v.WithLabelValues(l...) }}
}

func newGauge(opts prometheus.GaugeOpts) Gauge {
	if !Enabled {
		return discard{}
	}
	return prometheus.NewGauge(opts)
}
