/*
 * MIT License
 *
 * Copyright (c) 2022 Nicolas JUHEL
 *
 * Permission is hereby granted, free of charge, to any person obtaining a copy
 * of this software and associated documentation files (the "Software"), to deal
 * in the Software without restriction, including without limitation the rights
 * to use, copy, modify, merge, publish, distribute, sublicense, and/or sell
 * copies of the Software, and to permit persons to whom the Software is
 * furnished to do so, subject to the following conditions:
 *
 * The above copyright notice and this permission notice shall be included in all
 * copies or substantial portions of the Software.
 *
 * THE SOFTWARE IS PROVIDED "AS IS", WITHOUT WARRANTY OF ANY KIND, EXPRESS OR
 * IMPLIED, INCLUDING BUT NOT LIMITED TO THE WARRANTIES OF MERCHANTABILITY,
 * FITNESS FOR A PARTICULAR PURPOSE AND NONINFRINGEMENT. IN NO EVENT SHALL THE
 * AUTHORS OR COPYRIGHT HOLDERS BE LIABLE FOR ANY CLAIM, DAMAGES OR OTHER
 * LIABILITY, WHETHER IN AN ACTION OF CONTRACT, TORT OR OTHERWISE, ARISING FROM,
 * OUT OF OR IN CONNECTION WITH THE SOFTWARE OR THE USE OR OTHER DEALINGS IN THE
 * SOFTWARE.
 *
 *
 */

// Package monitor wires the proxy's runtime counters (open clients,
// accepted/closed connections) to prometheus/client_golang,
// following the name/type/desc metric model of the wider monitoring stack.
package monitor

import (
	"fmt"
	"sync"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/sabouaram/pmproxy/pkg/monitor/types"
)

// Metrics is a named, typed prometheus collector. Labels are fixed at
// construction time; values are reported through Inc/Add/Set/Observe.
type Metrics struct {
	m sync.RWMutex

	name   string
	desc   string
	kind   types.MetricType
	labels []string

	counter   *prometheus.CounterVec
	gauge     *prometheus.GaugeVec
	histogram *prometheus.HistogramVec
	summary   *prometheus.SummaryVec
}

// NewMetrics builds a Metrics of the given kind. The collector itself is
// only allocated when Collector or Register is called, so a
// None-typed Metrics is a valid, inert placeholder.
func NewMetrics(name string, kind types.MetricType, labels ...string) *Metrics {
	return &Metrics{
		name:   name,
		kind:   kind,
		labels: labels,
	}
}

func (m *Metrics) GetName() string { return m.name }

func (m *Metrics) GetType() types.MetricType { return m.kind }

func (m *Metrics) GetDesc() string {
	m.m.RLock()
	defer m.m.RUnlock()
	return m.desc
}

func (m *Metrics) SetDesc(desc string) *Metrics {
	m.m.Lock()
	defer m.m.Unlock()
	m.desc = desc
	return m
}

// Collector returns the prometheus.Collector backing this Metrics,
// allocating it on first use. Register must be called before Inc/Add/Set/
// Observe have any effect.
func (m *Metrics) Collector() prometheus.Collector {
	m.m.Lock()
	defer m.m.Unlock()

	opts := prometheus.Opts{
		Name: m.name,
		Help: m.desc,
	}

	switch m.kind {
	case types.Counter:
		if m.counter == nil {
			m.counter = prometheus.NewCounterVec(prometheus.CounterOpts(opts), m.labels)
		}
		return m.counter
	case types.Gauge:
		if m.gauge == nil {
			m.gauge = prometheus.NewGaugeVec(prometheus.GaugeOpts(opts), m.labels)
		}
		return m.gauge
	case types.Histogram:
		if m.histogram == nil {
			m.histogram = prometheus.NewHistogramVec(prometheus.HistogramOpts(opts), m.labels)
		}
		return m.histogram
	case types.Summary:
		if m.summary == nil {
			m.summary = prometheus.NewSummaryVec(prometheus.SummaryOpts(opts), m.labels)
		}
		return m.summary
	default:
		return nil
	}
}

func (m *Metrics) Register(reg prometheus.Registerer) error {
	c := m.Collector()
	if c == nil {
		return fmt.Errorf("monitor: metric %q has no registerable collector (type none)", m.name)
	}
	return reg.Register(c)
}

func (m *Metrics) Inc(labels ...string) {
	m.m.RLock()
	defer m.m.RUnlock()
	switch {
	case m.counter != nil:
		m.counter.WithLabelValues(labels...).Inc()
	case m.gauge != nil:
		m.gauge.WithLabelValues(labels...).Inc()
	}
}

func (m *Metrics) Add(v float64, labels ...string) {
	m.m.RLock()
	defer m.m.RUnlock()
	if m.counter != nil {
		m.counter.WithLabelValues(labels...).Add(v)
	}
}

func (m *Metrics) Set(v float64, labels ...string) {
	m.m.RLock()
	defer m.m.RUnlock()
	if m.gauge != nil {
		m.gauge.WithLabelValues(labels...).Set(v)
	}
}

func (m *Metrics) Dec(labels ...string) {
	m.m.RLock()
	defer m.m.RUnlock()
	if m.gauge != nil {
		m.gauge.WithLabelValues(labels...).Dec()
	}
}

func (m *Metrics) Observe(v float64, labels ...string) {
	m.m.RLock()
	defer m.m.RUnlock()
	switch {
	case m.histogram != nil:
		m.histogram.WithLabelValues(labels...).Observe(v)
	case m.summary != nil:
		m.summary.WithLabelValues(labels...).Observe(v)
	}
}
