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

package monitor

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"
)

// Pool is a named collection of Metrics sharing one prometheus.Registerer.
// A Server hands its Pool's FuncPool to any component that needs to expose
// counters without importing prometheus directly.
type Pool struct {
	m sync.RWMutex
	r prometheus.Registerer
	s map[string]*Metrics
}

// FuncPool is the minimal surface a component needs to publish a metric,
// mirroring the registration callback used by the wider monitoring stack.
type FuncPool func(m *Metrics) error

func NewPool(reg prometheus.Registerer) *Pool {
	if reg == nil {
		reg = prometheus.NewRegistry()
	}
	return &Pool{
		r: reg,
		s: make(map[string]*Metrics),
	}
}

func (p *Pool) Registerer() prometheus.Registerer {
	return p.r
}

// Add registers m and stores it under its name. If the registerer rejects
// m (for example because a metric of the same name is already registered),
// Add returns that error and stores nothing.
func (p *Pool) Add(m *Metrics) error {
	if err := m.Register(p.r); err != nil {
		return err
	}

	p.m.Lock()
	defer p.m.Unlock()
	p.s[m.GetName()] = m
	return nil
}

func (p *Pool) Get(name string) *Metrics {
	p.m.RLock()
	defer p.m.RUnlock()
	return p.s[name]
}

func (p *Pool) Walk(fn func(m *Metrics) bool) {
	p.m.RLock()
	items := make([]*Metrics, 0, len(p.s))
	for _, m := range p.s {
		items = append(items, m)
	}
	p.m.RUnlock()

	for _, m := range items {
		if !fn(m) {
			return
		}
	}
}
