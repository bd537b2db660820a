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
	"github.com/prometheus/client_golang/prometheus"

	"github.com/sabouaram/pmproxy/pkg/monitor/types"
)

// ClientMonitor tracks the three counters a Proxy's client registry needs:
// how many are currently open, how many were ever accepted, how many were
// ever closed. open == accepted - closed at any instant.
type ClientMonitor struct {
	pool     *Pool
	open     *Metrics
	accepted *Metrics
	closed   *Metrics
}

// NewClientMonitor registers the three metrics against reg (a fresh
// prometheus.NewRegistry() if reg is nil) and returns a ready-to-use
// ClientMonitor.
func NewClientMonitor(reg prometheus.Registerer) (*ClientMonitor, error) {
	pool := NewPool(reg)

	open := NewMetrics("pmproxy_clients_open", types.Gauge).
		SetDesc("number of client connections currently open")
	accepted := NewMetrics("pmproxy_clients_accepted_total", types.Counter).
		SetDesc("total number of client connections accepted")
	closed := NewMetrics("pmproxy_clients_closed_total", types.Counter).
		SetDesc("total number of client connections closed")

	for _, m := range []*Metrics{open, accepted, closed} {
		if err := pool.Add(m); err != nil {
			return nil, err
		}
	}

	return &ClientMonitor{
		pool:     pool,
		open:     open,
		accepted: accepted,
		closed:   closed,
	}, nil
}

func (c *ClientMonitor) Pool() *Pool { return c.pool }

// Accepted records a newly accepted client: bumps the accepted total and
// the open gauge together so scrapes never observe one without the other.
func (c *ClientMonitor) Accepted() {
	c.accepted.Inc()
	c.open.Inc()
}

// Closed records a client leaving the registry.
func (c *ClientMonitor) Closed() {
	c.closed.Inc()
	c.open.Dec()
}
