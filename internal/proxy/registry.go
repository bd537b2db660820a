/*
 * MIT License
 *
 * Copyright (c) 2024 Nicolas JUHEL
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

package proxy

import (
	"github.com/google/uuid"

	libatm "github.com/sabouaram/pmproxy/pkg/atomic"
)

// Registry is the Go-native realization of the Proxy's intrusive
// doubly-linked live-Client list: a concurrent map keyed by the Client's
// generational uuid.UUID, giving O(1) insert/remove without raw pointer
// aliasing. Safe for concurrent use: Insert runs on a Server's accept
// goroutine, Remove on whichever goroutine releases a Client's last
// reference, and Len/Walk may be called from any goroutine.
type Registry struct {
	m libatm.MapTyped[uuid.UUID, *Client]
}

func NewRegistry() *Registry {
	return &Registry{m: libatm.NewMapTyped[uuid.UUID, *Client]()}
}

func (r *Registry) Insert(c *Client) {
	r.m.Store(c.ID, c)
}

func (r *Registry) Remove(id uuid.UUID) {
	r.m.Delete(id)
}

func (r *Registry) Get(id uuid.UUID) (*Client, bool) {
	return r.m.Load(id)
}

func (r *Registry) Len() int {
	n := 0
	r.m.Range(func(uuid.UUID, *Client) bool {
		n++
		return true
	})
	return n
}

func (r *Registry) Walk(fn func(c *Client) bool) {
	r.m.Range(func(_ uuid.UUID, c *Client) bool {
		return fn(c)
	})
}
