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
	"sync"
	"sync/atomic"

	"github.com/google/uuid"

	libatm "github.com/sabouaram/pmproxy/pkg/atomic"
	"github.com/sabouaram/pmproxy/pkg/logger"
)

// mask is the Client's protocol tag: at most one of PCP/HTTP/Redis plus an
// independent Secure bit, per the Design Notes' "struct with a plaintext
// tag and a bool secure" over a raw bitmask.
type mask struct {
	Proto  ProtocolTag
	Secure bool
}

// Client is a single accepted connection and its state: one Stream, a
// refcounted handle, a protocol mask, and a link in the Proxy's Registry.
// opened gates Close to exactly one effective invocation; refcount keeps
// the Client alive until every asynchronous holder has released it.
type Client struct {
	ID uuid.UUID

	proxy  *Proxy
	Stream *Stream

	log logger.FuncLog

	refcount atomic.Int64

	m      sync.Mutex
	opened bool

	msk libatm.Value[mask]

	secure TLSSession
}

// NewClient allocates a Client with refcount = 1, opened = true, and an
// empty (Unknown) protocol mask, per the Listener's accept-path contract.
func NewClient(p *Proxy, s *Stream, log logger.FuncLog) *Client {
	c := &Client{
		ID:     uuid.New(),
		proxy:  p,
		Stream: s,
		log:    log,
		opened: true,
		msk:    libatm.NewValue[mask](),
	}
	c.refcount.Store(1)
	// Seed the atomic.Value with a concrete type so later CompareAndSwap
	// calls never race against an untyped (never-stored) Value.
	c.msk.Store(mask{})
	return c
}

// Get increments the refcount; precondition is refcount > 0. Used by any
// component that stashes a Client pointer across an asynchronous
// boundary (get/put protocol).
func (c *Client) Get() {
	c.refcount.Add(1)
}

// Put decrements the refcount; at zero it performs destruction outside
// any lock: unlink from the Registry, then fan out protocol-specific
// close hooks for every bit set in the mask.
func (c *Client) Put() {
	if c.refcount.Add(-1) != 0 {
		return
	}
	c.destroy()
}

func (c *Client) destroy() {
	if c.proxy != nil {
		c.proxy.registry.Remove(c.ID)
		c.proxy.modules.notifyClose(c)
		if c.proxy.monitor != nil {
			c.proxy.monitor.Closed()
		}
	}
}

// Close is idempotent: the first call flips opened to false and performs
// a final Put (matching the "schedule a handle close whose completion
// issues a final put()" contract); later calls are no-ops.
func (c *Client) Close() {
	c.m.Lock()
	if !c.opened {
		c.m.Unlock()
		return
	}
	c.opened = false
	c.m.Unlock()

	if c.Stream != nil {
		c.Stream.SetActive(false)
		if conn := c.Stream.Conn(); conn != nil {
			_ = conn.Close()
		}
	}
	if c.secure != nil {
		_ = c.secure.Close()
	}

	c.Put()
}

// AttachSecure installs sess as the Client's TLS session the first time a
// secure record is observed; later calls (a second TLS record arriving
// before the first Unwrap returns) are no-ops since only the read
// demultiplexer's single per-Client goroutine ever calls this.
func (c *Client) AttachSecure(sess TLSSession) {
	if c.secure == nil {
		c.secure = sess
	}
}

func (c *Client) Opened() bool {
	c.m.Lock()
	defer c.m.Unlock()
	return c.opened
}

// Mask returns the Client's current protocol tag/secure pair.
func (c *Client) Mask() (ProtocolTag, bool) {
	mk := c.msk.Load()
	return mk.Proto, mk.Secure
}

// SetProtocol latches the plaintext tag. Once a non-Unknown tag is set it
// is never cleared or replaced; a second call is a no-op beyond its
// first effect.
func (c *Client) SetProtocol(tag ProtocolTag) {
	for {
		cur := c.msk.Load()
		if cur.Proto != Unknown {
			return
		}
		next := mask{Proto: tag, Secure: cur.Secure}
		if c.msk.CompareAndSwap(cur, next) {
			return
		}
	}
}

// SetSecure latches the Secure bit; it may coexist with one of PCP/HTTP/
// Redis, set independently whenever the TLS record type is recognized.
func (c *Client) SetSecure() {
	for {
		cur := c.msk.Load()
		if cur.Secure {
			return
		}
		next := mask{Proto: cur.Proto, Secure: true}
		if c.msk.CompareAndSwap(cur, next) {
			return
		}
	}
}

func (c *Client) Logger() logger.FuncLog { return c.log }
