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
	"context"

	"golang.org/x/sync/errgroup"
)

// WriteRequest is a queued write of one or two buffers to a Client's
// stream: the primary payload plus an optional suffix, owned by the
// Submitter for the duration of the write and released on completion
// regardless of status.
type WriteRequest struct {
	Client  *Client
	Primary []byte
	Suffix  []byte

	// ciphertext marks a request already produced by the TLS wrap path,
	// so deliver writes it straight to the socket instead of re-entering
	// the wrap path (which would otherwise loop forever).
	ciphertext bool
}

// Submitter is the Write Submitter: a multi-producer/single-consumer
// queue of WriteRequests, drained by one loop-registered goroutine so
// that writes to one Client from one producer are delivered to the
// socket in submission order.
type Submitter struct {
	q    chan *WriteRequest
	grp  *errgroup.Group
	gctx context.Context
}

func NewSubmitter(ctx context.Context, queueLen int) *Submitter {
	grp, gctx := errgroup.WithContext(ctx)
	return &Submitter{
		q:    make(chan *WriteRequest, queueLen),
		grp:  grp,
		gctx: gctx,
	}
}

// Run drains the queue on the loop thread until the context is canceled
// and the queue is empty. It is supervised by the Submitter's errgroup so
// Proxy.Shutdown can wait for orderly drain.
func (s *Submitter) Run() {
	s.grp.Go(func() error {
		for {
			select {
			case req, ok := <-s.q:
				if !ok {
					return nil
				}
				s.deliver(req)
			case <-s.gctx.Done():
				s.drain()
				return nil
			}
		}
	})
}

func (s *Submitter) drain() {
	for {
		select {
		case req := <-s.q:
			s.deliver(req)
		default:
			return
		}
	}
}

func (s *Submitter) deliver(req *WriteRequest) {
	defer req.Client.Put()

	if !req.Client.Opened() {
		return
	}

	if req.Client.secure != nil && !req.ciphertext {
		if err := req.Client.secure.Wrap(req); err != nil {
			req.Client.Close()
		}
		return
	}

	conn := req.Client.Stream.Conn()
	if conn == nil {
		req.Client.Close()
		return
	}

	if _, err := conn.Write(req.Primary); err != nil {
		req.Client.Close()
		return
	}
	if len(req.Suffix) > 0 {
		if _, err := conn.Write(req.Suffix); err != nil {
			req.Client.Close()
			return
		}
	}
}

// Submit is client_write: if the Client is not opened, the write is
// discarded without error. Otherwise a Get is taken on the Client's
// behalf (released by deliver's completion) and the request is enqueued
// for the drain goroutine; deliver hands it to the TLS wrap path if the
// Client has a TLS session, or writes it to the stream otherwise.
func (s *Submitter) Submit(c *Client, primary, suffix []byte) {
	if !c.Opened() {
		return
	}

	c.Get()
	req := &WriteRequest{Client: c, Primary: primary, Suffix: suffix}

	select {
	case s.q <- req:
	case <-s.gctx.Done():
		c.Put()
	}
}

// submitCiphertext enqueues already-encrypted bytes produced by a
// Client's TLSSession, bypassing the wrap path. Used as the emit callback
// wired into NewTLSSession so handshake flights and wrapped application
// data are serialized through the same loop-thread writer as everything
// else on the Client's stream.
func (s *Submitter) submitCiphertext(c *Client, b []byte) {
	if !c.Opened() {
		return
	}

	c.Get()
	req := &WriteRequest{Client: c, Primary: b, ciphertext: true}

	select {
	case s.q <- req:
	case <-s.gctx.Done():
		c.Put()
	}
}

// Wait blocks until every in-flight write goroutine has returned. It does
// not close q: Submit/submitCiphertext only ever stop enqueuing once
// gctx is Done, and closing q concurrently with one of their sends would
// race a closed-channel send against that same Done case in their
// select, which can panic. Run's drain on gctx.Done() empties whatever
// is left in the buffer instead.
func (s *Submitter) Wait() error {
	return s.grp.Wait()
}
