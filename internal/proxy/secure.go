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
	"crypto/tls"
	"net"
	"sync"
	"time"

	"github.com/sabouaram/pmproxy/pkg/certificates"
)

// TLSSession is the secure layer's decorator contract (Design Notes: "a
// trait/interface with unwrap(ciphertext) -> plaintext chunks and
// wrap(plaintext write request) -> ciphertext write requests"). Unwrap is
// called from the read demultiplexer with raw inbound bytes and returns
// zero or more decrypted plaintext chunks, re-entering classification.
// Wrap encrypts a plaintext WriteRequest and emits the resulting
// ciphertext through emit, matching the Write Submitter's shape.
type TLSSession interface {
	Unwrap(ciphertext []byte) (plaintext [][]byte, err error)
	Wrap(req *WriteRequest) error
	Close() error
}

// memConn is an in-memory net.Conn half used to drive crypto/tls without
// a real socket: Read blocks on an inbound channel fed by Unwrap; Write
// invokes emit synchronously so ciphertext is forwarded the moment
// crypto/tls produces it (handshake flights or wrapped application data).
type memConn struct {
	in   chan []byte
	rest []byte
	emit func([]byte)
	once sync.Once
	done chan struct{}
}

func newMemConn(emit func([]byte)) *memConn {
	return &memConn{
		in:   make(chan []byte, 64),
		emit: emit,
		done: make(chan struct{}),
	}
}

func (c *memConn) push(b []byte) {
	cp := make([]byte, len(b))
	copy(cp, b)
	select {
	case c.in <- cp:
	case <-c.done:
	}
}

func (c *memConn) Read(b []byte) (int, error) {
	for len(c.rest) == 0 {
		select {
		case chunk, ok := <-c.in:
			if !ok {
				return 0, net.ErrClosed
			}
			c.rest = chunk
		case <-c.done:
			return 0, net.ErrClosed
		}
	}
	n := copy(b, c.rest)
	c.rest = c.rest[n:]
	return n, nil
}

func (c *memConn) Write(b []byte) (int, error) {
	c.emit(b)
	return len(b), nil
}

func (c *memConn) Close() error {
	c.once.Do(func() { close(c.done) })
	return nil
}

func (c *memConn) LocalAddr() net.Addr             { return memAddr{} }
func (c *memConn) RemoteAddr() net.Addr            { return memAddr{} }
func (c *memConn) SetDeadline(time.Time) error      { return nil }
func (c *memConn) SetReadDeadline(time.Time) error  { return nil }
func (c *memConn) SetWriteDeadline(time.Time) error { return nil }

type memAddr struct{}

func (memAddr) Network() string { return "mem" }
func (memAddr) String() string  { return "mem" }

// session is the TLSSession implementation: a server-side *tls.Conn
// running over a memConn, with a background goroutine draining decrypted
// application data into plainCh so Unwrap never blocks the loop thread.
type session struct {
	conn    *memConn
	tconn   *tls.Conn
	plainCh chan []byte
	errCh   chan error
}

// NewTLSSession wraps cfg.TLS(serverName) around a fresh in-memory server
// conn; emit is invoked synchronously every time crypto/tls has ciphertext
// ready to send: from the session's own goroutine for handshake flights,
// and from Wrap's caller for wrapped application data.
func NewTLSSession(cfg certificates.TLSConfig, serverName string, emit func([]byte)) TLSSession {
	mc := newMemConn(emit)
	tc := tls.Server(mc, cfg.TLS(serverName))

	s := &session{
		conn:    mc,
		tconn:   tc,
		plainCh: make(chan []byte, 64),
		errCh:   make(chan error, 1),
	}

	go s.pump()

	return s
}

func (s *session) pump() {
	buf := make([]byte, 32*1024)
	for {
		n, err := s.tconn.Read(buf)
		if n > 0 {
			chunk := make([]byte, n)
			copy(chunk, buf[:n])
			s.plainCh <- chunk
		}
		if err != nil {
			s.errCh <- err
			close(s.plainCh)
			return
		}
	}
}

// Unwrap feeds ciphertext into the session and drains whatever plaintext
// is already available without blocking, so a partial TLS record (more
// handshake flight still in flight) simply yields zero chunks.
func (s *session) Unwrap(ciphertext []byte) ([][]byte, error) {
	s.conn.push(ciphertext)

	var out [][]byte
	for {
		select {
		case chunk, ok := <-s.plainCh:
			if !ok {
				select {
				case err := <-s.errCh:
					return out, err
				default:
					return out, nil
				}
			}
			out = append(out, chunk)
		default:
			return out, nil
		}
	}
}

func (s *session) Wrap(req *WriteRequest) error {
	if _, err := s.tconn.Write(req.Primary); err != nil {
		return err
	}
	if len(req.Suffix) > 0 {
		if _, err := s.tconn.Write(req.Suffix); err != nil {
			return err
		}
	}
	return nil
}

func (s *session) Close() error {
	_ = s.conn.Close()
	return s.tconn.Close()
}
