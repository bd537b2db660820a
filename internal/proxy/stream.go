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
	"net"

	libatm "github.com/sabouaram/pmproxy/pkg/atomic"
	"github.com/sabouaram/pmproxy/pkg/network/protocol"
)

// Stream wraps one loop-registered handle: a listening socket (on a
// Server) or an accepted connection (on a Client). Family distinguishes
// TCP4/TCP6/LOCAL; V6Only additionally marks a TCP6 stream bound without
// the dual-stack option, so its IPv4 companion can bind separately.
type Stream struct {
	Family  protocol.NetworkProtocol
	Address string
	Port    int
	V6Only  bool

	active libatm.Value[bool]
	conn   net.Conn
}

func NewStream(family protocol.NetworkProtocol, address string, port int) *Stream {
	return &Stream{Family: family, Address: address, Port: port, active: libatm.NewValue[bool]()}
}

func (s *Stream) SetConn(c net.Conn) { s.conn = c }

func (s *Stream) Conn() net.Conn { return s.conn }

func (s *Stream) SetActive(v bool) { s.active.Store(v) }

func (s *Stream) Active() bool { return s.active.Load() }
