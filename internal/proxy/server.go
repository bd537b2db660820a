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
	"errors"
	"net"
	"os"
	"strconv"
	"syscall"
	"time"

	"golang.org/x/sys/unix"

	"github.com/sabouaram/pmproxy/pkg/file/perm"
	"github.com/sabouaram/pmproxy/pkg/network/protocol"
)

// ReadBufferSize is the suggested size handed to the buffer allocator for
// each read.
const ReadBufferSize = 32 * 1024

// Server is one listening endpoint, owned exclusively by the Proxy.
type Server struct {
	Stream *Stream

	listener net.Listener
	presence Presence

	proxy *Proxy
}

// NewServer binds and listens on ep. For TCP endpoints the handle is
// created with TCP_NODELAY and keepalive per keepaliveSec (0 disables);
// IPv6 endpoints are bound v6-only so the IPv4 companion can bind
// separately. For LOCAL endpoints the socket is bound at ep.Path and, via
// unix.Fchmod on the bound file descriptor, made world-readable per
// permMode (avoiding the TOCTOU window of a separate os.Chmod call).
func NewServer(p *Proxy, ep Endpoint, backlog int, permMode perm.Perm) (*Server, error) {
	s := &Server{
		proxy:  p,
		Stream: NewStream(ep.Family, ep.Address, ep.Port),
	}

	var (
		ln  net.Listener
		err error
	)

	lc := net.ListenConfig{}
	if backlog <= 0 {
		backlog = 128
	}

	switch ep.Family {
	case protocol.NetworkUnix, protocol.NetworkUnixGram:
		_ = os.Remove(ep.Path)
		lc.Control = controlBacklog(backlog)
		ln, err = lc.Listen(nil, "unix", ep.Path)
		if err == nil {
			mode := permMode
			if mode == 0 {
				mode = perm.Perm(0644)
			}
			if ul, ok := ln.(*net.UnixListener); ok {
				err = chmodListener(ul, mode.FileMode())
			}
		}
	case protocol.NetworkTCP6:
		s.Stream.V6Only = true
		lc.Control = controlV6OnlyAndBacklog(backlog)
		ln, err = lc.Listen(nil, "tcp6", net.JoinHostPort(ep.Address, strconv.Itoa(ep.Port)))
	default:
		lc.Control = controlBacklog(backlog)
		ln, err = lc.Listen(nil, "tcp4", net.JoinHostPort(ep.Address, strconv.Itoa(ep.Port)))
	}

	if err != nil {
		return nil, err
	}

	s.listener = ln
	s.Stream.SetActive(true)
	s.presence = NewLoggingPresence(p.logFor("presence"))

	if ep.Port != 0 {
		_ = s.presence.Announce(ep.Port)
	}

	return s, nil
}

// chmodListener sets mode on ul's bound socket via unix.Fchmod on the raw
// file descriptor, so the permission change lands before any other
// process can observe the path, unlike a subsequent os.Chmod.
func chmodListener(ul *net.UnixListener, mode os.FileMode) error {
	sc, err := ul.SyscallConn()
	if err != nil {
		return err
	}

	var chmodErr error
	ctrlErr := sc.Control(func(fd uintptr) {
		chmodErr = unix.Fchmod(int(fd), uint32(mode))
	})
	if ctrlErr != nil {
		return ctrlErr
	}
	return chmodErr
}

// controlV6OnlyAndBacklog forces IPV6_V6ONLY on the listening socket (so
// the IPv4 companion endpoint can bind its own port separately) and
// raises SO_REUSEADDR for fast restart, via the one socket option Go's
// net package does not expose directly in a portable way. The backlog
// argument is not applied: the listen queue length is the one the net
// package picks, not the configured value.
func controlV6OnlyAndBacklog(backlog int) func(string, string, syscall.RawConn) error {
	return func(_, _ string, c syscall.RawConn) error {
		var sockErr error
		ctrlErr := c.Control(func(fd uintptr) {
			sockErr = unix.SetsockoptInt(int(fd), unix.IPPROTO_IPV6, unix.IPV6_V6ONLY, 1)
			if sockErr == nil {
				sockErr = unix.SetsockoptInt(int(fd), unix.SOL_SOCKET, unix.SO_REUSEADDR, 1)
			}
		})
		if ctrlErr != nil {
			return ctrlErr
		}
		return sockErr
	}
}

// controlBacklog raises SO_REUSEADDR on the listening socket. The backlog
// argument is not applied: the listen queue length is the one the net
// package picks, not the configured value.
func controlBacklog(backlog int) func(string, string, syscall.RawConn) error {
	return func(_, _ string, c syscall.RawConn) error {
		var sockErr error
		ctrlErr := c.Control(func(fd uintptr) {
			sockErr = unix.SetsockoptInt(int(fd), unix.SOL_SOCKET, unix.SO_REUSEADDR, 1)
		})
		if ctrlErr != nil {
			return ctrlErr
		}
		return sockErr
	}
}

// Serve runs the accept loop until the listener is closed. Each accepted
// connection becomes a Client per the Listener contract:
// allocate with refcount=1/opened=1, insert into the Registry, start
// reads with the buffer allocator and read callback.
func (s *Server) Serve() error {
	for {
		conn, err := s.listener.Accept()
		if err != nil {
			if errors.Is(err, net.ErrClosed) {
				return nil
			}
			return err
		}

		if tc, ok := conn.(*net.TCPConn); ok {
			_ = tc.SetNoDelay(true)
			if s.proxy.keepaliveSec > 0 {
				_ = tc.SetKeepAlive(true)
				_ = tc.SetKeepAlivePeriod(time.Duration(s.proxy.keepaliveSec) * time.Second)
			} else {
				_ = tc.SetKeepAlive(false)
			}
		}

		stream := NewStream(s.Stream.Family, s.Stream.Address, s.Stream.Port)
		stream.SetConn(conn)
		stream.SetActive(true)

		client := NewClient(s.proxy, stream, s.proxy.logFor("client"))
		s.proxy.registry.Insert(client)
		if s.proxy.monitor != nil {
			s.proxy.monitor.Accepted()
		}

		go s.readLoop(client)
	}
}

// readLoop is the per-Client read side of the buffer allocator and read
// demultiplexer; each Client gets its own goroutine (the
// Go-native stand-in for the original's single loop-thread, non-blocking
// reads); shared Proxy state is only ever touched through Get/Put and the
// Registry, never by reaching into another Client.
func (s *Server) readLoop(c *Client) {
	buf := make([]byte, ReadBufferSize)

	for {
		if !c.Opened() {
			return
		}

		n, err := c.Stream.Conn().Read(buf)
		if n > 0 {
			s.proxy.dispatch(c, buf[:n])
		}
		if err != nil {
			c.Close()
			return
		}
	}
}

func (s *Server) Shutdown() error {
	s.Stream.SetActive(false)
	if s.presence != nil {
		_ = s.presence.Withdraw(s.Stream.Port)
	}
	if s.listener == nil {
		return nil
	}
	return s.listener.Close()
}
