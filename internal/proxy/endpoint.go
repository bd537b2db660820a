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
	"strconv"

	"github.com/sabouaram/pmproxy/pkg/network/protocol"
)

// Sentinel address values accepted in a BindAddress before expansion.
const (
	AddrAny      = "INADDR_ANY"
	AddrLoopback = "INADDR_LOOPBACK"
)

// BindAddress is one requested entry of the Endpoint Set's configuration,
// prior to expansion: a literal address, a sentinel, or empty (treated as
// AddrAny), paired with a port.
type BindAddress struct {
	Address string
	Port    int
}

// Endpoint is one concrete bind target produced by ResolveEndpoints.
type Endpoint struct {
	Family  protocol.NetworkProtocol
	Address string
	Port    int
	Path    string
}

func (e Endpoint) String() string {
	if e.Family == protocol.NetworkUnix || e.Family == protocol.NetworkUnixGram {
		return e.Path
	}
	return net.JoinHostPort(e.Address, strconv.Itoa(e.Port))
}

// ResolveEndpoints expands a list of BindAddress entries (plus an optional
// local socket path) into a concrete Endpoint Set, per the expansion
// rules: INADDR_ANY -> 0.0.0.0 (+ :: if ipv6Enabled), INADDR_LOOPBACK ->
// 127.0.0.1 (+ ::1 if ipv6Enabled), literal addresses kept as-is,
// unparseable addresses dropped.
func ResolveEndpoints(binds []BindAddress, ipv6Enabled bool, localPath string) []Endpoint {
	out := make([]Endpoint, 0, len(binds)+1)

	for _, b := range binds {
		switch b.Address {
		case "", AddrAny:
			out = append(out, Endpoint{Family: protocol.NetworkTCP4, Address: "0.0.0.0", Port: b.Port})
			if ipv6Enabled {
				out = append(out, Endpoint{Family: protocol.NetworkTCP6, Address: "::", Port: b.Port})
			}
		case AddrLoopback:
			out = append(out, Endpoint{Family: protocol.NetworkTCP4, Address: "127.0.0.1", Port: b.Port})
			if ipv6Enabled {
				out = append(out, Endpoint{Family: protocol.NetworkTCP6, Address: "::1", Port: b.Port})
			}
		default:
			ip := net.ParseIP(b.Address)
			if ip == nil {
				continue
			}
			if ip.To4() != nil {
				out = append(out, Endpoint{Family: protocol.NetworkTCP4, Address: b.Address, Port: b.Port})
			} else {
				out = append(out, Endpoint{Family: protocol.NetworkTCP6, Address: b.Address, Port: b.Port})
			}
		}
	}

	if localPath != "" {
		out = append(out, Endpoint{Family: protocol.NetworkUnix, Path: localPath})
	}

	return out
}
