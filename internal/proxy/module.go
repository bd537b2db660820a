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

// Module is the protocol module contract: one object per
// plaintext protocol (pcp, http, redis) plus the secure module. Setup
// runs once after the loop starts; OnClientRead receives each classified
// inbound buffer; OnClientClose runs exactly once per Client whose mask
// contained this module's bit at destruction; Close releases module-wide
// resources at shutdown.
type Module interface {
	Tag() ProtocolTag
	Setup(p *Proxy) error
	OnClientRead(p *Proxy, c *Client, buf []byte)
	OnClientClose(c *Client)
	Close(p *Proxy) error
}

// modules holds the fixed set of registered protocol modules and runs
// their Setup hooks in a fixed order (secure, redis, http, pcp) so that
// lower layers exist before higher layers that may be stacked on them.
type modules struct {
	secure Module
	redis  Module
	http   Module
	pcp    Module
}

func (m *modules) ordered() []Module {
	out := make([]Module, 0, 4)
	for _, mod := range []Module{m.secure, m.redis, m.http, m.pcp} {
		if mod != nil {
			out = append(out, mod)
		}
	}
	return out
}

func (m *modules) setupAll(p *Proxy) error {
	for _, mod := range m.ordered() {
		if err := mod.Setup(p); err != nil {
			return err
		}
	}
	return nil
}

func (m *modules) closeAll(p *Proxy) error {
	var first error
	for _, mod := range m.ordered() {
		if err := mod.Close(p); err != nil && first == nil {
			first = err
		}
	}
	return first
}

func (m *modules) byTag(tag ProtocolTag) Module {
	switch tag {
	case PCP:
		return m.pcp
	case HTTP:
		return m.http
	case Redis:
		return m.redis
	default:
		return nil
	}
}

// notifyClose fans out OnClientClose to every module whose bit was set in
// c's mask at destruction: the matching plaintext module (if any) and the
// secure module if the Secure bit was latched.
func (m *modules) notifyClose(c *Client) {
	tag, secure := c.Mask()

	if mod := m.byTag(tag); mod != nil {
		mod.OnClientClose(c)
	}
	if secure && m.secure != nil {
		m.secure.OnClientClose(c)
	}
}
