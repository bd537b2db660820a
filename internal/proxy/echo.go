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

// EchoModule is a minimal stand-in protocol module: it writes every
// inbound buffer straight back to its Client through the Write Submitter.
// Full PCP/HTTP/RESP parsing is an external collaborator;
// EchoModule exists only so the core can be wired up and exercised
// end-to-end (and in tests) without a real protocol engine plugged in.
type EchoModule struct {
	tag ProtocolTag
}

func NewEchoModule(tag ProtocolTag) *EchoModule {
	return &EchoModule{tag: tag}
}

func (m *EchoModule) Tag() ProtocolTag { return m.tag }

func (m *EchoModule) Setup(p *Proxy) error { return nil }

func (m *EchoModule) OnClientRead(p *Proxy, c *Client, buf []byte) {
	cp := make([]byte, len(buf))
	copy(cp, buf)
	p.Submitter().Submit(c, cp, nil)
}

func (m *EchoModule) OnClientClose(c *Client) {}

func (m *EchoModule) Close(p *Proxy) error { return nil }
