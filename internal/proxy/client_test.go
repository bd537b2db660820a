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

package proxy_test

import (
	"net"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/sabouaram/pmproxy/internal/proxy"
	"github.com/sabouaram/pmproxy/pkg/network/protocol"
)

var _ = Describe("Client", func() {
	var (
		stream *proxy.Stream
		client *proxy.Client
		server net.Conn
	)

	BeforeEach(func() {
		var peer net.Conn
		server, peer = net.Pipe()
		stream = proxy.NewStream(protocol.NetworkTCP4, "127.0.0.1", 9000)
		stream.SetConn(peer)
		client = proxy.NewClient(nil, stream, nil)
	})

	AfterEach(func() {
		_ = server.Close()
	})

	It("starts opened with an Unknown, non-secure mask", func() {
		Expect(client.Opened()).To(BeTrue())
		tag, secure := client.Mask()
		Expect(tag).To(Equal(proxy.Unknown))
		Expect(secure).To(BeFalse())
	})

	It("latches the protocol tag once and ignores later calls", func() {
		client.SetProtocol(proxy.HTTP)
		client.SetProtocol(proxy.Redis)
		tag, _ := client.Mask()
		Expect(tag).To(Equal(proxy.HTTP))
	})

	It("latches the secure bit independently of the protocol tag", func() {
		client.SetProtocol(proxy.PCP)
		client.SetSecure()
		tag, secure := client.Mask()
		Expect(tag).To(Equal(proxy.PCP))
		Expect(secure).To(BeTrue())
	})

	It("closes idempotently", func() {
		client.Get()
		client.Close()
		Expect(client.Opened()).To(BeFalse())
		client.Close()
		Expect(client.Opened()).To(BeFalse())
		client.Put()
	})

	It("stays closed while a Get is outstanding and accepts the matching Put", func() {
		client.Get()
		client.Close()
		Expect(client.Opened()).To(BeFalse())
		client.Put()
	})
})
