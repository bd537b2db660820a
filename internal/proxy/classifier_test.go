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
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/sabouaram/pmproxy/internal/proxy"
)

var _ = Describe("Classify", func() {
	DescribeTable("plaintext protocol bytes",
		func(b byte, tag proxy.ProtocolTag) {
			gotTag, secure := proxy.Classify(b)
			Expect(gotTag).To(Equal(tag))
			Expect(secure).To(BeFalse())
		},
		Entry("PCP handshake byte", byte('p'), proxy.PCP),
		Entry("RESP simple string", byte('+'), proxy.Redis),
		Entry("RESP error", byte('-'), proxy.Redis),
		Entry("RESP integer", byte(':'), proxy.Redis),
		Entry("RESP bulk string", byte('$'), proxy.Redis),
		Entry("RESP array", byte('*'), proxy.Redis),
		Entry("HTTP GET", byte('G'), proxy.HTTP),
		Entry("HTTP HEAD", byte('H'), proxy.HTTP),
		Entry("HTTP POST/PUT/PATCH", byte('P'), proxy.HTTP),
		Entry("HTTP DELETE", byte('D'), proxy.HTTP),
		Entry("HTTP TRACE", byte('T'), proxy.HTTP),
		Entry("HTTP OPTIONS", byte('O'), proxy.HTTP),
		Entry("HTTP CONNECT", byte('C'), proxy.HTTP),
	)

	DescribeTable("TLS record bytes are secure and unknown",
		func(b byte) {
			tag, secure := proxy.Classify(b)
			Expect(tag).To(Equal(proxy.Unknown))
			Expect(secure).To(BeTrue())
		},
		Entry("ChangeCipherSpec", byte(0x14)),
		Entry("Alert", byte(0x15)),
		Entry("Handshake", byte(0x16)),
		Entry("ApplicationData", byte(0x17)),
		Entry("Heartbeat", byte(0x18)),
	)

	It("classifies any other byte as unknown and not secure", func() {
		tag, secure := proxy.Classify(0x00)
		Expect(tag).To(Equal(proxy.Unknown))
		Expect(secure).To(BeFalse())
	})

	It("is deterministic across repeated calls", func() {
		for _, b := range []byte{'p', '*', 'G', 0x16, 0xFF} {
			tag1, secure1 := proxy.Classify(b)
			tag2, secure2 := proxy.Classify(b)
			Expect(tag1).To(Equal(tag2))
			Expect(secure1).To(Equal(secure2))
		}
	})
})
