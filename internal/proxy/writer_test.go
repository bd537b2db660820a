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
	"context"
	"net"
	"time"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/sabouaram/pmproxy/internal/proxy"
	"github.com/sabouaram/pmproxy/pkg/network/protocol"
)

var _ = Describe("Submitter", func() {
	var (
		ctx    context.Context
		cancel context.CancelFunc
		sub    *proxy.Submitter
		client *proxy.Client
		peer   net.Conn
		remote net.Conn
	)

	BeforeEach(func() {
		ctx, cancel = context.WithCancel(context.Background())
		sub = proxy.NewSubmitter(ctx, 16)
		sub.Run()

		remote, peer = net.Pipe()
		s := proxy.NewStream(protocol.NetworkTCP4, "127.0.0.1", 9001)
		s.SetConn(peer)
		client = proxy.NewClient(nil, s, nil)
	})

	AfterEach(func() {
		cancel()
		_ = sub.Wait()
		_ = remote.Close()
	})

	It("delivers primary and suffix to the Client's stream in order", func() {
		done := make(chan []byte, 1)
		go func() {
			buf := make([]byte, 64)
			total := 0
			for total < 5 {
				n, err := remote.Read(buf[total:])
				if err != nil {
					break
				}
				total += n
			}
			out := make([]byte, total)
			copy(out, buf[:total])
			done <- out
		}()

		sub.Submit(client, []byte("abc"), []byte("de"))

		Eventually(done, time.Second).Should(Receive(Equal([]byte("abcde"))))
	})

	It("discards a submission to an already-closed Client", func() {
		client.Close()
		sub.Submit(client, []byte("dropped"), nil)

		_ = remote.SetReadDeadline(time.Now().Add(100 * time.Millisecond))
		buf := make([]byte, 16)
		_, err := remote.Read(buf)
		Expect(err).To(HaveOccurred())
	})

	It("closes the Client when the underlying write fails", func() {
		_ = remote.Close()
		sub.Submit(client, []byte("x"), nil)

		Eventually(client.Opened, time.Second).Should(BeFalse())
	})
})

var _ = Describe("Submitter Wait", func() {
	It("returns once the drain goroutine has stopped", func() {
		ctx, cancel := context.WithCancel(context.Background())
		sub := proxy.NewSubmitter(ctx, 4)
		sub.Run()
		cancel()

		errCh := make(chan error, 1)
		go func() { errCh <- sub.Wait() }()

		Eventually(errCh, time.Second).Should(Receive(BeNil()))
	})
})
