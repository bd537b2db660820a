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

// Package proxy implements the accept-and-demultiplex core: endpoint
// resolution, listener bring-up, client lifecycle/refcounting, first-byte
// protocol classification, the read demultiplexer and its TLS unwrap, and
// the cross-thread write submission path.
package proxy

// ProtocolTag is the plaintext protocol latched onto a Client. At most one
// of Redis/HTTP/PCP is ever latched; Unknown means no classifiable byte has
// been seen yet.
type ProtocolTag uint8

const (
	Unknown ProtocolTag = iota
	PCP
	HTTP
	Redis
)

func (t ProtocolTag) String() string {
	switch t {
	case PCP:
		return "pcp"
	case HTTP:
		return "http"
	case Redis:
		return "redis"
	default:
		return "unknown"
	}
}

// tlsRecordLow and tlsRecordHigh bound the inclusive range of first bytes
// that identify a TLS record (ChangeCipherSpec=0x14 .. Heartbeat=0x18).
const (
	tlsRecordLow  = 0x14
	tlsRecordHigh = 0x18
)

// Classify is the protocol classifier: a pure, total, deterministic
// function of the first byte of a Client's inbound stream. It never
// requires more than one byte, and repeated calls on the same byte always
// return the same tag.
func Classify(b byte) (tag ProtocolTag, secure bool) {
	switch b {
	case 'p':
		return PCP, false
	case '-', '+', ':', '$', '*':
		return Redis, false
	case 'G', 'H', 'P', 'D', 'T', 'O', 'C':
		return HTTP, false
	}

	if b >= tlsRecordLow && b <= tlsRecordHigh {
		return Unknown, true
	}

	return Unknown, false
}
