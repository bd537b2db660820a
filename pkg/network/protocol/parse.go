/*
 * MIT License
 *
 * Copyright (c) 2022 Nicolas JUHEL
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

package protocol

import (
	"math"
	"strings"
)

func trim(s string) string {
	s = strings.TrimSpace(s)
	s = strings.Trim(s, "\"'`")
	return s
}

// Parse resolves a case-insensitive, whitespace/quote-tolerant protocol
// name to a NetworkProtocol, returning NetworkEmpty when unrecognized.
func Parse(s string) NetworkProtocol {
	s = strings.ToLower(trim(s))
	if p, k := byName[s]; k {
		return p
	}
	return NetworkEmpty
}

// ParseBytes is Parse over a byte slice.
func ParseBytes(b []byte) NetworkProtocol {
	if len(b) == 0 {
		return NetworkEmpty
	}
	return Parse(string(b))
}

// ParseInt64 resolves the numeric encoding of a NetworkProtocol, returning
// NetworkEmpty for anything outside the valid [1, NetworkUnixGram] range.
func ParseInt64(v int64) NetworkProtocol {
	if v <= 0 || v > math.MaxUint8 {
		return NetworkEmpty
	}

	p := NetworkProtocol(uint8(v))
	if _, k := names[p]; !k {
		return NetworkEmpty
	}
	return p
}
