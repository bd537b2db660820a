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
	"fmt"
	"strings"

	"gopkg.in/yaml.v3"
)

// unmarshall strips all leading and trailing single quotes, then all
// leading and trailing double quotes, and resolves what remains. Nested
// quoting (e.g. a JSON string whose value is itself single-quoted, "'tcp'")
// does not fully unwrap: the inner single quotes stay and the value
// resolves to NetworkEmpty.
func (p *NetworkProtocol) unmarshall(b []byte) error {
	s := strings.Trim(string(b), "'")
	s = strings.Trim(s, "\"")
	s = strings.ToLower(strings.TrimSpace(s))

	if v, ok := byName[s]; ok {
		*p = v
	} else {
		*p = NetworkEmpty
	}
	return nil
}

func (p NetworkProtocol) MarshalJSON() ([]byte, error) {
	return []byte("\"" + p.String() + "\""), nil
}

func (p *NetworkProtocol) UnmarshalJSON(b []byte) error {
	return p.unmarshall(b)
}

func (p NetworkProtocol) MarshalYAML() (interface{}, error) {
	return p.String(), nil
}

func (p *NetworkProtocol) UnmarshalYAML(value *yaml.Node) error {
	return p.unmarshall([]byte(value.Value))
}

func (p NetworkProtocol) MarshalTOML() ([]byte, error) {
	return []byte(p.String()), nil
}

func (p *NetworkProtocol) UnmarshalTOML(i interface{}) error {
	switch v := i.(type) {
	case []byte:
		return p.unmarshall(v)
	case string:
		return p.unmarshall([]byte(v))
	default:
		return fmt.Errorf("network protocol: value not in valid format")
	}
}

func (p NetworkProtocol) MarshalText() ([]byte, error) {
	return []byte(p.String()), nil
}

func (p *NetworkProtocol) UnmarshalText(b []byte) error {
	return p.unmarshall(b)
}

func (p NetworkProtocol) MarshalCBOR() ([]byte, error) {
	return []byte(p.String()), nil
}

func (p *NetworkProtocol) UnmarshalCBOR(b []byte) error {
	return p.unmarshall(b)
}
