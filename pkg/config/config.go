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

// Package config loads the pmproxy section of a configuration file with
// spf13/viper, decodes it into typed Go structs with go-viper/mapstructure
// decode hooks contributed by the domain packages (pkg/network/protocol,
// pkg/file/perm), and watches the file for changes via fsnotify so a
// future reload hook has somewhere to attach.
package config

import (
	"fmt"

	"github.com/fsnotify/fsnotify"
	libmap "github.com/go-viper/mapstructure/v2"
	"github.com/spf13/viper"

	"github.com/sabouaram/pmproxy/pkg/certificates"
	"github.com/sabouaram/pmproxy/pkg/duration"
	"github.com/sabouaram/pmproxy/pkg/file/perm"
	"github.com/sabouaram/pmproxy/pkg/network/protocol"
)

// Bind is one configured listener address, decoded from an address/port
// map entry under pmproxy.binds.
type Bind struct {
	Address string `mapstructure:"address" json:"address" yaml:"address" toml:"address"`
	Port    int    `mapstructure:"port" json:"port" yaml:"port" toml:"port"`
}

// Local is the LOCAL (unix socket) endpoint's configuration.
type Local struct {
	Path string    `mapstructure:"path" json:"path" yaml:"path" toml:"path"`
	Perm perm.Perm `mapstructure:"perm" json:"perm" yaml:"perm" toml:"perm"`
}

// Config is the pmproxy section of the configuration file.
type Config struct {
	Binds       []Bind             `mapstructure:"binds" json:"binds" yaml:"binds" toml:"binds"`
	IPv6Enabled bool               `mapstructure:"ipv6_enabled" json:"ipv6_enabled" yaml:"ipv6_enabled" toml:"ipv6_enabled"`
	Local       Local              `mapstructure:"local" json:"local" yaml:"local" toml:"local"`
	Backlog     int                `mapstructure:"backlog" json:"backlog" yaml:"backlog" toml:"backlog"`
	Keepalive   duration.Duration  `mapstructure:"keepalive" json:"keepalive" yaml:"keepalive" toml:"keepalive"`
	WriteQueue  int                `mapstructure:"write_queue" json:"write_queue" yaml:"write_queue" toml:"write_queue"`
	ServerName  string             `mapstructure:"server_name" json:"server_name" yaml:"server_name" toml:"server_name"`
	TLS         *certificates.Config `mapstructure:"tls" json:"tls" yaml:"tls" toml:"tls"`
}

// Loader wraps a viper instance scoped to the "pmproxy" key, re-decoding
// Config on demand and notifying a callback whenever the underlying file
// changes on disk.
type Loader struct {
	v *viper.Viper
}

// NewLoader reads path (any format viper supports: yaml, json, toml) and
// returns a ready Loader. An empty path falls back to the process
// environment only (PMPROXY_*).
func NewLoader(path string) (*Loader, error) {
	v := viper.New()
	v.SetEnvPrefix("pmproxy")
	v.AutomaticEnv()

	v.SetDefault("pmproxy.ipv6_enabled", true)
	v.SetDefault("pmproxy.backlog", 128)
	v.SetDefault("pmproxy.write_queue", 1024)

	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("config: reading %s: %w", path, err)
		}
	}

	return &Loader{v: v}, nil
}

// Decode unmarshals the "pmproxy" section into a Config. It runs
// go-viper/mapstructure/v2 directly against viper's raw settings map
// (rather than spf13/viper's own Unmarshal, which expects the older
// mitchellh/mapstructure hook signature) so the decode hooks contributed
// by pkg/network/protocol and pkg/file/perm apply, letting Bind/Local
// fields accept either their string or numeric wire forms.
func (l *Loader) Decode() (*Config, error) {
	raw := l.v.Sub("pmproxy")
	if raw == nil {
		return &Config{}, nil
	}

	var cfg Config
	dec, err := libmap.NewDecoder(&libmap.DecoderConfig{
		DecodeHook: libmap.ComposeDecodeHookFunc(
			protocol.ViperDecoderHook(),
			perm.ViperDecoderHook(),
			libmap.TextUnmarshallerHookFunc(),
		),
		WeaklyTypedInput: true,
		Result:           &cfg,
		TagName:          "mapstructure",
	})
	if err != nil {
		return nil, fmt.Errorf("config: building decoder: %w", err)
	}

	if err := dec.Decode(raw.AllSettings()); err != nil {
		return nil, fmt.Errorf("config: decoding pmproxy section: %w", err)
	}

	return &cfg, nil
}

// Watch installs an fsnotify watcher on the loaded config file and calls
// onChange every time it is written. The returned function stops the
// watch; reload logic itself is out of scope (see Non-goals) so onChange
// is only ever invoked, never acted on internally.
func (l *Loader) Watch(onChange func()) (func() error, error) {
	file := l.v.ConfigFileUsed()
	if file == "" {
		return func() error { return nil }, nil
	}

	w, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}
	if err := w.Add(file); err != nil {
		_ = w.Close()
		return nil, err
	}

	go func() {
		for {
			select {
			case ev, ok := <-w.Events:
				if !ok {
					return
				}
				if ev.Op&(fsnotify.Write|fsnotify.Create) != 0 && onChange != nil {
					onChange()
				}
			case _, ok := <-w.Errors:
				if !ok {
					return
				}
			}
		}
	}()

	return w.Close, nil
}
