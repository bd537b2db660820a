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
	"context"
	"net"
	"os"
	"os/signal"
	"sync"
	"syscall"

	"github.com/prometheus/client_golang/prometheus"
	"golang.org/x/sync/errgroup"

	"github.com/sabouaram/pmproxy/pkg/certificates"
	"github.com/sabouaram/pmproxy/pkg/file/perm"
	"github.com/sabouaram/pmproxy/pkg/logger"
	"github.com/sabouaram/pmproxy/pkg/monitor"
)

// Config is the set of values NewProxy needs to bring up the Endpoint Set,
// the TLS unwrap path (TLSConfig, ServerName), and the protocol modules;
// module-specific settings are carried on the Module values themselves.
type Config struct {
	Binds        []BindAddress
	IPv6Enabled  bool
	LocalPath    string
	LocalPerm    perm.Perm
	Backlog      int
	KeepaliveSec int
	WriteQueue   int

	TLSConfig  certificates.TLSConfig
	ServerName string

	// Registry is the prometheus.Registerer the client monitor's gauge and
	// counters are registered against; nil gets a private registry that
	// nothing outside the Proxy can scrape.
	Registry prometheus.Registerer

	PCP    Module
	HTTP   Module
	Redis  Module
	Secure Module
}

// Proxy is the accept-and-demultiplex core: it owns the Endpoint Set's
// Servers, the live-Client Registry, the Write Submitter, and the fixed
// set of protocol modules. One Proxy corresponds to one running daemon
// instance.
type Proxy struct {
	log          logger.FuncLog
	keepaliveSec int

	tlsConfig  certificates.TLSConfig
	serverName string

	registry  *Registry
	monitor   *monitor.ClientMonitor
	modules   modules
	submitter *Submitter

	servers []*Server

	ctx    context.Context
	cancel context.CancelFunc
	grp    *errgroup.Group

	shutdownOnce sync.Once
}

// NewProxy resolves cfg's Endpoint Set into bound Servers and wires the
// registry, monitor, and Write Submitter together. An endpoint that fails
// to bind is logged and skipped; NewProxy fails only when no endpoint is
// bound. It does not start accepting connections or run module Setup
// hooks; call Run for that.
func NewProxy(ctx context.Context, log logger.FuncLog, cfg Config) (*Proxy, error) {
	cctx, cancel := context.WithCancel(ctx)
	grp, gctx := errgroup.WithContext(cctx)

	clientMonitor, err := monitor.NewClientMonitor(cfg.Registry)
	if err != nil {
		cancel()
		return nil, ErrorMonitorRegister.Error(err)
	}

	p := &Proxy{
		log:          log,
		keepaliveSec: cfg.KeepaliveSec,
		tlsConfig:    cfg.TLSConfig,
		serverName:   cfg.ServerName,
		registry:     NewRegistry(),
		monitor:      clientMonitor,
		modules: modules{
			secure: cfg.Secure,
			redis:  cfg.Redis,
			http:   cfg.HTTP,
			pcp:    cfg.PCP,
		},
		ctx:    gctx,
		cancel: cancel,
		grp:    grp,
	}

	queueLen := cfg.WriteQueue
	if queueLen <= 0 {
		queueLen = 1024
	}
	p.submitter = NewSubmitter(gctx, queueLen)

	var bindErr error
	endpoints := ResolveEndpoints(cfg.Binds, cfg.IPv6Enabled, cfg.LocalPath)
	for _, ep := range endpoints {
		srv, err := NewServer(p, ep, cfg.Backlog, cfg.LocalPerm)
		if err != nil {
			if l := callLog(p.logFor("listener")); l != nil {
				l.Error("cannot bind %s: %v", ep.String(), err)
			}
			bindErr = err
			continue
		}
		p.servers = append(p.servers, srv)
	}

	if len(p.servers) == 0 {
		cancel()
		return nil, ErrorEndpointBind.Error(bindErr)
	}

	return p, nil
}

// callLog resolves a FuncLog that may itself be nil (no logger configured),
// so call sites never need a second nil-check before invoking it.
func callLog(f logger.FuncLog) logger.Logger {
	if f == nil {
		return nil
	}
	return f()
}

func (p *Proxy) logFor(component string) logger.FuncLog {
	if p.log == nil {
		return nil
	}
	base := p.log
	return func() logger.Logger {
		l := base()
		if l == nil {
			return nil
		}
		c := l.Clone()
		c.SetFields(logger.Fields{"component": component})
		return c
	}
}

// Submitter exposes the Write Submitter for protocol modules (client_write).
func (p *Proxy) Submitter() *Submitter { return p.submitter }

// Registry exposes the live-Client registry for reporting/shutdown.
func (p *Proxy) Registry() *Registry { return p.registry }

// Monitor exposes the Prometheus client counters.
func (p *Proxy) Monitor() *monitor.ClientMonitor { return p.monitor }

// Addrs returns the bound address of every Server in the Endpoint Set, in
// the order they were resolved; useful for reporting and for tests that
// bind an ephemeral port (port 0) and need to dial it back.
func (p *Proxy) Addrs() []net.Addr {
	out := make([]net.Addr, 0, len(p.servers))
	for _, s := range p.servers {
		if s.listener != nil {
			out = append(out, s.listener.Addr())
		}
	}
	return out
}

// Run starts every Server's accept loop under the supervised errgroup,
// runs each protocol module's Setup hook exactly once (fixed order:
// secure, redis, http, pcp), starts the Write Submitter's drain loop, and
// installs the signal supervisor. It blocks until the context is
// canceled or a Server's accept loop fails, then performs an orderly
// Shutdown.
func (p *Proxy) Run() error {
	if err := p.modules.setupAll(p); err != nil {
		p.cancel()
		return err
	}

	p.submitter.Run()

	for _, srv := range p.servers {
		srv := srv
		p.grp.Go(func() error {
			return srv.Serve()
		})
	}

	stop := p.superviseSignals()
	defer stop()

	<-p.ctx.Done()
	_ = p.Shutdown()

	return p.grp.Wait()
}

// superviseSignals implements the signal contract: SIGINT/SIGTERM
// trigger a graceful stop (canceling the run context, logged once);
// SIGHUP is observed and logged but otherwise ignored (no config reload
// in this module); SIGPIPE is ignored process-wide so a write to an
// already-closed peer surfaces as an error return, never a crash.
func (p *Proxy) superviseSignals() func() {
	signal.Ignore(syscall.SIGPIPE)

	ch := make(chan os.Signal, 4)
	signal.Notify(ch, syscall.SIGINT, syscall.SIGTERM, syscall.SIGHUP)

	done := make(chan struct{})
	go func() {
		for {
			select {
			case sig := <-ch:
				switch sig {
				case syscall.SIGHUP:
					if l := callLog(p.logFor("signal")); l != nil {
						l.Warning("received SIGHUP, no reload configured")
					}
				default:
					if l := callLog(p.logFor("signal")); l != nil {
						l.Info("received %s, shutting down", sig.String())
					}
					p.cancel()
					return
				}
			case <-done:
				return
			case <-p.ctx.Done():
				return
			}
		}
	}()

	return func() {
		close(done)
		signal.Stop(ch)
	}
}

// Shutdown stops accepting new connections on every Server exactly once
// (the original daemon's shutdown_ports double-incremented its loop
// index, skipping every other Server; each Server here is visited once),
// closes every live Client, and waits for the Write Submitter to drain.
func (p *Proxy) Shutdown() error {
	var err error
	p.shutdownOnce.Do(func() {
		p.cancel()
		err = p.closeServers()

		p.registry.Walk(func(c *Client) bool {
			c.Close()
			return true
		})

		_ = p.modules.closeAll(p)
		_ = p.submitter.Wait()
	})
	return err
}

func (p *Proxy) closeServers() error {
	var first error
	for i := range p.servers {
		if e := p.servers[i].Shutdown(); e != nil && first == nil {
			first = e
		}
	}
	return first
}

// dispatch is the read demultiplexer: classify the first
// byte of a fresh Client, forward to the TLS unwrap path once the Secure
// bit is latched (re-entering dispatch on every resulting plaintext
// chunk), otherwise forward to the protocol module matching the latched
// tag. A Client that cannot be classified, or whose tag has no
// registered module, is closed.
func (p *Proxy) dispatch(c *Client, buf []byte) {
	p.dispatchCore(c, buf, false)
}

func (p *Proxy) dispatchCore(c *Client, buf []byte, fromSecure bool) {
	if len(buf) == 0 || !c.Opened() {
		return
	}

	tag, secure := c.Mask()

	if !fromSecure && secure {
		p.unwrap(c, buf)
		return
	}

	if tag == Unknown {
		ctag, csecure := Classify(buf[0])
		switch {
		case !fromSecure && csecure:
			c.SetSecure()
			p.unwrap(c, buf)
			return
		case ctag != Unknown:
			c.SetProtocol(ctag)
			tag = ctag
		default:
			c.Close()
			return
		}
	}

	mod := p.modules.byTag(tag)
	if mod == nil {
		c.Close()
		return
	}
	mod.OnClientRead(p, c, buf)
}

// unwrap lazily attaches a TLSSession to c on the first ciphertext it
// sees, feeds ciphertext through it, and re-enters dispatchCore on every
// decrypted plaintext chunk so the classifier and protocol modules see
// plaintext exactly as if TLS were never in the path.
func (p *Proxy) unwrap(c *Client, ciphertext []byte) {
	if c.secure == nil {
		if p.tlsConfig == nil {
			c.Close()
			return
		}
		sess := NewTLSSession(p.tlsConfig, p.serverName, func(b []byte) {
			p.submitter.submitCiphertext(c, b)
		})
		c.AttachSecure(sess)
	}

	chunks, err := c.secure.Unwrap(ciphertext)
	if err != nil {
		c.Close()
		return
	}

	for _, pt := range chunks {
		p.dispatchCore(c, pt, true)
	}
}
