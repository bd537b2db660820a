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

// Command pmproxy is the packaging CLI: it loads configuration, wires the
// protocol modules, and runs the proxy core until a shutdown signal
// arrives.
package main

import (
	"context"
	"fmt"
	"net/http"
	"os"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/spf13/cobra"

	"github.com/sabouaram/pmproxy/internal/proxy"
	"github.com/sabouaram/pmproxy/pkg/config"
	"github.com/sabouaram/pmproxy/pkg/logger"
)

func main() {
	os.Exit(run())
}

func run() int {
	var (
		configPath  string
		metricsAddr string
		logLevel    string
	)

	root := &cobra.Command{
		Use:   "pmproxy",
		Short: "Accept-and-demultiplex proxy daemon",
		RunE: func(cmd *cobra.Command, args []string) error {
			return serve(configPath, metricsAddr, logLevel)
		},
	}

	root.Flags().StringVarP(&configPath, "config", "c", "", "path to the pmproxy configuration file (yaml, json, or toml)")
	root.Flags().StringVar(&metricsAddr, "metrics-addr", "", "address to serve Prometheus metrics on (empty disables)")
	root.Flags().StringVar(&logLevel, "log-level", "info", "log level: debug or info")

	if err := root.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		return 1
	}
	return exitCode
}

// exitCode is set by serve before it returns, since cobra's RunE only
// propagates an error, not a code: the run distinguishes "failed to
// bind" from "failed during the run" only by message, both are non-zero.
var exitCode int

func serve(configPath, metricsAddr, logLevel string) error {
	lg := logger.New(os.Stderr)
	lg.SetLevel(parseLevel(logLevel))
	log := func() logger.Logger { return lg }

	loader, err := config.NewLoader(configPath)
	if err != nil {
		exitCode = 1
		return fmt.Errorf("loading config: %w", err)
	}

	cfg, err := loader.Decode()
	if err != nil {
		exitCode = 1
		return fmt.Errorf("decoding config: %w", err)
	}

	pcfg, err := buildProxyConfig(cfg)
	if err != nil {
		exitCode = 1
		return fmt.Errorf("building proxy config: %w", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	p, err := proxy.NewProxy(ctx, log, pcfg)
	if err != nil {
		exitCode = 1
		return fmt.Errorf("binding endpoint set: %w", err)
	}

	stopWatch, err := loader.Watch(func() {
		lg.Warning("config file changed on disk, reload not implemented, restart to apply")
	})
	if err != nil {
		lg.Warning("could not watch config file: %v", err)
	} else {
		defer stopWatch()
	}

	var metricsSrv *http.Server
	if metricsAddr != "" {
		reg, _ := pcfg.Registry.(*prometheus.Registry)
		if reg == nil {
			reg = prometheus.NewRegistry()
		}
		mux := http.NewServeMux()
		mux.Handle("/metrics", promhttp.HandlerFor(reg, promhttp.HandlerOpts{}))
		metricsSrv = &http.Server{Addr: metricsAddr, Handler: mux}
		go func() {
			if err := metricsSrv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
				lg.Error("metrics server stopped: %v", err)
			}
		}()
		defer metricsSrv.Close()
	}

	if err := p.Run(); err != nil {
		exitCode = 1
		return fmt.Errorf("running proxy: %w", err)
	}

	exitCode = 0
	return nil
}

// buildProxyConfig maps the decoded file config onto proxy.Config,
// registering an EchoModule against every protocol tag: real PCP/HTTP/
// RESP parsing is an external collaborator this binary does not
// implement, so EchoModule is the default stand-in that keeps the daemon
// runnable out of the box.
func buildProxyConfig(cfg *config.Config) (proxy.Config, error) {
	binds := make([]proxy.BindAddress, 0, len(cfg.Binds))
	for _, b := range cfg.Binds {
		binds = append(binds, proxy.BindAddress{Address: b.Address, Port: b.Port})
	}

	pcfg := proxy.Config{
		Binds:        binds,
		IPv6Enabled:  cfg.IPv6Enabled,
		LocalPath:    cfg.Local.Path,
		LocalPerm:    cfg.Local.Perm,
		Backlog:      cfg.Backlog,
		KeepaliveSec: int(cfg.Keepalive.Time().Seconds()),
		WriteQueue:   cfg.WriteQueue,
		ServerName:   cfg.ServerName,
		Registry:     prometheus.NewRegistry(),
		PCP:          proxy.NewEchoModule(proxy.PCP),
		HTTP:         proxy.NewEchoModule(proxy.HTTP),
		Redis:        proxy.NewEchoModule(proxy.Redis),
	}

	if cfg.TLS != nil {
		pcfg.TLSConfig = cfg.TLS.New()
	}

	return pcfg, nil
}

func parseLevel(s string) logger.Level {
	if s == "debug" {
		return logger.DebugLevel
	}
	return logger.InfoLevel
}
