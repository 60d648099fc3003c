// PowerSNMPv3 - SNMP library for Go
// Автор: Волков Олег, ООО "Пауэр Си"
// Author: Volkov Oleg, PowerC LLC
// License: MIT (commercial version with support available)
// Лицензия: MIT (доступна коммерческая версия с поддержкой)
package main

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	snmp "github.com/OlegPowerC/powersnmpwalk"
)

var metricsAddr string

func init() {
	collectCmd.Flags().StringVar(&metricsAddr, "metrics-addr", "", "serve Prometheus metrics on this address and keep running until interrupted")
}

var collectCmd = &cobra.Command{
	Use:   "collect",
	Short: "Walk every target of the config file",
	Long: `Walk the roots of every target listed in the config file, several
agents at a time (walk.concurrency).

Example config:
  defaults:
    community: public
    timeout: 500ms
  walk:
    bulk: true
    concurrency: 16
  targets:
    - name: core-sw1
      address: 10.0.0.1
      roots: [.1.3.6.1.2.1.2.2.1.2, .1.3.6.1.2.1.2.2.1.10]`,
	Args: cobra.NoArgs,
	RunE: runCollect,
}

func runCollect(cmd *cobra.Command, _ []string) error {
	a, err := setup(cmd)
	if err != nil {
		return err
	}
	defer a.close()

	targets, err := a.cfg.CollectTargets()
	if err != nil {
		return err
	}
	if len(targets) == 0 {
		return errors.New("no targets configured")
	}

	addr := a.cfg.Metrics.Addr
	if cmd.Flags().Changed("metrics-addr") {
		addr = metricsAddr
	}
	var srv *http.Server
	if addr != "" {
		srv = a.serveMetrics(addr)
		defer func() {
			ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			_ = srv.Shutdown(ctx)
		}()
	}

	opts := append(a.cfg.Walk.Options(), snmp.WithLogger(a.log), snmp.WithMetrics(a.metrics))
	results, err := snmp.NewCollector(a.strategy, opts...).Collect(cmd.Context(), targets)

	out := cmd.OutOrStdout()
	for _, r := range results {
		okColor.Fprintf(out, "## %s (%s)\n", r.Target.Name, r.Target.Endpoint)
		if r.Result != nil {
			printWalk(out, r.Result)
		}
		if r.Err != nil {
			errColor.Fprintf(out, "# %v\n", r.Err)
		}
	}

	if srv != nil && cmd.Context().Err() == nil {
		a.log.Info("collection done, serving metrics until interrupted", zap.String("addr", addr))
		<-cmd.Context().Done()
	}
	return err
}

func (a *app) serveMetrics(addr string) *http.Server {
	mux := http.NewServeMux()
	mux.Handle(a.cfg.Metrics.Path, promhttp.HandlerFor(a.registry, promhttp.HandlerOpts{}))
	srv := &http.Server{Addr: addr, Handler: mux, ReadHeaderTimeout: 10 * time.Second}
	go func() {
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			a.log.Error("metrics server", zap.Error(err))
		}
	}()
	a.log.Info("serving metrics", zap.String("addr", addr), zap.String("path", a.cfg.Metrics.Path))
	return srv
}
