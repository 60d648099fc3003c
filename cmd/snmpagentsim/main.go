// PowerSNMPv3 - SNMP library for Go
// Автор: Волков Олег, ООО "Пауэр Си"
// Author: Volkov Oleg, PowerC LLC
// License: MIT (commercial version with support available)
// Лицензия: MIT (доступна коммерческая версия с поддержкой)

// Command snmpagentsim serves a YAML fixture as an SNMPv2c agent, for
// trying snmpwalk without hardware.
//
//	snmpagentsim --fixture cmd/snmpagentsim/testdata/sample.yaml --max-varbinds 4
//	snmpwalk walk -H 127.0.0.1 -p 1161 -c public .1.3.6.1.2.1.2.2.1.2 .1.3.6.1.2.1.2.2.1.10
package main

import (
	"context"
	"errors"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/OlegPowerC/powersnmpwalk/internal/agentsim"
	"github.com/OlegPowerC/powersnmpwalk/internal/logging"
)

var (
	listenAddr  string
	fixture     string
	community   string
	maxVarBinds int
	writable    bool
	logLevel    string
	logFormat   string
)

var rootCmd = &cobra.Command{
	Use:          "snmpagentsim",
	Short:        "Simulated SNMPv2c agent",
	Args:         cobra.NoArgs,
	SilenceUsage: true,
	RunE:         run,
}

func init() {
	f := rootCmd.Flags()
	f.StringVar(&listenAddr, "listen", "127.0.0.1:1161", "UDP address to listen on")
	f.StringVar(&fixture, "fixture", "", "YAML object list to serve (required)")
	f.StringVarP(&community, "community", "c", "public", "accepted community")
	f.IntVar(&maxVarBinds, "max-varbinds", 0, "answer tooBig above this many varbinds, 0 for no limit")
	f.BoolVar(&writable, "writable", false, "accept SET requests")
	f.StringVar(&logLevel, "log-level", "info", "log level: debug, info, warn, error")
	f.StringVar(&logFormat, "log-format", "console", "log format: console or json")
	_ = rootCmd.MarkFlagRequired("fixture")
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	if err := rootCmd.ExecuteContext(ctx); err != nil {
		os.Exit(1)
	}
}

func run(cmd *cobra.Command, _ []string) error {
	cfg := logging.NewDefaultConfig()
	lvl, err := logging.LevelFromString(logLevel)
	if err != nil {
		return err
	}
	cfg.Level = lvl
	cfg.Format = logFormat
	if err := cfg.Validate(); err != nil {
		return err
	}
	log, err := logging.New(cfg)
	if err != nil {
		return err
	}
	defer func() { _ = logging.Sync(log) }()

	mib, err := agentsim.LoadFixtureFile(fixture)
	if err != nil {
		return err
	}

	opts := []agentsim.Option{
		agentsim.WithCommunity(community),
		agentsim.WithMaxVarBinds(maxVarBinds),
		agentsim.WithLogger(log),
	}
	if writable {
		opts = append(opts, agentsim.WithWritable())
	}
	agent := agentsim.New(mib, opts...)
	if err := agent.Listen(listenAddr); err != nil {
		return err
	}
	log.Info("agent listening",
		zap.Stringer("addr", agent.Addr()),
		zap.Int("objects", mib.Len()),
		zap.Int("max_varbinds", maxVarBinds),
		zap.Bool("writable", writable))

	err = agent.Serve(cmd.Context())
	log.Info("agent stopped",
		zap.Int64("requests", agent.Requests()),
		zap.Int64("too_big", agent.TooBigSent()))
	if errors.Is(err, context.Canceled) {
		return nil
	}
	return err
}
