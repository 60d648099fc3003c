// PowerSNMPv3 - SNMP library for Go
// Автор: Волков Олег, ООО "Пауэр Си"
// Author: Volkov Oleg, PowerC LLC
// License: MIT (commercial version with support available)
// Лицензия: MIT (доступна коммерческая версия с поддержкой)

// Command snmpwalk queries SNMP agents: single GET/GETNEXT/SET requests,
// coalesced walks of several subtrees, table views and multi-agent
// collection driven by a config file.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	snmp "github.com/OlegPowerC/powersnmpwalk"
	"github.com/OlegPowerC/powersnmpwalk/internal/config"
	"github.com/OlegPowerC/powersnmpwalk/internal/logging"
)

var (
	cfgPath   string
	strategy  string
	logLevel  string
	logFormat string

	host          string
	port          int
	snmpVersion   int
	community     string
	user          string
	authProtocol  string
	authPassword  string
	privProtocol  string
	privPassword  string
	contextName   string
	timeout       time.Duration
	retries       int
	maxVarBinds   int
	maxRepetition int
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	if err := rootCmd.ExecuteContext(ctx); err != nil {
		os.Exit(1)
	}
}

var rootCmd = &cobra.Command{
	Use:   "snmpwalk",
	Short: "SNMP v2c/v3 query tool",
	Long: `snmpwalk queries SNMP agents over v2c or v3 (USM).

Agent access comes from the flags, falling back to the "defaults" section
of the config file and SNMPWALK_* environment variables.

Examples:
  # Walk ifDescr and ifInOctets together
  snmpwalk walk -H 192.168.0.1 -c public .1.3.6.1.2.1.2.2.1.2 .1.3.6.1.2.1.2.2.1.10

  # GET over SNMPv3 authPriv
  snmpwalk get -H 192.168.0.1 -v 3 -u snmpuser -a sha -A pass123456 -x aes -X priv123456 .1.3.6.1.2.1.1.1.0

  # Collect all targets of a config file, serving metrics
  snmpwalk collect --config snmpwalk.yaml --metrics-addr :9116`,
	SilenceUsage: true,
}

func init() {
	pf := rootCmd.PersistentFlags()
	pf.StringVar(&cfgPath, "config", "", "YAML config file")
	pf.StringVar(&strategy, "strategy", "", "SNMP backend: powerc or gosnmp")
	pf.StringVar(&logLevel, "log-level", "", "log level: debug, info, warn, error")
	pf.StringVar(&logFormat, "log-format", "", "log format: console or json")

	pf.StringVarP(&host, "host", "H", "", "Switch or routers IP")
	pf.IntVarP(&port, "port", "p", 161, "agent UDP port")
	pf.IntVarP(&snmpVersion, "version", "v", 2, "SNMP version, 2 or 3")
	pf.StringVarP(&community, "community", "c", "", "Mandatory for version 2, SNMP community name")
	pf.StringVarP(&user, "user", "u", "", "SNMP v3 USER")
	pf.StringVarP(&authProtocol, "auth-protocol", "a", "", "SNMP auth protocol")
	pf.StringVarP(&authPassword, "auth-password", "A", "", "SNMP auth password")
	pf.StringVarP(&privProtocol, "priv-protocol", "x", "", "SNMP priv protocol")
	pf.StringVarP(&privPassword, "priv-password", "X", "", "SNMP priv password")
	pf.StringVar(&contextName, "context", "", "SNMP v3 context")
	pf.DurationVar(&timeout, "timeout", 0, "per attempt timeout, grows with each retry")
	pf.IntVar(&retries, "retries", snmp.SNMP_DEFAULTRETRY, "extra attempts after a timeout")
	pf.IntVar(&maxVarBinds, "max-varbinds", 0, "varbinds per request, 0 for no limit")
	pf.IntVar(&maxRepetition, "max-repetitions", 0, "GETBULK max-repetitions")

	rootCmd.AddCommand(getCmd, getNextCmd, setCmd, walkCmd, tableCmd, collectCmd)
}

// app is what every command needs: config, logger and the strategy.
type app struct {
	cfg      *config.Config
	log      *zap.Logger
	metrics  *snmp.Metrics
	registry *prometheus.Registry
	strategy snmp.Strategy
}

// setup loads the config, applies the flags and opens the strategy.
func setup(cmd *cobra.Command) (*app, error) {
	cfg, err := config.Load(cfgPath)
	if err != nil {
		return nil, err
	}
	flags := cmd.Flags()
	if flags.Changed("strategy") {
		cfg.Strategy = strategy
	}
	if flags.Changed("log-level") {
		lvl, err := logging.LevelFromString(logLevel)
		if err != nil {
			return nil, err
		}
		cfg.Log.Level = lvl
	}
	if flags.Changed("log-format") {
		cfg.Log.Format = logFormat
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	log, err := logging.New(&cfg.Log)
	if err != nil {
		return nil, err
	}

	reg := prometheus.NewRegistry()
	metrics := snmp.NewMetrics(reg)
	s, err := snmp.NewStrategy(cfg.Strategy, snmp.WithLogger(log), snmp.WithMetrics(metrics))
	if err != nil {
		return nil, err
	}
	return &app{cfg: cfg, log: log, metrics: metrics, registry: reg, strategy: s}, nil
}

func (a *app) close() {
	if err := a.strategy.Close(); err != nil {
		a.log.Debug("strategy close", zap.Error(err))
	}
	_ = logging.Sync(a.log)
}

// endpoint builds the agent endpoint from the config defaults, overridden
// by the flags given on the command line.
func (a *app) endpoint(cmd *cobra.Command) (snmp.AgentEndpoint, error) {
	if host == "" {
		return snmp.AgentEndpoint{}, fmt.Errorf("agent address is required (-H)")
	}
	ec := a.cfg.Defaults
	flags := cmd.Flags()
	if flags.Changed("port") {
		ec.Port = port
	}
	if flags.Changed("version") {
		ec.Version = snmpVersion
	}
	if flags.Changed("community") {
		ec.Community = config.Secret(community)
	}
	if flags.Changed("user") {
		ec.Username = user
	}
	if flags.Changed("auth-protocol") {
		ec.AuthProtocol = authProtocol
	}
	if flags.Changed("auth-password") {
		ec.AuthKey = config.Secret(authPassword)
	}
	if flags.Changed("priv-protocol") {
		ec.PrivProtocol = privProtocol
	}
	if flags.Changed("priv-password") {
		ec.PrivKey = config.Secret(privPassword)
	}
	if flags.Changed("context") {
		ec.ContextName = contextName
	}
	if flags.Changed("timeout") {
		ec.Timeout = config.Duration(timeout)
	}
	if flags.Changed("retries") || ec.Retries == nil {
		r := retries
		ec.Retries = &r
	}
	if flags.Changed("max-varbinds") {
		ec.MaxVarBinds = maxVarBinds
	}
	if flags.Changed("max-repetitions") {
		ec.MaxRepetitions = maxRepetition
	}

	ep := ec.AgentEndpoint(host)
	if err := ep.Validate(); err != nil {
		return snmp.AgentEndpoint{}, err
	}
	return ep, nil
}

func parseOIDs(args []string) ([]snmp.OID, error) {
	oids := make([]snmp.OID, len(args))
	for i, a := range args {
		oid, err := snmp.ParseOID(a)
		if err != nil {
			return nil, err
		}
		oids[i] = oid
	}
	return oids, nil
}
