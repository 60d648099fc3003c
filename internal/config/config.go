// PowerSNMPv3 - SNMP library for Go
// Автор: Волков Олег, ООО "Пауэр Си"
// Author: Volkov Oleg, PowerC LLC
// License: MIT (commercial version with support available)
// Лицензия: MIT (доступна коммерческая версия с поддержкой)

// Package config loads the settings of the snmpwalk tools: the strategy,
// logging, walk tuning and the agents to collect from.
package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	snmp "github.com/OlegPowerC/powersnmpwalk"
	"github.com/OlegPowerC/powersnmpwalk/internal/logging"
)

// Config is the root configuration.
type Config struct {
	Strategy string         `koanf:"strategy"`
	Log      logging.Config `koanf:"log"`
	Defaults EndpointConfig `koanf:"defaults"`
	Walk     WalkConfig     `koanf:"walk"`
	Metrics  MetricsConfig  `koanf:"metrics"`
	Targets  []TargetConfig `koanf:"targets"`
}

// EndpointConfig holds agent access settings. In Defaults it applies to
// every target; a target overrides the fields it sets.
type EndpointConfig struct {
	Port      int    `koanf:"port"`
	Version   int    `koanf:"version"`
	Community Secret `koanf:"community"`

	Username     string `koanf:"username"`
	AuthProtocol string `koanf:"auth_protocol"`
	AuthKey      Secret `koanf:"auth_key"`
	PrivProtocol string `koanf:"priv_protocol"`
	PrivKey      Secret `koanf:"priv_key"`
	ContextName  string `koanf:"context_name"`

	Timeout        Duration `koanf:"timeout"`
	Retries        *int     `koanf:"retries"`
	MaxVarBinds    int      `koanf:"max_varbinds"`
	MaxRepetitions int      `koanf:"max_repetitions"`
}

// WalkConfig tunes the aggregate walkers.
type WalkConfig struct {
	BatchSize         int     `koanf:"batch_size"`
	Bulk              bool    `koanf:"bulk"`
	MaxRepetitions    int     `koanf:"max_repetitions"`
	MaxRounds         int     `koanf:"max_rounds"`
	RateLimit         float64 `koanf:"rate_limit"`
	Burst             int     `koanf:"burst"`
	Concurrency       int     `koanf:"concurrency"`
	ContinueOnFailure bool    `koanf:"continue_on_failure"`
}

// MetricsConfig configures the Prometheus endpoint of the collect command.
// An empty Addr disables it.
type MetricsConfig struct {
	Addr string `koanf:"addr"`
	Path string `koanf:"path"`
}

// TargetConfig is one agent to collect from.
type TargetConfig struct {
	Name    string   `koanf:"name"`
	Address string   `koanf:"address"`
	Roots   []string `koanf:"roots"`

	EndpointConfig `koanf:",squash"`
}

// Duration wraps time.Duration for text unmarshaling ("300ms", "2s").
type Duration time.Duration

// UnmarshalText implements encoding.TextUnmarshaler.
func (d *Duration) UnmarshalText(text []byte) error {
	s := strings.TrimSpace(string(text))
	if s == "" {
		*d = 0
		return nil
	}
	parsed, err := time.ParseDuration(s)
	if err != nil {
		return fmt.Errorf("invalid duration %q: %w", s, err)
	}
	*d = Duration(parsed)
	return nil
}

// MarshalText implements encoding.TextMarshaler.
func (d Duration) MarshalText() ([]byte, error) {
	return []byte(time.Duration(d).String()), nil
}

// Duration returns the underlying time.Duration.
func (d Duration) Duration() time.Duration {
	return time.Duration(d)
}

// Secret wraps strings that should be redacted in logs and serialization.
// Use Value() to access the actual secret value.
type Secret string

// String implements fmt.Stringer. Always returns redacted value.
func (s Secret) String() string {
	if s == "" {
		return ""
	}
	return "[REDACTED]"
}

// GoString implements fmt.GoStringer for %#v formatting.
func (s Secret) GoString() string {
	return "Secret([REDACTED])"
}

// Value returns the actual secret value.
func (s Secret) Value() string {
	return string(s)
}

// merged returns c with every unset field taken from def.
func (c EndpointConfig) merged(def EndpointConfig) EndpointConfig {
	if c.Port == 0 {
		c.Port = def.Port
	}
	if c.Version == 0 {
		c.Version = def.Version
	}
	if c.Community == "" {
		c.Community = def.Community
	}
	if c.Username == "" {
		c.Username = def.Username
		c.AuthProtocol = def.AuthProtocol
		c.AuthKey = def.AuthKey
		c.PrivProtocol = def.PrivProtocol
		c.PrivKey = def.PrivKey
	}
	if c.ContextName == "" {
		c.ContextName = def.ContextName
	}
	if c.Timeout == 0 {
		c.Timeout = def.Timeout
	}
	if c.Retries == nil {
		c.Retries = def.Retries
	}
	if c.MaxVarBinds == 0 {
		c.MaxVarBinds = def.MaxVarBinds
	}
	if c.MaxRepetitions == 0 {
		c.MaxRepetitions = def.MaxRepetitions
	}
	return c
}

// AgentEndpoint converts the settings into a library endpoint for address.
func (c EndpointConfig) AgentEndpoint(address string) snmp.AgentEndpoint {
	ep := snmp.AgentEndpoint{
		Address:           address,
		Port:              c.Port,
		Version:           c.Version,
		Community:         c.Community.Value(),
		Username:          c.Username,
		AuthProtocol:      c.AuthProtocol,
		AuthKey:           c.AuthKey.Value(),
		PrivProtocol:      c.PrivProtocol,
		PrivKey:           c.PrivKey.Value(),
		ContextName:       c.ContextName,
		Timeout:           c.Timeout.Duration(),
		Retries:           snmp.SNMP_DEFAULTRETRY,
		MaxVarBindsPerPDU: c.MaxVarBinds,
		MaxRepetitions:    c.MaxRepetitions,
	}
	if c.Retries != nil {
		ep.Retries = *c.Retries
	}
	return ep
}

// Endpoint returns the target's agent endpoint with defaults merged in.
func (t TargetConfig) Endpoint(defaults EndpointConfig) snmp.AgentEndpoint {
	return t.EndpointConfig.merged(defaults).AgentEndpoint(t.Address)
}

// RootOIDs parses the configured roots.
func (t TargetConfig) RootOIDs() ([]snmp.OID, error) {
	roots := make([]snmp.OID, 0, len(t.Roots))
	for _, r := range t.Roots {
		oid, err := snmp.ParseOID(r)
		if err != nil {
			return nil, err
		}
		roots = append(roots, oid)
	}
	return roots, nil
}

// Target converts the target into a collector target.
func (t TargetConfig) Target(defaults EndpointConfig) (snmp.Target, error) {
	roots, err := t.RootOIDs()
	if err != nil {
		return snmp.Target{}, fmt.Errorf("target %s: %w", t.Name, err)
	}
	return snmp.Target{Name: t.Name, Endpoint: t.Endpoint(defaults), Roots: roots}, nil
}

// Options returns the walker options for w.
func (w WalkConfig) Options() []snmp.Option {
	opts := []snmp.Option{
		snmp.WithBatchSize(w.BatchSize),
		snmp.WithMaxRounds(w.MaxRounds),
		snmp.WithConcurrency(w.Concurrency),
	}
	if w.Bulk {
		opts = append(opts, snmp.WithGetBulk(w.MaxRepetitions))
	}
	if w.RateLimit > 0 {
		opts = append(opts, snmp.WithRateLimit(w.RateLimit, w.Burst))
	}
	if w.ContinueOnFailure {
		opts = append(opts, snmp.WithContinueOnFailure())
	}
	return opts
}

// CollectTargets converts every configured target.
func (c *Config) CollectTargets() ([]snmp.Target, error) {
	out := make([]snmp.Target, 0, len(c.Targets))
	for _, t := range c.Targets {
		tg, err := t.Target(c.Defaults)
		if err != nil {
			return nil, err
		}
		out = append(out, tg)
	}
	return out, nil
}

// Validate validates the configuration.
func (c *Config) Validate() error {
	switch strings.ToLower(c.Strategy) {
	case snmp.StrategyPowerC, "ber", snmp.StrategyGoSNMP:
	default:
		return fmt.Errorf("%w: %q", snmp.ErrUnknownStrategy, c.Strategy)
	}
	if err := c.Log.Validate(); err != nil {
		return fmt.Errorf("log: %w", err)
	}

	if c.Walk.BatchSize < 0 {
		return errors.New("walk.batch_size must not be negative")
	}
	if c.Walk.MaxRepetitions < 0 || c.Walk.MaxRepetitions > int(snmp.SNMP_MAXREPETITION) {
		return fmt.Errorf("walk.max_repetitions must be 0..%d", snmp.SNMP_MAXREPETITION)
	}
	if c.Walk.RateLimit < 0 {
		return errors.New("walk.rate_limit must not be negative")
	}
	if c.Walk.Concurrency < 0 {
		return errors.New("walk.concurrency must not be negative")
	}

	seen := make(map[string]bool, len(c.Targets))
	for i, t := range c.Targets {
		if t.Name == "" {
			return fmt.Errorf("targets[%d]: name is required", i)
		}
		if seen[t.Name] {
			return fmt.Errorf("targets[%d]: duplicate name %q", i, t.Name)
		}
		seen[t.Name] = true
		if len(t.Roots) == 0 {
			return fmt.Errorf("target %s: at least one root OID is required", t.Name)
		}
		if _, err := t.RootOIDs(); err != nil {
			return fmt.Errorf("target %s: %w", t.Name, err)
		}
		if err := t.Endpoint(c.Defaults).Validate(); err != nil {
			return fmt.Errorf("target %s: %w", t.Name, err)
		}
	}
	return nil
}
