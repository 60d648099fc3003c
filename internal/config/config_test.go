// PowerSNMPv3 - SNMP library for Go
// Автор: Волков Олег, ООО "Пауэр Си"
// Author: Volkov Oleg, PowerC LLC
// License: MIT (commercial version with support available)
// Лицензия: MIT (доступна коммерческая версия с поддержкой)
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zapcore"

	snmp "github.com/OlegPowerC/powersnmpwalk"
)

const sampleConfig = `
strategy: gosnmp
log:
  level: debug
  format: json
defaults:
  version: 2
  community: public
  timeout: 500ms
  retries: 1
walk:
  batch_size: 16
  bulk: true
  max_repetitions: 10
  rate_limit: 50
  burst: 5
  continue_on_failure: true
metrics:
  addr: ":9116"
targets:
  - name: core-sw
    address: 10.0.0.1
    roots:
      - .1.3.6.1.2.1.2.2.1.2
      - .1.3.6.1.2.1.2.2.1.10
  - name: edge
    address: 10.0.0.2
    port: 1161
    community: private
    retries: 0
    roots: [1.3.6.1.2.1.1]
`

func TestLoadBytes(t *testing.T) {
	cfg, err := LoadBytes([]byte(sampleConfig))
	require.NoError(t, err)

	assert.Equal(t, "gosnmp", cfg.Strategy)
	assert.Equal(t, zapcore.DebugLevel, cfg.Log.Level)
	assert.Equal(t, "json", cfg.Log.Format)
	assert.Equal(t, 500*time.Millisecond, cfg.Defaults.Timeout.Duration())
	assert.Equal(t, 16, cfg.Walk.BatchSize)
	assert.True(t, cfg.Walk.Bulk)
	assert.Equal(t, 8, cfg.Walk.Concurrency, "default concurrency")
	assert.Equal(t, "/metrics", cfg.Metrics.Path)
	require.Len(t, cfg.Targets, 2)

	core := cfg.Targets[0].Endpoint(cfg.Defaults)
	assert.Equal(t, "10.0.0.1", core.Address)
	assert.Equal(t, snmp.SNMP_DEFAULTPORT, core.Port)
	assert.Equal(t, "public", core.Community)
	assert.Equal(t, 1, core.Retries)
	assert.Equal(t, 500*time.Millisecond, core.Timeout)

	edge := cfg.Targets[1].Endpoint(cfg.Defaults)
	assert.Equal(t, 1161, edge.Port)
	assert.Equal(t, "private", edge.Community)
	assert.Equal(t, 0, edge.Retries, "explicit zero retries is kept")

	targets, err := cfg.CollectTargets()
	require.NoError(t, err)
	require.Len(t, targets, 2)
	assert.Equal(t, snmp.MustParseOID("1.3.6.1.2.1.2.2.1.10"), targets[0].Roots[1])
}

func TestLoadBytesDefaults(t *testing.T) {
	cfg, err := LoadBytes(nil)
	require.NoError(t, err)
	assert.Equal(t, snmp.DefaultStrategy, cfg.Strategy)
	assert.Equal(t, "console", cfg.Log.Format)
	assert.Equal(t, zapcore.InfoLevel, cfg.Log.Level)
	assert.Equal(t, 2, cfg.Defaults.Version)
	assert.Empty(t, cfg.Targets)
}

func TestLoadEnvOverride(t *testing.T) {
	t.Setenv("SNMPWALK_STRATEGY", "powerc")
	t.Setenv("SNMPWALK_WALK_BATCH_SIZE", "4")
	t.Setenv("SNMPWALK_DEFAULTS_COMMUNITY", "fromenv")

	cfg, err := LoadBytes([]byte(sampleConfig))
	require.NoError(t, err)
	assert.Equal(t, "powerc", cfg.Strategy)
	assert.Equal(t, 4, cfg.Walk.BatchSize)
	assert.Equal(t, "fromenv", cfg.Targets[0].Endpoint(cfg.Defaults).Community)
}

func TestLoadValidation(t *testing.T) {
	tests := []struct {
		name    string
		yaml    string
		wantErr string
	}{
		{"unknown strategy", "strategy: netsnmp", "unknown SNMP strategy"},
		{"bad log format", "log: {format: xml}", "format must be"},
		{"negative batch", "walk: {batch_size: -1}", "batch_size"},
		{"repetitions too large", "walk: {max_repetitions: 1000}", "max_repetitions"},
		{"target without name", "targets: [{address: 10.0.0.1, community: c, roots: [1.3.6]}]", "name is required"},
		{"duplicate target", "targets: [{name: a, address: h, community: c, roots: [1.3]}, {name: a, address: h, community: c, roots: [1.3]}]", "duplicate name"},
		{"target without roots", "targets: [{name: a, address: h, community: c}]", "root OID is required"},
		{"bad root", "targets: [{name: a, address: h, community: c, roots: [1.x.3]}]", "invalid OID"},
		{"v2 without community", "targets: [{name: a, address: h, roots: [1.3]}]", "community is required"},
		{"v3 without user", "defaults: {version: 3}\ntargets: [{name: a, address: h, roots: [1.3]}]", "USM user is required"},
		{"bad duration", "defaults: {timeout: soon}", "invalid duration"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := LoadBytes([]byte(tt.yaml))
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}

func TestLoadFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "snmpwalk.yaml")
	require.NoError(t, os.WriteFile(path, []byte(sampleConfig), 0o600))

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Len(t, cfg.Targets, 2)

	_, err = Load(filepath.Join(dir, "missing.yaml"))
	assert.Error(t, err)

	big := filepath.Join(dir, "big.yaml")
	require.NoError(t, os.WriteFile(big, []byte(strings.Repeat("#", maxConfigFileSize+1)), 0o600))
	_, err = Load(big)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "too large")
}

func TestWalkOptions(t *testing.T) {
	assert.Len(t, WalkConfig{}.Options(), 3)
	assert.Len(t, WalkConfig{Bulk: true, RateLimit: 10, ContinueOnFailure: true}.Options(), 6)
}

func TestSecretRedacted(t *testing.T) {
	s := Secret("maplesyrup")
	assert.Equal(t, "[REDACTED]", s.String())
	assert.Equal(t, "[REDACTED]", fmt.Sprint(s))
	assert.NotContains(t, fmt.Sprintf("%#v", s), "maple")
	assert.Equal(t, "maplesyrup", s.Value())
	assert.Equal(t, "", Secret("").String())
}

func TestEnvKey(t *testing.T) {
	tests := map[string]string{
		"SNMPWALK_STRATEGY":           "strategy",
		"SNMPWALK_WALK_BATCH_SIZE":    "walk.batch_size",
		"SNMPWALK_LOG_LEVEL":          "log.level",
		"SNMPWALK_DEFAULTS_AUTH_KEY":  "defaults.auth_key",
		"SNMPWALK_METRICS_ADDR":       "metrics.addr",
		"SNMPWALK_WALK_RATE_LIMIT":    "walk.rate_limit",
		"SNMPWALK_DEFAULTS_COMMUNITY": "defaults.community",
	}
	for in, want := range tests {
		assert.Equal(t, want, envKey(in), in)
	}
}
