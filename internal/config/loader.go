// PowerSNMPv3 - SNMP library for Go
// Автор: Волков Олег, ООО "Пауэр Си"
// Author: Volkov Oleg, PowerC LLC
// License: MIT (commercial version with support available)
// Лицензия: MIT (доступна коммерческая версия с поддержкой)
package config

import (
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/rawbytes"
	"github.com/knadh/koanf/v2"

	snmp "github.com/OlegPowerC/powersnmpwalk"
	"github.com/OlegPowerC/powersnmpwalk/internal/logging"
)

const (
	maxConfigFileSize = 1024 * 1024 // 1MB

	// EnvPrefix prefixes environment overrides.
	EnvPrefix = "SNMPWALK_"
)

var logDefaults = logging.NewDefaultConfig()

// Load reads the YAML file at path, then applies environment overrides.
// An empty path loads defaults and environment only.
//
// Environment variables drop the prefix and split on the first
// underscore into section and field:
//
//	SNMPWALK_STRATEGY           -> strategy
//	SNMPWALK_WALK_BATCH_SIZE    -> walk.batch_size
//	SNMPWALK_DEFAULTS_COMMUNITY -> defaults.community
func Load(path string) (*Config, error) {
	if path == "" {
		return LoadBytes(nil)
	}

	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open config file: %w", err)
	}
	defer f.Close()

	info, err := f.Stat()
	if err != nil {
		return nil, fmt.Errorf("failed to stat config file: %w", err)
	}
	if info.Size() > maxConfigFileSize {
		return nil, fmt.Errorf("config file too large: %d bytes (max %d)", info.Size(), maxConfigFileSize)
	}

	content, err := io.ReadAll(io.LimitReader(f, maxConfigFileSize+1))
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}
	cfg, err := LoadBytes(content)
	if err != nil {
		return nil, fmt.Errorf("config %s: %w", path, err)
	}
	return cfg, nil
}

// LoadBytes is Load for YAML content already in memory.
func LoadBytes(content []byte) (*Config, error) {
	if len(content) > maxConfigFileSize {
		return nil, fmt.Errorf("config too large: %d bytes (max %d)", len(content), maxConfigFileSize)
	}
	k := koanf.New(".")

	if len(content) > 0 {
		if err := k.Load(rawbytes.Provider(content), yaml.Parser()); err != nil {
			return nil, fmt.Errorf("failed to parse config: %w", err)
		}
	}

	if err := k.Load(env.Provider(EnvPrefix, ".", envKey), nil); err != nil {
		return nil, fmt.Errorf("failed to load environment variables: %w", err)
	}

	var cfg Config
	if err := k.Unmarshal("", &cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	applyDefaults(&cfg)

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}
	return &cfg, nil
}

// envKey maps SNMPWALK_WALK_BATCH_SIZE to walk.batch_size.
func envKey(s string) string {
	lower := strings.ToLower(strings.TrimPrefix(s, EnvPrefix))
	section, field, ok := strings.Cut(lower, "_")
	if !ok {
		return lower
	}
	return section + "." + field
}

// applyDefaults sets default values for missing configuration fields.
func applyDefaults(cfg *Config) {
	if cfg.Strategy == "" {
		cfg.Strategy = snmp.DefaultStrategy
	}
	if cfg.Log.Format == "" {
		cfg.Log.Format = "console"
	}
	if cfg.Log.Sampling.Tick == 0 {
		cfg.Log.Sampling.Tick = logDefaults.Sampling.Tick
	}
	if cfg.Log.Sampling.Initial == 0 {
		cfg.Log.Sampling.Initial = logDefaults.Sampling.Initial
	}
	if cfg.Log.Sampling.Thereafter == 0 {
		cfg.Log.Sampling.Thereafter = logDefaults.Sampling.Thereafter
	}

	if cfg.Defaults.Version == 0 {
		cfg.Defaults.Version = 2
	}
	if cfg.Defaults.Port == 0 {
		cfg.Defaults.Port = snmp.SNMP_DEFAULTPORT
	}

	if cfg.Walk.Concurrency == 0 {
		cfg.Walk.Concurrency = 8
	}
	if cfg.Metrics.Path == "" {
		cfg.Metrics.Path = "/metrics"
	}
}
