// Package config loads node configuration from a YAML file plus
// environment overrides, mirroring the recognized options in the
// specification's external interfaces section.
package config

import (
	"fmt"
	"reflect"
	"time"

	"github.com/spf13/viper"
)

// Config is the unified configuration for a diplomat node.
type Config struct {
	Host string `mapstructure:"host"`
	Port int    `mapstructure:"port"`

	RoamSubnetBase string `mapstructure:"roam_subnet_base"`
	RoamPorts      []int  `mapstructure:"roam_ports"`
	RoamInterval   int    `mapstructure:"roam_interval_seconds"`

	PeriodicAnnounceInterval int `mapstructure:"periodic_announce_interval_seconds"`

	HMACSecret            string `mapstructure:"hmac_secret"`
	HMACToleranceSeconds  int    `mapstructure:"hmac_tolerance_seconds"`
	RPCTimeoutSeconds     int    `mapstructure:"rpc_timeout_seconds"`

	DBDir        string `mapstructure:"db_dir"`
	LedgerFile   string `mapstructure:"ledger_file"`
	MempoolFile  string `mapstructure:"mempool_file"`
	PeerDBFile   string `mapstructure:"db_file"`
	KeysDir      string `mapstructure:"keys_dir"`

	MetricsAddr string `mapstructure:"metrics_addr"`
	LogLevel    string `mapstructure:"log_level"`

	// PoD tuning, documented in titan-seconds/byte per the specification.
	PoDK               float64 `mapstructure:"pod_k"`
	PoDBaseDifficulty  int     `mapstructure:"pod_base_difficulty"`
}

// Defaults returns a Config populated with the specification's documented
// defaults.
func Defaults() Config {
	return Config{
		Host:                     "0.0.0.0",
		Port:                     7220,
		RoamSubnetBase:           "192.168.1",
		RoamPorts:                []int{7220},
		RoamInterval:             30,
		PeriodicAnnounceInterval: 30,
		HMACToleranceSeconds:     120,
		RPCTimeoutSeconds:        5,
		DBDir:                    "db",
		LedgerFile:               "ledger.data",
		MempoolFile:              "mempool.bin",
		PeerDBFile:               "peers.db",
		KeysDir:                  "keys",
		MetricsAddr:              ":9220",
		LogLevel:                 "info",
		PoDK:                     40,
		PoDBaseDifficulty:        16,
	}
}

// Load reads a YAML configuration file at path, merging in any
// DIPLOMAT_-prefixed environment variables, and returns the result layered
// on top of Defaults().
func Load(path string) (*Config, error) {
	cfg := Defaults()

	v := viper.New()
	v.SetConfigType("yaml")
	v.SetEnvPrefix("DIPLOMAT")
	v.AutomaticEnv()

	// Unmarshal only sees keys viper already knows, so bind every field's
	// key explicitly for environment values to apply without a config file.
	t := reflect.TypeOf(cfg)
	for i := 0; i < t.NumField(); i++ {
		if key := t.Field(i).Tag.Get("mapstructure"); key != "" {
			if err := v.BindEnv(key); err != nil {
				return nil, fmt.Errorf("bind env %s: %w", key, err)
			}
		}
	}

	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("read config %s: %w", path, err)
		}
	}

	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}
	return &cfg, nil
}

// HMACTolerance returns the configured clock-skew tolerance as a
// time.Duration.
func (c *Config) HMACTolerance() time.Duration {
	return time.Duration(c.HMACToleranceSeconds) * time.Second
}

// RPCTimeout returns the configured per-call RPC timeout.
func (c *Config) RPCTimeout() time.Duration {
	return time.Duration(c.RPCTimeoutSeconds) * time.Second
}

// RoamIntervalDuration returns the roaming probe interval.
func (c *Config) RoamIntervalDuration() time.Duration {
	return time.Duration(c.RoamInterval) * time.Second
}

// PeriodicAnnounceIntervalDuration returns the periodic-announce interval.
func (c *Config) PeriodicAnnounceIntervalDuration() time.Duration {
	return time.Duration(c.PeriodicAnnounceInterval) * time.Second
}
