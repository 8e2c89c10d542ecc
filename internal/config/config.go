// Package config loads scanner configuration with viper.
//
// Every field has a working default, so a config file is optional: the
// zero-configuration path must always produce a safe scanner. The only
// security-sensitive knob is tls.verify_chain, which defaults to on.
package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"

	"github.com/venrisk/posturescan/internal/shared/constants"
)

// Config holds all externally tunable scanner behavior.
type Config struct {
	Scan ScanConfig `mapstructure:"scan"`
	TLS  TLSConfig  `mapstructure:"tls"`
	Log  LogConfig  `mapstructure:"log"`
}

// ScanConfig tunes outbound probing.
type ScanConfig struct {
	FetchTimeout    time.Duration `mapstructure:"fetch_timeout"`
	FanOutDeadline  time.Duration `mapstructure:"fanout_deadline"`
	MaxRedirects    int           `mapstructure:"max_redirects"`
	RateLimit       int           `mapstructure:"rate_limit"`
	UserAgent       string        `mapstructure:"user_agent"`
	ProbeBodyLimit  int64         `mapstructure:"probe_body_limit"`
	ComplianceLimit int64         `mapstructure:"compliance_body_limit"`
}

// TLSConfig tunes the TLS inspector.
type TLSConfig struct {
	// VerifyChain requires certificate-chain validation during inspection.
	// Turning it off is only appropriate for known self-signed external
	// targets and is loudly logged when active.
	VerifyChain      bool          `mapstructure:"verify_chain"`
	HandshakeTimeout time.Duration `mapstructure:"handshake_timeout"`
}

// LogConfig tunes logging output.
type LogConfig struct {
	Level      string `mapstructure:"level"`
	FilePath   string `mapstructure:"file_path"`
	MaxSizeMB  int    `mapstructure:"max_size_mb"`
	MaxBackups int    `mapstructure:"max_backups"`
	MaxAgeDays int    `mapstructure:"max_age_days"`
	Console    bool   `mapstructure:"console"`
}

// Load reads configuration from path (optional) plus POSTURESCAN_* env vars
// and returns a fully defaulted Config.
func Load(path string) (*Config, error) {
	v := viper.New()
	setDefaults(v)

	v.SetEnvPrefix("posturescan")
	// Nested keys use dots; environment variable names cannot, so
	// scan.rate_limit becomes POSTURESCAN_SCAN_RATE_LIMIT.
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("read config %s: %w", path, err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}
	return &cfg, nil
}

// Default returns the built-in configuration, never touching disk.
func Default() *Config {
	v := viper.New()
	setDefaults(v)
	var cfg Config
	// Defaults always unmarshal cleanly.
	_ = v.Unmarshal(&cfg)
	return &cfg
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("scan.fetch_timeout", constants.DefaultFetchTimeout)
	v.SetDefault("scan.fanout_deadline", constants.ComplianceFanOutDeadline)
	v.SetDefault("scan.max_redirects", constants.MaxRedirectHops)
	v.SetDefault("scan.rate_limit", constants.DefaultRateLimit)
	v.SetDefault("scan.user_agent", constants.DefaultUserAgent)
	v.SetDefault("scan.probe_body_limit", int64(constants.ProbeBodyLimitBytes))
	v.SetDefault("scan.compliance_body_limit", int64(constants.ComplianceBodyLimitBytes))

	v.SetDefault("tls.verify_chain", true)
	v.SetDefault("tls.handshake_timeout", constants.DefaultTLSHandshakeTimeout)

	v.SetDefault("log.level", "info")
	v.SetDefault("log.file_path", "")
	v.SetDefault("log.max_size_mb", 50)
	v.SetDefault("log.max_backups", 5)
	v.SetDefault("log.max_age_days", 14)
	v.SetDefault("log.console", false)
}
