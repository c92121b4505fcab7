// Package models - Service configuration and operational settings.
// This file defines configuration structures for all service components.
//
// Configuration Philosophy:
// - Hierarchical configuration with logical grouping (server, security, etc.)
// - Environment-friendly defaults that work out of the box
// - Comprehensive validation to catch misconfigurations early
// - Security-first approach with safe defaults
package models

import (
	"errors"
	"fmt"
	"time"
)

// Action-checker backend type constants, mirrored from internal/actioncheck.
const (
	ActionCheckerMemory   = "memory"
	ActionCheckerJSON     = "json"
	ActionCheckerSQLite   = "sqlite"
	ActionCheckerPostgres = "postgres"
	ActionCheckerRedis    = "redis"
)

// IP resolution strategy constants, mirrored from internal/ratelimit.
const (
	IpResolverXForwardedFor = "x_forwarded_for"
	IpResolverXRealIP       = "x_real_ip"
	IpResolverCloudflare    = "cloudflare"
	IpResolverCustomHeader  = "custom_header"
	IpResolverSocketAddr    = "socket_addr"
)

// Config is the root configuration structure containing all service settings.
//
// Configuration Structure:
// - Server: HTTP server and network settings
// - Security: rate limiting, pattern screening, IP resolution, action checking
// - Logging: Structured logging and output configuration
// - Observability: tracing and service identity
// - Metrics: Monitoring endpoint
type Config struct {
	Server        ServerConfig        `yaml:"server" json:"server"`
	Security      SecurityConfig      `yaml:"security" json:"security"`
	Logging       LoggingConfig       `yaml:"logging" json:"logging"`
	Observability ObservabilityConfig `yaml:"observability" json:"observability"`
	Metrics       MetricsConfig       `yaml:"metrics" json:"metrics"`
}

type ServerConfig struct {
	Port         int           `yaml:"port" json:"port"`
	Host         string        `yaml:"host" json:"host"`
	ReadTimeout  time.Duration `yaml:"read_timeout" json:"read_timeout"`
	WriteTimeout time.Duration `yaml:"write_timeout" json:"write_timeout"`
	IdleTimeout  time.Duration `yaml:"idle_timeout" json:"idle_timeout"`
	TLSEnabled   bool          `yaml:"tls_enabled" json:"tls_enabled"`
	TLSCertFile  string        `yaml:"tls_cert_file" json:"tls_cert_file"`
	TLSKeyFile   string        `yaml:"tls_key_file" json:"tls_key_file"`
}

// SecurityConfig groups every setting the admission pipeline needs:
// the token-bucket parameters, the pattern screener's rule lists, which
// header (if any) carries the client IP, and where recent-action lookups
// are persisted.
type SecurityConfig struct {
	RateLimit   RateLimitConfig     `yaml:"rate_limit" json:"rate_limit"`
	Screening   ScreeningConfig     `yaml:"screening" json:"screening"`
	IpResolver  IpResolverConfig    `yaml:"ip_resolver" json:"ip_resolver"`
	ActionCheck ActionCheckerConfig `yaml:"action_check" json:"action_check"`
}

// RateLimitConfig carries the values used to build a ratelimit.RateConfig.
type RateLimitConfig struct {
	RequestsPerMinute int           `yaml:"requests_per_minute" json:"requests_per_minute"`
	BlockDuration     time.Duration `yaml:"block_duration" json:"block_duration"`
	GracePeriod       time.Duration `yaml:"grace_period" json:"grace_period"`
	CacheRefundRatio  float64       `yaml:"cache_refund_ratio" json:"cache_refund_ratio"`
	ErrorPenalty      float64       `yaml:"error_penalty" json:"error_penalty"`
	BucketEvictAfter  time.Duration `yaml:"bucket_evict_after" json:"bucket_evict_after"`
	CleanupInterval   time.Duration `yaml:"cleanup_interval" json:"cleanup_interval"`
}

// ScreeningConfig lists the request-path and user-agent patterns the
// malicious-pattern screener compiles at startup.
type ScreeningConfig struct {
	Enabled           bool     `yaml:"enabled" json:"enabled"`
	PathPatterns      []string `yaml:"path_patterns" json:"path_patterns"`
	UserAgentPatterns []string `yaml:"user_agent_patterns" json:"user_agent_patterns"`
}

// IpResolverConfig selects the client-IP resolution strategy.
type IpResolverConfig struct {
	Strategy   string `yaml:"strategy" json:"strategy"`
	HeaderName string `yaml:"header_name" json:"header_name"`
}

// ActionCheckerConfig mirrors actioncheck.Config for YAML/env configuration.
type ActionCheckerConfig struct {
	Type            string        `yaml:"type" json:"type"`
	Path            string        `yaml:"path" json:"path"`
	DSN             string        `yaml:"dsn" json:"dsn"`
	RedisAddr       string        `yaml:"redis_addr" json:"redis_addr"`
	RedisPassword   string        `yaml:"redis_password" json:"redis_password"`
	RedisDB         int           `yaml:"redis_db" json:"redis_db"`
	RedisKeyPrefix  string        `yaml:"redis_key_prefix" json:"redis_key_prefix"`
	CleanupInterval time.Duration `yaml:"cleanup_interval" json:"cleanup_interval"`
	MaxAge          time.Duration `yaml:"max_age" json:"max_age"`
	FlushInterval   time.Duration `yaml:"flush_interval" json:"flush_interval"`
}

type LoggingConfig struct {
	Level      string `yaml:"level" json:"level"`
	Format     string `yaml:"format" json:"format"`
	Output     string `yaml:"output" json:"output"`
	FilePath   string `yaml:"file_path" json:"file_path"`
	MaxSize    int    `yaml:"max_size" json:"max_size"`
	MaxBackups int    `yaml:"max_backups" json:"max_backups"`
	MaxAge     int    `yaml:"max_age" json:"max_age"`
	Compress   bool   `yaml:"compress" json:"compress"`
}

// ObservabilityConfig carries OpenTelemetry service identity and tracing
// settings read by internal/observability.Setup.
type ObservabilityConfig struct {
	ServiceName string        `yaml:"service_name" json:"service_name"`
	Tracing     TracingConfig `yaml:"tracing" json:"tracing"`
}

type TracingConfig struct {
	Enabled      bool    `yaml:"enabled" json:"enabled"`
	Exporter     string  `yaml:"exporter" json:"exporter"`
	OTLPEndpoint string  `yaml:"otlp_endpoint" json:"otlp_endpoint"`
	SampleRate   float64 `yaml:"sample_rate" json:"sample_rate"`
}

type MetricsConfig struct {
	Enabled bool   `yaml:"enabled" json:"enabled"`
	Path    string `yaml:"path" json:"path"`
	Port    int    `yaml:"port" json:"port"`
}

// NewDefaultConfig creates a configuration with production-ready defaults.
//
// Default Values Rationale:
// - Port 8080: Standard non-privileged HTTP port
// - 30-second timeouts: Balance between user experience and resource protection
// - 50 requests/minute, 15-minute block, 1-second grace: the scenario defaults
//   this service ships with
// - Memory action-checker: no external dependencies required to start
// - Structured logging: Better for log aggregation and analysis
func NewDefaultConfig() *Config {
	return &Config{
		Server: ServerConfig{
			Port:         8080,
			Host:         "0.0.0.0",
			ReadTimeout:  30 * time.Second,
			WriteTimeout: 30 * time.Second,
			IdleTimeout:  60 * time.Second,
			TLSEnabled:   false,
		},
		Security: SecurityConfig{
			RateLimit: RateLimitConfig{
				RequestsPerMinute: 50,
				BlockDuration:     15 * time.Minute,
				GracePeriod:       1 * time.Second,
				CacheRefundRatio:  0.5,
				ErrorPenalty:      2.0,
				BucketEvictAfter:  30 * time.Minute,
				CleanupInterval:   5 * time.Minute,
			},
			Screening: ScreeningConfig{
				Enabled: true,
				PathPatterns: []string{
					`\.env$`,
					`\.git/`,
					`wp-admin`,
					`\.\./`,
				},
				UserAgentPatterns: []string{
					`(?i)sqlmap`,
					`(?i)nikto`,
					`(?i)masscan`,
				},
			},
			IpResolver: IpResolverConfig{
				Strategy: IpResolverXForwardedFor,
			},
			ActionCheck: ActionCheckerConfig{
				Type:            ActionCheckerMemory,
				CleanupInterval: 10 * time.Minute,
				MaxAge:          24 * time.Hour,
				FlushInterval:   30 * time.Second,
			},
		},
		Logging: LoggingConfig{
			Level:      "info",
			Format:     "json",
			Output:     "stdout",
			MaxSize:    100,
			MaxBackups: 3,
			MaxAge:     28,
			Compress:   true,
		},
		Observability: ObservabilityConfig{
			ServiceName: "rate-limiter",
			Tracing: TracingConfig{
				Enabled:      false,
				Exporter:     "stdout",
				OTLPEndpoint: "localhost:4317",
				SampleRate:   0.1,
			},
		},
		Metrics: MetricsConfig{
			Enabled: true,
			Path:    "/metrics",
			Port:    9090,
		},
	}
}

func (c *Config) Validate() error {
	if err := c.Server.Validate(); err != nil {
		return fmt.Errorf("invalid server config: %w", err)
	}

	if err := c.Security.Validate(); err != nil {
		return fmt.Errorf("invalid security config: %w", err)
	}

	if err := c.Logging.Validate(); err != nil {
		return fmt.Errorf("invalid logging config: %w", err)
	}

	if err := c.Observability.Validate(); err != nil {
		return fmt.Errorf("invalid observability config: %w", err)
	}

	if err := c.Metrics.Validate(); err != nil {
		return fmt.Errorf("invalid metrics config: %w", err)
	}

	return nil
}

func (sc *ServerConfig) Validate() error {
	if sc.Port <= 0 || sc.Port > 65535 {
		return errors.New("port must be between 1 and 65535")
	}

	if sc.Host == "" {
		return errors.New("host cannot be empty")
	}

	if sc.ReadTimeout < 0 {
		return errors.New("read timeout cannot be negative")
	}

	if sc.WriteTimeout < 0 {
		return errors.New("write timeout cannot be negative")
	}

	if sc.IdleTimeout < 0 {
		return errors.New("idle timeout cannot be negative")
	}

	if sc.TLSEnabled {
		if sc.TLSCertFile == "" {
			return errors.New("TLS cert file is required when TLS is enabled")
		}
		if sc.TLSKeyFile == "" {
			return errors.New("TLS key file is required when TLS is enabled")
		}
	}

	return nil
}

func (sec *SecurityConfig) Validate() error {
	if sec.RateLimit.RequestsPerMinute <= 0 {
		return errors.New("requests per minute must be positive")
	}
	if sec.RateLimit.BlockDuration < 0 {
		return errors.New("block duration cannot be negative")
	}
	if sec.RateLimit.GracePeriod < 0 {
		return errors.New("grace period cannot be negative")
	}
	if sec.RateLimit.CacheRefundRatio < 0 || sec.RateLimit.CacheRefundRatio > 1 {
		return errors.New("cache refund ratio must be between 0 and 1")
	}
	if sec.RateLimit.ErrorPenalty < 0 {
		return errors.New("error penalty cannot be negative")
	}

	validResolvers := []string{
		IpResolverXForwardedFor, IpResolverXRealIP, IpResolverCloudflare,
		IpResolverCustomHeader, IpResolverSocketAddr,
	}
	found := false
	for _, vr := range validResolvers {
		if sec.IpResolver.Strategy == vr {
			found = true
			break
		}
	}
	if !found {
		return fmt.Errorf("invalid ip resolver strategy: %s", sec.IpResolver.Strategy)
	}
	if sec.IpResolver.Strategy == IpResolverCustomHeader && sec.IpResolver.HeaderName == "" {
		return errors.New("header name is required for custom_header ip resolver")
	}

	validBackends := []string{
		ActionCheckerMemory, ActionCheckerJSON, ActionCheckerSQLite,
		ActionCheckerPostgres, ActionCheckerRedis,
	}
	found = false
	for _, vb := range validBackends {
		if sec.ActionCheck.Type == vb {
			found = true
			break
		}
	}
	if !found {
		return fmt.Errorf("invalid action checker backend: %s", sec.ActionCheck.Type)
	}
	if sec.ActionCheck.Type == ActionCheckerJSON && sec.ActionCheck.Path == "" {
		return errors.New("path is required for json action checker")
	}
	if (sec.ActionCheck.Type == ActionCheckerSQLite || sec.ActionCheck.Type == ActionCheckerPostgres) && sec.ActionCheck.DSN == "" {
		return errors.New("dsn is required for sqlite/postgres action checker")
	}
	if sec.ActionCheck.Type == ActionCheckerRedis && sec.ActionCheck.RedisAddr == "" {
		return errors.New("redis_addr is required for redis action checker")
	}

	return nil
}

func (lc *LoggingConfig) Validate() error {
	validLevels := []string{"debug", "info", "warn", "error"}
	found := false
	for _, vl := range validLevels {
		if lc.Level == vl {
			found = true
			break
		}
	}
	if !found {
		return fmt.Errorf("invalid log level: %s", lc.Level)
	}

	validFormats := []string{"json", "text"}
	found = false
	for _, vf := range validFormats {
		if lc.Format == vf {
			found = true
			break
		}
	}
	if !found {
		return fmt.Errorf("invalid log format: %s", lc.Format)
	}

	validOutputs := []string{"stdout", "stderr", "file"}
	found = false
	for _, vo := range validOutputs {
		if lc.Output == vo {
			found = true
			break
		}
	}
	if !found {
		return fmt.Errorf("invalid log output: %s", lc.Output)
	}

	if lc.Output == "file" && lc.FilePath == "" {
		return errors.New("file path is required when output is file")
	}

	return nil
}

func (oc *ObservabilityConfig) Validate() error {
	if !oc.Tracing.Enabled {
		return nil
	}

	validExporters := []string{"stdout", "otlp"}
	found := false
	for _, ve := range validExporters {
		if oc.Tracing.Exporter == ve {
			found = true
			break
		}
	}
	if !found {
		return fmt.Errorf("invalid tracing exporter: %s", oc.Tracing.Exporter)
	}

	if oc.Tracing.SampleRate < 0 || oc.Tracing.SampleRate > 1 {
		return errors.New("tracing sample rate must be between 0 and 1")
	}

	if oc.Tracing.Exporter == "otlp" && oc.Tracing.OTLPEndpoint == "" {
		return errors.New("OTLP endpoint is required when tracing exporter is otlp")
	}

	return nil
}

func (mc *MetricsConfig) Validate() error {
	if !mc.Enabled {
		return nil
	}

	if mc.Path == "" {
		return errors.New("metrics path cannot be empty")
	}

	if mc.Port <= 0 || mc.Port > 65535 {
		return errors.New("metrics port must be between 1 and 65535")
	}

	return nil
}
