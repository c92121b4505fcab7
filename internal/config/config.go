package config

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/cavebatsofware/rate-limiter/internal/models"

	"gopkg.in/yaml.v3"
)

// Load loads configuration from file and environment variables
func Load(configPath string) (*models.Config, error) {
	// Start with default configuration
	config := models.NewDefaultConfig()

	// Load from file if provided and exists
	if configPath != "" {
		if err := loadFromFile(config, configPath); err != nil {
			return nil, fmt.Errorf("failed to load config from file: %w", err)
		}
	}

	// Override with environment variables
	loadFromEnvironment(config)

	// Validate the final configuration
	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return config, nil
}

// deprecatedConfig mirrors removed config fields for detecting stale operator configs.
type deprecatedConfig struct {
	Server struct {
		CORS interface{} `yaml:"cors"`
	} `yaml:"server"`
	Security struct {
		JWTSecret      string      `yaml:"jwt_secret"`
		TrustedProxies interface{} `yaml:"trusted_proxies"`
		APIKeys        interface{} `yaml:"api_keys"`
	} `yaml:"security"`
	Storage interface{} `yaml:"storage"`
	Cache   interface{} `yaml:"cache"`
}

// warnDeprecatedKeys logs a warning for each removed config key found in the YAML data.
// The service continues to start normally - these keys are silently ignored by the main decoder.
func warnDeprecatedKeys(data []byte) {
	var dep deprecatedConfig
	if err := yaml.Unmarshal(data, &dep); err != nil {
		return
	}
	if dep.Server.CORS != nil {
		slog.Warn("Config key is no longer supported; configure CORS at your reverse proxy. See docs/reverse-proxy.md.", "config_key", "server.cors")
	}
	if dep.Security.JWTSecret != "" {
		slog.Warn("Config key is no longer used and can be removed from your config file.", "config_key", "security.jwt_secret")
	}
	if dep.Security.TrustedProxies != nil {
		slog.Warn("Config key is no longer supported; configure the trusted proxy via security.ip_resolver instead.", "config_key", "security.trusted_proxies")
	}
	if dep.Security.APIKeys != nil {
		slog.Warn("Config key is no longer supported; this service has no built-in authentication.", "config_key", "security.api_keys")
	}
	if dep.Storage != nil {
		slog.Warn("Config key is no longer supported; configure persistence via security.action_check instead.", "config_key", "storage")
	}
	if dep.Cache != nil {
		slog.Warn("Config key is no longer supported; rate limiting state lives in the bucket registry, not an external cache.", "config_key", "cache")
	}
}

// loadFromFile loads configuration from a YAML file
func loadFromFile(config *models.Config, filePath string) error {
	if _, err := os.Stat(filePath); os.IsNotExist(err) {
		return fmt.Errorf("config file not found: %s", filePath)
	}
	data, err := os.ReadFile(filePath)
	if err != nil {
		return fmt.Errorf("failed to read config file: %w", err)
	}
	warnDeprecatedKeys(data)
	if err := yaml.Unmarshal(data, config); err != nil {
		return fmt.Errorf("failed to parse YAML config: %w", err)
	}
	return nil
}

// loadFromEnvironment loads configuration from environment variables
func loadFromEnvironment(config *models.Config) {
	// Server configuration
	if port := os.Getenv("RATELIMITD_PORT"); port != "" {
		if p, err := strconv.Atoi(port); err == nil {
			config.Server.Port = p
		}
	}

	if host := os.Getenv("RATELIMITD_HOST"); host != "" {
		config.Server.Host = host
	}

	if timeout := os.Getenv("RATELIMITD_READ_TIMEOUT"); timeout != "" {
		if d, err := time.ParseDuration(timeout); err == nil {
			config.Server.ReadTimeout = d
		}
	}

	if timeout := os.Getenv("RATELIMITD_WRITE_TIMEOUT"); timeout != "" {
		if d, err := time.ParseDuration(timeout); err == nil {
			config.Server.WriteTimeout = d
		}
	}

	if timeout := os.Getenv("RATELIMITD_IDLE_TIMEOUT"); timeout != "" {
		if d, err := time.ParseDuration(timeout); err == nil {
			config.Server.IdleTimeout = d
		}
	}

	if tls := os.Getenv("RATELIMITD_TLS_ENABLED"); tls != "" {
		config.Server.TLSEnabled = strings.ToLower(tls) == "true"
	}

	if certFile := os.Getenv("RATELIMITD_TLS_CERT_FILE"); certFile != "" {
		config.Server.TLSCertFile = certFile
	}

	if keyFile := os.Getenv("RATELIMITD_TLS_KEY_FILE"); keyFile != "" {
		config.Server.TLSKeyFile = keyFile
	}

	// Rate limit configuration
	if rpm := os.Getenv("RATELIMITD_REQUESTS_PER_MINUTE"); rpm != "" {
		if n, err := strconv.Atoi(rpm); err == nil {
			config.Security.RateLimit.RequestsPerMinute = n
		}
	}

	if bd := os.Getenv("RATELIMITD_BLOCK_DURATION"); bd != "" {
		if d, err := time.ParseDuration(bd); err == nil {
			config.Security.RateLimit.BlockDuration = d
		}
	}

	if gp := os.Getenv("RATELIMITD_GRACE_PERIOD"); gp != "" {
		if d, err := time.ParseDuration(gp); err == nil {
			config.Security.RateLimit.GracePeriod = d
		}
	}

	if cr := os.Getenv("RATELIMITD_CACHE_REFUND_RATIO"); cr != "" {
		if f, err := strconv.ParseFloat(cr, 64); err == nil {
			config.Security.RateLimit.CacheRefundRatio = f
		}
	}

	if ep := os.Getenv("RATELIMITD_ERROR_PENALTY"); ep != "" {
		if f, err := strconv.ParseFloat(ep, 64); err == nil {
			config.Security.RateLimit.ErrorPenalty = f
		}
	}

	// Screening configuration
	if screening := os.Getenv("RATELIMITD_SCREENING_ENABLED"); screening != "" {
		config.Security.Screening.Enabled = strings.ToLower(screening) == "true"
	}

	// IP resolver configuration
	if strategy := os.Getenv("RATELIMITD_IP_RESOLVER_STRATEGY"); strategy != "" {
		config.Security.IpResolver.Strategy = strategy
	}

	if header := os.Getenv("RATELIMITD_IP_RESOLVER_HEADER"); header != "" {
		config.Security.IpResolver.HeaderName = header
	}

	// Action checker configuration
	if actionType := os.Getenv("RATELIMITD_ACTION_CHECK_TYPE"); actionType != "" {
		config.Security.ActionCheck.Type = actionType
	}

	if path := os.Getenv("RATELIMITD_ACTION_CHECK_PATH"); path != "" {
		config.Security.ActionCheck.Path = path
	}

	if dsn := os.Getenv("RATELIMITD_ACTION_CHECK_DSN"); dsn != "" {
		config.Security.ActionCheck.DSN = dsn
	}

	if addr := os.Getenv("RATELIMITD_REDIS_ADDR"); addr != "" {
		config.Security.ActionCheck.RedisAddr = addr
	}

	if password := os.Getenv("RATELIMITD_REDIS_PASSWORD"); password != "" {
		config.Security.ActionCheck.RedisPassword = password
	}

	if db := os.Getenv("RATELIMITD_REDIS_DB"); db != "" {
		if n, err := strconv.Atoi(db); err == nil {
			config.Security.ActionCheck.RedisDB = n
		}
	}

	// Logging configuration
	if level := os.Getenv("RATELIMITD_LOG_LEVEL"); level != "" {
		config.Logging.Level = level
	}

	if format := os.Getenv("RATELIMITD_LOG_FORMAT"); format != "" {
		config.Logging.Format = format
	}

	if output := os.Getenv("RATELIMITD_LOG_OUTPUT"); output != "" {
		config.Logging.Output = output
	}

	if filePath := os.Getenv("RATELIMITD_LOG_FILE_PATH"); filePath != "" {
		config.Logging.FilePath = filePath
	}

	if maxSize := os.Getenv("RATELIMITD_LOG_MAX_SIZE"); maxSize != "" {
		if size, err := strconv.Atoi(maxSize); err == nil {
			config.Logging.MaxSize = size
		}
	}

	if maxBackups := os.Getenv("RATELIMITD_LOG_MAX_BACKUPS"); maxBackups != "" {
		if backups, err := strconv.Atoi(maxBackups); err == nil {
			config.Logging.MaxBackups = backups
		}
	}

	if maxAge := os.Getenv("RATELIMITD_LOG_MAX_AGE"); maxAge != "" {
		if age, err := strconv.Atoi(maxAge); err == nil {
			config.Logging.MaxAge = age
		}
	}

	if compress := os.Getenv("RATELIMITD_LOG_COMPRESS"); compress != "" {
		config.Logging.Compress = strings.ToLower(compress) == "true"
	}

	// Observability configuration
	if name := os.Getenv("RATELIMITD_SERVICE_NAME"); name != "" {
		config.Observability.ServiceName = name
	}

	if tracing := os.Getenv("RATELIMITD_TRACING_ENABLED"); tracing != "" {
		config.Observability.Tracing.Enabled = strings.ToLower(tracing) == "true"
	}

	if exporter := os.Getenv("RATELIMITD_TRACING_EXPORTER"); exporter != "" {
		config.Observability.Tracing.Exporter = exporter
	}

	if endpoint := os.Getenv("RATELIMITD_OTLP_ENDPOINT"); endpoint != "" {
		config.Observability.Tracing.OTLPEndpoint = endpoint
	}

	if rate := os.Getenv("RATELIMITD_TRACING_SAMPLE_RATE"); rate != "" {
		if f, err := strconv.ParseFloat(rate, 64); err == nil {
			config.Observability.Tracing.SampleRate = f
		}
	}

	// Metrics configuration
	if metrics := os.Getenv("RATELIMITD_METRICS_ENABLED"); metrics != "" {
		config.Metrics.Enabled = strings.ToLower(metrics) == "true"
	}

	if path := os.Getenv("RATELIMITD_METRICS_PATH"); path != "" {
		config.Metrics.Path = path
	}

	if port := os.Getenv("RATELIMITD_METRICS_PORT"); port != "" {
		if p, err := strconv.Atoi(port); err == nil {
			config.Metrics.Port = p
		}
	}
}

// SaveExample saves an example configuration file
func SaveExample(filePath string) error {
	// Create directory if it doesn't exist
	if err := os.MkdirAll(filepath.Dir(filePath), 0755); err != nil {
		return fmt.Errorf("failed to create directory: %w", err)
	}

	// Get default config with some example values
	config := models.NewDefaultConfig()

	// Example TLS configuration
	config.Server.TLSEnabled = false
	config.Server.TLSCertFile = "/path/to/cert.pem"
	config.Server.TLSKeyFile = "/path/to/key.pem"

	// Example action checker backed by Redis for multi-instance deployments
	config.Security.ActionCheck.Type = models.ActionCheckerRedis
	config.Security.ActionCheck.RedisAddr = "localhost:6379"

	// Marshal to YAML
	data, err := yaml.Marshal(config)
	if err != nil {
		return fmt.Errorf("failed to marshal config to YAML: %w", err)
	}

	// Write to file
	if err := os.WriteFile(filePath, data, 0644); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}

	return nil
}
