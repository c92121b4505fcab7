package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/cavebatsofware/rate-limiter/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_WithValidConfigFile(t *testing.T) {
	tempDir := t.TempDir()
	configFile := filepath.Join(tempDir, "test_config.yaml")

	configContent := `
server:
  port: 8080
  host: "localhost"
  read_timeout: 30s
  write_timeout: 30s
  idle_timeout: 60s
  tls_enabled: false

security:
  rate_limit:
    requests_per_minute: 100
    block_duration: 900s
    grace_period: 2s
    cache_refund_ratio: 0.5
    error_penalty: 2.0
  screening:
    enabled: true
    path_patterns: ["\\.env$"]
    user_agent_patterns: ["(?i)sqlmap"]
  ip_resolver:
    strategy: "x_real_ip"
  action_check:
    type: "memory"
    cleanup_interval: 300s
    max_age: 86400s

logging:
  level: "debug"
  format: "json"
  output: "stdout"
  max_size: 50
  max_backups: 5
  max_age: 30
  compress: true

observability:
  service_name: "rate-limiter-test"
  tracing:
    enabled: false

metrics:
  enabled: true
  path: "/metrics"
  port: 9090
`

	err := os.WriteFile(configFile, []byte(configContent), 0644)
	require.NoError(t, err)

	config, err := Load(configFile)
	require.NoError(t, err)

	assert.Equal(t, 8080, config.Server.Port)
	assert.Equal(t, "localhost", config.Server.Host)
	assert.Equal(t, 30*time.Second, config.Server.ReadTimeout)
	assert.Equal(t, 30*time.Second, config.Server.WriteTimeout)
	assert.Equal(t, 60*time.Second, config.Server.IdleTimeout)
	assert.False(t, config.Server.TLSEnabled)

	assert.Equal(t, 100, config.Security.RateLimit.RequestsPerMinute)
	assert.Equal(t, 900*time.Second, config.Security.RateLimit.BlockDuration)
	assert.Equal(t, 2*time.Second, config.Security.RateLimit.GracePeriod)
	assert.Equal(t, 0.5, config.Security.RateLimit.CacheRefundRatio)
	assert.Equal(t, 2.0, config.Security.RateLimit.ErrorPenalty)

	assert.True(t, config.Security.Screening.Enabled)
	assert.Equal(t, []string{`\.env$`}, config.Security.Screening.PathPatterns)
	assert.Equal(t, []string{"(?i)sqlmap"}, config.Security.Screening.UserAgentPatterns)

	assert.Equal(t, "x_real_ip", config.Security.IpResolver.Strategy)
	assert.Equal(t, "memory", config.Security.ActionCheck.Type)

	assert.Equal(t, "debug", config.Logging.Level)
	assert.Equal(t, "json", config.Logging.Format)
	assert.Equal(t, "stdout", config.Logging.Output)
	assert.Equal(t, 50, config.Logging.MaxSize)
	assert.Equal(t, 5, config.Logging.MaxBackups)
	assert.Equal(t, 30, config.Logging.MaxAge)
	assert.True(t, config.Logging.Compress)

	assert.Equal(t, "rate-limiter-test", config.Observability.ServiceName)
	assert.False(t, config.Observability.Tracing.Enabled)

	assert.True(t, config.Metrics.Enabled)
	assert.Equal(t, "/metrics", config.Metrics.Path)
	assert.Equal(t, 9090, config.Metrics.Port)
}

func TestLoad_WithDefaults(t *testing.T) {
	tempDir := t.TempDir()
	configFile := filepath.Join(tempDir, "minimal_config.yaml")

	configContent := `
server:
  port: 3000
`

	err := os.WriteFile(configFile, []byte(configContent), 0644)
	require.NoError(t, err)

	config, err := Load(configFile)
	require.NoError(t, err)

	assert.Equal(t, 3000, config.Server.Port)
	assert.Equal(t, "0.0.0.0", config.Server.Host)
	assert.Equal(t, 30*time.Second, config.Server.ReadTimeout)
	assert.Equal(t, 30*time.Second, config.Server.WriteTimeout)
	assert.Equal(t, 60*time.Second, config.Server.IdleTimeout)
	assert.False(t, config.Server.TLSEnabled)

	assert.Equal(t, 50, config.Security.RateLimit.RequestsPerMinute)
	assert.Equal(t, 15*time.Minute, config.Security.RateLimit.BlockDuration)
	assert.Equal(t, 1*time.Second, config.Security.RateLimit.GracePeriod)

	assert.Equal(t, "info", config.Logging.Level)
	assert.Equal(t, "json", config.Logging.Format)
	assert.Equal(t, "stdout", config.Logging.Output)

	assert.True(t, config.Metrics.Enabled)
	assert.Equal(t, "/metrics", config.Metrics.Path)
	assert.Equal(t, 9090, config.Metrics.Port)
}

func TestLoad_WithEnvironmentVariables(t *testing.T) {
	originalEnv := map[string]string{
		"RATELIMITD_PORT":                   os.Getenv("RATELIMITD_PORT"),
		"RATELIMITD_HOST":                   os.Getenv("RATELIMITD_HOST"),
		"RATELIMITD_REQUESTS_PER_MINUTE":    os.Getenv("RATELIMITD_REQUESTS_PER_MINUTE"),
		"RATELIMITD_LOG_LEVEL":              os.Getenv("RATELIMITD_LOG_LEVEL"),
	}

	defer func() {
		for key, value := range originalEnv {
			if value == "" {
				os.Unsetenv(key)
			} else {
				os.Setenv(key, value)
			}
		}
	}()

	os.Setenv("RATELIMITD_PORT", "9999")
	os.Setenv("RATELIMITD_HOST", "127.0.0.1")
	os.Setenv("RATELIMITD_REQUESTS_PER_MINUTE", "200")
	os.Setenv("RATELIMITD_LOG_LEVEL", "warn")

	tempDir := t.TempDir()
	configFile := filepath.Join(tempDir, "env_config.yaml")

	configContent := `
server:
  port: 8080
  host: "localhost"

security:
  rate_limit:
    requests_per_minute: 50

logging:
  level: "info"
`

	err := os.WriteFile(configFile, []byte(configContent), 0644)
	require.NoError(t, err)

	config, err := Load(configFile)
	require.NoError(t, err)

	assert.Equal(t, 9999, config.Server.Port)
	assert.Equal(t, "127.0.0.1", config.Server.Host)
	assert.Equal(t, 200, config.Security.RateLimit.RequestsPerMinute)
	assert.Equal(t, "warn", config.Logging.Level)
}

func TestLoad_NonExistentFile(t *testing.T) {
	_, err := Load("/non/existent/path.yaml")
	assert.Error(t, err)
	assert.Contains(t, err.Error(), "config file not found")
}

func TestLoad_InvalidYAML(t *testing.T) {
	tempDir := t.TempDir()
	configFile := filepath.Join(tempDir, "invalid.yaml")

	invalidContent := `
server:
  port: 8080
  invalid: [unclosed array
`

	err := os.WriteFile(configFile, []byte(invalidContent), 0644)
	require.NoError(t, err)

	_, err = Load(configFile)
	assert.Error(t, err)
	assert.Contains(t, err.Error(), "failed to parse YAML config")
}

func TestLoad_EmptyConfigFile(t *testing.T) {
	tempDir := t.TempDir()
	configFile := filepath.Join(tempDir, "empty.yaml")

	err := os.WriteFile(configFile, []byte(""), 0644)
	require.NoError(t, err)

	config, err := Load(configFile)
	require.NoError(t, err)

	assert.Equal(t, 8080, config.Server.Port)
	assert.Equal(t, "0.0.0.0", config.Server.Host)
	assert.Equal(t, "memory", config.Security.ActionCheck.Type)
}

func TestLoad_WithTLSConfig(t *testing.T) {
	tempDir := t.TempDir()
	configFile := filepath.Join(tempDir, "tls_config.yaml")

	configContent := `
server:
  port: 8443
  tls_enabled: true
  tls_cert_file: "/path/to/cert.pem"
  tls_key_file: "/path/to/key.pem"
`

	err := os.WriteFile(configFile, []byte(configContent), 0644)
	require.NoError(t, err)

	config, err := Load(configFile)
	require.NoError(t, err)

	assert.Equal(t, 8443, config.Server.Port)
	assert.True(t, config.Server.TLSEnabled)
	assert.Equal(t, "/path/to/cert.pem", config.Server.TLSCertFile)
	assert.Equal(t, "/path/to/key.pem", config.Server.TLSKeyFile)
}

func TestLoad_WithRedisActionChecker(t *testing.T) {
	tempDir := t.TempDir()
	configFile := filepath.Join(tempDir, "redis_config.yaml")

	configContent := `
server:
  port: 8080

security:
  action_check:
    type: "redis"
    redis_addr: "localhost:6379"
    redis_password: "secret"
    redis_db: 1
`

	err := os.WriteFile(configFile, []byte(configContent), 0644)
	require.NoError(t, err)

	config, err := Load(configFile)
	require.NoError(t, err)

	assert.Equal(t, "redis", config.Security.ActionCheck.Type)
	assert.Equal(t, "localhost:6379", config.Security.ActionCheck.RedisAddr)
	assert.Equal(t, "secret", config.Security.ActionCheck.RedisPassword)
	assert.Equal(t, 1, config.Security.ActionCheck.RedisDB)
}

func TestLoad_WithFileLogging(t *testing.T) {
	tempDir := t.TempDir()
	configFile := filepath.Join(tempDir, "file_logging_config.yaml")

	configContent := `
server:
  port: 8080

logging:
  level: "error"
  format: "text"
  output: "file"
  file_path: "/var/log/ratelimitd.log"
  max_size: 200
  max_backups: 10
  max_age: 60
  compress: false
`

	err := os.WriteFile(configFile, []byte(configContent), 0644)
	require.NoError(t, err)

	config, err := Load(configFile)
	require.NoError(t, err)

	assert.Equal(t, "error", config.Logging.Level)
	assert.Equal(t, "text", config.Logging.Format)
	assert.Equal(t, "file", config.Logging.Output)
	assert.Equal(t, "/var/log/ratelimitd.log", config.Logging.FilePath)
	assert.Equal(t, 200, config.Logging.MaxSize)
	assert.Equal(t, 10, config.Logging.MaxBackups)
	assert.Equal(t, 60, config.Logging.MaxAge)
	assert.False(t, config.Logging.Compress)
}

func TestLoad_DeprecatedKeysDoNotBreakLoad(t *testing.T) {
	tempDir := t.TempDir()
	configFile := filepath.Join(tempDir, "deprecated.yaml")

	configContent := `
server:
  port: 8080
  cors:
    enabled: true

security:
  jwt_secret: "leftover"
  trusted_proxies: ["10.0.0.0/8"]
  api_keys:
    - key: "leftover-key"

storage:
  type: "json"

cache:
  enabled: true
`

	err := os.WriteFile(configFile, []byte(configContent), 0644)
	require.NoError(t, err)

	config, err := Load(configFile)
	require.NoError(t, err)
	assert.Equal(t, 8080, config.Server.Port)
}

func TestValidate_ValidConfig(t *testing.T) {
	config := models.NewDefaultConfig()
	err := config.Validate()
	assert.NoError(t, err)
}

func TestValidate_InvalidPort(t *testing.T) {
	config := models.NewDefaultConfig()
	config.Server.Port = 0

	err := config.Validate()
	assert.Error(t, err)
	assert.Contains(t, err.Error(), "port must be between 1 and 65535")
}

func TestValidate_InvalidRequestsPerMinute(t *testing.T) {
	config := models.NewDefaultConfig()
	config.Security.RateLimit.RequestsPerMinute = 0

	err := config.Validate()
	assert.Error(t, err)
	assert.Contains(t, err.Error(), "requests per minute must be positive")
}

func TestValidate_InvalidActionCheckerBackend(t *testing.T) {
	config := models.NewDefaultConfig()
	config.Security.ActionCheck.Type = "carrier-pigeon"

	err := config.Validate()
	assert.Error(t, err)
	assert.Contains(t, err.Error(), "invalid action checker backend")
}

func TestValidate_TLSEnabledWithoutCerts(t *testing.T) {
	config := models.NewDefaultConfig()
	config.Server.TLSEnabled = true

	err := config.Validate()
	assert.Error(t, err)
	assert.Contains(t, err.Error(), "TLS cert file is required when TLS is enabled")
}

func TestSaveExample(t *testing.T) {
	tempDir := t.TempDir()
	path := filepath.Join(tempDir, "example.yaml")

	err := SaveExample(path)
	require.NoError(t, err)

	config, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "redis", config.Security.ActionCheck.Type)
	assert.Equal(t, "localhost:6379", config.Security.ActionCheck.RedisAddr)
}
