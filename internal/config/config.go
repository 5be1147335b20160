package config

import (
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/kelseyhightower/envconfig"
	"gopkg.in/yaml.v2"
)

// Config represents the complete application configuration
type Config struct {
	Server    ServerConfig    `yaml:"server" envconfig:"SERVER"`
	Security  SecurityConfig  `yaml:"security" envconfig:"SECURITY"`
	Logging   LoggingConfig   `yaml:"logging" envconfig:"LOGGING"`
	Upstream  UpstreamConfig  `yaml:"upstream" envconfig:"UPSTREAM"`
	Paths     PathsConfig     `yaml:"paths" envconfig:"PATHS"`
	WebSocket WebSocketConfig `yaml:"websocket" envconfig:"WEBSOCKET"`
}

// ServerConfig contains HTTP server configuration
type ServerConfig struct {
	Port            int           `yaml:"port" envconfig:"PORT" default:"4000"`
	ReadTimeout     time.Duration `yaml:"read_timeout" envconfig:"READ_TIMEOUT" default:"15s"`
	WriteTimeout    time.Duration `yaml:"write_timeout" envconfig:"WRITE_TIMEOUT" default:"60s"`
	IdleTimeout     time.Duration `yaml:"idle_timeout" envconfig:"IDLE_TIMEOUT" default:"60s"`
	MaxHeaderBytes  int           `yaml:"max_header_bytes" envconfig:"MAX_HEADER_BYTES" default:"1048576"`
	ShutdownTimeout time.Duration `yaml:"shutdown_timeout" envconfig:"SHUTDOWN_TIMEOUT" default:"30s"`
	RequestTimeout  time.Duration `yaml:"request_timeout" envconfig:"REQUEST_TIMEOUT" default:"45s"`
}

// SecurityConfig contains security-related configuration
type SecurityConfig struct {
	AllowedOrigins []string        `yaml:"allowed_origins" envconfig:"ALLOWED_ORIGINS" default:"*"`
	EnableCORS     bool            `yaml:"enable_cors" envconfig:"ENABLE_CORS" default:"true"`
	RateLimit      RateLimitConfig `yaml:"rate_limit" envconfig:"RATE_LIMIT"`
}

// RateLimitConfig contains rate limiting configuration
type RateLimitConfig struct {
	Enabled bool    `yaml:"enabled" envconfig:"ENABLED" default:"true"`
	RPS     float64 `yaml:"rps" envconfig:"RPS" default:"20"`
	Burst   int     `yaml:"burst" envconfig:"BURST" default:"40"`
}

// LoggingConfig contains logging configuration
type LoggingConfig struct {
	Level    string `yaml:"level" envconfig:"LEVEL" default:"info"`
	Format   string `yaml:"format" envconfig:"FORMAT" default:"json"`
	Output   string `yaml:"output" envconfig:"OUTPUT" default:"stdout"`
	FilePath string `yaml:"file_path" envconfig:"FILE_PATH" default:"logs/app.log"`
}

// UpstreamConfig describes the Data360 API the relay forwards to
type UpstreamConfig struct {
	BaseURL     string        `yaml:"base_url" envconfig:"BASE_URL" default:"https://data360api.worldbank.org"`
	DataPath    string        `yaml:"data_path" envconfig:"DATA_PATH" default:"/data360/data"`
	RegionCode  string        `yaml:"region_code" envconfig:"REGION_CODE" default:"MYS"`
	Timeout     time.Duration `yaml:"timeout" envconfig:"TIMEOUT" default:"30s"`
	CatalogFile string        `yaml:"catalog_file" envconfig:"CATALOG_FILE"`
	// FetchConcurrency bounds the per-view fan-out.
	FetchConcurrency int `yaml:"fetch_concurrency" envconfig:"FETCH_CONCURRENCY" default:"5"`
}

// PathsConfig contains file system paths configuration
type PathsConfig struct {
	ExecutableDir string `yaml:"executable_dir" envconfig:"EXECUTABLE_DIR"`
	ExportsDir    string `yaml:"exports_dir" envconfig:"EXPORTS_DIR" default:"exports"`
	LogsDir       string `yaml:"logs_dir" envconfig:"LOGS_DIR" default:"logs"`
}

// WebSocketConfig contains WebSocket configuration
type WebSocketConfig struct {
	ReadBufferSize  int           `yaml:"read_buffer_size" envconfig:"READ_BUFFER_SIZE" default:"1024"`
	WriteBufferSize int           `yaml:"write_buffer_size" envconfig:"WRITE_BUFFER_SIZE" default:"1024"`
	WriteWait       time.Duration `yaml:"write_wait" envconfig:"WRITE_WAIT" default:"10s"`
}

// Load loads configuration from environment variables and config file
func Load() (*Config, error) {
	return LoadFrom(getConfigFilePath())
}

// LoadFrom loads configuration from the environment, merged over the
// YAML file at configFile when it exists.
func LoadFrom(configFile string) (*Config, error) {
	var cfg Config

	if err := envconfig.Process(EnvPrefix, &cfg); err != nil {
		return nil, fmt.Errorf("failed to load config from env: %w", err)
	}

	if configFile != "" {
		if FileExists(configFile) {
			fileConfig, err := loadFromFile(configFile)
			if err != nil {
				return nil, fmt.Errorf("failed to load config from file: %w", err)
			}
			cfg = mergeConfigs(*fileConfig, cfg)
		}
	}

	if cfg.Paths.ExecutableDir == "" {
		dir, err := ExecutableDir()
		if err != nil {
			return nil, fmt.Errorf("failed to resolve paths: %w", err)
		}
		cfg.Paths.ExecutableDir = dir
	}

	if err := cfg.validate(); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}

	return &cfg, nil
}

// loadFromFile loads configuration from YAML file
func loadFromFile(filePath string) (*Config, error) {
	data, err := os.ReadFile(filePath)
	if err != nil {
		return nil, err
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, err
	}

	return &cfg, nil
}

// mergeConfigs merges file config with env config. A value set explicitly in
// the environment wins; otherwise a non-zero file value replaces the default.
func mergeConfigs(fileConfig, envConfig Config) Config {
	pick := func(key string) bool {
		_, ok := os.LookupEnv(EnvPrefix + "_" + key)
		return !ok
	}

	if pick("SERVER_PORT") && fileConfig.Server.Port != 0 {
		envConfig.Server.Port = fileConfig.Server.Port
	}
	if pick("SERVER_READ_TIMEOUT") && fileConfig.Server.ReadTimeout != 0 {
		envConfig.Server.ReadTimeout = fileConfig.Server.ReadTimeout
	}
	if pick("SERVER_WRITE_TIMEOUT") && fileConfig.Server.WriteTimeout != 0 {
		envConfig.Server.WriteTimeout = fileConfig.Server.WriteTimeout
	}
	if pick("SERVER_REQUEST_TIMEOUT") && fileConfig.Server.RequestTimeout != 0 {
		envConfig.Server.RequestTimeout = fileConfig.Server.RequestTimeout
	}
	if pick("SECURITY_ALLOWED_ORIGINS") && len(fileConfig.Security.AllowedOrigins) > 0 {
		envConfig.Security.AllowedOrigins = fileConfig.Security.AllowedOrigins
	}
	if pick("SECURITY_RATE_LIMIT_RPS") && fileConfig.Security.RateLimit.RPS != 0 {
		envConfig.Security.RateLimit.RPS = fileConfig.Security.RateLimit.RPS
	}
	if pick("SECURITY_RATE_LIMIT_BURST") && fileConfig.Security.RateLimit.Burst != 0 {
		envConfig.Security.RateLimit.Burst = fileConfig.Security.RateLimit.Burst
	}
	if pick("LOGGING_LEVEL") && fileConfig.Logging.Level != "" {
		envConfig.Logging.Level = fileConfig.Logging.Level
	}
	if pick("LOGGING_OUTPUT") && fileConfig.Logging.Output != "" {
		envConfig.Logging.Output = fileConfig.Logging.Output
	}
	if pick("LOGGING_FILE_PATH") && fileConfig.Logging.FilePath != "" {
		envConfig.Logging.FilePath = fileConfig.Logging.FilePath
	}
	if pick("UPSTREAM_BASE_URL") && fileConfig.Upstream.BaseURL != "" {
		envConfig.Upstream.BaseURL = fileConfig.Upstream.BaseURL
	}
	if pick("UPSTREAM_REGION_CODE") && fileConfig.Upstream.RegionCode != "" {
		envConfig.Upstream.RegionCode = fileConfig.Upstream.RegionCode
	}
	if pick("UPSTREAM_TIMEOUT") && fileConfig.Upstream.Timeout != 0 {
		envConfig.Upstream.Timeout = fileConfig.Upstream.Timeout
	}
	if pick("UPSTREAM_CATALOG_FILE") && fileConfig.Upstream.CatalogFile != "" {
		envConfig.Upstream.CatalogFile = fileConfig.Upstream.CatalogFile
	}
	if pick("UPSTREAM_FETCH_CONCURRENCY") && fileConfig.Upstream.FetchConcurrency != 0 {
		envConfig.Upstream.FetchConcurrency = fileConfig.Upstream.FetchConcurrency
	}
	if pick("PATHS_EXECUTABLE_DIR") && fileConfig.Paths.ExecutableDir != "" {
		envConfig.Paths.ExecutableDir = fileConfig.Paths.ExecutableDir
	}
	if pick("PATHS_EXPORTS_DIR") && fileConfig.Paths.ExportsDir != "" {
		envConfig.Paths.ExportsDir = fileConfig.Paths.ExportsDir
	}

	return envConfig
}

// validate validates the configuration
func (c *Config) validate() error {
	if c.Server.Port <= 0 || c.Server.Port > 65535 {
		return fmt.Errorf("invalid server port: %d", c.Server.Port)
	}

	if c.Server.ReadTimeout <= 0 {
		return fmt.Errorf("server read timeout must be positive")
	}

	if c.Server.WriteTimeout <= 0 {
		return fmt.Errorf("server write timeout must be positive")
	}

	if len(c.Security.AllowedOrigins) == 0 {
		return fmt.Errorf("at least one allowed origin must be specified")
	}

	u, err := url.Parse(c.Upstream.BaseURL)
	if err != nil || u.Scheme == "" || u.Host == "" {
		return fmt.Errorf("invalid upstream base url: %q", c.Upstream.BaseURL)
	}

	if strings.TrimSpace(c.Upstream.RegionCode) == "" {
		return fmt.Errorf("upstream region code must be set")
	}

	if c.Upstream.Timeout <= 0 {
		return fmt.Errorf("upstream timeout must be positive")
	}

	if c.Upstream.FetchConcurrency <= 0 {
		c.Upstream.FetchConcurrency = DefaultFetchConcurrency
	}

	if c.Logging.Format != "json" {
		c.Logging.Format = "json"
	}

	switch c.Logging.Output {
	case "stdout", "file", "both":
	default:
		c.Logging.Output = "stdout"
	}

	if c.Logging.FilePath == "" {
		c.Logging.FilePath = filepath.Join(DefaultLogsDir, "app.log")
	}

	return nil
}

// GetExportsDir returns the resolved exports directory path
func (c *Config) GetExportsDir() string {
	return c.resolve(c.Paths.ExportsDir)
}

// GetLogsDir returns the resolved logs directory path
func (c *Config) GetLogsDir() string {
	return c.resolve(c.Paths.LogsDir)
}

// GetCatalogFile returns the resolved catalog override, or "" when the
// embedded catalog should be used.
func (c *Config) GetCatalogFile() string {
	if c.Upstream.CatalogFile == "" {
		return ""
	}
	return c.resolve(c.Upstream.CatalogFile)
}

func (c *Config) resolve(p string) string {
	if filepath.IsAbs(p) || c.Paths.ExecutableDir == "" {
		return p
	}
	return filepath.Join(c.Paths.ExecutableDir, p)
}

// getConfigFilePath returns the path to the config file
func getConfigFilePath() string {
	if p := os.Getenv(EnvPrefix + "_CONFIG_FILE"); p != "" {
		return p
	}

	locations := []string{
		"config.yaml",
		"configs/config.yaml",
		"../configs/config.yaml",
	}

	for _, location := range locations {
		if FileExists(location) {
			return location
		}
	}

	return ""
}

// Default returns default configuration
func Default() *Config {
	return &Config{
		Server: ServerConfig{
			Port:            DefaultPort,
			ReadTimeout:     15 * time.Second,
			WriteTimeout:    60 * time.Second,
			IdleTimeout:     60 * time.Second,
			MaxHeaderBytes:  1 << 20,
			ShutdownTimeout: 30 * time.Second,
			RequestTimeout:  45 * time.Second,
		},
		Security: SecurityConfig{
			AllowedOrigins: []string{"*"},
			EnableCORS:     true,
			RateLimit: RateLimitConfig{
				Enabled: true,
				RPS:     20,
				Burst:   40,
			},
		},
		Logging: LoggingConfig{
			Level:    DefaultLogLevel,
			Format:   "json",
			Output:   "stdout",
			FilePath: "logs/app.log",
		},
		Upstream: UpstreamConfig{
			BaseURL:          DefaultUpstreamBaseURL,
			DataPath:         DefaultUpstreamDataPath,
			RegionCode:       DefaultRegionCode,
			Timeout:          DefaultUpstreamTimeout,
			FetchConcurrency: DefaultFetchConcurrency,
		},
		Paths: PathsConfig{
			ExportsDir: DefaultExportsDir,
			LogsDir:    DefaultLogsDir,
		},
		WebSocket: WebSocketConfig{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			WriteWait:       10 * time.Second,
		},
	}
}
