package main

import (
	"errors"
	"fmt"
	"net/url"
	"os"
	"time"

	"github.com/joho/godotenv"
	"github.com/kelseyhightower/envconfig"
	"go.uber.org/zap/zapcore"
	"gopkg.in/yaml.v3"
)

const (
	defaultLogFolder     = "./logs"
	defaultLogMaxSize    = 10
	defaultJournalBucket = "journal"

	defaultRequestTimeout       = 30 * time.Second
	defaultShutdownTimeout      = 15 * time.Second
	defaultRateLimitIdleTimeout = 3 * time.Minute
)

// Config defines the structure of the configuration file.
type Config struct {
	GitCommit          string          `yaml:"git_commit" envconfig:"LIBROS_GIT_COMMIT"`
	GitTag             string          `yaml:"git_tag" envconfig:"LIBROS_GIT_TAG"`
	BuildTime          string          `yaml:"build_time" envconfig:"LIBROS_BUILD_TIME"`
	IsProduction       bool            `yaml:"is_production" envconfig:"LIBROS_IS_PRODUCTION"`
	LogLevel           zapcore.Level   `yaml:"log_level" envconfig:"LIBROS_LOG_LEVEL"`
	LogFolder          string          `yaml:"log_folder" envconfig:"LIBROS_LOG_FOLDER"`
	LogMaxSize         int             `yaml:"log_max_size" envconfig:"LIBROS_LOG_MAX_SIZE"`
	ProfilerEnable     bool            `yaml:"profiler_enable" envconfig:"LIBROS_PROFILER_ENABLE"`
	OpsEndpointsEnable bool            `yaml:"ops_endpoints_enable" envconfig:"LIBROS_OPS_ENDPOINTS_ENABLE"`
	Server             ServerConfig    `yaml:"server"`
	Backend            BackendConfig   `yaml:"backend"`
	RateLimit          RateLimitConfig `yaml:"rate_limit"`
	Journal            JournalConfig   `yaml:"journal"`
	Redis              RedisConfig     `yaml:"redis"`
	BoltDB             BoltDBConfig    `yaml:"boltdb"`
}

type ServerConfig struct {
	Host            string        `yaml:"host" envconfig:"LIBROS_SERVER_HOST"`
	Port            string        `yaml:"port" envconfig:"LIBROS_SERVER_PORT"`
	ReadTimeout     time.Duration `yaml:"read_timeout" envconfig:"LIBROS_SERVER_READ_TIMEOUT"`
	WriteTimeout    time.Duration `yaml:"write_timeout" envconfig:"LIBROS_SERVER_WRITE_TIMEOUT"`
	RequestTimeout  time.Duration `yaml:"request_timeout" envconfig:"LIBROS_SERVER_REQUEST_TIMEOUT"` // Time to wait for a request to finish
	ShutdownTimeout time.Duration `yaml:"shutdown_timeout" envconfig:"LIBROS_SERVER_SHUTDOWN_TIMEOUT"`
}

// BackendConfig points to the libros REST resource. A zero Timeout
// keeps the http client default which is no timeout at all.
type BackendConfig struct {
	BaseURL string        `yaml:"base_url" envconfig:"LIBROS_BACKEND_BASE_URL"`
	Timeout time.Duration `yaml:"timeout" envconfig:"LIBROS_BACKEND_TIMEOUT"`
}

type RateLimitConfig struct {
	Enable bool    `yaml:"enable" envconfig:"LIBROS_RATE_LIMIT_ENABLE"`
	Rate   float64 `yaml:"rate" envconfig:"LIBROS_RATE_LIMIT_RATE"` // requests per second and per IP
	Burst  int     `yaml:"burst" envconfig:"LIBROS_RATE_LIMIT_BURST"`

	// Peers allowed to set X-Real-IP or X-Forwarded-For. IPs or CIDR ranges.
	TrustedProxies []string      `yaml:"trusted_proxies" envconfig:"LIBROS_RATE_LIMIT_TRUSTED_PROXIES"`
	IdleTimeout    time.Duration `yaml:"idle_timeout" envconfig:"LIBROS_RATE_LIMIT_IDLE_TIMEOUT"` // Callers unseen for that long are forgotten
}

type JournalConfig struct {
	Enable bool `yaml:"enable" envconfig:"LIBROS_JOURNAL_ENABLE"`
}

type RedisConfig struct {
	Host          string        `yaml:"host" envconfig:"LIBROS_REDIS_HOST"`
	Port          string        `yaml:"port" envconfig:"LIBROS_REDIS_PORT"`
	DialTimeout   time.Duration `yaml:"dial_timeout" envconfig:"LIBROS_REDIS_DIAL_TIMEOUT"`
	ReadTimeout   time.Duration `yaml:"read_timeout" envconfig:"LIBROS_REDIS_READ_TIMEOUT"`
	WriteTimeout  time.Duration `yaml:"write_timeout" envconfig:"LIBROS_REDIS_WRITE_TIMEOUT"`
	PoolSize      int           `yaml:"pool_size" envconfig:"LIBROS_REDIS_POOL_SIZE"`
	PoolTimeout   time.Duration `yaml:"pool_timeout" envconfig:"LIBROS_REDIS_POOL_TIMEOUT"`
	Username      string        `yaml:"username" envconfig:"LIBROS_REDIS_USERNAME"`
	Password      string        `yaml:"password" envconfig:"LIBROS_REDIS_PASSWORD"`
	DatabaseIndex int           `yaml:"db_index" envconfig:"LIBROS_REDIS_DATABASE_INDEX"`
}

type BoltDBConfig struct {
	FilePath   string        `yaml:"filepath" envconfig:"LIBROS_BOLTDB_FILE_PATH"`
	Timeout    time.Duration `yaml:"timeout" envconfig:"LIBROS_BOLTDB_TIMEOUT"`
	BucketName string        `yaml:"bucket_name" envconfig:"LIBROS_BOLTDB_BUCKET_NAME"`
}

// Redacted returns a copy of the configuration safe to be exposed.
func (c Config) Redacted() Config {
	if c.Redis.Password != "" {
		c.Redis.Password = "*****"
	}
	return c
}

// LoadConfigFile provides an instance of config structure for the all application.
func LoadConfigFile(configFile string) (*Config, error) {
	file, err := os.Open(configFile)
	if err != nil {
		return nil, err
	}
	defer file.Close()
	cfg := &Config{}
	yd := yaml.NewDecoder(file)
	err = yd.Decode(cfg)
	if err != nil {
		return nil, err
	}
	return cfg, nil
}

// LoadConfigEnvs reads the environments variables and overrides the App config.
func LoadConfigEnvs(prefix string, config *Config) error {
	return envconfig.Process(prefix, config)
}

// InitConfig setup defaults values for non provided parameters
// and configures build tags values to be used if provided.
func InitConfig(config *Config, gitCommit, gitTag, buildTime string) error {
	if len(gitCommit) != 0 {
		config.GitCommit = gitCommit
	}

	if len(gitTag) != 0 {
		config.GitTag = gitTag
	}

	if len(buildTime) != 0 {
		config.BuildTime = buildTime
	}

	if len(config.LogFolder) == 0 {
		config.LogFolder = defaultLogFolder
	}

	if config.LogMaxSize <= 0 {
		config.LogMaxSize = defaultLogMaxSize
	}

	if len(config.Server.Host) == 0 || len(config.Server.Port) == 0 {
		return errors.New("make sure to set valid server address and port in configuration file")
	}

	if config.Server.RequestTimeout <= 0 {
		config.Server.RequestTimeout = defaultRequestTimeout
	}

	if config.Server.ShutdownTimeout <= 0 {
		config.Server.ShutdownTimeout = defaultShutdownTimeout
	}

	if len(config.Backend.BaseURL) == 0 {
		config.Backend.BaseURL = DefaultBaseURL
	}
	if u, err := url.Parse(config.Backend.BaseURL); err != nil || u.Scheme == "" || u.Host == "" {
		return fmt.Errorf("make sure to set a valid backend base url in configuration file: %q", config.Backend.BaseURL)
	}

	if config.RateLimit.Enable && (config.RateLimit.Rate <= 0 || config.RateLimit.Burst <= 0) {
		return errors.New("make sure to set positive rate and burst when rate limiting is enabled")
	}

	if _, err := ParseTrustedProxies(config.RateLimit.TrustedProxies); err != nil {
		return fmt.Errorf("make sure to set valid rate limit trusted proxies: %s", err)
	}

	if config.RateLimit.IdleTimeout <= 0 {
		config.RateLimit.IdleTimeout = defaultRateLimitIdleTimeout
	}

	if !config.Journal.Enable {
		return nil
	}

	if len(config.Redis.Host) == 0 || len(config.Redis.Port) == 0 {
		return errors.New("make sure to set valid redis address and port in configuration file")
	}

	if len(config.BoltDB.FilePath) == 0 {
		return errors.New("make sure to set valid boltdb file path in configuration file")
	}

	if len(config.BoltDB.BucketName) == 0 {
		config.BoltDB.BucketName = defaultJournalBucket
	}

	return nil
}

// LoadAndInitConfigs loads in order the configs from various predefined sources
// then build the App configuration data. The env file is optional.
func LoadAndInitConfigs(configFile, envFile, gitCommit, gitTag, buildTime string) (*Config, error) {
	// Setup the yaml configuration from file.
	config, err := LoadConfigFile(configFile)
	if err != nil {
		return config, fmt.Errorf("failed to load configurations from file: %s", err)
	}

	// Set the environment configuration.
	if _, err = os.Stat(envFile); err == nil {
		if err = godotenv.Load(envFile); err != nil {
			return config, fmt.Errorf("failed to set environment configurations: %s", err)
		}
	}

	// Use environment variables with prefix `LIBROS`.
	err = LoadConfigEnvs("LIBROS", config)
	if err != nil {
		return config, fmt.Errorf("failed to load configurations from environment: %s", err)
	}

	err = InitConfig(config, gitCommit, gitTag, buildTime)
	if err != nil {
		return config, fmt.Errorf("failed to initialize configurations: %s", err)
	}
	return config, nil
}
