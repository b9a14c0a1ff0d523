package config

import (
	"crypto/rand"
	"encoding/base64"
	"errors"
	"fmt"
	"io"
	"net/url"
	"os"
	"strconv"
	"strings"
	"time"

	"taxi-client/internal/general/contracts"

	"gopkg.in/yaml.v3"
)

type Config struct {
	API struct {
		BaseURL        string        `yaml:"base_url"`
		RequestTimeout time.Duration `yaml:"request_timeout"`
	} `yaml:"api"`
	Database struct {
		Enabled  bool   `yaml:"enabled"`
		Host     string `yaml:"host"`
		Port     int    `yaml:"port"`
		User     string `yaml:"user"`
		Password string `yaml:"password"`
		Name     string `yaml:"database"`
	} `yaml:"database"`
	RabbitMQ struct {
		Enabled  bool   `yaml:"enabled"`
		Host     string `yaml:"host"`
		Port     int    `yaml:"port"`
		User     string `yaml:"user"`
		Password string `yaml:"password"`
	} `yaml:"rabbitmq"`
	Push struct {
		Exchange      string        `yaml:"exchange"`
		Queue         string        `yaml:"queue"`
		Prefetch      int           `yaml:"prefetch"`
		MaxMessageAge time.Duration `yaml:"max_message_age"`
		ClockSkew     time.Duration `yaml:"clock_skew"`
	} `yaml:"push"`
	WebSocket struct {
		Port int `yaml:"port"`
	} `yaml:"websocket"`
	StubAPI struct {
		Port int `yaml:"port"`
	} `yaml:"stub_api"`
	JWT struct {
		SecretKey string        `yaml:"secret_key"`
		TTL       time.Duration `yaml:"ttl"`
	} `yaml:"jwt"`
}

// LoadFromFile loads config from a YAML file, applies env overrides and defaults, and validates.
func LoadFromFile(path string) (*Config, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open config file: %w", err)
	}
	defer file.Close()

	var cfg Config
	dec := yaml.NewDecoder(file)
	dec.KnownFields(true)
	if err := dec.Decode(&cfg); err != nil && !errors.Is(err, io.EOF) {
		return nil, fmt.Errorf("failed to parse config file: %w", err)
	}

	applyEnv(&cfg)
	applyDefaults(&cfg)

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	return &cfg, nil
}

// Default returns a config with defaults only; used by one-shot commands run without a file.
func Default() *Config {
	var cfg Config
	applyEnv(&cfg)
	applyDefaults(&cfg)
	return &cfg
}

// applyEnv lets deployment secrets and endpoints come from the environment.
func applyEnv(cfg *Config) {
	cfg.API.BaseURL = getEnv("TAXI_API_BASE_URL", cfg.API.BaseURL)
	cfg.Database.Password = getEnv("TAXI_DATABASE_PASSWORD", cfg.Database.Password)
	cfg.RabbitMQ.Password = getEnv("TAXI_RABBITMQ_PASSWORD", cfg.RabbitMQ.Password)
	cfg.JWT.SecretKey = getEnv("TAXI_JWT_SECRET", cfg.JWT.SecretKey)
	cfg.WebSocket.Port = getEnvInt("TAXI_WEBSOCKET_PORT", cfg.WebSocket.Port)
}

// applyDefaults sets safe defaults for some fields.
func applyDefaults(cfg *Config) {
	// API
	if cfg.API.BaseURL == "" {
		cfg.API.BaseURL = "http://localhost:3100/"
	}
	if !strings.HasSuffix(cfg.API.BaseURL, "/") {
		cfg.API.BaseURL += "/"
	}
	if cfg.API.RequestTimeout == 0 {
		cfg.API.RequestTimeout = 15 * time.Second
	}

	// Database
	if cfg.Database.Host == "" {
		cfg.Database.Host = "localhost"
	}
	if cfg.Database.Port == 0 {
		cfg.Database.Port = 5432
	}

	// RabbitMQ
	if cfg.RabbitMQ.Host == "" {
		cfg.RabbitMQ.Host = "localhost"
	}
	if cfg.RabbitMQ.Port == 0 {
		cfg.RabbitMQ.Port = 5672
	}

	// Push
	if cfg.Push.Exchange == "" {
		cfg.Push.Exchange = contracts.ExchangePushFanout
	}
	if cfg.Push.Queue == "" {
		cfg.Push.Queue = contracts.QueuePushNotifications
	}
	if cfg.Push.Prefetch == 0 {
		cfg.Push.Prefetch = 8
	}
	if cfg.Push.MaxMessageAge == 0 {
		cfg.Push.MaxMessageAge = 30 * time.Second
	}

	// Ports
	if cfg.WebSocket.Port == 0 {
		cfg.WebSocket.Port = 3200
	}
	if cfg.StubAPI.Port == 0 {
		cfg.StubAPI.Port = 3100
	}

	// JWT
	if cfg.JWT.TTL == 0 {
		cfg.JWT.TTL = 2 * time.Hour
	}
	if cfg.JWT.SecretKey == "" {
		key := make([]byte, 32)
		if _, err := rand.Read(key); err != nil {
			key = []byte(strconv.FormatInt(time.Now().UnixNano(), 10))
		}
		cfg.JWT.SecretKey = base64.StdEncoding.EncodeToString(key)
	}
}

// Validate checks required fields and basic ranges.
func (c *Config) Validate() error {
	var problems []string

	// API
	if u, err := url.Parse(c.API.BaseURL); err != nil || u.Scheme == "" || u.Host == "" {
		problems = append(problems, "api.base_url must be an absolute URL")
	}
	if c.API.RequestTimeout < 0 {
		problems = append(problems, "api.request_timeout must not be negative")
	}

	// DB
	if c.Database.Enabled {
		if c.Database.Port <= 0 || c.Database.Port > 65535 {
			problems = append(problems, "database.port must be in 1..65535")
		}
		if c.Database.User == "" {
			problems = append(problems, "database.user is required")
		}
		if c.Database.Password == "" {
			problems = append(problems, "database.password is required")
		}
		if c.Database.Name == "" {
			problems = append(problems, "database.database is required")
		}
	}

	// RabbitMQ
	if c.RabbitMQ.Enabled {
		if c.RabbitMQ.Port <= 0 || c.RabbitMQ.Port > 65535 {
			problems = append(problems, "rabbitmq.port must be in 1..65535")
		}
		if c.RabbitMQ.User == "" {
			problems = append(problems, "rabbitmq.user is required")
		}
		if c.RabbitMQ.Password == "" {
			problems = append(problems, "rabbitmq.password is required")
		}
	}

	// Push
	if c.Push.MaxMessageAge < 0 {
		problems = append(problems, "push.max_message_age must not be negative")
	}
	if c.Push.ClockSkew < 0 {
		problems = append(problems, "push.clock_skew must not be negative")
	}
	if c.Push.Prefetch < 0 {
		problems = append(problems, "push.prefetch must not be negative")
	}

	// Ports
	if c.WebSocket.Port <= 0 || c.WebSocket.Port > 65535 {
		problems = append(problems, "websocket.port must be in 1..65535")
	}
	if c.StubAPI.Port <= 0 || c.StubAPI.Port > 65535 {
		problems = append(problems, "stub_api.port must be in 1..65535")
	}

	if len(problems) > 0 {
		return errors.New(strings.Join(problems, "; "))
	}
	return nil
}

func getEnv(key, fallback string) string {
	if value, ok := os.LookupEnv(key); ok && value != "" {
		return value
	}
	return fallback
}

func getEnvInt(key string, fallback int) int {
	if value, ok := os.LookupEnv(key); ok {
		if intVal, err := strconv.Atoi(value); err == nil {
			return intVal
		}
	}
	return fallback
}
