package config

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

type Config struct {
	HTTP    HTTPConfig    `yaml:"http"`
	Backend BackendConfig `yaml:"backend"`
	Auth    AuthConfig    `yaml:"auth"`
	Redis   RedisConfig   `yaml:"redis"`
	Kafka   KafkaConfig   `yaml:"kafka"`
	QR      QRConfig      `yaml:"qr"`
	Agent   AgentConfig   `yaml:"agent"`
}

type HTTPConfig struct {
	Address string `yaml:"address"`
}

type BackendConfig struct {
	BaseURL        string `yaml:"base_url"`
	TimeoutSeconds int    `yaml:"timeout_seconds"`
}

func (b BackendConfig) Timeout() time.Duration {
	if b.TimeoutSeconds <= 0 {
		return 10 * time.Second
	}
	return time.Duration(b.TimeoutSeconds) * time.Second
}

type AuthConfig struct {
	AccessToken  string `yaml:"access_token"`
	RefreshToken string `yaml:"refresh_token"`
	RefreshPath  string `yaml:"refresh_path"`
}

type RedisConfig struct {
	Addr     string `yaml:"addr"`
	Password string `yaml:"password"`
	DB       int    `yaml:"db"`
}

type KafkaConfig struct {
	Brokers             []string `yaml:"brokers"`
	WorkEventsTopic     string   `yaml:"work_events_topic"`
	BookingUpdatesTopic string   `yaml:"booking_updates_topic"`
	GroupID             string   `yaml:"group_id"`
}

type QRConfig struct {
	PollIntervalSeconds int `yaml:"poll_interval_seconds"`
	MaxFailures         int `yaml:"max_failures"`
}

func (q QRConfig) PollInterval() time.Duration {
	if q.PollIntervalSeconds <= 0 {
		return 2 * time.Second
	}
	return time.Duration(q.PollIntervalSeconds) * time.Second
}

type AgentConfig struct {
	RefreshSweepMinutes int `yaml:"refresh_sweep_minutes"`
	ListPerPage         int `yaml:"list_per_page"`
	CacheTTLSeconds     int `yaml:"cache_ttl_seconds"`
}

func LoadConfig(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config: %w", err)
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}

	if cfg.QR.MaxFailures <= 0 {
		cfg.QR.MaxFailures = 10
	}
	if cfg.Agent.ListPerPage <= 0 {
		cfg.Agent.ListPerPage = 50
	}
	if cfg.Agent.RefreshSweepMinutes <= 0 {
		cfg.Agent.RefreshSweepMinutes = 5
	}

	return &cfg, nil
}
