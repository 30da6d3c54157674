package config

import (
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

type Config struct {
	Server struct {
		Port string `yaml:"port"`
	} `yaml:"server"`
	Redis struct {
		Addr     string `yaml:"addr"`
		Password string `yaml:"password"`
		DB       int    `yaml:"db"`
		TTL      string `yaml:"ttl"`
	} `yaml:"redis"`
	Postgres struct {
		URL string `yaml:"url"`
	} `yaml:"postgres"`
	Pool struct {
		TTL string `yaml:"ttl"`
	} `yaml:"pool"`
	Auth struct {
		BcryptCost  int `yaml:"bcrypt_cost"`
		MaxAttempts int `yaml:"max_attempts"`
		Seed        struct {
			AdminUsername     string `yaml:"admin_username"`
			AdminPassword     string `yaml:"admin_password"`
			CandidateUsername string `yaml:"candidate_username"`
			CandidatePassword string `yaml:"candidate_password"`
		} `yaml:"seed"`
	} `yaml:"auth"`
	Exam struct {
		AutosaveEvery int    `yaml:"autosave_every"`
		Tick          string `yaml:"tick"`
	} `yaml:"exam"`
	Telegram struct {
		Token  string `yaml:"token"`
		ChatID int64  `yaml:"chat_id"`
		URL    string `yaml:"url"`
	} `yaml:"telegram"`
}

// Load reads YAML config from path and fills in defaults for missing values.
func Load(path string) (Config, error) {
	cfg := Config{}
	data, err := os.ReadFile(path)
	if err != nil {
		return cfg, err
	}
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return cfg, err
	}
	cfg.applyDefaults()
	return cfg, nil
}

// Default is the configuration used when no file is present.
func Default() Config {
	cfg := Config{}
	cfg.applyDefaults()
	return cfg
}

func (c *Config) applyDefaults() {
	if c.Server.Port == "" {
		c.Server.Port = "8080"
	}
	if c.Auth.MaxAttempts <= 0 {
		c.Auth.MaxAttempts = 5
	}
	if c.Auth.Seed.AdminUsername == "" {
		c.Auth.Seed.AdminUsername = "admin"
	}
	if c.Auth.Seed.AdminPassword == "" {
		c.Auth.Seed.AdminPassword = "admin123"
	}
	if c.Auth.Seed.CandidateUsername == "" {
		c.Auth.Seed.CandidateUsername = "student1"
	}
	if c.Auth.Seed.CandidatePassword == "" {
		c.Auth.Seed.CandidatePassword = "pass123"
	}
	if c.Exam.AutosaveEvery <= 0 {
		c.Exam.AutosaveEvery = 30
	}
}

// TTLDuration parses a duration string or returns the fallback if empty.
func TTLDuration(raw string, fallback time.Duration) time.Duration {
	if raw == "" {
		return fallback
	}
	if d, err := time.ParseDuration(raw); err == nil {
		return d
	}
	return fallback
}
