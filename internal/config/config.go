package config

import (
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

type Config struct {
	Server struct {
		Port         string `yaml:"port"`
		SecureCookie bool   `yaml:"secure_cookie"`
	} `yaml:"server"`
	Log struct {
		Mode string `yaml:"mode"`
	} `yaml:"log"`
	Auth struct {
		Secret   string `yaml:"secret"`
		Issuer   string `yaml:"issuer"`
		TokenTTL string `yaml:"token_ttl"`
	} `yaml:"auth"`
	Redis struct {
		Addr     string `yaml:"addr"`
		Password string `yaml:"password"`
		DB       int    `yaml:"db"`
		TTL      string `yaml:"ttl"`
	} `yaml:"redis"`
	Postgres struct {
		URL string `yaml:"url"`
	} `yaml:"postgres"`
	SQLite struct {
		Path string `yaml:"path"`
	} `yaml:"sqlite"`
	Quiz struct {
		TTL string `yaml:"ttl"`
	} `yaml:"quiz"`
	Wizard struct {
		SessionTTL string `yaml:"session_ttl"`
		// OnQuizMismatch is "reset" or "reject".
		OnQuizMismatch string `yaml:"on_quiz_mismatch"`
		// OptionValidation is "eager" or "lazy".
		OptionValidation string `yaml:"option_validation"`
	} `yaml:"wizard"`
	Notify struct {
		SendGrid struct {
			APIKey     string `yaml:"api_key"`
			BaseURL    string `yaml:"base_url"`
			FromEmail  string `yaml:"from_email"`
			FromName   string `yaml:"from_name"`
			MaxRetries int    `yaml:"max_retries"`
		} `yaml:"sendgrid"`
	} `yaml:"notify"`
}

// Load reads YAML config from path. QUIZ_JWT_SECRET and SENDGRID_API_KEY override
// the file so secrets can stay out of it.
func Load(path string) (Config, error) {
	cfg := Config{}
	data, err := os.ReadFile(path)
	if err != nil {
		return cfg, err
	}
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return cfg, err
	}
	if v := os.Getenv("QUIZ_JWT_SECRET"); v != "" {
		cfg.Auth.Secret = v
	}
	if v := os.Getenv("SENDGRID_API_KEY"); v != "" {
		cfg.Notify.SendGrid.APIKey = v
	}
	return cfg, nil
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
