/*
Package config loads the loyalty engine configuration from a YAML file.

PURPOSE:
  One fully-specified configuration structure with every default resolved
  at load time. Nothing downstream ever re-defaults a field: a Config
  returned by Load is complete.

FILE FORMAT (all fields optional):

  server:
    port: 8080
  database:
    path: ecorewards.db
  scheduler:
    sweep_interval_hours: 24
    cooldown_days: 30
    due_in_days: 3
    send_timeout_seconds: 10
    max_concurrent: 4
  sms:
    account_sid: ""
    auth_token: ""
    from: ""
  email:
    server_token: ""
    from: noreply@ecorewards.com

Missing credentials select the log-only sender for that channel.
*/
package config

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

// Config is the full engine configuration.
type Config struct {
	Server    ServerConfig    `yaml:"server"`
	Database  DatabaseConfig  `yaml:"database"`
	Scheduler SchedulerConfig `yaml:"scheduler"`
	SMS       SMSConfig       `yaml:"sms"`
	Email     EmailConfig     `yaml:"email"`
}

type ServerConfig struct {
	Port int `yaml:"port"`
}

type DatabaseConfig struct {
	Path string `yaml:"path"`
}

type SchedulerConfig struct {
	SweepIntervalHours int `yaml:"sweep_interval_hours"`
	CooldownDays       int `yaml:"cooldown_days"`
	DueInDays          int `yaml:"due_in_days"`
	SendTimeoutSeconds int `yaml:"send_timeout_seconds"`
	MaxConcurrent      int `yaml:"max_concurrent"`
}

type SMSConfig struct {
	AccountSID string `yaml:"account_sid"`
	AuthToken  string `yaml:"auth_token"`
	From       string `yaml:"from"`
}

type EmailConfig struct {
	ServerToken string `yaml:"server_token"`
	From        string `yaml:"from"`
}

// SweepInterval returns the scheduler cadence as a duration.
func (c SchedulerConfig) SweepInterval() time.Duration {
	return time.Duration(c.SweepIntervalHours) * time.Hour
}

// SendTimeout returns the per-channel send bound as a duration.
func (c SchedulerConfig) SendTimeout() time.Duration {
	return time.Duration(c.SendTimeoutSeconds) * time.Second
}

// Default returns the fully-populated default configuration.
func Default() *Config {
	return &Config{
		Server:   ServerConfig{Port: 8080},
		Database: DatabaseConfig{Path: "ecorewards.db"},
		Scheduler: SchedulerConfig{
			SweepIntervalHours: 24,
			CooldownDays:       30,
			DueInDays:          3,
			SendTimeoutSeconds: 10,
			MaxConcurrent:      4,
		},
		Email: EmailConfig{From: "noreply@ecorewards.com"},
	}
}

// Load reads the config file at path. A missing file yields the defaults;
// a present file is merged over them, so every field is always populated.
func Load(path string) (*Config, error) {
	cfg := Default()

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return cfg, nil
		}
		return nil, fmt.Errorf("reading config %s: %w", path, err)
	}

	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parsing config %s: %w", path, err)
	}

	cfg.normalize()
	return cfg, nil
}

// normalize restores defaults for fields the file zeroed or omitted.
func (c *Config) normalize() {
	def := Default()
	if c.Server.Port <= 0 {
		c.Server.Port = def.Server.Port
	}
	if c.Database.Path == "" {
		c.Database.Path = def.Database.Path
	}
	if c.Scheduler.SweepIntervalHours <= 0 {
		c.Scheduler.SweepIntervalHours = def.Scheduler.SweepIntervalHours
	}
	if c.Scheduler.CooldownDays <= 0 {
		c.Scheduler.CooldownDays = def.Scheduler.CooldownDays
	}
	if c.Scheduler.DueInDays <= 0 {
		c.Scheduler.DueInDays = def.Scheduler.DueInDays
	}
	if c.Scheduler.SendTimeoutSeconds <= 0 {
		c.Scheduler.SendTimeoutSeconds = def.Scheduler.SendTimeoutSeconds
	}
	if c.Scheduler.MaxConcurrent <= 0 {
		c.Scheduler.MaxConcurrent = def.Scheduler.MaxConcurrent
	}
	if c.Email.From == "" {
		c.Email.From = def.Email.From
	}
}
