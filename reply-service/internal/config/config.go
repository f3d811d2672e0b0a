package config

import (
	"fmt"
	"os"
	"time"

	"writemystory/pkg/config"
)

type Config struct {
	DB        config.DBConfig     `yaml:"db"`
	MQ        config.MQConfig     `yaml:"mq"`
	Redis     config.RedisConfig  `yaml:"redis"`
	JWT       config.JWTConfig    `yaml:"jwt"`
	Server    config.ServerConfig `yaml:"server"`
	Otel      config.OtelConfig   `yaml:"otel"`
	Reply     ReplyConfig         `yaml:"reply"`
	Twilio    TwilioConfig        `yaml:"twilio"`
	Postmark  PostmarkConfig      `yaml:"postmark"`
	Outbox    OutboxConfig        `yaml:"outbox"`
	Consumer  ConsumerConfig      `yaml:"consumer"`
	Scheduler SchedulerConfig     `yaml:"scheduler"`
}

type ReplyConfig struct {
	// keep email replies that matched no story
	PersistUnmatchedEmail bool `yaml:"persist_unmatched_email"`
	// datastore budget for one webhook request
	RequestTimeoutSeconds int `yaml:"request_timeout_seconds"`
}

type TwilioConfig struct {
	AccountSID string `yaml:"account_sid"`
	AuthToken  string `yaml:"auth_token"`
	// public URL Twilio posts to, used for signature checks behind a proxy
	WebhookURL       string `yaml:"webhook_url"`
	MediaTimeoutSecs int    `yaml:"media_timeout_seconds"`
	MediaMaxBytes    int64  `yaml:"media_max_bytes"`
}

// PostmarkConfig basic auth expected on the inbound webhook; empty disables the check
type PostmarkConfig struct {
	WebhookUser     string `yaml:"webhook_user"`
	WebhookPassword string `yaml:"webhook_password"`
}

type OutboxConfig struct {
	IntervalMs int `yaml:"interval_ms"`
	BatchSize  int `yaml:"batch_size"`
	MaxRetries int `yaml:"max_retries"`
}

type ConsumerConfig struct {
	Queue         string `yaml:"queue"`
	MaxRetries    int    `yaml:"max_retries"`
	DedupTTLHours int    `yaml:"dedup_ttl_hours"`
}

type SchedulerConfig struct {
	OutboxReplaySpec    string `yaml:"outbox_replay_spec"`
	OutboxReplayLimit   int    `yaml:"outbox_replay_limit"`
	UnmatchedReportSpec string `yaml:"unmatched_report_spec"`
	UnmatchedAgeHours   int    `yaml:"unmatched_age_hours"`
}

// Load reads config/<CONFIG_ENV>.yaml over base.yaml, then applies environment overrides
func Load() (*Config, error) {
	env := config.GetConfigEnv()
	configDir := config.GetEnv("CONFIG_DIR", "config")

	var cfg Config
	if err := config.Decode(env, configDir, &cfg); err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}

	config.OverrideDBFromEnv(&cfg.DB)
	config.OverrideMQFromEnv(&cfg.MQ)
	config.OverrideRedisFromEnv(&cfg.Redis)
	config.OverrideJWTFromEnv(&cfg.JWT)
	config.OverrideServerFromEnv(&cfg.Server)
	config.OverrideOtelFromEnv(&cfg.Otel)
	overrideTwilioFromEnv(&cfg.Twilio)

	cfg.applyDefaults()
	return &cfg, nil
}

func overrideTwilioFromEnv(cfg *TwilioConfig) {
	if sid := os.Getenv("TWILIO_ACCOUNT_SID"); sid != "" {
		cfg.AccountSID = sid
	}
	if token := os.Getenv("TWILIO_AUTH_TOKEN"); token != "" {
		cfg.AuthToken = token
	}
}

func (c *Config) applyDefaults() {
	if c.Server.Port == "" {
		c.Server.Port = ":8080"
	}
	if c.Otel.ServiceName == "" {
		c.Otel.ServiceName = "reply-service"
	}
	if c.Reply.RequestTimeoutSeconds <= 0 {
		c.Reply.RequestTimeoutSeconds = 10
	}
	if c.Outbox.IntervalMs <= 0 {
		c.Outbox.IntervalMs = 1000
	}
	if c.Outbox.BatchSize <= 0 {
		c.Outbox.BatchSize = 100
	}
	if c.Outbox.MaxRetries <= 0 {
		c.Outbox.MaxRetries = 5
	}
	if c.Consumer.Queue == "" {
		c.Consumer.Queue = "reply-service.reply.received"
	}
	if c.Consumer.MaxRetries <= 0 {
		c.Consumer.MaxRetries = 5
	}
	if c.Consumer.DedupTTLHours <= 0 {
		c.Consumer.DedupTTLHours = 24
	}
	if c.Scheduler.OutboxReplayLimit <= 0 {
		c.Scheduler.OutboxReplayLimit = 50
	}
	if c.Scheduler.UnmatchedAgeHours <= 0 {
		c.Scheduler.UnmatchedAgeHours = 24
	}
}

func (c *Config) RequestTimeout() time.Duration {
	return time.Duration(c.Reply.RequestTimeoutSeconds) * time.Second
}

func (c *Config) OutboxInterval() time.Duration {
	return time.Duration(c.Outbox.IntervalMs) * time.Millisecond
}

func (c *Config) DedupTTL() time.Duration {
	return time.Duration(c.Consumer.DedupTTLHours) * time.Hour
}

func (c *Config) UnmatchedAge() time.Duration {
	return time.Duration(c.Scheduler.UnmatchedAgeHours) * time.Hour
}

func (c *Config) MediaTimeout() time.Duration {
	return time.Duration(c.Twilio.MediaTimeoutSecs) * time.Second
}
