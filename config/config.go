// Package config loads the SMSC process configuration from environment
// variables. It is imported only by cmd/smscd.
package config

import (
	"time"

	"github.com/caarlos0/env/v7"
)

// Config is the full set of environment-driven settings for the smscd
// binary.
type Config struct {
	Host               string        `env:"SMSC_HOST" envDefault:"0.0.0.0"`
	Port               int           `env:"SMSC_PORT" envDefault:"2775"`
	MetricsPort        int           `env:"SMSC_METRICS_PORT" envDefault:"9090"`
	SystemID           string        `env:"SMSC_SYSTEM_ID" envDefault:"SMSC"`
	EnquireLinkTimeout time.Duration `env:"SMSC_ENQUIRE_LINK_TIMEOUT" envDefault:"30s"`
	ResponseTimeout    time.Duration `env:"SMSC_RESPONSE_TIMEOUT" envDefault:"10s"`
	MaxDeliveryRetries int           `env:"SMSC_MAX_DELIVERY_RETRIES" envDefault:"3"`
	RetryBackoff       time.Duration `env:"SMSC_RETRY_BACKOFF" envDefault:"1s"`
	PendingReceiptTTL  time.Duration `env:"SMSC_PENDING_RECEIPT_TTL" envDefault:"48h"`
	IncomingQueueLimit int           `env:"SMSC_INCOMING_QUEUE_LIMIT" envDefault:"10000"`
	LogLevel           string        `env:"SMSC_LOG_LEVEL" envDefault:"info"`
}

// Load parses Config from the process environment.
func Load() (Config, error) {
	cfg := Config{}
	if err := env.Parse(&cfg); err != nil {
		return Config{}, err
	}
	return cfg, nil
}
