package config

import (
	// Local Packages
	errors "payflow/errors"
	models "payflow/models"

	// External Packages
	"github.com/shopspring/decimal"
)

var DefaultConfig = []byte(`
application: "payflow"

logger:
  level: "debug"

is_prod_mode: false

mongo:
  uri: "mongodb://localhost:27017"
  database: "payflow"

redis:
  uri: "localhost:6379"
  password: ""

kafka:
  brokers:
    - "localhost:9092"
  splits_topic: "split-tasks"
  status_topic: "gateway-status-events"
  records_per_poll: 1000
  consumer_name: "payflow"

retry:
  max_retries: 3
  base_delay_ms: 200
  max_delay_ms: 5000
  backoff_multiplier: 2.0
  attempt_timeout_ms: 10000

idempotency:
  ttl_hours: 24

fraud:
  enabled: true
  review_threshold: "1000"
  decline_threshold: "10000"
`)

type Config struct {
	Application string                 `koanf:"application"`
	Logger      Logger                 `koanf:"logger"`
	IsProdMode  bool                   `koanf:"is_prod_mode"`
	Mongo       Mongo                  `koanf:"mongo"`
	Redis       Redis                  `koanf:"redis"`
	Kafka       Kafka                  `koanf:"kafka"`
	Retry       Retry                  `koanf:"retry"`
	Idempotency Idempotency            `koanf:"idempotency"`
	Fraud       Fraud                  `koanf:"fraud"`
	Gateways    []models.GatewayConfig `koanf:"gateways"`
}

type Logger struct {
	Level string `koanf:"level"`
}

type Mongo struct {
	URI      string `koanf:"uri"`
	Database string `koanf:"database"`
}

type Redis struct {
	URI      string `koanf:"uri"`
	Password string `koanf:"password"`
}

type Kafka struct {
	Brokers        []string `koanf:"brokers"`
	SplitsTopic    string   `koanf:"splits_topic"`
	StatusTopic    string   `koanf:"status_topic"`
	RecordsPerPoll int      `koanf:"records_per_poll"`
	ConsumerName   string   `koanf:"consumer_name"`
}

type Retry struct {
	MaxRetries        int     `koanf:"max_retries"`
	BaseDelayMS       int     `koanf:"base_delay_ms"`
	MaxDelayMS        int     `koanf:"max_delay_ms"`
	BackoffMultiplier float64 `koanf:"backoff_multiplier"`
	AttemptTimeoutMS  int     `koanf:"attempt_timeout_ms"`
}

type Idempotency struct {
	TTLHours int `koanf:"ttl_hours"`
}

type Fraud struct {
	Enabled          bool            `koanf:"enabled"`
	ReviewThreshold  decimal.Decimal `koanf:"review_threshold"`
	DeclineThreshold decimal.Decimal `koanf:"decline_threshold"`
}

// Validate validates the configuration
func (c *Config) Validate() error {
	ve := errors.ValidationErrs()

	if c.Application == "" {
		ve.Add("application", "cannot be empty")
	}
	if c.Logger.Level == "" {
		ve.Add("logger.level", "cannot be empty")
	}
	if c.Mongo.URI == "" {
		ve.Add("mongo.uri", "cannot be empty")
	}
	if c.Mongo.Database == "" {
		ve.Add("mongo.database", "cannot be empty")
	}
	if c.Redis.URI == "" {
		ve.Add("redis.uri", "cannot be empty")
	}
	if len(c.Kafka.Brokers) == 0 {
		ve.Add("kafka.brokers", "cannot be empty")
	}
	if len(c.Gateways) == 0 {
		ve.Add("gateways", "at least one gateway must be configured")
	}

	seen := make(map[string]bool, len(c.Gateways))
	for _, gw := range c.Gateways {
		if gw.ID == "" {
			ve.Add("gateways.id", "cannot be empty")
			continue
		}
		if seen[gw.ID] {
			ve.Add("gateways."+gw.ID, "duplicate gateway id")
		}
		seen[gw.ID] = true

		if gw.Type == "" {
			ve.Add("gateways."+gw.ID+".type", "cannot be empty")
		}
		if gw.BaseURL == "" {
			ve.Add("gateways."+gw.ID+".base_url", "cannot be empty")
		}
		if len(gw.SupportedCurrencies) == 0 {
			ve.Add("gateways."+gw.ID+".supported_currencies", "cannot be empty")
		}
		if !gw.MaxAmount.IsZero() && gw.MaxAmount.LessThan(gw.MinAmount) {
			ve.Add("gateways."+gw.ID+".max_amount", "cannot be below min_amount")
		}
	}
	for _, gw := range c.Gateways {
		for _, fb := range gw.Fallbacks {
			if !seen[fb] {
				ve.Add("gateways."+gw.ID+".fallbacks", "references unknown gateway "+fb)
			}
			if fb == gw.ID {
				ve.Add("gateways."+gw.ID+".fallbacks", "cannot reference itself")
			}
		}
	}

	return ve.Err()
}

// FallbackChains maps each gateway id to its configured fallback chain.
func (c *Config) FallbackChains() map[string][]string {
	chains := make(map[string][]string, len(c.Gateways))
	for _, gw := range c.Gateways {
		chains[gw.ID] = gw.Fallbacks
	}
	return chains
}
