package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/Netflix/go-env"
)

const (
	StoreAirtable = "airtable"
	StorePostgres = "postgres"
)

type Config struct {
	CSVInputPath   string `env:"CSV_INPUT_PATH,default=./data/candidates.csv"`
	EmailBatchSize int    `env:"EMAIL_BATCH_SIZE,default=50"`
	EmailDelayMS   int    `env:"EMAIL_DELAY_MS,default=1000"`

	StoreBackend      string `env:"STORE_BACKEND,default=airtable"`
	AirtableAPIKey    string `env:"AIRTABLE_API_KEY"`
	AirtableBaseID    string `env:"AIRTABLE_BASE_ID"`
	AirtableTableName string `env:"AIRTABLE_TABLE_NAME"`
	AirtableAPIURL    string `env:"AIRTABLE_API_URL"`
	DatabaseDSN       string `env:"DATABASE_DSN"`

	EmailProvider       string `env:"EMAIL_PROVIDER,default=mailersend"`
	MailerSendAPIKey    string `env:"MAILERSEND_API_KEY"`
	MailerSendFromEmail string `env:"MAILERSEND_FROM_EMAIL"`
	MailerSendFromName  string `env:"MAILERSEND_FROM_NAME,default=Weekday Interview Team"`
	MailerSendReplyTo   string `env:"MAILERSEND_REPLY_TO,default=noreply@weekday.com"`
	MailerSendAPIURL    string `env:"MAILERSEND_API_URL"`
	MailgunAPIKey       string `env:"MAILGUN_API_KEY"`
	MailgunDomain       string `env:"MAILGUN_DOMAIN"`
	MailgunFromEmail    string `env:"MAILGUN_FROM_EMAIL"`
	MailgunAPIURL       string `env:"MAILGUN_API_URL"`
	DemoMode            bool   `env:"DEMO_MODE,default=false"`

	RedisURL       string `env:"REDIS_URL"`
	RunLockTTL     string `env:"RUN_LOCK_TTL,default=30m"`
	PushgatewayURL string `env:"PUSHGATEWAY_URL"`
	LogLevel       string `env:"LOG_LEVEL,default=info"`
}

func Load() (*Config, error) {
	var cfg Config
	_, err := env.UnmarshalFromEnviron(&cfg)
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}
	return &cfg, nil
}

// Validate checks the settings required by the selected store and provider.
func (c *Config) Validate() error {
	if c.EmailBatchSize < 1 {
		return fmt.Errorf("EMAIL_BATCH_SIZE must be at least 1, got %d", c.EmailBatchSize)
	}
	if c.EmailDelayMS < 0 {
		return fmt.Errorf("EMAIL_DELAY_MS must not be negative, got %d", c.EmailDelayMS)
	}
	if _, err := c.RunLockDuration(); err != nil {
		return err
	}

	switch c.Backend() {
	case StoreAirtable:
		var missing []string
		if strings.TrimSpace(c.AirtableAPIKey) == "" {
			missing = append(missing, "AIRTABLE_API_KEY")
		}
		if strings.TrimSpace(c.AirtableBaseID) == "" {
			missing = append(missing, "AIRTABLE_BASE_ID")
		}
		if strings.TrimSpace(c.AirtableTableName) == "" {
			missing = append(missing, "AIRTABLE_TABLE_NAME")
		}
		if len(missing) > 0 {
			return fmt.Errorf("missing required airtable config: %s", strings.Join(missing, ", "))
		}
	case StorePostgres:
		if strings.TrimSpace(c.DatabaseDSN) == "" {
			return fmt.Errorf("missing required postgres config: DATABASE_DSN")
		}
	default:
		return fmt.Errorf("unsupported STORE_BACKEND %q", c.StoreBackend)
	}

	if c.DemoMode {
		return nil
	}

	switch strings.ToLower(strings.TrimSpace(c.EmailProvider)) {
	case "", "mailersend":
		if strings.TrimSpace(c.MailerSendAPIKey) == "" || strings.TrimSpace(c.MailerSendFromEmail) == "" {
			return fmt.Errorf("MAILERSEND_API_KEY and MAILERSEND_FROM_EMAIL are required unless DEMO_MODE is set")
		}
	case "mailgun":
		if strings.TrimSpace(c.MailgunAPIKey) == "" {
			// Falls back to MailerSend.
			if strings.TrimSpace(c.MailerSendAPIKey) == "" || strings.TrimSpace(c.MailerSendFromEmail) == "" {
				return fmt.Errorf("MAILGUN_API_KEY or MailerSend credentials are required unless DEMO_MODE is set")
			}
			return nil
		}
		if strings.TrimSpace(c.MailgunDomain) == "" {
			return fmt.Errorf("MAILGUN_DOMAIN is required when EMAIL_PROVIDER=mailgun")
		}
	case "simulated":
	default:
		return fmt.Errorf("unsupported EMAIL_PROVIDER %q", c.EmailProvider)
	}

	return nil
}

// Backend returns the normalized store backend name.
func (c *Config) Backend() string {
	return strings.ToLower(strings.TrimSpace(c.StoreBackend))
}

func (c *Config) EmailDelay() time.Duration {
	return time.Duration(c.EmailDelayMS) * time.Millisecond
}

func (c *Config) RunLockDuration() (time.Duration, error) {
	ttl, err := time.ParseDuration(strings.TrimSpace(c.RunLockTTL))
	if err != nil {
		return 0, fmt.Errorf("invalid RUN_LOCK_TTL %q: %w", c.RunLockTTL, err)
	}
	if ttl <= 0 {
		return 0, fmt.Errorf("RUN_LOCK_TTL must be positive, got %s", ttl)
	}
	return ttl, nil
}
