package provider

import (
	"context"
	"fmt"
	"strings"
)

const (
	NameMailerSend = "mailersend"
	NameMailgun    = "mailgun"
	NameSimulated  = "simulated"
)

// Address is an email address with an optional display name.
type Address struct {
	Email string
	Name  string
}

// Message is one outbound email. Providers fill From and ReplyTo from their
// configuration when left empty.
type Message struct {
	From    Address
	ReplyTo Address
	To      Address
	Subject string
	HTML    string
	Text    string
}

func (m Message) Validate() error {
	if strings.TrimSpace(m.To.Email) == "" {
		return fmt.Errorf("recipient email is required")
	}
	if strings.TrimSpace(m.Subject) == "" {
		return fmt.Errorf("subject is required")
	}
	if m.HTML == "" && m.Text == "" {
		return fmt.Errorf("html or text body is required")
	}
	return nil
}

// Mailer is the outbound email delivery port.
type Mailer interface {
	Name() string
	Send(ctx context.Context, msg Message) (*Receipt, error)
}

// Receipt stores provider call metadata for a delivered message.
type Receipt struct {
	StatusCode int
	MessageID  string
}

// Config selects and configures exactly one Mailer.
type Config struct {
	Name       string
	Demo       bool
	MailerSend MailerSendConfig
	Mailgun    MailgunConfig
}

// New builds the configured Mailer. Demo mode always wins. Mailgun without an
// API key falls back to MailerSend.
func New(cfg Config) (Mailer, error) {
	if cfg.Demo {
		return NewSimulatedProvider(), nil
	}

	name := strings.ToLower(strings.TrimSpace(cfg.Name))
	switch name {
	case "", NameMailerSend:
		return NewMailerSendProvider(cfg.MailerSend)
	case NameMailgun:
		if strings.TrimSpace(cfg.Mailgun.APIKey) == "" {
			return NewMailerSendProvider(cfg.MailerSend)
		}
		return NewMailgunProvider(cfg.Mailgun)
	case NameSimulated:
		return NewSimulatedProvider(), nil
	default:
		return nil, fmt.Errorf("unknown email provider %q", cfg.Name)
	}
}

func withDefault(a Address, fallback Address) Address {
	if strings.TrimSpace(a.Email) == "" {
		return fallback
	}
	return a
}
