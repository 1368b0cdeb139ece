package provider

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"sort"
	"strings"
	"time"

	"github.com/go-resty/resty/v2"
)

const (
	defaultMailerSendURL = "https://api.mailersend.com"
	defaultSendTimeout   = 10 * time.Second
)

type MailerSendConfig struct {
	APIKey    string
	BaseURL   string
	FromEmail string
	FromName  string
	ReplyTo   string
}

type mailerSendAddress struct {
	Email string `json:"email"`
	Name  string `json:"name,omitempty"`
}

type mailerSendRequest struct {
	From    mailerSendAddress   `json:"from"`
	ReplyTo *mailerSendAddress  `json:"reply_to,omitempty"`
	To      []mailerSendAddress `json:"to"`
	Subject string              `json:"subject"`
	HTML    string              `json:"html,omitempty"`
	Text    string              `json:"text,omitempty"`
}

type mailerSendErrorResponse struct {
	Message string          `json:"message"`
	Errors  json.RawMessage `json:"errors"`
}

// MailerSendProvider sends email through the MailerSend v1 API using bearer auth.
type MailerSendProvider struct {
	client   *resty.Client
	endpoint string
	apiKey   string
	from     Address
	replyTo  Address
}

func NewMailerSendProvider(cfg MailerSendConfig) (*MailerSendProvider, error) {
	client := resty.New()
	client.SetTimeout(defaultSendTimeout)
	client.SetRetryCount(0)

	return NewMailerSendProviderWithClient(cfg, client)
}

func NewMailerSendProviderWithClient(cfg MailerSendConfig, client *resty.Client) (*MailerSendProvider, error) {
	if strings.TrimSpace(cfg.APIKey) == "" {
		return nil, fmt.Errorf("mailersend api key is required")
	}
	if strings.TrimSpace(cfg.FromEmail) == "" {
		return nil, fmt.Errorf("mailersend from email is required")
	}
	if client == nil {
		return nil, fmt.Errorf("resty client is required")
	}

	baseURL := strings.TrimRight(strings.TrimSpace(cfg.BaseURL), "/")
	if baseURL == "" {
		baseURL = defaultMailerSendURL
	}

	if client.GetClient().Timeout == 0 {
		client.SetTimeout(defaultSendTimeout)
	}
	client.SetRetryCount(0)

	p := &MailerSendProvider{
		client:   client,
		endpoint: baseURL + "/v1/email",
		apiKey:   cfg.APIKey,
		from:     Address{Email: cfg.FromEmail, Name: cfg.FromName},
	}
	if replyTo := strings.TrimSpace(cfg.ReplyTo); replyTo != "" {
		p.replyTo = Address{Email: replyTo, Name: "Weekday Recruiting"}
	}
	return p, nil
}

func (p *MailerSendProvider) Name() string { return NameMailerSend }

func (p *MailerSendProvider) Send(ctx context.Context, msg Message) (*Receipt, error) {
	if p == nil || p.client == nil {
		return nil, fmt.Errorf("provider is not initialized")
	}
	if err := msg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid message: %w", err)
	}

	from := withDefault(msg.From, p.from)
	reqBody := mailerSendRequest{
		From:    mailerSendAddress{Email: from.Email, Name: from.Name},
		To:      []mailerSendAddress{{Email: msg.To.Email, Name: msg.To.Name}},
		Subject: msg.Subject,
		HTML:    msg.HTML,
		Text:    msg.Text,
	}
	if replyTo := withDefault(msg.ReplyTo, p.replyTo); replyTo.Email != "" {
		reqBody.ReplyTo = &mailerSendAddress{Email: replyTo.Email, Name: replyTo.Name}
	}

	response, err := p.client.R().
		SetContext(ctx).
		SetAuthToken(p.apiKey).
		SetHeader("Content-Type", "application/json").
		SetHeader("Accept", "application/json").
		SetBody(reqBody).
		Post(p.endpoint)
	if err != nil {
		return nil, &ProviderError{
			Provider: NameMailerSend,
			Message:  "provider request failed",
			Cause:    err,
		}
	}

	statusCode := response.StatusCode()
	if statusCode >= http.StatusOK && statusCode < http.StatusMultipleChoices {
		messageID := strings.TrimSpace(response.Header().Get("X-Message-Id"))
		if messageID == "" {
			messageID = "sent"
		}
		return &Receipt{StatusCode: statusCode, MessageID: messageID}, nil
	}

	return nil, &ProviderError{
		Provider:   NameMailerSend,
		StatusCode: statusCode,
		Message:    mailerSendErrorMessage(statusCode, response.Body()),
	}
}

// mailerSendErrorMessage prefers the top-level message, then the joined
// validation errors, then the raw body.
func mailerSendErrorMessage(statusCode int, body []byte) string {
	trimmed := strings.TrimSpace(string(body))

	var parsed mailerSendErrorResponse
	if err := json.Unmarshal(body, &parsed); err != nil {
		return providerErrorMessage(statusCode, trimmed)
	}
	if msg := strings.TrimSpace(parsed.Message); msg != "" {
		return msg
	}
	if msgs, err := flattenErrors(parsed.Errors); err == nil && len(msgs) > 0 {
		return strings.Join(msgs, ", ")
	}
	return providerErrorMessage(statusCode, trimmed)
}

// flattenErrors accepts both a list ([{"message":..}] or ["..."]) and the
// field map ({"from.email": ["..."]}) shapes.
func flattenErrors(raw json.RawMessage) ([]string, error) {
	if len(raw) == 0 || string(raw) == "null" {
		return nil, nil
	}

	var list []json.RawMessage
	if err := json.Unmarshal(raw, &list); err == nil {
		msgs := make([]string, 0, len(list))
		for _, item := range list {
			var obj struct {
				Message string `json:"message"`
			}
			if err := json.Unmarshal(item, &obj); err == nil && obj.Message != "" {
				msgs = append(msgs, obj.Message)
				continue
			}
			var s string
			if err := json.Unmarshal(item, &s); err == nil && s != "" {
				msgs = append(msgs, s)
				continue
			}
			msgs = append(msgs, string(item))
		}
		return msgs, nil
	}

	var byField map[string][]string
	if err := json.Unmarshal(raw, &byField); err == nil {
		fields := make([]string, 0, len(byField))
		for field := range byField {
			fields = append(fields, field)
		}
		sort.Strings(fields)

		msgs := make([]string, 0, len(fields))
		for _, field := range fields {
			msgs = append(msgs, byField[field]...)
		}
		return msgs, nil
	}

	return nil, errors.New("unrecognized errors shape")
}

func providerErrorMessage(statusCode int, body string) string {
	base := fmt.Sprintf("provider returned status %d", statusCode)
	if body == "" {
		return base
	}
	return fmt.Sprintf("%s: %s", base, body)
}
