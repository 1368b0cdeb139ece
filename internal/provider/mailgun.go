package provider

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"

	"github.com/go-resty/resty/v2"
)

const defaultMailgunURL = "https://api.mailgun.net"

type MailgunConfig struct {
	APIKey    string
	Domain    string
	BaseURL   string
	FromEmail string
}

type mailgunResponse struct {
	ID      string `json:"id"`
	Message string `json:"message"`
}

// MailgunProvider sends email through the Mailgun v3 messages API using basic auth.
type MailgunProvider struct {
	client   *resty.Client
	endpoint string
	apiKey   string
	from     string
}

func NewMailgunProvider(cfg MailgunConfig) (*MailgunProvider, error) {
	client := resty.New()
	client.SetTimeout(defaultSendTimeout)
	client.SetRetryCount(0)

	return NewMailgunProviderWithClient(cfg, client)
}

func NewMailgunProviderWithClient(cfg MailgunConfig, client *resty.Client) (*MailgunProvider, error) {
	if strings.TrimSpace(cfg.APIKey) == "" {
		return nil, fmt.Errorf("mailgun api key is required")
	}
	domain := strings.TrimSpace(cfg.Domain)
	if domain == "" {
		return nil, fmt.Errorf("mailgun domain is required")
	}
	if client == nil {
		return nil, fmt.Errorf("resty client is required")
	}

	baseURL := strings.TrimRight(strings.TrimSpace(cfg.BaseURL), "/")
	if baseURL == "" {
		baseURL = defaultMailgunURL
	}

	if client.GetClient().Timeout == 0 {
		client.SetTimeout(defaultSendTimeout)
	}
	client.SetRetryCount(0)

	return &MailgunProvider{
		client:   client,
		endpoint: fmt.Sprintf("%s/v3/%s/messages", baseURL, domain),
		apiKey:   cfg.APIKey,
		from:     strings.TrimSpace(cfg.FromEmail),
	}, nil
}

func (p *MailgunProvider) Name() string { return NameMailgun }

func (p *MailgunProvider) Send(ctx context.Context, msg Message) (*Receipt, error) {
	if p == nil || p.client == nil {
		return nil, fmt.Errorf("provider is not initialized")
	}
	if err := msg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid message: %w", err)
	}

	from := p.from
	if msg.From.Email != "" {
		from = formatAddress(msg.From)
	}

	form := map[string]string{
		"from":    from,
		"to":      formatAddress(msg.To),
		"subject": msg.Subject,
	}
	if msg.HTML != "" {
		form["html"] = msg.HTML
	}
	if msg.Text != "" {
		form["text"] = msg.Text
	}
	if msg.ReplyTo.Email != "" {
		form["h:Reply-To"] = formatAddress(msg.ReplyTo)
	}

	response, err := p.client.R().
		SetContext(ctx).
		SetBasicAuth("api", p.apiKey).
		SetFormData(form).
		Post(p.endpoint)
	if err != nil {
		return nil, &ProviderError{
			Provider: NameMailgun,
			Message:  "provider request failed",
			Cause:    err,
		}
	}

	statusCode := response.StatusCode()
	if statusCode == http.StatusUnauthorized {
		return nil, &ProviderError{
			Provider:   NameMailgun,
			StatusCode: statusCode,
			Message:    "Mailgun API key invalid or expired",
		}
	}

	var parsed mailgunResponse
	parseErr := json.Unmarshal(response.Body(), &parsed)

	if statusCode < http.StatusOK || statusCode >= http.StatusMultipleChoices {
		message := "Mailgun error"
		if parseErr == nil && strings.TrimSpace(parsed.Message) != "" {
			message = strings.TrimSpace(parsed.Message)
		} else if parseErr != nil {
			message = providerErrorMessage(statusCode, strings.TrimSpace(response.String()))
		}
		return nil, &ProviderError{
			Provider:   NameMailgun,
			StatusCode: statusCode,
			Message:    message,
		}
	}

	messageID := strings.TrimSpace(parsed.ID)
	if messageID == "" {
		messageID = "sent"
	}
	return &Receipt{StatusCode: statusCode, MessageID: messageID}, nil
}

func formatAddress(a Address) string {
	name := strings.TrimSpace(a.Name)
	if name == "" {
		return a.Email
	}
	return fmt.Sprintf("%s <%s>", name, a.Email)
}
