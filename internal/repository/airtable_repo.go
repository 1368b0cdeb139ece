package repository

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/go-resty/resty/v2"
	"github.com/kursadbilgin/interview-dispatch/internal/domain"
)

// Airtable field names of the interview rounds table.
const (
	FieldCompany          = "Company"
	FieldInterviewer      = "Interviewer"
	FieldInterviewerEmail = "Interviewer Email"
	FieldCandidate        = "Candidate"
	FieldCandidateEmail   = "Candidate Email"
	FieldRoundNumber      = "Round Number"
	FieldCalendlyLink     = "Calendly Link"
	FieldAddedOn          = "Added On"
	FieldEmailStatus      = "Email Status"
	FieldEmailSentAt      = "Email Sent At"
	FieldTATHours         = "TAT (hours)"
	FieldTATReadable      = "TAT (readable)"
	FieldErrorMessage     = "Error Message"
)

const (
	airtableBackend        = "airtable"
	defaultAirtableURL     = "https://api.airtable.com"
	defaultAirtableTimeout = 30 * time.Second
	airtableCreateChunk    = 10
	airtablePageSize       = 100
	airtableTimeLayout     = "2006-01-02T15:04:05.000Z07:00"

	// Airtable allows 5 requests per second per base and answers 429 beyond that.
	airtableRateLimitRetries = 5
	airtableRetryWait        = 500 * time.Millisecond
	airtableRetryMaxWait     = 30 * time.Second
)

var pendingFormula = fmt.Sprintf("{%s} = '%s'", FieldEmailStatus, domain.EmailStatusPending)

type AirtableConfig struct {
	APIKey  string
	BaseID  string
	Table   string
	BaseURL string
}

type airtableRecord struct {
	ID     string         `json:"id,omitempty"`
	Fields map[string]any `json:"fields"`
}

type airtableCreateRequest struct {
	Records  []airtableRecord `json:"records"`
	Typecast bool             `json:"typecast"`
}

type airtableRecordsResponse struct {
	Records []airtableRecord `json:"records"`
	Offset  string           `json:"offset,omitempty"`
}

var _ RoundRepository = (*AirtableRoundRepo)(nil)

// AirtableRoundRepo stores interview rounds in an Airtable table through the REST API.
type AirtableRoundRepo struct {
	client   *resty.Client
	endpoint string
	apiKey   string
}

func NewAirtableRoundRepo(cfg AirtableConfig) (*AirtableRoundRepo, error) {
	client := resty.New()
	client.SetTimeout(defaultAirtableTimeout)

	return NewAirtableRoundRepoWithClient(cfg, client)
}

func NewAirtableRoundRepoWithClient(cfg AirtableConfig, client *resty.Client) (*AirtableRoundRepo, error) {
	if strings.TrimSpace(cfg.APIKey) == "" {
		return nil, fmt.Errorf("airtable api key is required")
	}
	if strings.TrimSpace(cfg.BaseID) == "" {
		return nil, fmt.Errorf("airtable base id is required")
	}
	if strings.TrimSpace(cfg.Table) == "" {
		return nil, fmt.Errorf("airtable table name is required")
	}
	if client == nil {
		return nil, fmt.Errorf("resty client is required")
	}

	baseURL := strings.TrimRight(strings.TrimSpace(cfg.BaseURL), "/")
	if baseURL == "" {
		baseURL = defaultAirtableURL
	}
	if client.GetClient().Timeout == 0 {
		client.SetTimeout(defaultAirtableTimeout)
	}
	client.
		SetRetryCount(airtableRateLimitRetries).
		SetRetryWaitTime(airtableRetryWait).
		SetRetryMaxWaitTime(airtableRetryMaxWait).
		AddRetryCondition(isRateLimited)

	return &AirtableRoundRepo{
		client:   client,
		endpoint: fmt.Sprintf("%s/v0/%s/%s", baseURL, url.PathEscape(strings.TrimSpace(cfg.BaseID)), url.PathEscape(strings.TrimSpace(cfg.Table))),
		apiKey:   cfg.APIKey,
	}, nil
}

// CreateRecords writes rounds in chunks of ten, the Airtable per-request limit.
func (r *AirtableRoundRepo) CreateRecords(ctx context.Context, rounds []domain.InterviewRound) ([]domain.InterviewRound, error) {
	created := make([]domain.InterviewRound, 0, len(rounds))
	for _, chunk := range chunkRounds(rounds, airtableCreateChunk) {
		req := airtableCreateRequest{
			Records:  make([]airtableRecord, 0, len(chunk)),
			Typecast: true,
		}
		for i := range chunk {
			req.Records = append(req.Records, airtableRecord{Fields: roundFields(chunk[i])})
		}

		var resp airtableRecordsResponse
		if err := r.do(ctx, "create", http.MethodPost, r.endpoint, nil, req, &resp); err != nil {
			return nil, err
		}

		for _, rec := range resp.Records {
			created = append(created, roundFromRecord(rec))
		}
	}
	return created, nil
}

func (r *AirtableRoundRepo) QueryPending(ctx context.Context) ([]domain.InterviewRound, error) {
	rounds := make([]domain.InterviewRound, 0)
	offset := ""

	for {
		query := url.Values{}
		query.Set("filterByFormula", pendingFormula)
		query.Set("maxRecords", strconv.Itoa(MaxPendingRecords))
		query.Set("pageSize", strconv.Itoa(airtablePageSize))
		if offset != "" {
			query.Set("offset", offset)
		}

		var resp airtableRecordsResponse
		if err := r.do(ctx, "query", http.MethodGet, r.endpoint, query, nil, &resp); err != nil {
			return nil, err
		}

		for _, rec := range resp.Records {
			rounds = append(rounds, roundFromRecord(rec))
		}

		if resp.Offset == "" || len(rounds) >= MaxPendingRecords {
			break
		}
		offset = resp.Offset
	}

	if len(rounds) > MaxPendingRecords {
		rounds = rounds[:MaxPendingRecords]
	}
	return rounds, nil
}

func (r *AirtableRoundRepo) UpdateRecord(ctx context.Context, id string, update domain.RoundUpdate) error {
	if strings.TrimSpace(id) == "" {
		return fmt.Errorf("%w: record id is required", domain.ErrValidation)
	}
	if err := update.Validate(); err != nil {
		return err
	}

	body := airtableRecord{Fields: updateFields(update)}
	return r.do(ctx, "update", http.MethodPatch, r.endpoint+"/"+url.PathEscape(id), nil, body, nil)
}

func (r *AirtableRoundRepo) do(ctx context.Context, operation, method, endpoint string, query url.Values, body any, out any) error {
	req := r.client.R().
		SetContext(ctx).
		SetAuthToken(r.apiKey).
		SetHeader("Accept", "application/json")
	if query != nil {
		req.SetQueryParamsFromValues(query)
	}
	if body != nil {
		req.SetHeader("Content-Type", "application/json").SetBody(body)
	}

	response, err := req.Execute(method, endpoint)
	if err != nil {
		return &StoreError{Backend: airtableBackend, Operation: operation, Message: "request failed", Cause: err}
	}

	statusCode := response.StatusCode()
	if statusCode < http.StatusOK || statusCode >= http.StatusMultipleChoices {
		storeErr := &StoreError{
			Backend:    airtableBackend,
			Operation:  operation,
			StatusCode: statusCode,
			Message:    airtableErrorMessage(response.Body()),
		}
		if statusCode == http.StatusNotFound {
			storeErr.Cause = domain.ErrNotFound
		}
		return storeErr
	}

	if out == nil {
		return nil
	}
	if err := json.Unmarshal(response.Body(), out); err != nil {
		return &StoreError{Backend: airtableBackend, Operation: operation, StatusCode: statusCode, Message: "invalid response body", Cause: err}
	}
	return nil
}

// isRateLimited retries only throttled calls; other failures surface at once.
func isRateLimited(r *resty.Response, err error) bool {
	return r != nil && r.StatusCode() == http.StatusTooManyRequests
}

// airtableErrorMessage handles both {"error":{"type","message"}} and {"error":"TYPE"}.
func airtableErrorMessage(body []byte) string {
	var parsed struct {
		Error json.RawMessage `json:"error"`
	}
	if err := json.Unmarshal(body, &parsed); err != nil || len(parsed.Error) == 0 {
		return strings.TrimSpace(string(body))
	}

	var detailed struct {
		Type    string `json:"type"`
		Message string `json:"message"`
	}
	if err := json.Unmarshal(parsed.Error, &detailed); err == nil {
		switch {
		case detailed.Type != "" && detailed.Message != "":
			return detailed.Type + ": " + detailed.Message
		case detailed.Message != "":
			return detailed.Message
		case detailed.Type != "":
			return detailed.Type
		}
	}

	var code string
	if err := json.Unmarshal(parsed.Error, &code); err == nil {
		return code
	}
	return strings.TrimSpace(string(body))
}

func roundFields(r domain.InterviewRound) map[string]any {
	fields := map[string]any{
		FieldCompany:          r.Company,
		FieldInterviewer:      r.Interviewer,
		FieldInterviewerEmail: r.InterviewerEmail,
		FieldCandidate:        r.Candidate,
		FieldCandidateEmail:   r.CandidateEmail,
		FieldRoundNumber:      r.RoundNumber,
		FieldEmailStatus:      r.EmailStatus.String(),
	}
	if r.CalendlyLink != nil {
		fields[FieldCalendlyLink] = *r.CalendlyLink
	}
	if r.AddedOn != nil {
		fields[FieldAddedOn] = formatAirtableTime(*r.AddedOn)
	}
	if r.EmailSentAt != nil {
		fields[FieldEmailSentAt] = formatAirtableTime(*r.EmailSentAt)
	}
	if r.TATHours != nil {
		fields[FieldTATHours] = *r.TATHours
	}
	if r.TATReadable != nil {
		fields[FieldTATReadable] = *r.TATReadable
	}
	return fields
}

// updateFields writes null for unset turnaround fields so stale values are cleared.
func updateFields(u domain.RoundUpdate) map[string]any {
	fields := map[string]any{
		FieldEmailStatus: u.EmailStatus.String(),
		FieldEmailSentAt: nil,
		FieldTATHours:    nil,
		FieldTATReadable: nil,
	}
	if u.EmailSentAt != nil {
		fields[FieldEmailSentAt] = formatAirtableTime(*u.EmailSentAt)
	}
	if u.TATHours != nil {
		fields[FieldTATHours] = *u.TATHours
	}
	if u.TATReadable != nil {
		fields[FieldTATReadable] = *u.TATReadable
	}
	if u.ErrorMessage != nil {
		fields[FieldErrorMessage] = *u.ErrorMessage
	} else if u.ClearError {
		fields[FieldErrorMessage] = nil
	}
	return fields
}

func roundFromRecord(rec airtableRecord) domain.InterviewRound {
	round := domain.InterviewRound{
		ID:               rec.ID,
		Company:          stringField(rec.Fields, FieldCompany),
		Interviewer:      stringField(rec.Fields, FieldInterviewer),
		InterviewerEmail: stringField(rec.Fields, FieldInterviewerEmail),
		Candidate:        stringField(rec.Fields, FieldCandidate),
		CandidateEmail:   stringField(rec.Fields, FieldCandidateEmail),
		RoundNumber:      intField(rec.Fields, FieldRoundNumber),
		CalendlyLink:     optionalStringField(rec.Fields, FieldCalendlyLink),
		AddedOn:          timeField(rec.Fields, FieldAddedOn),
		EmailSentAt:      timeField(rec.Fields, FieldEmailSentAt),
		TATHours:         floatField(rec.Fields, FieldTATHours),
		TATReadable:      optionalStringField(rec.Fields, FieldTATReadable),
		ErrorMessage:     optionalStringField(rec.Fields, FieldErrorMessage),
	}

	status, err := domain.ParseEmailStatusFromString(stringField(rec.Fields, FieldEmailStatus))
	if err != nil {
		status = domain.EmailStatusPending
	}
	round.EmailStatus = status

	return round
}

func formatAirtableTime(t time.Time) string {
	return t.UTC().Format(airtableTimeLayout)
}

func stringField(fields map[string]any, name string) string {
	if s, ok := fields[name].(string); ok {
		return s
	}
	return ""
}

func optionalStringField(fields map[string]any, name string) *string {
	s, ok := fields[name].(string)
	if !ok || s == "" {
		return nil
	}
	return &s
}

func intField(fields map[string]any, name string) int {
	switch v := fields[name].(type) {
	case float64:
		return int(v)
	case string:
		n, err := strconv.Atoi(strings.TrimSpace(v))
		if err == nil {
			return n
		}
	}
	return 0
}

func floatField(fields map[string]any, name string) *float64 {
	switch v := fields[name].(type) {
	case float64:
		return &v
	case string:
		f, err := strconv.ParseFloat(strings.TrimSpace(v), 64)
		if err == nil {
			return &f
		}
	}
	return nil
}

func timeField(fields map[string]any, name string) *time.Time {
	s, ok := fields[name].(string)
	if !ok || strings.TrimSpace(s) == "" {
		return nil
	}
	t, err := time.Parse(time.RFC3339Nano, strings.TrimSpace(s))
	if err != nil {
		return nil
	}
	return &t
}

// IsNotFound reports whether err came from a missing record.
func IsNotFound(err error) bool {
	return errors.Is(err, domain.ErrNotFound)
}
