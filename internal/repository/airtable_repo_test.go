package repository

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/kursadbilgin/interview-dispatch/internal/domain"
)

const testTablePath = "/v0/appBase/Interview Rounds"

func newTestAirtableRepo(t *testing.T, serverURL string) *AirtableRoundRepo {
	t.Helper()

	repo, err := NewAirtableRoundRepo(AirtableConfig{
		APIKey:  "at-key",
		BaseID:  "appBase",
		Table:   "Interview Rounds",
		BaseURL: serverURL,
	})
	if err != nil {
		t.Fatalf("NewAirtableRoundRepo() error = %v", err)
	}
	return repo
}

func testRound(n int) domain.InterviewRound {
	link := fmt.Sprintf("https://calendly.com/acme/r%d", n)
	addedOn := time.Date(2024, 6, 15, 10, 0, 0, 0, time.UTC)
	return domain.InterviewRound{
		Company:          "Acme",
		Interviewer:      "Jane Smith",
		InterviewerEmail: "jane@acme.com",
		Candidate:        "John Doe",
		CandidateEmail:   "john@example.com",
		RoundNumber:      n,
		CalendlyLink:     &link,
		AddedOn:          &addedOn,
		EmailStatus:      domain.EmailStatusPending,
	}
}

func TestNewAirtableRoundRepoValidation(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		cfg  AirtableConfig
	}{
		{name: "missing key", cfg: AirtableConfig{BaseID: "b", Table: "t"}},
		{name: "missing base", cfg: AirtableConfig{APIKey: "k", Table: "t"}},
		{name: "missing table", cfg: AirtableConfig{APIKey: "k", BaseID: "b"}},
	}

	for _, tc := range tests {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			if _, err := NewAirtableRoundRepo(tc.cfg); err == nil {
				t.Fatal("expected error")
			}
		})
	}
}

func TestAirtableCreateRecordsChunksByTen(t *testing.T) {
	t.Parallel()

	var (
		mu        sync.Mutex
		chunkLens []int
		nextID    int
	)

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			t.Errorf("method = %s, want POST", r.Method)
		}
		if r.URL.Path != testTablePath {
			t.Errorf("path = %q, want %q", r.URL.Path, testTablePath)
		}
		if got := r.Header.Get("Authorization"); got != "Bearer at-key" {
			t.Errorf("Authorization = %q", got)
		}

		var req airtableCreateRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			t.Errorf("decode body: %v", err)
		}
		if !req.Typecast {
			t.Error("typecast = false, want true")
		}

		mu.Lock()
		chunkLens = append(chunkLens, len(req.Records))
		resp := airtableRecordsResponse{}
		for _, rec := range req.Records {
			nextID++
			resp.Records = append(resp.Records, airtableRecord{ID: fmt.Sprintf("rec%d", nextID), Fields: rec.Fields})
		}
		mu.Unlock()

		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(resp)
	}))
	defer server.Close()

	repo := newTestAirtableRepo(t, server.URL)

	rounds := make([]domain.InterviewRound, 0, 23)
	for i := 1; i <= 23; i++ {
		rounds = append(rounds, testRound(i))
	}

	created, err := repo.CreateRecords(context.Background(), rounds)
	if err != nil {
		t.Fatalf("CreateRecords() error = %v", err)
	}

	if len(created) != 23 {
		t.Fatalf("created = %d, want 23", len(created))
	}
	if fmt.Sprint(chunkLens) != "[10 10 3]" {
		t.Fatalf("chunk sizes = %v, want [10 10 3]", chunkLens)
	}

	first := created[0]
	if first.ID != "rec1" {
		t.Fatalf("ID = %q, want rec1", first.ID)
	}
	if first.RoundNumber != 1 || first.EmailStatus != domain.EmailStatusPending {
		t.Fatalf("round = %+v", first)
	}
	if first.CalendlyLink == nil || *first.CalendlyLink != "https://calendly.com/acme/r1" {
		t.Fatalf("CalendlyLink = %v", first.CalendlyLink)
	}
	if first.AddedOn == nil || !first.AddedOn.Equal(time.Date(2024, 6, 15, 10, 0, 0, 0, time.UTC)) {
		t.Fatalf("AddedOn = %v", first.AddedOn)
	}
}

func TestAirtableCreateRecordsEmpty(t *testing.T) {
	t.Parallel()

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		t.Error("unexpected request")
	}))
	defer server.Close()

	created, err := newTestAirtableRepo(t, server.URL).CreateRecords(context.Background(), nil)
	if err != nil {
		t.Fatalf("CreateRecords() error = %v", err)
	}
	if len(created) != 0 {
		t.Fatalf("created = %d, want 0", len(created))
	}
}

func TestAirtableQueryPendingFollowsOffset(t *testing.T) {
	t.Parallel()

	var (
		mu    sync.Mutex
		calls int
	)
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls++
		q := r.URL.Query()
		if q.Get("filterByFormula") != "{Email Status} = 'Pending'" {
			t.Errorf("filterByFormula = %q", q.Get("filterByFormula"))
		}
		if q.Get("maxRecords") != "1000" {
			t.Errorf("maxRecords = %q", q.Get("maxRecords"))
		}

		w.Header().Set("Content-Type", "application/json")
		switch q.Get("offset") {
		case "":
			_, _ = w.Write([]byte(`{"records":[{"id":"rec1","fields":{"Company":"Acme","Candidate Email":"john@example.com","Round Number":1,"Email Status":"Pending","Added On":"2024-06-15T10:00:00.000Z"}}],"offset":"page2"}`))
		case "page2":
			_, _ = w.Write([]byte(`{"records":[{"id":"rec2","fields":{"Company":"Acme","Round Number":"2","Email Status":"pending"}}]}`))
		default:
			t.Errorf("unexpected offset %q", q.Get("offset"))
		}
	}))
	defer server.Close()

	rounds, err := newTestAirtableRepo(t, server.URL).QueryPending(context.Background())
	if err != nil {
		t.Fatalf("QueryPending() error = %v", err)
	}

	mu.Lock()
	defer mu.Unlock()
	if calls != 2 {
		t.Fatalf("calls = %d, want 2", calls)
	}
	if len(rounds) != 2 {
		t.Fatalf("rounds = %d, want 2", len(rounds))
	}
	if rounds[0].ID != "rec1" || rounds[0].CandidateEmail != "john@example.com" || rounds[0].AddedOn == nil {
		t.Fatalf("rounds[0] = %+v", rounds[0])
	}
	if rounds[1].RoundNumber != 2 || rounds[1].EmailStatus != domain.EmailStatusPending {
		t.Fatalf("rounds[1] = %+v", rounds[1])
	}
	if rounds[1].CalendlyLink != nil {
		t.Fatalf("CalendlyLink = %v, want nil", rounds[1].CalendlyLink)
	}
}

func TestAirtableUpdateRecordSent(t *testing.T) {
	t.Parallel()

	var gotFields map[string]any
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPatch {
			t.Errorf("method = %s, want PATCH", r.Method)
		}
		if r.URL.Path != testTablePath+"/rec1" {
			t.Errorf("path = %q", r.URL.Path)
		}

		var body airtableRecord
		if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
			t.Errorf("decode body: %v", err)
		}
		gotFields = body.Fields

		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"id":"rec1","fields":{}}`))
	}))
	defer server.Close()

	round := testRound(1)
	sentAt := round.AddedOn.Add(25 * time.Hour)
	update := domain.SentUpdate(round, sentAt)

	if err := newTestAirtableRepo(t, server.URL).UpdateRecord(context.Background(), "rec1", update); err != nil {
		t.Fatalf("UpdateRecord() error = %v", err)
	}

	if gotFields[FieldEmailStatus] != "Sent" {
		t.Fatalf("status = %v", gotFields[FieldEmailStatus])
	}
	if gotFields[FieldEmailSentAt] != "2024-06-16T11:00:00.000Z" {
		t.Fatalf("sent at = %v", gotFields[FieldEmailSentAt])
	}
	if gotFields[FieldTATHours] != 25.0 {
		t.Fatalf("tat hours = %v", gotFields[FieldTATHours])
	}
	if gotFields[FieldTATReadable] != "1d 1h 0m" {
		t.Fatalf("tat readable = %v", gotFields[FieldTATReadable])
	}
	if v, ok := gotFields[FieldErrorMessage]; !ok || v != nil {
		t.Fatalf("error message = %v (present=%v), want explicit null", v, ok)
	}
}

func TestAirtableUpdateRecordFailedKeepsTurnaroundEmpty(t *testing.T) {
	t.Parallel()

	var gotFields map[string]any
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var body airtableRecord
		_ = json.NewDecoder(r.Body).Decode(&body)
		gotFields = body.Fields
		_, _ = w.Write([]byte(`{"id":"rec1","fields":{}}`))
	}))
	defer server.Close()

	update := domain.FailedUpdate("status=422: invalid recipient")
	if err := newTestAirtableRepo(t, server.URL).UpdateRecord(context.Background(), "rec1", update); err != nil {
		t.Fatalf("UpdateRecord() error = %v", err)
	}

	if gotFields[FieldEmailStatus] != "Failed" {
		t.Fatalf("status = %v", gotFields[FieldEmailStatus])
	}
	if gotFields[FieldErrorMessage] != "status=422: invalid recipient" {
		t.Fatalf("error message = %v", gotFields[FieldErrorMessage])
	}
	if gotFields[FieldEmailSentAt] != nil || gotFields[FieldTATHours] != nil {
		t.Fatalf("unexpected turnaround fields: %v", gotFields)
	}
}

func TestAirtableUpdateRecordValidation(t *testing.T) {
	t.Parallel()

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		t.Error("unexpected request")
	}))
	defer server.Close()

	repo := newTestAirtableRepo(t, server.URL)

	err := repo.UpdateRecord(context.Background(), "rec1", domain.RoundUpdate{EmailStatus: domain.EmailStatusPending})
	if !errors.Is(err, domain.ErrValidation) {
		t.Fatalf("error = %v, want ErrValidation", err)
	}

	err = repo.UpdateRecord(context.Background(), " ", domain.FailedUpdate("x"))
	if !errors.Is(err, domain.ErrValidation) {
		t.Fatalf("error = %v, want ErrValidation", err)
	}
}

func TestAirtableErrors(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name         string
		status       int
		body         string
		wantMessage  string
		wantNotFound bool
	}{
		{
			name:        "detailed error",
			status:      http.StatusUnprocessableEntity,
			body:        `{"error":{"type":"INVALID_VALUE_FOR_COLUMN","message":"Field \"Round Number\" cannot accept the provided value"}}`,
			wantMessage: `INVALID_VALUE_FOR_COLUMN: Field "Round Number" cannot accept the provided value`,
		},
		{
			name:         "code only",
			status:       http.StatusNotFound,
			body:         `{"error":"NOT_FOUND"}`,
			wantMessage:  "NOT_FOUND",
			wantNotFound: true,
		},
		{
			name:        "non json",
			status:      http.StatusBadGateway,
			body:        "bad gateway",
			wantMessage: "bad gateway",
		},
	}

	for _, tc := range tests {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()

			server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(tc.status)
				_, _ = w.Write([]byte(tc.body))
			}))
			defer server.Close()

			err := newTestAirtableRepo(t, server.URL).UpdateRecord(context.Background(), "rec1", domain.FailedUpdate("x"))

			var storeErr *StoreError
			if !errors.As(err, &storeErr) {
				t.Fatalf("error = %v, want *StoreError", err)
			}
			if storeErr.StatusCode != tc.status {
				t.Fatalf("StatusCode = %d, want %d", storeErr.StatusCode, tc.status)
			}
			if storeErr.Message != tc.wantMessage {
				t.Fatalf("Message = %q, want %q", storeErr.Message, tc.wantMessage)
			}
			if IsNotFound(err) != tc.wantNotFound {
				t.Fatalf("IsNotFound = %v, want %v", IsNotFound(err), tc.wantNotFound)
			}
		})
	}
}

func TestAirtableUpdateRecordRetriesRateLimit(t *testing.T) {
	t.Parallel()

	var (
		mu    sync.Mutex
		calls int
	)
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		mu.Lock()
		calls++
		n := calls
		mu.Unlock()

		if n == 1 {
			w.WriteHeader(http.StatusTooManyRequests)
			_, _ = w.Write([]byte(`{"errors":[{"error":"RATE_LIMIT_REACHED","message":"Rate limit exceeded."}]}`))
			return
		}
		_, _ = w.Write([]byte(`{"id":"rec1","fields":{}}`))
	}))
	defer server.Close()

	repo := newTestAirtableRepo(t, server.URL)
	repo.client.SetRetryWaitTime(time.Millisecond).SetRetryMaxWaitTime(5 * time.Millisecond)

	if err := repo.UpdateRecord(context.Background(), "rec1", domain.FailedUpdate("x")); err != nil {
		t.Fatalf("UpdateRecord() error = %v", err)
	}
	mu.Lock()
	defer mu.Unlock()
	if calls != 2 {
		t.Fatalf("calls = %d, want 2", calls)
	}
}

func TestAirtableDoesNotRetryOtherErrors(t *testing.T) {
	t.Parallel()

	var (
		mu    sync.Mutex
		calls int
	)
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		mu.Lock()
		calls++
		mu.Unlock()
		w.WriteHeader(http.StatusInternalServerError)
		_, _ = w.Write([]byte(`{"error":"SERVER_ERROR"}`))
	}))
	defer server.Close()

	repo := newTestAirtableRepo(t, server.URL)
	repo.client.SetRetryWaitTime(time.Millisecond).SetRetryMaxWaitTime(5 * time.Millisecond)

	err := repo.UpdateRecord(context.Background(), "rec1", domain.FailedUpdate("x"))
	var storeErr *StoreError
	if !errors.As(err, &storeErr) || storeErr.StatusCode != http.StatusInternalServerError {
		t.Fatalf("error = %v, want 500 StoreError", err)
	}
	mu.Lock()
	defer mu.Unlock()
	if calls != 1 {
		t.Fatalf("calls = %d, want 1", calls)
	}
}

func TestAirtableRateLimitExhaustedIsStoreError(t *testing.T) {
	t.Parallel()

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTooManyRequests)
		_, _ = w.Write([]byte(`{"error":{"type":"RATE_LIMIT_REACHED","message":"Rate limit exceeded."}}`))
	}))
	defer server.Close()

	repo := newTestAirtableRepo(t, server.URL)
	repo.client.SetRetryWaitTime(time.Millisecond).SetRetryMaxWaitTime(2 * time.Millisecond)

	err := repo.UpdateRecord(context.Background(), "rec1", domain.FailedUpdate("x"))
	var storeErr *StoreError
	if !errors.As(err, &storeErr) || storeErr.StatusCode != http.StatusTooManyRequests {
		t.Fatalf("error = %v, want 429 StoreError", err)
	}
}
