package repository

import (
	"fmt"
	"testing"
	"time"

	"github.com/kursadbilgin/interview-dispatch/internal/domain"
)

func TestRoundModelRoundTrip(t *testing.T) {
	t.Parallel()

	round := testRound(2)
	round.ID = "b8f1c7de-1f1a-4d8e-9c55-2f3f1f6f0a01"

	model := roundModelFromDomain(&round)
	if model.TableName() != "interview_rounds" {
		t.Fatalf("TableName() = %q", model.TableName())
	}

	back := roundModelToDomain(model)
	if back.ID != round.ID || back.RoundNumber != 2 || back.CandidateEmail != round.CandidateEmail {
		t.Fatalf("round = %+v", back)
	}
	if back.CalendlyLink != round.CalendlyLink || back.AddedOn != round.AddedOn {
		t.Fatal("pointer fields were not carried over")
	}

	if roundModelFromDomain(nil) != nil || roundModelToDomain(nil) != nil {
		t.Fatal("nil input should map to nil")
	}
}

func TestUpdateColumns(t *testing.T) {
	t.Parallel()

	round := testRound(1)
	sent := updateColumns(domain.SentUpdate(round, round.AddedOn.Add(90*time.Minute)))

	if sent["email_status"] != domain.EmailStatusSent {
		t.Fatalf("email_status = %v", sent["email_status"])
	}
	if v, ok := sent["error_message"]; !ok || v != nil {
		t.Fatalf("error_message = %v (present=%v), want nil", v, ok)
	}
	readable, ok := sent["tat_readable"].(*string)
	if !ok || readable == nil || *readable != "1h 30m" {
		t.Fatalf("tat_readable = %v", sent["tat_readable"])
	}

	failed := updateColumns(domain.FailedUpdate("boom"))
	if failed["error_message"] != "boom" {
		t.Fatalf("error_message = %v", failed["error_message"])
	}
	if hours, _ := failed["tat_hours"].(*float64); hours != nil {
		t.Fatalf("tat_hours = %v, want nil", *hours)
	}
}

func TestChunkRounds(t *testing.T) {
	t.Parallel()

	tests := []struct {
		total int
		size  int
		want  string
	}{
		{total: 0, size: 10, want: "[]"},
		{total: 10, size: 10, want: "[10]"},
		{total: 11, size: 10, want: "[10 1]"},
		{total: 3, size: 0, want: "[1 1 1]"},
	}

	for _, tc := range tests {
		tc := tc
		t.Run(fmt.Sprintf("%d_by_%d", tc.total, tc.size), func(t *testing.T) {
			t.Parallel()

			rounds := make([]domain.InterviewRound, tc.total)
			var sizes []int
			for _, c := range chunkRounds(rounds, tc.size) {
				sizes = append(sizes, len(c))
			}
			if got := fmt.Sprint(sizes); got != tc.want {
				t.Fatalf("chunks = %s, want %s", got, tc.want)
			}
		})
	}
}

func TestStoreErrorString(t *testing.T) {
	t.Parallel()

	err := &StoreError{Backend: "airtable", Operation: "update", StatusCode: 404, Message: "NOT_FOUND", Cause: domain.ErrNotFound}
	want := "airtable update failed: status=404: NOT_FOUND: not found"
	if err.Error() != want {
		t.Fatalf("Error() = %q, want %q", err.Error(), want)
	}
}
