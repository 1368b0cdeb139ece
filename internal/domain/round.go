package domain

import (
	"fmt"
	"strings"
	"time"
)

// EmailStatus represents the invitation delivery state of an interview round.
type EmailStatus string

const (
	EmailStatusPending EmailStatus = "Pending"
	EmailStatusSent    EmailStatus = "Sent"
	EmailStatusFailed  EmailStatus = "Failed"
)

func (s EmailStatus) String() string { return string(s) }

func (s EmailStatus) IsValid() bool {
	switch s {
	case EmailStatusPending, EmailStatusSent, EmailStatusFailed:
		return true
	}
	return false
}

// IsTerminal reports whether no further transition is allowed.
func (s EmailStatus) IsTerminal() bool {
	return s == EmailStatusSent || s == EmailStatusFailed
}

// CanTransitionTo enforces Pending -> Sent|Failed.
func (s EmailStatus) CanTransitionTo(next EmailStatus) bool {
	return s == EmailStatusPending && next.IsTerminal()
}

func ParseEmailStatusFromString(s string) (EmailStatus, error) {
	normalized := strings.ToLower(strings.TrimSpace(s))
	for _, st := range []EmailStatus{EmailStatusPending, EmailStatusSent, EmailStatusFailed} {
		if strings.ToLower(st.String()) == normalized {
			return st, nil
		}
	}
	return "", fmt.Errorf("%w: invalid email status %q", ErrValidation, s)
}

// MaxErrorMessageLength bounds the error text persisted for a failed send.
const MaxErrorMessageLength = 500

// InterviewRound is one candidate interview round, the unit of work after splitting.
type InterviewRound struct {
	ID               string
	Company          string
	Interviewer      string
	InterviewerEmail string
	Candidate        string
	CandidateEmail   string
	RoundNumber      int
	CalendlyLink     *string
	AddedOn          *time.Time
	EmailStatus      EmailStatus
	EmailSentAt      *time.Time
	TATHours         *float64
	TATReadable      *string
	ErrorMessage     *string
}

// RoundUpdate carries the fields written back after a send attempt.
type RoundUpdate struct {
	EmailStatus  EmailStatus
	EmailSentAt  *time.Time
	TATHours     *float64
	TATReadable  *string
	ErrorMessage *string
	ClearError   bool
}

func (u RoundUpdate) Validate() error {
	if !u.EmailStatus.IsTerminal() {
		return fmt.Errorf("%w: update status must be Sent or Failed, got %q", ErrValidation, u.EmailStatus)
	}
	if u.EmailStatus == EmailStatusSent && u.EmailSentAt == nil {
		return fmt.Errorf("%w: sent update requires sent at", ErrValidation)
	}
	if (u.TATHours != nil || u.TATReadable != nil) && u.EmailSentAt == nil {
		return fmt.Errorf("%w: turnaround requires sent at", ErrValidation)
	}
	return nil
}

// SendResult is the normalized outcome of one invitation send attempt.
type SendResult struct {
	Success   bool
	SentAt    *time.Time
	Error     string
	MessageID string
}

// SentUpdate builds the update for a successful send. Turnaround is only set
// when the round carries an AddedOn timestamp.
func SentUpdate(round InterviewRound, sentAt time.Time) RoundUpdate {
	sent := sentAt.UTC()
	update := RoundUpdate{
		EmailStatus: EmailStatusSent,
		EmailSentAt: &sent,
		ClearError:  true,
	}

	if round.AddedOn != nil {
		tat := ComputeTurnaround(*round.AddedOn, sent)
		update.TATReadable = &tat.Readable
		if tat.Valid {
			hours := tat.Hours
			update.TATHours = &hours
		}
	}

	return update
}

// FailedUpdate builds the update for a failed send.
func FailedUpdate(errMsg string) RoundUpdate {
	msg := TruncateError(errMsg)
	return RoundUpdate{
		EmailStatus:  EmailStatusFailed,
		ErrorMessage: &msg,
	}
}

// TruncateError limits msg to MaxErrorMessageLength characters.
func TruncateError(msg string) string {
	runes := []rune(msg)
	if len(runes) <= MaxErrorMessageLength {
		return msg
	}
	return string(runes[:MaxErrorMessageLength])
}

// Apply mutates the in-memory round to mirror a persisted update.
func (r *InterviewRound) Apply(u RoundUpdate) {
	r.EmailStatus = u.EmailStatus
	r.EmailSentAt = u.EmailSentAt
	r.TATHours = u.TATHours
	r.TATReadable = u.TATReadable
	if u.ErrorMessage != nil {
		r.ErrorMessage = u.ErrorMessage
	} else if u.ClearError {
		r.ErrorMessage = nil
	}
}
