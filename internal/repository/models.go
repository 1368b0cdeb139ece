package repository

import (
	"time"

	"github.com/kursadbilgin/interview-dispatch/internal/domain"
)

// InterviewRoundModel is the persistence model for the interview_rounds table.
type InterviewRoundModel struct {
	ID               string             `gorm:"type:uuid;primaryKey"`
	Company          string             `gorm:"type:varchar(255);not null;default:''"`
	Interviewer      string             `gorm:"type:varchar(255);not null;default:''"`
	InterviewerEmail string             `gorm:"type:varchar(255);not null;default:''"`
	Candidate        string             `gorm:"type:varchar(255);not null;default:''"`
	CandidateEmail   string             `gorm:"type:varchar(255);not null;default:''"`
	RoundNumber      int                `gorm:"not null"`
	CalendlyLink     *string            `gorm:"type:text"`
	AddedOn          *time.Time         `gorm:"type:timestamptz"`
	EmailStatus      domain.EmailStatus `gorm:"type:varchar(20);not null"`
	EmailSentAt      *time.Time         `gorm:"type:timestamptz"`
	TATHours         *float64           `gorm:"column:tat_hours;type:numeric(12,2)"`
	TATReadable      *string            `gorm:"column:tat_readable;type:varchar(64)"`
	ErrorMessage     *string            `gorm:"type:varchar(500)"`
	CreatedAt        time.Time
	UpdatedAt        time.Time
}

func (InterviewRoundModel) TableName() string {
	return "interview_rounds"
}

func roundModelFromDomain(r *domain.InterviewRound) *InterviewRoundModel {
	if r == nil {
		return nil
	}

	return &InterviewRoundModel{
		ID:               r.ID,
		Company:          r.Company,
		Interviewer:      r.Interviewer,
		InterviewerEmail: r.InterviewerEmail,
		Candidate:        r.Candidate,
		CandidateEmail:   r.CandidateEmail,
		RoundNumber:      r.RoundNumber,
		CalendlyLink:     r.CalendlyLink,
		AddedOn:          r.AddedOn,
		EmailStatus:      r.EmailStatus,
		EmailSentAt:      r.EmailSentAt,
		TATHours:         r.TATHours,
		TATReadable:      r.TATReadable,
		ErrorMessage:     r.ErrorMessage,
	}
}

func roundModelToDomain(m *InterviewRoundModel) *domain.InterviewRound {
	if m == nil {
		return nil
	}

	return &domain.InterviewRound{
		ID:               m.ID,
		Company:          m.Company,
		Interviewer:      m.Interviewer,
		InterviewerEmail: m.InterviewerEmail,
		Candidate:        m.Candidate,
		CandidateEmail:   m.CandidateEmail,
		RoundNumber:      m.RoundNumber,
		CalendlyLink:     m.CalendlyLink,
		AddedOn:          m.AddedOn,
		EmailStatus:      m.EmailStatus,
		EmailSentAt:      m.EmailSentAt,
		TATHours:         m.TATHours,
		TATReadable:      m.TATReadable,
		ErrorMessage:     m.ErrorMessage,
	}
}

// updateColumns maps an update to column values. Unset turnaround columns are
// written as NULL so a row never carries a stale turnaround.
func updateColumns(u domain.RoundUpdate) map[string]any {
	columns := map[string]any{
		"email_status":  u.EmailStatus,
		"email_sent_at": u.EmailSentAt,
		"tat_hours":     u.TATHours,
		"tat_readable":  u.TATReadable,
	}
	if u.ErrorMessage != nil {
		columns["error_message"] = *u.ErrorMessage
	} else if u.ClearError {
		columns["error_message"] = nil
	}
	return columns
}
