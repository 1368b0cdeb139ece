package ingest

import (
	"time"

	"github.com/kursadbilgin/interview-dispatch/internal/domain"
)

// SplitRow expands one candidate row into one pending interview round per
// scheduling token. A row without tokens yields a single round 1 with no link.
func SplitRow(row Row, now time.Time) []domain.InterviewRound {
	base := domain.InterviewRound{
		Company:          row.Get(ColumnCompany),
		Interviewer:      row.Get(ColumnInterviewer),
		InterviewerEmail: row.Get(ColumnInterviewerEmail),
		Candidate:        row.Get(ColumnCandidate),
		CandidateEmail:   row.Get(ColumnCandidateEmail),
		AddedOn:          NormalizeAddedOn(row.Get(ColumnAddedOn), now),
		EmailStatus:      domain.EmailStatusPending,
	}

	descriptors := ParseRounds(row.Get(ColumnSchedulingMethod))
	if len(descriptors) == 0 {
		round := base
		round.RoundNumber = 1
		return []domain.InterviewRound{round}
	}

	rounds := make([]domain.InterviewRound, 0, len(descriptors))
	for _, d := range descriptors {
		round := base
		round.RoundNumber = d.RoundNumber
		link := d.CalendlyLink
		round.CalendlyLink = &link
		rounds = append(rounds, round)
	}
	return rounds
}

// SplitRows flattens SplitRow over rows, preserving order.
func SplitRows(rows []Row, now time.Time) []domain.InterviewRound {
	rounds := make([]domain.InterviewRound, 0, len(rows))
	for _, row := range rows {
		rounds = append(rounds, SplitRow(row, now)...)
	}
	return rounds
}
