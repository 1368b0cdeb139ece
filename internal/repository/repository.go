package repository

import (
	"context"
	"fmt"
	"strings"

	"github.com/kursadbilgin/interview-dispatch/internal/domain"
)

// MaxPendingRecords caps a single pending query.
const MaxPendingRecords = 1000

// RoundRepository is the interview round record store port.
type RoundRepository interface {
	CreateRecords(ctx context.Context, rounds []domain.InterviewRound) ([]domain.InterviewRound, error)
	QueryPending(ctx context.Context) ([]domain.InterviewRound, error)
	UpdateRecord(ctx context.Context, id string, update domain.RoundUpdate) error
}

// StoreError describes a failed call to a remote record store.
type StoreError struct {
	Backend    string
	Operation  string
	StatusCode int
	Message    string
	Cause      error
}

func (e *StoreError) Error() string {
	if e == nil {
		return "<nil>"
	}

	parts := make([]string, 0, 4)
	parts = append(parts, fmt.Sprintf("%s %s failed", e.Backend, e.Operation))
	if e.StatusCode > 0 {
		parts = append(parts, fmt.Sprintf("status=%d", e.StatusCode))
	}
	if msg := strings.TrimSpace(e.Message); msg != "" {
		parts = append(parts, msg)
	}
	if e.Cause != nil {
		parts = append(parts, e.Cause.Error())
	}

	return strings.Join(parts, ": ")
}

func (e *StoreError) Unwrap() error {
	if e == nil {
		return nil
	}
	return e.Cause
}

func chunkRounds(rounds []domain.InterviewRound, size int) [][]domain.InterviewRound {
	if size < 1 {
		size = 1
	}
	chunks := make([][]domain.InterviewRound, 0, (len(rounds)+size-1)/size)
	for start := 0; start < len(rounds); start += size {
		end := min(start+size, len(rounds))
		chunks = append(chunks, rounds[start:end])
	}
	return chunks
}
