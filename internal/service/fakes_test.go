package service

import (
	"context"

	"github.com/kursadbilgin/interview-dispatch/internal/domain"
)

type fakeRoundRepo struct {
	createRecordsFn func(ctx context.Context, rounds []domain.InterviewRound) ([]domain.InterviewRound, error)
	queryPendingFn  func(ctx context.Context) ([]domain.InterviewRound, error)
	updateRecordFn  func(ctx context.Context, id string, update domain.RoundUpdate) error
}

func (f *fakeRoundRepo) CreateRecords(ctx context.Context, rounds []domain.InterviewRound) ([]domain.InterviewRound, error) {
	if f.createRecordsFn != nil {
		return f.createRecordsFn(ctx, rounds)
	}
	return rounds, nil
}

func (f *fakeRoundRepo) QueryPending(ctx context.Context) ([]domain.InterviewRound, error) {
	if f.queryPendingFn != nil {
		return f.queryPendingFn(ctx)
	}
	return nil, nil
}

func (f *fakeRoundRepo) UpdateRecord(ctx context.Context, id string, update domain.RoundUpdate) error {
	if f.updateRecordFn != nil {
		return f.updateRecordFn(ctx, id, update)
	}
	return nil
}

type fakeSender struct {
	sendFn     func(ctx context.Context, round domain.InterviewRound) domain.SendResult
	sendTestFn func(ctx context.Context, address string) domain.SendResult
}

func (f *fakeSender) Send(ctx context.Context, round domain.InterviewRound) domain.SendResult {
	if f.sendFn != nil {
		return f.sendFn(ctx, round)
	}
	return domain.SendResult{Success: true}
}

func (f *fakeSender) SendTest(ctx context.Context, address string) domain.SendResult {
	if f.sendTestFn != nil {
		return f.sendTestFn(ctx, address)
	}
	return domain.SendResult{Success: true}
}

type fakeRunLock struct {
	acquireFn func(ctx context.Context) (string, error)
	releaseFn func(ctx context.Context, token string) error
}

func (f *fakeRunLock) Acquire(ctx context.Context) (string, error) {
	if f.acquireFn != nil {
		return f.acquireFn(ctx)
	}
	return "token", nil
}

func (f *fakeRunLock) Release(ctx context.Context, token string) error {
	if f.releaseFn != nil {
		return f.releaseFn(ctx, token)
	}
	return nil
}
