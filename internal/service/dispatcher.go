package service

import (
	"context"
	"fmt"
	"sync/atomic"
	"time"

	"github.com/kursadbilgin/interview-dispatch/internal/domain"
	"github.com/kursadbilgin/interview-dispatch/internal/observability"
	"github.com/kursadbilgin/interview-dispatch/internal/repository"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

const (
	DefaultBatchSize = 50
	DefaultDelay     = time.Second
)

// InvitationSender delivers one invitation and reports the outcome without failing.
type InvitationSender interface {
	Send(ctx context.Context, round domain.InterviewRound) domain.SendResult
}

type DispatcherConfig struct {
	BatchSize int
	Delay     time.Duration
}

// Summary counts the outcomes of one dispatch pass.
type Summary struct {
	Total   int
	Sent    int
	Failed  int
	Batches int
}

// Dispatcher sends invitations for pending rounds in delayed batches and
// writes every outcome back to the record store.
type Dispatcher struct {
	store     repository.RoundRepository
	sender    InvitationSender
	batchSize int
	delay     time.Duration
	logger    *zap.Logger
	metrics   *observability.Metrics
	now       func() time.Time
	sleep     func(ctx context.Context, d time.Duration) error
}

func NewDispatcher(
	store repository.RoundRepository,
	sender InvitationSender,
	cfg DispatcherConfig,
	logger *zap.Logger,
) (*Dispatcher, error) {
	if store == nil {
		return nil, fmt.Errorf("round repository is required")
	}
	if sender == nil {
		return nil, fmt.Errorf("invitation sender is required")
	}
	if cfg.BatchSize < 1 {
		cfg.BatchSize = DefaultBatchSize
	}
	if cfg.Delay < 0 {
		cfg.Delay = 0
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	return &Dispatcher{
		store:     store,
		sender:    sender,
		batchSize: cfg.BatchSize,
		delay:     cfg.Delay,
		logger:    logger,
		now:       time.Now,
		sleep:     sleepWithContext,
	}, nil
}

func (d *Dispatcher) SetMetrics(metrics *observability.Metrics) {
	if d == nil {
		return
	}
	d.metrics = metrics
}

// Dispatch processes pending in order. A failed send only marks its own
// round Failed; a failed store write stops the pass once the current batch
// has settled.
func (d *Dispatcher) Dispatch(ctx context.Context, pending []domain.InterviewRound) (Summary, error) {
	logger := observability.WithContextLogger(d.logger, ctx)
	summary := Summary{Total: len(pending)}
	d.metrics.SetPending(len(pending))

	if len(pending) == 0 {
		logger.Info("no pending interview rounds")
		return summary, nil
	}

	var sent, failed atomic.Int64
	totalBatches := (len(pending) + d.batchSize - 1) / d.batchSize

	for batchIndex := 0; batchIndex < totalBatches; batchIndex++ {
		start := batchIndex * d.batchSize
		end := min(start+d.batchSize, len(pending))
		batch := pending[start:end]

		logger.Info("processing batch",
			zap.Int("batch", batchIndex+1),
			zap.Int("batches", totalBatches),
			zap.Int("size", len(batch)),
		)

		err := d.runBatch(ctx, logger, batch, &sent, &failed)
		summary.Batches++
		summary.Sent = int(sent.Load())
		summary.Failed = int(failed.Load())
		d.metrics.IncBatch()
		if err != nil {
			return summary, err
		}

		if batchIndex < totalBatches-1 {
			if err := d.sleep(ctx, d.delay); err != nil {
				return summary, fmt.Errorf("dispatch interrupted: %w", err)
			}
		}
	}

	return summary, nil
}

func (d *Dispatcher) runBatch(
	ctx context.Context,
	logger *zap.Logger,
	batch []domain.InterviewRound,
	sent *atomic.Int64,
	failed *atomic.Int64,
) error {
	// Plain group: a failed write must not cancel sibling sends.
	var g errgroup.Group
	g.SetLimit(len(batch))

	for i := range batch {
		round := batch[i]
		g.Go(func() error {
			result := d.sender.Send(ctx, round)

			var update domain.RoundUpdate
			if result.Success {
				sentAt := d.now().UTC()
				if result.SentAt != nil {
					sentAt = *result.SentAt
				}
				update = domain.SentUpdate(round, sentAt)
				sent.Add(1)
				d.metrics.IncRoundProcessed(domain.EmailStatusSent.String())
				logger.Debug("invitation sent",
					zap.String("recordId", round.ID),
					zap.String("candidateEmail", round.CandidateEmail),
					zap.Int("round", round.RoundNumber),
					zap.String("messageId", result.MessageID),
				)
			} else {
				update = domain.FailedUpdate(result.Error)
				failed.Add(1)
				d.metrics.IncRoundProcessed(domain.EmailStatusFailed.String())
				logger.Warn("invitation failed",
					zap.String("recordId", round.ID),
					zap.String("candidateEmail", round.CandidateEmail),
					zap.Int("round", round.RoundNumber),
					zap.String("error", *update.ErrorMessage),
				)
			}

			if err := d.store.UpdateRecord(ctx, round.ID, update); err != nil {
				logger.Error("failed to write back send outcome",
					zap.String("recordId", round.ID),
					zap.String("status", update.EmailStatus.String()),
					zap.Error(err),
				)
				return fmt.Errorf("failed to update record %s: %w", round.ID, err)
			}
			return nil
		})
	}

	return g.Wait()
}

func sleepWithContext(ctx context.Context, d time.Duration) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	timer := time.NewTimer(d)
	defer timer.Stop()

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
