package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/kursadbilgin/interview-dispatch/internal/domain"
	"github.com/kursadbilgin/interview-dispatch/internal/ingest"
	"github.com/kursadbilgin/interview-dispatch/internal/observability"
	"github.com/kursadbilgin/interview-dispatch/internal/repository"
	"go.uber.org/zap"
)

// RunLocker guards against two runs working the same store concurrently.
type RunLocker interface {
	Acquire(ctx context.Context) (string, error)
	Release(ctx context.Context, token string) error
}

type PipelineConfig struct {
	CSVPath        string
	SendOnly       bool
	PushgatewayURL string
}

// RunResult describes one completed pipeline run.
type RunResult struct {
	RunID         string
	RowsRead      int
	RoundsCreated int
	Pending       int
	Summary       Summary
}

// Pipeline runs ingest, upload and dispatch end to end.
type Pipeline struct {
	store      repository.RoundRepository
	dispatcher *Dispatcher
	lock       RunLocker
	cfg        PipelineConfig
	logger     *zap.Logger
	metrics    *observability.Metrics
	now        func() time.Time
	readRows   func(path string) ([]ingest.Row, error)
}

func NewPipeline(
	store repository.RoundRepository,
	dispatcher *Dispatcher,
	cfg PipelineConfig,
	logger *zap.Logger,
) (*Pipeline, error) {
	if store == nil {
		return nil, fmt.Errorf("round repository is required")
	}
	if dispatcher == nil {
		return nil, fmt.Errorf("dispatcher is required")
	}
	if !cfg.SendOnly && strings.TrimSpace(cfg.CSVPath) == "" {
		return nil, fmt.Errorf("csv path is required")
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	return &Pipeline{
		store:      store,
		dispatcher: dispatcher,
		cfg:        cfg,
		logger:     logger,
		now:        time.Now,
		readRows:   ingest.ReadFile,
	}, nil
}

// SetRunLock enables the optional single-run guard.
func (p *Pipeline) SetRunLock(lock RunLocker) {
	if p == nil {
		return
	}
	p.lock = lock
}

func (p *Pipeline) SetMetrics(metrics *observability.Metrics) {
	if p == nil {
		return
	}
	p.metrics = metrics
}

func (p *Pipeline) Run(ctx context.Context) (result *RunResult, err error) {
	logger := observability.WithContextLogger(p.logger, ctx)
	runID, _ := observability.RunIDFromContext(ctx)
	result = &RunResult{RunID: runID}

	if p.lock != nil {
		token, lockErr := p.lock.Acquire(ctx)
		if lockErr != nil {
			return nil, fmt.Errorf("failed to acquire run lock: %w", lockErr)
		}
		defer func() {
			if releaseErr := p.lock.Release(context.WithoutCancel(ctx), token); releaseErr != nil {
				logger.Warn("failed to release run lock", zap.Error(releaseErr))
			}
		}()
	}

	defer func() {
		if err == nil {
			p.metrics.MarkRunSucceeded(p.now())
		}
		p.pushMetrics(context.WithoutCancel(ctx), logger, runID)
	}()

	if !p.cfg.SendOnly {
		logger.Warn("every run appends new records; rerunning the same CSV creates duplicate rounds, use -send-only to dispatch existing pending records")

		created, ingestErr := p.ingest(ctx, logger, result)
		if ingestErr != nil {
			return nil, ingestErr
		}
		result.RoundsCreated = created
	}

	pending, err := p.store.QueryPending(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to query pending rounds: %w", err)
	}
	result.Pending = len(pending)
	logger.Info("pending interview rounds loaded", zap.Int("pending", len(pending)))

	summary, err := p.dispatcher.Dispatch(ctx, pending)
	result.Summary = summary
	if err != nil {
		return result, fmt.Errorf("dispatch failed: %w", err)
	}

	logger.Info(fmt.Sprintf("finished sent=%d failed=%d", summary.Sent, summary.Failed),
		zap.Int("sent", summary.Sent),
		zap.Int("failed", summary.Failed),
		zap.Int("batches", summary.Batches),
	)

	return result, nil
}

func (p *Pipeline) ingest(ctx context.Context, logger *zap.Logger, result *RunResult) (int, error) {
	rows, err := p.readRows(p.cfg.CSVPath)
	if err != nil {
		return 0, fmt.Errorf("failed to read csv %s: %w", p.cfg.CSVPath, err)
	}
	result.RowsRead = len(rows)
	p.metrics.AddRowsIngested(len(rows))

	rounds := ingest.SplitRows(rows, p.now())
	logger.Info("csv ingested",
		zap.String("path", p.cfg.CSVPath),
		zap.Int("rows", len(rows)),
		zap.Int("rounds", len(rounds)),
	)

	if len(rounds) == 0 {
		return 0, nil
	}

	created, err := p.store.CreateRecords(ctx, rounds)
	if err != nil {
		return 0, fmt.Errorf("failed to upload interview rounds: %w", err)
	}
	p.metrics.AddRoundsUploaded(len(created))
	logger.Info("interview rounds uploaded", zap.Int("created", len(created)))

	return len(created), nil
}

func (p *Pipeline) pushMetrics(ctx context.Context, logger *zap.Logger, runID string) {
	if p.metrics == nil || strings.TrimSpace(p.cfg.PushgatewayURL) == "" {
		return
	}
	if err := p.metrics.Push(ctx, p.cfg.PushgatewayURL, runID); err != nil {
		logger.Warn("failed to push metrics", zap.Error(err))
	}
}

// ProbeSender sends a single test message.
type ProbeSender interface {
	SendTest(ctx context.Context, address string) domain.SendResult
}

// ErrProbeFailed is returned when the probe email could not be delivered.
var ErrProbeFailed = errors.New("probe email failed")

// SendProbe delivers one test email to address through sender.
func SendProbe(ctx context.Context, sender ProbeSender, address string, logger *zap.Logger) error {
	if sender == nil {
		return fmt.Errorf("probe sender is required")
	}
	if strings.TrimSpace(address) == "" {
		return fmt.Errorf("%w: probe address is required", domain.ErrValidation)
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	result := sender.SendTest(ctx, address)
	if !result.Success {
		return fmt.Errorf("%w: %s", ErrProbeFailed, result.Error)
	}

	logger.Info("probe email sent",
		zap.String("to", address),
		zap.String("messageId", result.MessageID),
	)
	return nil
}
