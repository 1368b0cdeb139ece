package repository

import (
	"context"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/kursadbilgin/interview-dispatch/internal/domain"
	"gorm.io/gorm"
)

const gormCreateBatchSize = 100

var _ RoundRepository = (*GormRoundRepo)(nil)

// GormRoundRepo stores interview rounds in Postgres.
type GormRoundRepo struct {
	db *gorm.DB
}

func NewGormRoundRepo(db *gorm.DB) *GormRoundRepo {
	return &GormRoundRepo{db: db}
}

func (r *GormRoundRepo) CreateRecords(ctx context.Context, rounds []domain.InterviewRound) ([]domain.InterviewRound, error) {
	if len(rounds) == 0 {
		return nil, nil
	}

	models := make([]InterviewRoundModel, 0, len(rounds))
	for i := range rounds {
		model := roundModelFromDomain(&rounds[i])
		if strings.TrimSpace(model.ID) == "" {
			model.ID = uuid.NewString()
		}
		if model.EmailStatus == "" {
			model.EmailStatus = domain.EmailStatusPending
		}
		models = append(models, *model)
	}

	if err := r.db.WithContext(ctx).CreateInBatches(&models, gormCreateBatchSize).Error; err != nil {
		return nil, fmt.Errorf("failed to create interview rounds: %w", err)
	}

	created := make([]domain.InterviewRound, 0, len(models))
	for i := range models {
		created = append(created, *roundModelToDomain(&models[i]))
	}
	return created, nil
}

func (r *GormRoundRepo) QueryPending(ctx context.Context) ([]domain.InterviewRound, error) {
	var models []InterviewRoundModel
	err := r.db.WithContext(ctx).
		Where("email_status = ?", domain.EmailStatusPending).
		Order("created_at ASC").
		Order("id ASC").
		Limit(MaxPendingRecords).
		Find(&models).Error
	if err != nil {
		return nil, fmt.Errorf("failed to query pending interview rounds: %w", err)
	}

	rounds := make([]domain.InterviewRound, 0, len(models))
	for i := range models {
		rounds = append(rounds, *roundModelToDomain(&models[i]))
	}
	return rounds, nil
}

// UpdateRecord only touches rows that are still Pending.
func (r *GormRoundRepo) UpdateRecord(ctx context.Context, id string, update domain.RoundUpdate) error {
	if err := update.Validate(); err != nil {
		return err
	}

	result := r.db.WithContext(ctx).
		Model(&InterviewRoundModel{}).
		Where("id = ? AND email_status = ?", id, domain.EmailStatusPending).
		Updates(updateColumns(update))
	if result.Error != nil {
		return fmt.Errorf("failed to update interview round %s: %w", id, result.Error)
	}
	if result.RowsAffected > 0 {
		return nil
	}

	var count int64
	if err := r.db.WithContext(ctx).Model(&InterviewRoundModel{}).Where("id = ?", id).Count(&count).Error; err != nil {
		return fmt.Errorf("failed to check interview round %s: %w", id, err)
	}
	if count == 0 {
		return fmt.Errorf("interview round %s: %w", id, domain.ErrNotFound)
	}
	return fmt.Errorf("interview round %s is no longer pending: %w", id, domain.ErrConflict)
}
