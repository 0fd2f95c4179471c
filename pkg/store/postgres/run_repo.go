package postgres

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/nightgate/nightgate/pkg/model"
	"github.com/nightgate/nightgate/pkg/store"
)

const (
	decisionBatchSize = 100
	defaultListLimit  = 50
	maxListLimit      = 500
)

type RunRepository struct {
	db *gorm.DB
}

var (
	_ store.RunWriter = (*RunRepository)(nil)
	_ store.RunReader = (*RunRepository)(nil)
)

func NewRunRepository(db *gorm.DB) *RunRepository {
	return &RunRepository{db: db}
}

func (r *RunRepository) CreateRun(ctx context.Context, run *model.Run) error {
	return r.db.WithContext(ctx).Create(run).Error
}

func (r *RunRepository) AppendDecisions(ctx context.Context, decisions []*model.Decision) error {
	if len(decisions) == 0 {
		return nil
	}
	return r.db.WithContext(ctx).CreateInBatches(decisions, decisionBatchSize).Error
}

func (r *RunRepository) FinishRun(ctx context.Context, id uuid.UUID, result store.RunResult) error {
	finishedAt := result.FinishedAt
	if finishedAt.IsZero() {
		finishedAt = time.Now()
	}

	updates := map[string]interface{}{
		"status":         result.Status,
		"admitted":       result.Admitted,
		"rejected":       result.Rejected,
		"processed":      result.Processed,
		"reason_counts":  toJSONB(result.ReasonCounts),
		"need_remaining": toJSONB(result.NeedRemaining),
		"finished_at":    &finishedAt,
		"updated_at":     time.Now(),
	}
	if result.FailureReason != "" {
		updates["failure_reason"] = result.FailureReason
	}

	tx := r.db.WithContext(ctx).Model(&model.Run{}).Where("id = ?", id).Updates(updates)
	if tx.Error != nil {
		return tx.Error
	}
	if tx.RowsAffected == 0 {
		return store.ErrRunNotFound
	}
	return nil
}

func (r *RunRepository) List(ctx context.Context, filter store.RunFilter) ([]model.Run, int64, error) {
	var runs []model.Run
	var total int64

	if err := r.db.WithContext(ctx).Model(&model.Run{}).Scopes(runFilterScope(filter)).Count(&total).Error; err != nil {
		return nil, 0, err
	}

	err := r.db.WithContext(ctx).
		Scopes(runFilterScope(filter)).
		Order("created_at DESC").
		Limit(clampLimit(filter.Limit)).
		Offset(filter.Offset).
		Find(&runs).Error

	return runs, total, err
}

// runFilterScope applies the status and player filters. The count and page
// queries each get their own statement.
func runFilterScope(filter store.RunFilter) func(*gorm.DB) *gorm.DB {
	return func(db *gorm.DB) *gorm.DB {
		if filter.Status != nil {
			db = db.Where("status = ?", *filter.Status)
		}
		if filter.PlayerID != "" {
			db = db.Where("player_id = ?", filter.PlayerID)
		}
		return db
	}
}

func (r *RunRepository) GetByID(ctx context.Context, id uuid.UUID) (*model.Run, error) {
	var run model.Run
	err := r.db.WithContext(ctx).First(&run, "id = ?", id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, store.ErrRunNotFound
	}
	if err != nil {
		return nil, err
	}
	return &run, nil
}

func (r *RunRepository) ListDecisions(ctx context.Context, runID uuid.UUID, limit, offset int) ([]model.Decision, error) {
	var decisions []model.Decision
	err := r.db.WithContext(ctx).
		Where("run_id = ?", runID).
		Order("candidate_index ASC").
		Limit(clampLimit(limit)).
		Offset(offset).
		Find(&decisions).Error
	return decisions, err
}

func clampLimit(limit int) int {
	if limit <= 0 {
		return defaultListLimit
	}
	if limit > maxListLimit {
		return maxListLimit
	}
	return limit
}

func toJSONB(counts map[string]int) model.JSONB {
	out := make(model.JSONB, len(counts))
	for k, v := range counts {
		out[k] = v
	}
	return out
}
