package repository

import (
	"context"
	"errors"
	"fmt"

	"gorm.io/gorm"

	"github.com/open-erp/orderflow/internal/wferr"
	"github.com/open-erp/orderflow/internal/workflow/model"
)

// StageRepository persists the stage catalog and its policy overlays.
// Reference data: read by the catalog snapshot, written only by the
// administrative surface.
type StageRepository struct {
	db *gorm.DB
}

// NewStageRepository creates a StageRepository.
func NewStageRepository(db *gorm.DB) *StageRepository {
	return &StageRepository{db: db}
}

// ListStages returns all stages (active and inactive) ordered by order type
// and sequence.
func (r *StageRepository) ListStages(ctx context.Context) ([]model.Stage, error) {
	var stages []model.Stage
	err := r.db.WithContext(ctx).
		Order("order_type ASC, sequence ASC").
		Find(&stages).Error
	if err != nil {
		return nil, fmt.Errorf("failed to list stages: %w", err)
	}
	return stages, nil
}

// ListPolicies returns all stored stage policies.
func (r *StageRepository) ListPolicies(ctx context.Context) ([]model.StagePolicy, error) {
	var policies []model.StagePolicy
	if err := r.db.WithContext(ctx).Find(&policies).Error; err != nil {
		return nil, fmt.Errorf("failed to list stage policies: %w", err)
	}
	return policies, nil
}

// GetStageByCode returns one stage by its code.
func (r *StageRepository) GetStageByCode(ctx context.Context, code string) (*model.Stage, error) {
	var stage model.Stage
	err := r.db.WithContext(ctx).Where("code = ?", code).First(&stage).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, wferr.NotFound("stage", code)
		}
		return nil, fmt.Errorf("failed to query stage %s: %w", code, err)
	}
	return &stage, nil
}

// CreateStage inserts a new stage.
func (r *StageRepository) CreateStage(ctx context.Context, stage *model.Stage) error {
	if err := r.db.WithContext(ctx).Create(stage).Error; err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return wferr.Validation("stage code %q already exists", stage.Code)
		}
		return fmt.Errorf("failed to create stage: %w", err)
	}
	return nil
}

// SaveStage writes an edited stage.
func (r *StageRepository) SaveStage(ctx context.Context, stage *model.Stage) error {
	if err := r.db.WithContext(ctx).Save(stage).Error; err != nil {
		return fmt.Errorf("failed to save stage %s: %w", stage.Code, err)
	}
	return nil
}

// UpsertPolicy creates or replaces the policy overlay for a stage.
func (r *StageRepository) UpsertPolicy(ctx context.Context, policy *model.StagePolicy) error {
	var existing model.StagePolicy
	err := r.db.WithContext(ctx).Where("stage_code = ?", policy.StageCode).First(&existing).Error
	switch {
	case err == nil:
		policy.ID = existing.ID
		policy.CreatedAt = existing.CreatedAt
		if err := r.db.WithContext(ctx).Save(policy).Error; err != nil {
			return fmt.Errorf("failed to update policy for stage %s: %w", policy.StageCode, err)
		}
		return nil
	case errors.Is(err, gorm.ErrRecordNotFound):
		if err := r.db.WithContext(ctx).Create(policy).Error; err != nil {
			return fmt.Errorf("failed to create policy for stage %s: %w", policy.StageCode, err)
		}
		return nil
	default:
		return fmt.Errorf("failed to query policy for stage %s: %w", policy.StageCode, err)
	}
}

// GetPolicyByStageCode returns the stored policy overlay for a stage.
func (r *StageRepository) GetPolicyByStageCode(ctx context.Context, stageCode string) (*model.StagePolicy, error) {
	var policy model.StagePolicy
	err := r.db.WithContext(ctx).Where("stage_code = ?", stageCode).First(&policy).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, wferr.NotFound("stage policy", stageCode)
		}
		return nil, fmt.Errorf("failed to query policy for stage %s: %w", stageCode, err)
	}
	return &policy, nil
}
