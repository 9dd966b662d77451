package repository

import (
	"context"
	"errors"
	"fmt"

	"gorm.io/gorm"

	"github.com/open-erp/orderflow/internal/wferr"
	"github.com/open-erp/orderflow/internal/workflow/model"
)

// StateRepository persists OrderWorkflowState rows.
type StateRepository struct {
	db *gorm.DB
}

// NewStateRepository creates a StateRepository.
func NewStateRepository(db *gorm.DB) *StateRepository {
	return &StateRepository{db: db}
}

// Get returns the workflow state for one order identity within tx.
func (r *StateRepository) Get(ctx context.Context, tx *gorm.DB, orderID string, orderType model.OrderType) (*model.OrderWorkflowState, error) {
	var state model.OrderWorkflowState
	err := tx.WithContext(ctx).
		Where("order_id = ? AND order_type = ?", orderID, orderType).
		First(&state).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, wferr.NotFound("order workflow state", fmt.Sprintf("%s/%s", orderType, orderID))
		}
		return nil, fmt.Errorf("failed to query order workflow state: %w", err)
	}
	return &state, nil
}

// GetByOrder returns the workflow state for one order identity outside any
// transaction. Read-side only.
func (r *StateRepository) GetByOrder(ctx context.Context, orderID string, orderType model.OrderType) (*model.OrderWorkflowState, error) {
	return r.Get(ctx, r.db, orderID, orderType)
}

// Create inserts a new workflow state row within tx. A duplicate order
// identity surfaces as a conflict.
func (r *StateRepository) Create(ctx context.Context, tx *gorm.DB, state *model.OrderWorkflowState) error {
	if err := tx.WithContext(ctx).Create(state).Error; err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return wferr.Conflict("order %s/%s already entered the workflow", state.OrderType, state.OrderID)
		}
		return fmt.Errorf("failed to create order workflow state: %w", err)
	}
	return nil
}

// UpdateWithVersion writes the state row guarded by the optimistic version
// check. Returns the number of rows updated; zero means a concurrent
// mutation won and the caller must report a conflict.
func (r *StateRepository) UpdateWithVersion(ctx context.Context, tx *gorm.DB, state *model.OrderWorkflowState, expectedVersion int64) (int64, error) {
	result := tx.WithContext(ctx).
		Model(&model.OrderWorkflowState{}).
		Where("order_id = ? AND order_type = ? AND lock_version = ?", state.OrderID, state.OrderType, expectedVersion).
		Updates(map[string]any{
			"current_stage_code":  state.CurrentStageCode,
			"stage_start_time":    state.StageStartTime,
			"priority":            state.Priority,
			"assigned_department": state.AssignedDepartment,
			"assigned_user":       state.AssignedUser,
			"lock_version":        expectedVersion + 1,
		})
	if result.Error != nil {
		return 0, fmt.Errorf("failed to update order workflow state: %w", result.Error)
	}
	return result.RowsAffected, nil
}

// ListActive returns the workflow states of all orders whose current stage
// is not terminal. Read-side only; used by the overdue dashboard and the
// escalation monitor.
func (r *StateRepository) ListActive(ctx context.Context) ([]model.OrderWorkflowState, error) {
	var states []model.OrderWorkflowState
	err := r.db.WithContext(ctx).
		Joins("JOIN stages ON stages.code = order_workflow_states.current_stage_code").
		Where("stages.stage_type <> ?", model.StageTypeEnd).
		Find(&states).Error
	if err != nil {
		return nil, fmt.Errorf("failed to list active order workflow states: %w", err)
	}
	return states, nil
}

// CountByStage returns how many orders currently sit in the given stage.
// Used to refuse deactivating a stage that is still in use.
func (r *StateRepository) CountByStage(ctx context.Context, stageCode string) (int64, error) {
	var count int64
	err := r.db.WithContext(ctx).
		Model(&model.OrderWorkflowState{}).
		Where("current_stage_code = ?", stageCode).
		Count(&count).Error
	if err != nil {
		return 0, fmt.Errorf("failed to count orders in stage %s: %w", stageCode, err)
	}
	return count, nil
}
