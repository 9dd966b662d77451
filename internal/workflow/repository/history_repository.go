package repository

import (
	"context"
	"fmt"
	"time"

	"gorm.io/gorm"

	"github.com/open-erp/orderflow/internal/workflow/model"
	"github.com/open-erp/orderflow/utils"
)

// HistoryRepository persists the append-only transition ledger. Entries are
// written exactly once inside the engine's transaction and never updated or
// deleted.
type HistoryRepository struct {
	db *gorm.DB
}

// NewHistoryRepository creates a HistoryRepository.
func NewHistoryRepository(db *gorm.DB) *HistoryRepository {
	return &HistoryRepository{db: db}
}

// Append writes one history entry within tx.
func (r *HistoryRepository) Append(ctx context.Context, tx *gorm.DB, entry *model.HistoryEntry) error {
	if err := tx.WithContext(ctx).Create(entry).Error; err != nil {
		return fmt.Errorf("failed to append history entry: %w", err)
	}
	return nil
}

// ListForOrder returns the order's history entries ordered by acceptance
// time ascending, tie-broken by insertion sequence.
func (r *HistoryRepository) ListForOrder(ctx context.Context, orderID string, orderType model.OrderType, offset, limit *int) ([]model.HistoryEntry, error) {
	finalOffset, finalLimit := utils.GetPaginationParams(offset, limit)

	var entries []model.HistoryEntry
	err := r.db.WithContext(ctx).
		Where("order_id = ? AND order_type = ?", orderID, orderType).
		Order("recorded_at ASC, seq ASC").
		Offset(finalOffset).
		Limit(finalLimit).
		Find(&entries).Error
	if err != nil {
		return nil, fmt.Errorf("failed to list history entries: %w", err)
	}
	return entries, nil
}

// HasReassignToDepartment reports whether the order already has a reassign
// entry to the given department at or after since. The escalation monitor
// uses this to escalate each overdue stay exactly once.
func (r *HistoryRepository) HasReassignToDepartment(ctx context.Context, orderID string, orderType model.OrderType, department string, since time.Time) (bool, error) {
	var count int64
	err := r.db.WithContext(ctx).
		Model(&model.HistoryEntry{}).
		Where("order_id = ? AND order_type = ? AND action = ? AND reassigned_to = ? AND recorded_at >= ?",
			orderID, orderType, model.ActionReassign, department, since).
		Count(&count).Error
	if err != nil {
		return false, fmt.Errorf("failed to query reassign history: %w", err)
	}
	return count > 0, nil
}
