package repository

import (
	"context"
	"errors"
	"fmt"

	"gorm.io/gorm"

	"github.com/open-erp/orderflow/internal/wferr"
	"github.com/open-erp/orderflow/internal/workflow/model"
)

// OrderAttributesRepository reads the order fields skip conditions may
// reference. It queries the order_summaries view, a read-only projection
// maintained by the ERP's order modules; the workflow core never writes
// order business data.
type OrderAttributesRepository struct {
	db *gorm.DB
}

// NewOrderAttributesRepository creates an OrderAttributesRepository.
func NewOrderAttributesRepository(db *gorm.DB) *OrderAttributesRepository {
	return &OrderAttributesRepository{db: db}
}

type orderSummaryRow struct {
	OrderID       string  `gorm:"column:order_id"`
	OrderType     string  `gorm:"column:order_type"`
	PartnerName   string  `gorm:"column:partner_name"`
	TotalAmount   float64 `gorm:"column:total_amount"`
	PriorityLevel string  `gorm:"column:priority_level"`
}

// Attributes returns the order's attributes for skip-condition evaluation.
func (r *OrderAttributesRepository) Attributes(ctx context.Context, orderID string, orderType model.OrderType) (model.OrderAttributes, error) {
	var row orderSummaryRow
	err := r.db.WithContext(ctx).
		Table("order_summaries").
		Where("order_id = ? AND order_type = ?", orderID, orderType).
		Take(&row).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return model.OrderAttributes{}, wferr.NotFound("order", fmt.Sprintf("%s/%s", orderType, orderID))
		}
		return model.OrderAttributes{}, fmt.Errorf("failed to query order summary: %w", err)
	}
	return model.OrderAttributes{
		TotalAmount:   row.TotalAmount,
		PartnerName:   row.PartnerName,
		PriorityLevel: model.Priority(row.PriorityLevel),
	}, nil
}
