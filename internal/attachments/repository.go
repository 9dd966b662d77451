package attachments

import (
	"context"
	"errors"

	"gorm.io/gorm"

	"github.com/open-erp/orderflow/internal/wferr"
	"github.com/open-erp/orderflow/internal/workflow/model"
)

// Repository persists attachment metadata.
type Repository struct {
	db *gorm.DB
}

func NewRepository(db *gorm.DB) *Repository {
	return &Repository{db: db}
}

func (r *Repository) Create(ctx context.Context, attachment *Attachment) error {
	if err := r.db.WithContext(ctx).Create(attachment).Error; err != nil {
		return wferr.Wrap(wferr.CodeConfiguration, err, "failed to store attachment metadata")
	}
	return nil
}

func (r *Repository) ListForOrder(ctx context.Context, orderID string, orderType model.OrderType) ([]Attachment, error) {
	var results []Attachment
	err := r.db.WithContext(ctx).
		Where("order_id = ? AND order_type = ?", orderID, orderType).
		Order("created_at ASC").
		Find(&results).Error
	if err != nil {
		return nil, wferr.Wrap(wferr.CodeConfiguration, err, "failed to list attachments")
	}
	return results, nil
}

func (r *Repository) GetByKey(ctx context.Context, key string) (*Attachment, error) {
	var attachment Attachment
	err := r.db.WithContext(ctx).Where("key = ?", key).First(&attachment).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, wferr.NotFound("attachment", key)
		}
		return nil, wferr.Wrap(wferr.CodeConfiguration, err, "failed to load attachment")
	}
	return &attachment, nil
}
