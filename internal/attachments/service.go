package attachments

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"path/filepath"

	"github.com/google/uuid"

	"github.com/open-erp/orderflow/internal/workflow/model"
)

// StateGetter looks up the live workflow position of an order so uploads
// can be stamped with the stage they arrived in.
type StateGetter interface {
	GetByOrder(ctx context.Context, orderID string, orderType model.OrderType) (*model.OrderWorkflowState, error)
}

// MetadataStore persists attachment metadata rows.
type MetadataStore interface {
	Create(ctx context.Context, attachment *Attachment) error
	ListForOrder(ctx context.Context, orderID string, orderType model.OrderType) ([]Attachment, error)
	GetByKey(ctx context.Context, key string) (*Attachment, error)
}

// AttachmentService stores attachment binaries via the driver and keeps
// their metadata rows alongside the order workflow state.
type AttachmentService struct {
	Driver StorageDriver
	repo   MetadataStore
	states StateGetter
}

func NewAttachmentService(driver StorageDriver, repo MetadataStore, states StateGetter) *AttachmentService {
	return &AttachmentService{Driver: driver, repo: repo, states: states}
}

// Attach saves the incoming file for an order and records its metadata. The
// order must already be tracked; its current stage is captured on the row.
func (s *AttachmentService) Attach(ctx context.Context, orderID string, orderType model.OrderType, actor, filename string, reader io.Reader, size int64, mime string) (*Attachment, error) {
	state, err := s.states.GetByOrder(ctx, orderID, orderType)
	if err != nil {
		return nil, err
	}

	if mime == "" {
		mime = "application/octet-stream"
	}
	id := uuid.New()
	ext := filepath.Ext(filename)
	key := fmt.Sprintf("%s%s", id.String(), ext)

	if err := s.Driver.Save(ctx, key, reader, mime); err != nil {
		return nil, fmt.Errorf("storage driver failed: %w", err)
	}

	url, err := s.Driver.GenerateURL(ctx, key, 0)
	if err != nil {
		if delErr := s.Driver.Delete(ctx, key); delErr != nil {
			slog.WarnContext(ctx, "failed to cleanup orphaned attachment", "key", key, "error", delErr)
		}
		return nil, fmt.Errorf("failed to generate URL: %w", err)
	}

	attachment := &Attachment{
		OrderID:    orderID,
		OrderType:  orderType,
		StageCode:  state.CurrentStageCode,
		UploadedBy: actor,
		Name:       filename,
		Key:        key,
		URL:        url,
		Size:       size,
		MimeType:   mime,
	}
	attachment.ID = id

	if err := s.repo.Create(ctx, attachment); err != nil {
		if delErr := s.Driver.Delete(ctx, key); delErr != nil {
			slog.WarnContext(ctx, "failed to cleanup orphaned attachment", "key", key, "error", delErr)
		}
		return nil, err
	}

	slog.InfoContext(ctx, "attachment stored", "id", id, "key", key, "orderId", orderID, "stage", state.CurrentStageCode)
	return attachment, nil
}

// List returns the metadata of every attachment filed against an order.
func (s *AttachmentService) List(ctx context.Context, orderID string, orderType model.OrderType) ([]Attachment, error) {
	return s.repo.ListForOrder(ctx, orderID, orderType)
}

// Open streams an attachment back by its storage key.
func (s *AttachmentService) Open(ctx context.Context, key string) (io.ReadCloser, string, error) {
	if _, err := s.repo.GetByKey(ctx, key); err != nil {
		return nil, "", err
	}
	return s.Driver.Get(ctx, key)
}
