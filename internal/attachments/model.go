package attachments

import (
	"github.com/open-erp/orderflow/internal/workflow/model"
)

// Attachment records a document attached to an order while it moves through
// its workflow, e.g. a signed delivery note or a rejection photo. The binary
// itself lives behind the StorageDriver; this row holds its metadata.
type Attachment struct {
	model.BaseModel
	OrderID    string          `gorm:"type:varchar(100);column:order_id;not null;index:idx_attachment_order" json:"orderId"`
	OrderType  model.OrderType `gorm:"type:varchar(20);column:order_type;not null;index:idx_attachment_order" json:"orderType"`
	StageCode  string          `gorm:"type:varchar(100);column:stage_code" json:"stageCode,omitempty"`
	UploadedBy string          `gorm:"type:varchar(100);column:uploaded_by;not null" json:"uploadedBy"`
	Name       string          `gorm:"type:varchar(255);column:name;not null" json:"name"`
	Key        string          `gorm:"type:varchar(255);column:key;not null;uniqueIndex" json:"key"`
	URL        string          `gorm:"type:text;column:url" json:"url"`
	Size       int64           `gorm:"type:bigint;column:size;not null" json:"size"`
	MimeType   string          `gorm:"type:varchar(100);column:mime_type;not null" json:"mimeType"`
}

func (a *Attachment) TableName() string {
	return "order_attachments"
}
