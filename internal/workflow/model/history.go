package model

import "time"

// ActionType is the kind of transition recorded in a history entry.
type ActionType string

const (
	ActionAdvance  ActionType = "advance"
	ActionReject   ActionType = "reject"
	ActionReturn   ActionType = "return"
	ActionReassign ActionType = "reassign"
)

// HistoryEntry is one immutable record of an accepted transition. Entries
// are append-only: never updated or deleted. Per order they form a total
// order by (RecordedAt, Seq).
type HistoryEntry struct {
	BaseModel
	Seq          int64      `gorm:"type:bigint;column:seq;not null;autoIncrement;uniqueIndex" json:"seq"` // Insertion-order tie-breaker for identical timestamps
	OrderID      string     `gorm:"type:varchar(100);column:order_id;not null;index:idx_history_order" json:"orderId"`
	OrderType    OrderType  `gorm:"type:varchar(20);column:order_type;not null;index:idx_history_order" json:"orderType"`
	FromStage    *string    `gorm:"type:varchar(100);column:from_stage" json:"fromStage,omitempty"` // Nil on the initial entry
	ToStage      string     `gorm:"type:varchar(100);column:to_stage;not null" json:"toStage"`
	Action       ActionType `gorm:"type:varchar(20);column:action;not null" json:"action"`
	Actor        string     `gorm:"type:varchar(100);column:actor;not null" json:"actor"`
	Department   string     `gorm:"type:varchar(100);column:department" json:"department,omitempty"`
	ReassignedTo string     `gorm:"type:varchar(100);column:reassigned_to" json:"reassignedTo,omitempty"` // Target department of a reassign action
	Reason       string     `gorm:"type:text;column:reason" json:"reason,omitempty"` // Required for reject actions
	Notes        string     `gorm:"type:text;column:notes" json:"notes,omitempty"`
	RecordedAt   time.Time  `gorm:"type:timestamptz;column:recorded_at;not null;index:idx_history_order" json:"recordedAt"`
}

func (h *HistoryEntry) TableName() string {
	return "workflow_history_entries"
}
