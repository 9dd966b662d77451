package model

import "time"

// OrderWorkflowState is the mutable position of one business order within
// its workflow. Mutated exclusively by the transition engine; LockVersion
// implements the optimistic at-most-one-in-flight-mutation-per-order
// contract.
type OrderWorkflowState struct {
	BaseModel
	OrderID            string    `gorm:"type:varchar(100);column:order_id;not null;uniqueIndex:idx_order_identity" json:"orderId"`
	OrderType          OrderType `gorm:"type:varchar(20);column:order_type;not null;uniqueIndex:idx_order_identity" json:"orderType"`
	CurrentStageCode   string    `gorm:"type:varchar(100);column:current_stage_code;not null;index" json:"currentStageCode"`
	StageStartTime     time.Time `gorm:"type:timestamptz;column:stage_start_time;not null" json:"stageStartTime"` // Reset on every accepted transition
	Priority           Priority  `gorm:"type:varchar(20);column:priority;not null;default:'normal'" json:"priority"`
	AssignedDepartment string    `gorm:"type:varchar(100);column:assigned_department" json:"assignedDepartment,omitempty"`
	AssignedUser       *string   `gorm:"type:varchar(100);column:assigned_user" json:"assignedUser,omitempty"`
	LockVersion        int64     `gorm:"type:bigint;column:lock_version;not null;default:0" json:"-"`
}

func (s *OrderWorkflowState) TableName() string {
	return "order_workflow_states"
}
