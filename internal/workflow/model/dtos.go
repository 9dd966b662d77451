package model

import "time"

// Transition commands. Each engine action has its own command record so
// that required fields are explicit at the boundary instead of being
// carried in a loosely-typed payload.

// EnterCommand places an order into the workflow at its initial stage.
type EnterCommand struct {
	OrderID    string    `json:"orderId"`
	OrderType  OrderType `json:"orderType"`
	Actor      string    `json:"actor"`
	Department string    `json:"department"`
	Priority   Priority  `json:"priority,omitempty"`
	Notes      string    `json:"notes,omitempty"`
}

// AdvanceCommand moves an order to the next stage in its sequence.
type AdvanceCommand struct {
	OrderID    string    `json:"orderId"`
	OrderType  OrderType `json:"orderType"`
	Actor      string    `json:"actor"`
	Department string    `json:"department"`
	Notes      string    `json:"notes,omitempty"`
	Notify     bool      `json:"notify,omitempty"` // Dispatch a best-effort notification after commit
}

// RejectCommand moves an order to its rejection target stage. Reason is
// mandatory.
type RejectCommand struct {
	OrderID    string    `json:"orderId"`
	OrderType  OrderType `json:"orderType"`
	Actor      string    `json:"actor"`
	Department string    `json:"department"`
	Reason     string    `json:"reason"`
	Notes      string    `json:"notes,omitempty"`
	Notify     bool      `json:"notify,omitempty"`
}

// ReturnCommand moves an order backward to an earlier stage in its sequence.
type ReturnCommand struct {
	OrderID         string    `json:"orderId"`
	OrderType       OrderType `json:"orderType"`
	Actor           string    `json:"actor"`
	Department      string    `json:"department"`
	TargetStageCode string    `json:"targetStageCode"`
	Notes           string    `json:"notes,omitempty"`
	Notify          bool      `json:"notify,omitempty"`
}

// ReassignCommand changes an order's assignment without moving its stage.
type ReassignCommand struct {
	OrderID       string    `json:"orderId"`
	OrderType     OrderType `json:"orderType"`
	Actor         string    `json:"actor"`
	Department    string    `json:"department"`
	NewDepartment string    `json:"newDepartment"`
	NewUser       *string   `json:"newUser,omitempty"`
	Notes         string    `json:"notes,omitempty"`
}

// WorkflowStateResponse is the per-order view combining current state with
// derived SLA flags.
type WorkflowStateResponse struct {
	OrderID              string    `json:"orderId"`
	OrderType            OrderType `json:"orderType"`
	CurrentStageCode     string    `json:"currentStageCode"`
	CurrentStageName     string    `json:"currentStageName"`
	StageType            StageType `json:"stageType"`
	Completed            bool      `json:"completed"` // Derived: current stage is terminal
	StageStartTime       time.Time `json:"stageStartTime"`
	HoursInStage         float64   `json:"hoursInStage"`
	Overdue              bool      `json:"overdue"`
	WarningDue           bool      `json:"warningDue"`
	EscalationDue        bool      `json:"escalationDue"`
	EscalationDepartment string    `json:"escalationDepartment,omitempty"`
	Priority             Priority  `json:"priority"`
	AssignedDepartment   string    `json:"assignedDepartment,omitempty"`
	AssignedUser         *string   `json:"assignedUser,omitempty"`
}

// CreateStageDTO creates a new stage via the administrative surface.
type CreateStageDTO struct {
	Code             string    `json:"code"`
	Name             string    `json:"name"`
	NameSecondary    string    `json:"nameSecondary,omitempty"`
	OrderType        OrderType `json:"orderType"`
	Sequence         int       `json:"sequence"`
	StageType        StageType `json:"stageType"`
	Color            string    `json:"color,omitempty"`
	Icon             string    `json:"icon,omitempty"`
	RequiresApproval bool      `json:"requiresApproval"`
	AutoAdvance      bool      `json:"autoAdvance"`
	MaxDurationHours *float64  `json:"maxDurationHours,omitempty"`
}

// UpdateStageDTO edits an existing stage. Nil fields are left unchanged.
type UpdateStageDTO struct {
	Name             *string    `json:"name,omitempty"`
	NameSecondary    *string    `json:"nameSecondary,omitempty"`
	Sequence         *int       `json:"sequence,omitempty"`
	StageType        *StageType `json:"stageType,omitempty"`
	Color            *string    `json:"color,omitempty"`
	Icon             *string    `json:"icon,omitempty"`
	RequiresApproval *bool      `json:"requiresApproval,omitempty"`
	AutoAdvance      *bool      `json:"autoAdvance,omitempty"`
	MaxDurationHours *float64   `json:"maxDurationHours,omitempty"`
}

// UpsertPolicyDTO creates or replaces the flexibility policy for a stage.
type UpsertPolicyDTO struct {
	IsOptional               bool           `json:"isOptional"`
	CanSkip                  bool           `json:"canSkip"`
	SkipCondition            *SkipCondition `json:"skipCondition,omitempty"`
	RequiresPreviousApproval bool           `json:"requiresPreviousApproval"`
	ApprovalDepartment       string         `json:"approvalDepartment,omitempty"`
	MaxDurationHours         *float64       `json:"maxDurationHours,omitempty"`
	WarningHours             *float64       `json:"warningHours,omitempty"`
	EscalationHours          *float64       `json:"escalationHours,omitempty"`
	EscalationDepartment     string         `json:"escalationDepartment,omitempty"`
	RejectionTargetStageCode string         `json:"rejectionTargetStageCode,omitempty"`
}

// OverdueOrderDTO is one row of the overdue dashboard.
type OverdueOrderDTO struct {
	OrderID              string    `json:"orderId"`
	OrderType            OrderType `json:"orderType"`
	CurrentStageCode     string    `json:"currentStageCode"`
	HoursInStage         float64   `json:"hoursInStage"`
	MaxDurationHours     float64   `json:"maxDurationHours"`
	Priority             Priority  `json:"priority"`
	AssignedDepartment   string    `json:"assignedDepartment,omitempty"`
	EscalationDue        bool      `json:"escalationDue"`
	EscalationDepartment string    `json:"escalationDepartment,omitempty"`
}
