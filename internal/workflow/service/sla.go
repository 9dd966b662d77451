package service

import (
	"time"

	"github.com/open-erp/orderflow/internal/workflow/model"
)

// SLA calculations are pure reads over workflow state; every presentation
// surface and the escalation monitor share these instead of recomputing
// overdue logic independently.

// HoursInStage returns the hours elapsed since the order entered its
// current stage. Clock skew clamps to zero, never negative.
func HoursInStage(state *model.OrderWorkflowState, now time.Time) float64 {
	hours := now.Sub(state.StageStartTime).Hours()
	if hours < 0 {
		return 0
	}
	return hours
}

// maxDurationThreshold returns the effective SLA threshold for a stage:
// the policy's override when set, otherwise the stage's own threshold.
// Nil means no threshold is configured, which is not an error.
func maxDurationThreshold(stage *model.Stage, policy *model.StagePolicy) *float64 {
	if policy != nil && policy.MaxDurationHours != nil {
		return policy.MaxDurationHours
	}
	if stage != nil {
		return stage.MaxDurationHours
	}
	return nil
}

// IsOverdue reports whether the order has exceeded its stage's SLA
// threshold. Without a configured threshold an order is never overdue.
func IsOverdue(state *model.OrderWorkflowState, stage *model.Stage, policy *model.StagePolicy, now time.Time) bool {
	threshold := maxDurationThreshold(stage, policy)
	if threshold == nil {
		return false
	}
	return HoursInStage(state, now) >= *threshold
}

// WarningDue reports whether the order has passed its stage's warning
// threshold.
func WarningDue(state *model.OrderWorkflowState, policy *model.StagePolicy, now time.Time) bool {
	if policy == nil || policy.WarningHours == nil {
		return false
	}
	return HoursInStage(state, now) >= *policy.WarningHours
}

// EscalationDue reports whether the order has passed its stage's
// escalation threshold, returning the target department. Idempotent:
// recomputed on every call, not tracked as a one-shot event. Callers
// needing escalate-exactly-once semantics check the history ledger for an
// existing reassign to the escalation department.
func EscalationDue(state *model.OrderWorkflowState, policy *model.StagePolicy, now time.Time) (string, bool) {
	if policy == nil || policy.EscalationHours == nil || policy.EscalationDepartment == "" {
		return "", false
	}
	if HoursInStage(state, now) >= *policy.EscalationHours {
		return policy.EscalationDepartment, true
	}
	return "", false
}
