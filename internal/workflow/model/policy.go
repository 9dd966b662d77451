package model

import "fmt"

// StagePolicy is the optional flexibility overlay for one stage. A stage
// with no stored policy uses a default synthesized from the stage's own
// flags (see service.PolicyResolver).
type StagePolicy struct {
	BaseModel
	StageCode                string         `gorm:"type:varchar(100);column:stage_code;not null;uniqueIndex" json:"stageCode"`
	IsOptional               bool           `gorm:"type:boolean;column:is_optional;not null;default:false" json:"isOptional"`
	CanSkip                  bool           `gorm:"type:boolean;column:can_skip;not null;default:false" json:"canSkip"`
	SkipCondition            *SkipCondition `gorm:"type:jsonb;column:skip_condition;serializer:json" json:"skipCondition,omitempty"` // Predicate over order attributes; nil means skip unconditionally when CanSkip is set
	RequiresPreviousApproval bool           `gorm:"type:boolean;column:requires_previous_approval;not null;default:false" json:"requiresPreviousApproval"`
	ApprovalDepartment       string         `gorm:"type:varchar(100);column:approval_department" json:"approvalDepartment,omitempty"` // Department allowed to advance when the stage requires approval; empty means any department
	MaxDurationHours         *float64       `gorm:"type:numeric;column:max_duration_hours" json:"maxDurationHours,omitempty"` // Overrides the stage's own SLA threshold when set
	WarningHours             *float64       `gorm:"type:numeric;column:warning_hours" json:"warningHours,omitempty"`
	EscalationHours          *float64       `gorm:"type:numeric;column:escalation_hours" json:"escalationHours,omitempty"`
	EscalationDepartment     string         `gorm:"type:varchar(100);column:escalation_department" json:"escalationDepartment,omitempty"`
	RejectionTargetStageCode string         `gorm:"type:varchar(100);column:rejection_target_stage_code" json:"rejectionTargetStageCode,omitempty"` // Stage a rejected order moves to; empty falls back to the order type's "rejected" end stage
}

func (p *StagePolicy) TableName() string {
	return "stage_policies"
}

// Validate checks the policy's internal threshold consistency against the
// stage it overlays. maxDurationHours is the stage's own SLA threshold and
// may be nil; the policy's MaxDurationHours takes precedence when set.
func (p *StagePolicy) Validate(maxDurationHours *float64) error {
	if p.StageCode == "" {
		return fmt.Errorf("stage policy has empty stage code")
	}
	if p.MaxDurationHours != nil {
		if *p.MaxDurationHours <= 0 {
			return fmt.Errorf("policy for stage %s has non-positive max duration hours", p.StageCode)
		}
		maxDurationHours = p.MaxDurationHours
	}
	if p.WarningHours != nil && *p.WarningHours < 0 {
		return fmt.Errorf("policy for stage %s has negative warning hours", p.StageCode)
	}
	if p.EscalationHours != nil && *p.EscalationHours < 0 {
		return fmt.Errorf("policy for stage %s has negative escalation hours", p.StageCode)
	}
	if p.WarningHours != nil && p.EscalationHours != nil && *p.EscalationHours < *p.WarningHours {
		return fmt.Errorf("policy for stage %s has escalation hours %.2f below warning hours %.2f",
			p.StageCode, *p.EscalationHours, *p.WarningHours)
	}
	if p.WarningHours != nil && maxDurationHours != nil && *p.WarningHours > *maxDurationHours {
		return fmt.Errorf("policy for stage %s has warning hours %.2f above the stage's max duration %.2f",
			p.StageCode, *p.WarningHours, *maxDurationHours)
	}
	if p.EscalationHours != nil && p.EscalationDepartment == "" {
		return fmt.Errorf("policy for stage %s sets escalation hours without an escalation department", p.StageCode)
	}
	if p.SkipCondition != nil {
		if err := p.SkipCondition.Validate(); err != nil {
			return fmt.Errorf("policy for stage %s has invalid skip condition: %w", p.StageCode, err)
		}
	}
	return nil
}
