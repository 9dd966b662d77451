package model

// OrderType discriminates the two business order kinds tracked by the workflow.
type OrderType string

const (
	OrderTypeSales    OrderType = "sales"
	OrderTypePurchase OrderType = "purchase"
)

// Valid reports whether the order type is one of the known kinds.
func (t OrderType) Valid() bool {
	return t == OrderTypeSales || t == OrderTypePurchase
}

// StageType classifies a stage's position in the workflow graph.
type StageType string

const (
	StageTypeStart       StageType = "start"       // Initial stage for an order type
	StageTypeNormal      StageType = "normal"      // Regular intermediate stage
	StageTypeConditional StageType = "conditional" // Stage that may be skipped under a policy condition
	StageTypeEnd         StageType = "end"         // Terminal stage; no further transitions
)

// Priority is the urgency level of an order within the workflow.
type Priority string

const (
	PriorityUrgent Priority = "urgent"
	PriorityHigh   Priority = "high"
	PriorityNormal Priority = "normal"
	PriorityLow    Priority = "low"
)

// Stage is one named point in an order type's workflow sequence.
type Stage struct {
	BaseModel
	Code             string    `gorm:"type:varchar(100);column:code;not null;uniqueIndex" json:"code"`                    // Stable unique stage code
	Name             string    `gorm:"type:varchar(255);column:name;not null" json:"name"`                               // Display name
	NameSecondary    string    `gorm:"type:varchar(255);column:name_secondary" json:"nameSecondary,omitempty"`           // Optional secondary-language display name
	OrderType        OrderType `gorm:"type:varchar(20);column:order_type;not null;index" json:"orderType"`               // Order type this stage belongs to
	Sequence         int       `gorm:"type:int;column:sequence;not null" json:"sequence"`                                // Position within the order type's stage sequence
	StageType        StageType `gorm:"type:varchar(20);column:stage_type;not null" json:"stageType"`                     // start | normal | conditional | end
	Color            string    `gorm:"type:varchar(20);column:color" json:"color,omitempty"`                             // Presentation-only display color
	Icon             string    `gorm:"type:varchar(50);column:icon" json:"icon,omitempty"`                               // Presentation-only display icon
	RequiresApproval bool      `gorm:"type:boolean;column:requires_approval;not null;default:false" json:"requiresApproval"`
	AutoAdvance      bool      `gorm:"type:boolean;column:auto_advance;not null;default:false" json:"autoAdvance"`
	MaxDurationHours *float64  `gorm:"type:numeric;column:max_duration_hours" json:"maxDurationHours,omitempty"` // Optional SLA threshold
	Active           bool      `gorm:"type:boolean;column:active;not null;default:true" json:"active"`
}

func (s *Stage) TableName() string {
	return "stages"
}

// IsTerminal reports whether the stage is an end stage.
func (s *Stage) IsTerminal() bool {
	return s.StageType == StageTypeEnd
}
