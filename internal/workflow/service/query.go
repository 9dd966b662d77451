package service

import (
	"context"
	"time"

	"github.com/open-erp/orderflow/internal/workflow/model"
)

// StateReader is the query service's read-side view of workflow state.
type StateReader interface {
	GetByOrder(ctx context.Context, orderID string, orderType model.OrderType) (*model.OrderWorkflowState, error)
	ListActive(ctx context.Context) ([]model.OrderWorkflowState, error)
}

// HistoryReader lists the transition ledger.
type HistoryReader interface {
	ListForOrder(ctx context.Context, orderID string, orderType model.OrderType, offset, limit *int) ([]model.HistoryEntry, error)
}

// QueryService serves the read side: per-order workflow views with derived
// SLA flags, transition history, and the overdue dashboard. It never
// mutates state.
type QueryService struct {
	states   StateReader
	history  HistoryReader
	catalogs CatalogSource
	now      func() time.Time
}

// NewQueryService creates a QueryService.
func NewQueryService(states StateReader, history HistoryReader, catalogs CatalogSource) *QueryService {
	return &QueryService{
		states:   states,
		history:  history,
		catalogs: catalogs,
		now:      func() time.Time { return time.Now().UTC() },
	}
}

// WorkflowState returns the order's current position with derived SLA
// flags. Completion is derived from the stage type, not stored.
func (s *QueryService) WorkflowState(ctx context.Context, orderID string, orderType model.OrderType) (*model.WorkflowStateResponse, error) {
	catalog, err := s.catalogs.Catalog()
	if err != nil {
		return nil, err
	}
	state, err := s.states.GetByOrder(ctx, orderID, orderType)
	if err != nil {
		return nil, err
	}
	stage, err := catalog.Stage(state.CurrentStageCode)
	if err != nil {
		return nil, err
	}
	policy := catalog.PolicyFor(stage)

	now := s.now()
	escalationDept, escalationDue := EscalationDue(state, policy, now)
	return &model.WorkflowStateResponse{
		OrderID:              state.OrderID,
		OrderType:            state.OrderType,
		CurrentStageCode:     stage.Code,
		CurrentStageName:     stage.Name,
		StageType:            stage.StageType,
		Completed:            stage.IsTerminal(),
		StageStartTime:       state.StageStartTime,
		HoursInStage:         HoursInStage(state, now),
		Overdue:              IsOverdue(state, stage, policy, now),
		WarningDue:           WarningDue(state, policy, now),
		EscalationDue:        escalationDue,
		EscalationDepartment: escalationDept,
		Priority:             state.Priority,
		AssignedDepartment:   state.AssignedDepartment,
		AssignedUser:         state.AssignedUser,
	}, nil
}

// History returns the order's transition ledger, oldest first.
func (s *QueryService) History(ctx context.Context, orderID string, orderType model.OrderType, offset, limit *int) ([]model.HistoryEntry, error) {
	return s.history.ListForOrder(ctx, orderID, orderType, offset, limit)
}

// OverdueOrders returns every active order past its stage's SLA threshold.
// Orders in stages without a threshold are never overdue.
func (s *QueryService) OverdueOrders(ctx context.Context) ([]model.OverdueOrderDTO, error) {
	catalog, err := s.catalogs.Catalog()
	if err != nil {
		return nil, err
	}
	states, err := s.states.ListActive(ctx)
	if err != nil {
		return nil, err
	}

	now := s.now()
	overdue := make([]model.OverdueOrderDTO, 0)
	for i := range states {
		state := &states[i]
		stage, err := catalog.Stage(state.CurrentStageCode)
		if err != nil {
			// Dangling stage references are a configuration problem; the
			// dashboard skips the row rather than failing wholesale.
			continue
		}
		policy := catalog.PolicyFor(stage)
		if !IsOverdue(state, stage, policy, now) {
			continue
		}

		threshold := maxDurationThreshold(stage, policy)
		escalationDept, escalationDue := EscalationDue(state, policy, now)
		overdue = append(overdue, model.OverdueOrderDTO{
			OrderID:              state.OrderID,
			OrderType:            state.OrderType,
			CurrentStageCode:     state.CurrentStageCode,
			HoursInStage:         HoursInStage(state, now),
			MaxDurationHours:     *threshold,
			Priority:             state.Priority,
			AssignedDepartment:   state.AssignedDepartment,
			EscalationDue:        escalationDue,
			EscalationDepartment: escalationDept,
		})
	}
	return overdue, nil
}
