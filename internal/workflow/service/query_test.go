package service

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/open-erp/orderflow/internal/wferr"
	"github.com/open-erp/orderflow/internal/workflow/model"
)

func newQueryFixture(t *testing.T, now time.Time) (*QueryService, *fakeStateRepo, *fakeHistoryRepo) {
	t.Helper()
	states := newFakeStateRepo()
	history := &fakeHistoryRepo{}
	qs := NewQueryService(states, history, &staticCatalog{catalog: buildSalesCatalog(t)})
	qs.now = func() time.Time { return now }
	return qs, states, history
}

func TestQueryService_WorkflowState(t *testing.T) {
	ctx := context.Background()
	now := time.Date(2026, 3, 10, 20, 0, 0, 0, time.UTC)

	t.Run("Derives SLA Flags", func(t *testing.T) {
		qs, states, _ := newQueryFixture(t, now)
		states.rows[stateKey("SO-1001", model.OrderTypeSales)] = model.OrderWorkflowState{
			OrderID: "SO-1001", OrderType: model.OrderTypeSales,
			CurrentStageCode: "credit_check",
			StageStartTime:   now.Add(-18 * time.Hour),
			Priority:         model.PriorityHigh,
		}

		view, err := qs.WorkflowState(ctx, "SO-1001", model.OrderTypeSales)
		require.NoError(t, err)
		assert.Equal(t, "credit_check", view.CurrentStageCode)
		assert.Equal(t, "Credit Check", view.CurrentStageName)
		assert.False(t, view.Completed)
		assert.InDelta(t, 18, view.HoursInStage, 0.001)
		assert.False(t, view.Overdue)       // threshold 24h
		assert.True(t, view.WarningDue)     // warning 8h
		assert.True(t, view.EscalationDue)  // escalation 16h
		assert.Equal(t, "ops", view.EscalationDepartment)
	})

	t.Run("Terminal Stage Reports Completed", func(t *testing.T) {
		qs, states, _ := newQueryFixture(t, now)
		states.rows[stateKey("SO-1001", model.OrderTypeSales)] = model.OrderWorkflowState{
			OrderID: "SO-1001", OrderType: model.OrderTypeSales,
			CurrentStageCode: "done", StageStartTime: now,
		}

		view, err := qs.WorkflowState(ctx, "SO-1001", model.OrderTypeSales)
		require.NoError(t, err)
		assert.True(t, view.Completed)
		assert.False(t, view.Overdue)
	})

	t.Run("Unknown Order", func(t *testing.T) {
		qs, _, _ := newQueryFixture(t, now)
		_, err := qs.WorkflowState(ctx, "SO-9999", model.OrderTypeSales)
		assert.True(t, wferr.IsCode(err, wferr.CodeNotFound))
	})
}

func TestQueryService_History(t *testing.T) {
	ctx := context.Background()
	now := time.Date(2026, 3, 10, 20, 0, 0, 0, time.UTC)
	qs, _, history := newQueryFixture(t, now)

	from := "new"
	history.entries = []model.HistoryEntry{
		{OrderID: "SO-1001", OrderType: model.OrderTypeSales, ToStage: "new", Action: model.ActionAdvance},
		{OrderID: "SO-1001", OrderType: model.OrderTypeSales, FromStage: &from, ToStage: "credit_check", Action: model.ActionAdvance},
		{OrderID: "SO-2002", OrderType: model.OrderTypeSales, ToStage: "new", Action: model.ActionAdvance},
	}

	entries, err := qs.History(ctx, "SO-1001", model.OrderTypeSales, nil, nil)
	require.NoError(t, err)
	require.Len(t, entries, 2)

	offset, limit := 1, 5
	entries, err = qs.History(ctx, "SO-1001", model.OrderTypeSales, &offset, &limit)
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, "credit_check", entries[0].ToStage)
}

func TestQueryService_OverdueOrders(t *testing.T) {
	ctx := context.Background()
	now := time.Date(2026, 3, 10, 20, 0, 0, 0, time.UTC)
	qs, states, _ := newQueryFixture(t, now)

	states.rows[stateKey("SO-LATE", model.OrderTypeSales)] = model.OrderWorkflowState{
		OrderID: "SO-LATE", OrderType: model.OrderTypeSales,
		CurrentStageCode: "credit_check",
		StageStartTime:   now.Add(-30 * time.Hour),
		Priority:         model.PriorityNormal,
	}
	states.rows[stateKey("SO-FRESH", model.OrderTypeSales)] = model.OrderWorkflowState{
		OrderID: "SO-FRESH", OrderType: model.OrderTypeSales,
		CurrentStageCode: "credit_check",
		StageStartTime:   now.Add(-2 * time.Hour),
	}
	// No SLA threshold on fulfilment: never overdue
	states.rows[stateKey("SO-SLOW", model.OrderTypeSales)] = model.OrderWorkflowState{
		OrderID: "SO-SLOW", OrderType: model.OrderTypeSales,
		CurrentStageCode: "fulfilment",
		StageStartTime:   now.Add(-500 * time.Hour),
	}
	// Dangling stage reference is skipped, not fatal
	states.rows[stateKey("SO-GHOST", model.OrderTypeSales)] = model.OrderWorkflowState{
		OrderID: "SO-GHOST", OrderType: model.OrderTypeSales,
		CurrentStageCode: "ghost",
		StageStartTime:   now.Add(-500 * time.Hour),
	}

	overdue, err := qs.OverdueOrders(ctx)
	require.NoError(t, err)
	require.Len(t, overdue, 1)

	row := overdue[0]
	assert.Equal(t, "SO-LATE", row.OrderID)
	assert.Equal(t, "credit_check", row.CurrentStageCode)
	assert.InDelta(t, 30, row.HoursInStage, 0.001)
	assert.Equal(t, 24.0, row.MaxDurationHours)
	assert.True(t, row.EscalationDue)
	assert.Equal(t, "ops", row.EscalationDepartment)
}
