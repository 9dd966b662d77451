package service

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/open-erp/orderflow/internal/notify"
	"github.com/open-erp/orderflow/internal/workflow/model"
)

// ReassignChecker reports whether an order was already reassigned to a
// department during its current stage stay.
type ReassignChecker interface {
	HasReassignToDepartment(ctx context.Context, orderID string, orderType model.OrderType, department string, since time.Time) (bool, error)
}

// Reassigner performs order reassignments. Satisfied by the transition
// engine, so escalations go through the same single write authority and
// leave a history entry.
type Reassigner interface {
	Reassign(ctx context.Context, cmd model.ReassignCommand) (*model.OrderWorkflowState, error)
}

// EscalationMonitor periodically sweeps active orders and reassigns those
// past their stage's escalation threshold to the configured escalation
// department. The history ledger makes escalation idempotent: an order
// already reassigned to the escalation department during its current stay
// is left alone.
type EscalationMonitor struct {
	states   StateReader
	history  ReassignChecker
	engine   Reassigner
	catalogs CatalogSource
	notifier notify.Notifier

	interval time.Duration
	actor    string
	notes    string
	now      func() time.Time

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup
}

// NewEscalationMonitor creates an EscalationMonitor.
func NewEscalationMonitor(
	states StateReader,
	history ReassignChecker,
	engine Reassigner,
	catalogs CatalogSource,
	notifier notify.Notifier,
	interval time.Duration,
	actor, notes string,
) *EscalationMonitor {
	ctx, cancel := context.WithCancel(context.Background())
	return &EscalationMonitor{
		states:   states,
		history:  history,
		engine:   engine,
		catalogs: catalogs,
		notifier: notifier,
		interval: interval,
		actor:    actor,
		notes:    notes,
		now:      func() time.Time { return time.Now().UTC() },
		ctx:      ctx,
		cancel:   cancel,
	}
}

// Start launches the periodic sweep.
func (m *EscalationMonitor) Start() {
	m.wg.Add(1)
	go func() {
		defer m.wg.Done()
		ticker := time.NewTicker(m.interval)
		defer ticker.Stop()
		for {
			select {
			case <-m.ctx.Done():
				return
			case <-ticker.C:
				if err := m.RunOnce(m.ctx); err != nil {
					slog.Error("escalation sweep failed", "error", err)
				}
			}
		}
	}()
	slog.Info("escalation monitor started", "interval", m.interval)
}

// Stop cancels the sweep loop and waits for it to finish.
func (m *EscalationMonitor) Stop() {
	m.cancel()
	m.wg.Wait()
	slog.Info("escalation monitor stopped")
}

// RunOnce performs a single sweep over all active orders.
func (m *EscalationMonitor) RunOnce(ctx context.Context) error {
	catalog, err := m.catalogs.Catalog()
	if err != nil {
		return err
	}
	states, err := m.states.ListActive(ctx)
	if err != nil {
		return err
	}

	now := m.now()
	for i := range states {
		state := &states[i]
		stage, err := catalog.Stage(state.CurrentStageCode)
		if err != nil {
			slog.Error("active order references a stage missing from the catalog",
				"order_id", state.OrderID,
				"order_type", state.OrderType,
				"stage", state.CurrentStageCode,
			)
			continue
		}
		policy := catalog.PolicyFor(stage)

		if IsOverdue(state, stage, policy, now) {
			slog.Warn("order is overdue in stage",
				"order_id", state.OrderID,
				"order_type", state.OrderType,
				"stage", stage.Code,
				"hours_in_stage", HoursInStage(state, now),
			)
		}

		department, due := EscalationDue(state, policy, now)
		if !due {
			continue
		}
		if err := m.escalate(ctx, state, stage, department); err != nil {
			slog.Error("failed to escalate order",
				"order_id", state.OrderID,
				"order_type", state.OrderType,
				"stage", stage.Code,
				"error", err,
			)
		}
	}
	return nil
}

// escalate reassigns one overdue order to the escalation department unless
// that already happened during the current stage stay.
func (m *EscalationMonitor) escalate(ctx context.Context, state *model.OrderWorkflowState, stage *model.Stage, department string) error {
	already, err := m.history.HasReassignToDepartment(ctx, state.OrderID, state.OrderType, department, state.StageStartTime)
	if err != nil {
		return err
	}
	if already {
		return nil
	}

	_, err = m.engine.Reassign(ctx, model.ReassignCommand{
		OrderID:       state.OrderID,
		OrderType:     state.OrderType,
		Actor:         m.actor,
		Department:    department,
		NewDepartment: department,
		Notes:         m.notes,
	})
	if err != nil {
		return err
	}

	slog.Info("order escalated",
		"order_id", state.OrderID,
		"order_type", state.OrderType,
		"stage", stage.Code,
		"department", department,
	)
	if m.notifier != nil {
		if err := m.notifier.Send(ctx, notify.Event{
			Type:      notify.EventOrderEscalated,
			OrderID:   state.OrderID,
			OrderType: string(state.OrderType),
			Stage:     stage.Code,
			Actor:     m.actor,
			Payload:   map[string]any{"escalation_department": department},
		}); err != nil {
			slog.Warn("failed to dispatch escalation notification",
				"order_id", state.OrderID,
				"error", err,
			)
		}
	}
	return nil
}
