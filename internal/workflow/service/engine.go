package service

import (
	"context"
	"log/slog"
	"strings"
	"time"

	"gorm.io/gorm"

	"github.com/open-erp/orderflow/internal/notify"
	"github.com/open-erp/orderflow/internal/wferr"
	"github.com/open-erp/orderflow/internal/workflow/model"
)

// StateRepository is the engine's view of order workflow state persistence.
type StateRepository interface {
	Get(ctx context.Context, tx *gorm.DB, orderID string, orderType model.OrderType) (*model.OrderWorkflowState, error)
	Create(ctx context.Context, tx *gorm.DB, state *model.OrderWorkflowState) error
	UpdateWithVersion(ctx context.Context, tx *gorm.DB, state *model.OrderWorkflowState, expectedVersion int64) (int64, error)
}

// HistoryAppender writes immutable transition records.
type HistoryAppender interface {
	Append(ctx context.Context, tx *gorm.DB, entry *model.HistoryEntry) error
}

// AttributesProvider supplies the order fields skip conditions reference.
type AttributesProvider interface {
	Attributes(ctx context.Context, orderID string, orderType model.OrderType) (model.OrderAttributes, error)
}

// TransactionManager runs a function inside one database transaction.
type TransactionManager interface {
	Transaction(ctx context.Context, fn func(tx *gorm.DB) error) error
}

// TransitionEngine is the single authority that mutates order workflow
// state and appends history entries. Every operation runs its state update
// and history append in one transaction guarded by an optimistic version
// check, so concurrent mutations of the same order serialize: the loser
// observes a conflict and must re-read before retrying.
type TransitionEngine struct {
	txm      TransactionManager
	states   StateRepository
	history  HistoryAppender
	attrs    AttributesProvider
	catalogs CatalogSource
	notifier notify.Notifier
	now      func() time.Time
}

// NewTransitionEngine creates a TransitionEngine.
func NewTransitionEngine(
	txm TransactionManager,
	states StateRepository,
	history HistoryAppender,
	attrs AttributesProvider,
	catalogs CatalogSource,
	notifier notify.Notifier,
) *TransitionEngine {
	return &TransitionEngine{
		txm:      txm,
		states:   states,
		history:  history,
		attrs:    attrs,
		catalogs: catalogs,
		notifier: notifier,
		now:      func() time.Time { return time.Now().UTC() },
	}
}

// Enter places an order into the workflow at its order type's initial
// stage and records the initial history entry (from-stage nil).
func (e *TransitionEngine) Enter(ctx context.Context, cmd model.EnterCommand) (*model.OrderWorkflowState, error) {
	if err := validateIdentity(cmd.OrderID, cmd.OrderType, cmd.Actor); err != nil {
		return nil, err
	}

	catalog, err := e.catalogs.Catalog()
	if err != nil {
		return nil, err
	}
	initial, err := catalog.InitialStage(cmd.OrderType)
	if err != nil {
		return nil, err
	}

	priority := cmd.Priority
	if priority == "" {
		priority = model.PriorityNormal
	}

	now := e.now()
	state := &model.OrderWorkflowState{
		OrderID:            cmd.OrderID,
		OrderType:          cmd.OrderType,
		CurrentStageCode:   initial.Code,
		StageStartTime:     now,
		Priority:           priority,
		AssignedDepartment: cmd.Department,
	}

	err = e.txm.Transaction(ctx, func(tx *gorm.DB) error {
		if err := e.states.Create(ctx, tx, state); err != nil {
			return err
		}
		return e.history.Append(ctx, tx, &model.HistoryEntry{
			OrderID:    cmd.OrderID,
			OrderType:  cmd.OrderType,
			FromStage:  nil,
			ToStage:    initial.Code,
			Action:     model.ActionAdvance,
			Actor:      cmd.Actor,
			Department: cmd.Department,
			Notes:      cmd.Notes,
			RecordedAt: now,
		})
	})
	if err != nil {
		return nil, err
	}
	return state, nil
}

// Advance moves an order to the next stage in its order type's sequence,
// skipping past consecutively skippable stages whose skip condition holds
// for the order. When the arrived stage is flagged auto-advance and is not
// terminal, the engine keeps advancing, one transaction and one history
// entry per hop. Hops commit independently: an error on a later hop does
// not undo earlier hops, so on error the order may have moved to an
// intermediate stage and the caller must re-read the state.
func (e *TransitionEngine) Advance(ctx context.Context, cmd model.AdvanceCommand) (*model.OrderWorkflowState, error) {
	if err := validateIdentity(cmd.OrderID, cmd.OrderType, cmd.Actor); err != nil {
		return nil, err
	}

	state, stage, err := e.advanceOnce(ctx, cmd, cmd.Notes)
	if err != nil {
		return nil, err
	}

	// Auto-advance hops attribute to the same actor but are marked in the
	// entry notes.
	for stage.AutoAdvance && !stage.IsTerminal() {
		state, stage, err = e.advanceOnce(ctx, cmd, "auto-advance")
		if err != nil {
			return nil, err
		}
	}

	if cmd.Notify {
		e.dispatch(ctx, notify.Event{
			Type:      notify.EventOrderAdvanced,
			OrderID:   cmd.OrderID,
			OrderType: string(cmd.OrderType),
			Stage:     state.CurrentStageCode,
			Actor:     cmd.Actor,
		})
	}
	return state, nil
}

// advanceOnce performs a single advance hop in its own transaction and
// returns the new state together with the arrived stage.
func (e *TransitionEngine) advanceOnce(ctx context.Context, cmd model.AdvanceCommand, notes string) (*model.OrderWorkflowState, *model.Stage, error) {
	catalog, err := e.catalogs.Catalog()
	if err != nil {
		return nil, nil, err
	}

	var (
		state   *model.OrderWorkflowState
		arrived *model.Stage
	)
	err = e.txm.Transaction(ctx, func(tx *gorm.DB) error {
		var err error
		state, err = e.states.Get(ctx, tx, cmd.OrderID, cmd.OrderType)
		if err != nil {
			return err
		}

		current, err := catalog.Stage(state.CurrentStageCode)
		if err != nil {
			// A current stage missing from the catalog is a dangling
			// reference, not a caller mistake.
			return wferr.Configuration("order %s/%s is in stage %q which is not in the catalog",
				cmd.OrderType, cmd.OrderID, state.CurrentStageCode)
		}
		if current.IsTerminal() {
			return wferr.InvalidTransition("order %s/%s is already in terminal stage %q",
				cmd.OrderType, cmd.OrderID, current.Code)
		}

		if err := e.checkApproval(current, catalog.PolicyFor(current), cmd.Department); err != nil {
			return err
		}

		next, err := e.resolveNextStage(ctx, catalog, current, cmd.OrderID, cmd.OrderType)
		if err != nil {
			return err
		}

		arrived = next
		return e.applyMove(ctx, tx, state, current.Code, next.Code, model.HistoryEntry{
			Action:     model.ActionAdvance,
			Actor:      cmd.Actor,
			Department: cmd.Department,
			Notes:      notes,
		})
	})
	if err != nil {
		return nil, nil, err
	}
	return state, arrived, nil
}

// resolveNextStage walks forward from current, skipping consecutively
// skippable stages whose condition holds, and stopping at the first
// non-skippable or terminal stage. Order attributes are fetched once,
// lazily, the first time a skippable stage is met.
func (e *TransitionEngine) resolveNextStage(ctx context.Context, catalog *Catalog, current *model.Stage, orderID string, orderType model.OrderType) (*model.Stage, error) {
	next, err := catalog.NextStage(current)
	if err != nil {
		return nil, err
	}

	var (
		attrs       model.OrderAttributes
		attrsLoaded bool
	)
	for !next.IsTerminal() {
		policy := catalog.PolicyFor(next)
		if !policy.CanSkip {
			break
		}
		if !attrsLoaded {
			attrs, err = e.attrs.Attributes(ctx, orderID, orderType)
			if err != nil {
				return nil, err
			}
			attrsLoaded = true
		}
		if !EvaluateSkip(policy, attrs) {
			break
		}
		next, err = catalog.NextStage(next)
		if err != nil {
			return nil, err
		}
	}
	return next, nil
}

// Reject moves an order to its rejection target stage. A reason is
// mandatory and is recorded on the history entry.
func (e *TransitionEngine) Reject(ctx context.Context, cmd model.RejectCommand) (*model.OrderWorkflowState, error) {
	if err := validateIdentity(cmd.OrderID, cmd.OrderType, cmd.Actor); err != nil {
		return nil, err
	}
	if strings.TrimSpace(cmd.Reason) == "" {
		return nil, wferr.Validation("rejection reason is required")
	}

	catalog, err := e.catalogs.Catalog()
	if err != nil {
		return nil, err
	}

	var state *model.OrderWorkflowState
	err = e.txm.Transaction(ctx, func(tx *gorm.DB) error {
		var err error
		state, err = e.states.Get(ctx, tx, cmd.OrderID, cmd.OrderType)
		if err != nil {
			return err
		}

		current, err := catalog.Stage(state.CurrentStageCode)
		if err != nil {
			return wferr.Configuration("order %s/%s is in stage %q which is not in the catalog",
				cmd.OrderType, cmd.OrderID, state.CurrentStageCode)
		}
		if current.IsTerminal() {
			return wferr.InvalidTransition("order %s/%s is already in terminal stage %q",
				cmd.OrderType, cmd.OrderID, current.Code)
		}

		target, err := catalog.RejectionTarget(current)
		if err != nil {
			return err
		}

		return e.applyMove(ctx, tx, state, current.Code, target.Code, model.HistoryEntry{
			Action:     model.ActionReject,
			Actor:      cmd.Actor,
			Department: cmd.Department,
			Reason:     cmd.Reason,
			Notes:      cmd.Notes,
		})
	})
	if err != nil {
		return nil, err
	}

	if cmd.Notify {
		e.dispatch(ctx, notify.Event{
			Type:      notify.EventOrderRejected,
			OrderID:   cmd.OrderID,
			OrderType: string(cmd.OrderType),
			Stage:     state.CurrentStageCode,
			Actor:     cmd.Actor,
			Payload:   map[string]any{"reason": cmd.Reason},
		})
	}
	return state, nil
}

// Return moves an order backward to an earlier stage in its sequence.
func (e *TransitionEngine) Return(ctx context.Context, cmd model.ReturnCommand) (*model.OrderWorkflowState, error) {
	if err := validateIdentity(cmd.OrderID, cmd.OrderType, cmd.Actor); err != nil {
		return nil, err
	}
	if cmd.TargetStageCode == "" {
		return nil, wferr.Validation("return target stage code is required")
	}

	catalog, err := e.catalogs.Catalog()
	if err != nil {
		return nil, err
	}

	var state *model.OrderWorkflowState
	err = e.txm.Transaction(ctx, func(tx *gorm.DB) error {
		var err error
		state, err = e.states.Get(ctx, tx, cmd.OrderID, cmd.OrderType)
		if err != nil {
			return err
		}

		current, err := catalog.Stage(state.CurrentStageCode)
		if err != nil {
			return wferr.Configuration("order %s/%s is in stage %q which is not in the catalog",
				cmd.OrderType, cmd.OrderID, state.CurrentStageCode)
		}
		if current.IsTerminal() {
			return wferr.InvalidTransition("order %s/%s is already in terminal stage %q",
				cmd.OrderType, cmd.OrderID, current.Code)
		}

		if _, err := catalog.Stage(cmd.TargetStageCode); err != nil {
			return err
		}
		if !catalog.Precedes(cmd.OrderType, cmd.TargetStageCode, current.Code) {
			return wferr.InvalidTransition("stage %q does not precede current stage %q",
				cmd.TargetStageCode, current.Code)
		}

		return e.applyMove(ctx, tx, state, current.Code, cmd.TargetStageCode, model.HistoryEntry{
			Action:     model.ActionReturn,
			Actor:      cmd.Actor,
			Department: cmd.Department,
			Notes:      cmd.Notes,
		})
	})
	if err != nil {
		return nil, err
	}

	if cmd.Notify {
		e.dispatch(ctx, notify.Event{
			Type:      notify.EventOrderReturned,
			OrderID:   cmd.OrderID,
			OrderType: string(cmd.OrderType),
			Stage:     state.CurrentStageCode,
			Actor:     cmd.Actor,
		})
	}
	return state, nil
}

// Reassign changes an order's assigned department and user without moving
// its stage. The stage entry time is untouched.
func (e *TransitionEngine) Reassign(ctx context.Context, cmd model.ReassignCommand) (*model.OrderWorkflowState, error) {
	if err := validateIdentity(cmd.OrderID, cmd.OrderType, cmd.Actor); err != nil {
		return nil, err
	}
	if cmd.NewDepartment == "" {
		return nil, wferr.Validation("new department is required")
	}

	var state *model.OrderWorkflowState
	err := e.txm.Transaction(ctx, func(tx *gorm.DB) error {
		var err error
		state, err = e.states.Get(ctx, tx, cmd.OrderID, cmd.OrderType)
		if err != nil {
			return err
		}

		expected := state.LockVersion
		fromStage := state.CurrentStageCode
		state.AssignedDepartment = cmd.NewDepartment
		state.AssignedUser = cmd.NewUser

		rows, err := e.states.UpdateWithVersion(ctx, tx, state, expected)
		if err != nil {
			return err
		}
		if rows == 0 {
			return wferr.Conflict("order %s/%s was modified concurrently", cmd.OrderType, cmd.OrderID)
		}
		state.LockVersion = expected + 1

		return e.history.Append(ctx, tx, &model.HistoryEntry{
			OrderID:      cmd.OrderID,
			OrderType:    cmd.OrderType,
			FromStage:    &fromStage,
			ToStage:      fromStage,
			Action:       model.ActionReassign,
			Actor:        cmd.Actor,
			Department:   cmd.Department,
			ReassignedTo: cmd.NewDepartment,
			Notes:        cmd.Notes,
			RecordedAt:   e.now(),
		})
	})
	if err != nil {
		return nil, err
	}
	return state, nil
}

// applyMove writes the stage change guarded by the version check and
// appends the history entry within the caller's transaction.
func (e *TransitionEngine) applyMove(ctx context.Context, tx *gorm.DB, state *model.OrderWorkflowState, fromStage, toStage string, entry model.HistoryEntry) error {
	now := e.now()
	expected := state.LockVersion

	state.CurrentStageCode = toStage
	state.StageStartTime = now

	rows, err := e.states.UpdateWithVersion(ctx, tx, state, expected)
	if err != nil {
		return err
	}
	if rows == 0 {
		return wferr.Conflict("order %s/%s was modified concurrently", state.OrderType, state.OrderID)
	}
	state.LockVersion = expected + 1

	entry.OrderID = state.OrderID
	entry.OrderType = state.OrderType
	entry.FromStage = &fromStage
	entry.ToStage = toStage
	entry.RecordedAt = now
	return e.history.Append(ctx, tx, &entry)
}

// checkApproval enforces the approval gate on stages that require it. When
// the policy names an approval department, the actor must act from that
// department.
func (e *TransitionEngine) checkApproval(stage *model.Stage, policy *model.StagePolicy, actorDepartment string) error {
	if !stage.RequiresApproval && !policy.RequiresPreviousApproval {
		return nil
	}
	if policy.ApprovalDepartment == "" {
		return nil
	}
	if actorDepartment != policy.ApprovalDepartment {
		return wferr.ApprovalRequired("stage %q requires approval by department %q",
			stage.Code, policy.ApprovalDepartment)
	}
	return nil
}

// dispatch sends a notification and logs failures. Notification is
// best-effort and never rolls back a committed transition.
func (e *TransitionEngine) dispatch(ctx context.Context, event notify.Event) {
	if e.notifier == nil {
		return
	}
	if err := e.notifier.Send(ctx, event); err != nil {
		slog.Warn("failed to dispatch workflow notification",
			"event_type", event.Type,
			"order_id", event.OrderID,
			"error", err,
		)
	}
}

func validateIdentity(orderID string, orderType model.OrderType, actor string) error {
	if orderID == "" {
		return wferr.Validation("order id is required")
	}
	if !orderType.Valid() {
		return wferr.Validation("unknown order type %q", orderType)
	}
	if actor == "" {
		return wferr.Validation("actor is required")
	}
	return nil
}
