package service

import (
	"context"
	"sync"
	"testing"
	"time"

	"gorm.io/gorm"

	"github.com/open-erp/orderflow/internal/wferr"
	"github.com/open-erp/orderflow/internal/workflow/model"
)

func floatPtr(f float64) *float64 { return &f }

func stateKey(orderID string, orderType model.OrderType) string {
	return orderID + "/" + string(orderType)
}

// fakeStateRepo is an in-memory stand-in for the state repository. Rows
// are stored by value so the engine's mutations only land through
// UpdateWithVersion, mirroring the real optimistic update.
type fakeStateRepo struct {
	mu   sync.Mutex
	rows map[string]model.OrderWorkflowState

	// forceUpdateRows, when set, overrides the affected-row count of the
	// next UpdateWithVersion call to simulate a lost version race.
	forceUpdateRows *int64
}

func newFakeStateRepo() *fakeStateRepo {
	return &fakeStateRepo{rows: make(map[string]model.OrderWorkflowState)}
}

func (f *fakeStateRepo) snapshot() map[string]model.OrderWorkflowState {
	f.mu.Lock()
	defer f.mu.Unlock()
	snap := make(map[string]model.OrderWorkflowState, len(f.rows))
	for k, v := range f.rows {
		snap[k] = v
	}
	return snap
}

func (f *fakeStateRepo) restore(snap map[string]model.OrderWorkflowState) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.rows = snap
}

func (f *fakeStateRepo) Get(ctx context.Context, tx *gorm.DB, orderID string, orderType model.OrderType) (*model.OrderWorkflowState, error) {
	return f.GetByOrder(ctx, orderID, orderType)
}

func (f *fakeStateRepo) GetByOrder(ctx context.Context, orderID string, orderType model.OrderType) (*model.OrderWorkflowState, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	row, ok := f.rows[stateKey(orderID, orderType)]
	if !ok {
		return nil, wferr.NotFound("order workflow state", orderID)
	}
	copied := row
	return &copied, nil
}

func (f *fakeStateRepo) Create(ctx context.Context, tx *gorm.DB, state *model.OrderWorkflowState) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	key := stateKey(state.OrderID, state.OrderType)
	if _, exists := f.rows[key]; exists {
		return wferr.Conflict("order %s/%s is already tracked", state.OrderType, state.OrderID)
	}
	f.rows[key] = *state
	return nil
}

func (f *fakeStateRepo) UpdateWithVersion(ctx context.Context, tx *gorm.DB, state *model.OrderWorkflowState, expectedVersion int64) (int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.forceUpdateRows != nil {
		rows := *f.forceUpdateRows
		f.forceUpdateRows = nil
		return rows, nil
	}
	key := stateKey(state.OrderID, state.OrderType)
	stored, ok := f.rows[key]
	if !ok || stored.LockVersion != expectedVersion {
		return 0, nil
	}
	updated := *state
	updated.LockVersion = expectedVersion + 1
	f.rows[key] = updated
	return 1, nil
}

func (f *fakeStateRepo) ListActive(ctx context.Context) ([]model.OrderWorkflowState, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]model.OrderWorkflowState, 0, len(f.rows))
	for _, row := range f.rows {
		out = append(out, row)
	}
	return out, nil
}

func (f *fakeStateRepo) CountByStage(ctx context.Context, stageCode string) (int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var n int64
	for _, row := range f.rows {
		if row.CurrentStageCode == stageCode {
			n++
		}
	}
	return n, nil
}

// fakeHistoryRepo records appended entries in order.
type fakeHistoryRepo struct {
	entries   []model.HistoryEntry
	appendErr error
}

func (f *fakeHistoryRepo) Append(ctx context.Context, tx *gorm.DB, entry *model.HistoryEntry) error {
	if f.appendErr != nil {
		return f.appendErr
	}
	stored := *entry
	stored.Seq = int64(len(f.entries) + 1)
	f.entries = append(f.entries, stored)
	return nil
}

func (f *fakeHistoryRepo) ListForOrder(ctx context.Context, orderID string, orderType model.OrderType, offset, limit *int) ([]model.HistoryEntry, error) {
	var out []model.HistoryEntry
	for _, entry := range f.entries {
		if entry.OrderID == orderID && entry.OrderType == orderType {
			out = append(out, entry)
		}
	}
	if offset != nil {
		if *offset >= len(out) {
			return nil, nil
		}
		out = out[*offset:]
	}
	if limit != nil && *limit < len(out) {
		out = out[:*limit]
	}
	return out, nil
}

func (f *fakeHistoryRepo) HasReassignToDepartment(ctx context.Context, orderID string, orderType model.OrderType, department string, since time.Time) (bool, error) {
	for _, entry := range f.entries {
		if entry.OrderID == orderID && entry.OrderType == orderType &&
			entry.Action == model.ActionReassign && entry.ReassignedTo == department &&
			!entry.RecordedAt.Before(since) {
			return true, nil
		}
	}
	return false, nil
}

// fakeTxManager runs the transaction function without a database. An error
// restores the stores from a snapshot, mirroring a rollback.
type fakeTxManager struct {
	states  *fakeStateRepo
	history *fakeHistoryRepo
	err     error
}

func (f *fakeTxManager) Transaction(ctx context.Context, fn func(tx *gorm.DB) error) error {
	if f.err != nil {
		return f.err
	}
	var stateSnap map[string]model.OrderWorkflowState
	if f.states != nil {
		stateSnap = f.states.snapshot()
	}
	var historySnap []model.HistoryEntry
	if f.history != nil {
		historySnap = append([]model.HistoryEntry(nil), f.history.entries...)
	}
	if err := fn(nil); err != nil {
		if f.states != nil {
			f.states.restore(stateSnap)
		}
		if f.history != nil {
			f.history.entries = historySnap
		}
		return err
	}
	return nil
}

type fakeAttrsProvider struct {
	attrs model.OrderAttributes
	err   error
	calls int
}

func (f *fakeAttrsProvider) Attributes(ctx context.Context, orderID string, orderType model.OrderType) (model.OrderAttributes, error) {
	f.calls++
	return f.attrs, f.err
}

// fakeCatalogRepo serves reference data for catalog provider tests.
type fakeCatalogRepo struct {
	stages   []model.Stage
	policies []model.StagePolicy
}

func (f *fakeCatalogRepo) ListStages(ctx context.Context) ([]model.Stage, error) {
	return f.stages, nil
}

func (f *fakeCatalogRepo) ListPolicies(ctx context.Context) ([]model.StagePolicy, error) {
	return f.policies, nil
}

// staticCatalog serves a fixed snapshot.
type staticCatalog struct {
	catalog *Catalog
	err     error
}

func (s *staticCatalog) Catalog() (*Catalog, error) {
	return s.catalog, s.err
}

// salesStages is the fixture workflow for the sales order type:
// new -> credit_check (skippable under 1000) -> manager_approval
// (finance approval) -> fulfilment -> done, with a rejected end stage.
func salesStages() []model.Stage {
	return []model.Stage{
		{Code: "new", Name: "New", OrderType: model.OrderTypeSales, Sequence: 1, StageType: model.StageTypeStart, Active: true},
		{Code: "credit_check", Name: "Credit Check", OrderType: model.OrderTypeSales, Sequence: 2, StageType: model.StageTypeConditional, MaxDurationHours: floatPtr(24), Active: true},
		{Code: "manager_approval", Name: "Manager Approval", OrderType: model.OrderTypeSales, Sequence: 3, StageType: model.StageTypeNormal, RequiresApproval: true, Active: true},
		{Code: "fulfilment", Name: "Fulfilment", OrderType: model.OrderTypeSales, Sequence: 4, StageType: model.StageTypeNormal, Active: true},
		{Code: "done", Name: "Done", OrderType: model.OrderTypeSales, Sequence: 5, StageType: model.StageTypeEnd, Active: true},
		{Code: "rejected", Name: "Rejected", OrderType: model.OrderTypeSales, Sequence: 6, StageType: model.StageTypeEnd, Active: true},
	}
}

func salesPolicies() []model.StagePolicy {
	return []model.StagePolicy{
		{
			StageCode: "credit_check",
			CanSkip:   true,
			SkipCondition: &model.SkipCondition{
				Attribute: model.AttrTotalAmount,
				Operator:  model.OpLt,
				Value:     1000.0,
			},
			WarningHours:         floatPtr(8),
			EscalationHours:      floatPtr(16),
			EscalationDepartment: "ops",
		},
		{
			StageCode:          "manager_approval",
			ApprovalDepartment: "finance",
		},
	}
}

func buildSalesCatalog(t *testing.T) *Catalog {
	t.Helper()
	catalog, err := BuildCatalog(salesStages(), salesPolicies())
	if err != nil {
		t.Fatalf("failed to build fixture catalog: %v", err)
	}
	return catalog
}

// engineFixture bundles the engine with its fakes for convenient assertions.
type engineFixture struct {
	engine  *TransitionEngine
	states  *fakeStateRepo
	history *fakeHistoryRepo
	attrs   *fakeAttrsProvider
}

func newEngineFixture(t *testing.T, catalog *Catalog) *engineFixture {
	t.Helper()
	states := newFakeStateRepo()
	history := &fakeHistoryRepo{}
	attrs := &fakeAttrsProvider{}
	txm := &fakeTxManager{states: states, history: history}
	engine := NewTransitionEngine(txm, states, history, attrs, &staticCatalog{catalog: catalog}, nil)
	return &engineFixture{engine: engine, states: states, history: history, attrs: attrs}
}
