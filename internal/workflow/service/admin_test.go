package service

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/open-erp/orderflow/internal/wferr"
	"github.com/open-erp/orderflow/internal/workflow/model"
)

// fakeAdminRepo backs both the administrative surface and the catalog
// provider so edits are observable through reloads.
type fakeAdminRepo struct {
	stages   []model.Stage
	policies []model.StagePolicy
}

func (f *fakeAdminRepo) ListStages(ctx context.Context) ([]model.Stage, error) {
	return append([]model.Stage(nil), f.stages...), nil
}

func (f *fakeAdminRepo) ListPolicies(ctx context.Context) ([]model.StagePolicy, error) {
	return append([]model.StagePolicy(nil), f.policies...), nil
}

func (f *fakeAdminRepo) GetStageByCode(ctx context.Context, code string) (*model.Stage, error) {
	for i := range f.stages {
		if f.stages[i].Code == code {
			copied := f.stages[i]
			return &copied, nil
		}
	}
	return nil, wferr.NotFound("stage", code)
}

func (f *fakeAdminRepo) CreateStage(ctx context.Context, stage *model.Stage) error {
	for i := range f.stages {
		if f.stages[i].Code == stage.Code {
			return wferr.Conflict("stage %q already exists", stage.Code)
		}
	}
	f.stages = append(f.stages, *stage)
	return nil
}

func (f *fakeAdminRepo) SaveStage(ctx context.Context, stage *model.Stage) error {
	for i := range f.stages {
		if f.stages[i].Code == stage.Code {
			f.stages[i] = *stage
			return nil
		}
	}
	return wferr.NotFound("stage", stage.Code)
}

func (f *fakeAdminRepo) UpsertPolicy(ctx context.Context, policy *model.StagePolicy) error {
	for i := range f.policies {
		if f.policies[i].StageCode == policy.StageCode {
			f.policies[i] = *policy
			return nil
		}
	}
	f.policies = append(f.policies, *policy)
	return nil
}

func (f *fakeAdminRepo) GetPolicyByStageCode(ctx context.Context, stageCode string) (*model.StagePolicy, error) {
	for i := range f.policies {
		if f.policies[i].StageCode == stageCode {
			copied := f.policies[i]
			return &copied, nil
		}
	}
	return nil, wferr.NotFound("stage policy", stageCode)
}

func newAdminFixture(t *testing.T) (*AdminService, *fakeAdminRepo, *fakeStateRepo, *CatalogProvider) {
	t.Helper()
	repo := &fakeAdminRepo{stages: salesStages(), policies: salesPolicies()}
	states := newFakeStateRepo()
	provider := NewCatalogProvider(repo)
	require.NoError(t, provider.Load(context.Background()))
	return NewAdminService(repo, states, provider), repo, states, provider
}

func TestAdminService_CreateStage(t *testing.T) {
	ctx := context.Background()

	t.Run("Creates And Reloads Catalog", func(t *testing.T) {
		admin, _, _, provider := newAdminFixture(t)
		stage, err := admin.CreateStage(ctx, &model.CreateStageDTO{
			Code: "packing", Name: "Packing", OrderType: model.OrderTypeSales,
			Sequence: 4, StageType: model.StageTypeNormal,
		})
		require.NoError(t, err)
		assert.True(t, stage.Active)

		catalog, err := provider.Catalog()
		require.NoError(t, err)
		_, err = catalog.Stage("packing")
		assert.NoError(t, err)
	})

	t.Run("Rejects Missing Fields", func(t *testing.T) {
		admin, _, _, _ := newAdminFixture(t)
		_, err := admin.CreateStage(ctx, &model.CreateStageDTO{Name: "No Code", OrderType: model.OrderTypeSales, StageType: model.StageTypeNormal})
		assert.True(t, wferr.IsCode(err, wferr.CodeValidation))

		_, err = admin.CreateStage(ctx, &model.CreateStageDTO{Code: "x", Name: "X", OrderType: "subscription", StageType: model.StageTypeNormal})
		assert.True(t, wferr.IsCode(err, wferr.CodeValidation))

		_, err = admin.CreateStage(ctx, &model.CreateStageDTO{Code: "x", Name: "X", OrderType: model.OrderTypeSales, StageType: "loop"})
		assert.True(t, wferr.IsCode(err, wferr.CodeValidation))
	})

	t.Run("Second Start Stage Fails The Reload", func(t *testing.T) {
		admin, _, _, provider := newAdminFixture(t)
		_, err := admin.CreateStage(ctx, &model.CreateStageDTO{
			Code: "intake", Name: "Intake", OrderType: model.OrderTypeSales,
			Sequence: 0, StageType: model.StageTypeStart,
		})
		assert.True(t, wferr.IsCode(err, wferr.CodeConfiguration))

		// The previous snapshot keeps serving
		catalog, catErr := provider.Catalog()
		require.NoError(t, catErr)
		_, err = catalog.Stage("new")
		assert.NoError(t, err)
		_, err = catalog.Stage("intake")
		assert.True(t, wferr.IsCode(err, wferr.CodeNotFound))
	})
}

func TestAdminService_UpdateStage(t *testing.T) {
	ctx := context.Background()
	admin, repo, _, _ := newAdminFixture(t)

	name := "Credit Review"
	maxHours := 48.0
	stage, err := admin.UpdateStage(ctx, "credit_check", &model.UpdateStageDTO{
		Name:             &name,
		MaxDurationHours: &maxHours,
	})
	require.NoError(t, err)
	assert.Equal(t, "Credit Review", stage.Name)
	assert.Equal(t, 48.0, *stage.MaxDurationHours)

	stored, err := repo.GetStageByCode(ctx, "credit_check")
	require.NoError(t, err)
	assert.Equal(t, "Credit Review", stored.Name)

	_, err = admin.UpdateStage(ctx, "ghost", &model.UpdateStageDTO{Name: &name})
	assert.True(t, wferr.IsCode(err, wferr.CodeNotFound))
}

func TestAdminService_DeactivateStage(t *testing.T) {
	ctx := context.Background()

	t.Run("Refused While Orders Sit In The Stage", func(t *testing.T) {
		admin, _, states, _ := newAdminFixture(t)
		states.rows[stateKey("SO-1001", model.OrderTypeSales)] = model.OrderWorkflowState{
			OrderID: "SO-1001", OrderType: model.OrderTypeSales, CurrentStageCode: "credit_check",
		}

		_, err := admin.DeactivateStage(ctx, "credit_check")
		assert.True(t, wferr.IsCode(err, wferr.CodeValidation))
	})

	t.Run("Deactivates An Unused Stage", func(t *testing.T) {
		admin, _, _, provider := newAdminFixture(t)
		stage, err := admin.DeactivateStage(ctx, "credit_check")
		require.NoError(t, err)
		assert.False(t, stage.Active)

		catalog, err := provider.Catalog()
		require.NoError(t, err)
		for _, s := range catalog.Stages(model.OrderTypeSales) {
			assert.NotEqual(t, "credit_check", s.Code)
		}
	})

	t.Run("Already Inactive Is A No Op", func(t *testing.T) {
		admin, repo, _, _ := newAdminFixture(t)
		for i := range repo.stages {
			if repo.stages[i].Code == "credit_check" {
				repo.stages[i].Active = false
			}
		}
		stage, err := admin.DeactivateStage(ctx, "credit_check")
		require.NoError(t, err)
		assert.False(t, stage.Active)
	})
}

func TestAdminService_Policies(t *testing.T) {
	ctx := context.Background()

	t.Run("GetPolicy Returns Stored Overlay", func(t *testing.T) {
		admin, _, _, _ := newAdminFixture(t)
		policy, err := admin.GetPolicy(ctx, "credit_check")
		require.NoError(t, err)
		assert.True(t, policy.CanSkip)
	})

	t.Run("GetPolicy Synthesizes Default", func(t *testing.T) {
		admin, _, _, _ := newAdminFixture(t)
		policy, err := admin.GetPolicy(ctx, "fulfilment")
		require.NoError(t, err)
		assert.Equal(t, "fulfilment", policy.StageCode)
		assert.False(t, policy.CanSkip)
	})

	t.Run("UpsertPolicy Validates Thresholds", func(t *testing.T) {
		admin, _, _, _ := newAdminFixture(t)
		_, err := admin.UpsertPolicy(ctx, "fulfilment", &model.UpsertPolicyDTO{
			WarningHours:         floatPtr(20),
			EscalationHours:      floatPtr(10),
			EscalationDepartment: "ops",
		})
		assert.True(t, wferr.IsCode(err, wferr.CodeValidation))
	})

	t.Run("UpsertPolicy Requires Escalation Department", func(t *testing.T) {
		admin, _, _, _ := newAdminFixture(t)
		_, err := admin.UpsertPolicy(ctx, "fulfilment", &model.UpsertPolicyDTO{
			EscalationHours: floatPtr(10),
		})
		assert.True(t, wferr.IsCode(err, wferr.CodeValidation))
	})

	t.Run("UpsertPolicy Reloads The Catalog", func(t *testing.T) {
		admin, _, _, provider := newAdminFixture(t)
		_, err := admin.UpsertPolicy(ctx, "fulfilment", &model.UpsertPolicyDTO{
			CanSkip: true,
			SkipCondition: &model.SkipCondition{
				Attribute: model.AttrPriorityLevel, Operator: model.OpEq, Value: "urgent",
			},
		})
		require.NoError(t, err)

		catalog, err := provider.Catalog()
		require.NoError(t, err)
		stage, err := catalog.Stage("fulfilment")
		require.NoError(t, err)
		assert.True(t, catalog.PolicyFor(stage).CanSkip)
	})

	t.Run("Unknown Stage", func(t *testing.T) {
		admin, _, _, _ := newAdminFixture(t)
		_, err := admin.UpsertPolicy(ctx, "ghost", &model.UpsertPolicyDTO{})
		assert.True(t, wferr.IsCode(err, wferr.CodeNotFound))
	})
}
