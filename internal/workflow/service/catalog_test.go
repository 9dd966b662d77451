package service

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/open-erp/orderflow/internal/wferr"
	"github.com/open-erp/orderflow/internal/workflow/model"
)

func TestBuildCatalog(t *testing.T) {
	t.Run("Valid Fixture Builds", func(t *testing.T) {
		catalog, err := BuildCatalog(salesStages(), salesPolicies())
		require.NoError(t, err)

		seq := catalog.Stages(model.OrderTypeSales)
		require.Len(t, seq, 6)
		assert.Equal(t, "new", seq[0].Code)
		assert.Equal(t, "rejected", seq[5].Code)
	})

	t.Run("Duplicate Stage Code", func(t *testing.T) {
		stages := salesStages()
		stages = append(stages, model.Stage{
			Code: "new", Name: "Duplicate", OrderType: model.OrderTypeSales,
			Sequence: 99, StageType: model.StageTypeEnd, Active: true,
		})
		_, err := BuildCatalog(stages, nil)
		assert.True(t, wferr.IsCode(err, wferr.CodeConfiguration))
	})

	t.Run("Two Start Stages", func(t *testing.T) {
		stages := salesStages()
		stages[1].StageType = model.StageTypeStart
		_, err := BuildCatalog(stages, nil)
		assert.True(t, wferr.IsCode(err, wferr.CodeConfiguration))
	})

	t.Run("No End Stage", func(t *testing.T) {
		stages := salesStages()[:4] // cut done and rejected
		_, err := BuildCatalog(stages, nil)
		assert.True(t, wferr.IsCode(err, wferr.CodeConfiguration))
	})

	t.Run("Sequence Must Close With Terminal Stage", func(t *testing.T) {
		stages := salesStages()
		stages = append(stages, model.Stage{
			Code: "archival", Name: "Archival", OrderType: model.OrderTypeSales,
			Sequence: 7, StageType: model.StageTypeNormal, Active: true,
		})
		_, err := BuildCatalog(stages, nil)
		assert.True(t, wferr.IsCode(err, wferr.CodeConfiguration))
	})

	t.Run("Inactive Stages Leave The Sequence", func(t *testing.T) {
		stages := salesStages()
		stages[1].Active = false // credit_check
		catalog, err := BuildCatalog(stages, nil)
		require.NoError(t, err)

		seq := catalog.Stages(model.OrderTypeSales)
		for _, stage := range seq {
			assert.NotEqual(t, "credit_check", stage.Code)
		}
		// Still resolvable by code for history display
		stage, err := catalog.Stage("credit_check")
		require.NoError(t, err)
		assert.False(t, stage.Active)
	})

	t.Run("Policy For Unknown Stage", func(t *testing.T) {
		_, err := BuildCatalog(salesStages(), []model.StagePolicy{{StageCode: "ghost"}})
		assert.True(t, wferr.IsCode(err, wferr.CodeConfiguration))
	})

	t.Run("Policy With Inconsistent Thresholds", func(t *testing.T) {
		policies := []model.StagePolicy{{
			StageCode:            "credit_check",
			WarningHours:         floatPtr(20),
			EscalationHours:      floatPtr(10),
			EscalationDepartment: "ops",
		}}
		_, err := BuildCatalog(salesStages(), policies)
		assert.True(t, wferr.IsCode(err, wferr.CodeConfiguration))
	})

	t.Run("Rejection Target Must Exist", func(t *testing.T) {
		policies := salesPolicies()
		policies[0].RejectionTargetStageCode = "ghost"
		_, err := BuildCatalog(salesStages(), policies)
		assert.True(t, wferr.IsCode(err, wferr.CodeConfiguration))
	})

	t.Run("Rejection Target Must Share Order Type", func(t *testing.T) {
		stages := salesStages()
		stages = append(stages,
			model.Stage{Code: "po_new", Name: "New", OrderType: model.OrderTypePurchase, Sequence: 1, StageType: model.StageTypeStart, Active: true},
			model.Stage{Code: "po_done", Name: "Done", OrderType: model.OrderTypePurchase, Sequence: 2, StageType: model.StageTypeEnd, Active: true},
		)
		policies := salesPolicies()
		policies[0].RejectionTargetStageCode = "po_done"
		_, err := BuildCatalog(stages, policies)
		assert.True(t, wferr.IsCode(err, wferr.CodeConfiguration))
	})
}

func TestCatalog_Lookups(t *testing.T) {
	catalog := buildSalesCatalog(t)

	t.Run("InitialStage", func(t *testing.T) {
		stage, err := catalog.InitialStage(model.OrderTypeSales)
		require.NoError(t, err)
		assert.Equal(t, "new", stage.Code)

		_, err = catalog.InitialStage(model.OrderTypePurchase)
		assert.True(t, wferr.IsCode(err, wferr.CodeConfiguration))
	})

	t.Run("NextStage", func(t *testing.T) {
		current, err := catalog.Stage("new")
		require.NoError(t, err)
		next, err := catalog.NextStage(current)
		require.NoError(t, err)
		assert.Equal(t, "credit_check", next.Code)

		last, err := catalog.Stage("rejected")
		require.NoError(t, err)
		_, err = catalog.NextStage(last)
		assert.True(t, wferr.IsCode(err, wferr.CodeInvalidTransition))
	})

	t.Run("Precedes", func(t *testing.T) {
		assert.True(t, catalog.Precedes(model.OrderTypeSales, "new", "fulfilment"))
		assert.False(t, catalog.Precedes(model.OrderTypeSales, "fulfilment", "new"))
		assert.False(t, catalog.Precedes(model.OrderTypeSales, "new", "new"))
		assert.False(t, catalog.Precedes(model.OrderTypeSales, "ghost", "fulfilment"))
	})

	t.Run("PolicyFor Synthesizes Default", func(t *testing.T) {
		stage, err := catalog.Stage("manager_approval")
		require.NoError(t, err)
		policy := catalog.PolicyFor(stage)
		assert.Equal(t, "finance", policy.ApprovalDepartment)

		plain, err := catalog.Stage("fulfilment")
		require.NoError(t, err)
		policy = catalog.PolicyFor(plain)
		assert.False(t, policy.CanSkip)
		assert.Equal(t, "fulfilment", policy.StageCode)
	})

	t.Run("RejectionTarget Falls Back To Rejected Stage", func(t *testing.T) {
		stage, err := catalog.Stage("credit_check")
		require.NoError(t, err)
		target, err := catalog.RejectionTarget(stage)
		require.NoError(t, err)
		assert.Equal(t, "rejected", target.Code)
	})

	t.Run("RejectionTarget Without Rejected Stage Is A Configuration Error", func(t *testing.T) {
		stages := salesStages()[:5] // drop the rejected end stage
		bare, err := BuildCatalog(stages, nil)
		require.NoError(t, err)

		stage, err := bare.Stage("credit_check")
		require.NoError(t, err)
		_, err = bare.RejectionTarget(stage)
		assert.True(t, wferr.IsCode(err, wferr.CodeConfiguration))
	})
}

func TestCatalogProvider(t *testing.T) {
	t.Run("Catalog Before Load", func(t *testing.T) {
		provider := NewCatalogProvider(nil)
		_, err := provider.Catalog()
		assert.True(t, wferr.IsCode(err, wferr.CodeConfiguration))
	})

	t.Run("Failed Reload Keeps Previous Snapshot", func(t *testing.T) {
		repo := &fakeCatalogRepo{stages: salesStages(), policies: salesPolicies()}
		provider := NewCatalogProvider(repo)
		require.NoError(t, provider.Load(context.Background()))

		// Break the reference data and reload
		repo.stages = salesStages()[:4]
		assert.Error(t, provider.Load(context.Background()))

		catalog, err := provider.Catalog()
		require.NoError(t, err)
		_, err = catalog.Stage("done")
		assert.NoError(t, err)
	})
}
