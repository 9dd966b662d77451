package service

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"github.com/open-erp/orderflow/internal/wferr"
	"github.com/open-erp/orderflow/internal/workflow/model"
)

// CatalogRepository loads the stage catalog's reference data.
type CatalogRepository interface {
	ListStages(ctx context.Context) ([]model.Stage, error)
	ListPolicies(ctx context.Context) ([]model.StagePolicy, error)
}

// Catalog is an immutable, validated snapshot of the stage catalog and its
// policy overlays. All lookups are pure reads; a new snapshot replaces the
// old one wholesale on administrative edits.
type Catalog struct {
	stagesByCode map[string]*model.Stage
	sequences    map[model.OrderType][]*model.Stage // active stages ordered by sequence
	policies     map[string]*model.StagePolicy
}

// BuildCatalog validates the loaded reference data and assembles a
// snapshot. Any inconsistency is a configuration error: the snapshot is
// rejected as a whole rather than loaded with dangling references.
func BuildCatalog(stages []model.Stage, policies []model.StagePolicy) (*Catalog, error) {
	c := &Catalog{
		stagesByCode: make(map[string]*model.Stage, len(stages)),
		sequences:    make(map[model.OrderType][]*model.Stage),
		policies:     make(map[string]*model.StagePolicy, len(policies)),
	}

	for i := range stages {
		stage := &stages[i]
		if stage.Code == "" {
			return nil, wferr.Configuration("stage %s has an empty code", stage.ID)
		}
		if !stage.OrderType.Valid() {
			return nil, wferr.Configuration("stage %s has unknown order type %q", stage.Code, stage.OrderType)
		}
		if _, dup := c.stagesByCode[stage.Code]; dup {
			return nil, wferr.Configuration("duplicate stage code %q", stage.Code)
		}
		c.stagesByCode[stage.Code] = stage
		if stage.Active {
			c.sequences[stage.OrderType] = append(c.sequences[stage.OrderType], stage)
		}
	}

	for orderType, seq := range c.sequences {
		sort.SliceStable(seq, func(i, j int) bool { return seq[i].Sequence < seq[j].Sequence })

		starts := 0
		ends := 0
		for _, stage := range seq {
			switch stage.StageType {
			case model.StageTypeStart:
				starts++
			case model.StageTypeEnd:
				ends++
			}
		}
		if starts != 1 {
			return nil, wferr.Configuration("order type %s must have exactly one active start stage, found %d", orderType, starts)
		}
		if ends == 0 {
			return nil, wferr.Configuration("order type %s has no active end stage", orderType)
		}
		// The sequence must close with a terminal stage so that every
		// advance has a defined next stage.
		if last := seq[len(seq)-1]; !last.IsTerminal() {
			return nil, wferr.Configuration("order type %s sequence ends with non-terminal stage %q", orderType, last.Code)
		}
	}

	for i := range policies {
		policy := &policies[i]
		stage, ok := c.stagesByCode[policy.StageCode]
		if !ok {
			return nil, wferr.Configuration("policy references unknown stage %q", policy.StageCode)
		}
		if err := policy.Validate(stage.MaxDurationHours); err != nil {
			return nil, wferr.Wrap(wferr.CodeConfiguration, err, "invalid policy for stage %q", policy.StageCode)
		}
		if target := policy.RejectionTargetStageCode; target != "" {
			targetStage, ok := c.stagesByCode[target]
			if !ok {
				return nil, wferr.Configuration("policy for stage %q names unknown rejection target %q", policy.StageCode, target)
			}
			if !targetStage.Active {
				return nil, wferr.Configuration("policy for stage %q names inactive rejection target %q", policy.StageCode, target)
			}
			if targetStage.OrderType != stage.OrderType {
				return nil, wferr.Configuration("policy for stage %q names rejection target %q of a different order type", policy.StageCode, target)
			}
		}
		c.policies[policy.StageCode] = policy
	}

	return c, nil
}

// Stage returns the stage with the given code.
func (c *Catalog) Stage(code string) (*model.Stage, error) {
	stage, ok := c.stagesByCode[code]
	if !ok {
		return nil, wferr.NotFound("stage", code)
	}
	return stage, nil
}

// Stages returns the active stage sequence for an order type, ordered by
// sequence number.
func (c *Catalog) Stages(orderType model.OrderType) []*model.Stage {
	return c.sequences[orderType]
}

// InitialStage returns the start stage for an order type.
func (c *Catalog) InitialStage(orderType model.OrderType) (*model.Stage, error) {
	for _, stage := range c.sequences[orderType] {
		if stage.StageType == model.StageTypeStart {
			return stage, nil
		}
	}
	return nil, wferr.Configuration("order type %s has no start stage", orderType)
}

// NextStage returns the stage following current in its order type's
// sequence.
func (c *Catalog) NextStage(current *model.Stage) (*model.Stage, error) {
	seq := c.sequences[current.OrderType]
	for i, stage := range seq {
		if stage.Code == current.Code {
			if i+1 >= len(seq) {
				return nil, wferr.InvalidTransition("stage %q has no next stage", current.Code)
			}
			return seq[i+1], nil
		}
	}
	return nil, wferr.Configuration("stage %q is not in the active sequence for order type %s", current.Code, current.OrderType)
}

// Precedes reports whether stage a comes strictly before stage b in the
// order type's sequence. Stages outside the active sequence never precede
// anything.
func (c *Catalog) Precedes(orderType model.OrderType, a, b string) bool {
	ia, ib := -1, -1
	for i, stage := range c.sequences[orderType] {
		switch stage.Code {
		case a:
			ia = i
		case b:
			ib = i
		}
	}
	return ia >= 0 && ib >= 0 && ia < ib
}

// PolicyFor returns the stage's stored policy overlay, or a default
// synthesized from the stage's own flags when no overlay exists.
func (c *Catalog) PolicyFor(stage *model.Stage) *model.StagePolicy {
	if policy, ok := c.policies[stage.Code]; ok {
		return policy
	}
	return &model.StagePolicy{
		StageCode:                stage.Code,
		IsOptional:               false,
		CanSkip:                  false,
		RequiresPreviousApproval: stage.RequiresApproval,
	}
}

// RejectionTarget resolves the stage a rejected order moves to from the
// given stage. Resolution order: the policy's configured target, then the
// order type's end stage coded "rejected" or "<order_type>_rejected". An
// unresolvable target is a configuration error, never a silent guess.
func (c *Catalog) RejectionTarget(stage *model.Stage) (*model.Stage, error) {
	policy := c.PolicyFor(stage)
	if policy.RejectionTargetStageCode != "" {
		// Existence and order type were validated at catalog build time.
		return c.Stage(policy.RejectionTargetStageCode)
	}

	for _, candidate := range []string{"rejected", fmt.Sprintf("%s_rejected", stage.OrderType)} {
		if target, ok := c.stagesByCode[candidate]; ok &&
			target.Active && target.IsTerminal() && target.OrderType == stage.OrderType {
			return target, nil
		}
	}
	return nil, wferr.Configuration("no rejection target configured for stage %q and order type %s has no rejected end stage", stage.Code, stage.OrderType)
}

// CatalogSource yields the current catalog snapshot.
type CatalogSource interface {
	Catalog() (*Catalog, error)
}

// CatalogProvider holds the current catalog snapshot behind a read-write
// lock. Reference data is read-mostly: readers take the snapshot cheaply
// while administrative edits rebuild and swap it wholesale. A failed
// rebuild keeps the previous snapshot in place.
type CatalogProvider struct {
	repo CatalogRepository

	mu      sync.RWMutex
	current *Catalog
}

// NewCatalogProvider creates a provider; call Load before first use.
func NewCatalogProvider(repo CatalogRepository) *CatalogProvider {
	return &CatalogProvider{repo: repo}
}

// Load reads the reference data, validates it, and swaps in the new
// snapshot. On validation failure the previous snapshot stays active.
func (p *CatalogProvider) Load(ctx context.Context) error {
	stages, err := p.repo.ListStages(ctx)
	if err != nil {
		return fmt.Errorf("failed to load stages: %w", err)
	}
	policies, err := p.repo.ListPolicies(ctx)
	if err != nil {
		return fmt.Errorf("failed to load stage policies: %w", err)
	}

	catalog, err := BuildCatalog(stages, policies)
	if err != nil {
		return err
	}

	p.mu.Lock()
	p.current = catalog
	p.mu.Unlock()
	return nil
}

// Catalog returns the current snapshot.
func (p *CatalogProvider) Catalog() (*Catalog, error) {
	p.mu.RLock()
	defer p.mu.RUnlock()
	if p.current == nil {
		return nil, wferr.Configuration("stage catalog has not been loaded")
	}
	return p.current, nil
}
