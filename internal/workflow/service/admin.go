package service

import (
	"context"
	"log/slog"

	"github.com/open-erp/orderflow/internal/wferr"
	"github.com/open-erp/orderflow/internal/workflow/model"
)

// AdminRepository is the administrative surface's view of catalog
// persistence.
type AdminRepository interface {
	CatalogRepository
	GetStageByCode(ctx context.Context, code string) (*model.Stage, error)
	CreateStage(ctx context.Context, stage *model.Stage) error
	SaveStage(ctx context.Context, stage *model.Stage) error
	UpsertPolicy(ctx context.Context, policy *model.StagePolicy) error
	GetPolicyByStageCode(ctx context.Context, stageCode string) (*model.StagePolicy, error)
}

// StageUsageCounter reports how many orders currently sit in a stage.
type StageUsageCounter interface {
	CountByStage(ctx context.Context, stageCode string) (int64, error)
}

// AdminService exposes CRUD over stages and policy overlays. Stages are
// deactivated, never deleted: history entries and order states keep
// referencing them. Every successful write rebuilds the catalog snapshot;
// a rebuild failure keeps the previous snapshot serving reads and is
// surfaced to the administrator.
type AdminService struct {
	repo     AdminRepository
	usage    StageUsageCounter
	catalogs *CatalogProvider
}

// NewAdminService creates an AdminService.
func NewAdminService(repo AdminRepository, usage StageUsageCounter, catalogs *CatalogProvider) *AdminService {
	return &AdminService{repo: repo, usage: usage, catalogs: catalogs}
}

// ListStages returns all stages, optionally filtered by order type.
func (s *AdminService) ListStages(ctx context.Context, orderType *model.OrderType) ([]model.Stage, error) {
	stages, err := s.repo.ListStages(ctx)
	if err != nil {
		return nil, err
	}
	if orderType == nil {
		return stages, nil
	}
	filtered := make([]model.Stage, 0, len(stages))
	for _, stage := range stages {
		if stage.OrderType == *orderType {
			filtered = append(filtered, stage)
		}
	}
	return filtered, nil
}

// CreateStage creates a new stage and rebuilds the catalog.
func (s *AdminService) CreateStage(ctx context.Context, dto *model.CreateStageDTO) (*model.Stage, error) {
	if dto.Code == "" {
		return nil, wferr.Validation("stage code is required")
	}
	if dto.Name == "" {
		return nil, wferr.Validation("stage name is required")
	}
	if !dto.OrderType.Valid() {
		return nil, wferr.Validation("unknown order type %q", dto.OrderType)
	}
	switch dto.StageType {
	case model.StageTypeStart, model.StageTypeNormal, model.StageTypeConditional, model.StageTypeEnd:
	default:
		return nil, wferr.Validation("unknown stage type %q", dto.StageType)
	}

	stage := &model.Stage{
		Code:             dto.Code,
		Name:             dto.Name,
		NameSecondary:    dto.NameSecondary,
		OrderType:        dto.OrderType,
		Sequence:         dto.Sequence,
		StageType:        dto.StageType,
		Color:            dto.Color,
		Icon:             dto.Icon,
		RequiresApproval: dto.RequiresApproval,
		AutoAdvance:      dto.AutoAdvance,
		MaxDurationHours: dto.MaxDurationHours,
		Active:           true,
	}
	if err := s.repo.CreateStage(ctx, stage); err != nil {
		return nil, err
	}
	if err := s.reload(ctx); err != nil {
		return nil, err
	}
	return stage, nil
}

// UpdateStage edits an existing stage; nil DTO fields are left unchanged.
func (s *AdminService) UpdateStage(ctx context.Context, code string, dto *model.UpdateStageDTO) (*model.Stage, error) {
	stage, err := s.repo.GetStageByCode(ctx, code)
	if err != nil {
		return nil, err
	}

	if dto.Name != nil {
		stage.Name = *dto.Name
	}
	if dto.NameSecondary != nil {
		stage.NameSecondary = *dto.NameSecondary
	}
	if dto.Sequence != nil {
		stage.Sequence = *dto.Sequence
	}
	if dto.StageType != nil {
		stage.StageType = *dto.StageType
	}
	if dto.Color != nil {
		stage.Color = *dto.Color
	}
	if dto.Icon != nil {
		stage.Icon = *dto.Icon
	}
	if dto.RequiresApproval != nil {
		stage.RequiresApproval = *dto.RequiresApproval
	}
	if dto.AutoAdvance != nil {
		stage.AutoAdvance = *dto.AutoAdvance
	}
	if dto.MaxDurationHours != nil {
		stage.MaxDurationHours = dto.MaxDurationHours
	}

	if err := s.repo.SaveStage(ctx, stage); err != nil {
		return nil, err
	}
	if err := s.reload(ctx); err != nil {
		return nil, err
	}
	return stage, nil
}

// DeactivateStage marks a stage inactive. Refused while any order's
// current stage still references it.
func (s *AdminService) DeactivateStage(ctx context.Context, code string) (*model.Stage, error) {
	stage, err := s.repo.GetStageByCode(ctx, code)
	if err != nil {
		return nil, err
	}
	if !stage.Active {
		return stage, nil
	}

	inUse, err := s.usage.CountByStage(ctx, code)
	if err != nil {
		return nil, err
	}
	if inUse > 0 {
		return nil, wferr.Validation("stage %q is the current stage of %d order(s)", code, inUse)
	}

	stage.Active = false
	if err := s.repo.SaveStage(ctx, stage); err != nil {
		return nil, err
	}
	if err := s.reload(ctx); err != nil {
		return nil, err
	}
	return stage, nil
}

// GetPolicy returns the stored policy overlay for a stage, or the default
// synthesized from the stage's flags when none is stored.
func (s *AdminService) GetPolicy(ctx context.Context, stageCode string) (*model.StagePolicy, error) {
	stage, err := s.repo.GetStageByCode(ctx, stageCode)
	if err != nil {
		return nil, err
	}
	policy, err := s.repo.GetPolicyByStageCode(ctx, stageCode)
	if err == nil {
		return policy, nil
	}
	if wferr.IsCode(err, wferr.CodeNotFound) {
		return &model.StagePolicy{
			StageCode:                stage.Code,
			RequiresPreviousApproval: stage.RequiresApproval,
		}, nil
	}
	return nil, err
}

// UpsertPolicy creates or replaces a stage's policy overlay.
func (s *AdminService) UpsertPolicy(ctx context.Context, stageCode string, dto *model.UpsertPolicyDTO) (*model.StagePolicy, error) {
	stage, err := s.repo.GetStageByCode(ctx, stageCode)
	if err != nil {
		return nil, err
	}

	policy := &model.StagePolicy{
		StageCode:                stageCode,
		IsOptional:               dto.IsOptional,
		CanSkip:                  dto.CanSkip,
		SkipCondition:            dto.SkipCondition,
		RequiresPreviousApproval: dto.RequiresPreviousApproval,
		ApprovalDepartment:       dto.ApprovalDepartment,
		MaxDurationHours:         dto.MaxDurationHours,
		WarningHours:             dto.WarningHours,
		EscalationHours:          dto.EscalationHours,
		EscalationDepartment:     dto.EscalationDepartment,
		RejectionTargetStageCode: dto.RejectionTargetStageCode,
	}
	if err := policy.Validate(stage.MaxDurationHours); err != nil {
		return nil, wferr.Wrap(wferr.CodeValidation, err, "invalid policy for stage %q", stageCode)
	}

	if err := s.repo.UpsertPolicy(ctx, policy); err != nil {
		return nil, err
	}
	if err := s.reload(ctx); err != nil {
		return nil, err
	}
	return policy, nil
}

// reload rebuilds the catalog snapshot after a successful write. On
// failure the previous snapshot keeps serving and the error is surfaced as
// a configuration problem for the administrator to fix.
func (s *AdminService) reload(ctx context.Context) error {
	if err := s.catalogs.Load(ctx); err != nil {
		slog.Error("catalog reload failed after administrative edit; previous snapshot stays active", "error", err)
		if wferr.CodeOf(err) == wferr.CodeConfiguration {
			return err
		}
		return wferr.Wrap(wferr.CodeConfiguration, err, "catalog reload failed")
	}
	return nil
}
