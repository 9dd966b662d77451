package service

import (
	"log/slog"

	"github.com/open-erp/orderflow/internal/workflow/model"
)

// EvaluateSkip decides whether a stage may be skipped for an order under
// its policy. A policy without a skip condition skips unconditionally when
// CanSkip is set. A malformed condition fails closed: the stage is treated
// as not skippable and the problem is reported, never silently skipped
// anyway.
func EvaluateSkip(policy *model.StagePolicy, attrs model.OrderAttributes) bool {
	if policy == nil || !policy.CanSkip {
		return false
	}
	if policy.SkipCondition == nil {
		return true
	}

	ok, err := policy.SkipCondition.Evaluate(attrs)
	if err != nil {
		slog.Error("skip condition evaluation failed; treating stage as not skippable",
			"stage", policy.StageCode,
			"error", err,
		)
		return false
	}
	return ok
}
