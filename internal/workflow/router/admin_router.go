package router

import (
	"net/http"

	"github.com/open-erp/orderflow/internal/auth"
	"github.com/open-erp/orderflow/internal/workflow/model"
	"github.com/open-erp/orderflow/internal/workflow/service"
)

// AdminRouter serves the stage catalog and policy administration endpoints.
type AdminRouter struct {
	admin *service.AdminService
}

// NewAdminRouter creates an AdminRouter.
func NewAdminRouter(admin *service.AdminService) *AdminRouter {
	return &AdminRouter{admin: admin}
}

// HandleListStages handles GET /api/admin/stages
// Optional query filter: orderType
func (ar *AdminRouter) HandleListStages(w http.ResponseWriter, r *http.Request) {
	var orderType *model.OrderType
	if raw := r.URL.Query().Get("orderType"); raw != "" {
		ot := model.OrderType(raw)
		orderType = &ot
	}

	stages, err := ar.admin.ListStages(r.Context(), orderType)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, stages)
}

// HandleCreateStage handles POST /api/admin/stages
func (ar *AdminRouter) HandleCreateStage(w http.ResponseWriter, r *http.Request) {
	if auth.RequireActor(w, r) == nil {
		return
	}

	var dto model.CreateStageDTO
	if err := decodeBody(r, &dto, false); err != nil {
		writeError(w, err)
		return
	}

	stage, err := ar.admin.CreateStage(r.Context(), &dto)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, stage)
}

// HandleUpdateStage handles PATCH /api/admin/stages/{stageCode}
func (ar *AdminRouter) HandleUpdateStage(w http.ResponseWriter, r *http.Request) {
	if auth.RequireActor(w, r) == nil {
		return
	}
	code := r.PathValue("stageCode")

	var dto model.UpdateStageDTO
	if err := decodeBody(r, &dto, false); err != nil {
		writeError(w, err)
		return
	}

	stage, err := ar.admin.UpdateStage(r.Context(), code, &dto)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, stage)
}

// HandleDeactivateStage handles DELETE /api/admin/stages/{stageCode}
func (ar *AdminRouter) HandleDeactivateStage(w http.ResponseWriter, r *http.Request) {
	if auth.RequireActor(w, r) == nil {
		return
	}
	code := r.PathValue("stageCode")

	stage, err := ar.admin.DeactivateStage(r.Context(), code)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, stage)
}

// HandleGetPolicy handles GET /api/admin/stages/{stageCode}/policy
func (ar *AdminRouter) HandleGetPolicy(w http.ResponseWriter, r *http.Request) {
	code := r.PathValue("stageCode")

	policy, err := ar.admin.GetPolicy(r.Context(), code)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, policy)
}

// HandleUpsertPolicy handles PUT /api/admin/stages/{stageCode}/policy
func (ar *AdminRouter) HandleUpsertPolicy(w http.ResponseWriter, r *http.Request) {
	if auth.RequireActor(w, r) == nil {
		return
	}
	code := r.PathValue("stageCode")

	var dto model.UpsertPolicyDTO
	if err := decodeBody(r, &dto, false); err != nil {
		writeError(w, err)
		return
	}

	policy, err := ar.admin.UpsertPolicy(r.Context(), code, &dto)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, policy)
}
