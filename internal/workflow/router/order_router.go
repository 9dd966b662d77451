package router

import (
	"net/http"

	"github.com/open-erp/orderflow/internal/auth"
	"github.com/open-erp/orderflow/internal/workflow/model"
	"github.com/open-erp/orderflow/internal/workflow/service"
)

// OrderRouter serves the per-order transition and query endpoints.
type OrderRouter struct {
	engine  *service.TransitionEngine
	queries *service.QueryService
}

// NewOrderRouter creates an OrderRouter.
func NewOrderRouter(engine *service.TransitionEngine, queries *service.QueryService) *OrderRouter {
	return &OrderRouter{engine: engine, queries: queries}
}

type enterBody struct {
	Priority model.Priority `json:"priority,omitempty"`
	Notes    string         `json:"notes,omitempty"`
}

// HandleEnter handles POST /api/orders/{orderType}/{orderID}/enter
func (or *OrderRouter) HandleEnter(w http.ResponseWriter, r *http.Request) {
	actor := auth.RequireActor(w, r)
	if actor == nil {
		return
	}
	orderID, orderType, err := pathOrderIdentity(r)
	if err != nil {
		writeError(w, err)
		return
	}

	var body enterBody
	if err := decodeBody(r, &body, true); err != nil {
		writeError(w, err)
		return
	}

	state, err := or.engine.Enter(r.Context(), model.EnterCommand{
		OrderID:    orderID,
		OrderType:  model.OrderType(orderType),
		Actor:      actor.ActorID,
		Department: actor.Department,
		Priority:   body.Priority,
		Notes:      body.Notes,
	})
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, state)
}

type advanceBody struct {
	Notes  string `json:"notes,omitempty"`
	Notify bool   `json:"notify,omitempty"`
}

// HandleAdvance handles POST /api/orders/{orderType}/{orderID}/advance
func (or *OrderRouter) HandleAdvance(w http.ResponseWriter, r *http.Request) {
	actor := auth.RequireActor(w, r)
	if actor == nil {
		return
	}
	orderID, orderType, err := pathOrderIdentity(r)
	if err != nil {
		writeError(w, err)
		return
	}

	var body advanceBody
	if err := decodeBody(r, &body, true); err != nil {
		writeError(w, err)
		return
	}

	state, err := or.engine.Advance(r.Context(), model.AdvanceCommand{
		OrderID:    orderID,
		OrderType:  model.OrderType(orderType),
		Actor:      actor.ActorID,
		Department: actor.Department,
		Notes:      body.Notes,
		Notify:     body.Notify,
	})
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, state)
}

type rejectBody struct {
	Reason string `json:"reason"`
	Notes  string `json:"notes,omitempty"`
	Notify bool   `json:"notify,omitempty"`
}

// HandleReject handles POST /api/orders/{orderType}/{orderID}/reject
func (or *OrderRouter) HandleReject(w http.ResponseWriter, r *http.Request) {
	actor := auth.RequireActor(w, r)
	if actor == nil {
		return
	}
	orderID, orderType, err := pathOrderIdentity(r)
	if err != nil {
		writeError(w, err)
		return
	}

	var body rejectBody
	if err := decodeBody(r, &body, false); err != nil {
		writeError(w, err)
		return
	}

	state, err := or.engine.Reject(r.Context(), model.RejectCommand{
		OrderID:    orderID,
		OrderType:  model.OrderType(orderType),
		Actor:      actor.ActorID,
		Department: actor.Department,
		Reason:     body.Reason,
		Notes:      body.Notes,
		Notify:     body.Notify,
	})
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, state)
}

type returnBody struct {
	TargetStageCode string `json:"targetStageCode"`
	Notes           string `json:"notes,omitempty"`
	Notify          bool   `json:"notify,omitempty"`
}

// HandleReturn handles POST /api/orders/{orderType}/{orderID}/return
func (or *OrderRouter) HandleReturn(w http.ResponseWriter, r *http.Request) {
	actor := auth.RequireActor(w, r)
	if actor == nil {
		return
	}
	orderID, orderType, err := pathOrderIdentity(r)
	if err != nil {
		writeError(w, err)
		return
	}

	var body returnBody
	if err := decodeBody(r, &body, false); err != nil {
		writeError(w, err)
		return
	}

	state, err := or.engine.Return(r.Context(), model.ReturnCommand{
		OrderID:         orderID,
		OrderType:       model.OrderType(orderType),
		Actor:           actor.ActorID,
		Department:      actor.Department,
		TargetStageCode: body.TargetStageCode,
		Notes:           body.Notes,
		Notify:          body.Notify,
	})
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, state)
}

type reassignBody struct {
	NewDepartment string  `json:"newDepartment"`
	NewUser       *string `json:"newUser,omitempty"`
	Notes         string  `json:"notes,omitempty"`
}

// HandleReassign handles POST /api/orders/{orderType}/{orderID}/reassign
func (or *OrderRouter) HandleReassign(w http.ResponseWriter, r *http.Request) {
	actor := auth.RequireActor(w, r)
	if actor == nil {
		return
	}
	orderID, orderType, err := pathOrderIdentity(r)
	if err != nil {
		writeError(w, err)
		return
	}

	var body reassignBody
	if err := decodeBody(r, &body, false); err != nil {
		writeError(w, err)
		return
	}

	state, err := or.engine.Reassign(r.Context(), model.ReassignCommand{
		OrderID:       orderID,
		OrderType:     model.OrderType(orderType),
		Actor:         actor.ActorID,
		Department:    actor.Department,
		NewDepartment: body.NewDepartment,
		NewUser:       body.NewUser,
		Notes:         body.Notes,
	})
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, state)
}

// HandleGetWorkflowState handles GET /api/orders/{orderType}/{orderID}/workflow
func (or *OrderRouter) HandleGetWorkflowState(w http.ResponseWriter, r *http.Request) {
	orderID, orderType, err := pathOrderIdentity(r)
	if err != nil {
		writeError(w, err)
		return
	}

	view, err := or.queries.WorkflowState(r.Context(), orderID, model.OrderType(orderType))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, view)
}

// HandleGetHistory handles GET /api/orders/{orderType}/{orderID}/history
// Optional query filters: offset, limit
func (or *OrderRouter) HandleGetHistory(w http.ResponseWriter, r *http.Request) {
	orderID, orderType, err := pathOrderIdentity(r)
	if err != nil {
		writeError(w, err)
		return
	}
	offset, err := queryInt(r, "offset")
	if err != nil {
		writeError(w, err)
		return
	}
	limit, err := queryInt(r, "limit")
	if err != nil {
		writeError(w, err)
		return
	}

	entries, err := or.queries.History(r.Context(), orderID, model.OrderType(orderType), offset, limit)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, entries)
}

// HandleGetOverdue handles GET /api/workflow/overdue
func (or *OrderRouter) HandleGetOverdue(w http.ResponseWriter, r *http.Request) {
	overdue, err := or.queries.OverdueOrders(r.Context())
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, overdue)
}
