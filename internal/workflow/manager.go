package workflow

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"gorm.io/gorm"

	"github.com/open-erp/orderflow/internal/config"
	"github.com/open-erp/orderflow/internal/notify"
	"github.com/open-erp/orderflow/internal/workflow/repository"
	"github.com/open-erp/orderflow/internal/workflow/router"
	"github.com/open-erp/orderflow/internal/workflow/service"
)

// Manager wires the workflow services and routers together and owns the
// escalation monitor's lifecycle.
type Manager struct {
	engine      *service.TransitionEngine
	queries     *service.QueryService
	admin       *service.AdminService
	catalogs    *service.CatalogProvider
	monitor     *service.EscalationMonitor
	states      *repository.StateRepository
	orderRouter *router.OrderRouter
	adminRouter *router.AdminRouter
}

// NewManager builds the full workflow stack on top of the database
// connection. The stage catalog is loaded and validated up front: a broken
// catalog refuses to serve rather than misroute orders.
func NewManager(db *gorm.DB, notifier notify.Notifier, cfg *config.Config) (*Manager, error) {
	states := repository.NewStateRepository(db)
	history := repository.NewHistoryRepository(db)
	stages := repository.NewStageRepository(db)
	attrs := repository.NewOrderAttributesRepository(db)
	txm := repository.NewTxManager(db)

	catalogs := service.NewCatalogProvider(stages)
	if err := catalogs.Load(context.Background()); err != nil {
		return nil, fmt.Errorf("failed to load stage catalog: %w", err)
	}

	engine := service.NewTransitionEngine(txm, states, history, attrs, catalogs, notifier)
	queries := service.NewQueryService(states, history, catalogs)
	admin := service.NewAdminService(stages, states, catalogs)

	m := &Manager{
		engine:      engine,
		queries:     queries,
		admin:       admin,
		catalogs:    catalogs,
		states:      states,
		orderRouter: router.NewOrderRouter(engine, queries),
		adminRouter: router.NewAdminRouter(admin),
	}

	if cfg.Monitor.Enabled {
		m.monitor = service.NewEscalationMonitor(
			states,
			history,
			engine,
			catalogs,
			notifier,
			time.Duration(cfg.Monitor.IntervalSeconds)*time.Second,
			cfg.Monitor.EscalationActor,
			cfg.Monitor.EscalationNotesText,
		)
	}

	return m, nil
}

// States exposes the state repository for components outside the workflow
// package that need read access to order positions.
func (m *Manager) States() *repository.StateRepository {
	return m.states
}

// StartEscalationMonitor starts the periodic overdue sweep if it is
// enabled in the configuration.
func (m *Manager) StartEscalationMonitor() {
	if m.monitor != nil {
		m.monitor.Start()
	}
}

// StopEscalationMonitor stops the overdue sweep and waits for an in-flight
// sweep to finish.
func (m *Manager) StopEscalationMonitor() {
	if m.monitor != nil {
		m.monitor.Stop()
	}
}

// HTTP Handler delegation methods

// HandleEnterWorkflow handles POST /api/orders/{orderType}/{orderID}/enter
func (m *Manager) HandleEnterWorkflow(w http.ResponseWriter, r *http.Request) {
	m.orderRouter.HandleEnter(w, r)
}

// HandleAdvanceOrder handles POST /api/orders/{orderType}/{orderID}/advance
func (m *Manager) HandleAdvanceOrder(w http.ResponseWriter, r *http.Request) {
	m.orderRouter.HandleAdvance(w, r)
}

// HandleRejectOrder handles POST /api/orders/{orderType}/{orderID}/reject
func (m *Manager) HandleRejectOrder(w http.ResponseWriter, r *http.Request) {
	m.orderRouter.HandleReject(w, r)
}

// HandleReturnOrder handles POST /api/orders/{orderType}/{orderID}/return
func (m *Manager) HandleReturnOrder(w http.ResponseWriter, r *http.Request) {
	m.orderRouter.HandleReturn(w, r)
}

// HandleReassignOrder handles POST /api/orders/{orderType}/{orderID}/reassign
func (m *Manager) HandleReassignOrder(w http.ResponseWriter, r *http.Request) {
	m.orderRouter.HandleReassign(w, r)
}

// HandleGetWorkflowState handles GET /api/orders/{orderType}/{orderID}/workflow
func (m *Manager) HandleGetWorkflowState(w http.ResponseWriter, r *http.Request) {
	m.orderRouter.HandleGetWorkflowState(w, r)
}

// HandleGetHistory handles GET /api/orders/{orderType}/{orderID}/history
func (m *Manager) HandleGetHistory(w http.ResponseWriter, r *http.Request) {
	m.orderRouter.HandleGetHistory(w, r)
}

// HandleGetOverdueOrders handles GET /api/workflow/overdue
func (m *Manager) HandleGetOverdueOrders(w http.ResponseWriter, r *http.Request) {
	m.orderRouter.HandleGetOverdue(w, r)
}

// HandleListStages handles GET /api/admin/stages
func (m *Manager) HandleListStages(w http.ResponseWriter, r *http.Request) {
	m.adminRouter.HandleListStages(w, r)
}

// HandleCreateStage handles POST /api/admin/stages
func (m *Manager) HandleCreateStage(w http.ResponseWriter, r *http.Request) {
	m.adminRouter.HandleCreateStage(w, r)
}

// HandleUpdateStage handles PATCH /api/admin/stages/{stageCode}
func (m *Manager) HandleUpdateStage(w http.ResponseWriter, r *http.Request) {
	m.adminRouter.HandleUpdateStage(w, r)
}

// HandleDeactivateStage handles DELETE /api/admin/stages/{stageCode}
func (m *Manager) HandleDeactivateStage(w http.ResponseWriter, r *http.Request) {
	m.adminRouter.HandleDeactivateStage(w, r)
}

// HandleGetPolicy handles GET /api/admin/stages/{stageCode}/policy
func (m *Manager) HandleGetPolicy(w http.ResponseWriter, r *http.Request) {
	m.adminRouter.HandleGetPolicy(w, r)
}

// HandleUpsertPolicy handles PUT /api/admin/stages/{stageCode}/policy
func (m *Manager) HandleUpsertPolicy(w http.ResponseWriter, r *http.Request) {
	m.adminRouter.HandleUpsertPolicy(w, r)
}
