package main

import (
	"context"
	"fmt"
	"log"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/open-erp/orderflow/internal/attachments"
	"github.com/open-erp/orderflow/internal/auth"
	"github.com/open-erp/orderflow/internal/config"
	"github.com/open-erp/orderflow/internal/database"
	"github.com/open-erp/orderflow/internal/middleware"
	"github.com/open-erp/orderflow/internal/notify"
	"github.com/open-erp/orderflow/internal/workflow"
)

func main() {
	// Load configuration from environment variables
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load configuration: %v", err)
	}

	slog.Info("configuration loaded successfully",
		"db_host", cfg.Database.Host,
		"db_port", cfg.Database.Port,
		"db_name", cfg.Database.Name,
		"db_sslmode", cfg.Database.SSLMode,
	)

	slog.Info("server configuration",
		"port", cfg.Server.Port,
		"notifier", cfg.Notifier.Type,
		"monitor_enabled", cfg.Monitor.Enabled,
	)

	// Initialize database connection
	db, err := database.New(&cfg.Database)
	if err != nil {
		log.Fatalf("failed to connect to database: %v", err)
	}
	defer func() {
		if err := database.Close(db); err != nil {
			slog.Error("failed to close database", "error", err)
		}
	}()

	if err := database.HealthCheck(db); err != nil {
		log.Fatalf("database health check failed: %v", err)
	}

	if err := database.Migrate(db); err != nil {
		log.Fatalf("failed to migrate database schema: %v", err)
	}

	// Pick the transition notifier
	var notifier notify.Notifier
	switch cfg.Notifier.Type {
	case "nats":
		natsNotifier, err := notify.NewNATSNotifier(cfg.Notifier.NATSURL, cfg.Notifier.SubjectPrefix)
		if err != nil {
			log.Fatalf("failed to connect to NATS: %v", err)
		}
		defer natsNotifier.Close()
		notifier = natsNotifier
	default:
		notifier = notify.NewLogNotifier()
	}

	// Initialize the workflow manager; this loads and validates the stage
	// catalog so a misconfigured catalog fails startup
	wm, err := workflow.NewManager(db, notifier, cfg)
	if err != nil {
		log.Fatalf("failed to initialize workflow manager: %v", err)
	}

	wm.StartEscalationMonitor()
	if cfg.Monitor.Enabled {
		slog.Info("escalation monitor started", "interval_seconds", cfg.Monitor.IntervalSeconds)
	}

	// Attachment storage
	storage, err := attachments.NewStorageFromConfig(context.Background(), cfg.Storage)
	if err != nil {
		log.Fatalf("failed to initialize attachment storage: %v", err)
	}
	attachmentService := attachments.NewAttachmentService(storage, attachments.NewRepository(db), wm.States())
	attachmentHandler := attachments.NewHTTPHandler(attachmentService)

	// Set up HTTP routes
	mux := http.NewServeMux()
	mux.HandleFunc("POST /api/orders/{orderType}/{orderID}/enter", wm.HandleEnterWorkflow)
	mux.HandleFunc("POST /api/orders/{orderType}/{orderID}/advance", wm.HandleAdvanceOrder)
	mux.HandleFunc("POST /api/orders/{orderType}/{orderID}/reject", wm.HandleRejectOrder)
	mux.HandleFunc("POST /api/orders/{orderType}/{orderID}/return", wm.HandleReturnOrder)
	mux.HandleFunc("POST /api/orders/{orderType}/{orderID}/reassign", wm.HandleReassignOrder)
	mux.HandleFunc("GET /api/orders/{orderType}/{orderID}/workflow", wm.HandleGetWorkflowState)
	mux.HandleFunc("GET /api/orders/{orderType}/{orderID}/history", wm.HandleGetHistory)
	mux.HandleFunc("GET /api/workflow/overdue", wm.HandleGetOverdueOrders)

	mux.HandleFunc("GET /api/admin/stages", wm.HandleListStages)
	mux.HandleFunc("POST /api/admin/stages", wm.HandleCreateStage)
	mux.HandleFunc("PATCH /api/admin/stages/{stageCode}", wm.HandleUpdateStage)
	mux.HandleFunc("DELETE /api/admin/stages/{stageCode}", wm.HandleDeactivateStage)
	mux.HandleFunc("GET /api/admin/stages/{stageCode}/policy", wm.HandleGetPolicy)
	mux.HandleFunc("PUT /api/admin/stages/{stageCode}/policy", wm.HandleUpsertPolicy)

	mux.HandleFunc("POST /api/orders/{orderType}/{orderID}/attachments", attachmentHandler.Upload)
	mux.HandleFunc("GET /api/orders/{orderType}/{orderID}/attachments", attachmentHandler.List)
	mux.HandleFunc("GET /api/attachments/{key}", attachmentHandler.Download)

	serverAddr := fmt.Sprintf(":%d", cfg.Server.Port)

	// Wrap handler with actor and CORS middleware
	handler := middleware.CORS(&cfg.CORS)(auth.Middleware()(mux))

	server := &http.Server{
		Addr:    serverAddr,
		Handler: handler,
	}

	// Channel to listen for interrupt signals
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	// Start server in a goroutine
	go func() {
		slog.Info("starting server", "port", cfg.Server.Port)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			slog.Error("failed to start server", "error", err)
			quit <- syscall.SIGTERM
		}
	}()

	// Wait for interrupt signal
	<-quit
	slog.Info("shutting down server...")

	// Create a context with timeout for graceful shutdown
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	// Attempt graceful shutdown of HTTP server
	if err := server.Shutdown(ctx); err != nil {
		slog.Error("server forced to shutdown", "error", err)
	} else {
		slog.Info("server gracefully stopped")
	}

	slog.Info("stopping escalation monitor...")
	wm.StopEscalationMonitor()

	slog.Info("server stopped")
}
