package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"expedientes_app_go/config"
	"expedientes_app_go/db"
	"expedientes_app_go/handlers"
	"expedientes_app_go/middleware"
	"expedientes_app_go/models"
	"expedientes_app_go/services"
	"expedientes_app_go/services/jobs"

	"github.com/labstack/echo/v4"
	echomiddleware "github.com/labstack/echo/v4/middleware"
)

func main() {
	// Load configuration
	cfg := config.Load()

	// Initialize database
	conn, err := db.Initialize(cfg)
	if err != nil {
		log.Fatalf("Failed to initialize database: %v", err)
	}
	defer db.Close(conn)

	// Run migrations
	if err := db.AutoMigrate(conn,
		&models.Expediente{},
		&models.NextAction{},
		&models.UserPreferences{},
		&models.Notification{},
		&models.CaseDocument{},
	); err != nil {
		log.Fatalf("Failed to run migrations: %v", err)
	}

	// Document storage (R2 when configured, local fallback)
	storage := services.NewStorage(cfg)

	// Case state: change feed, reconciling repository, per-user stores
	feed := services.NewChangeFeed()
	repo := services.NewCaseRepository(conn, feed)
	if err := repo.Refetch(); err != nil {
		log.Fatalf("Failed to load cases: %v", err)
	}
	defer repo.Close()

	sessions := services.NewSessionRegistry(conn, repo)
	defer sessions.CloseAll()

	// Handlers
	caseHandler := handlers.NewCaseHandler(repo, sessions)
	productivityHandler := handlers.NewProductivityHandler(repo, sessions)
	notificationHandler := handlers.NewNotificationHandler(sessions)
	reportHandler := handlers.NewReportHandler(repo, sessions, cfg)
	documentHandler := handlers.NewDocumentHandler(conn, repo, storage)

	// Create Echo instance
	e := echo.New()
	e.HideBanner = true

	// Middleware
	e.Use(echomiddleware.Logger())
	e.Use(echomiddleware.Recover())
	e.Use(echomiddleware.CORS())

	// All API routes are user-scoped
	api := e.Group("/api")
	api.Use(middleware.RequireUser())
	{
		// Cases
		api.GET("/cases", caseHandler.List)
		api.POST("/cases", caseHandler.Create)
		api.POST("/cases/refresh", caseHandler.Refresh)
		api.GET("/cases/import/template", caseHandler.ImportTemplate)
		api.POST("/cases/import", caseHandler.Import)
		api.GET("/cases/:id", caseHandler.Get)
		api.PUT("/cases/:id", caseHandler.Update)
		api.DELETE("/cases/:id", caseHandler.Delete)

		// Documents
		api.GET("/cases/:id/documents", documentHandler.List)
		api.POST("/cases/:id/documents", documentHandler.Upload)
		api.GET("/documents/:docID/url", documentHandler.SignedURL)
		api.DELETE("/documents/:docID", documentHandler.Delete)

		// Next actions
		api.GET("/next-actions", productivityHandler.GetNextActions)
		api.PUT("/cases/:id/next-action", productivityHandler.SetNextAction)
		api.POST("/cases/:id/next-action/toggle", productivityHandler.ToggleNextAction)
		api.DELETE("/cases/:id/next-action", productivityHandler.DeleteNextAction)

		// Preferences, templates, filters, drafts
		api.GET("/preferences", productivityHandler.GetPreferences)
		api.PUT("/preferences/profile", productivityHandler.UpdateProfile)
		api.PUT("/preferences/toggles", productivityHandler.SetToggle)
		api.PUT("/preferences/handlers", productivityHandler.SetHandlers)
		api.PUT("/preferences/templates", productivityHandler.SaveTemplate)
		api.DELETE("/preferences/templates/:id", productivityHandler.DeleteTemplate)
		api.PUT("/preferences/filters", productivityHandler.SaveFilter)
		api.DELETE("/preferences/filters/:id", productivityHandler.DeleteFilter)
		api.PUT("/drafts/:key", productivityHandler.SaveDraft)
		api.GET("/drafts/:key", productivityHandler.GetDraft)
		api.DELETE("/drafts/:key", productivityHandler.DeleteDraft)

		// Notifications
		api.GET("/notifications", notificationHandler.List)
		api.POST("/notifications", notificationHandler.Add)
		api.POST("/notifications/read-all", notificationHandler.MarkAllRead)
		api.POST("/notifications/:id/read", notificationHandler.MarkRead)
		api.DELETE("/notifications/:id", notificationHandler.Remove)
		api.DELETE("/notifications", notificationHandler.Clear)

		// Reports
		api.GET("/reports/dashboard", reportHandler.Dashboard)
		api.GET("/reports/work-queue", reportHandler.WorkQueue)
	}

	// Stale-case monitor (runs every hour, plus once at startup)
	go func() {
		jobs.RunStaleCheck(repo, sessions, cfg)

		ticker := time.NewTicker(1 * time.Hour)
		defer ticker.Stop()
		for range ticker.C {
			jobs.RunStaleCheck(repo, sessions, cfg)
		}
	}()

	// Start server
	go func() {
		log.Printf("Server starting on port %s", cfg.ServerPort)
		if err := e.Start(":" + cfg.ServerPort); err != nil {
			log.Printf("Server stopped: %v", err)
		}
	}()

	// Graceful shutdown: wait for pending writes before exit
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, os.Interrupt, syscall.SIGTERM)
	<-quit

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := e.Shutdown(ctx); err != nil {
		log.Printf("Error shutting down server: %v", err)
	}
}
