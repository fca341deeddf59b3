package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/vipul43/listing-sync/internal/airtable"
	"github.com/vipul43/listing-sync/internal/auth"
	"github.com/vipul43/listing-sync/internal/config"
	"github.com/vipul43/listing-sync/internal/credential"
	"github.com/vipul43/listing-sync/internal/database"
	"github.com/vipul43/listing-sync/internal/domainapi"
	"github.com/vipul43/listing-sync/internal/handler"
	"github.com/vipul43/listing-sync/internal/logger"
	"github.com/vipul43/listing-sync/internal/models"
	"github.com/vipul43/listing-sync/internal/repository"
	"github.com/vipul43/listing-sync/internal/service"
	"github.com/vipul43/listing-sync/internal/watcher"
)

func main() {
	if err := run(); err != nil {
		log.Fatalf("Application error: %v", err)
	}
}

func run() error {
	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		return err
	}

	zlog := logger.New(cfg.LogLevel, cfg.Environment)
	defer func() { _ = zlog.Sync() }()

	// Connect to database only when a backend lives there
	var db *gorm.DB
	if cfg.NeedsDatabase() {
		db, err = database.Connect(cfg.DatabaseURL)
		if err != nil {
			return err
		}
		sqlDB, err := db.DB()
		if err != nil {
			return fmt.Errorf("failed to get database handle: %w", err)
		}
		defer sqlDB.Close()
		zlog.Info("Database connected successfully")

		zlog.Info("Running database migrations...")
		if err := database.RunMigrations(sqlDB); err != nil {
			return err
		}
		zlog.Info("Migrations completed successfully")
	}

	// Credential store
	var credStore credential.Store
	switch cfg.CredentialBackend {
	case config.BackendPostgres:
		credStore = repository.NewCredentialRepository(db, zlog)
	default:
		credStore = credential.NewFileStore(cfg.TokenFile, zlog)
	}

	authManager := auth.NewManager(auth.Config{
		AuthURL:      cfg.DomainAuthURL,
		ClientID:     cfg.ClientID,
		ClientSecret: cfg.ClientSecret,
		RedirectURI:  cfg.RedirectURI,
		Scopes:       cfg.Scopes,
	}, credStore, zlog)

	// Partner API
	apiClient := domainapi.NewClient(cfg.DomainAPIBaseURL, authManager, zlog)
	statsFetcher := domainapi.NewStatisticsFetcher(apiClient, zlog)

	// Record store
	var recordStore service.RecordStore
	var fieldOptions handler.FieldOptionsProvider
	var recordCounter handler.RecordCounter
	switch cfg.RecordBackend {
	case config.BackendPostgres:
		recordRepo := repository.NewRecordRepository(db)
		recordStore = recordRepo
		recordCounter = recordRepo
	default:
		airtableClient := airtable.NewClient(airtable.Config{
			APIURL: cfg.AirtableAPIURL,
			APIKey: cfg.AirtableAPIKey,
			BaseID: cfg.AirtableBaseID,
			Table:  cfg.AirtableTable,
		}, zlog)
		recordStore = airtableClient
		fieldOptions = airtableClient
	}

	// Initialize services
	upserter := service.NewUpserter(recordStore, zlog)
	processor := service.NewListingProcessor(apiClient, statsFetcher, upserter, zlog)
	syncer := service.NewSyncer(cfg, processor, models.DefaultRoster, cfg.PageSize, zlog)

	w := watcher.New(syncer, authManager, cfg.SyncSchedule, cfg.RefreshSchedule, zlog)

	if cfg.Environment == "production" {
		gin.SetMode(gin.ReleaseMode)
	}
	h := handler.New(authManager, syncer, apiClient, fieldOptions, zlog).WithRecordCounter(recordCounter)
	srv := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           h.Router(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	// Setup graceful shutdown
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)

	watcherErr := make(chan error, 1)
	go func() {
		watcherErr <- w.Start(ctx)
	}()

	serverErr := make(chan error, 1)
	go func() {
		zlog.Info("Server running", zap.String("addr", srv.Addr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serverErr <- err
		}
	}()

	// Wait for shutdown signal or error
	select {
	case <-sigChan:
		zlog.Info("Shutdown signal received")
	case err := <-serverErr:
		cancel()
		return fmt.Errorf("http server failed: %w", err)
	case err := <-watcherErr:
		return err
	}

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), time.Duration(cfg.ShutdownTimeout)*time.Second)
	defer shutdownCancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		zlog.Warn("HTTP server shutdown incomplete", zap.Error(err))
	}

	cancel()
	select {
	case <-shutdownCtx.Done():
		zlog.Warn("Shutdown timeout exceeded")
	case err := <-watcherErr:
		if err != nil && !errors.Is(err, context.Canceled) {
			zlog.Error("Watcher error", zap.Error(err))
		}
	}

	zlog.Info("Application stopped")
	return nil
}
