// Package app provides shared application initialization logic used by the
// server and simulate commands.
package app

import (
	"context"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/gorilla/mux"

	"github.com/VIDYANKSHINI/SWASHAKTI/internal/config"
	"github.com/VIDYANKSHINI/SWASHAKTI/internal/db"
	"github.com/VIDYANKSHINI/SWASHAKTI/internal/handlers"
	"github.com/VIDYANKSHINI/SWASHAKTI/internal/logger"
	"github.com/VIDYANKSHINI/SWASHAKTI/internal/metrics"
	"github.com/VIDYANKSHINI/SWASHAKTI/internal/scan"
	"github.com/VIDYANKSHINI/SWASHAKTI/internal/scheduler"
	"github.com/VIDYANKSHINI/SWASHAKTI/internal/services"
)

// ServerConfig contains options for creating the application server.
type ServerConfig struct {
	// Port to listen on. If 0, uses config default.
	Port int

	// Version string for display.
	Version string

	// Commit hash for display.
	Commit string

	// BindAddress is the address to bind to. Defaults to "" (all interfaces).
	BindAddress string

	// ScanOptions are applied to every run after the configured ones.
	ScanOptions []scan.Option
}

// Server wraps the HTTP server and associated resources.
type Server struct {
	HTTP      *http.Server
	Config    *config.Config
	Database  *db.DB
	Checks    *config.CheckList
	Metrics   *metrics.Collector
	Inspector *services.Inspector
	Scheduler *scheduler.Scheduler

	watchCancel context.CancelFunc
	watchDone   chan struct{}
}

// CreateServer initializes all application components and returns a Server.
// Call Server.Cleanup() when done to release resources.
func CreateServer(cfg ServerConfig) (*Server, error) {
	// Load configuration from environment
	appCfg := config.Load()

	// Override port if specified
	if cfg.Port > 0 {
		appCfg.Port = cfg.Port
	}

	logger.SetLevel(appCfg.LogLevel)
	logger.Infof("swashakti %s starting...", buildVersionString(cfg.Version, cfg.Commit))
	logger.Infof("  Port: %d", appCfg.Port)
	logger.Infof("  Tick: +%d every %v, settle %v", appCfg.TickStep, appCfg.TickInterval, appCfg.SettleDelay)
	logger.Infof("  Retention: %v (cleanup %s)", appCfg.Retention, appCfg.CleanupSchedule)

	checks, err := config.NewCheckList(appCfg.ChecksFile)
	if err != nil {
		return nil, fmt.Errorf("failed to load check list: %w", err)
	}
	if appCfg.ChecksFile != "" {
		logger.Infof("  Checks: %s", appCfg.ChecksFile)
	}

	// Reject bad timing settings before anything starts
	opts := append(appCfg.ScanOptions(), cfg.ScanOptions...)
	if _, err := scan.New(checks.Checks(), opts...); err != nil {
		return nil, fmt.Errorf("invalid scan settings: %w", err)
	}

	// Initialize session registry
	database, err := db.Open()
	if err != nil {
		return nil, fmt.Errorf("failed to open registry: %w", err)
	}

	collector := metrics.New()
	inspector := services.NewInspector(database, checks, collector, opts...)

	// Initialize scheduler
	sched, err := scheduler.New(inspector, appCfg.CleanupSchedule, appCfg.Retention)
	if err != nil {
		database.Close()
		return nil, err
	}
	sched.Start()

	// Reload the check list when its file changes
	watchCtx, watchCancel := context.WithCancel(context.Background())
	watchDone := make(chan struct{})
	go func() {
		defer close(watchDone)
		if err := checks.Watch(watchCtx); err != nil {
			logger.Errorf("config: check list watcher stopped: %v", err)
		}
	}()

	// Set up HTTP server
	router := mux.NewRouter()
	handlers.New(inspector, collector.Handler()).RegisterRoutes(router)

	addr := fmt.Sprintf("%s:%d", cfg.BindAddress, appCfg.Port)

	server := &http.Server{
		Addr:         addr,
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 0, // No timeout for SSE
		IdleTimeout:  60 * time.Second,
	}

	return &Server{
		HTTP:        server,
		Config:      appCfg,
		Database:    database,
		Checks:      checks,
		Metrics:     collector,
		Inspector:   inspector,
		Scheduler:   sched,
		watchCancel: watchCancel,
		watchDone:   watchDone,
	}, nil
}

// Cleanup releases all resources held by the server. Scans still in
// progress are cancelled.
func (s *Server) Cleanup() {
	if s.Scheduler != nil {
		s.Scheduler.Stop()
	}
	if s.watchCancel != nil {
		s.watchCancel()
		<-s.watchDone
	}
	if s.Inspector != nil {
		s.Inspector.CancelAll()
	}
	if s.Database != nil {
		s.Database.Close()
	}
}

func buildVersionString(version, commit string) string {
	if strings.HasPrefix(version, "v") {
		return version
	}
	shortCommit := commit
	if len(shortCommit) > 7 {
		shortCommit = shortCommit[:7]
	}
	if shortCommit == "" {
		shortCommit = "unknown"
	}
	return version + "-" + shortCommit
}
