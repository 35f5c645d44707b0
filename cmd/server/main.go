/*
main.go - Application entry point

PURPOSE:
  Initializes and starts the EcoRewards loyalty engine server.
  Handles configuration, dependency injection, and graceful shutdown.

STARTUP SEQUENCE:
  1. Parse command-line flags
  2. Load YAML configuration (defaults if the file is absent)
  3. Initialize SQLite store
  4. Select SMS/email senders (real clients or log-only fallback)
  5. Start the reminder scheduler
  6. Start HTTP server with graceful shutdown

COMMAND-LINE FLAGS:
  -config  YAML config file path (default: ecorewards.yaml)
  -port    HTTP server port, overrides config (default: from config)
  -db      SQLite database path, overrides config
           Use ":memory:" for in-memory database

GRACEFUL SHUTDOWN:
  On SIGINT/SIGTERM:
  1. Stop the reminder scheduler (waits for an in-flight sweep)
  2. Stop accepting new connections
  3. Wait for active requests to complete (30s timeout)
  4. Close database connection
  5. Exit

EXAMPLES:
  # Run with file database
  ./server -db="./data/ecorewards.db"

  # Run with in-memory database
  ./server -db=":memory:"

  # Run with explicit config
  ./server -config=./deploy/prod.yaml

SEE ALSO:
  - config/config.go: Configuration format and defaults
  - api/server.go: Router configuration
  - notify/scheduler.go: Reminder sweep loop
*/
package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/ecorewards/loyalty-engine/api"
	"github.com/ecorewards/loyalty-engine/config"
	"github.com/ecorewards/loyalty-engine/email"
	"github.com/ecorewards/loyalty-engine/loyalty"
	"github.com/ecorewards/loyalty-engine/notify"
	"github.com/ecorewards/loyalty-engine/sms"
	"github.com/ecorewards/loyalty-engine/store/sqlite"
)

func main() {
	// Flags
	configPath := flag.String("config", "ecorewards.yaml", "YAML config file path")
	port := flag.Int("port", 0, "HTTP server port (overrides config)")
	dbPath := flag.String("db", "", "SQLite database path (overrides config)")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}
	if *port > 0 {
		cfg.Server.Port = *port
	}
	if *dbPath != "" {
		cfg.Database.Path = *dbPath
	}

	// Initialize store
	store, err := sqlite.New(cfg.Database.Path)
	if err != nil {
		log.Fatalf("Failed to initialize database: %v", err)
	}
	defer store.Close()

	// Loyalty service
	service := loyalty.NewService(store)

	// Notification channels
	router := notify.NewRouter(map[notify.Channel]notify.Sender{
		notify.ChannelSMS:   smsSender(cfg),
		notify.ChannelEmail: emailSender(cfg),
	})
	router.SendTimeout = cfg.Scheduler.SendTimeout()

	// Reminder scheduler
	scheduler := notify.NewScheduler(notify.SchedulerDeps{
		Due:         store,
		Preferences: store,
		Reminders:   store,
		Contacts:    store,
	}, router)
	scheduler.Interval = cfg.Scheduler.SweepInterval()
	scheduler.CooldownDays = cfg.Scheduler.CooldownDays
	scheduler.DueInDays = cfg.Scheduler.DueInDays
	scheduler.MaxConcurrent = cfg.Scheduler.MaxConcurrent
	scheduler.Start()

	// HTTP surface
	handler := api.NewHandler(store, service, scheduler)
	mux := api.NewRouter(handler)

	server := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Server.Port),
		Handler:      mux,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	// Start server in goroutine
	go func() {
		log.Printf("🚀 Server starting on http://localhost:%d", cfg.Server.Port)
		log.Printf("📊 API available at http://localhost:%d/api", cfg.Server.Port)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("Server failed: %v", err)
		}
	}()

	// Wait for interrupt signal
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Println("Shutting down server...")

	// Finish any in-flight sweep before closing the HTTP surface.
	scheduler.Stop()

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := server.Shutdown(ctx); err != nil {
		log.Fatalf("Server forced to shutdown: %v", err)
	}

	log.Println("Server stopped")
}

// smsSender returns the Twilio-style client when credentials are present,
// otherwise a log-only sender.
func smsSender(cfg *config.Config) notify.Sender {
	client := sms.NewClient(cfg.SMS.AccountSID, cfg.SMS.AuthToken, cfg.SMS.From)
	if client.Configured() {
		return client
	}
	log.Println("[Main] SMS credentials not configured, logging messages instead")
	return &notify.LogSender{Channel: notify.ChannelSMS}
}

// emailSender returns the Postmark-style client when credentials are present,
// otherwise a log-only sender.
func emailSender(cfg *config.Config) notify.Sender {
	client := email.NewClient(cfg.Email.ServerToken, cfg.Email.From,
		email.WithSubject(notify.ReminderEmailSubject(cfg.Scheduler.DueInDays)))
	if client.Configured() {
		return client
	}
	log.Println("[Main] Email credentials not configured, logging messages instead")
	return &notify.LogSender{Channel: notify.ChannelEmail}
}
