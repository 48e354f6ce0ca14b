package main

import (
	"context"   // Job deadlines
	"os"        // Signals
	"os/signal" // Signal notification
	"syscall"   // SIGTERM
	"time"      // Clock

	"invest_platform/internal/app"    // Component wiring
	"invest_platform/internal/config" // Configuration

	"github.com/robfig/cron/v3"  // Cron scheduler
	"github.com/sirupsen/logrus" // Logging library
)

// Closes projects whose end date has passed on EXPIRY_SCHEDULE
func main() {
	cfg := config.LoadConfig()
	cfg.ConfigureLogging()
	if err := cfg.ValidateEngine(); err != nil {
		logrus.Fatalf("invalid configuration: %v", err) // Never fall back to in-process locks silently
	}

	a, err := app.Open(cfg)
	if err != nil {
		logrus.Fatalf("failed to start: %v", err)
	}
	defer a.Close()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	if cfg.MetricsAddr != "" {
		a.Metrics.StartServer(ctx, cfg.MetricsAddr)
	}

	c := cron.New(cron.WithChain(cron.SkipIfStillRunning(cron.DefaultLogger)))
	_, err = c.AddFunc(cfg.ExpirySchedule, func() {
		jobCtx, cancel := context.WithTimeout(ctx, time.Minute)
		defer cancel()
		closed, err := a.Engine.CloseExpiredProjects(jobCtx, time.Now().UTC())
		if err != nil {
			logrus.WithError(err).Error("Expiry sweep failed")
			return
		}
		logrus.WithField("closed", len(closed)).Debug("Expiry sweep done")
	})
	if err != nil {
		logrus.Fatalf("invalid EXPIRY_SCHEDULE %q: %v", cfg.ExpirySchedule, err)
	}

	c.Start()
	logrus.WithField("schedule", cfg.ExpirySchedule).Info("Scheduler running")
	<-ctx.Done()
	<-c.Stop().Done() // Wait for a running sweep
	logrus.Info("Scheduler stopped")
}
