package main

import (
	"context" // For the seed lookup

	"invest_platform/internal/config" // Custom import path (Config)
	"invest_platform/internal/db"     // Custom import path (Database)
	"invest_platform/internal/ledger" // Store used by the seed

	"github.com/sirupsen/logrus" // Logging library
)

// Main entry point for migration
func main() {
	cfg := config.LoadConfig() // Load configuration
	cfg.ConfigureLogging()

	gdb, err := db.Open(cfg)
	if err != nil {
		logrus.Fatalf("failed to connect to DB: %v", err)
	}
	if err := db.Migrate(gdb); err != nil {
		logrus.Fatalf("migration failed: %v", err)
	}

	// Optional first admin
	if cfg.AdminEmail != "" {
		if _, _, err := db.SeedAdmin(context.Background(), ledger.New(gdb), cfg.AdminEmail, cfg.AdminPassword); err != nil {
			logrus.Fatalf("admin seed failed: %v", err)
		}
	}
}
