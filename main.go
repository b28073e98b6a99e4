package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"strconv"
	"syscall"

	"coffers/cmd"
	"coffers/config"
	"coffers/database"
	"coffers/models"

	log "github.com/sirupsen/logrus"
)

func main() {
	if len(os.Args) > 1 {
		switch os.Args[1] {
		case "migrate":
			if err := handleMigrationCommand(); err != nil {
				log.Fatalf("Migration error: %v", err)
			}
			return
		case "adjust-balance":
			if err := handleBalanceAdjustment(); err != nil {
				log.Fatalf("Balance adjustment error: %v", err)
			}
			return
		}
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
	go func() {
		<-sigChan
		log.Info("Received shutdown signal")
		cancel()
	}()

	if err := cmd.Run(ctx); err != nil {
		log.Fatalf("Application error: %v", err)
	}
}

func handleMigrationCommand() error {
	if len(os.Args) < 3 {
		return fmt.Errorf("usage: coffers migrate [up|down|status] [steps]")
	}

	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	switch os.Args[2] {
	case "up":
		return database.RunMigrations(cfg.DatabaseURL)
	case "down":
		steps := 1
		if len(os.Args) > 3 {
			steps, err = strconv.Atoi(os.Args[3])
			if err != nil {
				return fmt.Errorf("steps must be an integer: %w", err)
			}
		}
		return database.MigrateDown(cfg.DatabaseURL, steps)
	case "status":
		return database.MigrateStatus(cfg.DatabaseURL)
	default:
		return fmt.Errorf("unknown migration command: %s", os.Args[2])
	}
}

// handleBalanceAdjustment applies an admin balance delta from the command line
func handleBalanceAdjustment() error {
	if len(os.Args) < 5 {
		return fmt.Errorf("usage: coffers adjust-balance user-id server-id delta")
	}
	userID := os.Args[2]
	serverID := os.Args[3]
	delta, err := strconv.ParseInt(os.Args[4], 10, 64)
	if err != nil {
		return fmt.Errorf("delta must be an integer: %w", err)
	}

	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	ctx := context.Background()
	app, err := cmd.NewApp(ctx, cfg)
	if err != nil {
		return err
	}
	defer app.Close()

	if _, err := app.Users.EnsureUserOnServer(ctx, userID, serverID); err != nil {
		return fmt.Errorf("failed to register user: %w", err)
	}

	newBalance, err := app.Ledger.AdjustBalance(ctx, userID, serverID, delta,
		models.TransactionTypeAdminAdjust, map[string]any{"admin": true})
	if err != nil {
		return fmt.Errorf("failed to adjust balance: %w", err)
	}

	log.WithFields(log.Fields{
		"userID":     userID,
		"serverID":   serverID,
		"delta":      delta,
		"newBalance": newBalance,
	}).Info("Balance adjusted")
	return nil
}
