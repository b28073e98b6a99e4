package cmd

import (
	"context"
	"fmt"
	"time"

	"coffers/config"
	"coffers/database"
	"coffers/events"
	"coffers/repository"
	"coffers/repository/memory"
	"coffers/service"

	log "github.com/sirupsen/logrus"
)

// App bundles the wired services for callers embedding the ledger
type App struct {
	Users    service.UserService
	Ledger   service.LedgerService
	Clans    service.ClanService
	Gambling service.GamblingService
	Stats    service.StatsService
	EventBus *events.Bus

	db *database.DB
}

// NewApp wires the service layer on top of the configured store backend
func NewApp(ctx context.Context, cfg *config.Config) (*App, error) {
	eventBus := events.NewBus()

	var uowFactory service.UnitOfWorkFactory
	var db *database.DB

	switch cfg.StoreBackend {
	case config.StoreMemory:
		log.Info("Using in-memory store")
		uowFactory = memory.NewUnitOfWorkFactory(memory.NewStore(), eventBus)

	case config.StorePostgres:
		log.Info("Running database migrations")
		if err := database.RunMigrations(cfg.DatabaseURL); err != nil {
			return nil, fmt.Errorf("failed to run migrations: %w", err)
		}

		var err error
		db, err = database.NewConnection(ctx, cfg.DatabaseURL)
		if err != nil {
			return nil, fmt.Errorf("failed to connect to database: %w", err)
		}
		log.Info("Database connection established")
		uowFactory = repository.NewUnitOfWorkFactory(db, eventBus)

	default:
		return nil, fmt.Errorf("unknown store backend %q", cfg.StoreBackend)
	}

	registerLoggingSubscribers(eventBus)

	return &App{
		Users:    service.NewUserService(uowFactory, cfg.StartingBalance),
		Ledger:   service.NewLedgerService(uowFactory),
		Clans:    service.NewClanService(uowFactory),
		Gambling: service.NewGamblingService(uowFactory, service.NewCryptoRand()),
		Stats:    service.NewStatsService(uowFactory),
		EventBus: eventBus,
		db:       db,
	}, nil
}

// Close releases the app's resources
func (a *App) Close() {
	if a.db != nil {
		a.db.Close()
	}
}

// Run initializes the application and blocks until ctx is cancelled
func Run(ctx context.Context) error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	level, err := log.ParseLevel(cfg.LogLevel)
	if err != nil {
		return fmt.Errorf("invalid log level %q: %w", cfg.LogLevel, err)
	}
	log.SetLevel(level)
	if cfg.Environment == "production" {
		log.SetFormatter(&log.JSONFormatter{})
	}

	app, err := NewApp(ctx, cfg)
	if err != nil {
		return err
	}

	log.WithFields(log.Fields{
		"environment": cfg.Environment,
		"backend":     cfg.StoreBackend,
	}).Info("Ledger is running")
	<-ctx.Done()

	log.Info("Shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	app.Close()

	select {
	case <-shutdownCtx.Done():
		log.Warn("Shutdown timeout exceeded")
	case <-time.After(1 * time.Second):
		log.Info("Shutdown completed")
	}

	return nil
}

// registerLoggingSubscribers attaches debug logging to every event type
func registerLoggingSubscribers(bus *events.Bus) {
	bus.Subscribe(events.EventTypeBalanceChange, func(ctx context.Context, e events.Event) {
		ev := e.(events.BalanceChangeEvent)
		log.WithFields(log.Fields{
			"userID":     ev.UserID,
			"serverID":   ev.ServerID,
			"oldBalance": ev.OldBalance,
			"newBalance": ev.NewBalance,
			"txType":     ev.TransactionType,
		}).Debug("Balance changed")
	})
	bus.Subscribe(events.EventTypeUserRegistered, func(ctx context.Context, e events.Event) {
		ev := e.(events.UserRegisteredEvent)
		log.WithFields(log.Fields{
			"userID":   ev.UserID,
			"serverID": ev.ServerID,
		}).Info("User registered")
	})
	bus.Subscribe(events.EventTypeClanCreated, func(ctx context.Context, e events.Event) {
		ev := e.(events.ClanCreatedEvent)
		log.WithFields(log.Fields{
			"clanID":   ev.ClanID,
			"serverID": ev.ServerID,
			"tag":      ev.Tag,
		}).Info("Clan created")
	})
	bus.Subscribe(events.EventTypeClanDissolved, func(ctx context.Context, e events.Event) {
		ev := e.(events.ClanDissolvedEvent)
		log.WithFields(log.Fields{
			"clanID":   ev.ClanID,
			"serverID": ev.ServerID,
			"tag":      ev.Tag,
		}).Info("Clan dissolved")
	})
	bus.Subscribe(events.EventTypeGamePlayed, func(ctx context.Context, e events.Event) {
		ev := e.(events.GamePlayedEvent)
		log.WithFields(log.Fields{
			"userID":   ev.UserID,
			"serverID": ev.ServerID,
			"gameType": ev.GameType,
			"bet":      ev.Bet,
			"winnings": ev.Winnings,
		}).Debug("Game played")
	})
}
