package service

import (
	"context"
	"time"

	"coffers/events"
	"coffers/models"
)

// UserRepository defines the interface for user data access. Lookups return
// (nil, nil) when the entity is absent; mutating operations return
// models.ErrUserNotOnServer when the (user, server) key does not exist.
type UserRepository interface {
	// GetByID retrieves a user with all their server states
	GetByID(ctx context.Context, userID string) (*models.User, error)

	// Create creates a new user record (no server states yet)
	Create(ctx context.Context, user *models.User) error

	// GetUsersOnServer returns users possessing a state for serverID
	GetUsersOnServer(ctx context.Context, serverID string) ([]*models.User, error)

	// TouchLastSeen updates a user's last-seen timestamp
	TouchLastSeen(ctx context.Context, userID string, seenAt time.Time) error

	// CreateServerState adds a per-server sub-record for an existing user
	CreateServerState(ctx context.Context, userID string, state *models.ServerState) error

	// AddBalance adds to a user's per-server balance atomically
	AddBalance(ctx context.Context, userID, serverID string, amount int64) error

	// DeductBalance deducts from a user's per-server balance atomically,
	// failing with models.ErrInsufficientFunds without partial application
	DeductBalance(ctx context.Context, userID, serverID string, amount int64) error

	// SetClanTag sets or clears (empty string) the denormalized clan tag
	SetClanTag(ctx context.Context, userID, serverID, tag string) error

	// RecordGamblingOutcome folds one game into the per-server counters
	RecordGamblingOutcome(ctx context.Context, userID, serverID string, bet, winnings int64, playedAt time.Time) error
}

// ClanRepository defines the interface for clan data access
type ClanRepository interface {
	// Create creates a new clan including its initial member set
	Create(ctx context.Context, clan *models.Clan) error

	// GetByID retrieves a clan by its ID, members included
	GetByID(ctx context.Context, clanID string) (*models.Clan, error)

	// GetByTag retrieves a clan by (server, tag), members included
	GetByTag(ctx context.Context, serverID, tag string) (*models.Clan, error)

	// ListByServer returns all clans on a server
	ListByServer(ctx context.Context, serverID string) ([]*models.Clan, error)

	// AddMember adds a user to the clan's member set
	AddMember(ctx context.Context, clanID, userID string, joinedAt time.Time) error

	// RemoveMember removes a user from the clan's member set
	RemoveMember(ctx context.Context, clanID, userID string) error

	// UpdateLeader reassigns clan leadership
	UpdateLeader(ctx context.Context, clanID, leaderID string) error

	// Delete removes a dissolved clan and its member rows
	Delete(ctx context.Context, clanID string) error
}

// BalanceHistoryRepository defines the interface for the balance journal
type BalanceHistoryRepository interface {
	// Record creates a new balance history entry
	Record(ctx context.Context, history *models.BalanceHistory) error

	// GetByUser returns recent history for one (user, server) key
	GetByUser(ctx context.Context, userID, serverID string, limit int) ([]*models.BalanceHistory, error)
}

// GameRepository defines the interface for played-game records
type GameRepository interface {
	// Create creates a new game record
	Create(ctx context.Context, game *models.GameRecord) error

	// GetByUser returns recent games for one (user, server) key
	GetByUser(ctx context.Context, userID, serverID string, limit int) ([]*models.GameRecord, error)
}

// UserService defines the interface for user registration and economy
// operations spanning users
type UserService interface {
	// EnsureUserOnServer idempotently registers a user on a server
	EnsureUserOnServer(ctx context.Context, userID, serverID string) (*models.User, error)

	// GetUser retrieves a user, models.ErrUserNotFound when absent
	GetUser(ctx context.Context, userID string) (*models.User, error)

	// GetUsersOnServer returns all users registered on a server
	GetUsersOnServer(ctx context.Context, serverID string) ([]*models.User, error)

	// TransferBetweenUsers moves amount between two users on one server
	TransferBetweenUsers(ctx context.Context, serverID, fromUserID, toUserID string, amount int64) error
}

// LedgerService defines the interface for balance operations
type LedgerService interface {
	// AdjustBalance applies delta atomically and returns the new balance.
	// Fails with models.ErrInsufficientFunds when the result would be
	// negative, leaving the balance unchanged.
	AdjustBalance(ctx context.Context, userID, serverID string, delta int64, txType models.TransactionType, metadata map[string]any) (int64, error)

	// GetBalance returns the current balance, 0 if the state is absent
	GetBalance(ctx context.Context, userID, serverID string) (int64, error)
}

// ClanService defines the interface for clan registry operations
type ClanService interface {
	// CreateClan founds a clan with the founder as leader and sole member
	CreateClan(ctx context.Context, serverID, founderID, name, tag, description string) (*models.Clan, error)

	// JoinClan adds a user to an existing clan
	JoinClan(ctx context.Context, serverID, userID, tag string) (*models.Clan, error)

	// LeaveClan removes a user, reassigning leadership or dissolving
	LeaveClan(ctx context.Context, serverID, userID string) error

	// GetClan retrieves a clan with freshly derived stats
	GetClan(ctx context.Context, serverID, tag string) (*models.Clan, error)

	// ListClansForServer returns all clans on a server with derived stats
	ListClansForServer(ctx context.Context, serverID string) ([]*models.Clan, error)

	// ClanStatsForServer aggregates the server's clan economy, including
	// richest and largest rankings
	ClanStatsForServer(ctx context.Context, serverID string) (*models.ServerClanStats, error)
}

// GamblingService defines the interface for gambling operations
type GamblingService interface {
	// PlayGame checks affordability, resolves the game, and applies the
	// net delta as a single atomic ledger adjustment
	PlayGame(ctx context.Context, userID, serverID string, gameType models.GameType, bet int64, prediction int) (*models.GameResult, error)

	// RecordGame applies an externally resolved game: one atomic balance
	// adjustment plus stats update and game record
	RecordGame(ctx context.Context, userID, serverID string, gameType models.GameType, bet, winnings int64, outcome string) (*models.GameResult, error)

	// GetRecentGames returns a user's recent games on a server
	GetRecentGames(ctx context.Context, userID, serverID string, limit int) ([]*models.GameRecord, error)
}

// StatsService defines the interface for statistics operations
type StatsService interface {
	// GetServerScoreboard returns users ranked by balance
	GetServerScoreboard(ctx context.Context, serverID string, limit int) ([]*models.ScoreboardEntry, error)

	// GetUserStats returns one user's per-server economy detail
	GetUserStats(ctx context.Context, userID, serverID string) (*models.UserStats, error)
}

// EventPublisher defines the interface for publishing events
type EventPublisher interface {
	Publish(event events.Event)
}

// UnitOfWork defines the interface for transactional repository operations
type UnitOfWork interface {
	// Begin starts a new transaction
	Begin(ctx context.Context) error

	// Commit commits the transaction
	Commit() error

	// Rollback rolls back the transaction
	Rollback() error

	// Repository getters
	UserRepository() UserRepository
	ClanRepository() ClanRepository
	BalanceHistoryRepository() BalanceHistoryRepository
	GameRepository() GameRepository
	EventBus() EventPublisher
}

// UnitOfWorkFactory defines the interface for creating UnitOfWork instances
type UnitOfWorkFactory interface {
	Create() UnitOfWork
}
