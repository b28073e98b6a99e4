package repository

import (
	"context"
	"fmt"
	"time"

	"coffers/database"
	"coffers/models"
	"github.com/jackc/pgx/v5"
)

// UserRepository implements the service.UserRepository interface
type UserRepository struct {
	q queryable
}

// NewUserRepository creates a new user repository
func NewUserRepository(db *database.DB) *UserRepository {
	return &UserRepository{q: db.Pool}
}

// newUserRepositoryWithTx creates a new user repository with a transaction
func newUserRepositoryWithTx(tx queryable) *UserRepository {
	return &UserRepository{q: tx}
}

// GetByID retrieves a user and all their server states
func (r *UserRepository) GetByID(ctx context.Context, userID string) (*models.User, error) {
	query := `
		SELECT user_id, nickname, display_nickname, show_in_leaderboards, registered_at, last_seen
		FROM users
		WHERE user_id = $1
	`

	var user models.User
	err := r.q.QueryRow(ctx, query, userID).Scan(
		&user.UserID,
		&user.Nickname,
		&user.Preferences.DisplayNickname,
		&user.Preferences.ShowInLeaderboards,
		&user.RegisteredAt,
		&user.LastSeen,
	)
	if err == pgx.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get user %q: %w", userID, err)
	}

	user.Servers = make(map[string]*models.ServerState)
	if err := r.loadServerStates(ctx, &user); err != nil {
		return nil, err
	}

	return &user, nil
}

// Create creates a new user record (no server states yet)
func (r *UserRepository) Create(ctx context.Context, user *models.User) error {
	query := `
		INSERT INTO users (user_id, nickname, display_nickname, show_in_leaderboards, registered_at, last_seen)
		VALUES ($1, $2, $3, $4, $5, $6)
	`

	_, err := r.q.Exec(ctx, query,
		user.UserID,
		user.Nickname,
		user.Preferences.DisplayNickname,
		user.Preferences.ShowInLeaderboards,
		user.RegisteredAt,
		user.LastSeen,
	)
	if err != nil {
		return fmt.Errorf("failed to create user %q: %w", user.UserID, err)
	}

	return nil
}

// GetUsersOnServer returns users possessing a state for serverID, each
// loaded with that server's state, ordered by user ID
func (r *UserRepository) GetUsersOnServer(ctx context.Context, serverID string) ([]*models.User, error) {
	query := `
		SELECT u.user_id, u.nickname, u.display_nickname, u.show_in_leaderboards, u.registered_at, u.last_seen,
		       s.balance, s.clan_tag, s.joined_at, s.is_active,
		       s.total_wagered, s.total_won, s.games_played, s.biggest_win, s.last_played
		FROM users u
		JOIN server_states s ON s.user_id = u.user_id
		WHERE s.server_id = $1
		ORDER BY u.user_id
	`

	rows, err := r.q.Query(ctx, query, serverID)
	if err != nil {
		return nil, fmt.Errorf("failed to get users on server %q: %w", serverID, err)
	}
	defer rows.Close()

	var users []*models.User
	for rows.Next() {
		var user models.User
		state := models.ServerState{ServerID: serverID}
		err := rows.Scan(
			&user.UserID,
			&user.Nickname,
			&user.Preferences.DisplayNickname,
			&user.Preferences.ShowInLeaderboards,
			&user.RegisteredAt,
			&user.LastSeen,
			&state.Balance,
			&state.ClanTag,
			&state.JoinedAt,
			&state.IsActive,
			&state.Gambling.TotalWagered,
			&state.Gambling.TotalWon,
			&state.Gambling.GamesPlayed,
			&state.Gambling.BiggestWin,
			&state.Gambling.LastPlayed,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan user: %w", err)
		}
		user.Servers = map[string]*models.ServerState{serverID: &state}
		users = append(users, &user)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate users: %w", err)
	}

	return users, nil
}

// TouchLastSeen updates a user's last-seen timestamp
func (r *UserRepository) TouchLastSeen(ctx context.Context, userID string, seenAt time.Time) error {
	query := `
		UPDATE users
		SET last_seen = $1
		WHERE user_id = $2
	`

	result, err := r.q.Exec(ctx, query, seenAt, userID)
	if err != nil {
		return fmt.Errorf("failed to touch last seen for user %q: %w", userID, err)
	}
	if result.RowsAffected() == 0 {
		return fmt.Errorf("user %q: %w", userID, models.ErrUserNotFound)
	}

	return nil
}

// CreateServerState adds a per-server sub-record for an existing user
func (r *UserRepository) CreateServerState(ctx context.Context, userID string, state *models.ServerState) error {
	query := `
		INSERT INTO server_states (user_id, server_id, balance, clan_tag, joined_at, is_active)
		VALUES ($1, $2, $3, $4, $5, $6)
	`

	_, err := r.q.Exec(ctx, query,
		userID,
		state.ServerID,
		state.Balance,
		state.ClanTag,
		state.JoinedAt,
		state.IsActive,
	)
	if err != nil {
		return fmt.Errorf("failed to create server state for user %q on %q: %w", userID, state.ServerID, err)
	}

	return nil
}

// AddBalance adds to a user's per-server balance atomically
func (r *UserRepository) AddBalance(ctx context.Context, userID, serverID string, amount int64) error {
	if amount <= 0 {
		return fmt.Errorf("amount must be positive: %w", models.ErrInvalidArgument)
	}

	query := `
		UPDATE server_states
		SET balance = balance + $1
		WHERE user_id = $2 AND server_id = $3
	`

	result, err := r.q.Exec(ctx, query, amount, userID, serverID)
	if err != nil {
		return fmt.Errorf("failed to add balance for user %q on %q: %w", userID, serverID, err)
	}
	if result.RowsAffected() == 0 {
		return fmt.Errorf("user %q on server %q: %w", userID, serverID, models.ErrUserNotOnServer)
	}

	return nil
}

// DeductBalance deducts from a user's per-server balance atomically. The
// update is guarded so an overdraft changes nothing.
func (r *UserRepository) DeductBalance(ctx context.Context, userID, serverID string, amount int64) error {
	if amount <= 0 {
		return fmt.Errorf("amount must be positive: %w", models.ErrInvalidArgument)
	}

	query := `
		UPDATE server_states
		SET balance = balance - $1
		WHERE user_id = $2 AND server_id = $3 AND balance >= $1
	`

	result, err := r.q.Exec(ctx, query, amount, userID, serverID)
	if err != nil {
		return fmt.Errorf("failed to deduct balance for user %q on %q: %w", userID, serverID, err)
	}
	if result.RowsAffected() == 0 {
		// Distinguish a missing key from an insufficient balance
		var balance int64
		err := r.q.QueryRow(ctx,
			`SELECT balance FROM server_states WHERE user_id = $1 AND server_id = $2`,
			userID, serverID,
		).Scan(&balance)
		if err == pgx.ErrNoRows {
			return fmt.Errorf("user %q on server %q: %w", userID, serverID, models.ErrUserNotOnServer)
		}
		if err != nil {
			return fmt.Errorf("failed to check balance for user %q on %q: %w", userID, serverID, err)
		}
		return fmt.Errorf("have %d, need %d: %w", balance, amount, models.ErrInsufficientFunds)
	}

	return nil
}

// SetClanTag sets or clears the denormalized clan tag
func (r *UserRepository) SetClanTag(ctx context.Context, userID, serverID, tag string) error {
	query := `
		UPDATE server_states
		SET clan_tag = $1
		WHERE user_id = $2 AND server_id = $3
	`

	result, err := r.q.Exec(ctx, query, tag, userID, serverID)
	if err != nil {
		return fmt.Errorf("failed to set clan tag for user %q on %q: %w", userID, serverID, err)
	}
	if result.RowsAffected() == 0 {
		return fmt.Errorf("user %q on server %q: %w", userID, serverID, models.ErrUserNotOnServer)
	}

	return nil
}

// RecordGamblingOutcome folds one game into the per-server counters. The
// counters only ever increase; biggest_win is a running maximum.
func (r *UserRepository) RecordGamblingOutcome(ctx context.Context, userID, serverID string, bet, winnings int64, playedAt time.Time) error {
	query := `
		UPDATE server_states
		SET total_wagered = total_wagered + $1,
		    total_won = total_won + $2,
		    games_played = games_played + 1,
		    biggest_win = GREATEST(biggest_win, $2),
		    last_played = $3
		WHERE user_id = $4 AND server_id = $5
	`

	result, err := r.q.Exec(ctx, query, bet, winnings, playedAt, userID, serverID)
	if err != nil {
		return fmt.Errorf("failed to record gambling outcome for user %q on %q: %w", userID, serverID, err)
	}
	if result.RowsAffected() == 0 {
		return fmt.Errorf("user %q on server %q: %w", userID, serverID, models.ErrUserNotOnServer)
	}

	return nil
}

func (r *UserRepository) loadServerStates(ctx context.Context, user *models.User) error {
	query := `
		SELECT server_id, balance, clan_tag, joined_at, is_active,
		       total_wagered, total_won, games_played, biggest_win, last_played
		FROM server_states
		WHERE user_id = $1
	`

	rows, err := r.q.Query(ctx, query, user.UserID)
	if err != nil {
		return fmt.Errorf("failed to get server states for user %q: %w", user.UserID, err)
	}
	defer rows.Close()

	for rows.Next() {
		var state models.ServerState
		err := rows.Scan(
			&state.ServerID,
			&state.Balance,
			&state.ClanTag,
			&state.JoinedAt,
			&state.IsActive,
			&state.Gambling.TotalWagered,
			&state.Gambling.TotalWon,
			&state.Gambling.GamesPlayed,
			&state.Gambling.BiggestWin,
			&state.Gambling.LastPlayed,
		)
		if err != nil {
			return fmt.Errorf("failed to scan server state: %w", err)
		}
		user.Servers[state.ServerID] = &state
	}

	return rows.Err()
}
