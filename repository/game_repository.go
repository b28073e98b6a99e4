package repository

import (
	"context"
	"fmt"

	"coffers/database"
	"coffers/models"
)

// GameRepository implements the service.GameRepository interface
type GameRepository struct {
	q queryable
}

// NewGameRepository creates a new game repository
func NewGameRepository(db *database.DB) *GameRepository {
	return &GameRepository{q: db.Pool}
}

// newGameRepositoryWithTx creates a new game repository with a transaction
func newGameRepositoryWithTx(tx queryable) *GameRepository {
	return &GameRepository{q: tx}
}

// Create creates a new game record
func (r *GameRepository) Create(ctx context.Context, game *models.GameRecord) error {
	query := `
		INSERT INTO games (user_id, server_id, game_type, bet, winnings, outcome, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		RETURNING id
	`

	err := r.q.QueryRow(ctx, query,
		game.UserID,
		game.ServerID,
		game.GameType,
		game.Bet,
		game.Winnings,
		game.Outcome,
		game.CreatedAt,
	).Scan(&game.ID)
	if err != nil {
		return fmt.Errorf("failed to create game record for user %q: %w", game.UserID, err)
	}

	return nil
}

// GetByUser returns recent games for one (user, server) key, newest first
func (r *GameRepository) GetByUser(ctx context.Context, userID, serverID string, limit int) ([]*models.GameRecord, error) {
	query := `
		SELECT id, user_id, server_id, game_type, bet, winnings, outcome, created_at
		FROM games
		WHERE user_id = $1 AND server_id = $2
		ORDER BY created_at DESC, id DESC
		LIMIT $3
	`

	rows, err := r.q.Query(ctx, query, userID, serverID, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to get games for user %q: %w", userID, err)
	}
	defer rows.Close()

	var games []*models.GameRecord
	for rows.Next() {
		var game models.GameRecord
		err := rows.Scan(
			&game.ID,
			&game.UserID,
			&game.ServerID,
			&game.GameType,
			&game.Bet,
			&game.Winnings,
			&game.Outcome,
			&game.CreatedAt,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan game record: %w", err)
		}
		games = append(games, &game)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate game records: %w", err)
	}

	return games, nil
}
