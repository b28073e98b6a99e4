package repository

import (
	"context"
	"fmt"
	"time"

	"coffers/database"
	"coffers/models"
	"github.com/jackc/pgx/v5"
)

// ClanRepository implements the service.ClanRepository interface
type ClanRepository struct {
	q queryable
}

// NewClanRepository creates a new clan repository
func NewClanRepository(db *database.DB) *ClanRepository {
	return &ClanRepository{q: db.Pool}
}

// newClanRepositoryWithTx creates a new clan repository with a transaction
func newClanRepositoryWithTx(tx queryable) *ClanRepository {
	return &ClanRepository{q: tx}
}

// Create creates a new clan including its initial member set
func (r *ClanRepository) Create(ctx context.Context, clan *models.Clan) error {
	existing, err := r.GetByTag(ctx, clan.ServerID, clan.Tag)
	if err != nil {
		return err
	}
	if existing != nil {
		return fmt.Errorf("tag %q on server %q: %w", clan.Tag, clan.ServerID, models.ErrClanTagTaken)
	}

	query := `
		INSERT INTO clans (clan_id, server_id, name, tag, description, leader_id, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
	`

	_, err = r.q.Exec(ctx, query,
		clan.ClanID,
		clan.ServerID,
		clan.Name,
		clan.Tag,
		clan.Description,
		clan.LeaderID,
		clan.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to create clan %q: %w", clan.Tag, err)
	}

	for _, userID := range clan.Members {
		if err := r.AddMember(ctx, clan.ClanID, userID, clan.CreatedAt); err != nil {
			return err
		}
	}

	return nil
}

// GetByID retrieves a clan by its ID, members included
func (r *ClanRepository) GetByID(ctx context.Context, clanID string) (*models.Clan, error) {
	query := `
		SELECT clan_id, server_id, name, tag, description, leader_id, created_at
		FROM clans
		WHERE clan_id = $1
	`

	return r.scanClan(ctx, r.q.QueryRow(ctx, query, clanID))
}

// GetByTag retrieves a clan by (server, tag), members included
func (r *ClanRepository) GetByTag(ctx context.Context, serverID, tag string) (*models.Clan, error) {
	query := `
		SELECT clan_id, server_id, name, tag, description, leader_id, created_at
		FROM clans
		WHERE server_id = $1 AND tag = $2
	`

	return r.scanClan(ctx, r.q.QueryRow(ctx, query, serverID, tag))
}

// ListByServer returns all clans on a server ordered by clan ID
func (r *ClanRepository) ListByServer(ctx context.Context, serverID string) ([]*models.Clan, error) {
	query := `
		SELECT clan_id, server_id, name, tag, description, leader_id, created_at
		FROM clans
		WHERE server_id = $1
		ORDER BY clan_id
	`

	rows, err := r.q.Query(ctx, query, serverID)
	if err != nil {
		return nil, fmt.Errorf("failed to list clans for server %q: %w", serverID, err)
	}
	defer rows.Close()

	var clans []*models.Clan
	for rows.Next() {
		var clan models.Clan
		err := rows.Scan(
			&clan.ClanID,
			&clan.ServerID,
			&clan.Name,
			&clan.Tag,
			&clan.Description,
			&clan.LeaderID,
			&clan.CreatedAt,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan clan: %w", err)
		}
		clans = append(clans, &clan)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate clans: %w", err)
	}

	for _, clan := range clans {
		if err := r.loadMembers(ctx, clan); err != nil {
			return nil, err
		}
	}

	return clans, nil
}

// AddMember adds a user to the clan's member set
func (r *ClanRepository) AddMember(ctx context.Context, clanID, userID string, joinedAt time.Time) error {
	query := `
		INSERT INTO clan_members (clan_id, user_id, joined_at)
		VALUES ($1, $2, $3)
		ON CONFLICT (clan_id, user_id) DO NOTHING
	`

	_, err := r.q.Exec(ctx, query, clanID, userID, joinedAt)
	if err != nil {
		return fmt.Errorf("failed to add member %q to clan %q: %w", userID, clanID, err)
	}

	return nil
}

// RemoveMember removes a user from the clan's member set
func (r *ClanRepository) RemoveMember(ctx context.Context, clanID, userID string) error {
	query := `
		DELETE FROM clan_members
		WHERE clan_id = $1 AND user_id = $2
	`

	_, err := r.q.Exec(ctx, query, clanID, userID)
	if err != nil {
		return fmt.Errorf("failed to remove member %q from clan %q: %w", userID, clanID, err)
	}

	return nil
}

// UpdateLeader reassigns clan leadership
func (r *ClanRepository) UpdateLeader(ctx context.Context, clanID, leaderID string) error {
	query := `
		UPDATE clans
		SET leader_id = $1
		WHERE clan_id = $2
	`

	result, err := r.q.Exec(ctx, query, leaderID, clanID)
	if err != nil {
		return fmt.Errorf("failed to update leader for clan %q: %w", clanID, err)
	}
	if result.RowsAffected() == 0 {
		return fmt.Errorf("clan %q: %w", clanID, models.ErrClanNotFound)
	}

	return nil
}

// Delete removes a dissolved clan; member rows go with it via cascade
func (r *ClanRepository) Delete(ctx context.Context, clanID string) error {
	query := `
		DELETE FROM clans
		WHERE clan_id = $1
	`

	result, err := r.q.Exec(ctx, query, clanID)
	if err != nil {
		return fmt.Errorf("failed to delete clan %q: %w", clanID, err)
	}
	if result.RowsAffected() == 0 {
		return fmt.Errorf("clan %q: %w", clanID, models.ErrClanNotFound)
	}

	return nil
}

func (r *ClanRepository) scanClan(ctx context.Context, row pgx.Row) (*models.Clan, error) {
	var clan models.Clan
	err := row.Scan(
		&clan.ClanID,
		&clan.ServerID,
		&clan.Name,
		&clan.Tag,
		&clan.Description,
		&clan.LeaderID,
		&clan.CreatedAt,
	)
	if err == pgx.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get clan: %w", err)
	}

	if err := r.loadMembers(ctx, &clan); err != nil {
		return nil, err
	}

	return &clan, nil
}

func (r *ClanRepository) loadMembers(ctx context.Context, clan *models.Clan) error {
	query := `
		SELECT user_id
		FROM clan_members
		WHERE clan_id = $1
		ORDER BY user_id
	`

	rows, err := r.q.Query(ctx, query, clan.ClanID)
	if err != nil {
		return fmt.Errorf("failed to get members for clan %q: %w", clan.ClanID, err)
	}
	defer rows.Close()

	for rows.Next() {
		var userID string
		if err := rows.Scan(&userID); err != nil {
			return fmt.Errorf("failed to scan clan member: %w", err)
		}
		clan.Members = append(clan.Members, userID)
	}

	return rows.Err()
}
