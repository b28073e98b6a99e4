package service

import (
	"context"
	"fmt"
	"sort"

	"coffers/models"
)

// statsService implements the StatsService interface
type statsService struct {
	uowFactory UnitOfWorkFactory
}

// NewStatsService creates a new stats service
func NewStatsService(uowFactory UnitOfWorkFactory) StatsService {
	return &statsService{
		uowFactory: uowFactory,
	}
}

// GetServerScoreboard returns users on a server ranked by balance
// descending, ties broken by user ID ascending. Users who opted out of
// leaderboards are skipped.
func (s *statsService) GetServerScoreboard(ctx context.Context, serverID string, limit int) ([]*models.ScoreboardEntry, error) {
	uow := s.uowFactory.Create()
	if err := uow.Begin(ctx); err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer uow.Rollback()

	users, err := uow.UserRepository().GetUsersOnServer(ctx, serverID)
	if err != nil {
		return nil, fmt.Errorf("failed to get users: %w", err)
	}

	entries := make([]*models.ScoreboardEntry, 0, len(users))
	for _, user := range users {
		if !user.Preferences.ShowInLeaderboards {
			continue
		}
		state := user.ServerState(serverID)
		if state == nil {
			continue
		}

		nickname := user.UserID
		if user.Preferences.DisplayNickname {
			nickname = user.Nickname
		}

		entries = append(entries, &models.ScoreboardEntry{
			UserID:      user.UserID,
			Nickname:    nickname,
			Balance:     state.Balance,
			ClanTag:     state.ClanTag,
			GamesPlayed: state.Gambling.GamesPlayed,
			NetWinnings: state.Gambling.TotalWon - state.Gambling.TotalWagered,
		})
	}

	sort.Slice(entries, func(i, j int) bool {
		if entries[i].Balance != entries[j].Balance {
			return entries[i].Balance > entries[j].Balance
		}
		return entries[i].UserID < entries[j].UserID
	})

	for i := range entries {
		entries[i].Rank = i + 1
	}

	if limit > 0 && len(entries) > limit {
		entries = entries[:limit]
	}

	return entries, nil
}

// GetUserStats returns one user's per-server economy detail
func (s *statsService) GetUserStats(ctx context.Context, userID, serverID string) (*models.UserStats, error) {
	uow := s.uowFactory.Create()
	if err := uow.Begin(ctx); err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer uow.Rollback()

	user, err := uow.UserRepository().GetByID(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to get user: %w", err)
	}
	if user == nil {
		return nil, fmt.Errorf("user %q: %w", userID, models.ErrUserNotFound)
	}
	state := user.ServerState(serverID)
	if state == nil {
		return nil, fmt.Errorf("user %q on server %q: %w", userID, serverID, models.ErrUserNotOnServer)
	}

	return &models.UserStats{
		User:        user,
		ServerID:    serverID,
		Balance:     state.Balance,
		Gambling:    state.Gambling,
		NetWinnings: state.Gambling.TotalWon - state.Gambling.TotalWagered,
	}, nil
}
