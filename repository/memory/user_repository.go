package memory

import (
	"context"
	"fmt"
	"sort"
	"time"

	"coffers/models"
)

// userRepository implements service.UserRepository on the unit of work's
// working set. Reads return deep copies so callers never alias staged state.
type userRepository struct {
	uow *unitOfWork
}

func (r *userRepository) GetByID(ctx context.Context, userID string) (*models.User, error) {
	user, ok := r.uow.users[userID]
	if !ok {
		return nil, nil
	}
	return user.Clone(), nil
}

func (r *userRepository) Create(ctx context.Context, user *models.User) error {
	if _, exists := r.uow.users[user.UserID]; exists {
		return fmt.Errorf("user %q already exists", user.UserID)
	}
	r.uow.users[user.UserID] = user.Clone()
	return nil
}

func (r *userRepository) GetUsersOnServer(ctx context.Context, serverID string) ([]*models.User, error) {
	var users []*models.User
	for _, user := range r.uow.users {
		if user.ServerState(serverID) != nil {
			users = append(users, user.Clone())
		}
	}
	sort.Slice(users, func(i, j int) bool { return users[i].UserID < users[j].UserID })
	return users, nil
}

func (r *userRepository) TouchLastSeen(ctx context.Context, userID string, seenAt time.Time) error {
	user, ok := r.uow.users[userID]
	if !ok {
		return fmt.Errorf("user %q: %w", userID, models.ErrUserNotFound)
	}
	user.LastSeen = seenAt
	return nil
}

func (r *userRepository) CreateServerState(ctx context.Context, userID string, state *models.ServerState) error {
	user, ok := r.uow.users[userID]
	if !ok {
		return fmt.Errorf("user %q: %w", userID, models.ErrUserNotFound)
	}
	if user.Servers == nil {
		user.Servers = make(map[string]*models.ServerState)
	}
	if _, exists := user.Servers[state.ServerID]; exists {
		return fmt.Errorf("user %q already on server %q", userID, state.ServerID)
	}
	user.Servers[state.ServerID] = state.Clone()
	return nil
}

func (r *userRepository) AddBalance(ctx context.Context, userID, serverID string, amount int64) error {
	if amount <= 0 {
		return fmt.Errorf("amount must be positive: %w", models.ErrInvalidArgument)
	}
	state, err := r.state(userID, serverID)
	if err != nil {
		return err
	}
	state.Balance += amount
	return nil
}

func (r *userRepository) DeductBalance(ctx context.Context, userID, serverID string, amount int64) error {
	if amount <= 0 {
		return fmt.Errorf("amount must be positive: %w", models.ErrInvalidArgument)
	}
	state, err := r.state(userID, serverID)
	if err != nil {
		return err
	}
	if state.Balance < amount {
		return fmt.Errorf("have %d, need %d: %w", state.Balance, amount, models.ErrInsufficientFunds)
	}
	state.Balance -= amount
	return nil
}

func (r *userRepository) SetClanTag(ctx context.Context, userID, serverID, tag string) error {
	state, err := r.state(userID, serverID)
	if err != nil {
		return err
	}
	state.ClanTag = tag
	return nil
}

func (r *userRepository) RecordGamblingOutcome(ctx context.Context, userID, serverID string, bet, winnings int64, playedAt time.Time) error {
	state, err := r.state(userID, serverID)
	if err != nil {
		return err
	}
	state.Gambling.RecordGame(bet, winnings, playedAt)
	return nil
}

func (r *userRepository) state(userID, serverID string) (*models.ServerState, error) {
	user, ok := r.uow.users[userID]
	if !ok {
		return nil, fmt.Errorf("user %q on server %q: %w", userID, serverID, models.ErrUserNotOnServer)
	}
	state := user.ServerState(serverID)
	if state == nil {
		return nil, fmt.Errorf("user %q on server %q: %w", userID, serverID, models.ErrUserNotOnServer)
	}
	return state, nil
}
