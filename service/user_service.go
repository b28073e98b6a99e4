package service

import (
	"context"
	"fmt"
	"time"

	"coffers/events"
	"coffers/models"
)

// userService implements the UserService interface
type userService struct {
	uowFactory      UnitOfWorkFactory
	startingBalance int64
	now             func() time.Time
}

// NewUserService creates a new user service. startingBalance is granted to
// every newly created server state; when positive the grant is journaled as
// an initial transaction.
func NewUserService(uowFactory UnitOfWorkFactory, startingBalance int64) UserService {
	return &userService{
		uowFactory:      uowFactory,
		startingBalance: startingBalance,
		now:             time.Now,
	}
}

// EnsureUserOnServer idempotently registers a user on a server. The user
// record and the per-server state are created if absent; when both already
// exist this only touches the last-seen timestamp.
func (s *userService) EnsureUserOnServer(ctx context.Context, userID, serverID string) (*models.User, error) {
	if err := models.ValidateID(userID); err != nil {
		return nil, fmt.Errorf("user id: %w", err)
	}
	if err := models.ValidateID(serverID); err != nil {
		return nil, fmt.Errorf("server id: %w", err)
	}

	uow := s.uowFactory.Create()
	if err := uow.Begin(ctx); err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer uow.Rollback() // No-op if already committed

	now := s.now()

	user, err := uow.UserRepository().GetByID(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to check existing user: %w", err)
	}

	if user == nil {
		user = &models.User{
			UserID:       userID,
			Nickname:     userID,
			RegisteredAt: now,
			LastSeen:     now,
			Preferences:  models.DefaultPreferences(),
			Servers:      make(map[string]*models.ServerState),
		}
		if err := uow.UserRepository().Create(ctx, user); err != nil {
			return nil, fmt.Errorf("failed to create user: %w", err)
		}
	} else {
		user.LastSeen = now
		if err := uow.UserRepository().TouchLastSeen(ctx, userID, now); err != nil {
			return nil, fmt.Errorf("failed to touch last seen: %w", err)
		}
	}

	if user.ServerState(serverID) == nil {
		state := &models.ServerState{
			ServerID: serverID,
			Balance:  s.startingBalance,
			ClanTag:  "",
			JoinedAt: now,
			IsActive: true,
		}
		if err := uow.UserRepository().CreateServerState(ctx, userID, state); err != nil {
			return nil, fmt.Errorf("failed to create server state: %w", err)
		}
		user.Servers[serverID] = state

		if s.startingBalance > 0 {
			history := &models.BalanceHistory{
				UserID:          userID,
				ServerID:        serverID,
				BalanceBefore:   0,
				BalanceAfter:    s.startingBalance,
				ChangeAmount:    s.startingBalance,
				TransactionType: models.TransactionTypeInitial,
			}
			if err := RecordBalanceChange(ctx, uow, history); err != nil {
				return nil, fmt.Errorf("failed to record initial grant: %w", err)
			}
		}

		uow.EventBus().Publish(events.UserRegisteredEvent{
			UserID:   userID,
			ServerID: serverID,
			Nickname: user.Nickname,
		})
	}

	if err := uow.Commit(); err != nil {
		return nil, fmt.Errorf("failed to commit transaction: %w", err)
	}

	return user, nil
}

// GetUser retrieves a user by ID
func (s *userService) GetUser(ctx context.Context, userID string) (*models.User, error) {
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

	return user, nil
}

// GetUsersOnServer returns all users possessing a state for serverID
func (s *userService) GetUsersOnServer(ctx context.Context, serverID string) ([]*models.User, error) {
	uow := s.uowFactory.Create()
	if err := uow.Begin(ctx); err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer uow.Rollback()

	users, err := uow.UserRepository().GetUsersOnServer(ctx, serverID)
	if err != nil {
		return nil, fmt.Errorf("failed to get users on server %q: %w", serverID, err)
	}

	return users, nil
}

// TransferBetweenUsers moves amount from one user to another on the same
// server inside a single transaction
func (s *userService) TransferBetweenUsers(ctx context.Context, serverID, fromUserID, toUserID string, amount int64) error {
	if amount <= 0 {
		return fmt.Errorf("transfer amount must be positive: %w", models.ErrInvalidArgument)
	}
	if fromUserID == toUserID {
		return fmt.Errorf("cannot transfer to yourself: %w", models.ErrInvalidArgument)
	}

	uow := s.uowFactory.Create()
	if err := uow.Begin(ctx); err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer uow.Rollback()

	fromState, err := serverStateOf(ctx, uow, fromUserID, serverID)
	if err != nil {
		return fmt.Errorf("sender: %w", err)
	}
	toState, err := serverStateOf(ctx, uow, toUserID, serverID)
	if err != nil {
		return fmt.Errorf("recipient: %w", err)
	}

	if err := uow.UserRepository().DeductBalance(ctx, fromUserID, serverID, amount); err != nil {
		return fmt.Errorf("failed to deduct from sender: %w", err)
	}
	if err := uow.UserRepository().AddBalance(ctx, toUserID, serverID, amount); err != nil {
		return fmt.Errorf("failed to credit recipient: %w", err)
	}

	fromHistory := &models.BalanceHistory{
		UserID:          fromUserID,
		ServerID:        serverID,
		BalanceBefore:   fromState.Balance,
		BalanceAfter:    fromState.Balance - amount,
		ChangeAmount:    -amount,
		TransactionType: models.TransactionTypeTransferOut,
		TransactionMetadata: map[string]any{
			"recipient_user_id": toUserID,
			"transfer_amount":   amount,
		},
	}
	if err := RecordBalanceChange(ctx, uow, fromHistory); err != nil {
		return fmt.Errorf("failed to record sender balance change: %w", err)
	}

	toHistory := &models.BalanceHistory{
		UserID:          toUserID,
		ServerID:        serverID,
		BalanceBefore:   toState.Balance,
		BalanceAfter:    toState.Balance + amount,
		ChangeAmount:    amount,
		TransactionType: models.TransactionTypeTransferIn,
		TransactionMetadata: map[string]any{
			"sender_user_id":  fromUserID,
			"transfer_amount": amount,
		},
	}
	if err := RecordBalanceChange(ctx, uow, toHistory); err != nil {
		return fmt.Errorf("failed to record recipient balance change: %w", err)
	}

	if err := uow.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}

	return nil
}

// serverStateOf resolves the (user, server) sub-record through the current
// unit of work, never a cached copy
func serverStateOf(ctx context.Context, uow UnitOfWork, userID, serverID string) (*models.ServerState, error) {
	user, err := uow.UserRepository().GetByID(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to get user: %w", err)
	}
	if user == nil {
		return nil, fmt.Errorf("user %q on server %q: %w", userID, serverID, models.ErrUserNotOnServer)
	}
	state := user.ServerState(serverID)
	if state == nil {
		return nil, fmt.Errorf("user %q on server %q: %w", userID, serverID, models.ErrUserNotOnServer)
	}
	return state, nil
}
