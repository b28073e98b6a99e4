package service

import (
	"context"
	"fmt"

	"coffers/models"
)

// ledgerService implements the LedgerService interface
type ledgerService struct {
	uowFactory UnitOfWorkFactory
}

// NewLedgerService creates a new ledger service
func NewLedgerService(uowFactory UnitOfWorkFactory) LedgerService {
	return &ledgerService{
		uowFactory: uowFactory,
	}
}

// AdjustBalance applies delta to the user's per-server balance atomically.
// An overdraft fails with models.ErrInsufficientFunds and leaves the
// balance unchanged.
func (s *ledgerService) AdjustBalance(ctx context.Context, userID, serverID string, delta int64, txType models.TransactionType, metadata map[string]any) (int64, error) {
	if txType == "" {
		txType = models.TransactionTypeAdminAdjust
	}

	uow := s.uowFactory.Create()
	if err := uow.Begin(ctx); err != nil {
		return 0, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer uow.Rollback() // No-op if already committed

	state, err := serverStateOf(ctx, uow, userID, serverID)
	if err != nil {
		return 0, err
	}

	switch {
	case delta > 0:
		if err := uow.UserRepository().AddBalance(ctx, userID, serverID, delta); err != nil {
			return 0, fmt.Errorf("failed to add balance: %w", err)
		}
	case delta < 0:
		if err := uow.UserRepository().DeductBalance(ctx, userID, serverID, -delta); err != nil {
			return 0, fmt.Errorf("failed to deduct balance: %w", err)
		}
	default:
		// Zero delta leaves the balance untouched and writes no journal row
		return state.Balance, nil
	}

	newBalance := state.Balance + delta

	history := &models.BalanceHistory{
		UserID:              userID,
		ServerID:            serverID,
		BalanceBefore:       state.Balance,
		BalanceAfter:        newBalance,
		ChangeAmount:        delta,
		TransactionType:     txType,
		TransactionMetadata: metadata,
	}
	if err := RecordBalanceChange(ctx, uow, history); err != nil {
		return 0, fmt.Errorf("failed to record balance change: %w", err)
	}

	if err := uow.Commit(); err != nil {
		return 0, fmt.Errorf("failed to commit transaction: %w", err)
	}

	return newBalance, nil
}

// GetBalance returns the current per-server balance, 0 when the user has no
// state on the server
func (s *ledgerService) GetBalance(ctx context.Context, userID, serverID string) (int64, error) {
	uow := s.uowFactory.Create()
	if err := uow.Begin(ctx); err != nil {
		return 0, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer uow.Rollback()

	user, err := uow.UserRepository().GetByID(ctx, userID)
	if err != nil {
		return 0, fmt.Errorf("failed to get user: %w", err)
	}
	if user == nil {
		return 0, nil
	}
	state := user.ServerState(serverID)
	if state == nil {
		return 0, nil
	}

	return state.Balance, nil
}
