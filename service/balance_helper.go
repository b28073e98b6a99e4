package service

import (
	"context"
	"fmt"

	"coffers/events"
	"coffers/models"
)

// RecordBalanceChange records a balance history entry and queues the
// corresponding event on the unit of work's bus. This is the single entry
// point for all balance changes in the system; the event reaches
// subscribers only after the transaction commits.
func RecordBalanceChange(ctx context.Context, uow UnitOfWork, history *models.BalanceHistory) error {
	if err := uow.BalanceHistoryRepository().Record(ctx, history); err != nil {
		return fmt.Errorf("failed to record balance history: %w", err)
	}

	uow.EventBus().Publish(events.BalanceChangeEvent{
		UserID:          history.UserID,
		ServerID:        history.ServerID,
		OldBalance:      history.BalanceBefore,
		NewBalance:      history.BalanceAfter,
		TransactionType: history.TransactionType,
		ChangeAmount:    history.ChangeAmount,
	})

	return nil
}
