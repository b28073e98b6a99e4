package repository

import (
	"context"
	"fmt"

	"coffers/database"
	"coffers/events"
	"coffers/service"
	"github.com/jackc/pgx/v5"
)

// unitOfWork implements service.UnitOfWork over a single pgx transaction.
// All repositories obtained from it share that transaction, and events
// published through EventBus are held until Commit.
type unitOfWork struct {
	db  *database.DB
	ctx context.Context
	tx  pgx.Tx

	txBus       *events.TransactionalBus
	userRepo    *UserRepository
	clanRepo    *ClanRepository
	historyRepo *BalanceHistoryRepository
	gameRepo    *GameRepository
}

// NewUnitOfWork creates a new unit of work backed by db
func NewUnitOfWork(db *database.DB, eventBus *events.Bus) service.UnitOfWork {
	return &unitOfWork{
		db:    db,
		txBus: events.NewTransactionalBus(eventBus),
	}
}

// Begin starts a new transaction
func (u *unitOfWork) Begin(ctx context.Context) error {
	if u.tx != nil {
		return fmt.Errorf("transaction already started")
	}

	tx, err := u.db.Pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}

	u.ctx = ctx
	u.tx = tx
	u.userRepo = newUserRepositoryWithTx(tx)
	u.clanRepo = newClanRepositoryWithTx(tx)
	u.historyRepo = newBalanceHistoryRepositoryWithTx(tx)
	u.gameRepo = newGameRepositoryWithTx(tx)

	return nil
}

// Commit commits the transaction and flushes pending events
func (u *unitOfWork) Commit() error {
	if u.tx == nil {
		return fmt.Errorf("no transaction to commit")
	}

	if err := u.tx.Commit(u.ctx); err != nil {
		u.txBus.Discard()
		u.reset()
		return fmt.Errorf("failed to commit transaction: %w", err)
	}

	err := u.txBus.Flush(u.ctx)
	u.reset()
	return err
}

// Rollback rolls back the transaction and discards pending events. Safe to
// defer after Begin; a rollback following Commit is a no-op.
func (u *unitOfWork) Rollback() error {
	if u.tx == nil {
		return nil
	}

	err := u.tx.Rollback(u.ctx)
	u.txBus.Discard()
	u.reset()
	if err != nil && err != pgx.ErrTxClosed {
		return fmt.Errorf("failed to rollback transaction: %w", err)
	}
	return nil
}

// UserRepository returns the transaction-scoped user repository
func (u *unitOfWork) UserRepository() service.UserRepository {
	u.mustBeStarted()
	return u.userRepo
}

// ClanRepository returns the transaction-scoped clan repository
func (u *unitOfWork) ClanRepository() service.ClanRepository {
	u.mustBeStarted()
	return u.clanRepo
}

// BalanceHistoryRepository returns the transaction-scoped history repository
func (u *unitOfWork) BalanceHistoryRepository() service.BalanceHistoryRepository {
	u.mustBeStarted()
	return u.historyRepo
}

// GameRepository returns the transaction-scoped game repository
func (u *unitOfWork) GameRepository() service.GameRepository {
	u.mustBeStarted()
	return u.gameRepo
}

// EventBus returns the transactional event publisher
func (u *unitOfWork) EventBus() service.EventPublisher {
	return u.txBus
}

func (u *unitOfWork) mustBeStarted() {
	if u.tx == nil {
		panic("unit of work not started, call Begin first")
	}
}

func (u *unitOfWork) reset() {
	u.tx = nil
	u.ctx = nil
	u.userRepo = nil
	u.clanRepo = nil
	u.historyRepo = nil
	u.gameRepo = nil
}

// unitOfWorkFactory implements service.UnitOfWorkFactory
type unitOfWorkFactory struct {
	db       *database.DB
	eventBus *events.Bus
}

// NewUnitOfWorkFactory creates a new unit of work factory
func NewUnitOfWorkFactory(db *database.DB, eventBus *events.Bus) service.UnitOfWorkFactory {
	return &unitOfWorkFactory{db: db, eventBus: eventBus}
}

// Create creates a new unit of work
func (f *unitOfWorkFactory) Create() service.UnitOfWork {
	return NewUnitOfWork(f.db, f.eventBus)
}
