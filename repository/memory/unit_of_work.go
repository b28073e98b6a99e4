package memory

import (
	"context"
	"fmt"

	"coffers/events"
	"coffers/service"

	"coffers/models"
)

// unitOfWork implements service.UnitOfWork over the in-memory store. Begin
// acquires the store mutex and snapshots the entity maps; Commit publishes
// the working set and releases the mutex; Rollback discards it.
type unitOfWork struct {
	store  *Store
	txBus  *events.TransactionalBus
	ctx    context.Context
	active bool

	users map[string]*models.User
	clans map[string]*models.Clan

	newHistory []*models.BalanceHistory
	newGames   []*models.GameRecord
}

// unitOfWorkFactory implements service.UnitOfWorkFactory
type unitOfWorkFactory struct {
	store    *Store
	eventBus *events.Bus
}

// NewUnitOfWorkFactory creates a UnitOfWork factory over an in-memory store
func NewUnitOfWorkFactory(store *Store, eventBus *events.Bus) service.UnitOfWorkFactory {
	return &unitOfWorkFactory{
		store:    store,
		eventBus: eventBus,
	}
}

func (f *unitOfWorkFactory) Create() service.UnitOfWork {
	return &unitOfWork{
		store: f.store,
		txBus: events.NewTransactionalBus(f.eventBus),
	}
}

// Begin locks the store and snapshots its entities. The lock is held until
// Commit or Rollback; the unit of work performs no external calls while
// holding it, so every transaction completes in bounded time.
func (u *unitOfWork) Begin(ctx context.Context) error {
	if u.active {
		return fmt.Errorf("transaction already started")
	}

	u.store.mu.Lock()
	u.ctx = ctx
	u.active = true

	u.users = make(map[string]*models.User, len(u.store.users))
	for id, user := range u.store.users {
		u.users[id] = user.Clone()
	}
	u.clans = make(map[string]*models.Clan, len(u.store.clans))
	for id, clan := range u.store.clans {
		u.clans[id] = clan.Clone()
	}
	u.newHistory = nil
	u.newGames = nil

	return nil
}

// Commit publishes the working set and flushes pending events
func (u *unitOfWork) Commit() error {
	if !u.active {
		return fmt.Errorf("no transaction to commit")
	}

	u.store.users = u.users
	u.store.clans = u.clans
	u.store.history = append(u.store.history, u.newHistory...)
	u.store.games = append(u.store.games, u.newGames...)

	u.active = false
	u.store.mu.Unlock()

	if u.txBus != nil {
		u.txBus.Flush(u.ctx)
	}

	return nil
}

// Rollback discards the working set
func (u *unitOfWork) Rollback() error {
	if !u.active {
		return nil // Nothing to rollback
	}

	u.users = nil
	u.clans = nil
	u.newHistory = nil
	u.newGames = nil

	u.active = false
	u.store.mu.Unlock()

	if u.txBus != nil {
		u.txBus.Discard()
	}

	return nil
}

func (u *unitOfWork) UserRepository() service.UserRepository {
	if !u.active {
		panic("unit of work not started - call Begin() first")
	}
	return &userRepository{uow: u}
}

func (u *unitOfWork) ClanRepository() service.ClanRepository {
	if !u.active {
		panic("unit of work not started - call Begin() first")
	}
	return &clanRepository{uow: u}
}

func (u *unitOfWork) BalanceHistoryRepository() service.BalanceHistoryRepository {
	if !u.active {
		panic("unit of work not started - call Begin() first")
	}
	return &balanceHistoryRepository{uow: u}
}

func (u *unitOfWork) GameRepository() service.GameRepository {
	if !u.active {
		panic("unit of work not started - call Begin() first")
	}
	return &gameRepository{uow: u}
}

func (u *unitOfWork) EventBus() service.EventPublisher {
	if u.txBus == nil {
		panic("unit of work has no event bus")
	}
	return u.txBus
}
