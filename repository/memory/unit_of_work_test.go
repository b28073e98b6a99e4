package memory

import (
	"context"
	"sync"
	"testing"
	"time"

	"coffers/events"
	"coffers/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestUser(userID string) *models.User {
	now := time.Now()
	return &models.User{
		UserID:       userID,
		Nickname:     userID,
		Preferences:  models.DefaultPreferences(),
		RegisteredAt: now,
		LastSeen:     now,
		Servers:      make(map[string]*models.ServerState),
	}
}

func seedUserOnServer(t *testing.T, factory *unitOfWorkFactory, userID, serverID string, balance int64) {
	t.Helper()
	ctx := context.Background()

	uow := factory.Create()
	require.NoError(t, uow.Begin(ctx))
	require.NoError(t, uow.UserRepository().Create(ctx, newTestUser(userID)))
	require.NoError(t, uow.UserRepository().CreateServerState(ctx, userID, &models.ServerState{
		ServerID: serverID,
		Balance:  balance,
		JoinedAt: time.Now(),
		IsActive: true,
	}))
	require.NoError(t, uow.Commit())
}

func newTestFactory() *unitOfWorkFactory {
	return NewUnitOfWorkFactory(NewStore(), events.NewBus()).(*unitOfWorkFactory)
}

func TestUnitOfWork_CommitPublishesWorkingSet(t *testing.T) {
	t.Parallel()
	factory := newTestFactory()
	ctx := context.Background()

	seedUserOnServer(t, factory, "alice", "s1", 100)

	uow := factory.Create()
	require.NoError(t, uow.Begin(ctx))
	require.NoError(t, uow.UserRepository().AddBalance(ctx, "alice", "s1", 400))
	require.NoError(t, uow.Commit())

	uow = factory.Create()
	require.NoError(t, uow.Begin(ctx))
	defer uow.Rollback()
	user, err := uow.UserRepository().GetByID(ctx, "alice")
	require.NoError(t, err)
	assert.Equal(t, int64(500), user.Servers["s1"].Balance)
}

func TestUnitOfWork_RollbackDiscardsWorkingSet(t *testing.T) {
	t.Parallel()
	factory := newTestFactory()
	ctx := context.Background()

	seedUserOnServer(t, factory, "alice", "s1", 100)

	uow := factory.Create()
	require.NoError(t, uow.Begin(ctx))
	require.NoError(t, uow.UserRepository().AddBalance(ctx, "alice", "s1", 400))
	require.NoError(t, uow.Rollback())

	uow = factory.Create()
	require.NoError(t, uow.Begin(ctx))
	defer uow.Rollback()
	user, err := uow.UserRepository().GetByID(ctx, "alice")
	require.NoError(t, err)
	assert.Equal(t, int64(100), user.Servers["s1"].Balance)
}

func TestUnitOfWork_ReadsAreIsolatedCopies(t *testing.T) {
	t.Parallel()
	factory := newTestFactory()
	ctx := context.Background()

	seedUserOnServer(t, factory, "alice", "s1", 100)

	uow := factory.Create()
	require.NoError(t, uow.Begin(ctx))
	user, err := uow.UserRepository().GetByID(ctx, "alice")
	require.NoError(t, err)

	// Mutating the returned copy must not affect the store
	user.Servers["s1"].Balance = 999999
	require.NoError(t, uow.Rollback())

	uow = factory.Create()
	require.NoError(t, uow.Begin(ctx))
	defer uow.Rollback()
	fresh, err := uow.UserRepository().GetByID(ctx, "alice")
	require.NoError(t, err)
	assert.Equal(t, int64(100), fresh.Servers["s1"].Balance)
}

func TestUserRepository_OverdraftProtection(t *testing.T) {
	t.Parallel()
	factory := newTestFactory()
	ctx := context.Background()

	seedUserOnServer(t, factory, "u1", "s1", 0)

	// Credit 500, then a 600 debit fails leaving the balance unchanged,
	// then a 500 debit brings it to exactly zero.
	uow := factory.Create()
	require.NoError(t, uow.Begin(ctx))
	require.NoError(t, uow.UserRepository().AddBalance(ctx, "u1", "s1", 500))
	require.NoError(t, uow.Commit())

	uow = factory.Create()
	require.NoError(t, uow.Begin(ctx))
	err := uow.UserRepository().DeductBalance(ctx, "u1", "s1", 600)
	assert.ErrorIs(t, err, models.ErrInsufficientFunds)
	require.NoError(t, uow.Rollback())

	uow = factory.Create()
	require.NoError(t, uow.Begin(ctx))
	require.NoError(t, uow.UserRepository().DeductBalance(ctx, "u1", "s1", 500))
	require.NoError(t, uow.Commit())

	uow = factory.Create()
	require.NoError(t, uow.Begin(ctx))
	defer uow.Rollback()
	user, err := uow.UserRepository().GetByID(ctx, "u1")
	require.NoError(t, err)
	assert.Equal(t, int64(0), user.Servers["s1"].Balance)
}

func TestUserRepository_MissingKeys(t *testing.T) {
	t.Parallel()
	factory := newTestFactory()
	ctx := context.Background()

	seedUserOnServer(t, factory, "alice", "s1", 100)

	uow := factory.Create()
	require.NoError(t, uow.Begin(ctx))
	defer uow.Rollback()

	repo := uow.UserRepository()

	user, err := repo.GetByID(ctx, "nobody")
	require.NoError(t, err)
	assert.Nil(t, user)

	err = repo.AddBalance(ctx, "alice", "s9", 10)
	assert.ErrorIs(t, err, models.ErrUserNotOnServer)

	err = repo.DeductBalance(ctx, "nobody", "s1", 10)
	assert.ErrorIs(t, err, models.ErrUserNotOnServer)
}

func TestStore_ConcurrentAdjustmentsNeverLoseUpdates(t *testing.T) {
	t.Parallel()
	factory := newTestFactory()
	ctx := context.Background()

	seedUserOnServer(t, factory, "alice", "s1", 0)

	const workers = 8
	const perWorker = 50

	var wg sync.WaitGroup
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < perWorker; j++ {
				uow := factory.Create()
				require.NoError(t, uow.Begin(ctx))
				require.NoError(t, uow.UserRepository().AddBalance(ctx, "alice", "s1", 1))
				require.NoError(t, uow.Commit())
			}
		}()
	}
	wg.Wait()

	uow := factory.Create()
	require.NoError(t, uow.Begin(ctx))
	defer uow.Rollback()
	user, err := uow.UserRepository().GetByID(ctx, "alice")
	require.NoError(t, err)
	assert.Equal(t, int64(workers*perWorker), user.Servers["s1"].Balance)
}

func TestStore_ConcurrentDeductsNeverOverdraw(t *testing.T) {
	t.Parallel()
	factory := newTestFactory()
	ctx := context.Background()

	seedUserOnServer(t, factory, "alice", "s1", 500)

	const workers = 10
	results := make(chan error, workers)
	var wg sync.WaitGroup
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			uow := factory.Create()
			if err := uow.Begin(ctx); err != nil {
				results <- err
				return
			}
			if err := uow.UserRepository().DeductBalance(ctx, "alice", "s1", 100); err != nil {
				uow.Rollback()
				results <- err
				return
			}
			results <- uow.Commit()
		}()
	}
	wg.Wait()
	close(results)

	succeeded := 0
	for err := range results {
		if err == nil {
			succeeded++
		} else {
			assert.ErrorIs(t, err, models.ErrInsufficientFunds)
		}
	}
	assert.Equal(t, 5, succeeded)

	uow := factory.Create()
	require.NoError(t, uow.Begin(ctx))
	defer uow.Rollback()
	user, err := uow.UserRepository().GetByID(ctx, "alice")
	require.NoError(t, err)
	assert.Equal(t, int64(0), user.Servers["s1"].Balance)
}

func TestJournalRepositories_StagedAppends(t *testing.T) {
	t.Parallel()
	factory := newTestFactory()
	ctx := context.Background()

	seedUserOnServer(t, factory, "alice", "s1", 100)

	uow := factory.Create()
	require.NoError(t, uow.Begin(ctx))
	entry := &models.BalanceHistory{
		UserID:          "alice",
		ServerID:        "s1",
		BalanceBefore:   100,
		BalanceAfter:    200,
		ChangeAmount:    100,
		TransactionType: models.TransactionTypeAdminAdjust,
		CreatedAt:       time.Now(),
	}
	require.NoError(t, uow.BalanceHistoryRepository().Record(ctx, entry))
	assert.NotZero(t, entry.ID)
	require.NoError(t, uow.Rollback())

	// Rolled-back journal entries must not be visible
	uow = factory.Create()
	require.NoError(t, uow.Begin(ctx))
	entries, err := uow.BalanceHistoryRepository().GetByUser(ctx, "alice", "s1", 10)
	require.NoError(t, err)
	assert.Empty(t, entries)
	require.NoError(t, uow.Rollback())

	// Committed ones are, newest first
	uow = factory.Create()
	require.NoError(t, uow.Begin(ctx))
	first := &models.BalanceHistory{UserID: "alice", ServerID: "s1", ChangeAmount: 1, TransactionType: models.TransactionTypeAdminAdjust, CreatedAt: time.Now()}
	second := &models.BalanceHistory{UserID: "alice", ServerID: "s1", ChangeAmount: 2, TransactionType: models.TransactionTypeAdminAdjust, CreatedAt: time.Now()}
	require.NoError(t, uow.BalanceHistoryRepository().Record(ctx, first))
	require.NoError(t, uow.BalanceHistoryRepository().Record(ctx, second))
	require.NoError(t, uow.Commit())

	uow = factory.Create()
	require.NoError(t, uow.Begin(ctx))
	defer uow.Rollback()
	entries, err = uow.BalanceHistoryRepository().GetByUser(ctx, "alice", "s1", 10)
	require.NoError(t, err)
	require.Len(t, entries, 2)
	assert.Equal(t, int64(2), entries[0].ChangeAmount)
	assert.Equal(t, int64(1), entries[1].ChangeAmount)
}
