package repository

import (
	"context"
	"testing"
	"time"

	"coffers/models"
	"coffers/repository/testutil"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func createUserOnServer(t *testing.T, repo *UserRepository, userID, serverID string, balance int64) {
	t.Helper()
	ctx := context.Background()

	err := repo.Create(ctx, testutil.CreateTestUser(userID))
	require.NoError(t, err)
	err = repo.CreateServerState(ctx, userID, testutil.CreateTestServerState(serverID, balance))
	require.NoError(t, err)
}

func TestUserRepository_GetByID(t *testing.T) {
	t.Parallel()
	testDB := testutil.SetupTestDatabase(t)

	repo := NewUserRepository(testDB.DB)
	ctx := context.Background()

	t.Run("user not found", func(t *testing.T) {
		user, err := repo.GetByID(ctx, "nobody")
		require.NoError(t, err)
		assert.Nil(t, user)
	})

	t.Run("user found with server states", func(t *testing.T) {
		err := repo.Create(ctx, testutil.CreateTestUser("alice"))
		require.NoError(t, err)
		err = repo.CreateServerState(ctx, "alice", testutil.CreateTestServerState("s1", 500))
		require.NoError(t, err)
		err = repo.CreateServerState(ctx, "alice", testutil.CreateTestServerState("s2", 0))
		require.NoError(t, err)

		user, err := repo.GetByID(ctx, "alice")
		require.NoError(t, err)
		require.NotNil(t, user)

		assert.Equal(t, "alice", user.UserID)
		assert.True(t, user.Preferences.ShowInLeaderboards)
		require.Len(t, user.Servers, 2)
		assert.Equal(t, int64(500), user.Servers["s1"].Balance)
		assert.Equal(t, int64(0), user.Servers["s2"].Balance)
	})
}

func TestUserRepository_GetUsersOnServer(t *testing.T) {
	t.Parallel()
	testDB := testutil.SetupTestDatabase(t)

	repo := NewUserRepository(testDB.DB)
	ctx := context.Background()

	createUserOnServer(t, repo, "bob", "s1", 100)
	createUserOnServer(t, repo, "alice", "s1", 200)
	createUserOnServer(t, repo, "carol", "s2", 300)

	users, err := repo.GetUsersOnServer(ctx, "s1")
	require.NoError(t, err)
	require.Len(t, users, 2)

	// Ordered by user ID, carrying only the matching server state
	assert.Equal(t, "alice", users[0].UserID)
	assert.Equal(t, "bob", users[1].UserID)
	assert.Equal(t, int64(200), users[0].Servers["s1"].Balance)
	assert.NotContains(t, users[0].Servers, "s2")
}

func TestUserRepository_AddBalance(t *testing.T) {
	t.Parallel()
	testDB := testutil.SetupTestDatabase(t)

	repo := NewUserRepository(testDB.DB)
	ctx := context.Background()

	createUserOnServer(t, repo, "alice", "s1", 100)

	t.Run("successful add", func(t *testing.T) {
		err := repo.AddBalance(ctx, "alice", "s1", 50)
		require.NoError(t, err)

		user, err := repo.GetByID(ctx, "alice")
		require.NoError(t, err)
		assert.Equal(t, int64(150), user.Servers["s1"].Balance)
	})

	t.Run("missing key", func(t *testing.T) {
		err := repo.AddBalance(ctx, "alice", "s9", 50)
		assert.ErrorIs(t, err, models.ErrUserNotOnServer)
	})

	t.Run("non-positive amount rejected", func(t *testing.T) {
		err := repo.AddBalance(ctx, "alice", "s1", 0)
		assert.ErrorIs(t, err, models.ErrInvalidArgument)
	})
}

func TestUserRepository_DeductBalance(t *testing.T) {
	t.Parallel()
	testDB := testutil.SetupTestDatabase(t)

	repo := NewUserRepository(testDB.DB)
	ctx := context.Background()

	createUserOnServer(t, repo, "alice", "s1", 500)

	t.Run("successful deduct", func(t *testing.T) {
		err := repo.DeductBalance(ctx, "alice", "s1", 200)
		require.NoError(t, err)

		user, err := repo.GetByID(ctx, "alice")
		require.NoError(t, err)
		assert.Equal(t, int64(300), user.Servers["s1"].Balance)
	})

	t.Run("insufficient funds leaves balance unchanged", func(t *testing.T) {
		err := repo.DeductBalance(ctx, "alice", "s1", 301)
		assert.ErrorIs(t, err, models.ErrInsufficientFunds)

		user, err := repo.GetByID(ctx, "alice")
		require.NoError(t, err)
		assert.Equal(t, int64(300), user.Servers["s1"].Balance)
	})

	t.Run("deduct to exactly zero", func(t *testing.T) {
		err := repo.DeductBalance(ctx, "alice", "s1", 300)
		require.NoError(t, err)

		user, err := repo.GetByID(ctx, "alice")
		require.NoError(t, err)
		assert.Equal(t, int64(0), user.Servers["s1"].Balance)
	})

	t.Run("missing key", func(t *testing.T) {
		err := repo.DeductBalance(ctx, "nobody", "s1", 10)
		assert.ErrorIs(t, err, models.ErrUserNotOnServer)
	})
}

func TestUserRepository_SetClanTag(t *testing.T) {
	t.Parallel()
	testDB := testutil.SetupTestDatabase(t)

	repo := NewUserRepository(testDB.DB)
	ctx := context.Background()

	createUserOnServer(t, repo, "alice", "s1", 0)

	err := repo.SetClanTag(ctx, "alice", "s1", "WOLF")
	require.NoError(t, err)

	user, err := repo.GetByID(ctx, "alice")
	require.NoError(t, err)
	assert.Equal(t, "WOLF", user.Servers["s1"].ClanTag)

	err = repo.SetClanTag(ctx, "alice", "s1", "")
	require.NoError(t, err)

	user, err = repo.GetByID(ctx, "alice")
	require.NoError(t, err)
	assert.Equal(t, "", user.Servers["s1"].ClanTag)
}

func TestUserRepository_RecordGamblingOutcome(t *testing.T) {
	t.Parallel()
	testDB := testutil.SetupTestDatabase(t)

	repo := NewUserRepository(testDB.DB)
	ctx := context.Background()

	createUserOnServer(t, repo, "alice", "s1", 1000)
	playedAt := time.Now().UTC().Truncate(time.Millisecond)

	err := repo.RecordGamblingOutcome(ctx, "alice", "s1", 100, 200, playedAt)
	require.NoError(t, err)
	err = repo.RecordGamblingOutcome(ctx, "alice", "s1", 50, 0, playedAt.Add(time.Minute))
	require.NoError(t, err)

	user, err := repo.GetByID(ctx, "alice")
	require.NoError(t, err)

	stats := user.Servers["s1"].Gambling
	assert.Equal(t, int64(150), stats.TotalWagered)
	assert.Equal(t, int64(200), stats.TotalWon)
	assert.Equal(t, int64(2), stats.GamesPlayed)
	assert.Equal(t, int64(200), stats.BiggestWin, "biggest win is a running maximum")
	require.NotNil(t, stats.LastPlayed)
	assert.WithinDuration(t, playedAt.Add(time.Minute), *stats.LastPlayed, time.Second)
}
