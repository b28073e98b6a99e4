package service

import (
	"context"
	"testing"

	"coffers/events"
	"coffers/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

// panicRand fails the game if any randomness is consumed
type panicRand struct{}

func (panicRand) Intn(n int) int {
	panic("randomness consumed when none was expected")
}

func TestGamblingService_PlayGame(t *testing.T) {
	t.Parallel()
	ctx := context.Background()

	t.Run("coinflip win applies one net credit", func(t *testing.T) {
		d := newMockDeps()
		svc := NewGamblingService(d.factory, &fixedRand{seq: []int{CoinHeads}})

		d.users.On("GetByID", ctx, "alice").Return(userOnServer("alice", "s1", 500), nil)
		// Net delta of a 100 bet paying 200 is a single +100 credit
		d.users.On("AddBalance", ctx, "alice", "s1", int64(100)).Return(nil)
		d.users.On("RecordGamblingOutcome", ctx, "alice", "s1", int64(100), int64(200), mock.Anything).Return(nil)
		d.history.On("Record", ctx, mock.MatchedBy(func(h *models.BalanceHistory) bool {
			return h.ChangeAmount == 100 && h.BalanceAfter == 600 &&
				h.TransactionType == models.TransactionTypeGameWin
		})).Return(nil)
		d.games.On("Create", ctx, mock.MatchedBy(func(g *models.GameRecord) bool {
			return g.GameType == models.GameTypeCoinflip && g.Bet == 100 && g.Winnings == 200
		})).Return(nil)

		result, err := svc.PlayGame(ctx, "alice", "s1", models.GameTypeCoinflip, 100, CoinHeads)
		require.NoError(t, err)
		assert.Equal(t, int64(200), result.Winnings)
		assert.Equal(t, int64(600), result.NewBalance)
		assert.Equal(t, "heads", result.Outcome)

		d.users.AssertNotCalled(t, "DeductBalance", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
		assert.Len(t, d.eventsOfType(events.EventTypeGamePlayed), 1)
	})

	t.Run("coinflip loss applies one net debit", func(t *testing.T) {
		d := newMockDeps()
		svc := NewGamblingService(d.factory, &fixedRand{seq: []int{CoinTails}})

		d.users.On("GetByID", ctx, "alice").Return(userOnServer("alice", "s1", 500), nil)
		d.users.On("DeductBalance", ctx, "alice", "s1", int64(100)).Return(nil)
		d.users.On("RecordGamblingOutcome", ctx, "alice", "s1", int64(100), int64(0), mock.Anything).Return(nil)
		d.history.On("Record", ctx, mock.MatchedBy(func(h *models.BalanceHistory) bool {
			return h.ChangeAmount == -100 && h.TransactionType == models.TransactionTypeGameLoss
		})).Return(nil)
		d.games.On("Create", ctx, mock.Anything).Return(nil)

		result, err := svc.PlayGame(ctx, "alice", "s1", models.GameTypeCoinflip, 100, CoinHeads)
		require.NoError(t, err)
		assert.Equal(t, int64(0), result.Winnings)
		assert.Equal(t, int64(400), result.NewBalance)

		d.users.AssertNotCalled(t, "AddBalance", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
	})

	t.Run("unaffordable bet fails before any randomness", func(t *testing.T) {
		d := newMockDeps()
		svc := NewGamblingService(d.factory, panicRand{})

		d.users.On("GetByID", ctx, "alice").Return(userOnServer("alice", "s1", 50), nil)

		_, err := svc.PlayGame(ctx, "alice", "s1", models.GameTypeSlots, 100, 0)
		assert.ErrorIs(t, err, models.ErrInsufficientFunds)

		d.users.AssertNotCalled(t, "DeductBalance", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
		d.games.AssertNotCalled(t, "Create", mock.Anything, mock.Anything)
		assert.Empty(t, d.bus.Events)
	})

	t.Run("bet equal to balance is allowed", func(t *testing.T) {
		d := newMockDeps()
		svc := NewGamblingService(d.factory, &fixedRand{seq: []int{CoinTails}})

		d.users.On("GetByID", ctx, "alice").Return(userOnServer("alice", "s1", 100), nil)
		d.users.On("DeductBalance", ctx, "alice", "s1", int64(100)).Return(nil)
		d.users.On("RecordGamblingOutcome", ctx, "alice", "s1", int64(100), int64(0), mock.Anything).Return(nil)
		d.history.On("Record", ctx, mock.Anything).Return(nil)
		d.games.On("Create", ctx, mock.Anything).Return(nil)

		result, err := svc.PlayGame(ctx, "alice", "s1", models.GameTypeCoinflip, 100, CoinHeads)
		require.NoError(t, err)
		assert.Equal(t, int64(0), result.NewBalance)
	})

	t.Run("unknown game type", func(t *testing.T) {
		d := newMockDeps()
		svc := NewGamblingService(d.factory, panicRand{})

		_, err := svc.PlayGame(ctx, "alice", "s1", "roulette", 100, 0)
		assert.ErrorIs(t, err, models.ErrInvalidArgument)
	})

	t.Run("non-positive bet", func(t *testing.T) {
		d := newMockDeps()
		svc := NewGamblingService(d.factory, panicRand{})

		_, err := svc.PlayGame(ctx, "alice", "s1", models.GameTypeDice, 0, 3)
		assert.ErrorIs(t, err, models.ErrInvalidArgument)
	})

	t.Run("user not on server", func(t *testing.T) {
		d := newMockDeps()
		svc := NewGamblingService(d.factory, panicRand{})

		d.users.On("GetByID", ctx, "nobody").Return(nil, nil)

		_, err := svc.PlayGame(ctx, "nobody", "s1", models.GameTypeDice, 10, 3)
		assert.ErrorIs(t, err, models.ErrUserNotOnServer)
	})
}

func TestGamblingService_RecordGame(t *testing.T) {
	t.Parallel()
	ctx := context.Background()

	t.Run("push moves no money but still counts", func(t *testing.T) {
		d := newMockDeps()
		svc := NewGamblingService(d.factory, panicRand{})

		d.users.On("GetByID", ctx, "alice").Return(userOnServer("alice", "s1", 500), nil)
		d.users.On("RecordGamblingOutcome", ctx, "alice", "s1", int64(100), int64(100), mock.Anything).Return(nil)
		d.history.On("Record", ctx, mock.MatchedBy(func(h *models.BalanceHistory) bool {
			return h.ChangeAmount == 0 && h.TransactionType == models.TransactionTypeGamePush
		})).Return(nil)
		d.games.On("Create", ctx, mock.Anything).Return(nil)

		result, err := svc.RecordGame(ctx, "alice", "s1", models.GameTypeCoinflip, 100, 100, "side landing")
		require.NoError(t, err)
		assert.Equal(t, int64(500), result.NewBalance)

		d.users.AssertNotCalled(t, "AddBalance", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
		d.users.AssertNotCalled(t, "DeductBalance", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
	})

	t.Run("external win settles like a played game", func(t *testing.T) {
		d := newMockDeps()
		svc := NewGamblingService(d.factory, panicRand{})

		d.users.On("GetByID", ctx, "alice").Return(userOnServer("alice", "s1", 500), nil)
		d.users.On("AddBalance", ctx, "alice", "s1", int64(400)).Return(nil)
		d.users.On("RecordGamblingOutcome", ctx, "alice", "s1", int64(100), int64(500), mock.Anything).Return(nil)
		d.history.On("Record", ctx, mock.Anything).Return(nil)
		d.games.On("Create", ctx, mock.MatchedBy(func(g *models.GameRecord) bool {
			return g.Outcome == "tournament win"
		})).Return(nil)

		result, err := svc.RecordGame(ctx, "alice", "s1", models.GameTypeDice, 100, 500, "tournament win")
		require.NoError(t, err)
		assert.Equal(t, int64(900), result.NewBalance)
	})

	t.Run("negative winnings rejected", func(t *testing.T) {
		d := newMockDeps()
		svc := NewGamblingService(d.factory, panicRand{})

		_, err := svc.RecordGame(ctx, "alice", "s1", models.GameTypeDice, 100, -1, "bad")
		assert.ErrorIs(t, err, models.ErrInvalidArgument)
	})

	t.Run("unaffordable external bet rejected", func(t *testing.T) {
		d := newMockDeps()
		svc := NewGamblingService(d.factory, panicRand{})

		d.users.On("GetByID", ctx, "alice").Return(userOnServer("alice", "s1", 50), nil)

		_, err := svc.RecordGame(ctx, "alice", "s1", models.GameTypeDice, 100, 500, "win")
		assert.ErrorIs(t, err, models.ErrInsufficientFunds)
	})
}

func TestGamblingService_GetRecentGames(t *testing.T) {
	t.Parallel()
	ctx := context.Background()

	d := newMockDeps()
	svc := NewGamblingService(d.factory, panicRand{})

	want := []*models.GameRecord{
		{ID: 2, UserID: "alice", ServerID: "s1", GameType: models.GameTypeSlots},
		{ID: 1, UserID: "alice", ServerID: "s1", GameType: models.GameTypeDice},
	}
	d.games.On("GetByUser", ctx, "alice", "s1", 10).Return(want, nil)

	games, err := svc.GetRecentGames(ctx, "alice", "s1", 10)
	require.NoError(t, err)
	assert.Equal(t, want, games)
}
