package service

import (
	"context"
	"testing"

	"coffers/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

func TestLedgerService_AdjustBalance(t *testing.T) {
	t.Parallel()
	ctx := context.Background()

	t.Run("positive delta credits and journals", func(t *testing.T) {
		d := newMockDeps()
		svc := NewLedgerService(d.factory)

		d.users.On("GetByID", ctx, "alice").Return(userOnServer("alice", "s1", 100), nil)
		d.users.On("AddBalance", ctx, "alice", "s1", int64(50)).Return(nil)
		d.history.On("Record", ctx, mock.MatchedBy(func(h *models.BalanceHistory) bool {
			return h.BalanceBefore == 100 && h.BalanceAfter == 150 && h.ChangeAmount == 50 &&
				h.TransactionType == models.TransactionTypeAdminAdjust
		})).Return(nil)

		newBalance, err := svc.AdjustBalance(ctx, "alice", "s1", 50, "", nil)
		require.NoError(t, err)
		assert.Equal(t, int64(150), newBalance)

		d.users.AssertExpectations(t)
		d.history.AssertExpectations(t)
		assert.Len(t, d.bus.Events, 1)
	})

	t.Run("negative delta debits", func(t *testing.T) {
		d := newMockDeps()
		svc := NewLedgerService(d.factory)

		d.users.On("GetByID", ctx, "alice").Return(userOnServer("alice", "s1", 100), nil)
		d.users.On("DeductBalance", ctx, "alice", "s1", int64(60)).Return(nil)
		d.history.On("Record", ctx, mock.MatchedBy(func(h *models.BalanceHistory) bool {
			return h.BalanceAfter == 40 && h.ChangeAmount == -60
		})).Return(nil)

		newBalance, err := svc.AdjustBalance(ctx, "alice", "s1", -60, models.TransactionTypeAdminAdjust, nil)
		require.NoError(t, err)
		assert.Equal(t, int64(40), newBalance)
	})

	t.Run("overdraft surfaces insufficient funds", func(t *testing.T) {
		d := newMockDeps()
		svc := NewLedgerService(d.factory)

		d.users.On("GetByID", ctx, "alice").Return(userOnServer("alice", "s1", 100), nil)
		d.users.On("DeductBalance", ctx, "alice", "s1", int64(200)).Return(models.ErrInsufficientFunds)

		_, err := svc.AdjustBalance(ctx, "alice", "s1", -200, "", nil)
		assert.ErrorIs(t, err, models.ErrInsufficientFunds)
		assert.Empty(t, d.bus.Events, "failed adjustments publish nothing")
	})

	t.Run("zero delta is a no-op without journal entry", func(t *testing.T) {
		d := newMockDeps()
		svc := NewLedgerService(d.factory)

		d.users.On("GetByID", ctx, "alice").Return(userOnServer("alice", "s1", 100), nil)

		newBalance, err := svc.AdjustBalance(ctx, "alice", "s1", 0, "", nil)
		require.NoError(t, err)
		assert.Equal(t, int64(100), newBalance)

		d.history.AssertNotCalled(t, "Record", mock.Anything, mock.Anything)
		assert.Empty(t, d.bus.Events)
	})

	t.Run("unknown user", func(t *testing.T) {
		d := newMockDeps()
		svc := NewLedgerService(d.factory)

		d.users.On("GetByID", ctx, "nobody").Return(nil, nil)

		_, err := svc.AdjustBalance(ctx, "nobody", "s1", 10, "", nil)
		assert.ErrorIs(t, err, models.ErrUserNotOnServer)
	})

	t.Run("user not on server", func(t *testing.T) {
		d := newMockDeps()
		svc := NewLedgerService(d.factory)

		d.users.On("GetByID", ctx, "alice").Return(userOnServer("alice", "s1", 100), nil)

		_, err := svc.AdjustBalance(ctx, "alice", "s9", 10, "", nil)
		assert.ErrorIs(t, err, models.ErrUserNotOnServer)
	})
}

func TestLedgerService_GetBalance(t *testing.T) {
	t.Parallel()
	ctx := context.Background()

	t.Run("existing state", func(t *testing.T) {
		d := newMockDeps()
		svc := NewLedgerService(d.factory)

		d.users.On("GetByID", ctx, "alice").Return(userOnServer("alice", "s1", 1234), nil)

		balance, err := svc.GetBalance(ctx, "alice", "s1")
		require.NoError(t, err)
		assert.Equal(t, int64(1234), balance)
	})

	t.Run("absent state reads as zero", func(t *testing.T) {
		d := newMockDeps()
		svc := NewLedgerService(d.factory)

		d.users.On("GetByID", ctx, "nobody").Return(nil, nil)

		balance, err := svc.GetBalance(ctx, "nobody", "s1")
		require.NoError(t, err)
		assert.Equal(t, int64(0), balance)
	})
}
