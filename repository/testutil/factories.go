package testutil

import (
	"time"

	"coffers/models"

	"github.com/google/uuid"
)

// CreateTestUser creates a test user with default values and no server states
func CreateTestUser(userID string) *models.User {
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

// CreateTestServerState creates a per-server state with a specific balance
func CreateTestServerState(serverID string, balance int64) *models.ServerState {
	return &models.ServerState{
		ServerID: serverID,
		Balance:  balance,
		JoinedAt: time.Now(),
		IsActive: true,
	}
}

// CreateTestClan creates a test clan led by leaderID with leaderID as its
// sole member
func CreateTestClan(serverID, tag, leaderID string) *models.Clan {
	return &models.Clan{
		ClanID:    uuid.NewString(),
		ServerID:  serverID,
		Name:      "Clan " + tag,
		Tag:       tag,
		LeaderID:  leaderID,
		Members:   []string{leaderID},
		CreatedAt: time.Now(),
	}
}

// CreateTestBalanceHistory creates a test balance history entry
func CreateTestBalanceHistory(userID, serverID string, transactionType models.TransactionType) *models.BalanceHistory {
	return &models.BalanceHistory{
		UserID:          userID,
		ServerID:        serverID,
		BalanceBefore:   1000,
		BalanceAfter:    900,
		ChangeAmount:    -100,
		TransactionType: transactionType,
		TransactionMetadata: map[string]any{
			"test": true,
		},
		CreatedAt: time.Now(),
	}
}

// CreateTestBalanceHistoryWithAmounts creates a test balance history with
// specific amounts
func CreateTestBalanceHistoryWithAmounts(userID, serverID string, before, after, change int64, transactionType models.TransactionType) *models.BalanceHistory {
	history := CreateTestBalanceHistory(userID, serverID, transactionType)
	history.BalanceBefore = before
	history.BalanceAfter = after
	history.ChangeAmount = change
	return history
}

// CreateTestGameRecord creates a test game record
func CreateTestGameRecord(userID, serverID string, gameType models.GameType, bet, winnings int64) *models.GameRecord {
	return &models.GameRecord{
		UserID:    userID,
		ServerID:  serverID,
		GameType:  gameType,
		Bet:       bet,
		Winnings:  winnings,
		Outcome:   "test outcome",
		CreatedAt: time.Now(),
	}
}
