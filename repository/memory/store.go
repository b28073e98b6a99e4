// Package memory provides a process-local implementation of the repository
// contract. A single store-level mutex is held for the lifetime of each unit
// of work: mutations are staged on deep copies and published at commit, so
// concurrent units of work are serialized and rollback is a discard.
package memory

import (
	"sync"

	"coffers/models"
)

// Store holds all in-memory state. It exclusively owns the User (and
// embedded ServerState) instances; repositories hand out deep copies.
type Store struct {
	mu    sync.Mutex
	users map[string]*models.User
	clans map[string]*models.Clan

	history []*models.BalanceHistory
	games   []*models.GameRecord

	nextHistoryID int64
	nextGameID    int64
}

// NewStore creates an empty in-memory store
func NewStore() *Store {
	return &Store{
		users:         make(map[string]*models.User),
		clans:         make(map[string]*models.Clan),
		nextHistoryID: 1,
		nextGameID:    1,
	}
}
