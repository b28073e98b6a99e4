package memory

import (
	"context"
	"time"

	"coffers/models"
)

// balanceHistoryRepository implements service.BalanceHistoryRepository.
// Entries are staged on the unit of work and appended to the store at
// commit; IDs are assigned immediately (the store mutex is already held)
// and wasted on rollback, like a database sequence.
type balanceHistoryRepository struct {
	uow *unitOfWork
}

func (r *balanceHistoryRepository) Record(ctx context.Context, history *models.BalanceHistory) error {
	history.ID = r.uow.store.nextHistoryID
	r.uow.store.nextHistoryID++
	if history.CreatedAt.IsZero() {
		history.CreatedAt = time.Now()
	}
	r.uow.newHistory = append(r.uow.newHistory, history)
	return nil
}

func (r *balanceHistoryRepository) GetByUser(ctx context.Context, userID, serverID string, limit int) ([]*models.BalanceHistory, error) {
	var entries []*models.BalanceHistory
	appendMatching := func(rows []*models.BalanceHistory) {
		for _, h := range rows {
			if h.UserID == userID && h.ServerID == serverID {
				entries = append(entries, h)
			}
		}
	}
	appendMatching(r.uow.store.history)
	appendMatching(r.uow.newHistory)

	// Newest first
	for i, j := 0, len(entries)-1; i < j; i, j = i+1, j-1 {
		entries[i], entries[j] = entries[j], entries[i]
	}
	if limit > 0 && len(entries) > limit {
		entries = entries[:limit]
	}
	return entries, nil
}

// gameRepository implements service.GameRepository with the same staging
// rules as the balance journal
type gameRepository struct {
	uow *unitOfWork
}

func (r *gameRepository) Create(ctx context.Context, game *models.GameRecord) error {
	game.ID = r.uow.store.nextGameID
	r.uow.store.nextGameID++
	if game.CreatedAt.IsZero() {
		game.CreatedAt = time.Now()
	}
	r.uow.newGames = append(r.uow.newGames, game)
	return nil
}

func (r *gameRepository) GetByUser(ctx context.Context, userID, serverID string, limit int) ([]*models.GameRecord, error) {
	var games []*models.GameRecord
	appendMatching := func(rows []*models.GameRecord) {
		for _, g := range rows {
			if g.UserID == userID && g.ServerID == serverID {
				games = append(games, g)
			}
		}
	}
	appendMatching(r.uow.store.games)
	appendMatching(r.uow.newGames)

	for i, j := 0, len(games)-1; i < j; i, j = i+1, j-1 {
		games[i], games[j] = games[j], games[i]
	}
	if limit > 0 && len(games) > limit {
		games = games[:limit]
	}
	return games, nil
}
