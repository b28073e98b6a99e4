package memory

import (
	"context"
	"fmt"
	"sort"
	"time"

	"coffers/models"
)

// clanRepository implements service.ClanRepository on the unit of work's
// working set
type clanRepository struct {
	uow *unitOfWork
}

func (r *clanRepository) Create(ctx context.Context, clan *models.Clan) error {
	for _, existing := range r.uow.clans {
		if existing.ServerID == clan.ServerID && existing.Tag == clan.Tag {
			return fmt.Errorf("tag %q on server %q: %w", clan.Tag, clan.ServerID, models.ErrClanTagTaken)
		}
	}
	if _, exists := r.uow.clans[clan.ClanID]; exists {
		return fmt.Errorf("clan %q already exists", clan.ClanID)
	}
	r.uow.clans[clan.ClanID] = clan.Clone()
	return nil
}

func (r *clanRepository) GetByID(ctx context.Context, clanID string) (*models.Clan, error) {
	clan, ok := r.uow.clans[clanID]
	if !ok {
		return nil, nil
	}
	return clan.Clone(), nil
}

func (r *clanRepository) GetByTag(ctx context.Context, serverID, tag string) (*models.Clan, error) {
	for _, clan := range r.uow.clans {
		if clan.ServerID == serverID && clan.Tag == tag {
			return clan.Clone(), nil
		}
	}
	return nil, nil
}

func (r *clanRepository) ListByServer(ctx context.Context, serverID string) ([]*models.Clan, error) {
	var clans []*models.Clan
	for _, clan := range r.uow.clans {
		if clan.ServerID == serverID {
			clans = append(clans, clan.Clone())
		}
	}
	sort.Slice(clans, func(i, j int) bool { return clans[i].ClanID < clans[j].ClanID })
	return clans, nil
}

func (r *clanRepository) AddMember(ctx context.Context, clanID, userID string, joinedAt time.Time) error {
	clan, err := r.clan(clanID)
	if err != nil {
		return err
	}
	clan.AddMember(userID)
	return nil
}

func (r *clanRepository) RemoveMember(ctx context.Context, clanID, userID string) error {
	clan, err := r.clan(clanID)
	if err != nil {
		return err
	}
	clan.RemoveMember(userID)
	return nil
}

func (r *clanRepository) UpdateLeader(ctx context.Context, clanID, leaderID string) error {
	clan, err := r.clan(clanID)
	if err != nil {
		return err
	}
	clan.LeaderID = leaderID
	return nil
}

func (r *clanRepository) Delete(ctx context.Context, clanID string) error {
	if _, ok := r.uow.clans[clanID]; !ok {
		return fmt.Errorf("clan %q: %w", clanID, models.ErrClanNotFound)
	}
	delete(r.uow.clans, clanID)
	return nil
}

func (r *clanRepository) clan(clanID string) (*models.Clan, error) {
	clan, ok := r.uow.clans[clanID]
	if !ok {
		return nil, fmt.Errorf("clan %q: %w", clanID, models.ErrClanNotFound)
	}
	return clan, nil
}
