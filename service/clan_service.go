package service

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"time"

	"coffers/events"
	"coffers/models"

	"github.com/google/uuid"
	log "github.com/sirupsen/logrus"
)

// clanService implements the ClanService interface. It owns both sides of
// the membership relation: every mutation updates the clan's member set and
// the member's denormalized clan tag inside the same transaction.
type clanService struct {
	uowFactory UnitOfWorkFactory
	now        func() time.Time
}

// NewClanService creates a new clan service
func NewClanService(uowFactory UnitOfWorkFactory) ClanService {
	return &clanService{
		uowFactory: uowFactory,
		now:        time.Now,
	}
}

// CreateClan founds a clan with the founder as leader and sole member
func (s *clanService) CreateClan(ctx context.Context, serverID, founderID, name, tag, description string) (*models.Clan, error) {
	if err := models.ValidateID(serverID); err != nil {
		return nil, fmt.Errorf("server id: %w", err)
	}
	if err := models.ValidateID(founderID); err != nil {
		return nil, fmt.Errorf("founder id: %w", err)
	}
	if strings.TrimSpace(name) == "" {
		return nil, fmt.Errorf("clan name must not be empty: %w", models.ErrInvalidArgument)
	}
	if err := models.ValidateClanTag(tag); err != nil {
		return nil, fmt.Errorf("clan tag %q: %w", tag, err)
	}

	uow := s.uowFactory.Create()
	if err := uow.Begin(ctx); err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer uow.Rollback() // No-op if already committed

	founderState, err := serverStateOf(ctx, uow, founderID, serverID)
	if err != nil {
		return nil, err
	}

	inClan, err := s.repairedClanTag(ctx, uow, founderID, serverID, founderState)
	if err != nil {
		return nil, err
	}
	if inClan != "" {
		return nil, fmt.Errorf("user %q has tag %q: %w", founderID, inClan, models.ErrUserAlreadyInClan)
	}

	existing, err := uow.ClanRepository().GetByTag(ctx, serverID, tag)
	if err != nil {
		return nil, fmt.Errorf("failed to check clan tag: %w", err)
	}
	if existing != nil {
		return nil, fmt.Errorf("tag %q on server %q: %w", tag, serverID, models.ErrClanTagTaken)
	}

	clan := &models.Clan{
		ClanID:      uuid.NewString(),
		ServerID:    serverID,
		Name:        name,
		Tag:         tag,
		Description: description,
		LeaderID:    founderID,
		Members:     []string{founderID},
		CreatedAt:   s.now(),
	}

	if err := uow.ClanRepository().Create(ctx, clan); err != nil {
		return nil, fmt.Errorf("failed to create clan: %w", err)
	}
	if err := uow.UserRepository().SetClanTag(ctx, founderID, serverID, tag); err != nil {
		return nil, fmt.Errorf("failed to set founder clan tag: %w", err)
	}

	if err := s.recomputeStats(ctx, uow, clan); err != nil {
		return nil, err
	}

	uow.EventBus().Publish(events.ClanCreatedEvent{
		ClanID:    clan.ClanID,
		ServerID:  serverID,
		Tag:       tag,
		FounderID: founderID,
	})

	if err := uow.Commit(); err != nil {
		return nil, fmt.Errorf("failed to commit transaction: %w", err)
	}

	return clan, nil
}

// JoinClan adds a user to an existing clan and sets their clan tag
func (s *clanService) JoinClan(ctx context.Context, serverID, userID, tag string) (*models.Clan, error) {
	uow := s.uowFactory.Create()
	if err := uow.Begin(ctx); err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer uow.Rollback()

	state, err := serverStateOf(ctx, uow, userID, serverID)
	if err != nil {
		return nil, err
	}

	inClan, err := s.repairedClanTag(ctx, uow, userID, serverID, state)
	if err != nil {
		return nil, err
	}
	if inClan != "" {
		return nil, fmt.Errorf("user %q has tag %q: %w", userID, inClan, models.ErrUserAlreadyInClan)
	}

	clan, err := uow.ClanRepository().GetByTag(ctx, serverID, tag)
	if err != nil {
		return nil, fmt.Errorf("failed to get clan: %w", err)
	}
	if clan == nil {
		return nil, fmt.Errorf("tag %q on server %q: %w", tag, serverID, models.ErrClanNotFound)
	}
	if len(clan.Members) == 0 {
		return nil, fmt.Errorf("clan %q has no members: %w", clan.ClanID, models.ErrCorruptedClan)
	}

	if err := uow.ClanRepository().AddMember(ctx, clan.ClanID, userID, s.now()); err != nil {
		return nil, fmt.Errorf("failed to add member: %w", err)
	}
	clan.AddMember(userID)

	if err := uow.UserRepository().SetClanTag(ctx, userID, serverID, tag); err != nil {
		return nil, fmt.Errorf("failed to set clan tag: %w", err)
	}

	if err := s.recomputeStats(ctx, uow, clan); err != nil {
		return nil, err
	}

	if err := uow.Commit(); err != nil {
		return nil, fmt.Errorf("failed to commit transaction: %w", err)
	}

	return clan, nil
}

// LeaveClan removes a user from their clan. Leadership is reassigned to the
// lexicographically smallest remaining member; a clan whose member set
// becomes empty is dissolved.
func (s *clanService) LeaveClan(ctx context.Context, serverID, userID string) error {
	uow := s.uowFactory.Create()
	if err := uow.Begin(ctx); err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer uow.Rollback()

	state, err := serverStateOf(ctx, uow, userID, serverID)
	if err != nil {
		return err
	}
	if state.ClanTag == "" {
		return fmt.Errorf("user %q on server %q: %w", userID, serverID, models.ErrUserNotInClan)
	}

	clan, err := uow.ClanRepository().GetByTag(ctx, serverID, state.ClanTag)
	if err != nil {
		return fmt.Errorf("failed to get clan: %w", err)
	}
	if clan == nil || !clan.HasMember(userID) {
		// The tag points at a dissolved clan or a clan that no longer
		// lists this user. Repair the dangling reference and report the
		// user as not in a clan.
		if err := uow.UserRepository().SetClanTag(ctx, userID, serverID, ""); err != nil {
			return fmt.Errorf("failed to clear dangling clan tag: %w", err)
		}
		if err := uow.Commit(); err != nil {
			return fmt.Errorf("failed to commit transaction: %w", err)
		}
		return fmt.Errorf("user %q on server %q: %w", userID, serverID, models.ErrUserNotInClan)
	}

	if err := uow.ClanRepository().RemoveMember(ctx, clan.ClanID, userID); err != nil {
		return fmt.Errorf("failed to remove member: %w", err)
	}
	clan.RemoveMember(userID)

	if err := uow.UserRepository().SetClanTag(ctx, userID, serverID, ""); err != nil {
		return fmt.Errorf("failed to clear clan tag: %w", err)
	}

	if len(clan.Members) == 0 {
		if err := uow.ClanRepository().Delete(ctx, clan.ClanID); err != nil {
			return fmt.Errorf("failed to dissolve clan: %w", err)
		}
		uow.EventBus().Publish(events.ClanDissolvedEvent{
			ClanID:   clan.ClanID,
			ServerID: serverID,
			Tag:      clan.Tag,
		})
	} else {
		if clan.LeaderID == userID {
			newLeader := clan.NextLeader(userID)
			if err := uow.ClanRepository().UpdateLeader(ctx, clan.ClanID, newLeader); err != nil {
				return fmt.Errorf("failed to reassign leader: %w", err)
			}
			clan.LeaderID = newLeader
		}
		if err := s.recomputeStats(ctx, uow, clan); err != nil {
			return err
		}
	}

	if err := uow.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}

	return nil
}

// GetClan retrieves a clan with freshly derived stats
func (s *clanService) GetClan(ctx context.Context, serverID, tag string) (*models.Clan, error) {
	uow := s.uowFactory.Create()
	if err := uow.Begin(ctx); err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer uow.Rollback()

	clan, err := uow.ClanRepository().GetByTag(ctx, serverID, tag)
	if err != nil {
		return nil, fmt.Errorf("failed to get clan: %w", err)
	}
	if clan == nil {
		return nil, fmt.Errorf("tag %q on server %q: %w", tag, serverID, models.ErrClanNotFound)
	}

	if err := s.recomputeStats(ctx, uow, clan); err != nil {
		return nil, err
	}

	return clan, nil
}

// ListClansForServer returns all clans on a server with derived stats
func (s *clanService) ListClansForServer(ctx context.Context, serverID string) ([]*models.Clan, error) {
	uow := s.uowFactory.Create()
	if err := uow.Begin(ctx); err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer uow.Rollback()

	clans, err := uow.ClanRepository().ListByServer(ctx, serverID)
	if err != nil {
		return nil, fmt.Errorf("failed to list clans: %w", err)
	}

	for _, clan := range clans {
		if err := s.recomputeStats(ctx, uow, clan); err != nil {
			return nil, err
		}
	}

	return clans, nil
}

// ClanStatsForServer aggregates the clan economy of one server. Richest and
// largest rankings break ties by clan ID ascending.
func (s *clanService) ClanStatsForServer(ctx context.Context, serverID string) (*models.ServerClanStats, error) {
	clans, err := s.ListClansForServer(ctx, serverID)
	if err != nil {
		return nil, err
	}

	stats := &models.ServerClanStats{TotalClans: len(clans)}
	entries := make([]*models.ClanLeaderboardEntry, 0, len(clans))
	for _, clan := range clans {
		stats.TotalMembers += clan.Stats.TotalMembers
		stats.TotalWealth += clan.Stats.TotalWealth
		entries = append(entries, &models.ClanLeaderboardEntry{
			ClanID:       clan.ClanID,
			Name:         clan.Name,
			Tag:          clan.Tag,
			TotalMembers: clan.Stats.TotalMembers,
			TotalWealth:  clan.Stats.TotalWealth,
		})
	}

	stats.Richest = rankClans(entries, func(a, b *models.ClanLeaderboardEntry) bool {
		if a.TotalWealth != b.TotalWealth {
			return a.TotalWealth > b.TotalWealth
		}
		return a.ClanID < b.ClanID
	})
	stats.Largest = rankClans(entries, func(a, b *models.ClanLeaderboardEntry) bool {
		if a.TotalMembers != b.TotalMembers {
			return a.TotalMembers > b.TotalMembers
		}
		return a.ClanID < b.ClanID
	})

	return stats, nil
}

// rankClans sorts a copy of entries and assigns 1-based ranks
func rankClans(entries []*models.ClanLeaderboardEntry, less func(a, b *models.ClanLeaderboardEntry) bool) []*models.ClanLeaderboardEntry {
	ranked := make([]*models.ClanLeaderboardEntry, len(entries))
	for i, e := range entries {
		cp := *e
		ranked[i] = &cp
	}
	sort.Slice(ranked, func(i, j int) bool { return less(ranked[i], ranked[j]) })
	for i := range ranked {
		ranked[i].Rank = i + 1
	}
	return ranked
}

// recomputeStats walks the clan's current members, summing balances of
// active members through the store. Balance lookups always go through the
// unit of work, never cached copies.
func (s *clanService) recomputeStats(ctx context.Context, uow UnitOfWork, clan *models.Clan) error {
	var stats models.ClanStats
	for _, memberID := range clan.Members {
		member, err := uow.UserRepository().GetByID(ctx, memberID)
		if err != nil {
			return fmt.Errorf("failed to get member %q: %w", memberID, err)
		}
		if member == nil {
			continue
		}
		state := member.ServerState(clan.ServerID)
		if state == nil {
			continue
		}
		stats.TotalMembers++
		if state.IsActive {
			stats.ActiveMembers++
			stats.TotalWealth += state.Balance
		}
	}
	if stats.ActiveMembers > 0 {
		stats.AverageBalance = stats.TotalWealth / int64(stats.ActiveMembers)
	}
	clan.Stats = stats
	return nil
}

// repairedClanTag returns the user's effective clan tag, clearing it first
// when it references a clan that no longer exists or no longer lists the
// user (a concurrent dissolution raced a read)
func (s *clanService) repairedClanTag(ctx context.Context, uow UnitOfWork, userID, serverID string, state *models.ServerState) (string, error) {
	if state.ClanTag == "" {
		return "", nil
	}

	clan, err := uow.ClanRepository().GetByTag(ctx, serverID, state.ClanTag)
	if err != nil {
		return "", fmt.Errorf("failed to check clan tag: %w", err)
	}
	if clan != nil && clan.HasMember(userID) {
		return state.ClanTag, nil
	}

	log.WithFields(log.Fields{
		"userID":   userID,
		"serverID": serverID,
		"clanTag":  state.ClanTag,
	}).Warn("Clearing dangling clan tag")

	if err := uow.UserRepository().SetClanTag(ctx, userID, serverID, ""); err != nil {
		return "", fmt.Errorf("failed to clear dangling clan tag: %w", err)
	}
	state.ClanTag = ""
	return "", nil
}
