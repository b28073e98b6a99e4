package service

import (
	"context"
	"time"

	"coffers/events"
	"coffers/models"

	"github.com/stretchr/testify/mock"
)

// MockUserRepository is a mock implementation of UserRepository
type MockUserRepository struct {
	mock.Mock
}

func (m *MockUserRepository) GetByID(ctx context.Context, userID string) (*models.User, error) {
	args := m.Called(ctx, userID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.User), args.Error(1)
}

func (m *MockUserRepository) Create(ctx context.Context, user *models.User) error {
	args := m.Called(ctx, user)
	return args.Error(0)
}

func (m *MockUserRepository) GetUsersOnServer(ctx context.Context, serverID string) ([]*models.User, error) {
	args := m.Called(ctx, serverID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*models.User), args.Error(1)
}

func (m *MockUserRepository) TouchLastSeen(ctx context.Context, userID string, seenAt time.Time) error {
	args := m.Called(ctx, userID, seenAt)
	return args.Error(0)
}

func (m *MockUserRepository) CreateServerState(ctx context.Context, userID string, state *models.ServerState) error {
	args := m.Called(ctx, userID, state)
	return args.Error(0)
}

func (m *MockUserRepository) AddBalance(ctx context.Context, userID, serverID string, amount int64) error {
	args := m.Called(ctx, userID, serverID, amount)
	return args.Error(0)
}

func (m *MockUserRepository) DeductBalance(ctx context.Context, userID, serverID string, amount int64) error {
	args := m.Called(ctx, userID, serverID, amount)
	return args.Error(0)
}

func (m *MockUserRepository) SetClanTag(ctx context.Context, userID, serverID, tag string) error {
	args := m.Called(ctx, userID, serverID, tag)
	return args.Error(0)
}

func (m *MockUserRepository) RecordGamblingOutcome(ctx context.Context, userID, serverID string, bet, winnings int64, playedAt time.Time) error {
	args := m.Called(ctx, userID, serverID, bet, winnings, playedAt)
	return args.Error(0)
}

// MockClanRepository is a mock implementation of ClanRepository
type MockClanRepository struct {
	mock.Mock
}

func (m *MockClanRepository) Create(ctx context.Context, clan *models.Clan) error {
	args := m.Called(ctx, clan)
	return args.Error(0)
}

func (m *MockClanRepository) GetByID(ctx context.Context, clanID string) (*models.Clan, error) {
	args := m.Called(ctx, clanID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Clan), args.Error(1)
}

func (m *MockClanRepository) GetByTag(ctx context.Context, serverID, tag string) (*models.Clan, error) {
	args := m.Called(ctx, serverID, tag)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Clan), args.Error(1)
}

func (m *MockClanRepository) ListByServer(ctx context.Context, serverID string) ([]*models.Clan, error) {
	args := m.Called(ctx, serverID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*models.Clan), args.Error(1)
}

func (m *MockClanRepository) AddMember(ctx context.Context, clanID, userID string, joinedAt time.Time) error {
	args := m.Called(ctx, clanID, userID, joinedAt)
	return args.Error(0)
}

func (m *MockClanRepository) RemoveMember(ctx context.Context, clanID, userID string) error {
	args := m.Called(ctx, clanID, userID)
	return args.Error(0)
}

func (m *MockClanRepository) UpdateLeader(ctx context.Context, clanID, leaderID string) error {
	args := m.Called(ctx, clanID, leaderID)
	return args.Error(0)
}

func (m *MockClanRepository) Delete(ctx context.Context, clanID string) error {
	args := m.Called(ctx, clanID)
	return args.Error(0)
}

// MockBalanceHistoryRepository is a mock implementation of BalanceHistoryRepository
type MockBalanceHistoryRepository struct {
	mock.Mock
}

func (m *MockBalanceHistoryRepository) Record(ctx context.Context, history *models.BalanceHistory) error {
	args := m.Called(ctx, history)
	return args.Error(0)
}

func (m *MockBalanceHistoryRepository) GetByUser(ctx context.Context, userID, serverID string, limit int) ([]*models.BalanceHistory, error) {
	args := m.Called(ctx, userID, serverID, limit)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*models.BalanceHistory), args.Error(1)
}

// MockGameRepository is a mock implementation of GameRepository
type MockGameRepository struct {
	mock.Mock
}

func (m *MockGameRepository) Create(ctx context.Context, game *models.GameRecord) error {
	args := m.Called(ctx, game)
	return args.Error(0)
}

func (m *MockGameRepository) GetByUser(ctx context.Context, userID, serverID string, limit int) ([]*models.GameRecord, error) {
	args := m.Called(ctx, userID, serverID, limit)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*models.GameRecord), args.Error(1)
}

// MockEventPublisher is a mock implementation of EventPublisher for testing
type MockEventPublisher struct {
	mock.Mock
}

func (m *MockEventPublisher) Publish(event events.Event) {
	m.Called(event)
}

// RecordingEventPublisher collects events for assertions without mock setup
type RecordingEventPublisher struct {
	Events []events.Event
}

func (p *RecordingEventPublisher) Publish(event events.Event) {
	p.Events = append(p.Events, event)
}

// MockUnitOfWork is a mock implementation of UnitOfWork. Repositories are
// injected with SetRepositories; Begin/Commit/Rollback are regular testify
// expectations.
type MockUnitOfWork struct {
	mock.Mock
	userRepo    UserRepository
	clanRepo    ClanRepository
	historyRepo BalanceHistoryRepository
	gameRepo    GameRepository
	eventBus    EventPublisher
}

func (m *MockUnitOfWork) SetRepositories(user UserRepository, clan ClanRepository, history BalanceHistoryRepository, game GameRepository, bus EventPublisher) {
	m.userRepo = user
	m.clanRepo = clan
	m.historyRepo = history
	m.gameRepo = game
	if bus == nil {
		bus = &RecordingEventPublisher{}
	}
	m.eventBus = bus
}

func (m *MockUnitOfWork) Begin(ctx context.Context) error {
	args := m.Called(ctx)
	return args.Error(0)
}

func (m *MockUnitOfWork) Commit() error {
	args := m.Called()
	return args.Error(0)
}

func (m *MockUnitOfWork) Rollback() error {
	args := m.Called()
	return args.Error(0)
}

func (m *MockUnitOfWork) UserRepository() UserRepository {
	return m.userRepo
}

func (m *MockUnitOfWork) ClanRepository() ClanRepository {
	return m.clanRepo
}

func (m *MockUnitOfWork) BalanceHistoryRepository() BalanceHistoryRepository {
	return m.historyRepo
}

func (m *MockUnitOfWork) GameRepository() GameRepository {
	return m.gameRepo
}

func (m *MockUnitOfWork) EventBus() EventPublisher {
	return m.eventBus
}

// MockUnitOfWorkFactory is a mock implementation of UnitOfWorkFactory
type MockUnitOfWorkFactory struct {
	mock.Mock
}

func (m *MockUnitOfWorkFactory) Create() UnitOfWork {
	args := m.Called()
	return args.Get(0).(UnitOfWork)
}
