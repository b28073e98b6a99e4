package service

import (
	"time"

	"coffers/events"
	"coffers/models"

	"github.com/stretchr/testify/mock"
)

// mockDeps bundles a fully wired mock unit of work for service tests
type mockDeps struct {
	factory *MockUnitOfWorkFactory
	uow     *MockUnitOfWork
	users   *MockUserRepository
	clans   *MockClanRepository
	history *MockBalanceHistoryRepository
	games   *MockGameRepository
	bus     *RecordingEventPublisher
}

func newMockDeps() *mockDeps {
	d := &mockDeps{
		factory: &MockUnitOfWorkFactory{},
		uow:     &MockUnitOfWork{},
		users:   &MockUserRepository{},
		clans:   &MockClanRepository{},
		history: &MockBalanceHistoryRepository{},
		games:   &MockGameRepository{},
		bus:     &RecordingEventPublisher{},
	}
	d.uow.SetRepositories(d.users, d.clans, d.history, d.games, d.bus)
	d.factory.On("Create").Return(d.uow)
	d.uow.On("Begin", mock.Anything).Return(nil)
	d.uow.On("Commit").Return(nil).Maybe()
	d.uow.On("Rollback").Return(nil).Maybe()
	return d
}

// eventsOfType filters the recorded events down to one type
func (d *mockDeps) eventsOfType(et events.EventType) []events.Event {
	var out []events.Event
	for _, e := range d.bus.Events {
		if e.Type() == et {
			out = append(out, e)
		}
	}
	return out
}

// userOnServer builds a user registered on serverID with the given balance
func userOnServer(userID, serverID string, balance int64) *models.User {
	now := time.Now()
	return &models.User{
		UserID:       userID,
		Nickname:     userID,
		Preferences:  models.DefaultPreferences(),
		RegisteredAt: now,
		LastSeen:     now,
		Servers: map[string]*models.ServerState{
			serverID: {
				ServerID: serverID,
				Balance:  balance,
				JoinedAt: now,
				IsActive: true,
			},
		},
	}
}
