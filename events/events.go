package events

import (
	"context"
	"sync"

	"coffers/models"
	log "github.com/sirupsen/logrus"
)

// EventType represents different types of events in the system
type EventType string

const (
	EventTypeBalanceChange  EventType = "balance_change"
	EventTypeUserRegistered EventType = "user_registered"
	EventTypeClanCreated    EventType = "clan_created"
	EventTypeClanDissolved  EventType = "clan_dissolved"
	EventTypeGamePlayed     EventType = "game_played"
)

// Event is the base interface for all events
type Event interface {
	Type() EventType
}

// BalanceChangeEvent represents a balance change that occurred
type BalanceChangeEvent struct {
	UserID          string
	ServerID        string
	OldBalance      int64
	NewBalance      int64
	TransactionType models.TransactionType
	ChangeAmount    int64
}

func (e BalanceChangeEvent) Type() EventType {
	return EventTypeBalanceChange
}

// UserRegisteredEvent represents a user joining a server's economy
type UserRegisteredEvent struct {
	UserID   string
	ServerID string
	Nickname string
}

func (e UserRegisteredEvent) Type() EventType {
	return EventTypeUserRegistered
}

// ClanCreatedEvent represents a newly founded clan
type ClanCreatedEvent struct {
	ClanID    string
	ServerID  string
	Tag       string
	FounderID string
}

func (e ClanCreatedEvent) Type() EventType {
	return EventTypeClanCreated
}

// ClanDissolvedEvent represents a clan whose member set became empty
type ClanDissolvedEvent struct {
	ClanID   string
	ServerID string
	Tag      string
}

func (e ClanDissolvedEvent) Type() EventType {
	return EventTypeClanDissolved
}

// GamePlayedEvent represents a resolved gambling game
type GamePlayedEvent struct {
	UserID   string
	ServerID string
	GameType models.GameType
	Bet      int64
	Winnings int64
}

func (e GamePlayedEvent) Type() EventType {
	return EventTypeGamePlayed
}

// Handler is a function that handles events
type Handler func(ctx context.Context, event Event)

// Bus manages event subscriptions and dispatching
type Bus struct {
	mu       sync.RWMutex
	handlers map[EventType][]Handler
}

// NewBus creates a new event bus
func NewBus() *Bus {
	return &Bus{
		handlers: make(map[EventType][]Handler),
	}
}

// Subscribe adds a handler for a specific event type
func (b *Bus) Subscribe(eventType EventType, handler Handler) {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.handlers[eventType] = append(b.handlers[eventType], handler)

	log.WithFields(log.Fields{
		"eventType":    eventType,
		"handlerCount": len(b.handlers[eventType]),
	}).Debug("Subscribed handler to event type")
}

// Emit publishes an event to all registered handlers
func (b *Bus) Emit(ctx context.Context, event Event) {
	b.mu.RLock()
	handlers := make([]Handler, len(b.handlers[event.Type()]))
	copy(handlers, b.handlers[event.Type()])
	b.mu.RUnlock()

	// Handlers run asynchronously so emitters are never blocked
	for i, handler := range handlers {
		go func(h Handler, handlerIndex int) {
			defer func() {
				if r := recover(); r != nil {
					log.WithFields(log.Fields{
						"eventType":    event.Type(),
						"handlerIndex": handlerIndex,
						"panic":        r,
					}).Error("Event handler panicked")
				}
			}()
			h(ctx, event)
		}(handler, i)
	}
}

// TransactionalBus stashes events published during a unit of work and only
// forwards them to the real bus once the transaction commits.
type TransactionalBus struct {
	real    *Bus
	pending []Event
}

func NewTransactionalBus(real *Bus) *TransactionalBus {
	return &TransactionalBus{real: real}
}

func (b *TransactionalBus) Publish(e Event) {
	b.pending = append(b.pending, e)
}

// Flush emits pending events after a successful commit. Uses a background
// context so event delivery is decoupled from the transaction lifecycle.
func (b *TransactionalBus) Flush(ctx context.Context) error {
	eventCtx := context.Background()
	for _, ev := range b.pending {
		b.real.Emit(eventCtx, ev)
	}
	b.pending = nil
	return nil
}

// Discard drops pending events after a rollback
func (b *TransactionalBus) Discard() {
	b.pending = nil
}
