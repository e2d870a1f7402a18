package events

import (
	"context"
	"sync"

	"fortune/models"

	log "github.com/sirupsen/logrus"
)

// EventType represents different types of events in the system
type EventType string

const (
	EventTypeTicketSold                EventType = "ticket_sold"
	EventTypeBookCreated               EventType = "book_created"
	EventTypeSettlementRequested       EventType = "settlement_requested"
	EventTypeSettlementConfirmed       EventType = "settlement_confirmed"
	EventTypeBalanceChange             EventType = "balance_change"
	EventTypeReferralBonusCredited     EventType = "referral_bonus_credited"
	EventTypeCancellationStatusChanged EventType = "cancellation_status_changed"
)

// AllEventTypes lists every event type emitted by the services
var AllEventTypes = []EventType{
	EventTypeTicketSold,
	EventTypeBookCreated,
	EventTypeSettlementRequested,
	EventTypeSettlementConfirmed,
	EventTypeBalanceChange,
	EventTypeReferralBonusCredited,
	EventTypeCancellationStatusChanged,
}

// Event is the base interface for all events
type Event interface {
	Type() EventType
}

// TicketSoldEvent is emitted after a ticket leaves the available state
type TicketSoldEvent struct {
	GameID       int64
	TicketNumber int64
	Channel      models.Channel
	SaleSeq      int64 // Zero for offline sales
	CounterValue int64 // Fortune counter after the sale
	Version      int64
}

func (e TicketSoldEvent) Type() EventType {
	return EventTypeTicketSold
}

// BookCreatedEvent is emitted after a book and its tickets are registered
type BookCreatedEvent struct {
	GameID      int64
	BookID      int64
	BookName    string
	TicketCount int64
	Version     int64
}

func (e BookCreatedEvent) Type() EventType {
	return EventTypeBookCreated
}

// SettlementRequestedEvent is emitted when an admin opens a settlement request
type SettlementRequestedEvent struct {
	GameID      int64
	RequestID   string
	TicketCount int64
	AmountDue   string
	Version     int64
}

func (e SettlementRequestedEvent) Type() EventType {
	return EventTypeSettlementRequested
}

// SettlementConfirmedEvent is emitted when the organizer confirms a settlement
type SettlementConfirmedEvent struct {
	GameID         int64
	RequestID      string
	SettledTickets int64
	CounterValue   int64
	Version        int64
}

func (e SettlementConfirmedEvent) Type() EventType {
	return EventTypeSettlementConfirmed
}

// BalanceChangeEvent represents a wallet balance change that occurred
type BalanceChangeEvent struct {
	UserID       string
	OldBalance   int64
	NewBalance   int64
	ChangeAmount int64
	Reason       models.WalletReason
}

func (e BalanceChangeEvent) Type() EventType {
	return EventTypeBalanceChange
}

// ReferralBonusCreditedEvent is emitted once per referral link when its bonus is paid
type ReferralBonusCreditedEvent struct {
	LinkID         string
	ReferrerUserID string
	ReferredUserID string
	Amount         int64
}

func (e ReferralBonusCreditedEvent) Type() EventType {
	return EventTypeReferralBonusCredited
}

// CancellationStatusChangedEvent is emitted when a cancellation is opened or moves state
type CancellationStatusChangedEvent struct {
	CancellationID string
	BookingID      string
	Status         models.CancellationStatus
}

func (e CancellationStatusChangedEvent) Type() EventType {
	return EventTypeCancellationStatusChanged
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

// SubscribeAll adds a handler for every known event type
func (b *Bus) SubscribeAll(handler Handler) {
	for _, eventType := range AllEventTypes {
		b.Subscribe(eventType, handler)
	}
}

// Emit publishes an event to all registered handlers
func (b *Bus) Emit(ctx context.Context, event Event) {
	b.mu.RLock()
	handlers := make([]Handler, len(b.handlers[event.Type()]))
	copy(handlers, b.handlers[event.Type()])
	b.mu.RUnlock()

	log.WithFields(log.Fields{
		"eventType":    event.Type(),
		"handlerCount": len(handlers),
	}).Debug("Emitting event to handlers")

	// Call handlers asynchronously to avoid blocking the committing request
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

// TransactionalBus holds events raised inside a unit of work until it commits.
type TransactionalBus struct {
	real    *Bus
	pending []Event
}

func NewTransactionalBus(real *Bus) *TransactionalBus {
	return &TransactionalBus{real: real}
}

// Publish stashes an event until Flush
func (b *TransactionalBus) Publish(e Event) {
	b.pending = append(b.pending, e)
}

// Pending returns the events stashed so far
func (b *TransactionalBus) Pending() []Event {
	return b.pending
}

// Flush emits the stashed events; called after a successful commit.
func (b *TransactionalBus) Flush(ctx context.Context) error {
	log.WithField("pendingEventCount", len(b.pending)).Debug("Flushing pending events")

	// Handlers must outlive the request whose transaction produced the event
	eventCtx := context.WithoutCancel(ctx)

	for _, ev := range b.pending {
		if b.real != nil {
			b.real.Emit(eventCtx, ev)
		}
	}
	b.pending = nil
	return nil
}

// Discard drops the stashed events; called after a rollback.
func (b *TransactionalBus) Discard() {
	b.pending = nil
}
