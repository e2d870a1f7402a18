package infrastructure

import (
	"fmt"

	"fortune/events"
)

// DomainEventStream is the JetStream stream carrying every domain event subject
const DomainEventStream = "fortune_events"

var eventSubjects = map[events.EventType]string{
	events.EventTypeTicketSold:                "fortune.tickets.sold",
	events.EventTypeBookCreated:               "fortune.books.created",
	events.EventTypeSettlementRequested:       "fortune.settlements.requested",
	events.EventTypeSettlementConfirmed:       "fortune.settlements.confirmed",
	events.EventTypeBalanceChange:             "fortune.wallet.balance_changed",
	events.EventTypeReferralBonusCredited:     "fortune.referrals.bonus_credited",
	events.EventTypeCancellationStatusChanged: "fortune.cancellations.status_changed",
}

// EventSubjectMapper handles mapping between domain events and NATS subjects
type EventSubjectMapper struct{}

// NewEventSubjectMapper creates a new event subject mapper
func NewEventSubjectMapper() *EventSubjectMapper {
	return &EventSubjectMapper{}
}

// MapEventToSubject converts a domain event to its corresponding NATS subject
func (m *EventSubjectMapper) MapEventToSubject(event events.Event) string {
	if subject, ok := eventSubjects[event.Type()]; ok {
		return subject
	}
	return fmt.Sprintf("fortune.unknown.%s", event.Type())
}

// MapSubjectToEventType converts a NATS subject back to an event type
func (m *EventSubjectMapper) MapSubjectToEventType(subject string) events.EventType {
	for eventType, s := range eventSubjects {
		if s == subject {
			return eventType
		}
	}
	return events.EventType(subject)
}

// GetAllSubjects returns all subjects that this service publishes to, in event type order
func (m *EventSubjectMapper) GetAllSubjects() []string {
	subjects := make([]string, 0, len(events.AllEventTypes))
	for _, eventType := range events.AllEventTypes {
		subjects = append(subjects, eventSubjects[eventType])
	}
	return subjects
}
