package outbox

import (
	"encoding/json"
	"time"

	"github.com/Shubhamjamliya/Today-My-Dreams-sub000/internal/domain/ledgerevent"
	"github.com/Shubhamjamliya/Today-My-Dreams-sub000/internal/domain/shared"
	"github.com/google/uuid"
)

// Message carries a ledger event from the mutating transaction to the poller.
type Message struct {
	ID            int64               `json:"id"`
	EventID       uuid.UUID           `json:"event_id"`
	SellerID      uuid.UUID           `json:"seller_id"`
	EventType     ledgerevent.Type    `json:"event_type"`
	Payload       json.RawMessage     `json:"payload"`
	Status        shared.OutboxStatus `json:"status"`
	Attempts      int                 `json:"attempts"`
	CreatedAt     time.Time           `json:"created_at"`
	LastAttemptAt *time.Time          `json:"last_attempt_at,omitempty"`
}

func NewMessage(event *ledgerevent.Event) (*Message, error) {
	payload, err := json.Marshal(event)
	if err != nil {
		return nil, err
	}

	return &Message{
		EventID:   event.EventID,
		SellerID:  event.SellerID,
		EventType: event.Type,
		Payload:   payload,
		Status:    shared.OutboxStatusPending,
		CreatedAt: time.Now().UTC(),
	}, nil
}

// IncrementAttempts mirrors a failed delivery recorded in the store.
func (m *Message) IncrementAttempts() {
	m.Attempts++
	now := time.Now().UTC()
	m.LastAttemptAt = &now
}

// Exhausted reports whether the message has used up maxAttempts deliveries.
func (m *Message) Exhausted(maxAttempts int) bool {
	return m.Attempts >= maxAttempts
}

// Event decodes the payload.
func (m *Message) Event() (*ledgerevent.Event, error) {
	var event ledgerevent.Event
	if err := json.Unmarshal(m.Payload, &event); err != nil {
		return nil, err
	}
	return &event, nil
}
