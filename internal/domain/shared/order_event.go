package shared

import (
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// OrderEventType is the lifecycle step reported by the order subsystem.
type OrderEventType string

const (
	OrderEventPaid      OrderEventType = "ORDER_PAID"
	OrderEventCompleted OrderEventType = "ORDER_COMPLETED"
	OrderEventRefunded  OrderEventType = "ORDER_REFUNDED"
)

var (
	ErrUnknownOrderEventType = errors.New("unknown order event type")
	ErrMissingOrderID        = errors.New("order_id is required")
	ErrMissingSellerID       = errors.New("seller_id is required")
)

// OrderEvent is consumed from Kafka. Amounts arrive as JSON strings or numbers
// in major units and are converted before reaching the ledger.
type OrderEvent struct {
	EventID        uuid.UUID       `json:"event_id"`
	Type           OrderEventType  `json:"type"`
	OrderID        string          `json:"order_id"`
	SellerID       uuid.UUID       `json:"seller_id"`
	OrderAmount    decimal.Decimal `json:"order_amount"`
	CommissionRate decimal.Decimal `json:"commission_rate"`
	CorrelationID  string          `json:"correlation_id,omitempty"`
	OccurredAt     time.Time       `json:"occurred_at"`
}

func (t OrderEventType) Valid() bool {
	switch t {
	case OrderEventPaid, OrderEventCompleted, OrderEventRefunded:
		return true
	}
	return false
}

// Validate checks the envelope. Amount and rate are validated by conversion.
func (e *OrderEvent) Validate() error {
	if !e.Type.Valid() {
		return ErrUnknownOrderEventType
	}
	if e.OrderID == "" {
		return ErrMissingOrderID
	}
	if e.SellerID == uuid.Nil {
		return ErrMissingSellerID
	}
	return nil
}

// Amounts returns the order amount in paise and the rate in basis points.
func (e *OrderEvent) Amounts() (orderAmount int64, rateBps int32, err error) {
	orderAmount, err = ToMinorUnits(e.OrderAmount)
	if err != nil {
		return 0, 0, err
	}
	rateBps, err = RateToBasisPoints(e.CommissionRate)
	if err != nil {
		return 0, 0, err
	}
	return orderAmount, rateBps, nil
}
