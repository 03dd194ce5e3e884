package events

import (
	"encoding/json"
	"fmt"
	"sync"
)

var (
	mu       sync.RWMutex
	registry = map[string]func() Integration{}
)

// Register maps a routing key to a factory for its concrete event type.
// Panics on duplicate registration; registration happens at init time.
func Register(key string, fn func() Integration) {
	if fn == nil {
		panic("events: nil factory for " + key)
	}
	mu.Lock()
	defer mu.Unlock()
	if _, exists := registry[key]; exists {
		panic(fmt.Sprintf("events: %s already registered", key))
	}
	registry[key] = fn
}

// New returns a zero instance of the event registered under key.
func New(key string) (Integration, error) {
	mu.RLock()
	fn, ok := registry[key]
	mu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("events: unknown event type %q", key)
	}
	return fn(), nil
}

// Encode serializes an integration event to its wire body.
func Encode(e Integration) ([]byte, error) {
	b, err := json.Marshal(e)
	if err != nil {
		return nil, fmt.Errorf("encode %s: %w", e.Meta().EventType, err)
	}
	return b, nil
}

// Decode unmarshals a wire body into the type registered for key.
func Decode(key string, body []byte) (Integration, error) {
	e, err := New(key)
	if err != nil {
		return nil, err
	}
	if err := json.Unmarshal(body, e); err != nil {
		return nil, fmt.Errorf("decode %s: %w", key, err)
	}
	return e, nil
}

// Unmarshal decodes a payload into a concrete event type.
func Unmarshal[T any](body []byte) (T, error) {
	var t T
	if err := json.Unmarshal(body, &t); err != nil {
		var zero T
		return zero, fmt.Errorf("decode payload failed: %w", err)
	}
	return t, nil
}

func init() {
	Register(RKBookingCreated, func() Integration { return &BookingCreated{} })
	Register(RKBookingConfirmed, func() Integration { return &BookingConfirmed{} })
	Register(RKBookingCancelled, func() Integration { return &BookingCancelled{} })
	Register(RKBookingExpired, func() Integration { return &BookingExpired{} })
	Register(RKInventoryUpdateRequested, func() Integration { return &UpdateEventInventory{} })
	Register(RKInventoryUpdated, func() Integration { return &EventInventoryUpdated{} })
	Register(RKInventoryUpdateFailed, func() Integration { return &EventInventoryUpdateFailed{} })
	Register(RKNotificationRequested, func() Integration { return &SendBookingNotification{} })
	Register(RKPaymentPrepareRequested, func() Integration { return &PreparePaymentData{} })
	Register(RKPaymentCompleted, func() Integration { return &PaymentCompleted{} })
	Register(RKPaymentFailed, func() Integration { return &PaymentFailed{} })
}
