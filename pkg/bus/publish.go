package bus

import (
	"context"
	"reflect"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"

	"github.com/jesuscorral/ticketwave/pkg/events"
)

// Publish serializes the event and sends it to the topic exchange with
// routing key = the event's eventType. It returns once the broker confirms
// receipt of this exact message, not once any consumer has processed it.
// Each publish holds its own deferred confirmation, so concurrent publishes
// cannot take each other's ack. Blocks until the connection is up, bounded
// by ConnectTimeout.
func (b *Bus) Publish(ctx context.Context, e events.Integration) error {
	waitCtx, cancel := context.WithTimeout(ctx, b.cfg.ConnectTimeout)
	defer cancel()
	if err := b.waitReady(waitCtx); err != nil {
		return err
	}

	body, err := events.Encode(e)
	if err != nil {
		return err
	}
	pub := buildPublishing(e, body)

	b.mu.Lock()
	if b.closed {
		b.mu.Unlock()
		return &TransportError{Op: "publish", Err: errClosed}
	}
	ch := b.pubCh
	dc, err := ch.PublishWithDeferredConfirmWithContext(ctx, b.cfg.Exchange, e.RoutingKey(), false, false, pub)
	b.mu.Unlock()
	if err != nil {
		return &TransportError{Op: "publish " + e.RoutingKey(), Err: err}
	}

	return awaitConfirm(ctx, dc, b.cfg.PublishTimeout, "publish "+e.RoutingKey())
}

// confirmation is the slice of amqp.DeferredConfirmation the wait needs.
type confirmation interface {
	Done() <-chan struct{}
	Acked() bool
}

func awaitConfirm(ctx context.Context, dc confirmation, timeout time.Duration, op string) error {
	select {
	case <-dc.Done():
		if !dc.Acked() {
			return &TransportError{Op: op, Err: errNotConfirmed}
		}
		return nil
	case <-time.After(timeout):
		return &TransportError{Op: op, Err: errConfirmTimeout}
	case <-ctx.Done():
		return &TransportError{Op: op, Err: ctx.Err()}
	}
}

// buildPublishing maps the event to its wire message. Type carries the
// event's Go type name; the eventType header duplicates the body's routing
// discriminator so consumers can filter without deserializing.
func buildPublishing(e events.Integration, body []byte) amqp.Publishing {
	meta := e.Meta()
	return amqp.Publishing{
		ContentType:  "application/json",
		DeliveryMode: amqp.Persistent,
		MessageId:    meta.ID,
		Timestamp:    meta.OccurredAt,
		Type:         typeName(e),
		Headers: amqp.Table{
			"source":    meta.Source,
			"eventType": meta.EventType,
		},
		Body: body,
	}
}

func typeName(e events.Integration) string {
	t := reflect.TypeOf(e)
	for t.Kind() == reflect.Ptr {
		t = t.Elem()
	}
	return t.Name()
}
