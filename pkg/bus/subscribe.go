package bus

import (
	"context"
	"errors"

	amqp "github.com/rabbitmq/amqp091-go"
)

var (
	errNotConfirmed   = errors.New("message published but not confirmed")
	errConfirmTimeout = errors.New("publish confirmation timeout")
)

// Subscribe declares a durable queue bound to the shared topic exchange with
// routing key = eventType and registers handler as its sole consumer. Each
// subscription runs its own worker, so a stuck consumer for one event type
// never blocks the others. Blocks until the connection is up, bounded by
// ConnectTimeout.
func (b *Bus) Subscribe(ctx context.Context, eventType string, handler Handler) error {
	waitCtx, cancel := context.WithTimeout(ctx, b.cfg.ConnectTimeout)
	defer cancel()
	if err := b.waitReady(waitCtx); err != nil {
		return err
	}

	sub := subscription{eventType: eventType, handler: handler}
	b.mu.Lock()
	if b.closed {
		b.mu.Unlock()
		return &TransportError{Op: "subscribe", Err: errClosed}
	}
	b.subs = append(b.subs, sub)
	b.mu.Unlock()

	return b.startConsumer(ctx, sub)
}

func (b *Bus) queueName(eventType string) string {
	return b.cfg.QueuePrefix + eventType
}

// startConsumer sets up the queue topology on a fresh channel and starts the
// consume loop. Called on Subscribe and again after every reconnect.
func (b *Bus) startConsumer(ctx context.Context, sub subscription) error {
	b.mu.Lock()
	conn := b.conn
	b.mu.Unlock()

	ch, err := conn.Channel()
	if err != nil {
		return &TransportError{Op: "open consumer channel", Err: err}
	}
	if err := ch.Qos(b.cfg.Prefetch, 0, false); err != nil {
		_ = ch.Close()
		return &TransportError{Op: "set qos", Err: err}
	}

	queue := b.queueName(sub.eventType)
	args := amqp.Table{
		"x-dead-letter-exchange":    b.cfg.DLX,
		"x-dead-letter-routing-key": sub.eventType,
	}
	if b.cfg.MessageTTL > 0 {
		args["x-message-ttl"] = b.cfg.MessageTTL.Milliseconds()
	}
	if _, err := ch.QueueDeclare(queue, true, false, false, false, args); err != nil {
		_ = ch.Close()
		return &TransportError{Op: "declare queue " + queue, Err: err}
	}
	if err := ch.QueueBind(queue, sub.eventType, b.cfg.Exchange, false, nil); err != nil {
		_ = ch.Close()
		return &TransportError{Op: "bind " + queue, Err: err}
	}

	// Dead-letter queue for manual inspection of messages this consumer
	// could not process.
	dlq := queue + ".dlq"
	if _, err := ch.QueueDeclare(dlq, true, false, false, false, nil); err != nil {
		_ = ch.Close()
		return &TransportError{Op: "declare dlq " + dlq, Err: err}
	}
	if err := ch.QueueBind(dlq, sub.eventType, b.cfg.DLX, false, nil); err != nil {
		_ = ch.Close()
		return &TransportError{Op: "bind dlq " + dlq, Err: err}
	}

	msgs, err := ch.ConsumeWithContext(ctx, queue, b.cfg.Source+"."+sub.eventType, false, false, false, false, nil)
	if err != nil {
		_ = ch.Close()
		return &TransportError{Op: "consume " + queue, Err: err}
	}

	b.wg.Add(1)
	go func() {
		defer b.wg.Done()
		defer ch.Close()
		b.consumeLoop(ctx, sub, msgs)
	}()
	b.log.Info().Str("queue", queue).Str("eventType", sub.eventType).Msg("consumer started")
	return nil
}

func (b *Bus) consumeLoop(ctx context.Context, sub subscription, msgs <-chan amqp.Delivery) {
	for {
		select {
		case <-ctx.Done():
			return
		case d, ok := <-msgs:
			if !ok {
				// Channel died; the reconnect watcher re-establishes us.
				return
			}
			err := sub.handler(ctx, d.Body)
			if err == nil {
				_ = d.Ack(false)
				continue
			}
			requeue := requeueOnError(err, d.Redelivered)
			b.log.Error().Err(err).
				Str("eventType", sub.eventType).
				Str("messageId", d.MessageId).
				Bool("requeue", requeue).
				Msg("handler failed")
			_ = d.Nack(false, requeue)
		}
	}
}

// requeueOnError decides the nack mode: poison messages and already
// redelivered failures go to the dead-letter exchange, a first failure gets
// one more chance. The broker itself is the retry mechanism; no per-message
// count is tracked.
func requeueOnError(err error, redelivered bool) bool {
	var poison *PoisonMessageError
	if errors.As(err, &poison) {
		return false
	}
	return !redelivered
}

// Poison wraps err so the consumer loop dead-letters the delivery without a
// requeue round.
func Poison(routingKey, messageID string, err error) error {
	return &PoisonMessageError{RoutingKey: routingKey, MessageID: messageID, Err: err}
}
