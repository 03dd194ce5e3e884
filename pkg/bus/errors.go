package bus

import "fmt"

// TransportError wraps broker-level failures: connection lost, publish
// rejected, topology declaration refused. Retried at the connection level by
// the reconnect loop; surfaced to the caller once attempts are exhausted.
type TransportError struct {
	Op  string
	Err error
}

func (e *TransportError) Error() string {
	if e.Err == nil {
		return fmt.Sprintf("bus: %s failed", e.Op)
	}
	return fmt.Sprintf("bus: %s failed: %v", e.Op, e.Err)
}

func (e *TransportError) Unwrap() error { return e.Err }

// PoisonMessageError marks a delivery the handler cannot ever process. The
// consumer loop dead-letters it immediately instead of requeueing.
type PoisonMessageError struct {
	RoutingKey string
	MessageID  string
	Err        error
}

func (e *PoisonMessageError) Error() string {
	return fmt.Sprintf("bus: poison message %s on %s: %v", e.MessageID, e.RoutingKey, e.Err)
}

func (e *PoisonMessageError) Unwrap() error { return e.Err }
