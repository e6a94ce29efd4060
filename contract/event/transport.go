package event

import "context"

// ReliabilityLevel describes the delivery guarantee a transport offers.
type ReliabilityLevel int

const (
	// ReliabilityNone is fire-and-forget: no acknowledgement, no replay.
	ReliabilityNone ReliabilityLevel = iota
	// ReliabilityStreaming is backed by a partitioned, retained log.
	ReliabilityStreaming
)

func (l ReliabilityLevel) String() string {
	switch l {
	case ReliabilityStreaming:
		return "streaming"
	default:
		return "none"
	}
}

// Transport forwards envelopes to an external streaming backend so consumers
// outside this process can observe them. Implementations must be safe for
// concurrent use.
type Transport interface {
	Publish(ctx context.Context, env *Envelope) error
	ReliabilityLevel() ReliabilityLevel
}
