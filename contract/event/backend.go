package event

import "context"

// Logical topic names inside a stream. Transports route system.* event types to
// TopicSystem and everything else to TopicDomain.
const (
	TopicDomain = "domain"
	TopicSystem = "system"
)

// Record is one encoded envelope addressed to a topic partition.
type Record struct {
	Topic     string
	Partition int32
	Key       []byte
	Value     []byte
	Headers   map[string]string
}

// Topology describes what a backend must provision before publishing: one
// stream holding a partitioned domain topic and a single-partition system
// topic, replicated ReplicationFactor times where the backend supports it.
type Topology struct {
	Stream            string
	DomainPartitions  int32
	ReplicationFactor int16
}

// TopicSpec names one topic inside the stream and its partition count.
type TopicSpec struct {
	Name       string
	Partitions int32
}

// Topics lists the topics EnsureTopology provisions. The system topic always
// has one partition so platform events stay strictly ordered.
func (t Topology) Topics() []TopicSpec {
	return []TopicSpec{
		{Name: TopicDomain, Partitions: t.DomainPartitions},
		{Name: TopicSystem, Partitions: 1},
	}
}

// Backend is the minimal broker surface a stream transport drives. Construction
// is strict: Connect then EnsureTopology must both succeed before any Publish;
// a failure in either leaves no running state behind (callers Shutdown on a
// topology failure).
type Backend interface {
	Connect(ctx context.Context) error
	EnsureTopology(ctx context.Context, top Topology) error
	Publish(ctx context.Context, rec Record) error
	Shutdown(ctx context.Context) error
}
