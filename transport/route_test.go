package transport_test

import (
	"testing"

	"github.com/google/uuid"
	"github.com/next-trace/scg-event-stream/contract/event"
	"github.com/next-trace/scg-event-stream/events"
	"github.com/next-trace/scg-event-stream/transport"
)

func TestTopicForRoutesByTypePrefix(t *testing.T) {
	tenant := uuid.New()

	domain := event.NewEnvelope(tenant, nil, events.NodeCreated{NodeID: uuid.New(), Kind: "post"})
	if got := transport.TopicFor(domain); got != event.TopicDomain {
		t.Fatalf("node.created topic = %s, want domain", got)
	}

	system := event.NewEnvelope(tenant, nil, events.ModuleEnabled{ModuleSlug: "blog"})
	if got := transport.TopicFor(system); got != event.TopicSystem {
		t.Fatalf("system.module.enabled topic = %s, want system", got)
	}
}

func TestPartitionKeyIsTenantID(t *testing.T) {
	tenantA := uuid.New()
	tenantB := uuid.New()

	envA := event.NewEnvelope(tenantA, nil, events.NodeCreated{NodeID: uuid.New(), Kind: "post"})
	envB := event.NewEnvelope(tenantB, nil, events.NodeCreated{NodeID: uuid.New(), Kind: "post"})

	keyA := transport.PartitionKey(envA)
	keyB := transport.PartitionKey(envB)

	if keyA != tenantA.String() {
		t.Fatalf("key = %s, want %s", keyA, tenantA)
	}

	// Same event type from two tenants: same topic, distinct partition keys.
	if keyA == keyB {
		t.Fatal("distinct tenants must produce distinct partition keys")
	}

	if transport.TopicFor(envA) != transport.TopicFor(envB) {
		t.Fatal("same event type must route to the same topic regardless of tenant")
	}
}

func TestPartitionForIsDeterministicAndInRange(t *testing.T) {
	const n = int32(8)

	for i := 0; i < 50; i++ {
		key := uuid.New().String()

		p := transport.PartitionFor(key, n)
		if p < 0 || p >= n {
			t.Fatalf("partition %d out of range [0,%d)", p, n)
		}

		if again := transport.PartitionFor(key, n); again != p {
			t.Fatalf("placement not deterministic: %d then %d", p, again)
		}
	}
}

func TestPartitionForSinglePartition(t *testing.T) {
	if p := transport.PartitionFor(uuid.New().String(), 1); p != 0 {
		t.Fatalf("partition = %d, want 0", p)
	}
}
