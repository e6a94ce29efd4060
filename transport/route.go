package transport

import (
	"hash/fnv"
	"strings"

	"github.com/next-trace/scg-event-stream/contract/event"
)

const systemPrefix = "system."

// TopicFor routes an envelope by its event type: platform events (type
// prefixed "system.") go to the system topic, everything else to domain.
func TopicFor(env *event.Envelope) string {
	if strings.HasPrefix(env.Event.EventType(), systemPrefix) {
		return event.TopicSystem
	}

	return event.TopicDomain
}

// PartitionKey is the envelope's tenant id string, so one tenant's events
// always share a partition and stay ordered for its consumers.
func PartitionKey(env *event.Envelope) string {
	return env.TenantID.String()
}

// PartitionFor places a key deterministically onto one of n partitions using
// FNV-1a. Every backend uses this same placement, so moving between brokers
// never reshuffles tenants.
func PartitionFor(key string, n int32) int32 {
	if n <= 1 {
		return 0
	}

	h := fnv.New32a()
	_, _ = h.Write([]byte(key))

	return int32(h.Sum32() % uint32(n))
}
