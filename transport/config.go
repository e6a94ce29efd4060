package transport

import (
	"errors"
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/next-trace/scg-event-stream/adapters/embedded"
	serr "github.com/next-trace/scg-event-stream/contract/errors"
	"github.com/next-trace/scg-event-stream/contract/event"
)

// Mode selects where the stream lives.
type Mode string

const (
	// ModeEmbedded runs the in-process engine.
	ModeEmbedded Mode = "embedded"
	// ModeRemote publishes to an external cluster over Remote.Protocol.
	ModeRemote Mode = "remote"
)

// Protocol selects the wire protocol for remote mode.
type Protocol string

const (
	ProtocolKafka Protocol = "kafka"
	ProtocolNATS  Protocol = "nats"
	ProtocolAMQP  Protocol = "amqp"
)

// Config selects and shapes the streaming backend. It is read once at
// construction and never mutated by the transport.
type Config struct {
	Mode      Mode           `yaml:"mode"`
	Stream    string         `yaml:"stream"`
	Topology  TopologyConfig `yaml:"topology"`
	Retention int            `yaml:"retention"`
	Remote    RemoteConfig   `yaml:"remote"`
}

// TopologyConfig shapes the provisioned stream.
type TopologyConfig struct {
	DomainPartitions  int32 `yaml:"domain_partitions"`
	ReplicationFactor int16 `yaml:"replication_factor"`
}

// RemoteConfig locates the external cluster. Endpoint holds a broker URL, or a
// comma-separated seed list for kafka.
type RemoteConfig struct {
	Protocol Protocol `yaml:"protocol"`
	Endpoint string   `yaml:"endpoint"`
	ClientID string   `yaml:"client_id"`
}

// DefaultConfig is the single-node starting point: embedded engine, four
// domain partitions, no replication.
func DefaultConfig() Config {
	return Config{
		Mode:   ModeEmbedded,
		Stream: "events",
		Topology: TopologyConfig{
			DomainPartitions:  4,
			ReplicationFactor: 1,
		},
		Retention: embedded.DefaultRetention,
	}
}

// Load reads a yaml config file over the defaults and validates the result.
func Load(path string) (Config, error) {
	cfg := DefaultConfig()

	data, err := os.ReadFile(path)
	if err != nil {
		return Config{}, fmt.Errorf("read config %s: %w", path, err)
	}

	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return Config{}, fmt.Errorf("parse config %s: %w", path, errors.Join(serr.ErrInvalidConfig, err))
	}

	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}

	return cfg, nil
}

// Validate rejects configs no backend could serve.
func (c Config) Validate() error {
	switch c.Mode {
	case ModeEmbedded, ModeRemote:
	default:
		return fmt.Errorf("config: unknown mode %q: %w", c.Mode, serr.ErrInvalidConfig)
	}

	if c.Stream == "" {
		return fmt.Errorf("config: stream required: %w", serr.ErrInvalidConfig)
	}

	// The stream name becomes a topic prefix, a JetStream stream name, and an
	// exchange name, so token separators and wildcards are off limits.
	if strings.ContainsAny(c.Stream, ". *>") {
		return fmt.Errorf("config: stream %q contains reserved characters: %w", c.Stream, serr.ErrInvalidConfig)
	}

	if c.Topology.DomainPartitions < 1 {
		return fmt.Errorf("config: topology.domain_partitions must be at least 1: %w", serr.ErrInvalidConfig)
	}

	if c.Topology.ReplicationFactor < 1 {
		return fmt.Errorf("config: topology.replication_factor must be at least 1: %w", serr.ErrInvalidConfig)
	}

	if c.Mode == ModeRemote {
		return c.validateRemote()
	}

	return nil
}

func (c Config) validateRemote() error {
	if c.Remote.Endpoint == "" {
		return fmt.Errorf("config: remote.endpoint required: %w", serr.ErrInvalidConfig)
	}

	switch c.Remote.Protocol {
	case ProtocolKafka, ProtocolNATS, ProtocolAMQP:
		return nil
	default:
		return fmt.Errorf("config: unknown remote.protocol %q: %w", c.Remote.Protocol, serr.ErrInvalidConfig)
	}
}

// StreamTopology resolves the config into the topology handed to backends.
func (c Config) StreamTopology() event.Topology {
	return event.Topology{
		Stream:            c.Stream,
		DomainPartitions:  c.Topology.DomainPartitions,
		ReplicationFactor: c.Topology.ReplicationFactor,
	}
}

// brokers splits the kafka seed list out of the endpoint.
func (c Config) brokers() []string {
	parts := strings.Split(c.Remote.Endpoint, ",")

	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}

	return out
}
