package transport_test

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	serr "github.com/next-trace/scg-event-stream/contract/errors"
	"github.com/next-trace/scg-event-stream/transport"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()

	path := filepath.Join(t.TempDir(), "stream.yaml")
	if err := os.WriteFile(path, []byte(body), 0o600); err != nil {
		t.Fatalf("write config: %v", err)
	}

	return path
}

func TestLoadAppliesDefaultsUnderOverrides(t *testing.T) {
	path := writeConfig(t, "stream: orders\ntopology:\n  domain_partitions: 8\n")

	cfg, err := transport.Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}

	if cfg.Mode != transport.ModeEmbedded {
		t.Fatalf("mode = %s, want embedded default", cfg.Mode)
	}

	if cfg.Stream != "orders" {
		t.Fatalf("stream = %s, want orders", cfg.Stream)
	}

	if cfg.Topology.DomainPartitions != 8 {
		t.Fatalf("domain_partitions = %d, want 8", cfg.Topology.DomainPartitions)
	}

	if cfg.Topology.ReplicationFactor != 1 {
		t.Fatalf("replication_factor = %d, want 1 default", cfg.Topology.ReplicationFactor)
	}

	if cfg.Retention != 1024 {
		t.Fatalf("retention = %d, want 1024 default", cfg.Retention)
	}
}

func TestLoadRemoteConfig(t *testing.T) {
	path := writeConfig(t, `
mode: remote
stream: orders
remote:
  protocol: kafka
  endpoint: "broker-1:9092, broker-2:9092"
  client_id: svc-a
`)

	cfg, err := transport.Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}

	if cfg.Mode != transport.ModeRemote || cfg.Remote.Protocol != transport.ProtocolKafka {
		t.Fatalf("cfg = %+v", cfg)
	}

	if cfg.Remote.ClientID != "svc-a" {
		t.Fatalf("client_id = %s", cfg.Remote.ClientID)
	}
}

func TestLoadMissingFile(t *testing.T) {
	if _, err := transport.Load(filepath.Join(t.TempDir(), "absent.yaml")); err == nil {
		t.Fatal("expected error for missing file")
	}
}

func TestLoadMalformedYAML(t *testing.T) {
	path := writeConfig(t, "stream: [unclosed\n")

	_, err := transport.Load(path)
	if !errors.Is(err, serr.ErrInvalidConfig) {
		t.Fatalf("err = %v, want ErrInvalidConfig", err)
	}
}

func TestValidate(t *testing.T) {
	valid := transport.DefaultConfig()

	remote := func(p transport.Protocol, endpoint string) transport.Config {
		cfg := transport.DefaultConfig()
		cfg.Mode = transport.ModeRemote
		cfg.Remote = transport.RemoteConfig{Protocol: p, Endpoint: endpoint}

		return cfg
	}

	cases := []struct {
		name    string
		mutate  func(*transport.Config)
		wantErr bool
	}{
		{name: "defaults valid", mutate: func(*transport.Config) {}},
		{name: "unknown mode", mutate: func(c *transport.Config) { c.Mode = "cloud" }, wantErr: true},
		{name: "empty stream", mutate: func(c *transport.Config) { c.Stream = "" }, wantErr: true},
		{name: "stream with dot", mutate: func(c *transport.Config) { c.Stream = "a.b" }, wantErr: true},
		{name: "stream with wildcard", mutate: func(c *transport.Config) { c.Stream = "orders*" }, wantErr: true},
		{name: "zero partitions", mutate: func(c *transport.Config) { c.Topology.DomainPartitions = 0 }, wantErr: true},
		{name: "zero replication", mutate: func(c *transport.Config) { c.Topology.ReplicationFactor = 0 }, wantErr: true},
	}

	for _, tc := range cases {
		cfg := valid
		tc.mutate(&cfg)

		err := cfg.Validate()
		if tc.wantErr && !errors.Is(err, serr.ErrInvalidConfig) {
			t.Fatalf("%s: err = %v, want ErrInvalidConfig", tc.name, err)
		}

		if !tc.wantErr && err != nil {
			t.Fatalf("%s: unexpected error %v", tc.name, err)
		}
	}

	if err := remote(transport.ProtocolNATS, "nats://localhost:4222").Validate(); err != nil {
		t.Fatalf("valid remote: %v", err)
	}

	if err := remote(transport.ProtocolKafka, "").Validate(); !errors.Is(err, serr.ErrInvalidConfig) {
		t.Fatalf("missing endpoint: %v", err)
	}

	if err := remote("mqtt", "tcp://x").Validate(); !errors.Is(err, serr.ErrInvalidConfig) {
		t.Fatalf("unknown protocol: %v", err)
	}
}

func TestStreamTopology(t *testing.T) {
	cfg := transport.DefaultConfig()
	cfg.Stream = "orders"
	cfg.Topology.DomainPartitions = 6
	cfg.Topology.ReplicationFactor = 3

	top := cfg.StreamTopology()
	if top.Stream != "orders" || top.DomainPartitions != 6 || top.ReplicationFactor != 3 {
		t.Fatalf("topology = %+v", top)
	}
}
