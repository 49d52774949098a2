package config

import (
	"testing"
	"time"

	"github.com/DuHerb/code-squad/envexec"
	"github.com/koding/multiconfig"
)

func TestDefaults(t *testing.T) {
	var c Config
	if err := (&multiconfig.TagLoader{}).Load(&c); err != nil {
		t.Fatal(err)
	}
	if c.MaxSourceSize != 65536 || c.HTTPAddr != ":5050" {
		t.Fatalf("unexpected defaults %+v", c)
	}

	want := envexec.Limit{Memory: 128 << 20, LoadTimeout: time.Second, CallTimeout: 500 * time.Millisecond}
	if got := c.CaseLimit(); got != want {
		t.Fatalf("case limit: got %+v, want %+v", got, want)
	}
	want.Memory = 8 << 20
	if got := c.GateLimit(); got != want {
		t.Fatalf("gate limit: got %+v, want %+v", got, want)
	}
}

func TestEnvironment(t *testing.T) {
	t.Setenv("CS_CALL_TIMEOUT", "2s")
	t.Setenv("CS_CATALOG", "catalog.yaml")

	var c Config
	l := multiconfig.MultiLoader(
		&multiconfig.TagLoader{},
		&multiconfig.EnvironmentLoader{Prefix: EnvPrefix, CamelCase: true},
	)
	if err := l.Load(&c); err != nil {
		t.Fatal(err)
	}
	if c.CallTimeout != 2*time.Second || c.Catalog != "catalog.yaml" {
		t.Fatalf("unexpected config %+v", c)
	}
}

func TestSharedHeap(t *testing.T) {
	var c Config
	if err := (&multiconfig.TagLoader{}).Load(&c); err != nil {
		t.Fatal(err)
	}
	if !c.Isolate || *c.MemoryHeadroom != 160<<20 || c.KillGrace != 200*time.Millisecond {
		t.Fatalf("unexpected host defaults %+v", c)
	}

	c.Parallelism = 8
	c.SharedHeap()
	if c.Parallelism != 1 {
		t.Fatalf("expected a single submission at a time, got %d", c.Parallelism)
	}

	unlimited := envexec.Size(0)
	c.Parallelism = 8
	c.MemoryLimit = &unlimited
	c.SharedHeap()
	if c.Parallelism != 8 {
		t.Fatalf("expected parallelism kept without memory limit, got %d", c.Parallelism)
	}
}
