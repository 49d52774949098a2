package jsproc

import (
	"fmt"
	"os"
	"time"

	"github.com/DuHerb/code-squad/env/jsvm"
	"github.com/DuHerb/code-squad/envexec"
	"go.uber.org/zap"
)

const (
	defaultMemoryHeadroom = 160 << 20
	defaultKillGrace      = 200 * time.Millisecond
	defaultMaxStack       = 256 << 20

	// go runtime of the host
	hostMaxProcs = 2
)

// Config defines how hosts are started
type Config struct {
	// Engine is passed to the environment inside every host
	Engine jsvm.Config

	// HostPath is the executable started as host, the current one if empty.
	// It must call Init at the start of main.
	HostPath string

	// MemoryHeadroom is added to the memory limit to cap the host data
	// segment, it covers the runtime and the engine itself
	MemoryHeadroom envexec.Size

	// KillGrace is how long a run may outlive its timeout before the host
	// is killed
	KillGrace time.Duration
}

type builder struct {
	conf   Config
	logger *zap.Logger
}

// NewBuilder returns a builder that starts one host process per environment
func NewBuilder(c Config) (envexec.Builder, error) {
	if c.KillGrace < 0 {
		return nil, fmt.Errorf("jsproc: negative value in config %+v", c)
	}
	if c.HostPath == "" {
		p, err := os.Executable()
		if err != nil {
			return nil, fmt.Errorf("jsproc: locate executable: %w", err)
		}
		c.HostPath = p
	}
	if c.MemoryHeadroom == 0 {
		c.MemoryHeadroom = defaultMemoryHeadroom
	}
	if c.KillGrace == 0 {
		c.KillGrace = defaultKillGrace
	}
	logger := c.Engine.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	// validates the engine settings before any host is started
	if _, err := jsvm.NewBuilder(c.Engine); err != nil {
		return nil, err
	}
	return &builder{conf: c, logger: logger}, nil
}

func (b *builder) Build(limit envexec.Limit) (envexec.Environment, error) {
	return newEnvironment(b.conf, b.logger, limit)
}
