package jsvm

import (
	"fmt"
	"time"

	"github.com/DuHerb/code-squad/envexec"
	"go.uber.org/zap"
)

// Config defines the engine wide settings shared by every environment
type Config struct {
	// MaxStackDepth bounds script call depth, 0 keeps the engine default
	MaxStackDepth int

	// MaxOutputDepth and MaxOutputValues bound the value copied out of a call
	MaxOutputDepth  int
	MaxOutputValues int

	// MemoryCheckInterval is how often heap growth is sampled while a script runs
	MemoryCheckInterval time.Duration

	Logger *zap.Logger
}

type builder struct {
	conf Config
}

// NewBuilder returns a builder that creates one goja runtime per environment
func NewBuilder(c Config) (envexec.Builder, error) {
	if c.MaxStackDepth < 0 || c.MaxOutputDepth < 0 || c.MaxOutputValues < 0 || c.MemoryCheckInterval < 0 {
		return nil, fmt.Errorf("jsvm: negative value in config %+v", c)
	}
	if c.Logger == nil {
		c.Logger = zap.NewNop()
	}
	return &builder{conf: c}, nil
}

func (b *builder) Build(limit envexec.Limit) (envexec.Environment, error) {
	return newEnvironment(b.conf, limit)
}
