package env

import (
	"runtime"

	"github.com/DuHerb/code-squad/env/jsvm"
	"github.com/DuHerb/code-squad/envexec"
	"go.uber.org/zap"
)

const engineName = "goja"

// NewBuilder build a environment builder
func NewBuilder(c Config) (envexec.Builder, map[string]any, error) {
	logger := c.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	engine := jsvm.Config{
		MaxStackDepth:       c.MaxStackDepth,
		MaxOutputDepth:      c.MaxOutputDepth,
		MaxOutputValues:     c.MaxOutputValues,
		MemoryCheckInterval: c.MemoryCheckInterval,
		Logger:              logger.Named("jsvm"),
	}

	var (
		b        envexec.Builder
		isolated bool
		err      error
	)
	if c.Isolate {
		b, isolated, err = newIsolatedBuilder(c, engine, logger)
	} else {
		b, err = jsvm.NewBuilder(engine)
	}
	if err != nil {
		return nil, nil, err
	}
	logger.Info("created JavaScript environment builder",
		zap.String("engine", engineName),
		zap.Bool("isolated", isolated),
		zap.Int("maxStackDepth", c.MaxStackDepth),
		zap.Duration("memoryCheckInterval", c.MemoryCheckInterval))
	return b, map[string]any{
		"engine":              engineName,
		"os":                  runtime.GOOS,
		"arch":                runtime.GOARCH,
		"isolated":            isolated,
		"maxStackDepth":       c.MaxStackDepth,
		"maxOutputDepth":      c.MaxOutputDepth,
		"maxOutputValues":     c.MaxOutputValues,
		"memoryCheckInterval": c.MemoryCheckInterval.String(),
	}, nil
}
