package env

import (
	"time"

	"github.com/DuHerb/code-squad/envexec"
	"go.uber.org/zap"
)

// Config defines parameters to create environment builder
type Config struct {
	MaxStackDepth       int
	MaxOutputDepth      int
	MaxOutputValues     int
	MemoryCheckInterval time.Duration

	// Isolate runs every environment in its own host process where supported
	Isolate        bool
	MemoryHeadroom envexec.Size
	KillGrace      time.Duration

	*zap.Logger
}
