package env

import (
	"github.com/DuHerb/code-squad/env/jsproc"
	"github.com/DuHerb/code-squad/env/jsvm"
	"github.com/DuHerb/code-squad/envexec"
	"go.uber.org/zap"
)

func newIsolatedBuilder(c Config, engine jsvm.Config, logger *zap.Logger) (envexec.Builder, bool, error) {
	b, err := jsproc.NewBuilder(jsproc.Config{
		Engine:         engine,
		MemoryHeadroom: c.MemoryHeadroom,
		KillGrace:      c.KillGrace,
	})
	if err != nil {
		return nil, false, err
	}
	logger.Info("environments run in host processes",
		zap.Stringer("memoryHeadroom", c.MemoryHeadroom),
		zap.Duration("killGrace", c.KillGrace))
	return b, true, nil
}
