//go:build !linux

package env

import (
	"github.com/DuHerb/code-squad/env/jsvm"
	"github.com/DuHerb/code-squad/envexec"
	"go.uber.org/zap"
)

func newIsolatedBuilder(_ Config, engine jsvm.Config, logger *zap.Logger) (envexec.Builder, bool, error) {
	logger.Warn("host processes are not supported on this platform, falling back to in-process environments")
	b, err := jsvm.NewBuilder(engine)
	return b, false, err
}
