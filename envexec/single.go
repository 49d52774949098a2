package envexec

import (
	"context"
	"time"
)

// Single defines the running instruction to call a function in a fresh
// environment that is destroyed once the call finished
type Single struct {
	// Builder creates the environment for this run only
	Builder Builder

	// Cmd defines the call and its limits
	Cmd *Cmd
}

// Run builds the environment, runs the cmd and destroys the environment on
// every path. Failures are reported through Result.Status.
func (s *Single) Run(ctx context.Context) (result Result) {
	start := time.Now()
	defer func() {
		result.Time = time.Since(start)
	}()

	m, err := s.Builder.Build(s.Cmd.Limit)
	if err != nil {
		return Result{
			Status: StatusInternalError,
			Error:  "failed to build environment: " + err.Error(),
		}
	}
	defer func() {
		result.Memory = m.Usage().Memory
		m.Destroy()
	}()

	return runSingle(ctx, m, s.Cmd)
}
