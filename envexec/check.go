package envexec

import (
	"context"
)

// Check compiles the source inside a throwaway environment without running
// it. It is meant to reject unparsable submissions cheaply, so its limit is
// usually far below the one of a Single run. The memory part of Limit bounds
// parsing itself.
type Check struct {
	Builder Builder
	Source  string
	Limit   Limit
}

// Run returns nil when the source compiles, otherwise the compile error
func (c *Check) Run(ctx context.Context) error {
	m, err := c.Builder.Build(c.Limit)
	if err != nil {
		return NewError(StatusInternalError, "failed to build environment: %v", err)
	}
	defer m.Destroy()

	_, err = m.Compile(ctx, c.Source)
	return err
}
