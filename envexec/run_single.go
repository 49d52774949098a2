package envexec

import (
	"context"
	"fmt"

	"github.com/DuHerb/code-squad/types"
)

// runSingle compiles, loads, resolves and calls inside the given environment
func runSingle(ctx context.Context, m Environment, c *Cmd) (result Result) {
	defer func() {
		if r := recover(); r != nil {
			result = Result{
				Status: StatusInternalError,
				Error:  fmt.Sprintf("environment panic: %v", r),
			}
		}
	}()

	unit, err := m.Compile(ctx, c.Source)
	if err != nil {
		return errorResult(err)
	}
	if err := m.Load(ctx, unit); err != nil {
		return errorResult(err)
	}
	fn, err := m.Resolve(ctx, c.FunctionName)
	if err != nil {
		return errorResult(err)
	}
	out, err := m.Invoke(ctx, fn, c.Args)
	if err != nil {
		return errorResult(err)
	}

	result = Result{
		Status: StatusAccepted,
		Output: out,
	}
	if !types.Equal(out, c.Expected) {
		result.Status = StatusWrongAnswer
	}
	return result
}

func errorResult(err error) Result {
	return Result{
		Status: StatusOf(err),
		Error:  MessageOf(err),
	}
}
