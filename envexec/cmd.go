package envexec

import (
	"time"

	"github.com/criyle/go-sandbox/runner"
	"github.com/goccy/go-json"
)

// Size represent data size in bytes
type Size = runner.Size

// Cmd defines instruction to call a function of a submission in a fresh environment
type Cmd struct {
	// submission source and the function to call
	Source       string
	FunctionName string

	// positional arguments and the expected return value, in canonical JSON
	Args     []json.RawMessage
	Expected json.RawMessage

	// resource limits
	Limit Limit
}

// Result defines the running result for single Cmd
type Result struct {
	Status Status

	// Output is the canonical return value, only set when the call returned
	Output json.RawMessage

	Error string // error

	Time   time.Duration
	Memory Size // byte
}
