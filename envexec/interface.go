package envexec

import (
	"context"
	"time"

	"github.com/goccy/go-json"
)

// Limit defines the resource ceilings of a single environment
type Limit struct {
	Memory      Size          // Memory ceiling
	LoadTimeout time.Duration // Top-level execution time limit
	CallTimeout time.Duration // Function call time limit
}

// Usage defines the peak environment resource usage
type Usage struct {
	Time   time.Duration
	Memory Size
}

// Unit is an opaque handle to source compiled inside an Environment.
// It is only valid for the environment that produced it.
type Unit any

// Function is an opaque handle to a callable resolved inside an Environment
type Function any

// Environment defines the interface to access an isolated script environment.
//
// Values only cross the boundary as JSON text: arguments are parsed inside the
// environment and results are serialized before they are returned, so the
// caller never holds a reference into the environment.
type Environment interface {
	// Compile parses source without running it
	Compile(ctx context.Context, source string) (Unit, error)
	// Load runs the top-level code of the unit within the load timeout
	Load(ctx context.Context, u Unit) error
	// Resolve looks up a callable global by name
	Resolve(ctx context.Context, name string) (Function, error)
	// Invoke calls fn with positional arguments within the call timeout
	Invoke(ctx context.Context, fn Function, args []json.RawMessage) (json.RawMessage, error)
	// Usage retrieves the usage observed so far
	Usage() Usage
	// Destroy releases the environment. It is safe to call more than once.
	Destroy() error
}

// Builder creates a fresh environment with the given limit
type Builder interface {
	Build(Limit) (Environment, error)
}
