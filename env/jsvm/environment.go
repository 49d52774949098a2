package jsvm

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/DuHerb/code-squad/envexec"
	"github.com/dop251/goja"
	"github.com/goccy/go-json"
	"go.uber.org/zap"
)

const unitName = "submission.js"

var _ envexec.Environment = &environment{}

// environment is a single goja runtime with its own global object.
// It must only be used from one goroutine at a time.
type environment struct {
	conf  Config
	limit envexec.Limit
	id    uint64

	vm        *goja.Runtime
	jsonParse goja.Callable

	// heap objects bytes when the environment was built
	baseline uint64
	peak     atomic.Uint64

	destroyOnce sync.Once
	destroyed   atomic.Bool
}

type unit struct {
	prog  *goja.Program
	owner *environment
}

type function struct {
	call  goja.Callable
	name  string
	owner *environment
}

var envID atomic.Uint64

func newEnvironment(conf Config, limit envexec.Limit) (*environment, error) {
	vm := goja.New()
	if conf.MaxStackDepth > 0 {
		vm.SetMaxCallStackSize(conf.MaxStackDepth)
	}

	// the only binding added to the built-ins: a self reference for top-level code
	g := vm.GlobalObject()
	if err := g.Set("global", g); err != nil {
		return nil, fmt.Errorf("bind global: %w", err)
	}

	// captured before any submission code runs, so redefining JSON has no effect on us
	parse, ok := goja.AssertFunction(vm.Get("JSON").ToObject(vm).Get("parse"))
	if !ok {
		return nil, errors.New("JSON.parse is not callable")
	}

	e := &environment{
		conf:      conf,
		limit:     limit,
		id:        envID.Add(1),
		vm:        vm,
		jsonParse: parse,
		baseline:  heapObjectsBytes(),
	}
	conf.Logger.Debug("environment built",
		zap.Uint64("env", e.id),
		zap.Stringer("memoryLimit", limit.Memory),
		zap.Duration("loadTimeout", limit.LoadTimeout),
		zap.Duration("callTimeout", limit.CallTimeout))
	return e, nil
}

func (e *environment) Compile(ctx context.Context, source string) (envexec.Unit, error) {
	if err := e.alive(); err != nil {
		return nil, err
	}
	if err := ctx.Err(); err != nil {
		return nil, envexec.NewError(envexec.StatusInternalError, "canceled before compile: %v", err)
	}

	prog, err := compile(source)
	if err != nil {
		return nil, envexec.NewError(envexec.StatusCompileError, "%v", err)
	}
	// parsing cannot be interrupted, so the ceiling is checked once it returned
	u := &unit{prog: prog, owner: e}
	if e.limit.Memory > 0 {
		if used, exceeded := e.checkMemory(); exceeded {
			e.conf.Logger.Debug("memory limit exceeded by compile",
				zap.Uint64("env", e.id),
				zap.Stringer("used", envexec.Size(used)),
				zap.Stringer("limit", e.limit.Memory))
			return nil, envexec.NewError(envexec.StatusMemoryLimitExceeded,
				"Memory limit of %v exceeded", e.limit.Memory)
		}
	}
	return u, nil
}

func (e *environment) Load(ctx context.Context, u envexec.Unit) error {
	if err := e.alive(); err != nil {
		return err
	}
	un, ok := u.(*unit)
	if !ok || un.owner != e {
		return envexec.NewError(envexec.StatusInternalError, "unit was not compiled by this environment")
	}
	return e.run(ctx, e.limit.LoadTimeout, func() error {
		_, err := e.vm.RunProgram(un.prog)
		return err
	})
}

func (e *environment) Resolve(ctx context.Context, name string) (envexec.Function, error) {
	if err := e.alive(); err != nil {
		return nil, err
	}
	var fn *function
	err := e.run(ctx, e.limit.LoadTimeout, func() error {
		// Get also sees top-level let / const bindings
		v := e.vm.Get(name)
		if v == nil {
			return nil
		}
		if call, ok := goja.AssertFunction(v); ok {
			fn = &function{call: call, name: name, owner: e}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	if fn == nil {
		return nil, envexec.NewError(envexec.StatusFunctionMissing,
			"Function '%s' not found or not a function.", name)
	}
	return fn, nil
}

func (e *environment) Invoke(ctx context.Context, fn envexec.Function, args []json.RawMessage) (json.RawMessage, error) {
	if err := e.alive(); err != nil {
		return nil, err
	}
	f, ok := fn.(*function)
	if !ok || f.owner != e {
		return nil, envexec.NewError(envexec.StatusInternalError, "function was not resolved by this environment")
	}

	var out json.RawMessage
	err := e.run(ctx, e.limit.CallTimeout, func() error {
		values, err := e.copyIn(args)
		if err != nil {
			return err
		}
		ret, err := f.call(goja.Undefined(), values...)
		if err != nil {
			return err
		}
		out, err = e.copyOut(ret)
		return err
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

func (e *environment) Usage() envexec.Usage {
	return envexec.Usage{Memory: envexec.Size(e.peak.Load())}
}

func (e *environment) Destroy() error {
	e.destroyOnce.Do(func() {
		e.destroyed.Store(true)
		// stops anything still running on an abandoned environment
		e.vm.Interrupt(errDestroyed)
		e.conf.Logger.Debug("environment destroyed",
			zap.Uint64("env", e.id),
			zap.Stringer("peakMemory", envexec.Size(e.peak.Load())))
	})
	return nil
}

var errDestroyed = envexec.NewError(envexec.StatusInternalError, "environment destroyed")

func (e *environment) alive() error {
	if e.destroyed.Load() {
		return errDestroyed
	}
	return nil
}

// run calls f with the limiter armed. Everything that may execute script code,
// including reading the message of a thrown value, happens before the limiter
// is disarmed.
func (e *environment) run(ctx context.Context, timeout time.Duration, f func() error) (err error) {
	if err := ctx.Err(); err != nil {
		return envexec.NewError(envexec.StatusInternalError, "canceled: %v", err)
	}
	stop := e.startLimiter(ctx, timeout)
	defer func() {
		if r := recover(); r != nil {
			if rerr, ok := r.(error); ok {
				err = e.convertError(rerr)
			} else {
				err = envexec.NewError(envexec.StatusInternalError, "engine panic: %v", r)
			}
		}
		stop()
		e.vm.ClearInterrupt()
	}()

	if err := f(); err != nil {
		return e.convertError(err)
	}
	return nil
}

func (e *environment) copyIn(args []json.RawMessage) ([]goja.Value, error) {
	values := make([]goja.Value, 0, len(args))
	for i, a := range args {
		v, err := e.jsonParse(goja.Undefined(), e.vm.ToValue(string(a)))
		if err != nil {
			return nil, fmt.Errorf("argument %d: %w", i, err)
		}
		values = append(values, v)
	}
	return values, nil
}

func (e *environment) copyOut(v goja.Value) (json.RawMessage, error) {
	x := exporter{
		vm:        e.vm,
		maxDepth:  e.conf.MaxOutputDepth,
		maxValues: e.conf.MaxOutputValues,
	}
	out, defined, err := x.export("", v, 0)
	if err != nil {
		return nil, err
	}
	if !defined {
		return nil, nil
	}
	b, err := json.Marshal(out)
	if err != nil {
		return nil, envexec.NewError(envexec.StatusRuntimeError, "serialize return value: %v", err)
	}
	return b, nil
}

// convertError maps goja failures onto envexec errors
func (e *environment) convertError(err error) error {
	var (
		ee  *envexec.Error
		ie  *goja.InterruptedError
		so  *goja.StackOverflowError
		ex  *goja.Exception
		cse *goja.CompilerSyntaxError
	)
	switch {
	case errors.As(err, &ee):
		return ee
	case errors.As(err, &ie):
		if reason, ok := ie.Value().(*envexec.Error); ok {
			return reason
		}
		return envexec.NewError(envexec.StatusInternalError, "interrupted: %v", ie.Value())
	case errors.As(err, &so):
		return envexec.NewError(envexec.StatusRuntimeError, "RangeError: Maximum call stack size exceeded")
	case errors.As(err, &ex):
		return envexec.NewError(envexec.StatusRuntimeError, "%s", exceptionMessage(ex))
	case errors.As(err, &cse):
		return envexec.NewError(envexec.StatusCompileError, "%v", cse)
	default:
		return envexec.NewError(envexec.StatusInternalError, "%v", err)
	}
}

// exceptionMessage prefers the message property of thrown errors and falls
// back to the string conversion of the thrown value
func exceptionMessage(ex *goja.Exception) (msg string) {
	defer func() {
		if r := recover(); r != nil {
			msg = "uncaught exception"
		}
	}()

	v := ex.Value()
	if v == nil {
		return ex.Error()
	}
	if o, ok := v.(*goja.Object); ok {
		if m := o.Get("message"); m != nil && !goja.IsUndefined(m) && !goja.IsNull(m) {
			if s := m.String(); s != "" {
				return s
			}
		}
	}
	return v.String()
}
