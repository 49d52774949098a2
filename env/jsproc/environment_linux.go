package jsproc

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"sync"
	"sync/atomic"
	"syscall"
	"time"

	"github.com/DuHerb/code-squad/envexec"
	"github.com/criyle/go-sandbox/pkg/rlimit"
	"github.com/goccy/go-json"
	"go.uber.org/zap"
)

var _ envexec.Environment = &environment{}

// environment forwards every operation to its host process.
// Operations are serialized, Destroy may be called at any time.
type environment struct {
	conf   Config
	limit  envexec.Limit
	logger *zap.Logger
	id     uint64

	proc *process
	mu   sync.Mutex

	peak atomic.Uint64
	// why the host was killed, nil if it was not
	reason atomic.Pointer[envexec.Error]

	destroyOnce sync.Once
	destroyed   atomic.Bool
}

type unit struct {
	id    int
	owner *environment
}

type function struct {
	id    int
	owner *environment
}

var envID atomic.Uint64

func newEnvironment(conf Config, logger *zap.Logger, limit envexec.Limit) (*environment, error) {
	hc := hostConfig{
		MaxStackDepth:       conf.Engine.MaxStackDepth,
		MaxOutputDepth:      conf.Engine.MaxOutputDepth,
		MaxOutputValues:     conf.Engine.MaxOutputValues,
		MemoryCheckInterval: conf.Engine.MemoryCheckInterval,
		Limit:               limit,
		MaxStack:            defaultMaxStack,
	}
	rLimits := rlimit.RLimits{
		CPU:         cpuLimit(limit),
		OpenFile:    64,
		DisableCore: true,
	}
	rLimits.CPUHard = rLimits.CPU + 1
	if limit.Memory > 0 && !raceEnabled {
		rLimits.Data = limit.Memory.Byte() + conf.MemoryHeadroom.Byte()
		hc.GoMemoryLimit = int64(limit.Memory.Byte() + conf.MemoryHeadroom.Byte()/2)
	}
	b, err := json.Marshal(hc)
	if err != nil {
		return nil, err
	}
	env := []string{
		configEnv + "=" + string(b),
		"GOMAXPROCS=" + strconv.Itoa(hostMaxProcs),
	}

	p, err := startProcess(conf.HostPath, env, rLimits)
	if err != nil {
		return nil, fmt.Errorf("start host: %w", err)
	}
	e := &environment{
		conf:   conf,
		limit:  limit,
		logger: logger,
		id:     envID.Add(1),
		proc:   p,
	}
	logger.Debug("environment host started",
		zap.Uint64("env", e.id),
		zap.Int("pid", p.pid),
		zap.Stringer("memoryLimit", limit.Memory),
		zap.Uint64("dataLimit", rLimits.Data),
		zap.Duration("loadTimeout", limit.LoadTimeout),
		zap.Duration("callTimeout", limit.CallTimeout))
	return e, nil
}

// cpuLimit bounds the cpu seconds of a host that runs every step of a case
// to its timeout, 0 when a step is unbounded
func cpuLimit(limit envexec.Limit) uint64 {
	if limit.LoadTimeout <= 0 || limit.CallTimeout <= 0 {
		return 0
	}
	// compile, load and resolve use the load timeout
	wall := 3*limit.LoadTimeout + limit.CallTimeout
	return uint64((hostMaxProcs*wall+time.Second-1)/time.Second) + 1
}

func (e *environment) Compile(ctx context.Context, source string) (envexec.Unit, error) {
	resp, err := e.roundTrip(ctx, e.limit.LoadTimeout, request{Op: opCompile, Source: source})
	if err != nil {
		return nil, err
	}
	return &unit{id: resp.Handle, owner: e}, nil
}

func (e *environment) Load(ctx context.Context, u envexec.Unit) error {
	un, ok := u.(*unit)
	if !ok || un.owner != e {
		return envexec.NewError(envexec.StatusInternalError, "unit was not compiled by this environment")
	}
	_, err := e.roundTrip(ctx, e.limit.LoadTimeout, request{Op: opLoad, Unit: un.id})
	return err
}

func (e *environment) Resolve(ctx context.Context, name string) (envexec.Function, error) {
	resp, err := e.roundTrip(ctx, e.limit.LoadTimeout, request{Op: opResolve, Name: name})
	if err != nil {
		return nil, err
	}
	return &function{id: resp.Handle, owner: e}, nil
}

func (e *environment) Invoke(ctx context.Context, fn envexec.Function, args []json.RawMessage) (json.RawMessage, error) {
	f, ok := fn.(*function)
	if !ok || f.owner != e {
		return nil, envexec.NewError(envexec.StatusInternalError, "function was not resolved by this environment")
	}
	req := request{Op: opInvoke, Func: f.id, Args: make([]string, 0, len(args))}
	for _, a := range args {
		req.Args = append(req.Args, string(a))
	}
	resp, err := e.roundTrip(ctx, e.limit.CallTimeout, req)
	if err != nil {
		return nil, err
	}
	if !resp.Defined {
		return nil, nil
	}
	return json.RawMessage(resp.Result), nil
}

func (e *environment) Usage() envexec.Usage {
	return envexec.Usage{Memory: envexec.Size(e.peak.Load())}
}

func (e *environment) Destroy() error {
	e.destroyOnce.Do(func() {
		e.destroyed.Store(true)
		e.proc.kill()
		<-e.proc.done
		e.proc.close()
		e.logger.Debug("environment host destroyed",
			zap.Uint64("env", e.id),
			zap.Stringer("peakMemory", envexec.Size(e.peak.Load())),
			zap.Int64("maxRSS", e.proc.rusage.Maxrss<<10))
	})
	return nil
}

var errDestroyed = envexec.NewError(envexec.StatusInternalError, "environment destroyed")

// roundTrip sends one request and waits for its response. The host is killed
// when the response does not arrive within timeout plus the kill grace, or
// when ctx is done first.
func (e *environment) roundTrip(ctx context.Context, timeout time.Duration, req request) (response, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.destroyed.Load() {
		return response{}, errDestroyed
	}
	if err := ctx.Err(); err != nil {
		return response{}, envexec.NewError(envexec.StatusInternalError, "canceled: %v", err)
	}
	if e.proc.exited() {
		return response{}, e.exitError()
	}

	if timeout > 0 {
		t := time.AfterFunc(timeout+e.conf.KillGrace, func() {
			e.terminate(envexec.NewError(envexec.StatusTimeLimitExceeded,
				"Script execution timed out after %v", timeout))
		})
		defer t.Stop()
	}
	stop := context.AfterFunc(ctx, func() {
		e.terminate(envexec.NewError(envexec.StatusInternalError, "canceled: %v", ctx.Err()))
	})
	defer stop()

	b, err := json.Marshal(req)
	if err != nil {
		return response{}, envexec.NewError(envexec.StatusInternalError, "encode request: %v", err)
	}
	if _, err := e.proc.stdin.Write(append(b, '\n')); err != nil {
		return response{}, e.exitError()
	}
	line, err := e.proc.reader.ReadBytes('\n')
	if err != nil {
		return response{}, e.exitError()
	}

	var resp response
	if err := json.Unmarshal(line, &resp); err != nil {
		return response{}, envexec.NewError(envexec.StatusInternalError, "decode response: %v", err)
	}
	e.record(uint64(resp.Memory))
	if resp.Failed {
		return resp, &envexec.Error{Status: resp.Status, Message: resp.Message}
	}
	return resp, nil
}

// terminate kills the host and records reason as the result of the run
func (e *environment) terminate(reason *envexec.Error) {
	if e.reason.CompareAndSwap(nil, reason) {
		e.logger.Debug("killing environment host",
			zap.Uint64("env", e.id),
			zap.Stringer("status", reason.Status))
	}
	e.proc.kill()
}

// exitError waits for a dying host and explains its death
func (e *environment) exitError() error {
	select {
	case <-e.proc.done:
	case <-time.After(time.Second):
		// the pipe broke but the host is still around
		e.proc.kill()
		<-e.proc.done
	}

	if r := e.reason.Load(); r != nil {
		return r
	}
	if e.destroyed.Load() {
		return errDestroyed
	}

	diag := e.proc.diagnosis()
	ws := e.proc.wstatus
	switch {
	case strings.Contains(diag, "out of memory"):
		e.record(e.limit.Memory.Byte())
		return envexec.NewError(envexec.StatusMemoryLimitExceeded, "Memory limit of %v exceeded", e.limit.Memory)
	case strings.Contains(diag, "stack overflow"), strings.Contains(diag, "stack exceeds"):
		return envexec.NewError(envexec.StatusRuntimeError, "RangeError: Maximum call stack size exceeded")
	case ws.Signaled() && ws.Signal() == syscall.SIGXCPU:
		return envexec.NewError(envexec.StatusTimeLimitExceeded, "CPU time limit exceeded")
	}

	e.logger.Warn("environment host died",
		zap.Uint64("env", e.id),
		zap.Int("exitStatus", ws.ExitStatus()),
		zap.Bool("signaled", ws.Signaled()),
		zap.String("stderr", diag))
	if first, _, _ := strings.Cut(diag, "\n"); first != "" {
		return envexec.NewError(envexec.StatusInternalError, "environment host died: %s", first)
	}
	if ws.Signaled() {
		return envexec.NewError(envexec.StatusInternalError, "environment host died: %v", ws.Signal())
	}
	return envexec.NewError(envexec.StatusInternalError, "environment host died: exit status %d", ws.ExitStatus())
}

func (e *environment) record(used uint64) {
	for {
		p := e.peak.Load()
		if used <= p || e.peak.CompareAndSwap(p, used) {
			return
		}
	}
}
