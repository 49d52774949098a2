package jsproc

import (
	"context"
	"errors"
	"fmt"
	"io"

	"github.com/DuHerb/code-squad/env/jsvm"
	"github.com/DuHerb/code-squad/envexec"
	"github.com/goccy/go-json"
	"go.uber.org/zap"
)

// host serves a single environment over a request stream
type host struct {
	env   envexec.Environment
	units map[int]envexec.Unit
	funcs map[int]envexec.Function
}

// serve builds the environment described by conf and answers requests from
// r on w until r is closed
func serve(conf hostConfig, r io.Reader, w io.Writer) error {
	b, err := jsvm.NewBuilder(jsvm.Config{
		MaxStackDepth:       conf.MaxStackDepth,
		MaxOutputDepth:      conf.MaxOutputDepth,
		MaxOutputValues:     conf.MaxOutputValues,
		MemoryCheckInterval: conf.MemoryCheckInterval,
		// stderr is kept for fatal runtime errors only
		Logger: zap.NewNop(),
	})
	if err != nil {
		return err
	}
	e, err := b.Build(conf.Limit)
	if err != nil {
		return fmt.Errorf("build environment: %w", err)
	}
	defer e.Destroy()

	h := &host{
		env:   e,
		units: make(map[int]envexec.Unit),
		funcs: make(map[int]envexec.Function),
	}
	dec := json.NewDecoder(r)
	enc := json.NewEncoder(w)
	for {
		var req request
		if err := dec.Decode(&req); err != nil {
			if errors.Is(err, io.EOF) {
				return nil
			}
			return fmt.Errorf("decode request: %w", err)
		}
		if err := enc.Encode(h.handle(req)); err != nil {
			return fmt.Errorf("encode response: %w", err)
		}
	}
}

func (h *host) handle(req request) response {
	ctx := context.Background()
	switch req.Op {
	case opCompile:
		u, err := h.env.Compile(ctx, req.Source)
		if err != nil {
			return h.failed(err)
		}
		id := len(h.units) + 1
		h.units[id] = u
		return h.ok(response{Handle: id})

	case opLoad:
		u, ok := h.units[req.Unit]
		if !ok {
			return h.failed(envexec.NewError(envexec.StatusInternalError, "unknown unit %d", req.Unit))
		}
		if err := h.env.Load(ctx, u); err != nil {
			return h.failed(err)
		}
		return h.ok(response{})

	case opResolve:
		fn, err := h.env.Resolve(ctx, req.Name)
		if err != nil {
			return h.failed(err)
		}
		id := len(h.funcs) + 1
		h.funcs[id] = fn
		return h.ok(response{Handle: id})

	case opInvoke:
		fn, ok := h.funcs[req.Func]
		if !ok {
			return h.failed(envexec.NewError(envexec.StatusInternalError, "unknown function %d", req.Func))
		}
		args := make([]json.RawMessage, 0, len(req.Args))
		for _, a := range req.Args {
			args = append(args, json.RawMessage(a))
		}
		out, err := h.env.Invoke(ctx, fn, args)
		if err != nil {
			return h.failed(err)
		}
		return h.ok(response{Defined: out != nil, Result: string(out)})

	default:
		return h.failed(envexec.NewError(envexec.StatusInternalError, "unknown operation %q", req.Op))
	}
}

func (h *host) ok(r response) response {
	r.Memory = h.env.Usage().Memory
	return r
}

func (h *host) failed(err error) response {
	return response{
		Failed:  true,
		Status:  envexec.StatusOf(err),
		Message: envexec.MessageOf(err),
		Memory:  h.env.Usage().Memory,
	}
}
