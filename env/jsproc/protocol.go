package jsproc

import (
	"time"

	"github.com/DuHerb/code-squad/envexec"
)

const (
	// initArg is the argv[1] that turns the executable into a host
	initArg = "jsproc-host"

	// configEnv carries the JSON encoded hostConfig to the host
	configEnv = "CODESQUAD_JSPROC_CONFIG"
)

const (
	opCompile = "compile"
	opLoad    = "load"
	opResolve = "resolve"
	opInvoke  = "invoke"
)

// hostConfig is what a host needs to build its environment
type hostConfig struct {
	MaxStackDepth       int           `json:"maxStackDepth"`
	MaxOutputDepth      int           `json:"maxOutputDepth"`
	MaxOutputValues     int           `json:"maxOutputValues"`
	MemoryCheckInterval time.Duration `json:"memoryCheckInterval"`

	Limit envexec.Limit `json:"limit"`

	// GoMemoryLimit is the soft limit of the host runtime, 0 to keep the default
	GoMemoryLimit int64 `json:"goMemoryLimit"`
	// MaxStack bounds the goroutine stack of the host
	MaxStack int `json:"maxStack"`
}

type request struct {
	Op     string   `json:"op"`
	Source string   `json:"source,omitempty"`
	Unit   int      `json:"unit,omitempty"`
	Name   string   `json:"name,omitempty"`
	Func   int      `json:"func,omitempty"`
	Args   []string `json:"args,omitempty"`
}

type response struct {
	Failed  bool           `json:"failed,omitempty"`
	Status  envexec.Status `json:"status,omitempty"`
	Message string         `json:"message,omitempty"`

	// Handle identifies the unit or function created by the request
	Handle int `json:"handle,omitempty"`

	// Result is the JSON text returned by invoke, empty when undefined
	Defined bool   `json:"defined,omitempty"`
	Result  string `json:"result,omitempty"`

	// Memory is the peak usage observed by the host so far
	Memory envexec.Size `json:"memory"`
}
