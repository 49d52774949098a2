package config

import (
	"errors"
	"io/fs"
	"os"
	"runtime"
	"time"

	"github.com/DuHerb/code-squad/envexec"
	"github.com/joho/godotenv"
	"github.com/koding/multiconfig"
)

// EnvPrefix is the prefix of environment variables read by Load
const EnvPrefix = "CS"

// Config defines code squad server configuration
type Config struct {
	// catalog
	Catalog string `flagUsage:"challenge catalog file (.yaml / .toml / .json), builtin challenges if empty"`

	// worker
	Parallelism   int `flagUsage:"control the # of submissions judged concurrently (default equal to number of cpu, 1 without host processes)"`
	MaxSourceSize int `flagUsage:"specifies max submitted source size in bytes" default:"65536"`

	// sandbox limit
	MemoryLimit     *envexec.Size `flagUsage:"specifies memory limit for each test case" default:"128m"`
	GateMemoryLimit *envexec.Size `flagUsage:"specifies memory limit for the compilation check" default:"8m"`
	LoadTimeout     time.Duration `flagUsage:"specifies time limit for running top-level code" default:"1s"`
	CallTimeout     time.Duration `flagUsage:"specifies time limit for each function call" default:"500ms"`

	// sandbox engine
	MaxStackDepth       int           `flagUsage:"specifies max script call stack depth" default:"10000"`
	MaxOutputDepth      int           `flagUsage:"specifies max nesting of a returned value" default:"64"`
	MaxOutputValues     int           `flagUsage:"specifies max number of values in a returned value" default:"100000"`
	MemoryCheckInterval time.Duration `flagUsage:"specifies heap sampling interval while a script runs" default:"10ms"`

	// host processes (linux)
	Isolate        bool          `flagUsage:"run every environment in its own host process" default:"true"`
	MemoryHeadroom *envexec.Size `flagUsage:"specifies host data segment allowance on top of the memory limit" default:"160m"`
	KillGrace      time.Duration `flagUsage:"specifies how long a run may outlive its timeout before its host is killed" default:"200ms"`

	// server config
	HTTPAddr      string        `flagUsage:"specifies the http binding address" default:":5050"`
	EnableGRPC    bool          `flagUsage:"enable gRPC endpoint"`
	GRPCAddr      string        `flagUsage:"specifies the grpc binding address" default:":5051"`
	GRPCMsgSize   *envexec.Size `flagUsage:"specifies the grpc message buffer size" default:"4m"`
	MonitorAddr   string        `flagUsage:"specifies the metrics binding address" default:":5052"`
	AuthToken     string        `flagUsage:"bearer token auth for REST / gRPC"`
	EnableDebug   bool          `flagUsage:"enable debug endpoint"`
	EnableMetrics bool          `flagUsage:"enable promethus metrics endpoint"`

	// logger config
	Release bool `flagUsage:"release level of logs"`
	Silent  bool `flagUsage:"do not print logs"`

	// show version and exit
	Version bool `flagUsage:"show version and exit"`
}

// Load loads config from .env, flag & environment variables
func (c *Config) Load() error {
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return err
	}
	cl := multiconfig.MultiLoader(
		&multiconfig.TagLoader{},
		&multiconfig.EnvironmentLoader{
			Prefix:    EnvPrefix,
			CamelCase: true,
		},
		&multiconfig.FlagLoader{
			CamelCase: true,
			EnvPrefix: EnvPrefix,
		},
	)
	if os.Getpid() == 1 {
		c.Release = true
	}
	if err := cl.Load(c); err != nil {
		return err
	}
	if c.Parallelism <= 0 {
		c.Parallelism = runtime.NumCPU()
	}
	return nil
}

// SharedHeap adjusts the config for environments that share the server
// process. Memory is then accounted on the whole heap, so a second
// submission running next to the first would be charged for it.
func (c *Config) SharedHeap() {
	if *c.MemoryLimit > 0 {
		c.Parallelism = 1
	}
}

// CaseLimit returns the limit of a single test case
func (c *Config) CaseLimit() envexec.Limit {
	return envexec.Limit{
		Memory:      *c.MemoryLimit,
		LoadTimeout: c.LoadTimeout,
		CallTimeout: c.CallTimeout,
	}
}

// GateLimit returns the limit of the compilation check
func (c *Config) GateLimit() envexec.Limit {
	return envexec.Limit{
		Memory:      *c.GateMemoryLimit,
		LoadTimeout: c.LoadTimeout,
		CallTimeout: c.CallTimeout,
	}
}
