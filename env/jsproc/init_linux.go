package jsproc

import (
	"fmt"
	"os"
	"runtime/debug"

	"github.com/goccy/go-json"
)

// Init turns the process into an environment host when it was started as
// one, and never returns in that case. Otherwise it is a no-op.
func Init() (err error) {
	if len(os.Args) < 2 || os.Args[1] != initArg {
		return nil
	}

	defer func() {
		if r := recover(); r != nil {
			fmt.Fprintf(os.Stderr, "jsproc host: panic: %v\n", r)
			os.Exit(1)
		}
		if err != nil {
			fmt.Fprintf(os.Stderr, "jsproc host: %v\n", err)
			os.Exit(1)
		}
		os.Exit(0)
	}()

	var conf hostConfig
	if err := json.Unmarshal([]byte(os.Getenv(configEnv)), &conf); err != nil {
		return fmt.Errorf("decode config: %w", err)
	}
	if conf.MaxStack > 0 {
		debug.SetMaxStack(conf.MaxStack)
	}
	if conf.GoMemoryLimit > 0 {
		debug.SetMemoryLimit(conf.GoMemoryLimit)
	}
	return serve(conf, os.Stdin, os.Stdout)
}
