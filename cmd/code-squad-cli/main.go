// Command code-squad-cli lists the challenges and judges a submission locally
// or against a code squad gRPC endpoint.
package main

import (
	"context"
	"errors"
	"fmt"
	"os"

	"github.com/DuHerb/code-squad/env/jsproc"
)

func main() {
	if err := jsproc.Init(); err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(1)
	}
	if err := newApp().Run(context.Background(), os.Args); err != nil {
		if !errors.Is(err, errNotPassed) {
			fmt.Fprintln(os.Stderr, "error:", err)
		}
		os.Exit(1)
	}
}
