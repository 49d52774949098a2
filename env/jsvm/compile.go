package jsvm

import (
	"github.com/dop251/goja"
)

// compile parses the source as a classic (non-strict, non-module) script.
// Nothing is executed, so it needs no limiter.
func compile(source string) (prog *goja.Program, err error) {
	defer func() {
		if r := recover(); r != nil {
			prog, err = nil, &compilePanic{value: r}
		}
	}()
	return goja.Compile(unitName, source, false)
}

type compilePanic struct {
	value any
}

func (p *compilePanic) Error() string {
	return "SyntaxError: parser failed on the submitted source"
}
