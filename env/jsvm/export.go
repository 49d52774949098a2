package jsvm

import (
	"math"
	"math/big"
	"strconv"

	"github.com/DuHerb/code-squad/envexec"
	"github.com/dop251/goja"
)

// exporter copies a script value out of the runtime into plain Go values
// following JSON.stringify rules. It runs on the host stack, so depth and
// size are bounded before anything is allocated for them.
type exporter struct {
	vm        *goja.Runtime
	maxDepth  int
	maxValues int

	count int
	// objects on the current path, for cycle detection
	path map[*goja.Object]struct{}
}

// export returns the copied value and whether it is defined in JSON terms.
// undefined, functions and symbols are not.
func (x *exporter) export(key string, v goja.Value, depth int) (any, bool, error) {
	return x.exportValue(key, v, depth, true)
}

func (x *exporter) exportValue(key string, v goja.Value, depth int, callToJSON bool) (any, bool, error) {
	if x.maxDepth > 0 && depth > x.maxDepth {
		return nil, false, envexec.NewError(envexec.StatusOutputLimitExceeded,
			"return value nested deeper than %d levels", x.maxDepth)
	}
	x.count++
	if x.maxValues > 0 && x.count > x.maxValues {
		return nil, false, envexec.NewError(envexec.StatusOutputLimitExceeded,
			"return value has more than %d values", x.maxValues)
	}

	if v == nil || goja.IsUndefined(v) {
		return nil, false, nil
	}
	if goja.IsNull(v) {
		return nil, true, nil
	}
	if _, ok := v.(*goja.Symbol); ok {
		return nil, false, nil
	}

	obj, ok := v.(*goja.Object)
	if !ok {
		return exportPrimitive(v.Export())
	}

	if callToJSON {
		if toJSON, ok := goja.AssertFunction(obj.Get("toJSON")); ok {
			r, err := toJSON(obj, x.vm.ToValue(key))
			if err != nil {
				return nil, false, err
			}
			return x.exportValue(key, r, depth, false)
		}
	}

	if _, ok := goja.AssertFunction(obj); ok {
		return nil, false, nil
	}

	switch obj.ClassName() {
	case "Number", "String", "Boolean":
		if valueOf, ok := goja.AssertFunction(obj.Get("valueOf")); ok {
			r, err := valueOf(obj)
			if err != nil {
				return nil, false, err
			}
			if _, isObj := r.(*goja.Object); !isObj {
				return x.exportValue(key, r, depth, false)
			}
		}
	case "BigInt":
		return nil, false, errBigInt
	}

	if _, onPath := x.path[obj]; onPath {
		return nil, false, envexec.NewError(envexec.StatusRuntimeError,
			"TypeError: Converting circular structure to JSON")
	}
	if x.path == nil {
		x.path = make(map[*goja.Object]struct{})
	}
	x.path[obj] = struct{}{}
	defer delete(x.path, obj)

	if obj.ClassName() == "Array" {
		return x.exportArray(obj, depth)
	}
	return x.exportObject(obj, depth)
}

func (x *exporter) exportArray(obj *goja.Object, depth int) (any, bool, error) {
	n := int(obj.Get("length").ToInteger())
	if x.maxValues > 0 && n > x.maxValues {
		return nil, false, envexec.NewError(envexec.StatusOutputLimitExceeded,
			"return value has more than %d values", x.maxValues)
	}
	out := make([]any, 0, n)
	for i := range n {
		k := strconv.Itoa(i)
		e, defined, err := x.export(k, obj.Get(k), depth+1)
		if err != nil {
			return nil, false, err
		}
		if !defined {
			e = nil
		}
		out = append(out, e)
	}
	return out, true, nil
}

func (x *exporter) exportObject(obj *goja.Object, depth int) (any, bool, error) {
	keys := obj.Keys()
	out := make(map[string]any, len(keys))
	for _, k := range keys {
		e, defined, err := x.export(k, obj.Get(k), depth+1)
		if err != nil {
			return nil, false, err
		}
		if defined {
			out[k] = e
		}
	}
	return out, true, nil
}

var errBigInt = envexec.NewError(envexec.StatusRuntimeError, "TypeError: Do not know how to serialize a BigInt")

func exportPrimitive(v any) (any, bool, error) {
	switch v := v.(type) {
	case nil:
		return nil, true, nil
	case bool, string:
		return v, true, nil
	case int64:
		return float64(v), true, nil
	case float64:
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return nil, true, nil
		}
		if v == 0 {
			return float64(0), true, nil
		}
		return v, true, nil
	case *big.Int:
		return nil, false, errBigInt
	default:
		return nil, false, envexec.NewError(envexec.StatusRuntimeError,
			"unsupported value of type %T in return value", v)
	}
}
