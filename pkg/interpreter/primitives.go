package interpreter

import (
	"fmt"
	"io"
	"os"
	"sync"

	"github.com/Code4Community/c4c-lib/pkg/ast"
	"github.com/Code4Community/c4c-lib/pkg/diag"
	"github.com/Code4Community/c4c-lib/pkg/runtime"
)

var topLevel = sync.OnceValue(func() *runtime.Environment {
	return NewTopLevel(os.Stdout)
})

// TopLevel returns the process-wide environment holding the primitives,
// with print writing to stdout. It is created on first use.
func TopLevel() *runtime.Environment {
	return topLevel()
}

// Define binds name in the process-wide top-level environment, making it
// visible to every namespace created by NewNamespace.
func Define(name string, value runtime.Value) {
	TopLevel().Set(name, value)
}

// NewNamespace returns a fresh namespace chained to TopLevel.
func NewNamespace() *runtime.Environment {
	return TopLevel().Extend()
}

// NewTopLevel creates a standalone top-level environment whose print
// primitive writes to out.
func NewTopLevel(out io.Writer) *runtime.Environment {
	env := runtime.NewEnvironment(nil)
	for _, fn := range primitives(out) {
		env.Set(fn.Name, fn)
	}
	return env
}

func primitives(out io.Writer) []runtime.NativeFunctionValue {
	var mu sync.Mutex
	return []runtime.NativeFunctionValue{
		arithmetic("add", func(a, b runtime.Value) (runtime.Value, error) {
			if as, ok := a.(runtime.StringValue); ok {
				bs, ok := b.(runtime.StringValue)
				if !ok {
					return nil, operandError("add", a, b)
				}
				return runtime.StringValue{Val: as.Val + bs.Val}, nil
			}
			x, y, err := integers("add", a, b)
			if err != nil {
				return nil, err
			}
			return runtime.IntegerValue{Val: x + y}, nil
		}),
		arithmetic("subtract", func(a, b runtime.Value) (runtime.Value, error) {
			x, y, err := integers("subtract", a, b)
			if err != nil {
				return nil, err
			}
			return runtime.IntegerValue{Val: x - y}, nil
		}),
		arithmetic("multiply", func(a, b runtime.Value) (runtime.Value, error) {
			x, y, err := integers("multiply", a, b)
			if err != nil {
				return nil, err
			}
			return runtime.IntegerValue{Val: x * y}, nil
		}),
		arithmetic("divide", func(a, b runtime.Value) (runtime.Value, error) {
			x, y, err := integers("divide", a, b)
			if err != nil {
				return nil, err
			}
			if y == 0 {
				return nil, diag.Arithmeticf(ast.Span{}, "division by zero")
			}
			return runtime.IntegerValue{Val: x / y}, nil
		}),
		{
			Name:  "not",
			Arity: 1,
			Pure:  true,
			Impl: func(_ *runtime.NativeCallContext, args []runtime.Value) (runtime.Value, error) {
				return runtime.BoolValue{Val: !runtime.IsTruthy(args[0])}, nil
			},
		},
		{
			Name:  "print",
			Arity: 1,
			Impl: func(_ *runtime.NativeCallContext, args []runtime.Value) (runtime.Value, error) {
				mu.Lock()
				defer mu.Unlock()
				if _, err := fmt.Fprintln(out, FormatValue(args[0])); err != nil {
					return nil, fmt.Errorf("print: %w", err)
				}
				return runtime.Null, nil
			},
		},
	}
}

func arithmetic(name string, op func(a, b runtime.Value) (runtime.Value, error)) runtime.NativeFunctionValue {
	return runtime.NativeFunctionValue{
		Name:  name,
		Arity: 2,
		Pure:  true,
		Impl: func(_ *runtime.NativeCallContext, args []runtime.Value) (runtime.Value, error) {
			return op(args[0], args[1])
		},
	}
}

func integers(name string, a, b runtime.Value) (int64, int64, error) {
	x, okA := a.(runtime.IntegerValue)
	y, okB := b.(runtime.IntegerValue)
	if !okA || !okB {
		return 0, 0, operandError(name, a, b)
	}
	return x.Val, y.Val, nil
}

func operandError(name string, a, b runtime.Value) error {
	return diag.Typef(ast.Span{}, "%s cannot be applied to %s and %s", name, KindName(a), KindName(b))
}
