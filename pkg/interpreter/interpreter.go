package interpreter

import (
	"context"

	"github.com/Code4Community/c4c-lib/pkg/ast"
	"github.com/Code4Community/c4c-lib/pkg/parser"
	"github.com/Code4Community/c4c-lib/pkg/runtime"
)

// DefaultMaxCallDepth bounds nested closure calls before a RecursionError.
const DefaultMaxCallDepth = 10000

// Interpreter evaluates and steps program trees. It holds no per-program
// state, so one Interpreter may serve any number of namespaces.
type Interpreter struct {
	maxDepth int
}

// Option configures an Interpreter.
type Option func(*Interpreter)

// WithMaxCallDepth overrides DefaultMaxCallDepth.
func WithMaxCallDepth(depth int) Option {
	return func(i *Interpreter) {
		if depth > 0 {
			i.maxDepth = depth
		}
	}
}

// New returns an interpreter.
func New(opts ...Option) *Interpreter {
	i := &Interpreter{maxDepth: DefaultMaxCallDepth}
	for _, opt := range opts {
		opt(i)
	}
	return i
}

// evalState is the per-call bookkeeping threaded through one Evaluate or
// Step invocation.
type evalState struct {
	ctx   context.Context
	depth int
}

func newEvalState(ctx context.Context) *evalState {
	if ctx == nil {
		ctx = context.Background()
	}
	return &evalState{ctx: ctx}
}

// Evaluate runs node to completion in env and returns the value of the last
// statement evaluated. A nil Value means nothing was evaluated.
func (i *Interpreter) Evaluate(node ast.Node, env *runtime.Environment) (runtime.Value, error) {
	return i.EvaluateContext(context.Background(), node, env)
}

// EvaluateContext is Evaluate with cancellation. ctx is observed on every
// loop iteration and function call, which is the only way to stop a
// forever loop under full evaluation.
func (i *Interpreter) EvaluateContext(ctx context.Context, node ast.Node, env *runtime.Environment) (runtime.Value, error) {
	return i.eval(newEvalState(ctx), node, env)
}

// Run parses source and evaluates it in env.
func Run(source string, env *runtime.Environment) (runtime.Value, error) {
	program, err := parser.Read(source)
	if err != nil {
		return nil, err
	}
	return New().Evaluate(program, env)
}
