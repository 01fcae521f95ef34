package interpreter

import (
	"github.com/Code4Community/c4c-lib/pkg/ast"
	"github.com/Code4Community/c4c-lib/pkg/diag"
	"github.com/Code4Community/c4c-lib/pkg/runtime"
)

func (i *Interpreter) eval(st *evalState, node ast.Node, env *runtime.Environment) (runtime.Value, error) {
	switch n := node.(type) {
	case *ast.Program:
		return i.evalStatements(st, n.Body, env)
	case *ast.Block:
		if n == nil {
			return nil, nil
		}
		return i.evalStatements(st, n.Body, env)
	case *ast.SetStatement:
		return i.evalSet(st, n, env)
	case *ast.IfStatement:
		return i.evalIf(st, n, env)
	case *ast.TimesStatement:
		return i.evalTimes(st, n, env)
	case *ast.CallStatement:
		return i.evalCall(st, n, n.Callee, n.Arguments, env)
	case *ast.CallExpression:
		return i.evalCall(st, n, n.Callee, n.Arguments, env)
	case *ast.Function:
		if n.Body == nil {
			return nil, diag.InvalidConstructf(n.Span(), "function requires a body")
		}
		return &runtime.FunctionValue{Declaration: n, Closure: env}, nil
	case *ast.Symbol:
		val, ok := env.Get(n.Name)
		if !ok {
			return nil, diag.Namef(n.Span(), "symbol '%s' not found in scope", n.Name)
		}
		return val, nil
	case *ast.Number:
		return runtime.IntegerValue{Val: n.Value}, nil
	case *ast.Boolean:
		return runtime.BoolValue{Val: n.Value}, nil
	case *ast.Null:
		return runtime.Null, nil
	case *ast.String:
		return runtime.StringValue{Val: n.Value}, nil
	case *ast.Forever:
		return nil, diag.InvalidConstructf(n.Span(), "'forever' is only valid as a times count")
	case nil:
		return nil, diag.Internalf(ast.Span{}, "missing node")
	default:
		return nil, diag.Internalf(node.Span(), "unexpected %s node", node.NodeType())
	}
}

func (i *Interpreter) evalStatements(st *evalState, body []ast.Statement, env *runtime.Environment) (runtime.Value, error) {
	var result runtime.Value
	for _, stmt := range body {
		val, err := i.eval(st, stmt, env)
		if err != nil {
			return nil, err
		}
		result = val
	}
	return result, nil
}

func (i *Interpreter) evalSet(st *evalState, n *ast.SetStatement, env *runtime.Environment) (runtime.Value, error) {
	if n.Name == nil || n.Value == nil {
		return nil, diag.InvalidConstructf(n.Span(), "set requires a symbol and a value")
	}
	val, err := i.eval(st, n.Value, env)
	if err != nil {
		return nil, err
	}
	val = runtime.OrNull(val)
	env.Set(n.Name.Name, val)
	return val, nil
}

func (i *Interpreter) evalIf(st *evalState, n *ast.IfStatement, env *runtime.Environment) (runtime.Value, error) {
	if err := validateIf(n); err != nil {
		return nil, err
	}
	cond, err := i.eval(st, n.Condition, env)
	if err != nil {
		return nil, err
	}
	if runtime.IsTruthy(cond) {
		return i.eval(st, n.Then, env)
	}
	if n.Else == nil {
		return runtime.Null, nil
	}
	return i.eval(st, n.Else, env)
}

func (i *Interpreter) evalTimes(st *evalState, n *ast.TimesStatement, env *runtime.Environment) (runtime.Value, error) {
	frame, err := i.loopFrame(st, n, env)
	if err != nil {
		return nil, err
	}
	var result runtime.Value
	for !frame.Done() {
		if err := st.ctx.Err(); err != nil {
			return nil, err
		}
		val, err := i.eval(st, n.Body, env)
		if err != nil {
			return nil, err
		}
		result = val
		frame.Iteration++
	}
	return result, nil
}

// loopFrame evaluates the count of a times statement once and returns the
// initial frame for it. Counts of zero or less yield a frame that is
// already done.
func (i *Interpreter) loopFrame(st *evalState, n *ast.TimesStatement, env *runtime.Environment) (runtime.LoopFrame, error) {
	if n.Body == nil {
		return runtime.LoopFrame{}, diag.InvalidConstructf(n.Span(), "times requires a body")
	}
	switch count := n.Count.(type) {
	case *ast.Forever:
		return runtime.LoopFrame{Forever: true}, nil
	case *ast.Number, *ast.Symbol:
		val, err := i.eval(st, count, env)
		if err != nil {
			return runtime.LoopFrame{}, err
		}
		bound, ok := val.(runtime.IntegerValue)
		if !ok {
			return runtime.LoopFrame{}, diag.Typef(count.Span(), "times count must be an integer, got %s", KindName(val))
		}
		return runtime.LoopFrame{Bound: bound.Val}, nil
	case nil:
		return runtime.LoopFrame{}, diag.InvalidConstructf(n.Span(), "times requires a count")
	default:
		return runtime.LoopFrame{}, diag.InvalidConstructf(count.Span(), "times count must be a number, symbol or forever, got %s", count.NodeType())
	}
}

func validateIf(n *ast.IfStatement) error {
	if n.Condition == nil || n.Then == nil {
		return diag.InvalidConstructf(n.Span(), "if requires a condition and a body")
	}
	return nil
}

func (i *Interpreter) evalCall(st *evalState, node ast.Node, callee ast.Expression, args []ast.Expression, env *runtime.Environment) (runtime.Value, error) {
	if callee == nil {
		return nil, diag.InvalidConstructf(node.Span(), "call requires a callee")
	}
	fn, err := i.eval(st, callee, env)
	if err != nil {
		return nil, err
	}
	values := make([]runtime.Value, 0, len(args))
	for _, arg := range args {
		val, err := i.eval(st, arg, env)
		if err != nil {
			return nil, err
		}
		values = append(values, runtime.OrNull(val))
	}
	return i.callFunction(st, node, fn, values, env)
}

// callFunction invokes a callable with already evaluated arguments.
func (i *Interpreter) callFunction(st *evalState, node ast.Node, fn runtime.Value, args []runtime.Value, env *runtime.Environment) (runtime.Value, error) {
	if err := st.ctx.Err(); err != nil {
		return nil, err
	}
	switch f := fn.(type) {
	case runtime.NativeFunctionValue:
		if f.Arity >= 0 && len(args) != f.Arity {
			return nil, diag.Typef(node.Span(), "%s expects %d argument(s), got %d", f.Name, f.Arity, len(args))
		}
		val, err := f.Impl(&runtime.NativeCallContext{Env: env}, args)
		if err != nil {
			return nil, diag.WithSpan(err, node.Span())
		}
		return val, nil
	case *runtime.FunctionValue:
		params := f.Params()
		if len(args) != len(params) {
			return nil, diag.Typef(node.Span(), "function expects %d argument(s), got %d", len(params), len(args))
		}
		if st.depth >= i.maxDepth {
			return nil, diag.Recursionf(node.Span(), "maximum call depth %d exceeded", i.maxDepth)
		}
		st.depth++
		defer func() { st.depth-- }()
		frame := runtime.NewBoundEnvironment(f.Closure, params, args)
		return i.eval(st, f.Declaration.Body, frame)
	default:
		return nil, diag.Typef(node.Span(), "cannot call %s", KindName(fn))
	}
}
