package checker

import (
	"github.com/Code4Community/c4c-lib/pkg/ast"
	"github.com/Code4Community/c4c-lib/pkg/diag"
	"github.com/Code4Community/c4c-lib/pkg/runtime"
)

// kindPending marks values the checker cannot know without running the
// program: results of impure or user calls, parameters, and branches.
const kindPending runtime.Kind = -1

type pendingValue struct{}

func (pendingValue) Kind() runtime.Kind { return kindPending }

var pending runtime.Value = pendingValue{}

func isPending(v runtime.Value) bool {
	_, ok := v.(pendingValue)
	return ok
}

// Checker validates a program without running it. Every branch of an if is
// visited, every loop body is visited once, and function bodies are visited
// once after the top-level pass, so a check always terminates.
type Checker struct {
	// Trace, when set, is called for every statement visited.
	Trace func(ast.Node)

	deferred []deferredBody
	scopes   []*runtime.Environment
}

type deferredBody struct {
	fn  *ast.Function
	env *runtime.Environment
}

// New returns a checker instance.
func New() *Checker {
	return &Checker{}
}

// Check validates program against env and fails on the first error found.
// Bindings made while checking go to a scratch child of env, which is
// discarded; env itself is never written.
func Check(program ast.Node, env *runtime.Environment) (runtime.Value, error) {
	return New().Check(program, env)
}

// Check validates program against env. The returned value is the last
// statement's value when it is known without running anything, else nil.
func (c *Checker) Check(program ast.Node, env *runtime.Environment) (runtime.Value, error) {
	c.deferred = nil
	c.scopes = nil
	scratch := c.scope(env)
	result, err := c.check(program, scratch)
	if err != nil {
		return nil, err
	}
	for len(c.deferred) > 0 {
		next := c.deferred[0]
		c.deferred = c.deferred[1:]
		// A body may run at any point after its definition, so nothing the
		// program assigned is known inside it.
		c.forgetAssigned()
		if err := c.checkFunctionBody(next); err != nil {
			return nil, err
		}
	}
	if isPending(result) {
		return nil, nil
	}
	return result, nil
}

func (c *Checker) check(node ast.Node, env *runtime.Environment) (runtime.Value, error) {
	switch n := node.(type) {
	case *ast.Program:
		return c.checkStatements(n.Body, env)
	case *ast.Block:
		if n == nil {
			return nil, nil
		}
		return c.checkStatements(n.Body, env)
	case *ast.SetStatement:
		if n.Name == nil || n.Value == nil {
			return nil, diag.InvalidConstructf(n.Span(), "set requires a symbol and a value")
		}
		val, err := c.check(n.Value, env)
		if err != nil {
			return nil, err
		}
		val = runtime.OrNull(val)
		env.Set(n.Name.Name, val)
		return val, nil
	case *ast.IfStatement:
		return c.checkIf(n, env)
	case *ast.TimesStatement:
		return c.checkTimes(n, env)
	case *ast.CallStatement:
		return c.checkCall(n, n.Callee, n.Arguments, env)
	case *ast.CallExpression:
		return c.checkCall(n, n.Callee, n.Arguments, env)
	case *ast.Function:
		if n.Body == nil {
			return nil, diag.InvalidConstructf(n.Span(), "function requires a body")
		}
		c.deferred = append(c.deferred, deferredBody{fn: n, env: env})
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

func (c *Checker) checkStatements(body []ast.Statement, env *runtime.Environment) (runtime.Value, error) {
	var result runtime.Value
	for _, stmt := range body {
		if c.Trace != nil {
			c.Trace(stmt)
		}
		val, err := c.check(stmt, env)
		if err != nil {
			return nil, err
		}
		result = val
	}
	return result, nil
}

// checkIf visits the condition and then both branches, whatever the
// condition's value.
func (c *Checker) checkIf(n *ast.IfStatement, env *runtime.Environment) (runtime.Value, error) {
	if n.Condition == nil || n.Then == nil {
		return nil, diag.InvalidConstructf(n.Span(), "if requires a condition and a body")
	}
	if _, err := c.check(n.Condition, env); err != nil {
		return nil, err
	}
	if err := c.checkBranch(n.Then, env); err != nil {
		return nil, err
	}
	if n.Else != nil {
		if err := c.checkBranch(n.Else, env); err != nil {
			return nil, err
		}
	}
	return pending, nil
}

// checkBranch visits a body that may run any number of times, including
// none. It gets its own scratch scope; every name it assigns is pending in
// env afterwards.
func (c *Checker) checkBranch(body ast.Node, env *runtime.Environment) error {
	inner := c.scope(env)
	if _, err := c.check(body, inner); err != nil {
		return err
	}
	for _, name := range inner.Keys() {
		env.Set(name, pending)
	}
	return nil
}

func (c *Checker) scope(parent *runtime.Environment) *runtime.Environment {
	env := runtime.NewEnvironment(parent)
	c.scopes = append(c.scopes, env)
	return env
}

// forgetAssigned turns every value bound while checking into pending.
// Functions stay known so calls to them still get their arity checked.
func (c *Checker) forgetAssigned() {
	for _, env := range c.scopes {
		for name, val := range env.Snapshot() {
			if _, ok := val.(*runtime.FunctionValue); ok {
				continue
			}
			env.Set(name, pending)
		}
	}
}

// checkTimes validates the count and visits the body exactly once.
func (c *Checker) checkTimes(n *ast.TimesStatement, env *runtime.Environment) (runtime.Value, error) {
	if n.Body == nil {
		return nil, diag.InvalidConstructf(n.Span(), "times requires a body")
	}
	switch count := n.Count.(type) {
	case *ast.Forever:
	case *ast.Number, *ast.Symbol:
		val, err := c.check(count, env)
		if err != nil {
			return nil, err
		}
		if _, ok := val.(runtime.IntegerValue); !ok && !isPending(val) {
			return nil, diag.Typef(count.Span(), "times count must be an integer, got %s", kindName(val))
		}
	case nil:
		return nil, diag.InvalidConstructf(n.Span(), "times requires a count")
	default:
		return nil, diag.InvalidConstructf(count.Span(), "times count must be a number, symbol or forever, got %s", count.NodeType())
	}
	if err := c.checkBranch(n.Body, env); err != nil {
		return nil, err
	}
	return pending, nil
}

// checkCall validates the callee and arguments. Pure natives run when all
// their arguments are known; anything else yields a pending result.
func (c *Checker) checkCall(node ast.Node, callee ast.Expression, args []ast.Expression, env *runtime.Environment) (runtime.Value, error) {
	if callee == nil {
		return nil, diag.InvalidConstructf(node.Span(), "call requires a callee")
	}
	fn, err := c.check(callee, env)
	if err != nil {
		return nil, err
	}
	values := make([]runtime.Value, 0, len(args))
	known := true
	for _, arg := range args {
		val, err := c.check(arg, env)
		if err != nil {
			return nil, err
		}
		if isPending(val) {
			known = false
		}
		values = append(values, runtime.OrNull(val))
	}

	switch f := fn.(type) {
	case pendingValue:
		return pending, nil
	case runtime.NativeFunctionValue:
		if f.Arity >= 0 && len(values) != f.Arity {
			return nil, diag.Typef(node.Span(), "%s expects %d argument(s), got %d", f.Name, f.Arity, len(values))
		}
		if !f.Pure || !known {
			return pending, nil
		}
		val, err := f.Impl(&runtime.NativeCallContext{Env: env}, values)
		if err != nil {
			return nil, diag.WithSpan(err, node.Span())
		}
		return val, nil
	case *runtime.FunctionValue:
		if len(values) != f.Arity() {
			return nil, diag.Typef(node.Span(), "function expects %d argument(s), got %d", f.Arity(), len(values))
		}
		return pending, nil
	default:
		return nil, diag.Typef(node.Span(), "cannot call %s", kindName(fn))
	}
}

// checkFunctionBody visits a function body once with every parameter bound
// to a pending value.
func (c *Checker) checkFunctionBody(body deferredBody) error {
	params := body.fn.ParamNames()
	args := make([]runtime.Value, len(params))
	for i := range args {
		args[i] = pending
	}
	frame := runtime.NewBoundEnvironment(body.env, params, args)
	c.scopes = append(c.scopes, frame)
	_, err := c.check(body.fn.Body, frame)
	return err
}

func kindName(v runtime.Value) string {
	switch {
	case v == nil:
		return "absent"
	case isPending(v):
		return "unknown"
	default:
		return v.Kind().String()
	}
}
