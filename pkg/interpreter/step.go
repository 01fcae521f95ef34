package interpreter

import (
	"context"

	"github.com/Code4Community/c4c-lib/pkg/ast"
	"github.com/Code4Community/c4c-lib/pkg/diag"
	"github.com/Code4Community/c4c-lib/pkg/runtime"
)

// Step executes the single atomic statement at loc and returns its value
// together with the location of the next one. Feeding each returned
// location back in replays the program in the same order Evaluate would.
// Loop iteration state is kept in env under LoopStackBinding; nothing else
// survives between calls.
//
// A location past the end returns (nil, Finished()) without evaluating
// anything. On error the returned location is loc and env's loop frames
// are left as they were before the call.
func (i *Interpreter) Step(program ast.Node, loc Location, env *runtime.Environment) (runtime.Value, Location, error) {
	return i.StepContext(context.Background(), program, loc, env)
}

// StepContext is Step with cancellation.
func (i *Interpreter) StepContext(ctx context.Context, program ast.Node, loc Location, env *runtime.Environment) (runtime.Value, Location, error) {
	if loc.Done() {
		return nil, Finished(), nil
	}
	st := newEvalState(ctx)
	if err := st.ctx.Err(); err != nil {
		return nil, loc, err
	}
	var body []ast.Statement
	switch p := program.(type) {
	case *ast.Program:
		body = p.Body
	case *ast.Block:
		body = p.Body
	case nil:
		return nil, loc, diag.Internalf(ast.Span{}, "no program to step")
	default:
		return nil, loc, diag.Internalf(program.Span(), "cannot step a %s node", program.NodeType())
	}

	restore := checkpointLoops(env)
	val, next, err := i.stepSequence(st, body, loc, env)
	if err != nil {
		restore()
		return nil, loc, err
	}
	if next.Done() {
		return val, Finished(), nil
	}
	return val, next, nil
}

// stepSequence steps a statement list sitting at loc.head() in its parent.
// The tail of loc selects the statement; an index past the end means the
// list is exhausted.
func (i *Interpreter) stepSequence(st *evalState, body []ast.Statement, loc Location, env *runtime.Environment) (runtime.Value, Location, error) {
	index := loc.head()
	childPath := loc.tail()
	start := childPath.head()
	if start < 0 {
		return nil, nil, diag.Internalf(ast.Span{}, "stale location %s: negative statement index", loc)
	}
	if start >= len(body) {
		return nil, Location{index + 1}, nil
	}
	val, next, err := i.stepNode(st, body[start], childPath, env)
	if err != nil {
		return nil, nil, err
	}
	if next.head() >= len(body) {
		return val, Location{index + 1}, nil
	}
	return val, within(index, next), nil
}

func (i *Interpreter) stepNode(st *evalState, node ast.Node, loc Location, env *runtime.Environment) (runtime.Value, Location, error) {
	switch n := node.(type) {
	case *ast.Block:
		if n == nil {
			return nil, Location{loc.head() + 1}, nil
		}
		return i.stepSequence(st, n.Body, loc, env)
	case *ast.IfStatement:
		return i.stepIf(st, n, loc, env)
	case *ast.TimesStatement:
		return i.stepTimes(st, n, loc, env)
	default:
		val, err := i.eval(st, node, env)
		if err != nil {
			return nil, nil, err
		}
		return val, Location{loc.head() + 1}, nil
	}
}

// stepIf evaluates the condition on entry and then descends into the chosen
// branch; child 1 is the then block and child 2 the else block.
func (i *Interpreter) stepIf(st *evalState, n *ast.IfStatement, loc Location, env *runtime.Environment) (runtime.Value, Location, error) {
	if err := validateIf(n); err != nil {
		return nil, nil, err
	}
	index := loc.head()
	childPath := loc.tail()
	if childPath.head() == 0 {
		cond, err := i.eval(st, n.Condition, env)
		if err != nil {
			return nil, nil, err
		}
		if runtime.IsTruthy(cond) {
			childPath = Location{1, 0}
		} else {
			childPath = Location{2, 0}
		}
	}

	switch childPath.head() {
	case 1:
		val, next, err := i.stepNode(st, n.Then, childPath, env)
		if err != nil {
			return nil, nil, err
		}
		if next.head() > 1 {
			return val, Location{index + 1}, nil
		}
		return val, within(index, next), nil
	case 2:
		if n.Else == nil {
			return runtime.Null, Location{index + 1}, nil
		}
		val, next, err := i.stepNode(st, n.Else, childPath, env)
		if err != nil {
			return nil, nil, err
		}
		if next.head() > 2 {
			return val, Location{index + 1}, nil
		}
		return val, within(index, next), nil
	default:
		return nil, nil, diag.Internalf(n.Span(), "stale location %s: if statement has no child %d", loc, childPath.head())
	}
}

// stepTimes runs one atomic statement of the loop body. The count is
// evaluated once on entry and the frame is carried between calls on the
// loop stack in env.
func (i *Interpreter) stepTimes(st *evalState, n *ast.TimesStatement, loc Location, env *runtime.Environment) (runtime.Value, Location, error) {
	index := loc.head()
	childPath := loc.tail()
	if n.Body == nil {
		return nil, nil, diag.InvalidConstructf(n.Span(), "times requires a body")
	}

	var entered *runtime.LoopFrame
	if len(childPath) == 0 {
		frame, err := i.loopFrame(st, n, env)
		if err != nil {
			return nil, nil, err
		}
		if frame.Done() {
			return nil, Location{index + 1}, nil
		}
		entered = &frame
		childPath = Location{1, 0}
	}
	if childPath.head() != 1 {
		return nil, nil, diag.Internalf(n.Span(), "stale location %s: times statement has no child %d", loc, childPath.head())
	}

	stack := loopStack(env)
	var frame runtime.LoopFrame
	if entered != nil {
		frame = *entered
	} else {
		var ok bool
		if frame, ok = stack.Pop(); !ok {
			return nil, nil, diag.Internalf(n.Span(), "stale location %s: no active loop", loc)
		}
	}

	val, next, err := i.stepNode(st, n.Body, childPath, env)
	if err != nil {
		return nil, nil, err
	}
	if next.head() <= 1 {
		stack.Push(frame)
		return val, within(index, next), nil
	}

	frame.Iteration++
	if frame.Done() {
		return val, Location{index + 1}, nil
	}
	stack.Push(frame)
	return val, Location{index, 1, 0}, nil
}
