package interpreter

import (
	"errors"
	"reflect"
	"testing"

	"github.com/Code4Community/c4c-lib/pkg/ast"
	"github.com/Code4Community/c4c-lib/pkg/diag"
	"github.com/Code4Community/c4c-lib/pkg/runtime"
)

func TestStepSingleStatement(t *testing.T) {
	env, _ := newTestNamespace()
	val, next, err := New().Step(mustParse(t, "set x (add 1 2) end"), Start(), env)
	if err != nil {
		t.Fatalf("step failed: %v", err)
	}
	if iv, ok := val.(runtime.IntegerValue); !ok || iv.Val != 3 {
		t.Fatalf("unexpected result %#v", val)
	}
	if !reflect.DeepEqual(next, Location{1}) {
		t.Fatalf("expected [1], got %s", next)
	}
	if got := intBinding(t, env, "x"); got != 3 {
		t.Fatalf("expected x = 3, got %d", got)
	}
}

func TestStepStartLocationsAreEquivalent(t *testing.T) {
	program := mustParse(t, "(print 1) (print 2)")
	for _, start := range []Location{nil, {}, {0}, {0, 0}} {
		env, out := newTestNamespace()
		_, next, err := New().Step(program, start, env)
		if err != nil {
			t.Fatalf("step from %s failed: %v", start, err)
		}
		if !reflect.DeepEqual(next, Location{0, 1}) {
			t.Fatalf("step from %s: expected [0 1], got %s", start, next)
		}
		if out.String() != "1\n" {
			t.Fatalf("step from %s printed %q", start, out.String())
		}
	}
}

func TestStepPastEndIsNoop(t *testing.T) {
	env, out := newTestNamespace()
	program := mustParse(t, "(print 1)")
	for _, loc := range []Location{{1}, {2, 0}, {7}} {
		val, next, err := New().Step(program, loc, env)
		if err != nil {
			t.Fatalf("step failed: %v", err)
		}
		if val != nil || !reflect.DeepEqual(next, Finished()) {
			t.Fatalf("expected (nil, [1]), got (%#v, %s)", val, next)
		}
	}
	if out.Len() != 0 {
		t.Fatalf("nothing should run past the end, got %q", out.String())
	}
}

func TestStepEmptyProgramFinishes(t *testing.T) {
	env, _ := newTestNamespace()
	val, next, err := New().Step(ast.Prog(), Start(), env)
	if err != nil {
		t.Fatalf("step failed: %v", err)
	}
	if val != nil || !next.Done() {
		t.Fatalf("expected done, got (%#v, %s)", val, next)
	}
}

func TestStepTimesCounterScenario(t *testing.T) {
	env, _ := newTestNamespace()
	env.Set("x", runtime.IntegerValue{Val: 0})
	program := mustParse(t, "times 2 set x (add x 1) end end")
	interp := New()

	val, loc, err := interp.Step(program, Start(), env)
	if err != nil {
		t.Fatalf("first step failed: %v", err)
	}
	if !reflect.DeepEqual(loc, Location{0, 0, 1, 0}) {
		t.Fatalf("expected to loop back to [0 0 1 0], got %s", loc)
	}
	if val.(runtime.IntegerValue).Val != 1 || intBinding(t, env, "x") != 1 {
		t.Fatalf("unexpected state after first pass: %#v", val)
	}

	val, loc, err = interp.Step(program, loc, env)
	if err != nil {
		t.Fatalf("second step failed: %v", err)
	}
	if !loc.Done() {
		t.Fatalf("expected done after two passes, got %s", loc)
	}
	if val.(runtime.IntegerValue).Val != 2 || intBinding(t, env, "x") != 2 {
		t.Fatalf("unexpected final state: %#v", val)
	}
	if frames := LoopFrames(env); len(frames) != 0 {
		t.Fatalf("loop frames left behind: %+v", frames)
	}
}

func TestStepTimesRunsExactlyN(t *testing.T) {
	for _, n := range []int64{1, 2, 3, 7} {
		env, _ := newTestNamespace()
		env.Set("n", runtime.IntegerValue{Val: n})
		program := mustParse(t, "set c 0 end times n set c (add c 1) end (print c) end")
		_, steps, _ := stepToEnd(t, New(), program, env, 1000)
		if got := intBinding(t, env, "c"); got != n {
			t.Fatalf("count %d ran the body %d times", n, got)
		}
		if want := int(1 + 2*n); steps != want {
			t.Fatalf("count %d: expected %d steps, got %d", n, want, steps)
		}
	}
}

func TestStepTimesZeroSkipsBody(t *testing.T) {
	env, out := newTestNamespace()
	program := mustParse(t, "times 0 (print 1) end (print 2)")
	interp := New()

	val, loc, err := interp.Step(program, Start(), env)
	if err != nil {
		t.Fatalf("step failed: %v", err)
	}
	if val != nil || !reflect.DeepEqual(loc, Location{0, 1}) {
		t.Fatalf("expected (nil, [0 1]), got (%#v, %s)", val, loc)
	}
	if out.Len() != 0 {
		t.Fatalf("body ran: %q", out.String())
	}
	if _, ok := env.Lookup(LoopStackBinding); ok {
		t.Fatalf("a zero count must not touch the loop stack")
	}
	if _, loc, err = interp.Step(program, loc, env); err != nil || !loc.Done() {
		t.Fatalf("expected to finish, got %s %v", loc, err)
	}
	if out.String() != "2\n" {
		t.Fatalf("unexpected output %q", out.String())
	}
}

func TestStepNestedTimes(t *testing.T) {
	env, out := newTestNamespace()
	src := `
set outer 0 end
times 3
  set outer (add outer 1) end
  set inner 0 end
  times 2
    set inner (add inner 1) end
    (print (add (multiply outer 10) inner))
  end
end`
	program := mustParse(t, src)
	stepToEnd(t, New(), program, env, 1000)

	want := "11\n12\n21\n22\n31\n32\n"
	if out.String() != want {
		t.Fatalf("unexpected output\n got %q\nwant %q", out.String(), want)
	}
	if frames := LoopFrames(env); len(frames) != 0 {
		t.Fatalf("loop frames left behind: %+v", frames)
	}
}

func TestStepNestedLoopFramesAtRest(t *testing.T) {
	env, _ := newTestNamespace()
	program := mustParse(t, "times 3 times 2 (print 1) (print 2) end end")
	interp := New()

	_, loc, err := interp.Step(program, Start(), env)
	if err != nil {
		t.Fatalf("step failed: %v", err)
	}
	if !reflect.DeepEqual(loc, Location{0, 0, 1, 0, 1, 1}) {
		t.Fatalf("unexpected location %s", loc)
	}
	frames := LoopFrames(env)
	want := []runtime.LoopFrame{{Iteration: 0, Bound: 2}, {Iteration: 0, Bound: 3}}
	if !reflect.DeepEqual(frames, want) {
		t.Fatalf("unexpected frames %+v", frames)
	}
}

func TestStepIfEvaluatesConditionOnce(t *testing.T) {
	env, out := newTestNamespace()
	src := `
set probe function ()
  (print "cond")
  set r true end
end end
if (probe)
  (print "a")
  (print "b")
end`
	_, steps, _ := stepToEnd(t, New(), mustParse(t, src), env, 100)
	if got := out.String(); got != "cond\na\nb\n" {
		t.Fatalf("expected the condition to run once, got %q", got)
	}
	if steps != 3 {
		t.Fatalf("expected 3 steps, got %d", steps)
	}
}

func TestStepIfShortCircuit(t *testing.T) {
	src := `if false (print "A") else (print "B") (print "C") end`
	env, out := newTestNamespace()
	program := mustParse(t, src)
	interp := New()

	_, loc, err := interp.Step(program, Start(), env)
	if err != nil {
		t.Fatalf("step failed: %v", err)
	}
	if !reflect.DeepEqual(loc, Location{0, 0, 2, 1}) {
		t.Fatalf("expected to resume inside else at [0 0 2 1], got %s", loc)
	}
	if _, loc, err = interp.Step(program, loc, env); err != nil || !loc.Done() {
		t.Fatalf("expected to finish, got %s %v", loc, err)
	}
	if out.String() != "B\nC\n" {
		t.Fatalf("unexpected output %q", out.String())
	}
}

func TestStepIfWithoutElseFalse(t *testing.T) {
	env, out := newTestNamespace()
	val, loc, err := New().Step(mustParse(t, `if null (print "x") end`), Start(), env)
	if err != nil {
		t.Fatalf("step failed: %v", err)
	}
	if _, ok := val.(runtime.NullValue); !ok || !loc.Done() {
		t.Fatalf("expected (null, done), got (%#v, %s)", val, loc)
	}
	if out.Len() != 0 {
		t.Fatalf("then branch ran: %q", out.String())
	}
}

func TestStepForeverKeepsLooping(t *testing.T) {
	env, _ := newTestNamespace()
	program := mustParse(t, "set n 0 end forever set n (add n 1) end end")
	interp := New()
	loc := Start()
	for i := 0; i < 50; i++ {
		var err error
		if _, loc, err = interp.Step(program, loc, env); err != nil {
			t.Fatalf("step %d failed: %v", i, err)
		}
		if loc.Done() {
			t.Fatalf("forever loop finished after %d steps", i)
		}
	}
	if got := intBinding(t, env, "n"); got != 49 {
		t.Fatalf("expected 49 iterations, got %d", got)
	}
	frames := LoopFrames(env)
	if len(frames) != 1 || !frames[0].Forever {
		t.Fatalf("expected a single forever frame, got %+v", frames)
	}
}

func TestStepErrorLeavesStateUnchanged(t *testing.T) {
	env, _ := newTestNamespace()
	program := mustParse(t, "times 3 (print 1) (print missing) end")
	interp := New()

	_, loc, err := interp.Step(program, Start(), env)
	if err != nil {
		t.Fatalf("first step failed: %v", err)
	}
	before := LoopFrames(env)

	_, failedAt, err := interp.Step(program, loc, env)
	if !errors.Is(err, diag.ErrName) {
		t.Fatalf("expected NameError, got %v", err)
	}
	if !reflect.DeepEqual(failedAt, loc) {
		t.Fatalf("expected location %s to be returned on error, got %s", loc, failedAt)
	}
	if after := LoopFrames(env); !reflect.DeepEqual(before, after) {
		t.Fatalf("loop frames changed on error: %+v -> %+v", before, after)
	}
}

func TestStepStaleLocationIsInternal(t *testing.T) {
	env, _ := newTestNamespace()
	program := mustParse(t, "times 3 (print 1) (print 2) end")
	_, _, err := New().Step(program, Location{0, 0, 1, 1}, env)
	if !errors.Is(err, diag.ErrInternal) {
		t.Fatalf("expected InternalError for a loop location without frames, got %v", err)
	}
	if _, ok := env.Lookup(LoopStackBinding); ok {
		t.Fatalf("failed step left a loop stack binding behind")
	}

	ifProgram := mustParse(t, "if true (print 1) end")
	_, _, err = New().Step(ifProgram, Location{0, 0, 5}, env)
	if !errors.Is(err, diag.ErrInternal) {
		t.Fatalf("expected InternalError for an invalid if child, got %v", err)
	}

	negative := mustParse(t, "if true (print 1) (print 2) end")
	for _, loc := range []Location{{0, -1}, {0, 0, 1, -1}} {
		val, at, err := New().Step(negative, loc, env)
		if !errors.Is(err, diag.ErrInternal) {
			t.Fatalf("%s: expected InternalError for a negative index, got %v %v", loc, val, err)
		}
		if !at.Equal(loc) {
			t.Fatalf("%s: location moved to %s", loc, at)
		}
	}
}

func TestStepInvalidTimesCount(t *testing.T) {
	env, _ := newTestNamespace()
	_, _, err := New().Step(mustParse(t, `times "3" (print 1) end`), Start(), env)
	if !errors.Is(err, diag.ErrInvalidConstruct) {
		t.Fatalf("expected InvalidConstruct for a string literal count, got %v", err)
	}
	env.Set("s", runtime.StringValue{Val: "3"})
	_, _, err = New().Step(mustParse(t, `times s (print 1) end`), Start(), env)
	if !errors.Is(err, diag.ErrType) {
		t.Fatalf("expected TypeError for a string-valued count, got %v", err)
	}
}

func TestStepMatchesEvaluate(t *testing.T) {
	programs := []string{
		`set x 1 end (print x)`,
		`set x 0 end times 4 set x (add x 2) end (print x) end`,
		`if (not null) (print "yes") else (print "no") end (print "after")`,
		`times 2 if true (print "t") else (print "f") end times 3 (print "inner") end end`,
		`set f function (a) (print a) end end times 3 (f "call") end`,
		`set s "" end times 3 set s (add s "ab") end end (print s)`,
		`times 2 end (print "empty body")`,
		`if true end (print "empty then")`,
		`set k 2 end times k times k times k (print k) end end end`,
		`set d (divide 7 2) end (print d) (print (subtract 0 d))`,
	}
	for _, src := range programs {
		program := mustParse(t, src)

		evalEnv, evalOut := newTestNamespace()
		want, err := New().Evaluate(program, evalEnv)
		if err != nil {
			t.Fatalf("%s: evaluate failed: %v", src, err)
		}

		stepEnv, stepOut := newTestNamespace()
		got, _, _ := stepToEnd(t, New(), program, stepEnv, 10000)

		if evalOut.String() != stepOut.String() {
			t.Fatalf("%s: output differs\n eval %q\n step %q", src, evalOut.String(), stepOut.String())
		}
		if !runtime.Equal(want, got) {
			t.Fatalf("%s: result differs: eval %s, step %s", src, FormatValue(want), FormatValue(got))
		}
		for _, name := range evalEnv.Keys() {
			ev, _ := evalEnv.Get(name)
			sv, ok := stepEnv.Get(name)
			if !ok {
				t.Fatalf("%s: %s missing after stepping", src, name)
			}
			if _, isFn := ev.(*runtime.FunctionValue); isFn {
				continue
			}
			if !runtime.Equal(ev, sv) {
				t.Fatalf("%s: binding %s differs: %s vs %s", src, name, FormatValue(ev), FormatValue(sv))
			}
		}
	}
}
