package interpreter

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/Code4Community/c4c-lib/pkg/ast"
	"github.com/Code4Community/c4c-lib/pkg/diag"
	"github.com/Code4Community/c4c-lib/pkg/runtime"
)

func TestEvaluateSetBindsResult(t *testing.T) {
	env, _ := newTestNamespace()
	val, err := New().Evaluate(mustParse(t, "set x (add 1 2) end"), env)
	if err != nil {
		t.Fatalf("evaluate failed: %v", err)
	}
	if iv, ok := val.(runtime.IntegerValue); !ok || iv.Val != 3 {
		t.Fatalf("unexpected result %#v", val)
	}
	if got := intBinding(t, env, "x"); got != 3 {
		t.Fatalf("expected x = 3, got %d", got)
	}
}

func TestEvaluateEmptyProgramIsAbsent(t *testing.T) {
	env, _ := newTestNamespace()
	val, err := New().Evaluate(ast.Prog(), env)
	if err != nil {
		t.Fatalf("evaluate failed: %v", err)
	}
	if val != nil {
		t.Fatalf("expected absent result, got %#v", val)
	}
}

func TestEvaluateSetCoercesAbsentToNull(t *testing.T) {
	env, _ := newTestNamespace()
	program := ast.Prog(
		ast.Set("f", ast.Fn(nil)),
		ast.Set("y", ast.Apply("f")),
	)
	val, err := New().Evaluate(program, env)
	if err != nil {
		t.Fatalf("evaluate failed: %v", err)
	}
	if _, ok := val.(runtime.NullValue); !ok {
		t.Fatalf("expected null, got %#v", val)
	}
	got, ok := env.Get("y")
	if !ok || got.Kind() != runtime.KindNull {
		t.Fatalf("expected y bound to null, got %#v", got)
	}
}

func TestEvaluateIfTruthiness(t *testing.T) {
	cases := []struct {
		cond string
		want string
	}{
		{"true", "then"},
		{"0", "then"},
		{`""`, "then"},
		{"false", "else"},
		{"null", "else"},
	}
	for _, tc := range cases {
		env, out := newTestNamespace()
		src := "if " + tc.cond + ` (print "then") else (print "else") end`
		if _, err := New().Evaluate(mustParse(t, src), env); err != nil {
			t.Fatalf("%s: evaluate failed: %v", tc.cond, err)
		}
		if got := strings.TrimSpace(out.String()); got != tc.want {
			t.Fatalf("%s: expected %q, got %q", tc.cond, tc.want, got)
		}
	}
}

func TestEvaluateIfWithoutElseIsNull(t *testing.T) {
	env, out := newTestNamespace()
	val, err := New().Evaluate(mustParse(t, `if false (print "no") end`), env)
	if err != nil {
		t.Fatalf("evaluate failed: %v", err)
	}
	if _, ok := val.(runtime.NullValue); !ok {
		t.Fatalf("expected null, got %#v", val)
	}
	if out.Len() != 0 {
		t.Fatalf("then branch ran: %q", out.String())
	}
}

func TestEvaluateTimes(t *testing.T) {
	env, _ := newTestNamespace()
	env.Set("x", runtime.IntegerValue{Val: 0})
	if _, err := New().Evaluate(mustParse(t, "times 2 set x (add x 1) end end"), env); err != nil {
		t.Fatalf("evaluate failed: %v", err)
	}
	if got := intBinding(t, env, "x"); got != 2 {
		t.Fatalf("expected x = 2, got %d", got)
	}
}

func TestEvaluateTimesZeroAndNegative(t *testing.T) {
	for _, count := range []string{"0", "-3"} {
		env, out := newTestNamespace()
		val, err := New().Evaluate(mustParse(t, "times "+count+" (print 1) end"), env)
		if err != nil {
			t.Fatalf("evaluate failed: %v", err)
		}
		if val != nil || out.Len() != 0 {
			t.Fatalf("times %s ran its body: %#v %q", count, val, out.String())
		}
	}
}

func TestEvaluateNestedTimes(t *testing.T) {
	env, _ := newTestNamespace()
	src := `
set n 0 end
times 3
  times 2
    set n (add n 1) end
  end
end`
	if _, err := New().Evaluate(mustParse(t, src), env); err != nil {
		t.Fatalf("evaluate failed: %v", err)
	}
	if got := intBinding(t, env, "n"); got != 6 {
		t.Fatalf("expected 6 inner iterations, got %d", got)
	}
}

func TestEvaluateTimesCountFromSymbol(t *testing.T) {
	env, _ := newTestNamespace()
	src := "set k 4 end set n 0 end times k set n (add n 1) end end"
	if _, err := New().Evaluate(mustParse(t, src), env); err != nil {
		t.Fatalf("evaluate failed: %v", err)
	}
	if got := intBinding(t, env, "n"); got != 4 {
		t.Fatalf("expected 4, got %d", got)
	}
}

func TestEvaluateTimesCountErrors(t *testing.T) {
	cases := []struct {
		name string
		node ast.Node
		want error
	}{
		{"string count", mustParse(t, `set s "x" end times s (print 1) end`), diag.ErrType},
		{"call count", mustParse(t, "times (add 1 1) (print 1) end"), diag.ErrInvalidConstruct},
		{"missing count", ast.Prog(ast.NewTimesStatement(nil, ast.Blk())), diag.ErrInvalidConstruct},
		{"unbound count", mustParse(t, "times k (print 1) end"), diag.ErrName},
	}
	for _, tc := range cases {
		env, _ := newTestNamespace()
		_, err := New().Evaluate(tc.node, env)
		if !errors.Is(err, tc.want) {
			t.Fatalf("%s: expected %v, got %v", tc.name, tc.want, err)
		}
	}
}

func TestEvaluateForeverStopsOnCancel(t *testing.T) {
	env, _ := newTestNamespace()
	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	_, err := New().EvaluateContext(ctx, mustParse(t, "set n 0 end forever set n (add n 1) end end"), env)
	if !errors.Is(err, context.DeadlineExceeded) {
		t.Fatalf("expected deadline exceeded, got %v", err)
	}
	if intBinding(t, env, "n") == 0 {
		t.Fatalf("expected the loop body to have run")
	}
}

func TestEvaluateUnboundSymbol(t *testing.T) {
	env, _ := newTestNamespace()
	_, err := New().Evaluate(mustParse(t, "set y missing end"), env)
	if !errors.Is(err, diag.ErrName) {
		t.Fatalf("expected NameError, got %v", err)
	}
	var de *diag.Error
	if !errors.As(err, &de) || de.Span.Start.Column != 7 {
		t.Fatalf("expected error positioned at the symbol, got %v", err)
	}
}

func TestEvaluateNullBindingIsNotUnbound(t *testing.T) {
	env, _ := newTestNamespace()
	val, err := New().Evaluate(mustParse(t, "set a null end set b a end"), env)
	if err != nil {
		t.Fatalf("evaluate failed: %v", err)
	}
	if _, ok := val.(runtime.NullValue); !ok {
		t.Fatalf("expected null, got %#v", val)
	}
}

func TestEvaluateCallNonFunction(t *testing.T) {
	env, _ := newTestNamespace()
	_, err := New().Evaluate(mustParse(t, "set f 1 end (f 2)"), env)
	if !errors.Is(err, diag.ErrType) {
		t.Fatalf("expected TypeError, got %v", err)
	}
	if !strings.Contains(err.Error(), "cannot call integer") {
		t.Fatalf("unexpected message %v", err)
	}
}

func TestEvaluateClosureArity(t *testing.T) {
	env, _ := newTestNamespace()
	_, err := New().Evaluate(mustParse(t, "set f function (a b) end end (f 1)"), env)
	if !errors.Is(err, diag.ErrType) {
		t.Fatalf("expected TypeError, got %v", err)
	}
}

func TestEvaluateFunctionBindsPositionally(t *testing.T) {
	env, out := newTestNamespace()
	src := `
set pair function (first second)
  (print first)
  (print second)
end end
(pair "a" "b")`
	if _, err := New().Evaluate(mustParse(t, src), env); err != nil {
		t.Fatalf("evaluate failed: %v", err)
	}
	if got := out.String(); got != "a\nb\n" {
		t.Fatalf("unexpected output %q", got)
	}
}

func TestEvaluateSetInsideFunctionShadows(t *testing.T) {
	env, _ := newTestNamespace()
	src := `
set x 1 end
set f function ()
  set x 99 end
end end
set inner (f) end`
	if _, err := New().Evaluate(mustParse(t, src), env); err != nil {
		t.Fatalf("evaluate failed: %v", err)
	}
	if got := intBinding(t, env, "x"); got != 1 {
		t.Fatalf("outer x mutated to %d", got)
	}
	if got := intBinding(t, env, "inner"); got != 99 {
		t.Fatalf("expected the function result to be its last set, got %d", got)
	}
}

func TestEvaluateClosureCapturesDefiningScope(t *testing.T) {
	env, _ := newTestNamespace()
	src := `
set base 10 end
set make function (n)
  set offset (add n base) end
  set adder function (m) set r (add m offset) end end end
end end
set add5 (make -5) end
set base 1000 end
set result (add5 1) end`
	if _, err := New().Evaluate(mustParse(t, src), env); err != nil {
		t.Fatalf("evaluate failed: %v", err)
	}
	if got := intBinding(t, env, "result"); got != 6 {
		t.Fatalf("expected 6, got %d", got)
	}
	if _, ok := env.Get("offset"); ok {
		t.Fatalf("function locals leaked into the namespace")
	}
}

func TestEvaluateRecursionLimit(t *testing.T) {
	env, _ := newTestNamespace()
	src := "set loop function () (loop) end end (loop)"
	_, err := New(WithMaxCallDepth(50)).Evaluate(mustParse(t, src), env)
	if !errors.Is(err, diag.ErrRecursion) {
		t.Fatalf("expected RecursionError, got %v", err)
	}
}

func TestEvaluateForeverAsValueIsInvalid(t *testing.T) {
	env, _ := newTestNamespace()
	_, err := New().Evaluate(mustParse(t, "set x forever end"), env)
	if !errors.Is(err, diag.ErrInvalidConstruct) {
		t.Fatalf("expected InvalidConstruct, got %v", err)
	}
}

func TestEvaluateUnexpectedNodeIsInternal(t *testing.T) {
	env, _ := newTestNamespace()
	_, err := New().Evaluate(ast.Params("a"), env)
	if !errors.Is(err, diag.ErrInternal) {
		t.Fatalf("expected InternalError, got %v", err)
	}
}

func TestRunUsesNamespace(t *testing.T) {
	env, out := newTestNamespace()
	if _, err := Run(`set greeting (add "hello, " "world") end (print greeting)`, env); err != nil {
		t.Fatalf("run failed: %v", err)
	}
	if got := out.String(); got != "hello, world\n" {
		t.Fatalf("unexpected output %q", got)
	}
	if _, err := Run("set x", env); !errors.Is(err, diag.ErrSyntax) {
		t.Fatalf("expected SyntaxError, got %v", err)
	}
}
