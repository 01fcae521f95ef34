package interpreter

import (
	"bytes"
	"testing"

	"github.com/Code4Community/c4c-lib/pkg/ast"
	"github.com/Code4Community/c4c-lib/pkg/parser"
	"github.com/Code4Community/c4c-lib/pkg/runtime"
)

func newTestNamespace() (*runtime.Environment, *bytes.Buffer) {
	var out bytes.Buffer
	return NewTopLevel(&out).Extend(), &out
}

func mustParse(t *testing.T, src string) *ast.Program {
	t.Helper()
	program, err := parser.Read(src)
	if err != nil {
		t.Fatalf("parse failed: %v", err)
	}
	return program
}

// stepToEnd drives Step from the start until the program reports done,
// returning the last result, the number of steps taken and the locations
// visited.
func stepToEnd(t *testing.T, interp *Interpreter, program ast.Node, env *runtime.Environment, limit int) (runtime.Value, int, []Location) {
	t.Helper()
	loc := Start()
	var (
		result  runtime.Value
		visited []Location
	)
	for steps := 0; steps < limit; steps++ {
		if loc.Done() {
			return result, steps, visited
		}
		val, next, err := interp.Step(program, loc, env)
		if err != nil {
			t.Fatalf("step %d at %s failed: %v", steps, loc, err)
		}
		result = val
		loc = next
		visited = append(visited, loc)
	}
	if !loc.Done() {
		t.Fatalf("program did not finish within %d steps (at %s)", limit, loc)
	}
	return result, limit, visited
}

func intBinding(t *testing.T, env *runtime.Environment, name string) int64 {
	t.Helper()
	val, ok := env.Get(name)
	if !ok {
		t.Fatalf("expected %s to be bound", name)
	}
	iv, ok := val.(runtime.IntegerValue)
	if !ok {
		t.Fatalf("expected %s to be an integer, got %#v", name, val)
	}
	return iv.Val
}
