// Package runner holds one running program instance: its source, its
// namespace and the location the next step resumes from.
package runner

import (
	"context"
	"errors"
	"fmt"
	"io"
	"sort"
	"sync"

	"github.com/Code4Community/c4c-lib/pkg/ast"
	"github.com/Code4Community/c4c-lib/pkg/checker"
	"github.com/Code4Community/c4c-lib/pkg/interpreter"
	"github.com/Code4Community/c4c-lib/pkg/parser"
	"github.com/Code4Community/c4c-lib/pkg/runtime"
)

// ErrStepBudget is returned by Run when maxSteps steps were taken and the
// program has not finished.
var ErrStepBudget = errors.New("step budget exhausted")

// ErrNoProgram is returned when stepping or checking before SetProgram.
var ErrNoProgram = errors.New("no program set")

// ResetPolicy selects what Reset discards.
type ResetPolicy int

const (
	// ResetLocation rewinds to the start and clears loop state but keeps
	// user bindings, so a re-run sees the previous run's values.
	ResetLocation ResetPolicy = iota
	// ResetNamespace also replaces the namespace with a fresh one.
	ResetNamespace
)

func (p ResetPolicy) String() string {
	switch p {
	case ResetLocation:
		return "location"
	case ResetNamespace:
		return "namespace"
	default:
		return fmt.Sprintf("ResetPolicy(%d)", int(p))
	}
}

// ParseResetPolicy accepts the names printed by ResetPolicy.String.
func ParseResetPolicy(name string) (ResetPolicy, error) {
	switch name {
	case "", "location":
		return ResetLocation, nil
	case "namespace":
		return ResetNamespace, nil
	default:
		return 0, fmt.Errorf("unknown reset policy %q (want location or namespace)", name)
	}
}

// Option configures a ProgramRunner.
type Option func(*ProgramRunner)

// WithOutput sends print output to w. Without it the runner's namespace
// hangs off the process-wide top level, which prints to stdout.
func WithOutput(w io.Writer) Option {
	return func(r *ProgramRunner) {
		r.root = interpreter.NewTopLevel(w)
	}
}

// WithTrace writes one line per step to w.
func WithTrace(w io.Writer) Option {
	return func(r *ProgramRunner) {
		r.trace = w
	}
}

// WithResetPolicy chooses what Reset discards.
func WithResetPolicy(policy ResetPolicy) Option {
	return func(r *ProgramRunner) {
		r.policy = policy
	}
}

// WithBindings seeds every namespace the runner creates.
func WithBindings(bindings map[string]runtime.Value) Option {
	return func(r *ProgramRunner) {
		r.bindings = bindings
	}
}

// WithInterpreter replaces the default interpreter.
func WithInterpreter(interp *interpreter.Interpreter) Option {
	return func(r *ProgramRunner) {
		r.interp = interp
	}
}

// ProgramRunner drives one program through repeated steps. It is safe for
// use from several goroutines, though steps are serialized.
type ProgramRunner struct {
	mu sync.Mutex

	interp   *interpreter.Interpreter
	root     *runtime.Environment
	trace    io.Writer
	policy   ResetPolicy
	bindings map[string]runtime.Value

	text      string
	hasText   bool
	program   *ast.Program
	namespace *runtime.Environment
	location  interpreter.Location
	result    runtime.Value
}

// New returns a runner with an empty namespace and no program.
func New(opts ...Option) *ProgramRunner {
	r := &ProgramRunner{}
	for _, opt := range opts {
		opt(r)
	}
	if r.interp == nil {
		r.interp = interpreter.New()
	}
	r.namespace = r.newNamespace()
	r.location = interpreter.Start()
	return r
}

func (r *ProgramRunner) newNamespace() *runtime.Environment {
	var ns *runtime.Environment
	if r.root != nil {
		ns = r.root.Extend()
	} else {
		ns = interpreter.NewNamespace()
	}
	names := make([]string, 0, len(r.bindings))
	for name := range r.bindings {
		names = append(names, name)
	}
	sort.Strings(names)
	for _, name := range names {
		ns.Set(name, runtime.OrNull(r.bindings[name]))
	}
	return ns
}

// SetProgram replaces the program text. The parsed tree is dropped and the
// location rewinds; the namespace is left alone.
func (r *ProgramRunner) SetProgram(text string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.text = text
	r.hasText = true
	r.program = nil
	r.result = nil
	r.location = interpreter.Start()
	interpreter.ClearLoopState(r.namespace)
}

// Program returns the current program text.
func (r *ProgramRunner) Program() string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.text
}

// AST parses the program if needed and returns the cached tree.
func (r *ProgramRunner) AST() (*ast.Program, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.parsed()
}

func (r *ProgramRunner) parsed() (*ast.Program, error) {
	if !r.hasText {
		return nil, ErrNoProgram
	}
	if r.program == nil {
		program, err := parser.Read(r.text)
		if err != nil {
			return nil, err
		}
		r.program = program
	}
	return r.program, nil
}

// Step runs one atomic statement.
func (r *ProgramRunner) Step() (runtime.Value, error) {
	return r.StepContext(context.Background())
}

// StepContext runs one atomic statement. Stepping a finished program does
// nothing. On error the location is left where it was.
func (r *ProgramRunner) StepContext(ctx context.Context) (runtime.Value, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.step(ctx)
}

func (r *ProgramRunner) step(ctx context.Context) (runtime.Value, error) {
	program, err := r.parsed()
	if err != nil {
		return nil, err
	}
	if r.location.Done() {
		return r.result, nil
	}
	from := r.location
	val, next, err := r.interp.StepContext(ctx, program, from, r.namespace)
	if err != nil {
		if r.trace != nil {
			fmt.Fprintf(r.trace, "%s error: %v\n", from, err)
		}
		return nil, err
	}
	r.result = val
	r.location = next
	if r.trace != nil {
		fmt.Fprintf(r.trace, "%s -> %s = %s\n", from, next, interpreter.FormatValue(val))
	}
	return val, nil
}

// Done reports whether the program has run past its last statement.
func (r *ProgramRunner) Done() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.location.Done()
}

// Run steps until the program finishes, ctx is cancelled, or maxSteps steps
// have been taken. maxSteps <= 0 means no budget. It returns the number of
// steps taken.
func (r *ProgramRunner) Run(ctx context.Context, maxSteps int) (int, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	steps := 0
	for !r.location.Done() {
		if maxSteps > 0 && steps >= maxSteps {
			return steps, ErrStepBudget
		}
		if err := ctx.Err(); err != nil {
			return steps, err
		}
		if _, err := r.step(ctx); err != nil {
			return steps, err
		}
		steps++
	}
	return steps, nil
}

// Check validates the program without running it. The namespace, the
// location and the loop state are not modified.
func (r *ProgramRunner) Check() error {
	r.mu.Lock()
	defer r.mu.Unlock()
	program, err := r.parsed()
	if err != nil {
		return err
	}
	_, err = checker.Check(program, r.namespace)
	return err
}

// Reset rewinds the program according to the runner's ResetPolicy.
func (r *ProgramRunner) Reset() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.location = interpreter.Start()
	r.result = nil
	if r.policy == ResetNamespace {
		r.namespace = r.newNamespace()
		return
	}
	interpreter.ClearLoopState(r.namespace)
}

// Evaluate runs the whole program in the namespace without stepping. The
// location is marked finished on success.
func (r *ProgramRunner) Evaluate(ctx context.Context) (runtime.Value, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	program, err := r.parsed()
	if err != nil {
		return nil, err
	}
	val, err := r.interp.EvaluateContext(ctx, program, r.namespace)
	if err != nil {
		return nil, err
	}
	r.result = val
	r.location = interpreter.Finished()
	interpreter.ClearLoopState(r.namespace)
	return val, nil
}

// Result returns the value produced by the most recent step.
func (r *ProgramRunner) Result() runtime.Value {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.result
}

// Location returns a copy of the location the next step resumes from.
func (r *ProgramRunner) Location() interpreter.Location {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.location.Clone()
}

// Namespace returns the environment the program runs in.
func (r *ProgramRunner) Namespace() *runtime.Environment {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.namespace
}

// Policy returns the configured reset policy.
func (r *ProgramRunner) Policy() ResetPolicy {
	return r.policy
}
