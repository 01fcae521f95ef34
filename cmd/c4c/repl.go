package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/peterh/liner"

	"github.com/Code4Community/c4c-lib/pkg/diag"
	"github.com/Code4Community/c4c-lib/pkg/interpreter"
	"github.com/Code4Community/c4c-lib/pkg/parser"
	"github.com/Code4Community/c4c-lib/pkg/runner"
)

const (
	historyFile = ".c4c_history"
	promptMain  = "c4c> "
	// debugRunBudget bounds :run so a forever loop returns to the prompt.
	debugRunBudget = 10000
)

const debugHelp = `Commands:
  <enter>, :step [n]   run the next n statements (default 1)
  :run                 step until the program ends (at most 10000 steps)
  :check               check the program without running it
  :reset               rewind according to the reset policy
  :env                 list the namespace's bindings
  :loc                 show the location and active loop frames
  :load <file>         replace the program
  :quit                leave the debugger
Anything else is evaluated as statements in the program's namespace.`

// debugSession holds the state behind the debug prompt. It is driven one
// line at a time so it can be exercised without a terminal.
type debugSession struct {
	t   *target
	r   *runner.ProgramRunner
	out io.Writer
}

func newDebugSession(t *target, out io.Writer) *debugSession {
	return &debugSession{t: t, r: t.newRunner(false), out: out}
}

// handle runs one line of input and reports whether the session is over.
func (s *debugSession) handle(ctx context.Context, line string) bool {
	line = strings.TrimSpace(line)
	if line == "" {
		s.step(ctx, 1)
		return false
	}
	if !strings.HasPrefix(line, ":") {
		s.eval(ctx, line)
		return false
	}

	fields := strings.Fields(line)
	switch fields[0] {
	case ":quit", ":q", ":exit":
		return true
	case ":help", ":h":
		fmt.Fprintln(s.out, debugHelp)
	case ":step", ":s":
		n := 1
		if len(fields) > 1 {
			parsed, err := strconv.Atoi(fields[1])
			if err != nil || parsed < 1 {
				fmt.Fprintf(s.out, "invalid step count %q\n", fields[1])
				return false
			}
			n = parsed
		}
		s.step(ctx, n)
	case ":run":
		steps, err := s.r.Run(ctx, debugRunBudget)
		switch {
		case errors.Is(err, runner.ErrStepBudget):
			fmt.Fprintf(s.out, "paused after %d steps at %s\n", steps, s.r.Location())
		case err != nil:
			s.report(err)
		default:
			fmt.Fprintf(s.out, "finished after %d steps: %s\n", steps, interpreter.FormatValue(s.r.Result()))
		}
	case ":check":
		if err := s.r.Check(); err != nil {
			s.report(err)
			return false
		}
		fmt.Fprintln(s.out, "ok")
	case ":reset":
		s.r.Reset()
		fmt.Fprintf(s.out, "reset (%s)\n", s.r.Policy())
	case ":env":
		s.printEnv()
	case ":loc":
		s.printLocation()
	case ":load":
		if len(fields) != 2 {
			fmt.Fprintln(s.out, "usage: :load <file>")
			return false
		}
		data, err := os.ReadFile(fields[1])
		if err != nil {
			fmt.Fprintln(s.out, err)
			return false
		}
		s.t = &target{name: fields[1], source: string(data), manifest: s.t.manifest}
		s.r.SetProgram(s.t.source)
		fmt.Fprintf(s.out, "loaded %s\n", fields[1])
	default:
		fmt.Fprintf(s.out, "unknown command %s (try :help)\n", fields[0])
	}
	return false
}

// exec runs one line under its own interrupt context, so a Ctrl-C stops
// only the command in flight.
func (s *debugSession) exec(line string) bool {
	ctx, stop := signalContext()
	defer stop()
	return s.handle(ctx, line)
}

func (s *debugSession) step(ctx context.Context, n int) {
	for i := 0; i < n; i++ {
		if s.r.Done() {
			fmt.Fprintln(s.out, "program finished (:reset to run again)")
			return
		}
		from := s.r.Location()
		val, err := s.r.StepContext(ctx)
		if err != nil {
			s.report(err)
			return
		}
		fmt.Fprintf(s.out, "%s -> %s  %s\n", from, s.r.Location(), interpreter.FormatValue(val))
	}
}

func (s *debugSession) eval(ctx context.Context, code string) {
	program, err := parser.Read(code)
	if err != nil {
		fmt.Fprintln(s.out, diag.Format("", code, err))
		return
	}
	val, err := interpreter.New().EvaluateContext(ctx, program, s.r.Namespace())
	if err != nil {
		fmt.Fprintln(s.out, diag.Format("", code, err))
		return
	}
	fmt.Fprintln(s.out, interpreter.FormatValue(val))
}

func (s *debugSession) printEnv() {
	ns := s.r.Namespace()
	keys := ns.Keys()
	shown := 0
	for _, name := range keys {
		if name == interpreter.LoopStackBinding {
			continue
		}
		val, _ := ns.Lookup(name)
		fmt.Fprintf(s.out, "%s = %s\n", name, interpreter.FormatValue(val))
		shown++
	}
	if shown == 0 {
		fmt.Fprintln(s.out, "(no bindings)")
	}
}

func (s *debugSession) printLocation() {
	state := "running"
	if s.r.Done() {
		state = "done"
	}
	fmt.Fprintf(s.out, "%s (%s)\n", s.r.Location(), state)
	// Frames rest with the outermost loop on top.
	frames := interpreter.LoopFrames(s.r.Namespace())
	for depth := 0; depth < len(frames); depth++ {
		frame := frames[len(frames)-1-depth]
		if frame.Forever {
			fmt.Fprintf(s.out, "  loop %d: iteration %d of forever\n", depth, frame.Iteration)
			continue
		}
		fmt.Fprintf(s.out, "  loop %d: iteration %d of %d\n", depth, frame.Iteration, frame.Bound)
	}
}

func (s *debugSession) report(err error) {
	fmt.Fprintln(s.out, diag.Format(s.t.name, s.t.source, err))
}

func runDebug(args []string) int {
	fs := flag.NewFlagSet("debug", flag.ContinueOnError)
	fs.SetOutput(stderr)
	if err := fs.Parse(args); err != nil {
		return 2
	}
	t, err := loadTarget(context.Background(), fs.Args())
	if err != nil {
		fmt.Fprintln(stderr, err)
		return 1
	}
	session := newDebugSession(t, stdout)
	fmt.Fprintf(stdout, "debugging %s; :help for commands\n", t.name)

	ln := liner.NewLiner()
	defer ln.Close()
	ln.SetCtrlCAborts(true)

	home, _ := os.UserHomeDir()
	histPath := filepath.Join(home, historyFile)
	if f, err := os.Open(histPath); err == nil {
		_, _ = ln.ReadHistory(f)
		_ = f.Close()
	}
	defer func() {
		if f, err := os.Create(histPath); err == nil {
			_, _ = ln.WriteHistory(f)
			_ = f.Close()
		}
	}()

	for {
		line, err := ln.Prompt(promptMain)
		if errors.Is(err, io.EOF) || errors.Is(err, liner.ErrPromptAborted) {
			fmt.Fprintln(stdout)
			return 0
		}
		if err != nil {
			fmt.Fprintln(stderr, err)
			return 1
		}
		if strings.TrimSpace(line) != "" {
			ln.AppendHistory(line)
		}
		if session.exec(line) {
			return 0
		}
	}
}
