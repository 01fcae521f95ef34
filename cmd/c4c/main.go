package main

import (
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"time"

	"github.com/Code4Community/c4c-lib/pkg/diag"
	"github.com/Code4Community/c4c-lib/pkg/driver"
	"github.com/Code4Community/c4c-lib/pkg/parser"
	"github.com/Code4Community/c4c-lib/pkg/runner"
)

const cliToolVersion = "c4c 0.1.0-dev"

var (
	stdout io.Writer = os.Stdout
	stderr io.Writer = os.Stderr
)

func main() {
	os.Exit(run(os.Args[1:]))
}

func run(args []string) int {
	if len(args) == 0 {
		printUsage()
		return 1
	}

	switch args[0] {
	case "--help", "-h", "help":
		printUsage()
		return 0
	case "--version", "-V", "version":
		fmt.Fprintln(stdout, cliToolVersion)
		return 0
	case "run":
		return runProgram(args[1:])
	case "step":
		return runStep(args[1:])
	case "check":
		return runCheck(args[1:])
	case "ast":
		return runAST(args[1:])
	case "debug":
		return runDebug(args[1:])
	default:
		return runProgram(args)
	}
}

// target is a program plus the manifest it came from, if any.
type target struct {
	name     string
	source   string
	manifest *driver.Manifest
}

// loadTarget resolves the positional arguments of a subcommand. No argument
// means the c4c.yml found from the working directory upwards; a .yml or
// .yaml argument is a manifest; anything else is a program file.
func loadTarget(ctx context.Context, args []string) (*target, error) {
	if len(args) > 1 {
		return nil, fmt.Errorf("unexpected arguments: %s", strings.Join(args[1:], " "))
	}
	manifestPath := ""
	if len(args) == 0 {
		found, err := driver.FindManifest(".")
		if err != nil {
			return nil, fmt.Errorf("no program given: %w", err)
		}
		manifestPath = found
	} else if ext := strings.ToLower(filepath.Ext(args[0])); ext == ".yml" || ext == ".yaml" {
		manifestPath = args[0]
	}

	if manifestPath == "" {
		data, err := os.ReadFile(args[0])
		if err != nil {
			return nil, fmt.Errorf("read program %s: %w", args[0], err)
		}
		return &target{name: args[0], source: string(data)}, nil
	}

	manifest, err := driver.LoadManifest(manifestPath)
	if err != nil {
		return nil, err
	}
	program, err := driver.LoadProgram(ctx, manifest)
	if err != nil {
		return nil, err
	}
	return &target{name: program.Name, source: program.Source, manifest: manifest}, nil
}

func (t *target) newRunner(trace bool) *runner.ProgramRunner {
	var opts []runner.Option
	if t.manifest != nil {
		opts = append(opts, t.manifest.RunnerOptions()...)
		trace = trace || t.manifest.Trace
	}
	opts = append(opts, runner.WithOutput(stdout))
	if trace {
		opts = append(opts, runner.WithTrace(stderr))
	}
	r := runner.New(opts...)
	r.SetProgram(t.source)
	return r
}

func (t *target) report(err error) {
	fmt.Fprintln(stderr, diag.Format(t.name, t.source, err))
}

func signalContext() (context.Context, context.CancelFunc) {
	return signal.NotifyContext(context.Background(), os.Interrupt)
}

func runProgram(args []string) int {
	fs := flag.NewFlagSet("run", flag.ContinueOnError)
	fs.SetOutput(stderr)
	check := fs.Bool("check", false, "check the program before running it")
	timeout := fs.Duration("timeout", 0, "stop evaluation after this long (0 = no limit)")
	if err := fs.Parse(args); err != nil {
		return 2
	}

	ctx, cancel := signalContext()
	defer cancel()
	if *timeout > 0 {
		var stop context.CancelFunc
		ctx, stop = context.WithTimeout(ctx, *timeout)
		defer stop()
	}

	t, err := loadTarget(ctx, fs.Args())
	if err != nil {
		fmt.Fprintln(stderr, err)
		return 1
	}
	r := t.newRunner(false)
	if *check {
		if err := r.Check(); err != nil {
			t.report(err)
			return 1
		}
	}
	if _, err := r.Evaluate(ctx); err != nil {
		t.report(err)
		return 1
	}
	return 0
}

func runStep(args []string) int {
	fs := flag.NewFlagSet("step", flag.ContinueOnError)
	fs.SetOutput(stderr)
	maxSteps := fs.Int("max-steps", -1, "stop after this many steps (0 = no limit; default from manifest)")
	delay := fs.Duration("delay", -1, "pause between steps (default from manifest)")
	trace := fs.Bool("trace", false, "write one line per step to stderr")
	if err := fs.Parse(args); err != nil {
		return 2
	}

	ctx, cancel := signalContext()
	defer cancel()

	t, err := loadTarget(ctx, fs.Args())
	if err != nil {
		fmt.Fprintln(stderr, err)
		return 1
	}
	budget, pause := 0, time.Duration(0)
	if t.manifest != nil {
		budget, pause = t.manifest.MaxSteps, t.manifest.StepDelay
	}
	if *maxSteps >= 0 {
		budget = *maxSteps
	}
	if *delay >= 0 {
		pause = *delay
	}

	r := t.newRunner(*trace)
	steps, err := stepProgram(ctx, r, budget, pause)
	switch {
	case errors.Is(err, runner.ErrStepBudget):
		fmt.Fprintf(stderr, "stopped after %d steps at %s\n", steps, r.Location())
		return 0
	case errors.Is(err, context.Canceled):
		fmt.Fprintf(stderr, "interrupted after %d steps at %s\n", steps, r.Location())
		return 130
	case err != nil:
		t.report(err)
		return 1
	}
	return 0
}

// stepProgram drives r to completion, waiting pause between steps when it
// is positive.
func stepProgram(ctx context.Context, r *runner.ProgramRunner, maxSteps int, pause time.Duration) (int, error) {
	if pause <= 0 {
		return r.Run(ctx, maxSteps)
	}
	ticker := time.NewTicker(pause)
	defer ticker.Stop()
	steps := 0
	for !r.Done() {
		if maxSteps > 0 && steps >= maxSteps {
			return steps, runner.ErrStepBudget
		}
		if _, err := r.StepContext(ctx); err != nil {
			return steps, err
		}
		steps++
		select {
		case <-ctx.Done():
			return steps, ctx.Err()
		case <-ticker.C:
		}
	}
	return steps, nil
}

func runCheck(args []string) int {
	fs := flag.NewFlagSet("check", flag.ContinueOnError)
	fs.SetOutput(stderr)
	quiet := fs.Bool("q", false, "print nothing on success")
	if err := fs.Parse(args); err != nil {
		return 2
	}
	t, err := loadTarget(context.Background(), fs.Args())
	if err != nil {
		fmt.Fprintln(stderr, err)
		return 1
	}
	if err := t.newRunner(false).Check(); err != nil {
		t.report(err)
		return 1
	}
	if !*quiet {
		fmt.Fprintf(stdout, "%s: ok\n", t.name)
	}
	return 0
}

func runAST(args []string) int {
	fs := flag.NewFlagSet("ast", flag.ContinueOnError)
	fs.SetOutput(stderr)
	compact := fs.Bool("compact", false, "print the tree on one line")
	if err := fs.Parse(args); err != nil {
		return 2
	}
	t, err := loadTarget(context.Background(), fs.Args())
	if err != nil {
		fmt.Fprintln(stderr, err)
		return 1
	}
	program, err := parser.Read(t.source)
	if err != nil {
		t.report(err)
		return 1
	}
	var data []byte
	if *compact {
		data, err = json.Marshal(program)
	} else {
		data, err = json.MarshalIndent(program, "", "  ")
	}
	if err != nil {
		fmt.Fprintf(stderr, "encode ast: %v\n", err)
		return 1
	}
	fmt.Fprintln(stdout, string(data))
	return 0
}

func printUsage() {
	fmt.Fprintln(stderr, "Usage:")
	fmt.Fprintln(stderr, "  c4c run [-check] [-timeout d] [file.c4c | c4c.yml]")
	fmt.Fprintln(stderr, "  c4c step [-max-steps n] [-delay d] [-trace] [file.c4c | c4c.yml]")
	fmt.Fprintln(stderr, "  c4c check [-q] [file.c4c | c4c.yml]")
	fmt.Fprintln(stderr, "  c4c ast [-compact] [file.c4c | c4c.yml]")
	fmt.Fprintln(stderr, "  c4c debug [file.c4c | c4c.yml]")
	fmt.Fprintln(stderr, "  c4c <file.c4c>")
	fmt.Fprintln(stderr, "")
	fmt.Fprintln(stderr, "Without a file, c4c.yml is looked up from the current directory.")
}
