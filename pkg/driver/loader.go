// Package driver turns a c4c.yml manifest into a configured program runner,
// reading the program from disk or from a git repository.
package driver

import (
	"context"
	"fmt"
	"os"

	"github.com/Code4Community/c4c-lib/pkg/runner"
)

// Program is a loaded program ready to hand to a runner.
type Program struct {
	// Name is the file path or git locator the source came from.
	Name   string
	Source string
	// Commit is set for programs read from git.
	Commit string
}

// LoadProgram reads the program the manifest points at.
func LoadProgram(ctx context.Context, m *Manifest) (*Program, error) {
	if m == nil {
		return nil, fmt.Errorf("driver: nil manifest")
	}
	if m.Source != nil {
		fetched, err := FetchGitProgram(ctx, m.Source)
		if err != nil {
			return nil, err
		}
		return &Program{Name: fetched.Name, Source: fetched.Source, Commit: fetched.Commit}, nil
	}
	path := m.ProgramPath()
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read program %s: %w", path, err)
	}
	return &Program{Name: path, Source: string(data)}, nil
}

// NewRunner loads the manifest's program into a new runner configured from
// the manifest. extra options are applied after the manifest's own.
func NewRunner(ctx context.Context, m *Manifest, extra ...runner.Option) (*runner.ProgramRunner, *Program, error) {
	program, err := LoadProgram(ctx, m)
	if err != nil {
		return nil, nil, err
	}
	opts := append(m.RunnerOptions(), extra...)
	r := runner.New(opts...)
	r.SetProgram(program.Source)
	return r, program, nil
}
