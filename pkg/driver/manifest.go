package driver

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/Code4Community/c4c-lib/pkg/parser"
	"github.com/Code4Community/c4c-lib/pkg/runner"
	"github.com/Code4Community/c4c-lib/pkg/runtime"
)

// ManifestName is the file the CLI looks for when no program is given.
const ManifestName = "c4c.yml"

// ErrManifestNotFound is returned by FindManifest when no manifest exists
// in the start directory or any of its parents.
var ErrManifestNotFound = errors.New("manifest not found")

// Manifest is the parsed contents of c4c.yml.
type Manifest struct {
	Path string
	// Dir is the directory holding the manifest; relative program paths
	// resolve against it.
	Dir string

	Program   string
	Source    *SourceSpec
	Bindings  map[string]runtime.Value
	Reset     runner.ResetPolicy
	MaxSteps  int
	StepDelay time.Duration
	Trace     bool
}

// SourceSpec locates a program file inside a git repository.
type SourceSpec struct {
	Git    string
	Rev    string
	Tag    string
	Branch string
	Path   string
}

// ValidationError aggregates manifest validation failures.
type ValidationError struct {
	Issues []string
}

func (e *ValidationError) Error() string {
	if len(e.Issues) == 0 {
		return "manifest: invalid configuration"
	}
	var b strings.Builder
	b.WriteString("manifest validation failed:")
	for _, issue := range e.Issues {
		b.WriteString("\n- ")
		b.WriteString(issue)
	}
	return b.String()
}

type manifestFile struct {
	Program   string         `yaml:"program"`
	Source    *sourceFile    `yaml:"source"`
	Bindings  map[string]any `yaml:"bindings"`
	Reset     string         `yaml:"reset"`
	MaxSteps  int            `yaml:"maxSteps"`
	StepDelay string         `yaml:"stepDelay"`
	Trace     bool           `yaml:"trace"`
}

type sourceFile struct {
	Git    string `yaml:"git"`
	Rev    string `yaml:"rev"`
	Tag    string `yaml:"tag"`
	Branch string `yaml:"branch"`
	Path   string `yaml:"path"`
}

// LoadManifest parses c4c.yml from disk, returning a validated manifest.
func LoadManifest(path string) (*Manifest, error) {
	if path == "" {
		return nil, fmt.Errorf("manifest: empty path")
	}
	absPath, err := filepath.Abs(path)
	if err != nil {
		return nil, fmt.Errorf("manifest: resolve %s: %w", path, err)
	}
	file, err := os.Open(absPath)
	if err != nil {
		return nil, fmt.Errorf("manifest: open %s: %w", absPath, err)
	}
	defer file.Close()
	return decodeManifest(file, absPath)
}

// ParseManifest decodes a manifest from r. path is used for messages and
// to resolve relative program paths.
func ParseManifest(r io.Reader, path string) (*Manifest, error) {
	absPath, err := filepath.Abs(path)
	if err != nil {
		return nil, fmt.Errorf("manifest: resolve %s: %w", path, err)
	}
	return decodeManifest(r, absPath)
}

func decodeManifest(r io.Reader, absPath string) (*Manifest, error) {
	decoder := yaml.NewDecoder(r)
	decoder.KnownFields(true)

	var raw manifestFile
	if err := decoder.Decode(&raw); err != nil {
		if errors.Is(err, io.EOF) {
			return nil, fmt.Errorf("manifest: %s is empty", absPath)
		}
		return nil, fmt.Errorf("manifest: parse %s: %w", absPath, err)
	}
	return raw.toManifest(absPath)
}

func (raw manifestFile) toManifest(absPath string) (*Manifest, error) {
	var errs ValidationError
	m := &Manifest{
		Path:     absPath,
		Dir:      filepath.Dir(absPath),
		Program:  strings.TrimSpace(raw.Program),
		MaxSteps: raw.MaxSteps,
		Trace:    raw.Trace,
		Bindings: make(map[string]runtime.Value, len(raw.Bindings)),
	}

	if raw.Source != nil {
		m.Source = &SourceSpec{
			Git:    strings.TrimSpace(raw.Source.Git),
			Rev:    strings.TrimSpace(raw.Source.Rev),
			Tag:    strings.TrimSpace(raw.Source.Tag),
			Branch: strings.TrimSpace(raw.Source.Branch),
			Path:   strings.TrimSpace(raw.Source.Path),
		}
	}
	switch {
	case m.Program == "" && m.Source == nil:
		errs.Issues = append(errs.Issues, "one of program or source must be provided")
	case m.Program != "" && m.Source != nil:
		errs.Issues = append(errs.Issues, "program and source cannot both be set")
	case m.Source != nil:
		for _, issue := range m.Source.validate() {
			errs.Issues = append(errs.Issues, "source: "+issue)
		}
	}

	names := make([]string, 0, len(raw.Bindings))
	for name := range raw.Bindings {
		names = append(names, name)
	}
	sort.Strings(names)
	for _, name := range names {
		if !parser.IsSymbol(name) {
			errs.Issues = append(errs.Issues, fmt.Sprintf("bindings.%s: not a valid symbol", name))
			continue
		}
		val, err := runtime.FromGo(raw.Bindings[name])
		if err != nil {
			errs.Issues = append(errs.Issues, fmt.Sprintf("bindings.%s: %v", name, err))
			continue
		}
		m.Bindings[name] = val
	}

	policy, err := runner.ParseResetPolicy(strings.TrimSpace(raw.Reset))
	if err != nil {
		errs.Issues = append(errs.Issues, "reset: "+err.Error())
	}
	m.Reset = policy

	if m.MaxSteps < 0 {
		errs.Issues = append(errs.Issues, "maxSteps must not be negative")
	}
	if delay := strings.TrimSpace(raw.StepDelay); delay != "" {
		d, err := time.ParseDuration(delay)
		switch {
		case err != nil:
			errs.Issues = append(errs.Issues, fmt.Sprintf("stepDelay: invalid duration %q", delay))
		case d < 0:
			errs.Issues = append(errs.Issues, "stepDelay must not be negative")
		default:
			m.StepDelay = d
		}
	}

	if len(errs.Issues) > 0 {
		return nil, &errs
	}
	return m, nil
}

func (s *SourceSpec) validate() []string {
	var errs []string
	if s.Git == "" {
		errs = append(errs, "git must be provided")
	}
	if s.Path == "" {
		errs = append(errs, "path must be provided")
	} else if !filepath.IsLocal(filepath.FromSlash(s.Path)) {
		errs = append(errs, fmt.Sprintf("path %q must stay inside the repository", s.Path))
	}
	set := 0
	for _, ref := range []string{s.Rev, s.Tag, s.Branch} {
		if ref != "" {
			set++
		}
	}
	if set > 1 {
		errs = append(errs, "only one of rev, tag, or branch may be set")
	}
	return errs
}

// ProgramPath returns the absolute path of a local program.
func (m *Manifest) ProgramPath() string {
	if m.Program == "" || filepath.IsAbs(m.Program) {
		return m.Program
	}
	return filepath.Join(m.Dir, m.Program)
}

// RunnerOptions translates the manifest into runner options.
func (m *Manifest) RunnerOptions() []runner.Option {
	opts := []runner.Option{runner.WithResetPolicy(m.Reset)}
	if len(m.Bindings) > 0 {
		opts = append(opts, runner.WithBindings(m.Bindings))
	}
	return opts
}

// FindManifest looks for c4c.yml in start and then each parent directory.
func FindManifest(start string) (string, error) {
	dir, err := filepath.Abs(start)
	if err != nil {
		return "", fmt.Errorf("resolve start directory %q: %w", start, err)
	}
	if info, statErr := os.Stat(dir); statErr == nil && !info.IsDir() {
		dir = filepath.Dir(dir)
	}
	origin := dir
	for {
		candidate := filepath.Join(dir, ManifestName)
		info, err := os.Stat(candidate)
		if err == nil && !info.IsDir() {
			return candidate, nil
		}
		if err != nil && !errors.Is(err, os.ErrNotExist) {
			return "", err
		}
		parent := filepath.Dir(dir)
		if parent == dir {
			return "", fmt.Errorf("no %s found from %s upwards: %w", ManifestName, origin, ErrManifestNotFound)
		}
		dir = parent
	}
}
