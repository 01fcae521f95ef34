package driver

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/go-git/go-git/v5"
	"github.com/go-git/go-git/v5/plumbing"
)

// FetchedProgram is a program file read out of a git checkout.
type FetchedProgram struct {
	Source string
	// Name is "<url>@<commit>:<path>", used as the diagnostic filename.
	Name   string
	Commit string
}

// FetchGitProgram clones spec.Git into a temporary directory, checks out the
// requested revision and reads spec.Path. The checkout is removed before
// returning. Without rev, tag or branch the remote HEAD is used.
func FetchGitProgram(ctx context.Context, spec *SourceSpec) (*FetchedProgram, error) {
	if spec == nil {
		return nil, fmt.Errorf("git source: nil spec")
	}
	if issues := spec.validate(); len(issues) > 0 {
		return nil, &ValidationError{Issues: issues}
	}

	tmpDir, err := os.MkdirTemp("", "c4c-git-*")
	if err != nil {
		return nil, err
	}
	defer os.RemoveAll(tmpDir)

	repo, err := git.PlainCloneContext(ctx, tmpDir, false, &git.CloneOptions{
		URL:  spec.Git,
		Tags: git.AllTags,
	})
	if err != nil {
		return nil, fmt.Errorf("git clone %s: %w", spec.Git, err)
	}

	revision := gitRevision(spec)
	hash, err := repo.ResolveRevision(revision)
	if err != nil {
		return nil, fmt.Errorf("resolve revision %s: %w", revision, err)
	}

	worktree, err := repo.Worktree()
	if err != nil {
		return nil, err
	}
	if err := worktree.Checkout(&git.CheckoutOptions{
		Hash:  *hash,
		Force: true,
	}); err != nil {
		return nil, fmt.Errorf("git checkout %s: %w", revision, err)
	}

	data, err := os.ReadFile(filepath.Join(tmpDir, filepath.FromSlash(spec.Path)))
	if err != nil {
		return nil, fmt.Errorf("read %s at %s: %w", spec.Path, hash.String(), err)
	}
	return &FetchedProgram{
		Source: string(data),
		Name:   fmt.Sprintf("%s@%s:%s", spec.Git, shortHash(hash.String()), spec.Path),
		Commit: hash.String(),
	}, nil
}

// gitRevision maps the manifest's ref fields onto a revision go-git can
// resolve. Branches resolve against the clone's remote-tracking refs.
func gitRevision(spec *SourceSpec) plumbing.Revision {
	switch {
	case spec.Rev != "":
		return plumbing.Revision(spec.Rev)
	case spec.Tag != "":
		return plumbing.Revision("refs/tags/" + spec.Tag)
	case spec.Branch != "":
		return plumbing.Revision("refs/remotes/origin/" + spec.Branch)
	default:
		return plumbing.Revision("HEAD")
	}
}

func shortHash(hash string) string {
	hash = strings.TrimSpace(hash)
	if len(hash) > 12 {
		return hash[:12]
	}
	return hash
}
