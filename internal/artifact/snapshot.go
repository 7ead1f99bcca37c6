package artifact

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/fyrsmithlabs/gamesmith/internal/game"
	"github.com/go-git/go-git/v5"
	"github.com/go-git/go-git/v5/plumbing/object"
)

// Snapshotter commits generated files into a git repository living in the
// output directory, creating it on first use.
type Snapshotter struct {
	dir   string
	name  string
	email string
	now   func() time.Time
}

// NewSnapshotter creates a snapshotter for dir.
func NewSnapshotter(dir string) *Snapshotter {
	return &Snapshotter{
		dir:   dir,
		name:  "gamesmith",
		email: "gamesmith@localhost",
		now:   time.Now,
	}
}

// Commit stages the three output files and commits them. It returns the
// commit hash, or "" when nothing changed since the last snapshot.
func (s *Snapshotter) Commit(ctx context.Context, fs *game.FileSet) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}

	repo, err := git.PlainOpen(s.dir)
	if errors.Is(err, git.ErrRepositoryNotExists) {
		repo, err = git.PlainInit(s.dir, false)
	}
	if err != nil {
		return "", fmt.Errorf("opening snapshot repository: %w", err)
	}

	wt, err := repo.Worktree()
	if err != nil {
		return "", fmt.Errorf("getting worktree: %w", err)
	}
	for _, f := range game.AllFiles() {
		if _, err := wt.Add(f.FileName()); err != nil {
			return "", fmt.Errorf("staging %s: %w", f.FileName(), err)
		}
	}

	hash, err := wt.Commit(commitMessage(fs), &git.CommitOptions{
		Author: &object.Signature{Name: s.name, Email: s.email, When: s.now()},
	})
	if errors.Is(err, git.ErrEmptyCommit) {
		return "", nil
	}
	if err != nil {
		return "", fmt.Errorf("committing snapshot: %w", err)
	}
	return hash.String(), nil
}

func commitMessage(fs *game.FileSet) string {
	var sb strings.Builder
	sb.WriteString("Generate game files\n\n")
	for _, f := range game.AllFiles() {
		fmt.Fprintf(&sb, "%s: %d bytes\n", f.FileName(), len(fs.Body(f)))
	}
	return sb.String()
}
