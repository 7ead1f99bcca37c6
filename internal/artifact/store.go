// Package artifact persists generated game files and optionally records
// each run as a commit in the output directory.
package artifact

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/fyrsmithlabs/gamesmith/internal/game"
	"github.com/fyrsmithlabs/gamesmith/internal/logging"
	"go.uber.org/zap"
)

// WriteError reports the file that could not be written.
type WriteError struct {
	File string
	Path string
	Err  error
}

func (e *WriteError) Error() string {
	return fmt.Sprintf("writing %s: %v", e.Path, e.Err)
}

func (e *WriteError) Unwrap() error {
	return e.Err
}

// Store writes file sets into a directory.
type Store struct {
	dir      string
	snapshot *Snapshotter
	logger   *logging.Logger
}

// Option configures a Store.
type Option func(*Store)

// WithSnapshot commits every written file set into a git repository in the
// output directory.
func WithSnapshot(s *Snapshotter) Option {
	return func(st *Store) {
		st.snapshot = s
	}
}

// WithLogger sets the logger.
func WithLogger(l *logging.Logger) Option {
	return func(st *Store) {
		st.logger = l
	}
}

// NewStore creates a store rooted at dir.
func NewStore(dir string, opts ...Option) *Store {
	s := &Store{dir: dir, logger: logging.NewNop()}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Dir returns the output directory.
func (s *Store) Dir() string {
	return s.dir
}

// Write persists every file of fs under its fixed name and records the
// paths on fs. Each file is replaced atomically. Files written before a
// failure are left in place.
func (s *Store) Write(ctx context.Context, fs *game.FileSet) error {
	if err := os.MkdirAll(s.dir, 0o755); err != nil {
		return &WriteError{Path: s.dir, Err: fmt.Errorf("creating output directory: %w", err)}
	}

	for _, f := range game.AllFiles() {
		if err := ctx.Err(); err != nil {
			return err
		}
		path := filepath.Join(s.dir, f.FileName())
		if err := writeAtomic(path, withTrailingNewline(fs.Body(f))); err != nil {
			return &WriteError{File: f.FileName(), Path: path, Err: err}
		}
		fs.SetPath(f, path)
		s.logger.Debug(ctx, "file written", zap.String("path", path))
	}

	if s.snapshot != nil {
		hash, err := s.snapshot.Commit(ctx, fs)
		if err != nil {
			s.logger.Warn(ctx, "output snapshot failed", zap.Error(err))
		} else if hash != "" {
			s.logger.Info(ctx, "output snapshot committed", zap.String("commit", hash))
		}
	}
	return nil
}

func withTrailingNewline(body string) string {
	if strings.HasSuffix(body, "\n") {
		return body
	}
	return body + "\n"
}

// writeAtomic writes data to a temp file beside path and renames it into
// place.
func writeAtomic(path, data string) error {
	tmp, err := os.CreateTemp(filepath.Dir(path), "."+filepath.Base(path)+".*.tmp")
	if err != nil {
		return fmt.Errorf("creating temp file: %w", err)
	}
	tmpPath := tmp.Name()

	_, werr := tmp.WriteString(data)
	if werr == nil {
		werr = tmp.Sync()
	}
	if cerr := tmp.Close(); werr == nil {
		werr = cerr
	}
	if werr == nil {
		werr = os.Chmod(tmpPath, 0o644)
	}
	if werr != nil {
		os.Remove(tmpPath)
		return werr
	}

	if err := os.Rename(tmpPath, path); err != nil {
		os.Remove(tmpPath)
		return fmt.Errorf("renaming into place: %w", err)
	}
	return nil
}

// IsWriteError reports whether err came from writing a file.
func IsWriteError(err error) (*WriteError, bool) {
	var we *WriteError
	if errors.As(err, &we) {
		return we, true
	}
	return nil, false
}
