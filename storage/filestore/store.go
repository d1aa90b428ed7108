package filestore

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"sync"

	"github.com/poiesic/babel/core"
	"github.com/poiesic/babel/storage"
)

const (
	resultsFile    = "results.jsonl"
	phrasesFile    = "phrases.json"
	progressSuffix = ".progress.json"

	filePerm = 0o644
	dirPerm  = 0o755
)

// ErrInvalidName indicates a checkpoint name that cannot be used as a file name.
var ErrInvalidName = errors.New("invalid checkpoint name")

// Store keeps checkpoints, results and phrases as files in one directory.
// It implements storage.CheckpointRepository, storage.ResultRepository and
// storage.PhraseRepository. A Store is safe for concurrent use by one
// process; two processes must not share a directory.
type Store struct {
	dir    string
	logger *slog.Logger

	mu      sync.Mutex
	results appendLog
	keys    map[core.ResultKey]struct{}
	closed  bool
}

var (
	_ storage.CheckpointRepository = (*Store)(nil)
	_ storage.ResultRepository     = (*Store)(nil)
	_ storage.PhraseRepository     = (*Store)(nil)
)

// appendLog is the open result log; *os.File in production.
type appendLog interface {
	io.Writer
	io.Closer
	Stat() (os.FileInfo, error)
	Truncate(size int64) error
	Sync() error
}

// Option configures a Store.
type Option func(*Store)

// WithLogger sets a custom logger.
// Default is slog.Default().
func WithLogger(logger *slog.Logger) Option {
	return func(s *Store) {
		if logger != nil {
			s.logger = logger
		}
	}
}

// Open opens the store in dir, creating the directory if needed, and
// indexes the results already on disk.
func Open(dir string, opts ...Option) (*Store, error) {
	s := &Store{
		dir:    dir,
		logger: slog.Default(),
		keys:   make(map[core.ResultKey]struct{}),
	}
	for _, opt := range opts {
		opt(s)
	}
	s.logger = s.logger.With("component", "filestore", "dir", dir)

	if err := os.MkdirAll(dir, dirPerm); err != nil {
		return nil, err
	}
	existing, err := s.readResults()
	if err != nil {
		if !errors.Is(err, core.ErrPersistenceRead) {
			return nil, err
		}
		s.logger.Warn("result log only partially readable", "err", err)
	}
	for _, r := range existing {
		s.keys[r.Key()] = struct{}{}
	}
	if err := s.openResults(); err != nil {
		return nil, err
	}
	return s, nil
}

// Dir returns the directory the store lives in.
func (s *Store) Dir() string {
	return s.dir
}

// Close closes the result log.
func (s *Store) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return nil
	}
	s.closed = true
	return s.results.Close()
}

// openResults opens the result log for appending. A torn final line from
// an interrupted write is terminated so the next record starts cleanly.
func (s *Store) openResults() error {
	f, err := os.OpenFile(s.path(resultsFile), os.O_CREATE|os.O_RDWR|os.O_APPEND, filePerm)
	if err != nil {
		return err
	}
	info, err := f.Stat()
	if err != nil {
		f.Close()
		return err
	}
	if size := info.Size(); size > 0 {
		last := make([]byte, 1)
		if _, err := f.ReadAt(last, size-1); err != nil && !errors.Is(err, io.EOF) {
			f.Close()
			return err
		}
		if last[0] != '\n' {
			if _, err := f.Write([]byte{'\n'}); err != nil {
				f.Close()
				return err
			}
		}
	}
	s.results = f
	return nil
}

func (s *Store) path(name string) string {
	return filepath.Join(s.dir, name)
}

func (s *Store) checkOpen() error {
	if s.closed {
		return storage.ErrStorageClosed
	}
	return nil
}

func checkpointPath(dir, name string) (string, error) {
	if name == "" {
		return "", storage.ErrCheckpointNameRequired
	}
	if name != filepath.Base(name) || name == "." || name == ".." {
		return "", fmt.Errorf("%w: %q", ErrInvalidName, name)
	}
	return filepath.Join(dir, name+progressSuffix), nil
}
