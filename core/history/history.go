// Package history stores the lines submitted to the shell.
package history

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"strings"
	"sync"

	"github.com/spf13/afero"
)

// Store holds the submitted lines of a session, oldest first.
type Store interface {
	// Append records a submitted line.
	Append(line string) error
	// Lines returns a copy of the recorded lines.
	Lines() []string
	// Clear removes all recorded lines.
	Clear() error
	// Start returns the 1-based number of the first line returned by Lines,
	// older lines may have been dropped from memory.
	Start() int
}

// FileStore is a Store backed by an append-only log with one line per entry.
type FileStore struct {
	fs   afero.Fs
	path string
	// max is the number of lines kept in memory, unlimited if <= 0.
	max int

	mu    sync.Mutex
	lines []string
	// dropped counts the lines trimmed from the front of lines.
	dropped int
}

var _ Store = (*FileStore)(nil)

// Open loads the history log at path, the log doesn't need to exist yet.
func Open(fsys afero.Fs, path string, max int) (*FileStore, error) {
	store := &FileStore{
		fs:   fsys,
		path: path,
		max:  max,
	}

	fd, err := fsys.Open(path)
	switch {
	case errors.Is(err, os.ErrNotExist):
		return store, nil
	case err != nil:
		return nil, fmt.Errorf("open history: %w", err)
	}
	defer fd.Close()

	// Entries have no length limit.
	reader := bufio.NewReader(fd)
	for {
		line, err := reader.ReadString('\n')
		if line = strings.TrimRight(line, "\r\n"); line != "" {
			store.lines = append(store.lines, line)
		}
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("read history: %w", err)
		}
	}
	store.trim()

	return store, nil
}

// NewMemStore creates a history that isn't persisted across sessions.
func NewMemStore() *FileStore {
	store, _ := Open(afero.NewMemMapFs(), "history", 0)
	return store
}

// Append implements Store.
func (s *FileStore) Append(line string) error {
	line = strings.TrimRight(line, "\r\n")
	if strings.ContainsAny(line, "\r\n") {
		return fmt.Errorf("history entries must be a single line")
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	fd, err := s.fs.OpenFile(s.path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0600)
	if err != nil {
		return fmt.Errorf("append history: %w", err)
	}
	defer fd.Close()

	if _, err := fmt.Fprintln(fd, line); err != nil {
		return fmt.Errorf("append history: %w", err)
	}

	s.lines = append(s.lines, line)
	s.trim()
	return nil
}

// Lines implements Store.
func (s *FileStore) Lines() []string {
	s.mu.Lock()
	defer s.mu.Unlock()

	out := make([]string, len(s.lines))
	copy(out, s.lines)
	return out
}

// Clear implements Store.
func (s *FileStore) Clear() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	switch err := s.fs.Remove(s.path); {
	case err == nil, errors.Is(err, fs.ErrNotExist):
	default:
		return fmt.Errorf("clear history: %w", err)
	}

	s.lines = nil
	s.dropped = 0
	return nil
}

// Start implements Store.
func (s *FileStore) Start() int {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.dropped + 1
}

// Path returns the location of the log.
func (s *FileStore) Path() string {
	return s.path
}

func (s *FileStore) trim() {
	if s.max > 0 && len(s.lines) > s.max {
		excess := len(s.lines) - s.max
		s.dropped += excess
		s.lines = append([]string(nil), s.lines[excess:]...)
	}
}
