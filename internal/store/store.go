// Package store keeps an append-only JSON-lines archive of the sessions a
// verifier decided, with the transcript it checked, so verdicts can be
// audited later without the prover.
package store

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/goccy/go-json"

	"sigmakit/internal/config"
)

// Record is one decided session.
type Record struct {
	SessionID   string    `json:"sessionId"`
	Statement   string    `json:"statement"`
	Accepted    bool      `json:"accepted"`
	Fingerprint string    `json:"fingerprint"`
	Transcript  []byte    `json:"transcript"`
	DecidedAt   time.Time `json:"decidedAt"`
}

type Store struct {
	mu   sync.Mutex
	path string
}

func New(path string) *Store {
	_ = os.MkdirAll(filepath.Dir(path), 0700)
	return &Store{path: path}
}

// newScanner fits a line holding a base64 transcript of up to the frame cap.
func newScanner(r io.Reader) *bufio.Scanner {
	sc := bufio.NewScanner(r)
	sc.Buffer(make([]byte, 0, 64*1024), 2*config.MaxFrameBytes())
	return sc
}

func syncFile(f *os.File) error {
	if f == nil {
		return nil
	}
	return f.Sync()
}

func syncDir(path string) {
	dir, err := os.Open(filepath.Dir(path))
	if err != nil {
		return
	}
	defer dir.Close()
	_ = dir.Sync()
}

func (s *Store) Append(r Record) error {
	if r.SessionID == "" {
		return fmt.Errorf("record without session id")
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.appendLocked(r)
}

func (s *Store) appendLocked(r Record) error {
	f, err := os.OpenFile(s.path, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0600)
	if err != nil {
		return err
	}
	defer f.Close()
	if err := json.NewEncoder(f).Encode(r); err != nil {
		return err
	}
	return syncFile(f)
}

// AppendIfNew appends r unless a record with its session id exists. It
// reports whether r was written.
func (s *Store) AppendIfNew(r Record) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	found, err := s.findLocked(r.SessionID)
	if err != nil {
		return false, err
	}
	if found != nil {
		return false, nil
	}
	return true, s.appendLocked(r)
}

// List returns every record in append order. Lines that do not parse are
// skipped.
func (s *Store) List() ([]Record, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.listLocked()
}

func (s *Store) listLocked() ([]Record, error) {
	f, err := os.OpenFile(s.path, os.O_CREATE|os.O_RDONLY, 0600)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	var out []Record
	sc := newScanner(f)
	for sc.Scan() {
		var r Record
		if err := json.Unmarshal(sc.Bytes(), &r); err == nil {
			out = append(out, r)
		}
	}
	return out, sc.Err()
}

func (s *Store) Find(sessionID string) (*Record, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.findLocked(sessionID)
}

func (s *Store) findLocked(sessionID string) (*Record, error) {
	f, err := os.OpenFile(s.path, os.O_CREATE|os.O_RDONLY, 0600)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	sc := newScanner(f)
	for sc.Scan() {
		var r Record
		if err := json.Unmarshal(sc.Bytes(), &r); err == nil && r.SessionID == sessionID {
			return &r, nil
		}
	}
	if err := sc.Err(); err != nil {
		return nil, err
	}
	return nil, nil
}

// Prune rewrites the archive keeping only records decided at or after
// cutoff, and returns how many were dropped.
func (s *Store) Prune(cutoff time.Time) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	rs, err := s.listLocked()
	if err != nil {
		return 0, err
	}

	tmp := s.path + ".tmp"
	f, err := os.OpenFile(tmp, os.O_CREATE|os.O_TRUNC|os.O_WRONLY, 0600)
	if err != nil {
		return 0, err
	}
	dropped := 0
	enc := json.NewEncoder(f)
	for _, r := range rs {
		if r.DecidedAt.Before(cutoff) {
			dropped++
			continue
		}
		if err := enc.Encode(r); err != nil {
			_ = f.Close()
			return 0, err
		}
	}
	if err := syncFile(f); err != nil {
		_ = f.Close()
		return 0, err
	}
	// close before rename, windows refuses to rename open files
	if err := f.Close(); err != nil {
		return 0, err
	}
	if err := os.Rename(tmp, s.path); err != nil {
		return 0, err
	}
	syncDir(s.path)
	return dropped, nil
}

func (s *Store) Debug() (string, error) {
	_, err := os.Stat(s.path)
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("archive=%s", s.path), nil
}
