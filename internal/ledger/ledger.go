// Package ledger persists the per-playlist record of tracks that have already been downloaded.
//
// Each playlist directory holds a hidden JSON document named [FileName]:
//
//	{
//	  "ids": ["4uLU6hMCjMI75M1A2tKUQC"],
//	  "names": {"4uLU6hMCjMI75M1A2tKUQC": "Rick Astley - Never Gonna Give You Up"}
//	}
//
// "ids" is insertion ordered and is the only field consulted when deciding whether a track
// is done. "names" exists so an operator can read the file.
package ledger

import (
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"

	"github.com/desertthunder/spotivy/internal/shared"
)

// FileName is the ledger file kept inside each playlist directory.
const FileName = ".downloaded"

// Ledger is the completion record of a single playlist.
type Ledger struct {
	IDs   []string          `json:"ids"`
	Names map[string]string `json:"names"`

	index map[string]struct{}
}

// New returns an empty ledger.
func New() *Ledger {
	l := &Ledger{IDs: []string{}, Names: map[string]string{}}
	l.reindex()
	return l
}

func (l *Ledger) reindex() {
	if l.IDs == nil {
		l.IDs = []string{}
	}
	if l.Names == nil {
		l.Names = map[string]string{}
	}

	l.index = make(map[string]struct{}, len(l.IDs))
	ids := l.IDs[:0]
	for _, id := range l.IDs {
		if _, dup := l.index[id]; dup {
			continue
		}
		l.index[id] = struct{}{}
		ids = append(ids, id)
	}
	l.IDs = ids
}

// Contains reports whether the track has been recorded as downloaded.
func (l *Ledger) Contains(id string) bool {
	if l.index == nil {
		l.reindex()
	}
	_, ok := l.index[id]
	return ok
}

// Record appends a completed track. Recording an id twice only refreshes its label.
func (l *Ledger) Record(id, label string) {
	if !l.Contains(id) {
		l.IDs = append(l.IDs, id)
		l.index[id] = struct{}{}
	}
	l.Names[id] = label
}

// Len returns the number of completed tracks.
func (l *Ledger) Len() int {
	return len(l.IDs)
}

// Store reads and writes ledgers below an output root.
type Store struct {
	root string
}

// NewStore creates a Store rooted at the configured output directory.
func NewStore(root string) *Store {
	return &Store{root: root}
}

// Path returns the ledger location for a sanitized playlist name.
func (s *Store) Path(name string) string {
	return filepath.Join(s.root, name, FileName)
}

// Load returns the ledger for the playlist directory name, creating and persisting an empty
// one first when none exists.
//
// A file that exists but does not decode yields an error wrapping [shared.ErrLedgerCorrupt].
func (s *Store) Load(name string) (*Ledger, error) {
	path := s.Path(name)

	if _, err := os.Stat(path); errors.Is(err, fs.ErrNotExist) {
		if err := s.Save(New(), name); err != nil {
			return nil, err
		}
	}

	return s.read(path)
}

// Read returns the ledger for the playlist directory name without creating it.
//
// A missing file yields an error wrapping [fs.ErrNotExist].
func (s *Store) Read(name string) (*Ledger, error) {
	path := s.Path(name)
	if _, err := os.Stat(path); err != nil {
		return nil, fmt.Errorf("no ledger at %s: %w", path, err)
	}
	return s.read(path)
}

func (s *Store) read(path string) (*Ledger, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %v", shared.ErrLedgerCorrupt, path, err)
	}

	var l Ledger
	if err := json.Unmarshal(data, &l); err != nil {
		return nil, fmt.Errorf("%w: %s: %v", shared.ErrLedgerCorrupt, path, err)
	}
	l.reindex()

	return &l, nil
}

// Save overwrites the ledger file with the full contents of l, creating parent directories as needed.
func (s *Store) Save(l *Ledger, name string) error {
	path := s.Path(name)

	data, err := shared.MarshalJSON(l, true)
	if err != nil {
		return fmt.Errorf("%w: %v", shared.ErrLedgerWrite, err)
	}

	w, err := NewAtomicWriter(path)
	if err != nil {
		return fmt.Errorf("%w: %s: %v", shared.ErrLedgerWrite, path, err)
	}
	if _, err := w.Write(data); err != nil {
		w.Abort()
		return fmt.Errorf("%w: %s: %v", shared.ErrLedgerWrite, path, err)
	}
	if err := w.Commit(); err != nil {
		return fmt.Errorf("%w: %s: %v", shared.ErrLedgerWrite, path, err)
	}

	return nil
}

// Handle is a loaded ledger bound to the store location it was read from.
type Handle struct {
	*Ledger

	store *Store
	name  string
}

// Open loads the named ledger and binds it for [Handle.Commit].
func (s *Store) Open(name string) (*Handle, error) {
	l, err := s.Load(name)
	if err != nil {
		return nil, err
	}
	return &Handle{Ledger: l, store: s, name: name}, nil
}

// Name returns the playlist directory name the ledger belongs to.
func (h *Handle) Name() string {
	return h.name
}

// Commit records a completed track and persists the whole ledger.
func (h *Handle) Commit(id, label string) error {
	h.Record(id, label)
	return h.store.Save(h.Ledger, h.name)
}
