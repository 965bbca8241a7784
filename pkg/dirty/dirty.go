// Package dirty tracks which source files changed since their chart was last
// written, so directory runs can skip files whose output is still current.
package dirty

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"sync"
	"time"
)

// DefaultStateFile is the state file written next to the generated charts.
const DefaultStateFile = ".cfc-state.json"

// fileState is what was last written for one source file.
type fileState struct {
	Path        string `json:"path"`
	Hash        string `json:"hash"`
	Fingerprint string `json:"fingerprint"`
	Output      string `json:"output"`
	Written     int64  `json:"written"` // Unix timestamp
}

// stateData is the on-disk JSON structure.
type stateData struct {
	Version int         `json:"version"`
	Files   []fileState `json:"files"`
}

// Tracker records source hashes per relative path. It is safe for
// concurrent use.
type Tracker struct {
	mu    sync.RWMutex
	files map[string]fileState
	path  string
}

// Option configures a Tracker.
type Option func(*Tracker)

// WithStateFile sets the file name used inside the state directory.
func WithStateFile(name string) Option {
	return func(t *Tracker) {
		t.path = filepath.Join(filepath.Dir(t.path), name)
	}
}

// New creates an empty Tracker that persists to dir.
func New(dir string, opts ...Option) *Tracker {
	t := &Tracker{
		files: make(map[string]fileState),
		path:  filepath.Join(dir, DefaultStateFile),
	}
	for _, opt := range opts {
		opt(t)
	}
	return t
}

// Open creates a Tracker for dir and loads its state file if present.
func Open(dir string, opts ...Option) (*Tracker, error) {
	t := New(dir, opts...)
	if err := t.Load(); err != nil {
		return nil, err
	}
	return t, nil
}

// HashFile computes the SHA256 hash of a file's contents.
func HashFile(path string) (string, error) {
	f, err := os.Open(path)
	if err != nil {
		return "", fmt.Errorf("failed to open file %s: %w", path, err)
	}
	defer f.Close()

	hasher := sha256.New()
	if _, err := io.Copy(hasher, f); err != nil {
		return "", fmt.Errorf("failed to hash file %s: %w", path, err)
	}
	return hex.EncodeToString(hasher.Sum(nil)), nil
}

// Changed reports whether rel must be charted again: it is untracked, its
// hash or fingerprint differs, or the recorded output no longer exists.
func (t *Tracker) Changed(rel, hash, fingerprint string) bool {
	t.mu.RLock()
	state, exists := t.files[rel]
	t.mu.RUnlock()

	if !exists || state.Hash != hash || state.Fingerprint != fingerprint {
		return true
	}
	if state.Output != "" {
		if _, err := os.Stat(state.Output); err != nil {
			return true
		}
	}
	return false
}

// ChangedContext is Changed with context support.
func (t *Tracker) ChangedContext(ctx context.Context, rel, hash, fingerprint string) (bool, error) {
	select {
	case <-ctx.Done():
		return false, ctx.Err()
	default:
		return t.Changed(rel, hash, fingerprint), nil
	}
}

// Mark records that output was written for rel at the given hash.
func (t *Tracker) Mark(rel, hash, fingerprint, output string) {
	t.mu.Lock()
	defer t.mu.Unlock()

	t.files[rel] = fileState{
		Path:        rel,
		Hash:        hash,
		Fingerprint: fingerprint,
		Output:      output,
		Written:     time.Now().Unix(),
	}
}

// GetHash returns the recorded hash for rel.
func (t *Tracker) GetHash(rel string) (string, bool) {
	t.mu.RLock()
	defer t.mu.RUnlock()

	state, exists := t.files[rel]
	return state.Hash, exists
}

// Remove removes a file from tracking.
func (t *Tracker) Remove(rel string) {
	t.mu.Lock()
	defer t.mu.Unlock()
	delete(t.files, rel)
}

// Prune drops every tracked file not in keep and returns how many were dropped.
func (t *Tracker) Prune(keep []string) int {
	t.mu.Lock()
	defer t.mu.Unlock()

	live := make(map[string]bool, len(keep))
	for _, rel := range keep {
		live[rel] = true
	}

	dropped := 0
	for rel := range t.files {
		if !live[rel] {
			delete(t.files, rel)
			dropped++
		}
	}
	return dropped
}

// Len returns the number of tracked files.
func (t *Tracker) Len() int {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return len(t.files)
}

// Path returns the state file location.
func (t *Tracker) Path() string {
	return t.path
}

// Save persists the state to the state file.
func (t *Tracker) Save() error {
	if err := os.MkdirAll(filepath.Dir(t.path), 0755); err != nil {
		return fmt.Errorf("failed to create state directory: %w", err)
	}

	f, err := os.Create(t.path)
	if err != nil {
		return fmt.Errorf("failed to create state file: %w", err)
	}
	defer f.Close()

	return t.SaveTo(f)
}

// Load restores the state from the state file. A missing file is not an error.
func (t *Tracker) Load() error {
	f, err := os.Open(t.path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return fmt.Errorf("failed to open state file: %w", err)
	}
	defer f.Close()

	return t.LoadFrom(f)
}

// SaveTo writes the state to w, sorted by path.
func (t *Tracker) SaveTo(w io.Writer) error {
	t.mu.RLock()
	files := make([]fileState, 0, len(t.files))
	for _, state := range t.files {
		files = append(files, state)
	}
	t.mu.RUnlock()

	sort.Slice(files, func(i, j int) bool { return files[i].Path < files[j].Path })

	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	if err := enc.Encode(stateData{Version: 1, Files: files}); err != nil {
		return fmt.Errorf("failed to encode state: %w", err)
	}
	return nil
}

// LoadFrom replaces the state with what r holds.
func (t *Tracker) LoadFrom(r io.Reader) error {
	var data stateData
	if err := json.NewDecoder(r).Decode(&data); err != nil {
		return fmt.Errorf("failed to decode state: %w", err)
	}

	t.mu.Lock()
	defer t.mu.Unlock()

	t.files = make(map[string]fileState, len(data.Files))
	for _, state := range data.Files {
		t.files[state.Path] = state
	}
	return nil
}
