package auth

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/viant/afs"
)

// sessionFile is the JSON file name for the stored session
const sessionFile = "session.json"

// ErrNoSession is returned by Store.Get when no session is stored
var ErrNoSession = errors.New("no session found")

// Store is the process-wide session accessor. Any caller may clear it at any
// time, so readers must tolerate ErrNoSession on every call.
type Store interface {
	Get(ctx context.Context) (*Session, error)
	Set(ctx context.Context, session *Session) error
	Clear(ctx context.Context) error
}

// StoreKind represents where the session is persisted
type StoreKind string

const (
	StoreHome    StoreKind = "home"    // ~/.bkctl/session.json
	StoreProject StoreKind = "project" // .bkctl/session.json
	StoreMemory  StoreKind = "memory"  // process lifetime only
)

// ValidateStore checks if the given string is a valid StoreKind
func ValidateStore(store string) (StoreKind, error) {
	switch StoreKind(store) {
	case "":
		return StoreHome, nil
	case StoreHome:
		return StoreHome, nil
	case StoreProject:
		return StoreProject, nil
	case StoreMemory:
		return StoreMemory, nil
	default:
		return "", fmt.Errorf("invalid store %q: must be 'home', 'project', or 'memory'", store)
	}
}

// NewStore returns the store for the given kind
func NewStore(kind StoreKind) (Store, error) {
	if kind == StoreMemory {
		return NewMemoryStore(), nil
	}
	path, err := StorePath(kind)
	if err != nil {
		return nil, err
	}
	return NewFileStore(path), nil
}

// StorePath returns the session file location for a file-backed store
func StorePath(kind StoreKind) (string, error) {
	switch kind {
	case StoreHome:
		homeDir, err := os.UserHomeDir()
		if err != nil {
			return "", fmt.Errorf("failed to determine home directory: %w", err)
		}
		return filepath.Join(homeDir, ".bkctl", sessionFile), nil
	case StoreProject:
		return filepath.Join(".bkctl", sessionFile), nil
	default:
		return "", fmt.Errorf("store %s is not file backed", kind)
	}
}

// FileStore keeps the session in a JSON file addressed by an afs URL or a local path
type FileStore struct {
	mu   sync.RWMutex
	fs   afs.Service
	path string
}

// NewFileStore creates a Store that persists the session at the given location
func NewFileStore(path string) *FileStore {
	return &FileStore{fs: afs.New(), path: path}
}

// Path returns the session file location
func (f *FileStore) Path() string {
	return f.path
}

func (f *FileStore) Get(ctx context.Context) (*Session, error) {
	f.mu.RLock()
	defer f.mu.RUnlock()

	exists, err := f.fs.Exists(ctx, f.path)
	if err != nil {
		return nil, fmt.Errorf("failed to check session file %s: %w", f.path, err)
	}
	if !exists {
		return nil, ErrNoSession
	}
	data, err := f.fs.DownloadWithURL(ctx, f.path)
	if err != nil {
		return nil, fmt.Errorf("failed to read session from %s: %w", f.path, err)
	}
	if len(bytes.TrimSpace(data)) == 0 {
		return nil, ErrNoSession
	}

	var session Session
	if err := json.Unmarshal(data, &session); err != nil {
		return nil, fmt.Errorf("failed to parse session from %s: %w", f.path, err)
	}
	if session.AccessToken == "" {
		return nil, ErrNoSession
	}
	return &session, nil
}

func (f *FileStore) Set(ctx context.Context, session *Session) error {
	if session == nil {
		return f.Clear(ctx)
	}
	f.mu.Lock()
	defer f.mu.Unlock()

	if !strings.Contains(f.path, "://") {
		dir := filepath.Dir(f.path)
		if err := os.MkdirAll(dir, 0700); err != nil {
			return fmt.Errorf("failed to create directory %s: %w", dir, err)
		}
	}

	data, err := json.MarshalIndent(session, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal session: %w", err)
	}
	if err := f.fs.Upload(ctx, f.path, 0600, bytes.NewReader(data)); err != nil {
		return fmt.Errorf("failed to write session to %s: %w", f.path, err)
	}
	return nil
}

// Clear removes the session file; clearing an empty store is not an error
func (f *FileStore) Clear(ctx context.Context) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	exists, err := f.fs.Exists(ctx, f.path)
	if err != nil {
		return fmt.Errorf("failed to check session file %s: %w", f.path, err)
	}
	if !exists {
		return nil
	}
	if err := f.fs.Delete(ctx, f.path); err != nil {
		return fmt.Errorf("failed to remove %s: %w", f.path, err)
	}
	return nil
}

// MemoryStore keeps the session for the lifetime of the process
type MemoryStore struct {
	mu      sync.RWMutex
	session *Session
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{}
}

func (m *MemoryStore) Get(_ context.Context) (*Session, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if m.session == nil {
		return nil, ErrNoSession
	}
	session := *m.session
	return &session, nil
}

func (m *MemoryStore) Set(_ context.Context, session *Session) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if session == nil {
		m.session = nil
		return nil
	}
	stored := *session
	m.session = &stored
	return nil
}

func (m *MemoryStore) Clear(_ context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.session = nil
	return nil
}

// Status returns a human-readable description of the current session state
func Status(ctx context.Context, store Store) (string, *Session) {
	session, err := store.Get(ctx)
	if err != nil {
		if errors.Is(err, ErrNoSession) {
			return "Not authenticated", nil
		}
		return fmt.Sprintf("Session unreadable: %s", err), nil
	}

	token := session.Token()
	switch {
	case session.Expiry().IsZero():
		return "Authenticated (expiry unknown)", session
	case token.Valid():
		return fmt.Sprintf("Authenticated (expires %s)", token.Expiry.Local().Format("2006-01-02 15:04:05")), session
	default:
		return "Session expired", session
	}
}
