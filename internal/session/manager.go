package session

import (
	"context"
	"errors"
	"io"
	"time"

	"github.com/rs/zerolog/log"
)

// IncomingFile is one file part of an upload request.
type IncomingFile struct {
	Name    string
	Content io.Reader
}

// Manager binds the registry and the filesystem store behind the operations
// the HTTP layer consumes. One TTL, measured against the directory mtime, is
// the single liveness signal for every access path.
type Manager struct {
	registry *Registry
	store    *Store
	ttl      time.Duration
	maxBytes int64
}

// NewManager wires a manager over the given registry and store.
func NewManager(registry *Registry, store *Store, ttl time.Duration, maxFileBytes int64) *Manager {
	return &Manager{
		registry: registry,
		store:    store,
		ttl:      ttl,
		maxBytes: maxFileBytes,
	}
}

// TTL returns the inactivity window after which sessions expire.
func (m *Manager) TTL() time.Duration { return m.ttl }

// Store exposes the underlying filesystem store.
func (m *Manager) Store() *Store { return m.store }

// Create makes a new session: a fresh token bound to an empty directory.
// The token is registered only after the directory exists; a failed mkdir
// discards the token entirely.
func (m *Manager) Create(ctx context.Context) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}

	token := m.registry.NewToken()
	if err := m.store.CreateDir(token); err != nil {
		return "", err
	}
	m.registry.Register(token)

	log.Info().Str("token", token).Msg("session created")
	return token, nil
}

// SaveUpload streams a batch of files into the session. The token must be
// registered before any byte is written. On any failure the batch is
// aborted: files already renamed into place stay (identical to a client
// retry), but the registry is only updated, and the activity clock only
// touched, once the whole batch succeeded, keeping the two effects paired.
func (m *Manager) SaveUpload(ctx context.Context, token string, files []IncomingFile) ([]FileEntry, error) {
	if !m.registry.Has(token) {
		return nil, ErrUnknownToken
	}

	accepted := make([]FileEntry, 0, len(files))
	for _, f := range files {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		size, err := m.store.SaveFile(token, f.Name, f.Content, m.maxBytes)
		if err != nil {
			return nil, err
		}
		accepted = append(accepted, FileEntry{Name: f.Name, Size: size})
	}

	if err := m.registry.Append(token, accepted); err != nil {
		// Sweeper removed the session mid-upload; the race is allowed and
		// must surface as an error rather than silently dropping files.
		return nil, err
	}

	// A failed touch is degraded operation, not an upload failure.
	_ = m.store.Touch(token)

	return accepted, nil
}

// List returns the session's file metadata. The registry view is preferred;
// when the registry has no entry but the directory is live (e.g. after a
// process restart) the listing falls back to a disk scan.
func (m *Manager) List(ctx context.Context, token string) ([]FileEntry, error) {
	if err := m.checkLive(token); err != nil {
		return nil, err
	}

	files, err := m.registry.Files(token)
	if errors.Is(err, ErrUnknownToken) {
		return m.store.ScanFiles(token)
	}
	return files, err
}

// Recover lists a live session directly from disk, bypassing the registry.
// Same liveness rules and the same TTL as List.
func (m *Manager) Recover(ctx context.Context, token string) ([]FileEntry, error) {
	if err := m.checkLive(token); err != nil {
		return nil, err
	}
	return m.store.ScanFiles(token)
}

// Open returns a reader over one uploaded file. The filename is validated
// before any path is resolved.
func (m *Manager) Open(ctx context.Context, token, name string) (io.ReadSeekCloser, int64, error) {
	if err := ValidateFilename(name); err != nil {
		return nil, 0, err
	}
	if err := m.checkLive(token); err != nil {
		return nil, 0, err
	}
	return m.store.OpenFile(token, name)
}

// Remove deletes the session directory and its registry entry together.
// Idempotent.
func (m *Manager) Remove(ctx context.Context, token string) error {
	if err := m.store.RemoveDir(token); err != nil {
		return err
	}
	m.registry.Remove(token)
	return nil
}

// checkLive maps the directory state to the error taxonomy: absent is
// ErrNotFound, present but inactive past the TTL is ErrExpired.
func (m *Manager) checkLive(token string) error {
	age, err := m.store.Age(token)
	if err != nil {
		return err
	}
	if age > m.ttl {
		return ErrExpired
	}
	return nil
}
