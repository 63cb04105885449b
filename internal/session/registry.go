package session

import (
	"sync"

	"github.com/google/uuid"
)

// Registry is the in-memory mapping from token to file metadata. It is the
// only concurrently mutated in-memory structure in the store; one mutex over
// the whole map is enough at this scale. It holds no expiry state: liveness
// belongs to the directory mtime, and the sweeper prunes entries here in the
// same pass that removes directories.
type Registry struct {
	mu       sync.RWMutex
	sessions map[string][]FileEntry
}

// NewRegistry returns an empty registry.
func NewRegistry() *Registry {
	return &Registry{sessions: make(map[string][]FileEntry)}
}

// NewToken generates a fresh unguessable session token. The token is not
// registered yet: callers register it only after the session directory was
// created, so a failed mkdir leaves no orphaned entry.
func (r *Registry) NewToken() string {
	return uuid.NewString()
}

// Register adds a token with an empty file list.
func (r *Registry) Register(token string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.sessions[token] = []FileEntry{}
}

// Has reports whether the token is registered.
func (r *Registry) Has(token string) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	_, ok := r.sessions[token]
	return ok
}

// Append records uploaded files for a token. Entries are de-duplicated by
// name: re-uploading a name overwrites the bytes on disk, so the existing
// entry's size is updated in place instead of growing the list.
func (r *Registry) Append(token string, files []FileEntry) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	existing, ok := r.sessions[token]
	if !ok {
		return ErrUnknownToken
	}

	for _, f := range files {
		replaced := false
		for i := range existing {
			if existing[i].Name == f.Name {
				existing[i].Size = f.Size
				replaced = true
				break
			}
		}
		if !replaced {
			existing = append(existing, f)
		}
	}

	r.sessions[token] = existing
	return nil
}

// Files returns a snapshot of the ordered file list for a token. Appends
// that happen after the call do not show up in an already returned slice.
func (r *Registry) Files(token string) ([]FileEntry, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	files, ok := r.sessions[token]
	if !ok {
		return nil, ErrUnknownToken
	}

	snapshot := make([]FileEntry, len(files))
	copy(snapshot, files)
	return snapshot, nil
}

// Remove clears the registry entry for a token. Idempotent.
func (r *Registry) Remove(token string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.sessions, token)
}

// Len returns the number of registered sessions.
func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.sessions)
}
