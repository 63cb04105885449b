package session

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/rs/zerolog/log"
)

// MaxFilenameLength is the longest client-supplied filename accepted.
const MaxFilenameLength = 255

// Store is the filesystem half of the session store: one directory per
// token directly under the storage root. The directory's mtime is the
// session's activity clock.
type Store struct {
	root string
}

// NewStore creates the storage root if needed and returns a Store over it.
func NewStore(root string) (*Store, error) {
	if err := os.MkdirAll(root, 0755); err != nil {
		log.Error().Err(err).Str("path", root).Msg("failed to create storage root")
		return nil, &StorageError{Op: "mkdir", Err: err}
	}

	log.Info().Str("path", root).Msg("session storage initialized")
	return &Store{root: root}, nil
}

// Root returns the storage root path.
func (s *Store) Root() string { return s.root }

// Resolve maps a token to its session directory. Pure, no I/O.
// Every component that touches the filesystem goes through this mapping.
func (s *Store) Resolve(token string) string {
	return filepath.Join(s.root, token)
}

// CreateDir creates the session directory for token. Idempotent.
func (s *Store) CreateDir(token string) error {
	dir := s.Resolve(token)
	if err := os.MkdirAll(dir, 0755); err != nil {
		log.Error().Err(err).Str("token", token).Msg("failed to create session directory")
		return &StorageError{Op: "mkdir", Err: err}
	}
	return nil
}

// Touch moves the session's activity clock to now by updating the
// directory's modification time. Callers treat a failed touch as degraded,
// not fatal: the upload already succeeded, the session just risks expiring
// early.
func (s *Store) Touch(token string) error {
	now := time.Now()
	if err := os.Chtimes(s.Resolve(token), now, now); err != nil {
		log.Warn().Err(err).Str("token", token).Msg("failed to touch session directory")
		return &StorageError{Op: "touch", Err: err}
	}
	return nil
}

// Age returns the time elapsed since the session's last activity.
func (s *Store) Age(token string) (time.Duration, error) {
	info, err := os.Stat(s.Resolve(token))
	if err != nil {
		if os.IsNotExist(err) {
			return 0, ErrNotFound
		}
		return 0, &StorageError{Op: "stat", Err: err}
	}
	return time.Since(info.ModTime()), nil
}

// Exists reports whether the session directory is present. Absence means
// the session is dead regardless of what the registry still holds.
func (s *Store) Exists(token string) bool {
	info, err := os.Stat(s.Resolve(token))
	return err == nil && info.IsDir()
}

// RemoveDir recursively deletes the session directory. Removing an absent
// directory is a no-op.
func (s *Store) RemoveDir(token string) error {
	if err := os.RemoveAll(s.Resolve(token)); err != nil {
		log.Error().Err(err).Str("token", token).Msg("failed to remove session directory")
		return &StorageError{Op: "remove", Err: err}
	}
	return nil
}

// SaveFile streams content into the session directory under name, enforcing
// limit as a hard per-file cap. The write goes to a temp file first and is
// renamed into place on success, so readers never observe a partial file.
// A same-named file is overwritten.
func (s *Store) SaveFile(token, name string, content io.Reader, limit int64) (int64, error) {
	if err := ValidateFilename(name); err != nil {
		return 0, err
	}

	dir := s.Resolve(token)
	finalPath := filepath.Join(dir, name)
	tempPath := filepath.Join(dir, fmt.Sprintf(".tmp.%d", time.Now().UnixNano()))

	tempFile, err := os.Create(tempPath)
	if err != nil {
		log.Error().Err(err).Str("token", token).Str("name", name).Msg("failed to create temporary file")
		return 0, &StorageError{Op: "create", Err: err}
	}

	defer func() {
		tempFile.Close()
		if _, err := os.Stat(tempPath); err == nil {
			os.Remove(tempPath)
		}
	}()

	// Read one byte past the cap so an exactly-limit file still succeeds.
	written, err := io.Copy(tempFile, io.LimitReader(content, limit+1))
	if err != nil {
		log.Error().Err(err).Str("token", token).Str("name", name).Msg("failed to write file content")
		return 0, &StorageError{Op: "write", Err: err}
	}
	if written > limit {
		log.Warn().Str("token", token).Str("name", name).Int64("limit", limit).Msg("upload exceeds file size cap")
		return 0, ErrPayloadTooLarge
	}

	if err := tempFile.Sync(); err != nil {
		return 0, &StorageError{Op: "sync", Err: err}
	}
	tempFile.Close()

	if err := os.Rename(tempPath, finalPath); err != nil {
		log.Error().Err(err).Str("token", token).Str("name", name).Msg("failed to move file into place")
		return 0, &StorageError{Op: "rename", Err: err}
	}

	log.Info().
		Str("token", token).
		Str("name", name).
		Int64("bytes_written", written).
		Msg("file stored")

	return written, nil
}

// OpenFile opens a previously uploaded file for reading and returns its size.
func (s *Store) OpenFile(token, name string) (io.ReadSeekCloser, int64, error) {
	if err := ValidateFilename(name); err != nil {
		return nil, 0, err
	}

	path := filepath.Join(s.Resolve(token), name)
	f, err := os.Open(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, 0, ErrNotFound
		}
		return nil, 0, &StorageError{Op: "open", Err: err}
	}

	info, err := f.Stat()
	if err != nil {
		f.Close()
		return nil, 0, &StorageError{Op: "stat", Err: err}
	}

	return f, info.Size(), nil
}

// ScanFiles lists the regular files currently on disk for a session.
// Used by the recovery listing and as a fallback when the in-memory
// registry has no entry (e.g. after a restart).
func (s *Store) ScanFiles(token string) ([]FileEntry, error) {
	entries, err := os.ReadDir(s.Resolve(token))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, ErrNotFound
		}
		return nil, &StorageError{Op: "readdir", Err: err}
	}

	files := make([]FileEntry, 0, len(entries))
	for _, entry := range entries {
		if !entry.Type().IsRegular() {
			continue
		}
		info, err := entry.Info()
		if err != nil {
			log.Warn().Err(err).Str("token", token).Str("name", entry.Name()).Msg("skipping unreadable file")
			continue
		}
		files = append(files, FileEntry{Name: entry.Name(), Size: info.Size()})
	}

	return files, nil
}

// Tokens enumerates the session directories under the storage root.
func (s *Store) Tokens() ([]string, error) {
	entries, err := os.ReadDir(s.root)
	if err != nil {
		return nil, &StorageError{Op: "readdir", Err: err}
	}

	tokens := make([]string, 0, len(entries))
	for _, entry := range entries {
		if entry.IsDir() {
			tokens = append(tokens, entry.Name())
		}
	}
	return tokens, nil
}

// ValidateFilename rejects client-supplied filenames that could escape the
// session directory or are otherwise malformed. Names are rejected outright,
// never rewritten.
func ValidateFilename(name string) error {
	if name == "" || len(name) > MaxFilenameLength {
		return ErrInvalidName
	}
	if strings.ContainsAny(name, "/\\\x00") {
		return ErrInvalidName
	}
	if name == "." || name == ".." {
		return ErrInvalidName
	}
	if filepath.IsAbs(name) {
		return ErrInvalidName
	}
	// Catch anything filepath would still resolve elsewhere.
	if filepath.Base(filepath.Clean(name)) != name {
		return ErrInvalidName
	}
	return nil
}
