package session

import "time"

// FileEntry describes one uploaded file inside a session.
// Name is the client-supplied filename, used verbatim on disk once validated.
type FileEntry struct {
	Name string `json:"name"`
	Size int64  `json:"size"`
}

// Session is an ephemeral token-scoped bucket of uploaded files.
// The directory's modification time, not a struct field, is the
// authoritative last-activity clock.
type Session struct {
	Token     string      `json:"token"`
	Files     []FileEntry `json:"files"`
	CreatedAt time.Time   `json:"created_at"`
}
