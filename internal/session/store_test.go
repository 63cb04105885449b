package session

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setupTestStore(t *testing.T) *Store {
	t.Helper()
	store, err := NewStore(t.TempDir())
	require.NoError(t, err)
	return store
}

func TestNewStore(t *testing.T) {
	t.Run("creates missing root", func(t *testing.T) {
		root := filepath.Join(t.TempDir(), "nested", "uploads")
		store, err := NewStore(root)
		require.NoError(t, err)
		assert.Equal(t, root, store.Root())

		info, err := os.Stat(root)
		require.NoError(t, err)
		assert.True(t, info.IsDir())
	})

	t.Run("fails when root is a file", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "occupied")
		require.NoError(t, os.WriteFile(path, []byte("x"), 0644))

		store, err := NewStore(path)
		assert.Error(t, err)
		assert.True(t, IsStorageFault(err))
		assert.Nil(t, store)
	})
}

func TestStore_Resolve(t *testing.T) {
	store := setupTestStore(t)
	token := "0f8fad5b-d9cb-469f-a165-70867728950e"
	assert.Equal(t, filepath.Join(store.Root(), token), store.Resolve(token))
	// Deterministic, no side effects.
	assert.Equal(t, store.Resolve(token), store.Resolve(token))
}

func TestStore_CreateDir(t *testing.T) {
	store := setupTestStore(t)
	token := "11111111-1111-1111-1111-111111111111"

	require.NoError(t, store.CreateDir(token))
	assert.True(t, store.Exists(token))

	// Idempotent
	require.NoError(t, store.CreateDir(token))
}

func TestStore_SaveFile(t *testing.T) {
	store := setupTestStore(t)
	token := "22222222-2222-2222-2222-222222222222"
	require.NoError(t, store.CreateDir(token))

	tests := []struct {
		name    string
		file    string
		content string
		limit   int64
		wantErr error
	}{
		{name: "simple file", file: "report.pdf", content: "hello world", limit: 1024},
		{name: "exactly at limit", file: "edge.bin", content: "12345678", limit: 8},
		{name: "one byte over limit", file: "big.bin", content: "123456789", limit: 8, wantErr: ErrPayloadTooLarge},
		{name: "empty file", file: "empty.txt", content: "", limit: 1024},
		{name: "escaping name", file: "../../etc/passwd", content: "x", limit: 1024, wantErr: ErrInvalidName},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			size, err := store.SaveFile(token, tt.file, strings.NewReader(tt.content), tt.limit)

			if tt.wantErr != nil {
				assert.ErrorIs(t, err, tt.wantErr)
				return
			}

			require.NoError(t, err)
			assert.Equal(t, int64(len(tt.content)), size)

			data, err := os.ReadFile(filepath.Join(store.Resolve(token), tt.file))
			require.NoError(t, err)
			assert.Equal(t, tt.content, string(data))
		})
	}

	t.Run("no partial file left after oversize", func(t *testing.T) {
		_, err := store.SaveFile(token, "partial.bin", strings.NewReader("too much data"), 4)
		assert.ErrorIs(t, err, ErrPayloadTooLarge)

		entries, err := os.ReadDir(store.Resolve(token))
		require.NoError(t, err)
		for _, e := range entries {
			assert.NotEqual(t, "partial.bin", e.Name())
			assert.False(t, strings.HasPrefix(e.Name(), ".tmp."), "temp file %s left behind", e.Name())
		}
	})

	t.Run("same name overwrites", func(t *testing.T) {
		_, err := store.SaveFile(token, "dup.txt", strings.NewReader("first"), 1024)
		require.NoError(t, err)
		size, err := store.SaveFile(token, "dup.txt", strings.NewReader("second!"), 1024)
		require.NoError(t, err)
		assert.Equal(t, int64(7), size)

		data, err := os.ReadFile(filepath.Join(store.Resolve(token), "dup.txt"))
		require.NoError(t, err)
		assert.Equal(t, "second!", string(data))
	})
}

func TestStore_TouchAndAge(t *testing.T) {
	store := setupTestStore(t)
	token := "33333333-3333-3333-3333-333333333333"
	require.NoError(t, store.CreateDir(token))

	// Backdate the directory, then verify Touch moves the clock forward.
	old := time.Now().Add(-time.Hour)
	require.NoError(t, os.Chtimes(store.Resolve(token), old, old))

	age, err := store.Age(token)
	require.NoError(t, err)
	assert.Greater(t, age, 59*time.Minute)

	require.NoError(t, store.Touch(token))

	age, err = store.Age(token)
	require.NoError(t, err)
	assert.Less(t, age, time.Minute)
}

func TestStore_Age_NotFound(t *testing.T) {
	store := setupTestStore(t)
	_, err := store.Age("44444444-4444-4444-4444-444444444444")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestStore_RemoveDir(t *testing.T) {
	store := setupTestStore(t)
	token := "55555555-5555-5555-5555-555555555555"
	require.NoError(t, store.CreateDir(token))
	_, err := store.SaveFile(token, "a.txt", strings.NewReader("content"), 1024)
	require.NoError(t, err)

	require.NoError(t, store.RemoveDir(token))
	assert.False(t, store.Exists(token))

	// Removing an absent directory is a no-op, not an error.
	require.NoError(t, store.RemoveDir(token))
}

func TestStore_ScanFiles(t *testing.T) {
	store := setupTestStore(t)
	token := "66666666-6666-6666-6666-666666666666"
	require.NoError(t, store.CreateDir(token))

	_, err := store.SaveFile(token, "a.txt", strings.NewReader("aaa"), 1024)
	require.NoError(t, err)
	_, err = store.SaveFile(token, "b.txt", strings.NewReader("bbbbb"), 1024)
	require.NoError(t, err)

	// Subdirectories are not files and must not be listed.
	require.NoError(t, os.Mkdir(filepath.Join(store.Resolve(token), "subdir"), 0755))

	files, err := store.ScanFiles(token)
	require.NoError(t, err)
	assert.ElementsMatch(t, []FileEntry{
		{Name: "a.txt", Size: 3},
		{Name: "b.txt", Size: 5},
	}, files)

	_, err = store.ScanFiles("77777777-7777-7777-7777-777777777777")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestStore_Tokens(t *testing.T) {
	store := setupTestStore(t)
	require.NoError(t, store.CreateDir("88888888-8888-8888-8888-888888888888"))
	require.NoError(t, store.CreateDir("99999999-9999-9999-9999-999999999999"))

	// Stray files under the root are not sessions.
	require.NoError(t, os.WriteFile(filepath.Join(store.Root(), "stray.txt"), []byte("x"), 0644))

	tokens, err := store.Tokens()
	require.NoError(t, err)
	assert.ElementsMatch(t, []string{
		"88888888-8888-8888-8888-888888888888",
		"99999999-9999-9999-9999-999999999999",
	}, tokens)
}

func TestValidateFilename(t *testing.T) {
	tests := []struct {
		name    string
		file    string
		wantErr bool
	}{
		{name: "plain name", file: "report.pdf"},
		{name: "spaces and unicode", file: "my photo ☀.jpg"},
		{name: "dotfile", file: ".gitignore"},
		{name: "empty", file: "", wantErr: true},
		{name: "parent traversal", file: "../../etc/passwd", wantErr: true},
		{name: "single parent", file: "..", wantErr: true},
		{name: "current dir", file: ".", wantErr: true},
		{name: "forward slash", file: "a/b.txt", wantErr: true},
		{name: "backslash", file: `a\b.txt`, wantErr: true},
		{name: "absolute", file: "/etc/passwd", wantErr: true},
		{name: "nul byte", file: "a\x00b", wantErr: true},
		{name: "too long", file: strings.Repeat("a", 256), wantErr: true},
		{name: "max length ok", file: strings.Repeat("a", 255)},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidateFilename(tt.file)
			if tt.wantErr {
				assert.ErrorIs(t, err, ErrInvalidName)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}
