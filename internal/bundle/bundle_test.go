package bundle

import (
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadMissingFileReturnsDefaults(t *testing.T) {
	store := NewFileStore(filepath.Join(t.TempDir(), "config.json"))

	b, err := store.Load()
	require.NoError(t, err)
	assert.Empty(t, b.DefaultAddons)
	assert.Equal(t, "http://127.0.0.1:11470", b.DefaultStreamingServerURL)
}

func TestLoadExistingFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.json")
	payload := `{
		"defaultAddons": [{"transportUrl": "https://addon.example/manifest.json"}],
		"defaultStreamingServerUrl": "http://stream.example:11470"
	}`
	require.NoError(t, os.WriteFile(path, []byte(payload), 0o644))

	b, err := NewFileStore(path).Load()
	require.NoError(t, err)
	assert.Len(t, b.DefaultAddons, 1)
	assert.Equal(t, "http://stream.example:11470", b.DefaultStreamingServerURL)
}

func TestLoadMalformedFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.json")
	require.NoError(t, os.WriteFile(path, []byte("{not json"), 0o644))

	_, err := NewFileStore(path).Load()
	assert.Error(t, err)
}

func TestSaveRoundtrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "config.json")
	store := NewFileStore(path)

	saved := Bundle{
		DefaultAddons:             []json.RawMessage{json.RawMessage(`{"id":"a"}`)},
		DefaultStreamingServerURL: "http://stream.example:11470",
	}
	require.NoError(t, store.Save(saved))

	// Cached copy and a fresh store both see the new bundle.
	b, err := store.Load()
	require.NoError(t, err)
	assert.Equal(t, "http://stream.example:11470", b.DefaultStreamingServerURL)

	b, err = NewFileStore(path).Load()
	require.NoError(t, err)
	assert.Len(t, b.DefaultAddons, 1)
}

func TestSaveNilAddonsBecomesEmptyList(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.json")
	store := NewFileStore(path)

	require.NoError(t, store.Save(Bundle{DefaultStreamingServerURL: "http://x"}))

	raw, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(raw), `"defaultAddons": []`)
}
