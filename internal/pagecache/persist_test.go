package pagecache

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// Testable property: Serialize followed by Deserialize round-trips a
// PageList exactly.
func TestSerializeDeserialize_RoundTrip(t *testing.T) {
	pl := NewPageList()
	pl.SetPageLoadedStatus(0, 100, Loaded, false)
	pl.SetPageLoadedStatus(100, 50, Modified, false)

	var buf bytes.Buffer
	require.NoError(t, Serialize(&buf, pl, 42))

	got, ok, err := Deserialize(&buf, 42)
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, pl.Pages(), got.Pages())
}

func TestDeserialize_InodeMismatchReportsNotOK(t *testing.T) {
	pl := NewPageListFromSize(10, true, false)
	var buf bytes.Buffer
	require.NoError(t, Serialize(&buf, pl, 1))

	_, ok, err := Deserialize(&buf, 2)
	require.NoError(t, err)
	assert.False(t, ok)
}

// The legacy header carries only the total size, no inode, so the
// inode check is skipped regardless of wantInode.
func TestDeserialize_LegacyHeaderlessFormat(t *testing.T) {
	legacy := "150\n0:100:1:0\n100:50:0:1\n"
	got, ok, err := Deserialize(bytes.NewBufferString(legacy), 99)
	require.NoError(t, err)
	require.True(t, ok)
	require.Len(t, got.Pages(), 2)
	assert.Equal(t, Page{Offset: 0, Bytes: 100, Loaded: true, Modified: false}, got.Pages()[0])
	assert.Equal(t, Page{Offset: 100, Bytes: 50, Loaded: false, Modified: true}, got.Pages()[1])
}

func TestDeserialize_SizeMismatchReportsNotOK(t *testing.T) {
	corrupt := "7:200\n0:100:1:0\n"
	_, ok, err := Deserialize(bytes.NewBufferString(corrupt), 7)
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestSaveAndLoadFromFile(t *testing.T) {
	dir := t.TempDir()
	cachePath := filepath.Join(dir, "obj.cache")
	require.NoError(t, os.WriteFile(cachePath, []byte("data"), 0o644))

	pl := NewPageListFromSize(4, true, false)
	require.NoError(t, SaveToFile(cachePath, pl, 7))

	got, ok, err := LoadFromFile(cachePath, 7)
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, pl.Pages(), got.Pages())

	require.NoError(t, RemoveStatFile(cachePath))
	_, ok, err = LoadFromFile(cachePath, 7)
	require.NoError(t, err)
	assert.False(t, ok)
}
