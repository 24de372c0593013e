package utils

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSafeWrite(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "head")

	require.NoError(t, SafeWrite(path, []byte("first"), 0644))
	require.NoError(t, SafeWrite(path, []byte("second"), 0644))

	got, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, "second", string(got))

	info, err := os.Stat(path)
	require.NoError(t, err)
	assert.Equal(t, os.FileMode(0644), info.Mode().Perm())

	// No temp files left behind.
	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	assert.Len(t, entries, 1)
}

func TestSafeWriteMissingDir(t *testing.T) {
	err := SafeWrite(filepath.Join(t.TempDir(), "nope", "head"), []byte("x"), 0644)
	assert.Error(t, err)
}

func TestCreateExclusive(t *testing.T) {
	path := filepath.Join(t.TempDir(), "index")

	require.NoError(t, CreateExclusive(path, []byte("[]"), 0644))

	err := CreateExclusive(path, []byte("other"), 0644)
	assert.ErrorIs(t, err, os.ErrExist)

	got, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, "[]", string(got))
}

func TestMarshalJSON(t *testing.T) {
	data, err := MarshalJSON(map[string]string{"message": "a<b && c>d"})
	require.NoError(t, err)
	assert.Equal(t, `{"message":"a<b && c>d"}`, string(data))
}
