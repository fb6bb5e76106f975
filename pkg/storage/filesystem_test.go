package storage

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLocalStorageSaveReadDelete(t *testing.T) {
	s, err := NewLocalStorage(t.TempDir())
	require.NoError(t, err)

	require.NoError(t, s.Save("student/a.json", []byte(`{"v":1}`)))
	require.NoError(t, s.Save("student/a.json", []byte(`{"v":2}`)))

	data, err := s.Read("student/a.json")
	require.NoError(t, err)
	assert.Equal(t, `{"v":2}`, string(data))

	entries, err := os.ReadDir(filepath.Dir(s.Path("student/a.json")))
	require.NoError(t, err)
	assert.Len(t, entries, 1, "temp files must not linger")

	require.NoError(t, s.Delete("student/a.json"))
	require.NoError(t, s.Delete("student/a.json"))
	_, err = s.Read("student/a.json")
	assert.True(t, errors.Is(err, ErrNotExist))
}

func TestLocalStorageStaysInsideBaseDir(t *testing.T) {
	base := t.TempDir()
	s, err := NewLocalStorage(base)
	require.NoError(t, err)

	require.NoError(t, s.Save("../../escape.json", []byte("x")))
	assert.Equal(t, filepath.Join(base, "escape.json"), s.Path("../../escape.json"))

	assert.Error(t, s.Save("", []byte("x")))
}
