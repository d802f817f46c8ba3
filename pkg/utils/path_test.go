package utils

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// TestGetDataPathWalksUp tests finding the data directory from a sub-directory
func TestGetDataPathWalksUp(t *testing.T) {
	root := t.TempDir()
	require.NoError(t, os.MkdirAll(filepath.Join(root, "data"), 0755))
	sub := filepath.Join(root, "a", "b")
	require.NoError(t, os.MkdirAll(sub, 0755))

	t.Chdir(sub)

	got := GetDataPath("config.yaml")
	want := filepath.Join(root, "data", "config.yaml")

	// TempDir may sit behind a symlink, compare resolved paths
	gotDir, err := filepath.EvalSymlinks(filepath.Dir(got))
	require.NoError(t, err)
	wantDir, err := filepath.EvalSymlinks(filepath.Dir(want))
	require.NoError(t, err)
	assert.Equal(t, wantDir, gotDir)
	assert.Equal(t, "config.yaml", filepath.Base(got))
}

// TestGetAppDataPath tests the application data directory
func TestGetAppDataPath(t *testing.T) {
	home := t.TempDir()
	t.Setenv("APPDATA", "")
	t.Setenv("HOME", home)

	path, err := GetAppDataPath("logs")
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(home, ".local", "share", "vision-bridge", "logs"), path)

	info, err := os.Stat(filepath.Dir(path))
	require.NoError(t, err)
	assert.True(t, info.IsDir())
}
