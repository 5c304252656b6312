package filex

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEnsureSubDir_UnderBase(t *testing.T) {
	tmp := t.TempDir()

	got, err := EnsureSubDir(tmp, "exports")
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(tmp, "exports"), got)

	fi, err := os.Stat(got)
	require.NoError(t, err)
	assert.True(t, fi.IsDir())

	again, err := EnsureSubDir(tmp, "exports")
	require.NoError(t, err, "existing directory is fine")
	assert.Equal(t, got, again)
}

func TestEnsureSubDir_DefaultsToWorkingDir(t *testing.T) {
	tmp := t.TempDir()
	t.Chdir(tmp)

	got, err := EnsureSubDir("", "exports")
	require.NoError(t, err)

	want, err := filepath.EvalSymlinks(filepath.Join(tmp, "exports"))
	require.NoError(t, err)
	gotReal, err := filepath.EvalSymlinks(got)
	require.NoError(t, err)
	assert.Equal(t, want, gotReal)
}

func TestEnsureSubDir_BlockedByFile(t *testing.T) {
	tmp := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(tmp, "exports"), []byte("x"), 0o600))

	_, err := EnsureSubDir(tmp, "exports")
	require.ErrorContains(t, err, "mkdir")
}

func TestEnsureSubDir_AbsoluteName(t *testing.T) {
	want := filepath.Join(t.TempDir(), "abs")

	got, err := EnsureSubDir("/ignored", want)
	require.NoError(t, err)
	assert.Equal(t, want, got)
}
