package filex

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEnsureParentDir_CreatesNestedDirs(t *testing.T) {
	root := t.TempDir()
	path := filepath.Join(root, "data", "worker", "store.db")

	require.NoError(t, EnsureParentDir(path))

	info, err := os.Stat(filepath.Dir(path))
	require.NoError(t, err)
	assert.True(t, info.IsDir())

	require.NoError(t, EnsureParentDir(path), "second call is a no-op")
}

func TestEnsureParentDir_SkipsBareNames(t *testing.T) {
	assert.NoError(t, EnsureParentDir("store.db"))
	assert.NoError(t, EnsureParentDir(":memory:"))
	assert.NoError(t, EnsureParentDir(""))
}
