package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func unsetAfter(t *testing.T, keys ...string) {
	t.Helper()

	for _, k := range keys {
		os.Unsetenv(k)
	}

	t.Cleanup(func() {
		for _, k := range keys {
			os.Unsetenv(k)
		}
	})
}

func TestLoadDotEnv(t *testing.T) {
	unsetAfter(t, "GDF_TEST_A", "GDF_TEST_B", "GDF_TEST_C")
	t.Setenv("GDF_TEST_PRESET", "from-env")

	path := filepath.Join(t.TempDir(), ".env")
	require.NoError(t, os.WriteFile(path, []byte(`
# comment
GDF_TEST_A=plain
GDF_TEST_B = "quoted value"
export GDF_TEST_C='single'
GDF_TEST_PRESET=from-file
not a pair
`), 0o600))

	set, err := LoadDotEnv(path)
	require.NoError(t, err)
	assert.ElementsMatch(t, []string{"GDF_TEST_A", "GDF_TEST_B", "GDF_TEST_C"}, set)

	assert.Equal(t, "plain", os.Getenv("GDF_TEST_A"))
	assert.Equal(t, "quoted value", os.Getenv("GDF_TEST_B"))
	assert.Equal(t, "single", os.Getenv("GDF_TEST_C"))
	assert.Equal(t, "from-env", os.Getenv("GDF_TEST_PRESET"))
}

func TestLoadDotEnv_MissingFile(t *testing.T) {
	set, err := LoadDotEnv(filepath.Join(t.TempDir(), ".env"))
	require.NoError(t, err)
	assert.Empty(t, set)
}
