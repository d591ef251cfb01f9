package testutil

import (
	"os"
	"testing"

	"github.com/stretchr/testify/require"
)

// AssertFileContent checks that path exists and holds exactly want.
func AssertFileContent(t *testing.T, path, want string) {
	t.Helper()
	got, err := os.ReadFile(path)
	require.NoError(t, err, "expected file %s to exist", path)
	require.Equal(t, want, string(got), "unexpected content in %s", path)
}

// AssertNoFile checks that nothing exists at path.
func AssertNoFile(t *testing.T, path string) {
	t.Helper()
	_, err := os.Stat(path)
	require.True(t, os.IsNotExist(err), "expected %s not to exist, stat error: %v", path, err)
}
