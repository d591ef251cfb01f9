package testutil

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"

	"github.com/specialistvlad/djangoconverge/internal/app"
	"github.com/specialistvlad/djangoconverge/internal/hcl"
	"github.com/stretchr/testify/require"
)

// RootPlaceholder is replaced with the fixture root in every file written by
// WriteFiles, so configuration can name application paths inside it.
const RootPlaceholder = "%ROOT%"

// SafeBuffer is a thread-safe buffer for capturing log output in tests.
type SafeBuffer struct {
	b  bytes.Buffer
	mu sync.Mutex
}

// Write implements the io.Writer interface for SafeBuffer.
func (b *SafeBuffer) Write(p []byte) (int, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.b.Write(p)
}

// String implements the fmt.Stringer interface for SafeBuffer.
func (b *SafeBuffer) String() string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.b.String()
}

// WriteFiles creates a temporary fixture tree from relative paths to file
// contents and returns its root.
func WriteFiles(t *testing.T, files map[string]string) string {
	t.Helper()
	root := t.TempDir()
	for name, content := range files {
		filePath := filepath.Join(root, filepath.FromSlash(name))
		require.NoError(t, os.MkdirAll(filepath.Dir(filePath), 0755))
		content = strings.ReplaceAll(content, RootPlaceholder, root)
		require.NoError(t, os.WriteFile(filePath, []byte(content), 0644))
	}
	return root
}

// HarnessResult holds the outcomes of an integration test setup.
type HarnessResult struct {
	Root     string
	Logs     *SafeBuffer
	Commands *RecordingCommands
	App      *app.App
	Err      error
}

// NewAppHarness writes files into a fixture tree, points an App at its
// "config" directory and records management commands instead of running them.
// Files are written for real. mutate, when non-nil, adjusts the config before
// the App is built.
func NewAppHarness(t *testing.T, files map[string]string, mutate func(*app.Config)) *HarnessResult {
	t.Helper()
	root := WriteFiles(t, files)

	cfg := app.Config{
		ConfigPaths: []string{filepath.Join(root, "config")},
		LogLevel:    "debug",
		LogFormat:   "text",
		WorkerCount: 4,
	}
	if mutate != nil {
		mutate(&cfg)
	}
	appConfig, err := app.NewConfig(cfg)
	require.NoError(t, err)

	res := &HarnessResult{
		Root:     root,
		Logs:     &SafeBuffer{},
		Commands: &RecordingCommands{},
	}
	res.App, res.Err = app.NewApp(context.Background(), res.Logs, appConfig, hcl.NewLoader(),
		app.WithCommandRunner(res.Commands))
	if res.App != nil {
		t.Cleanup(func() { _ = res.App.Close() })
	}
	if res.Err != nil && os.Getenv("DJANGOCONVERGE_TEST_LOGS") == "true" {
		t.Logf("--- HARNESS LOGS ---\n%s", res.Logs.String())
	}
	return res
}
