// Package localexecutor provides the in-process file system and command
// collaborators used by executor.Executor on the local host.
package localexecutor

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strings"

	"github.com/specialistvlad/djangoconverge/internal/ctxlog"
	"github.com/specialistvlad/djangoconverge/internal/executor"
)

// Files writes files on the local file system.
type Files struct {
	// Mode is the permission of newly written files; zero means 0644.
	Mode os.FileMode
}

// WriteFile writes content to path atomically via a temporary file in the
// same directory. Parent directories are created as needed. Writing content
// identical to what is already on disk is a no-op and reports unchanged.
func (f Files) WriteFile(ctx context.Context, path, content string) (bool, error) {
	existing, err := os.ReadFile(path)
	if err == nil && bytes.Equal(existing, []byte(content)) {
		ctxlog.FromContext(ctx).Debug("File already up to date.", "path", path)
		return false, nil
	}

	mode := f.Mode
	if mode == 0 {
		mode = 0o644
	}

	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return false, fmt.Errorf("%w: %s: %v", executor.ErrFileWriteFailed, path, err)
	}
	tmp, err := os.CreateTemp(dir, "."+filepath.Base(path)+".*")
	if err != nil {
		return false, fmt.Errorf("%w: %s: %v", executor.ErrFileWriteFailed, path, err)
	}
	defer os.Remove(tmp.Name())

	if _, err := tmp.WriteString(content); err != nil {
		tmp.Close()
		return false, fmt.Errorf("%w: %s: %v", executor.ErrFileWriteFailed, path, err)
	}
	if err := tmp.Chmod(mode); err != nil {
		tmp.Close()
		return false, fmt.Errorf("%w: %s: %v", executor.ErrFileWriteFailed, path, err)
	}
	if err := tmp.Close(); err != nil {
		return false, fmt.Errorf("%w: %s: %v", executor.ErrFileWriteFailed, path, err)
	}
	if err := os.Rename(tmp.Name(), path); err != nil {
		return false, fmt.Errorf("%w: %s: %v", executor.ErrFileWriteFailed, path, err)
	}
	return true, nil
}

// Commands runs commands with os/exec. Output is only logged.
type Commands struct{}

// Run runs argv in dir and waits for it to exit. env is appended to the
// inherited environment. A non-zero exit status or a failure to start is
// reported as executor.ErrCommandFailed.
func (Commands) Run(ctx context.Context, argv []string, dir string, env []string) error {
	if len(argv) == 0 {
		return fmt.Errorf("%w: empty argv", executor.ErrCommandFailed)
	}
	logger := ctxlog.FromContext(ctx)

	cmd := exec.CommandContext(ctx, argv[0], argv[1:]...)
	cmd.Dir = dir
	if len(env) > 0 {
		cmd.Env = append(os.Environ(), env...)
	}
	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	logger.Debug("Running command.", "argv", argv, "dir", dir, "env", env)
	err := cmd.Run()
	if out := strings.TrimSpace(stdout.String()); out != "" {
		logger.Debug("Command stdout.", "argv0", argv[0], "output", out)
	}
	if out := strings.TrimSpace(stderr.String()); out != "" {
		logger.Debug("Command stderr.", "argv0", argv[0], "output", out)
	}
	if err == nil {
		return nil
	}

	var exitErr *exec.ExitError
	if errors.As(err, &exitErr) {
		return fmt.Errorf("%w: %s exited with status %d", executor.ErrCommandFailed, strings.Join(argv, " "), exitErr.ExitCode())
	}
	return fmt.Errorf("%w: %s: %v", executor.ErrCommandFailed, strings.Join(argv, " "), err)
}
