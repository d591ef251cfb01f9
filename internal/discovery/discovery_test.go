package discovery

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/specialistvlad/djangoconverge/internal/ctxlog"
	"github.com/specialistvlad/djangoconverge/internal/fsutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeFinder returns canned matches per file name and records lookups.
type fakeFinder struct {
	files map[string][]string
	err   error
	calls []string
}

func (f *fakeFinder) FindFilesByName(root, name string) ([]string, error) {
	f.calls = append(f.calls, name)
	if f.err != nil {
		return nil, f.err
	}
	return f.files[name], nil
}

func TestFindFileIgnoresEnumerationOrder(t *testing.T) {
	testCases := []struct {
		name     string
		files    []string
		expected string
		found    bool
	}{
		{name: "no matching files", files: nil, found: false},
		{name: "one matching file", files: []string{"/test/myfile.py"}, expected: "/test/myfile.py", found: true},
		{name: "two matching files", files: []string{"/test/myfile.py", "/test/sub/myfile.py"}, expected: "/test/myfile.py", found: true},
		{name: "two matching files in a different order", files: []string{"/test/sub/myfile.py", "/test/myfile.py"}, expected: "/test/myfile.py", found: true},
		{name: "two matching files on the same level", files: []string{"/test/b/myfile.py", "/test/a/myfile.py"}, expected: "/test/a/myfile.py", found: true},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			f := &fakeFinder{files: map[string][]string{"myfile.py": tc.files}}
			p, ok, err := FindFile(f, "/test", "myfile.py")
			require.NoError(t, err)
			assert.Equal(t, tc.found, ok)
			assert.Equal(t, tc.expected, p)
		})
	}
}

func TestDefaultManagePath(t *testing.T) {
	f := &fakeFinder{files: map[string][]string{ManageFile: {"/test/manage.py"}}}
	p, err := DefaultManagePath(f, "/test")
	require.NoError(t, err)
	assert.Equal(t, "/test/manage.py", p)

	p, err = DefaultManagePath(&fakeFinder{}, "/test")
	require.NoError(t, err)
	assert.Empty(t, p)
}

func TestDefaultSettingsModule(t *testing.T) {
	testCases := []struct {
		name     string
		files    []string
		expected string
	}{
		{name: "with no settings.py", files: nil, expected: ""},
		{name: "with simple settings.py", files: []string{"/test/myapp/settings.py"}, expected: "myapp.settings"},
		{name: "nested package", files: []string{"/test/src/proj/conf/settings.py"}, expected: "src.proj.conf.settings"},
		{name: "top level", files: []string{"/test/settings.py"}, expected: "settings"},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			f := &fakeFinder{files: map[string][]string{SettingsFile: tc.files}}
			mod, err := DefaultSettingsModule(f, "/test")
			require.NoError(t, err)
			assert.Equal(t, tc.expected, mod)
		})
	}
}

func TestDefaultLocalSettingsPath(t *testing.T) {
	assert.Empty(t, DefaultLocalSettingsPath("/test", ""))
	assert.Equal(t, filepath.FromSlash("/test/myapp/local_settings.py"), DefaultLocalSettingsPath("/test", "myapp.settings"))
	assert.Equal(t, filepath.FromSlash("/test/local_settings.py"), DefaultLocalSettingsPath("/test", "settings"))
	assert.Equal(t, filepath.FromSlash("/test/a/b/local_settings.py"), DefaultLocalSettingsPath("/test", "a.b.production"))
}

func TestDefaultWsgiModule(t *testing.T) {
	mod, err := DefaultWsgiModule(&fakeFinder{}, "/test")
	require.NoError(t, err)
	assert.Empty(t, mod)

	f := &fakeFinder{files: map[string][]string{WsgiFile: {"/test/myapp/wsgi.py", "/test/wsgi.py"}}}
	mod, err = DefaultWsgiModule(f, "/test")
	require.NoError(t, err)
	assert.Equal(t, "wsgi", mod)
}

func TestResolveOnlySearchesForMissingValues(t *testing.T) {
	ctx := ctxlog.Discard(context.Background())
	f := &fakeFinder{files: map[string][]string{
		ManageFile:   {"/test/manage.py"},
		SettingsFile: {"/test/other/settings.py"},
		WsgiFile:     {"/test/wsgi.py"},
	}}

	paths, err := Resolve(ctx, f, "/test", Overrides{
		ManagePath:     "manage.py",
		SettingsModule: "myapp.settings",
		WsgiModule:     "wsgi",
	})
	require.NoError(t, err)
	assert.Empty(t, f.calls)
	assert.Equal(t, Paths{
		ManagePath:        filepath.FromSlash("/test/manage.py"),
		SettingsModule:    "myapp.settings",
		WsgiModule:        "wsgi",
		LocalSettingsPath: filepath.FromSlash("/test/myapp/local_settings.py"),
	}, paths)
}

func TestResolveDiscoversEverything(t *testing.T) {
	ctx := ctxlog.Discard(context.Background())
	f := &fakeFinder{files: map[string][]string{
		ManageFile:   {"/test/manage.py"},
		SettingsFile: {"/test/myapp/settings.py"},
		WsgiFile:     {"/test/myapp/wsgi.py"},
	}}

	paths, err := Resolve(ctx, f, "/test", Overrides{})
	require.NoError(t, err)
	assert.Equal(t, []string{ManageFile, SettingsFile, WsgiFile}, f.calls)
	assert.Equal(t, "/test/manage.py", paths.ManagePath)
	assert.Equal(t, "myapp.settings", paths.SettingsModule)
	assert.Equal(t, "wsgi", paths.WsgiModule)
	assert.Equal(t, filepath.FromSlash("/test/myapp/local_settings.py"), paths.LocalSettingsPath)
}

func TestResolveExplicitLocalSettingsPath(t *testing.T) {
	paths, err := Resolve(context.Background(), &fakeFinder{}, "/test", Overrides{LocalSettingsPath: "/etc/app/local.py"})
	require.NoError(t, err)
	assert.Equal(t, "/etc/app/local.py", paths.LocalSettingsPath)
	assert.Empty(t, paths.ManagePath)
	assert.Empty(t, paths.SettingsModule)
}

func TestResolveRootsRelativePaths(t *testing.T) {
	testCases := []struct {
		name      string
		overrides Overrides
		expected  Paths
	}{
		{
			name:      "relative manage path",
			overrides: Overrides{ManagePath: "manage.py"},
			expected:  Paths{ManagePath: filepath.FromSlash("/test/manage.py")},
		},
		{
			name:      "nested manage path",
			overrides: Overrides{ManagePath: "src/manage.py"},
			expected:  Paths{ManagePath: filepath.FromSlash("/test/src/manage.py")},
		},
		{
			name:      "relative local settings path",
			overrides: Overrides{LocalSettingsPath: "conf/local.py"},
			expected:  Paths{LocalSettingsPath: filepath.FromSlash("/test/conf/local.py")},
		},
		{
			name:      "absolute paths kept",
			overrides: Overrides{ManagePath: "/opt/manage.py", LocalSettingsPath: "/etc/app/local.py"},
			expected:  Paths{ManagePath: "/opt/manage.py", LocalSettingsPath: "/etc/app/local.py"},
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			paths, err := Resolve(context.Background(), &fakeFinder{}, "/test", tc.overrides)
			require.NoError(t, err)
			assert.Equal(t, tc.expected, paths)
		})
	}
}

func TestResolveNothingFound(t *testing.T) {
	paths, err := Resolve(context.Background(), &fakeFinder{}, "/test", Overrides{})
	require.NoError(t, err)
	assert.Equal(t, Paths{}, paths)
}

func TestResolveFinderError(t *testing.T) {
	boom := errors.New("permission denied")
	_, err := Resolve(context.Background(), &fakeFinder{err: boom}, "/test", Overrides{})
	require.Error(t, err)
	assert.ErrorIs(t, err, boom)
}

func TestResolveOnRealTree(t *testing.T) {
	root := t.TempDir()
	for _, f := range []string{"manage.py", "myapp/settings.py", "myapp/wsgi.py", "myapp/tests/settings.py"} {
		p := filepath.Join(root, f)
		require.NoError(t, os.MkdirAll(filepath.Dir(p), 0755))
		require.NoError(t, os.WriteFile(p, nil, 0644))
	}

	paths, err := Resolve(context.Background(), fsutil.WalkFinder{}, root, Overrides{})
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(root, "manage.py"), paths.ManagePath)
	assert.Equal(t, "myapp.settings", paths.SettingsModule)
	assert.Equal(t, "wsgi", paths.WsgiModule)
	assert.Equal(t, filepath.Join(root, "myapp", "local_settings.py"), paths.LocalSettingsPath)
}
