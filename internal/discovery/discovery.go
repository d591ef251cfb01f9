// Package discovery derives the paths a Django deployment needs (manage
// script, settings module, local settings overlay, WSGI module) from an
// application tree, unless they are configured explicitly.
package discovery

import (
	"context"
	"fmt"
	"path/filepath"
	"strings"

	"github.com/specialistvlad/djangoconverge/internal/ctxlog"
	"github.com/specialistvlad/djangoconverge/internal/fsutil"
)

// Well-known file names searched for under the application root.
const (
	ManageFile        = "manage.py"
	SettingsFile      = "settings.py"
	WsgiFile          = "wsgi.py"
	LocalSettingsName = "local_settings"
)

// Finder lists every file named name under root, in any order.
type Finder interface {
	FindFilesByName(root, name string) ([]string, error)
}

// Paths is the resolved set of deployment paths. An empty field means the
// value is unknown.
type Paths struct {
	ManagePath        string
	SettingsModule    string
	WsgiModule        string
	LocalSettingsPath string
}

// Overrides holds explicitly configured values. Empty fields are discovered.
type Overrides Paths

// FindFile returns the canonical match for name under root.
func FindFile(f Finder, root, name string) (string, bool, error) {
	matches, err := f.FindFilesByName(root, name)
	if err != nil {
		return "", false, fmt.Errorf("searching %s for %s: %w", root, name, err)
	}
	p, ok := fsutil.Canonical(matches)
	return p, ok, nil
}

// DefaultManagePath is the canonical manage.py under root, or "".
func DefaultManagePath(f Finder, root string) (string, error) {
	p, _, err := FindFile(f, root, ManageFile)
	return p, err
}

// DefaultSettingsModule converts the canonical settings.py under root into a
// dotted module path ("myapp/settings.py" becomes "myapp.settings"), or "".
func DefaultSettingsModule(f Finder, root string) (string, error) {
	p, ok, err := FindFile(f, root, SettingsFile)
	if err != nil || !ok {
		return "", err
	}
	rel, err := filepath.Rel(root, p)
	if err != nil {
		return "", fmt.Errorf("settings file %s is not under %s: %w", p, root, err)
	}
	rel = strings.TrimSuffix(filepath.ToSlash(rel), ".py")
	return strings.ReplaceAll(rel, "/", "."), nil
}

// DefaultLocalSettingsPath swaps the last component of settingsModule for
// local_settings and maps it back to a file under root. It does not search
// the file system. An empty module yields "".
func DefaultLocalSettingsPath(root, settingsModule string) string {
	if settingsModule == "" {
		return ""
	}
	parts := strings.Split(settingsModule, ".")
	parts[len(parts)-1] = LocalSettingsName
	return filepath.Join(root, filepath.Join(parts...)+".py")
}

// DefaultWsgiModule is the stem of the canonical wsgi.py ("wsgi"), not a
// dotted path, or "".
func DefaultWsgiModule(f Finder, root string) (string, error) {
	p, ok, err := FindFile(f, root, WsgiFile)
	if err != nil || !ok {
		return "", err
	}
	return strings.TrimSuffix(filepath.Base(p), filepath.Ext(p)), nil
}

// Resolve fills every field of o that is empty from the application tree at
// root. The local settings path is derived from the resolved settings
// module, never searched for. Relative manage and local settings paths are
// taken relative to root.
func Resolve(ctx context.Context, f Finder, root string, o Overrides) (Paths, error) {
	logger := ctxlog.FromContext(ctx)
	paths := Paths(o)
	var err error

	if paths.ManagePath == "" {
		if paths.ManagePath, err = DefaultManagePath(f, root); err != nil {
			return Paths{}, err
		}
		logger.Debug("Manage script discovered.", "path", paths.ManagePath)
	}
	if paths.SettingsModule == "" {
		if paths.SettingsModule, err = DefaultSettingsModule(f, root); err != nil {
			return Paths{}, err
		}
		logger.Debug("Settings module discovered.", "module", paths.SettingsModule)
	}
	if paths.WsgiModule == "" {
		if paths.WsgiModule, err = DefaultWsgiModule(f, root); err != nil {
			return Paths{}, err
		}
		logger.Debug("WSGI module discovered.", "module", paths.WsgiModule)
	}
	if paths.LocalSettingsPath == "" {
		paths.LocalSettingsPath = DefaultLocalSettingsPath(root, paths.SettingsModule)
	}
	paths.ManagePath = underRoot(root, paths.ManagePath)
	paths.LocalSettingsPath = underRoot(root, paths.LocalSettingsPath)

	logger.Debug("Deployment paths resolved.",
		"manage_path", paths.ManagePath,
		"settings_module", paths.SettingsModule,
		"wsgi_module", paths.WsgiModule,
		"local_settings_path", paths.LocalSettingsPath,
	)
	return paths, nil
}

func underRoot(root, p string) string {
	if p == "" || filepath.IsAbs(p) {
		return p
	}
	return filepath.Join(root, p)
}
