package config

import (
	"errors"
	"fmt"

	"github.com/specialistvlad/djangoconverge/internal/discovery"
	"github.com/specialistvlad/djangoconverge/internal/plan"
	"github.com/specialistvlad/djangoconverge/internal/settings"
)

// Model is the unified, format-agnostic representation of every declared
// application.
type Model struct {
	Applications []*Application
}

// Application is one declared Django deployment. Path is both the
// application root and the resource identifier.
type Application struct {
	Path string

	// Databases are the logical databases in declared order.
	Databases    []settings.Database
	Debug        bool
	AllowedHosts []string
	SecretKey    string

	Migrate       bool
	Syncdb        bool
	CollectStatic bool

	// Explicit overrides; empty values are discovered.
	ManagePath        string
	SettingsModule    string
	WsgiModule        string
	LocalSettingsPath string

	// Python runs the manage script when set.
	Python string
}

// NewApplication returns an Application at path with default desired state.
func NewApplication(path string) *Application {
	return &Application{Path: path, CollectStatic: plan.DefaultDesired().CollectStatic}
}

// SettingsOptions returns the renderer input for a.
func (a *Application) SettingsOptions() settings.Options {
	return settings.Options{
		Debug:        a.Debug,
		AllowedHosts: a.AllowedHosts,
		SecretKey:    a.SecretKey,
		Databases:    a.Databases,
	}
}

// Desired returns the declared management command state.
func (a *Application) Desired() plan.Desired {
	return plan.Desired{
		Migrate:       a.Migrate,
		Syncdb:        a.Syncdb,
		CollectStatic: a.CollectStatic,
	}
}

// Overrides returns the explicitly configured paths.
func (a *Application) Overrides() discovery.Overrides {
	return discovery.Overrides{
		ManagePath:        a.ManagePath,
		SettingsModule:    a.SettingsModule,
		WsgiModule:        a.WsgiModule,
		LocalSettingsPath: a.LocalSettingsPath,
	}
}

// Validate checks model-wide invariants.
func (m *Model) Validate() error {
	seen := make(map[string]struct{}, len(m.Applications))
	for _, app := range m.Applications {
		if app.Path == "" {
			return errors.New("application path must not be empty")
		}
		if _, dup := seen[app.Path]; dup {
			return fmt.Errorf("application %q is declared more than once", app.Path)
		}
		seen[app.Path] = struct{}{}

		names := make(map[string]struct{}, len(app.Databases))
		for _, db := range app.Databases {
			if _, dup := names[db.Name]; dup {
				return fmt.Errorf("application %q: database %q is declared more than once", app.Path, db.Name)
			}
			names[db.Name] = struct{}{}
		}
	}
	return nil
}

// Find returns the application declared at path, or nil.
func (m *Model) Find(path string) *Application {
	for _, app := range m.Applications {
		if app.Path == path {
			return app
		}
	}
	return nil
}
