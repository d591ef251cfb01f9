// Package plan turns the declared desired state of one Django application
// into an ordered list of idempotent actions.
//
// The order is fixed: write the local settings overlay, then collectstatic,
// syncdb and migrate. Each action is safe to re-run, so a failed run is
// simply converged again.
package plan

import (
	"context"
	"errors"
	"strings"

	"github.com/specialistvlad/djangoconverge/internal/ctxlog"
	"github.com/specialistvlad/djangoconverge/internal/discovery"
)

// ErrManageScriptNotFound is returned when a management command is requested
// but no manage.py path was configured or discovered.
var ErrManageScriptNotFound = errors.New("manage script not found")

// Action is a single step of a Plan: a WriteFile or a RunCommand.
type Action interface {
	// Kind names the action type ("write_file" or "run_command").
	Kind() string
	// String is a short human-readable description.
	String() string
	isAction()
}

// WriteFile overwrites Path with Content.
type WriteFile struct {
	Path    string
	Content string
}

func (WriteFile) Kind() string { return "write_file" }
func (w WriteFile) String() string { return "write " + w.Path }
func (WriteFile) isAction() {}

// RunCommand runs Argv in Dir. Env entries ("KEY=value") are added to the
// inherited environment.
type RunCommand struct {
	Argv []string
	Dir  string
	Env  []string
}

func (RunCommand) Kind() string { return "run_command" }
func (r RunCommand) String() string { return "run " + strings.Join(r.Argv, " ") }
func (RunCommand) isAction() {}

// Desired is the declared state of the management commands.
type Desired struct {
	Migrate       bool
	Syncdb        bool
	CollectStatic bool
}

// DefaultDesired returns the default desired state: collectstatic only.
func DefaultDesired() Desired {
	return Desired{CollectStatic: true}
}

// Input is everything Build needs for one application.
type Input struct {
	// Resource identifies the application, normally its root path.
	Resource string
	// Dir is the working directory for management commands.
	Dir string
	// Python, when set, is used to invoke the manage script.
	Python  string
	Desired Desired
	Paths   discovery.Paths
	// Overlay is the rendered local settings content; empty means none.
	Overlay string
}

// Plan is the ordered list of actions for one application.
type Plan struct {
	Resource string
	Actions  []Action
}

// Build computes the full plan for in. It either returns a complete plan or
// an error; it never returns a partial plan.
func Build(ctx context.Context, in Input) (*Plan, error) {
	logger := ctxlog.FromContext(ctx)
	p := &Plan{Resource: in.Resource}

	if in.Paths.LocalSettingsPath != "" && in.Overlay != "" {
		p.Actions = append(p.Actions, WriteFile{Path: in.Paths.LocalSettingsPath, Content: in.Overlay})
	}

	var subcommands []string
	if in.Desired.CollectStatic {
		subcommands = append(subcommands, "collectstatic")
	}
	if in.Desired.Syncdb {
		subcommands = append(subcommands, "syncdb")
	}
	if in.Desired.Migrate {
		subcommands = append(subcommands, "migrate")
	}

	if len(subcommands) > 0 && in.Paths.ManagePath == "" {
		return nil, ErrManageScriptNotFound
	}
	env := in.commandEnv()
	for _, sub := range subcommands {
		p.Actions = append(p.Actions, RunCommand{Argv: in.manageArgv(sub), Dir: in.Dir, Env: env})
	}

	logger.Debug("Plan built.", "resource", in.Resource, "actions", len(p.Actions))
	return p, nil
}

// SettingsModuleEnv is the variable Django reads the settings module from.
const SettingsModuleEnv = "DJANGO_SETTINGS_MODULE"

func (in Input) commandEnv() []string {
	if in.Paths.SettingsModule == "" {
		return nil
	}
	return []string{SettingsModuleEnv + "=" + in.Paths.SettingsModule}
}

func (in Input) manageArgv(subcommand string) []string {
	argv := make([]string, 0, 4)
	if in.Python != "" {
		argv = append(argv, in.Python)
	}
	return append(argv, in.Paths.ManagePath, subcommand, "--noinput")
}
