package plan

import (
	"context"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/specialistvlad/djangoconverge/internal/discovery"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var hardwired = discovery.Paths{
	ManagePath:        "manage.py",
	SettingsModule:    "myapp.settings",
	WsgiModule:        "wsgi",
	LocalSettingsPath: "/test/myapp/local_settings.py",
}

const overlay = "# Generated by djangoconverge for application_django[/test]\n\nDEBUG = False\n\nDATABASES = {\"default\":{}}\n"

func manage(sub string) RunCommand {
	return RunCommand{
		Argv: []string{"manage.py", sub, "--noinput"},
		Dir:  "/test",
		Env:  []string{"DJANGO_SETTINGS_MODULE=myapp.settings"},
	}
}

func TestBuild(t *testing.T) {
	write := WriteFile{Path: "/test/myapp/local_settings.py", Content: overlay}

	testCases := []struct {
		name     string
		desired  Desired
		expected []Action
	}{
		{
			name:     "default settings",
			desired:  DefaultDesired(),
			expected: []Action{write, manage("collectstatic")},
		},
		{
			name:     "with syncdb",
			desired:  Desired{CollectStatic: true, Syncdb: true},
			expected: []Action{write, manage("collectstatic"), manage("syncdb")},
		},
		{
			name:     "with migrate",
			desired:  Desired{CollectStatic: true, Migrate: true},
			expected: []Action{write, manage("collectstatic"), manage("migrate")},
		},
		{
			name:     "syncdb before migrate",
			desired:  Desired{CollectStatic: true, Migrate: true, Syncdb: true},
			expected: []Action{write, manage("collectstatic"), manage("syncdb"), manage("migrate")},
		},
		{
			name:     "no commands",
			desired:  Desired{},
			expected: []Action{write},
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			p, err := Build(context.Background(), Input{
				Resource: "/test",
				Dir:      "/test",
				Desired:  tc.desired,
				Paths:    hardwired,
				Overlay:  overlay,
			})
			require.NoError(t, err)
			assert.Equal(t, "/test", p.Resource)
			if diff := cmp.Diff(tc.expected, p.Actions); diff != "" {
				t.Errorf("actions mismatch (-want +got):\n%s", diff)
			}
		})
	}
}

func TestBuildDefaultsHaveOneCommand(t *testing.T) {
	p, err := Build(context.Background(), Input{Dir: "/test", Desired: DefaultDesired(), Paths: hardwired, Overlay: overlay})
	require.NoError(t, err)

	var commands int
	for _, a := range p.Actions {
		if _, ok := a.(RunCommand); ok {
			commands++
		}
	}
	assert.Equal(t, 1, commands)
}

func TestBuildWithoutLocalSettings(t *testing.T) {
	paths := hardwired
	paths.SettingsModule = ""
	paths.LocalSettingsPath = ""

	p, err := Build(context.Background(), Input{Dir: "/test", Desired: DefaultDesired(), Paths: paths, Overlay: overlay})
	require.NoError(t, err)
	require.Len(t, p.Actions, 1)
	assert.Equal(t, "run_command", p.Actions[0].Kind())

	// No rendered content means nothing to write either.
	p, err = Build(context.Background(), Input{Dir: "/test", Desired: Desired{}, Paths: hardwired})
	require.NoError(t, err)
	assert.Empty(t, p.Actions)
}

func TestBuildCommandEnv(t *testing.T) {
	paths := hardwired
	paths.SettingsModule = "shop.conf.settings"

	p, err := Build(context.Background(), Input{Dir: "/test", Desired: Desired{Migrate: true}, Paths: paths})
	require.NoError(t, err)
	require.Len(t, p.Actions, 1)
	assert.Equal(t, []string{"DJANGO_SETTINGS_MODULE=shop.conf.settings"}, p.Actions[0].(RunCommand).Env)

	// Without a settings module Django falls back to what manage.py sets.
	paths.SettingsModule = ""
	p, err = Build(context.Background(), Input{Dir: "/test", Desired: Desired{Migrate: true}, Paths: paths})
	require.NoError(t, err)
	assert.Nil(t, p.Actions[0].(RunCommand).Env)
}

func TestBuildManageScriptNotFound(t *testing.T) {
	paths := hardwired
	paths.ManagePath = ""

	for _, desired := range []Desired{
		DefaultDesired(),
		{Syncdb: true},
		{Migrate: true},
	} {
		p, err := Build(context.Background(), Input{Dir: "/test", Desired: desired, Paths: paths, Overlay: overlay})
		require.ErrorIs(t, err, ErrManageScriptNotFound)
		assert.Nil(t, p)
	}

	// Writing the overlay alone does not need a manage script.
	p, err := Build(context.Background(), Input{Dir: "/test", Desired: Desired{}, Paths: paths, Overlay: overlay})
	require.NoError(t, err)
	assert.Len(t, p.Actions, 1)
}

func TestBuildWithPython(t *testing.T) {
	p, err := Build(context.Background(), Input{
		Dir:     "/srv/app",
		Python:  "/srv/app/.venv/bin/python",
		Desired: Desired{Migrate: true},
		Paths:   discovery.Paths{ManagePath: "/srv/app/manage.py"},
	})
	require.NoError(t, err)
	require.Len(t, p.Actions, 1)
	assert.Equal(t, RunCommand{
		Argv: []string{"/srv/app/.venv/bin/python", "/srv/app/manage.py", "migrate", "--noinput"},
		Dir:  "/srv/app",
	}, p.Actions[0])
	assert.Equal(t, "run /srv/app/.venv/bin/python /srv/app/manage.py migrate --noinput", p.Actions[0].String())
}

func TestView(t *testing.T) {
	p, err := Build(context.Background(), Input{Resource: "/test", Dir: "/test", Desired: DefaultDesired(), Paths: hardwired, Overlay: overlay})
	require.NoError(t, err)

	expected := View{
		Resource: "/test",
		Steps: []Step{
			{Type: "write_file", Path: "/test/myapp/local_settings.py", Content: overlay},
			{
				Type: "run_command",
				Argv: []string{"manage.py", "collectstatic", "--noinput"},
				Dir:  "/test",
				Env:  []string{"DJANGO_SETTINGS_MODULE=myapp.settings"},
			},
		},
	}
	if diff := cmp.Diff(expected, p.View()); diff != "" {
		t.Errorf("view mismatch (-want +got):\n%s", diff)
	}
}
