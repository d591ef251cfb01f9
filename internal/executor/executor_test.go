package executor

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"testing"

	"github.com/specialistvlad/djangoconverge/internal/ctxlog"
	"github.com/specialistvlad/djangoconverge/internal/plan"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// recorder is a fake collaborator that records every call in order.
type recorder struct {
	calls     []string
	failOn    string
	unchanged bool
}

func (r *recorder) WriteFile(_ context.Context, path, content string) (bool, error) {
	call := "write " + path
	r.calls = append(r.calls, call)
	if call == r.failOn {
		return false, fmt.Errorf("%w: disk full", ErrFileWriteFailed)
	}
	return !r.unchanged, nil
}

func (r *recorder) Run(_ context.Context, argv []string, _ string, _ []string) error {
	call := "run " + strings.Join(argv, " ")
	r.calls = append(r.calls, call)
	if call == r.failOn {
		return fmt.Errorf("%w: exit status 1", ErrCommandFailed)
	}
	return nil
}

type observed struct {
	index int
	err   error
}

type observerFunc func(index int, res Result, err error)

func (f observerFunc) ActionFinished(_ context.Context, index int, res Result, err error) {
	f(index, res, err)
}

func testPlan() *plan.Plan {
	return &plan.Plan{
		Resource: "/test",
		Actions: []plan.Action{
			plan.WriteFile{Path: "/test/myapp/local_settings.py", Content: "DEBUG = False\n"},
			plan.RunCommand{Argv: []string{"manage.py", "collectstatic", "--noinput"}, Dir: "/test"},
			plan.RunCommand{Argv: []string{"manage.py", "migrate", "--noinput"}, Dir: "/test"},
		},
	}
}

func TestApplyRunsActionsInOrder(t *testing.T) {
	ctx := ctxlog.Discard(context.Background())
	r := &recorder{}
	var seen []observed

	report, err := New(r, r).Apply(ctx, testPlan(), observerFunc(func(i int, _ Result, err error) {
		seen = append(seen, observed{index: i, err: err})
	}))
	require.NoError(t, err)

	assert.Equal(t, []string{
		"write /test/myapp/local_settings.py",
		"run manage.py collectstatic --noinput",
		"run manage.py migrate --noinput",
	}, r.calls)
	require.Len(t, report.Results, 3)
	assert.True(t, report.Changed())
	assert.Equal(t, []observed{{index: 0}, {index: 1}, {index: 2}}, seen)
}

func TestApplyHaltsOnFirstFailure(t *testing.T) {
	ctx := ctxlog.Discard(context.Background())
	r := &recorder{failOn: "run manage.py collectstatic --noinput"}

	report, err := New(r, r).Apply(ctx, testPlan())
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrCommandFailed)

	var actionErr *ActionError
	require.True(t, errors.As(err, &actionErr))
	assert.Equal(t, 1, actionErr.Index)
	assert.Contains(t, err.Error(), "action 2 (run manage.py collectstatic --noinput)")

	// The write already happened and is kept; migrate never ran.
	assert.Equal(t, []string{
		"write /test/myapp/local_settings.py",
		"run manage.py collectstatic --noinput",
	}, r.calls)
	assert.Len(t, report.Results, 2)
}

func TestApplyFileWriteFailure(t *testing.T) {
	r := &recorder{failOn: "write /test/myapp/local_settings.py"}

	_, err := New(r, r).Apply(context.Background(), testPlan())
	require.ErrorIs(t, err, ErrFileWriteFailed)
	assert.Len(t, r.calls, 1)
}

func TestApplyUnchangedWrite(t *testing.T) {
	r := &recorder{unchanged: true}
	p := &plan.Plan{Resource: "/test", Actions: testPlan().Actions[:1]}

	report, err := New(r, r).Apply(context.Background(), p)
	require.NoError(t, err)
	assert.False(t, report.Changed())
}

func TestApplyDryRun(t *testing.T) {
	r := &recorder{}

	report, err := New(r, r, WithDryRun(true)).Apply(context.Background(), testPlan())
	require.NoError(t, err)
	assert.Empty(t, r.calls)
	require.Len(t, report.Results, 3)
	assert.True(t, report.Skipped())
	for _, res := range report.Results {
		assert.True(t, res.Skipped)
		assert.False(t, res.Changed)
	}
}

func TestApplyCancelledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	r := &recorder{}

	_, err := New(r, r).Apply(ctx, testPlan())
	require.ErrorIs(t, err, context.Canceled)
	assert.Empty(t, r.calls)
}

func TestApplyEmptyPlan(t *testing.T) {
	r := &recorder{}
	report, err := New(r, r).Apply(context.Background(), &plan.Plan{Resource: "/test"})
	require.NoError(t, err)
	assert.Empty(t, report.Results)
	assert.False(t, report.Changed())
	assert.False(t, report.Skipped())
}
