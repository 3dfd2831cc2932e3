package kata

import (
	"bytes"
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/katalab/kata-runner/exercises"
	"github.com/katalab/kata-runner/registry"
	"github.com/katalab/kata-runner/reporting"
	"github.com/katalab/kata-runner/runner"
	"github.com/katalab/kata-runner/types"
)

var errBoom = errors.New("boom")

// testConfig returns a run-once config that keeps the service on ephemeral ports
func testConfig() *Config {
	return &Config{
		Reporter: reporting.FormatSpec,
		Slow:     reporting.DefaultSlow,
		RunOnce:  true,
		Service:  serviceConfigForTest(),
		Log:      testLogger(),
	}
}

// newTestRegistry returns a registry with the bundled exercises and extra
func newTestRegistry(t *testing.T, extra ...registry.Exercise) *registry.Registry {
	t.Helper()
	reg, err := registry.NewRegistry(registry.Config{Log: testLogger()})
	require.NoError(t, err)
	require.NoError(t, exercises.Register(reg))
	require.NoError(t, reg.Register(extra...))
	return reg
}

var broken = registry.Exercise{
	ID:    "broken",
	Title: "broken",
	Define: func(s *types.Suite) {
		nested := s.AddSuite("nested")
		nested.AddTest("fails first", types.Func(func() error { return errBoom }))
		nested.AddTest("fails second", types.Func(func() error { return errBoom }))
		s.AddTest("passes", types.Func(func() error { return nil }))
	},
}

func TestDefaultExecutor_Execute(t *testing.T) {
	cfg := testConfig()
	cfg.Exercises = []string{"hello-world"}

	var buf bytes.Buffer
	executor := NewDefaultExecutor(newTestRegistry(t), cfg, &buf, reporting.NewSpecReporter(0))
	report, err := executor.Execute(context.Background())
	require.NoError(t, err)
	require.NotNil(t, report)

	assert.True(t, report.Passed())
	assert.Equal(t, 2, report.Stats.Tests)
	assert.Equal(t, 2, report.Stats.Passes)
	assert.NotEmpty(t, report.RunID)
	assert.Contains(t, buf.String(), "hello world")
	assert.Contains(t, buf.String(), "✓ greets by name")
	assert.Contains(t, buf.String(), "2 passing")
}

func TestDefaultExecutor_Failures(t *testing.T) {
	cfg := testConfig()
	cfg.Exercises = []string{"broken"}

	executor := NewDefaultExecutor(newTestRegistry(t, broken), cfg, &bytes.Buffer{})
	report, err := executor.Execute(context.Background())
	require.NoError(t, err)
	assert.False(t, report.Passed())
	assert.Equal(t, 2, report.Stats.Failures)
	assert.Equal(t, 1, report.Stats.Passes)
}

func TestDefaultExecutor_Bail(t *testing.T) {
	cfg := testConfig()
	cfg.Exercises = []string{"broken"}
	cfg.Bail = true

	executor := NewDefaultExecutor(newTestRegistry(t, broken), cfg, &bytes.Buffer{})
	report, err := executor.Execute(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, report.Stats.Failures, "nothing starts after the first failure")
	assert.Equal(t, 1, report.Stats.Passes)
}

func TestDefaultExecutor_Grep(t *testing.T) {
	cfg := testConfig()
	cfg.Exercises = []string{"hello-world"}
	cfg.Grep = "by name"

	executor := NewDefaultExecutor(newTestRegistry(t), cfg, &bytes.Buffer{})
	report, err := executor.Execute(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, report.Stats.Tests)

	cfg.Invert = true
	report, err = executor.Execute(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, report.Stats.Tests)
	require.Len(t, report.Root.Suites, 1)
	require.Len(t, report.Root.Suites[0].Tests, 1)
	assert.Equal(t, "greets the world", report.Root.Suites[0].Tests[0].Title)
}

func TestDefaultExecutor_Track(t *testing.T) {
	cfg := testConfig()
	cfg.Tracks = []string{"basics"}

	executor := NewDefaultExecutor(newTestRegistry(t), cfg, &bytes.Buffer{})
	report, err := executor.Execute(context.Background())
	require.NoError(t, err)
	assert.True(t, report.Passed())
	require.Len(t, report.Root.Suites, 1)
	assert.Equal(t, "basics", report.Root.Suites[0].Title)
	assert.Len(t, report.Root.Suites[0].Suites, 2)
}

func TestDefaultExecutor_UnknownExercise(t *testing.T) {
	cfg := testConfig()
	cfg.Exercises = []string{"missing"}

	executor := NewDefaultExecutor(newTestRegistry(t), cfg, &bytes.Buffer{})
	report, err := executor.Execute(context.Background())
	assert.Nil(t, report)
	assert.ErrorContains(t, err, "unknown exercise missing")
}

func TestDefaultExecutor_ForbidOnly(t *testing.T) {
	exclusive := registry.Exercise{
		ID: "exclusive",
		Define: func(s *types.Suite) {
			s.AppendOnlyTest(s.AddTest("only", types.Func(func() error { return nil })))
		},
	}
	cfg := testConfig()
	cfg.Exercises = []string{"exclusive"}
	cfg.ForbidOnly = true
	cfg.LogDir = t.TempDir()

	executor := NewDefaultExecutor(newTestRegistry(t, exclusive), cfg, &bytes.Buffer{})

	done := make(chan struct{})
	var report *reporting.Report
	var err error
	go func() {
		defer close(done)
		report, err = executor.Execute(context.Background())
	}()
	select {
	case <-done:
	case <-time.After(5 * time.Second):
		t.Fatal("Execute did not return for a run that never started")
	}
	assert.Nil(t, report)
	assert.ErrorIs(t, err, runner.ErrOnlyForbidden)
}

func TestDefaultExecutor_LogDir(t *testing.T) {
	cfg := testConfig()
	cfg.Exercises = []string{"leap"}
	cfg.LogDir = t.TempDir()

	executor := NewDefaultExecutor(newTestRegistry(t), cfg, &bytes.Buffer{})
	report, err := executor.Execute(context.Background())
	require.NoError(t, err)

	runDir := filepath.Join(cfg.LogDir, "testrun-"+report.RunID)
	assert.DirExists(t, runDir)
	summary, err := os.ReadFile(filepath.Join(runDir, "summary.log"))
	require.NoError(t, err)
	assert.Contains(t, string(summary), "Run ID: "+report.RunID)
}

func TestSetBail(t *testing.T) {
	root := types.NewRootSuite("")
	child := root.AddSuite("child")
	grandchild := child.AddSuite("grandchild")

	setBail(root)
	assert.True(t, root.Bail)
	assert.True(t, child.Bail)
	assert.True(t, grandchild.Bail)
}
