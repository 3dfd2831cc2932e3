package flags

import (
	"strings"
	"testing"
	"time"

	opservice "github.com/ethereum-optimism/optimism/op-service"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/urfave/cli/v2"
)

// TestOptionalFlagsDontSetRequired asserts that all flags deemed optional set
// the Required field to false.
func TestOptionalFlagsDontSetRequired(t *testing.T) {
	for _, flag := range optionalFlags {
		reqFlag, ok := flag.(cli.RequiredFlag)
		require.True(t, ok)
		require.False(t, reqFlag.IsRequired())
	}
}

// TestUniqueFlags asserts that all flag names are unique, to avoid accidental conflicts between the many flags.
func TestUniqueFlags(t *testing.T) {
	seenCLI := make(map[string]struct{})
	for _, flag := range Flags {
		name := flag.Names()[0]
		if _, ok := seenCLI[name]; ok {
			t.Errorf("duplicate flag %s", name)
			continue
		}
		seenCLI[name] = struct{}{}
	}
}

// TestBetaFlags test that all flags starting with "beta." have "BETA_" in the env var, and vice versa.
func TestBetaFlags(t *testing.T) {
	for _, flag := range Flags {
		envFlag, ok := flag.(interface {
			GetEnvVars() []string
		})
		if !ok || len(envFlag.GetEnvVars()) == 0 { // skip flags without env-var support
			continue
		}
		name := flag.Names()[0]
		envName := envFlag.GetEnvVars()[0]
		if strings.HasPrefix(name, "beta.") {
			require.Contains(t, envName, "BETA_", "%q flag must contain BETA in env var to match \"beta.\" flag name", name)
		}
		if strings.Contains(envName, "BETA_") {
			require.True(t, strings.HasPrefix(name, "beta."), "%q flag must start with \"beta.\" in flag name to match \"BETA_\" env var", name)
		}
	}
}

func TestHasEnvVar(t *testing.T) {
	for _, flag := range Flags {
		flagName := flag.Names()[0]

		t.Run(flagName, func(t *testing.T) {
			envFlagGetter, ok := flag.(interface {
				GetEnvVars() []string
			})
			envFlags := envFlagGetter.GetEnvVars()
			require.True(t, ok, "must be able to cast the flag to an EnvVar interface")
			require.Equal(t, 1, len(envFlags), "flags should have exactly one env var")
		})
	}
}

func TestEnvVarFormat(t *testing.T) {
	for _, flag := range Flags {
		flagName := flag.Names()[0]

		t.Run(flagName, func(t *testing.T) {
			envFlagGetter, ok := flag.(interface {
				GetEnvVars() []string
			})
			envFlags := envFlagGetter.GetEnvVars()
			require.True(t, ok, "must be able to cast the flag to an EnvVar interface")
			require.Equal(t, 1, len(envFlags), "flags should have exactly one env var")

			expectedEnvVar := opservice.FlagNameToEnvVarName(flagName, EnvVarPrefix)
			require.Equal(t, expectedEnvVar, envFlags[0])
		})
	}
}

func TestReporterFlag(t *testing.T) {
	app := &cli.App{
		Flags:  []cli.Flag{Reporter},
		Action: func(ctx *cli.Context) error { return nil },
	}

	testCases := []struct {
		name        string
		args        []string
		shouldError bool
	}{
		{"spec", []string{"app", "--reporter", "spec"}, false},
		{"json", []string{"app", "--reporter", "json"}, false},
		{"table", []string{"app", "--reporter", "table"}, false},
		{"invalid value", []string{"app", "--reporter", "xml"}, true},
		{"no flag uses default", []string{"app"}, false},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			err := app.Run(tc.args)
			if tc.shouldError {
				assert.ErrorContains(t, err, "reporter must be one of")
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestCheckRequired(t *testing.T) {
	testCases := []struct {
		name    string
		args    []string
		wantErr string
	}{
		{"no flags", []string{"app"}, ""},
		{"exercises only", []string{"app", "--exercise", "hello", "--exercise", "reverse"}, ""},
		{"track with manifest", []string{"app", "--track", "basics", "--tracks", "tracks.yaml"}, ""},
		{"bundled track", []string{"app", "--track", "basics"}, ""},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			app := &cli.App{
				Flags:  Flags,
				Action: CheckRequired,
			}
			err := app.Run(tc.args)
			if tc.wantErr == "" {
				assert.NoError(t, err)
			} else {
				assert.ErrorContains(t, err, tc.wantErr)
			}
		})
	}
}

func TestDefaults(t *testing.T) {
	app := &cli.App{
		Flags: Flags,
		Action: func(ctx *cli.Context) error {
			assert.Equal(t, "spec", ctx.String(Reporter.Name))
			assert.Equal(t, "logs", ctx.String(LogDir.Name))
			assert.Zero(t, ctx.Duration(RunInterval.Name))
			assert.Zero(t, ctx.Duration(Timeout.Name))
			assert.Equal(t, 75*time.Millisecond, ctx.Duration(Slow.Name))
			assert.Equal(t, 30*time.Second, ctx.Duration(ProgressInterval.Name))
			assert.Empty(t, ctx.StringSlice(Exercises.Name))
			return nil
		},
	}
	require.NoError(t, app.Run([]string{"app"}))
}
