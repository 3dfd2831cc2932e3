package exercises

import (
	"context"
	"testing"

	"github.com/ethereum/go-ethereum/log"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/katalab/kata-runner/registry"
	"github.com/katalab/kata-runner/runner"
)

func newRegistry(t *testing.T) *registry.Registry {
	t.Helper()
	r, err := registry.NewRegistry(registry.Config{Log: log.NewLogger(log.DiscardHandler())})
	require.NoError(t, err)
	require.NoError(t, Register(r))
	return r
}

func TestSolutions(t *testing.T) {
	assert.Equal(t, "Hello, Bob!", Hello("Bob"))
	assert.Equal(t, "olleh", Reverse("hello"))
	assert.True(t, IsLeap(2024))
	assert.False(t, IsLeap(2100))
	assert.Equal(t, []string{"tan"}, Detect("ant", []string{"tan", "stand", "at"}))
	assert.Equal(t, "10:37", NewClock(10, 37).String())
	assert.Equal(t, "23:59", NewClock(0, -1).String())
}

func TestBundledExercisesPass(t *testing.T) {
	r := newRegistry(t)
	root, err := r.Build(nil, nil)
	require.NoError(t, err)

	run := runner.New(root, runner.Options{Log: log.NewLogger(log.DiscardHandler())})
	failures, err := run.Run(context.Background())
	require.NoError(t, err)
	assert.Zero(t, failures)
	assert.Equal(t, 21, run.Total())
}

func TestBundledTracks(t *testing.T) {
	r := newRegistry(t)

	tests := []struct {
		track string
		want  []string
	}{
		{"basics", []string{"hello-world", "leap"}},
		{"strings", []string{"hello-world", "leap", "reverse-string", "anagram"}},
		{"all", []string{"hello-world", "leap", "reverse-string", "anagram", "clock"}},
	}
	for _, tt := range tests {
		t.Run(tt.track, func(t *testing.T) {
			exercises, err := r.GetExercisesByTrack(tt.track)
			require.NoError(t, err)
			var ids []string
			for _, ex := range exercises {
				ids = append(ids, ex.ID)
			}
			assert.Equal(t, tt.want, ids)
		})
	}
}

func TestRegisterTwice(t *testing.T) {
	r := newRegistry(t)
	assert.ErrorContains(t, Register(r), "already registered")
}
