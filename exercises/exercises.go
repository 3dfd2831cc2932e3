// Package exercises bundles reference solutions for the built-in exercises
// together with the checks that validate them.
package exercises

import (
	_ "embed"
	"fmt"
	"reflect"

	"github.com/katalab/kata-runner/registry"
)

// Tracks is the bundled track manifest
//
//go:embed tracks.yaml
var Tracks []byte

// All returns every bundled exercise
func All() []registry.Exercise {
	return []registry.Exercise{
		HelloWorld,
		ReverseString,
		Leap,
		Anagram,
		Clock,
	}
}

// Register adds the bundled exercises to r and loads the bundled tracks when
// r has none.
func Register(r *registry.Registry) error {
	if err := r.Register(All()...); err != nil {
		return fmt.Errorf("failed to register exercises: %w", err)
	}
	if len(r.GetTracks()) == 0 {
		if err := r.LoadManifest(Tracks); err != nil {
			return fmt.Errorf("failed to load bundled tracks: %w", err)
		}
	}
	return nil
}

func expectEqual[T any](want, got T) error {
	if !reflect.DeepEqual(want, got) {
		return fmt.Errorf("expected %#v, got %#v", want, got)
	}
	return nil
}
