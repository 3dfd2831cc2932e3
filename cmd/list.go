package main

import (
	"fmt"
	"io"
	"strings"

	"github.com/ethereum/go-ethereum/log"
	"github.com/urfave/cli/v2"

	"github.com/katalab/kata-runner/exercises"
	"github.com/katalab/kata-runner/registry"
)

// ListCommand defines the "list" command for printing the registered exercises and tracks.
func ListCommand() *cli.Command {
	return &cli.Command{
		Name:  "list",
		Usage: "List available exercises and tracks",
		Description: `Prints the bundled exercises and the tracks of the manifest in use.

Examples:
  kata-runner list
  kata-runner list --tracks-only
  kata-runner list --tracks ./tracks.yaml`,
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:  "tracks",
				Usage: "path to a track manifest; the bundled tracks are used when empty",
			},
			&cli.BoolFlag{
				Name:  "tracks-only",
				Usage: "only list tracks",
			},
		},
		Action: listAction,
	}
}

func listAction(c *cli.Context) error {
	reg, err := registry.NewRegistry(registry.Config{
		Log:        log.Root(),
		TracksFile: c.String("tracks"),
	})
	if err != nil {
		return fmt.Errorf("load tracks: %w", err)
	}
	if err := exercises.Register(reg); err != nil {
		return err
	}
	return printRegistry(c.App.Writer, reg, c.Bool("tracks-only"))
}

// printRegistry writes the exercises and the tracks with their resolved
// exercise lists to w.
func printRegistry(w io.Writer, reg *registry.Registry, tracksOnly bool) error {
	if !tracksOnly {
		fmt.Fprintf(w, "Available exercises:\n")
		for _, ex := range reg.GetExercises() {
			if ex.Description != "" {
				fmt.Fprintf(w, "  - %s: %s\n", ex.ID, ex.Description)
			} else {
				fmt.Fprintf(w, "  - %s\n", ex.ID)
			}
		}
	}

	tracks := reg.GetTracks()
	fmt.Fprintf(w, "Available tracks:\n")
	for _, track := range tracks {
		exs, err := reg.GetExercisesByTrack(track.ID)
		if err != nil {
			return err
		}
		ids := make([]string, 0, len(exs))
		for _, ex := range exs {
			ids = append(ids, ex.ID)
		}
		line := fmt.Sprintf("  - %s (%s)", track.ID, strings.Join(ids, ", "))
		if len(track.Inherits) > 0 {
			line += fmt.Sprintf(" inherits %s", strings.Join(track.Inherits, ", "))
		}
		fmt.Fprintln(w, line)
	}
	return nil
}
