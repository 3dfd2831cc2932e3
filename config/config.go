// Package config loads the .katarc.yaml run-options file. Values from the
// file sit between flag defaults and anything given on the command line or
// through the environment.
package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strconv"

	"github.com/ethereum/go-ethereum/log"
	"github.com/urfave/cli/v2"
	"gopkg.in/yaml.v3"

	"github.com/katalab/kata-runner/flags"
)

// File mirrors the run flags. Unset fields leave the flag untouched.
type File struct {
	Exercises        []string `yaml:"exercises,omitempty"`
	Tracks           []string `yaml:"tracks,omitempty"`
	TracksFile       string   `yaml:"tracksFile,omitempty"`
	Grep             string   `yaml:"grep,omitempty"`
	Invert           *bool    `yaml:"invert,omitempty"`
	Bail             *bool    `yaml:"bail,omitempty"`
	Retries          *int     `yaml:"retries,omitempty"`
	Timeout          string   `yaml:"timeout,omitempty"`
	Slow             string   `yaml:"slow,omitempty"`
	Reporter         string   `yaml:"reporter,omitempty"`
	LogDir           *string  `yaml:"logDir,omitempty"`
	RunInterval      string   `yaml:"runInterval,omitempty"`
	ForbidOnly       *bool    `yaml:"forbidOnly,omitempty"`
	ForbidPending    *bool    `yaml:"forbidPending,omitempty"`
	CheckLeaks       *bool    `yaml:"checkLeaks,omitempty"`
	Globals          []string `yaml:"globals,omitempty"`
	FullTrace        *bool    `yaml:"fullTrace,omitempty"`
	DryRun           *bool    `yaml:"dryRun,omitempty"`
	FailZero         *bool    `yaml:"failZero,omitempty"`
	AsyncOnly        *bool    `yaml:"asyncOnly,omitempty"`
	ShowProgress     *bool    `yaml:"showProgress,omitempty"`
	ProgressInterval string   `yaml:"progressInterval,omitempty"`
}

// Load reads and validates a run-options file
func Load(path string) (*File, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading config file: %w", err)
	}
	return Parse(data)
}

// Parse decodes YAML run options after validating them against the schema
func Parse(data []byte) (*File, error) {
	var raw any
	if err := yaml.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("parsing config file: %w", err)
	}
	if raw == nil {
		return &File{}, nil
	}

	asJSON, err := json.Marshal(raw)
	if err != nil {
		return nil, fmt.Errorf("converting config file: %w", err)
	}
	if err := Validate(asJSON); err != nil {
		return nil, err
	}

	var f File
	if err := yaml.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("parsing config file: %w", err)
	}
	return &f, nil
}

// Resolve loads the file named by the config flag. Without the flag the
// default file is used when it exists; a missing default is not an error.
func Resolve(ctx *cli.Context, logger log.Logger) (*File, string, error) {
	path := ctx.String(flags.ConfigFile.Name)
	if path == "" {
		if _, err := os.Stat(flags.DefaultConfigFile); errors.Is(err, fs.ErrNotExist) {
			return &File{}, "", nil
		}
		path = flags.DefaultConfigFile
	}
	f, err := Load(path)
	if err != nil {
		return nil, path, err
	}
	logger.Debug("Loaded run options", "path", path)
	return f, path, nil
}

type setting struct {
	flag   string
	values []string
}

func (f *File) settings() []setting {
	var out []setting
	addStr := func(flag string, v string) {
		if v != "" {
			out = append(out, setting{flag, []string{v}})
		}
	}
	addBool := func(flag string, v *bool) {
		if v != nil {
			out = append(out, setting{flag, []string{strconv.FormatBool(*v)}})
		}
	}
	addList := func(flag string, v []string) {
		if len(v) > 0 {
			out = append(out, setting{flag, v})
		}
	}

	addList(flags.Exercises.Name, f.Exercises)
	addList(flags.Tracks.Name, f.Tracks)
	addStr(flags.TracksFile.Name, f.TracksFile)
	addStr(flags.Grep.Name, f.Grep)
	addBool(flags.Invert.Name, f.Invert)
	addBool(flags.Bail.Name, f.Bail)
	if f.Retries != nil {
		out = append(out, setting{flags.Retries.Name, []string{strconv.Itoa(*f.Retries)}})
	}
	addStr(flags.Timeout.Name, f.Timeout)
	addStr(flags.Slow.Name, f.Slow)
	addStr(flags.Reporter.Name, f.Reporter)
	if f.LogDir != nil {
		out = append(out, setting{flags.LogDir.Name, []string{*f.LogDir}})
	}
	addStr(flags.RunInterval.Name, f.RunInterval)
	addBool(flags.ForbidOnly.Name, f.ForbidOnly)
	addBool(flags.ForbidPending.Name, f.ForbidPending)
	addBool(flags.CheckLeaks.Name, f.CheckLeaks)
	addList(flags.Globals.Name, f.Globals)
	addBool(flags.FullTrace.Name, f.FullTrace)
	addBool(flags.DryRun.Name, f.DryRun)
	addBool(flags.FailZero.Name, f.FailZero)
	addBool(flags.AsyncOnly.Name, f.AsyncOnly)
	addBool(flags.ShowProgress.Name, f.ShowProgress)
	addStr(flags.ProgressInterval.Name, f.ProgressInterval)
	return out
}

// Apply copies file values into ctx for every flag the user did not set
func (f *File) Apply(ctx *cli.Context) error {
	for _, s := range f.settings() {
		if ctx.IsSet(s.flag) {
			continue
		}
		for _, v := range s.values {
			if err := ctx.Set(s.flag, v); err != nil {
				return fmt.Errorf("applying %s from config file: %w", s.flag, err)
			}
		}
	}
	return nil
}
