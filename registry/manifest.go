package registry

import (
	"fmt"
	"os"
	"slices"
	"time"

	"github.com/ethereum/go-ethereum/log"
	"gopkg.in/yaml.v3"
)

// Manifest is the on-disk track file
type Manifest struct {
	Tracks []TrackConfig `yaml:"tracks"`
}

// TrackConfig groups exercises under a name. A track may inherit the
// exercises of other tracks.
type TrackConfig struct {
	ID          string         `yaml:"id"`
	Description string         `yaml:"description,omitempty"`
	Inherits    []string       `yaml:"inherits,omitempty"`
	Exercises   []string       `yaml:"exercises,omitempty"`
	Timeout     *time.Duration `yaml:"timeout,omitempty"`
	Retries     *int           `yaml:"retries,omitempty"`
	Bail        bool           `yaml:"bail,omitempty"`
}

// ResolveInherited expands the exercise list with the exercises of every
// inherited track, inherited ones first. Duplicates keep their first position.
func (t *TrackConfig) ResolveInherited(tracks map[string]TrackConfig) ([]string, error) {
	var out []string
	seen := make(map[string]bool)
	add := func(ids []string) {
		for _, id := range ids {
			if !seen[id] {
				seen[id] = true
				out = append(out, id)
			}
		}
	}
	for _, parentID := range t.Inherits {
		parent, ok := tracks[parentID]
		if !ok {
			return nil, fmt.Errorf("track %s inherits from non-existent track %s", t.ID, parentID)
		}
		inherited, err := parent.ResolveInherited(tracks)
		if err != nil {
			return nil, err
		}
		add(inherited)
	}
	add(t.Exercises)
	return out, nil
}

// loadManifest reads a track manifest from a file
func loadManifest(path string) (*Manifest, error) {
	log.Debug("Reading track manifest", "path", path)

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading manifest file: %w", err)
	}
	return parseManifest(data)
}

func parseManifest(data []byte) (*Manifest, error) {
	var m Manifest
	if err := yaml.Unmarshal(data, &m); err != nil {
		return nil, fmt.Errorf("parsing manifest file: %w", err)
	}
	seen := make(map[string]bool)
	for _, track := range m.Tracks {
		if track.ID == "" {
			return nil, fmt.Errorf("track without id")
		}
		if seen[track.ID] {
			return nil, fmt.Errorf("duplicate track %s", track.ID)
		}
		seen[track.ID] = true
		if slices.Contains(track.Inherits, track.ID) {
			return nil, fmt.Errorf("track %s inherits from itself", track.ID)
		}
	}
	return &m, nil
}
