package registry

import (
	"fmt"
	"slices"
	"sort"
	"sync"
	"time"

	"github.com/ethereum/go-ethereum/log"

	"github.com/katalab/kata-runner/types"
)

// Exercise is one learner task together with the checks that validate it
type Exercise struct {
	ID          string
	Title       string
	Description string
	// Define declares the exercise's tests and hooks on its suite
	Define func(s *types.Suite)
}

func (e Exercise) title() string {
	if e.Title != "" {
		return e.Title
	}
	return e.ID
}

// Registry manages exercises and the tracks that group them
type Registry struct {
	config    Config
	exercises map[string]Exercise
	tracks    []TrackConfig
	trackMap  map[string]TrackConfig
	mu        sync.RWMutex
}

// Config contains registry configuration
type Config struct {
	Log log.Logger
	// TracksFile is an optional YAML track manifest
	TracksFile     string
	DefaultTimeout time.Duration
}

// NewRegistry creates a new registry instance
func NewRegistry(cfg Config) (*Registry, error) {
	if cfg.Log == nil {
		cfg.Log = log.New()
		cfg.Log.Error("No logger provided, using default")
	}

	r := &Registry{
		config:    cfg,
		exercises: make(map[string]Exercise),
		trackMap:  make(map[string]TrackConfig),
	}

	if cfg.TracksFile != "" {
		if err := r.LoadTracks(cfg.TracksFile); err != nil {
			return nil, fmt.Errorf("failed to load tracks: %w", err)
		}
	}

	cfg.Log.Debug("Registry loaded", "len(tracks)", len(r.tracks))
	return r, nil
}

// Register adds exercises to the registry. IDs must be unique.
func (r *Registry) Register(exercises ...Exercise) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	for _, ex := range exercises {
		if ex.ID == "" {
			return fmt.Errorf("exercise id is required")
		}
		if ex.Define == nil {
			return fmt.Errorf("exercise %s has no definition", ex.ID)
		}
		if _, exists := r.exercises[ex.ID]; exists {
			return fmt.Errorf("exercise %s is already registered", ex.ID)
		}
		r.exercises[ex.ID] = ex
	}
	return nil
}

// LoadTracks replaces the track set with the tracks of a manifest file
func (r *Registry) LoadTracks(path string) error {
	manifest, err := loadManifest(path)
	if err != nil {
		return fmt.Errorf("failed to load manifest: %w", err)
	}
	return r.setTracks(manifest.Tracks)
}

// LoadManifest replaces the track set with the tracks of an in-memory manifest
func (r *Registry) LoadManifest(data []byte) error {
	manifest, err := parseManifest(data)
	if err != nil {
		return err
	}
	return r.setTracks(manifest.Tracks)
}

func (r *Registry) setTracks(tracks []TrackConfig) error {
	trackMap := make(map[string]TrackConfig, len(tracks))
	for _, track := range tracks {
		trackMap[track.ID] = track
	}
	if err := validateTrackInheritance(tracks, trackMap); err != nil {
		return fmt.Errorf("failed to resolve track inheritance: %w", err)
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	r.tracks = tracks
	r.trackMap = trackMap
	return nil
}

// validateTrackInheritance checks that every inherited track exists and that
// no track inherits from itself through a chain
func validateTrackInheritance(tracks []TrackConfig, trackMap map[string]TrackConfig) error {
	for _, track := range tracks {
		if err := checkCircularInheritance(track.ID, track.Inherits, trackMap, make(map[string]bool)); err != nil {
			return fmt.Errorf("circular inheritance detected: %w", err)
		}
	}
	return nil
}

// checkCircularInheritance detects circular dependencies in track inheritance
func checkCircularInheritance(currentID string, inherits []string, trackMap map[string]TrackConfig, visited map[string]bool) error {
	if visited[currentID] {
		return fmt.Errorf("circular inheritance detected at track %s", currentID)
	}

	visited[currentID] = true
	defer delete(visited, currentID)

	for _, inheritedID := range inherits {
		inherited, exists := trackMap[inheritedID]
		if !exists {
			return fmt.Errorf("track %s inherits from non-existent track %s", currentID, inheritedID)
		}
		if err := checkCircularInheritance(inheritedID, inherited.Inherits, trackMap, visited); err != nil {
			return err
		}
	}
	return nil
}

// GetExercise returns a registered exercise by id
func (r *Registry) GetExercise(id string) (Exercise, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	ex, ok := r.exercises[id]
	return ex, ok
}

// GetExercises returns all registered exercises sorted by id
func (r *Registry) GetExercises() []Exercise {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.sortedLocked()
}

// GetTracks returns the loaded tracks in manifest order
func (r *Registry) GetTracks() []TrackConfig {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return slices.Clone(r.tracks)
}

// GetExercisesByTrack returns the exercises of a track, inherited ones first
func (r *Registry) GetExercisesByTrack(trackID string) ([]Exercise, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.exercisesByTrackLocked(trackID)
}

func (r *Registry) exercisesByTrackLocked(trackID string) ([]Exercise, error) {
	track, ok := r.trackMap[trackID]
	if !ok {
		return nil, fmt.Errorf("unknown track %s", trackID)
	}
	ids, err := track.ResolveInherited(r.trackMap)
	if err != nil {
		return nil, err
	}
	out := make([]Exercise, 0, len(ids))
	for _, id := range ids {
		ex, ok := r.exercises[id]
		if !ok {
			return nil, fmt.Errorf("track %s references unknown exercise %s", trackID, id)
		}
		out = append(out, ex)
	}
	return out, nil
}

// GetConfig returns the registry configuration
func (r *Registry) GetConfig() Config {
	return r.config
}

// Build assembles the suite tree for a run. Each selected track becomes a
// suite holding its exercises; exercises selected directly hang off the
// root. With no selection every registered exercise is included.
func (r *Registry) Build(exerciseIDs []string, trackIDs []string) (*types.Suite, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	root := types.NewRootSuite("")
	root.Timeout = r.config.DefaultTimeout

	for _, trackID := range trackIDs {
		exercises, err := r.exercisesByTrackLocked(trackID)
		if err != nil {
			return nil, err
		}
		track := r.trackMap[trackID]
		suite := root.AddSuite(trackID)
		suite.Bail = track.Bail
		if track.Timeout != nil {
			suite.Timeout = *track.Timeout
		}
		if track.Retries != nil {
			suite.Retries = *track.Retries
		}
		for _, ex := range exercises {
			defineExercise(suite, ex)
		}
	}

	if len(exerciseIDs) == 0 && len(trackIDs) == 0 {
		for _, ex := range r.sortedLocked() {
			defineExercise(root, ex)
		}
	}
	for _, id := range exerciseIDs {
		ex, ok := r.exercises[id]
		if !ok {
			return nil, fmt.Errorf("unknown exercise %s", id)
		}
		defineExercise(root, ex)
	}

	r.config.Log.Debug("Built suite tree", "exercises", exerciseIDs, "tracks", trackIDs, "total", root.Total())
	return root, nil
}

func (r *Registry) sortedLocked() []Exercise {
	out := make([]Exercise, 0, len(r.exercises))
	for _, ex := range r.exercises {
		out = append(out, ex)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

func defineExercise(parent *types.Suite, ex Exercise) {
	suite := parent.AddSuite(ex.title())
	ex.Define(suite)
}
