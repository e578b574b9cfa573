package world

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"

	"gopkg.in/yaml.v3"

	"regoth/internal/geom"
	"regoth/internal/physics"
	"regoth/internal/waynet"
)

// SceneClock is the time a scene starts at. Zero values fall back to the
// configured start time.
type SceneClock struct {
	Day    int `yaml:"day"`
	Hour   int `yaml:"hour"`
	Minute int `yaml:"minute"`
}

// Spawn places a script instance at a waypoint or freepoint.
type Spawn struct {
	Instance string `yaml:"instance"`
	At       string `yaml:"at"`
}

// ItemSpawn places an item instance at a named point or an explicit position.
type ItemSpawn struct {
	Instance string     `yaml:"instance"`
	At       string     `yaml:"at"`
	Position *geom.Vec3 `yaml:"position"`
}

// Scene is the static content a world starts from.
type Scene struct {
	Name      string            `yaml:"name"`
	Waynet    waynet.Definition `yaml:"waynet"`
	Obstacles []physics.Box     `yaml:"obstacles"`
	Clock     *SceneClock       `yaml:"clock"`
	Hero      *Spawn            `yaml:"hero"`
	NPCs      []Spawn           `yaml:"npcs"`
	Items     []ItemSpawn       `yaml:"items"`
	Dialogue  map[string]string `yaml:"dialogue"`

	// Startup names a script function run once after the hero is placed,
	// typically inserting the world's NPCs.
	Startup string `yaml:"startup"`
}

// LoadScene reads a scene file.
func LoadScene(path string) (*Scene, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read scene %s: %w", path, err)
	}
	scene, err := ParseScene(data)
	if err != nil {
		return nil, fmt.Errorf("failed to parse scene %s: %w", path, err)
	}
	return scene, nil
}

// ParseScene decodes a scene from YAML. Unknown keys are rejected.
func ParseScene(data []byte) (*Scene, error) {
	var scene Scene
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(&scene); err != nil && !errors.Is(err, io.EOF) {
		return nil, err
	}
	return &scene, nil
}

// Marshal encodes the scene as YAML.
func (s *Scene) Marshal() ([]byte, error) {
	return yaml.Marshal(s)
}
