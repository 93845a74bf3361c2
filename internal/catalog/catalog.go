package catalog

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/andywalner/pa-mmi-mock-interviewer/pkg/model"
)

// defaultTimeLimit is seven minutes, the standard PA MMI station length.
const defaultTimeLimit = 420

// Catalog is the ordered, read-only list of interview stations. It is loaded
// once at startup and never mutated afterwards.
type Catalog struct {
	stations []model.Station
}

type catalogFile struct {
	Stations []model.Station `yaml:"stations"`
}

// Default returns the built-in five-station PA MMI catalog.
func Default() *Catalog {
	prompts := []string{
		"A fellow student asks to copy your homework. What do you do?",
		"Describe a time you had to work with someone difficult. How did you handle it?",
		"Should healthcare be free for everyone? Discuss both sides.",
		"You notice a colleague making a mistake with a patient. What do you do?",
		"Why do you want to become a Physician Assistant?",
	}

	stations := make([]model.Station, len(prompts))
	for i, p := range prompts {
		stations[i] = model.Station{
			ID:               fmt.Sprintf("station-%d", i+1),
			Ordinal:          i,
			Prompt:           p,
			TimeLimitSeconds: defaultTimeLimit,
		}
	}
	return &Catalog{stations: stations}
}

// Load reads a station catalog from a YAML file. An empty path returns the
// built-in default.
func Load(path string) (*Catalog, error) {
	if path == "" {
		return Default(), nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read catalog file: %w", err)
	}

	var f catalogFile
	if err := yaml.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("parse catalog file: %w", err)
	}

	c := &Catalog{stations: f.Stations}
	if err := c.validate(); err != nil {
		return nil, err
	}
	for i := range c.stations {
		c.stations[i].Ordinal = i
		if c.stations[i].ID == "" {
			c.stations[i].ID = fmt.Sprintf("station-%d", i+1)
		}
		if c.stations[i].TimeLimitSeconds == 0 {
			c.stations[i].TimeLimitSeconds = defaultTimeLimit
		}
	}
	return c, nil
}

func (c *Catalog) validate() error {
	if len(c.stations) == 0 {
		return fmt.Errorf("catalog has no stations")
	}
	for i, s := range c.stations {
		if s.Prompt == "" {
			return fmt.Errorf("station %d has an empty prompt", i+1)
		}
		if s.TimeLimitSeconds < 0 {
			return fmt.Errorf("station %d has a negative time limit", i+1)
		}
	}
	return nil
}

// Stations returns a copy of the station list.
func (c *Catalog) Stations() []model.Station {
	out := make([]model.Station, len(c.stations))
	copy(out, c.stations)
	return out
}

func (c *Catalog) Len() int {
	return len(c.stations)
}
