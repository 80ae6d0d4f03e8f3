package viewport

import (
	"bytes"
	_ "embed"
	"fmt"
	"io"
	"os"

	"gopkg.in/yaml.v3"
)

//go:embed default_plan.yaml
var defaultPlanYAML []byte

// Aisle is a walkway strip drawn beneath the pallets
type Aisle struct {
	ID     string  `json:"id" yaml:"id"`
	X      float64 `json:"x" yaml:"x"`
	Y      float64 `json:"y" yaml:"y"`
	Width  float64 `json:"width" yaml:"width"`
	Height float64 `json:"height" yaml:"height"`
}

// FloorPlan is the static world-space layout of a warehouse
type FloorPlan struct {
	Name    string  `json:"name" yaml:"name"`
	Width   float64 `json:"width" yaml:"width"`
	Height  float64 `json:"height" yaml:"height"`
	Aisles  []Aisle `json:"aisles" yaml:"aisles"`
	Pallets []Rect  `json:"pallets" yaml:"pallets"`
}

// Validate checks dimensions and pallet ids
func (p *FloorPlan) Validate() error {
	if p.Width <= 0 || p.Height <= 0 {
		return fmt.Errorf("floor plan dimensions must be positive, got %vx%v", p.Width, p.Height)
	}
	seen := make(map[string]struct{}, len(p.Pallets))
	for i, r := range p.Pallets {
		if r.ID == "" {
			return fmt.Errorf("pallet %d has no id", i)
		}
		if r.Width < 0 || r.Height < 0 {
			return fmt.Errorf("pallet %s has negative size", r.ID)
		}
		if _, dup := seen[r.ID]; dup {
			return fmt.Errorf("duplicate pallet id %s", r.ID)
		}
		seen[r.ID] = struct{}{}
	}
	return nil
}

// LoadFloorPlan decodes and validates a YAML floor plan
func LoadFloorPlan(r io.Reader) (*FloorPlan, error) {
	var plan FloorPlan
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)
	if err := dec.Decode(&plan); err != nil {
		return nil, fmt.Errorf("failed to decode floor plan: %w", err)
	}
	if err := plan.Validate(); err != nil {
		return nil, err
	}
	return &plan, nil
}

// LoadFloorPlanFile reads a plan from path, or the built-in plan when path is empty
func LoadFloorPlanFile(path string) (*FloorPlan, error) {
	if path == "" {
		return DefaultFloorPlan()
	}
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open floor plan: %w", err)
	}
	defer f.Close()
	return LoadFloorPlan(f)
}

// DefaultFloorPlan returns the built-in demo layout
func DefaultFloorPlan() (*FloorPlan, error) {
	return LoadFloorPlan(bytes.NewReader(defaultPlanYAML))
}
