// Package estimate prices a road from its dimensions: quantities per
// catalogue material from a profile, costs from the yearly prices in force.
package estimate

import (
	_ "embed"
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/joseph-ayodele/road-estimator/constants"
	"github.com/joseph-ayodele/road-estimator/internal/common"
)

//go:embed profiles/default.yaml
var defaultProfile []byte

// Profile holds the quantity rates and multipliers an estimate is built from.
type Profile struct {
	Name               string                        `yaml:"name"`
	DefaultProjectType string                        `yaml:"default_project_type"`
	ProjectTypes       map[string]map[string]float64 `yaml:"project_types"`
	Rates              []Rate                        `yaml:"rates"`
	Terrain            map[string]Adjustment         `yaml:"terrain"`
	Traffic            map[string]float64            `yaml:"traffic"`
	TrafficMaterials   []string                      `yaml:"traffic_materials"`
}

// Rate is the quantity of one material per square metre, in its billing unit.
type Rate struct {
	Material string  `yaml:"material"`
	PerSqm   float64 `yaml:"per_sqm"`
	Factor   string  `yaml:"factor"`
}

// Adjustment scales the listed materials.
type Adjustment struct {
	Factor    float64  `yaml:"factor"`
	Materials []string `yaml:"materials"`
}

// DefaultProfile returns the built-in profile.
func DefaultProfile() *Profile {
	p, err := ParseProfile(defaultProfile)
	if err != nil {
		panic(fmt.Sprintf("estimate: built-in profile: %v", err))
	}
	return p
}

// LoadProfile reads a YAML profile from path.
func LoadProfile(path string) (*Profile, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read profile: %w", err)
	}
	return ParseProfile(data)
}

func ParseProfile(data []byte) (*Profile, error) {
	var p Profile
	if err := yaml.Unmarshal(data, &p); err != nil {
		return nil, fmt.Errorf("%w: parse profile: %v", common.ErrValidation, err)
	}
	if err := p.Validate(); err != nil {
		return nil, err
	}
	return &p, nil
}

// Validate checks that every rate names a catalogue material and a factor
// defined for every project type.
func (p *Profile) Validate() error {
	if len(p.Rates) == 0 {
		return fmt.Errorf("%w: profile %q has no rates", common.ErrValidation, p.Name)
	}
	if _, ok := p.ProjectTypes[p.DefaultProjectType]; !ok {
		return fmt.Errorf("%w: default project type %q is not defined", common.ErrValidation, p.DefaultProjectType)
	}
	for _, r := range p.Rates {
		if _, ok := constants.LookupMaterial(r.Material); !ok {
			return fmt.Errorf("%w: rate for unknown material %q", common.ErrValidation, r.Material)
		}
		if r.PerSqm < 0 {
			return fmt.Errorf("%w: negative rate for %q", common.ErrValidation, r.Material)
		}
		for name, factors := range p.ProjectTypes {
			if _, ok := factors[r.Factor]; !ok {
				return fmt.Errorf("%w: project type %q has no %q factor", common.ErrValidation, name, r.Factor)
			}
		}
	}
	for name, adj := range p.Terrain {
		if !(adj.Factor > 0) {
			return fmt.Errorf("%w: terrain %q factor must be positive", common.ErrValidation, name)
		}
	}
	for name, f := range p.Traffic {
		if !(f > 0) {
			return fmt.Errorf("%w: traffic %q factor must be positive", common.ErrValidation, name)
		}
	}
	return nil
}

func key(s string) string {
	return strings.ReplaceAll(strings.ToLower(strings.TrimSpace(s)), " ", "_")
}

func contains(names []string, material string) bool {
	for _, n := range names {
		if constants.MaterialKey(n) == constants.MaterialKey(material) {
			return true
		}
	}
	return false
}
