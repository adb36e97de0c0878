package spec

import (
	"fmt"

	"gopkg.in/yaml.v3"

	"github.com/dronreef2/3dPot2-sub000/core/models"
)

// SimulationSpec represents the YAML simulation specification
type SimulationSpec struct {
	Simulation SimulationSpecBody `yaml:"simulation"`
}

// SimulationSpecBody represents the simulation section of the spec
type SimulationSpecBody struct {
	Model      string                 `yaml:"model"`
	Name       string                 `yaml:"name"`
	Kind       string                 `yaml:"kind"`
	Parameters map[string]interface{} `yaml:"parameters"`
}

// ParseSimulationSpec parses a YAML simulation specification into a
// create request. Parameter values keep their YAML types; range checking
// belongs to the validator, not the parser.
func ParseSimulationSpec(specYAML string) (*models.CreateRequest, error) {
	var spec SimulationSpec
	if err := yaml.Unmarshal([]byte(specYAML), &spec); err != nil {
		return nil, fmt.Errorf("failed to parse YAML: %w", err)
	}

	body := spec.Simulation
	if body.Model == "" {
		return nil, fmt.Errorf("simulation.model is required")
	}
	kind := models.SimulationKind(body.Kind)
	if !kind.Valid() {
		return nil, fmt.Errorf("unknown simulation kind %q", body.Kind)
	}
	if len(body.Parameters) == 0 {
		return nil, fmt.Errorf("simulation.parameters is required")
	}

	return &models.CreateRequest{
		ModelID:    body.Model,
		Name:       body.Name,
		Kind:       kind,
		Parameters: body.Parameters,
	}, nil
}
