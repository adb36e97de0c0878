package spec

import (
	"testing"

	"github.com/dronreef2/3dPot2-sub000/core/models"
)

const validSpec = `
simulation:
  model: model-42
  name: phone case drop
  kind: drop_test
  parameters:
    drop_height: 1.5
    num_drops: 5
    gravity: -9.8
`

func TestParseSimulationSpec_Valid(t *testing.T) {
	req, err := ParseSimulationSpec(validSpec)
	if err != nil {
		t.Fatalf("ParseSimulationSpec: %v", err)
	}
	if req.ModelID != "model-42" {
		t.Errorf("ModelID: got %q, want model-42", req.ModelID)
	}
	if req.Kind != models.KindDropTest {
		t.Errorf("Kind: got %q, want drop_test", req.Kind)
	}
	if req.Parameters["num_drops"] != 5 {
		t.Errorf("num_drops: got %v, want 5", req.Parameters["num_drops"])
	}
}

func TestParseSimulationSpec_UnknownKind(t *testing.T) {
	_, err := ParseSimulationSpec(`
simulation:
  model: m1
  kind: thermal
  parameters:
    x: 1
`)
	if err == nil {
		t.Fatal("expected error for unknown kind")
	}
}

func TestParseSimulationSpec_MissingModel(t *testing.T) {
	_, err := ParseSimulationSpec(`
simulation:
  kind: drop_test
  parameters:
    drop_height: 1.0
`)
	if err == nil {
		t.Fatal("expected error for missing model")
	}
}

func TestParseSimulationSpec_MalformedYAML(t *testing.T) {
	_, err := ParseSimulationSpec("simulation: [")
	if err == nil {
		t.Fatal("expected error for malformed YAML")
	}
}
