package features

import (
	"bytes"
	_ "embed"
	"encoding/json"
	"fmt"
	"os"
	"sync"
	"time"

	"github.com/santhosh-tekuri/jsonschema/v5"

	"github.com/joseph-ayodele/road-estimator/internal/common"
)

//go:embed schema/artifact.json
var artifactSchema []byte

var compiledArtifact = sync.OnceValues(func() (*jsonschema.Schema, error) {
	compiler := jsonschema.NewCompiler()
	if err := compiler.AddResource("artifact.json", bytes.NewReader(artifactSchema)); err != nil {
		return nil, fmt.Errorf("add schema: %w", err)
	}
	return compiler.Compile("artifact.json")
})

// Artifact is a trained model stored next to the exact feature order it was
// trained on.
type Artifact struct {
	SchemaVersion string          `json:"schema_version"`
	FeatureNames  []string        `json:"feature_names"`
	ModelKind     string          `json:"model_kind"`
	Params        json.RawMessage `json:"params"`
	TrainedAt     *time.Time      `json:"trained_at,omitempty"`
	TrainingRows  int             `json:"training_rows,omitempty"`
}

func (a *Artifact) Schema() Schema {
	return Schema{Version: a.SchemaVersion, Names: a.FeatureNames}
}

// LoadArtifact reads and validates a model artifact file.
func LoadArtifact(path string) (*Artifact, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, common.NewAppError(common.CodeModel, "read model artifact", err)
	}
	return ParseArtifact(data)
}

// ParseArtifact validates data against the artifact JSON Schema and decodes it.
func ParseArtifact(data []byte) (*Artifact, error) {
	schema, err := compiledArtifact()
	if err != nil {
		return nil, fmt.Errorf("compile artifact schema: %w", err)
	}
	var v any
	if err := json.Unmarshal(data, &v); err != nil {
		return nil, fmt.Errorf("%w: artifact is not json: %v", common.ErrValidation, err)
	}
	if err := schema.Validate(v); err != nil {
		return nil, fmt.Errorf("%w: artifact does not match schema: %v", common.ErrValidation, err)
	}
	var a Artifact
	if err := json.Unmarshal(data, &a); err != nil {
		return nil, fmt.Errorf("%w: decode artifact: %v", common.ErrValidation, err)
	}
	return &a, nil
}

// Save writes the artifact as indented JSON.
func (a *Artifact) Save(path string) error {
	data, err := json.MarshalIndent(a, "", "  ")
	if err != nil {
		return err
	}
	if _, err := ParseArtifact(data); err != nil {
		return err
	}
	return os.WriteFile(path, data, 0o644)
}
