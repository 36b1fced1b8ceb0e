package features

import (
	"encoding/json"
	"fmt"
	"math"
	"sync"

	"github.com/joseph-ayodele/road-estimator/internal/common"
)

// Regressor predicts a cost from an ordered feature vector.
type Regressor interface {
	Predict(x []float64) (float64, error)
}

// RegressorFactory decodes the params of one model kind for n features.
type RegressorFactory func(params json.RawMessage, n int) (Regressor, error)

var (
	registryMu sync.RWMutex
	registry   = map[string]RegressorFactory{
		KindLinear: newLinearModel,
	}
)

// RegisterRegressor makes a model kind loadable from artifacts.
func RegisterRegressor(kind string, f RegressorFactory) {
	registryMu.Lock()
	defer registryMu.Unlock()
	registry[kind] = f
}

// Predictor applies an artifact's model to vectors built for its schema.
type Predictor struct {
	artifact *Artifact
	model    Regressor
}

func NewPredictor(a *Artifact) (*Predictor, error) {
	if a == nil {
		return nil, fmt.Errorf("%w: nil artifact", common.ErrInvalidInput)
	}
	registryMu.RLock()
	factory, ok := registry[a.ModelKind]
	registryMu.RUnlock()
	if !ok {
		return nil, common.NewAppError(common.CodeModel, fmt.Sprintf("unknown model kind %q", a.ModelKind), nil)
	}
	model, err := factory(a.Params, len(a.FeatureNames))
	if err != nil {
		return nil, common.NewAppError(common.CodeModel, "load "+a.ModelKind+" params", err)
	}
	return &Predictor{artifact: a, model: model}, nil
}

// Predict fails with ErrSchemaMismatch unless v was built for exactly the
// artifact's feature order.
func (p *Predictor) Predict(v Vector) (float64, error) {
	want := p.artifact.Schema()
	if !want.Equal(v.Schema) {
		return 0, fmt.Errorf("%w: model expects %s %v, vector is %s %v",
			common.ErrSchemaMismatch, want.Version, want.Names, v.Schema.Version, v.Schema.Names)
	}
	if len(v.Values) != len(want.Names) {
		return 0, fmt.Errorf("%w: %d values for %d features", common.ErrSchemaMismatch, len(v.Values), len(want.Names))
	}
	return p.model.Predict(v.Values)
}

// KindLinear is a standardized linear model:
// y = intercept + Σ coef_i · (x_i − mean_i) / scale_i.
const KindLinear = "linear"

type LinearModel struct {
	Intercept    float64   `json:"intercept"`
	Coefficients []float64 `json:"coefficients"`
	Mean         []float64 `json:"mean,omitempty"`
	Scale        []float64 `json:"scale,omitempty"`
}

func newLinearModel(params json.RawMessage, n int) (Regressor, error) {
	var m LinearModel
	if err := json.Unmarshal(params, &m); err != nil {
		return nil, err
	}
	if len(m.Coefficients) != n {
		return nil, fmt.Errorf("%d coefficients for %d features", len(m.Coefficients), n)
	}
	if m.Mean == nil {
		m.Mean = make([]float64, n)
	}
	if m.Scale == nil {
		m.Scale = make([]float64, n)
		for i := range m.Scale {
			m.Scale[i] = 1
		}
	}
	if len(m.Mean) != n || len(m.Scale) != n {
		return nil, fmt.Errorf("mean/scale length does not match %d features", n)
	}
	return &m, nil
}

func (m *LinearModel) Predict(x []float64) (float64, error) {
	if len(x) != len(m.Coefficients) {
		return 0, fmt.Errorf("%w: %d values for %d coefficients", common.ErrSchemaMismatch, len(x), len(m.Coefficients))
	}
	y := m.Intercept
	for i, v := range x {
		scale := m.Scale[i]
		if scale == 0 {
			scale = 1
		}
		y += m.Coefficients[i] * (v - m.Mean[i]) / scale
	}
	if math.IsNaN(y) || math.IsInf(y, 0) {
		return 0, fmt.Errorf("prediction is not finite")
	}
	return y, nil
}
