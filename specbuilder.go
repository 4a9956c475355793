package vizier

import (
	"github.com/tansa-ml/vizier-go/vizierpb"
)

// StudySpecBuilder assembles a *vizierpb.StudySpec. The zero value is
// not usable; start with NewStudySpec.
type StudySpecBuilder struct {
	algorithm string
	noise     vizierpb.ObservationNoise
	metrics   []*vizierpb.MetricSpec
	params    []*vizierpb.ParameterSpec
	stopping  *vizierpb.AutomatedStoppingSpec
	metadata  []Metadata
	pythia    *string
}

// NewStudySpec starts a study spec for the named algorithm. An empty
// algorithm selects the service's default.
func NewStudySpec(algorithm string, noise vizierpb.ObservationNoise) *StudySpecBuilder {
	return &StudySpecBuilder{algorithm: algorithm, noise: noise}
}

// WithMetrics appends metric specs. At least one metric is required
// for the service to accept the study.
func (b *StudySpecBuilder) WithMetrics(metrics ...*vizierpb.MetricSpec) *StudySpecBuilder {
	b.metrics = append(b.metrics, metrics...)
	return b
}

// WithParameters appends parameter specs describing the search space.
func (b *StudySpecBuilder) WithParameters(params ...*vizierpb.ParameterSpec) *StudySpecBuilder {
	b.params = append(b.params, params...)
	return b
}

// WithAutomatedStopping sets the automated stopping spec.
func (b *StudySpecBuilder) WithAutomatedStopping(spec *vizierpb.AutomatedStoppingSpec) *StudySpecBuilder {
	b.stopping = spec
	return b
}

// WithMetadata appends study-level metadata. Only client metadata in
// the default namespace may be written; Build rejects anything else.
func (b *StudySpecBuilder) WithMetadata(md ...Metadata) *StudySpecBuilder {
	b.metadata = append(b.metadata, md...)
	return b
}

// WithPythiaEndpoint routes the study to a custom Pythia policy
// endpoint.
func (b *StudySpecBuilder) WithPythiaEndpoint(endpoint string) *StudySpecBuilder {
	b.pythia = &endpoint
	return b
}

// Build produces the wire spec. It fails if any attached metadata
// cannot be encoded.
func (b *StudySpecBuilder) Build() (*vizierpb.StudySpec, error) {
	md, err := encodeMetadataSlice(b.metadata)
	if err != nil {
		return nil, err
	}
	return &vizierpb.StudySpec{
		Metrics:               b.metrics,
		Parameters:            b.params,
		Algorithm:             b.algorithm,
		ObservationNoise:      b.noise,
		AutomatedStoppingSpec: b.stopping,
		Metadata:              md,
		PythiaEndpoint:        b.pythia,
	}, nil
}

// MaximizeMetric describes a metric the study should maximize.
func MaximizeMetric(id string) *vizierpb.MetricSpec {
	return &vizierpb.MetricSpec{MetricID: id, Goal: vizierpb.GoalTypeMaximize}
}

// MinimizeMetric describes a metric the study should minimize.
func MinimizeMetric(id string) *vizierpb.MetricSpec {
	return &vizierpb.MetricSpec{MetricID: id, Goal: vizierpb.GoalTypeMinimize}
}

// DoubleParameter describes a continuous parameter over [min, max].
// The scale defaults to unspecified; set ScaleType on the result to
// change how the range is explored.
func DoubleParameter(id string, min, max float64) *vizierpb.ParameterSpec {
	return &vizierpb.ParameterSpec{
		ParameterID:     id,
		DoubleValueSpec: &vizierpb.DoubleValueSpec{MinValue: min, MaxValue: max},
	}
}

// IntegerParameter describes an integer parameter over [min, max].
func IntegerParameter(id string, min, max int64) *vizierpb.ParameterSpec {
	return &vizierpb.ParameterSpec{
		ParameterID:      id,
		IntegerValueSpec: &vizierpb.IntegerValueSpec{MinValue: min, MaxValue: max},
	}
}

// CategoricalParameter describes a parameter drawn from a fixed set of
// strings.
func CategoricalParameter(id string, values ...string) *vizierpb.ParameterSpec {
	return &vizierpb.ParameterSpec{
		ParameterID:          id,
		CategoricalValueSpec: &vizierpb.CategoricalValueSpec{Values: values},
	}
}

// DiscreteParameter describes a parameter drawn from a fixed set of
// numbers.
func DiscreteParameter(id string, values ...float64) *vizierpb.ParameterSpec {
	return &vizierpb.ParameterSpec{
		ParameterID:       id,
		DiscreteValueSpec: &vizierpb.DiscreteValueSpec{Values: values},
	}
}
