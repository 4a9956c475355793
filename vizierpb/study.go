package vizierpb

import "google.golang.org/protobuf/types/known/timestamppb"

// StudyState is the lifecycle state of a Study.
type StudyState int32

const (
	StudyStateUnspecified StudyState = 0
	StudyStateActive      StudyState = 1
	StudyStateInactive    StudyState = 2
	StudyStateCompleted   StudyState = 3
	StudyStateAborted     StudyState = 4
)

func (s StudyState) String() string {
	switch s {
	case StudyStateActive:
		return "ACTIVE"
	case StudyStateInactive:
		return "INACTIVE"
	case StudyStateCompleted:
		return "COMPLETED"
	case StudyStateAborted:
		return "ABORTED"
	default:
		return "STATE_UNSPECIFIED"
	}
}

// Study is one optimization problem instance owned by the service.
type Study struct {
	Name           string
	DisplayName    string
	StudySpec      *StudySpec
	State          StudyState
	CreateTime     *timestamppb.Timestamp
	InactiveReason string
}

// StudySpec is the full definition of an optimization problem: its
// objective metrics, search space, algorithm selection, and stopping
// policy. The client passes it through unmodified except for the
// metadata entries, which are validated locally before encoding.
type StudySpec struct {
	Metrics               []*MetricSpec
	Parameters            []*ParameterSpec
	Algorithm             string
	ObservationNoise      ObservationNoise
	AutomatedStoppingSpec *AutomatedStoppingSpec
	Metadata              []*KeyValue
	PythiaEndpoint        *string
}

// GoalType says whether a metric is maximized or minimized.
type GoalType int32

const (
	GoalTypeUnspecified GoalType = 0
	GoalTypeMaximize    GoalType = 1
	GoalTypeMinimize    GoalType = 2
)

// ObservationNoise tells the service how noisy reported measurements
// are expected to be.
type ObservationNoise int32

const (
	ObservationNoiseUnspecified ObservationNoise = 0
	ObservationNoiseLow         ObservationNoise = 1
	ObservationNoiseHigh        ObservationNoise = 2
)

// ScaleType is how a numeric parameter is rescaled during search.
type ScaleType int32

const (
	ScaleTypeUnspecified    ScaleType = 0
	ScaleTypeUnitLinear     ScaleType = 1
	ScaleTypeUnitLog        ScaleType = 2
	ScaleTypeUnitReverseLog ScaleType = 3
)

// MetricSpec declares one objective metric of a study.
type MetricSpec struct {
	MetricID     string
	Goal         GoalType
	SafetyConfig *SafetyMetricConfig
}

// SafetyMetricConfig marks a metric as a safety constraint rather than
// an objective.
type SafetyMetricConfig struct {
	SafetyThreshold              float64
	DesiredMinSafeTrialsFraction *float64
}

// ParameterSpec declares one search-space dimension. Exactly one of
// the four value specs is set.
type ParameterSpec struct {
	ParameterID string
	ScaleType   ScaleType

	DoubleValueSpec      *DoubleValueSpec
	IntegerValueSpec     *IntegerValueSpec
	CategoricalValueSpec *CategoricalValueSpec
	DiscreteValueSpec    *DiscreteValueSpec

	ConditionalParameterSpecs []*ConditionalParameterSpec
}

// DoubleValueSpec bounds a continuous parameter.
type DoubleValueSpec struct {
	MinValue     float64
	MaxValue     float64
	DefaultValue *float64
}

// IntegerValueSpec bounds an integer parameter.
type IntegerValueSpec struct {
	MinValue     int64
	MaxValue     int64
	DefaultValue *int64
}

// CategoricalValueSpec enumerates the values of a categorical
// parameter.
type CategoricalValueSpec struct {
	Values       []string
	DefaultValue *string
}

// DiscreteValueSpec enumerates the feasible points of a discrete
// numeric parameter.
type DiscreteValueSpec struct {
	Values       []float64
	DefaultValue *float64
}

// ConditionalParameterSpec activates a child parameter only for
// certain values of its parent. Exactly one parent value condition is
// set.
type ConditionalParameterSpec struct {
	ParameterSpec *ParameterSpec

	ParentDiscreteValues    *DiscreteValueCondition
	ParentIntValues         *IntValueCondition
	ParentCategoricalValues *CategoricalValueCondition
}

// DiscreteValueCondition matches discrete parent values.
type DiscreteValueCondition struct {
	Values []float64
}

// IntValueCondition matches integer parent values.
type IntValueCondition struct {
	Values []int64
}

// CategoricalValueCondition matches categorical parent values.
type CategoricalValueCondition struct {
	Values []string
}

// AutomatedStoppingSpec selects a server-side early-stopping policy
// for the study's trials. Exactly one variant is set.
type AutomatedStoppingSpec struct {
	DecayCurve *DecayCurveAutomatedStoppingSpec
	Median     *MedianAutomatedStoppingSpec
}

// DecayCurveAutomatedStoppingSpec stops trials whose performance curve
// is unlikely to beat the best result seen so far.
type DecayCurveAutomatedStoppingSpec struct {
	UseElapsedDuration bool
}

// MedianAutomatedStoppingSpec stops trials performing below the median
// of completed trials at the same step.
type MedianAutomatedStoppingSpec struct {
	UseElapsedDuration bool
}
