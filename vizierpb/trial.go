package vizierpb

import (
	"google.golang.org/protobuf/types/known/durationpb"
	"google.golang.org/protobuf/types/known/structpb"
	"google.golang.org/protobuf/types/known/timestamppb"
)

// TrialState is the lifecycle state of a Trial.
type TrialState int32

const (
	TrialStateUnspecified TrialState = 0
	TrialStateActive      TrialState = 1
	TrialStateStopping    TrialState = 2
	TrialStateSucceeded   TrialState = 3
	TrialStateInfeasible  TrialState = 4
)

// Terminal reports whether s admits no further lifecycle transitions.
func (s TrialState) Terminal() bool {
	return s == TrialStateSucceeded || s == TrialStateInfeasible
}

func (s TrialState) String() string {
	switch s {
	case TrialStateActive:
		return "ACTIVE"
	case TrialStateStopping:
		return "STOPPING"
	case TrialStateSucceeded:
		return "SUCCEEDED"
	case TrialStateInfeasible:
		return "INFEASIBLE"
	default:
		return "STATE_UNSPECIFIED"
	}
}

// Trial is one candidate parameter assignment plus its evaluation
// history.
type Trial struct {
	Name             string
	ID               string
	State            TrialState
	Parameters       []*TrialParameter
	FinalMeasurement *Measurement
	Measurements     []*Measurement
	StartTime        *timestamppb.Timestamp
	EndTime          *timestamppb.Timestamp
	ClientID         string
	InfeasibleReason string
	Metadata         []*KeyValue
}

// TrialParameter is one suggested parameter value.
type TrialParameter struct {
	ParameterID string
	Value       *structpb.Value
}

// Measurement is a snapshot of metric values observed for a trial at
// one step.
type Measurement struct {
	ElapsedDuration *durationpb.Duration
	StepCount       int64
	Metrics         []*Metric
}

// Metric is one named metric value inside a measurement.
type Metric struct {
	MetricID string
	Value    float64
}
