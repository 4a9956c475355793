package vizier

import (
	"math"
	"time"

	"google.golang.org/protobuf/types/known/durationpb"
	"google.golang.org/protobuf/types/known/structpb"

	"github.com/tansa-ml/vizier-go/vizierpb"
)

// Study is the client-side view of one optimization study, scoped to
// the client that produced it. The exported fields are a snapshot of
// the service's state at the last read; Refresh re-reads them. A Study
// is not safe for concurrent use.
type Study struct {
	c *Client

	// Name identifies the study.
	Name StudyName
	// DisplayName is the human-readable name the study was created
	// under.
	DisplayName string
	// State is the study's lifecycle state.
	State vizierpb.StudyState
	// Spec is the study's definition, passed through from the service
	// unmodified.
	Spec *vizierpb.StudySpec
	// CreateTime is when the service created the study.
	CreateTime time.Time
	// InactiveReason says why the service deactivated the study, when
	// it did.
	InactiveReason string
}

// Trial is the client-side view of one trial, scoped to the client
// that produced it. The exported fields are a snapshot; AddMeasurement,
// Complete, Stop, and Refresh keep it in step with the service. A
// Trial is not safe for concurrent use.
type Trial struct {
	c *Client

	// Name identifies the trial.
	Name TrialName
	// State is the trial's lifecycle state. SUCCEEDED and INFEASIBLE
	// are terminal: once either is reached the trial rejects further
	// mutation locally, without a remote call.
	State vizierpb.TrialState
	// Parameters is the suggested parameter assignment.
	Parameters []Parameter
	// Measurements is the trial's evaluation history in report order.
	Measurements []Measurement
	// FinalMeasurement is set once the trial completed successfully.
	FinalMeasurement *Measurement
	// ClientID is the suggestion client the trial was handed to.
	ClientID string
	// InfeasibleReason is set once the trial completed as INFEASIBLE.
	InfeasibleReason string
	// Metadata is the trial's decoded metadata.
	Metadata []Metadata
	// StartTime is when the trial was created.
	StartTime time.Time
	// EndTime is when the trial reached a terminal state.
	EndTime time.Time
}

// Parameter is one suggested parameter value. Value holds the wire
// representation; the typed accessors cover the common cases.
type Parameter struct {
	ID    string
	Value *structpb.Value
}

// Float64 returns the parameter as a float64. ok is false when the
// value is not numeric.
func (p Parameter) Float64() (v float64, ok bool) {
	if _, isNum := p.Value.GetKind().(*structpb.Value_NumberValue); !isNum {
		return 0, false
	}
	return p.Value.GetNumberValue(), true
}

// Int64 returns the parameter as an int64. ok is false when the value
// is not numeric or not integral.
func (p Parameter) Int64() (v int64, ok bool) {
	f, isNum := p.Float64()
	if !isNum || f != math.Trunc(f) {
		return 0, false
	}
	return int64(f), true
}

// Text returns the parameter as a string, as suggested for categorical
// parameters. ok is false when the value is not a string.
func (p Parameter) Text() (v string, ok bool) {
	if _, isStr := p.Value.GetKind().(*structpb.Value_StringValue); !isStr {
		return "", false
	}
	return p.Value.GetStringValue(), true
}

// NumberParameter builds a numeric parameter assignment, for trials
// created with CreateTrial.
func NumberParameter(id string, v float64) Parameter {
	return Parameter{ID: id, Value: structpb.NewNumberValue(v)}
}

// TextParameter builds a string parameter assignment, as categorical
// parameters expect.
func TextParameter(id, v string) Parameter {
	return Parameter{ID: id, Value: structpb.NewStringValue(v)}
}

// Measurement is a snapshot of metric values observed at one step of a
// trial's evaluation. Once reported it is immutable.
type Measurement struct {
	// Elapsed is how long the evaluation had been running at this
	// step.
	Elapsed time.Duration
	// StepCount is the step marker, e.g. a training epoch.
	StepCount int64
	// Metrics are the observed values.
	Metrics []Metric
}

// Metric is one named metric value.
type Metric struct {
	ID    string
	Value float64
}

func studyFromProto(c *Client, p *vizierpb.Study) (*Study, error) {
	name, err := ParseStudyName(p.Name)
	if err != nil {
		return nil, err
	}
	s := &Study{
		c:              c,
		Name:           name,
		DisplayName:    p.DisplayName,
		State:          p.State,
		Spec:           p.StudySpec,
		InactiveReason: p.InactiveReason,
	}
	if p.CreateTime != nil {
		s.CreateTime = p.CreateTime.AsTime()
	}
	return s, nil
}

func trialFromProto(c *Client, p *vizierpb.Trial) (*Trial, error) {
	name, err := ParseTrialName(p.Name)
	if err != nil {
		return nil, err
	}
	md, err := decodeMetadataSlice(p.Metadata)
	if err != nil {
		return nil, err
	}
	t := &Trial{
		c:                c,
		Name:             name,
		State:            p.State,
		ClientID:         p.ClientID,
		InfeasibleReason: p.InfeasibleReason,
		Metadata:         md,
	}
	for _, pp := range p.Parameters {
		t.Parameters = append(t.Parameters, Parameter{ID: pp.ParameterID, Value: pp.Value})
	}
	for _, pm := range p.Measurements {
		t.Measurements = append(t.Measurements, measurementFromProto(pm))
	}
	if p.FinalMeasurement != nil {
		fm := measurementFromProto(p.FinalMeasurement)
		t.FinalMeasurement = &fm
	}
	if p.StartTime != nil {
		t.StartTime = p.StartTime.AsTime()
	}
	if p.EndTime != nil {
		t.EndTime = p.EndTime.AsTime()
	}
	return t, nil
}

func measurementFromProto(p *vizierpb.Measurement) Measurement {
	m := Measurement{StepCount: p.StepCount}
	if p.ElapsedDuration != nil {
		m.Elapsed = p.ElapsedDuration.AsDuration()
	}
	for _, pm := range p.Metrics {
		m.Metrics = append(m.Metrics, Metric{ID: pm.MetricID, Value: pm.Value})
	}
	return m
}

func measurementToProto(m Measurement) *vizierpb.Measurement {
	p := &vizierpb.Measurement{
		ElapsedDuration: durationpb.New(m.Elapsed),
		StepCount:       m.StepCount,
	}
	for _, mt := range m.Metrics {
		p.Metrics = append(p.Metrics, &vizierpb.Metric{MetricID: mt.ID, Value: mt.Value})
	}
	return p
}

func parametersToProto(params []Parameter) []*vizierpb.TrialParameter {
	if len(params) == 0 {
		return nil
	}
	ps := make([]*vizierpb.TrialParameter, 0, len(params))
	for _, p := range params {
		ps = append(ps, &vizierpb.TrialParameter{ParameterID: p.ID, Value: p.Value})
	}
	return ps
}
