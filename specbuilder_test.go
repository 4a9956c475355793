package vizier

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tansa-ml/vizier-go/vizierpb"
)

func TestStudySpecBuilder(t *testing.T) {
	lrParam := DoubleParameter("lr", 1e-4, 1e-1)
	lrParam.ScaleType = vizierpb.ScaleTypeUnitLog

	spec, err := NewStudySpec("GAUSSIAN_PROCESS_BANDIT", vizierpb.ObservationNoiseHigh).
		WithMetrics(MinimizeMetric("loss"), MaximizeMetric("accuracy")).
		WithParameters(
			lrParam,
			IntegerParameter("layers", 1, 8),
			CategoricalParameter("optimizer", "adam", "sgd"),
			DiscreteParameter("batch", 32, 64, 128),
		).
		WithAutomatedStopping(&vizierpb.AutomatedStoppingSpec{
			Median: &vizierpb.MedianAutomatedStoppingSpec{UseElapsedDuration: true},
		}).
		WithMetadata(NewMetadata("experiment", StringValue("v2"))).
		WithPythiaEndpoint("pythia.internal:9000").
		Build()
	require.NoError(t, err)

	assert.Equal(t, "GAUSSIAN_PROCESS_BANDIT", spec.Algorithm)
	assert.Equal(t, vizierpb.ObservationNoiseHigh, spec.ObservationNoise)

	require.Len(t, spec.Metrics, 2)
	assert.Equal(t, vizierpb.GoalTypeMinimize, spec.Metrics[0].Goal)
	assert.Equal(t, vizierpb.GoalTypeMaximize, spec.Metrics[1].Goal)

	require.Len(t, spec.Parameters, 4)
	assert.Equal(t, vizierpb.ScaleTypeUnitLog, spec.Parameters[0].ScaleType)
	require.NotNil(t, spec.Parameters[1].IntegerValueSpec)
	assert.Equal(t, int64(8), spec.Parameters[1].IntegerValueSpec.MaxValue)
	require.NotNil(t, spec.Parameters[2].CategoricalValueSpec)
	assert.Equal(t, []string{"adam", "sgd"}, spec.Parameters[2].CategoricalValueSpec.Values)
	require.NotNil(t, spec.Parameters[3].DiscreteValueSpec)
	assert.Equal(t, []float64{32, 64, 128}, spec.Parameters[3].DiscreteValueSpec.Values)

	require.NotNil(t, spec.AutomatedStoppingSpec)
	require.NotNil(t, spec.AutomatedStoppingSpec.Median)

	require.Len(t, spec.Metadata, 1)
	assert.Equal(t, "experiment", spec.Metadata[0].Key)
	require.NotNil(t, spec.Metadata[0].Value)
	assert.Equal(t, "v2", *spec.Metadata[0].Value)

	require.NotNil(t, spec.PythiaEndpoint)
	assert.Equal(t, "pythia.internal:9000", *spec.PythiaEndpoint)
}

func TestStudySpecBuilder_Minimal(t *testing.T) {
	spec, err := NewStudySpec("", vizierpb.ObservationNoiseUnspecified).Build()
	require.NoError(t, err)

	assert.Empty(t, spec.Algorithm)
	assert.Empty(t, spec.Metrics)
	assert.Empty(t, spec.Metadata)
	assert.Nil(t, spec.PythiaEndpoint)
}

func TestStudySpecBuilder_ReservedMetadataRejected(t *testing.T) {
	_, err := NewStudySpec("GRID_SEARCH", vizierpb.ObservationNoiseLow).
		WithMetadata(Metadata{Key: "state", Namespace: "oss_vizier", Value: StringValue("x")}).
		Build()
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrReservedNamespace)
}

func TestParameterSpecHelpers(t *testing.T) {
	d := DoubleParameter("lr", 0.001, 0.1)
	assert.Equal(t, "lr", d.ParameterID)
	require.NotNil(t, d.DoubleValueSpec)
	assert.Equal(t, 0.001, d.DoubleValueSpec.MinValue)
	assert.Equal(t, 0.1, d.DoubleValueSpec.MaxValue)
	assert.Nil(t, d.IntegerValueSpec)
	assert.Nil(t, d.CategoricalValueSpec)
	assert.Nil(t, d.DiscreteValueSpec)
}
