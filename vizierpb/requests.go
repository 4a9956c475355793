package vizierpb

import (
	statuspb "google.golang.org/genproto/googleapis/rpc/status"
	"google.golang.org/protobuf/types/known/timestamppb"
)

// CreateStudyRequest registers a new study under an owner.
type CreateStudyRequest struct {
	Parent string
	Study  *Study
}

// GetStudyRequest reads one study by resource name.
type GetStudyRequest struct {
	Name string
}

// ListStudiesRequest pages through the studies of an owner.
type ListStudiesRequest struct {
	Parent    string
	PageSize  int32
	PageToken string
}

// ListStudiesResponse is one page of studies.
type ListStudiesResponse struct {
	Studies       []*Study
	NextPageToken string
}

// DeleteStudyRequest removes a study and all of its trials.
type DeleteStudyRequest struct {
	Name string
}

// StopStudyRequest asks the service to stop a study; the returned
// study carries the authoritative terminal state.
type StopStudyRequest struct {
	Name string
}

// SuggestTrialsRequest asks for up to SuggestionCount new trials.
// ClientID identifies the requesting worker; the service returns the
// pending suggestions for a client ID that asks again, which is what
// makes the call safe to retry.
type SuggestTrialsRequest struct {
	Parent          string
	SuggestionCount int32
	ClientID        string
}

// SuggestTrialsResponse is the result payload of a completed suggest
// operation.
type SuggestTrialsResponse struct {
	Trials     []*Trial
	StudyState StudyState
	StartTime  *timestamppb.Timestamp
	EndTime    *timestamppb.Timestamp
}

// SuggestOperation mirrors the long-running operation wrapping a
// suggestion round. Service implementations decode the operation's
// result payload into Response before returning; Error carries the
// failure status of an operation that finished unsuccessfully. Name
// is valid for polling via GetOperation until Done is observed.
type SuggestOperation struct {
	Name     string
	Done     bool
	Error    *statuspb.Status
	Response *SuggestTrialsResponse
}

// GetOperationRequest polls one suggest operation by name.
type GetOperationRequest struct {
	Name string
}

// CreateTrialRequest registers a caller-constructed trial, bypassing
// the suggestion algorithm.
type CreateTrialRequest struct {
	Parent string
	Trial  *Trial
}

// GetTrialRequest reads one trial by resource name.
type GetTrialRequest struct {
	Name string
}

// ListTrialsRequest pages through the trials of a study.
type ListTrialsRequest struct {
	Parent    string
	PageSize  int32
	PageToken string
}

// ListTrialsResponse is one page of trials.
type ListTrialsResponse struct {
	Trials        []*Trial
	NextPageToken string
}

// AddTrialMeasurementRequest appends one intermediate measurement to
// an active trial.
type AddTrialMeasurementRequest struct {
	TrialName   string
	Measurement *Measurement
}

// CompleteTrialRequest finishes a trial. Either FinalMeasurement is
// set and the trial succeeds, or TrialInfeasible is set with a reason
// and the trial is recorded as infeasible.
type CompleteTrialRequest struct {
	Name             string
	FinalMeasurement *Measurement
	TrialInfeasible  bool
	InfeasibleReason string
}

// CheckTrialEarlyStoppingStateRequest asks whether a trial should stop
// early.
type CheckTrialEarlyStoppingStateRequest struct {
	TrialName string
}

// CheckTrialEarlyStoppingStateResponse reports the early-stopping
// verdict.
type CheckTrialEarlyStoppingStateResponse struct {
	ShouldStop bool
}

// StopTrialRequest asks the service to stop one trial.
type StopTrialRequest struct {
	Name string
}

// DeleteTrialRequest removes one trial.
type DeleteTrialRequest struct {
	Name string
}

// ListOptimalTrialsRequest asks for the pareto-optimal trials of a
// study.
type ListOptimalTrialsRequest struct {
	Parent    string
	PageSize  int32
	PageToken string
}

// ListOptimalTrialsResponse holds the pareto-optimal trials.
type ListOptimalTrialsResponse struct {
	OptimalTrials []*Trial
}
