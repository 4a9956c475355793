// Package viziertest provides an in-memory vizierpb.Service for tests.
//
// Usage:
//
//	fake := viziertest.NewFake()
//	client, err := vizier.NewClient(vizier.Config{Owner: "acme", Service: fake})
//
// The fake keeps studies and trials in memory and hands out
// deterministic suggestions (range midpoints, first categorical
// values); it exercises plumbing, not optimization. Per-method call
// counters and scriptable failures are exposed for driving the
// client's retry and error paths. Knob fields are read under the
// fake's lock; set them during setup or between calls, not while a
// call is in flight.
package viziertest

import (
	"context"
	"fmt"
	"strconv"
	"sync"

	statuspb "google.golang.org/genproto/googleapis/rpc/status"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
	"google.golang.org/protobuf/types/known/durationpb"
	"google.golang.org/protobuf/types/known/emptypb"
	"google.golang.org/protobuf/types/known/structpb"
	"google.golang.org/protobuf/types/known/timestamppb"

	"github.com/tansa-ml/vizier-go/vizierpb"
)

// assignKey identifies one client's suggestion assignment in a study.
type assignKey struct {
	study  string
	client string
}

// fakeOp is the server-side record of a suggestion operation.
type fakeOp struct {
	name      string
	study     string
	trials    []string
	pollsLeft int
	done      bool
	failErr   error
}

// Fake is an in-memory implementation of vizierpb.Service. Safe for
// concurrent use.
type Fake struct {
	// OperationPolls is the number of GetOperation calls a suggestion
	// operation absorbs before reporting done. Zero completes
	// operations synchronously inside SuggestTrials.
	OperationPolls int
	// SuggestionCap bounds the total number of trials suggested per
	// study; once reached, SuggestTrials hands out empty results. Zero
	// means no cap.
	SuggestionCap int
	// OperationError, when set, makes suggestion operations started
	// while it is set finish with this error's gRPC status instead of
	// a response.
	OperationError error

	mu            sync.Mutex
	studies       []*vizierpb.Study
	trialsByName  map[string]*vizierpb.Trial
	trialsByStudy map[string][]string
	ops           map[string]*fakeOp
	assigned      map[assignKey][]string
	suggested     map[string]int
	nextTrial     map[string]int64
	nextOp        int64
	calls         map[string]int
	failures      map[string][]error
}

// NewFake returns an empty fake service.
func NewFake() *Fake {
	return &Fake{
		trialsByName:  make(map[string]*vizierpb.Trial),
		trialsByStudy: make(map[string][]string),
		ops:           make(map[string]*fakeOp),
		assigned:      make(map[assignKey][]string),
		suggested:     make(map[string]int),
		nextTrial:     make(map[string]int64),
		calls:         make(map[string]int),
		failures:      make(map[string][]error),
	}
}

// Calls reports how many times the named method has been invoked,
// including invocations that failed.
func (f *Fake) Calls(method string) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls[method]
}

// FailNext queues errors for the named method: each of the next
// len(errs) calls consumes one queued error and returns it instead of
// executing.
func (f *Fake) FailNext(method string, errs ...error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.failures[method] = append(f.failures[method], errs...)
}

// begin records the call and surfaces context cancellation or a queued
// failure. Callers hold f.mu.
func (f *Fake) begin(ctx context.Context, method string) error {
	f.calls[method]++
	if err := ctx.Err(); err != nil {
		return status.FromContextError(err).Err()
	}
	if q := f.failures[method]; len(q) > 0 {
		err := q[0]
		f.failures[method] = q[1:]
		return err
	}
	return nil
}

func (f *Fake) CreateStudy(ctx context.Context, req *vizierpb.CreateStudyRequest) (*vizierpb.Study, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.begin(ctx, "CreateStudy"); err != nil {
		return nil, err
	}
	if req.Study == nil || req.Study.DisplayName == "" {
		return nil, status.Error(codes.InvalidArgument, "study with a display name is required")
	}
	// The service derives the study's resource id from its display
	// name, so re-creating an existing study returns it unchanged.
	name := req.Parent + "/studies/" + req.Study.DisplayName
	if existing := f.findStudy(name); existing != nil {
		return cloneStudy(existing), nil
	}
	s := &vizierpb.Study{
		Name:        name,
		DisplayName: req.Study.DisplayName,
		StudySpec:   req.Study.StudySpec,
		State:       vizierpb.StudyStateActive,
		CreateTime:  timestamppb.Now(),
	}
	f.studies = append(f.studies, s)
	return cloneStudy(s), nil
}

func (f *Fake) GetStudy(ctx context.Context, req *vizierpb.GetStudyRequest) (*vizierpb.Study, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.begin(ctx, "GetStudy"); err != nil {
		return nil, err
	}
	s := f.findStudy(req.Name)
	if s == nil {
		return nil, status.Errorf(codes.NotFound, "study %q not found", req.Name)
	}
	return cloneStudy(s), nil
}

func (f *Fake) ListStudies(ctx context.Context, req *vizierpb.ListStudiesRequest) (*vizierpb.ListStudiesResponse, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.begin(ctx, "ListStudies"); err != nil {
		return nil, err
	}
	var owned []*vizierpb.Study
	prefix := req.Parent + "/studies/"
	for _, s := range f.studies {
		if len(s.Name) > len(prefix) && s.Name[:len(prefix)] == prefix {
			owned = append(owned, s)
		}
	}
	start, end, next, err := pageBounds(len(owned), req.PageSize, req.PageToken)
	if err != nil {
		return nil, err
	}
	resp := &vizierpb.ListStudiesResponse{NextPageToken: next}
	for _, s := range owned[start:end] {
		resp.Studies = append(resp.Studies, cloneStudy(s))
	}
	return resp, nil
}

func (f *Fake) DeleteStudy(ctx context.Context, req *vizierpb.DeleteStudyRequest) (*emptypb.Empty, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.begin(ctx, "DeleteStudy"); err != nil {
		return nil, err
	}
	if f.findStudy(req.Name) == nil {
		return nil, status.Errorf(codes.NotFound, "study %q not found", req.Name)
	}
	for i, s := range f.studies {
		if s.Name == req.Name {
			f.studies = append(f.studies[:i], f.studies[i+1:]...)
			break
		}
	}
	for _, name := range f.trialsByStudy[req.Name] {
		delete(f.trialsByName, name)
	}
	delete(f.trialsByStudy, req.Name)
	for key := range f.assigned {
		if key.study == req.Name {
			delete(f.assigned, key)
		}
	}
	return &emptypb.Empty{}, nil
}

func (f *Fake) StopStudy(ctx context.Context, req *vizierpb.StopStudyRequest) (*vizierpb.Study, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.begin(ctx, "StopStudy"); err != nil {
		return nil, err
	}
	s := f.findStudy(req.Name)
	if s == nil {
		return nil, status.Errorf(codes.NotFound, "study %q not found", req.Name)
	}
	if s.State == vizierpb.StudyStateActive {
		s.State = vizierpb.StudyStateCompleted
		s.InactiveReason = "stopped by client"
	}
	return cloneStudy(s), nil
}

func (f *Fake) SuggestTrials(ctx context.Context, req *vizierpb.SuggestTrialsRequest) (*vizierpb.SuggestOperation, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.begin(ctx, "SuggestTrials"); err != nil {
		return nil, err
	}
	s := f.findStudy(req.Parent)
	if s == nil {
		return nil, status.Errorf(codes.NotFound, "study %q not found", req.Parent)
	}

	key := assignKey{study: req.Parent, client: req.ClientID}
	var names []string
	for _, name := range f.assigned[key] {
		if t := f.trialsByName[name]; t != nil && !t.State.Terminal() {
			names = append(names, name)
		}
	}
	// A client that asks again before finishing its assignment gets
	// the same ACTIVE trials back rather than new ones.
	if len(names) == 0 && s.State == vizierpb.StudyStateActive {
		count := int(req.SuggestionCount)
		if f.SuggestionCap > 0 && f.suggested[req.Parent]+count > f.SuggestionCap {
			count = f.SuggestionCap - f.suggested[req.Parent]
		}
		for range max(count, 0) {
			t := f.newTrial(req.Parent, req.ClientID)
			names = append(names, t.Name)
		}
		f.suggested[req.Parent] += len(names)
	}
	f.assigned[key] = names

	f.nextOp++
	op := &fakeOp{
		name:      fmt.Sprintf("%s/operations/%d", req.Parent, f.nextOp),
		study:     req.Parent,
		trials:    names,
		pollsLeft: f.OperationPolls,
		failErr:   f.OperationError,
	}
	if op.pollsLeft <= 0 {
		op.done = true
	}
	f.ops[op.name] = op
	return f.operationView(op), nil
}

func (f *Fake) GetOperation(ctx context.Context, req *vizierpb.GetOperationRequest) (*vizierpb.SuggestOperation, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.begin(ctx, "GetOperation"); err != nil {
		return nil, err
	}
	op := f.ops[req.Name]
	if op == nil {
		return nil, status.Errorf(codes.NotFound, "operation %q not found", req.Name)
	}
	if !op.done {
		op.pollsLeft--
		if op.pollsLeft <= 0 {
			op.done = true
		}
	}
	return f.operationView(op), nil
}

// operationView renders the wire message for an operation's current
// state. Callers hold f.mu.
func (f *Fake) operationView(op *fakeOp) *vizierpb.SuggestOperation {
	out := &vizierpb.SuggestOperation{Name: op.name, Done: op.done}
	if !op.done {
		return out
	}
	if op.failErr != nil {
		out.Error = statusProto(op.failErr)
		return out
	}
	resp := &vizierpb.SuggestTrialsResponse{}
	if s := f.findStudy(op.study); s != nil {
		resp.StudyState = s.State
	}
	for _, name := range op.trials {
		if t := f.trialsByName[name]; t != nil {
			resp.Trials = append(resp.Trials, cloneTrial(t))
		}
	}
	out.Response = resp
	return out
}

func (f *Fake) CreateTrial(ctx context.Context, req *vizierpb.CreateTrialRequest) (*vizierpb.Trial, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.begin(ctx, "CreateTrial"); err != nil {
		return nil, err
	}
	if f.findStudy(req.Parent) == nil {
		return nil, status.Errorf(codes.NotFound, "study %q not found", req.Parent)
	}
	t := f.newTrial(req.Parent, "")
	if req.Trial != nil {
		t.Parameters = cloneParameters(req.Trial.Parameters)
		t.ClientID = req.Trial.ClientID
		t.Metadata = cloneKeyValues(req.Trial.Metadata)
	}
	return cloneTrial(t), nil
}

func (f *Fake) GetTrial(ctx context.Context, req *vizierpb.GetTrialRequest) (*vizierpb.Trial, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.begin(ctx, "GetTrial"); err != nil {
		return nil, err
	}
	t := f.trialsByName[req.Name]
	if t == nil {
		return nil, status.Errorf(codes.NotFound, "trial %q not found", req.Name)
	}
	return cloneTrial(t), nil
}

func (f *Fake) ListTrials(ctx context.Context, req *vizierpb.ListTrialsRequest) (*vizierpb.ListTrialsResponse, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.begin(ctx, "ListTrials"); err != nil {
		return nil, err
	}
	if f.findStudy(req.Parent) == nil {
		return nil, status.Errorf(codes.NotFound, "study %q not found", req.Parent)
	}
	names := f.trialsByStudy[req.Parent]
	start, end, next, err := pageBounds(len(names), req.PageSize, req.PageToken)
	if err != nil {
		return nil, err
	}
	resp := &vizierpb.ListTrialsResponse{NextPageToken: next}
	for _, name := range names[start:end] {
		resp.Trials = append(resp.Trials, cloneTrial(f.trialsByName[name]))
	}
	return resp, nil
}

func (f *Fake) AddTrialMeasurement(ctx context.Context, req *vizierpb.AddTrialMeasurementRequest) (*vizierpb.Trial, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.begin(ctx, "AddTrialMeasurement"); err != nil {
		return nil, err
	}
	t := f.trialsByName[req.TrialName]
	if t == nil {
		return nil, status.Errorf(codes.NotFound, "trial %q not found", req.TrialName)
	}
	if t.State.Terminal() {
		return nil, status.Errorf(codes.FailedPrecondition, "trial %q is %s", req.TrialName, t.State)
	}
	if req.Measurement == nil {
		return nil, status.Error(codes.InvalidArgument, "measurement is required")
	}
	t.Measurements = append(t.Measurements, cloneMeasurement(req.Measurement))
	return cloneTrial(t), nil
}

func (f *Fake) CompleteTrial(ctx context.Context, req *vizierpb.CompleteTrialRequest) (*vizierpb.Trial, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.begin(ctx, "CompleteTrial"); err != nil {
		return nil, err
	}
	t := f.trialsByName[req.Name]
	if t == nil {
		return nil, status.Errorf(codes.NotFound, "trial %q not found", req.Name)
	}
	// Completing an already terminal trial is level-setting, not an
	// error; a retried completion converges on the same state.
	if !t.State.Terminal() {
		switch {
		case req.TrialInfeasible:
			t.State = vizierpb.TrialStateInfeasible
			t.InfeasibleReason = req.InfeasibleReason
		case req.FinalMeasurement != nil:
			t.State = vizierpb.TrialStateSucceeded
			t.FinalMeasurement = cloneMeasurement(req.FinalMeasurement)
		case len(t.Measurements) > 0:
			t.State = vizierpb.TrialStateSucceeded
			t.FinalMeasurement = cloneMeasurement(t.Measurements[len(t.Measurements)-1])
		default:
			return nil, status.Error(codes.InvalidArgument, "a final measurement or an infeasible reason is required")
		}
		t.EndTime = timestamppb.Now()
		f.unassign(req.Name)
	}
	return cloneTrial(t), nil
}

func (f *Fake) CheckTrialEarlyStoppingState(ctx context.Context, req *vizierpb.CheckTrialEarlyStoppingStateRequest) (*vizierpb.CheckTrialEarlyStoppingStateResponse, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.begin(ctx, "CheckTrialEarlyStoppingState"); err != nil {
		return nil, err
	}
	t := f.trialsByName[req.TrialName]
	if t == nil {
		return nil, status.Errorf(codes.NotFound, "trial %q not found", req.TrialName)
	}
	return &vizierpb.CheckTrialEarlyStoppingStateResponse{
		ShouldStop: t.State == vizierpb.TrialStateStopping,
	}, nil
}

func (f *Fake) StopTrial(ctx context.Context, req *vizierpb.StopTrialRequest) (*vizierpb.Trial, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.begin(ctx, "StopTrial"); err != nil {
		return nil, err
	}
	t := f.trialsByName[req.Name]
	if t == nil {
		return nil, status.Errorf(codes.NotFound, "trial %q not found", req.Name)
	}
	if t.State.Terminal() {
		return nil, status.Errorf(codes.FailedPrecondition, "trial %q is %s", req.Name, t.State)
	}
	t.State = vizierpb.TrialStateStopping
	return cloneTrial(t), nil
}

func (f *Fake) DeleteTrial(ctx context.Context, req *vizierpb.DeleteTrialRequest) (*emptypb.Empty, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.begin(ctx, "DeleteTrial"); err != nil {
		return nil, err
	}
	t := f.trialsByName[req.Name]
	if t == nil {
		return nil, status.Errorf(codes.NotFound, "trial %q not found", req.Name)
	}
	delete(f.trialsByName, req.Name)
	for study, names := range f.trialsByStudy {
		for i, name := range names {
			if name == req.Name {
				f.trialsByStudy[study] = append(names[:i], names[i+1:]...)
				break
			}
		}
	}
	f.unassign(req.Name)
	return &emptypb.Empty{}, nil
}

func (f *Fake) ListOptimalTrials(ctx context.Context, req *vizierpb.ListOptimalTrialsRequest) (*vizierpb.ListOptimalTrialsResponse, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.begin(ctx, "ListOptimalTrials"); err != nil {
		return nil, err
	}
	s := f.findStudy(req.Parent)
	if s == nil {
		return nil, status.Errorf(codes.NotFound, "study %q not found", req.Parent)
	}
	goal := vizierpb.GoalTypeMaximize
	if s.StudySpec != nil && len(s.StudySpec.Metrics) > 0 {
		if g := s.StudySpec.Metrics[0].Goal; g != vizierpb.GoalTypeUnspecified {
			goal = g
		}
	}

	// Single-objective selection over the first final metric; ties all
	// count as optimal.
	var best []*vizierpb.Trial
	var bestValue float64
	for _, name := range f.trialsByStudy[req.Parent] {
		t := f.trialsByName[name]
		if t.State != vizierpb.TrialStateSucceeded || t.FinalMeasurement == nil || len(t.FinalMeasurement.Metrics) == 0 {
			continue
		}
		v := t.FinalMeasurement.Metrics[0].Value
		better := v > bestValue
		if goal == vizierpb.GoalTypeMinimize {
			better = v < bestValue
		}
		switch {
		case len(best) == 0 || better:
			best = best[:0]
			best = append(best, t)
			bestValue = v
		case v == bestValue:
			best = append(best, t)
		}
	}
	resp := &vizierpb.ListOptimalTrialsResponse{}
	for _, t := range best {
		resp.OptimalTrials = append(resp.OptimalTrials, cloneTrial(t))
	}
	return resp, nil
}

// findStudy returns the stored study or nil. Callers hold f.mu.
func (f *Fake) findStudy(name string) *vizierpb.Study {
	for _, s := range f.studies {
		if s.Name == name {
			return s
		}
	}
	return nil
}

// newTrial stores a fresh ACTIVE trial with deterministic parameters
// drawn from the study's spec. Callers hold f.mu.
func (f *Fake) newTrial(study, clientID string) *vizierpb.Trial {
	f.nextTrial[study]++
	id := strconv.FormatInt(f.nextTrial[study], 10)
	t := &vizierpb.Trial{
		Name:      study + "/trials/" + id,
		ID:        id,
		State:     vizierpb.TrialStateActive,
		ClientID:  clientID,
		StartTime: timestamppb.Now(),
	}
	if s := f.findStudy(study); s != nil && s.StudySpec != nil {
		t.Parameters = suggestParameters(s.StudySpec)
	}
	f.trialsByName[t.Name] = t
	f.trialsByStudy[study] = append(f.trialsByStudy[study], t.Name)
	return t
}

// unassign drops a trial from every client's assignment. Callers hold
// f.mu.
func (f *Fake) unassign(trial string) {
	for key, names := range f.assigned {
		for i, name := range names {
			if name == trial {
				f.assigned[key] = append(names[:i], names[i+1:]...)
				break
			}
		}
	}
}

// suggestParameters assigns the midpoint of numeric ranges and the
// first listed value otherwise.
func suggestParameters(spec *vizierpb.StudySpec) []*vizierpb.TrialParameter {
	var params []*vizierpb.TrialParameter
	for _, ps := range spec.Parameters {
		var value *structpb.Value
		switch {
		case ps.DoubleValueSpec != nil:
			value = structpb.NewNumberValue((ps.DoubleValueSpec.MinValue + ps.DoubleValueSpec.MaxValue) / 2)
		case ps.IntegerValueSpec != nil:
			value = structpb.NewNumberValue(float64((ps.IntegerValueSpec.MinValue + ps.IntegerValueSpec.MaxValue) / 2))
		case ps.CategoricalValueSpec != nil && len(ps.CategoricalValueSpec.Values) > 0:
			value = structpb.NewStringValue(ps.CategoricalValueSpec.Values[0])
		case ps.DiscreteValueSpec != nil && len(ps.DiscreteValueSpec.Values) > 0:
			value = structpb.NewNumberValue(ps.DiscreteValueSpec.Values[0])
		default:
			continue
		}
		params = append(params, &vizierpb.TrialParameter{ParameterID: ps.ParameterID, Value: value})
	}
	return params
}

// pageBounds resolves an offset-encoded page token against a
// collection of the given size. A non-positive page size returns
// everything remaining in one page.
func pageBounds(total int, pageSize int32, token string) (start, end int, next string, err error) {
	if token != "" {
		start, err = strconv.Atoi(token)
		if err != nil || start < 0 || start > total {
			return 0, 0, "", status.Errorf(codes.InvalidArgument, "invalid page token %q", token)
		}
	}
	end = total
	if pageSize > 0 && start+int(pageSize) < total {
		end = start + int(pageSize)
		next = strconv.Itoa(end)
	}
	return start, end, next, nil
}

func statusProto(err error) *statuspb.Status {
	s := status.Convert(err)
	return &statuspb.Status{Code: int32(s.Code()), Message: s.Message()}
}

func cloneStudy(s *vizierpb.Study) *vizierpb.Study {
	if s == nil {
		return nil
	}
	out := *s
	if s.CreateTime != nil {
		out.CreateTime = timestamppb.New(s.CreateTime.AsTime())
	}
	// The spec is treated as immutable once the study is created, so
	// clones share it.
	return &out
}

func cloneTrial(t *vizierpb.Trial) *vizierpb.Trial {
	if t == nil {
		return nil
	}
	out := *t
	out.Parameters = cloneParameters(t.Parameters)
	out.FinalMeasurement = cloneMeasurement(t.FinalMeasurement)
	out.Measurements = nil
	for _, m := range t.Measurements {
		out.Measurements = append(out.Measurements, cloneMeasurement(m))
	}
	out.Metadata = cloneKeyValues(t.Metadata)
	if t.StartTime != nil {
		out.StartTime = timestamppb.New(t.StartTime.AsTime())
	}
	if t.EndTime != nil {
		out.EndTime = timestamppb.New(t.EndTime.AsTime())
	}
	return &out
}

func cloneParameters(params []*vizierpb.TrialParameter) []*vizierpb.TrialParameter {
	var out []*vizierpb.TrialParameter
	for _, p := range params {
		cp := *p
		out = append(out, &cp)
	}
	return out
}

func cloneMeasurement(m *vizierpb.Measurement) *vizierpb.Measurement {
	if m == nil {
		return nil
	}
	out := &vizierpb.Measurement{StepCount: m.StepCount}
	if m.ElapsedDuration != nil {
		out.ElapsedDuration = durationpb.New(m.ElapsedDuration.AsDuration())
	}
	for _, metric := range m.Metrics {
		cm := *metric
		out.Metrics = append(out.Metrics, &cm)
	}
	return out
}

func cloneKeyValues(kvs []*vizierpb.KeyValue) []*vizierpb.KeyValue {
	var out []*vizierpb.KeyValue
	for _, kv := range kvs {
		ckv := *kv
		if kv.Value != nil {
			v := *kv.Value
			ckv.Value = &v
		}
		out = append(out, &ckv)
	}
	return out
}
