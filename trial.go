package vizier

import (
	"context"
	"fmt"

	"google.golang.org/protobuf/types/known/emptypb"

	"github.com/tansa-ml/vizier-go/vizierpb"
)

// GetTrial reads one trial.
func (c *Client) GetTrial(ctx context.Context, name TrialName) (*Trial, error) {
	p, err := invoke(ctx, c, "GetTrial", true, func(ctx context.Context) (*vizierpb.Trial, error) {
		return c.service.GetTrial(ctx, &vizierpb.GetTrialRequest{Name: name.String()})
	})
	if err != nil {
		return nil, err
	}
	return trialFromProto(c, p)
}

// CreateTrial registers a caller-constructed trial with the given
// parameter assignment, bypassing the suggestion algorithm. The
// service assigns the trial's name; the initial state is ACTIVE. The
// call is not retried on transient failure because a duplicate would
// register a second trial; such a failure surfaces as
// *IdempotencyError.
func (c *Client) CreateTrial(ctx context.Context, study StudyName, params []Parameter) (*Trial, error) {
	p, err := invoke(ctx, c, "CreateTrial", false, func(ctx context.Context) (*vizierpb.Trial, error) {
		return c.service.CreateTrial(ctx, &vizierpb.CreateTrialRequest{
			Parent: study.String(),
			Trial: &vizierpb.Trial{
				Parameters: parametersToProto(params),
				ClientID:   c.clientID,
			},
		})
	})
	if err != nil {
		return nil, err
	}
	return trialFromProto(c, p)
}

// DeleteTrial removes one trial.
func (c *Client) DeleteTrial(ctx context.Context, name TrialName) error {
	_, err := invoke(ctx, c, "DeleteTrial", true, func(ctx context.Context) (*emptypb.Empty, error) {
		return c.service.DeleteTrial(ctx, &vizierpb.DeleteTrialRequest{Name: name.String()})
	})
	return err
}

// ListOptimalTrials returns the study's pareto-optimal trials.
func (c *Client) ListOptimalTrials(ctx context.Context, study StudyName) ([]*Trial, error) {
	resp, err := invoke(ctx, c, "ListOptimalTrials", true, func(ctx context.Context) (*vizierpb.ListOptimalTrialsResponse, error) {
		return c.service.ListOptimalTrials(ctx, &vizierpb.ListOptimalTrialsRequest{Parent: study.String()})
	})
	if err != nil {
		return nil, err
	}
	trials := make([]*Trial, 0, len(resp.OptimalTrials))
	for _, p := range resp.OptimalTrials {
		t, err := trialFromProto(c, p)
		if err != nil {
			return nil, err
		}
		trials = append(trials, t)
	}
	return trials, nil
}

// AddMeasurement reports an intermediate measurement for the trial and
// refreshes the handle with the service's view. A terminal trial
// rejects the call locally with *StateError; no remote call is made,
// so nothing can have reached the service. The remote call itself is
// not retried on transient failure, because a duplicate would append
// the measurement twice; such a failure surfaces as *IdempotencyError
// and the caller decides whether to re-report.
func (t *Trial) AddMeasurement(ctx context.Context, m Measurement) error {
	if t.State.Terminal() {
		return &StateError{Op: "AddMeasurement", Trial: t.Name.String(), State: t.State}
	}
	p, err := invoke(ctx, t.c, "AddTrialMeasurement", false, func(ctx context.Context) (*vizierpb.Trial, error) {
		return t.c.service.AddTrialMeasurement(ctx, &vizierpb.AddTrialMeasurementRequest{
			TrialName:   t.Name.String(),
			Measurement: measurementToProto(m),
		})
	})
	if err != nil {
		return err
	}
	return t.apply(p)
}

// CompleteOptions selects the terminal outcome of a trial. Exactly one
// of the two fields must be set: a final measurement completes the
// trial as SUCCEEDED, an infeasible reason as INFEASIBLE.
type CompleteOptions struct {
	FinalMeasurement *Measurement
	InfeasibleReason string
}

// Complete finishes the trial with exactly one of the two terminal
// outcomes and refreshes the handle with the service's view. Setting
// both or neither CompleteOptions field is rejected locally, as is
// completing an already terminal trial.
func (t *Trial) Complete(ctx context.Context, opts CompleteOptions) error {
	if t.State.Terminal() {
		return &StateError{Op: "CompleteTrial", Trial: t.Name.String(), State: t.State}
	}
	if (opts.FinalMeasurement == nil) == (opts.InfeasibleReason == "") {
		return fmt.Errorf("vizier: CompleteTrial: exactly one of FinalMeasurement and InfeasibleReason must be set")
	}
	p, err := invoke(ctx, t.c, "CompleteTrial", true, func(ctx context.Context) (*vizierpb.Trial, error) {
		req := &vizierpb.CompleteTrialRequest{Name: t.Name.String()}
		if opts.FinalMeasurement != nil {
			req.FinalMeasurement = measurementToProto(*opts.FinalMeasurement)
		} else {
			req.TrialInfeasible = true
			req.InfeasibleReason = opts.InfeasibleReason
		}
		return t.c.service.CompleteTrial(ctx, req)
	})
	if err != nil {
		return err
	}
	return t.apply(p)
}

// Stop asks the service to stop the trial early. The local state moves
// from ACTIVE to STOPPING optimistically before the call; the server's
// authoritative state is applied when the call returns and reconciled
// again on the next Refresh.
func (t *Trial) Stop(ctx context.Context) error {
	if t.State.Terminal() {
		return &StateError{Op: "StopTrial", Trial: t.Name.String(), State: t.State}
	}
	if t.State == vizierpb.TrialStateActive {
		t.State = vizierpb.TrialStateStopping
	}
	p, err := invoke(ctx, t.c, "StopTrial", true, func(ctx context.Context) (*vizierpb.Trial, error) {
		return t.c.service.StopTrial(ctx, &vizierpb.StopTrialRequest{Name: t.Name.String()})
	})
	if err != nil {
		return err
	}
	return t.apply(p)
}

// ShouldStop asks the service whether the trial should stop early.
func (t *Trial) ShouldStop(ctx context.Context) (bool, error) {
	resp, err := invoke(ctx, t.c, "CheckTrialEarlyStoppingState", true, func(ctx context.Context) (*vizierpb.CheckTrialEarlyStoppingStateResponse, error) {
		return t.c.service.CheckTrialEarlyStoppingState(ctx, &vizierpb.CheckTrialEarlyStoppingStateRequest{
			TrialName: t.Name.String(),
		})
	})
	if err != nil {
		return false, err
	}
	return resp.ShouldStop, nil
}

// Refresh re-reads the trial from the service, reconciling any
// optimistic local state with the authoritative one.
func (t *Trial) Refresh(ctx context.Context) error {
	fresh, err := t.c.GetTrial(ctx, t.Name)
	if err != nil {
		return err
	}
	*t = *fresh
	return nil
}

// Delete removes the trial from the service. The handle keeps its last
// snapshot.
func (t *Trial) Delete(ctx context.Context) error {
	return t.c.DeleteTrial(ctx, t.Name)
}

// apply replaces the handle's snapshot with the service's view.
func (t *Trial) apply(p *vizierpb.Trial) error {
	fresh, err := trialFromProto(t.c, p)
	if err != nil {
		return err
	}
	*t = *fresh
	return nil
}
