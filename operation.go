package vizier

import (
	"context"
	"fmt"
	"time"

	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	"github.com/tansa-ml/vizier-go/vizierpb"
)

// SuggestOptions tunes a suggestion request. The zero value (and a nil
// pointer) uses the client's own ID.
type SuggestOptions struct {
	// ClientID identifies the worker the suggestions are for. The
	// service hands the same ACTIVE trials back to a client ID that
	// asks again, so two workers sharing an ID evaluate the same
	// trials while distinct IDs partition the work.
	ClientID string
}

// SuggestTrials asks the study's algorithm for up to count new trial
// suggestions and waits for the resulting operation to finish. The
// service may return fewer trials than requested, including none, when
// the search space is exhausted or the algorithm needs more completed
// trials first; an empty result is not an error.
func (c *Client) SuggestTrials(ctx context.Context, study StudyName, count int, opts *SuggestOptions) ([]*Trial, error) {
	clientID := c.clientID
	if opts != nil && opts.ClientID != "" {
		clientID = opts.ClientID
	}
	op, err := invoke(ctx, c, "SuggestTrials", true, func(ctx context.Context) (*vizierpb.SuggestOperation, error) {
		return c.service.SuggestTrials(ctx, &vizierpb.SuggestTrialsRequest{
			Parent:          study.String(),
			SuggestionCount: int32(count),
			ClientID:        clientID,
		})
	})
	if err != nil {
		return nil, err
	}
	resp, err := c.waitForSuggestion(ctx, op)
	if err != nil {
		return nil, err
	}
	trials := make([]*Trial, 0, len(resp.Trials))
	for _, p := range resp.Trials {
		t, err := trialFromProto(c, p)
		if err != nil {
			return nil, err
		}
		trials = append(trials, t)
	}
	return trials, nil
}

// waitForSuggestion polls the suggestion operation until it reports
// done, then unpacks its outcome. Operation-level errors carry a gRPC
// status and are classified like call failures.
func (c *Client) waitForSuggestion(ctx context.Context, op *vizierpb.SuggestOperation) (*vizierpb.SuggestTrialsResponse, error) {
	for !op.Done {
		select {
		case <-ctx.Done():
			return nil, &RemoteError{Op: "SuggestTrials", Class: ClassCancelled, Code: codes.Canceled, Err: ctx.Err()}
		case <-time.After(c.pollEvery):
		}
		next, err := invoke(ctx, c, "GetOperation", true, func(ctx context.Context) (*vizierpb.SuggestOperation, error) {
			return c.service.GetOperation(ctx, &vizierpb.GetOperationRequest{Name: op.Name})
		})
		if err != nil {
			return nil, err
		}
		op = next
	}
	if op.Error != nil {
		err := status.FromProto(op.Error).Err()
		return nil, remoteErr("SuggestTrials", classify(err), err)
	}
	if op.Response == nil {
		return nil, fmt.Errorf("vizier: SuggestTrials: operation %s finished with neither response nor error", op.Name)
	}
	return op.Response, nil
}
