package vizier

import (
	"context"
	"errors"
	"fmt"
	"sync/atomic"

	"golang.org/x/sync/errgroup"
)

// ErrNoSuggestions reports that the service returned no suggestions,
// typically because the search space is exhausted or the study is no
// longer active.
var ErrNoSuggestions = errors.New("vizier: no suggestions available")

// EvaluateFunc evaluates one suggested trial and returns its final
// measurement. The function may run for a long time and should honor
// ctx; it receives the trial handle so it can report intermediate
// measurements with AddMeasurement and consult ShouldStop along the
// way. Returning an error marks the trial infeasible with the error's
// message as the reason.
type EvaluateFunc func(ctx context.Context, t *Trial) (Measurement, error)

// RunOnce drives one trial through its full lifecycle: suggest one,
// evaluate it, report the final measurement, complete. The returned
// trial is terminal on success. An evaluation failure is not a RunOnce
// error; the trial comes back completed INFEASIBLE and ctx
// cancellation during evaluation still completes it, so a failed
// evaluation never leaves an ACTIVE trial behind to block the search
// space. ErrNoSuggestions is returned when the service has nothing
// left to suggest.
func (c *Client) RunOnce(ctx context.Context, study StudyName, opts *SuggestOptions, evaluate EvaluateFunc) (*Trial, error) {
	clientID := c.clientID
	if opts != nil && opts.ClientID != "" {
		clientID = opts.ClientID
	}
	return c.runOnce(ctx, study, clientID, evaluate)
}

func (c *Client) runOnce(ctx context.Context, study StudyName, clientID string, evaluate EvaluateFunc) (*Trial, error) {
	trials, err := c.SuggestTrials(ctx, study, 1, &SuggestOptions{ClientID: clientID})
	if err != nil {
		return nil, err
	}
	if len(trials) == 0 {
		return nil, ErrNoSuggestions
	}
	t := trials[0]

	m, evalErr := evaluate(ctx, t)
	if evalErr != nil {
		reason := evalErr.Error()
		if reason == "" {
			reason = "evaluation failed"
		}
		// Complete even when ctx was canceled mid-evaluation; an
		// abandoned ACTIVE trial would block the search space.
		cctx := context.WithoutCancel(ctx)
		if err := t.Complete(cctx, CompleteOptions{InfeasibleReason: reason}); err != nil {
			return t, err
		}
		c.logger.Debug("trial completed infeasible", "trial", t.Name, "reason", reason)
		return t, nil
	}

	if err := t.AddMeasurement(ctx, m); err != nil {
		return t, err
	}
	if err := t.Complete(ctx, CompleteOptions{FinalMeasurement: &m}); err != nil {
		return t, err
	}
	return t, nil
}

// RunConfig sizes a RunWorkers pool.
type RunConfig struct {
	// Workers is the number of concurrent evaluation loops. Values
	// below 1 run a single worker.
	Workers int
	// MaxTrials caps the total number of trials started across all
	// workers. Zero means no cap; the pool runs until suggestions are
	// exhausted.
	MaxTrials int
}

// RunWorkers runs cfg.Workers concurrent RunOnce loops against the
// study until the trial budget is spent or the service stops handing
// out suggestions. Each worker uses its own client ID derived from the
// client's, so the service partitions suggestions between them.
// Evaluation failures complete their trial INFEASIBLE and do not stop
// the pool; the first remote failure cancels the remaining workers and
// is returned.
func (c *Client) RunWorkers(ctx context.Context, study StudyName, cfg RunConfig, evaluate EvaluateFunc) error {
	workers := cfg.Workers
	if workers < 1 {
		workers = 1
	}
	var started atomic.Int64
	g, ctx := errgroup.WithContext(ctx)
	for i := range workers {
		workerID := fmt.Sprintf("%s-w%d", c.clientID, i)
		g.Go(func() error {
			for {
				if cfg.MaxTrials > 0 && started.Add(1) > int64(cfg.MaxTrials) {
					return nil
				}
				if _, err := c.runOnce(ctx, study, workerID, evaluate); err != nil {
					if errors.Is(err, ErrNoSuggestions) {
						return nil
					}
					return err
				}
			}
		})
	}
	return g.Wait()
}
