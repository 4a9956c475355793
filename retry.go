package vizier

import (
	"context"
	"time"

	"github.com/cenkalti/backoff/v4"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	otelmetric "go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

var (
	tracer = otel.Tracer("github.com/tansa-ml/vizier-go")
	meter  = otel.GetMeterProvider().Meter("github.com/tansa-ml/vizier-go")
)

// Default retry policy. Documented on the RetryPolicy fields.
const (
	defaultMaxAttempts    = 4
	defaultInitialBackoff = 500 * time.Millisecond
	defaultMaxBackoff     = 30 * time.Second
	defaultMultiplier     = 2.0
	defaultJitter         = 0.2
	defaultMaxElapsed     = 2 * time.Minute
)

// RetryPolicy bounds the call wrapper's behavior under transient
// failure. Zero fields take the documented defaults; the policy is
// configuration, not a property of the wire protocol.
type RetryPolicy struct {
	// MaxAttempts is the total number of attempts per call, the first
	// one included. Defaults to 4.
	MaxAttempts int

	// InitialBackoff is the sleep after the first failed attempt.
	// Defaults to 500ms.
	InitialBackoff time.Duration

	// MaxBackoff caps the sleep between attempts. Defaults to 30s.
	MaxBackoff time.Duration

	// Multiplier grows the sleep after each failed attempt. Defaults
	// to 2.
	Multiplier float64

	// Jitter randomizes each sleep by the given fraction of the
	// current interval. Defaults to 0.2; a negative value disables
	// jitter.
	Jitter float64

	// MaxElapsed bounds the total time spent on one call across all
	// attempts and sleeps. Defaults to 2m.
	MaxElapsed time.Duration
}

func (p RetryPolicy) withDefaults() RetryPolicy {
	if p.MaxAttempts <= 0 {
		p.MaxAttempts = defaultMaxAttempts
	}
	if p.InitialBackoff <= 0 {
		p.InitialBackoff = defaultInitialBackoff
	}
	if p.MaxBackoff <= 0 {
		p.MaxBackoff = defaultMaxBackoff
	}
	if p.Multiplier <= 0 {
		p.Multiplier = defaultMultiplier
	}
	if p.Jitter == 0 {
		p.Jitter = defaultJitter
	} else if p.Jitter < 0 {
		p.Jitter = 0
	}
	if p.MaxElapsed <= 0 {
		p.MaxElapsed = defaultMaxElapsed
	}
	return p
}

// newBackOff builds the jittered exponential schedule for one call,
// with the context woven in so sleeps end early when the caller gives
// up.
func (p RetryPolicy) newBackOff(ctx context.Context) backoff.BackOff {
	eb := backoff.NewExponentialBackOff()
	eb.InitialInterval = p.InitialBackoff
	eb.RandomizationFactor = p.Jitter
	eb.Multiplier = p.Multiplier
	eb.MaxInterval = p.MaxBackoff
	eb.MaxElapsedTime = p.MaxElapsed
	return backoff.WithContext(backoff.WithMaxRetries(eb, uint64(p.MaxAttempts-1)), ctx)
}

// classify maps a stub error onto the retry taxonomy by its gRPC
// status code. Errors carrying no status code come back from
// status.Code as codes.Unknown and land in ClassUnknown.
func classify(err error) ErrorClass {
	switch status.Code(err) {
	case codes.Unavailable, codes.DeadlineExceeded, codes.ResourceExhausted, codes.Aborted:
		return ClassTransient
	case codes.InvalidArgument, codes.NotFound, codes.AlreadyExists, codes.PermissionDenied,
		codes.Unauthenticated, codes.FailedPrecondition, codes.OutOfRange, codes.Unimplemented:
		return ClassTerminal
	case codes.Canceled:
		return ClassCancelled
	default:
		return ClassUnknown
	}
}

func remoteErr(op string, class ErrorClass, err error) *RemoteError {
	return &RemoteError{Op: op, Class: class, Code: status.Code(err), Err: err}
}

// invoke runs one remote call under the client's retry policy. fn must
// build a fresh request on every attempt; it receives the span-bearing
// context. idempotent marks calls that are safe to re-issue when a
// previous attempt may have reached the service: on a non-idempotent
// call a retryable failure is not retried and surfaces as
// *IdempotencyError instead.
//
// Outcomes: terminal failures return a *RemoteError immediately;
// transient failures are retried until the budget runs out, then
// return a *RetriesExhaustedError preserving the last cause; unknown
// failures get a single retry; a done context ends the call with a
// ClassCancelled *RemoteError, never a budget exhaustion.
func invoke[T any](ctx context.Context, c *Client, op string, idempotent bool, fn func(ctx context.Context) (T, error)) (T, error) {
	var zero T

	ctx, span := tracer.Start(ctx, "vizier."+op, trace.WithSpanKind(trace.SpanKindClient))
	defer span.End()

	var (
		attempts    int
		unknownSeen bool
	)

	call := func() (T, error) {
		attempts++
		resp, err := fn(ctx)
		if err == nil {
			return resp, nil
		}
		switch classify(err) {
		case ClassTransient:
			if !idempotent {
				return zero, backoff.Permanent(&IdempotencyError{Op: op, Err: remoteErr(op, ClassTransient, err)})
			}
			return zero, err
		case ClassCancelled:
			return zero, backoff.Permanent(remoteErr(op, ClassCancelled, err))
		case ClassUnknown:
			if !idempotent {
				return zero, backoff.Permanent(&IdempotencyError{Op: op, Err: remoteErr(op, ClassUnknown, err)})
			}
			if unknownSeen {
				return zero, backoff.Permanent(remoteErr(op, ClassUnknown, err))
			}
			unknownSeen = true
			return zero, err
		default: // ClassTerminal
			return zero, backoff.Permanent(remoteErr(op, ClassTerminal, err))
		}
	}

	notify := func(err error, next time.Duration) {
		span.AddEvent("retry", trace.WithAttributes(
			attribute.Int("attempt", attempts),
			attribute.String("backoff", next.String()),
		))
		c.logger.Debug("retrying remote call",
			"op", op,
			"attempt", attempts,
			"backoff", next,
			"error", err)
	}

	resp, err := backoff.RetryNotifyWithData(call, c.retry.newBackOff(ctx), notify)

	span.SetAttributes(attribute.Int("vizier.attempts", attempts))
	outcome := "ok"
	if err != nil {
		outcome = "error"
	}
	if counter, cerr := meter.Int64Counter("vizier.client.attempts"); cerr == nil {
		counter.Add(ctx, int64(attempts), otelmetric.WithAttributes(
			attribute.String("op", op),
			attribute.String("outcome", outcome),
		))
	}

	if err == nil {
		return resp, nil
	}

	switch err.(type) {
	case *RemoteError, *IdempotencyError:
		// Already wrapped inside the attempt loop.
	default:
		if ctxErr := ctx.Err(); ctxErr != nil {
			// The schedule stopped because the caller gave up, between
			// attempts or mid-sleep. A distinct outcome, not an
			// exhausted budget.
			err = &RemoteError{Op: op, Class: ClassCancelled, Code: codes.Canceled, Err: ctxErr}
		} else {
			err = &RetriesExhaustedError{
				Op:       op,
				Attempts: attempts,
				Err:      remoteErr(op, classify(err), err),
			}
		}
	}

	span.RecordError(err)
	return zero, err
}
