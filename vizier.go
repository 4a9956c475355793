// Package vizier is a typed Go client for an OSS Vizier style
// black-box optimization service.
//
// The service manages studies (an optimization problem plus its search
// space) and trials (candidate parameter suggestions and their
// reported results). This package layers lifecycle orchestration over
// the raw RPC surface: resource-name handling, metadata encoding,
// retry with backoff under transient failure, suggestion polling, and
// the suggest/evaluate/report/complete workflow.
//
// A Client is built from a Config carrying a vizierpb.Service, the
// transport stub. Production stubs adapt a generated gRPC client;
// tests and examples use viziertest.Fake. The caller owns the stub's
// lifetime, the client never closes it.
//
//	client, err := vizier.NewClient(vizier.Config{
//		Owner:   "acme",
//		Service: stub,
//	})
//	if err != nil {
//		return err
//	}
//	study, err := client.CreateStudy(ctx, "tuning-v1", spec)
//	...
//	trial, err := client.RunOnce(ctx, study.Name, nil, evaluate)
package vizier

import (
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/tansa-ml/vizier-go/vizierpb"
)

const defaultSuggestPollInterval = 100 * time.Millisecond

// Config holds the settings needed to construct a Client.
type Config struct {
	// Owner is the resource owner every study name is scoped under.
	// Must match [A-Za-z0-9_-]+.
	Owner string

	// Service is the transport stub for the remote service. The caller
	// owns its lifetime; the client never closes or reconnects it.
	Service vizierpb.Service

	// ClientID identifies this client to the suggestion algorithm,
	// which hands the same pending suggestions back to the same ID.
	// Defaults to a generated UUID.
	ClientID string

	// Logger receives debug-level retry and polling logs. Defaults to
	// slog.Default().
	Logger *slog.Logger

	// Retry bounds the retry behavior of every remote call. Zero
	// fields take the documented defaults.
	Retry RetryPolicy

	// SuggestPollInterval is the sleep between polls of a pending
	// suggest operation. Defaults to 100ms.
	SuggestPollInterval time.Duration
}

// Client calls the optimization service on behalf of one owner.
// All methods are safe for concurrent use.
type Client struct {
	owner     string
	service   vizierpb.Service
	clientID  string
	logger    *slog.Logger
	retry     RetryPolicy
	pollEvery time.Duration
}

// NewClient creates a Client from the given configuration.
// Returns an error if Owner or Service is missing or Owner is not a
// valid identifier.
func NewClient(cfg Config) (*Client, error) {
	if cfg.Owner == "" {
		return nil, fmt.Errorf("vizier: Owner is required")
	}
	if !idRe.MatchString(cfg.Owner) {
		return nil, fmt.Errorf("vizier: Owner %q must match [A-Za-z0-9_-]+", cfg.Owner)
	}
	if cfg.Service == nil {
		return nil, fmt.Errorf("vizier: Service is required")
	}

	clientID := cfg.ClientID
	if clientID == "" {
		clientID = uuid.NewString()
	}
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}
	pollEvery := cfg.SuggestPollInterval
	if pollEvery <= 0 {
		pollEvery = defaultSuggestPollInterval
	}

	return &Client{
		owner:     cfg.Owner,
		service:   cfg.Service,
		clientID:  clientID,
		logger:    logger,
		retry:     cfg.Retry.withDefaults(),
		pollEvery: pollEvery,
	}, nil
}

// Owner returns the owner this client is scoped to.
func (c *Client) Owner() string { return c.owner }

// ClientID returns the suggestion client ID in use.
func (c *Client) ClientID() string { return c.clientID }

// StudyName composes the name of a study under this client's owner.
func (c *Client) StudyName(study string) StudyName {
	return StudyName{Owner: c.owner, Study: study}
}

// TrialName composes the name of a trial under this client's owner.
func (c *Client) TrialName(study, trial string) TrialName {
	return TrialName{Owner: c.owner, Study: study, Trial: trial}
}

// ownerParent is the parent name studies are created and listed under.
func (c *Client) ownerParent() string {
	return collOwners + "/" + c.owner
}
