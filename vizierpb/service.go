// Package vizierpb holds the wire-level message types and the transport
// stub interface for the Vizier optimization service.
//
// The structs in this package mirror the service's protobuf schema
// field-for-field. Encoding and decoding of message bytes happens below
// the Service boundary: production implementations of Service are thin
// adapters over a protoc-generated gRPC client, while viziertest.Fake
// provides an in-memory implementation for tests. Errors returned by a
// Service implementation are expected to carry gRPC status codes
// (google.golang.org/grpc/status).
package vizierpb

import (
	"context"

	"google.golang.org/protobuf/types/known/emptypb"
)

// Service is the transport stub for the Vizier RPC service: one
// context-aware method per remote operation. Implementations must be
// safe for concurrent use; the client library shares a single Service
// across all handles and never closes it. The caller owns its
// lifetime.
type Service interface {
	CreateStudy(ctx context.Context, req *CreateStudyRequest) (*Study, error)
	GetStudy(ctx context.Context, req *GetStudyRequest) (*Study, error)
	ListStudies(ctx context.Context, req *ListStudiesRequest) (*ListStudiesResponse, error)
	DeleteStudy(ctx context.Context, req *DeleteStudyRequest) (*emptypb.Empty, error)
	StopStudy(ctx context.Context, req *StopStudyRequest) (*Study, error)

	// SuggestTrials starts a long-running suggestion operation. The
	// returned operation may already be done; otherwise its completion
	// is observed by polling GetOperation with the operation's name.
	SuggestTrials(ctx context.Context, req *SuggestTrialsRequest) (*SuggestOperation, error)
	GetOperation(ctx context.Context, req *GetOperationRequest) (*SuggestOperation, error)

	CreateTrial(ctx context.Context, req *CreateTrialRequest) (*Trial, error)
	GetTrial(ctx context.Context, req *GetTrialRequest) (*Trial, error)
	ListTrials(ctx context.Context, req *ListTrialsRequest) (*ListTrialsResponse, error)
	AddTrialMeasurement(ctx context.Context, req *AddTrialMeasurementRequest) (*Trial, error)
	CompleteTrial(ctx context.Context, req *CompleteTrialRequest) (*Trial, error)
	CheckTrialEarlyStoppingState(ctx context.Context, req *CheckTrialEarlyStoppingStateRequest) (*CheckTrialEarlyStoppingStateResponse, error)
	StopTrial(ctx context.Context, req *StopTrialRequest) (*Trial, error)
	DeleteTrial(ctx context.Context, req *DeleteTrialRequest) (*emptypb.Empty, error)
	ListOptimalTrials(ctx context.Context, req *ListOptimalTrialsRequest) (*ListOptimalTrialsResponse, error)
}
