package client

import (
	"context"
	"fmt"

	"github.com/dmitrijs2005/feedkeeper/internal/common"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

// mapError turns gRPC status codes into the sentinel errors callers match
// with errors.Is. Anything unrecognised is wrapped as a per-record failure.
func mapError(err error) error {
	if err == nil {
		return nil
	}
	st, ok := status.FromError(err)
	if !ok {
		return fmt.Errorf("%w: %v", common.ErrRemoteUnavailable, err)
	}
	switch st.Code() {
	case codes.Unavailable, codes.DeadlineExceeded:
		return fmt.Errorf("%w: %s", common.ErrRemoteUnavailable, st.Message())
	case codes.Canceled:
		return fmt.Errorf("%w: %s", context.Canceled, st.Message())
	case codes.NotFound:
		return fmt.Errorf("%w: %s", common.ErrNotFound, st.Message())
	case codes.PermissionDenied:
		return fmt.Errorf("%w: %s", common.ErrHouseholdMismatch, st.Message())
	case codes.InvalidArgument:
		return fmt.Errorf("%w: %s", common.ErrInvalidRecord, st.Message())
	default:
		return fmt.Errorf("%w: rpc error: %v", common.ErrPartialRecordFailure, err)
	}
}
