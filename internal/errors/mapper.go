// internal/errors/mapper.go
package errors

import (
	"context"
	"errors"

	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
	"gorm.io/gorm"

	"github.com/oggyb/qmatch/internal/engine"
	"github.com/oggyb/qmatch/internal/repository"
	"github.com/oggyb/qmatch/internal/utils/pagination"
)

// ErrPermissionDenied is returned when the actor may not touch the resource.
var ErrPermissionDenied = errors.New("permission denied")

// ErrNoPendingRequest is returned when responding to a request that is not pending.
var ErrNoPendingRequest = errors.New("no pending request from this member")

// Map converts engine/repo/infra errors into gRPC-friendly status errors.
// Keeps service layer clean by centralizing error mapping.
func Map(err error) error {
	if err == nil {
		return nil
	}
	if _, ok := status.FromError(err); ok {
		return err
	}

	switch {
	case errors.Is(err, engine.ErrInvalidValue),
		errors.Is(err, engine.ErrInvalidStatus),
		errors.Is(err, engine.ErrInvalidGender),
		errors.Is(err, engine.ErrInvalidLookingFor),
		errors.Is(err, engine.ErrSelfTarget),
		errors.Is(err, pagination.ErrInvalidToken):
		return status.Error(codes.InvalidArgument, err.Error())

	case errors.Is(err, engine.ErrTransitionNotAllowed),
		errors.Is(err, ErrNoPendingRequest):
		return status.Error(codes.FailedPrecondition, err.Error())

	case errors.Is(err, ErrPermissionDenied):
		return status.Error(codes.PermissionDenied, err.Error())

	case errors.Is(err, repository.ErrMemberNotFound),
		errors.Is(err, repository.ErrQuestionNotFound),
		errors.Is(err, repository.ErrGroupNotFound),
		errors.Is(err, repository.ErrRelationshipAbsent),
		errors.Is(err, repository.ErrConnectionAbsent):
		return status.Error(codes.NotFound, err.Error())

	case errors.Is(err, repository.ErrStaleWrite):
		return status.Error(codes.Aborted, err.Error())

	case errors.Is(err, gorm.ErrRecordNotFound):
		return status.Error(codes.NotFound, "record not found")

	case errors.Is(err, context.DeadlineExceeded):
		return status.Error(codes.DeadlineExceeded, "request timed out")

	case errors.Is(err, context.Canceled):
		return status.Error(codes.Canceled, "request was canceled")

	default:
		// fallback → bubble up error message for debugging
		return status.Error(codes.Internal, err.Error())
	}
}

// InvalidArgument creates a gRPC InvalidArgument error.
// Use this in service layer for bad input validation.
func InvalidArgument(msg string) error {
	return status.Error(codes.InvalidArgument, msg)
}
