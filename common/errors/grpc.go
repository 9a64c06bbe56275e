package errors

import (
	"errors"

	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

func ToGRPCError(err *AppError) error {
	if err == nil {
		return nil
	}

	return status.Error(mapErrorCodeToGRPC(err.Code), err.Message)
}

func mapErrorCodeToGRPC(code string) codes.Code {
	switch code {
	case CodeNotFound:
		return codes.NotFound
	case CodeAlreadyExists:
		return codes.AlreadyExists
	case CodeInvalidInput:
		return codes.InvalidArgument
	case CodeUnauthorized:
		return codes.Unauthenticated
	case CodeForbidden, CodeNotMember:
		return codes.PermissionDenied
	case CodeConflict:
		return codes.Aborted
	case CodeFailedPrecondition:
		return codes.FailedPrecondition
	case CodeServiceUnavailable:
		return codes.Unavailable
	case CodeTimeout:
		return codes.DeadlineExceeded
	default:
		return codes.Internal
	}
}

func FromGRPCError(err error) error {
	if err == nil {
		return nil
	}

	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr
	}

	st, ok := status.FromError(err)
	if !ok {
		return err
	}

	return &AppError{
		Code:    mapGRPCToErrorCode(st.Code()),
		Message: st.Message(),
		Err:     err,
	}
}

func mapGRPCToErrorCode(code codes.Code) string {
	switch code {
	case codes.NotFound:
		return CodeNotFound
	case codes.AlreadyExists:
		return CodeAlreadyExists
	case codes.InvalidArgument:
		return CodeInvalidInput
	case codes.Unauthenticated:
		return CodeUnauthorized
	case codes.PermissionDenied:
		return CodeForbidden
	case codes.Aborted:
		return CodeConflict
	case codes.FailedPrecondition:
		return CodeFailedPrecondition
	case codes.Unavailable:
		return CodeServiceUnavailable
	case codes.DeadlineExceeded:
		return CodeTimeout
	default:
		return CodeInternalServer
	}
}

// ToGRPCStatus converts any error returned by a service into a gRPC status.
// Errors that are not AppErrors become Internal.
func ToGRPCStatus(err error) error {
	if err == nil {
		return nil
	}
	var appErr *AppError
	if errors.As(err, &appErr) {
		return ToGRPCError(appErr)
	}
	if _, ok := status.FromError(err); ok {
		return err
	}
	return status.Error(codes.Internal, err.Error())
}
