package handler

import (
	"errors"
	"net/http"

	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	"github.com/rl1809/pantry-sync/internal/core/domain"
)

const partialFailureMessage = "account partially deleted, identity cleanup scheduled"

// httpError maps a domain error to a status and a client-safe message.
func httpError(err error) (int, string) {
	switch {
	case errors.Is(err, domain.ErrPartialFailure):
		return http.StatusInternalServerError, partialFailureMessage
	case errors.Is(err, domain.ErrInvalidArgument):
		return http.StatusBadRequest, err.Error()
	case errors.Is(err, domain.ErrUnauthenticated):
		return http.StatusUnauthorized, err.Error()
	case errors.Is(err, domain.ErrNotFound):
		return http.StatusNotFound, err.Error()
	case errors.Is(err, domain.ErrAlreadyExists):
		return http.StatusConflict, err.Error()
	case errors.Is(err, domain.ErrRemoteUnavailable):
		return http.StatusServiceUnavailable, "backend unavailable"
	default:
		return http.StatusInternalServerError, "internal error"
	}
}

func grpcError(err error) error {
	var code codes.Code
	switch {
	case errors.Is(err, domain.ErrPartialFailure):
		return status.Error(codes.Internal, partialFailureMessage)
	case errors.Is(err, domain.ErrInvalidArgument):
		code = codes.InvalidArgument
	case errors.Is(err, domain.ErrUnauthenticated):
		code = codes.Unauthenticated
	case errors.Is(err, domain.ErrNotFound):
		code = codes.NotFound
	case errors.Is(err, domain.ErrAlreadyExists):
		code = codes.AlreadyExists
	case errors.Is(err, domain.ErrRemoteUnavailable):
		return status.Error(codes.Unavailable, "backend unavailable")
	default:
		return status.Error(codes.Internal, "internal error")
	}
	return status.Error(code, err.Error())
}
