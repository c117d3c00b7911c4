package server

import (
	"net/http"

	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	"github.com/solatis/fieldcheck/internal/core/api"
)

func grpcCode(err error) codes.Code {
	switch api.Classify(err) {
	case api.ClassInvalid:
		return codes.InvalidArgument
	case api.ClassNotFound:
		return codes.NotFound
	case api.ClassUnavailable:
		return codes.Unavailable
	case api.ClassTimeout:
		return codes.DeadlineExceeded
	case api.ClassCanceled:
		return codes.Canceled
	default:
		return codes.Internal
	}
}

// toStatus converts a service error to a gRPC status error.
func toStatus(err error) error {
	if err == nil {
		return nil
	}
	return status.Error(grpcCode(err), err.Error())
}

func httpStatus(err error) int {
	switch api.Classify(err) {
	case api.ClassInvalid:
		return http.StatusBadRequest
	case api.ClassNotFound:
		return http.StatusNotFound
	case api.ClassUnavailable:
		return http.StatusServiceUnavailable
	case api.ClassTimeout:
		return http.StatusGatewayTimeout
	case api.ClassCanceled:
		return 499
	default:
		return http.StatusInternalServerError
	}
}
