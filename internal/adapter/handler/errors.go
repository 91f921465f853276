package handler

import (
	"errors"
	"log"
	"net/http"

	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	"github.com/rl1809/campus-market/internal/core/service"
)

var errDuplicateRequest = errors.New("duplicate request")

type errorResponse struct {
	Error string `json:"error"`
}

func httpStatus(err error) (int, string) {
	switch {
	case errors.Is(err, service.ErrUnauthenticated):
		return http.StatusUnauthorized, "unauthenticated"
	case errors.Is(err, service.ErrSelfDealing):
		return http.StatusForbidden, "cannot add own item to cart"
	case errors.Is(err, service.ErrForbidden):
		return http.StatusForbidden, "forbidden"
	case errors.Is(err, service.ErrNotFound):
		return http.StatusNotFound, "not found"
	case errors.Is(err, service.ErrAlreadyInCart):
		return http.StatusConflict, "item already in cart"
	case errors.Is(err, errDuplicateRequest):
		return http.StatusConflict, "duplicate request"
	case errors.Is(err, service.ErrOrderNotCompleted):
		return http.StatusConflict, "order not completed"
	case errors.Is(err, service.ErrInvalidOTP):
		return http.StatusBadRequest, "invalid otp"
	case errors.Is(err, service.ErrInvalidItem), errors.Is(err, service.ErrInvalidRating), errors.Is(err, service.ErrInvalidProfile):
		return http.StatusBadRequest, err.Error()
	default:
		return http.StatusInternalServerError, "internal error"
	}
}

func writeError(w http.ResponseWriter, err error) {
	code, message := httpStatus(err)
	if code == http.StatusInternalServerError {
		log.Printf("http: internal error: %v", err)
	}
	writeJSON(w, code, errorResponse{Error: message})
}

func grpcError(err error) error {
	switch {
	case errors.Is(err, service.ErrUnauthenticated):
		return status.Error(codes.Unauthenticated, "unauthenticated")
	case errors.Is(err, service.ErrForbidden):
		return status.Error(codes.PermissionDenied, err.Error())
	case errors.Is(err, service.ErrNotFound):
		return status.Error(codes.NotFound, "not found")
	case errors.Is(err, service.ErrAlreadyInCart):
		return status.Error(codes.AlreadyExists, "item already in cart")
	case errors.Is(err, service.ErrOrderNotCompleted):
		return status.Error(codes.FailedPrecondition, "order not completed")
	case errors.Is(err, service.ErrInvalidOTP), errors.Is(err, service.ErrInvalidItem), errors.Is(err, service.ErrInvalidRating),
		errors.Is(err, service.ErrInvalidProfile):
		return status.Error(codes.InvalidArgument, err.Error())
	default:
		log.Printf("grpc: internal error: %v", err)
		return status.Error(codes.Internal, "internal error")
	}
}
