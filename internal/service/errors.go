package service

import (
	"context"
	"errors"

	"connectrpc.com/connect"

	"github.com/mmynk/groupcart/internal/middleware"
	"github.com/mmynk/groupcart/internal/models"
)

var errUnauthenticated = errors.New("authentication required")

// toConnectError maps domain error kinds onto Connect codes.
func toConnectError(err error) *connect.Error {
	var ce *connect.Error
	if errors.As(err, &ce) {
		return ce
	}
	switch models.KindOf(err) {
	case models.KindValidation:
		return connect.NewError(connect.CodeInvalidArgument, err)
	case models.KindConflict:
		return connect.NewError(connect.CodeFailedPrecondition, err)
	case models.KindPermission:
		return connect.NewError(connect.CodePermissionDenied, err)
	case models.KindNotFound:
		return connect.NewError(connect.CodeNotFound, err)
	case models.KindDependency:
		return connect.NewError(connect.CodeUnavailable, err)
	default:
		return connect.NewError(connect.CodeInternal, err)
	}
}

// callerID returns the authenticated caller or an Unauthenticated error.
func callerID(ctx context.Context) (string, error) {
	userID := middleware.GetUserID(ctx)
	if userID == "" {
		return "", connect.NewError(connect.CodeUnauthenticated, errUnauthenticated)
	}
	return userID, nil
}
