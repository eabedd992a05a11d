package store

import (
	"context"
	"database/sql/driver"
	"errors"
	"net"

	"cafe-pos-service/internal/errx"
)

// AsAppError classifies a store failure for the operator: permission
// problems, unreachable database, missing records and constraint violations
// each get their own code. Unknown failures keep the generic store error.
func AsAppError(err error) error {
	if err == nil {
		return nil
	}
	if _, ok := errx.As(err); ok {
		return err
	}
	var netErr net.Error
	switch {
	case errors.Is(err, ErrPermissionDenied):
		return errx.Wrap(errx.ErrStorePermission, err)
	case errors.Is(err, ErrProductNotFound):
		return errx.Wrap(errx.WithMessage(errx.ErrStoreNotFound, "product not found"), err)
	case errors.Is(err, ErrCategoryNotFound):
		return errx.Wrap(errx.WithMessage(errx.ErrStoreNotFound, "category not found"), err)
	case errors.Is(err, ErrInvalidRecord), errors.Is(err, ErrEmptyCategoryName):
		return errx.Wrap(errx.ErrStoreInvalid, err)
	case errors.Is(err, driver.ErrBadConn), errors.Is(err, context.DeadlineExceeded), errors.As(err, &netErr):
		return errx.Wrap(errx.ErrStoreNetwork, err)
	default:
		return errx.Wrap(errx.ErrStoreUnavailable, err)
	}
}
