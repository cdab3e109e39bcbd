package service

import (
	"errors"

	"github.com/hongminglow/storefront-accounts/internal/errs"
	"github.com/hongminglow/storefront-accounts/internal/metrics"
	"github.com/hongminglow/storefront-accounts/internal/storage"
)

// translate maps storage failures onto the service error taxonomy.
func translate(err error) error {
	var uv *storage.UniqueViolation
	switch {
	case err == nil:
		return nil
	case errors.As(err, &uv):
		return &errs.ConflictError{Field: uv.Field}
	case errors.Is(err, storage.ErrNotFound):
		return errs.ErrNotFound
	case errors.Is(err, storage.ErrForbidden):
		return errs.ErrAuthorization
	default:
		return err
	}
}

func outcome(err error) string {
	switch {
	case err == nil:
		return metrics.OutcomeSuccess
	case errors.Is(err, errs.ErrConflict):
		return metrics.OutcomeConflict
	case errors.Is(err, errs.ErrAuthentication), errors.Is(err, errs.ErrAuthorization), errors.Is(err, errs.ErrNotFound):
		return metrics.OutcomeDenied
	}
	if _, ok := errs.AsValidation(err); ok {
		return metrics.OutcomeInvalid
	}
	return metrics.OutcomeError
}
