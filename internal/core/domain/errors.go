package domain

import (
	"errors"
	"fmt"
)

var (
	// ErrConfig marks missing templates, FAQ files or misconfiguration.
	// Fatal at first use, never retried.
	ErrConfig = errors.New("configuration error")
	// ErrTemporary marks transient upstream failures that may be retried.
	ErrTemporary = errors.New("temporary failure")
	// ErrValidation marks structured model output that fails its schema.
	// Permanent: retrying would replay the same model/schema mismatch.
	ErrValidation   = errors.New("validation error")
	ErrInvalidInput = errors.New("invalid input")
	ErrNotFound     = errors.New("not found")
)

// WrapError preserves typed semantic errors with operation context.
func WrapError(kind error, operation string, err error) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf("%s: %w: %w", operation, kind, err)
}

func IsKind(err error, kind error) bool {
	return errors.Is(err, kind)
}

// IsRetryable reports whether the task orchestrator should re-run the
// failed stage. Only errors explicitly tagged as temporary retry.
func IsRetryable(err error) bool {
	return errors.Is(err, ErrTemporary)
}
