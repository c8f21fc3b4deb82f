package errutil

import (
	"context"
	"errors"

	"gorm.io/gorm"
)

// From normalises an arbitrary error into a BaseError so the transport layer
// can always render a code.
func From(err error) BaseError {
	var base BaseError
	if errors.As(err, &base) {
		return base
	}

	switch {
	case errors.Is(err, context.Canceled):
		return BaseError{Code: StatusClientClosedRequest, Message: "request canceled", Err: err}
	case errors.Is(err, context.DeadlineExceeded):
		return BaseError{Code: StatusTimeout, Message: "request timed out", Err: err}
	case errors.Is(err, gorm.ErrRecordNotFound):
		return BaseError{Code: StatusNotFound, Message: "record not found", Err: err}
	case errors.Is(err, gorm.ErrDuplicatedKey):
		return BaseError{Code: StatusConflict, Message: "record already exists", Err: err}
	}

	return BaseError{Code: StatusInternal, Message: "internal error", Err: err}
}

// Is reports whether err carries the given status.
func Is(err error, code CoreStatus) bool {
	var base BaseError
	if errors.As(err, &base) {
		return base.Code == code
	}
	return false
}
