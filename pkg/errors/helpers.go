package errors

import stderrors "errors"

// FromError converts any error to Errno.
// If err is already an Errno (or wraps one), returns it.
// Otherwise, wraps it as ErrInternal.
func FromError(err error) *Errno {
	if err == nil {
		return nil
	}
	var e *Errno
	if stderrors.As(err, &e) {
		return e
	}
	return ErrInternal.WithCause(err)
}

// IsCode checks if the error has the given error code.
func IsCode(err error, code int) bool {
	var e *Errno
	if stderrors.As(err, &e) {
		return e.Code == code
	}
	return false
}

// GetCode returns the error code from an error.
// Returns -1 if the error is not an Errno.
func GetCode(err error) int {
	var e *Errno
	if stderrors.As(err, &e) {
		return e.Code
	}
	return -1
}

// IsCategory reports whether err is an Errno of the given category.
func IsCategory(err error, category int) bool {
	var e *Errno
	if stderrors.As(err, &e) {
		return e.Category() == category
	}
	return false
}

// IsUnauthenticated reports whether err means no principal could be established.
func IsUnauthenticated(err error) bool { return IsCategory(err, CategoryAuth) }

// IsForbidden reports whether err means the principal failed a requirement.
func IsForbidden(err error) bool { return IsCategory(err, CategoryPermission) }

// IsNotFound reports whether err is a not-found error.
func IsNotFound(err error) bool { return IsCategory(err, CategoryResource) }

// IsConflict reports whether err is a uniqueness conflict.
func IsConflict(err error) bool { return IsCategory(err, CategoryConflict) }

// IsBadRequest reports whether err is a request/validation error.
func IsBadRequest(err error) bool { return IsCategory(err, CategoryRequest) }
