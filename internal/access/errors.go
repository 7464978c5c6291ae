package access

import "errors"

var (
	// Returned for both unknown users and wrong passwords.
	ErrInvalidCredentials = errors.New("invalid credentials")
	ErrUserNotFound       = errors.New("user not found")
	ErrUnknownRole        = errors.New("unknown role")
	ErrDuplicateUser      = errors.New("duplicate username")
	ErrMissingField       = errors.New("missing required field")
	ErrUnsupportedFormat  = errors.New("unsupported users file format")
)
