// Package errdefs defines the error taxonomy shared across Switchboard
// components.
//
// Every component boundary translates internal failures into one of these
// kinds before handing control back to a caller. Callers classify with
// errors.Is; the concrete message travels with the wrapped error.
package errdefs

import (
	"github.com/cockroachdb/errors"
)

// Sentinel kinds. Wrap with Configuration/UnknownType/... below rather than
// comparing against these directly when constructing errors.
var (
	// ErrConfiguration covers unknown tenants, unknown agent ids, and
	// missing required configuration. Fatal to the current request.
	ErrConfiguration = errors.New("configuration error")

	// ErrUnknownType is returned when a registry is asked to construct a
	// type tag with no registered constructor.
	ErrUnknownType = errors.New("unknown component type")

	// ErrInitialization marks an MCP server that failed to initialize.
	// The failing instance is discarded, never cached.
	ErrInitialization = errors.New("initialization failed")

	// ErrRegistration marks a dynamic registration declaration that could
	// not be resolved. Logged and skipped; never aborts other registrations.
	ErrRegistration = errors.New("registration failed")

	// ErrExecution marks a downstream query or completion failure.
	ErrExecution = errors.New("execution failed")

	// ErrTimeout marks an external capability call that exceeded its
	// bounded deadline.
	ErrTimeout = errors.New("operation timed out")
)

// Configuration wraps err (or creates a new error from format) marked as a
// configuration error.
func Configuration(format string, args ...interface{}) error {
	return errors.Mark(errors.Newf(format, args...), ErrConfiguration)
}

// UnknownType reports an unregistered type tag.
func UnknownType(tag string) error {
	return errors.Mark(errors.Newf("no constructor registered for type %q", tag), ErrUnknownType)
}

// Initialization wraps an MCP initialization failure.
func Initialization(err error, serverType string) error {
	return errors.Mark(errors.Wrapf(err, "initialize %s server", serverType), ErrInitialization)
}

// Registration wraps a declaration resolution failure.
func Registration(format string, args ...interface{}) error {
	return errors.Mark(errors.Newf(format, args...), ErrRegistration)
}

// Execution wraps a downstream capability failure.
func Execution(err error, op string) error {
	return errors.Mark(errors.Wrap(err, op), ErrExecution)
}

// Timeout wraps a deadline-exceeded failure.
func Timeout(err error, op string) error {
	return errors.Mark(errors.Wrap(err, op), ErrTimeout)
}

// IsKind reports whether err carries the given sentinel kind.
func IsKind(err, kind error) bool {
	return errors.Is(err, kind)
}
