package forge

import (
	"errors"

	ferrors "github.com/pkgforge/feedbot/internal/foundation/errors"
)

// Error wraps a classified forge error with the ErrorKind the scheduler's
// state machine dispatches on, keeping the underlying classified error
// (category/severity/retry strategy/context) intact for logging.
type Error struct {
	Kind ErrorKind
	Err  error
}

func (e *Error) Error() string { return e.Err.Error() }
func (e *Error) Unwrap() error { return e.Err }

// newError builds a *Error of kind, wrapping a freshly built classified
// error with message, cause, and context. RateLimited/Archived use the
// dedicated convenience constructors so their classification matches
// spec.md §7 exactly; other kinds fall back to the generic ForgeError.
func newError(kind ErrorKind, message string, cause error, ctx map[string]any) *Error {
	var builder *ferrors.ErrorBuilder
	switch kind {
	case RateLimited:
		builder = ferrors.RateLimitedError(message)
	case Archived:
		builder = ferrors.ArchivedError(message)
	case ValidationFailed:
		builder = ferrors.ForgeError(message).WithSeverity(ferrors.SeverityWarning).WithRetry(ferrors.RetryNever)
	case AuthFailed:
		builder = ferrors.ForgeError(message).WithRetry(ferrors.RetryUserAction)
	case NotFound:
		builder = ferrors.ForgeError(message).WithRetry(ferrors.RetryNever)
	default:
		builder = ferrors.ForgeError(message)
	}
	if cause != nil {
		builder = builder.WithCause(cause)
	}
	for k, v := range ctx {
		builder = builder.WithContext(k, v)
	}
	return &Error{Kind: kind, Err: builder.Build()}
}

// AsForgeError extracts the ErrorKind from err if it (or something it
// wraps) is a *Error. For anything else it returns an empty kind and
// false.
func AsForgeError(err error) (ErrorKind, bool) {
	var fe *Error
	if errors.As(err, &fe) {
		return fe.Kind, true
	}
	return "", false
}
