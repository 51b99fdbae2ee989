package text

import "errors"

// Sentinel errors for text package.
var (
	// ErrEmptyFontData is returned when font data is empty.
	ErrEmptyFontData = errors.New("text: empty font data")

	// ErrNoComponents is returned when a Composite is created without components.
	ErrNoComponents = errors.New("text: composite needs at least one component")

	// ErrTooManyComponents is returned when a Composite has more than
	// MaxComponents components.
	ErrTooManyComponents = errors.New("text: too many composite components")

	// ErrSourceClosed is reported by the backend of a closed FontSource.
	ErrSourceClosed = errors.New("text: font source closed")

	// ErrStrikeClosed is returned by Strike methods after Close.
	ErrStrikeClosed = errors.New("text: strike closed")

	// ErrRegistryClosed is returned when registering with a closed Registry.
	ErrRegistryClosed = errors.New("text: registry closed")

	// ErrUnknownFont is returned by Registry lookups for unregistered names.
	ErrUnknownFont = errors.New("text: unknown font")

	// ErrLengthMismatch is returned when an output slice is shorter than
	// the input it must mirror.
	ErrLengthMismatch = errors.New("text: output shorter than input")

	// ErrInvalidSize is returned for non-positive strike sizes.
	ErrInvalidSize = errors.New("text: strike size must be positive")
)

// FatalError reports an unrecoverable backend fault.
//
// Backends wrap faults in FatalError when retrying or degrading to the
// missing glyph would hide a broken font setup. Resolvers propagate a
// FatalError to the caller once per call; any other backend error is
// mapped to the missing glyph for every requested position.
type FatalError struct {
	// Op names the backend operation that failed.
	Op string
	// Err is the underlying fault.
	Err error
}

func (e *FatalError) Error() string {
	return "text: fatal backend fault in " + e.Op + ": " + e.Err.Error()
}

// Unwrap returns the underlying fault.
func (e *FatalError) Unwrap() error {
	return e.Err
}

// IsFatal reports whether err contains a FatalError.
func IsFatal(err error) bool {
	var fe *FatalError
	return errors.As(err, &fe)
}
