package captcha

import "errors"

var (
	// ErrDecode is returned when the captured payload is not a decodable
	// image or carries no alpha channel.
	ErrDecode = errors.New("captcha: cannot decode image")

	// ErrEmptyGlyph is returned when no non-zero pixel survives grid removal.
	ErrEmptyGlyph = errors.New("captcha: image has no glyph pixels")

	ErrInvalidLabelLength = errors.New("captcha: invalid label length")
	ErrInvalidLabelChar   = errors.New("captcha: invalid label character")

	// ErrPredictionShape is returned when a prediction does not have the
	// Length x len(Alphabet) shape.
	ErrPredictionShape = errors.New("captcha: unexpected prediction shape")

	ErrSolverUnavailable       = errors.New("captcha: solver unavailable")
	ErrSolverMalformedResponse = errors.New("captcha: malformed solver response")
)

// IsSampleError reports whether err means the captcha sample could not be
// turned into an answer. Such errors cost one attempt and are never fatal.
func IsSampleError(err error) bool {
	return errors.Is(err, ErrDecode) ||
		errors.Is(err, ErrEmptyGlyph) ||
		errors.Is(err, ErrSolverUnavailable) ||
		errors.Is(err, ErrSolverMalformedResponse)
}
