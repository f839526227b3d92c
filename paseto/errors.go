package paseto

import (
	goerrors "github.com/goliatone/go-errors"
)

// Text codes carried by the errors this package returns.
const (
	TextCodeMalformedToken     = "PASETO_MALFORMED_TOKEN"
	TextCodeUnsupportedVersion = "PASETO_UNSUPPORTED_VERSION"
	TextCodeUnsupportedPurpose = "PASETO_UNSUPPORTED_PURPOSE"
	TextCodeInvalidSignature   = "PASETO_INVALID_SIGNATURE"
	TextCodeInvalidKey         = "PASETO_INVALID_KEY"
)

var (
	// ErrMalformedToken is returned when the token does not have the PASETO shape
	ErrMalformedToken = goerrors.New("token is not a PASETO formatted value", goerrors.CategoryBadInput).
				WithTextCode(TextCodeMalformedToken)
	// ErrUnsupportedVersion is returned for versions outside the supported set
	ErrUnsupportedVersion = goerrors.New("unsupported PASETO version", goerrors.CategoryBadInput).
				WithTextCode(TextCodeUnsupportedVersion)
	// ErrUnsupportedPurpose is returned for purposes other than local and public
	ErrUnsupportedPurpose = goerrors.New("unsupported PASETO purpose", goerrors.CategoryBadInput).
				WithTextCode(TextCodeUnsupportedPurpose)
	// ErrInvalidSignature is returned when the detached signature does not verify
	ErrInvalidSignature = goerrors.New("invalid token signature", goerrors.CategoryAuth).
				WithTextCode(TextCodeInvalidSignature)
	// ErrInvalidKey is returned for key material of the wrong type or size
	ErrInvalidKey = goerrors.New("invalid ed25519 key", goerrors.CategoryBadInput).
			WithTextCode(TextCodeInvalidKey)
)

func newError(proto *goerrors.Error, cause error) error {
	clone := proto.Clone()
	if cause != nil {
		clone.Source = cause
	}
	return clone
}

// TextCode returns the discriminant of a rich error or an empty string.
func TextCode(err error) string {
	if err == nil {
		return ""
	}
	var richErr *goerrors.Error
	if goerrors.As(err, &richErr) {
		return richErr.TextCode
	}
	return ""
}
