package auth

import (
	goerrors "github.com/goliatone/go-errors"

	"github.com/goliatone/go-blog-auth/paseto"
)

// ErrorKind is the discriminant carried in the TextCode of every error
// this package returns. Callers switch on KindOf(err).
type ErrorKind string

const (
	KindUnknown            ErrorKind = ""
	KindUnauthorized       ErrorKind = "AUTH_UNAUTHORIZED"
	KindForbidden          ErrorKind = "AUTH_FORBIDDEN"
	KindInvalidClaims      ErrorKind = "INVALID_CLAIMS"
	KindTokenExpired       ErrorKind = "TOKEN_EXPIRED"
	KindMalformedToken     ErrorKind = paseto.TextCodeMalformedToken
	KindUnsupportedVersion ErrorKind = paseto.TextCodeUnsupportedVersion
	KindUnsupportedPurpose ErrorKind = paseto.TextCodeUnsupportedPurpose
	KindInvalidSignature   ErrorKind = paseto.TextCodeInvalidSignature
	KindInvalidKey         ErrorKind = paseto.TextCodeInvalidKey
	KindIdentityNotFound   ErrorKind = "IDENTITY_NOT_FOUND"
	KindMismatchedPassword ErrorKind = "MISMATCHED_PASSWORD"
	KindEmailExists        ErrorKind = "EMAIL_EXISTS"
	KindPostNotFound       ErrorKind = "POST_NOT_FOUND"
	KindValidation         ErrorKind = "VALIDATION"
	KindInternal           ErrorKind = "INTERNAL"
	KindImmutableClaim     ErrorKind = "IMMUTABLE_CLAIM_MUTATION"
)

var (
	// ErrUnauthorized is the only error returned at the verify boundary
	ErrUnauthorized = goerrors.New("unauthorized", goerrors.CategoryAuth).
			WithCode(goerrors.CodeUnauthorized).
			WithTextCode(string(KindUnauthorized))

	// ErrForbidden means a valid credential that does not match the
	// identity already attached to the request
	ErrForbidden = goerrors.New("forbidden", goerrors.CategoryAuthz).
			WithCode(goerrors.CodeForbidden).
			WithTextCode(string(KindForbidden))

	// ErrInvalidClaims is returned by ValidateClaims
	ErrInvalidClaims = goerrors.New("invalid claims", goerrors.CategoryValidation).
				WithCode(goerrors.CodeBadRequest).
				WithTextCode(string(KindInvalidClaims))

	// ErrTokenExpired is an internal verification reason
	ErrTokenExpired = goerrors.New("token expired", goerrors.CategoryAuth).
			WithCode(goerrors.CodeUnauthorized).
			WithTextCode(string(KindTokenExpired))

	// ErrIdentityNotFound is the error we return for non found identities
	ErrIdentityNotFound = goerrors.New("identity not found", goerrors.CategoryNotFound).
				WithCode(goerrors.CodeNotFound).
				WithTextCode(string(KindIdentityNotFound))

	// ErrMismatchedHashAndPassword is returned for unknown users and bad passwords alike
	ErrMismatchedHashAndPassword = goerrors.New("mismatched hash and password", goerrors.CategoryAuth).
					WithCode(goerrors.CodeUnauthorized).
					WithTextCode(string(KindMismatchedPassword))

	// ErrNoEmptyString password must not be empty
	ErrNoEmptyString = goerrors.New("password can not be an empty string", goerrors.CategoryValidation).
				WithCode(goerrors.CodeBadRequest).
				WithTextCode(string(KindValidation))

	// ErrEmailExists is returned by signup for a taken email
	ErrEmailExists = goerrors.New("email already exists", goerrors.CategoryConflict).
			WithCode(goerrors.CodeConflict).
			WithTextCode(string(KindEmailExists))

	// ErrPostNotFound is returned when a post id has no record
	ErrPostNotFound = goerrors.New("post not found", goerrors.CategoryNotFound).
			WithCode(goerrors.CodeNotFound).
			WithTextCode(string(KindPostNotFound))

	// ErrImmutableClaimMutation is returned when a ClaimsDecorator touches
	// an identity claim
	ErrImmutableClaimMutation = goerrors.New("immutable claim mutated", goerrors.CategoryInternal).
					WithCode(goerrors.CodeInternal).
					WithTextCode(string(KindImmutableClaim))
)

// KindOf returns the kind discriminant of err, KindUnknown for errors
// that do not carry one.
func KindOf(err error) ErrorKind {
	if err == nil {
		return KindUnknown
	}
	var richErr *goerrors.Error
	if goerrors.As(err, &richErr) {
		return ErrorKind(richErr.TextCode)
	}
	return KindUnknown
}

// IsUnauthorized reports whether err is an unauthorized rejection
func IsUnauthorized(err error) bool {
	return KindOf(err) == KindUnauthorized
}

// IsForbidden reports whether err is a forbidden rejection
func IsForbidden(err error) bool {
	return KindOf(err) == KindForbidden
}

// unauthorized returns a fresh opaque rejection. It never carries the cause.
func unauthorized() error {
	return ErrUnauthorized.Clone()
}

func forbidden() error {
	return ErrForbidden.Clone()
}

// withCause clones proto and records cause as its source.
func withCause(proto *goerrors.Error, cause error) *goerrors.Error {
	clone := proto.Clone()
	if cause != nil {
		clone.Source = cause
	}
	return clone
}
