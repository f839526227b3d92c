package auth

import (
	"context"
	"strings"

	goerrors "github.com/goliatone/go-errors"
)

// AuthStage is the position of a request in the authentication pipeline
type AuthStage int

const (
	StageNoToken AuthStage = iota
	StageTokenExtracted
	StageClaimsVerified
	StageIdentityResolved
	StageAuthorized
	StageRejected
)

func (s AuthStage) String() string {
	switch s {
	case StageNoToken:
		return "no_token"
	case StageTokenExtracted:
		return "token_extracted"
	case StageClaimsVerified:
		return "claims_verified"
	case StageIdentityResolved:
		return "identity_resolved"
	case StageAuthorized:
		return "authorized"
	case StageRejected:
		return "rejected"
	default:
		return "unknown"
	}
}

// DefaultAuthScheme is the prefix stripped from the Authorization header
const DefaultAuthScheme = "Bearer"

// RequestAuth is the authentication state of one in-flight request. It
// is owned by that request and must not be shared.
type RequestAuth struct {
	Stage    AuthStage
	Token    string
	Claims   Claims
	Identity *User
	Err      error
}

// NewRequestAuth returns an empty state in StageNoToken
func NewRequestAuth() *RequestAuth {
	return &RequestAuth{Stage: StageNoToken}
}

// Authorized reports whether the request passed authentication
func (r *RequestAuth) Authorized() bool {
	return r != nil && r.Stage == StageAuthorized
}

func (r *RequestAuth) reject(err error) error {
	r.Stage = StageRejected
	r.Err = err
	return err
}

// RequestAuthenticator turns an Authorization header into an identity
type RequestAuthenticator struct {
	verifier ClaimsVerifier
	users    UserFinder
	logger   Logger
	scheme   string
}

// NewRequestAuthenticator creates a RequestAuthenticator
func NewRequestAuthenticator(verifier ClaimsVerifier, users UserFinder) *RequestAuthenticator {
	return &RequestAuthenticator{
		verifier: verifier,
		users:    users,
		logger:   defLogger{},
		scheme:   DefaultAuthScheme,
	}
}

func (a *RequestAuthenticator) WithLogger(logger Logger) *RequestAuthenticator {
	a.logger = ensureLogger(logger)
	return a
}

// WithAuthScheme overrides the expected header scheme
func (a *RequestAuthenticator) WithAuthScheme(scheme string) *RequestAuthenticator {
	if scheme = strings.TrimSpace(scheme); scheme != "" {
		a.scheme = scheme
	}
	return a
}

// Authenticate advances state from the Authorization header value.
//
// When state already carries an identity the presented token is still
// verified, the lookup is skipped and its subject must match the attached
// identity, otherwise the request is forbidden.
func (a *RequestAuthenticator) Authenticate(ctx context.Context, state *RequestAuth, authorization string) error {
	if state == nil {
		return unauthorized()
	}

	token := ExtractBearerToken(authorization, a.scheme)
	if token == "" {
		a.logger.Debug("request rejected", "stage", state.Stage.String(), "reason", "missing token")
		return state.reject(unauthorized())
	}
	state.Token = token
	state.Stage = StageTokenExtracted

	claims, err := a.verifier.Verify(token)
	if err != nil {
		a.logger.Debug("request rejected", "stage", state.Stage.String(), "reason", "verification failed")
		return state.reject(unauthorized())
	}
	state.Stage = StageClaimsVerified

	subject := claims.Subject()

	if state.Identity != nil {
		if state.Identity.ID != subject {
			a.logger.Warn("request rejected", "stage", state.Stage.String(), "reason", "identity mismatch",
				"identity", state.Identity.ID, "subject", subject)
			return state.reject(forbidden())
		}
		state.Claims = claims
		state.Stage = StageAuthorized
		state.Err = nil
		return nil
	}

	if subject == "" {
		a.logger.Debug("request rejected", "stage", state.Stage.String(), "reason", "empty subject")
		return state.reject(unauthorized())
	}

	if err := ctx.Err(); err != nil {
		return state.reject(goerrors.Wrap(err, goerrors.CategoryOperation, "request cancelled during authentication").
			WithTextCode(string(KindInternal)))
	}

	user, err := a.users.FindUserBySubject(ctx, subject)
	if err != nil || user == nil {
		a.logger.Debug("request rejected", "stage", state.Stage.String(), "reason", "subject not found", "error", err)
		return state.reject(unauthorized())
	}

	// the lookup is read only, a result that arrives after cancellation is dropped
	if err := ctx.Err(); err != nil {
		return state.reject(goerrors.Wrap(err, goerrors.CategoryOperation, "request cancelled during authentication").
			WithTextCode(string(KindInternal)))
	}

	state.Stage = StageIdentityResolved
	state.Identity = user
	state.Claims = claims
	state.Stage = StageAuthorized
	state.Err = nil

	return nil
}

// ExtractBearerToken strips scheme and the following space from header.
// It returns an empty string when the header does not use scheme.
func ExtractBearerToken(header, scheme string) string {
	if scheme == "" {
		scheme = DefaultAuthScheme
	}
	l := len(scheme)
	if len(header) <= l+1 || !strings.EqualFold(header[:l], scheme) || header[l] != ' ' {
		return ""
	}
	return strings.TrimSpace(header[l+1:])
}
