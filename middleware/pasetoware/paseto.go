package pasetoware

import (
	"context"

	"github.com/goliatone/go-router"

	auth "github.com/goliatone/go-blog-auth"
)

// Decision outcomes reported to Config.OnDecision
const (
	OutcomeAuthorized = "authorized"
	OutcomeRejected   = "unauthorized"
	OutcomeForbidden  = "forbidden"
	OutcomeError      = "error"
)

// Authenticator advances the request state from an Authorization header
type Authenticator interface {
	Authenticate(ctx context.Context, state *auth.RequestAuth, authorization string) error
}

type Config struct {
	// Filter skips the middleware when it returns true
	Filter func(router.Context) bool
	// SuccessHandler runs after the request has been authorized
	SuccessHandler router.HandlerFunc
	// ErrorHandler renders rejections
	ErrorHandler router.ErrorHandler
	// Authenticator is required
	Authenticator Authenticator
	// ContextKey is the local holding the *auth.RequestAuth
	ContextKey string
	// Header is the request header carrying the token
	Header string
	// OnDecision observes every authentication outcome
	OnDecision func(outcome string)
	// MinimumRole rejects authorized requests whose role claim is lower
	MinimumRole auth.Role
}

func New(config ...Config) router.MiddlewareFunc {
	return func(hf router.HandlerFunc) router.HandlerFunc {
		cfg := GetDefaultConfig(config...)

		return func(ctx router.Context) error {
			if cfg.Filter != nil && cfg.Filter(ctx) {
				return ctx.Next()
			}

			state := currentState(ctx, cfg.ContextKey)

			err := cfg.Authenticator.Authenticate(ctx.Context(), state, ctx.GetString(cfg.Header, ""))

			ctx.Locals(cfg.ContextKey, state)
			ctx.SetContext(auth.WithRequestAuth(ctx.Context(), state))

			if err == nil && cfg.MinimumRole != "" {
				err = auth.RequireRole(state, cfg.MinimumRole)
			}

			if err != nil {
				cfg.OnDecision(outcomeOf(err))
				return cfg.ErrorHandler(ctx, err)
			}

			cfg.OnDecision(OutcomeAuthorized)
			return cfg.SuccessHandler(ctx)
		}
	}
}

func GetDefaultConfig(config ...Config) (cfg Config) {
	if len(config) > 0 {
		cfg = config[0]
	}

	if cfg.Authenticator == nil {
		panic("AUTH: PASETO middleware configuration: Authenticator is required.")
	}

	if cfg.SuccessHandler == nil {
		cfg.SuccessHandler = func(ctx router.Context) error {
			return ctx.Next()
		}
	}

	if cfg.ErrorHandler == nil {
		cfg.ErrorHandler = DefaultErrorHandler
	}

	if cfg.ContextKey == "" {
		cfg.ContextKey = "auth"
	}

	if cfg.Header == "" {
		cfg.Header = router.HeaderAuthorization
	}

	if cfg.OnDecision == nil {
		cfg.OnDecision = func(string) {}
	}

	return cfg
}

// DefaultErrorHandler answers 403 for identity mismatches and 401 for
// everything else. The body never says why.
func DefaultErrorHandler(ctx router.Context, err error) error {
	switch outcomeOf(err) {
	case OutcomeForbidden:
		return ctx.JSON(router.StatusForbidden, map[string]string{"error": "forbidden"})
	case OutcomeError:
		return ctx.JSON(router.StatusInternalServerError, map[string]string{"error": "internal server error"})
	default:
		return ctx.JSON(router.StatusUnauthorized, map[string]string{"error": "unauthorized"})
	}
}

// RequestAuth returns the authentication state stored under key
func RequestAuth(ctx router.Context, key ...string) (*auth.RequestAuth, bool) {
	k := "auth"
	if len(key) > 0 && key[0] != "" {
		k = key[0]
	}
	state, ok := ctx.Locals(k).(*auth.RequestAuth)
	return state, ok && state != nil
}

// CurrentUser returns the identity of an authorized request
func CurrentUser(ctx router.Context, key ...string) (*auth.User, bool) {
	state, ok := RequestAuth(ctx, key...)
	if !ok || !state.Authorized() || state.Identity == nil {
		return nil, false
	}
	return state.Identity, true
}

// currentState reuses a state attached earlier in the chain so a second
// pass re-verifies against the same identity.
func currentState(ctx router.Context, key string) *auth.RequestAuth {
	if state, ok := ctx.Locals(key).(*auth.RequestAuth); ok && state != nil {
		return state
	}
	if state, ok := auth.RequestAuthFromContext(ctx.Context()); ok {
		return state
	}
	return auth.NewRequestAuth()
}

func outcomeOf(err error) string {
	switch auth.KindOf(err) {
	case auth.KindUnauthorized:
		return OutcomeRejected
	case auth.KindForbidden:
		return OutcomeForbidden
	default:
		return OutcomeError
	}
}
