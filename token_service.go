package auth

import (
	"crypto/ed25519"
	"encoding/json"
	"fmt"
	"time"

	goerrors "github.com/goliatone/go-errors"

	"github.com/goliatone/go-blog-auth/paseto"
)

// DefaultTokenLifespan is used when no lifespan is configured
const DefaultTokenLifespan = 2 * time.Minute

// KeyPair is the process signing key and its public half
type KeyPair struct {
	Public  ed25519.PublicKey
	Private ed25519.PrivateKey
}

// Validate checks key sizes and that Public belongs to Private
func (k KeyPair) Validate() error {
	if len(k.Private) != ed25519.PrivateKeySize {
		return goerrors.New("private key must be an ed25519 key", goerrors.CategoryBadInput).
			WithTextCode(string(KindInvalidKey))
	}
	if len(k.Public) != ed25519.PublicKeySize {
		return goerrors.New("public key must be an ed25519 key", goerrors.CategoryBadInput).
			WithTextCode(string(KindInvalidKey))
	}
	derived, ok := k.Private.Public().(ed25519.PublicKey)
	if !ok || !derived.Equal(k.Public) {
		return goerrors.New("public key does not match private key", goerrors.CategoryBadInput).
			WithTextCode(string(KindInvalidKey))
	}
	return nil
}

// tokenFooter carries the expiry. It is authenticated by the signature
// and kept out of the claims.
type tokenFooter struct {
	Exp string `json:"exp"`
}

// Sign issues a token for claims that expires after expireIn.
func Sign(claims Claims, privateKey ed25519.PrivateKey, expireIn time.Duration) (string, error) {
	return SignAt(claims, privateKey, expireIn, time.Now())
}

// SignAt is like Sign with an explicit issuing time. An iat claim in Unix
// milliseconds is added when claims has none.
func SignAt(claims Claims, privateKey ed25519.PrivateKey, expireIn time.Duration, now time.Time) (string, error) {
	if expireIn <= 0 {
		return "", goerrors.New("token lifespan must be positive", goerrors.CategoryBadInput).
			WithTextCode(string(KindValidation))
	}

	validated, err := ValidateClaims(claims)
	if err != nil {
		return "", err
	}

	if _, ok := validated[ClaimIssuedAt]; !ok {
		validated[ClaimIssuedAt] = now.UnixMilli()
	}

	message, err := json.Marshal(validated)
	if err != nil {
		return "", goerrors.Wrap(err, goerrors.CategoryInternal, "failed to encode claims").
			WithTextCode(string(KindInternal))
	}

	footer, err := json.Marshal(tokenFooter{
		Exp: now.Add(expireIn).UTC().Format(time.RFC3339Nano),
	})
	if err != nil {
		return "", goerrors.Wrap(err, goerrors.CategoryInternal, "failed to encode footer").
			WithTextCode(string(KindInternal))
	}

	token, err := paseto.SignPublic(privateKey, message, footer, nil)
	if err != nil {
		return "", goerrors.Wrap(err, goerrors.CategoryInternal, "failed to sign token").
			WithTextCode(string(KindInternal))
	}

	return token, nil
}

// Verify returns the claims of a valid, unexpired token. Any failure is
// ErrUnauthorized with no further detail.
func Verify(token string, publicKey ed25519.PublicKey) (Claims, error) {
	return VerifyAt(token, publicKey, time.Now())
}

// VerifyAt is like Verify with an explicit current time.
func VerifyAt(token string, publicKey ed25519.PublicKey, now time.Time) (Claims, error) {
	claims, err := verifyToken(token, publicKey, now)
	if err != nil {
		return nil, unauthorized()
	}
	return claims, nil
}

// verifyToken keeps the reason for a failure so callers can log it.
func verifyToken(token string, publicKey ed25519.PublicKey, now time.Time) (Claims, error) {
	t, err := paseto.VerifyPublic(publicKey, token, nil)
	if err != nil {
		return nil, err
	}

	var footer tokenFooter
	if err := json.Unmarshal(t.Footer, &footer); err != nil {
		return nil, withCause(paseto.ErrMalformedToken, fmt.Errorf("footer: %w", err))
	}

	exp, err := time.Parse(time.RFC3339Nano, footer.Exp)
	if err != nil {
		return nil, withCause(paseto.ErrMalformedToken, fmt.Errorf("footer exp: %w", err))
	}

	if !now.Before(exp) {
		return nil, withCause(ErrTokenExpired, fmt.Errorf("expired at %s", footer.Exp))
	}

	var candidate any
	if err := json.Unmarshal(t.Message, &candidate); err != nil {
		return nil, withCause(ErrInvalidClaims, fmt.Errorf("payload is not JSON: %w", err))
	}

	return ValidateClaims(candidate)
}

// TokenServiceImpl binds a key pair, a lifespan and a clock
type TokenServiceImpl struct {
	keys     KeyPair
	lifespan time.Duration
	logger   Logger
	now      func() time.Time
}

var _ TokenService = (*TokenServiceImpl)(nil)

// TokenServiceOption configures a TokenServiceImpl
type TokenServiceOption func(*TokenServiceImpl)

// WithClock replaces time.Now, mostly for tests
func WithClock(now func() time.Time) TokenServiceOption {
	return func(ts *TokenServiceImpl) {
		if now != nil {
			ts.now = now
		}
	}
}

// WithTokenLogger sets the logger used for verification diagnostics
func WithTokenLogger(logger Logger) TokenServiceOption {
	return func(ts *TokenServiceImpl) {
		if logger != nil {
			ts.logger = logger
		}
	}
}

// NewTokenService creates a new TokenService instance. A zero lifespan
// uses DefaultTokenLifespan.
func NewTokenService(keys KeyPair, lifespan time.Duration, opts ...TokenServiceOption) *TokenServiceImpl {
	if lifespan <= 0 {
		lifespan = DefaultTokenLifespan
	}
	ts := &TokenServiceImpl{
		keys:     keys,
		lifespan: lifespan,
		logger:   defLogger{},
		now:      time.Now,
	}
	for _, opt := range opts {
		if opt != nil {
			opt(ts)
		}
	}
	return ts
}

// Lifespan returns the configured token lifespan
func (ts *TokenServiceImpl) Lifespan() time.Duration {
	return ts.lifespan
}

// Sign issues a token with the configured lifespan
func (ts *TokenServiceImpl) Sign(claims Claims) (string, error) {
	return SignAt(claims, ts.keys.Private, ts.lifespan, ts.now())
}

// Verify checks token and returns its claims. The failure reason is
// logged at debug level and never returned.
func (ts *TokenServiceImpl) Verify(token string) (Claims, error) {
	claims, err := verifyToken(token, ts.keys.Public, ts.now())
	if err != nil {
		ts.logger.Debug("token verification failed", "reason", string(KindOf(err)), "error", err)
		return nil, unauthorized()
	}
	return claims, nil
}

// Issue signs claims and verifies the result, returning the token and the
// claims as a client will see them.
func (ts *TokenServiceImpl) Issue(claims Claims) (string, Claims, error) {
	token, err := ts.Sign(claims)
	if err != nil {
		return "", nil, err
	}

	verified, err := ts.Verify(token)
	if err != nil {
		ts.logger.Error("freshly issued token failed verification")
		return "", nil, err
	}

	return token, verified, nil
}
