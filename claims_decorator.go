package auth

import "context"

// ClaimsDecorator can add extension claims before a token is signed.
// Implementations must leave sub, iat, name, email and role untouched.
type ClaimsDecorator interface {
	Decorate(ctx context.Context, user *User, claims Claims) error
}

// ClaimsDecoratorFunc adapts a function into a ClaimsDecorator.
type ClaimsDecoratorFunc func(ctx context.Context, user *User, claims Claims) error

// Decorate satisfies the ClaimsDecorator interface.
func (f ClaimsDecoratorFunc) Decorate(ctx context.Context, user *User, claims Claims) error {
	if f == nil {
		return nil
	}
	return f(ctx, user, claims)
}

type noopClaimsDecorator struct{}

func (noopClaimsDecorator) Decorate(context.Context, *User, Claims) error {
	return nil
}

func normalizeClaimsDecorator(d ClaimsDecorator) ClaimsDecorator {
	if d == nil {
		return noopClaimsDecorator{}
	}
	return d
}

// decorateClaims runs d over the claims issued for user and fails when
// an identity claim changed.
func decorateClaims(ctx context.Context, d ClaimsDecorator, user *User, claims Claims) error {
	snapshot := captureImmutableClaims(claims)
	if err := normalizeClaimsDecorator(d).Decorate(ctx, user, claims); err != nil {
		return err
	}
	return snapshot.validate(claims)
}
