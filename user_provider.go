package auth

import (
	"context"
	"sync"

	goerrors "github.com/goliatone/go-errors"
)

// UserProvider checks credentials against the user store
type UserProvider struct {
	store     Users
	passwords PasswordAuthenticator
	logger    Logger

	dummyOnce sync.Once
	dummyHash string
}

// dummyPassword is hashed once and compared against on unknown emails so
// both sign in failure paths pay for a hash comparison.
const dummyPassword = "blog-auth:unknown-identity"

// NewUserProvider will create a new UserProvider
func NewUserProvider(store Users) *UserProvider {
	return &UserProvider{
		store:     store,
		passwords: BcryptAuthenticator{},
		logger:    defLogger{},
	}
}

func (u *UserProvider) WithLogger(l Logger) *UserProvider {
	u.logger = ensureLogger(l)
	return u
}

func (u *UserProvider) WithPasswordAuthenticator(p PasswordAuthenticator) *UserProvider {
	if p != nil {
		u.passwords = p
		u.dummyOnce = sync.Once{}
		u.dummyHash = ""
	}
	return u
}

// VerifyIdentity will find the user by email and compare the password.
// Unknown emails and wrong passwords return the same error.
func (u *UserProvider) VerifyIdentity(ctx context.Context, email, password string) (*User, error) {
	user, err := u.store.FindByEmail(ctx, email)
	if err != nil {
		if KindOf(err) == KindIdentityNotFound {
			_ = u.passwords.ComparePasswordAndHash(password, u.timingHash())
			return nil, ErrMismatchedHashAndPassword.Clone()
		}
		return nil, goerrors.Wrap(err, goerrors.CategoryInternal, "failed to retrieve user during verification").
			WithTextCode(string(KindInternal))
	}

	if err := u.passwords.ComparePasswordAndHash(password, user.PasswordHash); err != nil {
		u.logger.Debug("password mismatch", "user", user.ID)
		return nil, ErrMismatchedHashAndPassword.Clone()
	}

	return user, nil
}

func (u *UserProvider) timingHash() string {
	u.dummyOnce.Do(func() {
		hash, err := u.passwords.HashPassword(dummyPassword)
		if err != nil {
			u.logger.Error("failed to prepare dummy password hash", "error", err)
			return
		}
		u.dummyHash = hash
	})
	return u.dummyHash
}
