package auth

import (
	"context"
	"time"

	validation "github.com/go-ozzo/ozzo-validation"
	"github.com/go-ozzo/ozzo-validation/is"
	goerrors "github.com/goliatone/go-errors"
	"github.com/uptrace/bun"
)

// RegisterUserMessage is the signup request
type RegisterUserMessage struct {
	Name     string `json:"name" form:"name"`
	Email    string `json:"email" form:"email"`
	Password string `json:"password" form:"password"`
}

func (e RegisterUserMessage) Type() string { return "user.register" }

// Validate will validate the payload
func (e RegisterUserMessage) Validate() error {
	return validation.ValidateStruct(&e,
		validation.Field(&e.Name, validation.Required, validation.Length(1, 200)),
		validation.Field(&e.Email, validation.Required, validation.Length(3, 254), is.Email),
		validation.Field(&e.Password, validation.Required, validation.Length(1, 72)),
	)
}

// RegisterUserHandler creates users
type RegisterUserHandler struct {
	repo      RepositoryManager
	passwords PasswordAuthenticator
}

func NewRegisterUserHandler(repo RepositoryManager) *RegisterUserHandler {
	return &RegisterUserHandler{
		repo:      repo,
		passwords: BcryptAuthenticator{},
	}
}

func (h *RegisterUserHandler) WithPasswordAuthenticator(p PasswordAuthenticator) *RegisterUserHandler {
	if p != nil {
		h.passwords = p
	}
	return h
}

func (h *RegisterUserHandler) Execute(ctx context.Context, event RegisterUserMessage) (*User, error) {
	select {
	case <-ctx.Done():
		return nil, goerrors.Wrap(
			ctx.Err(),
			goerrors.CategoryOperation,
			"context cancelled during user registration",
		).WithTextCode(string(KindInternal))
	default:
		return h.execute(ctx, event)
	}
}

func (h *RegisterUserHandler) execute(ctx context.Context, event RegisterUserMessage) (*User, error) {
	if err := event.Validate(); err != nil {
		return nil, goerrors.Wrap(err, goerrors.CategoryValidation, "invalid registration payload").
			WithCode(goerrors.CodeBadRequest).
			WithTextCode(string(KindValidation))
	}

	hash, err := h.passwords.HashPassword(event.Password)
	if err != nil {
		return nil, goerrors.Wrap(err, goerrors.CategoryValidation, "invalid password provided").
			WithTextCode(string(KindValidation))
	}

	ctx, cancel := context.WithTimeout(ctx, time.Second*10)
	defer cancel()

	var user *User
	err = h.repo.RunInTx(ctx, nil, func(ctx context.Context, tx bun.Tx) error {
		exists, err := h.repo.Users().EmailExistsTx(ctx, tx, event.Email)
		if err != nil {
			return err
		}
		if exists {
			return ErrEmailExists.Clone()
		}

		user, err = h.repo.Users().RegisterTx(ctx, tx, &User{
			Name:         event.Name,
			Email:        event.Email,
			PasswordHash: hash,
			Claims:       Claims{},
		})
		return err
	})

	if err != nil {
		var richErr *goerrors.Error
		if goerrors.As(err, &richErr) {
			return nil, richErr
		}
		return nil, goerrors.Wrap(err, goerrors.CategoryInternal, "user registration transaction failed").
			WithTextCode(string(KindInternal))
	}

	return user, nil
}
