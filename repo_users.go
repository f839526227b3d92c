package auth

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"net/mail"
	"strings"
	"time"

	goerrors "github.com/goliatone/go-errors"
	"github.com/goliatone/go-repository-bun"
	"github.com/google/uuid"
	"github.com/uptrace/bun"
)

// Users is the user store. FindUserBySubject is the only query the
// request pipeline runs.
type Users interface {
	UserFinder

	FindByEmail(ctx context.Context, email string) (*User, error)
	GetByIdentifier(ctx context.Context, identifier string, criteria ...repository.SelectCriteria) (*User, error)
	EmailExists(ctx context.Context, email string) (bool, error)
	EmailExistsTx(ctx context.Context, tx bun.IDB, email string) (bool, error)
	Register(ctx context.Context, user *User) (*User, error)
	RegisterTx(ctx context.Context, tx bun.IDB, user *User) (*User, error)
	UpdateClaims(ctx context.Context, id string, claims Claims) error
}

type users struct {
	repository.Repository[*User]
	db *bun.DB
}

var (
	_ Users                        = (*users)(nil)
	_ repository.Repository[*User] = (*users)(nil)
)

// NewUsersRepository returns a bun backed Users store
func NewUsersRepository(db *bun.DB) Users {
	repo := repository.NewRepository[*User](db, repository.ModelHandlers[*User]{
		NewRecord: func() *User { return &User{} },
		GetID: func(u *User) uuid.UUID {
			if u == nil {
				return uuid.Nil
			}
			id, err := uuid.Parse(u.ID)
			if err != nil {
				return uuid.Nil
			}
			return id
		},
		SetID: func(u *User, id uuid.UUID) {
			if u != nil {
				u.ID = id.String()
			}
		},
	})

	return &users{
		Repository: repo,
		db:         db,
	}
}

func (a *users) FindUserBySubject(ctx context.Context, subject string) (*User, error) {
	subject = strings.TrimSpace(subject)
	if subject == "" {
		return nil, ErrIdentityNotFound.Clone()
	}

	record, err := a.Repository.GetByID(ctx, subject)
	if err != nil {
		return nil, mapUserLookupError(err)
	}
	return record, nil
}

func (a *users) FindByEmail(ctx context.Context, email string) (*User, error) {
	email = normalizeEmail(email)
	if !isEmail(email) {
		return nil, ErrIdentityNotFound.Clone()
	}

	record, err := a.GetByIdentifier(ctx, email)
	if err != nil {
		return nil, mapUserLookupError(err)
	}
	return record, nil
}

func (a *users) GetByIdentifier(ctx context.Context, identifier string, criteria ...repository.SelectCriteria) (*User, error) {
	return a.GetByIdentifierTx(ctx, a.db, identifier, criteria...)
}

// GetByIdentifierTx looks a user up by id or email, in that order.
func (a *users) GetByIdentifierTx(ctx context.Context, tx bun.IDB, identifier string, criteria ...repository.SelectCriteria) (*User, error) {
	for _, opt := range resolveUserIdentifier(identifier) {
		record := &User{}
		q := tx.NewSelect().Model(record)

		for _, c := range criteria {
			q.Apply(c)
		}

		err := q.
			Where(fmt.Sprintf("?TableAlias.%s = ?", opt.column), opt.value).
			Limit(1).
			Scan(ctx)

		if err != nil {
			if isRecordNotFound(err) {
				continue
			}
			return nil, err
		}

		return record, nil
	}

	return nil, repository.NewRecordNotFound().
		WithMetadata(map[string]any{
			"identifier": identifier,
		})
}

func (a *users) EmailExists(ctx context.Context, email string) (bool, error) {
	return a.EmailExistsTx(ctx, a.db, email)
}

func (a *users) EmailExistsTx(ctx context.Context, tx bun.IDB, email string) (bool, error) {
	exists, err := tx.NewSelect().
		Model((*User)(nil)).
		Where("?TableAlias.email = ?", normalizeEmail(email)).
		Exists(ctx)
	if err != nil {
		return false, goerrors.Wrap(err, goerrors.CategoryInternal, "failed to check email").
			WithTextCode(string(KindInternal))
	}
	return exists, nil
}

func (a *users) Register(ctx context.Context, user *User) (*User, error) {
	return a.RegisterTx(ctx, a.db, user)
}

func (a *users) RegisterTx(ctx context.Context, tx bun.IDB, user *User) (*User, error) {
	if user == nil {
		return nil, goerrors.New("user is required", goerrors.CategoryBadInput).
			WithTextCode(string(KindValidation))
	}

	created, err := a.CreateTx(ctx, tx, user)
	if err != nil {
		return nil, goerrors.Wrap(err, goerrors.CategoryConflict, "could not create user").
			WithTextCode(string(KindInternal))
	}
	return created, nil
}

func (a *users) Create(ctx context.Context, record *User, criteria ...repository.InsertCriteria) (*User, error) {
	return a.CreateTx(ctx, a.db, record, criteria...)
}

func (a *users) CreateTx(ctx context.Context, tx bun.IDB, record *User, criteria ...repository.InsertCriteria) (*User, error) {
	prepareUserDefaults(record)
	return a.Repository.CreateTx(ctx, tx, record, criteria...)
}

func (a *users) UpdateClaims(ctx context.Context, id string, claims Claims) error {
	validated, err := ValidateClaims(claims)
	if err != nil {
		return err
	}
	if err := ValidateRoleClaim(validated); err != nil {
		return err
	}

	res, err := a.db.NewUpdate().
		Model((*User)(nil)).
		Set("claims = ?", validated).
		Where("id = ?", id).
		Exec(ctx)
	if err != nil {
		return goerrors.Wrap(err, goerrors.CategoryInternal, "failed to update claims").
			WithTextCode(string(KindInternal))
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return ErrIdentityNotFound.Clone()
	}
	return nil
}

func prepareUserDefaults(record *User) {
	if record == nil {
		return
	}

	if record.ID == "" {
		record.ID = NewPublicID()
	}
	record.Email = normalizeEmail(record.Email)
	if record.Claims == nil {
		record.Claims = Claims{}
	}
	if record.CreatedAt.IsZero() {
		record.CreatedAt = time.Now().UTC()
	}
}

type identifierOption struct {
	column string
	value  string
}

func resolveUserIdentifier(identifier string) []identifierOption {
	trimmed := strings.TrimSpace(identifier)
	if trimmed == "" {
		return nil
	}

	options := make([]identifierOption, 0, 2)

	if _, err := uuid.Parse(trimmed); err == nil {
		options = append(options, identifierOption{
			column: "id",
			value:  trimmed,
		})
	}

	if isEmail(trimmed) {
		options = append(options, identifierOption{
			column: "email",
			value:  normalizeEmail(trimmed),
		})
	}

	return options
}

func isEmail(value string) bool {
	addr, err := mail.ParseAddress(value)
	return err == nil && addr.Address == value
}

func isRecordNotFound(err error) bool {
	return errors.Is(err, sql.ErrNoRows) || repository.IsRecordNotFound(err)
}

func mapUserLookupError(err error) error {
	if isRecordNotFound(err) {
		return withCause(ErrIdentityNotFound, err)
	}
	return goerrors.Wrap(err, goerrors.CategoryInternal, "failed to retrieve user").
		WithTextCode(string(KindInternal))
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}
