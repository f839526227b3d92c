package auth_test

import (
	"context"
	"testing"

	"github.com/goliatone/go-repository-bun"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	auth "github.com/goliatone/go-blog-auth"
)

func TestUsersRepository(t *testing.T) {
	ctx := context.Background()
	_, repo := newTestDB(t)
	users := repo.Users()

	created, err := users.Register(ctx, &auth.User{
		Name:         "Ada",
		Email:        "Ada@Example.com",
		PasswordHash: "hash",
	})
	require.NoError(t, err)
	assert.NotEmpty(t, created.ID)
	assert.Equal(t, "ada@example.com", created.Email)

	found, err := users.FindUserBySubject(ctx, created.ID)
	require.NoError(t, err)
	assert.Equal(t, "Ada", found.Name)
	assert.NotNil(t, found.Claims)

	byEmail, err := users.FindByEmail(ctx, "ADA@example.com")
	require.NoError(t, err)
	assert.Equal(t, created.ID, byEmail.ID)

	byID, err := users.GetByIdentifier(ctx, created.ID)
	require.NoError(t, err)
	assert.Equal(t, "ada@example.com", byID.Email)

	byIdentifier, err := users.GetByIdentifier(ctx, "ada@example.com")
	require.NoError(t, err)
	assert.Equal(t, created.ID, byIdentifier.ID)

	_, err = users.GetByIdentifier(ctx, "nobody@example.com")
	assert.True(t, repository.IsRecordNotFound(err))

	_, err = users.FindByEmail(ctx, "nobody@example.com")
	assert.Equal(t, auth.KindIdentityNotFound, auth.KindOf(err))

	_, err = users.FindByEmail(ctx, "not an email")
	assert.Equal(t, auth.KindIdentityNotFound, auth.KindOf(err))

	exists, err := users.EmailExists(ctx, "ada@example.com")
	require.NoError(t, err)
	assert.True(t, exists)

	exists, err = users.EmailExists(ctx, "bob@example.com")
	require.NoError(t, err)
	assert.False(t, exists)

	_, err = users.FindUserBySubject(ctx, "missing")
	assert.Equal(t, auth.KindIdentityNotFound, auth.KindOf(err))

	_, err = users.FindUserBySubject(ctx, "  ")
	assert.Equal(t, auth.KindIdentityNotFound, auth.KindOf(err))

	_, err = users.Register(ctx, &auth.User{Name: "Dup", Email: "ada@example.com", PasswordHash: "x"})
	assert.Error(t, err, "email is unique")
}

func TestUsersRepository_UpdateClaims(t *testing.T) {
	ctx := context.Background()
	_, repo := newTestDB(t)

	u, err := repo.Users().Register(ctx, &auth.User{Name: "Ada", Email: "ada@example.com", PasswordHash: "x"})
	require.NoError(t, err)

	require.NoError(t, repo.Users().UpdateClaims(ctx, u.ID, auth.Claims{"role": "editor", "level": 3}))

	found, err := repo.Users().FindUserBySubject(ctx, u.ID)
	require.NoError(t, err)
	assert.Equal(t, "editor", found.Claims.Role())
	assert.Equal(t, 3.0, found.Claims["level"])

	err = repo.Users().UpdateClaims(ctx, u.ID, auth.Claims{"bad": []string{"x"}})
	assert.Equal(t, auth.KindInvalidClaims, auth.KindOf(err))

	err = repo.Users().UpdateClaims(ctx, u.ID, auth.Claims{"role": "owner"})
	assert.Equal(t, auth.KindInvalidClaims, auth.KindOf(err))

	err = repo.Users().UpdateClaims(ctx, u.ID, auth.Claims{"role": 2})
	assert.Equal(t, auth.KindInvalidClaims, auth.KindOf(err))

	found, err = repo.Users().FindUserBySubject(ctx, u.ID)
	require.NoError(t, err)
	assert.Equal(t, "editor", found.Claims.Role(), "rejected updates leave stored claims alone")

	require.NoError(t, repo.Users().UpdateClaims(ctx, u.ID, auth.Claims{"level": 4}))

	err = repo.Users().UpdateClaims(ctx, "missing", auth.Claims{"role": "admin"})
	assert.Equal(t, auth.KindIdentityNotFound, auth.KindOf(err))
}

func TestPostsRepository(t *testing.T) {
	ctx := context.Background()
	_, repo := newTestDB(t)
	posts := repo.Posts()

	created, err := posts.Upsert(ctx, "u1", &auth.Post{Title: "Hello", Content: "first"})
	require.NoError(t, err)
	assert.NotEmpty(t, created.ID)
	assert.Equal(t, 1, created.Version)
	assert.Equal(t, "u1", created.UserID)

	updated, err := posts.Upsert(ctx, "u1", &auth.Post{ID: created.ID, Title: "Hello again", Content: "second"})
	require.NoError(t, err)
	assert.Equal(t, 2, updated.Version)
	assert.Equal(t, "Hello again", updated.Title)

	_, err = posts.Upsert(ctx, "u2", &auth.Post{ID: created.ID, Title: "Mine now", Content: "x"})
	assert.True(t, auth.IsForbidden(err))

	got, err := posts.Get(ctx, created.ID)
	require.NoError(t, err)
	assert.Equal(t, 2, got.Version)
	assert.Equal(t, "second", got.Content)

	versions, err := posts.Versions(ctx, created.ID)
	require.NoError(t, err)
	require.Len(t, versions, 2)
	assert.Equal(t, "first", versions[0].Content)
	assert.Equal(t, "second", versions[1].Content)

	_, err = posts.Get(ctx, "missing")
	assert.Equal(t, auth.KindPostNotFound, auth.KindOf(err))

	_, err = posts.Upsert(ctx, "u2", &auth.Post{Title: "Other", Content: "y"})
	require.NoError(t, err)

	all, err := posts.List(ctx)
	require.NoError(t, err)
	assert.Len(t, all, 2)

	_, err = posts.Upsert(ctx, "u1", nil)
	assert.Error(t, err)
}

func TestRepositoryManager(t *testing.T) {
	_, repo := newTestDB(t)

	assert.NoError(t, repo.Validate())
	assert.NotPanics(t, repo.MustValidate)
	assert.NoError(t, repo.Ping(context.Background()))
	assert.NoError(t, repo.CreateSchema(context.Background()), "schema creation is repeatable")

	_, err := auth.OpenDB("mysql", "")
	assert.Error(t, err)
}
