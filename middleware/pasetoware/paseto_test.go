package pasetoware_test

import (
	"context"
	"crypto/ed25519"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/goliatone/go-router"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	auth "github.com/goliatone/go-blog-auth"
	"github.com/goliatone/go-blog-auth/middleware/pasetoware"
	"github.com/goliatone/go-blog-auth/paseto"
)

type memoryUsers map[string]*auth.User

func (m memoryUsers) FindUserBySubject(_ context.Context, subject string) (*auth.User, error) {
	if u, ok := m[subject]; ok {
		return u, nil
	}
	return nil, auth.ErrIdentityNotFound.Clone()
}

type fixture struct {
	tokens   *auth.TokenServiceImpl
	private  ed25519.PrivateKey
	users    memoryUsers
	outcomes []string
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	pub, priv, err := paseto.GenerateKeyPair()
	require.NoError(t, err)

	return &fixture{
		private: priv,
		tokens: auth.NewTokenService(auth.KeyPair{Public: pub, Private: priv}, time.Minute,
			auth.WithTokenLogger(auth.NopLogger())),
		users: memoryUsers{
			"u1": {ID: "u1", Name: "Ada", Email: "ada@example.com"},
			"u2": {ID: "u2", Name: "Bob", Email: "bob@example.com"},
		},
	}
}

// newServer returns the router and the fiber app it drives.
func newServer() (router.Router[*fiber.App], *fiber.App) {
	var app *fiber.App
	srv := router.NewFiberAdapter(func(_ *fiber.App) *fiber.App {
		app = fiber.New()
		return app
	})
	return srv.Router(), app
}

func (f *fixture) authenticator() *auth.RequestAuthenticator {
	return auth.NewRequestAuthenticator(f.tokens, f.users).WithLogger(auth.NopLogger())
}

func (f *fixture) app(pre ...router.MiddlewareFunc) *fiber.App {
	r, app := newServer()
	for _, mw := range pre {
		r.Use(mw)
	}

	protected := pasetoware.New(pasetoware.Config{
		Authenticator: f.authenticator(),
		OnDecision: func(outcome string) {
			f.outcomes = append(f.outcomes, outcome)
		},
	})

	r.Get("/protected", func(ctx router.Context) error {
		user, ok := pasetoware.CurrentUser(ctx)
		if !ok {
			return ctx.JSON(http.StatusTeapot, map[string]string{})
		}
		ctxUser, ok := auth.FromContext(ctx.Context())
		if !ok || ctxUser.ID != user.ID {
			return ctx.JSON(http.StatusTeapot, map[string]string{})
		}
		return ctx.JSON(router.StatusOK, map[string]string{"id": user.ID})
	}, protected)
	return app
}

func (f *fixture) token(t *testing.T, sub string) string {
	t.Helper()
	token, err := f.tokens.Sign(auth.Claims{"sub": sub})
	require.NoError(t, err)
	return token
}

func do(t *testing.T, app *fiber.App, authorization string) (int, map[string]any) {
	t.Helper()
	req := httptest.NewRequest(http.MethodGet, "/protected", nil)
	if authorization != "" {
		req.Header.Set(router.HeaderAuthorization, authorization)
	}
	resp, err := app.Test(req)
	require.NoError(t, err)
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	require.NoError(t, err)

	body := map[string]any{}
	if len(raw) > 0 {
		_ = json.Unmarshal(raw, &body)
	}
	return resp.StatusCode, body
}

func TestPasetoWare_Authorized(t *testing.T) {
	f := newFixture(t)
	status, body := do(t, f.app(), "Bearer "+f.token(t, "u1"))

	assert.Equal(t, fiber.StatusOK, status)
	assert.Equal(t, "u1", body["id"])
	assert.Equal(t, []string{pasetoware.OutcomeAuthorized}, f.outcomes)
}

func TestPasetoWare_SchemeIsCaseInsensitive(t *testing.T) {
	f := newFixture(t)
	status, _ := do(t, f.app(), "bearer "+f.token(t, "u1"))
	assert.Equal(t, fiber.StatusOK, status)
}

func TestPasetoWare_Rejections(t *testing.T) {
	f := newFixture(t)
	valid := f.token(t, "u1")

	cases := []struct {
		name   string
		header string
	}{
		{name: "missing header", header: ""},
		{name: "missing scheme", header: valid},
		{name: "wrong scheme", header: "Basic " + valid},
		{name: "garbage", header: "Bearer not-a-token"},
		{name: "unknown subject", header: "Bearer " + f.token(t, "ghost")},
		{name: "tampered", header: "Bearer " + valid[:len(valid)-2] + "AA"},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			status, body := do(t, f.app(), tc.header)
			assert.Equal(t, fiber.StatusUnauthorized, status)
			assert.Equal(t, map[string]any{"error": "unauthorized"}, body)
		})
	}
}

func TestPasetoWare_ExpiredToken(t *testing.T) {
	f := newFixture(t)
	token, err := auth.SignAt(auth.Claims{"sub": "u1"}, f.private, time.Minute, time.Now().Add(-2*time.Minute))
	require.NoError(t, err)

	status, _ := do(t, f.app(), "Bearer "+token)
	assert.Equal(t, fiber.StatusUnauthorized, status)
	assert.Equal(t, []string{pasetoware.OutcomeRejected}, f.outcomes)
}

func TestPasetoWare_ReentryWithDifferentSubjectIsForbidden(t *testing.T) {
	f := newFixture(t)

	attach := func(next router.HandlerFunc) router.HandlerFunc {
		return func(ctx router.Context) error {
			state := auth.NewRequestAuth()
			state.Identity = f.users["u1"]
			ctx.Locals("auth", state)
			return ctx.Next()
		}
	}

	status, body := do(t, f.app(attach), "Bearer "+f.token(t, "u2"))
	assert.Equal(t, fiber.StatusForbidden, status)
	assert.Equal(t, map[string]any{"error": "forbidden"}, body)
	assert.Equal(t, []string{pasetoware.OutcomeForbidden}, f.outcomes)
}

func TestPasetoWare_ReentryWithSameSubject(t *testing.T) {
	f := newFixture(t)

	attach := func(next router.HandlerFunc) router.HandlerFunc {
		return func(ctx router.Context) error {
			state := auth.NewRequestAuth()
			state.Identity = f.users["u1"]
			ctx.SetContext(auth.WithRequestAuth(ctx.Context(), state))
			return ctx.Next()
		}
	}

	status, body := do(t, f.app(attach), "Bearer "+f.token(t, "u1"))
	assert.Equal(t, fiber.StatusOK, status)
	assert.Equal(t, "u1", body["id"])
}

func TestPasetoWare_Filter(t *testing.T) {
	f := newFixture(t)
	r, app := newServer()

	r.Get("/open", func(ctx router.Context) error {
		return ctx.JSON(http.StatusAccepted, map[string]string{})
	}, pasetoware.New(pasetoware.Config{
		Authenticator: f.authenticator(),
		Filter:        func(router.Context) bool { return true },
	}))

	resp, err := app.Test(httptest.NewRequest(http.MethodGet, "/open", nil))
	require.NoError(t, err)
	assert.Equal(t, http.StatusAccepted, resp.StatusCode)
}

func TestGetDefaultConfig_RequiresAuthenticator(t *testing.T) {
	assert.Panics(t, func() {
		pasetoware.GetDefaultConfig()
	})

	f := newFixture(t)
	cfg := pasetoware.GetDefaultConfig(pasetoware.Config{
		Authenticator: auth.NewRequestAuthenticator(f.tokens, f.users),
	})
	assert.Equal(t, "auth", cfg.ContextKey)
	assert.Equal(t, router.HeaderAuthorization, cfg.Header)
	assert.NotNil(t, cfg.ErrorHandler)
	assert.NotNil(t, cfg.OnDecision)
}

func TestPasetoWare_MinimumRole(t *testing.T) {
	f := newFixture(t)
	r, app := newServer()

	r.Get("/protected", func(ctx router.Context) error {
		return ctx.JSON(http.StatusAccepted, map[string]string{})
	}, pasetoware.New(pasetoware.Config{
		Authenticator: f.authenticator(),
		MinimumRole:   auth.RoleEditor,
	}))

	user, err := f.tokens.Sign(auth.Claims{"sub": "u1", "role": "user"})
	require.NoError(t, err)
	status, body := do(t, app, "Bearer "+user)
	assert.Equal(t, fiber.StatusForbidden, status)
	assert.Equal(t, map[string]any{"error": "forbidden"}, body)

	editor, err := f.tokens.Sign(auth.Claims{"sub": "u1", "role": "editor"})
	require.NoError(t, err)
	status, _ = do(t, app, "Bearer "+editor)
	assert.Equal(t, http.StatusAccepted, status)
}
