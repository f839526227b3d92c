package auth_test

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/goliatone/go-router"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	auth "github.com/goliatone/go-blog-auth"
	"github.com/goliatone/go-blog-auth/middleware/pasetoware"
)

type apiFixture struct {
	app    *fiber.App
	repo   auth.RepositoryManager
	tokens *auth.TokenServiceImpl
	now    time.Time

	mu     sync.Mutex
	events []auth.ActivityEvent
}

func (f *apiFixture) recorded() []auth.ActivityEvent {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]auth.ActivityEvent(nil), f.events...)
}

func newAPIFixture(t *testing.T) *apiFixture {
	t.Helper()

	_, repo := newTestDB(t)
	f := &apiFixture{repo: repo, now: time.Now()}

	clock := func() time.Time { return f.now }
	f.tokens = auth.NewTokenService(newKeyPair(t), 120000*time.Millisecond,
		auth.WithClock(clock),
		auth.WithTokenLogger(auth.NopLogger()),
	)

	protected := pasetoware.New(pasetoware.Config{
		Authenticator: auth.NewRequestAuthenticator(f.tokens, repo.Users()).WithLogger(auth.NopLogger()),
	})

	var r router.Router[*fiber.App]
	r, f.app = newRouterApp()
	auth.RegisterAuthRoutes(r, protected,
		auth.WithControllerRepository(repo),
		auth.WithControllerTokens(f.tokens),
		auth.WithControllerLogger(auth.NopLogger()),
		auth.WithControllerClock(clock),
		auth.WithControllerActivitySink(auth.ActivitySinkFunc(func(_ context.Context, e auth.ActivityEvent) error {
			f.mu.Lock()
			defer f.mu.Unlock()
			f.events = append(f.events, e)
			return nil
		})),
	)
	return f
}

// newRouterApp builds a fiber backed router and returns the fiber app
// requests are sent to.
func newRouterApp() (router.Router[*fiber.App], *fiber.App) {
	var app *fiber.App
	srv := router.NewFiberAdapter(func(_ *fiber.App) *fiber.App {
		app = fiber.New()
		return app
	})
	return srv.Router(), app
}

func (f *apiFixture) do(t *testing.T, method, path, token string, body any) (int, map[string]any) {
	t.Helper()

	var reader io.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(raw)
	}

	req := httptest.NewRequest(method, path, reader)
	req.Header.Set(fiber.HeaderContentType, fiber.MIMEApplicationJSON)
	if token != "" {
		req.Header.Set(router.HeaderAuthorization, "Bearer "+token)
	}

	resp, err := f.app.Test(req, -1)
	require.NoError(t, err)
	defer resp.Body.Close()

	out := map[string]any{}
	raw, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	if len(raw) > 0 {
		require.NoError(t, json.Unmarshal(raw, &out), string(raw))
	}
	return resp.StatusCode, out
}

func (f *apiFixture) signup(t *testing.T, name, email, password string) (string, map[string]any) {
	t.Helper()
	status, body := f.do(t, http.MethodPost, "/signup", "", map[string]string{
		"name": name, "email": email, "password": password,
	})
	require.Equal(t, fiber.StatusCreated, status, body)

	token, _ := body["token"].(string)
	require.NotEmpty(t, token)
	claims, _ := body["claims"].(map[string]any)
	return token, claims
}

func TestSignUp(t *testing.T) {
	f := newAPIFixture(t)

	_, claims := f.signup(t, "Ada", "ada@example.com", "correct horse")
	assert.NotEmpty(t, claims["sub"])
	assert.Equal(t, "Ada", claims["name"])
	assert.Equal(t, "ada@example.com", claims["email"])
	assert.Equal(t, "user", claims["role"])
	assert.Equal(t, float64(f.now.UnixMilli()), claims["iat"])
	assert.NotContains(t, claims, "exp")

	status, body := f.do(t, http.MethodPost, "/signup", "", map[string]string{
		"name": "Ada", "email": "ada@example.com", "password": "another",
	})
	assert.Equal(t, fiber.StatusConflict, status)
	assert.Equal(t, "email already exists", body["error"])

	status, body = f.do(t, http.MethodPost, "/signup", "", map[string]string{"name": "Bob"})
	assert.Equal(t, fiber.StatusBadRequest, status)
	assert.Contains(t, body, "details")
}

func TestSignIn(t *testing.T) {
	f := newAPIFixture(t)
	_, signupClaims := f.signup(t, "Ada", "ada@example.com", "correct horse")

	sub, _ := signupClaims["sub"].(string)
	require.NoError(t, f.repo.Users().UpdateClaims(context.Background(), sub, auth.Claims{
		"role": "editor",
		"sub":  "someone-else",
	}))

	status, body := f.do(t, http.MethodPost, "/signin", "", map[string]string{
		"email": "ada@example.com", "password": "correct horse",
	})
	require.Equal(t, fiber.StatusCreated, status, body)

	claims, _ := body["claims"].(map[string]any)
	assert.Equal(t, sub, claims["sub"], "stored claims can not replace the subject")
	assert.Equal(t, "editor", claims["role"])

	status, body = f.do(t, http.MethodPost, "/signin", "", map[string]string{
		"email": "ada@example.com", "password": "wrong",
	})
	assert.Equal(t, fiber.StatusUnauthorized, status)
	assert.Equal(t, "unauthorized", body["error"])

	status, _ = f.do(t, http.MethodPost, "/signin", "", map[string]string{
		"email": "nobody@example.com", "password": "correct horse",
	})
	assert.Equal(t, fiber.StatusUnauthorized, status)
}

func TestMe(t *testing.T) {
	f := newAPIFixture(t)
	token, _ := f.signup(t, "Ada", "ada@example.com", "correct horse")

	status, body := f.do(t, http.MethodGet, "/auth/me", token, nil)
	require.Equal(t, fiber.StatusOK, status)
	claims, _ := body["claims"].(map[string]any)
	assert.Equal(t, "Ada", claims["name"])

	status, body = f.do(t, http.MethodGet, "/auth/me", "", nil)
	assert.Equal(t, fiber.StatusUnauthorized, status)
	assert.Equal(t, map[string]any{"error": "unauthorized"}, body)

	f.now = f.now.Add(121 * time.Second)
	status, _ = f.do(t, http.MethodGet, "/auth/me", token, nil)
	assert.Equal(t, fiber.StatusUnauthorized, status, "token expired after its lifespan")
}

func TestPosts(t *testing.T) {
	f := newAPIFixture(t)
	ada, _ := f.signup(t, "Ada", "ada@example.com", "correct horse")
	bob, _ := f.signup(t, "Bob", "bob@example.com", "battery staple")

	status, body := f.do(t, http.MethodPost, "/post", "", map[string]string{"title": "t", "content": "c"})
	assert.Equal(t, fiber.StatusUnauthorized, status)

	status, body = f.do(t, http.MethodPost, "/post", ada, map[string]string{
		"title": "Hello", "content": "first", "image_url": "https://example.com/a.png",
	})
	require.Equal(t, fiber.StatusCreated, status, body)
	id, _ := body["id"].(string)
	require.NotEmpty(t, id)
	assert.Equal(t, 1.0, body["version"])

	status, body = f.do(t, http.MethodPost, "/post", ada, map[string]string{
		"id": id, "title": "Hello", "content": "second",
	})
	require.Equal(t, fiber.StatusCreated, status, body)
	assert.Equal(t, 2.0, body["version"])

	status, _ = f.do(t, http.MethodPost, "/post", bob, map[string]string{
		"id": id, "title": "Mine", "content": "stolen",
	})
	assert.Equal(t, fiber.StatusForbidden, status)

	status, _ = f.do(t, http.MethodPost, "/post", ada, map[string]string{
		"user_id": "someone-else", "title": "x", "content": "y",
	})
	assert.Equal(t, fiber.StatusForbidden, status)

	status, _ = f.do(t, http.MethodPost, "/post", ada, map[string]string{"title": "no content"})
	assert.Equal(t, fiber.StatusBadRequest, status)

	status, body = f.do(t, http.MethodGet, "/post/"+id, bob, nil)
	require.Equal(t, fiber.StatusOK, status)
	assert.Equal(t, "second", body["content"])

	status, body = f.do(t, http.MethodGet, "/post/"+id+"/versions", bob, nil)
	require.Equal(t, fiber.StatusOK, status)
	assert.Equal(t, 2.0, body["count"])

	status, _ = f.do(t, http.MethodGet, "/post/missing", bob, nil)
	assert.Equal(t, fiber.StatusNotFound, status)

	status, body = f.do(t, http.MethodGet, "/post", bob, nil)
	require.Equal(t, fiber.StatusOK, status)
	assert.Equal(t, 1.0, body["count"])
}

func TestHealth(t *testing.T) {
	f := newAPIFixture(t)

	status, body := f.do(t, http.MethodGet, "/livez", "", nil)
	assert.Equal(t, fiber.StatusOK, status)
	assert.Equal(t, "alive", body["message"])

	status, body = f.do(t, http.MethodGet, "/readyz", "", nil)
	assert.Equal(t, fiber.StatusOK, status)
	assert.Equal(t, "ready", body["message"])
}

func TestActivityEvents(t *testing.T) {
	f := newAPIFixture(t)
	token, claims := f.signup(t, "Ada", "ada@example.com", "correct horse")
	sub, _ := claims["sub"].(string)

	f.do(t, http.MethodPost, "/signin", "", map[string]string{
		"email": "ada@example.com", "password": "wrong",
	})
	f.do(t, http.MethodPost, "/signin", "", map[string]string{
		"email": "ada@example.com", "password": "correct horse",
	})
	status, body := f.do(t, http.MethodPost, "/post", token, map[string]string{
		"title": "Hello", "content": "first",
	})
	require.Equal(t, fiber.StatusCreated, status, body)

	events := f.recorded()
	require.Len(t, events, 4)

	assert.Equal(t, auth.ActivityEventSignUpSuccess, events[0].EventType)
	assert.Equal(t, sub, events[0].UserID)
	assert.Equal(t, f.now.UTC(), events[0].OccurredAt)

	assert.Equal(t, auth.ActivityEventSignInFailure, events[1].EventType)
	assert.Empty(t, events[1].UserID)
	assert.NotContains(t, events[1].Metadata, "password")

	assert.Equal(t, auth.ActivityEventSignInSuccess, events[2].EventType)
	assert.Equal(t, sub, events[2].UserID)

	assert.Equal(t, auth.ActivityEventPostSaved, events[3].EventType)
	assert.Equal(t, body["id"], events[3].ObjectID)
}

func TestStatusFor(t *testing.T) {
	assert.Equal(t, fiber.StatusUnauthorized, auth.StatusFor(auth.ErrUnauthorized.Clone()))
	assert.Equal(t, fiber.StatusUnauthorized, auth.StatusFor(auth.ErrMismatchedHashAndPassword.Clone()))
	assert.Equal(t, fiber.StatusForbidden, auth.StatusFor(auth.ErrForbidden.Clone()))
	assert.Equal(t, fiber.StatusConflict, auth.StatusFor(auth.ErrEmailExists.Clone()))
	assert.Equal(t, fiber.StatusNotFound, auth.StatusFor(auth.ErrPostNotFound.Clone()))
	assert.Equal(t, fiber.StatusBadRequest, auth.StatusFor(auth.ErrInvalidClaims.Clone()))
	assert.Equal(t, fiber.StatusInternalServerError, auth.StatusFor(assert.AnError))
}

func TestNewAuthController_RequiresCollaborators(t *testing.T) {
	assert.Panics(t, func() { auth.NewAuthController() })

	_, repo := newTestDB(t)
	assert.Panics(t, func() { auth.NewAuthController(auth.WithControllerRepository(repo)) })
}
