package auth

import (
	"context"
	"errors"
	"net/http"
	"time"

	validation "github.com/go-ozzo/ozzo-validation"
	"github.com/go-ozzo/ozzo-validation/is"
	goerrors "github.com/goliatone/go-errors"
	"github.com/goliatone/go-print"
	"github.com/goliatone/go-router"
)

// TokenIssuer signs claims for a freshly authenticated user
type TokenIssuer interface {
	Issue(claims Claims) (string, Claims, error)
}

// RegisterAuthRoutes mounts the public auth routes on app and the
// post routes behind protected.
func RegisterAuthRoutes[T any](app router.Router[T], protected router.MiddlewareFunc, opts ...AuthControllerOption) *AuthController {
	controller := NewAuthController(opts...)

	app.Get(controller.Routes.Livez, controller.Livez).
		SetName("health.livez")
	app.Get(controller.Routes.Readyz, controller.Readyz).
		SetName("health.readyz")

	app.Post(controller.Routes.SignUp, controller.SignUp).
		SetName("auth.signup.post")
	app.Post(controller.Routes.SignIn, controller.SignIn).
		SetName("auth.signin.post")

	app.Get(controller.Routes.Me, controller.Me, protected).
		SetName("auth.me.get")

	app.Post(controller.Routes.Posts, controller.UpsertPost, protected).
		SetName("post.upsert")
	app.Get(controller.Routes.Posts, controller.ListPosts, protected).
		SetName("post.list")
	app.Get(controller.Routes.Posts+"/:id", controller.GetPost, protected).
		SetName("post.get")
	app.Get(controller.Routes.Posts+"/:id/versions", controller.PostVersions, protected).
		SetName("post.versions")

	return controller
}

type AuthControllerRoutes struct {
	SignUp string
	SignIn string
	Me     string
	Posts  string
	Livez  string
	Readyz string
}

type AuthController struct {
	Debug    bool
	Logger   Logger
	Repo     RepositoryManager
	Routes   *AuthControllerRoutes
	Tokens   TokenIssuer
	Users    *UserProvider
	Register *RegisterUserHandler
	Activity ActivitySink
	Claims   ClaimsDecorator
	Now      func() time.Time
}

type AuthControllerOption func(*AuthController) *AuthController

func WithControllerLogger(logger Logger) AuthControllerOption {
	return func(ac *AuthController) *AuthController {
		ac.Logger = ensureLogger(logger)
		return ac
	}
}

func WithControllerRepository(repo RepositoryManager) AuthControllerOption {
	return func(ac *AuthController) *AuthController {
		ac.Repo = repo
		return ac
	}
}

func WithControllerTokens(tokens TokenIssuer) AuthControllerOption {
	return func(ac *AuthController) *AuthController {
		ac.Tokens = tokens
		return ac
	}
}

func WithControllerUserProvider(users *UserProvider) AuthControllerOption {
	return func(ac *AuthController) *AuthController {
		ac.Users = users
		return ac
	}
}

func WithControllerClock(now func() time.Time) AuthControllerOption {
	return func(ac *AuthController) *AuthController {
		if now != nil {
			ac.Now = now
		}
		return ac
	}
}

// WithControllerActivitySink records sign up, sign in and post events
func WithControllerActivitySink(sink ActivitySink) AuthControllerOption {
	return func(ac *AuthController) *AuthController {
		ac.Activity = normalizeActivitySink(sink)
		return ac
	}
}

// WithControllerClaimsDecorator adds extension claims to issued tokens
func WithControllerClaimsDecorator(d ClaimsDecorator) AuthControllerOption {
	return func(ac *AuthController) *AuthController {
		ac.Claims = normalizeClaimsDecorator(d)
		return ac
	}
}

func WithControllerDebug(debug bool) AuthControllerOption {
	return func(ac *AuthController) *AuthController {
		ac.Debug = debug
		return ac
	}
}

func NewAuthController(opts ...AuthControllerOption) *AuthController {
	c := &AuthController{
		Logger:   defLogger{},
		Activity: noopActivitySink{},
		Claims:   noopClaimsDecorator{},
		Now:      time.Now,
		Routes: &AuthControllerRoutes{
			SignUp: "/signup",
			SignIn: "/signin",
			Me:     "/auth/me",
			Posts:  "/post",
			Livez:  "/livez",
			Readyz: "/readyz",
		},
	}

	for _, opt := range opts {
		c = opt(c)
	}

	if c.Repo == nil {
		panic("Missing RepositoryManager in auth controller...")
	}

	if c.Tokens == nil {
		panic("Missing TokenIssuer in auth controller...")
	}

	if c.Users == nil {
		c.Users = NewUserProvider(c.Repo.Users()).WithLogger(c.Logger)
	}

	if c.Register == nil {
		c.Register = NewRegisterUserHandler(c.Repo)
	}

	return c
}

type tokenResponse struct {
	Token  string `json:"token"`
	Claims Claims `json:"claims"`
}

type errorResponse struct {
	Error   string            `json:"error"`
	Details map[string]string `json:"details,omitempty"`
}

func (a *AuthController) SignUp(ctx router.Context) error {
	payload := RegisterUserMessage{}
	if err := ctx.Bind(&payload); err != nil {
		return a.respondError(ctx, badRequest(err))
	}

	user, err := a.Register.Execute(ctx.Context(), payload)
	if err != nil {
		return a.respondError(ctx, err)
	}

	a.record(ctx, ActivityEvent{
		EventType: ActivityEventSignUpSuccess,
		UserID:    user.ID,
		ObjectID:  user.ID,
	})

	return a.issue(ctx, http.StatusCreated, user)
}

type loginPayload struct {
	Email    string `json:"email" form:"email"`
	Password string `json:"password" form:"password"`
}

func (r loginPayload) Validate() error {
	return validation.ValidateStruct(&r,
		validation.Field(&r.Email, validation.Required, is.Email),
		validation.Field(&r.Password, validation.Required),
	)
}

func (a *AuthController) SignIn(ctx router.Context) error {
	payload := loginPayload{}
	if err := ctx.Bind(&payload); err != nil {
		return a.respondError(ctx, badRequest(err))
	}

	if err := payload.Validate(); err != nil {
		return a.respondError(ctx, badRequest(err))
	}

	if a.Debug {
		a.Logger.Debug("sign in attempt", "email", payload.Email)
	}

	user, err := a.Users.VerifyIdentity(ctx.Context(), payload.Email, payload.Password)
	if err != nil {
		a.record(ctx, ActivityEvent{
			EventType: ActivityEventSignInFailure,
			Metadata:  map[string]any{"reason": string(KindOf(err))},
		})
		return a.respondError(ctx, err)
	}

	a.record(ctx, ActivityEvent{
		EventType: ActivityEventSignInSuccess,
		UserID:    user.ID,
		ObjectID:  user.ID,
	})

	return a.issue(ctx, http.StatusCreated, user)
}

func (a *AuthController) Me(ctx router.Context) error {
	claims, ok := GetClaims(ctx.Context())
	if !ok {
		return a.respondError(ctx, unauthorized())
	}

	return ctx.JSON(http.StatusOK, map[string]any{
		"claims": claims,
	})
}

type postPayload struct {
	ID       string `json:"id" form:"id"`
	UserID   string `json:"user_id" form:"user_id"`
	Title    string `json:"title" form:"title"`
	Content  string `json:"content" form:"content"`
	ImageURL string `json:"image_url" form:"image_url"`
}

func (r postPayload) Validate() error {
	return validation.ValidateStruct(&r,
		validation.Field(&r.Title, validation.Required, validation.Length(1, 500)),
		validation.Field(&r.Content, validation.Required),
		validation.Field(&r.ImageURL, is.URL),
	)
}

func (a *AuthController) UpsertPost(ctx router.Context) error {
	user, ok := FromContext(ctx.Context())
	if !ok {
		return a.respondError(ctx, unauthorized())
	}

	payload := postPayload{}
	if err := ctx.Bind(&payload); err != nil {
		return a.respondError(ctx, badRequest(err))
	}

	if err := payload.Validate(); err != nil {
		return a.respondError(ctx, badRequest(err))
	}

	if payload.UserID != "" && payload.UserID != user.ID {
		return a.respondError(ctx, forbidden())
	}

	post, err := a.Repo.Posts().Upsert(ctx.Context(), user.ID, &Post{
		ID:       payload.ID,
		Title:    payload.Title,
		Content:  payload.Content,
		ImageURL: payload.ImageURL,
	})
	if err != nil {
		return a.respondError(ctx, err)
	}

	a.record(ctx, ActivityEvent{
		EventType: ActivityEventPostSaved,
		UserID:    user.ID,
		ObjectID:  post.ID,
		Metadata:  map[string]any{"version": post.Version},
	})

	return ctx.JSON(http.StatusCreated, map[string]any{
		"id":      post.ID,
		"version": post.Version,
	})
}

func (a *AuthController) GetPost(ctx router.Context) error {
	post, err := a.Repo.Posts().Get(ctx.Context(), ctx.Param("id"))
	if err != nil {
		return a.respondError(ctx, err)
	}
	return ctx.JSON(http.StatusOK, post)
}

func (a *AuthController) ListPosts(ctx router.Context) error {
	records, err := a.Repo.Posts().List(ctx.Context())
	if err != nil {
		return a.respondError(ctx, err)
	}
	return ctx.JSON(http.StatusOK, map[string]any{
		"data":  records,
		"count": len(records),
	})
}

func (a *AuthController) PostVersions(ctx router.Context) error {
	versions, err := a.Repo.Posts().Versions(ctx.Context(), ctx.Param("id"))
	if err != nil {
		return a.respondError(ctx, err)
	}
	return ctx.JSON(http.StatusOK, map[string]any{
		"data":  versions,
		"count": len(versions),
	})
}

func (a *AuthController) Livez(ctx router.Context) error {
	return ctx.JSON(http.StatusOK, map[string]any{"message": "alive"})
}

func (a *AuthController) Readyz(ctx router.Context) error {
	c, cancel := context.WithTimeout(ctx.Context(), 2*time.Second)
	defer cancel()

	if err := a.Repo.Ping(c); err != nil {
		a.Logger.Warn("readiness check failed", "error", err)
		return ctx.JSON(http.StatusServiceUnavailable, map[string]any{"message": "unavailable"})
	}
	return ctx.JSON(http.StatusOK, map[string]any{"message": "ready"})
}

func (a *AuthController) issue(ctx router.Context, status int, user *User) error {
	claims := user.TokenClaims(a.Now())
	if err := decorateClaims(ctx.Context(), a.Claims, user, claims); err != nil {
		a.Logger.Error("claims decorator failed", "error", err)
		return a.respondError(ctx, err)
	}

	token, claims, err := a.Tokens.Issue(claims)
	if err != nil {
		return a.respondError(ctx, err)
	}

	return ctx.JSON(status, tokenResponse{
		Token:  token,
		Claims: claims,
	})
}

func (a *AuthController) record(ctx router.Context, event ActivityEvent) {
	if event.OccurredAt.IsZero() {
		event.OccurredAt = a.Now().UTC()
	}
	if err := a.Activity.Record(ctx.Context(), event); err != nil {
		a.Logger.Warn("activity sink failed", "event", event.EventType, "error", err)
	}
}

// StatusFor maps an error to the HTTP status we respond with
func StatusFor(err error) int {
	switch KindOf(err) {
	case KindUnauthorized, KindMismatchedPassword, KindTokenExpired,
		KindMalformedToken, KindUnsupportedVersion, KindUnsupportedPurpose,
		KindInvalidSignature:
		return http.StatusUnauthorized
	case KindForbidden:
		return http.StatusForbidden
	case KindValidation, KindInvalidClaims:
		return http.StatusBadRequest
	case KindEmailExists:
		return http.StatusConflict
	case KindPostNotFound, KindIdentityNotFound:
		return http.StatusNotFound
	default:
		return http.StatusInternalServerError
	}
}

func (a *AuthController) respondError(ctx router.Context, err error) error {
	status := StatusFor(err)
	body := errorResponse{Error: publicMessage(status, err)}

	var vErrs validation.Errors
	if errors.As(err, &vErrs) {
		body.Details = make(map[string]string, len(vErrs))
		for field, fieldErr := range vErrs {
			body.Details[field] = fieldErr.Error()
		}
	}

	if status >= http.StatusInternalServerError {
		var richErr *goerrors.Error
		if goerrors.As(err, &richErr) {
			a.Logger.Error("request failed",
				"path", ctx.Path(),
				"error", err,
				"metadata", print.MaybePrettyJSON(richErr.Metadata),
			)
		} else {
			a.Logger.Error("request failed", "path", ctx.Path(), "error", err)
		}
	}

	return ctx.JSON(status, body)
}

func publicMessage(status int, err error) string {
	switch status {
	case http.StatusUnauthorized:
		return "unauthorized"
	case http.StatusForbidden:
		return "forbidden"
	case http.StatusInternalServerError:
		return "internal server error"
	}

	var richErr *goerrors.Error
	if goerrors.As(err, &richErr) {
		return richErr.Message
	}
	return err.Error()
}

func badRequest(err error) error {
	return goerrors.Wrap(err, goerrors.CategoryBadInput, "invalid request payload").
		WithCode(goerrors.CodeBadRequest).
		WithTextCode(string(KindValidation))
}
