package auth

import (
	"errors"
	"fmt"
	"net/http"
	"regexp"
	"strings"

	validation "github.com/go-ozzo/ozzo-validation"
	"github.com/go-ozzo/ozzo-validation/is"
	goerrors "github.com/goliatone/go-errors"
	"github.com/goliatone/go-print"
	"github.com/goliatone/go-router"
)

var (
	phonePattern = regexp.MustCompile(`^[+0-9()\-\s.]+$`)
	questPattern = regexp.MustCompile(`^[A-Za-z0-9_.:\-]+$`)
)

type AuthControllerRoutes struct {
	Init     string
	Sessions string
	Tokens   string
	Refresh  string
	Me       string
	Progress string
}

type AuthController struct {
	Debug    bool
	Service  string
	Version  string
	Logger   Logger
	Manager  *Manager
	Tokens   TokenService
	Users    UserDirectory
	Progress ProgressStore
	BotName  string
	Routes   *AuthControllerRoutes
	// RefreshLookup lists where RefreshPost looks for a token once the
	// body comes up empty.
	RefreshLookup string
	Bearer        BearerConfig
}

type AuthControllerOption func(*AuthController) *AuthController

func WithControllerDebug(debug bool) AuthControllerOption {
	return func(a *AuthController) *AuthController {
		a.Debug = debug
		return a
	}
}

func WithControllerLogger(logger Logger) AuthControllerOption {
	return func(a *AuthController) *AuthController {
		if logger != nil {
			a.Logger = logger
		}
		return a
	}
}

func WithControllerService(name, version string) AuthControllerOption {
	return func(a *AuthController) *AuthController {
		if name != "" {
			a.Service = name
		}
		if version != "" {
			a.Version = version
		}
		return a
	}
}

func WithControllerManager(m *Manager) AuthControllerOption {
	return func(a *AuthController) *AuthController {
		a.Manager = m
		return a
	}
}

func WithControllerTokens(tokens TokenService) AuthControllerOption {
	return func(a *AuthController) *AuthController {
		a.Tokens = tokens
		return a
	}
}

func WithControllerUsers(users UserDirectory) AuthControllerOption {
	return func(a *AuthController) *AuthController {
		a.Users = users
		return a
	}
}

func WithControllerProgress(progress ProgressStore) AuthControllerOption {
	return func(a *AuthController) *AuthController {
		a.Progress = progress
		return a
	}
}

// WithControllerBearer overrides where the guard reads access tokens from
func WithControllerBearer(cfg BearerConfig) AuthControllerOption {
	return func(a *AuthController) *AuthController {
		a.Bearer = cfg
		return a
	}
}

// WithControllerBotName adds a bot deep link to init responses
func WithControllerBotName(username string) AuthControllerOption {
	return func(a *AuthController) *AuthController {
		a.BotName = strings.TrimPrefix(strings.TrimSpace(username), "@")
		return a
	}
}

func NewAuthController(opts ...AuthControllerOption) *AuthController {
	c := &AuthController{
		Service: "phone-auth",
		Version: "1.0.0",
		Logger:  defLogger{},
		Routes: &AuthControllerRoutes{
			Init:     "/api/auth/init",
			Sessions: "/api/auth/sessions",
			Tokens:   "/api/auth/tokens",
			Refresh:  "/api/auth/refresh",
			Me:       "/api/auth/me",
			Progress: "/api/progress",
		},
		RefreshLookup: "query:refresh_token",
	}

	for _, opt := range opts {
		c = opt(c)
	}

	if c.Manager == nil {
		panic("Missing Manager in auth controller...")
	}

	if c.Tokens == nil {
		panic("Missing TokenService in auth controller...")
	}

	if c.Users == nil {
		panic("Missing UserDirectory in auth controller...")
	}

	return c
}

// RegisterAuthRoutes mounts the auth, progress and status endpoints on app
func RegisterAuthRoutes[T any](app router.Router[T], opts ...AuthControllerOption) *AuthController {
	controller := NewAuthController(opts...)
	guard := BearerGuard(controller.Tokens, controller.Bearer)

	app.Get("/", controller.Root).SetName("status.root")
	app.Get("/health", controller.Health).SetName("status.health")

	app.Post(controller.Routes.Init, controller.InitPost).SetName("auth.init")
	app.Get(controller.Routes.Sessions+"/:session_id", controller.SessionGet).SetName("auth.sessions.get")
	app.Get(controller.Routes.Tokens+"/:session_id", controller.TokensGet).SetName("auth.tokens.get")
	app.Post(controller.Routes.Refresh, controller.RefreshPost).SetName("auth.refresh")
	app.Get(controller.Routes.Me, controller.MeGet, guard).SetName("auth.me")

	if controller.Progress != nil {
		app.Get(controller.Routes.Progress, controller.ProgressGet, guard).SetName("progress.get")
		app.Post(controller.Routes.Progress+"/complete", controller.ProgressComplete, guard).SetName("progress.complete")
	}

	return controller
}

func (a *AuthController) Root(ctx router.Context) error {
	return ctx.JSON(router.StatusOK, map[string]any{
		"status":  "ok",
		"service": a.Service,
		"version": a.Version,
	})
}

func (a *AuthController) Health(ctx router.Context) error {
	return ctx.JSON(router.StatusOK, map[string]any{"status": "healthy"})
}

// InitRequest payload
type InitRequest struct {
	PhoneNumber string `json:"phone_number" form:"phone_number"`
}

// Validate will run validation rules
func (r InitRequest) Validate() error {
	return validation.ValidateStruct(&r,
		validation.Field(
			&r.PhoneNumber,
			validation.Required,
			validation.Length(5, 32),
			validation.Match(phonePattern),
		),
	)
}

func (a *AuthController) InitPost(ctx router.Context) error {
	payload := new(InitRequest)
	if err := ctx.Bind(payload); err != nil {
		return writeError(ctx, goerrors.Wrap(err, goerrors.CategoryBadInput, "invalid request body"))
	}

	if err := payload.Validate(); err != nil {
		return writeValidationError(ctx, err)
	}

	if a.Debug {
		a.Logger.Debug("init auth session: %s", print.MaybePrettyJSON(payload))
	}

	session, err := a.Manager.Create(ctx.Context(), payload.PhoneNumber)
	if err != nil {
		return a.fail(ctx, "init", err)
	}

	res := map[string]any{
		"session_id": session.ID.String(),
		"expires_in": a.Manager.ExpiresIn(session),
	}
	if a.BotName != "" {
		res["bot_url"] = fmt.Sprintf("https://t.me/%s?start=%s", a.BotName, session.ID)
	}

	return ctx.JSON(http.StatusCreated, res)
}

func (a *AuthController) SessionGet(ctx router.Context) error {
	session, err := a.Manager.Get(ctx.Context(), ctx.Param("session_id", ""))
	if err != nil {
		return a.fail(ctx, "session status", err)
	}

	return ctx.JSON(router.StatusOK, map[string]any{
		"session_id": session.ID.String(),
		"status":     session.Status,
		"expires_in": a.Manager.ExpiresIn(session),
	})
}

func (a *AuthController) TokensGet(ctx router.Context) error {
	pair, err := a.Manager.IssueTokens(ctx.Context(), ctx.Param("session_id", ""))
	if err != nil {
		return a.fail(ctx, "issue tokens", err)
	}
	return ctx.JSON(router.StatusOK, pair)
}

// RefreshRequest payload
type RefreshRequest struct {
	RefreshToken string `json:"refresh_token" form:"refresh_token" query:"refresh_token"`
}

// Validate will run validation rules
func (r RefreshRequest) Validate() error {
	return validation.ValidateStruct(&r,
		validation.Field(
			&r.RefreshToken,
			validation.Required,
			is.PrintableASCII,
		),
	)
}

// RefreshPost reads refresh_token from the body, then from RefreshLookup
func (a *AuthController) RefreshPost(ctx router.Context) error {
	payload := new(RefreshRequest)
	if len(ctx.Body()) > 0 {
		if err := ctx.Bind(payload); err != nil {
			return writeError(ctx, ErrInvalidCredential)
		}
	}
	if payload.RefreshToken == "" {
		payload.RefreshToken, _ = ExtractToken(ctx, GetExtractors(a.RefreshLookup))
	}

	if err := payload.Validate(); err != nil {
		return writeError(ctx, ErrInvalidCredential)
	}

	pair, err := a.Tokens.Refresh(payload.RefreshToken)
	if err != nil {
		return writeError(ctx, ErrInvalidCredential)
	}

	return ctx.JSON(router.StatusOK, pair)
}

func (a *AuthController) MeGet(ctx router.Context) error {
	claims, ok := GetRouterClaims(ctx)
	if !ok {
		return writeError(ctx, ErrInvalidCredential)
	}

	user, err := a.Users.GetByID(ctx.Context(), claims.Subject())
	if err != nil {
		return a.fail(ctx, "me", err)
	}

	return ctx.JSON(router.StatusOK, user)
}

func (a *AuthController) ProgressGet(ctx router.Context) error {
	claims, ok := GetRouterClaims(ctx)
	if !ok {
		return writeError(ctx, ErrInvalidCredential)
	}

	quests, err := a.Progress.CompletedQuests(ctx.Context(), claims.Subject())
	if err != nil {
		return a.fail(ctx, "progress", err)
	}

	return ctx.JSON(router.StatusOK, map[string]any{"completed_quests": quests})
}

// QuestRequest payload
type QuestRequest struct {
	QuestID string `json:"quest_id" form:"quest_id"`
}

// Validate will run validation rules
func (r QuestRequest) Validate() error {
	return validation.ValidateStruct(&r,
		validation.Field(
			&r.QuestID,
			validation.Required,
			validation.Length(1, 64),
			validation.Match(questPattern),
		),
	)
}

func (a *AuthController) ProgressComplete(ctx router.Context) error {
	claims, ok := GetRouterClaims(ctx)
	if !ok {
		return writeError(ctx, ErrInvalidCredential)
	}

	payload := new(QuestRequest)
	if err := ctx.Bind(payload); err != nil {
		return writeError(ctx, goerrors.Wrap(err, goerrors.CategoryBadInput, "invalid request body"))
	}

	if err := payload.Validate(); err != nil {
		return writeValidationError(ctx, err)
	}

	if _, err := a.Progress.CompleteQuest(ctx.Context(), claims.Subject(), payload.QuestID); err != nil {
		return a.fail(ctx, "complete quest", err)
	}

	return ctx.JSON(router.StatusOK, map[string]any{
		"success":  true,
		"quest_id": payload.QuestID,
	})
}

func (a *AuthController) fail(ctx router.Context, op string, err error) error {
	if HTTPStatus(err) >= http.StatusInternalServerError {
		a.Logger.Error("%s: %v", op, err)
	} else if a.Debug {
		a.Logger.Debug("%s: %v", op, err)
	}
	return writeError(ctx, err)
}

func writeValidationError(ctx router.Context, err error) error {
	var verrs validation.Errors
	if errors.As(err, &verrs) {
		for field, ferr := range verrs {
			return ctx.JSON(router.StatusBadRequest, map[string]any{
				"error": fmt.Sprintf("%s: %s", field, ferr.Error()),
			})
		}
	}
	return ctx.JSON(router.StatusBadRequest, map[string]any{"error": err.Error()})
}

// writeError renders err as {"error": message}. Internal failures never
// leak their cause.
func writeError(ctx router.Context, err error) error {
	status := HTTPStatus(err)
	if status == http.StatusUnauthorized {
		ctx.SetHeader(headerWWWAuthenticate, DefaultAuthScheme)
	}

	message := http.StatusText(status)
	if status < http.StatusInternalServerError {
		var richErr *goerrors.Error
		if goerrors.As(err, &richErr) && richErr.Message != "" {
			message = richErr.Message
		} else {
			message = err.Error()
		}
	}

	return ctx.JSON(status, map[string]any{"error": message})
}
