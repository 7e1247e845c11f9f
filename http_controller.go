package grants

import (
	"net/http"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/goliatone/go-errors"
	"github.com/goliatone/go-print"
	"github.com/goliatone/go-router"
)

// TokenResponse is the grant endpoint's success body. The access token only
// ever travels in the body; refresh tokens only ever travel in the cookie.
type TokenResponse struct {
	AccessToken string `json:"access_token"`
	ExpiresIn   int    `json:"expires_in,omitempty"`
}

// GrantController exposes the grant flow over HTTP: token issuance, a
// principal check, and cookie teardown. Error rendering is pluggable; the
// default maps the error taxonomy onto status codes and logs internals
// without leaking them.
type GrantController struct {
	Grantor      *Grantor
	Routes       *GrantControllerRoutes
	Logger       Logger
	ErrorHandler func(c router.Context, err error) error

	cfg *Config
}

type GrantControllerRoutes struct {
	Token  string
	Verify string
	Forget string
}

// GrantControllerOption configures the controller during construction.
type GrantControllerOption func(*GrantController) *GrantController

// NewGrantController builds a controller around a Grantor.
func NewGrantController(grantor *Grantor, cfg *Config, opts ...GrantControllerOption) *GrantController {
	c := &GrantController{
		Grantor: grantor,
		Logger:  defLogger{},
		cfg:     cfg,
		Routes: &GrantControllerRoutes{
			Token:  "/auth/token",
			Verify: "/auth/verify",
			Forget: "/auth/forget",
		},
	}

	c.ErrorHandler = c.defaultErrHandler

	for _, opt := range opts {
		if opt != nil {
			c = opt(c)
		}
	}

	return c
}

// WithGrantLogger overrides the controller logger.
func WithGrantLogger(logger Logger) GrantControllerOption {
	return func(c *GrantController) *GrantController {
		c.Logger = logger
		return c
	}
}

// WithGrantErrorHandler overrides error rendering.
func WithGrantErrorHandler(handler func(c router.Context, err error) error) GrantControllerOption {
	return func(c *GrantController) *GrantController {
		c.ErrorHandler = handler
		return c
	}
}

// RegisterGrantRoutes mounts the controller on a router.
func RegisterGrantRoutes[T any](app router.Router[T], controller *GrantController) {
	app.Post(controller.Routes.Token, controller.TokenPost).SetName("grant.token")
	app.Get(controller.Routes.Verify, controller.VerifyGet).SetName("grant.verify")
	app.Post(controller.Routes.Forget, controller.ForgetPost).SetName("grant.forget")
}

// TokenPost handles a grant request. A refresh token is absent from the
// payload and read from the cookie, so browser clients never handle it.
func (ctrl *GrantController) TokenPost(c router.Context) error {
	req := GrantRequest{}
	if err := c.Bind(&req); err != nil {
		return ctrl.ErrorHandler(c, errors.Wrap(err, errors.CategoryBadInput, "unable to parse grant request"))
	}

	if req.GrantType == GrantRefreshToken && req.Token == "" {
		req.Token = c.Cookies(ctrl.cfg.GetCookieName())
	}

	if err := req.Validate(); err != nil {
		return ctrl.ErrorHandler(c, errors.Wrap(err, errors.CategoryValidation, "invalid grant request"))
	}

	result, err := ctrl.Grantor.Grant(c.Context(), req)
	if err != nil {
		return ctrl.ErrorHandler(c, err)
	}

	if result.RefreshToken != "" {
		ctrl.setRefreshCookie(c, result.RefreshToken)
	}

	expiresIn, err := ctrl.Grantor.TokenService().Expiration(TokenKindAccess)
	if err != nil {
		return ctrl.ErrorHandler(c, err)
	}

	return c.JSON(http.StatusOK, TokenResponse{
		AccessToken: result.AccessToken,
		ExpiresIn:   expiresIn,
	})
}

// VerifyGet confirms an attached principal survived prior middleware. No
// body either way.
func (ctrl *GrantController) VerifyGet(c router.Context) error {
	if _, ok := CredentialFromContext(c.Context()); !ok {
		return ctrl.ErrorHandler(c, ErrNotAuthenticated)
	}
	return c.NoContent(http.StatusNoContent)
}

// ForgetPost clears the refresh-token cookie. Idempotent, always succeeds.
func (ctrl *GrantController) ForgetPost(c router.Context) error {
	ctrl.expireRefreshCookie(c)
	return c.NoContent(http.StatusNoContent)
}

func (ctrl *GrantController) setRefreshCookie(c router.Context, token string) {
	c.Cookie(&router.Cookie{
		Name:     ctrl.cfg.GetCookieName(),
		Value:    token,
		Expires:  time.Now().Add(ctrl.cfg.GetCookieMaxAge()),
		HTTPOnly: true,
		Secure:   ctrl.cfg.GetCookieSecure(),
		SameSite: "Lax",
	})
}

func (ctrl *GrantController) expireRefreshCookie(c router.Context) {
	c.Cookie(&router.Cookie{
		Name:     ctrl.cfg.GetCookieName(),
		Value:    "",
		Expires:  time.Now().Add(-time.Hour * (24 * 365)),
		HTTPOnly: true,
		Secure:   ctrl.cfg.GetCookieSecure(),
		SameSite: "Lax",
	})
}

func (ctrl *GrantController) defaultErrHandler(c router.Context, err error) error {
	var richErr *errors.Error
	if !errors.As(err, &richErr) {
		richErr = errors.Wrap(err, errors.CategoryInternal, "An unexpected server error occurred").
			WithCode(errors.CodeInternal)
	}

	status := statusForCategory(richErr.Category)

	body := router.ViewContext{
		"error": richErr.Message,
	}
	if richErr.TextCode != "" {
		body["code"] = richErr.TextCode
	}

	if status >= http.StatusInternalServerError {
		ctrl.Logger.Error(
			"Grant controller internal error (%s): %s %s",
			richErr.Category,
			richErr.Message,
			print.MaybePrettyJSON(richErr.Metadata),
		)
		// Internal detail stays in the logs.
		body["error"] = "internal server error"
		delete(body, "code")
	} else {
		ctrl.Logger.Info(
			"Grant controller rejected %s: %s [%s]",
			c.OriginalURL(),
			richErr.Message,
			richErr.TextCode,
		)
	}

	return c.JSON(status, body)
}

func statusForCategory(category errors.Category) int {
	switch category {
	case errors.CategoryAuth:
		return fiber.StatusUnauthorized
	case errors.CategoryAuthz:
		return fiber.StatusForbidden
	case errors.CategoryValidation, errors.CategoryBadInput:
		return fiber.StatusBadRequest
	case errors.CategoryNotFound:
		return fiber.StatusNotFound
	case errors.CategoryConflict:
		return fiber.StatusConflict
	default:
		return fiber.StatusInternalServerError
	}
}
