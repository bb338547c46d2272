package auth

import (
	"context"
	"strings"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/goliatone/go-print"
)

// OTPLifecycle is the registration flow served by the controller
type OTPLifecycle interface {
	Register(ctx context.Context, msg RegisterAccountMessage) (string, error)
	Verify(ctx context.Context, msg VerifyOTPMessage) (string, error)
	Resend(ctx context.Context, email string) (string, error)
}

// AccountManager serves the current account endpoints
type AccountManager interface {
	Profile(ctx context.Context, identity *IdentityContext) (AccountProfile, error)
	ChangePassword(ctx context.Context, identity *IdentityContext, msg ChangePasswordMessage) error
}

// MsgLoggedOut is returned by logout. Tokens stay valid until they expire.
const MsgLoggedOut = "Logout successful, please delete the token on the client side."

// MsgPasswordChanged confirms a password change
const MsgPasswordChanged = "Password changed successfully."

// MsgLoginSuccess confirms a login
const MsgLoginSuccess = "Login successful."

func RegisterAuthRoutes(app fiber.Router, opts ...AuthControllerOption) *AuthController {
	controller := NewAuthController(opts...)

	authGroup := app.Group(controller.Routes.Auth)
	authGroup.Post(controller.Routes.Register, controller.Register).Name("auth.register")
	authGroup.Post(controller.Routes.VerifyOTP, controller.VerifyOTP).Name("auth.verify-otp")
	authGroup.Post(controller.Routes.ResendOTP, controller.ResendOTP).Name("auth.resend-otp")
	authGroup.Post(controller.Routes.Login, controller.Login).Name("auth.login")
	authGroup.Post(controller.Routes.Logout,
		RequireAuth(Authenticated(), controller.ContextKey),
		controller.Logout,
	).Name("auth.logout")

	if controller.Accounts != nil {
		me := app.Group(controller.Routes.Me, RequireAuth(Authenticated(), controller.ContextKey))
		me.Get(controller.Routes.Profile, controller.Profile).Name("users.me.profile")
		me.Post(controller.Routes.ChangePassword, controller.ChangePassword).Name("users.me.change-password")
	}

	return controller
}

type AuthControllerRoutes struct {
	Auth           string
	Register       string
	VerifyOTP      string
	ResendOTP      string
	Login          string
	Logout         string
	Me             string
	Profile        string
	ChangePassword string
}

type AuthController struct {
	Debug      bool
	Logger     Logger
	ContextKey string
	Routes     *AuthControllerRoutes
	OTP        OTPLifecycle
	Auther     Authenticator
	Accounts   AccountManager
}

type AuthControllerOption func(*AuthController) *AuthController

func WithControllerLogger(l Logger) AuthControllerOption {
	return func(c *AuthController) *AuthController {
		c.Logger = resolveLogger(l)
		return c
	}
}

func WithControllerDebug(debug bool) AuthControllerOption {
	return func(c *AuthController) *AuthController {
		c.Debug = debug
		return c
	}
}

func WithControllerContextKey(key string) AuthControllerOption {
	return func(c *AuthController) *AuthController {
		if key != "" {
			c.ContextKey = key
		}
		return c
	}
}

func WithOTPLifecycle(o OTPLifecycle) AuthControllerOption {
	return func(c *AuthController) *AuthController {
		c.OTP = o
		return c
	}
}

func WithAuthenticator(a Authenticator) AuthControllerOption {
	return func(c *AuthController) *AuthController {
		c.Auther = a
		return c
	}
}

func WithAccountManager(m AccountManager) AuthControllerOption {
	return func(c *AuthController) *AuthController {
		c.Accounts = m
		return c
	}
}

func NewAuthController(opts ...AuthControllerOption) *AuthController {
	c := &AuthController{
		Logger:     defLogger(),
		ContextKey: DefaultContextKey,
		Routes: &AuthControllerRoutes{
			Auth:           "/auth",
			Register:       "/register",
			VerifyOTP:      "/verify-otp",
			ResendOTP:      "/resend-otp",
			Login:          "/login",
			Logout:         "/logout",
			Me:             "/users/me",
			Profile:        "/profile",
			ChangePassword: "/change-password",
		},
	}

	for _, opt := range opts {
		c = opt(c)
	}

	if c.OTP == nil {
		panic("Missing OTPLifecycle in auth controller...")
	}

	if c.Auther == nil {
		panic("Missing Authenticator in auth controller...")
	}

	return c
}

// MessageResponse is the generic success body
type MessageResponse struct {
	Success bool   `json:"success"`
	Message string `json:"message"`
}

// LoginResponse is returned by a successful login
type LoginResponse struct {
	AccessToken string         `json:"accessToken"`
	TokenType   string         `json:"tokenType"`
	ExpiresAt   time.Time      `json:"expiresAt"`
	Message     string         `json:"message"`
	User        AccountProfile `json:"user"`
}

func (a *AuthController) Register(c *fiber.Ctx) error {
	payload := new(RegisterAccountMessage)
	if err := bindBody(c, payload); err != nil {
		return err
	}

	if a.Debug {
		redacted := *payload
		redacted.Password = "*****"
		a.Logger.Debug("register payload", "payload", print.MaybePrettyJSON(redacted))
	}

	msg, err := a.OTP.Register(c.UserContext(), *payload)
	if err != nil {
		return err
	}

	return c.Status(fiber.StatusCreated).JSON(MessageResponse{Success: true, Message: msg})
}

func (a *AuthController) VerifyOTP(c *fiber.Ctx) error {
	payload := new(VerifyOTPMessage)
	if err := bindBody(c, payload); err != nil {
		return err
	}

	msg, err := a.OTP.Verify(c.UserContext(), *payload)
	if err != nil {
		return err
	}

	return c.JSON(MessageResponse{Success: true, Message: msg})
}

func (a *AuthController) ResendOTP(c *fiber.Ctx) error {
	msg, err := a.OTP.Resend(c.UserContext(), c.Query("email"))
	if err != nil {
		return err
	}

	return c.JSON(MessageResponse{Success: true, Message: msg})
}

func (a *AuthController) Login(c *fiber.Ctx) error {
	payload := new(LoginMessage)
	if err := bindBody(c, payload); err != nil {
		return err
	}
	payload.Email = strings.TrimSpace(payload.Email)

	if err := payload.Validate(); err != nil {
		return err
	}

	if a.Debug {
		a.Logger.Debug("login payload", "payload", print.MaybePrettyJSON(LoginMessage{Email: payload.Email, Password: "*****"}))
	}

	result, err := a.Auther.Login(c.UserContext(), payload.Email, payload.Password)
	if err != nil {
		return err
	}

	return c.JSON(LoginResponse{
		AccessToken: result.AccessToken,
		TokenType:   result.TokenType,
		ExpiresAt:   result.ExpiresAt,
		Message:     MsgLoginSuccess,
		User:        result.Profile,
	})
}

func (a *AuthController) Logout(c *fiber.Ctx) error {
	identity, err := Guard(c, Authenticated(), a.ContextKey)
	if err != nil {
		return err
	}

	a.Auther.Logout(c.UserContext(), identity)
	return c.JSON(MessageResponse{Success: true, Message: MsgLoggedOut})
}

func (a *AuthController) Profile(c *fiber.Ctx) error {
	identity, err := Guard(c, Authenticated(), a.ContextKey)
	if err != nil {
		return err
	}

	profile, err := a.Accounts.Profile(c.UserContext(), identity)
	if err != nil {
		return err
	}
	return c.JSON(profile)
}

func (a *AuthController) ChangePassword(c *fiber.Ctx) error {
	identity, err := Guard(c, Authenticated(), a.ContextKey)
	if err != nil {
		return err
	}

	payload := new(ChangePasswordMessage)
	if err := bindBody(c, payload); err != nil {
		return err
	}

	if err := a.Accounts.ChangePassword(c.UserContext(), identity, *payload); err != nil {
		return err
	}
	return c.JSON(MessageResponse{Success: true, Message: MsgPasswordChanged})
}

func bindBody(c *fiber.Ctx, out any) error {
	if err := c.BodyParser(out); err != nil {
		return wrapError(err, CodeInvalidRequestBody, "failed to parse request body")
	}
	return nil
}
