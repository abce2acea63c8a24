package auth

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/form/v4"
	"github.com/go-playground/validator/v10"

	"github.com/redmonkez12/go-auth-verify/internal/httputil"
	"github.com/redmonkez12/go-auth-verify/internal/logging"
	"github.com/redmonkez12/go-auth-verify/internal/ratelimit"
	"github.com/redmonkez12/go-auth-verify/internal/session"
	"github.com/redmonkez12/go-auth-verify/internal/web"
)

// RateLimiter limits attempts per key and enforces cooldowns.
type RateLimiter interface {
	AllowWithPurpose(ctx context.Context, purpose, key string) (bool, error)
	Cooldown(ctx context.Context, purpose, key string, d time.Duration) (bool, error)
}

// Handler contains the HTTP handlers for the auth pages and form posts.
type Handler struct {
	service        *Service
	sessions       SessionManager
	middleware     *Middleware
	rateLimiter    RateLimiter
	pages          *web.Renderer
	validate       *validator.Validate
	forms          *form.Decoder
	resendCooldown time.Duration
}

func NewHandler(
	service *Service,
	sessions SessionManager,
	middleware *Middleware,
	rateLimiter RateLimiter,
	pages *web.Renderer,
	resendCooldown time.Duration,
) *Handler {
	return &Handler{
		service:        service,
		sessions:       sessions,
		middleware:     middleware,
		rateLimiter:    rateLimiter,
		pages:          pages,
		validate:       validator.New(validator.WithRequiredStructEnabled()),
		forms:          form.NewDecoder(),
		resendCooldown: resendCooldown,
	}
}

// CredentialsForm is the signup and login form body.
type CredentialsForm struct {
	Email    string `form:"email" validate:"required,email,max=254"`
	Password string `form:"password" validate:"required,min=6,max=20"`
}

func (f *CredentialsForm) normalize() {
	f.Email = strings.TrimSpace(f.Email)
}

// VerificationForm is the email verification form body.
type VerificationForm struct {
	Code string `form:"code" validate:"required,min=6,max=12"`
}

func (f *VerificationForm) normalize() {
	f.Code = strings.TrimSpace(f.Code)
}

// Mount registers the auth routes. Every route sees the session loaded by
// LoadSession; the verification routes also require a signed-in user.
func (h *Handler) Mount(r chi.Router) {
	r.Group(func(r chi.Router) {
		r.Use(h.middleware.LoadSession)

		r.Get("/", h.Home)
		r.Get("/signup", h.SignupPage)
		r.Post("/signup", h.Signup)
		r.Get("/login", h.LoginPage)
		r.Post("/login", h.Login)
		r.Post("/logout", h.Logout)

		r.Group(func(r chi.Router) {
			r.Use(RequireUser)
			r.Post("/email-verification", h.VerifyEmail)
			r.Post("/email-verification/resend", h.ResendVerification)
		})
	})
}

// Home renders the landing page for the current session state
func (h *Handler) Home(w http.ResponseWriter, r *http.Request) {
	u, _ := GetUserFromContext(r.Context())
	h.render(w, r, web.PageHome, web.PageData{Title: "Home", User: u})
}

func (h *Handler) SignupPage(w http.ResponseWriter, r *http.Request) {
	h.render(w, r, web.PageSignup, web.PageData{Title: "Sign up"})
}

func (h *Handler) LoginPage(w http.ResponseWriter, r *http.Request) {
	h.render(w, r, web.PageLogin, web.PageData{Title: "Log in"})
}

// Signup handles user registration
// @Summary      Sign up
// @Description  Create an unverified account, email a verification code and start a session.
// @Tags         auth
// @Accept       x-www-form-urlencoded
// @Produce      plain
// @Param        email    formData string true "Email address"
// @Param        password formData string true "Password (6-20 characters)"
// @Success      302 "Redirect to / with the session cookie set"
// @Failure      400 {string} string "Invalid input or Something went wrong"
// @Failure      429 {string} string "Too many requests"
// @Router       /signup [post]
func (h *Handler) Signup(w http.ResponseWriter, r *http.Request) {
	logger := logging.GetLoggerFromContext(r.Context())

	if !h.allow(w, r, ratelimit.PurposeSignup, clientIP(r)) {
		return
	}

	var input CredentialsForm
	if !h.decodeForm(w, r, &input) {
		return
	}

	newUser, sess, err := h.service.Signup(r.Context(), input.Email, input.Password)
	if err != nil {
		logger.Warn("signup failed", "error", err)
		httputil.RespondText(w, httputil.MsgSomethingWentWrong, http.StatusBadRequest)
		return
	}

	if !h.setSessionCookie(w, r, sess) {
		return
	}

	logger.Info("user signed up", "user_id", newUser.ID)
	httputil.RedirectHome(w, r)
}

// Login handles user login
// @Summary      Log in
// @Description  Start a session for valid credentials.
// @Tags         auth
// @Accept       x-www-form-urlencoded
// @Produce      plain
// @Param        email    formData string true "Email address"
// @Param        password formData string true "Password"
// @Success      302 "Redirect to / with the session cookie set"
// @Failure      400 {string} string "Invalid input or Invalid email or password"
// @Failure      429 {string} string "Too many requests"
// @Router       /login [post]
func (h *Handler) Login(w http.ResponseWriter, r *http.Request) {
	logger := logging.GetLoggerFromContext(r.Context())

	if !h.allow(w, r, ratelimit.PurposeLogin, clientIP(r)) {
		return
	}

	var input CredentialsForm
	if !h.decodeForm(w, r, &input) {
		return
	}

	existingUser, sess, err := h.service.Login(r.Context(), input.Email, input.Password)
	if err != nil {
		if errors.Is(err, ErrInvalidCredentials) {
			logger.Warn("login failed: invalid credentials")
			httputil.RespondText(w, httputil.MsgInvalidCredentials, http.StatusBadRequest)
			return
		}
		logger.Error("login failed: internal error", "error", err)
		httputil.RespondText(w, httputil.MsgSomethingWentWrong, http.StatusBadRequest)
		return
	}

	if !h.setSessionCookie(w, r, sess) {
		return
	}

	logger.Info("user logged in", "user_id", existingUser.ID)
	httputil.RedirectHome(w, r)
}

// Logout handles user logout
// @Summary      Log out
// @Description  Invalidate the current session (if any) and clear the cookie.
// @Tags         auth
// @Produce      plain
// @Success      302 "Redirect to / with a blank session cookie"
// @Failure      500 {string} string "Something went wrong"
// @Router       /logout [post]
func (h *Handler) Logout(w http.ResponseWriter, r *http.Request) {
	logger := logging.GetLoggerFromContext(r.Context())

	var sessionID string
	if sess, ok := GetSessionFromContext(r.Context()); ok {
		sessionID = sess.ID
	}

	http.SetCookie(w, h.sessions.BlankSessionCookie())

	if err := h.service.Logout(r.Context(), sessionID); err != nil {
		logger.Error("logout failed", "error", err)
		httputil.RespondText(w, httputil.MsgSomethingWentWrong, http.StatusInternalServerError)
		return
	}

	httputil.RedirectHome(w, r)
}

// VerifyEmail handles verification code submission
// @Summary      Verify email
// @Description  Consume the emailed code, mark the email verified and rotate the session.
// @Tags         auth
// @Accept       x-www-form-urlencoded
// @Produce      plain
// @Param        code formData string true "Verification code"
// @Success      302 "Redirect to / with a new session cookie"
// @Failure      400 "Invalid or expired code"
// @Failure      404 "No session"
// @Failure      429 {string} string "Too many requests"
// @Failure      500 {string} string "Something went wrong"
// @Router       /email-verification [post]
func (h *Handler) VerifyEmail(w http.ResponseWriter, r *http.Request) {
	logger := logging.GetLoggerFromContext(r.Context())
	currentUser, _ := GetUserFromContext(r.Context())

	if !h.allow(w, r, ratelimit.PurposeVerify, currentUser.ID.String()) {
		return
	}

	var input VerificationForm
	if !h.decodeForm(w, r, &input) {
		return
	}

	sess, err := h.service.VerifyEmail(r.Context(), currentUser, input.Code)
	if err != nil {
		if errors.Is(err, ErrInvalidCode) {
			logger.Warn("email verification failed: invalid code")
			httputil.RespondEmpty(w, http.StatusBadRequest)
			return
		}
		logger.Error("email verification failed: internal error", "error", err)
		httputil.RespondText(w, httputil.MsgSomethingWentWrong, http.StatusInternalServerError)
		return
	}

	if !h.setSessionCookie(w, r, sess) {
		return
	}

	logger.Info("email verified")
	httputil.RedirectHome(w, r)
}

// ResendVerification handles requests for a new verification code
// @Summary      Resend verification code
// @Description  Replace the current code with a new one and email it. No-op for verified users.
// @Tags         auth
// @Produce      plain
// @Success      302 "Redirect to /"
// @Failure      404 "No session"
// @Failure      429 {string} string "Please wait before requesting another code"
// @Failure      500 {string} string "Something went wrong"
// @Router       /email-verification/resend [post]
func (h *Handler) ResendVerification(w http.ResponseWriter, r *http.Request) {
	logger := logging.GetLoggerFromContext(r.Context())
	currentUser, _ := GetUserFromContext(r.Context())

	if currentUser.EmailVerified {
		httputil.RedirectHome(w, r)
		return
	}

	if h.rateLimiter != nil {
		ok, err := h.rateLimiter.Cooldown(r.Context(), ratelimit.PurposeResend, currentUser.ID.String(), h.resendCooldown)
		if err != nil {
			logger.Error("failed to check resend cooldown", "error", err)
		} else if !ok {
			logger.Warn("resend cooldown active")
			httputil.RespondText(w, "Please wait before requesting another code", http.StatusTooManyRequests)
			return
		}
	}

	if err := h.service.ResendVerificationCode(r.Context(), currentUser); err != nil {
		logger.Error("resend verification failed", "error", err)
		httputil.RespondText(w, httputil.MsgSomethingWentWrong, http.StatusInternalServerError)
		return
	}

	logger.Info("verification code resent")
	httputil.RedirectHome(w, r)
}

func (h *Handler) render(w http.ResponseWriter, r *http.Request, page string, data web.PageData) {
	if err := h.pages.Render(w, http.StatusOK, page, data); err != nil {
		logging.GetLoggerFromContext(r.Context()).Error("failed to render page", "page", page, "error", err)
		httputil.RespondText(w, httputil.MsgSomethingWentWrong, http.StatusInternalServerError)
	}
}

// allow applies the rate limit for purpose. Limiter errors are logged and the
// request is let through.
func (h *Handler) allow(w http.ResponseWriter, r *http.Request, purpose, key string) bool {
	if h.rateLimiter == nil {
		return true
	}

	logger := logging.GetLoggerFromContext(r.Context())
	ok, err := h.rateLimiter.AllowWithPurpose(r.Context(), purpose, key)
	if err != nil {
		logger.Error("failed to check rate limit", "purpose", purpose, "error", err)
		return true
	}
	if !ok {
		logger.Warn("rate limit exceeded", "purpose", purpose)
		httputil.RespondText(w, httputil.MsgTooManyRequests, http.StatusTooManyRequests)
		return false
	}
	return true
}

func (h *Handler) setSessionCookie(w http.ResponseWriter, r *http.Request, sess *session.Session) bool {
	cookie, err := h.sessions.SessionCookie(sess)
	if err != nil {
		logging.GetLoggerFromContext(r.Context()).Error("failed to create session cookie", "error", err)
		httputil.RespondText(w, httputil.MsgSomethingWentWrong, http.StatusInternalServerError)
		return false
	}
	http.SetCookie(w, cookie)
	return true
}
