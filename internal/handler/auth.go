package handler

import (
	"context"
	"errors"
	"net/http"
	"strings"

	"github.com/labstack/echo/v4"

	"github.com/iliyamo/restaurant-order-platform/internal/auth"
	"github.com/iliyamo/restaurant-order-platform/internal/config"
	"github.com/iliyamo/restaurant-order-platform/internal/middleware"
	"github.com/iliyamo/restaurant-order-platform/internal/model"
	"github.com/iliyamo/restaurant-order-platform/internal/repository"
	"github.com/iliyamo/restaurant-order-platform/internal/utils"
)

// AuthHandler bundles dependencies for the authentication endpoints.
type AuthHandler struct {
	Cfg    config.Config
	Users  UserStore
	Codec  *auth.Codec
	Ledger *auth.RevocationLedger
	Codes  *auth.CodeBroker
}

func NewAuthHandler(cfg config.Config, users UserStore, codec *auth.Codec, ledger *auth.RevocationLedger, codes *auth.CodeBroker) *AuthHandler {
	return &AuthHandler{Cfg: cfg, Users: users, Codec: codec, Ledger: ledger, Codes: codes}
}

// ----- DTOs -----

type registerReq struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}
type loginReq struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}
type verifyLinkReq struct {
	Email string `json:"email"`
	Token string `json:"token"`
}
type verifyCodeReq struct {
	Email string `json:"email"`
	Code  string `json:"code"`
	Token string `json:"token"`
}
type resetRequestReq struct {
	Email string `json:"email"`
}
type resetConfirmReq struct {
	Email       string `json:"email"`
	Code        string `json:"code"`
	Token       string `json:"token"`
	NewPassword string `json:"new_password"`
}

type userPart struct {
	ID            uint64 `json:"id"`
	Email         string `json:"email"`
	Role          string `json:"role"`
	EmailVerified bool   `json:"email_verified"`
}

func userToPart(u model.User) userPart {
	return userPart{ID: u.ID, Email: u.Email, Role: u.Role, EmailVerified: u.EmailVerified}
}

func (h *AuthHandler) storeCtx(c echo.Context) (context.Context, context.CancelFunc) {
	return context.WithTimeout(c.Request().Context(), h.Cfg.StoreTimeout)
}

func validateCredentials(email, password string) map[string]string {
	errs := map[string]string{}
	if email == "" || !strings.Contains(email, "@") {
		errs["email"] = "a valid email address is required"
	}
	if len(password) < 8 {
		errs["password"] = "password must be at least 8 characters"
	}
	if len(errs) == 0 {
		return nil
	}
	return errs
}

// verifyErr translates broker failures into envelope responses. The broker
// errors are user-actionable (re-enter the code, request a new one) and are
// passed through verbatim rather than collapsed.
func verifyErr(c echo.Context, err error) error {
	switch {
	case errors.Is(err, auth.ErrCodeNotFound):
		return respondErr(c, http.StatusBadRequest, "code expired or never issued", "CODE_NOT_FOUND")
	case errors.Is(err, auth.ErrBadCode):
		return respondErr(c, http.StatusBadRequest, "incorrect code", "BAD_CODE")
	case errors.Is(err, auth.ErrBadToken):
		return respondErr(c, http.StatusBadRequest, "invalid verification token", "BAD_TOKEN")
	case errors.Is(err, auth.ErrStoreUnavailable):
		return respondErr(c, http.StatusServiceUnavailable, "verification unavailable, retry later", middleware.ReasonUpstream)
	default:
		return respondErr(c, http.StatusInternalServerError, "verification failed", "INTERNAL")
	}
}

// Register creates an unverified customer account and issues a verification
// code. The 6-digit code travels only by email; the response carries the
// opaque flow token the client presents together with the code.
func (h *AuthHandler) Register(c echo.Context) error {
	var req registerReq
	if err := c.Bind(&req); err != nil {
		return respondErr(c, http.StatusBadRequest, "invalid body", "BAD_REQUEST")
	}
	req.Email = strings.ToLower(strings.TrimSpace(req.Email))
	if errs := validateCredentials(req.Email, req.Password); errs != nil {
		return respondValidation(c, http.StatusBadRequest, "invalid registration", errs)
	}

	ctx, cancel := h.storeCtx(c)
	defer cancel()

	uid, err := h.Users.Create(ctx, req.Email, req.Password, model.RoleCustomer, nil, false, h.Cfg.BcryptCost)
	if err != nil {
		if errors.Is(err, repository.ErrEmailExists) {
			return respondErr(c, http.StatusConflict, "email already registered", "EMAIL_EXISTS")
		}
		return respondErr(c, http.StatusInternalServerError, "create account failed", "INTERNAL")
	}

	code, err := h.Codes.Issue(ctx, uid, auth.PurposeVerifyEmail, req.Email)
	if err != nil {
		return respondErr(c, http.StatusServiceUnavailable, "could not issue verification code", middleware.ReasonUpstream)
	}

	return respondOK(c, http.StatusCreated, "registered, check your email for the verification code", echo.Map{
		"user_id":            uid,
		"email":              req.Email,
		"verification_token": code.Token,
		"expires_at":         code.ExpiresAt,
	})
}

// VerifyEmailLink validates only the opaque token, as the emailed link does
// when clicked. The pending record is left intact for the code step.
func (h *AuthHandler) VerifyEmailLink(c echo.Context) error {
	var req verifyLinkReq
	if err := c.Bind(&req); err != nil || req.Email == "" || req.Token == "" {
		return respondErr(c, http.StatusBadRequest, "email and token required", "BAD_REQUEST")
	}

	ctx, cancel := h.storeCtx(c)
	defer cancel()

	u, err := h.Users.GetByEmail(ctx, req.Email)
	if err != nil {
		// Same answer as an expired record: no account oracle.
		return respondErr(c, http.StatusBadRequest, "code expired or never issued", "CODE_NOT_FOUND")
	}
	if err := h.Codes.VerifyToken(ctx, u.ID, auth.PurposeVerifyEmail, req.Token); err != nil {
		return verifyErr(c, err)
	}
	return respondOK(c, http.StatusOK, "token accepted, enter the emailed code to finish", nil)
}

// VerifyEmail consumes the code/token pair and marks the address verified.
func (h *AuthHandler) VerifyEmail(c echo.Context) error {
	var req verifyCodeReq
	if err := c.Bind(&req); err != nil || req.Email == "" || req.Code == "" || req.Token == "" {
		return respondErr(c, http.StatusBadRequest, "email, code and token required", "BAD_REQUEST")
	}

	ctx, cancel := h.storeCtx(c)
	defer cancel()

	u, err := h.Users.GetByEmail(ctx, req.Email)
	if err != nil {
		return respondErr(c, http.StatusBadRequest, "code expired or never issued", "CODE_NOT_FOUND")
	}
	if err := h.Codes.VerifyCode(ctx, u.ID, auth.PurposeVerifyEmail, req.Code, req.Token); err != nil {
		return verifyErr(c, err)
	}
	if err := h.Users.MarkEmailVerified(ctx, u.ID); err != nil {
		return respondErr(c, http.StatusInternalServerError, "could not mark verified", "INTERNAL")
	}
	return respondOK(c, http.StatusOK, "email verified", echo.Map{"user": userPart{
		ID: u.ID, Email: u.Email, Role: u.Role, EmailVerified: true,
	}})
}

// Login checks credentials and issues a session token. An unverified account
// with correct credentials gets a fresh verification code and a response the
// UI can tell apart from bad credentials.
func (h *AuthHandler) Login(c echo.Context) error {
	var req loginReq
	if err := c.Bind(&req); err != nil {
		return respondErr(c, http.StatusBadRequest, "invalid body", "BAD_REQUEST")
	}
	req.Email = strings.ToLower(strings.TrimSpace(req.Email))
	if req.Email == "" || req.Password == "" {
		return respondErr(c, http.StatusBadRequest, "email and password required", "BAD_REQUEST")
	}

	ctx, cancel := h.storeCtx(c)
	defer cancel()

	u, err := h.Users.GetByEmail(ctx, req.Email)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return respondErr(c, http.StatusUnauthorized, "invalid credentials", "INVALID_CREDENTIALS")
		}
		return respondErr(c, http.StatusInternalServerError, "login failed", "INTERNAL")
	}
	if !utils.VerifyPassword(u.PasswordHash, req.Password) {
		return respondErr(c, http.StatusUnauthorized, "invalid credentials", "INVALID_CREDENTIALS")
	}

	if !u.EmailVerified {
		code, err := h.Codes.Issue(ctx, u.ID, auth.PurposeVerifyEmail, u.Email)
		if err != nil {
			return respondErr(c, http.StatusServiceUnavailable, "could not issue verification code", middleware.ReasonUpstream)
		}
		return c.JSON(http.StatusForbidden, echo.Map{
			"success": false,
			"message": "email not verified, a new code has been sent",
			"error":   "EMAIL_UNVERIFIED",
			"data": echo.Map{
				"verification_token": code.Token,
				"expires_at":         code.ExpiresAt,
			},
		})
	}

	tok, err := h.Codec.Issue(u.ID, u.Email, u.Role)
	if err != nil {
		return respondErr(c, http.StatusInternalServerError, "issue session failed", "INTERNAL")
	}
	return respondOK(c, http.StatusOK, "logged in", echo.Map{
		"user":       userToPart(u),
		"token":      tok.Token,
		"expires_at": tok.ExpiresAt,
	})
}

// Logout revokes the presented session token for the rest of its lifetime.
// Requires the access gate, so the token here already passed verification.
func (h *AuthHandler) Logout(c echo.Context) error {
	raw, _ := c.Get(middleware.CtxToken).(string)
	if raw == "" {
		return respondErr(c, http.StatusUnauthorized, "missing bearer token", middleware.ReasonNoToken)
	}

	ctx, cancel := h.storeCtx(c)
	defer cancel()

	if err := h.Ledger.Revoke(ctx, raw); err != nil {
		c.Logger().Errorf("revoke failed: %v", err)
		return respondErr(c, http.StatusServiceUnavailable, "logout failed, retry later", middleware.ReasonUpstream)
	}
	return respondOK(c, http.StatusOK, "logged out", nil)
}

// RequestPasswordReset issues a reset code for known accounts. The response
// is identical whether or not the email exists; the code and link only ever
// travel by email.
func (h *AuthHandler) RequestPasswordReset(c echo.Context) error {
	var req resetRequestReq
	if err := c.Bind(&req); err != nil || strings.TrimSpace(req.Email) == "" {
		return respondErr(c, http.StatusBadRequest, "email required", "BAD_REQUEST")
	}

	ctx, cancel := h.storeCtx(c)
	defer cancel()

	if u, err := h.Users.GetByEmail(ctx, req.Email); err == nil {
		if _, err := h.Codes.Issue(ctx, u.ID, auth.PurposeResetPassword, u.Email); err != nil {
			return respondErr(c, http.StatusServiceUnavailable, "could not issue reset code", middleware.ReasonUpstream)
		}
	}
	return respondOK(c, http.StatusOK, "if that address is registered, a reset code has been sent", nil)
}

// ConfirmPasswordReset consumes the reset code/token pair and installs the
// new password.
func (h *AuthHandler) ConfirmPasswordReset(c echo.Context) error {
	var req resetConfirmReq
	if err := c.Bind(&req); err != nil || req.Email == "" || req.Code == "" || req.Token == "" {
		return respondErr(c, http.StatusBadRequest, "email, code and token required", "BAD_REQUEST")
	}
	if len(req.NewPassword) < 8 {
		return respondValidation(c, http.StatusBadRequest, "invalid password",
			map[string]string{"new_password": "password must be at least 8 characters"})
	}

	ctx, cancel := h.storeCtx(c)
	defer cancel()

	u, err := h.Users.GetByEmail(ctx, req.Email)
	if err != nil {
		return respondErr(c, http.StatusBadRequest, "code expired or never issued", "CODE_NOT_FOUND")
	}
	if err := h.Codes.VerifyCode(ctx, u.ID, auth.PurposeResetPassword, req.Code, req.Token); err != nil {
		return verifyErr(c, err)
	}
	if err := h.Users.UpdatePassword(ctx, u.ID, req.NewPassword, h.Cfg.BcryptCost); err != nil {
		return respondErr(c, http.StatusInternalServerError, "could not update password", "INTERNAL")
	}
	return respondOK(c, http.StatusOK, "password updated", nil)
}

// Me echoes the authenticated identity. Simple protected endpoint.
func (h *AuthHandler) Me(c echo.Context) error {
	return respondOK(c, http.StatusOK, "ok", echo.Map{
		"principal_id": c.Get(middleware.CtxPrincipalID),
		"email":        c.Get(middleware.CtxEmail),
		"role":         c.Get(middleware.CtxRole),
	})
}
