package handler

import (
	"context"
	"errors"
	"net/http"
	"strconv"
	"strings"

	"github.com/labstack/echo/v4"

	"github.com/iliyamo/restaurant-order-platform/internal/config"
	"github.com/iliyamo/restaurant-order-platform/internal/middleware"
	"github.com/iliyamo/restaurant-order-platform/internal/model"
	"github.com/iliyamo/restaurant-order-platform/internal/repository"
)

// StaffHandler manages a restaurant's staff accounts. The routes run behind
// the tenant gate, so the restaurant id in the context is already verified
// against the caller (or the caller is a DEVELOPER).
type StaffHandler struct {
	Cfg   config.Config
	Users UserStore
}

func NewStaffHandler(cfg config.Config, users UserStore) *StaffHandler {
	return &StaffHandler{Cfg: cfg, Users: users}
}

type createStaffReq struct {
	Email    string `json:"email"`
	Password string `json:"password"`
	Role     string `json:"role"` // ADMIN | CASHIER | KITCHEN
}

func (h *StaffHandler) storeCtx(c echo.Context) (context.Context, context.CancelFunc) {
	return context.WithTimeout(c.Request().Context(), h.Cfg.StoreTimeout)
}

func tenantID(c echo.Context) uint64 {
	id, _ := c.Get(middleware.CtxTenantID).(uint64)
	return id
}

// Create adds a staff principal to the tenant. Staff accounts are created
// pre-verified: the admin creating them vouches for the address.
func (h *StaffHandler) Create(c echo.Context) error {
	var req createStaffReq
	if err := c.Bind(&req); err != nil {
		return respondErr(c, http.StatusBadRequest, "invalid body", "BAD_REQUEST")
	}
	req.Email = strings.ToLower(strings.TrimSpace(req.Email))
	req.Role = strings.ToUpper(strings.TrimSpace(req.Role))

	errs := validateCredentials(req.Email, req.Password)
	if !model.StaffRole(req.Role) {
		if errs == nil {
			errs = map[string]string{}
		}
		errs["role"] = "role must be ADMIN, CASHIER or KITCHEN"
	}
	if errs != nil {
		return respondValidation(c, http.StatusBadRequest, "invalid staff request", errs)
	}

	rid := tenantID(c)
	ctx, cancel := h.storeCtx(c)
	defer cancel()

	uid, err := h.Users.Create(ctx, req.Email, req.Password, req.Role, &rid, true, h.Cfg.BcryptCost)
	if err != nil {
		if errors.Is(err, repository.ErrEmailExists) {
			return respondErr(c, http.StatusConflict, "email already registered", "EMAIL_EXISTS")
		}
		return respondErr(c, http.StatusInternalServerError, "create staff failed", "INTERNAL")
	}
	return respondOK(c, http.StatusCreated, "staff account created", echo.Map{
		"staff": userPart{ID: uid, Email: req.Email, Role: req.Role, EmailVerified: true},
	})
}

// List returns the tenant's staff accounts.
func (h *StaffHandler) List(c echo.Context) error {
	rid := tenantID(c)
	ctx, cancel := h.storeCtx(c)
	defer cancel()

	staff, err := h.Users.ListStaff(ctx, rid)
	if err != nil {
		return respondErr(c, http.StatusInternalServerError, "list staff failed", "INTERNAL")
	}
	out := make([]userPart, 0, len(staff))
	for _, u := range staff {
		out = append(out, userToPart(u))
	}
	return respondOK(c, http.StatusOK, "ok", echo.Map{"staff": out})
}

// Delete removes a staff principal from the tenant. The repository scopes
// the delete by restaurant id, so a stray user id from another tenant just
// comes back not-found.
func (h *StaffHandler) Delete(c echo.Context) error {
	staffID, err := strconv.ParseUint(c.Param("staff_id"), 10, 64)
	if err != nil || staffID == 0 {
		return respondErr(c, http.StatusBadRequest, "invalid staff id", "BAD_REQUEST")
	}
	if pid, ok := c.Get(middleware.CtxPrincipalID).(uint64); ok && pid == staffID {
		return respondErr(c, http.StatusConflict, "cannot delete your own account", "SELF_DELETE")
	}

	rid := tenantID(c)
	ctx, cancel := h.storeCtx(c)
	defer cancel()

	if err := h.Users.DeleteStaff(ctx, rid, staffID); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return respondErr(c, http.StatusNotFound, "staff member not found", "NOT_FOUND")
		}
		return respondErr(c, http.StatusInternalServerError, "delete staff failed", "INTERNAL")
	}
	return respondOK(c, http.StatusOK, "staff account removed", nil)
}
