package handler

import (
	"context"
	"errors"
	"net/http"
	"strings"

	"github.com/labstack/echo/v4"

	"github.com/iliyamo/restaurant-order-platform/internal/config"
	"github.com/iliyamo/restaurant-order-platform/internal/model"
	"github.com/iliyamo/restaurant-order-platform/internal/repository"
)

// RestaurantHandler implements tenant onboarding. Reserved for the DEVELOPER
// super-role: it creates the restaurant row and its first ADMIN account in
// one call.
type RestaurantHandler struct {
	Cfg         config.Config
	Restaurants RestaurantStore
	Users       UserStore
}

func NewRestaurantHandler(cfg config.Config, restaurants RestaurantStore, users UserStore) *RestaurantHandler {
	return &RestaurantHandler{Cfg: cfg, Restaurants: restaurants, Users: users}
}

type onboardReq struct {
	Name          string `json:"name"`
	AdminEmail    string `json:"admin_email"`
	AdminPassword string `json:"admin_password"`
}

type restaurantPart struct {
	ID   uint64 `json:"id"`
	Name string `json:"name"`
}

func (h *RestaurantHandler) storeCtx(c echo.Context) (context.Context, context.CancelFunc) {
	return context.WithTimeout(c.Request().Context(), h.Cfg.StoreTimeout)
}

// Onboard creates a new tenant plus its ADMIN principal. The admin account
// is created pre-verified: the platform operator vouches for the address
// during onboarding.
func (h *RestaurantHandler) Onboard(c echo.Context) error {
	var req onboardReq
	if err := c.Bind(&req); err != nil {
		return respondErr(c, http.StatusBadRequest, "invalid body", "BAD_REQUEST")
	}
	req.Name = strings.TrimSpace(req.Name)
	req.AdminEmail = strings.ToLower(strings.TrimSpace(req.AdminEmail))

	errs := validateCredentials(req.AdminEmail, req.AdminPassword)
	if req.Name == "" {
		if errs == nil {
			errs = map[string]string{}
		}
		errs["name"] = "restaurant name is required"
	}
	if errs != nil {
		return respondValidation(c, http.StatusBadRequest, "invalid onboarding request", errs)
	}

	ctx, cancel := h.storeCtx(c)
	defer cancel()

	rid, err := h.Restaurants.Create(ctx, req.Name)
	if err != nil {
		if errors.Is(err, repository.ErrNameExists) {
			return respondErr(c, http.StatusConflict, "restaurant name already taken", "NAME_EXISTS")
		}
		return respondErr(c, http.StatusInternalServerError, "create restaurant failed", "INTERNAL")
	}

	uid, err := h.Users.Create(ctx, req.AdminEmail, req.AdminPassword, model.RoleAdmin, &rid, true, h.Cfg.BcryptCost)
	if err != nil {
		if errors.Is(err, repository.ErrEmailExists) {
			return respondErr(c, http.StatusConflict, "admin email already registered", "EMAIL_EXISTS")
		}
		return respondErr(c, http.StatusInternalServerError, "create admin failed", "INTERNAL")
	}

	return respondOK(c, http.StatusCreated, "restaurant onboarded", echo.Map{
		"restaurant": restaurantPart{ID: rid, Name: req.Name},
		"admin": userPart{
			ID: uid, Email: req.AdminEmail, Role: model.RoleAdmin, EmailVerified: true,
		},
	})
}

// List returns all tenants.
func (h *RestaurantHandler) List(c echo.Context) error {
	ctx, cancel := h.storeCtx(c)
	defer cancel()

	all, err := h.Restaurants.List(ctx)
	if err != nil {
		return respondErr(c, http.StatusInternalServerError, "list restaurants failed", "INTERNAL")
	}
	out := make([]restaurantPart, 0, len(all))
	for _, r := range all {
		out = append(out, restaurantPart{ID: r.ID, Name: r.Name})
	}
	return respondOK(c, http.StatusOK, "ok", echo.Map{"restaurants": out})
}
