package handler

import (
	"context"
	"errors"
	"net/http"
	"strconv"
	"strings"

	"github.com/labstack/echo/v4"

	"github.com/iliyamo/restaurant-order-platform/internal/config"
	"github.com/iliyamo/restaurant-order-platform/internal/model"
	"github.com/iliyamo/restaurant-order-platform/internal/repository"
)

// TableHandler manages a restaurant's dining tables. Runs behind the tenant
// gate like the staff routes.
type TableHandler struct {
	Cfg    config.Config
	Tables TableStore
}

func NewTableHandler(cfg config.Config, tables TableStore) *TableHandler {
	return &TableHandler{Cfg: cfg, Tables: tables}
}

type createTableReq struct {
	Label    string `json:"label"`
	Capacity uint32 `json:"capacity"`
}

type tablePart struct {
	ID       uint64 `json:"id"`
	Label    string `json:"label"`
	Capacity uint32 `json:"capacity"`
	IsActive bool   `json:"is_active"`
}

func tableToPart(t model.DiningTable) tablePart {
	return tablePart{ID: t.ID, Label: t.Label, Capacity: t.Capacity, IsActive: t.IsActive}
}

func (h *TableHandler) storeCtx(c echo.Context) (context.Context, context.CancelFunc) {
	return context.WithTimeout(c.Request().Context(), h.Cfg.StoreTimeout)
}

// Create adds a dining table to the tenant.
func (h *TableHandler) Create(c echo.Context) error {
	var req createTableReq
	if err := c.Bind(&req); err != nil {
		return respondErr(c, http.StatusBadRequest, "invalid body", "BAD_REQUEST")
	}
	req.Label = strings.TrimSpace(req.Label)
	errs := map[string]string{}
	if req.Label == "" {
		errs["label"] = "table label is required"
	}
	if req.Capacity == 0 {
		errs["capacity"] = "capacity must be at least 1"
	}
	if len(errs) > 0 {
		return respondValidation(c, http.StatusBadRequest, "invalid table request", errs)
	}

	rid := tenantID(c)
	ctx, cancel := h.storeCtx(c)
	defer cancel()

	id, err := h.Tables.Create(ctx, rid, req.Label, req.Capacity)
	if err != nil {
		if errors.Is(err, repository.ErrLabelExists) {
			return respondErr(c, http.StatusConflict, "table label already in use", "LABEL_EXISTS")
		}
		return respondErr(c, http.StatusInternalServerError, "create table failed", "INTERNAL")
	}
	return respondOK(c, http.StatusCreated, "table created", echo.Map{
		"table": tablePart{ID: id, Label: req.Label, Capacity: req.Capacity, IsActive: true},
	})
}

// List returns the tenant's tables.
func (h *TableHandler) List(c echo.Context) error {
	rid := tenantID(c)
	ctx, cancel := h.storeCtx(c)
	defer cancel()

	tables, err := h.Tables.ListByRestaurant(ctx, rid)
	if err != nil {
		return respondErr(c, http.StatusInternalServerError, "list tables failed", "INTERNAL")
	}
	out := make([]tablePart, 0, len(tables))
	for _, t := range tables {
		out = append(out, tableToPart(t))
	}
	return respondOK(c, http.StatusOK, "ok", echo.Map{"tables": out})
}

// Delete removes a table from the tenant.
func (h *TableHandler) Delete(c echo.Context) error {
	tableID, err := strconv.ParseUint(c.Param("table_id"), 10, 64)
	if err != nil || tableID == 0 {
		return respondErr(c, http.StatusBadRequest, "invalid table id", "BAD_REQUEST")
	}

	rid := tenantID(c)
	ctx, cancel := h.storeCtx(c)
	defer cancel()

	if err := h.Tables.Delete(ctx, rid, tableID); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return respondErr(c, http.StatusNotFound, "table not found", "NOT_FOUND")
		}
		return respondErr(c, http.StatusInternalServerError, "delete table failed", "INTERNAL")
	}
	return respondOK(c, http.StatusOK, "table removed", nil)
}
