package shift

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"

	"github.com/sari-pos/sari-pos/internal/cashiers"
	"github.com/sari-pos/sari-pos/internal/platform/httpx"
)

// PINVerifier authenticates the cashier before drawer operations.
type PINVerifier interface {
	VerifyPIN(ctx context.Context, cashierID int64, pin string) (*cashiers.Cashier, error)
}

// Handler exposes shift lifecycle and history over HTTP.
type Handler struct {
	logger   *slog.Logger
	service  *Service
	pins     PINVerifier
	validate *validator.Validate
}

// NewHandler constructs the shift handler.
func NewHandler(logger *slog.Logger, service *Service, pins PINVerifier) *Handler {
	return &Handler{
		logger:   logger,
		service:  service,
		pins:     pins,
		validate: validator.New(),
	}
}

// MountRoutes attaches shift routes.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Post("/start", h.start)
	r.Post("/end", h.end)
	r.Get("/active", h.active)
	r.Get("/", h.list)
	r.Get("/{id}", h.get)
}

func respondError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, ErrNotFound):
		httpx.Problem(w, http.StatusNotFound, "Not Found", err.Error())
	case errors.Is(err, ErrShiftAlreadyOpen):
		httpx.Problem(w, http.StatusConflict, "Shift Already Open", err.Error())
	case errors.Is(err, ErrNoActiveShift):
		httpx.Problem(w, http.StatusConflict, "No Active Shift", err.Error())
	case errors.Is(err, ErrInvalidAmount):
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", err.Error())
	case errors.Is(err, cashiers.ErrInvalidPIN), errors.Is(err, cashiers.ErrNotFound):
		httpx.Problem(w, http.StatusForbidden, "Invalid PIN", "cashier pin rejected")
	default:
		httpx.RespondError(w, err)
	}
}

type startShiftRequest struct {
	StartShiftRequest
	PIN string `json:"pin" validate:"required,min=4,max=10"`
}

type endShiftRequest struct {
	EndShiftRequest
	PIN string `json:"pin" validate:"required,min=4,max=10"`
}

func (h *Handler) start(w http.ResponseWriter, r *http.Request) {
	var req startShiftRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", "invalid request body")
		return
	}
	if err := h.validate.Struct(req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", err.Error())
		return
	}
	if _, err := h.pins.VerifyPIN(r.Context(), req.CashierID, req.PIN); err != nil {
		respondError(w, err)
		return
	}

	opened, err := h.service.StartShift(r.Context(), req.StartShiftRequest)
	if err != nil {
		respondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusCreated, opened)
}

func (h *Handler) end(w http.ResponseWriter, r *http.Request) {
	var req endShiftRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", "invalid request body")
		return
	}
	if err := h.validate.Struct(req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", err.Error())
		return
	}
	if _, err := h.pins.VerifyPIN(r.Context(), req.CashierID, req.PIN); err != nil {
		respondError(w, err)
		return
	}

	recon, err := h.service.EndShift(r.Context(), req.EndShiftRequest)
	if err != nil {
		respondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, recon)
}

func (h *Handler) active(w http.ResponseWriter, r *http.Request) {
	cashierID, err := strconv.ParseInt(r.URL.Query().Get("cashier_id"), 10, 64)
	if err != nil || cashierID <= 0 {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", "cashier_id is required")
		return
	}
	terminal := r.URL.Query().Get("terminal")
	if terminal == "" {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", "terminal is required")
		return
	}

	active, err := h.service.ActiveShift(r.Context(), cashierID, terminal)
	if err != nil {
		respondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, active)
}

func (h *Handler) get(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", "invalid shift id")
		return
	}
	record, err := h.service.GetShift(r.Context(), id)
	if err != nil {
		respondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, record)
}

func (h *Handler) list(w http.ResponseWriter, r *http.Request) {
	filter := ListFilter{}
	q := r.URL.Query()

	if v := q.Get("cashier_id"); v != "" {
		id, err := strconv.ParseInt(v, 10, 64)
		if err != nil {
			httpx.Problem(w, http.StatusBadRequest, "Validation Failed", "invalid cashier_id")
			return
		}
		filter.CashierID = &id
	}
	if v := q.Get("terminal"); v != "" {
		filter.Terminal = &v
	}
	if v := q.Get("status"); v != "" {
		status := Status(v)
		if !status.Valid() {
			httpx.Problem(w, http.StatusBadRequest, "Validation Failed", "invalid status")
			return
		}
		filter.Status = &status
	}
	if v := q.Get("from"); v != "" {
		from, err := time.Parse(time.RFC3339, v)
		if err != nil {
			httpx.Problem(w, http.StatusBadRequest, "Validation Failed", "invalid from timestamp")
			return
		}
		filter.From = &from
	}
	if v := q.Get("to"); v != "" {
		to, err := time.Parse(time.RFC3339, v)
		if err != nil {
			httpx.Problem(w, http.StatusBadRequest, "Validation Failed", "invalid to timestamp")
			return
		}
		filter.To = &to
	}
	filter.Limit, filter.Offset = httpx.ParsePagination(r)

	shifts, total, err := h.service.ListShifts(r.Context(), filter)
	if err != nil {
		h.logger.Error("list shifts", slog.Any("error", err))
		respondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, map[string]any{
		"shifts":     shifts,
		"pagination": httpx.NewPagination(filter.Limit, filter.Offset, total),
	})
}
