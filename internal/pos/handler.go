package pos

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"

	"github.com/sari-pos/sari-pos/internal/money"
	"github.com/sari-pos/sari-pos/internal/platform/httpx"
)

func respondError(w http.ResponseWriter, err error) {
	var precond *PreconditionError
	if errors.As(err, &precond) {
		violations := make([]string, len(precond.Violations))
		for i, v := range precond.Violations {
			violations[i] = string(v)
		}
		httpx.JSON(w, http.StatusConflict, httpx.ProblemDetail{
			Title:      "Checkout Blocked",
			Status:     http.StatusConflict,
			Detail:     precond.Error(),
			Violations: violations,
		})
		return
	}

	var submission *SubmissionError
	if errors.As(err, &submission) {
		httpx.Problem(w, http.StatusBadGateway, "Sale Submission Failed", submission.Reason.Error())
		return
	}

	switch {
	case errors.Is(err, ErrItemNotFound), errors.Is(err, ErrProductUnavailable):
		httpx.Problem(w, http.StatusNotFound, "Not Found", err.Error())
	case errors.Is(err, ErrCheckoutInFlight):
		httpx.Problem(w, http.StatusConflict, "Checkout In Flight", err.Error())
	case errors.Is(err, ErrInvalidQuantity),
		errors.Is(err, ErrInvalidPrice),
		errors.Is(err, ErrPriceBelowMinimum),
		errors.Is(err, ErrOverrideNotAllowed),
		errors.Is(err, ErrInvalidPayment):
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", err.Error())
	default:
		httpx.RespondError(w, err)
	}
}

// ProductSource resolves products into cart snapshots.
type ProductSource interface {
	SnapshotByID(ctx context.Context, id int64) (Product, error)
	SnapshotByBarcode(ctx context.Context, barcode string) (Product, error)
}

// Handler exposes terminal-scoped cart and checkout operations. Each
// terminal owns one cart; the registry creates it on first touch.
type Handler struct {
	logger   *slog.Logger
	registry *Registry
	checkout *Checkout
	products ProductSource
	symbol   string
	validate *validator.Validate
}

// NewHandler constructs the point-of-sale handler. symbol is the
// currency symbol used in formatted totals.
func NewHandler(logger *slog.Logger, registry *Registry, checkout *Checkout, products ProductSource, symbol string) *Handler {
	return &Handler{
		logger:   logger,
		registry: registry,
		checkout: checkout,
		products: products,
		symbol:   symbol,
		validate: validator.New(),
	}
}

// MountRoutes attaches cart and checkout routes under a terminal scope.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Route("/{terminal}", func(r chi.Router) {
		r.Get("/cart", h.getCart)
		r.Delete("/cart", h.clearCart)
		r.Post("/cart/items", h.addItem)
		r.Delete("/cart/items/{productID}", h.removeItem)
		r.Put("/cart/items/{productID}/quantity", h.updateQuantity)
		r.Put("/cart/items/{productID}/price", h.updatePrice)
		r.Put("/cart/customer", h.setCustomer)
		r.Put("/cart/payment", h.setPayment)
		r.Post("/checkout/validate", h.validateCheckout)
		r.Post("/checkout", h.submitCheckout)
	})
}

type addItemRequest struct {
	ProductID *int64   `json:"product_id,omitempty" validate:"omitempty,gt=0"`
	Barcode   *string  `json:"barcode,omitempty" validate:"omitempty,max=100"`
	Quantity  *float64 `json:"quantity,omitempty" validate:"omitempty,gt=0"`
}

type updateQuantityRequest struct {
	Quantity float64 `json:"quantity" validate:"required"`
}

type updatePriceRequest struct {
	UnitPrice *float64 `json:"unit_price"`
}

type setCustomerRequest struct {
	CustomerID *int64 `json:"customer_id" validate:"omitempty,gt=0"`
}

type setPaymentRequest struct {
	Method       PaymentMethod `json:"method" validate:"required"`
	CashTendered *float64      `json:"cash_tendered,omitempty" validate:"omitempty,gte=0"`
}

type checkoutRequest struct {
	CashierID int64 `json:"cashier_id" validate:"required,gt=0"`
}

type cartLineView struct {
	ProductID     int64    `json:"product_id"`
	Name          string   `json:"name"`
	UnitType      string   `json:"unit_type"`
	PricingModel  string   `json:"pricing_model"`
	Quantity      float64  `json:"quantity"`
	QuantityLabel string   `json:"quantity_label"`
	UnitPrice     float64  `json:"unit_price"`
	PriceOverride *float64 `json:"price_override,omitempty"`
	LineTotal     float64  `json:"line_total"`
}

type cartView struct {
	Terminal       string         `json:"terminal"`
	Items          []cartLineView `json:"items"`
	CustomerID     *int64         `json:"customer_id,omitempty"`
	PaymentMethod  PaymentMethod  `json:"payment_method"`
	CashTendered   float64        `json:"cash_tendered"`
	Total          float64        `json:"total"`
	TotalFormatted string         `json:"total_formatted"`
	CheckoutState  CheckoutState  `json:"checkout_state"`
}

func (h *Handler) getCart(w http.ResponseWriter, r *http.Request) {
	cart := h.registry.Cart(chi.URLParam(r, "terminal"))
	httpx.JSON(w, http.StatusOK, h.view(chi.URLParam(r, "terminal"), cart))
}

func (h *Handler) clearCart(w http.ResponseWriter, r *http.Request) {
	terminal := chi.URLParam(r, "terminal")
	cart := h.registry.Cart(terminal)
	cart.Clear()
	httpx.JSON(w, http.StatusOK, h.view(terminal, cart))
}

func (h *Handler) addItem(w http.ResponseWriter, r *http.Request) {
	terminal := chi.URLParam(r, "terminal")

	var req addItemRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", "invalid request body")
		return
	}
	if err := h.validate.Struct(req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", err.Error())
		return
	}
	if req.ProductID == nil && req.Barcode == nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", "product_id or barcode is required")
		return
	}

	var (
		product Product
		err     error
	)
	if req.ProductID != nil {
		product, err = h.products.SnapshotByID(r.Context(), *req.ProductID)
	} else {
		product, err = h.products.SnapshotByBarcode(r.Context(), *req.Barcode)
	}
	if err != nil {
		respondError(w, err)
		return
	}

	cart := h.registry.Cart(terminal)
	if err := cart.AddItem(product, req.Quantity); err != nil {
		respondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, h.view(terminal, cart))
}

func (h *Handler) removeItem(w http.ResponseWriter, r *http.Request) {
	terminal := chi.URLParam(r, "terminal")
	productID, err := strconv.ParseInt(chi.URLParam(r, "productID"), 10, 64)
	if err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", "invalid product id")
		return
	}
	cart := h.registry.Cart(terminal)
	cart.RemoveItem(productID)
	httpx.JSON(w, http.StatusOK, h.view(terminal, cart))
}

func (h *Handler) updateQuantity(w http.ResponseWriter, r *http.Request) {
	terminal := chi.URLParam(r, "terminal")
	productID, err := strconv.ParseInt(chi.URLParam(r, "productID"), 10, 64)
	if err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", "invalid product id")
		return
	}
	var req updateQuantityRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", "invalid request body")
		return
	}

	cart := h.registry.Cart(terminal)
	if err := cart.UpdateQuantity(productID, req.Quantity); err != nil {
		respondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, h.view(terminal, cart))
}

func (h *Handler) updatePrice(w http.ResponseWriter, r *http.Request) {
	terminal := chi.URLParam(r, "terminal")
	productID, err := strconv.ParseInt(chi.URLParam(r, "productID"), 10, 64)
	if err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", "invalid product id")
		return
	}
	var req updatePriceRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", "invalid request body")
		return
	}

	cart := h.registry.Cart(terminal)
	if err := cart.UpdateUnitPriceOverride(productID, req.UnitPrice); err != nil {
		respondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, h.view(terminal, cart))
}

func (h *Handler) setCustomer(w http.ResponseWriter, r *http.Request) {
	terminal := chi.URLParam(r, "terminal")

	var req setCustomerRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", "invalid request body")
		return
	}
	if err := h.validate.Struct(req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", err.Error())
		return
	}

	cart := h.registry.Cart(terminal)
	cart.SetCustomer(req.CustomerID)
	httpx.JSON(w, http.StatusOK, h.view(terminal, cart))
}

func (h *Handler) setPayment(w http.ResponseWriter, r *http.Request) {
	terminal := chi.URLParam(r, "terminal")

	var req setPaymentRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", "invalid request body")
		return
	}
	if err := h.validate.Struct(req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", err.Error())
		return
	}

	cart := h.registry.Cart(terminal)
	if err := cart.SetPaymentMethod(req.Method); err != nil {
		respondError(w, err)
		return
	}
	if req.CashTendered != nil {
		if err := cart.SetCashTendered(*req.CashTendered); err != nil {
			respondError(w, err)
			return
		}
	}
	httpx.JSON(w, http.StatusOK, h.view(terminal, cart))
}

func (h *Handler) validateCheckout(w http.ResponseWriter, r *http.Request) {
	terminal := chi.URLParam(r, "terminal")

	var req checkoutRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", "invalid request body")
		return
	}
	if err := h.validate.Struct(req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", err.Error())
		return
	}

	cart := h.registry.Cart(terminal)
	_, precond, err := h.checkout.Validate(r.Context(), cart, req.CashierID, terminal)
	if err != nil {
		h.logger.Error("checkout validation", slog.String("terminal", terminal), slog.Any("error", err))
		respondError(w, err)
		return
	}
	if precond != nil {
		respondError(w, precond)
		return
	}
	httpx.JSON(w, http.StatusOK, map[string]any{"ok": true})
}

func (h *Handler) submitCheckout(w http.ResponseWriter, r *http.Request) {
	terminal := chi.URLParam(r, "terminal")

	var req checkoutRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", "invalid request body")
		return
	}
	if err := h.validate.Struct(req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", err.Error())
		return
	}

	cart := h.registry.Cart(terminal)
	receipt, err := h.checkout.Submit(r.Context(), cart, req.CashierID, terminal)
	if err != nil {
		respondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusCreated, receipt)
}

func (h *Handler) view(terminal string, cart *Cart) cartView {
	items := cart.Items()

	view := cartView{
		Terminal:      terminal,
		Items:         make([]cartLineView, 0, len(items)),
		CustomerID:    cart.CustomerID(),
		PaymentMethod: cart.PaymentMethod(),
		CashTendered:  cart.CashTendered(),
		Total:         cart.Total(),
		CheckoutState: h.checkout.State(cart),
	}
	view.TotalFormatted = money.FormatCurrency(h.symbol, view.Total)

	for _, line := range items {
		resolved := ResolveLinePrice(line)
		view.Items = append(view.Items, cartLineView{
			ProductID:     line.Product.ID,
			Name:          line.Product.Name,
			UnitType:      string(line.Product.UnitType),
			PricingModel:  string(line.Product.PricingModel),
			Quantity:      line.Quantity,
			QuantityLabel: money.FormatQuantity(line.Product.UnitType, line.Quantity),
			UnitPrice:     resolved.UnitPrice,
			PriceOverride: line.PriceOverride,
			LineTotal:     resolved.LineTotal,
		})
	}
	return view
}
