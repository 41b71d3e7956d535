package pos

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sari-pos/sari-pos/internal/platform/httpx"
)

func newTestHandler(shifts ShiftView) (*Handler, *Registry) {
	registry := NewRegistry()
	checkout := NewCheckout(testLogger(), confirmedSubmitter(), shifts, &fakeHooks{})
	h := NewHandler(testLogger(), registry, checkout, nil, "₱")
	return h, registry
}

func serveCheckoutRequest(t *testing.T, h *Handler, method, path, body string) *httptest.ResponseRecorder {
	t.Helper()
	r := chi.NewRouter()
	h.MountRoutes(r)
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)
	return rec
}

func TestValidateCheckoutReportsBlockedPreconditions(t *testing.T) {
	h, _ := newTestHandler(&fakeShiftView{open: false})

	rec := serveCheckoutRequest(t, h, http.MethodPost, "/till-1/checkout/validate", `{"cashier_id": 7}`)
	require.Equal(t, http.StatusConflict, rec.Code)

	var problem httpx.ProblemDetail
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &problem))
	assert.Equal(t, http.StatusConflict, problem.Status)
	assert.Contains(t, problem.Violations, string(ViolationEmptyCart))
	assert.Contains(t, problem.Violations, string(ViolationNoActiveShift))
}

func TestValidateCheckoutPassesWithOpenShiftAndItems(t *testing.T) {
	h, registry := newTestHandler(openShift(12))

	cart := registry.Cart("till-1")
	require.NoError(t, cart.AddItem(pieceProduct(3, 25.50, 10), floatPtr(2)))
	require.NoError(t, cart.SetPaymentMethod(PaymentCash))
	require.NoError(t, cart.SetCashTendered(100))

	rec := serveCheckoutRequest(t, h, http.MethodPost, "/till-1/checkout/validate", `{"cashier_id": 7}`)
	require.Equal(t, http.StatusOK, rec.Code)
}
