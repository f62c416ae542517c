package handler

import (
	"io"
	"net/http"

	"github.com/go-faster/errors"
	"github.com/go-faster/jx"
	"github.com/go-faster/sdk/zctx"
	"go.uber.org/zap"

	"github.com/keysforall/cart-service/internal/checkout"
	"github.com/keysforall/cart-service/internal/payments"
	"github.com/keysforall/cart-service/internal/shipping"
)

// doCheckout hands the session's current item snapshot to the checkout
// service and returns the payment redirect. The cart is cleared only after
// a successful handoff.
func (h *Handler) doCheckout(w http.ResponseWriter, r *http.Request) {
	body, err := io.ReadAll(io.LimitReader(r.Body, 1<<12))
	if err != nil {
		writeError(w, http.StatusBadRequest, "unreadable body")
		return
	}
	req, err := decodeDestination(body)
	if err != nil {
		writeError(w, http.StatusBadRequest, "malformed request")
		return
	}
	if req.Country == "" || req.PostalCode == "" {
		writeError(w, http.StatusBadRequest, "country and postalCode required")
		return
	}

	session := h.session(w, r)
	store := h.carts.Store(r.Context(), session)

	result, err := h.checkout.Checkout(r.Context(), session, store.State().Items, checkout.Destination{
		Country:    req.Country,
		PostalCode: req.PostalCode,
	})
	if err != nil {
		h.writeCheckoutError(w, r, err)
		return
	}

	store.ClearCart(r.Context())

	var e jx.Encoder
	e.ObjStart()
	e.FieldStart("orderId")
	e.Str(result.OrderID)
	e.FieldStart("url")
	e.Str(result.URL)
	e.ObjEnd()
	writeJSON(w, http.StatusOK, e.Bytes())
}

func (h *Handler) writeCheckoutError(w http.ResponseWriter, r *http.Request, err error) {
	if errors.Is(err, checkout.ErrEmptyCart) {
		writeError(w, http.StatusBadRequest, "cart is empty")
		return
	}

	var uvErr *checkout.UnknownVariantError
	if errors.As(err, &uvErr) {
		writeError(w, http.StatusUnprocessableEntity, uvErr.Error())
		return
	}

	if errors.Is(err, shipping.ErrUnavailable) {
		writeError(w, http.StatusBadGateway, "shipping quote unavailable, try again")
		return
	}
	if errors.Is(err, payments.ErrSessionFailed) {
		writeError(w, http.StatusBadGateway, "payment provider unavailable, try again")
		return
	}

	zctx.From(r.Context()).Error("checkout failed", zap.Error(err))
	writeError(w, http.StatusInternalServerError, "internal error")
}
