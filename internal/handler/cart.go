package handler

import (
	"io"
	"net/http"

	"github.com/go-faster/errors"
	"github.com/go-faster/jx"
	"github.com/go-faster/sdk/zctx"
	"go.uber.org/zap"

	"github.com/keysforall/cart-service/internal/cart"
	"github.com/keysforall/cart-service/internal/catalog"
	"github.com/keysforall/cart-service/internal/money"
	"github.com/keysforall/cart-service/internal/shipping"
)

func (h *Handler) getCart(w http.ResponseWriter, r *http.Request) {
	session := h.session(w, r)
	store := h.carts.Store(r.Context(), session)
	h.writeCart(w, r, session, store.State())
}

type addItemRequest struct {
	ProductID int64
	VariantID string
	Quantity  int
}

func decodeAddItem(body []byte) (addItemRequest, error) {
	req := addItemRequest{Quantity: 1}
	d := jx.DecodeBytes(body)
	if err := d.Obj(func(d *jx.Decoder, key string) error {
		var err error
		switch key {
		case "productId":
			req.ProductID, err = d.Int64()
		case "variantId":
			req.VariantID, err = d.Str()
		case "quantity":
			req.Quantity, err = d.Int()
		default:
			return d.Skip()
		}
		return err
	}); err != nil {
		return req, errors.Wrap(err, "decode add item")
	}
	return req, nil
}

func (h *Handler) addItem(w http.ResponseWriter, r *http.Request) {
	body, err := io.ReadAll(io.LimitReader(r.Body, 1<<16))
	if err != nil {
		writeError(w, http.StatusBadRequest, "unreadable body")
		return
	}
	req, err := decodeAddItem(body)
	if err != nil {
		writeError(w, http.StatusBadRequest, "malformed request")
		return
	}
	if req.VariantID == "" {
		writeError(w, http.StatusBadRequest, "variantId required")
		return
	}
	if req.Quantity < 1 {
		writeError(w, http.StatusUnprocessableEntity, "quantity must be greater than 0")
		return
	}

	// Fast negative check before touching the database.
	if h.filter != nil && !h.filter.MayExist(req.ProductID, req.VariantID) {
		writeError(w, http.StatusUnprocessableEntity, "unknown product variant")
		return
	}

	listing, err := h.catalog.Get(r.Context(), req.ProductID, req.VariantID)
	if err != nil {
		if errors.Is(err, catalog.ErrNotFound) {
			writeError(w, http.StatusUnprocessableEntity, "unknown product variant")
			return
		}
		zctx.From(r.Context()).Error("catalog lookup failed", zap.Error(err))
		writeError(w, http.StatusInternalServerError, "internal error")
		return
	}

	session := h.session(w, r)
	store := h.carts.Store(r.Context(), session)
	// Snapshot price and display data from the catalog at add time; the
	// line keeps this snapshot even if the catalog changes later.
	st := store.AddItem(r.Context(), cart.LineItem{
		ProductID:      listing.ProductID,
		VariantID:      listing.VariantID,
		Quantity:       req.Quantity,
		UnitPriceMinor: listing.PriceMinor(),
		Name:           listing.Name,
		Image:          listing.Image,
		Size:           listing.Size,
		Color:          listing.Color,
	})
	h.writeCartState(w, r, session, st)
}

func (h *Handler) updateQuantity(w http.ResponseWriter, r *http.Request) {
	productID, variantID, ok := pathKey(r)
	if !ok {
		writeError(w, http.StatusBadRequest, "invalid item path")
		return
	}

	body, err := io.ReadAll(io.LimitReader(r.Body, 1<<12))
	if err != nil {
		writeError(w, http.StatusBadRequest, "unreadable body")
		return
	}
	quantity := 0
	d := jx.DecodeBytes(body)
	if err := d.Obj(func(d *jx.Decoder, key string) error {
		if key != "quantity" {
			return d.Skip()
		}
		v, err := d.Int()
		quantity = v
		return err
	}); err != nil {
		writeError(w, http.StatusBadRequest, "malformed request")
		return
	}

	session := h.session(w, r)
	store := h.carts.Store(r.Context(), session)
	st := store.UpdateQuantity(r.Context(), productID, variantID, quantity)
	h.writeCartState(w, r, session, st)
}

func (h *Handler) removeItem(w http.ResponseWriter, r *http.Request) {
	productID, variantID, ok := pathKey(r)
	if !ok {
		writeError(w, http.StatusBadRequest, "invalid item path")
		return
	}

	session := h.session(w, r)
	store := h.carts.Store(r.Context(), session)
	// Removing an unknown pair is a no-op, not an error.
	st := store.RemoveItem(r.Context(), productID, variantID)
	h.writeCartState(w, r, session, st)
}

func (h *Handler) clearCart(w http.ResponseWriter, r *http.Request) {
	session := h.session(w, r)
	store := h.carts.Store(r.Context(), session)
	h.writeCartState(w, r, session, store.ClearCart(r.Context()))
}

func (h *Handler) openCart(w http.ResponseWriter, r *http.Request) {
	session := h.session(w, r)
	store := h.carts.Store(r.Context(), session)
	h.writeCartState(w, r, session, store.OpenCart(r.Context()))
}

func (h *Handler) closeCart(w http.ResponseWriter, r *http.Request) {
	session := h.session(w, r)
	store := h.carts.Store(r.Context(), session)
	h.writeCartState(w, r, session, store.CloseCart(r.Context()))
}

func (h *Handler) toggleCart(w http.ResponseWriter, r *http.Request) {
	session := h.session(w, r)
	store := h.carts.Store(r.Context(), session)
	h.writeCartState(w, r, session, store.ToggleCart(r.Context()))
}

func (h *Handler) writeCart(w http.ResponseWriter, r *http.Request, session string, st cart.State) {
	h.writeCartState(w, r, session, st)
}

// writeCartState shapes the cart view: raw items, derived totals, and the
// session's latest shipping estimate with the unknown/free distinction.
func (h *Handler) writeCartState(w http.ResponseWriter, r *http.Request, session string, st cart.State) {
	loc := locale(r)

	var res shipping.Result
	h.mu.Lock()
	if e, ok := h.trackers[session]; ok {
		res = e.tracker.Latest()
	}
	h.mu.Unlock()

	var e jx.Encoder
	e.ObjStart()
	e.FieldStart("items")
	e.Raw(cart.EncodeItems(st.Items))
	e.FieldStart("isOpen")
	e.Bool(st.IsOpen)
	e.FieldStart("totalItems")
	e.Int(st.TotalItems)
	e.FieldStart("subtotal")
	e.Int64(st.SubtotalMinor)
	e.FieldStart("subtotalFormatted")
	e.Str(money.Format(st.SubtotalMinor, loc))
	e.FieldStart("shipping")
	if res.Minor == nil {
		e.Null()
	} else {
		e.Int64(*res.Minor)
	}
	e.FieldStart("shippingFormatted")
	e.Str(money.FormatShipping(res.Minor, loc))
	e.FieldStart("estimatedTotal")
	e.Int64(money.TotalWithShipping(st.SubtotalMinor, res.Minor))
	e.ObjEnd()
	writeJSON(w, http.StatusOK, e.Bytes())
}
