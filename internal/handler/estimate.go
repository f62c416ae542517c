package handler

import (
	"io"
	"net/http"

	"github.com/go-faster/errors"
	"github.com/go-faster/jx"

	"github.com/keysforall/cart-service/internal/money"
	"github.com/keysforall/cart-service/internal/shipping"
)

type destinationRequest struct {
	Country    string
	PostalCode string
}

func decodeDestination(body []byte) (destinationRequest, error) {
	var req destinationRequest
	d := jx.DecodeBytes(body)
	if err := d.Obj(func(d *jx.Decoder, key string) error {
		var err error
		switch key {
		case "country":
			req.Country, err = d.Str()
		case "postalCode":
			req.PostalCode, err = d.Str()
		default:
			return d.Skip()
		}
		return err
	}); err != nil {
		return req, errors.Wrap(err, "decode destination")
	}
	return req, nil
}

// estimate starts an advisory shipping quote for the session's current
// items and responds with the tracker's latest visible result. A request
// superseded while waiting reports the newer request's outcome: the
// display only ever reflects the newest destination.
func (h *Handler) estimate(w http.ResponseWriter, r *http.Request) {
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
	st := store.State()

	items := make([]shipping.Item, len(st.Items))
	for i, it := range st.Items {
		items[i] = shipping.Item{ProductID: it.ProductID, VariantID: it.VariantID, Quantity: it.Quantity}
	}

	tracker := h.tracker(session)
	done := tracker.Request(r.Context(), items, shipping.Destination{
		Country:    req.Country,
		PostalCode: req.PostalCode,
	})

	select {
	case <-done:
	case <-r.Context().Done():
	}

	res := tracker.Latest()
	loc := locale(r)

	var e jx.Encoder
	e.ObjStart()
	e.FieldStart("country")
	e.Str(res.Destination.Country)
	e.FieldStart("postalCode")
	e.Str(res.Destination.PostalCode)
	e.FieldStart("shipping")
	if res.Minor == nil {
		e.Null()
	} else {
		e.Int64(*res.Minor)
	}
	e.FieldStart("shippingFormatted")
	e.Str(money.FormatShipping(res.Minor, loc))
	if res.Err != nil {
		e.FieldStart("error")
		e.Str("shipping estimate unavailable")
	}
	e.ObjEnd()
	writeJSON(w, http.StatusOK, e.Bytes())
}
