// Package handler exposes the cart, estimate and checkout API over HTTP.
// Handlers stay thin: decode, delegate to the domain, shape the response.
package handler

import (
	"context"
	"net/http"
	"strconv"
	"sync"
	"time"

	"github.com/go-faster/jx"
	"github.com/google/uuid"

	"github.com/keysforall/cart-service/internal/cart"
	"github.com/keysforall/cart-service/internal/catalog"
	"github.com/keysforall/cart-service/internal/checkout"
	"github.com/keysforall/cart-service/internal/shipping"
)

// sessionCookie carries the opaque cart session ID. Carts are client-owned
// until checkout; the cookie only scopes which persisted cart is theirs.
const sessionCookie = "cart_session"

const defaultLocale = "en-US"

// Handler wires the HTTP surface to the cart manager and domain services.
type Handler struct {
	carts    *cart.Manager
	catalog  catalog.Repository
	filter   *catalog.Filter
	est      shipping.Estimator
	checkout *checkout.Service

	mu       sync.Mutex
	trackers map[string]*trackerEntry
}

// trackerEntry is one session's estimate tracker plus its last activity
// time for eviction.
type trackerEntry struct {
	tracker  *shipping.Tracker
	lastSeen time.Time
}

// New constructs a Handler. filter may be nil when no catalog pre-filter is
// available; lookups then always hit the repository.
func New(
	carts *cart.Manager,
	cat catalog.Repository,
	filter *catalog.Filter,
	est shipping.Estimator,
	co *checkout.Service,
) *Handler {
	return &Handler{
		carts:    carts,
		catalog:  cat,
		filter:   filter,
		est:      est,
		checkout: co,
		trackers: make(map[string]*trackerEntry),
	}
}

// Routes returns the API mux.
func (h *Handler) Routes() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /api/cart", h.getCart)
	mux.HandleFunc("POST /api/cart/items", h.addItem)
	mux.HandleFunc("PATCH /api/cart/items/{productID}/{variantID}", h.updateQuantity)
	mux.HandleFunc("DELETE /api/cart/items/{productID}/{variantID}", h.removeItem)
	mux.HandleFunc("DELETE /api/cart", h.clearCart)
	mux.HandleFunc("POST /api/cart/open", h.openCart)
	mux.HandleFunc("POST /api/cart/close", h.closeCart)
	mux.HandleFunc("POST /api/cart/toggle", h.toggleCart)
	mux.HandleFunc("POST /api/cart/estimate", h.estimate)
	mux.HandleFunc("POST /api/checkout", h.doCheckout)
	return mux
}

// session returns the request's cart session ID, minting and setting a new
// one when absent.
func (h *Handler) session(w http.ResponseWriter, r *http.Request) string {
	if c, err := r.Cookie(sessionCookie); err == nil && c.Value != "" {
		return c.Value
	}
	id := uuid.New().String()
	http.SetCookie(w, &http.Cookie{
		Name:     sessionCookie,
		Value:    id,
		Path:     "/",
		MaxAge:   60 * 60 * 24 * 30,
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
	})
	return id
}

// tracker returns the session's estimate tracker, creating it on first use.
func (h *Handler) tracker(sessionID string) *shipping.Tracker {
	h.mu.Lock()
	defer h.mu.Unlock()
	e, ok := h.trackers[sessionID]
	if !ok {
		e = &trackerEntry{tracker: shipping.NewTracker(h.est)}
		h.trackers[sessionID] = e
	}
	e.lastSeen = time.Now()
	return e.tracker
}

// cleanup evicts trackers idle for longer than ttl. An evicted session's
// next estimate starts from the unknown state again, which is the same as a
// fresh visit.
func (h *Handler) cleanup(now time.Time, ttl time.Duration) {
	h.mu.Lock()
	defer h.mu.Unlock()

	for id, e := range h.trackers {
		if now.Sub(e.lastSeen) >= ttl {
			delete(h.trackers, id)
		}
	}
}

// StartCleanup launches a background goroutine that evicts idle session
// trackers. It stops when ctx is cancelled.
func (h *Handler) StartCleanup(ctx context.Context, ttl time.Duration) {
	go func() {
		ticker := time.NewTicker(ttl)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case now := <-ticker.C:
				h.cleanup(now, ttl)
			}
		}
	}()
}

func locale(r *http.Request) string {
	if l := r.URL.Query().Get("locale"); l != "" {
		return l
	}
	return defaultLocale
}

func pathKey(r *http.Request) (int64, string, bool) {
	productID, err := strconv.ParseInt(r.PathValue("productID"), 10, 64)
	if err != nil {
		return 0, "", false
	}
	variantID := r.PathValue("variantID")
	if variantID == "" {
		return 0, "", false
	}
	return productID, variantID, true
}

func writeJSON(w http.ResponseWriter, status int, body []byte) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_, _ = w.Write(body)
}

func writeError(w http.ResponseWriter, code int, message string) {
	var e jx.Encoder
	e.ObjStart()
	e.FieldStart("code")
	e.Int(code)
	e.FieldStart("message")
	e.Str(message)
	e.ObjEnd()
	writeJSON(w, code, e.Bytes())
}
