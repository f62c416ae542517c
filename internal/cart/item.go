package cart

// Key identifies one cart line: a catalog product plus the purchasable
// variant. At most one line per Key may exist in a cart.
type Key struct {
	ProductID int64
	VariantID string
}

// LineItem is one row in the cart. UnitPriceMinor, Name and Image are
// snapshots of the catalog taken when the item was first added; merging a
// later add for the same Key only accumulates quantity and never refreshes
// the snapshot.
type LineItem struct {
	ProductID      int64
	VariantID      string
	Quantity       int
	UnitPriceMinor int64

	// Display-only snapshot fields, not part of the line's identity.
	Name  string
	Image string
	Size  string
	Color string
}

// Key returns the line's identity pair.
func (it LineItem) Key() Key {
	return Key{ProductID: it.ProductID, VariantID: it.VariantID}
}

// State is the full cart aggregate. TotalItems and SubtotalMinor are pure
// projections of Items, recomputed by Reduce after every action; they are
// never mutated independently.
type State struct {
	Items  []LineItem
	IsOpen bool

	TotalItems    int
	SubtotalMinor int64
}

// Empty returns the initial cart state.
func Empty() State {
	return State{}
}

// Line returns the line for the given identity pair, if present.
func (s State) Line(productID int64, variantID string) (LineItem, bool) {
	for _, it := range s.Items {
		if it.ProductID == productID && it.VariantID == variantID {
			return it, true
		}
	}
	return LineItem{}, false
}
