package cart

// Action is a cart state transition. Reduce is the only way a State changes.
type Action interface {
	isAction()
}

// AddItem appends a new line, or merges into the existing line with the same
// identity pair by adding quantities. The existing line's price/name/image
// snapshot wins on merge.
type AddItem struct {
	Item LineItem
}

// RemoveItem deletes the line with the given identity pair. Removing an
// absent pair is a no-op.
type RemoveItem struct {
	ProductID int64
	VariantID string
}

// UpdateQuantity sets a line's quantity to an absolute value. Values of zero
// or less remove the line, exactly like RemoveItem.
type UpdateQuantity struct {
	ProductID int64
	VariantID string
	Quantity  int
}

// ToggleOpen flips the slide-over visibility flag.
type ToggleOpen struct{}

// Open sets the slide-over visibility flag.
type Open struct{}

// Close clears the slide-over visibility flag.
type Close struct{}

// Clear empties the cart.
type Clear struct{}

// LoadItems replaces the item list wholesale. Used only at hydration; it
// does not merge with existing lines.
type LoadItems struct {
	Items []LineItem
}

func (AddItem) isAction()        {}
func (RemoveItem) isAction()     {}
func (UpdateQuantity) isAction() {}
func (ToggleOpen) isAction()     {}
func (Open) isAction()           {}
func (Close) isAction()          {}
func (Clear) isAction()          {}
func (LoadItems) isAction()      {}

// Reduce applies one action to the current state and returns the next state.
// It is pure: no I/O, no mutation of the input state's item slice. Invalid
// inputs (non-positive add quantity, unknown identity pairs) degrade to
// no-ops rather than errors.
func Reduce(s State, a Action) State {
	switch a := a.(type) {
	case AddItem:
		if a.Item.Quantity < 1 {
			return s
		}
		items := make([]LineItem, len(s.Items))
		copy(items, s.Items)
		merged := false
		for i := range items {
			if items[i].Key() == a.Item.Key() {
				items[i].Quantity += a.Item.Quantity
				merged = true
				break
			}
		}
		if !merged {
			items = append(items, a.Item)
		}
		s.Items = items

	case RemoveItem:
		s.Items = removeLine(s.Items, Key{ProductID: a.ProductID, VariantID: a.VariantID})

	case UpdateQuantity:
		if a.Quantity <= 0 {
			s.Items = removeLine(s.Items, Key{ProductID: a.ProductID, VariantID: a.VariantID})
			break
		}
		items := make([]LineItem, len(s.Items))
		copy(items, s.Items)
		for i := range items {
			if items[i].ProductID == a.ProductID && items[i].VariantID == a.VariantID {
				items[i].Quantity = a.Quantity
				break
			}
		}
		s.Items = items

	case ToggleOpen:
		s.IsOpen = !s.IsOpen

	case Open:
		s.IsOpen = true

	case Close:
		s.IsOpen = false

	case Clear:
		s.Items = nil

	case LoadItems:
		items := make([]LineItem, len(a.Items))
		copy(items, a.Items)
		s.Items = items
	}

	s.TotalItems, s.SubtotalMinor = projectTotals(s.Items)
	return s
}

// projectTotals derives both aggregate fields from the item list. Every
// action goes through here so the two can never drift from Items.
func projectTotals(items []LineItem) (count int, subtotalMinor int64) {
	for _, it := range items {
		count += it.Quantity
		subtotalMinor += int64(it.Quantity) * it.UnitPriceMinor
	}
	return count, subtotalMinor
}

func removeLine(items []LineItem, key Key) []LineItem {
	out := make([]LineItem, 0, len(items))
	for _, it := range items {
		if it.Key() == key {
			continue
		}
		out = append(out, it)
	}
	if len(out) == 0 {
		return nil
	}
	return out
}
