package cart

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestItem(productID int64, variantID string, qty int, priceMinor int64) LineItem {
	return LineItem{
		ProductID:      productID,
		VariantID:      variantID,
		Quantity:       qty,
		UnitPriceMinor: priceMinor,
		Name:           "Tee",
		Image:          "/t.jpg",
		Size:           "M",
	}
}

func requireTotals(t *testing.T, s State, count int, subtotal int64) {
	t.Helper()
	require.Equal(t, count, s.TotalItems)
	require.Equal(t, subtotal, s.SubtotalMinor)
}

func TestReduce_AddItemAppends(t *testing.T) {
	s := Reduce(Empty(), AddItem{Item: newTestItem(1, "tshirt-m", 1, 2500)})

	require.Len(t, s.Items, 1)
	requireTotals(t, s, 1, 2500)
}

func TestReduce_AddItemMergesSameKey(t *testing.T) {
	s := Reduce(Empty(), AddItem{Item: newTestItem(1, "tshirt-m", 1, 2500)})
	later := newTestItem(1, "tshirt-m", 2, 9999)
	later.Name = "Renamed"
	later.Image = "/new.jpg"
	s = Reduce(s, AddItem{Item: later})

	require.Len(t, s.Items, 1)
	line := s.Items[0]
	assert.Equal(t, 3, line.Quantity)
	// First add's snapshot wins on merge.
	assert.Equal(t, int64(2500), line.UnitPriceMinor)
	assert.Equal(t, "Tee", line.Name)
	assert.Equal(t, "/t.jpg", line.Image)
	requireTotals(t, s, 3, 7500)
}

func TestReduce_AddItemDifferentVariantsStaySeparate(t *testing.T) {
	s := Reduce(Empty(), AddItem{Item: newTestItem(1, "tshirt-m", 1, 2500)})
	s = Reduce(s, AddItem{Item: newTestItem(1, "tshirt-l", 1, 2500)})

	require.Len(t, s.Items, 2)
	requireTotals(t, s, 2, 5000)
}

func TestReduce_AddItemNonPositiveQuantityIsNoop(t *testing.T) {
	s := Reduce(Empty(), AddItem{Item: newTestItem(1, "tshirt-m", 0, 2500)})
	assert.Empty(t, s.Items)

	s = Reduce(s, AddItem{Item: newTestItem(1, "tshirt-m", -3, 2500)})
	assert.Empty(t, s.Items)
	requireTotals(t, s, 0, 0)
}

func TestReduce_RemoveItemIdempotent(t *testing.T) {
	s := Reduce(Empty(), AddItem{Item: newTestItem(1, "tshirt-m", 2, 2500)})

	once := Reduce(s, RemoveItem{ProductID: 1, VariantID: "tshirt-m"})
	twice := Reduce(once, RemoveItem{ProductID: 1, VariantID: "tshirt-m"})

	assert.Empty(t, once.Items)
	assert.Equal(t, once, twice)
}

func TestReduce_RemoveUnknownPairIsNoop(t *testing.T) {
	s := Reduce(Empty(), AddItem{Item: newTestItem(1, "tshirt-m", 1, 2500)})
	s2 := Reduce(s, RemoveItem{ProductID: 99, VariantID: "nope"})

	assert.Equal(t, s, s2)
}

func TestReduce_UpdateQuantitySetsAbsolute(t *testing.T) {
	s := Reduce(Empty(), AddItem{Item: newTestItem(1, "tshirt-m", 5, 2500)})
	s = Reduce(s, UpdateQuantity{ProductID: 1, VariantID: "tshirt-m", Quantity: 2})

	line, ok := s.Line(1, "tshirt-m")
	require.True(t, ok)
	assert.Equal(t, 2, line.Quantity)
	requireTotals(t, s, 2, 5000)
}

func TestReduce_UpdateQuantityFloor(t *testing.T) {
	for _, qty := range []int{0, -1, -100} {
		s := Reduce(Empty(), AddItem{Item: newTestItem(1, "tshirt-m", 3, 2500)})
		s = Reduce(s, UpdateQuantity{ProductID: 1, VariantID: "tshirt-m", Quantity: qty})

		_, ok := s.Line(1, "tshirt-m")
		assert.False(t, ok, "quantity %d must remove the line", qty)
		requireTotals(t, s, 0, 0)
	}
}

func TestReduce_UpdateQuantityUnknownPairIsNoop(t *testing.T) {
	s := Reduce(Empty(), AddItem{Item: newTestItem(1, "tshirt-m", 1, 2500)})
	s2 := Reduce(s, UpdateQuantity{ProductID: 99, VariantID: "nope", Quantity: 4})

	assert.Equal(t, s, s2)
}

func TestReduce_OpenCloseToggle(t *testing.T) {
	s := Empty()

	s = Reduce(s, ToggleOpen{})
	assert.True(t, s.IsOpen)
	s = Reduce(s, ToggleOpen{})
	assert.False(t, s.IsOpen)

	s = Reduce(s, Open{})
	assert.True(t, s.IsOpen)
	s = Reduce(s, Open{})
	assert.True(t, s.IsOpen)

	s = Reduce(s, Close{})
	assert.False(t, s.IsOpen)
}

func TestReduce_VisibilityDoesNotTouchItems(t *testing.T) {
	s := Reduce(Empty(), AddItem{Item: newTestItem(1, "tshirt-m", 2, 2500)})
	s = Reduce(s, ToggleOpen{})

	require.Len(t, s.Items, 1)
	requireTotals(t, s, 2, 5000)
}

func TestReduce_Clear(t *testing.T) {
	s := Reduce(Empty(), AddItem{Item: newTestItem(1, "tshirt-m", 2, 2500)})
	s = Reduce(s, AddItem{Item: newTestItem(2, "mug", 1, 1500)})
	s = Reduce(s, Clear{})

	assert.Empty(t, s.Items)
	requireTotals(t, s, 0, 0)
}

func TestReduce_LoadItemsReplacesWholesale(t *testing.T) {
	s := Reduce(Empty(), AddItem{Item: newTestItem(1, "tshirt-m", 2, 2500)})
	s = Reduce(s, LoadItems{Items: []LineItem{newTestItem(7, "poster", 4, 1200)}})

	require.Len(t, s.Items, 1)
	assert.Equal(t, int64(7), s.Items[0].ProductID)
	requireTotals(t, s, 4, 4800)
}

func TestReduce_DoesNotMutateInput(t *testing.T) {
	s := Reduce(Empty(), AddItem{Item: newTestItem(1, "tshirt-m", 1, 2500)})
	before := s.Items[0].Quantity

	_ = Reduce(s, AddItem{Item: newTestItem(1, "tshirt-m", 5, 2500)})
	_ = Reduce(s, UpdateQuantity{ProductID: 1, VariantID: "tshirt-m", Quantity: 9})

	assert.Equal(t, before, s.Items[0].Quantity)
}

// The concrete end-to-end scenario from the storefront's acceptance list.
func TestReduce_Scenario(t *testing.T) {
	s := Reduce(Empty(), AddItem{Item: newTestItem(1, "tshirt-m", 1, 2500)})
	require.Len(t, s.Items, 1)
	requireTotals(t, s, 1, 2500)

	s = Reduce(s, AddItem{Item: newTestItem(1, "tshirt-m", 2, 2500)})
	require.Len(t, s.Items, 1)
	assert.Equal(t, 3, s.Items[0].Quantity)
	requireTotals(t, s, 3, 7500)

	s = Reduce(s, UpdateQuantity{ProductID: 1, VariantID: "tshirt-m", Quantity: 0})
	assert.Empty(t, s.Items)
	requireTotals(t, s, 0, 0)
}
