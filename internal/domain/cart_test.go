package domain

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func twoLineCart() *Cart {
	return &Cart{
		Items: []CartItem{
			{ID: "item-1", ProductID: "prod-1", VariantID: "var-1", Quantity: 2, UnitPrice: 2500, LineTotal: 5000},
			{ID: "item-2", ProductID: "prod-2", VariantID: "var-2", Quantity: 1, UnitPrice: 1999, LineTotal: 1999},
		},
		Summary: CartSummary{Subtotal: 6999, ItemCount: 3},
	}
}

func TestCartRollups(t *testing.T) {
	c := twoLineCart()

	assert.Equal(t, int64(6999), c.Subtotal())
	assert.Equal(t, 3, c.ItemCount())
	assert.Equal(t, c.Summary.Subtotal, c.Subtotal())
}

func TestFindItemIndex(t *testing.T) {
	c := twoLineCart()

	assert.Equal(t, 0, c.FindItemIndex("item-1"))
	assert.Equal(t, 1, c.FindItemIndex("item-2"))
	assert.Equal(t, -1, c.FindItemIndex("item-3"))
}

func TestCartCloneIsIndependent(t *testing.T) {
	c := twoLineCart()
	cp := c.Clone()

	cp.Items[0].Quantity = 99
	cp.Items = append(cp.Items, CartItem{ID: "item-3"})
	cp.Summary.Subtotal = 0

	assert.Equal(t, 2, c.Items[0].Quantity)
	assert.Len(t, c.Items, 2)
	assert.Equal(t, int64(6999), c.Summary.Subtotal)
}

func TestCartCloneNil(t *testing.T) {
	var c *Cart
	assert.Nil(t, c.Clone())
}

func TestEmptyCart(t *testing.T) {
	c := EmptyCart()
	require.NotNil(t, c.Items)
	assert.Empty(t, c.Items)
	assert.Zero(t, c.Subtotal())
	assert.Zero(t, c.ItemCount())
}
