package models

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func intPtr(n int) *int { return &n }

func woodProduct() *Product {
	return &Product{
		Name:  "Table basse",
		Price: decimal.RequireFromString("120.00"),
		Stock: 5,
		Variants: []ProductVariant{{
			Name: "Essence de bois",
			Options: []VariantOption{
				{Value: "Chêne", PriceDelta: decimal.RequireFromString("30.00"), Stock: intPtr(2)},
				{Value: "Pin", PriceDelta: decimal.Zero},
			},
		}},
	}
}

func TestResolveWithoutSelectionUsesProduct(t *testing.T) {
	p := woodProduct()

	avail, err := p.Resolve(nil)
	require.NoError(t, err)
	assert.True(t, avail.UnitPrice.Equal(decimal.RequireFromString("120")))
	assert.Equal(t, 5, avail.Stock)
	assert.Nil(t, avail.Option)
}

func TestResolveOptionStockOverridesProductStock(t *testing.T) {
	p := woodProduct()

	avail, err := p.Resolve(&SelectedVariant{Name: "Essence de bois", OptionValue: "Chêne"})
	require.NoError(t, err)
	assert.True(t, avail.UnitPrice.Equal(decimal.RequireFromString("150")))
	assert.Equal(t, 2, avail.Stock)
	require.NotNil(t, avail.Option)
	assert.Equal(t, "Chêne", avail.Option.Value)
}

func TestResolveOptionWithoutStockFallsBackToProduct(t *testing.T) {
	p := woodProduct()

	avail, err := p.Resolve(&SelectedVariant{Name: "Essence de bois", OptionValue: "Pin"})
	require.NoError(t, err)
	assert.Equal(t, 5, avail.Stock)
	assert.Nil(t, avail.Option)
}

func TestResolveUnknownSelection(t *testing.T) {
	p := woodProduct()

	_, err := p.Resolve(&SelectedVariant{Name: "Couleur", OptionValue: "Rouge"})
	assert.ErrorIs(t, err, ErrVariantNotFound)

	_, err = p.Resolve(&SelectedVariant{Name: "Essence de bois", OptionValue: "Noyer"})
	assert.ErrorIs(t, err, ErrOptionNotFound)

	assert.Equal(t, -1, p.EffectiveStock(&SelectedVariant{Name: "Couleur", OptionValue: "Rouge"}))
}

func TestEffectiveStock(t *testing.T) {
	p := woodProduct()
	assert.Equal(t, 5, p.EffectiveStock(nil))
	assert.Equal(t, 2, p.EffectiveStock(&SelectedVariant{Name: "Essence de bois", OptionValue: "Chêne"}))
}

func TestDescribeSelection(t *testing.T) {
	sel := &SelectedVariant{Name: "Essence de bois", OptionValue: "Chêne"}
	assert.Equal(t, "Essence de bois: Chêne", sel.Describe())

	var none *SelectedVariant
	assert.Equal(t, "", none.Describe())
}

func TestPrimaryImage(t *testing.T) {
	p := &Product{Images: []ProductImage{
		{Image: Image{URL: "/uploads/b.jpg"}, Position: 1},
		{Image: Image{URL: "/uploads/a.jpg"}, Position: 0},
	}}
	assert.Equal(t, "/uploads/a.jpg", p.PrimaryImage())
	assert.Equal(t, "", (&Product{}).PrimaryImage())
}

func TestCartLineIdentity(t *testing.T) {
	cart := &Cart{Items: []CartItem{
		{ProductID: "p1", Quantity: 1},
		{ProductID: "p1", Quantity: 2, VariantName: "Essence de bois", VariantValue: "Chêne"},
	}}

	plain := cart.FindItem("p1", nil)
	require.NotNil(t, plain)
	assert.Equal(t, 1, plain.Quantity)

	oak := cart.FindItem("p1", &SelectedVariant{Name: "Essence de bois", OptionValue: "Chêne"})
	require.NotNil(t, oak)
	assert.Equal(t, 2, oak.Quantity)

	assert.Nil(t, cart.FindItem("p1", &SelectedVariant{Name: "Essence de bois", OptionValue: "Pin"}))
	assert.Nil(t, cart.FindItem("p2", nil))
}
