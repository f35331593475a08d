package usecase

import (
	"context"
	"net/http"
	"testing"

	"github.com/Smart3990/Kiyumart-sub000/internal/domain/model"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCart_AddMergesAndSnapshotsPrice(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	f.addToCart(t, f.buyer.ID, f.product.ID, 1)
	cart, err := f.carts.AddToCart(ctx, f.buyer.ID, AddCartInput{ProductID: f.product.ID, Quantity: 2})
	require.NoError(t, err)
	require.Len(t, cart.Items, 1)
	assert.Equal(t, int64(3), cart.Items[0].Quantity)
	assert.Equal(t, f.seller.ID, cart.Items[0].SellerID)
	assert.Equal(t, "150.00", cart.Total)

	// 価格が変わってもカートは追加時点の価格
	p := f.product
	p.Price = decimal.RequireFromString("70.00")
	f.store.SeedProduct(p)

	cart, err = f.carts.GetCart(ctx, f.buyer.ID)
	require.NoError(t, err)
	assert.Equal(t, "50.00", cart.Items[0].Price)
}

func TestCart_StockAndProductChecks(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	hidden := f.store.SeedProduct(model.Product{SellerID: f.seller.ID, Name: "draft", Price: decimal.RequireFromString("1"), Stock: 5})

	_, err := f.carts.AddToCart(ctx, f.buyer.ID, AddCartInput{ProductID: f.product.ID, Quantity: 11})
	requireHTTPStatus(t, err, http.StatusBadRequest)

	_, err = f.carts.AddToCart(ctx, f.buyer.ID, AddCartInput{ProductID: hidden.ID, Quantity: 1})
	requireHTTPStatus(t, err, http.StatusBadRequest)

	_, err = f.carts.AddToCart(ctx, f.buyer.ID, AddCartInput{ProductID: f.product.ID, Quantity: 0})
	requireHTTPStatus(t, err, http.StatusBadRequest)
}

func TestCart_UpdateAndDeleteOwnItemsOnly(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	f.addToCart(t, f.buyer.ID, f.product.ID, 1)
	cart, err := f.carts.GetCart(ctx, f.buyer.ID)
	require.NoError(t, err)
	itemID := cart.Items[0].ID

	cart, err = f.carts.UpdateCartItem(ctx, f.buyer.ID, itemID, UpdateCartItemInput{Quantity: 4})
	require.NoError(t, err)
	assert.Equal(t, int64(4), cart.Items[0].Quantity)

	_, err = f.carts.UpdateCartItem(ctx, f.buyer.ID, itemID, UpdateCartItemInput{Quantity: 40})
	requireHTTPStatus(t, err, http.StatusBadRequest)

	// 他人の明細は存在しない扱い
	f.addToCart(t, f.other.ID, f.product.ID, 1)
	_, err = f.carts.UpdateCartItem(ctx, f.other.ID, itemID, UpdateCartItemInput{Quantity: 1})
	requireHTTPStatus(t, err, http.StatusNotFound)
	_, err = f.carts.DeleteCartItem(ctx, f.other.ID, itemID)
	requireHTTPStatus(t, err, http.StatusNotFound)

	cart, err = f.carts.DeleteCartItem(ctx, f.buyer.ID, itemID)
	require.NoError(t, err)
	assert.Empty(t, cart.Items)
	assert.Equal(t, "0.00", cart.Total)
}
