//go:build integration

package routes_test

import (
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/shashiranjanraj/mithai/pkg/auth"
	"github.com/shashiranjanraj/mithai/pkg/testkit"
)

func TestCachedCatalogSeesStockChangesImmediately(t *testing.T) {
	app := testkit.New(t, testkit.WithRedis(testkit.Redis(t)))
	buyer := app.TokenFor(t, app.CreateUser(t, "ravi", auth.RoleCustomer))
	admin := app.TokenFor(t, app.CreateUser(t, "admin", auth.RoleAdmin))
	sweet := app.CreateSweet(t, "Ladoo", "25.00", 5)

	quantity := func() int64 {
		t.Helper()
		res := app.Do(t, http.MethodGet, "/api/sweets", nil, buyer)
		res.AssertStatus(t, http.StatusOK)
		require.EqualValues(t, 1, res.JSON("data.#").Int())
		return res.JSON("data.0.quantity").Int()
	}
	search := func() int64 {
		t.Helper()
		res := app.Do(t, http.MethodGet, "/api/sweets/search?name=Ladoo", nil, buyer)
		res.AssertStatus(t, http.StatusOK)
		require.EqualValues(t, 1, res.JSON("data.#").Int())
		return res.JSON("data.0.quantity").Int()
	}

	assert.EqualValues(t, 5, quantity())
	assert.EqualValues(t, 5, search())

	res := app.Do(t, http.MethodPost, "/api/purchases", map[string]any{"sweet_id": sweet.ID, "quantity": 2}, buyer)
	res.AssertStatus(t, http.StatusCreated)
	assert.EqualValues(t, 3, quantity(), "list reflects the purchase")
	assert.EqualValues(t, 3, search(), "search reflects the purchase")

	res = app.Do(t, http.MethodPost, "/api/admin/restock", map[string]any{"sweet_id": sweet.ID, "quantity_added": 10}, admin)
	res.AssertStatus(t, http.StatusCreated)
	assert.EqualValues(t, 13, quantity(), "list reflects the restock")
}
