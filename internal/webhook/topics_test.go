package webhook

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNormalizeTopic(t *testing.T) {
	cases := map[string]string{
		"orders/paid":             "orders_paid",
		"app/uninstalled":         "app_uninstalled",
		"customers/data_request":  "customers_data_request",
		"SHOP/UPDATE":             "shop_update",
		"  orders/paid  ":         "orders_paid",
		"orders//paid":            "orders_paid",
		"orders.paid":             "orders_paid",
		"carts/create-duplicated": "carts_create_duplicated",
		"":                        "",
	}
	for in, want := range cases {
		assert.Equal(t, want, NormalizeTopic(in), "input %q", in)
	}
}
