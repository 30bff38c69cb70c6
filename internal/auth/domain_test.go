package auth

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNormalizeShopDomain(t *testing.T) {
	cases := []struct {
		in   string
		want string
	}{
		{"demo.myshopify.com", "demo.myshopify.com"},
		{"demo", "demo.myshopify.com"},
		{"DEMO.MyShopify.Com", "demo.myshopify.com"},
		{"https://demo.myshopify.com/", "demo.myshopify.com"},
		{"http://demo.myshopify.com", "demo.myshopify.com"},
		{"  demo  ", "demo.myshopify.com"},
		{"", ""},
	}
	for _, c := range cases {
		assert.Equal(t, c.want, NormalizeShopDomain(c.in, "myshopify.com"), "input %q", c.in)
	}
}

func TestValidShopDomain(t *testing.T) {
	assert.True(t, ValidShopDomain("demo.myshopify.com"))
	assert.True(t, ValidShopDomain("demo-store-2.myshopify.com"))
	assert.False(t, ValidShopDomain(""))
	assert.False(t, ValidShopDomain("demo"))
	assert.False(t, ValidShopDomain("-demo.myshopify.com"))
	assert.False(t, ValidShopDomain("demo.example.com"))
	assert.False(t, ValidShopDomain("Demo.myshopify.com"))
}
