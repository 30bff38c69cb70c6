package api

import (
	"context"

	"popclips/internal/shop"
)

type ctxKey string

const ctxKeyShop ctxKey = "shop"

func WithShop(ctx context.Context, s *shop.Shop) context.Context {
	return context.WithValue(ctx, ctxKeyShop, s)
}

func ShopFromContext(ctx context.Context) (*shop.Shop, bool) {
	s, ok := ctx.Value(ctxKeyShop).(*shop.Shop)
	return s, ok
}
