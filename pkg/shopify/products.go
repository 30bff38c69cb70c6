package shopify

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
)

type ProductImage struct {
	Src string `json:"src"`
}

type ProductVariant struct {
	Price             string `json:"price"`
	InventoryQuantity int64  `json:"inventory_quantity"`
}

type Product struct {
	ID       int64            `json:"id"`
	Title    string           `json:"title"`
	Handle   string           `json:"handle"`
	Image    *ProductImage    `json:"image"`
	Images   []ProductImage   `json:"images"`
	Variants []ProductVariant `json:"variants"`
}

// ImageSrc returns the primary image URL, falling back to the first image.
func (p Product) ImageSrc() string {
	if p.Image != nil && p.Image.Src != "" {
		return p.Image.Src
	}
	if len(p.Images) > 0 {
		return p.Images[0].Src
	}
	return ""
}

// FirstPrice returns the first variant's price, empty when the product has
// no variants.
func (p Product) FirstPrice() string {
	if len(p.Variants) > 0 {
		return p.Variants[0].Price
	}
	return ""
}

type productResponse struct {
	Product Product `json:"product"`
}

type productsResponse struct {
	Products []Product `json:"products"`
}

func (c Client) GetProduct(ctx context.Context, productID string) (*Product, error) {
	var resp productResponse
	path := fmt.Sprintf("/products/%s.json", url.PathEscape(productID))
	if _, err := c.doJSON(ctx, http.MethodGet, path, nil, &resp); err != nil {
		return nil, err
	}
	if resp.Product.ID == 0 {
		return nil, fmt.Errorf("product not found")
	}
	return &resp.Product, nil
}

func (c Client) SearchProducts(ctx context.Context, title string, limit int) ([]Product, error) {
	if limit <= 0 {
		limit = 20
	}
	q := url.Values{}
	if title != "" {
		q.Set("title", title)
	}
	q.Set("limit", strconv.Itoa(limit))

	var resp productsResponse
	if _, err := c.doJSON(ctx, http.MethodGet, "/products.json?"+q.Encode(), nil, &resp); err != nil {
		return nil, err
	}
	return resp.Products, nil
}
