package analytics

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"
)

type Repository struct {
	db *pgxpool.Pool
}

func NewRepository(db *pgxpool.Pool) *Repository {
	return &Repository{db: db}
}

// Insert writes one event row inside the caller's transaction so counter
// bumps and the event land together.
func Insert(ctx context.Context, tx pgx.Tx, ev Event) error {
	var metadata *string
	if ev.Metadata != nil {
		b, _ := json.Marshal(ev.Metadata)
		s := string(b)
		metadata = &s
	}
	var revenue *string
	if ev.Revenue != nil {
		s := ev.Revenue.StringFixed(2)
		revenue = &s
	}
	currency := ev.Currency
	if currency == "" {
		currency = "USD"
	}

	const q = `
INSERT INTO analytics
  (shop_id, clip_id, hotspot_id, event_type, session_id, visitor_id,
   shopify_product_id, revenue, currency, device_type, browser, country, metadata)
VALUES ($1, $2, $3, $4, NULLIF($5,''), NULLIF($6,''), NULLIF($7,''), $8, $9,
        NULLIF($10,''), NULLIF($11,''), NULLIF($12,''), CAST($13 AS jsonb))
`
	_, err := tx.Exec(ctx, q,
		ev.ShopID, ev.ClipID, ev.HotspotID, ev.EventType, ev.SessionID, ev.VisitorID,
		ev.ProductID, revenue, currency, ev.DeviceType, ev.Browser, ev.Country, metadata,
	)
	return err
}

type Overview struct {
	Views         int64           `json:"total_views"`
	HotspotClicks int64           `json:"hotspot_clicks"`
	CTR           float64         `json:"ctr"`
	AddToCarts    int64           `json:"add_to_cart"`
	Revenue       decimal.Decimal `json:"revenue"`
	ClipsCount    int64           `json:"clips_count"`
}

func (r *Repository) Overview(ctx context.Context, shopID string, days int) (*Overview, error) {
	const q = `
SELECT
  COUNT(*) FILTER (WHERE event_type = 'clip_view'),
  COUNT(*) FILTER (WHERE event_type = 'hotspot_click'),
  COUNT(*) FILTER (WHERE event_type = 'add_to_cart'),
  COALESCE(SUM(revenue) FILTER (WHERE event_type = 'purchase'), 0)::text
FROM analytics
WHERE shop_id = $1 AND created_at >= NOW() - ($2 || ' days')::interval
`
	o := &Overview{}
	var revenue string
	if err := r.db.QueryRow(ctx, q, shopID, days).Scan(
		&o.Views, &o.HotspotClicks, &o.AddToCarts, &revenue,
	); err != nil {
		return nil, err
	}
	var err error
	if o.Revenue, err = decimal.NewFromString(revenue); err != nil {
		return nil, fmt.Errorf("parse revenue sum: %w", err)
	}

	const qClips = `SELECT COUNT(*) FROM clips WHERE shop_id = $1`
	if err := r.db.QueryRow(ctx, qClips, shopID).Scan(&o.ClipsCount); err != nil {
		return nil, err
	}

	if o.Views > 0 {
		o.CTR = roundPct(float64(o.HotspotClicks) / float64(o.Views) * 100)
	}
	return o, nil
}

type DayCount struct {
	Date  string `json:"date"`
	Count int64  `json:"count"`
}

func (r *Repository) ViewsOverTime(ctx context.Context, shopID string, days int) ([]DayCount, error) {
	const q = `
SELECT DATE(created_at)::text, COUNT(*)
FROM analytics
WHERE shop_id = $1 AND event_type = 'clip_view'
  AND created_at >= NOW() - ($2 || ' days')::interval
GROUP BY 1
ORDER BY 1
`
	rows, err := r.db.Query(ctx, q, shopID, days)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := []DayCount{}
	for rows.Next() {
		var d DayCount
		if err := rows.Scan(&d.Date, &d.Count); err != nil {
			return nil, err
		}
		out = append(out, d)
	}
	return out, rows.Err()
}

type TopClip struct {
	ID           string  `json:"id"`
	Title        string  `json:"title"`
	ThumbnailURL string  `json:"thumbnail_url"`
	Views        int64   `json:"views"`
	CTR          float64 `json:"ctr"`
}

func (r *Repository) TopClips(ctx context.Context, shopID string, days, limit int) ([]TopClip, error) {
	const q = `
SELECT c.id, c.title, COALESCE(c.thumbnail_url, ''),
  COUNT(a.id) FILTER (WHERE a.event_type = 'clip_view') AS views,
  COUNT(a.id) FILTER (WHERE a.event_type = 'hotspot_click') AS clicks
FROM clips c
LEFT JOIN analytics a ON a.clip_id = c.id
  AND a.created_at >= NOW() - ($2 || ' days')::interval
WHERE c.shop_id = $1
GROUP BY c.id, c.title, c.thumbnail_url
ORDER BY views DESC
LIMIT $3
`
	rows, err := r.db.Query(ctx, q, shopID, days, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := []TopClip{}
	for rows.Next() {
		var t TopClip
		var clicks int64
		if err := rows.Scan(&t.ID, &t.Title, &t.ThumbnailURL, &t.Views, &clicks); err != nil {
			return nil, err
		}
		if t.Views > 0 {
			t.CTR = roundPct(float64(clicks) / float64(t.Views) * 100)
		}
		out = append(out, t)
	}
	return out, rows.Err()
}

type TopProduct struct {
	ProductID  string `json:"product_id"`
	Title      string `json:"title"`
	ImageURL   string `json:"image"`
	Clicks     int64  `json:"clicks"`
	AddToCarts int64  `json:"add_to_cart"`
}

// TopProducts ranks products by hotspot clicks. Title and image come from
// whichever of the shop's hotspots still references the product; events
// outlive their hotspots, so a product with no surviving hotspot keeps its
// counts under a placeholder title.
func (r *Repository) TopProducts(ctx context.Context, shopID string, days, limit int) ([]TopProduct, error) {
	const q = `
SELECT a.shopify_product_id,
  COALESCE(h.product_title, 'Unknown Product'),
  COALESCE(h.product_image_url, ''),
  COUNT(*) FILTER (WHERE a.event_type = 'hotspot_click') AS clicks,
  COUNT(*) FILTER (WHERE a.event_type = 'add_to_cart')
FROM analytics a
LEFT JOIN LATERAL (
  SELECT h.product_title, h.product_image_url
  FROM hotspots h
  JOIN clips c ON c.id = h.clip_id
  WHERE h.shopify_product_id = a.shopify_product_id AND c.shop_id = a.shop_id
  LIMIT 1
) h ON TRUE
WHERE a.shop_id = $1 AND a.shopify_product_id IS NOT NULL
  AND a.event_type IN ('hotspot_click', 'add_to_cart')
  AND a.created_at >= NOW() - ($2 || ' days')::interval
GROUP BY a.shopify_product_id, h.product_title, h.product_image_url
ORDER BY clicks DESC
LIMIT $3
`
	rows, err := r.db.Query(ctx, q, shopID, days, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := []TopProduct{}
	for rows.Next() {
		var p TopProduct
		if err := rows.Scan(&p.ProductID, &p.Title, &p.ImageURL, &p.Clicks, &p.AddToCarts); err != nil {
			return nil, err
		}
		out = append(out, p)
	}
	return out, rows.Err()
}

type ClipStats struct {
	Views          int64   `json:"views"`
	Completions    int64   `json:"completions"`
	CompletionRate float64 `json:"completion_rate"`
	HotspotClicks  int64   `json:"hotspot_clicks"`
	AddToCarts     int64   `json:"add_to_cart"`
}

func (r *Repository) ClipStats(ctx context.Context, clipID string, days int) (*ClipStats, error) {
	const q = `
SELECT
  COUNT(*) FILTER (WHERE event_type = 'clip_view'),
  COUNT(*) FILTER (WHERE event_type = 'clip_complete'),
  COUNT(*) FILTER (WHERE event_type = 'hotspot_click'),
  COUNT(*) FILTER (WHERE event_type = 'add_to_cart')
FROM analytics
WHERE clip_id = $1 AND created_at >= NOW() - ($2 || ' days')::interval
`
	s := &ClipStats{}
	if err := r.db.QueryRow(ctx, q, clipID, days).Scan(
		&s.Views, &s.Completions, &s.HotspotClicks, &s.AddToCarts,
	); err != nil {
		return nil, err
	}
	if s.Views > 0 {
		s.CompletionRate = roundPct(float64(s.Completions) / float64(s.Views) * 100)
	}
	return s, nil
}

type HotspotStats struct {
	ID           string `json:"id"`
	ProductTitle string `json:"product_title"`
	Clicks       int64  `json:"clicks"`
	AddToCarts   int64  `json:"add_to_cart"`
}

func (r *Repository) HotspotStatsForClip(ctx context.Context, clipID string, days int) ([]HotspotStats, error) {
	const q = `
SELECT h.id, h.product_title,
  COUNT(a.id) FILTER (WHERE a.event_type = 'hotspot_click'),
  COUNT(a.id) FILTER (WHERE a.event_type = 'add_to_cart')
FROM hotspots h
LEFT JOIN analytics a ON a.hotspot_id = h.id
  AND a.created_at >= NOW() - ($2 || ' days')::interval
WHERE h.clip_id = $1
GROUP BY h.id, h.product_title
ORDER BY h.start_time
`
	rows, err := r.db.Query(ctx, q, clipID, days)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := []HotspotStats{}
	for rows.Next() {
		var h HotspotStats
		if err := rows.Scan(&h.ID, &h.ProductTitle, &h.Clicks, &h.AddToCarts); err != nil {
			return nil, err
		}
		out = append(out, h)
	}
	return out, rows.Err()
}

func roundPct(v float64) float64 {
	return float64(int64(v*100+0.5)) / 100
}
