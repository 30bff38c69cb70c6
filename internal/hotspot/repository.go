package hotspot

import (
	"context"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

type Repository struct {
	db *pgxpool.Pool
}

func NewRepository(db *pgxpool.Pool) *Repository {
	return &Repository{db: db}
}

const hotspotColumns = `
id, clip_id, shopify_product_id, product_title, COALESCE(product_handle,''),
COALESCE(product_image_url,''), product_price, position_x, position_y,
start_time, end_time, animation_type, is_active, clicks_count, created_at
`

func scanHotspot(row pgx.Row) (*Hotspot, error) {
	h := &Hotspot{}
	if err := row.Scan(
		&h.ID, &h.ClipID, &h.ProductID, &h.ProductTitle, &h.ProductHandle,
		&h.ProductImageURL, &h.ProductPrice, &h.PositionX, &h.PositionY,
		&h.StartTime, &h.EndTime, &h.AnimationType, &h.IsActive, &h.ClicksCount, &h.CreatedAt,
	); err != nil {
		return nil, err
	}
	return h, nil
}

func (r *Repository) Create(ctx context.Context, h *Hotspot) (*Hotspot, error) {
	const q = `
INSERT INTO hotspots
  (clip_id, shopify_product_id, product_title, product_handle, product_image_url,
   product_price, position_x, position_y, start_time, end_time, animation_type)
VALUES ($1, $2, $3, NULLIF($4,''), NULLIF($5,''), $6, $7, $8, $9, $10, $11)
RETURNING ` + hotspotColumns
	return scanHotspot(r.db.QueryRow(ctx, q,
		h.ClipID, h.ProductID, h.ProductTitle, h.ProductHandle, h.ProductImageURL,
		h.ProductPrice, h.PositionX, h.PositionY, h.StartTime, h.EndTime, h.AnimationType,
	))
}

// FindForShop looks a hotspot up through its clip so one shop can never
// touch another shop's markers.
func (r *Repository) FindForShop(ctx context.Context, shopID, id string) (*Hotspot, error) {
	q := `
SELECT ` + hotspotColumns + `
FROM hotspots
WHERE id = $2 AND clip_id IN (SELECT id FROM clips WHERE shop_id = $1)`
	return scanHotspot(r.db.QueryRow(ctx, q, shopID, id))
}

func (r *Repository) ListForClip(ctx context.Context, clipID string) ([]*Hotspot, error) {
	q := `SELECT ` + hotspotColumns + ` FROM hotspots WHERE clip_id = $1 ORDER BY start_time`
	rows, err := r.db.Query(ctx, q, clipID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return collect(rows)
}

// ListActiveForClips batches the storefront lookup: one query for every clip
// in a carousel payload.
func (r *Repository) ListActiveForClips(ctx context.Context, clipIDs []string) (map[string][]*Hotspot, error) {
	out := map[string][]*Hotspot{}
	if len(clipIDs) == 0 {
		return out, nil
	}
	q := `
SELECT ` + hotspotColumns + `
FROM hotspots
WHERE clip_id = ANY($1::uuid[]) AND is_active
ORDER BY clip_id, start_time`
	rows, err := r.db.Query(ctx, q, clipIDs)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	hs, err := collect(rows)
	if err != nil {
		return nil, err
	}
	for _, h := range hs {
		out[h.ClipID] = append(out[h.ClipID], h)
	}
	return out, nil
}

type UpdateParams struct {
	PositionX     *float64
	PositionY     *float64
	StartTime     *float64
	EndTime       *float64
	AnimationType *string
	IsActive      *bool
}

func (r *Repository) Update(ctx context.Context, shopID, id string, p UpdateParams) (*Hotspot, error) {
	q := `
UPDATE hotspots SET
  position_x = COALESCE($3, position_x),
  position_y = COALESCE($4, position_y),
  start_time = COALESCE($5, start_time),
  end_time = COALESCE($6, end_time),
  animation_type = COALESCE($7, animation_type),
  is_active = COALESCE($8, is_active),
  updated_at = NOW()
WHERE id = $2 AND clip_id IN (SELECT id FROM clips WHERE shop_id = $1)
RETURNING ` + hotspotColumns
	return scanHotspot(r.db.QueryRow(ctx, q, shopID, id,
		p.PositionX, p.PositionY, p.StartTime, p.EndTime, p.AnimationType, p.IsActive))
}

func (r *Repository) Delete(ctx context.Context, shopID, id string) error {
	const q = `
DELETE FROM hotspots
WHERE id = $2 AND clip_id IN (SELECT id FROM clips WHERE shop_id = $1)`
	ct, err := r.db.Exec(ctx, q, shopID, id)
	if err != nil {
		return err
	}
	if ct.RowsAffected() == 0 {
		return pgx.ErrNoRows
	}
	return nil
}

// IncrementClicks runs inside the caller's transaction alongside the
// analytics event.
func IncrementClicks(ctx context.Context, tx pgx.Tx, hotspotID string) error {
	_, err := tx.Exec(ctx, `UPDATE hotspots SET clicks_count = clicks_count + 1 WHERE id = $1`, hotspotID)
	return err
}

func collect(rows pgx.Rows) ([]*Hotspot, error) {
	out := []*Hotspot{}
	for rows.Next() {
		h, err := scanHotspot(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, h)
	}
	return out, rows.Err()
}
