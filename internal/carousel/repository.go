package carousel

import (
	"context"
	"encoding/json"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"popclips/pkg/db"
)

type Repository struct {
	db *pgxpool.Pool
}

func NewRepository(db *pgxpool.Pool) *Repository {
	return &Repository{db: db}
}

const carouselColumns = `
ca.id, ca.shop_id, ca.name, ca.type, ca.settings, ca.is_active, ca.created_at,
(SELECT COUNT(*) FROM carousel_clips cc WHERE cc.carousel_id = ca.id)
`

func scanCarousel(row pgx.Row) (*Carousel, error) {
	c := &Carousel{}
	var settings []byte
	if err := row.Scan(
		&c.ID, &c.ShopID, &c.Name, &c.Type, &settings, &c.IsActive, &c.CreatedAt, &c.ClipsCount,
	); err != nil {
		return nil, err
	}
	c.Settings = settings
	return c, nil
}

// EnsureStandard creates the shop's standard carousel if it is missing and
// returns it. Called on install so every shop starts with a working widget.
func (r *Repository) EnsureStandard(ctx context.Context, shopID string) (*Carousel, error) {
	const q = `
INSERT INTO carousels (shop_id, name, type)
VALUES ($1, 'All Clips', 'standard')
ON CONFLICT (shop_id) WHERE type = 'standard' DO NOTHING`
	if _, err := r.db.Exec(ctx, q, shopID); err != nil {
		return nil, err
	}
	return r.FindStandard(ctx, shopID)
}

func (r *Repository) FindStandard(ctx context.Context, shopID string) (*Carousel, error) {
	q := `SELECT ` + carouselColumns + ` FROM carousels ca
WHERE ca.shop_id = $1 AND ca.type = 'standard'`
	return scanCarousel(r.db.QueryRow(ctx, q, shopID))
}

func (r *Repository) FindByID(ctx context.Context, shopID, id string) (*Carousel, error) {
	q := `SELECT ` + carouselColumns + ` FROM carousels ca
WHERE ca.shop_id = $1 AND ca.id = $2`
	return scanCarousel(r.db.QueryRow(ctx, q, shopID, id))
}

func (r *Repository) List(ctx context.Context, shopID string) ([]*Carousel, error) {
	q := `SELECT ` + carouselColumns + ` FROM carousels ca
WHERE ca.shop_id = $1
ORDER BY ca.type DESC, ca.created_at`
	rows, err := r.db.Query(ctx, q, shopID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := []*Carousel{}
	for rows.Next() {
		c, err := scanCarousel(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, c)
	}
	return out, rows.Err()
}

// FindActiveForLocation picks the custom carousel configured for a
// storefront placement. Settings carry a "location" key; "all" matches any
// placement.
func (r *Repository) FindActiveForLocation(ctx context.Context, shopID, location string) (*Carousel, error) {
	q := `SELECT ` + carouselColumns + ` FROM carousels ca
WHERE ca.shop_id = $1 AND ca.type = 'custom' AND ca.is_active
  AND COALESCE(ca.settings->>'location', 'all') IN ($2, 'all')
ORDER BY ca.created_at
LIMIT 1`
	return scanCarousel(r.db.QueryRow(ctx, q, shopID, location))
}

func (r *Repository) CountCustom(ctx context.Context, shopID string) (int, error) {
	var n int
	err := r.db.QueryRow(ctx,
		`SELECT COUNT(*) FROM carousels WHERE shop_id = $1 AND type = 'custom'`, shopID).Scan(&n)
	return n, err
}

func (r *Repository) CreateCustom(ctx context.Context, shopID, name string, settings json.RawMessage) (*Carousel, error) {
	if len(settings) == 0 {
		settings = json.RawMessage(`{}`)
	}
	const q = `
INSERT INTO carousels (shop_id, name, type, settings)
VALUES ($1, $2, 'custom', CAST($3 AS jsonb))
RETURNING id`
	var id string
	if err := r.db.QueryRow(ctx, q, shopID, name, string(settings)).Scan(&id); err != nil {
		return nil, err
	}
	return r.FindByID(ctx, shopID, id)
}

type UpdateParams struct {
	Name     *string
	Settings json.RawMessage
	IsActive *bool
}

func (r *Repository) Update(ctx context.Context, shopID, id string, p UpdateParams) (*Carousel, error) {
	var settings *string
	if len(p.Settings) > 0 {
		s := string(p.Settings)
		settings = &s
	}
	const q = `
UPDATE carousels SET
  name = COALESCE($3, name),
  settings = COALESCE(CAST($4 AS jsonb), settings),
  is_active = COALESCE($5, is_active),
  updated_at = NOW()
WHERE shop_id = $1 AND id = $2
RETURNING id`
	var updated string
	if err := r.db.QueryRow(ctx, q, shopID, id, p.Name, settings, p.IsActive).Scan(&updated); err != nil {
		return nil, err
	}
	return r.FindByID(ctx, shopID, updated)
}

// DeleteCustom removes a custom carousel. The standard carousel is never
// deletable, so the type predicate doubles as the guard.
func (r *Repository) DeleteCustom(ctx context.Context, shopID, id string) error {
	ct, err := r.db.Exec(ctx,
		`DELETE FROM carousels WHERE shop_id = $1 AND id = $2 AND type = 'custom'`, shopID, id)
	if err != nil {
		return err
	}
	if ct.RowsAffected() == 0 {
		return pgx.ErrNoRows
	}
	return nil
}

// AddClips appends the given shop-owned clips after the current last
// position, silently skipping ones already in the carousel.
func (r *Repository) AddClips(ctx context.Context, shopID, carouselID string, clipIDs []string) error {
	return db.WithTx(ctx, r.db, func(tx pgx.Tx) error {
		const q = `
INSERT INTO carousel_clips (carousel_id, clip_id, position)
SELECT $1, c.id,
  COALESCE((SELECT MAX(position) + 1 FROM carousel_clips WHERE carousel_id = $1), 0)
    + ROW_NUMBER() OVER (ORDER BY ord) - 1
FROM unnest($3::uuid[]) WITH ORDINALITY AS ids(id, ord)
JOIN clips c ON c.id = ids.id AND c.shop_id = $2
ON CONFLICT (carousel_id, clip_id) DO NOTHING`
		_, err := tx.Exec(ctx, q, carouselID, shopID, clipIDs)
		return err
	})
}

// RemoveClip deletes the membership row and compacts the remaining
// positions back to a dense 0..n-1 sequence.
func (r *Repository) RemoveClip(ctx context.Context, carouselID, clipID string) error {
	return db.WithTx(ctx, r.db, func(tx pgx.Tx) error {
		ct, err := tx.Exec(ctx,
			`DELETE FROM carousel_clips WHERE carousel_id = $1 AND clip_id = $2`, carouselID, clipID)
		if err != nil {
			return err
		}
		if ct.RowsAffected() == 0 {
			return pgx.ErrNoRows
		}
		return compactPositions(ctx, tx, carouselID)
	})
}

// Reorder replaces the carousel's ordering with the given clip sequence.
// Clips omitted from the list keep their relative order after the listed
// ones.
func (r *Repository) Reorder(ctx context.Context, carouselID string, clipIDs []string) error {
	return db.WithTx(ctx, r.db, func(tx pgx.Tx) error {
		const q = `
UPDATE carousel_clips cc
SET position = ids.ord - 1
FROM unnest($2::uuid[]) WITH ORDINALITY AS ids(id, ord)
WHERE cc.carousel_id = $1 AND cc.clip_id = ids.id`
		if _, err := tx.Exec(ctx, q, carouselID, clipIDs); err != nil {
			return err
		}
		return compactPositions(ctx, tx, carouselID)
	})
}

func compactPositions(ctx context.Context, tx pgx.Tx, carouselID string) error {
	const q = `
UPDATE carousel_clips cc
SET position = ranked.rn - 1
FROM (
  SELECT clip_id, ROW_NUMBER() OVER (ORDER BY position, clip_id) AS rn
  FROM carousel_clips WHERE carousel_id = $1
) ranked
WHERE cc.carousel_id = $1 AND cc.clip_id = ranked.clip_id`
	_, err := tx.Exec(ctx, q, carouselID)
	return err
}
