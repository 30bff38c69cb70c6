package clip

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

type Repository struct {
	db *pgxpool.Pool
}

func NewRepository(db *pgxpool.Pool) *Repository {
	return &Repository{db: db}
}

const clipColumns = `
id, shop_id, title, COALESCE(description,''), COALESCE(video_url,''),
COALESCE(thumbnail_url,''), COALESCE(shopify_file_id,''), COALESCE(duration,0),
COALESCE(aspect_ratio,'9:16'), COALESCE(file_size,0), status, is_published,
published_at, views_count, likes_count, shares_count, created_at
`

func scanClip(row pgx.Row) (*Clip, error) {
	c := &Clip{}
	if err := row.Scan(
		&c.ID, &c.ShopID, &c.Title, &c.Description, &c.VideoURL,
		&c.ThumbnailURL, &c.ShopifyFileID, &c.Duration,
		&c.AspectRatio, &c.FileSize, &c.Status, &c.IsPublished,
		&c.PublishedAt, &c.ViewsCount, &c.LikesCount, &c.SharesCount, &c.CreatedAt,
	); err != nil {
		return nil, err
	}
	return c, nil
}

type CreateParams struct {
	ShopID        string
	Title         string
	Description   string
	VideoURL      string
	ThumbnailURL  string
	ShopifyFileID string
	Duration      int
	AspectRatio   string
	FileSize      int64
	Status        string
}

func (r *Repository) Create(ctx context.Context, p CreateParams) (*Clip, error) {
	if p.AspectRatio == "" {
		p.AspectRatio = "9:16"
	}
	q := `
INSERT INTO clips
  (shop_id, title, description, video_url, thumbnail_url, shopify_file_id,
   duration, aspect_ratio, file_size, status)
VALUES ($1, $2, NULLIF($3,''), NULLIF($4,''), NULLIF($5,''), $6, $7, $8, $9, $10)
RETURNING ` + clipColumns
	return scanClip(r.db.QueryRow(ctx, q,
		p.ShopID, p.Title, p.Description, p.VideoURL, p.ThumbnailURL,
		p.ShopifyFileID, p.Duration, p.AspectRatio, p.FileSize, p.Status,
	))
}

func (r *Repository) FindByID(ctx context.Context, shopID, id string) (*Clip, error) {
	q := `SELECT ` + clipColumns + ` FROM clips WHERE shop_id = $1 AND id = $2`
	return scanClip(r.db.QueryRow(ctx, q, shopID, id))
}

// FindPublished returns a clip only when it is published and ready, the
// storefront visibility rule.
func (r *Repository) FindPublished(ctx context.Context, shopID, id string) (*Clip, error) {
	q := `SELECT ` + clipColumns + ` FROM clips
WHERE shop_id = $1 AND id = $2 AND is_published AND status = 'ready'`
	return scanClip(r.db.QueryRow(ctx, q, shopID, id))
}

func (r *Repository) List(ctx context.Context, shopID string, limit, offset int) ([]*Clip, error) {
	q := `SELECT ` + clipColumns + ` FROM clips
WHERE shop_id = $1 ORDER BY created_at DESC LIMIT $2 OFFSET $3`
	return r.queryClips(ctx, q, shopID, limit, offset)
}

// ListPublished is the standard carousel's clip set: everything published
// and ready, newest publish first.
func (r *Repository) ListPublished(ctx context.Context, shopID string) ([]*Clip, error) {
	q := `SELECT ` + clipColumns + ` FROM clips
WHERE shop_id = $1 AND is_published AND status = 'ready'
ORDER BY published_at DESC`
	return r.queryClips(ctx, q, shopID)
}

// ListForCarousel returns a custom carousel's published members in position
// order.
func (r *Repository) ListForCarousel(ctx context.Context, carouselID string) ([]*Clip, error) {
	q := `SELECT ` + prefixedClipColumns("c") + `
FROM clips c
JOIN carousel_clips cc ON cc.clip_id = c.id
WHERE cc.carousel_id = $1 AND c.is_published AND c.status = 'ready'
ORDER BY cc.position`
	return r.queryClips(ctx, q, carouselID)
}

func (r *Repository) queryClips(ctx context.Context, q string, args ...any) ([]*Clip, error) {
	rows, err := r.db.Query(ctx, q, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := []*Clip{}
	for rows.Next() {
		c, err := scanClip(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, c)
	}
	return out, rows.Err()
}

// CountThisMonth counts uploads in the current calendar month, the unit the
// plan limit is enforced on.
func (r *Repository) CountThisMonth(ctx context.Context, shopID string) (int, error) {
	const q = `
SELECT COUNT(*) FROM clips
WHERE shop_id = $1 AND created_at >= date_trunc('month', NOW())`
	var n int
	err := r.db.QueryRow(ctx, q, shopID).Scan(&n)
	return n, err
}

type UpdateParams struct {
	Title       *string
	Description *string
	IsPublished *bool
}

func (r *Repository) Update(ctx context.Context, shopID, id string, p UpdateParams) (*Clip, error) {
	q := `
UPDATE clips SET
  title = COALESCE($3, title),
  description = COALESCE($4, description),
  is_published = COALESCE($5, is_published),
  published_at = CASE
    WHEN COALESCE($5, is_published) AND published_at IS NULL THEN NOW()
    ELSE published_at
  END,
  updated_at = NOW()
WHERE shop_id = $1 AND id = $2
RETURNING ` + clipColumns
	return scanClip(r.db.QueryRow(ctx, q, shopID, id, p.Title, p.Description, p.IsPublished))
}

func (r *Repository) SetPublished(ctx context.Context, shopID, id string, published bool) (*Clip, error) {
	q := `
UPDATE clips SET
  is_published = $3,
  published_at = CASE WHEN $3 THEN COALESCE(published_at, NOW()) ELSE published_at END,
  updated_at = NOW()
WHERE shop_id = $1 AND id = $2
RETURNING ` + clipColumns
	return scanClip(r.db.QueryRow(ctx, q, shopID, id, published))
}

func (r *Repository) Delete(ctx context.Context, shopID, id string) error {
	const q = `DELETE FROM clips WHERE shop_id = $1 AND id = $2`
	ct, err := r.db.Exec(ctx, q, shopID, id)
	if err != nil {
		return err
	}
	if ct.RowsAffected() == 0 {
		return pgx.ErrNoRows
	}
	return nil
}

var clipCounters = map[string]string{
	"views":  "views_count",
	"likes":  "likes_count",
	"shares": "shares_count",
}

// IncrementCounter bumps one of the denormalized engagement counters inside
// the caller's transaction. The counter name is mapped, never interpolated
// from input.
func IncrementCounter(ctx context.Context, tx pgx.Tx, clipID, counter string) error {
	col, ok := clipCounters[counter]
	if !ok {
		return fmt.Errorf("unknown clip counter %q", counter)
	}
	q := fmt.Sprintf(`UPDATE clips SET %s = %s + 1 WHERE id = $1`, col, col)
	_, err := tx.Exec(ctx, q, clipID)
	return err
}

func prefixedClipColumns(alias string) string {
	return fmt.Sprintf(`
%[1]s.id, %[1]s.shop_id, %[1]s.title, COALESCE(%[1]s.description,''), COALESCE(%[1]s.video_url,''),
COALESCE(%[1]s.thumbnail_url,''), COALESCE(%[1]s.shopify_file_id,''), COALESCE(%[1]s.duration,0),
COALESCE(%[1]s.aspect_ratio,'9:16'), COALESCE(%[1]s.file_size,0), %[1]s.status, %[1]s.is_published,
%[1]s.published_at, %[1]s.views_count, %[1]s.likes_count, %[1]s.shares_count, %[1]s.created_at
`, alias)
}
