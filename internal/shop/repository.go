package shop

import (
	"context"
	"encoding/json"

	"github.com/jackc/pgx/v5/pgxpool"
)

type Repository struct {
	db *pgxpool.Pool
}

func NewRepository(db *pgxpool.Pool) *Repository {
	return &Repository{db: db}
}

const shopColumns = `
id, shopify_domain, COALESCE(name,''), COALESCE(email,''), COALESCE(access_token,''),
COALESCE(scopes,'[]'::jsonb), COALESCE(plan,'free'), plan_started_at, is_active,
COALESCE(settings,'{}'::jsonb), installed_at
`

func scanShop(row interface{ Scan(...any) error }) (*Shop, error) {
	s := &Shop{}
	var scopes []byte
	if err := row.Scan(
		&s.ID, &s.Domain, &s.Name, &s.Email, &s.AccessToken,
		&scopes, &s.Plan, &s.PlanStartedAt, &s.IsActive,
		&s.Settings, &s.InstalledAt,
	); err != nil {
		return nil, err
	}
	_ = json.Unmarshal(scopes, &s.Scopes)
	return s, nil
}

// UpsertInstall creates or refreshes a shop record on a successful OAuth
// callback: new token, scope list, profile, and the active flag set.
func (r *Repository) UpsertInstall(ctx context.Context, domain, name, email, accessToken string, scopes []string) (*Shop, error) {
	scopesJSON, _ := json.Marshal(scopes)
	q := `
INSERT INTO shops (shopify_domain, name, email, access_token, scopes, is_active)
VALUES ($1, $2, $3, $4, $5, TRUE)
ON CONFLICT (shopify_domain) DO UPDATE SET
  name = EXCLUDED.name,
  email = EXCLUDED.email,
  access_token = EXCLUDED.access_token,
  scopes = EXCLUDED.scopes,
  is_active = TRUE,
  updated_at = NOW()
RETURNING ` + shopColumns
	return scanShop(r.db.QueryRow(ctx, q, domain, name, email, accessToken, scopesJSON))
}

func (r *Repository) FindByDomain(ctx context.Context, domain string) (*Shop, error) {
	q := `SELECT ` + shopColumns + ` FROM shops WHERE shopify_domain = $1`
	return scanShop(r.db.QueryRow(ctx, q, domain))
}

// ActiveDomains lists active shop domains, oldest install first. Used by the
// resolver to build "did you mean" hints.
func (r *Repository) ActiveDomains(ctx context.Context) ([]string, error) {
	const q = `SELECT shopify_domain FROM shops WHERE is_active ORDER BY installed_at, id`
	rows, err := r.db.Query(ctx, q)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []string
	for rows.Next() {
		var d string
		if err := rows.Scan(&d); err != nil {
			return nil, err
		}
		out = append(out, d)
	}
	return out, rows.Err()
}

// Deactivate clears the access token and marks the shop inactive. Called on
// the uninstall webhook; repeat calls are harmless.
func (r *Repository) Deactivate(ctx context.Context, domain string) error {
	const q = `UPDATE shops SET access_token = NULL, is_active = FALSE, updated_at = NOW() WHERE shopify_domain = $1`
	_, err := r.db.Exec(ctx, q, domain)
	return err
}

// UpdateProfile refreshes name/email from a shop/update webhook. Empty
// values leave the stored value untouched.
func (r *Repository) UpdateProfile(ctx context.Context, domain, name, email string) error {
	const q = `
UPDATE shops SET
  name = COALESCE(NULLIF($2,''), name),
  email = COALESCE(NULLIF($3,''), email),
  updated_at = NOW()
WHERE shopify_domain = $1`
	_, err := r.db.Exec(ctx, q, domain, name, email)
	return err
}

// SetPlan moves a shop between billing plans. A nil startedAt clears the
// plan start (used when dropping back to free).
func (r *Repository) SetPlan(ctx context.Context, shopID, plan string) error {
	const q = `
UPDATE shops SET
  plan = $2,
  plan_started_at = CASE WHEN $2 = 'pro' THEN NOW() ELSE NULL END,
  updated_at = NOW()
WHERE id = $1`
	_, err := r.db.Exec(ctx, q, shopID, plan)
	return err
}

// DeleteByDomain hard-deletes a shop; FK cascades remove clips, carousels,
// hotspots, analytics and subscriptions. Used for shop/redact.
func (r *Repository) DeleteByDomain(ctx context.Context, domain string) error {
	const q = `DELETE FROM shops WHERE shopify_domain = $1`
	_, err := r.db.Exec(ctx, q, domain)
	return err
}
