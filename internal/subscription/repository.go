package subscription

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

const subscriptionColumns = `
id, shop_id, plan_name, status, COALESCE(shopify_charge_id,''), price,
activated_at, cancelled_at, created_at
`

func scanSubscription(row pgx.Row) (*Subscription, error) {
	s := &Subscription{}
	if err := row.Scan(
		&s.ID, &s.ShopID, &s.PlanName, &s.Status, &s.ShopifyChargeID, &s.Price,
		&s.ActivatedAt, &s.CancelledAt, &s.CreatedAt,
	); err != nil {
		return nil, err
	}
	return s, nil
}

func (r *Repository) CreatePending(ctx context.Context, shopID, planName, chargeID string, price string) (*Subscription, error) {
	const q = `
INSERT INTO subscriptions (shop_id, plan_name, status, shopify_charge_id, price)
VALUES ($1, $2, 'pending', $3, $4)
RETURNING ` + subscriptionColumns
	return scanSubscription(r.db.QueryRow(ctx, q, shopID, planName, chargeID, price))
}

func (r *Repository) FindByChargeID(ctx context.Context, shopID, chargeID string) (*Subscription, error) {
	q := `SELECT ` + subscriptionColumns + ` FROM subscriptions
WHERE shop_id = $1 AND shopify_charge_id = $2
ORDER BY created_at DESC LIMIT 1`
	return scanSubscription(r.db.QueryRow(ctx, q, shopID, chargeID))
}

func (r *Repository) FindActive(ctx context.Context, shopID string) (*Subscription, error) {
	q := `SELECT ` + subscriptionColumns + ` FROM subscriptions
WHERE shop_id = $1 AND status = 'active'
ORDER BY created_at DESC LIMIT 1`
	return scanSubscription(r.db.QueryRow(ctx, q, shopID))
}

func (r *Repository) Activate(ctx context.Context, id string) (*Subscription, error) {
	q := `
UPDATE subscriptions SET status = 'active', activated_at = NOW(), updated_at = NOW()
WHERE id = $1
RETURNING ` + subscriptionColumns
	return scanSubscription(r.db.QueryRow(ctx, q, id))
}

func (r *Repository) MarkDeclined(ctx context.Context, id string) error {
	_, err := r.db.Exec(ctx,
		`UPDATE subscriptions SET status = 'declined', updated_at = NOW() WHERE id = $1`, id)
	return err
}

func (r *Repository) Cancel(ctx context.Context, id string) (*Subscription, error) {
	q := `
UPDATE subscriptions SET status = 'cancelled', cancelled_at = NOW(), updated_at = NOW()
WHERE id = $1
RETURNING ` + subscriptionColumns
	return scanSubscription(r.db.QueryRow(ctx, q, id))
}

// CancelActiveForShop marks every live subscription cancelled. Used on
// uninstall, where no per-row result matters.
func (r *Repository) CancelActiveForShop(ctx context.Context, shopID string) error {
	const q = `
UPDATE subscriptions SET status = 'cancelled', cancelled_at = NOW(), updated_at = NOW()
WHERE shop_id = $1 AND status IN ('pending', 'active')`
	_, err := r.db.Exec(ctx, q, shopID)
	return err
}
