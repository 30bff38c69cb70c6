package webhook

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"io"
	"net/http"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"

	"popclips/internal/analytics"
	"popclips/internal/api"
	"popclips/internal/auth"
	"popclips/internal/metrics"
	"popclips/internal/shop"
	"popclips/pkg/config"
	"popclips/pkg/db"
	"popclips/pkg/logger"
)

const maxWebhookBody = 1 << 20

// ShopStore is the slice of the shop repository the topic handlers touch.
type ShopStore interface {
	FindByDomain(ctx context.Context, domain string) (*shop.Shop, error)
	UpdateProfile(ctx context.Context, domain, name, email string) error
	SetPlan(ctx context.Context, shopID, plan string) error
	Deactivate(ctx context.Context, domain string) error
	DeleteByDomain(ctx context.Context, domain string) error
}

type SubscriptionStore interface {
	CancelActiveForShop(ctx context.Context, shopID string) error
}

// ErrDuplicateDelivery marks a delivery id that was already recorded.
var ErrDuplicateDelivery = errors.New("webhook already delivered")

// DeliveryLog is the idempotency gate in front of topic processing.
type DeliveryLog interface {
	Record(ctx context.Context, webhookID, topic, domain string) error
}

type pgDeliveryLog struct {
	pool *pgxpool.Pool
}

func (l pgDeliveryLog) Record(ctx context.Context, webhookID, topic, domain string) error {
	err := db.WithTx(ctx, l.pool, func(tx pgx.Tx) error {
		_, err := tx.Exec(ctx,
			`INSERT INTO webhook_events (webhook_id, topic, shop_domain) VALUES ($1, $2, $3)`,
			webhookID, topic, domain)
		return err
	})
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr.Code == "23505" {
		return ErrDuplicateDelivery
	}
	return err
}

// Handler receives all Shopify webhook deliveries on one route, dispatching
// by the X-Shopify-Topic header. Verified deliveries are always acked with
// 200 so Shopify does not retry on processing errors we log and own.
type Handler struct {
	pool       *pgxpool.Pool
	shops      ShopStore
	subs       SubscriptionStore
	deliveries DeliveryLog
	cfg        config.Config
	log        logger.Sugared
}

func NewHandler(pool *pgxpool.Pool, shops ShopStore, subs SubscriptionStore, cfg config.Config, log logger.Sugared) *Handler {
	return &Handler{pool: pool, shops: shops, subs: subs, deliveries: pgDeliveryLog{pool: pool}, cfg: cfg, log: log}
}

func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	body, err := io.ReadAll(io.LimitReader(r.Body, maxWebhookBody))
	if err != nil {
		api.WriteError(w, http.StatusBadRequest, "bad_request", "unreadable body")
		return
	}

	if !VerifySignature(body, r.Header.Get("X-Shopify-Hmac-Sha256"), h.cfg.Shopify.APISecret) {
		metrics.SignatureFailures.WithLabelValues("webhook").Inc()
		api.WriteError(w, http.StatusUnauthorized, "invalid_signature", "invalid webhook signature")
		return
	}

	topic := NormalizeTopic(r.Header.Get("X-Shopify-Topic"))
	domain := auth.NormalizeShopDomain(r.Header.Get("X-Shopify-Shop-Domain"), h.cfg.Shopify.DomainSuffix)
	webhookID := r.Header.Get("X-Shopify-Webhook-Id")

	result := h.process(r.Context(), topic, domain, webhookID, body)
	metrics.WebhookDeliveries.WithLabelValues(topic, result).Inc()

	api.WriteJSON(w, http.StatusOK, map[string]any{"success": true})
}

func (h *Handler) process(ctx context.Context, topic, domain, webhookID string, body []byte) string {
	if topic == "" || domain == "" {
		h.log.Warnw("webhook missing headers", "topic", topic, "shop", domain)
		return "error"
	}

	// Dedup on Shopify's delivery id before touching anything else; the
	// unique index turns redelivery into a no-op. A delivery without the id
	// header falls back to a payload hash so retries still collide.
	if webhookID == "" {
		webhookID = sha256Hex(body)
	}
	if err := h.deliveries.Record(ctx, webhookID, topic, domain); err != nil {
		if errors.Is(err, ErrDuplicateDelivery) {
			h.log.Infow("duplicate webhook", "topic", topic, "shop", domain, "webhook_id", webhookID)
			return "duplicate"
		}
		h.log.Errorw("record webhook", "topic", topic, "shop", domain, "err", err)
		return "error"
	}

	var err error
	switch topic {
	case "app_uninstalled":
		err = h.appUninstalled(ctx, domain)
	case "shop_update":
		err = h.shopUpdate(ctx, domain, body)
	case "orders_paid":
		err = h.ordersPaid(ctx, domain, body)
	case "customers_data_request", "customers_redact":
		// GDPR topics for customer data: this app stores no customer PII,
		// so acknowledging is the whole obligation.
		h.log.Infow("gdpr webhook acknowledged", "topic", topic, "shop", domain)
	case "shop_redact":
		err = h.shops.DeleteByDomain(ctx, domain)
	default:
		h.log.Infow("unhandled webhook topic", "topic", topic, "shop", domain)
	}
	if err != nil {
		h.log.Errorw("webhook processing", "topic", topic, "shop", domain, "err", err)
		return "error"
	}
	return "processed"
}

func sha256Hex(b []byte) string {
	sum := sha256.Sum256(b)
	return hex.EncodeToString(sum[:])
}

func (h *Handler) appUninstalled(ctx context.Context, domain string) error {
	s, err := h.shops.FindByDomain(ctx, domain)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil
		}
		return err
	}
	if err := h.subs.CancelActiveForShop(ctx, s.ID); err != nil {
		return err
	}
	if err := h.shops.SetPlan(ctx, s.ID, shop.PlanFree); err != nil {
		return err
	}
	if err := h.shops.Deactivate(ctx, domain); err != nil {
		return err
	}
	h.log.Infow("shop uninstalled", "shop", domain)
	return nil
}

func (h *Handler) shopUpdate(ctx context.Context, domain string, body []byte) error {
	var payload struct {
		Name  string `json:"name"`
		Email string `json:"email"`
	}
	if err := json.Unmarshal(body, &payload); err != nil {
		return err
	}
	return h.shops.UpdateProfile(ctx, domain, payload.Name, payload.Email)
}

// ordersPaid attributes revenue to a clip when the order carries the note
// attributes the storefront widget writes into the cart.
func (h *Handler) ordersPaid(ctx context.Context, domain string, body []byte) error {
	var order struct {
		TotalPrice     string `json:"total_price"`
		Currency       string `json:"currency"`
		NoteAttributes []struct {
			Name  string `json:"name"`
			Value string `json:"value"`
		} `json:"note_attributes"`
	}
	if err := json.Unmarshal(body, &order); err != nil {
		return err
	}

	attrs := map[string]string{}
	for _, a := range order.NoteAttributes {
		attrs[a.Name] = a.Value
	}
	if attrs["popclips_session"] == "" && attrs["popclips_clip_id"] == "" {
		return nil
	}

	s, err := h.shops.FindByDomain(ctx, domain)
	if err != nil {
		return err
	}

	ev := analytics.Event{
		ShopID:    s.ID,
		EventType: analytics.EventPurchase,
		SessionID: attrs["popclips_session"],
		Currency:  order.Currency,
	}
	if v := attrs["popclips_clip_id"]; v != "" {
		ev.ClipID = &v
	}
	if v := attrs["popclips_hotspot_id"]; v != "" {
		ev.HotspotID = &v
	}
	if revenue, err := decimal.NewFromString(order.TotalPrice); err == nil {
		ev.Revenue = &revenue
	}

	return db.WithTx(ctx, h.pool, func(tx pgx.Tx) error {
		return analytics.Insert(ctx, tx, ev)
	})
}
