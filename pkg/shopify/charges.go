package shopify

import (
	"context"
	"fmt"
	"net/http"
	"net/url"

	"github.com/shopspring/decimal"
)

// RecurringCharge mirrors Shopify's recurring_application_charge resource.
type RecurringCharge struct {
	ID              int64  `json:"id"`
	Name            string `json:"name"`
	Price           string `json:"price"`
	Status          string `json:"status"`
	ConfirmationURL string `json:"confirmation_url"`
	BillingOn       string `json:"billing_on"`
}

type recurringChargeEnvelope struct {
	RecurringApplicationCharge RecurringCharge `json:"recurring_application_charge"`
}

type recurringChargeCreate struct {
	RecurringApplicationCharge struct {
		Name      string `json:"name"`
		Price     string `json:"price"`
		ReturnURL string `json:"return_url"`
		Test      bool   `json:"test"`
	} `json:"recurring_application_charge"`
}

func (c Client) CreateRecurringCharge(ctx context.Context, name string, price decimal.Decimal, returnURL string, test bool) (*RecurringCharge, error) {
	var req recurringChargeCreate
	req.RecurringApplicationCharge.Name = name
	req.RecurringApplicationCharge.Price = price.StringFixed(2)
	req.RecurringApplicationCharge.ReturnURL = returnURL
	req.RecurringApplicationCharge.Test = test

	var resp recurringChargeEnvelope
	if _, err := c.doJSON(ctx, http.MethodPost, "/recurring_application_charges.json", req, &resp); err != nil {
		return nil, err
	}
	if resp.RecurringApplicationCharge.ID == 0 {
		return nil, fmt.Errorf("charge creation returned no id")
	}
	return &resp.RecurringApplicationCharge, nil
}

func (c Client) GetRecurringCharge(ctx context.Context, chargeID string) (*RecurringCharge, error) {
	var resp recurringChargeEnvelope
	path := fmt.Sprintf("/recurring_application_charges/%s.json", url.PathEscape(chargeID))
	if _, err := c.doJSON(ctx, http.MethodGet, path, nil, &resp); err != nil {
		return nil, err
	}
	return &resp.RecurringApplicationCharge, nil
}

func (c Client) CancelRecurringCharge(ctx context.Context, chargeID string) error {
	path := fmt.Sprintf("/recurring_application_charges/%s.json", url.PathEscape(chargeID))
	_, err := c.doJSON(ctx, http.MethodDelete, path, nil, nil)
	return err
}
