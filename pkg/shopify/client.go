package shopify

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"
)

// Client calls the Shopify Admin API (REST and GraphQL) on behalf of one shop.
type Client struct {
	HTTPClient  *http.Client
	ShopDomain  string
	AccessToken string
	APIVersion  string
}

func (c Client) doJSON(ctx context.Context, method, path string, reqBody any, respBody any) (int, error) {
	if c.HTTPClient == nil {
		c.HTTPClient = &http.Client{Timeout: 20 * time.Second}
	}
	if c.APIVersion == "" {
		c.APIVersion = "2026-01"
	}
	if c.ShopDomain == "" || c.AccessToken == "" {
		return 0, fmt.Errorf("missing shop domain or access token")
	}

	var buf bytes.Buffer
	if reqBody != nil {
		if err := json.NewEncoder(&buf).Encode(reqBody); err != nil {
			return 0, err
		}
	}

	u := fmt.Sprintf("https://%s/admin/api/%s%s", c.ShopDomain, c.APIVersion, path)
	req, err := http.NewRequestWithContext(ctx, method, u, &buf)
	if err != nil {
		return 0, err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("X-Shopify-Access-Token", c.AccessToken)

	resp, err := c.HTTPClient.Do(req)
	if err != nil {
		return 0, err
	}
	defer resp.Body.Close()

	b, readErr := io.ReadAll(resp.Body)
	if readErr != nil {
		return resp.StatusCode, readErr
	}

	// Surface the Shopify error body for non-2xx so callers can see missing
	// scopes, rate limits, etc.
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		if len(b) > 0 {
			return resp.StatusCode, fmt.Errorf("shopify api error: status=%d body=%s", resp.StatusCode, string(b))
		}
		return resp.StatusCode, fmt.Errorf("shopify api error: status=%d", resp.StatusCode)
	}

	if respBody != nil && len(b) > 0 {
		if err := json.Unmarshal(b, respBody); err != nil {
			return resp.StatusCode, fmt.Errorf("decode shopify response failed: %w body=%s", err, string(b))
		}
	}

	return resp.StatusCode, nil
}

type graphqlRequest struct {
	Query     string         `json:"query"`
	Variables map[string]any `json:"variables,omitempty"`
}

type graphqlResponse struct {
	Data   json.RawMessage `json:"data"`
	Errors []struct {
		Message string `json:"message"`
	} `json:"errors"`
}

// doGraphQL runs an Admin GraphQL query and decodes the data field into out.
// Top-level GraphQL errors are returned as a single error.
func (c Client) doGraphQL(ctx context.Context, query string, variables map[string]any, out any) error {
	var resp graphqlResponse
	_, err := c.doJSON(ctx, http.MethodPost, "/graphql.json", graphqlRequest{
		Query:     query,
		Variables: variables,
	}, &resp)
	if err != nil {
		return err
	}
	if len(resp.Errors) > 0 {
		return fmt.Errorf("shopify graphql error: %s", resp.Errors[0].Message)
	}
	if out != nil && len(resp.Data) > 0 {
		if err := json.Unmarshal(resp.Data, out); err != nil {
			return fmt.Errorf("decode graphql data failed: %w", err)
		}
	}
	return nil
}
