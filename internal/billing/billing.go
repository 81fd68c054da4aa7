// Package billing queries the ClickHouse Cloud billing API for usage
// costs, so storage growth from the trade archive can be tracked against
// budget. Costs are reported in CHC (ClickHouse Credits), which map 1:1
// to USD.
package billing

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"os"
	"time"

	"github.com/shopspring/decimal"
)

// Environment variable names for API credentials, matching the
// ClickHouse Cloud console naming.
const (
	EnvAPIKeyID       = "CLICKHOUSE_CLOUD_API_KEY_ID"
	EnvAPIKeySecret   = "CLICKHOUSE_CLOUD_API_KEY_SECRET"
	EnvOrganizationID = "CLICKHOUSE_CLOUD_ORG_ID"
)

// DefaultBaseURL is the ClickHouse Cloud API root.
const DefaultBaseURL = "https://api.clickhouse.cloud/v1"

// egressRatePerGB is the public data transfer price used to back out an
// egress volume estimate from its cost line.
var egressRatePerGB = decimal.RequireFromString("0.115")

// UsageCost is one period's cost breakdown.
type UsageCost struct {
	Compute     decimal.Decimal
	Storage     decimal.Decimal
	Egress      decimal.Decimal
	Total       decimal.Decimal
	PeriodStart time.Time
	PeriodEnd   time.Time
}

// EgressGBEstimate backs out transferred gigabytes from the egress cost.
func (u UsageCost) EgressGBEstimate() decimal.Decimal {
	if u.Egress.Sign() <= 0 {
		return decimal.Zero
	}
	return u.Egress.Div(egressRatePerGB)
}

// Client talks to the ClickHouse Cloud billing API.
type Client struct {
	baseURL        string
	apiKeyID       string
	apiKeySecret   string
	organizationID string
	httpClient     *http.Client
	logger         *slog.Logger
	now            func() time.Time
}

// Option configures a Client.
type Option func(*Client)

// WithBaseURL overrides the API root, mainly for tests.
func WithBaseURL(u string) Option {
	return func(c *Client) { c.baseURL = u }
}

// WithCredentials sets the API key pair and organization explicitly
// instead of reading them from the environment.
func WithCredentials(keyID, keySecret, orgID string) Option {
	return func(c *Client) {
		c.apiKeyID = keyID
		c.apiKeySecret = keySecret
		c.organizationID = orgID
	}
}

// WithHTTPClient swaps the underlying HTTP client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) { c.httpClient = hc }
}

// WithLogger sets the client logger.
func WithLogger(l *slog.Logger) Option {
	return func(c *Client) { c.logger = l }
}

// NewClient builds a billing client. Credentials default to the
// environment variables; it is an error for any of the three to be
// missing.
func NewClient(opts ...Option) (*Client, error) {
	c := &Client{
		baseURL:        DefaultBaseURL,
		apiKeyID:       os.Getenv(EnvAPIKeyID),
		apiKeySecret:   os.Getenv(EnvAPIKeySecret),
		organizationID: os.Getenv(EnvOrganizationID),
		httpClient:     &http.Client{Timeout: 30 * time.Second},
		logger:         slog.Default(),
		now:            time.Now,
	}
	for _, opt := range opts {
		opt(c)
	}

	var missing []string
	if c.apiKeyID == "" {
		missing = append(missing, EnvAPIKeyID)
	}
	if c.apiKeySecret == "" {
		missing = append(missing, EnvAPIKeySecret)
	}
	if c.organizationID == "" {
		missing = append(missing, EnvOrganizationID)
	}
	if len(missing) > 0 {
		return nil, fmt.Errorf("billing: missing ClickHouse Cloud API credentials: %v", missing)
	}
	return c, nil
}

type usageCostResponse struct {
	Costs struct {
		ComputeUnitCHC          json.Number `json:"computeUnitCHC"`
		StorageCompressedSSDCHC json.Number `json:"storageCompressedSSDCHC"`
		PublicDataTransferCHC   json.Number `json:"publicDataTransferCHC"`
		TotalCHC                json.Number `json:"totalCHC"`
	} `json:"costs"`
}

// UsageCost fetches the aggregate cost for the trailing number of days.
func (c *Client) UsageCost(ctx context.Context, days int) (UsageCost, error) {
	if days < 1 {
		return UsageCost{}, fmt.Errorf("billing: days must be at least 1, got %d", days)
	}
	end := c.now().UTC().Truncate(24 * time.Hour)
	start := end.AddDate(0, 0, -days)
	return c.fetchPeriod(ctx, start, end)
}

// DailyBreakdown fetches one UsageCost per day for the trailing period,
// oldest first.
func (c *Client) DailyBreakdown(ctx context.Context, days int) ([]UsageCost, error) {
	if days < 1 {
		return nil, fmt.Errorf("billing: days must be at least 1, got %d", days)
	}
	end := c.now().UTC().Truncate(24 * time.Hour)

	out := make([]UsageCost, 0, days)
	for i := days - 1; i >= 0; i-- {
		day := end.AddDate(0, 0, -i)
		cost, err := c.fetchPeriod(ctx, day, day)
		if err != nil {
			return nil, fmt.Errorf("billing: day %s: %w", day.Format("2006-01-02"), err)
		}
		out = append(out, cost)
	}
	return out, nil
}

func (c *Client) fetchPeriod(ctx context.Context, start, end time.Time) (UsageCost, error) {
	u := fmt.Sprintf("%s/organizations/%s/usageCost", c.baseURL, c.organizationID)
	params := url.Values{
		"from_date": {start.Format("2006-01-02")},
		"to_date":   {end.Format("2006-01-02")},
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u+"?"+params.Encode(), nil)
	if err != nil {
		return UsageCost{}, fmt.Errorf("billing: build request: %w", err)
	}
	req.SetBasicAuth(c.apiKeyID, c.apiKeySecret)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return UsageCost{}, fmt.Errorf("billing: request failed: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return UsageCost{}, fmt.Errorf("billing: read response: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return UsageCost{}, fmt.Errorf("billing: API returned status %d: %s", resp.StatusCode, string(body))
	}

	var parsed usageCostResponse
	if err := json.Unmarshal(body, &parsed); err != nil {
		return UsageCost{}, fmt.Errorf("billing: decode response: %w", err)
	}

	cost := UsageCost{PeriodStart: start, PeriodEnd: end}
	if cost.Compute, err = numberToDecimal(parsed.Costs.ComputeUnitCHC); err != nil {
		return UsageCost{}, err
	}
	if cost.Storage, err = numberToDecimal(parsed.Costs.StorageCompressedSSDCHC); err != nil {
		return UsageCost{}, err
	}
	if cost.Egress, err = numberToDecimal(parsed.Costs.PublicDataTransferCHC); err != nil {
		return UsageCost{}, err
	}
	if cost.Total, err = numberToDecimal(parsed.Costs.TotalCHC); err != nil {
		return UsageCost{}, err
	}
	return cost, nil
}

func numberToDecimal(n json.Number) (decimal.Decimal, error) {
	if n == "" {
		return decimal.Zero, nil
	}
	d, err := decimal.NewFromString(n.String())
	if err != nil {
		return decimal.Zero, fmt.Errorf("billing: parse cost %q: %w", n, err)
	}
	return d, nil
}
