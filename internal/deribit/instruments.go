package deribit

import (
	"context"
	"fmt"
	"net/url"
	"strconv"
)

// GetInstruments fetches instrument metadata from the main API.
// Set expired to include delisted contracts.
func (c *Client) GetInstruments(ctx context.Context, currency, kind string, expired bool) ([]Instrument, error) {
	query := url.Values{}
	query.Set("currency", currency)
	if kind != "" {
		query.Set("kind", kind)
	}
	query.Set("expired", strconv.FormatBool(expired))

	var result []Instrument
	if err := c.get(ctx, c.mainURL, "/get_instruments", query, &result); err != nil {
		return nil, fmt.Errorf("get instruments %s: %w", currency, err)
	}

	return result, nil
}
