package deribit

import (
	"context"
	"fmt"
	"net/url"
	"strconv"
)

// TradesPageOptions configures one bounded time-window request.
type TradesPageOptions struct {
	Currency string // "BTC" or "ETH"
	Kind     string // "option"
	StartTS  int64  // window start, ms since epoch, inclusive
	EndTS    int64  // window end, ms since epoch
	Count    int    // page size, capped at MaxPageCount
}

// TradesPage fetches a single page of historical trades, newest first.
// The call is stateless: pagination is the caller's concern.
func (c *Client) TradesPage(ctx context.Context, opts TradesPageOptions) ([]Trade, error) {
	count := opts.Count
	if count <= 0 || count > MaxPageCount {
		count = MaxPageCount
	}

	query := url.Values{}
	query.Set("currency", opts.Currency)
	query.Set("kind", opts.Kind)
	query.Set("start_timestamp", strconv.FormatInt(opts.StartTS, 10))
	query.Set("end_timestamp", strconv.FormatInt(opts.EndTS, 10))
	query.Set("count", strconv.Itoa(count))
	query.Set("sorting", "desc")

	var result tradesResult
	if err := c.get(ctx, c.historyURL, "/get_last_trades_by_currency_and_time", query, &result); err != nil {
		return nil, fmt.Errorf("get trades page %s [%d, %d]: %w", opts.Currency, opts.StartTS, opts.EndTS, err)
	}

	return result.Trades, nil
}
