// Package bitpin is a read-only client for the Bitpin public REST API.
// It fetches the market catalog, active order-book sides and recent
// matches, and composes them into per-market snapshots.
package bitpin

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/sirupsen/logrus"
)

const (
	DefaultBaseURL        = "https://api.bitpin.org/api"
	DefaultMarketsVersion = "v1"
	DefaultOrdersVersion  = "v2"
	DefaultTradesVersion  = "v1"
	DefaultSnapshotDepth  = 10
	DefaultTimeout        = 10 * time.Second
)

// Config holds client settings. Zero values fall back to the defaults
// above, so an empty Config is usable.
type Config struct {
	BaseURL string

	// Version segments per endpoint. The API serves the market catalog
	// and matches under v1 and active orders under v2; both are
	// configuration, not hard-coded literals.
	MarketsVersion string
	OrdersVersion  string
	TradesVersion  string

	// SnapshotDepth is the top-N cut applied to each order side and
	// trade list at fetch time.
	SnapshotDepth int

	Timeout time.Duration
}

// Client issues GET requests against the exchange API. It holds no
// mutable state beyond the HTTP client and is safe for concurrent use.
type Client struct {
	cfg    Config
	http   *http.Client
	logger *logrus.Logger
}

func NewClient(cfg Config, logger *logrus.Logger) *Client {
	if cfg.BaseURL == "" {
		cfg.BaseURL = DefaultBaseURL
	}
	if cfg.MarketsVersion == "" {
		cfg.MarketsVersion = DefaultMarketsVersion
	}
	if cfg.OrdersVersion == "" {
		cfg.OrdersVersion = DefaultOrdersVersion
	}
	if cfg.TradesVersion == "" {
		cfg.TradesVersion = DefaultTradesVersion
	}
	if cfg.SnapshotDepth == 0 {
		cfg.SnapshotDepth = DefaultSnapshotDepth
	}
	if cfg.Timeout == 0 {
		cfg.Timeout = DefaultTimeout
	}

	return &Client{
		cfg:    cfg,
		http:   &http.Client{Timeout: cfg.Timeout},
		logger: logger,
	}
}

type marketsResponse struct {
	Results []Market `json:"results"`
}

type activeOrdersResponse struct {
	Orders []Order `json:"orders"`
	Volume string  `json:"volume"`
}

// ListMarkets fetches the full market catalog. No server-side
// filtering; callers filter by quote-currency code for display.
func (c *Client) ListMarkets(ctx context.Context) ([]Market, error) {
	url := fmt.Sprintf("%s/%s/mkt/markets/", c.cfg.BaseURL, c.cfg.MarketsVersion)

	var body marketsResponse
	if err := c.getJSON(ctx, url, &body); err != nil {
		return nil, err
	}
	c.logger.Debugf("Fetched %d markets", len(body.Results))
	return body.Results, nil
}

// FetchOrderSide fetches one side of the book for a market and returns
// at most SnapshotDepth entries in server-delivered order.
func (c *Client) FetchOrderSide(ctx context.Context, marketID int, side OrderSide) ([]Order, error) {
	url := fmt.Sprintf("%s/%s/mth/actives/%d/?type=%s", c.cfg.BaseURL, c.cfg.OrdersVersion, marketID, side)

	var body activeOrdersResponse
	if err := c.getJSON(ctx, url, &body); err != nil {
		return nil, err
	}
	return truncate(body.Orders, c.cfg.SnapshotDepth), nil
}

// FetchRecentTrades fetches recent matches for a market, truncated to
// SnapshotDepth. The endpoint returns a bare array, not a wrapper.
func (c *Client) FetchRecentTrades(ctx context.Context, marketID int) ([]Trade, error) {
	url := fmt.Sprintf("%s/%s/mth/matches/%d/", c.cfg.BaseURL, c.cfg.TradesVersion, marketID)

	var body []Trade
	if err := c.getJSON(ctx, url, &body); err != nil {
		return nil, err
	}
	return truncate(body, c.cfg.SnapshotDepth), nil
}

// FetchOrderSnapshot issues the buy-side, sell-side and trade fetches
// concurrently and joins all three. Fail-fast: if any fetch fails the
// whole snapshot fails; a book showing one side without the other is
// misleading, so partial snapshots are never returned.
func (c *Client) FetchOrderSnapshot(ctx context.Context, marketID int) (*OrderSnapshot, error) {
	var (
		wg        sync.WaitGroup
		buy, sell []Order
		trades    []Trade

		buyErr, sellErr, tradesErr error
	)

	wg.Add(3)
	go func() {
		defer wg.Done()
		buy, buyErr = c.FetchOrderSide(ctx, marketID, SideBuy)
	}()
	go func() {
		defer wg.Done()
		sell, sellErr = c.FetchOrderSide(ctx, marketID, SideSell)
	}()
	go func() {
		defer wg.Done()
		trades, tradesErr = c.FetchRecentTrades(ctx, marketID)
	}()
	wg.Wait()

	for _, err := range []error{buyErr, sellErr, tradesErr} {
		if err != nil {
			return nil, err
		}
	}

	return &OrderSnapshot{Buy: buy, Sell: sell, Trades: trades}, nil
}

func (c *Client) getJSON(ctx context.Context, url string, out any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return &TransportError{URL: url, Err: err}
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return &TransportError{URL: url, Err: err}
	}
	defer resp.Body.Close()

	if resp.StatusCode < http.StatusOK || resp.StatusCode >= http.StatusMultipleChoices {
		return &TransportError{URL: url, Status: resp.StatusCode}
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return &DecodeError{URL: url, Err: err}
	}
	return nil
}

func truncate[T any](items []T, depth int) []T {
	if len(items) > depth {
		return items[:depth]
	}
	return items
}
