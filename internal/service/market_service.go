package service

import (
	"context"
	"fmt"
	"strings"

	"github.com/navid-fn/sonar/internal/bitpin"
	"github.com/navid-fn/sonar/internal/book"
	"github.com/navid-fn/sonar/internal/poller"
)

// NotFoundError reports that no snapshot is available yet for a
// watched market.
type NotFoundError struct {
	MarketID int
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("no snapshot available for market %d", e.MarketID)
}

// BookStats bundles the partial-fill statistics for one or both sides
// of a market's book.
type BookStats struct {
	MarketID   int         `json:"market_id"`
	Percentage string      `json:"percentage"`
	Buy        *book.Stats `json:"buy,omitempty"`
	Sell       *book.Stats `json:"sell,omitempty"`
}

// MarketService is the boundary the UI collaborator talks to: pure
// data in, structured data or typed error out.
type MarketService struct {
	client  *bitpin.Client
	markets *poller.MarketPoller
	books   *poller.BookPoller
}

func NewMarketService(client *bitpin.Client, markets *poller.MarketPoller, books *poller.BookPoller) *MarketService {
	return &MarketService{
		client:  client,
		markets: markets,
		books:   books,
	}
}

// Markets returns the latest market catalog, optionally filtered by
// quote-currency code (e.g. "USDT", "IRT"). The catalog endpoint does
// no server-side filtering, so the filter lives here. ok is false
// while the first catalog poll is still in flight.
func (s *MarketService) Markets(quote string) ([]bitpin.Market, bool) {
	markets, ok := s.markets.Markets()
	if !ok {
		return nil, false
	}
	if quote == "" {
		return markets, true
	}

	filtered := make([]bitpin.Market, 0, len(markets))
	for _, market := range markets {
		if strings.EqualFold(market.Currency2.Code, quote) {
			filtered = append(filtered, market)
		}
	}
	return filtered, true
}

// Book returns the market's order snapshot: the cached one when the
// market is watched, a one-shot direct fetch otherwise. A watched
// market whose first poll has not landed yet yields NotFoundError so
// the caller can render "still loading" rather than an error.
func (s *MarketService) Book(ctx context.Context, marketID int) (*bitpin.OrderSnapshot, error) {
	if snapshot, ok := s.books.Snapshot(marketID); ok {
		return snapshot, nil
	}
	if s.books.Watched(marketID) {
		return nil, &NotFoundError{MarketID: marketID}
	}
	return s.client.FetchOrderSnapshot(ctx, marketID)
}

// Stats computes partial-fill statistics over the requested side of
// the market's current snapshot. SideAll computes both sides.
func (s *MarketService) Stats(ctx context.Context, marketID int, side book.Side, percentage string) (*BookStats, error) {
	snapshot, err := s.Book(ctx, marketID)
	if err != nil {
		return nil, err
	}

	result := &BookStats{MarketID: marketID, Percentage: percentage}

	if side == book.SideBuy || side == book.SideAll {
		stats, err := book.ComputeStats(snapshot.Buy, percentage)
		if err != nil {
			return nil, err
		}
		result.Buy = &stats
	}
	if side == book.SideSell || side == book.SideAll {
		stats, err := book.ComputeStats(snapshot.Sell, percentage)
		if err != nil {
			return nil, err
		}
		result.Sell = &stats
	}
	return result, nil
}

// Watch starts periodic snapshot refreshes for the market.
func (s *MarketService) Watch(marketID int) error {
	return s.books.Watch(marketID)
}

// Unwatch stops them.
func (s *MarketService) Unwatch(marketID int) {
	s.books.Unwatch(marketID)
}
