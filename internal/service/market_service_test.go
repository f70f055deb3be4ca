package service

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"
	"golang.org/x/time/rate"

	"github.com/navid-fn/sonar/internal/bitpin"
	"github.com/navid-fn/sonar/internal/book"
	"github.com/navid-fn/sonar/internal/poller"
)

func testLogger() *logrus.Logger {
	logger := logrus.New()
	logger.SetLevel(logrus.PanicLevel)
	return logger
}

func waitFor(t *testing.T, timeout time.Duration, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(timeout)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatal("condition not met before deadline")
}

// exchangeHandler serves a small fixed catalog, order book and trade
// list for any market id.
func exchangeHandler(broken bool) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if broken {
			w.WriteHeader(http.StatusInternalServerError)
			return
		}
		switch {
		case r.URL.Path == "/v1/mkt/markets/":
			json.NewEncoder(w).Encode(map[string]any{
				"results": []bitpin.Market{
					{ID: 1, Code: "BTC_IRT", Currency2: bitpin.Currency{Code: "IRT"}},
					{ID: 2, Code: "BTC_USDT", Currency2: bitpin.Currency{Code: "USDT"}},
					{ID: 3, Code: "ETH_USDT", Currency2: bitpin.Currency{Code: "usdt"}},
				},
			})
		case r.URL.Query().Get("type") == "buy":
			json.NewEncoder(w).Encode(map[string]any{
				"orders": []bitpin.Order{
					{Amount: "10", Remain: "10", Price: "100", Value: "1000"},
					{Amount: "10", Remain: "10", Price: "200", Value: "2000"},
				},
				"volume": "20",
			})
		case r.URL.Query().Get("type") == "sell":
			json.NewEncoder(w).Encode(map[string]any{
				"orders": []bitpin.Order{
					{Amount: "4", Remain: "4", Price: "300", Value: "1200"},
				},
				"volume": "4",
			})
		default:
			json.NewEncoder(w).Encode([]bitpin.Trade{{MatchID: "m-1", Price: "150"}})
		}
	}
}

func newTestService(t *testing.T, broken bool) (*MarketService, *poller.MarketPoller, *poller.BookPoller) {
	t.Helper()
	server := httptest.NewServer(exchangeHandler(broken))
	t.Cleanup(server.Close)

	client := bitpin.NewClient(bitpin.Config{BaseURL: server.URL}, testLogger())
	limiter := rate.NewLimiter(rate.Inf, 1)
	markets := poller.NewMarketPoller(client, limiter, time.Hour, testLogger())
	books := poller.NewBookPoller(client, limiter, time.Hour, nil, testLogger())

	if err := books.Start(context.Background()); err != nil {
		t.Fatalf("Unexpected start error: %v", err)
	}
	t.Cleanup(books.Stop)

	return NewMarketService(client, markets, books), markets, books
}

func TestMarketsBeforeFirstPoll(t *testing.T) {
	service, _, _ := newTestService(t, false)

	if _, ok := service.Markets(""); ok {
		t.Error("Expected ok=false before the catalog poller has run")
	}
}

func TestMarketsQuoteFilter(t *testing.T) {
	service, markets, _ := newTestService(t, false)

	if err := markets.Start(context.Background()); err != nil {
		t.Fatalf("Unexpected start error: %v", err)
	}
	defer markets.Stop()

	waitFor(t, 2*time.Second, func() bool {
		_, ok := service.Markets("")
		return ok
	})

	all, _ := service.Markets("")
	if len(all) != 3 {
		t.Fatalf("Expected 3 markets unfiltered, got %d", len(all))
	}

	// Filter is case-insensitive on the quote currency code.
	usdt, _ := service.Markets("USDT")
	if len(usdt) != 2 {
		t.Errorf("Expected 2 USDT markets, got %d", len(usdt))
	}

	irt, _ := service.Markets("irt")
	if len(irt) != 1 || irt[0].ID != 1 {
		t.Errorf("Expected the IRT market, got %+v", irt)
	}
}

func TestBookOneShotFetchForUnwatchedMarket(t *testing.T) {
	service, _, _ := newTestService(t, false)

	snapshot, err := service.Book(context.Background(), 2)
	if err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}
	if len(snapshot.Buy) != 2 || len(snapshot.Sell) != 1 || len(snapshot.Trades) != 1 {
		t.Errorf("Expected composed snapshot, got %+v", snapshot)
	}
}

func TestBookServesCachedSnapshotWhenWatched(t *testing.T) {
	service, _, books := newTestService(t, false)

	if err := service.Watch(2); err != nil {
		t.Fatalf("Unexpected watch error: %v", err)
	}
	defer service.Unwatch(2)

	waitFor(t, 2*time.Second, func() bool {
		_, ok := books.Snapshot(2)
		return ok
	})

	snapshot, err := service.Book(context.Background(), 2)
	if err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}
	cached, _ := books.Snapshot(2)
	if snapshot != cached {
		t.Error("Expected the cached snapshot to be served for a watched market")
	}
}

func TestBookNotFoundWhileFirstPollPending(t *testing.T) {
	service, _, _ := newTestService(t, true)

	if err := service.Watch(2); err != nil {
		t.Fatalf("Unexpected watch error: %v", err)
	}
	defer service.Unwatch(2)

	_, err := service.Book(context.Background(), 2)
	var notFound *NotFoundError
	if !errors.As(err, &notFound) {
		t.Fatalf("Expected NotFoundError for watched market without snapshot, got %v", err)
	}
	if notFound.MarketID != 2 {
		t.Errorf("Expected market id 2 in error, got %d", notFound.MarketID)
	}
}

func TestStatsBuySide(t *testing.T) {
	service, _, _ := newTestService(t, false)

	stats, err := service.Stats(context.Background(), 2, book.SideBuy, "75")
	if err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}
	if stats.Sell != nil {
		t.Error("Expected no sell stats for a buy-side request")
	}
	if stats.Buy == nil {
		t.Fatal("Expected buy stats")
	}
	if !stats.Buy.TotalRemain.Equal(decimal.NewFromInt(15)) {
		t.Errorf("Expected filled volume 15, got %s", stats.Buy.TotalRemain)
	}
	if !stats.Buy.TotalValue.Equal(decimal.NewFromInt(2000)) {
		t.Errorf("Expected total value 2000, got %s", stats.Buy.TotalValue)
	}
}

func TestStatsAllSides(t *testing.T) {
	service, _, _ := newTestService(t, false)

	stats, err := service.Stats(context.Background(), 2, book.SideAll, "100")
	if err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}
	if stats.Buy == nil || stats.Sell == nil {
		t.Fatal("Expected stats for both sides")
	}
	if !stats.Sell.TotalRemain.Equal(decimal.NewFromInt(4)) {
		t.Errorf("Expected sell filled volume 4, got %s", stats.Sell.TotalRemain)
	}
	if !stats.Sell.AvgPrice.Equal(decimal.NewFromInt(300)) {
		t.Errorf("Expected sell average price 300, got %s", stats.Sell.AvgPrice)
	}
}

func TestStatsBadPercentage(t *testing.T) {
	service, _, _ := newTestService(t, false)

	_, err := service.Stats(context.Background(), 2, book.SideBuy, "abc")
	var parseErr *book.ParseError
	if !errors.As(err, &parseErr) {
		t.Fatalf("Expected ParseError, got %v", err)
	}
}
