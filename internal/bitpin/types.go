package bitpin

// Currency is immutable reference data describing one side of a pair.
type Currency struct {
	ID            int    `json:"id"`
	Title         string `json:"title"`
	TitleFa       string `json:"title_fa"`
	Code          string `json:"code"`
	Image         string `json:"image"`
	Decimal       int    `json:"decimal"`
	DecimalAmount int    `json:"decimal_amount"`
}

// PriceInfo carries 24h price statistics as delivered by the API.
// Monetary fields stay decimal strings; they are never parsed here.
type PriceInfo struct {
	CreatedAt float64 `json:"created_at"`
	Price     string  `json:"price"`
	Change    float64 `json:"change"`
	Min       string  `json:"min"`
	Max       string  `json:"max"`
	Time      *string `json:"time"`
	Mean      *string `json:"mean"`
	Value     *string `json:"value"`
	Amount    *string `json:"amount"`
}

// Market pairs two currencies. The integer ID is the routing key for
// order-book queries. Replaced wholesale on each poll.
type Market struct {
	ID                int       `json:"id"`
	Currency1         Currency  `json:"currency1"`
	Currency2         Currency  `json:"currency2"`
	Price             string    `json:"price"`
	Title             string    `json:"title"`
	Code              string    `json:"code"`
	Volume24h         string    `json:"volume_24h"`
	InternalPriceInfo PriceInfo `json:"internal_price_info"`
	PriceInfo         PriceInfo `json:"price_info"`
}

// Order is a single resting order-book entry. Remain is the unfilled
// size and is treated as authoritative; remain <= amount is assumed
// upstream but never validated here. Orders arrive already sorted by
// execution priority (best price first) and are never re-sorted.
type Order struct {
	Amount string `json:"amount"`
	Remain string `json:"remain"`
	Price  string `json:"price"`
	Value  string `json:"value"`
}

// Trade is a completed match. Time is epoch seconds.
type Trade struct {
	Time        int64  `json:"time"`
	Price       string `json:"price"`
	Value       string `json:"value"`
	MatchAmount string `json:"match_amount"`
	Side        string `json:"type"`
	MatchID     string `json:"match_id"`
}

// OrderSnapshot is the composed per-market state: both book sides and
// recent trades, each truncated to the configured depth at fetch time.
// A snapshot is immutable once built and fully replaced on refresh.
type OrderSnapshot struct {
	Buy    []Order `json:"buy"`
	Sell   []Order `json:"sell"`
	Trades []Trade `json:"trades"`
}

// OrderSide selects one side of the book for a fetch.
type OrderSide string

const (
	SideBuy  OrderSide = "buy"
	SideSell OrderSide = "sell"
)
