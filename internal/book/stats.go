// Package book derives partial-fill statistics over an order-book side.
// All arithmetic is exact decimal; binary floating point never touches
// a price or amount.
package book

import (
	"errors"
	"fmt"
	"strings"

	"github.com/shopspring/decimal"

	"github.com/navid-fn/sonar/internal/bitpin"
)

// Side selects which book side a stats request targets.
type Side string

const (
	SideAll  Side = "all"
	SideBuy  Side = "buy"
	SideSell Side = "sell"
)

// ParseSide parses user input into a Side, case-insensitively.
// Empty input means all.
func ParseSide(s string) (Side, error) {
	switch Side(strings.ToLower(s)) {
	case SideAll, "":
		return SideAll, nil
	case SideBuy:
		return SideBuy, nil
	case SideSell:
		return SideSell, nil
	}
	return "", fmt.Errorf("unknown side %q", s)
}

// Stats is the result of a partial-fill computation. It is derived
// fresh on every call and carries no identity beyond that call.
//
// TotalRemain holds the volume filled up to the requested percentage,
// NOT the book's total outstanding volume. The name predates this
// implementation and is kept because API consumers already rely on it.
type Stats struct {
	TotalRemain decimal.Decimal `json:"totalRemain"`
	AvgPrice    decimal.Decimal `json:"avgPrice"`
	TotalValue  decimal.Decimal `json:"totalValue"`
}

// ParseError reports a malformed decimal string reaching the engine.
type ParseError struct {
	Field string
	Value string
	Err   error
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("book: invalid decimal %q for field %s: %v", e.Value, e.Field, e.Err)
}

func (e *ParseError) Unwrap() error { return e.Err }

var errNegative = errors.New("must not be negative")

// ComputeStats walks orders in the given priority order (best price
// first) and fills percentage percent of the total remaining volume,
// consuming whole orders until one crosses the target and taking only
// the needed fraction of that one. Orders past the crossing point are
// not inspected.
//
// An empty order list yields all-zero stats. A zero fill (percentage
// "0") also yields all-zero stats; the average price of an empty fill
// is defined as exactly zero rather than 0/0. The input slice is never
// mutated and the function holds no state, so identical inputs always
// produce identical results.
func ComputeStats(orders []bitpin.Order, percentage string) (Stats, error) {
	zero := Stats{TotalRemain: decimal.Zero, AvgPrice: decimal.Zero, TotalValue: decimal.Zero}
	if len(orders) == 0 {
		return zero, nil
	}

	pct, err := decimal.NewFromString(percentage)
	if err != nil {
		return Stats{}, &ParseError{Field: "percentage", Value: percentage, Err: err}
	}
	if pct.IsNegative() {
		return Stats{}, &ParseError{Field: "percentage", Value: percentage, Err: errNegative}
	}
	fraction := pct.Div(decimal.NewFromInt(100))

	remains := make([]decimal.Decimal, len(orders))
	prices := make([]decimal.Decimal, len(orders))
	totalRemain := decimal.Zero
	for i, order := range orders {
		remain, err := decimal.NewFromString(order.Remain)
		if err != nil {
			return Stats{}, &ParseError{Field: "remain", Value: order.Remain, Err: err}
		}
		price, err := decimal.NewFromString(order.Price)
		if err != nil {
			return Stats{}, &ParseError{Field: "price", Value: order.Price, Err: err}
		}
		remains[i] = remain
		prices[i] = price
		totalRemain = totalRemain.Add(remain)
	}

	targetRemain := totalRemain.Mul(fraction)

	currentSum := decimal.Zero
	totalValue := decimal.Zero
	weightedPrice := decimal.Zero
	for i := range orders {
		remain := remains[i]
		price := prices[i]

		if currentSum.Add(remain).LessThanOrEqual(targetRemain) {
			currentSum = currentSum.Add(remain)
			totalValue = totalValue.Add(remain.Mul(price))
			weightedPrice = weightedPrice.Add(price.Mul(remain))
		} else {
			// This order crosses the target; take only what is needed.
			partial := targetRemain.Sub(currentSum)
			currentSum = currentSum.Add(partial)
			totalValue = totalValue.Add(partial.Mul(price))
			weightedPrice = weightedPrice.Add(price.Mul(partial))
			break
		}
	}

	avgPrice := decimal.Zero
	if !currentSum.IsZero() {
		avgPrice = weightedPrice.Div(currentSum)
	}

	return Stats{TotalRemain: currentSum, AvgPrice: avgPrice, TotalValue: totalValue}, nil
}
