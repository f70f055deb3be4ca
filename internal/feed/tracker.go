package feed

import "sync"

// maxSeenPerMarket bounds the per-market seen-set so long-running
// watchers do not grow memory without limit.
const maxSeenPerMarket = 1000

// tradeTracker remembers match ids already published per market so a
// trade appearing in consecutive snapshots is sent only once.
type tradeTracker struct {
	mu   sync.RWMutex
	seen map[int]map[string]bool
}

func newTradeTracker() *tradeTracker {
	return &tradeTracker{
		seen: make(map[int]map[string]bool),
	}
}

func (tt *tradeTracker) Seen(marketID int, matchID string) bool {
	tt.mu.RLock()
	defer tt.mu.RUnlock()

	if marketSet, exists := tt.seen[marketID]; exists {
		return marketSet[matchID]
	}
	return false
}

func (tt *tradeTracker) Mark(marketID int, matchID string) {
	tt.mu.Lock()
	defer tt.mu.Unlock()

	if tt.seen[marketID] == nil {
		tt.seen[marketID] = make(map[string]bool)
	}
	tt.seen[marketID][matchID] = true

	// Evict a quarter of the set once the cap is hit. Map iteration
	// order is arbitrary, which is acceptable: a re-published trade is
	// harmless, unbounded growth is not.
	if len(tt.seen[marketID]) > maxSeenPerMarket {
		count := 0
		for id := range tt.seen[marketID] {
			if count >= maxSeenPerMarket/4 {
				break
			}
			delete(tt.seen[marketID], id)
			count++
		}
	}
}

func (tt *tradeTracker) Forget(marketID int) {
	tt.mu.Lock()
	defer tt.mu.Unlock()
	delete(tt.seen, marketID)
}
