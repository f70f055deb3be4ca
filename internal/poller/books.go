package poller

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"time"

	"github.com/sirupsen/logrus"
	"golang.org/x/time/rate"

	"github.com/navid-fn/sonar/internal/bitpin"
	"github.com/navid-fn/sonar/internal/feed"
)

// BookPoller maintains one polling loop per watched market. Watch
// acquires the loop, Unwatch releases it deterministically; a watcher
// is never left running after its market stops being observed.
type BookPoller struct {
	client   *bitpin.Client
	limiter  *rate.Limiter
	interval time.Duration
	feed     feed.Publisher // nil disables the trade feed
	logger   *logrus.Logger

	mu       sync.Mutex
	ctx      context.Context
	started  bool
	watchers map[int]*watcher
}

type watcher struct {
	cancel context.CancelFunc
	wg     sync.WaitGroup
	seq    atomic.Uint64
	latest versioned[*bitpin.OrderSnapshot]
}

func NewBookPoller(client *bitpin.Client, limiter *rate.Limiter, interval time.Duration, publisher feed.Publisher, logger *logrus.Logger) *BookPoller {
	return &BookPoller{
		client:   client,
		limiter:  limiter,
		interval: interval,
		feed:     publisher,
		logger:   logger,
		watchers: make(map[int]*watcher),
	}
}

// Start records the base context all watcher loops derive from.
func (p *BookPoller) Start(ctx context.Context) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.started {
		return errors.New("book poller already started")
	}
	p.ctx = ctx
	p.started = true
	return nil
}

// Watch acquires a polling loop for the market: an immediate fetch,
// then a refresh on every interval tick. Watching an already watched
// market is a no-op.
func (p *BookPoller) Watch(marketID int) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if !p.started {
		return errors.New("book poller not started")
	}
	if _, exists := p.watchers[marketID]; exists {
		return nil
	}

	watchCtx, cancel := context.WithCancel(p.ctx)
	w := &watcher{cancel: cancel}
	p.watchers[marketID] = w

	w.wg.Add(1)
	go p.runWatcher(watchCtx, marketID, w)
	return nil
}

// Unwatch releases the market's polling loop and waits for in-flight
// cycles. Unwatching an unknown market is a no-op.
func (p *BookPoller) Unwatch(marketID int) {
	p.mu.Lock()
	w, exists := p.watchers[marketID]
	delete(p.watchers, marketID)
	p.mu.Unlock()

	if !exists {
		return
	}
	w.cancel()
	w.wg.Wait()
	if p.feed != nil {
		p.feed.ForgetMarket(marketID)
	}
	p.logger.Infof("Stopped watching market %d", marketID)
}

// Watched reports whether the market currently has a polling loop.
func (p *BookPoller) Watched(marketID int) bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	_, exists := p.watchers[marketID]
	return exists
}

// Snapshot returns the latest applied snapshot for a watched market;
// ok is false when the market is not watched or its first poll has not
// landed yet.
func (p *BookPoller) Snapshot(marketID int) (*bitpin.OrderSnapshot, bool) {
	p.mu.Lock()
	w, exists := p.watchers[marketID]
	p.mu.Unlock()

	if !exists {
		return nil, false
	}
	return w.latest.get()
}

// Stop releases every watcher.
func (p *BookPoller) Stop() {
	p.mu.Lock()
	watchers := p.watchers
	p.watchers = make(map[int]*watcher)
	p.started = false
	p.mu.Unlock()

	for _, w := range watchers {
		w.cancel()
		w.wg.Wait()
	}
}

func (p *BookPoller) runWatcher(ctx context.Context, marketID int, w *watcher) {
	defer w.wg.Done()

	p.logger.Infof("Starting book watcher for market %d", marketID)
	ticker := time.NewTicker(p.interval)
	defer ticker.Stop()

	p.cycle(ctx, marketID, w)
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			w.wg.Add(1)
			go func() {
				defer w.wg.Done()
				p.cycle(ctx, marketID, w)
			}()
		}
	}
}

func (p *BookPoller) cycle(ctx context.Context, marketID int, w *watcher) {
	seq := w.seq.Add(1)

	if err := p.limiter.Wait(ctx); err != nil {
		return
	}

	snapshot, err := p.client.FetchOrderSnapshot(ctx, marketID)
	if err != nil {
		// Stale-but-valid: the previous snapshot keeps serving.
		if ctx.Err() == nil {
			p.logger.Errorf("Error fetching snapshot for market %d: %v", marketID, err)
		}
		return
	}

	if !w.latest.apply(seq, snapshot) {
		return
	}

	if p.feed != nil {
		if err := p.feed.PublishTrades(ctx, marketID, snapshot.Trades); err != nil {
			p.logger.Errorf("Error publishing trades for market %d: %v", marketID, err)
		}
	}
}
