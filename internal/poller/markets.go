// Package poller owns the refresh policy: timer-driven polling of the
// market catalog and of watched order books. Each poll produces a
// brand-new immutable snapshot that atomically replaces the previous
// one; consumers never observe partial or interleaved state.
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
)

// MarketPoller refreshes the full market catalog on a fixed interval
// while started.
type MarketPoller struct {
	client   *bitpin.Client
	limiter  *rate.Limiter
	interval time.Duration
	logger   *logrus.Logger

	latest versioned[[]bitpin.Market]
	seq    atomic.Uint64

	mu     sync.Mutex
	cancel context.CancelFunc
	wg     sync.WaitGroup
}

func NewMarketPoller(client *bitpin.Client, limiter *rate.Limiter, interval time.Duration, logger *logrus.Logger) *MarketPoller {
	return &MarketPoller{
		client:   client,
		limiter:  limiter,
		interval: interval,
		logger:   logger,
	}
}

// Start launches the polling loop. It returns an error when the poller
// is already running.
func (p *MarketPoller) Start(ctx context.Context) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.cancel != nil {
		return errors.New("market poller already started")
	}

	runCtx, cancel := context.WithCancel(ctx)
	p.cancel = cancel
	p.wg.Add(1)
	go p.run(runCtx)
	return nil
}

// Stop cancels the polling loop and waits for in-flight cycles.
// Stopping an unstarted poller is a no-op.
func (p *MarketPoller) Stop() {
	p.mu.Lock()
	cancel := p.cancel
	p.cancel = nil
	p.mu.Unlock()

	if cancel == nil {
		return
	}
	cancel()
	p.wg.Wait()
}

// Markets returns the latest applied catalog; ok is false until the
// first poll lands.
func (p *MarketPoller) Markets() ([]bitpin.Market, bool) {
	return p.latest.get()
}

func (p *MarketPoller) run(ctx context.Context) {
	defer p.wg.Done()

	p.logger.Info("Starting market poller")
	ticker := time.NewTicker(p.interval)
	defer ticker.Stop()

	p.cycle(ctx)
	for {
		select {
		case <-ctx.Done():
			p.logger.Info("Stopping market poller")
			return
		case <-ticker.C:
			// Each cycle runs in its own goroutine so a slow request
			// does not block the ticker; the sequence guard in the
			// store keeps overlapping results ordered.
			p.wg.Add(1)
			go func() {
				defer p.wg.Done()
				p.cycle(ctx)
			}()
		}
	}
}

func (p *MarketPoller) cycle(ctx context.Context) {
	seq := p.seq.Add(1)

	if err := p.limiter.Wait(ctx); err != nil {
		return
	}

	markets, err := p.client.ListMarkets(ctx)
	if err != nil {
		// Previous catalog stays valid; the failure is scoped to this cycle.
		if ctx.Err() == nil {
			p.logger.Errorf("Error fetching markets: %v", err)
		}
		return
	}

	if p.latest.apply(seq, markets) {
		p.logger.Debugf("applied market catalog cycle %d with %d markets", seq, len(markets))
	}
}
