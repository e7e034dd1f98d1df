// SPDX-License-Identifier: LGPL-3.0-or-later

package storage

import (
	"context"
	"time"

	"github.com/veilmark/corevault/internal/logger"
)

// Sweeper periodically removes expired magic links, shared-secret
// rows, and tracking rows, grounded on the teacher's
// core/session.Manager cleanup-ticker idiom (a ticker goroutine plus a
// stop channel) but re-keyed to sweep this module's three stores
// instead of AEAD sessions.
type Sweeper struct {
	store    Store
	interval time.Duration
	log      logger.Logger

	ticker *time.Ticker
	stop   chan struct{}
}

// NewSweeper constructs a sweeper over store, running every interval.
func NewSweeper(store Store, interval time.Duration, log logger.Logger) *Sweeper {
	if log == nil {
		log = logger.GetDefaultLogger()
	}
	return &Sweeper{store: store, interval: interval, log: log, stop: make(chan struct{})}
}

// Start runs the sweep loop in a background goroutine until Stop is called.
func (s *Sweeper) Start() {
	s.ticker = time.NewTicker(s.interval)
	go s.run()
}

// Stop halts the sweep loop.
func (s *Sweeper) Stop() {
	if s.ticker != nil {
		s.ticker.Stop()
	}
	close(s.stop)
}

func (s *Sweeper) run() {
	for {
		select {
		case <-s.ticker.C:
			s.sweepOnce()
		case <-s.stop:
			return
		}
	}
}

// sweepOnce removes every row past its expiry across all three
// stores. Tracking rows are swept last since a shared-secret row pair
// being gone is what makes its tracking row collectible.
func (s *Sweeper) sweepOnce() {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if n, err := s.store.MagicLinks().DeleteExpired(ctx); err != nil {
		s.log.Warn("sweep: magic links", logger.Error(err))
	} else if n > 0 {
		s.log.Info("sweep: magic links removed", logger.Int("count", int(n)))
	}

	if n, err := s.store.SharedSecrets().DeleteExpired(ctx); err != nil {
		s.log.Warn("sweep: shared secrets", logger.Error(err))
	} else if n > 0 {
		s.log.Info("sweep: shared secrets removed", logger.Int("count", int(n)))
	}

	if n, err := s.store.Tracking().DeleteExpired(ctx); err != nil {
		s.log.Warn("sweep: tracking rows", logger.Error(err))
	} else if n > 0 {
		s.log.Info("sweep: tracking rows removed", logger.Int("count", int(n)))
	}
}
