package session

import (
	"context"
	"time"

	"github.com/rs/zerolog/log"
)

// Sweeper is the periodic reclamation task. Each pass enumerates the
// session directories under the storage root and deletes any whose
// inactivity exceeds the TTL, pruning the registry entry in the same step.
// Best effort: a session may outlive its TTL by up to one sweep interval.
type Sweeper struct {
	manager  *Manager
	interval time.Duration
}

// NewSweeper returns a sweeper over the manager's store and registry.
func NewSweeper(manager *Manager, interval time.Duration) *Sweeper {
	return &Sweeper{manager: manager, interval: interval}
}

// Run sweeps immediately, then on every tick until ctx is cancelled.
// Intended to run as a single background goroutine.
func (s *Sweeper) Run(ctx context.Context) {
	log.Info().
		Dur("interval", s.interval).
		Dur("ttl", s.manager.TTL()).
		Msg("sweeper starting")

	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	s.Sweep(ctx)

	for {
		select {
		case <-ctx.Done():
			log.Info().Msg("sweeper shutting down")
			return
		case <-ticker.C:
			s.Sweep(ctx)
		}
	}
}

// Sweep performs one reclamation pass. A failure on one entry is logged and
// skipped; it never aborts the rest of the pass.
func (s *Sweeper) Sweep(ctx context.Context) {
	start := time.Now()

	tokens, err := s.manager.Store().Tokens()
	if err != nil {
		log.Error().Err(err).Msg("sweep failed to enumerate sessions")
		return
	}

	deleted := 0
	for _, token := range tokens {
		if ctx.Err() != nil {
			return
		}

		// Age comes from a fresh stat each pass, never a cached value, so a
		// session touched since the last tick is seen as fresh here.
		age, err := s.manager.Store().Age(token)
		if err != nil {
			log.Warn().Err(err).Str("token", token).Msg("skipping unreadable session entry")
			continue
		}
		if age <= s.manager.TTL() {
			continue
		}

		// Re-read the clock right before deleting to narrow the window in
		// which an upload that just touched the directory could be lost.
		if fresh, err := s.manager.Store().Age(token); err != nil || fresh <= s.manager.TTL() {
			continue
		}

		if err := s.manager.Remove(ctx, token); err != nil {
			log.Error().Err(err).Str("token", token).Msg("failed to delete expired session")
			continue
		}

		log.Info().Str("token", token).Dur("age", age).Msg("deleted expired session")
		deleted++
	}

	log.Debug().
		Int("scanned", len(tokens)).
		Int("deleted", deleted).
		Dur("duration", time.Since(start)).
		Msg("sweep complete")
}
