package maintenance

import (
	"context"
	"time"

	"github.com/rs/zerolog/log"
)

// PruneInterval is how often expired guidance cache entries are removed.
const PruneInterval = 24 * time.Hour

// CachePruner removes guidance cache entries older than maxAge and reports
// how many were deleted.
type CachePruner interface {
	PruneGuidanceCache(maxAge time.Duration) (int64, error)
}

// Service is the background housekeeping loop.
type Service struct {
	store    CachePruner
	maxAge   time.Duration
	interval time.Duration
}

// NewService creates a maintenance service that keeps cached guidance for
// at most maxAge.
func NewService(store CachePruner, maxAge time.Duration) *Service {
	return &Service{
		store:    store,
		maxAge:   maxAge,
		interval: PruneInterval,
	}
}

// Run prunes once immediately and then every PruneInterval. It blocks until
// the context is cancelled and always returns nil, so it can run under an
// errgroup without tearing the process down.
func (s *Service) Run(ctx context.Context) error {
	log.Info().Dur("interval", s.interval).Dur("maxAge", s.maxAge).Msg("starting maintenance service")

	s.pruneGuidanceCache()

	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			log.Info().Msg("maintenance service stopped")
			return nil
		case <-ticker.C:
			s.pruneGuidanceCache()
		}
	}
}

// pruneGuidanceCache removes old cached answers to prevent database bloat.
func (s *Service) pruneGuidanceCache() {
	count, err := s.store.PruneGuidanceCache(s.maxAge)
	if err != nil {
		log.Error().Err(err).Msg("failed to prune guidance cache")
		return
	}
	if count > 0 {
		log.Info().Int64("pruned", count).Msg("pruned guidance cache")
	}
}
