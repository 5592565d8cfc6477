package llm

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"strings"
	"time"

	"github.com/raine/telegram-recycling-bot/internal/guide"
	"github.com/rs/zerolog/log"
)

// GuidanceCache is the subset of storage the cached provider needs.
type GuidanceCache interface {
	GetGuidanceCache(descriptionHash string) (*guide.Guidance, error)
	SetGuidanceCache(descriptionHash string, g *guide.Guidance) error
}

// CachedProvider wraps a GuidanceProvider with a persistent cache. Identical
// descriptions get the same stored answer until the entry is pruned.
type CachedProvider struct {
	inner GuidanceProvider
	cache GuidanceCache
}

// NewCachedProvider creates a cached provider.
func NewCachedProvider(inner GuidanceProvider, cache GuidanceCache) *CachedProvider {
	return &CachedProvider{inner: inner, cache: cache}
}

// HashDescription returns the cache key for a description.
func HashDescription(description string) string {
	sum := sha256.Sum256([]byte(strings.TrimSpace(description)))
	return hex.EncodeToString(sum[:])
}

// GetGuidance implements GuidanceProvider with caching. Cache failures are
// logged and never fail the request.
func (c *CachedProvider) GetGuidance(ctx context.Context, description string) (*GuidanceResult, error) {
	if strings.TrimSpace(description) == "" {
		return nil, ErrEmptyDescription
	}
	hash := HashDescription(description)

	if c.cache != nil {
		cached, err := c.cache.GetGuidanceCache(hash)
		if err != nil {
			log.Warn().Err(err).Msg("failed to check guidance cache")
		} else if cached != nil && cached.Validate() == nil {
			log.Debug().Str("hash", hash[:16]).Msg("guidance cache hit")
			return &GuidanceResult{Guidance: cached, Cached: true}, nil
		}
	}

	start := time.Now()
	result, err := c.inner.GetGuidance(ctx, description)
	if err != nil {
		return nil, err
	}

	if c.cache != nil && result.Guidance != nil {
		if err := c.cache.SetGuidanceCache(hash, result.Guidance); err != nil {
			log.Warn().Err(err).Msg("failed to cache guidance")
		} else {
			log.Debug().Str("hash", hash[:16]).Dur("elapsed", time.Since(start)).Msg("guidance cached")
		}
	}

	return result, nil
}
