package usecases

import (
	"context"
	"fmt"

	"github.com/bluele/gcache"

	"github.com/samirrijal/metromap/internal/core/domain"
	"github.com/samirrijal/metromap/internal/core/ports"
	"github.com/samirrijal/metromap/internal/pkg/metrics"
)

// IconService serves station icon markup per icon kind.
type IconService struct {
	fetcher ports.AssetFetcher
	cache   gcache.Cache
}

// NewIconService creates a new IconService caching up to size icons.
func NewIconService(fetcher ports.AssetFetcher, size int) *IconService {
	if size <= 0 {
		size = 16
	}
	return &IconService{
		fetcher: fetcher,
		cache:   gcache.New(size).LRU().Build(),
	}
}

// Icon returns the markup for a line type id or the crossing kind. Failed
// fetches are not cached.
func (s *IconService) Icon(ctx context.Context, kind string) ([]byte, error) {
	path, ok := domain.IconPath(kind)
	if !ok {
		return nil, fmt.Errorf("%w: %q", domain.ErrUnknownIconKind, kind)
	}

	if v, err := s.cache.Get(kind); err == nil {
		metrics.CacheHits.WithLabelValues("icon").Inc()
		return v.([]byte), nil
	}
	metrics.CacheMisses.WithLabelValues("icon").Inc()

	data, err := s.fetcher.Fetch(ctx, path)
	if err != nil {
		return nil, fmt.Errorf("fetch icon %s: %w", path, err)
	}
	_ = s.cache.Set(kind, data)
	return data, nil
}
