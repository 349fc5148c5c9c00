package cluster

import (
	"log/slog"
	"sync"
	"time"

	"github.com/DarrenVictoria/InfoUnityResponse-sub001/internal/domain"
	"github.com/DarrenVictoria/InfoUnityResponse-sub001/internal/observability"
)

// FeatureSource is the live report view the service indexes. Version must
// change whenever Features would.
type FeatureSource interface {
	Features() []domain.ReportFeature
	Version() uint64
}

// Service serves cluster and grouping queries against a cached index. The
// index is rebuilt only when the source version moves, so repeated queries
// during map panning reuse the same structure.
type Service struct {
	source  FeatureSource
	maxZoom int
	logger  *slog.Logger
	metrics *observability.Metrics

	mu       sync.Mutex
	index    *Index
	features []domain.ReportFeature
	version  uint64
	built    bool
}

func NewService(source FeatureSource, maxZoom int, logger *slog.Logger, metrics *observability.Metrics) *Service {
	return &Service{source: source, maxZoom: maxZoom, logger: logger, metrics: metrics}
}

func (s *Service) refresh() (*Index, []domain.ReportFeature) {
	s.mu.Lock()
	defer s.mu.Unlock()
	v := s.source.Version()
	if s.built && v == s.version {
		return s.index, s.features
	}
	features := s.source.Features()
	s.index = NewIndex(features, s.maxZoom)
	s.features = features
	s.version = v
	s.built = true
	s.logger.Debug("cluster index rebuilt", "features", len(features), "indexed", s.index.Len(), "version", v)
	return s.index, s.features
}

func (s *Service) Clusters(b Bounds, zoom int) []Node {
	start := time.Now()
	ix, _ := s.refresh()
	nodes := ix.Clusters(b, zoom)
	s.metrics.ClusterQueryDuration.Observe(time.Since(start).Seconds())
	return nodes
}

func (s *Service) Expand(clusterID uint64) []domain.ReportFeature {
	ix, _ := s.refresh()
	return ix.Expand(clusterID)
}

func (s *Service) Groups() []DistrictGroup {
	_, features := s.refresh()
	return GroupByAdministration(features)
}
