package grpc

import (
	"golang.org/x/time/rate"
	"google.golang.org/grpc"
	"google.golang.org/grpc/health"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"

	"liyu1981.xyz/wfdb-catalog/pkg/catalog"
	"liyu1981.xyz/wfdb-catalog/pkg/common"
	"liyu1981.xyz/wfdb-catalog/pkg/models"
)

// ServicePrefix prefixes the per dataset health service names,
// e.g. wfcatalog.waveforms.
const ServicePrefix = "wfcatalog."

func ServiceName(dataset models.Dataset) string {
	return ServicePrefix + string(dataset)
}

// CatalogServer serves the standard gRPC health protocol. The overall service
// ("") is SERVING while the database answers; each dataset is SERVING once all
// of its tables exist.
type CatalogServer struct {
	Catalog          *catalog.Catalog
	Health           *health.Server
	RateLimiterStore *common.RateLimiterStore
}

func NewCatalogServer(cat *catalog.Catalog, limiter *common.RateLimiterStore) *CatalogServer {
	s := &CatalogServer{
		Catalog:          cat,
		Health:           health.NewServer(),
		RateLimiterStore: limiter,
	}
	for _, d := range models.Datasets {
		s.Health.SetServingStatus(ServiceName(d), healthpb.HealthCheckResponse_UNKNOWN)
	}
	return s
}

func (s *CatalogServer) Register(gs *grpc.Server) {
	healthpb.RegisterHealthServer(gs, s.Health)
}

func (s *CatalogServer) GetLimiter(service string) *rate.Limiter {
	if s.RateLimiterStore == nil {
		return nil
	} else {
		return s.RateLimiterStore.GetLimiter(service)
	}
}

func (s *CatalogServer) CheckServiceLimiter(service string) bool {
	limiter := s.GetLimiter(service)
	if limiter == nil {
		return true
	}
	return limiter.Allow()
}
