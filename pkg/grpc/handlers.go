package grpc

import (
	"context"
	"time"

	"go.uber.org/multierr"
	"go.uber.org/zap"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"

	"liyu1981.xyz/wfdb-catalog/pkg/common"
	"liyu1981.xyz/wfdb-catalog/pkg/models"
)

// Refresh recomputes every serving status from the catalog.
func (s *CatalogServer) Refresh(ctx context.Context) error {
	logger := common.GetLoggerWith(common.LoggerNameGrpcServer)

	var errs error
	if err := s.ping(ctx); err != nil {
		s.Health.SetServingStatus("", healthpb.HealthCheckResponse_NOT_SERVING)
		for _, d := range models.Datasets {
			s.Health.SetServingStatus(ServiceName(d), healthpb.HealthCheckResponse_NOT_SERVING)
		}
		logger.Error("Database unavailable", zap.Error(err))
		return err
	}
	s.Health.SetServingStatus("", healthpb.HealthCheckResponse_SERVING)

	for _, d := range models.Datasets {
		status := healthpb.HealthCheckResponse_SERVING
		report, err := s.Catalog.Summary.Summary(ctx, d)
		if err != nil {
			errs = multierr.Append(errs, err)
			status = healthpb.HealthCheckResponse_NOT_SERVING
		} else {
			for _, t := range report.Tables {
				if t.Missing {
					status = healthpb.HealthCheckResponse_NOT_SERVING
					break
				}
			}
		}
		s.Health.SetServingStatus(ServiceName(d), status)
		logger.Debug("Dataset status", zap.String("dataset", string(d)), zap.String("status", status.String()))
	}
	return errs
}

func (s *CatalogServer) ping(ctx context.Context) error {
	sqlDB, err := s.Catalog.Db.Conn.DB()
	if err != nil {
		return err
	}
	return sqlDB.PingContext(ctx)
}

// RunRefresher refreshes the statuses every interval until ctx is done, then
// marks everything NOT_SERVING.
func (s *CatalogServer) RunRefresher(ctx context.Context, every time.Duration) {
	ticker := time.NewTicker(every)
	defer ticker.Stop()

	_ = s.Refresh(ctx)
	for {
		select {
		case <-ctx.Done():
			s.Health.Shutdown()
			return
		case <-ticker.C:
			_ = s.Refresh(ctx)
		}
	}
}
