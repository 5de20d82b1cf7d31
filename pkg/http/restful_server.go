package http

import (
	"github.com/gin-gonic/gin"
	"golang.org/x/time/rate"

	"liyu1981.xyz/wfdb-catalog/pkg/catalog"
	"liyu1981.xyz/wfdb-catalog/pkg/common"
)

type RestfulServer struct {
	Server           *gin.Engine
	Catalog          *catalog.Catalog
	RateLimiterStore *common.RateLimiterStore
}

func (rs *RestfulServer) GetLimiter(dataset string) *rate.Limiter {
	if rs.RateLimiterStore == nil {
		return nil
	} else {
		return rs.RateLimiterStore.GetLimiter(dataset)
	}
}

// CheckDatasetLimiter throttles summary queries per dataset; each one counts
// every table of the dataset.
func (rs *RestfulServer) CheckDatasetLimiter(dataset string) bool {
	limiter := rs.GetLimiter(dataset)
	if limiter == nil {
		return true
	}
	return limiter.Allow()
}

func (rs *RestfulServer) Setup() {
	rs.Server.GET("/healthz", rs.HealthCheck)

	datasets := rs.Server.Group("/datasets/:dataset")
	{
		datasets.GET("/summary", rs.GetSummary)
	}
}
