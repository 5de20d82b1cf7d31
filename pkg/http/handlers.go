package http

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	z "github.com/Oudwins/zog"
	"github.com/Oudwins/zog/zhttp"

	"liyu1981.xyz/wfdb-catalog/pkg/common"
	"liyu1981.xyz/wfdb-catalog/pkg/models"
)

const (
	FormatJSON = "json"
	FormatText = "text"
)

var datasetSchema = z.String().OneOf(common.Mapper(models.Datasets, func(d models.Dataset) string {
	return string(d)
})).Required()

type SummaryQuery struct {
	Format string `json:"format"`
}

var summaryQuerySchema = z.Struct(z.Shape{
	"Format": z.String().OneOf([]string{FormatJSON, FormatText}).Default(FormatJSON),
})

func (rs *RestfulServer) GetSummary(c *gin.Context) {
	dataset := c.Param("dataset")
	if errs := datasetSchema.Validate(&dataset); len(errs) > 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": errs})
		return
	}

	if !rs.CheckDatasetLimiter(dataset) {
		c.Status(http.StatusTooManyRequests)
		return
	}

	var query SummaryQuery
	if errs := summaryQuerySchema.Parse(zhttp.Request(c.Request), &query); len(errs) > 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": errs})
		return
	}

	report, err := rs.Catalog.Summary.Summary(c.Request.Context(), models.Dataset(dataset))
	if err != nil {
		common.GetLoggerWith(common.LoggerNameRestfulServer).Error("Summary failed",
			zap.String("dataset", dataset), zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	if query.Format == FormatText {
		c.Header("Content-Type", "text/plain; charset=utf-8")
		c.Status(http.StatusOK)
		_ = report.Write(c.Writer)
		return
	}
	c.JSON(http.StatusOK, report)
}

// HealthCheck reports ok when the catalog database answers.
func (rs *RestfulServer) HealthCheck(c *gin.Context) {
	sqlDB, err := rs.Catalog.Db.Conn.DB()
	if err == nil {
		err = sqlDB.PingContext(c.Request.Context())
	}
	if err != nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"status": "unavailable", "error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}
