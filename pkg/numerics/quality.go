package numerics

import (
	"fmt"
	"math"

	"go.uber.org/zap"

	"liyu1981.xyz/wfdb-catalog/pkg/common"
)

type Reason string

const (
	ReasonOutOfRange  Reason = "out_of_range"
	ReasonConflict    Reason = "conflicting_value"
	ReasonUnparseable Reason = "unparseable_value"
	ReasonBadTime     Reason = "bad_timestamp"
)

// Range is an inclusive plausible range for one vital.
type Range struct {
	Min, Max float64
}

func (r Range) Contains(v float64) bool {
	return v >= r.Min && v <= r.Max
}

var ranges = map[Field]Range{
	FieldHeartRate:     {0, 350},
	FieldRespRate:      {0, 200},
	FieldSpo2:          {0, 100},
	FieldNibpSystolic:  {0, 400},
	FieldNibpDiastolic: {0, 400},
	FieldNibpMean:      {0, 400},
	FieldAbpSystolic:   {0, 400},
	FieldAbpDiastolic:  {0, 400},
	FieldAbpMean:       {0, 400},
	FieldCVP:           {-20, 100},
	FieldEtCO2:         {0, 150},
	FieldTemperature:   {10, 50},
}

// PlausibleRange returns the range checked for f.
func PlausibleRange(f Field) (Range, bool) {
	r, ok := ranges[f]
	return r, ok
}

// DataQualityWarning flags a suspicious observation. It never stops a file
// from being read.
type DataQualityWarning struct {
	RecordID string
	Line     int
	Metric   string
	Value    string
	Ticks    *int64
	Reason   Reason
	Message  string
}

func (w DataQualityWarning) Error() string {
	return fmt.Sprintf("numerics: %s line %d: %s", w.RecordID, w.Line, w.Message)
}

func (s *Sampler) warn(w DataQualityWarning) {
	w.RecordID = s.RecordID

	logger := common.GetLoggerWith(
		common.LoggerNameNumerics,
		zap.String(common.LoggerFieldCategory, common.LoggerCategoryQuality),
	)
	logger.Warn("Data quality warning",
		zap.String("record_id", w.RecordID),
		zap.Int("line", w.Line),
		zap.String("metric", w.Metric),
		zap.String("value", w.Value),
		zap.String("reason", string(w.Reason)),
		zap.String("message", w.Message),
	)

	s.warnings = append(s.warnings, w)
}

// checkRange reports an out-of-range vital and tells whether it should be
// kept. A value its integer column cannot hold is never kept.
func (s *Sampler) checkRange(line int, f Field, v float64, ticks *int64) bool {
	if f.integer() && math.Abs(math.Round(v)) > math.MaxInt32 {
		s.warn(DataQualityWarning{
			Line:    line,
			Metric:  f.String(),
			Value:   fmt.Sprint(v),
			Ticks:   ticks,
			Reason:  ReasonOutOfRange,
			Message: fmt.Sprintf("%s %v does not fit an integer column, stored as NULL", f, v),
		})
		return false
	}

	r, ok := PlausibleRange(f)
	if !ok || r.Contains(v) {
		return true
	}

	s.warn(DataQualityWarning{
		Line:    line,
		Metric:  f.String(),
		Value:   fmt.Sprint(v),
		Ticks:   ticks,
		Reason:  ReasonOutOfRange,
		Message: fmt.Sprintf("%s %v outside plausible range [%v, %v]", f, v, r.Min, r.Max),
	})
	return !s.opts.RejectOutOfRange
}
