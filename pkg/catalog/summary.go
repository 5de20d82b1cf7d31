package catalog

import (
	"context"
	"fmt"
	"io"
	"sort"
	"text/tabwriter"
	"time"

	"go.uber.org/zap"
	"gorm.io/gorm"

	"liyu1981.xyz/wfdb-catalog/pkg/common"
	"liyu1981.xyz/wfdb-catalog/pkg/models"
)

type TableSummary struct {
	Table      string     `json:"table"`
	Missing    bool       `json:"missing,omitempty"`
	Rows       int64      `json:"rows"`
	TimeColumn string     `json:"time_column,omitempty"`
	MinTime    *time.Time `json:"min_time,omitempty"`
	MaxTime    *time.Time `json:"max_time,omitempty"`
}

// Report is an observational snapshot of one dataset's tables.
type Report struct {
	Dataset     models.Dataset   `json:"dataset"`
	Tables      []TableSummary   `json:"tables"`
	SignalTypes map[string]int64 `json:"signal_types,omitempty"`
}

func (r *Report) Table(name string) (TableSummary, bool) {
	for _, t := range r.Tables {
		if t.Table == name {
			return t, true
		}
	}
	return TableSummary{}, false
}

var timeColumns = map[string]string{
	"waveform_records":         "start_datetime",
	"waveform_segments":        "segment_start_time",
	"waveform_numerics":        "measurement_time",
	"echo_record_list":         "acquisition_datetime",
	"echo_study_list":          "study_datetime",
	"ecg_record_list":          "ecg_time",
	"ecg_machine_measurements": "ecg_time",
	"ecg_diagnostic_labels":    "ecg_time",
}

const unknownSignalType = "unknown"

func (c *Catalog) summary(ctx context.Context, dataset models.Dataset) (*Report, error) {
	logger := common.GetLoggerWith(
		common.LoggerNameCatalog,
		zap.String(common.LoggerFieldCategory, common.LoggerCategorySummary),
	)

	report := &Report{Dataset: dataset}
	err := c.inDataset(ctx, dataset, false, func(tx *gorm.DB) error {
		for _, model := range dataset.Tables() {
			ts, err := summarizeTable(tx, model)
			if err != nil {
				return err
			}
			report.Tables = append(report.Tables, ts)
		}

		if dataset != models.DatasetWaveforms {
			return nil
		}
		if ts, _ := report.Table((models.WaveformSignal{}).TableName()); ts.Missing {
			return nil
		}
		hist, err := signalTypes(tx)
		if err != nil {
			return err
		}
		report.SignalTypes = hist
		return nil
	})
	if err != nil {
		logger.Error("Summary failed", zap.String("dataset", string(dataset)), zap.Error(err))
		return nil, err
	}

	for _, t := range report.Tables {
		logger.Info("Table summary", zap.String("table", t.Table), zap.Int64("rows", t.Rows), zap.Bool("missing", t.Missing))
	}
	return report, nil
}

func summarizeTable(tx *gorm.DB, model any) (TableSummary, error) {
	ts := TableSummary{Table: tableName(model)}
	if !tx.Migrator().HasTable(model) {
		ts.Missing = true
		return ts, nil
	}

	if err := tx.Model(model).Count(&ts.Rows).Error; err != nil {
		return ts, fmt.Errorf("count %s: %w", ts.Table, err)
	}

	col, ok := timeColumns[ts.Table]
	if !ok || ts.Rows == 0 {
		return ts, nil
	}
	ts.TimeColumn = col

	var err error
	if ts.MinTime, err = edgeTime(tx, ts.Table, col, "ASC"); err != nil {
		return ts, err
	}
	if ts.MaxTime, err = edgeTime(tx, ts.Table, col, "DESC"); err != nil {
		return ts, err
	}
	return ts, nil
}

func edgeTime(tx *gorm.DB, table, col, dir string) (*time.Time, error) {
	var times []time.Time
	err := tx.Table(table).
		Where(col + " IS NOT NULL").
		Order(col + " " + dir).
		Limit(1).
		Pluck(col, &times).Error
	if err != nil {
		return nil, fmt.Errorf("%s %s of %s: %w", dir, col, table, err)
	}
	if len(times) == 0 {
		return nil, nil
	}
	t := times[0].UTC()
	return &t, nil
}

func signalTypes(tx *gorm.DB) (map[string]int64, error) {
	var rows []struct {
		SignalType *string
		N          int64
	}
	err := tx.Model(&models.WaveformSignal{}).
		Select("signal_type, count(*) AS n").
		Group("signal_type").
		Scan(&rows).Error
	if err != nil {
		return nil, fmt.Errorf("signal type histogram: %w", err)
	}

	hist := make(map[string]int64, len(rows))
	for _, r := range rows {
		key := unknownSignalType
		if r.SignalType != nil && *r.SignalType != "" {
			key = *r.SignalType
		}
		hist[key] += r.N
	}
	return hist, nil
}

// Write renders the report as aligned text.
func (r *Report) Write(w io.Writer) error {
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintf(tw, "dataset %s\n", r.Dataset)
	fmt.Fprintln(tw, "TABLE\tROWS\tFIRST\tLAST")
	for _, t := range r.Tables {
		if t.Missing {
			fmt.Fprintf(tw, "%s\tmissing\t\t\n", t.Table)
			continue
		}
		fmt.Fprintf(tw, "%s\t%d\t%s\t%s\n", t.Table, t.Rows, fmtTime(t.MinTime), fmtTime(t.MaxTime))
	}

	if len(r.SignalTypes) > 0 {
		fmt.Fprintln(tw, "\nSIGNAL TYPE\tCOUNT")
		types := make([]string, 0, len(r.SignalTypes))
		for k := range r.SignalTypes {
			types = append(types, k)
		}
		sort.Strings(types)
		for _, k := range types {
			fmt.Fprintf(tw, "%s\t%d\n", k, r.SignalTypes[k])
		}
	}
	return tw.Flush()
}

func fmtTime(t *time.Time) string {
	if t == nil {
		return "-"
	}
	return common.FormatTime(*t)
}

type ISummaryImpl struct {
	catalog *Catalog
}

func (is *ISummaryImpl) Summary(ctx context.Context, dataset models.Dataset) (*Report, error) {
	return is.catalog.summary(ctx, dataset)
}

func (c *Catalog) GetISummary() ISummary {
	return &ISummaryImpl{catalog: c}
}
