package catalog

import (
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"liyu1981.xyz/wfdb-catalog/pkg/common"
	"liyu1981.xyz/wfdb-catalog/pkg/csvio"
	"liyu1981.xyz/wfdb-catalog/pkg/models"
	"liyu1981.xyz/wfdb-catalog/pkg/resolver"
)

// StepReport is the outcome of loading one table.
type StepReport struct {
	Table   string
	File    string
	Rows    int64
	Skipped bool
}

// LoadReport describes one load. A failed load still returns its report:
// Steps then lists what ran before the error, and RolledBack tells that those
// rows were undone with the transaction.
type LoadReport struct {
	Dataset    models.Dataset
	BatchID    string
	Steps      []StepReport
	Warnings   int
	RolledBack bool
}

// Rows returns the rows loaded into table, or 0 when the step did not run.
func (r *LoadReport) Rows(table string) int64 {
	for _, s := range r.Steps {
		if s.Table == table {
			return s.Rows
		}
	}
	return 0
}

func (r *LoadReport) add(table, file string, rows int64) {
	r.Steps = append(r.Steps, StepReport{Table: table, File: file, Rows: rows})
}

func (r *LoadReport) skip(table, file string) {
	r.Steps = append(r.Steps, StepReport{Table: table, File: file, Skipped: true})
}

// load reads the dataset's CSV files from csvDir, validates them and inserts
// them in dependency order. Everything is validated before the first insert,
// and all inserts share one transaction: a failed step leaves nothing behind.
func (c *Catalog) load(ctx context.Context, dataset models.Dataset, csvDir string) (*LoadReport, error) {
	logger := common.GetLoggerWith(
		common.LoggerNameCatalog,
		zap.String(common.LoggerFieldCategory, common.LoggerCategoryLoad),
	)

	report := &LoadReport{Dataset: dataset, BatchID: uuid.NewString()}
	if csvDir == "" {
		return report, errors.New("csv directory is required")
	}
	if info, err := os.Stat(csvDir); err != nil || !info.IsDir() {
		return report, fmt.Errorf("csv directory %s not found", csvDir)
	}

	logger = logger.With(zap.String("dataset", string(dataset)), zap.String("batch_id", report.BatchID))
	logger.Info("Load started", zap.String("csv_dir", csvDir))

	var err error
	switch dataset {
	case models.DatasetWaveforms:
		err = c.loadWaveforms(ctx, csvDir, report, logger)
	case models.DatasetEcho:
		err = c.loadEcho(ctx, csvDir, report, logger)
	case models.DatasetECG:
		err = c.loadECG(ctx, csvDir, report, logger)
	default:
		err = fmt.Errorf("unknown dataset %q", dataset)
	}
	if err != nil {
		report.RolledBack = len(report.Steps) > 0
		logger.Error("Load failed", zap.Error(err), zap.Int("steps_rolled_back", len(report.Steps)))
		return report, err
	}

	for _, s := range report.Steps {
		logger.Info("Load step", zap.String("table", s.Table), zap.Int64("rows", s.Rows), zap.Bool("skipped", s.Skipped))
	}
	logger.Info("Load completed", zap.Int("warnings", report.Warnings))
	return report, nil
}

func (c *Catalog) loadWaveforms(ctx context.Context, dir string, report *LoadReport, logger *zap.Logger) error {
	records, err := csvio.ReadFile(dir, csvio.WaveformRecords)
	if err != nil {
		return err
	}
	segments, err := csvio.ReadFile(dir, csvio.WaveformSegments)
	if err != nil {
		return err
	}
	signals, err := csvio.ReadFile(dir, csvio.WaveformSignals)
	if err != nil {
		return err
	}
	// numerics can be far larger than memory; only the header is checked
	// here, the rows are checked while they stream in
	hasNumerics := fileExists(dir, csvio.WaveformNumerics.File)
	if hasNumerics {
		if err := csvio.CheckHeader(dir, csvio.WaveformNumerics); err != nil {
			return err
		}
	}

	if err := resolver.Check(records, segments, signals); err != nil {
		return err
	}
	logger.Info("Validated waveform files",
		zap.Int("records", len(records)),
		zap.Int("segments", len(segments)),
		zap.Int("signals", len(signals)),
		zap.Bool("numerics", hasNumerics),
	)

	return c.inDataset(ctx, models.DatasetWaveforms, false, func(tx *gorm.DB) error {
		n, err := insert(tx, records, c.BatchSize)
		if err != nil {
			return fmt.Errorf("load %s: %w", csvio.WaveformRecords.Name, err)
		}
		report.add(csvio.WaveformRecords.Name, csvio.WaveformRecords.File, n)

		n, err = insert(tx, segments, c.BatchSize)
		if err != nil {
			return fmt.Errorf("load %s: %w", csvio.WaveformSegments.Name, err)
		}
		report.add(csvio.WaveformSegments.Name, csvio.WaveformSegments.File, n)

		// second phase: the store has assigned segment ids, join signals to them
		var persisted []models.WaveformSegment
		if err := tx.Model(&models.WaveformSegment{}).
			Select("segment_id", "record_id", "segment_num").
			Find(&persisted).Error; err != nil {
			return fmt.Errorf("read back %s: %w", csvio.WaveformSegments.Name, err)
		}
		ix, err := resolver.NewSegmentIndex(persisted)
		if err != nil {
			return err
		}
		resolved, err := ix.Resolve(signals)
		if err != nil {
			return err
		}
		n, err = insert(tx, resolved, c.BatchSize)
		if err != nil {
			return fmt.Errorf("load %s: %w", csvio.WaveformSignals.Name, err)
		}
		report.add(csvio.WaveformSignals.Name, csvio.WaveformSignals.File, n)

		if !hasNumerics {
			report.skip(csvio.WaveformNumerics.Name, csvio.WaveformNumerics.File)
			return nil
		}
		n, err = streamNumerics(tx, dir, resolver.NewRecordSet(records), c.BatchSize)
		if err != nil {
			return fmt.Errorf("load %s: %w", csvio.WaveformNumerics.Name, err)
		}
		report.add(csvio.WaveformNumerics.Name, csvio.WaveformNumerics.File, n)
		return nil
	})
}

// streamNumerics inserts the numerics file batchSize rows at a time as it is
// read. A row for a record outside known fails the load; the caller's
// transaction undoes the chunks already inserted.
func streamNumerics(tx *gorm.DB, dir string, known resolver.RecordSet, batchSize int) (int64, error) {
	r, err := csvio.OpenFile(dir, csvio.WaveformNumerics)
	if err != nil {
		return 0, err
	}
	defer r.Close()

	var total int64
	chunk := make([]models.WaveformNumeric, 0, batchSize)
	flush := func() error {
		n, err := insert(tx, chunk, batchSize)
		total += n
		chunk = chunk[:0]
		return err
	}

	for {
		row, err := r.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return total, err
		}
		if !known.Has(row.RecordID) {
			return total, fmt.Errorf("line %d: %w", r.Line(), &resolver.OrphanReferenceError{
				Table:  csvio.WaveformNumerics.Name,
				Parent: csvio.WaveformRecords.Name,
				Keys:   []string{row.RecordID},
			})
		}
		chunk = append(chunk, row)
		if len(chunk) == batchSize {
			if err := flush(); err != nil {
				return total, err
			}
		}
	}
	if err := flush(); err != nil {
		return total, err
	}
	return total, nil
}

func (c *Catalog) loadEcho(ctx context.Context, dir string, report *LoadReport, logger *zap.Logger) error {
	records, err := csvio.ReadFile(dir, csvio.EchoRecords)
	if err != nil {
		return err
	}
	studies, err := csvio.ReadFile(dir, csvio.EchoStudies)
	if err != nil {
		return err
	}
	logger.Info("Validated echo files", zap.Int("records", len(records)), zap.Int("studies", len(studies)))

	return c.inDataset(ctx, models.DatasetEcho, false, func(tx *gorm.DB) error {
		n, err := insert(tx, records, c.BatchSize)
		if err != nil {
			return fmt.Errorf("load %s: %w", csvio.EchoRecords.Name, err)
		}
		report.add(csvio.EchoRecords.Name, csvio.EchoRecords.File, n)

		n, err = insert(tx, studies, c.BatchSize)
		if err != nil {
			return fmt.Errorf("load %s: %w", csvio.EchoStudies.Name, err)
		}
		report.add(csvio.EchoStudies.Name, csvio.EchoStudies.File, n)
		return nil
	})
}

func (c *Catalog) loadECG(ctx context.Context, dir string, report *LoadReport, logger *zap.Logger) error {
	records, err := csvio.ReadFile(dir, csvio.ECGRecords)
	if err != nil {
		return err
	}
	measurements, err := csvio.ReadFile(dir, csvio.ECGMachineMeasurements)
	if err != nil {
		return err
	}
	labels, hasLabels, err := readOptional(dir, csvio.ECGDiagnosticLabels)
	if err != nil {
		return err
	}

	quality := common.GetLoggerWith(
		common.LoggerNameCatalog,
		zap.String(common.LoggerFieldCategory, common.LoggerCategoryQuality),
	)
	// the record list has no key, so repeated studies load as they are
	seen := make(map[int64]int, len(records))
	for _, r := range records {
		seen[r.StudyID]++
		if seen[r.StudyID] == 2 {
			report.Warnings++
			quality.Warn("Duplicate study id in record list", zap.Int64("study_id", r.StudyID))
		}
	}
	for _, m := range measurements {
		if bad := m.Reading().Intervals.OutOfOrder(); len(bad) > 0 {
			report.Warnings++
			quality.Warn("Interval markers out of order",
				zap.Int64("study_id", m.StudyID),
				zap.String("markers", strings.Join(bad, ",")),
			)
		}
	}
	logger.Info("Validated ecg files",
		zap.Int("records", len(records)),
		zap.Int("measurements", len(measurements)),
		zap.Int("labels", len(labels)),
	)

	return c.inDataset(ctx, models.DatasetECG, false, func(tx *gorm.DB) error {
		n, err := insert(tx, records, c.BatchSize)
		if err != nil {
			return fmt.Errorf("load %s: %w", csvio.ECGRecords.Name, err)
		}
		report.add(csvio.ECGRecords.Name, csvio.ECGRecords.File, n)

		n, err = insert(tx, measurements, c.BatchSize)
		if err != nil {
			return fmt.Errorf("load %s: %w", csvio.ECGMachineMeasurements.Name, err)
		}
		report.add(csvio.ECGMachineMeasurements.Name, csvio.ECGMachineMeasurements.File, n)

		if !hasLabels {
			report.skip(csvio.ECGDiagnosticLabels.Name, csvio.ECGDiagnosticLabels.File)
			return nil
		}
		n, err = insert(tx, labels, c.BatchSize)
		if err != nil {
			return fmt.Errorf("load %s: %w", csvio.ECGDiagnosticLabels.Name, err)
		}
		report.add(csvio.ECGDiagnosticLabels.Name, csvio.ECGDiagnosticLabels.File, n)
		return nil
	})
}

func fileExists(dir, file string) bool {
	_, err := os.Stat(filepath.Join(dir, file))
	return !errors.Is(err, fs.ErrNotExist)
}

// readOptional reads a table whose file may be absent.
func readOptional[T any](dir string, table csvio.Table[T]) ([]T, bool, error) {
	if !fileExists(dir, table.File) {
		return nil, false, nil
	}
	rows, err := csvio.ReadFile(dir, table)
	if err != nil {
		return nil, false, err
	}
	return rows, true, nil
}

func insert[T any](tx *gorm.DB, rows []T, batchSize int) (int64, error) {
	if len(rows) == 0 {
		return 0, nil
	}
	if err := tx.Statement.Context.Err(); err != nil {
		return 0, err
	}
	res := tx.CreateInBatches(rows, batchSize)
	return res.RowsAffected, res.Error
}

type ILoaderImpl struct {
	catalog *Catalog
}

func (il *ILoaderImpl) Load(ctx context.Context, dataset models.Dataset, csvDir string) (*LoadReport, error) {
	return il.catalog.load(ctx, dataset, csvDir)
}

func (c *Catalog) GetILoader() ILoader {
	return &ILoaderImpl{catalog: c}
}
