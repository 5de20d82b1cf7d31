package extract

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"sync"

	"go.uber.org/multierr"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
	"golang.org/x/time/rate"

	"liyu1981.xyz/wfdb-catalog/pkg/common"
	"liyu1981.xyz/wfdb-catalog/pkg/csvio"
	"liyu1981.xyz/wfdb-catalog/pkg/models"
	"liyu1981.xyz/wfdb-catalog/pkg/numerics"
	"liyu1981.xyz/wfdb-catalog/pkg/resolver"
	"liyu1981.xyz/wfdb-catalog/pkg/wfdb"
)

type Options struct {
	DataDir   string
	OutputDir string
	// RecordsFile, when set, switches to records-only mode: only the records
	// table is written, to this path.
	RecordsFile      string
	Workers          int
	ReadRate         float64 // records per second per shard, 0 = unthrottled
	SkipNumerics     bool
	RejectOutOfRange bool
}

func (o Options) RecordsOnly() bool {
	return o.RecordsFile != ""
}

// Report summarizes one run. Err combines the per-record failures; the run
// itself still succeeded.
type Report struct {
	Found    int
	Emitted  int
	Failed   []string
	Warnings int
	Rows     map[string]int64
	Err      error
}

type writers struct {
	records  *csvio.Writer[models.WaveformRecord]
	segments *csvio.Writer[models.WaveformSegment]
	signals  *csvio.Writer[models.WaveformSignalRow]
	numerics *csvio.Writer[models.WaveformNumeric]
}

func (w *writers) close() error {
	var err error
	if w.records != nil {
		err = multierr.Append(err, w.records.Close())
	}
	if w.segments != nil {
		err = multierr.Append(err, w.segments.Close())
	}
	if w.signals != nil {
		err = multierr.Append(err, w.signals.Close())
	}
	if w.numerics != nil {
		err = multierr.Append(err, w.numerics.Close())
	}
	return err
}

func (w *writers) rows() map[string]int64 {
	rows := map[string]int64{}
	if w.records != nil {
		rows[csvio.WaveformRecords.Name] = w.records.Rows()
	}
	if w.segments != nil {
		rows[csvio.WaveformSegments.Name] = w.segments.Rows()
	}
	if w.signals != nil {
		rows[csvio.WaveformSignals.Name] = w.signals.Rows()
	}
	if w.numerics != nil {
		rows[csvio.WaveformNumerics.Name] = w.numerics.Rows()
	}
	return rows
}

type Extractor struct {
	opts     Options
	limiters *common.RateLimiterStore
	logger   *zap.Logger
}

func New(opts Options) *Extractor {
	if opts.Workers <= 0 {
		opts.Workers = runtime.NumCPU()
	}
	e := &Extractor{
		opts: opts,
		logger: common.GetLoggerWith(
			common.LoggerNameExtractor,
			zap.String(common.LoggerFieldCategory, common.LoggerCategoryRecord),
		),
	}
	if opts.ReadRate > 0 {
		e.limiters = common.NewRateLimiterStore(rate.Limit(opts.ReadRate), int(opts.ReadRate))
	}
	return e
}

func (e *Extractor) open() (*writers, error) {
	w := &writers{}
	var err error

	if e.opts.RecordsOnly() {
		if w.records, err = csvio.CreatePath(e.opts.RecordsFile, csvio.WaveformRecords); err != nil {
			return nil, err
		}
		return w, nil
	}

	if err := os.MkdirAll(e.opts.OutputDir, 0o755); err != nil {
		return nil, fmt.Errorf("output directory: %w", err)
	}
	if w.records, err = csvio.CreateFile(e.opts.OutputDir, csvio.WaveformRecords); err != nil {
		return nil, multierr.Append(err, w.close())
	}
	if w.segments, err = csvio.CreateFile(e.opts.OutputDir, csvio.WaveformSegments); err != nil {
		return nil, multierr.Append(err, w.close())
	}
	if w.signals, err = csvio.CreateFile(e.opts.OutputDir, csvio.WaveformSignals); err != nil {
		return nil, multierr.Append(err, w.close())
	}
	if !e.opts.SkipNumerics {
		if w.numerics, err = csvio.CreateFile(e.opts.OutputDir, csvio.WaveformNumerics); err != nil {
			return nil, multierr.Append(err, w.close())
		}
	}
	return w, nil
}

// recordRows is everything one record contributes to the output.
type recordRows struct {
	record   models.WaveformRecord
	segments []models.WaveformSegment
	signals  []models.WaveformSignalRow
	numerics []models.WaveformNumeric
	warnings int
}

// Run discovers every record under DataDir and writes its rows. A record that
// fails to parse or is inconsistent is logged, left out of the output, and
// reported; the remaining records are still processed. Run returns an error
// only when the run as a whole cannot proceed or ctx is cancelled.
//
// Records are read in parallel but written in discovery order, so the same
// tree always produces the same files.
func (e *Extractor) Run(ctx context.Context) (*Report, error) {
	locations, err := Discover(e.opts.DataDir)
	if err != nil {
		return nil, err
	}
	if len(locations) == 0 {
		return nil, fmt.Errorf("no records found in %s", e.opts.DataDir)
	}
	e.logger.Info("Discovered records",
		zap.String("data_dir", e.opts.DataDir),
		zap.Int("records", len(locations)),
		zap.Bool("records_only", e.opts.RecordsOnly()),
	)

	w, err := e.open()
	if err != nil {
		return nil, err
	}

	var (
		mu       sync.Mutex
		failed   []string
		errs     error
		emitted  int
		warnings int
	)
	fail := func(loc Location, err error) {
		mu.Lock()
		defer mu.Unlock()
		e.logger.Error("Record failed", zap.String("record_id", loc.Name), zap.String("path", loc.RelPath), zap.Error(err))
		failed = append(failed, loc.Name)
		errs = multierr.Append(errs, fmt.Errorf("record %s: %w", loc.Name, err))
	}

	// turns[i] is closed once record i had its chance to write; record i+1
	// waits for it, which keeps the output in discovery order.
	turns := make([]chan struct{}, len(locations))
	for i := range turns {
		turns[i] = make(chan struct{})
	}

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(e.opts.Workers)
	for i, loc := range locations {
		if gctx.Err() != nil {
			break
		}
		g.Go(func() error {
			defer close(turns[i])

			rows, err := e.process(gctx, loc)
			if err != nil && gctx.Err() != nil {
				return gctx.Err()
			}
			if i > 0 {
				select {
				case <-turns[i-1]:
				case <-gctx.Done():
					return gctx.Err()
				}
			}

			// only the goroutine holding the turn gets here
			if err == nil {
				err = e.write(w, rows)
			}
			if err != nil {
				fail(loc, err)
				return nil
			}
			mu.Lock()
			emitted++
			warnings += rows.warnings
			mu.Unlock()
			return nil
		})
	}
	runErr := g.Wait()
	if runErr == nil {
		runErr = ctx.Err()
	}

	closeErr := w.close()
	if runErr != nil {
		return nil, runErr
	}
	if closeErr != nil {
		return nil, closeErr
	}

	report := &Report{
		Found:    len(locations),
		Emitted:  emitted,
		Failed:   failed,
		Warnings: warnings,
		Rows:     w.rows(),
		Err:      errs,
	}
	e.logger.Info("Extraction completed",
		zap.Int("found", report.Found),
		zap.Int("emitted", report.Emitted),
		zap.Int("failed", len(report.Failed)),
		zap.Int("warnings", report.Warnings),
	)
	return report, nil
}

// process parses and checks one record without writing anything.
func (e *Extractor) process(ctx context.Context, loc Location) (*recordRows, error) {
	if e.limiters != nil {
		if err := e.limiters.GetLimiter(loc.Shard()).Wait(ctx); err != nil {
			return nil, err
		}
	}

	dir := filepath.Join(e.opts.DataDir, filepath.FromSlash(loc.RelPath))
	rec, err := wfdb.ReadRecord(os.DirFS(dir), loc.Name, loc.SubjectID, loc.RelPath)
	if err != nil {
		return nil, err
	}

	rows := &recordRows{}
	rows.record, rows.segments, rows.signals = Rows(rec)
	if err := resolver.Check([]models.WaveformRecord{rows.record}, rows.segments, rows.signals); err != nil {
		return nil, err
	}
	if !e.opts.RecordsOnly() && !e.opts.SkipNumerics {
		rows.numerics, rows.warnings = e.readNumerics(dir, rec)
	}
	return rows, nil
}

func (e *Extractor) write(w *writers, rows *recordRows) error {
	if err := w.records.Write(rows.record); err != nil {
		return err
	}
	if e.opts.RecordsOnly() {
		return nil
	}
	if err := w.segments.Write(rows.segments...); err != nil {
		return err
	}
	if err := w.signals.Write(rows.signals...); err != nil {
		return err
	}
	if len(rows.numerics) > 0 {
		if err := w.numerics.Write(rows.numerics...); err != nil {
			return err
		}
	}

	e.logger.Debug("Record extracted",
		zap.String("record_id", rows.record.RecordID),
		zap.Int("segments", len(rows.segments)),
		zap.Int("signals", len(rows.signals)),
		zap.Int("numerics", len(rows.numerics)),
	)
	return nil
}

// readNumerics reads the record's numerics file if it has one. An unreadable
// file is logged and the record is emitted without numerics.
func (e *Extractor) readNumerics(dir string, rec *wfdb.ParsedRecord) ([]models.WaveformNumeric, int) {
	path, ok := numerics.Find(dir, rec.RecordID)
	if !ok {
		return nil, 0
	}

	sampler := numerics.NewSampler(rec.RecordID, rec.StartTime, rec.BaseCounterFreq, numerics.Options{
		RejectOutOfRange: e.opts.RejectOutOfRange,
	})
	res, err := sampler.ReadFile(path)
	if err != nil {
		e.logger.Warn("Numerics skipped", zap.String("record_id", rec.RecordID), zap.String("file", path), zap.Error(err))
		return nil, 0
	}
	return numerics.Rows(res.Samples), len(res.Warnings)
}
