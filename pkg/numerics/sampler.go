package numerics

import (
	"bufio"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"math"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/klauspost/compress/gzip"

	"liyu1981.xyz/wfdb-catalog/pkg/common"
)

// Options tune how values are emitted.
type Options struct {
	// RejectOutOfRange emits out-of-range vitals as NULL instead of passing
	// them through. They are reported either way.
	RejectOutOfRange bool
}

type Result struct {
	Samples  []Sample
	Warnings []DataQualityWarning
}

// Sampler turns one record's numerics export into Samples. A Sampler is not
// safe for concurrent use; workers create one per record.
type Sampler struct {
	RecordID    string
	BaseTime    *time.Time
	CounterFreq *float64

	opts     Options
	warnings []DataQualityWarning
}

// NewSampler returns a sampler for recordID. baseTime and counterFreq place
// counter ticks on the wall clock; either may be nil, then rows without an
// explicit timestamp get none.
func NewSampler(recordID string, baseTime *time.Time, counterFreq *float64, opts Options) *Sampler {
	return &Sampler{RecordID: recordID, BaseTime: baseTime, CounterFreq: counterFreq, opts: opts}
}

// FileName is the name of a record's gzip numerics export.
func FileName(recordID string) string {
	return recordID + "n.csv.gz"
}

// Find looks for the numerics file of recordID in dir, the gzip export first,
// then a plain csv.
func Find(dir, recordID string) (string, bool) {
	for _, name := range []string{FileName(recordID), recordID + "n.csv"} {
		p := filepath.Join(dir, name)
		if info, err := os.Stat(p); err == nil && !info.IsDir() {
			return p, true
		}
	}
	return "", false
}

func (s *Sampler) ReadFile(path string) (*Result, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("numerics: %s: %w", s.RecordID, err)
	}
	defer f.Close()
	return s.Read(f)
}

// Read parses a wide or long numerics table, plain or gzip compressed.
func (s *Sampler) Read(r io.Reader) (*Result, error) {
	s.warnings = nil

	br := bufio.NewReader(r)
	var src io.Reader = br
	if magic, err := br.Peek(2); err == nil && magic[0] == 0x1f && magic[1] == 0x8b {
		zr, err := gzip.NewReader(br)
		if err != nil {
			return nil, fmt.Errorf("numerics: %s: %w", s.RecordID, err)
		}
		defer zr.Close()
		src = zr
	}

	cr := csv.NewReader(src)
	cr.FieldsPerRecord = -1

	header, err := cr.Read()
	if errors.Is(err, io.EOF) {
		return &Result{}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("numerics: %s: read header: %w", s.RecordID, err)
	}

	lay := detectLayout(header)
	g := &grouper{entries: map[string]*entry{}}

	line := 1
	for {
		fields, err := cr.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("numerics: %s line %d: %w", s.RecordID, line+1, err)
		}
		line++
		s.readRow(lay, g, line, fields)
	}

	return &Result{Samples: g.samples(s.RecordID), Warnings: s.warnings}, nil
}

type metricColumn struct {
	index int
	name  string
	unit  *string
	field Field
}

type layout struct {
	ticks int
	clock int

	long    bool
	nameCol int
	valCol  int
	unitCol int

	metrics []metricColumn
}

var clockHeaders = map[string]bool{
	"timestamp":        true,
	"datetime":         true,
	"measurement_time": true,
	"charttime":        true,
	"wall_time":        true,
}

var ticksHeaders = map[string]bool{
	"counter":       true,
	"ticks":         true,
	"counter_ticks": true,
}

func detectLayout(header []string) layout {
	lay := layout{ticks: -1, clock: -1, nameCol: -1, valCol: -1, unitCol: -1}

	lower := make([]string, len(header))
	for i, h := range header {
		lower[i] = strings.ToLower(strings.TrimSpace(strings.TrimPrefix(h, "\ufeff")))
	}

	for i, h := range lower {
		switch {
		case ticksHeaders[h] && lay.ticks < 0:
			lay.ticks = i
		case (clockHeaders[h] || (h == "time" && i > 0)) && lay.clock < 0:
			lay.clock = i
		case h == "name" || h == "metric":
			lay.nameCol = i
		case h == "value":
			lay.valCol = i
		case h == "unit" || h == "units":
			lay.unitCol = i
		}
	}
	// the first column carries counter ticks unless it is something else
	if lay.ticks < 0 && len(lower) > 0 && lay.clock != 0 && lay.nameCol != 0 && lay.valCol != 0 {
		lay.ticks = 0
	}

	lay.long = lay.nameCol >= 0 && lay.valCol >= 0
	if lay.long {
		return lay
	}

	lay.nameCol, lay.valCol, lay.unitCol = -1, -1, -1
	for i, h := range header {
		if i == lay.ticks || i == lay.clock {
			continue
		}
		name, unit := SplitUnit(h)
		lay.metrics = append(lay.metrics, metricColumn{index: i, name: name, unit: unit, field: Classify(h)})
	}
	return lay
}

func cell(fields []string, i int) string {
	if i < 0 || i >= len(fields) {
		return ""
	}
	return strings.TrimSpace(fields[i])
}

func (s *Sampler) readRow(lay layout, g *grouper, line int, fields []string) {
	ticks := s.parseTicks(line, cell(fields, lay.ticks))
	at := s.timeOf(line, cell(fields, lay.clock), ticks)
	e := g.get(line, ticks, at)

	if lay.long {
		name := cell(fields, lay.nameCol)
		if name == "" {
			return
		}
		var unit *string
		if u := cell(fields, lay.unitCol); u != "" {
			unit = &u
		}
		s.observe(e, line, metricColumn{name: name, unit: unit, field: Classify(name)}, cell(fields, lay.valCol))
		return
	}

	for _, m := range lay.metrics {
		s.observe(e, line, m, cell(fields, m.index))
	}
}

func (s *Sampler) observe(e *entry, line int, m metricColumn, raw string) {
	if isMissing(raw) {
		return
	}
	v, err := strconv.ParseFloat(raw, 64)
	if err != nil || math.IsInf(v, 0) {
		s.warn(DataQualityWarning{
			Line:    line,
			Metric:  m.name,
			Value:   raw,
			Ticks:   e.ticks,
			Reason:  ReasonUnparseable,
			Message: fmt.Sprintf("%s value %q is not a number", m.name, raw),
		})
		return
	}

	if m.field == FieldNone {
		e.generics = append(e.generics, Generic{Name: m.name, Value: v, Unit: m.unit})
		return
	}

	if !s.checkRange(line, m.field, v, e.ticks) {
		return
	}
	if prev, conflict := e.vitals.set(m.field, v); conflict {
		s.warn(DataQualityWarning{
			Line:    line,
			Metric:  m.field.String(),
			Value:   raw,
			Ticks:   e.ticks,
			Reason:  ReasonConflict,
			Message: fmt.Sprintf("%s %v conflicts with %v at the same time, keeping the first", m.field, v, prev),
		})
	}
}

func isMissing(raw string) bool {
	switch strings.ToLower(raw) {
	case "", "nan", "na", "null", "-":
		return true
	}
	return false
}

func (s *Sampler) parseTicks(line int, raw string) *int64 {
	if raw == "" {
		return nil
	}
	if n, err := strconv.ParseInt(raw, 10, 64); err == nil {
		return &n
	}
	if f, err := strconv.ParseFloat(raw, 64); err == nil && !math.IsNaN(f) && !math.IsInf(f, 0) {
		n := int64(math.Round(f))
		return &n
	}

	s.warn(DataQualityWarning{
		Line:    line,
		Metric:  "counter_ticks",
		Value:   raw,
		Reason:  ReasonUnparseable,
		Message: fmt.Sprintf("counter ticks %q is not a number", raw),
	})
	return nil
}

var clockLayouts = []string{common.TimeLayout, "2006-01-02T15:04:05.999", time.RFC3339Nano}

// timeOf prefers an explicit wall-clock value and falls back to the record
// base time plus ticks over the counter frequency.
func (s *Sampler) timeOf(line int, raw string, ticks *int64) *time.Time {
	if raw != "" {
		for _, l := range clockLayouts {
			if t, err := time.ParseInLocation(l, raw, time.UTC); err == nil {
				t = t.UTC()
				return &t
			}
		}
		s.warn(DataQualityWarning{
			Line:    line,
			Metric:  "measurement_time",
			Value:   raw,
			Ticks:   ticks,
			Reason:  ReasonBadTime,
			Message: fmt.Sprintf("timestamp %q not understood, deriving from ticks", raw),
		})
	}

	if ticks == nil || s.BaseTime == nil || s.CounterFreq == nil || *s.CounterFreq <= 0 {
		return nil
	}
	offset := time.Duration(float64(*ticks) / *s.CounterFreq * float64(time.Second))
	t := s.BaseTime.Add(offset).Round(time.Millisecond)
	return &t
}
