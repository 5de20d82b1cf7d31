package extract

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"testing"
	"time"

	"github.com/klauspost/compress/gzip"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/multierr"

	"liyu1981.xyz/wfdb-catalog/pkg/catalog"
	"liyu1981.xyz/wfdb-catalog/pkg/common"
	"liyu1981.xyz/wfdb-catalog/pkg/csvio"
	"liyu1981.xyz/wfdb-catalog/pkg/db"
	"liyu1981.xyz/wfdb-catalog/pkg/models"
	"liyu1981.xyz/wfdb-catalog/pkg/resolver"
	_ "liyu1981.xyz/wfdb-catalog/pkg/testing"
	"liyu1981.xyz/wfdb-catalog/pkg/wfdb"
)

func writeFile(t *testing.T, path, content string) {
	t.Helper()
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
}

func writeGzip(t *testing.T, path, content string) {
	t.Helper()
	f, err := os.Create(path)
	require.NoError(t, err)
	zw := gzip.NewWriter(f)
	_, err = zw.Write([]byte(content))
	require.NoError(t, err)
	require.NoError(t, zw.Close())
	require.NoError(t, f.Close())
}

// dataDir builds a small waves tree: a three segment record with numerics, a
// single segment record, a record whose segment header is missing, and some
// directories that do not fit the layout.
func dataDir(t *testing.T) string {
	t.Helper()
	root := t.TempDir()

	rec3 := filepath.Join(root, "p10", "p10014354", "3000003")
	writeFile(t, filepath.Join(rec3, "3000003.hea"), `3000003/4 4 62.5/1000 300 13:40:07 12/03/2170
3000003_0000 0
3000003_0001 100
3000003_0002 150
3000003_0003 50
# subject_id 10014354
# hadm_id 20044587
`)
	writeFile(t, filepath.Join(rec3, "3000003_0001.hea"), `3000003_0001 2 62.5 100
3000003_0001.dat 516 200(0)/mV 16 0 0 0 0 I
3000003_0001.dat 516 20(-2048)/mmHg 16 0 0 0 0 ABP
`)
	writeFile(t, filepath.Join(rec3, "3000003_0002.hea"), `3000003_0002 4 62.5 150
3000003_0002.dat 516 200(0)/mV 16 0 0 0 0 V
3000003_0002.dat 516 4096(0)/NU 16 0 0 0 0 Pleth
3000003_0002.dat 516 200(0)/mV 16 0 0 0 0 II
3000003_0002.dat 516 1000(0)/Ohm 16 0 0 0 0 Resp
`)
	writeFile(t, filepath.Join(rec3, "3000003_0003.hea"), `3000003_0003 1 62.5 50
3000003_0003.dat 516 1(0)/mmHg 16 0 0 0 0 CO2
`)
	writeGzip(t, filepath.Join(rec3, "3000003n.csv.gz"), "time,HR [bpm],SpO2 [%],PVI [%]\n"+
		"0,,97,12.5\n"+
		"1000,72,,\n"+
		"2000,,150,\n")

	rec4 := filepath.Join(root, "p10", "p10014354", "3000004")
	writeFile(t, filepath.Join(rec4, "3000004.hea"), `3000004 1 125 250 10:00:00 01/01/2180
3000004.dat 16 200(0)/mV 16 0 0 0 0 II
`)

	writeFile(t, filepath.Join(root, "p11", "p11000001", "3000010", "3000010.hea"), `3000010/2 1 62.5 100
3000010_0001 100
3000010_0002 0
`)

	// not part of the layout
	require.NoError(t, os.MkdirAll(filepath.Join(root, "p10", "p10014354", "3000099"), 0o755))
	require.NoError(t, os.MkdirAll(filepath.Join(root, "p10", "pending", "3000100"), 0o755))
	writeFile(t, filepath.Join(root, "README"), "waves\n")
	return root
}

func TestDiscover(t *testing.T) {
	locs, err := Discover(dataDir(t))
	require.NoError(t, err)

	assert.Equal(t, []Location{
		{RelPath: "p10/p10014354/3000003", Name: "3000003", SubjectID: 10014354},
		{RelPath: "p10/p10014354/3000004", Name: "3000004", SubjectID: 10014354},
		{RelPath: "p11/p11000001/3000010", Name: "3000010", SubjectID: 11000001},
	}, locs)
	assert.Equal(t, "p11", locs[2].Shard())
}

func TestDiscoverMissingDir(t *testing.T) {
	_, err := Discover(filepath.Join(t.TempDir(), "nope"))
	assert.Error(t, err)
}

func TestRows(t *testing.T) {
	dir := filepath.Join(dataDir(t), "p10", "p10014354", "3000003")
	rec, err := wfdb.ReadRecord(os.DirFS(dir), "3000003", 10014354, "p10/p10014354/3000003")
	require.NoError(t, err)

	record, segments, signals := Rows(rec)
	assert.Equal(t, 3, record.NumSegments)
	assert.Len(t, segments, 3)
	assert.Len(t, signals, 7)
	require.NoError(t, resolver.Check([]models.WaveformRecord{record}, segments, signals))

	assert.Equal(t, "3000003_0002.hea", *segments[1].SegmentHeaderFile)
	assert.Equal(t, "3000003_0002.dat", *segments[1].SegmentDataFile)
	assert.Equal(t, 4, segments[1].NumSignals)

	ii := signals[4]
	assert.Equal(t, 2, ii.SegmentNum)
	assert.Equal(t, 2, ii.SignalIndex)
	assert.Equal(t, "II", ii.SignalName)
	assert.Equal(t, "mV", *ii.SignalUnits)
	assert.Equal(t, "ECG", *ii.SignalType)
	// the signal name already carries the header description
	assert.Nil(t, ii.SignalDescription)
}

func TestRunWritesAndRoundTrips(t *testing.T) {
	common.SetTestLoggerNop()

	data, out := dataDir(t), t.TempDir()
	report, err := New(Options{DataDir: data, OutputDir: out, Workers: 3}).Run(context.Background())
	require.NoError(t, err)

	assert.Equal(t, 3, report.Found)
	assert.Equal(t, 2, report.Emitted)
	assert.Equal(t, []string{"3000010"}, report.Failed)
	assert.Equal(t, 1, report.Warnings, "spo2 of 150 is out of range")
	require.Error(t, report.Err)
	var pe *wfdb.ParseError
	assert.True(t, errors.As(report.Err, &pe))
	assert.Len(t, multierr.Errors(report.Err), 1)

	assert.Equal(t, map[string]int64{
		"waveform_records":  2,
		"waveform_segments": 4,
		"waveform_signals":  8,
		"waveform_numerics": 4,
	}, report.Rows)

	records, err := csvio.ReadFile(out, csvio.WaveformRecords)
	require.NoError(t, err)
	segments, err := csvio.ReadFile(out, csvio.WaveformSegments)
	require.NoError(t, err)
	signals, err := csvio.ReadFile(out, csvio.WaveformSignals)
	require.NoError(t, err)
	numerics, err := csvio.ReadFile(out, csvio.WaveformNumerics)
	require.NoError(t, err)

	require.NoError(t, resolver.Check(records, segments, signals))
	known := resolver.NewRecordSet(records)
	for _, n := range numerics {
		assert.True(t, known.Has(n.RecordID), n.RecordID)
	}

	type channel struct {
		Record       string
		Segment, Idx int
		Name         string
	}
	var got []channel
	for _, s := range signals {
		if s.RecordID == "3000003" {
			got = append(got, channel{s.RecordID, s.SegmentNum, s.SignalIndex, s.SignalName})
		}
	}
	sort.Slice(got, func(i, j int) bool {
		if got[i].Segment != got[j].Segment {
			return got[i].Segment < got[j].Segment
		}
		return got[i].Idx < got[j].Idx
	})
	assert.Equal(t, []channel{
		{"3000003", 1, 0, "I"},
		{"3000003", 1, 1, "ABP"},
		{"3000003", 2, 0, "V"},
		{"3000003", 2, 1, "Pleth"},
		{"3000003", 2, 2, "II"},
		{"3000003", 2, 3, "Resp"},
		{"3000003", 3, 0, "CO2"},
	}, got)

	var hr *models.WaveformNumeric
	for i := range numerics {
		if numerics[i].HeartRate != nil {
			hr = &numerics[i]
		}
	}
	require.NotNil(t, hr)
	assert.Equal(t, 72, *hr.HeartRate)
	assert.Equal(t, int64(1000), *hr.CounterTicks)
	assert.True(t, time.Date(2170, 3, 12, 13, 40, 8, 0, time.UTC).Equal(*hr.MeasurementTime))
}

func TestRunOutputIsReproducible(t *testing.T) {
	common.SetTestLoggerNop()

	data := t.TempDir()
	var want []string
	for i := range 40 {
		subject := fmt.Sprintf("p1%d%07d", i%3, i)
		name := fmt.Sprintf("40%05d", i)
		writeFile(t, filepath.Join(data, subject[:3], subject, name, name+".hea"),
			name+" 1 125 250 10:00:00 01/01/2180\n"+name+".dat 16 200(0)/mV 16 0 0 0 0 II\n")
		writeGzip(t, filepath.Join(data, subject[:3], subject, name, name+"n.csv.gz"), "time,HR [bpm]\n0,70\n1000,71\n")
	}
	locations, err := Discover(data)
	require.NoError(t, err)
	for _, loc := range locations {
		want = append(want, loc.Name)
	}

	run := func() string {
		out := t.TempDir()
		report, err := New(Options{DataDir: data, OutputDir: out, Workers: 8}).Run(context.Background())
		require.NoError(t, err)
		require.Equal(t, 40, report.Emitted)
		return out
	}
	first, second := run(), run()

	for _, file := range []string{
		csvio.WaveformRecords.File,
		csvio.WaveformSegments.File,
		csvio.WaveformSignals.File,
		csvio.WaveformNumerics.File,
	} {
		a, err := os.ReadFile(filepath.Join(first, file))
		require.NoError(t, err)
		b, err := os.ReadFile(filepath.Join(second, file))
		require.NoError(t, err)
		assert.Equal(t, string(a), string(b), file)
	}

	records, err := csvio.ReadFile(first, csvio.WaveformRecords)
	require.NoError(t, err)
	got := common.Mapper(records, func(r models.WaveformRecord) string { return r.RecordID })
	assert.Equal(t, want, got, "records follow discovery order")
}

func TestRunSkipNumerics(t *testing.T) {
	common.SetTestLoggerNop()

	out := t.TempDir()
	report, err := New(Options{DataDir: dataDir(t), OutputDir: out, SkipNumerics: true}).Run(context.Background())
	require.NoError(t, err)

	_, ok := report.Rows["waveform_numerics"]
	assert.False(t, ok)
	assert.NoFileExists(t, filepath.Join(out, csvio.WaveformNumerics.File))
	assert.Zero(t, report.Warnings)
}

func TestRunRecordsOnly(t *testing.T) {
	common.SetTestLoggerNop()

	out := t.TempDir()
	file := filepath.Join(out, "records.csv")
	report, err := New(Options{DataDir: dataDir(t), RecordsFile: file, Workers: 1}).Run(context.Background())
	require.NoError(t, err)
	assert.Equal(t, map[string]int64{"waveform_records": 2}, report.Rows)

	assert.NoFileExists(t, filepath.Join(out, csvio.WaveformSegments.File))

	f, err := os.Open(file)
	require.NoError(t, err)
	defer f.Close()
	r, err := csvio.NewReader(f, csvio.WaveformRecords)
	require.NoError(t, err)
	records, err := r.ReadAll()
	require.NoError(t, err)
	require.Len(t, records, 2)

	sort.Slice(records, func(i, j int) bool { return records[i].RecordID < records[j].RecordID })
	assert.Equal(t, int64(20044587), *records[0].HadmID)
	assert.Equal(t, 3, records[0].NumSegments)
	assert.Equal(t, 2.0, *records[1].RecordDurationSec)
}

func TestRunNoRecords(t *testing.T) {
	common.SetTestLoggerNop()

	_, err := New(Options{DataDir: t.TempDir(), OutputDir: t.TempDir()}).Run(context.Background())
	assert.ErrorContains(t, err, "no records found")
}

func TestRunCancelled(t *testing.T) {
	common.SetTestLoggerNop()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := New(Options{DataDir: dataDir(t), OutputDir: t.TempDir()}).Run(ctx)
	assert.ErrorIs(t, err, context.Canceled)
}

func TestRunThrottled(t *testing.T) {
	common.SetTestLoggerNop()

	report, err := New(Options{DataDir: dataDir(t), OutputDir: t.TempDir(), ReadRate: 100}).Run(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 2, report.Emitted)
}

// The extractor output loads into the catalog as is.
func TestExtractThenLoad(t *testing.T) {
	common.SetTestLoggerNop()

	out := t.TempDir()
	_, err := New(Options{DataDir: dataDir(t), OutputDir: out}).Run(context.Background())
	require.NoError(t, err)

	d, err := db.Open(db.UseMemorySqliteDialector())
	require.NoError(t, err)
	t.Cleanup(func() { _ = d.Close() })

	cat := catalog.New(d, 0)
	require.NoError(t, cat.Schema.CreateSchema(context.Background(), models.DatasetWaveforms))
	report, err := cat.Loader.Load(context.Background(), models.DatasetWaveforms, out)
	require.NoError(t, err)
	assert.Equal(t, int64(8), report.Rows("waveform_signals"))

	var segmentNum int
	err = d.Conn.Table("waveform_signals AS s").
		Select("g.segment_num").
		Joins("JOIN waveform_segments g ON g.segment_id = s.segment_id").
		Where("g.record_id = ? AND s.signal_name = ?", "3000003", "II").
		Scan(&segmentNum).Error
	require.NoError(t, err)
	assert.Equal(t, 2, segmentNum)
}
