package wfdb

import (
	"errors"
	"io/fs"
	"testing"
	"testing/fstest"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func file(s string) *fstest.MapFile {
	return &fstest.MapFile{Data: []byte(s)}
}

func threeSegmentRecord() fstest.MapFS {
	return fstest.MapFS{
		"3000003.hea": file(`3000003/4 4 62.5/1000 300 13:40:07 12/03/2170
3000003_0000 0
3000003_0001 100
3000003_0002 150
3000003_0003 50
# subject_id 10014354
# hadm_id 20044587
`),
		"3000003_0001.hea": file(`3000003_0001 2 62.5 100
3000003_0001.dat 516 200(0)/mV 16 0 0 0 0 I
3000003_0001.dat 516 20(-2048)/mmHg 16 0 0 0 0 ABP
`),
		"3000003_0002.hea": file(`3000003_0002 4 62.5 150
3000003_0002.dat 516 200(0)/mV 16 0 0 0 0 V
3000003_0002.dat 516 4096(0)/NU 16 0 0 0 0 Pleth
3000003_0002.dat 516 200(0)/mV 16 0 0 0 0 II
3000003_0002.dat 516 1000(0)/Ohm 16 0 0 0 0 Resp
`),
		"3000003_0003.hea": file(`3000003_0003 1 62.5 50
3000003_0003.dat 516 1(0)/mmHg 16 0 0 0 0 CO2
`),
	}
}

func TestReadRecordThreeSegments(t *testing.T) {
	rec, err := ReadRecord(threeSegmentRecord(), "3000003", 99, "p10/p10014354/3000003")
	require.NoError(t, err)

	assert.Equal(t, "3000003", rec.RecordID)
	assert.Equal(t, int64(10014354), rec.SubjectID, "header subject id wins over directory")
	require.NotNil(t, rec.HadmID)
	assert.Equal(t, int64(20044587), *rec.HadmID)
	assert.Equal(t, "p10/p10014354/3000003", rec.FilePath)
	assert.Equal(t, "3000003.hea", rec.HeaderFile)
	assert.Equal(t, 1000.0, *rec.BaseCounterFreq)
	assert.Equal(t, 4.8, *rec.Duration)

	start := time.Date(2170, 3, 12, 13, 40, 7, 0, time.UTC)
	assert.True(t, start.Equal(*rec.StartTime))
	assert.True(t, start.Add(4800*time.Millisecond).Equal(*rec.EndTime))

	require.Len(t, rec.Segments, 3)
	for i, seg := range rec.Segments {
		assert.Equal(t, i+1, seg.Number)
	}

	seg2 := rec.Segments[1]
	assert.Equal(t, "3000003_0002", seg2.Name)
	assert.Equal(t, "3000003_0002.hea", seg2.HeaderFile)
	assert.Equal(t, "3000003_0002.dat", *seg2.DataFile)
	assert.Equal(t, 2.4, *seg2.Duration)
	assert.True(t, start.Add(1600*time.Millisecond).Equal(*seg2.StartTime))
	require.Len(t, seg2.Signals, 4)

	ii := seg2.Signals[2]
	assert.Equal(t, 2, ii.Index)
	assert.Equal(t, "II", ii.Name)
	assert.Equal(t, "mV", *ii.Units)
	assert.Equal(t, SignalTypeECG, ii.Type)

	assert.Equal(t, SignalTypePlethysmogram, seg2.Signals[1].Type)
	assert.Equal(t, SignalTypeRespiration, seg2.Signals[3].Type)
	assert.Equal(t, SignalTypeCapnography, rec.Segments[2].Signals[0].Type)
	assert.True(t, start.Add(4000*time.Millisecond).Equal(*rec.Segments[2].StartTime))
}

func TestReadRecordGapKeepsNumbering(t *testing.T) {
	fsys := fstest.MapFS{
		"rec.hea":      file("rec/4 1 100 600 00:00:00 01/01/2180\nrec_layout 0\nrec_0001 200\n~ 300\nrec_0003 100\n"),
		"rec_0001.hea": file("rec_0001 1 100 200\nrec_0001.dat 16 200/mV 16 0 0 0 0 II\n"),
		"rec_0003.hea": file("rec_0003 1 100 100\nrec_0003.dat 16 200/mV 16 0 0 0 0 II\n"),
	}

	rec, err := ReadRecord(fsys, "rec", 7, "p00/p00000007/rec")
	require.NoError(t, err)
	assert.Equal(t, int64(7), rec.SubjectID)
	assert.Nil(t, rec.HadmID)

	require.Len(t, rec.Segments, 2)
	assert.Equal(t, 1, rec.Segments[0].Number)
	assert.Equal(t, 3, rec.Segments[1].Number)
	// 200 + 300 gap samples at 100 Hz
	want := time.Date(2180, 1, 1, 0, 0, 5, 0, time.UTC)
	assert.True(t, want.Equal(*rec.Segments[1].StartTime))
}

func TestReadRecordWithoutLayoutStartsAtOne(t *testing.T) {
	fsys := fstest.MapFS{
		"rec.hea":   file("rec/2 1 100 20\nrec_a 10\nrec_b 10\n"),
		"rec_a.hea": file("rec_a 1 100 10\nrec_a.dat 16 200/mV 16 0 0 0 0 V\n"),
		"rec_b.hea": file("rec_b 1 100 10\nrec_b.dat 16 200/mV 16 0 0 0 0 V\n"),
	}

	rec, err := ReadRecord(fsys, "rec", 1, "x")
	require.NoError(t, err)
	require.Len(t, rec.Segments, 2)
	assert.Equal(t, 1, rec.Segments[0].Number)
	assert.Equal(t, 2, rec.Segments[1].Number)
	assert.Nil(t, rec.StartTime)
	assert.Nil(t, rec.Segments[0].StartTime)
}

func TestReadSingleSegmentRecord(t *testing.T) {
	fsys := fstest.MapFS{
		"solo.hea": file("solo 2 500 5000 10:00:00 02/02/2150\nsolo.dat 16 200/mV 16 0 0 0 0 II\nsolo.dat 16 200/mV 16 0 0 0 0\n# Hospital admission ID: 123\n"),
	}

	rec, err := ReadRecord(fsys, "solo", 5, "p00/p00000005/solo")
	require.NoError(t, err)
	assert.Equal(t, int64(123), *rec.HadmID)
	assert.Equal(t, 500.0, *rec.BaseCounterFreq)

	require.Len(t, rec.Segments, 1)
	seg := rec.Segments[0]
	assert.Equal(t, 1, seg.Number)
	assert.Equal(t, "solo", seg.Name)
	assert.Equal(t, 10.0, *seg.Duration)
	require.Len(t, seg.Signals, 2)
	assert.Equal(t, "solo, signal 1", seg.Signals[1].Name)
}

func TestReadRecordFailsWhole(t *testing.T) {
	fsys := threeSegmentRecord()
	fsys["3000003_0002.hea"] = file("3000003_0002 4 62.5 150\n3000003_0002.dat 516 200(0)/mV 16 0 0 0 0 V\n")

	rec, err := ReadRecord(fsys, "3000003", 1, "x")
	assert.Nil(t, rec)

	var pe *ParseError
	require.True(t, errors.As(err, &pe))
	assert.Equal(t, "3000003", pe.Record)
	assert.Equal(t, "3000003_0002", pe.Segment)
	assert.Contains(t, err.Error(), "truncated")
}

func TestReadRecordMissingSegmentFile(t *testing.T) {
	fsys := threeSegmentRecord()
	delete(fsys, "3000003_0003.hea")

	_, err := ReadRecord(fsys, "3000003", 1, "x")

	var pe *ParseError
	require.True(t, errors.As(err, &pe))
	assert.Equal(t, "3000003_0003", pe.Segment)
	assert.True(t, errors.Is(err, fs.ErrNotExist))
}

func TestCategorize(t *testing.T) {
	cases := map[string]SignalType{
		"II":    SignalTypeECG,
		"aVR":   SignalTypeECG,
		"V5":    SignalTypeECG,
		"MCL1":  SignalTypeECG,
		"ABP":   SignalTypePressure,
		"ICP":   SignalTypePressure,
		"PAP":   SignalTypePressure,
		"P1":    SignalTypePressure,
		"Pleth": SignalTypePlethysmogram,
		"Resp":  SignalTypeRespiration,
		"CO2":   SignalTypeCapnography,
		"etCO2": SignalTypeCapnography,
		"Temp":  SignalTypeOther,
	}
	for name, want := range cases {
		assert.Equal(t, want, Categorize(name), name)
	}
}
