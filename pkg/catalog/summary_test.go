package catalog_test

import (
	"bytes"
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"

	"liyu1981.xyz/wfdb-catalog/pkg/catalog"
	"liyu1981.xyz/wfdb-catalog/pkg/common"
	"liyu1981.xyz/wfdb-catalog/pkg/models"
)

func TestSummaryWaveforms(t *testing.T) {
	common.SetTestLoggerNop()

	cat := newCatalog(t, models.DatasetWaveforms)
	dir := t.TempDir()
	newWaveformFixture().write(t, dir, true)
	_, err := cat.Loader.Load(context.Background(), models.DatasetWaveforms, dir)
	require.NoError(t, err)

	report, err := cat.Summary.Summary(context.Background(), models.DatasetWaveforms)
	require.NoError(t, err)
	require.Len(t, report.Tables, 4)

	records, ok := report.Table("waveform_records")
	require.True(t, ok)
	assert.Equal(t, int64(2), records.Rows)
	assert.Equal(t, "start_datetime", records.TimeColumn)
	require.NotNil(t, records.MinTime)
	assert.True(t, at(0).Equal(*records.MinTime))
	assert.True(t, at(0).Equal(*records.MaxTime), "null start times are ignored")

	segments, _ := report.Table("waveform_segments")
	assert.Equal(t, int64(4), segments.Rows)
	assert.True(t, at(0).Equal(*segments.MinTime))
	assert.True(t, at(4000).Equal(*segments.MaxTime))

	signals, _ := report.Table("waveform_signals")
	assert.Equal(t, int64(8), signals.Rows)
	assert.Empty(t, signals.TimeColumn)
	assert.Nil(t, signals.MinTime)

	numerics, _ := report.Table("waveform_numerics")
	assert.Equal(t, int64(3), numerics.Rows)
	assert.True(t, at(1000).Equal(*numerics.MaxTime))

	assert.Equal(t, map[string]int64{
		"ECG":           4,
		"Pressure":      1,
		"Plethysmogram": 1,
		"Capnography":   1,
		"unknown":       1,
	}, report.SignalTypes)
}

func TestSummaryEmptyTables(t *testing.T) {
	common.SetTestLoggerNop()

	cat := newCatalog(t, models.DatasetEcho)

	report, err := cat.Summary.Summary(context.Background(), models.DatasetEcho)
	require.NoError(t, err)
	require.Len(t, report.Tables, 2)
	for _, ts := range report.Tables {
		assert.False(t, ts.Missing)
		assert.Zero(t, ts.Rows)
		assert.Nil(t, ts.MinTime)
		assert.Nil(t, ts.MaxTime)
	}
	assert.Nil(t, report.SignalTypes)
}

func TestSummaryMissingTables(t *testing.T) {
	common.SetTestLoggerNop()

	cat := newCatalog(t)

	report, err := cat.Summary.Summary(context.Background(), models.DatasetWaveforms)
	require.NoError(t, err)
	require.Len(t, report.Tables, 4)
	for _, ts := range report.Tables {
		assert.True(t, ts.Missing, ts.Table)
	}
	assert.Nil(t, report.SignalTypes)
}

func TestReportWrite(t *testing.T) {
	report := &catalog.Report{
		Dataset: models.DatasetWaveforms,
		Tables: []catalog.TableSummary{
			{Table: "waveform_records", Rows: 2, TimeColumn: "start_datetime", MinTime: at(0), MaxTime: at(1500)},
			{Table: "waveform_numerics", Missing: true},
		},
		SignalTypes: map[string]int64{"Pressure": 1, "ECG": 3},
	}

	var buf bytes.Buffer
	require.NoError(t, report.Write(&buf))
	out := buf.String()

	assert.Contains(t, out, "dataset waveforms")
	assert.Regexp(t, `waveform_records\s+2\s+2170-03-12 13:40:07\s+2170-03-12 13:40:08.5`, out)
	assert.Regexp(t, `waveform_numerics\s+missing`, out)
	assert.Less(t, bytes.Index(buf.Bytes(), []byte("ECG")), bytes.Index(buf.Bytes(), []byte("Pressure")))
}

func TestSummaryThroughMockedServices(t *testing.T) {
	common.SetTestLoggerNop()

	ctrl, cat, mockISchema, mockILoader, mockISummary := GetMockCatalogWithMemorySqliteDialector(t, true, true, true)
	defer ctrl.Finish()

	want := &catalog.Report{Dataset: models.DatasetECG}
	gomock.InOrder(
		mockISchema.EXPECT().CreateSchema(gomock.Any(), models.DatasetECG).Return(nil),
		mockILoader.EXPECT().Load(gomock.Any(), models.DatasetECG, "/csv").Return(nil, errors.New("boom")),
		mockISummary.EXPECT().Summary(gomock.Any(), models.DatasetECG).Return(want, nil),
	)

	ctx := context.Background()
	require.NoError(t, cat.Schema.CreateSchema(ctx, models.DatasetECG))
	_, err := cat.Loader.Load(ctx, models.DatasetECG, "/csv")
	assert.EqualError(t, err, "boom")
	got, err := cat.Summary.Summary(ctx, models.DatasetECG)
	require.NoError(t, err)
	assert.Same(t, want, got)
}
