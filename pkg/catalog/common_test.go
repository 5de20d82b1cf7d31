package catalog_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"

	"liyu1981.xyz/wfdb-catalog/pkg/catalog"
	"liyu1981.xyz/wfdb-catalog/pkg/catalog/mocks"
	"liyu1981.xyz/wfdb-catalog/pkg/common"
	"liyu1981.xyz/wfdb-catalog/pkg/csvio"
	"liyu1981.xyz/wfdb-catalog/pkg/db"
	"liyu1981.xyz/wfdb-catalog/pkg/models"
	_ "liyu1981.xyz/wfdb-catalog/pkg/testing"
)

// small batches so multi-batch inserts are exercised
const testBatchSize = 2

func GetMockCatalogWithMemorySqliteDialector(t *testing.T, useMockISchema, useMockILoader, useMockISummary bool) (
	*gomock.Controller,
	*catalog.Catalog,
	*mocks.MockISchema,
	*mocks.MockILoader,
	*mocks.MockISummary,
) {
	ctrl := gomock.NewController(t)

	mockISchema := mocks.NewMockISchema(ctrl)
	mockILoader := mocks.NewMockILoader(ctrl)
	mockISummary := mocks.NewMockISummary(ctrl)

	dbInstance, err := db.Open(db.UseMemorySqliteDialector())
	require.NoError(t, err)
	t.Cleanup(func() { _ = dbInstance.Close() })

	catalogInstance := catalog.New(dbInstance, testBatchSize)

	opts := catalog.ServiceOpts{}
	if useMockISchema {
		opts.Schema = mockISchema
	}
	if useMockILoader {
		opts.Loader = mockILoader
	}
	if useMockISummary {
		opts.Summary = mockISummary
	}
	catalogInstance.WithServices(opts)

	return ctrl, catalogInstance, mockISchema, mockILoader, mockISummary
}

func newCatalog(t *testing.T, datasets ...models.Dataset) *catalog.Catalog {
	t.Helper()
	_, cat, _, _, _ := GetMockCatalogWithMemorySqliteDialector(t, false, false, false)
	for _, d := range datasets {
		require.NoError(t, cat.Schema.CreateSchema(context.Background(), d))
	}
	return cat
}

func writeTable[T any](t *testing.T, dir string, table csvio.Table[T], rows ...T) {
	t.Helper()
	w, err := csvio.CreateFile(dir, table)
	require.NoError(t, err)
	require.NoError(t, w.Write(rows...))
	require.NoError(t, w.Close())
}

var scenarioStart = time.Date(2170, 3, 12, 13, 40, 7, 0, time.UTC)

func at(ms int) *time.Time {
	t := scenarioStart.Add(time.Duration(ms) * time.Millisecond)
	return &t
}

type waveformFixture struct {
	records  []models.WaveformRecord
	segments []models.WaveformSegment
	signals  []models.WaveformSignalRow
	numerics []models.WaveformNumeric
}

func newWaveformFixture() *waveformFixture {
	ecg, pressure, pleth := common.Ptr("ECG"), common.Ptr("Pressure"), common.Ptr("Plethysmogram")
	return &waveformFixture{
		records: []models.WaveformRecord{
			{
				RecordID: "3000003", SubjectID: 10014354, HadmID: common.Ptr(int64(20044587)),
				StartDatetime: at(0), EndDatetime: at(4800), RecordDurationSec: common.Ptr(4.8),
				FilePath: "p10/p10014354/3000003", HeaderFile: "3000003.hea",
				BaseCounterFreq: common.Ptr(1000.0), NumSegments: 3,
			},
			{
				RecordID: "3000004", SubjectID: 10014354,
				FilePath: "p10/p10014354/3000004", HeaderFile: "3000004.hea", NumSegments: 1,
			},
		},
		segments: []models.WaveformSegment{
			{RecordID: "3000003", SegmentName: "3000003_0001", SegmentNum: 1, SegmentStartTime: at(0), NumSignals: 2},
			{RecordID: "3000003", SegmentName: "3000003_0002", SegmentNum: 2, SegmentStartTime: at(1600), NumSignals: 4},
			{RecordID: "3000003", SegmentName: "3000003_0003", SegmentNum: 3, SegmentStartTime: at(4000), NumSignals: 1},
			{RecordID: "3000004", SegmentName: "3000004", SegmentNum: 1, NumSignals: 1},
		},
		signals: []models.WaveformSignalRow{
			{RecordID: "3000003", SegmentNum: 1, SignalIndex: 0, SignalName: "I", SignalUnits: common.Ptr("mV"), SignalType: ecg},
			{RecordID: "3000003", SegmentNum: 1, SignalIndex: 1, SignalName: "ABP", SignalUnits: common.Ptr("mmHg"), SignalType: pressure},
			{RecordID: "3000003", SegmentNum: 2, SignalIndex: 0, SignalName: "V", SignalUnits: common.Ptr("mV"), SignalType: ecg},
			{RecordID: "3000003", SegmentNum: 2, SignalIndex: 1, SignalName: "Pleth", SignalType: pleth},
			{RecordID: "3000003", SegmentNum: 2, SignalIndex: 2, SignalName: "II", SignalUnits: common.Ptr("mV"), SignalType: ecg},
			{RecordID: "3000003", SegmentNum: 2, SignalIndex: 3, SignalName: "Resp"},
			{RecordID: "3000003", SegmentNum: 3, SignalIndex: 0, SignalName: "CO2", SignalType: common.Ptr("Capnography")},
			{RecordID: "3000004", SegmentNum: 1, SignalIndex: 0, SignalName: "II", SignalType: ecg},
		},
		numerics: []models.WaveformNumeric{
			{RecordID: "3000003", MeasurementTime: at(0), CounterTicks: common.Ptr(int64(0)), Spo2: common.Ptr(97)},
			{RecordID: "3000003", MeasurementTime: at(0), CounterTicks: common.Ptr(int64(0)), MeasurementName: common.Ptr("PVI"), MeasurementValue: common.Ptr(12.5), MeasurementUnit: common.Ptr("%")},
			{RecordID: "3000003", MeasurementTime: at(1000), CounterTicks: common.Ptr(int64(1000)), HeartRate: common.Ptr(72)},
		},
	}
}

func (f *waveformFixture) write(t *testing.T, dir string, withNumerics bool) {
	t.Helper()
	writeTable(t, dir, csvio.WaveformRecords, f.records...)
	writeTable(t, dir, csvio.WaveformSegments, f.segments...)
	writeTable(t, dir, csvio.WaveformSignals, f.signals...)
	if withNumerics {
		writeTable(t, dir, csvio.WaveformNumerics, f.numerics...)
	}
}
