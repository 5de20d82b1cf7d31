package catalog_test

import (
	"bytes"
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zapcore"
	"gorm.io/gorm"

	"liyu1981.xyz/wfdb-catalog/pkg/common"
	"liyu1981.xyz/wfdb-catalog/pkg/models"
	wftesting "liyu1981.xyz/wfdb-catalog/pkg/testing"
)

type schemaObject struct {
	Type    string
	Name    string
	TblName string
	SQL     *string
}

func schemaObjects(t *testing.T, conn *gorm.DB) []schemaObject {
	t.Helper()
	var objs []schemaObject
	err := conn.Raw(`SELECT type, name, tbl_name, sql FROM sqlite_master WHERE name NOT LIKE 'sqlite_%' ORDER BY type, name`).
		Scan(&objs).Error
	require.NoError(t, err)
	return objs
}

func TestCreateSchemaTwiceIsIdempotent(t *testing.T) {
	common.SetTestLoggerNop()

	cat := newCatalog(t, models.Datasets...)
	first := schemaObjects(t, cat.Db.Conn)

	for _, d := range models.Datasets {
		require.NoError(t, cat.Schema.CreateSchema(context.Background(), d))
	}
	second := schemaObjects(t, cat.Db.Conn)

	assert.Equal(t, first, second)

	names := map[string]bool{}
	for _, o := range second {
		names[o.Name] = true
	}
	for _, table := range []string{
		"waveform_records", "waveform_segments", "waveform_signals", "waveform_numerics",
		"echo_record_list", "echo_study_list",
		"ecg_record_list", "ecg_machine_measurements", "ecg_diagnostic_labels",
		"uq_segment_record_num", "uq_signal_segment_index",
	} {
		assert.True(t, names[table], "missing %s", table)
	}

	for _, d := range models.Datasets {
		for _, model := range d.Tables() {
			var n int64
			require.NoError(t, cat.Db.Conn.Model(model).Count(&n).Error)
			assert.Zero(t, n)
		}
	}
}

func TestCreateSchemaClearsLoadedRows(t *testing.T) {
	common.SetTestLoggerNop()

	cat := newCatalog(t, models.DatasetWaveforms)
	dir := t.TempDir()
	newWaveformFixture().write(t, dir, true)
	_, err := cat.Loader.Load(context.Background(), models.DatasetWaveforms, dir)
	require.NoError(t, err)

	require.NoError(t, cat.Schema.CreateSchema(context.Background(), models.DatasetWaveforms))

	var n int64
	require.NoError(t, cat.Db.Conn.Model(&models.WaveformSignal{}).Count(&n).Error)
	assert.Zero(t, n)
	require.NoError(t, cat.Db.Conn.Model(&models.WaveformRecord{}).Count(&n).Error)
	assert.Zero(t, n)
}

func TestCreateSchemaOnlyTouchesItsDataset(t *testing.T) {
	common.SetTestLoggerNop()

	cat := newCatalog(t, models.DatasetEcho)
	assert.True(t, cat.Db.Conn.Migrator().HasTable("echo_record_list"))
	assert.False(t, cat.Db.Conn.Migrator().HasTable("waveform_records"))
	assert.False(t, cat.Db.Conn.Migrator().HasTable("ecg_record_list"))
}

func TestCreateSchemaLogs(t *testing.T) {
	var buf bytes.Buffer
	common.SetTestCaptureLogger(&buf, zapcore.InfoLevel)

	newCatalog(t, models.DatasetECG)

	var found bool
	for _, l := range wftesting.ParseLogs(&buf) {
		if l["msg"] != "Created schema" {
			continue
		}
		found = true
		assert.Equal(t, "catalog", l["logger"])
		assert.Equal(t, "schema", l["category"])
		assert.Equal(t, "ecg", l["dataset"])
		assert.Len(t, l["tables"], 3)
	}
	assert.True(t, found, "expected a Created schema log line")
}
