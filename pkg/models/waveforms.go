package models

import "time"

type WaveformRecord struct {
	RecordID          string     `gorm:"column:record_id;primaryKey;type:varchar(50)"`
	SubjectID         int64      `gorm:"column:subject_id;not null;index:idx_waveform_records_subject"`
	HadmID            *int64     `gorm:"column:hadm_id;index:idx_waveform_records_hadm"`
	StartDatetime     *time.Time `gorm:"column:start_datetime;index:idx_waveform_records_start"`
	EndDatetime       *time.Time `gorm:"column:end_datetime"`
	RecordDurationSec *float64   `gorm:"column:record_duration_sec"`
	FilePath          string     `gorm:"column:file_path;type:varchar(255);not null"`
	HeaderFile        string     `gorm:"column:header_file;type:varchar(100)"`
	BaseCounterFreq   *float64   `gorm:"column:base_counter_freq"`
	NumSegments       int        `gorm:"column:num_segments"`

	Segments []WaveformSegment `gorm:"foreignKey:RecordID;references:RecordID;constraint:OnDelete:CASCADE;"`
	Numerics []WaveformNumeric `gorm:"foreignKey:RecordID;references:RecordID;constraint:OnDelete:CASCADE;"`
}

func (WaveformRecord) TableName() string { return "waveform_records" }

type WaveformSegment struct {
	SegmentID          int64      `gorm:"column:segment_id;primaryKey;autoIncrement"`
	RecordID           string     `gorm:"column:record_id;type:varchar(50);not null;uniqueIndex:uq_segment_record_num,priority:1"`
	SegmentName        string     `gorm:"column:segment_name;type:varchar(100)"`
	SegmentNum         int        `gorm:"column:segment_num;not null;uniqueIndex:uq_segment_record_num,priority:2"`
	SegmentStartTime   *time.Time `gorm:"column:segment_start_time;index:idx_waveform_segments_start"`
	SegmentDurationSec *float64   `gorm:"column:segment_duration_sec"`
	SegmentHeaderFile  *string    `gorm:"column:segment_header_file;type:varchar(100)"`
	SegmentDataFile    *string    `gorm:"column:segment_data_file;type:varchar(100)"`
	SamplingFrequency  *float64   `gorm:"column:sampling_frequency"`
	NumSignals         int        `gorm:"column:num_signals"`

	Signals []WaveformSignal `gorm:"foreignKey:SegmentID;references:SegmentID;constraint:OnDelete:CASCADE;"`
}

func (WaveformSegment) TableName() string { return "waveform_segments" }

type WaveformSignal struct {
	SignalID            int64    `gorm:"column:signal_id;primaryKey;autoIncrement"`
	SegmentID           int64    `gorm:"column:segment_id;not null;uniqueIndex:uq_signal_segment_index,priority:1"`
	SignalName          string   `gorm:"column:signal_name;type:varchar(50);not null;index:idx_waveform_signals_name"`
	SignalIndex         int      `gorm:"column:signal_index;not null;uniqueIndex:uq_signal_segment_index,priority:2"`
	SignalUnits         *string  `gorm:"column:signal_units;type:varchar(20)"`
	SignalGain          *float64 `gorm:"column:signal_gain"`
	SignalBaseline      *int     `gorm:"column:signal_baseline"`
	SignalAdcResolution *int     `gorm:"column:signal_adc_resolution"`
	SignalDescription   *string  `gorm:"column:signal_description;type:text"`
	SignalType          *string  `gorm:"column:signal_type;type:varchar(30);index:idx_waveform_signals_type"`
}

func (WaveformSignal) TableName() string { return "waveform_signals" }

// WaveformSignalRow is a signal addressed by its segment's natural key, the
// shape signals have in CSV before the segment surrogate id is known.
type WaveformSignalRow struct {
	RecordID            string
	SegmentNum          int
	SignalName          string
	SignalIndex         int
	SignalUnits         *string
	SignalGain          *float64
	SignalBaseline      *int
	SignalAdcResolution *int
	SignalDescription   *string
	SignalType          *string
}

// WithSegment turns the row into a table row owned by segmentID.
func (r WaveformSignalRow) WithSegment(segmentID int64) WaveformSignal {
	return WaveformSignal{
		SegmentID:           segmentID,
		SignalName:          r.SignalName,
		SignalIndex:         r.SignalIndex,
		SignalUnits:         r.SignalUnits,
		SignalGain:          r.SignalGain,
		SignalBaseline:      r.SignalBaseline,
		SignalAdcResolution: r.SignalAdcResolution,
		SignalDescription:   r.SignalDescription,
		SignalType:          r.SignalType,
	}
}

type WaveformNumeric struct {
	NumericID        int64      `gorm:"column:numeric_id;primaryKey;autoIncrement"`
	RecordID         string     `gorm:"column:record_id;type:varchar(50);not null;index:idx_waveform_numerics_record"`
	MeasurementTime  *time.Time `gorm:"column:measurement_time;index:idx_waveform_numerics_time"`
	CounterTicks     *int64     `gorm:"column:counter_ticks"`
	HeartRate        *int       `gorm:"column:heart_rate"`
	RespRate         *int       `gorm:"column:resp_rate"`
	Spo2             *int       `gorm:"column:spo2"`
	NibpSystolic     *int       `gorm:"column:nibp_systolic"`
	NibpDiastolic    *int       `gorm:"column:nibp_diastolic"`
	NibpMean         *int       `gorm:"column:nibp_mean"`
	AbpSystolic      *int       `gorm:"column:abp_systolic"`
	AbpDiastolic     *int       `gorm:"column:abp_diastolic"`
	AbpMean          *int       `gorm:"column:abp_mean"`
	Cvp              *float64   `gorm:"column:cvp"`
	Etco2            *float64   `gorm:"column:etco2"`
	Temperature      *float64   `gorm:"column:temperature"`
	MeasurementName  *string    `gorm:"column:measurement_name;type:varchar(100)"`
	MeasurementValue *float64   `gorm:"column:measurement_value"`
	MeasurementUnit  *string    `gorm:"column:measurement_unit;type:varchar(20)"`
}

func (WaveformNumeric) TableName() string { return "waveform_numerics" }
