package csvio

import (
	"fmt"

	"liyu1981.xyz/wfdb-catalog/pkg/models"
)

// Table describes one CSV file: its destination table, ordered columns and
// how a row maps to fields. Columns beyond MinColumns may be missing from a
// file's header as a trailing group; their fields then decode as empty.
type Table[T any] struct {
	Name       string
	File       string
	Columns    []string
	MinColumns int
	Encode     func(T) []string
	Decode     func(d *decoder) T
}

func (t Table[T]) minColumns() int {
	if t.MinColumns == 0 {
		return len(t.Columns)
	}
	return t.MinColumns
}

var WaveformRecords = Table[models.WaveformRecord]{
	Name: "waveform_records",
	File: "waveform_records.csv",
	Columns: []string{
		"record_id", "subject_id", "hadm_id", "start_datetime", "end_datetime",
		"record_duration_sec", "file_path", "header_file", "base_counter_freq", "num_segments",
	},
	Encode: func(r models.WaveformRecord) []string {
		return []string{
			r.RecordID, fmt.Sprint(r.SubjectID), encInt64(r.HadmID), encTime(r.StartDatetime), encTime(r.EndDatetime),
			encFloat(r.RecordDurationSec), r.FilePath, r.HeaderFile, encFloat(r.BaseCounterFreq), fmt.Sprint(r.NumSegments),
		}
	},
	Decode: func(d *decoder) models.WaveformRecord {
		return models.WaveformRecord{
			RecordID:          d.str(),
			SubjectID:         d.int64(),
			HadmID:            d.optInt64(),
			StartDatetime:     d.optTime(),
			EndDatetime:       d.optTime(),
			RecordDurationSec: d.optFloat(),
			FilePath:          d.str(),
			HeaderFile:        deref(d.optStr()),
			BaseCounterFreq:   d.optFloat(),
			NumSegments:       d.int(),
		}
	},
}

var WaveformSegments = Table[models.WaveformSegment]{
	Name: "waveform_segments",
	File: "waveform_segments.csv",
	Columns: []string{
		"record_id", "segment_name", "segment_num", "segment_start_time", "segment_duration_sec",
		"segment_header_file", "segment_data_file", "sampling_frequency", "num_signals",
	},
	Encode: func(s models.WaveformSegment) []string {
		return []string{
			s.RecordID, s.SegmentName, fmt.Sprint(s.SegmentNum), encTime(s.SegmentStartTime), encFloat(s.SegmentDurationSec),
			encStr(s.SegmentHeaderFile), encStr(s.SegmentDataFile), encFloat(s.SamplingFrequency), fmt.Sprint(s.NumSignals),
		}
	},
	Decode: func(d *decoder) models.WaveformSegment {
		return models.WaveformSegment{
			RecordID:           d.str(),
			SegmentName:        deref(d.optStr()),
			SegmentNum:         d.int(),
			SegmentStartTime:   d.optTime(),
			SegmentDurationSec: d.optFloat(),
			SegmentHeaderFile:  d.optStr(),
			SegmentDataFile:    d.optStr(),
			SamplingFrequency:  d.optFloat(),
			NumSignals:         d.int(),
		}
	},
}

var WaveformSignals = Table[models.WaveformSignalRow]{
	Name: "waveform_signals",
	File: "waveform_signals.csv",
	Columns: []string{
		"record_id", "segment_num", "signal_name", "signal_index", "signal_units",
		"signal_gain", "signal_baseline", "signal_adc_resolution", "signal_description", "signal_type",
	},
	Encode: func(s models.WaveformSignalRow) []string {
		return []string{
			s.RecordID, fmt.Sprint(s.SegmentNum), s.SignalName, fmt.Sprint(s.SignalIndex), encStr(s.SignalUnits),
			encFloat(s.SignalGain), encInt(s.SignalBaseline), encInt(s.SignalAdcResolution), encStr(s.SignalDescription), encStr(s.SignalType),
		}
	},
	Decode: func(d *decoder) models.WaveformSignalRow {
		return models.WaveformSignalRow{
			RecordID:            d.str(),
			SegmentNum:          d.int(),
			SignalName:          d.str(),
			SignalIndex:         d.int(),
			SignalUnits:         d.optStr(),
			SignalGain:          d.optFloat(),
			SignalBaseline:      d.optInt(),
			SignalAdcResolution: d.optInt(),
			SignalDescription:   d.rawStr(),
			SignalType:          d.optStr(),
		}
	},
}

var WaveformNumerics = Table[models.WaveformNumeric]{
	Name: "waveform_numerics",
	File: "waveform_numerics.csv",
	Columns: []string{
		"record_id", "measurement_time", "counter_ticks", "heart_rate", "resp_rate", "spo2",
		"nibp_systolic", "nibp_diastolic", "nibp_mean", "abp_systolic", "abp_diastolic", "abp_mean",
		"cvp", "etco2", "temperature", "measurement_name", "measurement_value", "measurement_unit",
	},
	Encode: func(n models.WaveformNumeric) []string {
		return []string{
			n.RecordID, encTime(n.MeasurementTime), encInt64(n.CounterTicks), encInt(n.HeartRate), encInt(n.RespRate), encInt(n.Spo2),
			encInt(n.NibpSystolic), encInt(n.NibpDiastolic), encInt(n.NibpMean), encInt(n.AbpSystolic), encInt(n.AbpDiastolic), encInt(n.AbpMean),
			encFloat(n.Cvp), encFloat(n.Etco2), encFloat(n.Temperature), encStr(n.MeasurementName), encFloat(n.MeasurementValue), encStr(n.MeasurementUnit),
		}
	},
	Decode: func(d *decoder) models.WaveformNumeric {
		return models.WaveformNumeric{
			RecordID:         d.str(),
			MeasurementTime:  d.optTime(),
			CounterTicks:     d.optInt64(),
			HeartRate:        d.optInt(),
			RespRate:         d.optInt(),
			Spo2:             d.optInt(),
			NibpSystolic:     d.optInt(),
			NibpDiastolic:    d.optInt(),
			NibpMean:         d.optInt(),
			AbpSystolic:      d.optInt(),
			AbpDiastolic:     d.optInt(),
			AbpMean:          d.optInt(),
			Cvp:              d.optFloat(),
			Etco2:            d.optFloat(),
			Temperature:      d.optFloat(),
			MeasurementName:  d.rawStr(),
			MeasurementValue: d.optFloat(),
			MeasurementUnit:  d.rawStr(),
		}
	},
}

var EchoRecords = Table[models.EchoRecord]{
	Name: "echo_record_list",
	File: "echo-record-list.csv",
	Columns: []string{
		"subject_id", "study_id", "acquisition_datetime", "dicom_filepath", "dicom_filename", "view_number",
	},
	// the published list ships without the two derived columns
	MinColumns: 4,
	Encode: func(r models.EchoRecord) []string {
		return []string{
			fmt.Sprint(r.SubjectID), fmt.Sprint(r.StudyID), encTime(r.AcquisitionDatetime), r.DicomFilepath,
			encStr(r.DicomFilename), encInt(r.ViewNumber),
		}
	},
	Decode: func(d *decoder) models.EchoRecord {
		r := models.EchoRecord{
			SubjectID:           d.int64(),
			StudyID:             d.int64(),
			AcquisitionDatetime: d.optTime(),
			DicomFilepath:       d.str(),
			DicomFilename:       d.optStr(),
			ViewNumber:          d.optInt(),
		}
		r.DeriveFileFields()
		return r
	},
}

var EchoStudies = Table[models.EchoStudy]{
	Name: "echo_study_list",
	File: "echo-study-list.csv",
	Columns: []string{
		"subject_id", "study_id", "study_datetime", "note_id", "note_seq", "note_charttime",
	},
	Encode: func(s models.EchoStudy) []string {
		return []string{
			fmt.Sprint(s.SubjectID), fmt.Sprint(s.StudyID), encTime(s.StudyDatetime), encStr(s.NoteID),
			encInt(s.NoteSeq), encTime(s.NoteCharttime),
		}
	},
	Decode: func(d *decoder) models.EchoStudy {
		return models.EchoStudy{
			SubjectID:     d.int64(),
			StudyID:       d.int64(),
			StudyDatetime: d.optTime(),
			NoteID:        d.optStr(),
			NoteSeq:       d.optInt(),
			NoteCharttime: d.optTime(),
		}
	},
}

var ECGRecords = Table[models.ECGRecord]{
	Name:    "ecg_record_list",
	File:    "record_list.csv",
	Columns: []string{"subject_id", "study_id", "file_name", "ecg_time", "path"},
	Encode: func(r models.ECGRecord) []string {
		return []string{fmt.Sprint(r.SubjectID), fmt.Sprint(r.StudyID), r.FileName, encTime(r.EcgTime), r.Path}
	},
	Decode: func(d *decoder) models.ECGRecord {
		return models.ECGRecord{
			SubjectID: d.int64(),
			StudyID:   d.int64(),
			FileName:  deref(d.optStr()),
			EcgTime:   d.optTime(),
			Path:      deref(d.optStr()),
		}
	},
}

var ECGMachineMeasurements = Table[models.ECGMachineMeasurement]{
	Name:    "ecg_machine_measurements",
	File:    "machine_measurements.csv",
	Columns: machineMeasurementColumns(),
	Encode: func(m models.ECGMachineMeasurement) []string {
		r := m.Reading()
		fields := []string{fmt.Sprint(m.SubjectID), fmt.Sprint(m.StudyID), encStr(m.CartID), encTime(m.EcgTime)}
		for _, line := range r.Reports {
			fields = append(fields, encStr(line))
		}
		return append(fields,
			encStr(r.Bandwidth), encStr(r.Filtering),
			encInt(r.Intervals.RR), encInt(r.Intervals.POnset), encInt(r.Intervals.PEnd),
			encInt(r.Intervals.QRSOnset), encInt(r.Intervals.QRSEnd), encInt(r.Intervals.TEnd),
			encInt(r.Axes.P), encInt(r.Axes.QRS), encInt(r.Axes.T),
		)
	},
	Decode: func(d *decoder) models.ECGMachineMeasurement {
		m := models.ECGMachineMeasurement{
			SubjectID: d.int64(),
			StudyID:   d.int64(),
			CartID:    d.optStr(),
			EcgTime:   d.optTime(),
		}
		var r models.MachineReading
		for i := range r.Reports {
			r.Reports[i] = d.rawStr()
		}
		r.Bandwidth = d.optStr()
		r.Filtering = d.optStr()
		r.Intervals = models.Intervals{
			RR: d.optInt(), POnset: d.optInt(), PEnd: d.optInt(),
			QRSOnset: d.optInt(), QRSEnd: d.optInt(), TEnd: d.optInt(),
		}
		r.Axes = models.Axes{P: d.optInt(), QRS: d.optInt(), T: d.optInt()}
		m.SetReading(r)
		return m
	},
}

func machineMeasurementColumns() []string {
	cols := []string{"subject_id", "study_id", "cart_id", "ecg_time"}
	for i := 0; i < models.ReportLines; i++ {
		cols = append(cols, fmt.Sprintf("report_%d", i))
	}
	return append(cols,
		"bandwidth", "filtering", "rr_interval", "p_onset", "p_end", "qrs_onset", "qrs_end", "t_end",
		"p_axis", "qrs_axis", "t_axis",
	)
}

var ECGDiagnosticLabels = Table[models.ECGDiagnosticLabel]{
	Name: "ecg_diagnostic_labels",
	File: "records_w_diag_icd10.csv",
	Columns: []string{
		"file_name", "study_id", "subject_id", "ecg_time", "ed_stay_id", "ed_hadm_id", "hosp_hadm_id",
		"ed_diag", "ed_hosp_diag", "hosp_diag", "all_diag_hosp", "all_diag_all", "gender", "age",
		"anchor_year", "anchor_age", "dod", "fold", "strat_fold",
	},
	Encode: func(l models.ECGDiagnosticLabel) []string {
		return []string{
			l.FileName, fmt.Sprint(l.StudyID), fmt.Sprint(l.SubjectID), encTime(l.EcgTime), encInt64(l.EDStayID), encInt64(l.EDHadmID), encInt64(l.HospHadmID),
			encStr(l.EDDiag), encStr(l.EDHospDiag), encStr(l.HospDiag), encStr(l.AllDiagHosp), encStr(l.AllDiagAll), encStr(l.Gender), encInt(l.Age),
			encInt(l.AnchorYear), encInt(l.AnchorAge), encTime(l.Dod), encInt(l.Fold), encInt(l.StratFold),
		}
	},
	Decode: func(d *decoder) models.ECGDiagnosticLabel {
		return models.ECGDiagnosticLabel{
			FileName:    deref(d.optStr()),
			StudyID:     d.int64(),
			SubjectID:   d.int64(),
			EcgTime:     d.optTime(),
			EDStayID:    d.optInt64(),
			EDHadmID:    d.optInt64(),
			HospHadmID:  d.optInt64(),
			EDDiag:      d.optStr(),
			EDHospDiag:  d.optStr(),
			HospDiag:    d.optStr(),
			AllDiagHosp: d.optStr(),
			AllDiagAll:  d.optStr(),
			Gender:      d.optStr(),
			Age:         d.optInt(),
			AnchorYear:  d.optInt(),
			AnchorAge:   d.optInt(),
			Dod:         d.optTime(),
			Fold:        d.optInt(),
			StratFold:   d.optInt(),
		}
	},
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}
