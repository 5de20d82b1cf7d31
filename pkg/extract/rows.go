package extract

import (
	"liyu1981.xyz/wfdb-catalog/pkg/models"
	"liyu1981.xyz/wfdb-catalog/pkg/wfdb"
)

// Rows flattens a parsed record into its catalog rows. num_segments is the
// number of data segments emitted, so gaps and layout segments do not count.
func Rows(rec *wfdb.ParsedRecord) (models.WaveformRecord, []models.WaveformSegment, []models.WaveformSignalRow) {
	record := models.WaveformRecord{
		RecordID:          rec.RecordID,
		SubjectID:         rec.SubjectID,
		HadmID:            rec.HadmID,
		StartDatetime:     rec.StartTime,
		EndDatetime:       rec.EndTime,
		RecordDurationSec: rec.Duration,
		FilePath:          rec.FilePath,
		HeaderFile:        rec.HeaderFile,
		BaseCounterFreq:   rec.BaseCounterFreq,
		NumSegments:       len(rec.Segments),
	}

	segments := make([]models.WaveformSegment, 0, len(rec.Segments))
	var signals []models.WaveformSignalRow
	for _, seg := range rec.Segments {
		header := seg.HeaderFile
		segments = append(segments, models.WaveformSegment{
			RecordID:           rec.RecordID,
			SegmentName:        seg.Name,
			SegmentNum:         seg.Number,
			SegmentStartTime:   seg.StartTime,
			SegmentDurationSec: seg.Duration,
			SegmentHeaderFile:  &header,
			SegmentDataFile:    seg.DataFile,
			SamplingFrequency:  seg.SamplingFrequency,
			NumSignals:         len(seg.Signals),
		})

		for _, sig := range seg.Signals {
			sigType := string(sig.Type)
			signals = append(signals, models.WaveformSignalRow{
				RecordID:            rec.RecordID,
				SegmentNum:          seg.Number,
				SignalName:          sig.Name,
				SignalIndex:         sig.Index,
				SignalUnits:         sig.Units,
				SignalGain:          sig.Gain,
				SignalBaseline:      sig.Baseline,
				SignalAdcResolution: sig.ADCResolution,
				SignalType:          &sigType,
			})
		}
	}
	return record, segments, signals
}
