package resolver

import (
	"fmt"

	"go.uber.org/multierr"

	"liyu1981.xyz/wfdb-catalog/pkg/models"
)

// SegmentKey is the natural key of a segment.
type SegmentKey struct {
	RecordID   string
	SegmentNum int
}

func (k SegmentKey) String() string {
	return fmt.Sprintf("(%s, %d)", k.RecordID, k.SegmentNum)
}

// Check validates one batch of waveform rows before anything is persisted:
// record ids and segment / signal natural keys are unique, every segment has
// its record, every signal has exactly one segment, and each record's
// num_segments matches its segment rows. All problems found are combined
// into the returned error.
func Check(records []models.WaveformRecord, segments []models.WaveformSegment, signals []models.WaveformSignalRow) error {
	var errs error

	declared := make(map[string]int, len(records))
	for _, r := range records {
		if _, dup := declared[r.RecordID]; dup {
			errs = multierr.Append(errs, &DuplicateKeyError{Table: "waveform_records", Key: r.RecordID})
			continue
		}
		declared[r.RecordID] = r.NumSegments
	}

	actual := make(map[string]int, len(records))
	segs := make(map[SegmentKey]struct{}, len(segments))
	var orphanSegments []string
	for _, s := range segments {
		key := SegmentKey{s.RecordID, s.SegmentNum}
		if _, dup := segs[key]; dup {
			errs = multierr.Append(errs, &DuplicateKeyError{Table: "waveform_segments", Key: key.String()})
			continue
		}
		segs[key] = struct{}{}

		if _, ok := declared[s.RecordID]; !ok {
			orphanSegments = append(orphanSegments, key.String())
			continue
		}
		actual[s.RecordID]++
	}
	if len(orphanSegments) > 0 {
		errs = multierr.Append(errs, &OrphanReferenceError{Table: "waveform_segments", Parent: "waveform_records", Keys: orphanSegments})
	}

	for _, r := range records {
		if n := actual[r.RecordID]; n != declared[r.RecordID] {
			errs = multierr.Append(errs, &CountMismatchError{RecordID: r.RecordID, Declared: declared[r.RecordID], Actual: n})
		}
	}

	type channel struct {
		SegmentKey
		index int
	}
	channels := make(map[channel]struct{}, len(signals))
	var orphanSignals []string
	for _, s := range signals {
		ch := channel{SegmentKey{s.RecordID, s.SegmentNum}, s.SignalIndex}
		if _, dup := channels[ch]; dup {
			errs = multierr.Append(errs, &DuplicateKeyError{
				Table: "waveform_signals",
				Key:   fmt.Sprintf("(%s, %d, %d)", s.RecordID, s.SegmentNum, s.SignalIndex),
			})
			continue
		}
		channels[ch] = struct{}{}

		if _, ok := segs[ch.SegmentKey]; !ok {
			orphanSignals = append(orphanSignals, ch.SegmentKey.String())
		}
	}
	if len(orphanSignals) > 0 {
		errs = multierr.Append(errs, &OrphanReferenceError{Table: "waveform_signals", Parent: "waveform_segments", Keys: orphanSignals})
	}

	return errs
}

// RecordSet is the set of record ids a batch may reference.
type RecordSet map[string]struct{}

func NewRecordSet(records []models.WaveformRecord) RecordSet {
	set := make(RecordSet, len(records))
	for _, r := range records {
		set[r.RecordID] = struct{}{}
	}
	return set
}

func (s RecordSet) Has(recordID string) bool {
	_, ok := s[recordID]
	return ok
}

// SegmentIndex maps segment natural keys to the surrogate ids assigned by the
// store. It never invents ids.
type SegmentIndex struct {
	ids map[SegmentKey]int64
}

// NewSegmentIndex indexes persisted segments, which must carry their
// segment_id.
func NewSegmentIndex(persisted []models.WaveformSegment) (*SegmentIndex, error) {
	ix := &SegmentIndex{ids: make(map[SegmentKey]int64, len(persisted))}
	for _, s := range persisted {
		if s.SegmentID == 0 {
			return nil, fmt.Errorf("resolver: segment (%s, %d) has no segment_id", s.RecordID, s.SegmentNum)
		}
		key := SegmentKey{s.RecordID, s.SegmentNum}
		if _, dup := ix.ids[key]; dup {
			return nil, &DuplicateKeyError{Table: "waveform_segments", Key: key.String()}
		}
		ix.ids[key] = s.SegmentID
	}
	return ix, nil
}

func (ix *SegmentIndex) Len() int {
	return len(ix.ids)
}

func (ix *SegmentIndex) Lookup(recordID string, segmentNum int) (int64, bool) {
	id, ok := ix.ids[SegmentKey{recordID, segmentNum}]
	return id, ok
}

// Resolve replaces each row's (record_id, segment_num) with the segment's
// surrogate id. If any row has no segment the whole batch fails with an
// *OrphanReferenceError and no rows are returned.
func (ix *SegmentIndex) Resolve(rows []models.WaveformSignalRow) ([]models.WaveformSignal, error) {
	out := make([]models.WaveformSignal, 0, len(rows))
	var orphans []string
	for _, r := range rows {
		id, ok := ix.Lookup(r.RecordID, r.SegmentNum)
		if !ok {
			orphans = append(orphans, SegmentKey{r.RecordID, r.SegmentNum}.String())
			continue
		}
		out = append(out, r.WithSegment(id))
	}
	if len(orphans) > 0 {
		return nil, &OrphanReferenceError{Table: "waveform_signals", Parent: "waveform_segments", Keys: orphans}
	}
	return out, nil
}
