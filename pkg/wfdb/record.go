package wfdb

import (
	"errors"
	"fmt"
	"io/fs"
	"regexp"
	"strconv"
	"time"
)

// HeaderExt is the file extension of WFDB header files.
const HeaderExt = ".hea"

type ParsedSignal struct {
	Index         int
	Name          string
	Units         *string
	Gain          *float64
	Baseline      *int
	ADCResolution *int
	Type          SignalType
	FileName      string
}

type ParsedSegment struct {
	Number            int
	Name              string
	StartTime         *time.Time
	Duration          *float64
	SamplingFrequency *float64
	HeaderFile        string
	DataFile          *string
	Signals           []ParsedSignal
}

type Metadata struct {
	RecordID        string
	SubjectID       int64
	HadmID          *int64
	StartTime       *time.Time
	EndTime         *time.Time
	Duration        *float64
	FilePath        string
	HeaderFile      string
	Frequency       *float64
	BaseCounterFreq *float64
}

// ParsedRecord is one record with its data segments in header order.
type ParsedRecord struct {
	Metadata
	Segments []ParsedSegment
}

var (
	reSubjectID     = regexp.MustCompile(`(?i)subject_id\s+(\d+)`)
	reHadmID        = regexp.MustCompile(`(?i)hadm_id\s+(\d+)`)
	reAdmissionName = regexp.MustCompile(`(?i)hospital admission id[:\s]+(\d+)`)
)

// ReadRecord parses the header of record name from fsys, and for a
// multi-segment record every data segment header next to it. subjectID is
// used unless the header comments carry their own subject_id. relPath is
// stored as the record's file path.
//
// A record with any unreadable segment fails as a whole with a *ParseError.
func ReadRecord(fsys fs.FS, name string, subjectID int64, relPath string) (*ParsedRecord, error) {
	h, err := readHeader(fsys, name)
	if err != nil {
		return nil, err
	}

	rec := &ParsedRecord{
		Metadata: Metadata{
			RecordID:   name,
			SubjectID:  subjectID,
			FilePath:   relPath,
			HeaderFile: name + HeaderExt,
			Frequency:  h.Record.Frequency,
		},
	}
	applyComments(&rec.Metadata, h.Comments)

	rec.BaseCounterFreq = h.Record.Frequency
	if h.Record.CounterFrequency != nil {
		rec.BaseCounterFreq = h.Record.CounterFrequency
	}
	rec.StartTime = h.Record.BaseDatetime
	rec.Duration = samplesToSeconds(h.Record.NumSamples, h.Record.Frequency)
	if rec.StartTime != nil && rec.Duration != nil {
		end := rec.StartTime.Add(secondsToDuration(*rec.Duration))
		rec.EndTime = &end
	}

	if !h.Record.IsMultiSegment() {
		seg := segmentFrom(h, name, 1, rec.StartTime)
		rec.Segments = []ParsedSegment{seg}
		return rec, nil
	}

	// the leading layout segment takes position 0, so data segments are
	// numbered from 1 either way
	base := 1
	if len(h.Segments) > 0 && h.Segments[0].IsLayout() {
		base = 0
	}

	var offset int64
	for pos, ref := range h.Segments {
		number := pos + base
		start := offsetTime(rec.StartTime, offset, h.Record.Frequency)
		offset += ref.Length

		if ref.IsGap() || ref.IsLayout() {
			continue
		}

		sh, err := readHeader(fsys, ref.Name)
		if err != nil {
			var pe *ParseError
			if errors.As(err, &pe) {
				pe.Segment, pe.Record = ref.Name, name
				return nil, pe
			}
			return nil, &ParseError{Record: name, Segment: ref.Name, Msg: "read segment header", Err: err}
		}
		if sh.Record.IsMultiSegment() {
			return nil, &ParseError{Record: name, Segment: ref.Name, Msg: "nested multi-segment header"}
		}

		rec.Segments = append(rec.Segments, segmentFrom(sh, ref.Name, number, start))
	}

	return rec, nil
}

func readHeader(fsys fs.FS, name string) (*Header, error) {
	f, err := fsys.Open(name + HeaderExt)
	if err != nil {
		return nil, &ParseError{Record: name, Msg: "open header", Err: err}
	}
	defer f.Close()
	return Parse(f, name)
}

func segmentFrom(h *Header, name string, number int, start *time.Time) ParsedSegment {
	seg := ParsedSegment{
		Number:            number,
		Name:              name,
		StartTime:         start,
		Duration:          samplesToSeconds(h.Record.NumSamples, h.Record.Frequency),
		SamplingFrequency: h.Record.Frequency,
		HeaderFile:        name + HeaderExt,
		Signals:           make([]ParsedSignal, 0, len(h.Signals)),
	}

	for i, spec := range h.Signals {
		if seg.DataFile == nil && spec.FileName != "" && spec.FileName != "~" {
			file := spec.FileName
			seg.DataFile = &file
		}

		sigName := fmt.Sprintf("%s, signal %d", name, i)
		if spec.Description != nil {
			sigName = *spec.Description
		}
		seg.Signals = append(seg.Signals, ParsedSignal{
			Index:         i,
			Name:          sigName,
			Units:         spec.Units,
			Gain:          spec.Gain,
			Baseline:      spec.Baseline,
			ADCResolution: spec.ADCResolution,
			Type:          Categorize(sigName),
			FileName:      spec.FileName,
		})
	}
	return seg
}

func applyComments(m *Metadata, comments []string) {
	for _, c := range comments {
		if match := reHadmID.FindStringSubmatch(c); match != nil {
			if id, err := strconv.ParseInt(match[1], 10, 64); err == nil {
				m.HadmID = &id
			}
		} else if match := reAdmissionName.FindStringSubmatch(c); match != nil {
			if id, err := strconv.ParseInt(match[1], 10, 64); err == nil {
				m.HadmID = &id
			}
		}

		if match := reSubjectID.FindStringSubmatch(c); match != nil {
			if id, err := strconv.ParseInt(match[1], 10, 64); err == nil && id > 0 {
				m.SubjectID = id
			}
		}
	}
}

func samplesToSeconds(samples *int64, fs *float64) *float64 {
	if samples == nil || fs == nil || *fs <= 0 {
		return nil
	}
	s := float64(*samples) / *fs
	return &s
}

func secondsToDuration(s float64) time.Duration {
	return time.Duration(s * float64(time.Second)).Round(time.Millisecond)
}

func offsetTime(base *time.Time, samples int64, fs *float64) *time.Time {
	if base == nil || fs == nil || *fs <= 0 {
		return nil
	}
	t := base.Add(secondsToDuration(float64(samples) / *fs))
	return &t
}
