package wfdb

import (
	"bufio"
	"fmt"
	"io"
	"strconv"
	"strings"
	"time"
)

// RecordLine is the first non-comment line of a header.
type RecordLine struct {
	Name        string
	NumSegments *int
	NumSignals  int

	Frequency        *float64
	CounterFrequency *float64
	BaseCounter      *float64
	NumSamples       *int64

	// BaseDatetime is only set when both base time and base date are given.
	BaseDatetime *time.Time
	BaseTime     *time.Duration
}

func (r RecordLine) IsMultiSegment() bool {
	return r.NumSegments != nil
}

// SegmentRef is one line of a multi-segment header.
type SegmentRef struct {
	Name   string
	Length int64
}

func (s SegmentRef) IsGap() bool {
	return s.Name == "~"
}

func (s SegmentRef) IsLayout() bool {
	return strings.HasSuffix(s.Name, "_layout") || strings.HasSuffix(s.Name, "_0000")
}

// SignalSpec is one signal line of a single-segment header.
type SignalSpec struct {
	FileName      string
	Format        string
	Gain          *float64
	Baseline      *int
	Units         *string
	ADCResolution *int
	ADCZero       *int
	InitialValue  *int
	Checksum      *int
	BlockSize     *int
	Description   *string
}

type Header struct {
	Record   RecordLine
	Segments []SegmentRef
	Signals  []SignalSpec
	Comments []string
}

// Parse reads one header. name is the record (or segment) name the header is
// expected to describe; an empty name skips that check.
func Parse(r io.Reader, name string) (*Header, error) {
	fail := func(line int, format string, args ...any) error {
		return &ParseError{Record: name, Line: line, Msg: fmt.Sprintf(format, args...)}
	}

	h := &Header{}
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 64*1024), 1024*1024)

	lineNo := 0
	haveRecord := false
	want := 0
	for scanner.Scan() {
		lineNo++
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}
		if strings.HasPrefix(line, "#") {
			h.Comments = append(h.Comments, strings.TrimSpace(strings.TrimPrefix(line, "#")))
			continue
		}

		if !haveRecord {
			rec, err := parseRecordLine(line)
			if err != nil {
				return nil, &ParseError{Record: name, Line: lineNo, Msg: "bad record line", Err: err}
			}
			if name != "" && rec.Name != name {
				return nil, fail(lineNo, "header describes %q", rec.Name)
			}
			h.Record = *rec
			haveRecord = true
			if rec.IsMultiSegment() {
				want = *rec.NumSegments
			} else {
				want = rec.NumSignals
			}
			continue
		}

		if h.Record.IsMultiSegment() {
			if len(h.Segments) == want {
				return nil, fail(lineNo, "more than %d segment lines", want)
			}
			seg, err := parseSegmentLine(line)
			if err != nil {
				return nil, &ParseError{Record: name, Line: lineNo, Msg: "bad segment line", Err: err}
			}
			h.Segments = append(h.Segments, *seg)
			continue
		}

		if len(h.Signals) == want {
			return nil, fail(lineNo, "more than %d signal lines", want)
		}
		sig, err := parseSignalLine(line)
		if err != nil {
			return nil, &ParseError{Record: name, Line: lineNo, Msg: "bad signal line", Err: err}
		}
		h.Signals = append(h.Signals, *sig)
	}
	if err := scanner.Err(); err != nil {
		return nil, &ParseError{Record: name, Line: lineNo, Msg: "read failed", Err: err}
	}

	if !haveRecord {
		return nil, fail(0, "no record line")
	}
	if h.Record.IsMultiSegment() && len(h.Segments) != want {
		return nil, fail(lineNo, "truncated: %d of %d segment lines", len(h.Segments), want)
	}
	if !h.Record.IsMultiSegment() && len(h.Signals) != want {
		return nil, fail(lineNo, "truncated: %d of %d signal lines", len(h.Signals), want)
	}
	return h, nil
}

// name[/nseg] nsig [fs[/counterfreq[(basecounter)]] [siglen [basetime [basedate]]]]
func parseRecordLine(line string) (*RecordLine, error) {
	fields := strings.Fields(line)
	if len(fields) < 2 {
		return nil, fmt.Errorf("need at least record name and signal count, got %q", line)
	}

	rec := &RecordLine{Name: fields[0]}
	if name, nseg, ok := strings.Cut(fields[0], "/"); ok {
		n, err := strconv.Atoi(nseg)
		if err != nil || n < 0 {
			return nil, fmt.Errorf("segment count %q", nseg)
		}
		rec.Name = name
		rec.NumSegments = &n
	}
	if rec.Name == "" {
		return nil, fmt.Errorf("empty record name")
	}

	nsig, err := strconv.Atoi(fields[1])
	if err != nil || nsig < 0 {
		return nil, fmt.Errorf("signal count %q", fields[1])
	}
	rec.NumSignals = nsig

	if len(fields) > 2 {
		if err := parseFrequency(fields[2], rec); err != nil {
			return nil, err
		}
	}

	if len(fields) > 3 {
		n, err := strconv.ParseInt(fields[3], 10, 64)
		if err != nil || n < 0 {
			return nil, fmt.Errorf("sample count %q", fields[3])
		}
		rec.NumSamples = &n
	}

	if len(fields) > 4 {
		d, err := parseBaseTime(fields[4])
		if err != nil {
			return nil, err
		}
		rec.BaseTime = &d
	}

	if len(fields) > 5 {
		date, err := time.ParseInLocation("02/01/2006", fields[5], time.UTC)
		if err != nil {
			return nil, fmt.Errorf("base date %q: %w", fields[5], err)
		}
		dt := date.Add(*rec.BaseTime)
		rec.BaseDatetime = &dt
	}

	return rec, nil
}

// fs[/counterfreq[(basecounter)]]
func parseFrequency(tok string, rec *RecordLine) error {
	fsTok, counterTok, hasCounter := strings.Cut(tok, "/")

	fs, err := strconv.ParseFloat(fsTok, 64)
	if err != nil || fs < 0 {
		return fmt.Errorf("sampling frequency %q", fsTok)
	}
	rec.Frequency = &fs

	if !hasCounter {
		return nil
	}

	if open := strings.IndexByte(counterTok, '('); open >= 0 {
		if !strings.HasSuffix(counterTok, ")") {
			return fmt.Errorf("base counter %q", counterTok)
		}
		bc, err := strconv.ParseFloat(counterTok[open+1:len(counterTok)-1], 64)
		if err != nil {
			return fmt.Errorf("base counter %q", counterTok)
		}
		rec.BaseCounter = &bc
		counterTok = counterTok[:open]
	}

	cf, err := strconv.ParseFloat(counterTok, 64)
	if err != nil || cf <= 0 {
		return fmt.Errorf("counter frequency %q", counterTok)
	}
	rec.CounterFrequency = &cf
	return nil
}

// HH:MM:SS[.fff] or MM:SS[.fff]
func parseBaseTime(tok string) (time.Duration, error) {
	parts := strings.Split(tok, ":")
	if len(parts) < 2 || len(parts) > 3 {
		return 0, fmt.Errorf("base time %q", tok)
	}
	if len(parts) == 2 {
		parts = append([]string{"0"}, parts...)
	}

	h, err := strconv.Atoi(parts[0])
	if err != nil || h < 0 || h > 23 {
		return 0, fmt.Errorf("base time %q", tok)
	}
	m, err := strconv.Atoi(parts[1])
	if err != nil || m < 0 || m > 59 {
		return 0, fmt.Errorf("base time %q", tok)
	}
	s, err := strconv.ParseFloat(parts[2], 64)
	if err != nil || s < 0 || s >= 60 {
		return 0, fmt.Errorf("base time %q", tok)
	}

	return time.Duration(h)*time.Hour + time.Duration(m)*time.Minute +
		time.Duration(s*float64(time.Second)).Round(time.Millisecond), nil
}

func parseSegmentLine(line string) (*SegmentRef, error) {
	fields := strings.Fields(line)
	if len(fields) != 2 {
		return nil, fmt.Errorf("want segment name and length, got %q", line)
	}
	n, err := strconv.ParseInt(fields[1], 10, 64)
	if err != nil || n < 0 {
		return nil, fmt.Errorf("segment length %q", fields[1])
	}
	return &SegmentRef{Name: fields[0], Length: n}, nil
}

// file format[xN][:skew][+offset] [gain[(baseline)][/units] [adcres [adczero [initval [checksum [blocksize [description]]]]]]]
func parseSignalLine(line string) (*SignalSpec, error) {
	fields := strings.Fields(line)
	if len(fields) < 2 {
		return nil, fmt.Errorf("want at least file name and format, got %q", line)
	}

	sig := &SignalSpec{FileName: fields[0], Format: fields[1]}
	digits := strings.IndexFunc(sig.Format, func(r rune) bool { return r < '0' || r > '9' })
	if digits == 0 {
		return nil, fmt.Errorf("format %q", sig.Format)
	}

	if len(fields) > 2 {
		if err := parseGain(fields[2], sig); err != nil {
			return nil, err
		}
	}

	ints := []struct {
		dst  **int
		name string
	}{
		{&sig.ADCResolution, "adc resolution"},
		{&sig.ADCZero, "adc zero"},
		{&sig.InitialValue, "initial value"},
		{&sig.Checksum, "checksum"},
		{&sig.BlockSize, "block size"},
	}
	for i, f := range ints {
		pos := 3 + i
		if len(fields) <= pos {
			break
		}
		v, err := strconv.Atoi(fields[pos])
		if err != nil {
			return nil, fmt.Errorf("%s %q", f.name, fields[pos])
		}
		*f.dst = &v
	}

	if len(fields) > 8 {
		desc := strings.Join(fields[8:], " ")
		sig.Description = &desc
	}

	// the baseline defaults to adc zero when the gain field carries none
	if sig.Baseline == nil && sig.ADCZero != nil {
		b := *sig.ADCZero
		sig.Baseline = &b
	}

	return sig, nil
}

// gain[(baseline)][/units]
func parseGain(tok string, sig *SignalSpec) error {
	gainTok, units, hasUnits := strings.Cut(tok, "/")
	if hasUnits && units != "" {
		sig.Units = &units
	}

	if open := strings.IndexByte(gainTok, '('); open >= 0 {
		if !strings.HasSuffix(gainTok, ")") {
			return fmt.Errorf("baseline %q", gainTok)
		}
		b, err := strconv.Atoi(gainTok[open+1 : len(gainTok)-1])
		if err != nil {
			return fmt.Errorf("baseline %q", gainTok)
		}
		sig.Baseline = &b
		gainTok = gainTok[:open]
	}

	g, err := strconv.ParseFloat(gainTok, 64)
	if err != nil {
		return fmt.Errorf("gain %q", gainTok)
	}
	sig.Gain = &g
	return nil
}
