package numerics

import (
	"fmt"
	"math"
	"time"
)

// entry collects every observation sharing one timestamp key.
type entry struct {
	ticks    *int64
	time     *time.Time
	vitals   Vitals
	generics []Generic
}

// grouper merges rows by timestamp key and keeps first-seen key order.
type grouper struct {
	order   []string
	entries map[string]*entry
}

func key(line int, ticks *int64, at *time.Time) string {
	switch {
	case ticks != nil:
		return fmt.Sprintf("t%d", *ticks)
	case at != nil:
		return "c" + at.Format(time.RFC3339Nano)
	}
	// no timestamp at all, the row stands alone
	return fmt.Sprintf("l%d", line)
}

func (g *grouper) get(line int, ticks *int64, at *time.Time) *entry {
	k := key(line, ticks, at)
	e, ok := g.entries[k]
	if !ok {
		e = &entry{ticks: ticks, time: at}
		g.entries[k] = e
		g.order = append(g.order, k)
	}
	if e.time == nil {
		e.time = at
	}
	return e
}

// samples emits, per key, one vitals sample when any vital was seen followed
// by one generic sample per unmatched observation.
func (g *grouper) samples(recordID string) []Sample {
	var out []Sample
	for _, k := range g.order {
		e := g.entries[k]
		if !e.vitals.Empty() {
			out = append(out, Sample{RecordID: recordID, Time: e.time, Ticks: e.ticks, Kind: KindVitals, Vitals: e.vitals})
		}
		for _, gen := range e.generics {
			out = append(out, Sample{RecordID: recordID, Time: e.time, Ticks: e.ticks, Kind: KindGeneric, Generic: gen})
		}
	}
	return out
}

func (v *Vitals) intField(f Field) **int {
	switch f {
	case FieldHeartRate:
		return &v.HeartRate
	case FieldRespRate:
		return &v.RespRate
	case FieldSpo2:
		return &v.Spo2
	case FieldNibpSystolic:
		return &v.NIBP.Systolic
	case FieldNibpDiastolic:
		return &v.NIBP.Diastolic
	case FieldNibpMean:
		return &v.NIBP.Mean
	case FieldAbpSystolic:
		return &v.ABP.Systolic
	case FieldAbpDiastolic:
		return &v.ABP.Diastolic
	case FieldAbpMean:
		return &v.ABP.Mean
	}
	return nil
}

func (v *Vitals) floatField(f Field) **float64 {
	switch f {
	case FieldCVP:
		return &v.CVP
	case FieldEtCO2:
		return &v.EtCO2
	case FieldTemperature:
		return &v.Temperature
	}
	return nil
}

// set stores x in field f unless it already holds a value. It returns the
// kept value and whether x disagreed with it. Integer columns round half away
// from zero.
func (v *Vitals) set(f Field, x float64) (any, bool) {
	if f.integer() {
		p := v.intField(f)
		n := int(math.Round(x))
		if *p != nil {
			return **p, **p != n
		}
		*p = &n
		return n, false
	}

	p := v.floatField(f)
	if p == nil {
		return nil, false
	}
	if *p != nil {
		return **p, **p != x
	}
	*p = &x
	return x, false
}
