package numerics

import (
	"time"

	"liyu1981.xyz/wfdb-catalog/pkg/models"
)

// Kind tells which half of a numerics row a Sample fills.
type Kind int

const (
	KindVitals Kind = iota
	KindGeneric
)

func (k Kind) String() string {
	if k == KindGeneric {
		return "generic"
	}
	return "vitals"
}

type BloodPressure struct {
	Systolic, Diastolic, Mean *int
}

func (bp BloodPressure) empty() bool {
	return bp.Systolic == nil && bp.Diastolic == nil && bp.Mean == nil
}

// Vitals are the recognized measurements at one timestamp.
type Vitals struct {
	HeartRate   *int
	RespRate    *int
	Spo2        *int
	NIBP        BloodPressure
	ABP         BloodPressure
	CVP         *float64
	EtCO2       *float64
	Temperature *float64
}

func (v Vitals) Empty() bool {
	return v.HeartRate == nil && v.RespRate == nil && v.Spo2 == nil &&
		v.NIBP.empty() && v.ABP.empty() &&
		v.CVP == nil && v.EtCO2 == nil && v.Temperature == nil
}

// Generic is a measurement with no dedicated column. Name and Unit are kept
// as they appear in the source.
type Generic struct {
	Name  string
	Value float64
	Unit  *string
}

// Sample is one numerics row before flattening. Only the part selected by
// Kind is meaningful.
type Sample struct {
	RecordID string
	Time     *time.Time
	Ticks    *int64
	Kind     Kind
	Vitals   Vitals
	Generic  Generic
}

// Row flattens the sample into the waveform_numerics column layout.
func (s Sample) Row() models.WaveformNumeric {
	row := models.WaveformNumeric{
		RecordID:        s.RecordID,
		MeasurementTime: s.Time,
		CounterTicks:    s.Ticks,
	}

	if s.Kind == KindGeneric {
		name, value := s.Generic.Name, s.Generic.Value
		row.MeasurementName = &name
		row.MeasurementValue = &value
		row.MeasurementUnit = s.Generic.Unit
		return row
	}

	v := s.Vitals
	row.HeartRate, row.RespRate, row.Spo2 = v.HeartRate, v.RespRate, v.Spo2
	row.NibpSystolic, row.NibpDiastolic, row.NibpMean = v.NIBP.Systolic, v.NIBP.Diastolic, v.NIBP.Mean
	row.AbpSystolic, row.AbpDiastolic, row.AbpMean = v.ABP.Systolic, v.ABP.Diastolic, v.ABP.Mean
	row.Cvp, row.Etco2, row.Temperature = v.CVP, v.EtCO2, v.Temperature
	return row
}

// Rows flattens samples in order.
func Rows(samples []Sample) []models.WaveformNumeric {
	rows := make([]models.WaveformNumeric, len(samples))
	for i, s := range samples {
		rows[i] = s.Row()
	}
	return rows
}
