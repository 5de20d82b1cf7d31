package numerics

import (
	"strings"
)

// Field is a dedicated numerics column, or FieldNone for the generic triple.
type Field int

const (
	FieldNone Field = iota
	FieldHeartRate
	FieldRespRate
	FieldSpo2
	FieldNibpSystolic
	FieldNibpDiastolic
	FieldNibpMean
	FieldAbpSystolic
	FieldAbpDiastolic
	FieldAbpMean
	FieldCVP
	FieldEtCO2
	FieldTemperature
)

var fieldNames = map[Field]string{
	FieldNone:          "",
	FieldHeartRate:     "heart_rate",
	FieldRespRate:      "resp_rate",
	FieldSpo2:          "spo2",
	FieldNibpSystolic:  "nibp_systolic",
	FieldNibpDiastolic: "nibp_diastolic",
	FieldNibpMean:      "nibp_mean",
	FieldAbpSystolic:   "abp_systolic",
	FieldAbpDiastolic:  "abp_diastolic",
	FieldAbpMean:       "abp_mean",
	FieldCVP:           "cvp",
	FieldEtCO2:         "etco2",
	FieldTemperature:   "temperature",
}

// String is the destination column name.
func (f Field) String() string {
	return fieldNames[f]
}

// integer columns round their values
func (f Field) integer() bool {
	return f >= FieldHeartRate && f <= FieldAbpMean
}

var aliases = map[string]Field{
	"hr":         FieldHeartRate,
	"heart rate": FieldHeartRate,
	"heart_rate": FieldHeartRate,

	"rr":               FieldRespRate,
	"resp":             FieldRespRate,
	"awrr":             FieldRespRate,
	"resp rate":        FieldRespRate,
	"resp_rate":        FieldRespRate,
	"respiratory rate": FieldRespRate,

	"spo2": FieldSpo2,
	"sp02": FieldSpo2,
	"sao2": FieldSpo2,

	"nbps": FieldNibpSystolic,
	"nbpd": FieldNibpDiastolic,
	"nbpm": FieldNibpMean,
	"abps": FieldAbpSystolic,
	"abpd": FieldAbpDiastolic,
	"abpm": FieldAbpMean,
	"arts": FieldAbpSystolic,
	"artd": FieldAbpDiastolic,
	"artm": FieldAbpMean,

	"cvp":    FieldCVP,
	"cvpm":   FieldCVP,
	"etco2":  FieldEtCO2,
	"et co2": FieldEtCO2,
	"temp":   FieldTemperature,
	"tblood": FieldTemperature,
	"tcore":  FieldTemperature,
	"tskin":  FieldTemperature,
}

// Classify maps a metric name (a wide column header or a long-format name
// value) to its dedicated column. Unknown names give FieldNone.
func Classify(name string) Field {
	n := normalize(name)
	if f, ok := aliases[n]; ok {
		return f
	}

	// "Pulse (SpO2)" is a rate measured by the oximeter, not a saturation
	if strings.HasPrefix(n, "pulse") {
		return FieldNone
	}

	switch {
	case strings.Contains(n, "spo2") || strings.Contains(n, "sp02"):
		return FieldSpo2
	case strings.Contains(n, "heart") && strings.Contains(n, "rate"):
		return FieldHeartRate
	case strings.Contains(n, "resp") && strings.Contains(n, "rate"):
		return FieldRespRate
	case strings.Contains(n, "nibp") || strings.Contains(n, "nbp"):
		return pressure(n, FieldNibpSystolic, FieldNibpDiastolic, FieldNibpMean)
	case strings.Contains(n, "abp") || strings.HasPrefix(n, "art"):
		return pressure(n, FieldAbpSystolic, FieldAbpDiastolic, FieldAbpMean)
	case strings.Contains(n, "cvp"):
		return FieldCVP
	case strings.Contains(n, "etco2"):
		return FieldEtCO2
	case strings.Contains(n, "temp"):
		return FieldTemperature
	}
	return FieldNone
}

func pressure(n string, sys, dia, mean Field) Field {
	switch {
	case strings.Contains(n, "sys"):
		return sys
	case strings.Contains(n, "dia"):
		return dia
	case strings.Contains(n, "mean"):
		return mean
	}
	return FieldNone
}

// normalize lowercases a metric name, drops a trailing "[unit]" and collapses
// inner whitespace.
func normalize(name string) string {
	base, _ := SplitUnit(name)
	return strings.Join(strings.Fields(strings.ToLower(base)), " ")
}

// SplitUnit splits a "Name [unit]" header into its name and unit. The unit is
// nil when the header has none.
func SplitUnit(header string) (string, *string) {
	h := strings.TrimSpace(header)
	if !strings.HasSuffix(h, "]") {
		return h, nil
	}
	open := strings.LastIndex(h, "[")
	if open <= 0 {
		return h, nil
	}
	unit := strings.TrimSpace(h[open+1 : len(h)-1])
	name := strings.TrimSpace(h[:open])
	if unit == "" {
		return name, nil
	}
	return name, &unit
}
