package wfdb

import (
	"strings"
	"unicode"
)

type SignalType string

const (
	SignalTypeECG           SignalType = "ECG"
	SignalTypePressure      SignalType = "Pressure"
	SignalTypePlethysmogram SignalType = "Plethysmogram"
	SignalTypeRespiration   SignalType = "Respiration"
	SignalTypeCapnography   SignalType = "Capnography"
	SignalTypeOther         SignalType = "Other"
)

var ecgLeads = []string{
	"I", "II", "III", "AVR", "AVL", "AVF", "V", "V1", "V2", "V3", "V4", "V5", "V6",
	"MCL", "AI", "AS", "ES",
}

// pressure labels of three letters or more match anywhere in a name, the
// short ones only as a whole label
var pressureNames = []string{
	"ABP", "ART", "BAP", "CVP", "FAP", "ICP", "IC1", "IC2",
	"LAP", "PAP", "RAP", "UAP", "UVP",
}

var shortPressureNames = []string{"AO", "P", "P1", "P2", "P4"}

// hasLabel reports whether name is label, optionally followed by a
// non-letter suffix ("V5", "II-2", "MCL1").
func hasLabel(name, label string) bool {
	if !strings.HasPrefix(name, label) {
		return false
	}
	rest := name[len(label):]
	return rest == "" || !unicode.IsLetter(rune(rest[0]))
}

// Categorize maps a signal name to its broad type.
func Categorize(name string) SignalType {
	upper := strings.ToUpper(strings.TrimSpace(name))

	for _, lead := range ecgLeads {
		if hasLabel(upper, lead) {
			return SignalTypeECG
		}
	}
	for _, p := range pressureNames {
		if strings.Contains(upper, p) {
			return SignalTypePressure
		}
	}
	for _, p := range shortPressureNames {
		if hasLabel(upper, p) {
			return SignalTypePressure
		}
	}

	switch {
	case strings.Contains(upper, "PLETH"):
		return SignalTypePlethysmogram
	case strings.Contains(upper, "RESP"):
		return SignalTypeRespiration
	case strings.Contains(upper, "CO2"):
		return SignalTypeCapnography
	}
	return SignalTypeOther
}
