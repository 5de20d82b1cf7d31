package models

import "fmt"

// Dataset names one family of catalog tables.
type Dataset string

const (
	DatasetWaveforms Dataset = "waveforms"
	DatasetEcho      Dataset = "echo"
	DatasetECG       Dataset = "ecg"
)

var Datasets = []Dataset{DatasetWaveforms, DatasetEcho, DatasetECG}

// Schema is the postgres namespace a dataset family lives in.
func (d Dataset) Schema() string {
	switch d {
	case DatasetEcho:
		return "mimiciv_echo"
	case DatasetECG:
		return "mimiciv_ecg"
	default:
		return "mimiciv_waveforms"
	}
}

// Tables returns the dataset's models in dependency order, parents first.
func (d Dataset) Tables() []any {
	switch d {
	case DatasetWaveforms:
		return []any{&WaveformRecord{}, &WaveformSegment{}, &WaveformSignal{}, &WaveformNumeric{}}
	case DatasetEcho:
		return []any{&EchoRecord{}, &EchoStudy{}}
	case DatasetECG:
		return []any{&ECGRecord{}, &ECGMachineMeasurement{}, &ECGDiagnosticLabel{}}
	}
	return nil
}

func ParseDataset(s string) (Dataset, error) {
	for _, d := range Datasets {
		if string(d) == s {
			return d, nil
		}
	}
	return "", fmt.Errorf("unknown dataset %q", s)
}
