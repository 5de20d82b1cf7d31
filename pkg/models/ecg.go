package models

import (
	"strings"
	"time"
)

// ECGRecord references one ECG file. The table has no primary key, duplicate
// rows are legal.
type ECGRecord struct {
	SubjectID int64      `gorm:"column:subject_id;not null;index:idx_ecg_record_subject"`
	StudyID   int64      `gorm:"column:study_id;not null;index:idx_ecg_record_study"`
	FileName  string     `gorm:"column:file_name;type:varchar(50)"`
	EcgTime   *time.Time `gorm:"column:ecg_time"`
	Path      string     `gorm:"column:path;type:varchar(255)"`
}

func (ECGRecord) TableName() string { return "ecg_record_list" }

// ReportLines is how many free-text report columns a machine measurement has.
const ReportLines = 18

type ECGMachineMeasurement struct {
	SubjectID  int64      `gorm:"column:subject_id;not null;index:idx_ecg_mm_subject"`
	StudyID    int64      `gorm:"column:study_id;not null;index:idx_ecg_mm_study"`
	CartID     *string    `gorm:"column:cart_id;type:varchar(20)"`
	EcgTime    *time.Time `gorm:"column:ecg_time"`
	Report0    *string    `gorm:"column:report_0;type:text"`
	Report1    *string    `gorm:"column:report_1;type:text"`
	Report2    *string    `gorm:"column:report_2;type:text"`
	Report3    *string    `gorm:"column:report_3;type:text"`
	Report4    *string    `gorm:"column:report_4;type:text"`
	Report5    *string    `gorm:"column:report_5;type:text"`
	Report6    *string    `gorm:"column:report_6;type:text"`
	Report7    *string    `gorm:"column:report_7;type:text"`
	Report8    *string    `gorm:"column:report_8;type:text"`
	Report9    *string    `gorm:"column:report_9;type:text"`
	Report10   *string    `gorm:"column:report_10;type:text"`
	Report11   *string    `gorm:"column:report_11;type:text"`
	Report12   *string    `gorm:"column:report_12;type:text"`
	Report13   *string    `gorm:"column:report_13;type:text"`
	Report14   *string    `gorm:"column:report_14;type:text"`
	Report15   *string    `gorm:"column:report_15;type:text"`
	Report16   *string    `gorm:"column:report_16;type:text"`
	Report17   *string    `gorm:"column:report_17;type:text"`
	Bandwidth  *string    `gorm:"column:bandwidth;type:varchar(20)"`
	Filtering  *string    `gorm:"column:filtering;type:varchar(30)"`
	RRInterval *int       `gorm:"column:rr_interval"`
	POnset     *int       `gorm:"column:p_onset"`
	PEnd       *int       `gorm:"column:p_end"`
	QRSOnset   *int       `gorm:"column:qrs_onset"`
	QRSEnd     *int       `gorm:"column:qrs_end"`
	TEnd       *int       `gorm:"column:t_end"`
	PAxis      *int       `gorm:"column:p_axis"`
	QRSAxis    *int       `gorm:"column:qrs_axis"`
	TAxis      *int       `gorm:"column:t_axis"`
}

func (ECGMachineMeasurement) TableName() string { return "ecg_machine_measurements" }

// Intervals are the interval measurements of one reading, in ms.
type Intervals struct {
	RR, POnset, PEnd, QRSOnset, QRSEnd, TEnd *int
}

// Axes are the electrical axes of one reading, in degrees.
type Axes struct {
	P, QRS, T *int
}

// MachineReading is the grouped view of a machine measurement row: report
// lines, filter settings, intervals and axes are independent of each other,
// fields inside a group are individually optional.
type MachineReading struct {
	Reports   [ReportLines]*string
	Bandwidth *string
	Filtering *string
	Intervals Intervals
	Axes      Axes
}

func (m *ECGMachineMeasurement) reportFields() [ReportLines]**string {
	return [ReportLines]**string{
		&m.Report0, &m.Report1, &m.Report2, &m.Report3, &m.Report4, &m.Report5,
		&m.Report6, &m.Report7, &m.Report8, &m.Report9, &m.Report10, &m.Report11,
		&m.Report12, &m.Report13, &m.Report14, &m.Report15, &m.Report16, &m.Report17,
	}
}

func (m *ECGMachineMeasurement) Reading() MachineReading {
	r := MachineReading{
		Bandwidth: m.Bandwidth,
		Filtering: m.Filtering,
		Intervals: Intervals{
			RR: m.RRInterval, POnset: m.POnset, PEnd: m.PEnd,
			QRSOnset: m.QRSOnset, QRSEnd: m.QRSEnd, TEnd: m.TEnd,
		},
		Axes: Axes{P: m.PAxis, QRS: m.QRSAxis, T: m.TAxis},
	}
	for i, f := range m.reportFields() {
		r.Reports[i] = *f
	}
	return r
}

func (m *ECGMachineMeasurement) SetReading(r MachineReading) {
	for i, f := range m.reportFields() {
		*f = r.Reports[i]
	}
	m.Bandwidth, m.Filtering = r.Bandwidth, r.Filtering
	m.RRInterval, m.POnset, m.PEnd = r.Intervals.RR, r.Intervals.POnset, r.Intervals.PEnd
	m.QRSOnset, m.QRSEnd, m.TEnd = r.Intervals.QRSOnset, r.Intervals.QRSEnd, r.Intervals.TEnd
	m.PAxis, m.QRSAxis, m.TAxis = r.Axes.P, r.Axes.QRS, r.Axes.T
}

// Report joins the non-empty report lines, one per line.
func (r MachineReading) Report() string {
	var lines []string
	for _, l := range r.Reports {
		if l != nil && strings.TrimSpace(*l) != "" {
			lines = append(lines, strings.TrimSpace(*l))
		}
	}
	return strings.Join(lines, "\n")
}

// OutOfOrder reports interval markers that are present but not monotonic
// (p_onset <= p_end <= qrs_onset <= qrs_end <= t_end).
func (i Intervals) OutOfOrder() []string {
	type mark struct {
		name string
		v    *int
	}
	marks := []mark{{"p_onset", i.POnset}, {"p_end", i.PEnd}, {"qrs_onset", i.QRSOnset}, {"qrs_end", i.QRSEnd}, {"t_end", i.TEnd}}

	var bad []string
	var prev *mark
	for k := range marks {
		m := &marks[k]
		if m.v == nil {
			continue
		}
		if prev != nil && *m.v < *prev.v {
			bad = append(bad, prev.name+">"+m.name)
		}
		prev = m
	}
	return bad
}

// ECGDiagnosticLabel holds the ICD-10 label lists linked to one ECG. Each
// *Diag column is a semicolon separated code list.
type ECGDiagnosticLabel struct {
	FileName    string     `gorm:"column:file_name;type:varchar(50);index:idx_ecg_labels_file"`
	StudyID     int64      `gorm:"column:study_id;not null;index:idx_ecg_labels_study"`
	SubjectID   int64      `gorm:"column:subject_id;not null;index:idx_ecg_labels_subject"`
	EcgTime     *time.Time `gorm:"column:ecg_time"`
	EDStayID    *int64     `gorm:"column:ed_stay_id"`
	EDHadmID    *int64     `gorm:"column:ed_hadm_id"`
	HospHadmID  *int64     `gorm:"column:hosp_hadm_id"`
	EDDiag      *string    `gorm:"column:ed_diag;type:text"`
	EDHospDiag  *string    `gorm:"column:ed_hosp_diag;type:text"`
	HospDiag    *string    `gorm:"column:hosp_diag;type:text"`
	AllDiagHosp *string    `gorm:"column:all_diag_hosp;type:text"`
	AllDiagAll  *string    `gorm:"column:all_diag_all;type:text"`
	Gender      *string    `gorm:"column:gender;type:varchar(1)"`
	Age         *int       `gorm:"column:age"`
	AnchorYear  *int       `gorm:"column:anchor_year"`
	AnchorAge   *int       `gorm:"column:anchor_age"`
	Dod         *time.Time `gorm:"column:dod"`
	Fold        *int       `gorm:"column:fold"`
	StratFold   *int       `gorm:"column:strat_fold"`
}

func (ECGDiagnosticLabel) TableName() string { return "ecg_diagnostic_labels" }

// Codes splits a semicolon separated ICD-10 list, dropping blanks.
func Codes(list *string) []string {
	if list == nil {
		return nil
	}
	var codes []string
	for _, c := range strings.Split(*list, ";") {
		if c = strings.TrimSpace(c); c != "" {
			codes = append(codes, c)
		}
	}
	return codes
}
