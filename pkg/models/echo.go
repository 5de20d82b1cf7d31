package models

import (
	"path"
	"strconv"
	"strings"
	"time"
)

// EchoRecord is one DICOM file of an echo study. study_id deliberately has no
// foreign key to echo_study_list.
type EchoRecord struct {
	SubjectID           int64      `gorm:"column:subject_id;not null;index:idx_echo_record_subject"`
	StudyID             int64      `gorm:"column:study_id;not null;index:idx_echo_record_study"`
	AcquisitionDatetime *time.Time `gorm:"column:acquisition_datetime"`
	DicomFilepath       string     `gorm:"column:dicom_filepath;primaryKey;type:varchar(255)"`
	DicomFilename       *string    `gorm:"column:dicom_filename;type:varchar(100)"`
	ViewNumber          *int       `gorm:"column:view_number"`
}

func (EchoRecord) TableName() string { return "echo_record_list" }

type EchoStudy struct {
	SubjectID     int64      `gorm:"column:subject_id;not null;index:idx_echo_study_subject"`
	StudyID       int64      `gorm:"column:study_id;primaryKey;autoIncrement:false"`
	StudyDatetime *time.Time `gorm:"column:study_datetime"`
	NoteID        *string    `gorm:"column:note_id;type:varchar(25)"`
	NoteSeq       *int       `gorm:"column:note_seq"`
	NoteCharttime *time.Time `gorm:"column:note_charttime"`
}

func (EchoStudy) TableName() string { return "echo_study_list" }

// DeriveFileFields fills DicomFilename and ViewNumber from the file path when
// the source did not provide them. The view number is the trailing integer of
// the file stem, e.g. 90000002_0012.dcm -> 12.
func (r *EchoRecord) DeriveFileFields() {
	if r.DicomFilepath == "" {
		return
	}

	name := path.Base(r.DicomFilepath)
	if r.DicomFilename == nil {
		r.DicomFilename = &name
	}

	if r.ViewNumber != nil {
		return
	}
	stem := strings.TrimSuffix(name, path.Ext(name))
	i := len(stem)
	for i > 0 && stem[i-1] >= '0' && stem[i-1] <= '9' {
		i--
	}
	if i == len(stem) || i == 0 || stem[i-1] != '_' {
		return
	}
	if n, err := strconv.Atoi(stem[i:]); err == nil {
		r.ViewNumber = &n
	}
}
