package models

import "time"

// AcademicYear models one school year. Exactly one row system-wide may be current.
type AcademicYear struct {
	ID        string    `db:"id" json:"id"`
	Name      string    `db:"name" json:"name"`
	FromDate  time.Time `db:"from_date" json:"from_date"`
	ToDate    time.Time `db:"to_date" json:"to_date"`
	IsCurrent bool      `db:"is_current" json:"is_current"`
	CreatedAt time.Time `db:"created_at" json:"created_at"`
	UpdatedAt time.Time `db:"updated_at" json:"updated_at"`
}

// SubTermName enumerates the three named divisions of an academic term.
type SubTermName string

const (
	SubTermFirst  SubTermName = "1st"
	SubTermSecond SubTermName = "2nd"
	SubTermThird  SubTermName = "3rd"
)

// Valid returns true when the name is one of the three supported divisions.
func (n SubTermName) Valid() bool {
	switch n {
	case SubTermFirst, SubTermSecond, SubTermThird:
		return true
	default:
		return false
	}
}

// SubTermNames lists the divisions in calendar order.
func SubTermNames() []SubTermName {
	return []SubTermName{SubTermFirst, SubTermSecond, SubTermThird}
}

// SubTerm is one dated division of an academic term. The reconciliation job is
// the only writer of IsCurrent.
type SubTerm struct {
	ID             string      `db:"id" json:"id"`
	AcademicTermID string      `db:"academic_term_id" json:"academic_term_id"`
	Name           SubTermName `db:"name" json:"name"`
	StartDate      time.Time   `db:"start_date" json:"start_date"`
	EndDate        time.Time   `db:"end_date" json:"end_date"`
	IsCurrent      bool        `db:"is_current" json:"is_current"`
}

// AcademicTerm groups the three sub-terms of one academic year.
type AcademicTerm struct {
	ID             string    `db:"id" json:"id"`
	AcademicYearID string    `db:"academic_year_id" json:"academic_year_id"`
	CreatedAt      time.Time `db:"created_at" json:"created_at"`
	UpdatedAt      time.Time `db:"updated_at" json:"updated_at"`
	SubTerms       []SubTerm `db:"-" json:"terms"`
}
