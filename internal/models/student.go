package models

import "time"

// Student is the student projection owned elsewhere; the engine only writes
// AttendanceRate back.
type Student struct {
	ID             string    `db:"id" json:"id"`
	FullName       string    `db:"full_name" json:"full_name"`
	ClassLevelID   *string   `db:"class_level_id" json:"class_level_id,omitempty"`
	SubclassLetter *string   `db:"subclass_letter" json:"subclass_letter,omitempty"`
	AttendanceRate float64   `db:"attendance_rate" json:"attendance_rate"`
	CreatedAt      time.Time `db:"created_at" json:"created_at"`
	UpdatedAt      time.Time `db:"updated_at" json:"updated_at"`
}

// Placed reports whether the student has a resolvable class placement.
func (s *Student) Placed() bool {
	return s.ClassLevelID != nil && *s.ClassLevelID != "" && s.SubclassLetter != nil && *s.SubclassLetter != ""
}
