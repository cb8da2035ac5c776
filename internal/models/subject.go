package models

import "time"

// Subject models a taught subject.
type Subject struct {
	ID        string    `db:"id" json:"id"`
	Name      string    `db:"name" json:"name"`
	CreatedAt time.Time `db:"created_at" json:"created_at"`
	UpdatedAt time.Time `db:"updated_at" json:"updated_at"`
}

// SubjectAssignment maps a subject to a class level/subclass and the teacher
// allowed to teach it there. The engine reads this registry but never writes it.
type SubjectAssignment struct {
	ID             string `db:"id" json:"id"`
	SubjectID      string `db:"subject_id" json:"subject_id"`
	ClassLevelID   string `db:"class_level_id" json:"class_level_id"`
	SubclassLetter string `db:"subclass_letter" json:"subclass_letter"`
	TeacherID      string `db:"teacher_id" json:"teacher_id"`
}
