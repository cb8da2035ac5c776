package models

import "time"

// Section represents the school section a class level belongs to.
type Section string

const (
	SectionPrimary   Section = "PRIMARY"
	SectionSecondary Section = "SECONDARY"
)

// Valid returns true when the section is a supported value.
func (s Section) Valid() bool {
	switch s {
	case SectionPrimary, SectionSecondary:
		return true
	default:
		return false
	}
}

// ClassLevel models a grade level (e.g. "Primary 6") and its lettered subclasses.
type ClassLevel struct {
	ID         string     `db:"id" json:"id"`
	Section    Section    `db:"section" json:"section"`
	Name       string     `db:"name" json:"name"`
	CreatedAt  time.Time  `db:"created_at" json:"created_at"`
	UpdatedAt  time.Time  `db:"updated_at" json:"updated_at"`
	Subclasses []Subclass `db:"-" json:"subclasses,omitempty"`
}

// Subclass is a lettered sub-section of a class level, unique per level.
type Subclass struct {
	ID           string `db:"id" json:"id"`
	ClassLevelID string `db:"class_level_id" json:"class_level_id"`
	Letter       string `db:"letter" json:"letter"`
}

// HasSubclass reports whether the level carries the given letter.
func (c *ClassLevel) HasSubclass(letter string) bool {
	for _, sub := range c.Subclasses {
		if sub.Letter == letter {
			return true
		}
	}
	return false
}
