package models

import "time"

// Proficiency levels used by lessons and learners
const (
	LevelBeginner     = 1
	LevelIntermediate = 2
	LevelAdvanced     = 3
)

// LevelName returns the display name of a proficiency level
func LevelName(level int) string {
	switch {
	case level <= LevelBeginner:
		return "Beginner"
	case level == LevelIntermediate:
		return "Intermediate"
	default:
		return "Advanced"
	}
}

// Lesson is a unit of study, grouped by unit and chapter
type Lesson struct {
	ID          int64     `json:"id"`
	Title       string    `json:"title"`
	Description string    `json:"description"`
	Level       int       `json:"level"`
	Unit        int       `json:"unit"`
	Chapter     int       `json:"chapter"`
	Active      bool      `json:"active"`
	CreatedAt   time.Time `json:"created"`
	UpdatedAt   time.Time `json:"modified"`
}

// LessonFilter narrows a lesson listing. Zero values match everything.
type LessonFilter struct {
	Unit       int
	Chapter    int
	MaxLevel   int
	ActiveOnly bool
}

// Unit is a themed group of lessons unlocked at a minimum level
type Unit struct {
	Key      int    `json:"key"`
	Title    string `json:"title"`
	MinLevel int    `json:"minLevel"`
}
