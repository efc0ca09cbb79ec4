package repository

import (
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"speakwell/internal/database"
	"speakwell/internal/models"
)

const lessonColumns = "id, title, description, level, unit, chapter, active, created_at, updated_at"

// LessonRepository handles lesson database operations
type LessonRepository struct {
	db *database.DB
}

// NewLessonRepository creates a new lesson repository
func NewLessonRepository(db *database.DB) *LessonRepository {
	return &LessonRepository{db: db}
}

func scanLesson(row rowScanner) (*models.Lesson, error) {
	l := &models.Lesson{}
	if err := row.Scan(&l.ID, &l.Title, &l.Description, &l.Level, &l.Unit, &l.Chapter, &l.Active, &l.CreatedAt, &l.UpdatedAt); err != nil {
		return nil, err
	}
	return l, nil
}

// List returns lessons matching filter ordered by unit, chapter and id
func (r *LessonRepository) List(filter models.LessonFilter) ([]models.Lesson, error) {
	var where []string
	var args []interface{}
	if filter.Unit > 0 {
		where = append(where, "unit = ?")
		args = append(args, filter.Unit)
	}
	if filter.Chapter > 0 {
		where = append(where, "chapter = ?")
		args = append(args, filter.Chapter)
	}
	if filter.MaxLevel > 0 {
		where = append(where, "level <= ?")
		args = append(args, filter.MaxLevel)
	}
	if filter.ActiveOnly {
		where = append(where, "active = ?")
		args = append(args, true)
	}

	query := "SELECT " + lessonColumns + " FROM lessons"
	if len(where) > 0 {
		query += " WHERE " + strings.Join(where, " AND ")
	}
	query += " ORDER BY unit, chapter, id"

	rows, err := r.db.Query(query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query lessons: %w", err)
	}
	defer rows.Close()

	lessons := []models.Lesson{}
	for rows.Next() {
		l, err := scanLesson(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan lesson: %w", err)
		}
		lessons = append(lessons, *l)
	}
	return lessons, rows.Err()
}

// GetByID retrieves a lesson by ID
func (r *LessonRepository) GetByID(id int64) (*models.Lesson, error) {
	l, err := scanLesson(r.db.QueryRow("SELECT "+lessonColumns+" FROM lessons WHERE id = ?", id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get lesson: %w", err)
	}
	return l, nil
}

// Create inserts a lesson and fills in its ID and timestamps
func (r *LessonRepository) Create(l *models.Lesson) error {
	now := time.Now().UTC()
	query := `
		INSERT INTO lessons (title, description, level, unit, chapter, active, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
	`
	id, err := r.db.ExecReturningID(query, l.Title, l.Description, l.Level, l.Unit, l.Chapter, l.Active, now, now)
	if err != nil {
		return fmt.Errorf("failed to create lesson: %w", err)
	}
	l.ID = id
	l.CreatedAt = now
	l.UpdatedAt = now
	return nil
}

// Update saves every editable field of l
func (r *LessonRepository) Update(l *models.Lesson) error {
	now := time.Now().UTC()
	query := `
		UPDATE lessons
		SET title = ?, description = ?, level = ?, unit = ?, chapter = ?, active = ?, updated_at = ?
		WHERE id = ?
	`
	result, err := r.db.Exec(query, l.Title, l.Description, l.Level, l.Unit, l.Chapter, l.Active, now, l.ID)
	if err != nil {
		return fmt.Errorf("failed to update lesson: %w", err)
	}
	if err := requireAffected(result); err != nil {
		return err
	}
	l.UpdatedAt = now
	return nil
}

// SetActive toggles whether a lesson is visible to learners
func (r *LessonRepository) SetActive(id int64, active bool) error {
	result, err := r.db.Exec("UPDATE lessons SET active = ?, updated_at = ? WHERE id = ?", active, time.Now().UTC(), id)
	if err != nil {
		return fmt.Errorf("failed to update lesson: %w", err)
	}
	return requireAffected(result)
}

// Delete removes a lesson
func (r *LessonRepository) Delete(id int64) error {
	result, err := r.db.Exec("DELETE FROM lessons WHERE id = ?", id)
	if err != nil {
		return fmt.Errorf("failed to delete lesson: %w", err)
	}
	return requireAffected(result)
}

// Count returns the total and active lesson counts
func (r *LessonRepository) Count() (total, active int, err error) {
	query := "SELECT COUNT(*), COALESCE(SUM(CASE WHEN active = ? THEN 1 ELSE 0 END), 0) FROM lessons"
	if err := r.db.QueryRow(query, true).Scan(&total, &active); err != nil {
		return 0, 0, fmt.Errorf("failed to count lessons: %w", err)
	}
	return total, active, nil
}
