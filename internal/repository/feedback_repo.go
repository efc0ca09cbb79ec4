package repository

import (
	"database/sql"
	"errors"
	"fmt"
	"time"

	"speakwell/internal/database"
	"speakwell/internal/models"
)

const feedbackColumns = "f.id, f.user_id, COALESCE(u.name, ''), f.type, f.message, f.status, f.priority, f.created_at, f.updated_at"

// FeedbackRepository handles learner feedback
type FeedbackRepository struct {
	db *database.DB
}

// NewFeedbackRepository creates a new feedback repository
func NewFeedbackRepository(db *database.DB) *FeedbackRepository {
	return &FeedbackRepository{db: db}
}

func scanFeedback(row rowScanner) (*models.Feedback, error) {
	f := &models.Feedback{}
	err := row.Scan(&f.ID, &f.UserID, &f.UserName, &f.Type, &f.Message, &f.Status, &f.Priority, &f.CreatedAt, &f.UpdatedAt)
	if err != nil {
		return nil, err
	}
	return f, nil
}

// Create inserts feedback and fills in its ID and timestamps
func (r *FeedbackRepository) Create(f *models.Feedback) error {
	now := time.Now().UTC()
	query := `
		INSERT INTO feedback (user_id, type, message, status, priority, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)
	`
	id, err := r.db.ExecReturningID(query, f.UserID, f.Type, f.Message, f.Status, f.Priority, now, now)
	if err != nil {
		return fmt.Errorf("failed to create feedback: %w", err)
	}
	f.ID = id
	f.CreatedAt = now
	f.UpdatedAt = now
	return nil
}

// List returns feedback newest first, optionally narrowed to one status
func (r *FeedbackRepository) List(status string) ([]models.Feedback, error) {
	query := "SELECT " + feedbackColumns + " FROM feedback f LEFT JOIN users u ON u.id = f.user_id"
	var args []interface{}
	if status != "" {
		query += " WHERE f.status = ?"
		args = append(args, status)
	}
	query += " ORDER BY f.created_at DESC, f.id DESC"

	rows, err := r.db.Query(query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query feedback: %w", err)
	}
	defer rows.Close()

	items := []models.Feedback{}
	for rows.Next() {
		f, err := scanFeedback(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan feedback: %w", err)
		}
		items = append(items, *f)
	}
	return items, rows.Err()
}

// GetByID retrieves feedback by ID
func (r *FeedbackRepository) GetByID(id int64) (*models.Feedback, error) {
	f, err := scanFeedback(r.db.QueryRow(
		"SELECT "+feedbackColumns+" FROM feedback f LEFT JOIN users u ON u.id = f.user_id WHERE f.id = ?", id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get feedback: %w", err)
	}
	return f, nil
}

// UpdateTriage sets the status and priority of feedback
func (r *FeedbackRepository) UpdateTriage(id int64, status, priority string) error {
	result, err := r.db.Exec("UPDATE feedback SET status = ?, priority = ?, updated_at = ? WHERE id = ?",
		status, priority, time.Now().UTC(), id)
	if err != nil {
		return fmt.Errorf("failed to update feedback: %w", err)
	}
	return requireAffected(result)
}

// Delete removes feedback
func (r *FeedbackRepository) Delete(id int64) error {
	result, err := r.db.Exec("DELETE FROM feedback WHERE id = ?", id)
	if err != nil {
		return fmt.Errorf("failed to delete feedback: %w", err)
	}
	return requireAffected(result)
}

// CountOpen returns how many feedback items are still open
func (r *FeedbackRepository) CountOpen() (int, error) {
	var n int
	if err := r.db.QueryRow("SELECT COUNT(*) FROM feedback WHERE status = ?", models.FeedbackOpen).Scan(&n); err != nil {
		return 0, fmt.Errorf("failed to count feedback: %w", err)
	}
	return n, nil
}
