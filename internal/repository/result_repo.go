package repository

import (
	"database/sql"
	"errors"
	"fmt"

	"speakwell/internal/database"
	"speakwell/internal/models"
)

const resultColumns = `r.id, r.user_id, COALESCE(u.name, ''), r.started_at, r.completed_at,
	r.overall_score, r.pronunciation, r.fluency, r.accuracy, r.feedback,
	(SELECT COUNT(*) FROM test_attempts a WHERE a.test_result_id = r.id)`

// ResultRepository stores speaking test results and their attempts
type ResultRepository struct {
	db *database.DB
}

// NewResultRepository creates a new result repository
func NewResultRepository(db *database.DB) *ResultRepository {
	return &ResultRepository{db: db}
}

func scanResult(row rowScanner) (*models.TestResult, error) {
	res := &models.TestResult{}
	var completedAt sql.NullTime
	err := row.Scan(
		&res.ID,
		&res.UserID,
		&res.UserName,
		&res.StartedAt,
		&completedAt,
		&res.OverallScore,
		&res.Pronunciation,
		&res.Fluency,
		&res.Accuracy,
		&res.Feedback,
		&res.AttemptCount,
	)
	if err != nil {
		return nil, err
	}
	if completedAt.Valid {
		res.CompletedAt = &completedAt.Time
	}
	return res, nil
}

// Save inserts a result and its attempts in one transaction
func (r *ResultRepository) Save(res *models.TestResult) error {
	return r.db.WithTx(func(tx *database.Tx) error {
		var completedAt interface{}
		if res.CompletedAt != nil {
			completedAt = res.CompletedAt.UTC()
		}

		id, err := tx.ExecReturningID(`
			INSERT INTO test_results (user_id, started_at, completed_at, overall_score, pronunciation, fluency, accuracy, feedback)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?)
		`, res.UserID, res.StartedAt.UTC(), completedAt, res.OverallScore, res.Pronunciation, res.Fluency, res.Accuracy, res.Feedback)
		if err != nil {
			return fmt.Errorf("failed to insert test result: %w", err)
		}

		for i, a := range res.Attempts {
			_, err := tx.Exec(`
				INSERT INTO test_attempts (test_result_id, position, word, pronunciation, fluency, accuracy, feedback, attempted_at)
				VALUES (?, ?, ?, ?, ?, ?, ?, ?)
			`, id, i, a.Word, a.Pronunciation, a.Fluency, a.Accuracy, a.Feedback, a.Timestamp.UTC())
			if err != nil {
				return fmt.Errorf("failed to insert attempt %d: %w", i, err)
			}
		}

		res.ID = id
		return nil
	})
}

func (r *ResultRepository) list(where string, limit int, args ...interface{}) ([]models.TestResult, error) {
	query := "SELECT " + resultColumns + " FROM test_results r LEFT JOIN users u ON u.id = r.user_id"
	if where != "" {
		query += " WHERE " + where
	}
	query += " ORDER BY r.started_at DESC, r.id DESC"
	if limit > 0 {
		query += " LIMIT ?"
		args = append(args, limit)
	}

	rows, err := r.db.Query(query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query test results: %w", err)
	}
	defer rows.Close()

	results := []models.TestResult{}
	for rows.Next() {
		res, err := scanResult(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan test result: %w", err)
		}
		results = append(results, *res)
	}
	return results, rows.Err()
}

// ListByUser returns a user's results, newest first. limit <= 0 returns all.
func (r *ResultRepository) ListByUser(userID int64, limit int) ([]models.TestResult, error) {
	return r.list("r.user_id = ?", limit, userID)
}

// ListAll returns every result, newest first. limit <= 0 returns all.
func (r *ResultRepository) ListAll(limit int) ([]models.TestResult, error) {
	return r.list("", limit)
}

// GetByID returns a result with its attempts
func (r *ResultRepository) GetByID(id int64) (*models.TestResult, error) {
	res, err := scanResult(r.db.QueryRow(
		"SELECT "+resultColumns+" FROM test_results r LEFT JOIN users u ON u.id = r.user_id WHERE r.id = ?", id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get test result: %w", err)
	}

	attempts, err := r.attempts(id)
	if err != nil {
		return nil, err
	}
	res.Attempts = attempts
	return res, nil
}

func (r *ResultRepository) attempts(resultID int64) ([]models.AttemptScore, error) {
	query := `
		SELECT word, pronunciation, fluency, accuracy, feedback, attempted_at
		FROM test_attempts
		WHERE test_result_id = ?
		ORDER BY position ASC
	`
	rows, err := r.db.Query(query, resultID)
	if err != nil {
		return nil, fmt.Errorf("failed to query attempts: %w", err)
	}
	defer rows.Close()

	attempts := []models.AttemptScore{}
	for rows.Next() {
		var a models.AttemptScore
		if err := rows.Scan(&a.Word, &a.Pronunciation, &a.Fluency, &a.Accuracy, &a.Feedback, &a.Timestamp); err != nil {
			return nil, fmt.Errorf("failed to scan attempt: %w", err)
		}
		attempts = append(attempts, a)
	}
	return attempts, rows.Err()
}

// Delete removes a result and its attempts
func (r *ResultRepository) Delete(id int64) error {
	result, err := r.db.Exec("DELETE FROM test_results WHERE id = ?", id)
	if err != nil {
		return fmt.Errorf("failed to delete test result: %w", err)
	}
	return requireAffected(result)
}

// Stats returns the number of results and their mean overall score
func (r *ResultRepository) Stats() (count int, averageScore float64, err error) {
	var avg sql.NullFloat64
	if err := r.db.QueryRow("SELECT COUNT(*), AVG(overall_score) FROM test_results").Scan(&count, &avg); err != nil {
		return 0, 0, fmt.Errorf("failed to read test result stats: %w", err)
	}
	return count, avg.Float64, nil
}
