package service

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"io"
	"time"

	"github.com/sirupsen/logrus"

	"speakwell/internal/database"
)

const backupVersion = "2.0"

// BackupData represents the complete database backup structure
type BackupData struct {
	Version    string           `json:"version"`
	ExportedAt time.Time        `json:"exported_at"`
	Users      []UserBackup     `json:"users"`
	Lessons    []LessonBackup   `json:"lessons"`
	Results    []ResultBackup   `json:"results"`
	Feedback   []FeedbackBackup `json:"feedback"`
}

// UserBackup represents a user record for backup
type UserBackup struct {
	ID            int64      `json:"id"`
	Email         string     `json:"email"`
	PasswordHash  string     `json:"password_hash"`
	Name          string     `json:"name"`
	Role          string     `json:"role"`
	Level         int        `json:"level"`
	Status        string     `json:"status"`
	OAuthProvider string     `json:"oauth_provider"`
	OAuthSubject  string     `json:"oauth_subject"`
	LastLoginAt   *time.Time `json:"last_login_at"`
	CreatedAt     time.Time  `json:"created_at"`
	UpdatedAt     time.Time  `json:"updated_at"`
}

// LessonBackup represents a lesson for backup
type LessonBackup struct {
	ID          int64     `json:"id"`
	Title       string    `json:"title"`
	Description string    `json:"description"`
	Level       int       `json:"level"`
	Unit        int       `json:"unit"`
	Chapter     int       `json:"chapter"`
	Active      bool      `json:"active"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

// ResultBackup represents a stored speaking test with its attempts
type ResultBackup struct {
	ID            int64           `json:"id"`
	UserID        int64           `json:"user_id"`
	StartedAt     time.Time       `json:"started_at"`
	CompletedAt   *time.Time      `json:"completed_at"`
	Overall       int             `json:"overall_score"`
	Pronunciation int             `json:"pronunciation"`
	Fluency       int             `json:"fluency"`
	Accuracy      int             `json:"accuracy"`
	Feedback      string          `json:"feedback"`
	Attempts      []AttemptBackup `json:"attempts"`
}

// AttemptBackup represents one scored word of a test
type AttemptBackup struct {
	Position      int       `json:"position"`
	Word          string    `json:"word"`
	Pronunciation int       `json:"pronunciation"`
	Fluency       int       `json:"fluency"`
	Accuracy      int       `json:"accuracy"`
	Feedback      string    `json:"feedback"`
	AttemptedAt   time.Time `json:"attempted_at"`
}

// FeedbackBackup represents a feedback item for backup
type FeedbackBackup struct {
	ID        int64     `json:"id"`
	UserID    int64     `json:"user_id"`
	Type      string    `json:"type"`
	Message   string    `json:"message"`
	Status    string    `json:"status"`
	Priority  string    `json:"priority"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// backupTables lists the tables in dependency order
var backupTables = []string{"users", "lessons", "test_results", "test_attempts", "feedback"}

// BackupService handles database backup and restore operations
type BackupService struct {
	db     *database.DB
	logger logrus.FieldLogger
	now    func() time.Time
}

// NewBackupService creates a new backup service
func NewBackupService(db *database.DB, logger logrus.FieldLogger) *BackupService {
	return &BackupService{db: db, logger: logger.WithField("component", "backup"), now: time.Now}
}

// Export writes a backup of the database to w. Server sessions are not
// exported; users sign in again after a restore.
func (s *BackupService) Export(w io.Writer) (*BackupData, error) {
	backup := &BackupData{Version: backupVersion, ExportedAt: s.now().UTC()}

	if err := s.exportUsers(backup); err != nil {
		return nil, fmt.Errorf("failed to export users: %w", err)
	}
	if err := s.exportLessons(backup); err != nil {
		return nil, fmt.Errorf("failed to export lessons: %w", err)
	}
	if err := s.exportResults(backup); err != nil {
		return nil, fmt.Errorf("failed to export results: %w", err)
	}
	if err := s.exportFeedback(backup); err != nil {
		return nil, fmt.Errorf("failed to export feedback: %w", err)
	}

	encoder := json.NewEncoder(w)
	encoder.SetIndent("", "  ")
	if err := encoder.Encode(backup); err != nil {
		return nil, fmt.Errorf("failed to encode backup: %w", err)
	}

	s.logger.WithFields(logrus.Fields{
		"users":    len(backup.Users),
		"lessons":  len(backup.Lessons),
		"results":  len(backup.Results),
		"feedback": len(backup.Feedback),
	}).Info("Database exported")
	return backup, nil
}

// Import restores a backup read from r in a single transaction. With clear
// set, existing rows are removed first.
func (s *BackupService) Import(r io.Reader, clear bool) (*BackupData, error) {
	var backup BackupData
	if err := json.NewDecoder(r).Decode(&backup); err != nil {
		return nil, fmt.Errorf("failed to decode backup: %w", err)
	}
	s.logger.WithFields(logrus.Fields{"version": backup.Version, "exported_at": backup.ExportedAt}).Info("Importing backup")

	err := s.db.WithTx(func(tx *database.Tx) error {
		if clear {
			for i := len(backupTables) - 1; i >= 0; i-- {
				if _, err := tx.Exec("DELETE FROM " + backupTables[i]); err != nil {
					return fmt.Errorf("failed to clear table %s: %w", backupTables[i], err)
				}
			}
			if _, err := tx.Exec("DELETE FROM sessions"); err != nil {
				return fmt.Errorf("failed to clear sessions: %w", err)
			}
		}

		// Import in order of dependencies
		if err := importUsers(tx, backup.Users); err != nil {
			return fmt.Errorf("failed to import users: %w", err)
		}
		if err := importLessons(tx, backup.Lessons); err != nil {
			return fmt.Errorf("failed to import lessons: %w", err)
		}
		if err := importResults(tx, backup.Results); err != nil {
			return fmt.Errorf("failed to import results: %w", err)
		}
		if err := importFeedback(tx, backup.Feedback); err != nil {
			return fmt.Errorf("failed to import feedback: %w", err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info("Database import completed successfully")
	return &backup, nil
}

func nullTime(t sql.NullTime) *time.Time {
	if !t.Valid {
		return nil
	}
	return &t.Time
}

func timeOrNil(t *time.Time) interface{} {
	if t == nil {
		return nil
	}
	return *t
}

func nullIfEmpty(s string) interface{} {
	if s == "" {
		return nil
	}
	return s
}

func (s *BackupService) exportUsers(backup *BackupData) error {
	query := "SELECT id, email, password_hash, name, role, level, status, COALESCE(oauth_provider, ''), COALESCE(oauth_subject, ''), last_login_at, created_at, updated_at FROM users ORDER BY id"
	rows, err := s.db.Query(query)
	if err != nil {
		return err
	}
	defer rows.Close()

	for rows.Next() {
		var (
			u         UserBackup
			lastLogin sql.NullTime
		)
		if err := rows.Scan(&u.ID, &u.Email, &u.PasswordHash, &u.Name, &u.Role, &u.Level, &u.Status, &u.OAuthProvider, &u.OAuthSubject, &lastLogin, &u.CreatedAt, &u.UpdatedAt); err != nil {
			return err
		}
		u.LastLoginAt = nullTime(lastLogin)
		backup.Users = append(backup.Users, u)
	}
	return rows.Err()
}

func (s *BackupService) exportLessons(backup *BackupData) error {
	query := "SELECT id, title, description, level, unit, chapter, active, created_at, updated_at FROM lessons ORDER BY id"
	rows, err := s.db.Query(query)
	if err != nil {
		return err
	}
	defer rows.Close()

	for rows.Next() {
		var l LessonBackup
		if err := rows.Scan(&l.ID, &l.Title, &l.Description, &l.Level, &l.Unit, &l.Chapter, &l.Active, &l.CreatedAt, &l.UpdatedAt); err != nil {
			return err
		}
		backup.Lessons = append(backup.Lessons, l)
	}
	return rows.Err()
}

func (s *BackupService) exportResults(backup *BackupData) error {
	query := "SELECT id, user_id, started_at, completed_at, overall_score, pronunciation, fluency, accuracy, feedback FROM test_results ORDER BY id"
	rows, err := s.db.Query(query)
	if err != nil {
		return err
	}
	defer rows.Close()

	for rows.Next() {
		var (
			res       ResultBackup
			completed sql.NullTime
		)
		if err := rows.Scan(&res.ID, &res.UserID, &res.StartedAt, &completed, &res.Overall, &res.Pronunciation, &res.Fluency, &res.Accuracy, &res.Feedback); err != nil {
			return err
		}
		res.CompletedAt = nullTime(completed)
		backup.Results = append(backup.Results, res)
	}
	if err := rows.Err(); err != nil {
		return err
	}

	// Attach attempts once the result cursor is closed
	for i := range backup.Results {
		attempts, err := s.exportAttempts(backup.Results[i].ID)
		if err != nil {
			return err
		}
		backup.Results[i].Attempts = attempts
	}
	return nil
}

func (s *BackupService) exportAttempts(resultID int64) ([]AttemptBackup, error) {
	query := "SELECT position, word, pronunciation, fluency, accuracy, feedback, attempted_at FROM test_attempts WHERE test_result_id = ? ORDER BY position, id"
	rows, err := s.db.Query(query, resultID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var attempts []AttemptBackup
	for rows.Next() {
		var a AttemptBackup
		if err := rows.Scan(&a.Position, &a.Word, &a.Pronunciation, &a.Fluency, &a.Accuracy, &a.Feedback, &a.AttemptedAt); err != nil {
			return nil, err
		}
		attempts = append(attempts, a)
	}
	return attempts, rows.Err()
}

func (s *BackupService) exportFeedback(backup *BackupData) error {
	query := "SELECT id, user_id, type, message, status, priority, created_at, updated_at FROM feedback ORDER BY id"
	rows, err := s.db.Query(query)
	if err != nil {
		return err
	}
	defer rows.Close()

	for rows.Next() {
		var f FeedbackBackup
		if err := rows.Scan(&f.ID, &f.UserID, &f.Type, &f.Message, &f.Status, &f.Priority, &f.CreatedAt, &f.UpdatedAt); err != nil {
			return err
		}
		backup.Feedback = append(backup.Feedback, f)
	}
	return rows.Err()
}

func importUsers(tx database.DBTX, users []UserBackup) error {
	for _, u := range users {
		query := "INSERT INTO users (id, email, password_hash, name, role, level, status, oauth_provider, oauth_subject, last_login_at, created_at, updated_at) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)"
		_, err := tx.Exec(query, u.ID, u.Email, u.PasswordHash, u.Name, u.Role, u.Level, u.Status,
			nullIfEmpty(u.OAuthProvider), nullIfEmpty(u.OAuthSubject), timeOrNil(u.LastLoginAt), u.CreatedAt, u.UpdatedAt)
		if err != nil {
			return fmt.Errorf("failed to import user %d: %w", u.ID, err)
		}
	}
	return nil
}

func importLessons(tx database.DBTX, lessons []LessonBackup) error {
	for _, l := range lessons {
		query := "INSERT INTO lessons (id, title, description, level, unit, chapter, active, created_at, updated_at) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)"
		_, err := tx.Exec(query, l.ID, l.Title, l.Description, l.Level, l.Unit, l.Chapter, l.Active, l.CreatedAt, l.UpdatedAt)
		if err != nil {
			return fmt.Errorf("failed to import lesson %d: %w", l.ID, err)
		}
	}
	return nil
}

func importResults(tx database.DBTX, results []ResultBackup) error {
	for _, r := range results {
		query := "INSERT INTO test_results (id, user_id, started_at, completed_at, overall_score, pronunciation, fluency, accuracy, feedback) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)"
		_, err := tx.Exec(query, r.ID, r.UserID, r.StartedAt, timeOrNil(r.CompletedAt), r.Overall, r.Pronunciation, r.Fluency, r.Accuracy, r.Feedback)
		if err != nil {
			return fmt.Errorf("failed to import result %d: %w", r.ID, err)
		}

		for _, a := range r.Attempts {
			attemptQuery := "INSERT INTO test_attempts (test_result_id, position, word, pronunciation, fluency, accuracy, feedback, attempted_at) VALUES (?, ?, ?, ?, ?, ?, ?, ?)"
			_, err := tx.Exec(attemptQuery, r.ID, a.Position, a.Word, a.Pronunciation, a.Fluency, a.Accuracy, a.Feedback, a.AttemptedAt)
			if err != nil {
				return fmt.Errorf("failed to import attempt %d of result %d: %w", a.Position, r.ID, err)
			}
		}
	}
	return nil
}

func importFeedback(tx database.DBTX, items []FeedbackBackup) error {
	for _, f := range items {
		query := "INSERT INTO feedback (id, user_id, type, message, status, priority, created_at, updated_at) VALUES (?, ?, ?, ?, ?, ?, ?, ?)"
		_, err := tx.Exec(query, f.ID, f.UserID, f.Type, f.Message, f.Status, f.Priority, f.CreatedAt, f.UpdatedAt)
		if err != nil {
			return fmt.Errorf("failed to import feedback %d: %w", f.ID, err)
		}
	}
	return nil
}
