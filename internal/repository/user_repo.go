package repository

import (
	"database/sql"
	"errors"
	"fmt"
	"time"

	"speakwell/internal/apperrors"
	"speakwell/internal/database"
	"speakwell/internal/models"
)

const userColumns = `id, email, password_hash, name, role, level, status,
	COALESCE(oauth_provider, ''), COALESCE(oauth_subject, ''), last_login_at, created_at, updated_at`

type rowScanner interface {
	Scan(dest ...interface{}) error
}

// UserRepository handles database operations for users and sessions
type UserRepository struct {
	db *database.DB
}

// NewUserRepository creates a new user repository
func NewUserRepository(db *database.DB) *UserRepository {
	return &UserRepository{db: db}
}

func scanUser(row rowScanner) (*models.User, error) {
	user := &models.User{}
	var role string
	var lastLogin sql.NullTime
	err := row.Scan(
		&user.ID,
		&user.Email,
		&user.PasswordHash,
		&user.Name,
		&role,
		&user.Level,
		&user.Status,
		&user.OAuthProvider,
		&user.OAuthSubject,
		&lastLogin,
		&user.CreatedAt,
		&user.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	user.Role = models.Role(role)
	if lastLogin.Valid {
		user.LastLoginAt = &lastLogin.Time
	}
	return user, nil
}

// CreateUser inserts a new user. The first user ever created becomes an admin.
func (r *UserRepository) CreateUser(email, passwordHash, name string) (*models.User, error) {
	return r.createUser(email, passwordHash, name, "", "")
}

// CreateOAuthUser inserts a user authenticated by an OAuth provider
func (r *UserRepository) CreateOAuthUser(email, name, provider, subject string) (*models.User, error) {
	return r.createUser(email, "", name, provider, subject)
}

func (r *UserRepository) createUser(email, passwordHash, name, provider, subject string) (*models.User, error) {
	var userCount int
	if err := r.db.QueryRow("SELECT COUNT(*) FROM users").Scan(&userCount); err != nil {
		return nil, fmt.Errorf("failed to count users: %w", err)
	}

	role := models.RoleStudent
	if userCount == 0 {
		role = models.RoleAdmin
	}

	var oauthProvider, oauthSubject interface{}
	if provider != "" {
		oauthProvider, oauthSubject = provider, subject
	}

	now := time.Now().UTC()
	query := `
		INSERT INTO users (email, password_hash, name, role, level, status, oauth_provider, oauth_subject, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`
	id, err := r.db.ExecReturningID(query, email, passwordHash, name, string(role), models.LevelBeginner,
		models.StatusActive, oauthProvider, oauthSubject, now, now)
	if err != nil {
		return nil, fmt.Errorf("failed to create user: %w", err)
	}

	return &models.User{
		ID:            id,
		Email:         email,
		PasswordHash:  passwordHash,
		Name:          name,
		Role:          role,
		Level:         models.LevelBeginner,
		Status:        models.StatusActive,
		OAuthProvider: provider,
		OAuthSubject:  subject,
		CreatedAt:     now,
		UpdatedAt:     now,
	}, nil
}

func (r *UserRepository) getUser(where string, args ...interface{}) (*models.User, error) {
	user, err := scanUser(r.db.QueryRow("SELECT "+userColumns+" FROM users WHERE "+where, args...))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get user: %w", err)
	}
	return user, nil
}

// GetUserByEmail retrieves a user by email address
func (r *UserRepository) GetUserByEmail(email string) (*models.User, error) {
	return r.getUser("email = ?", email)
}

// GetUserByID retrieves a user by ID
func (r *UserRepository) GetUserByID(id int64) (*models.User, error) {
	return r.getUser("id = ?", id)
}

// GetUserByOAuth retrieves a user by OAuth provider and subject
func (r *UserRepository) GetUserByOAuth(provider, subject string) (*models.User, error) {
	return r.getUser("oauth_provider = ? AND oauth_subject = ?", provider, subject)
}

// LinkOAuthProvider links an existing user to an OAuth provider
func (r *UserRepository) LinkOAuthProvider(userID int64, provider, subject string) error {
	query := `
		UPDATE users
		SET oauth_provider = ?, oauth_subject = ?, updated_at = ?
		WHERE id = ?
		AND (oauth_provider IS NULL OR oauth_provider = '')
	`
	result, err := r.db.Exec(query, provider, subject, time.Now().UTC(), userID)
	if err != nil {
		return fmt.Errorf("failed to link oauth provider: %w", err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to read link result: %w", err)
	}
	if rows == 0 {
		return fmt.Errorf("oauth provider already linked")
	}
	return nil
}

// TouchLastLogin records a successful sign-in
func (r *UserRepository) TouchLastLogin(id int64, at time.Time) error {
	if _, err := r.db.Exec("UPDATE users SET last_login_at = ? WHERE id = ?", at.UTC(), id); err != nil {
		return fmt.Errorf("failed to record login: %w", err)
	}
	return nil
}

// GetAllUsers retrieves all users, newest first
func (r *UserRepository) GetAllUsers() ([]models.User, error) {
	rows, err := r.db.Query("SELECT " + userColumns + " FROM users ORDER BY created_at DESC, id DESC")
	if err != nil {
		return nil, fmt.Errorf("failed to query users: %w", err)
	}
	defer rows.Close()

	var users []models.User
	for rows.Next() {
		user, err := scanUser(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan user: %w", err)
		}
		users = append(users, *user)
	}
	return users, rows.Err()
}

// UpdateUser updates the admin-managed fields of a user
func (r *UserRepository) UpdateUser(id int64, name string, role models.Role, level int, status string) error {
	query := `
		UPDATE users
		SET name = ?, role = ?, level = ?, status = ?, updated_at = ?
		WHERE id = ?
	`
	result, err := r.db.Exec(query, name, string(role), level, status, time.Now().UTC(), id)
	if err != nil {
		return fmt.Errorf("failed to update user: %w", err)
	}
	return requireAffected(result)
}

// DeleteUser deletes a user and all associated data
func (r *UserRepository) DeleteUser(id int64) error {
	result, err := r.db.Exec("DELETE FROM users WHERE id = ?", id)
	if err != nil {
		return fmt.Errorf("failed to delete user: %w", err)
	}
	return requireAffected(result)
}

// CountUsers returns the total and active user counts
func (r *UserRepository) CountUsers() (total, active int, err error) {
	query := "SELECT COUNT(*), COALESCE(SUM(CASE WHEN status = ? THEN 1 ELSE 0 END), 0) FROM users"
	if err := r.db.QueryRow(query, models.StatusActive).Scan(&total, &active); err != nil {
		return 0, 0, fmt.Errorf("failed to count users: %w", err)
	}
	return total, active, nil
}

// CreateSession creates a new session for a user
func (r *UserRepository) CreateSession(sessionID string, userID int64, expiresAt time.Time) (*models.Session, error) {
	now := time.Now().UTC()
	query := `
		INSERT INTO sessions (id, user_id, expires_at, created_at)
		VALUES (?, ?, ?, ?)
	`
	if _, err := r.db.Exec(query, sessionID, userID, expiresAt.UTC(), now); err != nil {
		return nil, fmt.Errorf("failed to create session: %w", err)
	}

	return &models.Session{
		ID:        sessionID,
		UserID:    userID,
		ExpiresAt: expiresAt,
		CreatedAt: now,
	}, nil
}

// GetSession retrieves a session by ID
func (r *UserRepository) GetSession(sessionID string) (*models.Session, error) {
	query := `
		SELECT id, user_id, expires_at, created_at
		FROM sessions
		WHERE id = ?
	`
	session := &models.Session{}
	err := r.db.QueryRow(query, sessionID).Scan(
		&session.ID,
		&session.UserID,
		&session.ExpiresAt,
		&session.CreatedAt,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get session: %w", err)
	}
	return session, nil
}

// DeleteSession removes a session from the database
func (r *UserRepository) DeleteSession(sessionID string) error {
	if _, err := r.db.Exec("DELETE FROM sessions WHERE id = ?", sessionID); err != nil {
		return fmt.Errorf("failed to delete session: %w", err)
	}
	return nil
}

// DeleteUserSessions removes every session belonging to a user
func (r *UserRepository) DeleteUserSessions(userID int64) error {
	if _, err := r.db.Exec("DELETE FROM sessions WHERE user_id = ?", userID); err != nil {
		return fmt.Errorf("failed to delete user sessions: %w", err)
	}
	return nil
}

// DeleteExpiredSessions removes all expired sessions and reports how many
func (r *UserRepository) DeleteExpiredSessions(now time.Time) (int64, error) {
	result, err := r.db.Exec("DELETE FROM sessions WHERE expires_at < ?", now.UTC())
	if err != nil {
		return 0, fmt.Errorf("failed to delete expired sessions: %w", err)
	}
	n, _ := result.RowsAffected()
	return n, nil
}

func requireAffected(result sql.Result) error {
	n, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to read result: %w", err)
	}
	if n == 0 {
		return apperrors.ErrNotFound
	}
	return nil
}
