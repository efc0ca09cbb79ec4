package service

import (
	"errors"
	"strings"

	"github.com/sirupsen/logrus"

	"speakwell/internal/apperrors"
	"speakwell/internal/models"
	"speakwell/internal/repository"
)

// ErrSelfModification is returned when an admin tries to demote, deactivate
// or delete their own account
var ErrSelfModification = errors.New("admins cannot remove their own access")

// UserUpdate carries the admin-editable fields of an account
type UserUpdate struct {
	Name   string `json:"name" validate:"notblank,max=100"`
	Role   string `json:"role" validate:"role"`
	Level  int    `json:"level" validate:"min=1,max=3"`
	Status string `json:"status" validate:"required,oneof=active inactive"`
}

// AdminService handles account and test-result administration
type AdminService struct {
	userRepo   *repository.UserRepository
	resultRepo *repository.ResultRepository
	logger     logrus.FieldLogger
}

// NewAdminService creates a new admin service
func NewAdminService(userRepo *repository.UserRepository, resultRepo *repository.ResultRepository, logger logrus.FieldLogger) *AdminService {
	return &AdminService{
		userRepo:   userRepo,
		resultRepo: resultRepo,
		logger:     logger.WithField("component", "admin"),
	}
}

// ListUsers returns every account
func (s *AdminService) ListUsers() ([]models.User, error) {
	return s.userRepo.GetAllUsers()
}

// UpdateUser changes an account on behalf of actorID. Deactivated accounts
// lose their sessions immediately.
func (s *AdminService) UpdateUser(actorID, userID int64, in UserUpdate) (*models.User, error) {
	role, ok := models.ParseRole(in.Role)
	if !ok {
		return nil, apperrors.ValidationError{Field: "role", Message: "must be admin or student"}
	}
	if actorID == userID && (role != models.RoleAdmin || in.Status != models.StatusActive) {
		return nil, ErrSelfModification
	}

	if err := s.userRepo.UpdateUser(userID, strings.TrimSpace(in.Name), role, in.Level, in.Status); err != nil {
		return nil, err
	}
	if in.Status == models.StatusInactive {
		if err := s.userRepo.DeleteUserSessions(userID); err != nil {
			s.logger.WithError(err).WithField("user_id", userID).Warn("Failed to revoke sessions of deactivated user")
		}
	}

	user, err := s.userRepo.GetUserByID(userID)
	if err != nil {
		return nil, err
	}
	if user == nil {
		return nil, apperrors.ErrNotFound
	}
	s.logger.WithFields(logrus.Fields{
		"actor_id": actorID,
		"user_id":  userID,
		"role":     user.Role,
		"status":   user.Status,
	}).Info("User updated")
	return user, nil
}

// DeleteUser removes an account and everything it owns
func (s *AdminService) DeleteUser(actorID, userID int64) error {
	if actorID == userID {
		return ErrSelfModification
	}
	if err := s.userRepo.DeleteUser(userID); err != nil {
		return err
	}
	s.logger.WithFields(logrus.Fields{"actor_id": actorID, "user_id": userID}).Info("User deleted")
	return nil
}

// ListResults returns stored test results, newest first
func (s *AdminService) ListResults(limit int) ([]models.TestResult, error) {
	return s.resultRepo.ListAll(limit)
}

// GetResult returns one result with its attempt details
func (s *AdminService) GetResult(id int64) (*models.TestResult, error) {
	res, err := s.resultRepo.GetByID(id)
	if err != nil {
		return nil, err
	}
	if res == nil {
		return nil, apperrors.ErrNotFound
	}
	return res, nil
}

// DeleteResult removes a result
func (s *AdminService) DeleteResult(id int64) error {
	return s.resultRepo.Delete(id)
}
