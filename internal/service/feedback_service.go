package service

import (
	"context"
	"strings"

	"github.com/sirupsen/logrus"

	"speakwell/internal/apperrors"
	"speakwell/internal/models"
	"speakwell/internal/repository"
)

// FeedbackInput is a learner's feedback submission
type FeedbackInput struct {
	Type    string `json:"type" validate:"required,oneof=bug feature_request general_feedback"`
	Message string `json:"message" validate:"notblank,max=5000"`
}

// TriageInput is an admin's status and priority update
type TriageInput struct {
	Status   string `json:"status" validate:"required,oneof=open closed"`
	Priority string `json:"priority" validate:"required,oneof=high medium low"`
}

// FeedbackService handles feedback submission and triage
type FeedbackService struct {
	feedbackRepo *repository.FeedbackRepository
	emailService *EmailService
	logger       logrus.FieldLogger
}

// NewFeedbackService creates a new feedback service. emailService may be nil.
func NewFeedbackService(feedbackRepo *repository.FeedbackRepository, emailService *EmailService, logger logrus.FieldLogger) *FeedbackService {
	return &FeedbackService{
		feedbackRepo: feedbackRepo,
		emailService: emailService,
		logger:       logger.WithField("component", "feedback"),
	}
}

// Submit stores feedback from userID and notifies admins
func (s *FeedbackService) Submit(ctx context.Context, userID int64, in FeedbackInput) (*models.Feedback, error) {
	fb := &models.Feedback{
		UserID:   userID,
		Type:     in.Type,
		Message:  strings.TrimSpace(in.Message),
		Status:   models.FeedbackOpen,
		Priority: models.PriorityMedium,
	}
	if fb.Type == models.FeedbackBug {
		fb.Priority = models.PriorityHigh
	}
	if err := s.feedbackRepo.Create(fb); err != nil {
		return nil, err
	}
	s.logger.WithFields(logrus.Fields{"feedback_id": fb.ID, "user_id": userID, "type": fb.Type}).Info("Feedback submitted")

	if s.emailService != nil {
		if err := s.emailService.SendFeedbackNotification(ctx, fb); err != nil {
			s.logger.WithError(err).WithField("feedback_id", fb.ID).Warn("Failed to send feedback notification")
		}
	}
	return fb, nil
}

// List returns feedback, optionally narrowed to one status
func (s *FeedbackService) List(status string) ([]models.Feedback, error) {
	if status != "" && status != models.FeedbackOpen && status != models.FeedbackClosed {
		return nil, apperrors.ValidationError{Field: "status", Message: "must be open or closed"}
	}
	return s.feedbackRepo.List(status)
}

// Triage updates the status and priority of feedback
func (s *FeedbackService) Triage(id int64, in TriageInput) (*models.Feedback, error) {
	if err := s.feedbackRepo.UpdateTriage(id, in.Status, in.Priority); err != nil {
		return nil, err
	}
	fb, err := s.feedbackRepo.GetByID(id)
	if err != nil {
		return nil, err
	}
	if fb == nil {
		return nil, apperrors.ErrNotFound
	}
	return fb, nil
}

// Delete removes feedback
func (s *FeedbackService) Delete(id int64) error {
	return s.feedbackRepo.Delete(id)
}
