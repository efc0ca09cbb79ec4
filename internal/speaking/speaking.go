// Package speaking scores spoken attempts and tracks a speaking test run.
package speaking

import (
	"context"
	"errors"
	"time"

	"github.com/sirupsen/logrus"

	"speakwell/internal/apperrors"
	"speakwell/internal/models"
)

const collaboratorName = "speech analysis service"

// DefaultWords is the word list used by the trial speaking test
var DefaultWords = []string{
	"Sustainability",
	"Entrepreneurship",
	"Globalization",
	"Infrastructure",
	"Biodiversity",
	"Cryptocurrency",
	"Artificial Intelligence",
	"Philanthropy",
	"Innovation",
	"Resilience",
}

// Capture is one recorded attempt
type Capture struct {
	Audio            []byte
	MIMEType         string
	PermissionDenied bool
}

// Score is a scorer's raw output. Values may fall outside 0-100; the
// Evaluator clamps them.
type Score struct {
	Pronunciation int    `json:"pronunciationScore"`
	Fluency       int    `json:"fluencyScore"`
	Accuracy      int    `json:"accuracyScore"`
	Feedback      string `json:"feedbackText"`
}

// Scorer analyses a capture against the phrase it should reproduce
type Scorer interface {
	Score(ctx context.Context, capture Capture, target string) (Score, error)
}

// Evaluator turns scorer output into AttemptScores
type Evaluator struct {
	scorer  Scorer
	timeout time.Duration
	now     func() time.Time
	logger  logrus.FieldLogger
}

// NewEvaluator creates an Evaluator. Scorer calls are bounded by timeout when
// it is positive.
func NewEvaluator(scorer Scorer, timeout time.Duration, logger logrus.FieldLogger) *Evaluator {
	if logger == nil {
		logger = logrus.StandardLogger()
	}
	return &Evaluator{
		scorer:  scorer,
		timeout: timeout,
		now:     time.Now,
		logger:  logger,
	}
}

// Evaluate scores capture against target
func (e *Evaluator) Evaluate(ctx context.Context, capture Capture, target string) (models.AttemptScore, error) {
	if capture.PermissionDenied {
		return models.AttemptScore{}, &apperrors.RecordingError{Reason: "microphone permission denied"}
	}
	if len(capture.Audio) == 0 {
		return models.AttemptScore{}, &apperrors.RecordingError{Reason: "no audio captured"}
	}

	if e.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, e.timeout)
		defer cancel()
	}

	score, err := e.scorer.Score(ctx, capture, target)
	if err != nil {
		if errors.Is(ctx.Err(), context.DeadlineExceeded) {
			err = &apperrors.CollaboratorTimeout{Collaborator: collaboratorName, Err: err}
		} else {
			err = apperrors.FromTransport(collaboratorName, err)
		}
		e.logger.WithError(err).WithField("target", target).Warn("Speech scoring failed")
		return models.AttemptScore{}, err
	}

	attempt := models.AttemptScore{
		Word:          target,
		Pronunciation: clamp(score.Pronunciation),
		Fluency:       clamp(score.Fluency),
		Accuracy:      clamp(score.Accuracy),
		Feedback:      score.Feedback,
		Timestamp:     e.now(),
	}
	if attempt.Feedback == "" {
		attempt.Feedback = DefaultFeedback((attempt.Pronunciation + attempt.Fluency + attempt.Accuracy) / 3)
	}
	return attempt, nil
}

func clamp(v int) int {
	switch {
	case v < 0:
		return 0
	case v > 100:
		return 100
	default:
		return v
	}
}

// DefaultFeedback returns generic feedback for a mean score
func DefaultFeedback(mean int) string {
	switch {
	case mean >= 90:
		return "Excellent job! Your pronunciation was very clear and natural."
	case mean >= 75:
		return "Good work! With a little more practice you'll sound even more natural."
	case mean >= 60:
		return "Not bad! Focus on the stressed syllables and try again."
	default:
		return "Keep practicing! Listen to the word and repeat it slowly."
	}
}
