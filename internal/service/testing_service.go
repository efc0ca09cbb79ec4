package service

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/sirupsen/logrus"

	"speakwell/internal/models"
	"speakwell/internal/progress"
	"speakwell/internal/repository"
	"speakwell/internal/speaking"
)

// ErrNoActiveTest is returned when an owner has no speaking test
var ErrNoActiveTest = errors.New("no speaking test in progress")

// testEntry pairs a run with the account that owns it. The mutex serializes
// requests for one owner; different owners never contend.
type testEntry struct {
	mu      sync.Mutex
	run     *speaking.Run
	userID  int64
	saved   bool
	touched time.Time
}

// TestingService keeps one speaking test per owner and stores finished tests
type TestingService struct {
	mu        sync.Mutex
	runs      map[string]*testEntry
	evaluator *speaking.Evaluator
	results   *repository.ResultRepository
	words     []string
	logger    logrus.FieldLogger
	now       func() time.Time
}

// NewTestingService creates a testing service. A nil words list uses the
// default word list.
func NewTestingService(evaluator *speaking.Evaluator, results *repository.ResultRepository, words []string, logger logrus.FieldLogger) *TestingService {
	if len(words) == 0 {
		words = speaking.DefaultWords
	}
	return &TestingService{
		runs:      make(map[string]*testEntry),
		evaluator: evaluator,
		results:   results,
		words:     append([]string(nil), words...),
		logger:    logger.WithField("component", "testing"),
		now:       time.Now,
	}
}

func (s *TestingService) entry(owner string) (*testEntry, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	e, ok := s.runs[owner]
	if !ok {
		return nil, ErrNoActiveTest
	}
	return e, nil
}

// Start begins a new test for owner, replacing any earlier one. Results are
// stored only when userID is set.
func (s *TestingService) Start(owner string, userID int64) (speaking.Snapshot, error) {
	run := speaking.NewRun(s.words)
	now := s.now()
	if err := run.Start(now); err != nil {
		return speaking.Snapshot{}, err
	}

	e := &testEntry{run: run, userID: userID, touched: now}
	s.mu.Lock()
	s.runs[owner] = e
	s.mu.Unlock()

	s.logger.WithFields(logrus.Fields{"user_id": userID, "words": len(s.words)}).Debug("Speaking test started")
	return run.Snapshot(), nil
}

// Get returns the state of owner's test
func (s *TestingService) Get(owner string) (speaking.Snapshot, error) {
	e, err := s.entry(owner)
	if err != nil {
		return speaking.Snapshot{}, err
	}
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.run.Snapshot(), nil
}

// Attempt scores capture against the current word. A failed evaluation
// leaves the capture staged so the caller may retry or record again.
func (s *TestingService) Attempt(ctx context.Context, owner string, capture speaking.Capture) (models.AttemptScore, speaking.Snapshot, error) {
	e, err := s.entry(owner)
	if err != nil {
		return models.AttemptScore{}, speaking.Snapshot{}, err
	}
	e.mu.Lock()
	defer e.mu.Unlock()
	e.touched = s.now()

	if err := e.run.Stage(capture); err != nil {
		return models.AttemptScore{}, e.run.Snapshot(), err
	}
	attempt, err := e.run.Commit(ctx, s.evaluator)
	if err != nil {
		return models.AttemptScore{}, e.run.Snapshot(), err
	}
	return attempt, e.run.Snapshot(), nil
}

// Retry discards owner's unscored recording
func (s *TestingService) Retry(owner string) (speaking.Snapshot, error) {
	e, err := s.entry(owner)
	if err != nil {
		return speaking.Snapshot{}, err
	}
	e.mu.Lock()
	defer e.mu.Unlock()
	e.touched = s.now()

	if err := e.run.Retry(); err != nil {
		return e.run.Snapshot(), err
	}
	return e.run.Snapshot(), nil
}

// Next moves owner's test to the following word. When the test completes
// for a signed-in learner the result is stored once. Calling Next on a
// completed test whose result could not be stored retries the save.
func (s *TestingService) Next(owner string) (speaking.Snapshot, error) {
	e, err := s.entry(owner)
	if err != nil {
		return speaking.Snapshot{}, err
	}
	e.mu.Lock()
	defer e.mu.Unlock()
	e.touched = s.now()

	if s.unsaved(e) {
		if err := s.persist(e); err != nil {
			return e.run.Snapshot(), err
		}
		return e.run.Snapshot(), nil
	}
	if err := e.run.Advance(e.touched); err != nil {
		return e.run.Snapshot(), err
	}
	if e.run.State() == speaking.Completed {
		if err := s.persist(e); err != nil {
			return e.run.Snapshot(), err
		}
	}
	return e.run.Snapshot(), nil
}

// Results returns the summary of owner's test so far. A completed result
// that has not been stored yet is saved again first; a failed save is
// logged and the summary is still returned.
func (s *TestingService) Results(owner string) (progress.Summary, speaking.Snapshot, error) {
	e, err := s.entry(owner)
	if err != nil {
		return progress.Summary{}, speaking.Snapshot{}, err
	}
	e.mu.Lock()
	defer e.mu.Unlock()

	if s.unsaved(e) {
		if err := s.persist(e); err != nil {
			s.logger.WithError(err).WithField("user_id", e.userID).Warn("Speaking test result still not stored")
		}
	}
	snap := e.run.Snapshot()
	return snap.Summary, snap, nil
}

// Discard forgets owner's test without storing it
func (s *TestingService) Discard(owner string) {
	s.mu.Lock()
	delete(s.runs, owner)
	s.mu.Unlock()
}

// Prune removes tests untouched since before cutoff and returns how many
// were removed
func (s *TestingService) Prune(cutoff time.Time) int {
	s.mu.Lock()
	defer s.mu.Unlock()

	removed := 0
	for owner, e := range s.runs {
		e.mu.Lock()
		stale := e.touched.Before(cutoff)
		e.mu.Unlock()
		if stale {
			delete(s.runs, owner)
			removed++
		}
	}
	return removed
}

// unsaved reports whether e is a completed test whose result still has to be
// stored
func (s *TestingService) unsaved(e *testEntry) bool {
	return s.results != nil && e.userID != 0 && !e.saved && e.run.State() == speaking.Completed
}

func (s *TestingService) persist(e *testEntry) error {
	if e.saved || e.userID == 0 || s.results == nil {
		return nil
	}

	attempts := e.run.Attempts()
	summary := e.run.Summary()
	completed := e.run.CompletedAt()
	res := &models.TestResult{
		UserID:        e.userID,
		StartedAt:     e.run.StartedAt(),
		CompletedAt:   &completed,
		OverallScore:  summary.Overall,
		Pronunciation: summary.Pronunciation,
		Fluency:       summary.Fluency,
		Accuracy:      summary.Accuracy,
		Feedback:      resultFeedback(attempts, summary),
		Attempts:      attempts,
	}
	if err := s.results.Save(res); err != nil {
		return fmt.Errorf("failed to save test result: %w", err)
	}
	e.saved = true

	s.logger.WithFields(logrus.Fields{
		"user_id":   e.userID,
		"result_id": res.ID,
		"overall":   summary.Overall,
	}).Info("Speaking test completed")
	return nil
}

// resultFeedback uses the last attempt's feedback, falling back to the
// default for the overall score
func resultFeedback(attempts []models.AttemptScore, summary progress.Summary) string {
	if n := len(attempts); n > 0 && attempts[n-1].Feedback != "" {
		return attempts[n-1].Feedback
	}
	return speaking.DefaultFeedback(summary.Overall)
}
