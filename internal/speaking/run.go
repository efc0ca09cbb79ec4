package speaking

import (
	"context"
	"errors"
	"fmt"
	"time"

	"speakwell/internal/models"
	"speakwell/internal/progress"
)

// RunState is the lifecycle stage of a Run
type RunState int

const (
	NotStarted RunState = iota
	InProgress
	Completed
)

func (s RunState) String() string {
	switch s {
	case InProgress:
		return "in_progress"
	case Completed:
		return "completed"
	default:
		return "not_started"
	}
}

func (s RunState) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}

func (s *RunState) UnmarshalText(text []byte) error {
	switch string(text) {
	case "in_progress":
		*s = InProgress
	case "completed":
		*s = Completed
	case "not_started":
		*s = NotStarted
	default:
		return fmt.Errorf("unknown run state %q", text)
	}
	return nil
}

var (
	ErrNoWords          = errors.New("word list is empty")
	ErrRunNotStarted    = errors.New("test has not started")
	ErrRunStarted       = errors.New("test already started")
	ErrRunCompleted     = errors.New("test is already completed")
	ErrNoPendingCapture = errors.New("no recording to score")
)

// Run is one pass through a word list. A Run is owned by a single caller and
// is not safe for concurrent use.
type Run struct {
	words    []string
	position int
	state    RunState
	attempts []models.AttemptScore
	pending  *Capture

	startedAt   time.Time
	completedAt time.Time
	summary     progress.Summary
}

// NewRun creates a run over words
func NewRun(words []string) *Run {
	return &Run{words: append([]string(nil), words...)}
}

// Start moves the run to its first word
func (r *Run) Start(now time.Time) error {
	switch r.state {
	case Completed:
		return ErrRunCompleted
	case InProgress:
		return ErrRunStarted
	}
	if len(r.words) == 0 {
		return ErrNoWords
	}
	r.state = InProgress
	r.position = 0
	r.startedAt = now
	return nil
}

func (r *Run) requireInProgress() error {
	switch r.state {
	case NotStarted:
		return ErrRunNotStarted
	case Completed:
		return ErrRunCompleted
	}
	return nil
}

// CurrentWord returns the word being attempted
func (r *Run) CurrentWord() (string, bool) {
	if r.state != InProgress {
		return "", false
	}
	return r.words[r.position], true
}

// Stage holds capture as the pending attempt for the current word, replacing
// any earlier unscored capture.
func (r *Run) Stage(capture Capture) error {
	if err := r.requireInProgress(); err != nil {
		return err
	}
	r.pending = &capture
	return nil
}

// Retry discards the pending capture. Scored attempts are never removed.
func (r *Run) Retry() error {
	if err := r.requireInProgress(); err != nil {
		return err
	}
	r.pending = nil
	return nil
}

// CancelCapture drops an in-flight capture. It is a no-op when nothing is
// pending or the run is not in progress.
func (r *Run) CancelCapture() {
	r.pending = nil
}

// Commit scores the pending capture and appends the result. On failure the
// capture stays pending and the attempt list is unchanged.
func (r *Run) Commit(ctx context.Context, ev *Evaluator) (models.AttemptScore, error) {
	if err := r.requireInProgress(); err != nil {
		return models.AttemptScore{}, err
	}
	if r.pending == nil {
		return models.AttemptScore{}, ErrNoPendingCapture
	}

	attempt, err := ev.Evaluate(ctx, *r.pending, r.words[r.position])
	if err != nil {
		return models.AttemptScore{}, err
	}

	if n := len(r.attempts); n > 0 && attempt.Timestamp.Before(r.attempts[n-1].Timestamp) {
		attempt.Timestamp = r.attempts[n-1].Timestamp
	}
	r.attempts = append(r.attempts, attempt)
	r.pending = nil
	return attempt, nil
}

// Advance moves to the next word. Advancing past the last word completes the
// run and freezes its summary.
func (r *Run) Advance(now time.Time) error {
	if err := r.requireInProgress(); err != nil {
		return err
	}
	r.pending = nil
	r.position++
	if r.position >= len(r.words) {
		r.position = len(r.words)
		r.state = Completed
		r.completedAt = now
		r.summary = progress.Summarize(r.attempts)
	}
	return nil
}

// State returns the run's lifecycle stage
func (r *Run) State() RunState { return r.state }

// Position returns the index of the current word
func (r *Run) Position() int { return r.position }

// Words returns a copy of the word list
func (r *Run) Words() []string { return append([]string(nil), r.words...) }

// Attempts returns a copy of the scored attempts
func (r *Run) Attempts() []models.AttemptScore {
	return append([]models.AttemptScore(nil), r.attempts...)
}

// HasPending reports whether an unscored capture is staged
func (r *Run) HasPending() bool { return r.pending != nil }

// StartedAt returns when the run started
func (r *Run) StartedAt() time.Time { return r.startedAt }

// CompletedAt returns when the run completed, or the zero time
func (r *Run) CompletedAt() time.Time { return r.completedAt }

// Summary aggregates the attempts so far. Once the run completes the summary
// no longer changes.
func (r *Run) Summary() progress.Summary {
	if r.state == Completed {
		return r.summary
	}
	return progress.Summarize(r.attempts)
}

// Snapshot is a read-only view of a Run
type Snapshot struct {
	State       RunState              `json:"state"`
	Position    int                   `json:"position"`
	Total       int                   `json:"total"`
	CurrentWord string                `json:"currentWord,omitempty"`
	HasPending  bool                  `json:"hasPendingRecording"`
	Attempts    []models.AttemptScore `json:"attempts"`
	Summary     progress.Summary      `json:"summary"`
}

// Snapshot returns a copy of the run's state
func (r *Run) Snapshot() Snapshot {
	word, _ := r.CurrentWord()
	attempts := r.Attempts()
	if attempts == nil {
		attempts = []models.AttemptScore{}
	}
	return Snapshot{
		State:       r.state,
		Position:    r.position,
		Total:       len(r.words),
		CurrentWord: word,
		HasPending:  r.pending != nil,
		Attempts:    attempts,
		Summary:     r.Summary(),
	}
}
