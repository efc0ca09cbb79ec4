package models

import "time"

// AttemptScore is the scored result of one spoken word or phrase
type AttemptScore struct {
	Word          string    `json:"word"`
	Pronunciation int       `json:"pronunciationScore"`
	Fluency       int       `json:"fluencyScore"`
	Accuracy      int       `json:"accuracyScore"`
	Feedback      string    `json:"feedbackText"`
	Timestamp     time.Time `json:"timestamp"`
}

// TestResult is a completed (or abandoned) speaking test stored for the
// dashboard and the admin console
type TestResult struct {
	ID            int64          `json:"id"`
	UserID        int64          `json:"userId"`
	UserName      string         `json:"userName,omitempty"`
	StartedAt     time.Time      `json:"startedAt"`
	CompletedAt   *time.Time     `json:"testDate,omitempty"`
	OverallScore  int            `json:"overallScore"`
	Pronunciation int            `json:"pronunciation"`
	Fluency       int            `json:"fluency"`
	Accuracy      int            `json:"accuracy"`
	Feedback      string         `json:"feedback"`
	AttemptCount  int            `json:"attemptCount"`
	Attempts      []AttemptScore `json:"details,omitempty"`
}
