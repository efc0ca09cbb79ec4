package models

import "time"

// Feedback types
const (
	FeedbackBug            = "bug"
	FeedbackFeatureRequest = "feature_request"
	FeedbackGeneral        = "general_feedback"
)

// Feedback statuses
const (
	FeedbackOpen   = "open"
	FeedbackClosed = "closed"
)

// Feedback priorities
const (
	PriorityHigh   = "high"
	PriorityMedium = "medium"
	PriorityLow    = "low"
)

// Feedback is a message submitted by a learner and triaged by an admin
type Feedback struct {
	ID        int64     `json:"id"`
	UserID    int64     `json:"userId"`
	UserName  string    `json:"userName,omitempty"`
	Type      string    `json:"type"`
	Message   string    `json:"message"`
	Status    string    `json:"status"`
	Priority  string    `json:"priority"`
	CreatedAt time.Time `json:"date"`
	UpdatedAt time.Time `json:"updatedAt"`
}
