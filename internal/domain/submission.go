package domain

import (
	"time"

	"github.com/google/uuid"
)

// Submission is one candidate handed to the judge. It lives for a single run.
type Submission struct {
	ID          uuid.UUID
	ProblemID   string
	Code        string
	SubmittedAt time.Time
}

// NewSubmission creates a new submission
func NewSubmission(problemID, code string) *Submission {
	return &Submission{
		ID:          uuid.New(),
		ProblemID:   problemID,
		Code:        code,
		SubmittedAt: time.Now(),
	}
}
