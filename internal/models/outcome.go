package models

// Outcome tags a successful core operation. Failures carry their outcome in the
// error code instead.
type Outcome string

const (
	OutcomeAuthenticated    Outcome = "AUTHENTICATED"
	OutcomePasswordChanged  Outcome = "PASSWORD_CHANGED"
	OutcomeUnlocked         Outcome = "UNLOCKED"
	OutcomeEnrolled         Outcome = "ENROLLED"
	OutcomeDropped          Outcome = "DROPPED"
	OutcomeComponentAdded   Outcome = "COMPONENT_ADDED"
	OutcomeScoreUpdated     Outcome = "SCORE_UPDATED"
	OutcomeFinalGradePosted Outcome = "FINAL_GRADE_POSTED"
)
