package models

import (
	"math"
	"time"
)

// Weights are percentage points; an enrollment's components may total at most
// WeightCeiling within WeightTolerance.
const (
	WeightCeiling   = 100.0
	WeightTolerance = 1e-4
)

// GradeLetter is a final letter grade.
type GradeLetter string

const (
	GradeA GradeLetter = "A"
	GradeB GradeLetter = "B"
	GradeC GradeLetter = "C"
	GradeD GradeLetter = "D"
	GradeF GradeLetter = "F"
)

// Valid reports whether the letter is one of A-F (no E).
func (l GradeLetter) Valid() bool {
	switch l {
	case GradeA, GradeB, GradeC, GradeD, GradeF:
		return true
	}
	return false
}

// LetterFor maps a 0-100 percentage to a letter using fixed thresholds.
func LetterFor(percentage float64) GradeLetter {
	switch {
	case percentage >= 90:
		return GradeA
	case percentage >= 80:
		return GradeB
	case percentage >= 70:
		return GradeC
	case percentage >= 60:
		return GradeD
	default:
		return GradeF
	}
}

// GradeComponent is one weighted, optionally scored piece of an enrollment's grade.
type GradeComponent struct {
	ID           string    `db:"id" json:"id"`
	EnrollmentID string    `db:"enrollment_id" json:"enrollment_id"`
	Label        string    `db:"label" json:"label"`
	Score        *float64  `db:"score" json:"score"`
	MaxScore     float64   `db:"max_score" json:"max_score"`
	Weight       float64   `db:"weight" json:"weight"`
	CreatedAt    time.Time `db:"created_at" json:"created_at"`
	UpdatedAt    time.Time `db:"updated_at" json:"updated_at"`
}

// Gradable reports whether the component contributes to the final percentage.
func (c GradeComponent) Gradable() bool {
	return c.Score != nil && c.MaxScore > 0
}

// WeightsComplete reports whether total is 100 within tolerance.
func WeightsComplete(total float64) bool {
	return math.Abs(total-WeightCeiling) <= WeightTolerance
}

// WeightsExceed reports whether total is beyond the ceiling plus tolerance.
func WeightsExceed(total float64) bool {
	return total > WeightCeiling+WeightTolerance
}

// FinalPercentage sums (score/max)*weight over gradable components. Ungraded
// components are skipped entirely. graded is the number of components counted.
func FinalPercentage(components []GradeComponent) (percentage float64, graded int) {
	for _, c := range components {
		if !c.Gradable() {
			continue
		}
		percentage += (*c.Score / c.MaxScore) * c.Weight
		graded++
	}
	return percentage, graded
}

// GradeBook lists the components of one enrollment with their weight total.
type GradeBook struct {
	EnrollmentID string           `json:"enrollment_id"`
	TotalWeight  float64          `json:"total_weight"`
	Components   []GradeComponent `json:"components"`
}

// AddComponentRequest adds a weighted component to an enrollment.
type AddComponentRequest struct {
	EnrollmentID string   `json:"enrollment_id" validate:"required,max=64"`
	Label        string   `json:"label" validate:"required,max=100"`
	Score        *float64 `json:"score" validate:"omitempty,gte=0"`
	MaxScore     float64  `json:"max_score" validate:"gt=0"`
	Weight       float64  `json:"weight" validate:"gte=0,lte=100"`
}

// UpdateScoreRequest sets or clears a component score.
type UpdateScoreRequest struct {
	Score *float64 `json:"score" validate:"omitempty,gte=0"`
}

// ComponentResult reports a component write and any final grade it triggered.
type ComponentResult struct {
	Outcome     Outcome          `json:"outcome"`
	Component   *GradeComponent  `json:"component"`
	TotalWeight float64          `json:"total_weight"`
	Finalized   *FinalGradeEvent `json:"finalized,omitempty"`
}

// FinalGradeEvent describes an automatic finalization.
type FinalGradeEvent struct {
	Percentage float64     `json:"percentage"`
	Letter     GradeLetter `json:"letter"`
	Graded     int         `json:"graded_components"`
}
