package models

import "time"

// Transcript is a student's enrollment history with final letters.
type Transcript struct {
	StudentID   string             `json:"student_id"`
	GeneratedAt time.Time          `json:"generated_at"`
	Entries     []EnrollmentDetail `json:"entries"`
}
