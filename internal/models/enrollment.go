package models

import "time"

// EnrollmentStatus represents the lifecycle of an enrollment.
type EnrollmentStatus string

// Possible enrollment statuses. DROPPED and COMPLETED are terminal.
const (
	EnrollmentStatusEnrolled  EnrollmentStatus = "ENROLLED"
	EnrollmentStatusDropped   EnrollmentStatus = "DROPPED"
	EnrollmentStatusCompleted EnrollmentStatus = "COMPLETED"
)

// Terminal reports whether no lifecycle transition can leave the status.
func (s EnrollmentStatus) Terminal() bool {
	return s == EnrollmentStatusDropped || s == EnrollmentStatusCompleted
}

// Enrollment captures a student's registration in a section.
type Enrollment struct {
	ID         string           `db:"id" json:"id"`
	StudentID  string           `db:"student_id" json:"student_id"`
	SectionID  string           `db:"section_id" json:"section_id"`
	Status     EnrollmentStatus `db:"status" json:"status"`
	EnrolledAt time.Time        `db:"enrolled_at" json:"enrolled_at"`
	DroppedAt  *time.Time       `db:"dropped_at" json:"dropped_at,omitempty"`
	FinalGrade *GradeLetter     `db:"final_grade" json:"final_grade,omitempty"`
	UpdatedAt  time.Time        `db:"updated_at" json:"updated_at"`
}

// EnrollmentDetail enriches Enrollment with section info.
type EnrollmentDetail struct {
	Enrollment
	SectionCode  string `db:"section_code" json:"section_code"`
	CourseCode   string `db:"course_code" json:"course_code"`
	SectionTitle string `db:"section_title" json:"section_title"`
	Term         string `db:"term" json:"term"`
}

// EnrollRequest asks for a seat in a section.
type EnrollRequest struct {
	StudentID string `json:"student_id" validate:"required,max=64"`
	SectionID string `json:"section_id" validate:"required,max=64"`
}

// DropRequest releases a student's seat in a section.
type DropRequest struct {
	StudentID string `json:"student_id" validate:"required,max=64"`
	SectionID string `json:"section_id" validate:"required,max=64"`
}

// PostFinalGradeRequest records a letter grade on an enrollment.
type PostFinalGradeRequest struct {
	Letter GradeLetter `json:"letter" validate:"required,oneof=A B C D F"`
}

// EnrollmentResult is an enrollment snapshot tagged with the outcome that produced it.
type EnrollmentResult struct {
	Outcome    Outcome     `json:"outcome"`
	Enrollment *Enrollment `json:"enrollment"`
}
