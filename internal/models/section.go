package models

import "time"

// Section is a scheduled offering of a course with a bounded number of seats.
// 0 <= EnrolledCount <= Capacity holds for every committed row.
type Section struct {
	ID            string    `db:"id" json:"id"`
	Code          string    `db:"code" json:"code"`
	CourseCode    string    `db:"course_code" json:"course_code"`
	Title         string    `db:"title" json:"title"`
	Term          string    `db:"term" json:"term"`
	Capacity      int       `db:"capacity" json:"capacity"`
	EnrolledCount int       `db:"enrolled_count" json:"enrolled_count"`
	CreatedAt     time.Time `db:"created_at" json:"created_at"`
	UpdatedAt     time.Time `db:"updated_at" json:"updated_at"`
}

// AvailableSeats returns the number of seats left at read time.
func (s Section) AvailableSeats() int {
	if s.EnrolledCount >= s.Capacity {
		return 0
	}
	return s.Capacity - s.EnrolledCount
}

// SectionFilter scopes section listings.
type SectionFilter struct {
	Term       string
	CourseCode string
	Page       int
	PageSize   int
}

// CreateSectionRequest is used by administrators to open a section.
type CreateSectionRequest struct {
	Code       string `json:"code" validate:"required,max=32"`
	CourseCode string `json:"course_code" validate:"required,max=16"`
	Title      string `json:"title" validate:"required,max=200"`
	Term       string `json:"term" validate:"required,max=16"`
	Capacity   int    `json:"capacity" validate:"required,gt=0,lte=10000"`
}
