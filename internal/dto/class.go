package dto

import (
	"time"

	"github.com/libinstruct/lir-api/internal/models"
)

// FlagInput is one submitted flag checkbox.
type FlagInput struct {
	Name  string `json:"name"`
	Value bool   `json:"value"`
}

// ClassRecordRequest is the create/update payload for a class record. The
// class end is never submitted; it is derived from start plus duration.
type ClassRecordRequest struct {
	LibrarianName    string      `json:"librarian_name"`
	Librarian2Name   string      `json:"librarian2_name,omitempty"`
	InstructorName   string      `json:"instructor_name"`
	InstructorEmail  string      `json:"instructor_email,omitempty" validate:"omitempty,email"`
	InstructorPhone  string      `json:"instructor_phone,omitempty"`
	ClassStart       time.Time   `json:"class_start"`
	DurationMinutes  int         `json:"duration_minutes"`
	ClassLocation    string      `json:"class_location"`
	ClassType        string      `json:"class_type"`
	Audience         string      `json:"audience"`
	DepartmentGroup  string      `json:"department_group"`
	CourseNumber     string      `json:"course_number,omitempty"`
	ClassDescription string      `json:"class_description,omitempty"`
	Attendance       *int        `json:"attendance,omitempty"`
	Flags            []FlagInput `json:"flags,omitempty"`
	// ReplaceFlags removes flags absent from the submission instead of
	// leaving them untouched.
	ReplaceFlags bool `json:"replace_flags,omitempty"`
}

// ClassRecordResponse combines a record with its attached flags.
type ClassRecordResponse struct {
	models.ClassRecord
	Flags []models.ClassFlag `json:"flags"`
}

// ClassListResponse returns one bucket's records along with the counts of all
// four buckets for badge display.
type ClassListResponse struct {
	Bucket  models.Bucket        `json:"bucket"`
	Counts  models.BucketCounts  `json:"counts"`
	Records []models.ClassRecord `json:"records"`
}

// DeleteTokenResponse carries a single-use delete confirmation token.
type DeleteTokenResponse struct {
	Token     string    `json:"token"`
	ExpiresAt time.Time `json:"expires_at"`
}
