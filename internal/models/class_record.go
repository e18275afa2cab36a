package models

import "time"

// ClassRecord represents one logged library instruction session.
type ClassRecord struct {
	ID               int64      `db:"id" json:"id"`
	LibrarianName    string     `db:"librarian_name" json:"librarian_name"`
	Librarian2Name   *string    `db:"librarian2_name" json:"librarian2_name,omitempty"`
	InstructorName   string     `db:"instructor_name" json:"instructor_name"`
	InstructorEmail  *string    `db:"instructor_email" json:"instructor_email,omitempty"`
	InstructorPhone  *string    `db:"instructor_phone" json:"instructor_phone,omitempty"`
	ClassStart       time.Time  `db:"class_start" json:"class_start"`
	ClassEnd         time.Time  `db:"class_end" json:"class_end"`
	ClassLocation    string     `db:"class_location" json:"class_location"`
	ClassType        string     `db:"class_type" json:"class_type"`
	Audience         string     `db:"audience" json:"audience"`
	ClassDescription *string    `db:"class_description" json:"class_description,omitempty"`
	DepartmentGroup  string     `db:"department_group" json:"department_group"`
	CourseNumber     *string    `db:"course_number" json:"course_number,omitempty"`
	Attendance       *int       `db:"attendance" json:"attendance,omitempty"`
	OwnerID          string     `db:"owner_id" json:"owner_id"`
	LastUpdated      time.Time  `db:"last_updated" json:"last_updated"`
	LastUpdatedBy    string     `db:"last_updated_by" json:"last_updated_by"`
}

// ClassFlag is a named boolean fact attached to a class record, unique per
// (class record, name). Names may outlive their catalog definition.
type ClassFlag struct {
	ClassID int64  `db:"class_id" json:"class_id"`
	Name    string `db:"name" json:"name"`
	Value   bool   `db:"value" json:"value"`
}

// Bucket is a derived, non-exclusive classification of class records by
// time and ownership. Buckets are filters computed against "now", never
// stored state, and a record may belong to several at once.
type Bucket string

const (
	BucketUpcoming   Bucket = "upcoming"
	BucketIncomplete Bucket = "incomplete"
	BucketPrevious   Bucket = "previous"
	BucketMine       Bucket = "mine"
)

// ParseBucket maps a query-parameter value onto a bucket, defaulting to
// upcoming for anything unrecognised.
func ParseBucket(raw string) Bucket {
	switch Bucket(raw) {
	case BucketIncomplete, BucketPrevious, BucketMine:
		return Bucket(raw)
	default:
		return BucketUpcoming
	}
}

// BucketCounts carries the record count of every bucket for badge display.
type BucketCounts struct {
	Upcoming   int `json:"upcoming"`
	Incomplete int `json:"incomplete"`
	Previous   int `json:"previous"`
	Mine       int `json:"mine"`
}

// ReportFilter narrows report output. All conditions are conjoined; date
// bounds are inclusive and compared against class_start.
type ReportFilter struct {
	LibrarianName string
	StartDate     *time.Time
	EndDate       *time.Time
}

// ReportRecord is one flattened report row: every class record column plus
// the owner and last-updater display names resolved via the users table.
type ReportRecord struct {
	ClassRecord
	Owner             string `db:"owner" json:"owner"`
	LastUpdatedByName string `db:"last_updated_by_name" json:"last_updated_by_name"`
}
