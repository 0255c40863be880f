// Package shared contains common domain types, errors, and value objects used
// across all domain packages.
package shared

import (
	"regexp"
	"strings"
	"time"
)

// StudentID represents a unique student identifier (UUID format).
type StudentID string

// UUID validation regex (simple version).
var uuidRegex = regexp.MustCompile(`^[0-9a-fA-F]{8}-[0-9a-fA-F]{4}-[0-9a-fA-F]{4}-[0-9a-fA-F]{4}-[0-9a-fA-F]{12}$`)

// IsValid checks if the student ID is a valid UUID.
func (s StudentID) IsValid() bool {
	return uuidRegex.MatchString(string(s))
}

// String returns the string representation.
func (s StudentID) String() string {
	return string(s)
}

// IsEmpty checks if the ID is empty.
func (s StudentID) IsEmpty() bool {
	return s == ""
}

// NewStudentID creates a new StudentID with validation.
func NewStudentID(id string) (StudentID, error) {
	sid := StudentID(strings.ToLower(strings.TrimSpace(id)))
	if !sid.IsValid() {
		return "", NewDomainError("shared", "NewStudentID", ErrInvalidID, "invalid student ID format")
	}
	return sid, nil
}

// SchoolID represents the tenant the student belongs to.
type SchoolID string

// IsValid checks if the school ID is a valid UUID.
func (s SchoolID) IsValid() bool {
	return uuidRegex.MatchString(string(s))
}

// String returns the string representation.
func (s SchoolID) String() string {
	return string(s)
}

// NewSchoolID creates a new SchoolID with validation.
func NewSchoolID(id string) (SchoolID, error) {
	sid := SchoolID(strings.ToLower(strings.TrimSpace(id)))
	if !sid.IsValid() {
		return "", NewDomainError("shared", "NewSchoolID", ErrInvalidID, "invalid school ID format")
	}
	return sid, nil
}

// ReportID represents a generated report identifier (UUID format).
type ReportID string

// IsValid checks if the report ID is a valid UUID.
func (r ReportID) IsValid() bool {
	return uuidRegex.MatchString(string(r))
}

// String returns the string representation.
func (r ReportID) String() string {
	return string(r)
}

// NewReportID creates a new ReportID with validation.
func NewReportID(id string) (ReportID, error) {
	rid := ReportID(strings.ToLower(strings.TrimSpace(id)))
	if !rid.IsValid() {
		return "", NewDomainError("shared", "NewReportID", ErrInvalidID, "invalid report ID format")
	}
	return rid, nil
}

// TimeRange represents a reporting period.
type TimeRange struct {
	From time.Time
	To   time.Time
}

// IsValid checks if the time range is valid.
func (t TimeRange) IsValid() bool {
	return !t.From.IsZero() && !t.To.IsZero() && !t.From.After(t.To)
}

// Duration returns the duration of the time range.
func (t TimeRange) Duration() time.Duration {
	return t.To.Sub(t.From)
}

// Contains checks if a time is within the range.
func (t TimeRange) Contains(tm time.Time) bool {
	return (tm.Equal(t.From) || tm.After(t.From)) && (tm.Equal(t.To) || tm.Before(t.To))
}

// NewTimeRange creates a new TimeRange with validation. Bounds are truncated
// to microsecond precision, the finest granularity the stores round-trip.
func NewTimeRange(from, to time.Time) (TimeRange, error) {
	tr := TimeRange{
		From: from.Truncate(time.Microsecond),
		To:   to.Truncate(time.Microsecond),
	}
	if !tr.IsValid() {
		return TimeRange{}, NewDomainError("shared", "NewTimeRange", ErrInvalidInput, "'from' must be before 'to'")
	}
	return tr, nil
}
