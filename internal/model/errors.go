package model

import "errors"

var (
	ErrValidation       = errors.New("invalid record")
	ErrNotFound         = errors.New("not found")
	ErrStudentNotFound  = errors.New("student not found")
	ErrCourseNotFound   = errors.New("course not found")
	ErrDuplicateStudent = errors.New("duplicate student id")
	ErrDuplicateCourse  = errors.New("duplicate course name")
	ErrInvalidSortKey   = errors.New("invalid sort key")
	ErrTooManyCourses   = errors.New("too many courses")
)

// IsNotFound reports whether err is one of the lookup misses.
func IsNotFound(err error) bool {
	return errors.Is(err, ErrNotFound) || errors.Is(err, ErrStudentNotFound) || errors.Is(err, ErrCourseNotFound)
}
