package util

import (
	"fmt"
	"strconv"

	"student_records/internal/model"
)

// ParseStudentID parses a path parameter as a student id.
func ParseStudentID(s string) (uint32, error) {
	id, err := strconv.ParseUint(s, 10, 32)
	if err != nil {
		return 0, fmt.Errorf("%w: student id %q", model.ErrValidation, s)
	}
	return uint32(id), nil
}
