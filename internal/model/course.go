package model

import (
	"fmt"
	"strings"
)

type Course struct {
	Name        string  `json:"name"`
	Coefficient float32 `json:"coefficient"`
}

func NewCourse(name string, coef float32) (Course, error) {
	c := Course{Name: name, Coefficient: coef}
	if err := c.Validate(); err != nil {
		return Course{}, err
	}
	return c, nil
}

func (c Course) Validate() error {
	if err := validateName(c.Name); err != nil {
		return fmt.Errorf("%w: course name: %v", ErrValidation, err)
	}
	if !CoefInBounds(c.Coefficient) {
		return fmt.Errorf("%w: course %q coefficient %g out of [%g, %g]",
			ErrValidation, c.Name, c.Coefficient, CoefMin, CoefMax)
	}
	return nil
}

func compareCourses(a, b Course) int {
	return strings.Compare(a.Name, b.Name)
}

func validateName(s string) error {
	if s == "" {
		return fmt.Errorf("empty")
	}
	if strings.ContainsAny(s, ";\n\x00") {
		return fmt.Errorf("%q contains a reserved character", s)
	}
	return nil
}
