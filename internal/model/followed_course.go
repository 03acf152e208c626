package model

import (
	"fmt"
	"slices"
)

// FollowedCourse holds one student's grades for one catalog course.
type FollowedCourse struct {
	grades  []float32
	average Average
}

// RestoreFollowedCourse rebuilds a course slot from persisted values
// without recomputing the average. An empty grade list is stored as nil,
// like a slot that never received a grade.
func RestoreFollowedCourse(grades []float32, avg Average) FollowedCourse {
	if len(grades) == 0 {
		grades = nil
	}
	return FollowedCourse{grades: grades, average: avg}
}

func (f *FollowedCourse) AddGrade(g float32) error {
	if !GradeInBounds(g) {
		return fmt.Errorf("%w: grade %g out of (%g, %g)", ErrValidation, g, GradeMin, GradeMax)
	}
	f.grades = append(f.grades, g)
	return nil
}

func (f *FollowedCourse) Grades() []float32 {
	return slices.Clone(f.grades)
}

func (f *FollowedCourse) GradeCount() int {
	return len(f.grades)
}

func (f *FollowedCourse) Average() Average {
	return f.average
}

// ComputeAverage stores and returns the arithmetic mean of the grades.
func (f *FollowedCourse) ComputeAverage() Average {
	if len(f.grades) == 0 {
		f.average = Average{}
		return f.average
	}
	var sum float64
	for _, g := range f.grades {
		sum += float64(g)
	}
	f.average = AverageOf(float32(sum / float64(len(f.grades))))
	return f.average
}

func (f *FollowedCourse) validate() error {
	for _, g := range f.grades {
		if !GradeInBounds(g) {
			return fmt.Errorf("%w: grade %g out of bounds", ErrValidation, g)
		}
	}
	if !f.average.inBounds() {
		return fmt.Errorf("%w: course average %g out of bounds", ErrValidation, f.average.value)
	}
	return nil
}

func (f FollowedCourse) clone() FollowedCourse {
	return FollowedCourse{grades: slices.Clone(f.grades), average: f.average}
}
