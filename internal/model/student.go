package model

import (
	"fmt"
	"math/bits"
)

type Student struct {
	ID        uint32
	LastName  string
	FirstName string
	Age       int

	courses []FollowedCourse
	average Average
	// bit i set when course i of the catalog is validated
	validated uint32
}

func NewStudent(id uint32, firstName, lastName string, age int) (*Student, error) {
	s := &Student{ID: id, FirstName: firstName, LastName: lastName, Age: age}
	if err := validateName(firstName); err != nil {
		return nil, fmt.Errorf("%w: student %d first name: %v", ErrValidation, id, err)
	}
	if err := validateName(lastName); err != nil {
		return nil, fmt.Errorf("%w: student %d last name: %v", ErrValidation, id, err)
	}
	if !AgeInBounds(age) {
		return nil, fmt.Errorf("%w: student %d age %d out of [%d, %d]", ErrValidation, id, age, AgeMin, AgeMax)
	}
	return s, nil
}

// RestoreStudent rebuilds a student from persisted values. The age is not
// persisted and the bitmask is derived from the stored course averages.
func RestoreStudent(id uint32, lastName, firstName string, average Average, courses []FollowedCourse) *Student {
	s := &Student{
		ID:        id,
		LastName:  lastName,
		FirstName: firstName,
		Age:       AgeUnknown,
		courses:   courses,
		average:   average,
	}
	s.UpdateBitmask()
	return s
}

// AllocateCourses gives the student n empty course slots.
func (s *Student) AllocateCourses(n int) {
	s.courses = make([]FollowedCourse, n)
	s.validated = 0
}

func (s *Student) CourseCount() int {
	return len(s.courses)
}

// Course returns the slot at catalog position i.
func (s *Student) Course(i int) *FollowedCourse {
	return &s.courses[i]
}

func (s *Student) Average() Average {
	return s.average
}

func (s *Student) Validated() uint32 {
	return s.validated
}

func (s *Student) ValidatedCount() int {
	return bits.OnesCount32(s.validated)
}

// HasValidated reports whether every course in mask is validated.
func (s *Student) HasValidated(mask uint32) bool {
	return s.validated&mask == mask
}

func (s *Student) UpdateBitmask() {
	s.validated = 0
	for i := range s.courses {
		if i >= MaxCourses {
			break
		}
		if v, ok := s.courses[i].average.Value(); ok && v >= GradeToValidate {
			s.validated |= 1 << uint(i)
		}
	}
}

// GeneralAverage is the coefficient weighted mean of the course averages
// that are set. It is absent when the total weight is zero.
func (s *Student) GeneralAverage(catalog *Catalog) Average {
	var sum, weight float64
	for i := range s.courses {
		v, ok := s.courses[i].average.Value()
		if !ok {
			continue
		}
		coef := float64(catalog.At(i).Coefficient)
		sum += coef * float64(v)
		weight += coef
	}
	if weight == 0 {
		return Average{}
	}
	return AverageOf(float32(sum / weight))
}

// Recompute refreshes every course average, the bitmask and the overall
// average.
func (s *Student) Recompute(catalog *Catalog) {
	for i := range s.courses {
		s.courses[i].ComputeAverage()
	}
	s.UpdateBitmask()
	s.average = s.GeneralAverage(catalog)
}

// MinCourseAverage is the lowest course average that is set.
func (s *Student) MinCourseAverage() Average {
	var lowest Average
	for i := range s.courses {
		a := s.courses[i].average
		if !a.IsSet() {
			continue
		}
		if !lowest.IsSet() || a.Compare(lowest) < 0 {
			lowest = a
		}
	}
	return lowest
}

// DisplayName is "Lastname Firstname".
func (s *Student) DisplayName() string {
	return s.LastName + " " + s.FirstName
}

func (s *Student) Clone() *Student {
	c := *s
	c.courses = make([]FollowedCourse, len(s.courses))
	for i := range s.courses {
		c.courses[i] = s.courses[i].clone()
	}
	return &c
}

func (s *Student) validate(nCourses int) error {
	if err := validateName(s.FirstName); err != nil {
		return fmt.Errorf("%w: student %d first name: %v", ErrValidation, s.ID, err)
	}
	if err := validateName(s.LastName); err != nil {
		return fmt.Errorf("%w: student %d last name: %v", ErrValidation, s.ID, err)
	}
	if s.Age != AgeUnknown && !AgeInBounds(s.Age) {
		return fmt.Errorf("%w: student %d age %d", ErrValidation, s.ID, s.Age)
	}
	if len(s.courses) != 0 && len(s.courses) != nCourses {
		return fmt.Errorf("%w: student %d has %d course slots, catalog has %d",
			ErrValidation, s.ID, len(s.courses), nCourses)
	}
	for i := range s.courses {
		if err := s.courses[i].validate(); err != nil {
			return fmt.Errorf("student %d course %d: %w", s.ID, i, err)
		}
	}
	if !s.average.inBounds() {
		return fmt.Errorf("%w: student %d average %g", ErrValidation, s.ID, s.average.value)
	}
	want := *s
	want.UpdateBitmask()
	if want.validated != s.validated {
		return fmt.Errorf("%w: student %d bitmask %b, course averages give %b",
			ErrValidation, s.ID, s.validated, want.validated)
	}
	return nil
}
