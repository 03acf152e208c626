package controller

import "student_records/internal/model"

type CourseResult struct {
	Name        string        `json:"name"`
	Coefficient float32       `json:"coefficient"`
	Average     model.Average `json:"average"`
	Validated   bool          `json:"validated"`
	Grades      []float32     `json:"grades"`
}

type StudentView struct {
	ID        uint32         `json:"id"`
	LastName  string         `json:"lastName"`
	FirstName string         `json:"firstName"`
	Age       int            `json:"age,omitempty"`
	Average   model.Average  `json:"average"`
	Validated int            `json:"validatedCourses"`
	Courses   []CourseResult `json:"courses,omitempty"`
}

func studentSummary(s *model.Student) StudentView {
	return StudentView{
		ID:        s.ID,
		LastName:  s.LastName,
		FirstName: s.FirstName,
		Age:       s.Age,
		Average:   s.Average(),
		Validated: s.ValidatedCount(),
	}
}

func studentDetail(s *model.Student, catalog *model.Catalog) StudentView {
	v := studentSummary(s)
	for i := 0; i < s.CourseCount(); i++ {
		fc := s.Course(i)
		c := catalog.At(i)
		v.Courses = append(v.Courses, CourseResult{
			Name:        c.Name,
			Coefficient: c.Coefficient,
			Average:     fc.Average(),
			Validated:   s.HasValidated(1 << uint(i)),
			Grades:      fc.Grades(),
		})
	}
	return v
}

func studentSummaries(students []*model.Student) []StudentView {
	out := make([]StudentView, len(students))
	for i, s := range students {
		out[i] = studentSummary(s)
	}
	return out
}
