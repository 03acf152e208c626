package model

import (
	"fmt"
	"io"
	"strings"

	"github.com/google/uuid"
)

// Promotion is the root aggregate: a catalog, the students enrolled in it
// and the key used for listings.
type Promotion struct {
	ID       uuid.UUID
	Catalog  *Catalog
	Registry *Registry

	sortKey SortKey
}

func NewPromotion(catalog *Catalog, registry *Registry) *Promotion {
	return &Promotion{
		ID:       uuid.New(),
		Catalog:  catalog,
		Registry: registry,
		sortKey:  SortByID,
	}
}

func (p *Promotion) SortKey() SortKey {
	return p.sortKey
}

// SetSortKey changes the listing order. An invalid key leaves the
// current one in place.
func (p *Promotion) SetSortKey(k SortKey) error {
	if !k.Valid() {
		return fmt.Errorf("%w: %d", ErrInvalidSortKey, int(k))
	}
	p.sortKey = k
	return nil
}

// ComputeAverages is the batch pass run once after ingestion.
func (p *Promotion) ComputeAverages() {
	for _, s := range p.Registry.students.Items() {
		s.Recompute(p.Catalog)
	}
}

// AppendGrade records a grade without touching any average.
func (p *Promotion) AppendGrade(id uint32, course string, grade float32) error {
	_, err := p.appendGrade(id, course, grade)
	return err
}

// AddGrade records a grade and refreshes the averages of that student.
func (p *Promotion) AddGrade(id uint32, course string, grade float32) error {
	s, err := p.appendGrade(id, course, grade)
	if err != nil {
		return err
	}
	s.Recompute(p.Catalog)
	return nil
}

func (p *Promotion) appendGrade(id uint32, course string, grade float32) (*Student, error) {
	s, err := p.Registry.Lookup(id)
	if err != nil {
		return nil, err
	}
	i, err := p.Catalog.Lookup(course)
	if err != nil {
		return nil, err
	}
	if s.CourseCount() != p.Catalog.Len() {
		s.AllocateCourses(p.Catalog.Len())
	}
	if err := s.Course(i).AddGrade(grade); err != nil {
		return nil, fmt.Errorf("student %d course %s: %w", id, course, err)
	}
	return s, nil
}

func (p *Promotion) Student(id uint32) (*Student, error) {
	return p.Registry.Lookup(id)
}

// Sorted returns the students ordered by the active sort key.
func (p *Promotion) Sorted() []*Student {
	return SortStudents(p.Registry.students.Items(), p.sortKey)
}

func (p *Promotion) TopStudents(k int) []*Student {
	return TopStudents(p.Registry.students.Items(), k)
}

func (p *Promotion) TopStudentsInCourse(course string, k int) ([]*Student, error) {
	i, err := p.Catalog.Lookup(course)
	if err != nil {
		return nil, err
	}
	return TopStudentsInCourse(p.Registry.students.Items(), i, k), nil
}

// StudentsValidating returns, in id order, the students who validated every
// course of the group.
func (p *Promotion) StudentsValidating(g CourseGroup) ([]*Student, error) {
	mask, err := p.Catalog.GroupMask(g)
	if err != nil {
		return nil, err
	}
	var out []*Student
	for _, s := range p.Registry.students.Items() {
		if s.HasValidated(mask) {
			out = append(out, s)
		}
	}
	return out, nil
}

// Top builds a promotion over the same catalog holding copies of the k best
// students, kept in id order.
func (p *Promotion) Top(k int) *Promotion {
	best := p.TopStudents(k)
	reg := NewRegistry(len(best))
	for _, s := range best {
		reg.Add(s.Clone())
	}
	reg.SortByID()
	return NewPromotion(p.Catalog, reg)
}

// Validate checks every structural invariant of the aggregate.
func (p *Promotion) Validate() error {
	if err := p.Catalog.Validate(); err != nil {
		return err
	}
	return p.Registry.Validate(p.Catalog.Len())
}

// Format writes a human readable dump in listing order.
func (p *Promotion) Format(w io.Writer) error {
	var b strings.Builder
	fmt.Fprintf(&b, "Courses (%d):\n", p.Catalog.Len())
	for _, c := range p.Catalog.courses.Items() {
		fmt.Fprintf(&b, "  %s: %.2f\n", c.Name, c.Coefficient)
	}
	fmt.Fprintf(&b, "Students (%d), sorted by %s:\n", p.Registry.Len(), p.sortKey)
	for _, s := range p.Sorted() {
		fmt.Fprintf(&b, "Student %d: %s %s, avg = %s\n", s.ID, s.LastName, s.FirstName, s.average)
		for i := range s.courses {
			fc := &s.courses[i]
			if fc.GradeCount() == 0 {
				continue
			}
			fmt.Fprintf(&b, "  %s: avg = %s, grades =", p.Catalog.At(i).Name, fc.average)
			for _, g := range fc.grades {
				fmt.Fprintf(&b, " %.2f", g)
			}
			b.WriteByte('\n')
		}
	}
	_, err := io.WriteString(w, b.String())
	return err
}
