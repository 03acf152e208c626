package model

import (
	"cmp"
	"fmt"

	"student_records/pkg/table"
)

// Registry stores students ordered by id.
type Registry struct {
	students *table.Table[*Student]
}

func NewRegistry(capacity int) *Registry {
	return &Registry{students: table.New[*Student](capacity)}
}

// Add appends a student. Call SortByID once every student has been added.
func (r *Registry) Add(s *Student) {
	r.students.Push(s)
}

func (r *Registry) SortByID() {
	r.students.Sort(compareIDs)
}

func (r *Registry) Len() int {
	return r.students.Len()
}

func (r *Registry) At(i int) *Student {
	return r.students.At(i)
}

// Students returns the registry in id order. The slice is a copy; the
// students are shared.
func (r *Registry) Students() []*Student {
	return r.students.Clone().Items()
}

func (r *Registry) Find(id uint32) (*Student, bool) {
	i, ok := table.Search(r.students, id, func(s *Student, id uint32) int {
		return cmp.Compare(s.ID, id)
	})
	if !ok {
		return nil, false
	}
	return r.students.At(i), true
}

// Lookup is Find returning ErrStudentNotFound on a miss.
func (r *Registry) Lookup(id uint32) (*Student, error) {
	s, ok := r.Find(id)
	if !ok {
		return nil, fmt.Errorf("%w: id %d", ErrStudentNotFound, id)
	}
	return s, nil
}

func (r *Registry) AllocateCourses(n int) {
	for _, s := range r.students.Items() {
		s.AllocateCourses(n)
	}
}

// DuplicateID returns the first id appearing twice in a sorted registry.
func (r *Registry) DuplicateID() (uint32, bool) {
	i := r.students.FirstDuplicate(compareIDs)
	if i < 0 {
		return 0, false
	}
	return r.students.At(i).ID, true
}

func (r *Registry) Validate(nCourses int) error {
	if !r.students.IsSorted(compareIDs) {
		return fmt.Errorf("%w: registry is not sorted by id", ErrValidation)
	}
	if id, dup := r.DuplicateID(); dup {
		return fmt.Errorf("%w: %w: %d", ErrValidation, ErrDuplicateStudent, id)
	}
	for _, s := range r.students.Items() {
		if err := s.validate(nCourses); err != nil {
			return err
		}
	}
	return nil
}

func compareIDs(a, b *Student) int {
	return cmp.Compare(a.ID, b.ID)
}
