package model

import (
	"fmt"
	"strings"

	"student_records/pkg/table"
)

// Catalog holds the courses ordered by name. A student's course slot i
// refers to catalog position i.
type Catalog struct {
	courses *table.Table[Course]
}

func NewCatalog(capacity int) *Catalog {
	return &Catalog{courses: table.New[Course](capacity)}
}

// Add appends a course. Call Sort once every course has been added.
func (c *Catalog) Add(course Course) error {
	if err := course.Validate(); err != nil {
		return err
	}
	if c.courses.Len() >= MaxCourses {
		return fmt.Errorf("%w: %w: at most %d courses", ErrValidation, ErrTooManyCourses, MaxCourses)
	}
	c.courses.Push(course)
	return nil
}

func (c *Catalog) Sort() {
	c.courses.Sort(compareCourses)
}

func (c *Catalog) Len() int {
	return c.courses.Len()
}

func (c *Catalog) At(i int) Course {
	return c.courses.At(i)
}

func (c *Catalog) Courses() []Course {
	return c.courses.Clone().Items()
}

// Index finds a course position by binary search.
func (c *Catalog) Index(name string) (int, bool) {
	return table.Search(c.courses, name, func(course Course, name string) int {
		return strings.Compare(course.Name, name)
	})
}

// Lookup is Index returning ErrCourseNotFound on a miss.
func (c *Catalog) Lookup(name string) (int, error) {
	i, ok := c.Index(name)
	if !ok {
		return -1, fmt.Errorf("%w: %q", ErrCourseNotFound, name)
	}
	return i, nil
}

func (c *Catalog) Validate() error {
	if c.courses.Len() > MaxCourses {
		return fmt.Errorf("%w: %w: %d courses", ErrValidation, ErrTooManyCourses, c.courses.Len())
	}
	for _, course := range c.courses.Items() {
		if err := course.Validate(); err != nil {
			return err
		}
	}
	if !c.courses.IsSorted(compareCourses) {
		return fmt.Errorf("%w: catalog is not sorted by name", ErrValidation)
	}
	if i := c.courses.FirstDuplicate(compareCourses); i >= 0 {
		return fmt.Errorf("%w: %w: %q", ErrValidation, ErrDuplicateCourse, c.courses.At(i).Name)
	}
	return nil
}

// TotalCoefficient sums every course weight.
func (c *Catalog) TotalCoefficient() float64 {
	var total float64
	for _, course := range c.courses.Items() {
		total += float64(course.Coefficient)
	}
	return total
}

// CourseGroup names a set of courses whose validation is checked together.
type CourseGroup struct {
	Name    string   `mapstructure:"name" json:"name" validate:"required"`
	Courses []string `mapstructure:"courses" json:"courses" validate:"min=1,dive,required"`
}

// GroupMask resolves the group's course names into bitmask positions.
func (c *Catalog) GroupMask(g CourseGroup) (uint32, error) {
	var mask uint32
	for _, name := range g.Courses {
		i, err := c.Lookup(name)
		if err != nil {
			return 0, fmt.Errorf("group %s: %w", g.Name, err)
		}
		mask |= 1 << uint(i)
	}
	return mask, nil
}
