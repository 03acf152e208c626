package model

import (
	"cmp"
	"fmt"
	"slices"
	"strings"
)

type SortKey int

const (
	SortByID SortKey = iota
	SortByFirstName
	SortByLastName
	// SortByAverage is descending, absent averages last.
	SortByAverage
	// SortByMinCourse is descending on the weakest course average.
	SortByMinCourse
)

var sortKeyNames = [...]string{
	SortByID:        "id",
	SortByFirstName: "first_name",
	SortByLastName:  "last_name",
	SortByAverage:   "average",
	SortByMinCourse: "min_course",
}

func (k SortKey) Valid() bool {
	return k >= SortByID && int(k) < len(sortKeyNames)
}

func (k SortKey) String() string {
	if !k.Valid() {
		return fmt.Sprintf("SortKey(%d)", int(k))
	}
	return sortKeyNames[k]
}

func ParseSortKey(s string) (SortKey, error) {
	for i, name := range sortKeyNames {
		if name == s {
			return SortKey(i), nil
		}
	}
	return 0, fmt.Errorf("%w: %q (want one of %s)", ErrInvalidSortKey, s, strings.Join(sortKeyNames[:], ", "))
}

// SortKeyNames lists the accepted names in enum order.
func SortKeyNames() []string {
	return slices.Clone(sortKeyNames[:])
}

// Compare orders two students under k. Ties fall back to id.
func (k SortKey) Compare(a, b *Student) int {
	var c int
	switch k {
	case SortByFirstName:
		c = strings.Compare(a.FirstName, b.FirstName)
	case SortByLastName:
		c = strings.Compare(a.LastName, b.LastName)
	case SortByAverage:
		c = b.average.Compare(a.average)
	case SortByMinCourse:
		c = b.MinCourseAverage().Compare(a.MinCourseAverage())
	}
	if c != 0 {
		return c
	}
	return cmp.Compare(a.ID, b.ID)
}

// SortStudents returns a copy of students ordered by k.
func SortStudents(students []*Student, k SortKey) []*Student {
	out := slices.Clone(students)
	slices.SortStableFunc(out, k.Compare)
	return out
}

// TopStudents keeps the k best overall averages, best first.
func TopStudents(students []*Student, k int) []*Student {
	return topBy(students, k, func(s *Student) Average { return s.average })
}

// TopStudentsInCourse keeps the k best averages for the course at
// catalog position course.
func TopStudentsInCourse(students []*Student, course, k int) []*Student {
	return topBy(students, k, func(s *Student) Average {
		if course >= len(s.courses) {
			return Average{}
		}
		return s.courses[course].average
	})
}

// topBy is a bounded insertion: the result stays sorted descending and a
// candidate only displaces entries it strictly beats, so earlier students
// win ties.
func topBy(students []*Student, k int, key func(*Student) Average) []*Student {
	if k <= 0 {
		return []*Student{}
	}
	top := make([]*Student, 0, min(k, len(students))+1)
	keys := make([]Average, 0, cap(top))
	for _, s := range students {
		v := key(s)
		if len(top) == k && v.Compare(keys[len(keys)-1]) <= 0 {
			continue
		}
		pos := len(top)
		for pos > 0 && v.Compare(keys[pos-1]) > 0 {
			pos--
		}
		top = slices.Insert(top, pos, s)
		keys = slices.Insert(keys, pos, v)
		if len(top) > k {
			top = top[:k]
			keys = keys[:k]
		}
	}
	return top
}

// DisplayNames maps students to "Lastname Firstname".
func DisplayNames(students []*Student) []string {
	names := make([]string, len(students))
	for i, s := range students {
		names[i] = s.DisplayName()
	}
	return names
}
