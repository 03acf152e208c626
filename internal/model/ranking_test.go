package model

import (
	"fmt"
	"math/rand"
	"slices"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func rankedPromotion(t *testing.T) *Promotion {
	t.Helper()
	students := []*Student{
		mustStudent(t, 4, "Dan", "Young"),
		mustStudent(t, 1, "Alice", "Smith"),
		mustStudent(t, 3, "Carl", "Brown"),
		mustStudent(t, 2, "Bea", "Adams"),
		mustStudent(t, 5, "Eve", "Ng"),
	}
	return buildPromotion(t, students,
		[]Course{{"Maths", 2}, {"Art", 1}},
		[]gradeEntry{
			{1, "Maths", 18}, {1, "Art", 10},
			{2, "Maths", 12}, {2, "Art", 19},
			{3, "Maths", 15}, {3, "Art", 15},
			{4, "Maths", 8},
		})
}

func ids(students []*Student) []uint32 {
	out := make([]uint32, len(students))
	for i, s := range students {
		out[i] = s.ID
	}
	return out
}

func TestTopStudents(t *testing.T) {
	p := rankedPromotion(t)
	// 1: 46/3, 2: 43/3, 3: 15, 4: 8, 5: absent
	assert.Equal(t, []uint32{1, 3, 2}, ids(p.TopStudents(3)))
	assert.Equal(t, []uint32{1, 3, 2, 4, 5}, ids(p.TopStudents(10)))
	assert.Empty(t, p.TopStudents(0))
	assert.Empty(t, p.TopStudents(-2))
}

func TestTopStudentsTiesKeepIdOrder(t *testing.T) {
	students := []*Student{
		mustStudent(t, 1, "A", "A"),
		mustStudent(t, 2, "B", "B"),
		mustStudent(t, 3, "C", "C"),
	}
	p := buildPromotion(t, students, []Course{{"X", 1}},
		[]gradeEntry{{1, "X", 10}, {2, "X", 12}, {3, "X", 12}})
	assert.Equal(t, []uint32{2, 3}, ids(p.TopStudents(2)))
}

func TestTopStudentsMatchesFullSort(t *testing.T) {
	r := rand.New(rand.NewSource(7))
	var students []*Student
	var grades []gradeEntry
	for id := uint32(1); id <= 200; id++ {
		students = append(students, mustStudent(t, id, fmt.Sprintf("F%d", id), fmt.Sprintf("L%d", id)))
		for n := r.Intn(4); n > 0; n-- {
			grades = append(grades, gradeEntry{id, "X", float32(r.Intn(41)) / 2})
		}
	}
	p := buildPromotion(t, students, []Course{{"X", 1}}, grades)

	for _, k := range []int{1, 3, 10, 50, 200, 250} {
		want := SortStudents(p.Registry.Students(), SortByAverage)
		want = want[:min(k, len(want))]
		assert.Equal(t, ids(want), ids(p.TopStudents(k)), "k=%d", k)
	}
}

func TestTopStudentsInCourse(t *testing.T) {
	p := rankedPromotion(t)

	top, err := p.TopStudentsInCourse("Art", 3)
	require.NoError(t, err)
	assert.Equal(t, []string{"Adams Bea", "Brown Carl", "Smith Alice"}, DisplayNames(top))

	top, err = p.TopStudentsInCourse("Maths", 1)
	require.NoError(t, err)
	assert.Equal(t, []uint32{1}, ids(top))

	_, err = p.TopStudentsInCourse("Unknown", 3)
	assert.ErrorIs(t, err, ErrCourseNotFound)
	assert.True(t, IsNotFound(err))
}

func TestSortKeys(t *testing.T) {
	p := rankedPromotion(t)
	tests := []struct {
		key  SortKey
		want []uint32
	}{
		{SortByID, []uint32{1, 2, 3, 4, 5}},
		{SortByFirstName, []uint32{1, 2, 3, 4, 5}},
		{SortByLastName, []uint32{2, 3, 5, 1, 4}},
		{SortByAverage, []uint32{1, 3, 2, 4, 5}},
		{SortByMinCourse, []uint32{3, 2, 1, 4, 5}},
	}
	for _, tt := range tests {
		t.Run(tt.key.String(), func(t *testing.T) {
			require.NoError(t, p.SetSortKey(tt.key))
			assert.Equal(t, tt.want, ids(p.Sorted()))
			assert.Equal(t, []uint32{1, 2, 3, 4, 5}, ids(p.Registry.Students()), "canonical order is kept")
		})
	}
}

func TestParseSortKey(t *testing.T) {
	for _, name := range SortKeyNames() {
		k, err := ParseSortKey(name)
		require.NoError(t, err)
		assert.Equal(t, name, k.String())
	}
	_, err := ParseSortKey("age")
	assert.ErrorIs(t, err, ErrInvalidSortKey)
}

func TestSetSortKeyRejectsInvalid(t *testing.T) {
	p := rankedPromotion(t)
	require.NoError(t, p.SetSortKey(SortByLastName))
	assert.ErrorIs(t, p.SetSortKey(SortKey(42)), ErrInvalidSortKey)
	assert.Equal(t, SortByLastName, p.SortKey())
}

func TestSortStudentsDoesNotMutateInput(t *testing.T) {
	p := rankedPromotion(t)
	in := p.Registry.Students()
	before := slices.Clone(in)
	SortStudents(in, SortByLastName)
	assert.Equal(t, before, in)
}
