package model

import (
	"testing"

	"github.com/stretchr/testify/require"
)

type gradeEntry struct {
	id     uint32
	course string
	grade  float32
}

// buildPromotion follows the ingestion lifecycle: students, courses,
// allocation, grades, one batch computation.
func buildPromotion(t *testing.T, students []*Student, courses []Course, grades []gradeEntry) *Promotion {
	t.Helper()
	reg := NewRegistry(len(students))
	for _, s := range students {
		reg.Add(s)
	}
	reg.SortByID()
	cat := NewCatalog(len(courses))
	for _, c := range courses {
		require.NoError(t, cat.Add(c))
	}
	cat.Sort()
	reg.AllocateCourses(cat.Len())

	p := NewPromotion(cat, reg)
	for _, g := range grades {
		require.NoError(t, p.AppendGrade(g.id, g.course, g.grade))
	}
	p.ComputeAverages()
	require.NoError(t, p.Validate())
	return p
}

func mustStudent(t *testing.T, id uint32, first, last string) *Student {
	t.Helper()
	s, err := NewStudent(id, first, last, 20)
	require.NoError(t, err)
	return s
}
