package codec

import (
	"bytes"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"student_records/internal/model"
)

const scenario = `ETUDIANTS
numero;prenom;nom;age
1;Alice;Smith;20
MATIERES
nom;coef
Maths;3
NOTES
id;nom;note
1;Maths;12
1;Maths;16
`

func TestReadTextScenario(t *testing.T) {
	p, err := ReadText(strings.NewReader(scenario))
	require.NoError(t, err)

	s, err := p.Student(1)
	require.NoError(t, err)
	avg, ok := s.Course(0).Average().Value()
	require.True(t, ok)
	assert.Equal(t, float32(14), avg)
	avg, _ = s.Average().Value()
	assert.Equal(t, float32(14), avg)
	assert.Equal(t, uint32(1), s.Validated())
	assert.Equal(t, []string{"Smith Alice"}, model.DisplayNames(p.TopStudents(10)))
}

func TestLoadTextFile(t *testing.T) {
	p, err := LoadTextFile("testdata/promotion.txt")
	require.NoError(t, err)

	assert.Equal(t, 3, p.Catalog.Len())
	assert.Equal(t, "ANGLAIS", p.Catalog.At(0).Name)
	assert.Equal(t, 4, p.Registry.Len())
	assert.Equal(t, uint32(1), p.Registry.At(0).ID)

	assert.Equal(t, []string{"Adams Bea", "Smith Alice", "Brown Carl", "Young Dan"}, model.DisplayNames(p.TopStudents(10)))

	top, err := p.TopStudentsInCourse("ANGLAIS", 3)
	require.NoError(t, err)
	assert.Equal(t, []string{"Adams Bea", "Smith Alice", "Brown Carl"}, model.DisplayNames(top))

	s, _ := p.Student(2)
	avg, _ := s.Average().Value()
	assert.InDelta(t, 93.125/7.5, avg, 1e-5)
	assert.False(t, p.Registry.At(3).Average().IsSet())
}

func TestReadTextErrors(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want error
	}{
		{
			name: "missing students title",
			in:   "MATIERES\nnom;coef\n",
			want: ErrMissingSection,
		},
		{
			name: "missing grades header",
			in:   "ETUDIANTS\nnumero;prenom;nom;age\nMATIERES\nnom;coef\nNOTES\n",
			want: ErrMissingSection,
		},
		{
			name: "unknown student",
			in:   "ETUDIANTS\nnumero;prenom;nom;age\n1;A;B;20\nMATIERES\nnom;coef\nMaths;1\nNOTES\nid;nom;note\n99;Maths;10\n",
			want: model.ErrStudentNotFound,
		},
		{
			name: "unknown course",
			in:   "ETUDIANTS\nnumero;prenom;nom;age\n1;A;B;20\nMATIERES\nnom;coef\nMaths;1\nNOTES\nid;nom;note\n1;Unknown;10\n",
			want: model.ErrCourseNotFound,
		},
		{
			name: "grade out of bounds",
			in:   "ETUDIANTS\nnumero;prenom;nom;age\n1;A;B;20\nMATIERES\nnom;coef\nMaths;1\nNOTES\nid;nom;note\n1;Maths;20.5\n",
			want: model.ErrValidation,
		},
		{
			name: "malformed grade",
			in:   "ETUDIANTS\nnumero;prenom;nom;age\n1;A;B;20\nMATIERES\nnom;coef\nMaths;1\nNOTES\nid;nom;note\n1;Maths;1e1\n",
			want: ErrMalformedLine,
		},
		{
			name: "grade line with missing field",
			in:   "ETUDIANTS\nnumero;prenom;nom;age\n1;A;B;20\nMATIERES\nnom;coef\nMaths;1\nNOTES\nid;nom;note\n1;Maths\n",
			want: ErrMalformedLine,
		},
		{
			name: "student id overflow",
			in:   "ETUDIANTS\nnumero;prenom;nom;age\n4294967296;A;B;20\n",
			want: ErrMalformedLine,
		},
		{
			name: "age out of bounds",
			in:   "ETUDIANTS\nnumero;prenom;nom;age\n1;A;B;9\n",
			want: model.ErrValidation,
		},
		{
			name: "duplicate student",
			in:   "ETUDIANTS\nnumero;prenom;nom;age\n1;A;B;20\n1;C;D;20\nMATIERES\nnom;coef\n",
			want: model.ErrDuplicateStudent,
		},
		{
			name: "duplicate course",
			in:   "ETUDIANTS\nnumero;prenom;nom;age\nMATIERES\nnom;coef\nMaths;1\nMaths;2\nNOTES\nid;nom;note\n",
			want: model.ErrDuplicateCourse,
		},
		{
			name: "coefficient out of bounds",
			in:   "ETUDIANTS\nnumero;prenom;nom;age\nMATIERES\nnom;coef\nMaths;101\nNOTES\nid;nom;note\n",
			want: model.ErrValidation,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p, err := ReadText(strings.NewReader(tt.in))
			assert.ErrorIs(t, err, tt.want)
			assert.Nil(t, p)
		})
	}
}

func TestReadTextSectionBoundaries(t *testing.T) {
	// The line ending the students section is pushed back, the junk before
	// the next header is skipped and the grades stop at the first line not
	// starting with a digit.
	in := "preamble\r\nETUDIANTS\r\nnumero;prenom;nom;age\r\n2;Bob;Lee;30\r\nMATIERES\r\ncomment\r\nnom;coef\r\nArt;1.5\r\n\r\nNOTES\r\nid;nom;note\r\n2;Art;.5\r\n2;Art;-0.00005\r\n\r\n2;Art;not read\r\n"
	p, err := ReadText(strings.NewReader(in))
	require.NoError(t, err)

	s, err := p.Student(2)
	require.NoError(t, err)
	assert.Equal(t, 30, s.Age)
	assert.Equal(t, []float32{0.5, -0.00005}, s.Course(0).Grades())
	assert.Equal(t, float32(1.5), p.Catalog.At(0).Coefficient)
}

func TestReadTextEmptySections(t *testing.T) {
	p, err := ReadText(strings.NewReader("ETUDIANTS\nnumero;prenom;nom;age\nMATIERES\nnom;coef\nNOTES\nid;nom;note\n"))
	require.NoError(t, err)
	assert.Equal(t, 0, p.Registry.Len())
	assert.Equal(t, 0, p.Catalog.Len())
	assert.Empty(t, p.TopStudents(10))
}

func TestWriteTextRoundTrip(t *testing.T) {
	p, err := LoadTextFile("testdata/promotion.txt")
	require.NoError(t, err)

	var buf bytes.Buffer
	require.NoError(t, WriteText(&buf, p))
	back, err := ReadText(&buf)
	require.NoError(t, err)

	assert.Equal(t, p.Catalog.Courses(), back.Catalog.Courses())
	require.Equal(t, p.Registry.Len(), back.Registry.Len())
	for i := 0; i < p.Registry.Len(); i++ {
		a, b := p.Registry.At(i), back.Registry.At(i)
		assert.Equal(t, a.DisplayName(), b.DisplayName())
		assert.Equal(t, a.Average(), b.Average())
		assert.Equal(t, a.Validated(), b.Validated())
	}
}
