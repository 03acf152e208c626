package codec

import (
	"bytes"
	"encoding/binary"
	"encoding/json"
	"io"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"student_records/internal/model"
)

func loadFixture(t *testing.T) *model.Promotion {
	t.Helper()
	p, err := LoadTextFile("testdata/promotion.txt")
	require.NoError(t, err)
	return p
}

func assertSamePromotion(t *testing.T, want, got *model.Promotion) {
	t.Helper()
	assert.Equal(t, want.Catalog.Courses(), got.Catalog.Courses())
	require.Equal(t, want.Registry.Len(), got.Registry.Len())
	for i := 0; i < want.Registry.Len(); i++ {
		a, b := want.Registry.At(i), got.Registry.At(i)
		assert.Equal(t, a.ID, b.ID)
		assert.Equal(t, a.LastName, b.LastName)
		assert.Equal(t, a.FirstName, b.FirstName)
		assert.Equal(t, a.Average(), b.Average())
		assert.Equal(t, a.Validated(), b.Validated())
		require.Equal(t, a.CourseCount(), b.CourseCount())
		for c := 0; c < a.CourseCount(); c++ {
			assert.Equal(t, a.Course(c).Grades(), b.Course(c).Grades())
			assert.Equal(t, a.Course(c).Average(), b.Course(c).Average())
		}
	}
}

func TestBinaryRoundTrip(t *testing.T) {
	p := loadFixture(t)

	data, err := EncodeBinary(p)
	require.NoError(t, err)
	back, err := DecodeBinary(data)
	require.NoError(t, err)

	assertSamePromotion(t, p, back)
	assert.Equal(t, model.AgeUnknown, back.Registry.At(0).Age)
	assert.Equal(t, model.DisplayNames(p.TopStudents(10)), model.DisplayNames(back.TopStudents(10)))
}

func TestBinaryRoundTripKeepsEmptySlots(t *testing.T) {
	p := loadFixture(t)
	data, err := EncodeBinary(p)
	require.NoError(t, err)
	back, err := DecodeBinary(data)
	require.NoError(t, err)

	for i := 0; i < p.Registry.Len(); i++ {
		a, b := p.Registry.At(i), back.Registry.At(i)
		for c := 0; c < a.CourseCount(); c++ {
			want, err := json.Marshal(a.Course(c).Grades())
			require.NoError(t, err)
			got, err := json.Marshal(b.Course(c).Grades())
			require.NoError(t, err)
			assert.JSONEq(t, string(want), string(got), "student %d course %d", a.ID, c)
		}
	}
	// Smith Alice never got a PHYSIQUE grade
	alice, err := back.Student(1)
	require.NoError(t, err)
	assert.Nil(t, alice.Course(2).Grades())
}

func TestBinaryLayout(t *testing.T) {
	p, err := ReadText(bytes.NewReader([]byte(scenario)))
	require.NoError(t, err)
	data, err := EncodeBinary(p)
	require.NoError(t, err)

	var want bytes.Buffer
	w := func(v any) { require.NoError(t, binary.Write(&want, binary.LittleEndian, v)) }
	want.WriteString("PROM")
	w(int32(1))
	w(int32(1))
	w(int32(6))
	want.WriteString("Maths\x00")
	w(float32(3))
	w(int32(1))
	w(uint32(1))
	w(int32(6))
	want.WriteString("Smith\x00")
	w(int32(6))
	want.WriteString("Alice\x00")
	w(float32(14))
	w(int32(1))
	w(float32(14))
	w(int32(2))
	w(float32(12))
	w(float32(16))

	assert.Equal(t, want.Bytes(), data)
}

func TestBinaryAbsentAverageSentinel(t *testing.T) {
	p := loadFixture(t)
	back, err := DecodeBinary(mustEncode(t, p))
	require.NoError(t, err)

	s, err := back.Student(4)
	require.NoError(t, err)
	assert.False(t, s.Average().IsSet())
	assert.False(t, s.Course(0).Average().IsSet())
}

func TestBinaryEmptyPromotion(t *testing.T) {
	p := model.NewPromotion(model.NewCatalog(0), model.NewRegistry(0))
	back, err := DecodeBinary(mustEncode(t, p))
	require.NoError(t, err)
	assert.Equal(t, 0, back.Registry.Len())
	assert.Equal(t, 0, back.Catalog.Len())
}

func TestReadBinaryErrors(t *testing.T) {
	good := mustEncode(t, loadFixture(t))

	patch := func(off int, v any) []byte {
		b := bytes.Clone(good)
		var buf bytes.Buffer
		require.NoError(t, binary.Write(&buf, binary.LittleEndian, v))
		copy(b[off:], buf.Bytes())
		return b
	}

	tests := []struct {
		name string
		data []byte
		want error
	}{
		{"bad magic", append([]byte("MORP"), good[4:]...), ErrBadMagic},
		{"version", patch(4, int32(2)), ErrUnsupportedVersion},
		{"negative course count", patch(8, int32(-1)), ErrCorrupt},
		{"too many courses", patch(8, int32(model.MaxCourses+1)), ErrCorrupt},
		{"zero string length", patch(12, int32(0)), ErrCorrupt},
		{"oversized string", patch(12, int32(maxStringLen+1)), ErrCorrupt},
		{"missing terminator", patch(16+len("ANGLAIS"), byte('x')), ErrCorrupt},
		{"truncated", good[:len(good)-3], io.ErrUnexpectedEOF},
		{"empty", nil, ErrCorrupt},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p, err := DecodeBinary(tt.data)
			assert.ErrorIs(t, err, tt.want)
			assert.Nil(t, p)
		})
	}
}

func TestReadBinaryRejectsFollowedCountMismatch(t *testing.T) {
	p, err := ReadText(bytes.NewReader([]byte(scenario)))
	require.NoError(t, err)
	data := mustEncode(t, p)
	// header 12, course 4+6+4, n_students 4, id 4, two names 2*(4+6), average 4
	off := 12 + 14 + 4 + 4 + 20 + 4
	binary.LittleEndian.PutUint32(data[off:], 2)

	_, err = DecodeBinary(data)
	assert.ErrorIs(t, err, ErrCorrupt)
}

func TestWriteBinaryRejectsInvalidPromotion(t *testing.T) {
	p := loadFixture(t)
	for _, s := range p.Registry.Students() {
		s.ID = 7
	}
	var buf bytes.Buffer
	require.Error(t, WriteBinary(&buf, p), "an invalid promotion is not written")
}

func TestSaveAndLoadBinaryFile(t *testing.T) {
	p := loadFixture(t)
	path := filepath.Join(t.TempDir(), "promo.bin")

	require.NoError(t, SaveBinaryFile(path, p))
	back, err := LoadBinaryFile(path)
	require.NoError(t, err)
	assertSamePromotion(t, p, back)

	top := p.Top(2)
	topPath := filepath.Join(t.TempDir(), "top.bin")
	require.NoError(t, SaveBinaryFile(topPath, top))
	reloaded, err := LoadBinaryFile(topPath)
	require.NoError(t, err)
	assert.Equal(t, []string{"Smith Alice", "Adams Bea"}, model.DisplayNames(reloaded.Registry.Students()))

	entries, err := os.ReadDir(filepath.Dir(path))
	require.NoError(t, err)
	assert.Len(t, entries, 1, "no temporary file is left behind")

	_, err = LoadBinaryFile(filepath.Join(t.TempDir(), "missing.bin"))
	assert.ErrorIs(t, err, os.ErrNotExist)
}

func mustEncode(t *testing.T, p *model.Promotion) []byte {
	t.Helper()
	data, err := EncodeBinary(p)
	require.NoError(t, err)
	return data
}
