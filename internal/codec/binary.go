package codec

import (
	"bufio"
	"bytes"
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"student_records/internal/model"
	"student_records/pkg/table"
)

const (
	Magic   = "PROM"
	Version = int32(1)

	// maxStringLen bounds a persisted name, terminator included.
	maxStringLen = 4096
)

var order = binary.LittleEndian

// WriteBinary encodes p in the PROM layout: courses first, then students
// in id order, every course slot in catalog order.
func WriteBinary(w io.Writer, p *model.Promotion) error {
	if err := p.Validate(); err != nil {
		return err
	}
	bw := bufio.NewWriter(w)
	enc := &encoder{w: bw}

	enc.bytes([]byte(Magic))
	enc.int32(Version)
	enc.int32(int32(p.Catalog.Len()))
	if enc.err != nil {
		return enc.err
	}
	courses := table.From(p.Catalog.Courses())
	if err := courses.Encode(bw, writeCourse); err != nil {
		return err
	}

	students := table.From(p.Registry.Students())
	enc.int32(int32(students.Len()))
	if enc.err != nil {
		return enc.err
	}
	nCourses := p.Catalog.Len()
	if err := students.Encode(bw, func(w io.Writer, s *model.Student) error {
		return writeStudent(w, s, nCourses)
	}); err != nil {
		return err
	}
	return bw.Flush()
}

func writeCourse(w io.Writer, c model.Course) error {
	enc := &encoder{w: w}
	enc.string(c.Name)
	enc.float32(c.Coefficient)
	return enc.err
}

func writeStudent(w io.Writer, s *model.Student, nCourses int) error {
	enc := &encoder{w: w}
	enc.uint32(s.ID)
	enc.string(s.LastName)
	enc.string(s.FirstName)
	enc.float32(s.Average().Sentinel())
	enc.int32(int32(nCourses))
	for i := 0; i < nCourses; i++ {
		// a student never allocated is written with empty slots
		if i >= s.CourseCount() {
			enc.float32(model.NoAverage)
			enc.int32(0)
			continue
		}
		fc := s.Course(i)
		grades := fc.Grades()
		enc.float32(fc.Average().Sentinel())
		enc.int32(int32(len(grades)))
		for _, g := range grades {
			enc.float32(g)
		}
	}
	return enc.err
}

// ReadBinary decodes a PROM stream. The result is validated; nothing is
// returned on error.
func ReadBinary(r io.Reader) (*model.Promotion, error) {
	br := bufio.NewReader(r)
	dec := &decoder{r: br}

	head := dec.bytes(len(Magic))
	if dec.err != nil {
		return nil, dec.err
	}
	if string(head) != Magic {
		return nil, fmt.Errorf("%w: %q", ErrBadMagic, head)
	}
	if v := dec.int32(); dec.err == nil && v != Version {
		return nil, fmt.Errorf("%w: %d", ErrUnsupportedVersion, v)
	}
	nCourses := dec.count("course count")
	if dec.err != nil {
		return nil, dec.err
	}
	if nCourses > model.MaxCourses {
		return nil, fmt.Errorf("%w: %w: %d", ErrCorrupt, model.ErrTooManyCourses, nCourses)
	}
	courses, err := table.Decode(br, nCourses, readCourse)
	if err != nil {
		return nil, err
	}
	catalog := model.NewCatalog(nCourses)
	for _, c := range courses.Items() {
		if err := catalog.Add(c); err != nil {
			return nil, fmt.Errorf("%w: %w", ErrCorrupt, err)
		}
	}

	nStudents := dec.count("student count")
	if dec.err != nil {
		return nil, dec.err
	}
	students, err := table.Decode(br, nStudents, func(r io.Reader) (*model.Student, error) {
		return readStudent(r, nCourses)
	})
	if err != nil {
		return nil, err
	}
	registry := model.NewRegistry(students.Len())
	for _, s := range students.Items() {
		registry.Add(s)
	}
	registry.SortByID()

	p := model.NewPromotion(catalog, registry)
	if err := p.Validate(); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrCorrupt, err)
	}
	return p, nil
}

func readCourse(r io.Reader) (model.Course, error) {
	dec := &decoder{r: r}
	name := dec.string()
	coef := dec.float32()
	if dec.err != nil {
		return model.Course{}, dec.err
	}
	return model.Course{Name: name, Coefficient: coef}, nil
}

func readStudent(r io.Reader, nCourses int) (*model.Student, error) {
	dec := &decoder{r: r}
	id := dec.uint32()
	last := dec.string()
	first := dec.string()
	avg := dec.float32()
	nFollowed := dec.count("followed course count")
	if dec.err != nil {
		return nil, dec.err
	}
	if nFollowed != nCourses {
		return nil, fmt.Errorf("%w: student %d follows %d courses, catalog has %d", ErrCorrupt, id, nFollowed, nCourses)
	}
	courses := make([]model.FollowedCourse, nFollowed)
	for i := range courses {
		cavg := dec.float32()
		n := dec.count("grade count")
		if dec.err != nil {
			return nil, dec.err
		}
		var grades []float32
		if n > 0 {
			grades = make([]float32, 0, min(n, 256))
		}
		for j := 0; j < n; j++ {
			grades = append(grades, dec.float32())
			if dec.err != nil {
				return nil, dec.err
			}
		}
		courses[i] = model.RestoreFollowedCourse(grades, model.AverageFromSentinel(cavg))
	}
	return model.RestoreStudent(id, last, first, model.AverageFromSentinel(avg), courses), nil
}

// EncodeBinary returns the PROM encoding of p.
func EncodeBinary(p *model.Promotion) ([]byte, error) {
	var buf bytes.Buffer
	if err := WriteBinary(&buf, p); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func DecodeBinary(data []byte) (*model.Promotion, error) {
	return ReadBinary(bytes.NewReader(data))
}

// SaveBinaryFile writes through a temporary file in the target directory
// and renames it into place.
func SaveBinaryFile(path string, p *model.Promotion) error {
	f, err := os.CreateTemp(filepath.Dir(path), filepath.Base(path)+".tmp-*")
	if err != nil {
		return err
	}
	if err := WriteBinary(f, p); err != nil {
		f.Close()
		os.Remove(f.Name())
		return err
	}
	if err := f.Close(); err != nil {
		os.Remove(f.Name())
		return err
	}
	return os.Rename(f.Name(), path)
}

func LoadBinaryFile(path string) (*model.Promotion, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	return ReadBinary(f)
}

type encoder struct {
	w   io.Writer
	err error
}

func (e *encoder) write(v any) {
	if e.err != nil {
		return
	}
	e.err = binary.Write(e.w, order, v)
}

func (e *encoder) bytes(b []byte) {
	if e.err != nil {
		return
	}
	_, e.err = e.w.Write(b)
}

func (e *encoder) int32(v int32)     { e.write(v) }
func (e *encoder) uint32(v uint32)   { e.write(v) }
func (e *encoder) float32(v float32) { e.write(v) }

// string writes the length including the terminator, the bytes and a NUL.
func (e *encoder) string(s string) {
	if e.err == nil && len(s)+1 > maxStringLen {
		e.err = fmt.Errorf("%w: string of %d bytes exceeds %d", model.ErrValidation, len(s), maxStringLen-1)
		return
	}
	e.int32(int32(len(s) + 1))
	e.bytes(append([]byte(s), 0))
}

type decoder struct {
	r   io.Reader
	err error
}

func (d *decoder) fail(err error) {
	if errors.Is(err, io.EOF) || errors.Is(err, io.ErrUnexpectedEOF) {
		err = fmt.Errorf("%w: %w", ErrCorrupt, io.ErrUnexpectedEOF)
	}
	d.err = err
}

func (d *decoder) read(v any) {
	if d.err != nil {
		return
	}
	if err := binary.Read(d.r, order, v); err != nil {
		d.fail(err)
	}
}

func (d *decoder) bytes(n int) []byte {
	if d.err != nil {
		return nil
	}
	b := make([]byte, n)
	if _, err := io.ReadFull(d.r, b); err != nil {
		d.fail(err)
		return nil
	}
	return b
}

func (d *decoder) int32() int32 {
	var v int32
	d.read(&v)
	return v
}

func (d *decoder) uint32() uint32 {
	var v uint32
	d.read(&v)
	return v
}

func (d *decoder) float32() float32 {
	var v float32
	d.read(&v)
	return v
}

// count reads a non-negative int32.
func (d *decoder) count(what string) int {
	v := d.int32()
	if d.err == nil && v < 0 {
		d.err = fmt.Errorf("%w: negative %s %d", ErrCorrupt, what, v)
	}
	return int(v)
}

func (d *decoder) string() string {
	n := d.int32()
	if d.err != nil {
		return ""
	}
	if n <= 0 || n > maxStringLen {
		d.err = fmt.Errorf("%w: string length %d", ErrCorrupt, n)
		return ""
	}
	b := d.bytes(int(n))
	if d.err != nil {
		return ""
	}
	if b[n-1] != 0 {
		d.err = fmt.Errorf("%w: string is not terminated", ErrCorrupt)
		return ""
	}
	return string(b[:n-1])
}
