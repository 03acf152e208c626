package codec

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"os"
	"regexp"
	"strconv"
	"strings"

	"student_records/internal/model"
)

const (
	StudentsTitle  = "ETUDIANTS"
	StudentsHeader = "numero;prenom;nom;age"
	CoursesTitle   = "MATIERES"
	CoursesHeader  = "nom;coef"
	GradesTitle    = "NOTES"
	GradesHeader   = "id;nom;note"

	maxLineLen = 1 << 20
)

// No exponent, no sign other than a leading minus.
var gradePattern = regexp.MustCompile(`^-?(\d+(\.\d*)?|\.\d+)$`)

type lineReader struct {
	sc      *bufio.Scanner
	line    int
	pending string
	pushed  bool
}

func newLineReader(r io.Reader) *lineReader {
	sc := bufio.NewScanner(r)
	sc.Buffer(make([]byte, 0, 4096), maxLineLen)
	return &lineReader{sc: sc}
}

// next returns the following line without its terminator, or io.EOF.
func (r *lineReader) next() (string, error) {
	if r.pushed {
		r.pushed = false
		return r.pending, nil
	}
	if !r.sc.Scan() {
		if err := r.sc.Err(); err != nil {
			return "", err
		}
		return "", io.EOF
	}
	r.line++
	return strings.TrimSuffix(r.sc.Text(), "\r"), nil
}

// unread pushes back the last line returned by next.
func (r *lineReader) unread(line string) {
	r.pending = line
	r.pushed = true
}

func (r *lineReader) errorf(err error, format string, args ...any) error {
	return fmt.Errorf("line %d: %w: %s", r.line, err, fmt.Sprintf(format, args...))
}

// seek skips lines until one equals want.
func (r *lineReader) seek(want string) error {
	for {
		line, err := r.next()
		if errors.Is(err, io.EOF) {
			return fmt.Errorf("%w: %q not found before end of input", ErrMissingSection, want)
		}
		if err != nil {
			return err
		}
		if line == want {
			return nil
		}
	}
}

func (r *lineReader) section(title, header string) error {
	if err := r.seek(title); err != nil {
		return err
	}
	return r.seek(header)
}

// LoadTextFile reads a promotion from the sectioned text format.
func LoadTextFile(path string) (*model.Promotion, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	return ReadText(f)
}

// ReadText parses the three sections in order, allocates the course slots,
// records the grades and computes every average once.
func ReadText(r io.Reader) (*model.Promotion, error) {
	lr := newLineReader(r)

	registry, err := readStudents(lr)
	if err != nil {
		return nil, err
	}
	catalog, err := readCourses(lr)
	if err != nil {
		return nil, err
	}
	registry.AllocateCourses(catalog.Len())

	p := model.NewPromotion(catalog, registry)
	if err := readGrades(lr, p); err != nil {
		return nil, err
	}
	p.ComputeAverages()
	if err := p.Validate(); err != nil {
		return nil, err
	}
	return p, nil
}

func readStudents(lr *lineReader) (*model.Registry, error) {
	if err := lr.section(StudentsTitle, StudentsHeader); err != nil {
		return nil, err
	}
	registry := model.NewRegistry(64)
	for {
		line, err := lr.next()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, err
		}
		s, ok, err := parseStudent(line)
		if err != nil {
			return nil, lr.errorf(err, "%q", line)
		}
		if !ok {
			lr.unread(line)
			break
		}
		registry.Add(s)
	}
	registry.SortByID()
	if id, dup := registry.DuplicateID(); dup {
		return nil, fmt.Errorf("%w: %w: %d", model.ErrValidation, model.ErrDuplicateStudent, id)
	}
	return registry, nil
}

// parseStudent reports ok=false when the line does not have the student
// shape. An id overflow or an out of range age is an error.
func parseStudent(line string) (*model.Student, bool, error) {
	fields := strings.Split(line, ";")
	if len(fields) != 4 || fields[1] == "" || fields[2] == "" || !isDigits(fields[0]) {
		return nil, false, nil
	}
	id, err := strconv.ParseUint(fields[0], 10, 32)
	if err != nil {
		return nil, false, fmt.Errorf("%w: student id %s", ErrMalformedLine, fields[0])
	}
	age, err := strconv.Atoi(strings.TrimSpace(fields[3]))
	if err != nil {
		return nil, false, nil
	}
	s, err := model.NewStudent(uint32(id), fields[1], fields[2], age)
	if err != nil {
		return nil, false, err
	}
	return s, true, nil
}

func readCourses(lr *lineReader) (*model.Catalog, error) {
	if err := lr.section(CoursesTitle, CoursesHeader); err != nil {
		return nil, err
	}
	catalog := model.NewCatalog(model.MaxCourses)
	for {
		line, err := lr.next()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, err
		}
		fields := strings.Split(line, ";")
		if len(fields) != 2 || fields[0] == "" {
			lr.unread(line)
			break
		}
		coef, err := strconv.ParseFloat(strings.TrimSpace(fields[1]), 32)
		if err != nil {
			lr.unread(line)
			break
		}
		if err := catalog.Add(model.Course{Name: fields[0], Coefficient: float32(coef)}); err != nil {
			return nil, lr.errorf(err, "%q", line)
		}
	}
	catalog.Sort()
	if err := catalog.Validate(); err != nil {
		return nil, err
	}
	return catalog, nil
}

func readGrades(lr *lineReader, p *model.Promotion) error {
	if err := lr.section(GradesTitle, GradesHeader); err != nil {
		return err
	}
	for {
		line, err := lr.next()
		if errors.Is(err, io.EOF) {
			return nil
		}
		if err != nil {
			return err
		}
		if line == "" || !isDigit(line[0]) {
			return nil
		}
		id, course, grade, err := parseGrade(line)
		if err != nil {
			return lr.errorf(err, "%q", line)
		}
		if err := p.AppendGrade(id, course, grade); err != nil {
			return lr.errorf(err, "%q", line)
		}
	}
}

func parseGrade(line string) (uint32, string, float32, error) {
	fields := strings.Split(line, ";")
	if len(fields) != 3 || fields[1] == "" {
		return 0, "", 0, fmt.Errorf("%w: want id;course;grade", ErrMalformedLine)
	}
	id, err := strconv.ParseUint(fields[0], 10, 32)
	if err != nil {
		return 0, "", 0, fmt.Errorf("%w: student id %s", ErrMalformedLine, fields[0])
	}
	raw := strings.TrimSpace(fields[2])
	if !gradePattern.MatchString(raw) {
		return 0, "", 0, fmt.Errorf("%w: grade %s", ErrMalformedLine, fields[2])
	}
	grade, err := strconv.ParseFloat(raw, 32)
	if err != nil {
		return 0, "", 0, fmt.Errorf("%w: grade %s", ErrMalformedLine, fields[2])
	}
	return uint32(id), fields[1], float32(grade), nil
}

// WriteText renders p in the sectioned text format accepted by ReadText.
// The student age is written as is, so a promotion restored from binary
// does not round trip through text.
func WriteText(w io.Writer, p *model.Promotion) error {
	bw := bufio.NewWriter(w)
	fmt.Fprintf(bw, "%s\n%s\n", StudentsTitle, StudentsHeader)
	for _, s := range p.Registry.Students() {
		fmt.Fprintf(bw, "%d;%s;%s;%d\n", s.ID, s.FirstName, s.LastName, s.Age)
	}
	fmt.Fprintf(bw, "\n%s\n%s\n", CoursesTitle, CoursesHeader)
	for _, c := range p.Catalog.Courses() {
		fmt.Fprintf(bw, "%s;%s\n", c.Name, strconv.FormatFloat(float64(c.Coefficient), 'f', -1, 32))
	}
	fmt.Fprintf(bw, "\n%s\n%s\n", GradesTitle, GradesHeader)
	for _, s := range p.Registry.Students() {
		for i := 0; i < s.CourseCount(); i++ {
			for _, g := range s.Course(i).Grades() {
				fmt.Fprintf(bw, "%d;%s;%s\n", s.ID, p.Catalog.At(i).Name, strconv.FormatFloat(float64(g), 'f', -1, 32))
			}
		}
	}
	return bw.Flush()
}

func isDigit(b byte) bool {
	return b >= '0' && b <= '9'
}

func isDigits(s string) bool {
	if s == "" {
		return false
	}
	for i := 0; i < len(s); i++ {
		if !isDigit(s[i]) {
			return false
		}
	}
	return true
}
