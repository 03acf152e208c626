package model

import (
	"fmt"

	"github.com/google/uuid"
)

// PromotionRecord and its children are the relational export of a
// Promotion. Averages are derived data and are recomputed on import.
type PromotionRecord struct {
	UUIDBase
	SortKey  string          `gorm:"size:20" json:"sortKey"`
	Courses  []CourseRecord  `gorm:"foreignKey:PromotionID;constraint:OnDelete:CASCADE" json:"courses"`
	Students []StudentRecord `gorm:"foreignKey:PromotionID;constraint:OnDelete:CASCADE" json:"students"`
}

func (PromotionRecord) TableName() string { return "promotions" }

type CourseRecord struct {
	BaseModel
	PromotionID string  `gorm:"type:varchar(36);index;uniqueIndex:idx_promotion_course" json:"promotionId"`
	Position    int     `json:"position"`
	Name        string  `gorm:"size:255;uniqueIndex:idx_promotion_course" json:"name"`
	Coefficient float32 `json:"coefficient"`
}

func (CourseRecord) TableName() string { return "courses" }

type StudentRecord struct {
	BaseModel
	PromotionID string        `gorm:"type:varchar(36);index;uniqueIndex:idx_promotion_student" json:"promotionId"`
	StudentID   uint32        `gorm:"uniqueIndex:idx_promotion_student" json:"studentId"`
	LastName    string        `gorm:"size:255" json:"lastName"`
	FirstName   string        `gorm:"size:255" json:"firstName"`
	Age         int           `json:"age"`
	Average     *float32      `json:"average"`
	Validated   uint32        `json:"validated"`
	Grades      []GradeRecord `gorm:"foreignKey:StudentRecordID;constraint:OnDelete:CASCADE" json:"grades"`
}

func (StudentRecord) TableName() string { return "students" }

type GradeRecord struct {
	BaseModel
	StudentRecordID uint    `gorm:"index" json:"studentRecordId"`
	CoursePosition  int     `json:"coursePosition"`
	Seq             int     `json:"seq"`
	Value           float32 `json:"value"`
}

func (GradeRecord) TableName() string { return "grades" }

// ToRecord flattens a promotion into rows.
func (p *Promotion) ToRecord() *PromotionRecord {
	rec := &PromotionRecord{SortKey: p.sortKey.String()}
	rec.ID = p.ID.String()
	for i, c := range p.Catalog.courses.Items() {
		rec.Courses = append(rec.Courses, CourseRecord{
			PromotionID: rec.ID,
			Position:    i,
			Name:        c.Name,
			Coefficient: c.Coefficient,
		})
	}
	for _, s := range p.Registry.students.Items() {
		sr := StudentRecord{
			PromotionID: rec.ID,
			StudentID:   s.ID,
			LastName:    s.LastName,
			FirstName:   s.FirstName,
			Age:         s.Age,
			Validated:   s.validated,
		}
		if v, ok := s.average.Value(); ok {
			sr.Average = &v
		}
		for ci := range s.courses {
			for seq, g := range s.courses[ci].grades {
				sr.Grades = append(sr.Grades, GradeRecord{CoursePosition: ci, Seq: seq, Value: g})
			}
		}
		rec.Students = append(rec.Students, sr)
	}
	return rec
}

// FromRecord rebuilds a promotion. Courses must be ordered by position and
// grades by seq.
func FromRecord(rec *PromotionRecord) (*Promotion, error) {
	id, err := uuid.Parse(rec.ID)
	if err != nil {
		return nil, fmt.Errorf("%w: promotion id %q: %v", ErrValidation, rec.ID, err)
	}
	catalog := NewCatalog(len(rec.Courses))
	for _, c := range rec.Courses {
		if err := catalog.Add(Course{Name: c.Name, Coefficient: c.Coefficient}); err != nil {
			return nil, err
		}
	}
	if err := catalog.Validate(); err != nil {
		return nil, err
	}
	registry := NewRegistry(len(rec.Students))
	for _, sr := range rec.Students {
		s := &Student{ID: sr.StudentID, LastName: sr.LastName, FirstName: sr.FirstName, Age: sr.Age}
		s.AllocateCourses(catalog.Len())
		for _, g := range sr.Grades {
			if g.CoursePosition < 0 || g.CoursePosition >= catalog.Len() {
				return nil, fmt.Errorf("%w: student %d grade for course position %d", ErrValidation, sr.StudentID, g.CoursePosition)
			}
			if err := s.Course(g.CoursePosition).AddGrade(g.Value); err != nil {
				return nil, err
			}
		}
		registry.Add(s)
	}
	registry.SortByID()

	p := NewPromotion(catalog, registry)
	p.ID = id
	if k, err := ParseSortKey(rec.SortKey); err == nil {
		p.sortKey = k
	}
	p.ComputeAverages()
	if err := p.Validate(); err != nil {
		return nil, err
	}
	return p, nil
}
