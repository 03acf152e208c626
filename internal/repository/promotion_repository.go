package repository

import (
	"context"
	"errors"
	"fmt"

	"gorm.io/gorm"

	"student_records/internal/model"
)

type PromotionRepository struct {
	DB *gorm.DB
}

func NewPromotionRepository(db *gorm.DB) *PromotionRepository {
	return &PromotionRepository{DB: db}
}

// Save replaces any previous export of the same promotion.
func (r *PromotionRepository) Save(ctx context.Context, rec *model.PromotionRecord) error {
	return r.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := r.deleteTx(tx, rec.ID); err != nil {
			return err
		}
		return tx.Create(rec).Error
	})
}

func (r *PromotionRepository) FindByID(ctx context.Context, id string) (*model.PromotionRecord, error) {
	var rec model.PromotionRecord
	err := r.DB.WithContext(ctx).
		Preload("Courses", func(db *gorm.DB) *gorm.DB { return db.Order("position") }).
		Preload("Students", func(db *gorm.DB) *gorm.DB { return db.Order("student_id") }).
		Preload("Students.Grades", func(db *gorm.DB) *gorm.DB { return db.Order("course_position, seq") }).
		First(&rec, "id = ?", id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, fmt.Errorf("%w: promotion %s", model.ErrNotFound, id)
	}
	if err != nil {
		return nil, err
	}
	return &rec, nil
}

// List returns the exported promotions without their children, newest first.
func (r *PromotionRepository) List(ctx context.Context) ([]model.PromotionRecord, error) {
	var recs []model.PromotionRecord
	err := r.DB.WithContext(ctx).Order("created_at DESC").Find(&recs).Error
	return recs, err
}

func (r *PromotionRepository) deleteTx(tx *gorm.DB, id string) error {
	students := tx.Model(&model.StudentRecord{}).Select("id").Where("promotion_id = ?", id)
	if err := tx.Unscoped().Where("student_record_id IN (?)", students).Delete(&model.GradeRecord{}).Error; err != nil {
		return err
	}
	if err := tx.Unscoped().Where("promotion_id = ?", id).Delete(&model.StudentRecord{}).Error; err != nil {
		return err
	}
	if err := tx.Unscoped().Where("promotion_id = ?", id).Delete(&model.CourseRecord{}).Error; err != nil {
		return err
	}
	return tx.Unscoped().Where("id = ?", id).Delete(&model.PromotionRecord{}).Error
}
