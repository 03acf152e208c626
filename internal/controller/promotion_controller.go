package controller

import (
	"github.com/gin-gonic/gin"

	"student_records/internal/model"
	"student_records/internal/service"
	"student_records/internal/util"
)

type PromotionController struct {
	holder  *service.PromotionHolder
	service *service.PromotionService
}

func NewPromotionController(h *service.PromotionHolder, s *service.PromotionService) *PromotionController {
	return &PromotionController{holder: h, service: s}
}

// ListCourses godoc
// @Summary List the course catalog
// @Tags courses
// @Produce json
// @Success 200 {object} util.Response{data=util.ListResponse}
// @Router /api/courses [get]
func (c *PromotionController) ListCourses(ctx *gin.Context) {
	var courses []model.Course
	c.holder.With(func(p *model.Promotion) error {
		courses = p.Catalog.Courses()
		return nil
	})
	util.Success(ctx, util.ListResponse{List: courses, Total: len(courses)})
}

// ListStudents godoc
// @Summary List students in the active sort order
// @Description The sort query parameter overrides the order for this call only.
// @Tags students
// @Produce json
// @Param sort query string false "id, first_name, last_name, average or min_course"
// @Success 200 {object} util.Response{data=util.ListResponse}
// @Failure 400 {object} util.Response
// @Router /api/students [get]
func (c *PromotionController) ListStudents(ctx *gin.Context) {
	var views []StudentView
	err := c.holder.With(func(p *model.Promotion) error {
		key := p.SortKey()
		if raw := ctx.Query("sort"); raw != "" {
			k, err := model.ParseSortKey(raw)
			if err != nil {
				return err
			}
			key = k
		}
		views = studentSummaries(model.SortStudents(p.Registry.Students(), key))
		return nil
	})
	if err != nil {
		util.RespondError(ctx, err)
		return
	}
	util.Success(ctx, util.ListResponse{List: views, Total: len(views)})
}

// GetStudent godoc
// @Summary Get one student with per-course results
// @Tags students
// @Produce json
// @Param id path int true "Student id"
// @Success 200 {object} util.Response{data=StudentView}
// @Failure 404 {object} util.Response
// @Router /api/students/{id} [get]
func (c *PromotionController) GetStudent(ctx *gin.Context) {
	id, err := util.ParseStudentID(ctx.Param("id"))
	if err != nil {
		util.RespondError(ctx, err)
		return
	}
	var view StudentView
	err = c.holder.With(func(p *model.Promotion) error {
		s, err := p.Student(id)
		if err != nil {
			return err
		}
		view = studentDetail(s, p.Catalog)
		return nil
	})
	if err != nil {
		util.RespondError(ctx, err)
		return
	}
	util.Success(ctx, view)
}

type SetSortKeyRequest struct {
	Key string `json:"key" binding:"required"`
}

// SetSortKey godoc
// @Summary Change the listing order
// @Tags students
// @Accept json
// @Produce json
// @Param body body SetSortKeyRequest true "Sort key"
// @Success 200 {object} util.Response
// @Failure 400 {object} util.Response
// @Router /api/students/sort [put]
func (c *PromotionController) SetSortKey(ctx *gin.Context) {
	var req SetSortKeyRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		util.BadRequest(ctx, err.Error())
		return
	}
	err := c.holder.With(func(p *model.Promotion) error {
		return c.service.SetSortKey(p, req.Key)
	})
	if err != nil {
		util.RespondError(ctx, err)
		return
	}
	util.Success(ctx, gin.H{"key": req.Key})
}

type AddGradeRequest struct {
	Course string   `json:"course" binding:"required"`
	Grade  *float32 `json:"grade" binding:"required"`
}

// AddGrade godoc
// @Summary Record a grade and refresh the student's averages
// @Tags students
// @Accept json
// @Produce json
// @Param id path int true "Student id"
// @Param body body AddGradeRequest true "Grade"
// @Success 200 {object} util.Response{data=StudentView}
// @Failure 400 {object} util.Response
// @Failure 404 {object} util.Response
// @Router /api/students/{id}/grades [post]
func (c *PromotionController) AddGrade(ctx *gin.Context) {
	id, err := util.ParseStudentID(ctx.Param("id"))
	if err != nil {
		util.RespondError(ctx, err)
		return
	}
	var req AddGradeRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		util.BadRequest(ctx, err.Error())
		return
	}
	var view StudentView
	err = c.holder.With(func(p *model.Promotion) error {
		if err := c.service.AddGrade(ctx.Request.Context(), p, id, req.Course, *req.Grade); err != nil {
			return err
		}
		s, err := p.Student(id)
		if err != nil {
			return err
		}
		view = studentDetail(s, p.Catalog)
		return nil
	})
	if err != nil {
		util.RespondError(ctx, err)
		return
	}
	util.Success(ctx, view)
}

// ListGroupStudents godoc
// @Summary Students who validated every course of a configured group
// @Tags groups
// @Produce json
// @Param name path string true "Group name"
// @Success 200 {object} util.Response{data=util.ListResponse}
// @Failure 404 {object} util.Response
// @Router /api/groups/{name}/students [get]
func (c *PromotionController) ListGroupStudents(ctx *gin.Context) {
	var views []StudentView
	err := c.holder.With(func(p *model.Promotion) error {
		students, err := c.service.StudentsValidating(p, ctx.Param("name"))
		if err != nil {
			return err
		}
		views = studentSummaries(students)
		return nil
	})
	if err != nil {
		util.RespondError(ctx, err)
		return
	}
	util.Success(ctx, util.ListResponse{List: views, Total: len(views)})
}
