package controller

import (
	"github.com/gin-gonic/gin"

	"student_records/internal/model"
	"student_records/internal/service"
	"student_records/internal/util"
)

type RankingController struct {
	holder  *service.PromotionHolder
	service *service.PromotionService
}

func NewRankingController(h *service.PromotionHolder, s *service.PromotionService) *RankingController {
	return &RankingController{holder: h, service: s}
}

// TopOverall godoc
// @Summary Best overall averages, best first
// @Tags ranking
// @Produce json
// @Success 200 {object} util.Response{data=util.ListResponse}
// @Router /api/ranking/top [get]
func (c *RankingController) TopOverall(ctx *gin.Context) {
	var names []string
	c.holder.With(func(p *model.Promotion) error {
		names = c.service.TopOverall(ctx.Request.Context(), p)
		return nil
	})
	util.Success(ctx, util.ListResponse{List: names, Total: len(names)})
}

// TopInCourse godoc
// @Summary Best averages in one course, best first
// @Tags ranking
// @Produce json
// @Param name path string true "Course name"
// @Success 200 {object} util.Response{data=util.ListResponse}
// @Failure 404 {object} util.Response
// @Router /api/ranking/courses/{name}/top [get]
func (c *RankingController) TopInCourse(ctx *gin.Context) {
	var names []string
	err := c.holder.With(func(p *model.Promotion) error {
		var err error
		names, err = c.service.TopInCourse(ctx.Request.Context(), p, ctx.Param("name"))
		return err
	})
	if err != nil {
		util.RespondError(ctx, err)
		return
	}
	util.Success(ctx, util.ListResponse{List: names, Total: len(names)})
}
