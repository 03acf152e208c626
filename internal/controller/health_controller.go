package controller

import (
	"context"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/go-redis/redis/v8"
	"gorm.io/gorm"

	"student_records/internal/model"
	"student_records/internal/service"
	"student_records/internal/util"
)

// HealthController reports the served promotion and the optional backends.
// DB and Redis are nil when disabled.
type HealthController struct {
	holder *service.PromotionHolder
	DB     *gorm.DB
	Redis  *redis.Client
}

func NewHealthController(h *service.PromotionHolder, db *gorm.DB, rdb *redis.Client) *HealthController {
	return &HealthController{holder: h, DB: db, Redis: rdb}
}

// @Summary Health check
// @Tags system
// @Produce json
// @Success 200 {object} util.Response
// @Failure 503 {object} util.Response
// @Router /api/health [get]
func (c *HealthController) HealthCheck(ctx *gin.Context) {
	components := gin.H{}
	var students int
	c.holder.With(func(p *model.Promotion) error {
		students = p.Registry.Len()
		return nil
	})
	components["promotion"] = "up"

	pingCtx, cancel := context.WithTimeout(ctx.Request.Context(), 2*time.Second)
	defer cancel()

	if c.DB != nil {
		sqlDB, err := c.DB.DB()
		if err != nil || sqlDB.PingContext(pingCtx) != nil {
			util.ServiceUnavailable(ctx, "Database unavailable")
			return
		}
		components["database"] = "up"
	}
	if c.Redis != nil {
		if err := c.Redis.Ping(pingCtx).Err(); err != nil {
			util.ServiceUnavailable(ctx, "Redis unavailable")
			return
		}
		components["redis"] = "up"
	}

	util.Success(ctx, gin.H{
		"status":     "ok",
		"students":   students,
		"components": components,
	})
}
