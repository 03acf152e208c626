package app

import (
	"github.com/gin-gonic/gin"

	"student_records/pkg/monitoring"
)

func (a *App) registerRoutes(router *gin.Engine, c *controllers) {
	router.GET("/metrics", monitoring.PrometheusHandler())

	api := router.Group("/api")
	{
		api.GET("/health", c.health.HealthCheck)
		api.GET("/courses", c.promotion.ListCourses)

		// students
		students := api.Group("/students")
		{
			students.GET("", c.promotion.ListStudents)
			students.PUT("/sort", c.promotion.SetSortKey)
			students.GET("/:id", c.promotion.GetStudent)
			students.POST("/:id/grades", c.promotion.AddGrade)
		}

		// rankings
		ranking := api.Group("/ranking")
		{
			ranking.GET("/top", c.ranking.TopOverall)
			ranking.GET("/courses/:name/top", c.ranking.TopInCourse)
		}

		api.GET("/groups/:name/students", c.promotion.ListGroupStudents)
	}
}
