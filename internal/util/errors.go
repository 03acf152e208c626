package util

import (
	"errors"

	"github.com/gin-gonic/gin"

	"student_records/internal/model"
)

// RespondError maps domain errors to HTTP statuses.
func RespondError(c *gin.Context, err error) {
	switch {
	case model.IsNotFound(err):
		NotFound(c, err.Error())
	case errors.Is(err, model.ErrInvalidSortKey), errors.Is(err, model.ErrValidation):
		BadRequest(c, err.Error())
	default:
		LogInternalError(c, err)
	}
}
