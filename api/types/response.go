package types

import (
	"github.com/gin-gonic/gin"

	apperrors "github.com/ai-godfather/rec-conv-transcriptor/pkg/errors"
)

// ErrorResponse is the uniform error body.
type ErrorResponse struct {
	Status  string `json:"status"`
	Code    string `json:"code,omitempty"`
	Message string `json:"message"`
}

// RespondError writes an error response with the HTTP status derived from
// the error's code.
func RespondError(c *gin.Context, err error) {
	c.JSON(apperrors.HTTPCode(err), ErrorResponse{
		Status:  "error",
		Code:    string(apperrors.Code(err)),
		Message: err.Error(),
	})
}
