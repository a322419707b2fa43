package httputil

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/jwalitptl/hospital-api/internal/model"
	"github.com/jwalitptl/hospital-api/pkg/errors"
)

// Response wraps all API responses
type Response struct {
	Success bool            `json:"success"`
	Message string          `json:"message,omitempty"`
	Data    interface{}     `json:"data,omitempty"`
	Meta    *model.PageMeta `json:"meta,omitempty"`
	Error   *Error          `json:"error,omitempty"`
}

// Error represents API error
type Error struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
	Field   string `json:"field,omitempty"`
}

// RespondWithSuccess sends a success response
func RespondWithSuccess(c *gin.Context, data interface{}) {
	c.JSON(http.StatusOK, Response{
		Success: true,
		Data:    data,
	})
}

func RespondWithCreated(c *gin.Context, message string, data interface{}) {
	c.JSON(http.StatusCreated, Response{
		Success: true,
		Message: message,
		Data:    data,
	})
}

func RespondWithMessage(c *gin.Context, message string) {
	c.JSON(http.StatusOK, Response{
		Success: true,
		Message: message,
	})
}

// RespondWithError maps err onto its HTTP status. Anything that is not an
// AppError, and every internal error, is reported without detail.
func RespondWithError(c *gin.Context, err error) {
	status := http.StatusInternalServerError
	body := &Error{Code: status, Message: "internal server error"}

	if appErr, ok := errors.As(err); ok {
		status = appErr.StatusCode()
		body.Code = status
		if status != http.StatusInternalServerError {
			body.Message = appErr.Message
			body.Field = appErr.Field
		}
	}
	if status == http.StatusInternalServerError {
		// Surfaces in the request log through gin's error list.
		_ = c.Error(err)
	}

	c.AbortWithStatusJSON(status, Response{
		Success: false,
		Error:   body,
	})
}

// RespondWithPagination sends a paginated response
func RespondWithPagination(c *gin.Context, data interface{}, page model.Pagination, total int) {
	meta := model.NewPageMeta(page, total)
	c.JSON(http.StatusOK, Response{
		Success: true,
		Data:    data,
		Meta:    &meta,
	})
}
