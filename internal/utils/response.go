// internal/utils/response.go
package utils

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/elianhardyy/clothing-marketplace/internal/apperrors"
)

type APIResponse struct {
	StatusCode int             `json:"statusCode"`
	Message    string          `json:"message"`
	Data       interface{}     `json:"data,omitempty"`
	Pagination *PaginationData `json:"pagination,omitempty"`
	Errors     interface{}     `json:"errors,omitempty"`
}

func SuccessResponse(c *gin.Context, message string, data interface{}) {
	c.JSON(http.StatusOK, APIResponse{
		StatusCode: http.StatusOK,
		Message:    message,
		Data:       data,
	})
}

func CreatedResponse(c *gin.Context, message string, data interface{}) {
	c.JSON(http.StatusCreated, APIResponse{
		StatusCode: http.StatusCreated,
		Message:    message,
		Data:       data,
	})
}

func PaginatedResponse(c *gin.Context, message string, data interface{}, pagination PaginationData) {
	c.JSON(http.StatusOK, APIResponse{
		StatusCode: http.StatusOK,
		Message:    message,
		Data:       data,
		Pagination: &pagination,
	})
}

func ErrorResponse(c *gin.Context, statusCode int, message string, errs interface{}) {
	c.JSON(statusCode, APIResponse{
		StatusCode: statusCode,
		Message:    message,
		Errors:     errs,
	})
}

func BadRequestResponse(c *gin.Context, message string, errs interface{}) {
	ErrorResponse(c, http.StatusBadRequest, message, errs)
}

func UnauthorizedResponse(c *gin.Context, message string) {
	if message == "" {
		message = "Authentication required"
	}
	ErrorResponse(c, http.StatusUnauthorized, message, nil)
}

func ForbiddenResponse(c *gin.Context, message string) {
	if message == "" {
		message = "Access denied"
	}
	ErrorResponse(c, http.StatusForbidden, message, nil)
}

func NotFoundResponse(c *gin.Context, message string) {
	ErrorResponse(c, http.StatusNotFound, message, nil)
}

func ConflictResponse(c *gin.Context, message string) {
	ErrorResponse(c, http.StatusConflict, message, nil)
}

func InternalErrorResponse(c *gin.Context, message string) {
	if message == "" {
		message = "Internal server error"
	}
	ErrorResponse(c, http.StatusInternalServerError, message, nil)
}

func ValidationErrorResponse(c *gin.Context, errs []ValidationError) {
	ErrorResponse(c, http.StatusBadRequest, "Validation failed", errs)
}

// RespondError maps a service error to the matching HTTP response.
func RespondError(c *gin.Context, err error) {
	var appErr *apperrors.Error
	if !errors.As(err, &appErr) {
		InternalErrorResponse(c, "")
		return
	}

	switch appErr.Kind {
	case apperrors.KindValidation, apperrors.KindInsufficientStock:
		// Field-level validator errors ride along in the errors field.
		if fieldErrs := GetValidationErrors(appErr.Err); len(fieldErrs) > 0 {
			BadRequestResponse(c, appErr.Message, fieldErrs)
			return
		}
		BadRequestResponse(c, appErr.Message, nil)
	case apperrors.KindNotFound:
		NotFoundResponse(c, appErr.Message)
	case apperrors.KindForbidden:
		ForbiddenResponse(c, appErr.Message)
	case apperrors.KindConflict:
		ConflictResponse(c, appErr.Message)
	default:
		InternalErrorResponse(c, "")
	}
}

func GetUserIDFromContext(c *gin.Context) (string, bool) {
	if userID, exists := c.Get("user_id"); exists {
		if userIDStr, ok := userID.(string); ok {
			return userIDStr, true
		}
	}
	return "", false
}

func GetRolesFromContext(c *gin.Context) ([]string, bool) {
	if roles, exists := c.Get("roles"); exists {
		if roleList, ok := roles.([]string); ok {
			return roleList, true
		}
	}
	return nil, false
}
