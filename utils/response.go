package utils

import (
	"net/http"
	"time"

	"safewatch/models"

	"github.com/gin-gonic/gin"
)

func SuccessResponse(c *gin.Context, message string, data interface{}) {
	c.JSON(http.StatusOK, models.APIResponse{
		Success:   true,
		Message:   message,
		Data:      data,
		Timestamp: time.Now(),
	})
}

func AcceptedResponse(c *gin.Context, message string, data interface{}) {
	c.JSON(http.StatusAccepted, models.APIResponse{
		Success:   true,
		Message:   message,
		Data:      data,
		Timestamp: time.Now(),
	})
}

func ErrorResponse(c *gin.Context, statusCode int, code, message string, details interface{}) {
	c.JSON(statusCode, models.APIResponse{
		Success: false,
		Message: message,
		Error: &models.APIError{
			Code:    code,
			Message: message,
			Details: details,
		},
		Timestamp: time.Now(),
	})
}

func ValidationErrorResponse(c *gin.Context, validationErrors []ValidationError) {
	ErrorResponse(c, http.StatusBadRequest, ErrCodeValidation, "Validation failed", validationErrors)
}

func BadRequestResponse(c *gin.Context, message string) {
	ErrorResponse(c, http.StatusBadRequest, ErrCodeBadRequest, message, nil)
}

func UnauthorizedResponse(c *gin.Context, message string) {
	if message == "" {
		message = "Unauthorized access"
	}
	ErrorResponse(c, http.StatusUnauthorized, ErrCodeUnauthorized, message, nil)
}

// HandleServiceError writes err using its ServiceError status and code, with
// the user-facing text from UserMessage.
func HandleServiceError(c *gin.Context, err error) {
	serviceErr, ok := GetServiceError(err)
	if !ok {
		GetLogger().WithError(err).Error("Unhandled error")
		ErrorResponse(c, http.StatusInternalServerError, ErrCodeInternal, UserMessage(err), nil)
		return
	}

	status := serviceErr.StatusCode
	if status == 0 {
		status = http.StatusInternalServerError
	}

	var details interface{}
	if serviceErr.Details != "" {
		details = serviceErr.Details
	}
	ErrorResponse(c, status, serviceErr.Code, UserMessage(err), details)
}
