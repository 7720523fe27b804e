package handler

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"storypath-server/internal/model"
)

// APIError представляет стандартизированный ответ об ошибке.
type APIError struct {
	Message string `json:"message"`
}

// handleServiceError maps service errors onto HTTP statuses. NotFound and
// Forbidden deliberately collapse into 404 so non-owners cannot distinguish
// "does not exist" from "no access".
func handleServiceError(c *gin.Context, err error) {
	var statusCode int
	var apiErr APIError

	switch {
	case errors.Is(err, model.ErrNotFound),
		errors.Is(err, model.ErrUserNotFound),
		errors.Is(err, model.ErrForbidden):
		statusCode = http.StatusNotFound
		apiErr = APIError{Message: "Resource not found or access denied"}
	case errors.Is(err, model.ErrChoiceAlreadyTaken),
		errors.Is(err, model.ErrStoryEnded):
		statusCode = http.StatusConflict
		apiErr = APIError{Message: err.Error()}
	case errors.Is(err, model.ErrConfirmationRequired):
		statusCode = http.StatusConflict
		apiErr = APIError{Message: "Confirmation required: repeat the request with confirm=true"}
	case errors.Is(err, model.ErrInvalidInput):
		statusCode = http.StatusBadRequest
		apiErr = APIError{Message: err.Error()}
	case errors.Is(err, model.ErrAPIKeyMissing):
		statusCode = http.StatusServiceUnavailable
		apiErr = APIError{Message: "Story generation is not configured"}
	case errors.Is(err, model.ErrGenerationFailed):
		statusCode = http.StatusBadGateway
		apiErr = APIError{Message: "Story generation failed, please try again"}
	case errors.Is(err, model.ErrUnauthorized):
		statusCode = http.StatusUnauthorized
		apiErr = APIError{Message: "Unauthorized"}
	default:
		statusCode = http.StatusInternalServerError
		apiErr = APIError{Message: "Internal server error"}
	}

	c.JSON(statusCode, apiErr)
}
