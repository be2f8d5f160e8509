package handlers

import (
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"

	appErrors "github.com/jmjalil96/claimsdesk/pkg/errors"
	"github.com/jmjalil96/claimsdesk/pkg/response"
	appValidator "github.com/jmjalil96/claimsdesk/pkg/validator"
)

// bindAndValidate binds the JSON payload into dest and runs struct validation rules.
// When validation fails, an error response is automatically written and false is returned.
func bindAndValidate[T any](c *gin.Context, dest *T) bool {
	if err := c.ShouldBindJSON(dest); err != nil {
		response.Error(c, appErrors.NewBadRequest("invalid JSON payload"))
		return false
	}

	if err := appValidator.ValidateStruct(dest); err != nil {
		response.Error(c, appErrors.NewBadRequest(formatValidationError(err)))
		return false
	}

	return true
}

func formatValidationError(err error) string {
	if ve, ok := err.(appValidator.ValidationErrors); ok && len(ve) > 0 {
		messages := make([]string, 0, len(ve))
		for _, failure := range ve {
			messages = append(messages, failure.Message())
		}
		return strings.Join(messages, "; ")
	}
	return "invalid request payload"
}

func parseIntQuery(c *gin.Context, key string, fallback int) int {
	value := strings.TrimSpace(c.Query(key))
	if value == "" {
		return fallback
	}
	parsed, err := strconv.Atoi(value)
	if err != nil {
		return fallback
	}
	return parsed
}
