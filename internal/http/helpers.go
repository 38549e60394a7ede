package http

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/mrlokans/bookshelf/internal/routes"
)

// --- Response Types ---

// ErrorResponse is the standard error response format for all API errors.
type ErrorResponse struct {
	Error   string `json:"error"`
	Code    string `json:"code,omitempty"`    // machine-readable error code
	Details any    `json:"details,omitempty"` // additional context (validation errors, etc.)
}

// PaginatedResponse wraps paginated data with metadata.
type PaginatedResponse struct {
	Data       any   `json:"data"`
	Total      int64 `json:"total"`
	Limit      int   `json:"limit"`
	Offset     int   `json:"offset"`
	HasMore    bool  `json:"has_more"`
	TotalPages int   `json:"total_pages,omitempty"`
}

// --- Error Response Helpers ---

// respondBadRequest sends a 400 Bad Request response.
func respondBadRequest(c *gin.Context, message string) {
	c.JSON(http.StatusBadRequest, ErrorResponse{Error: message})
}

// respondNotFound sends a 404 Not Found response.
func respondNotFound(c *gin.Context, resource string) {
	c.JSON(http.StatusNotFound, ErrorResponse{Error: resource + " not found"})
}

// respondValidationError sends a 422 response listing the failing fields.
func respondValidationError(c *gin.Context, fields map[string]string) {
	c.JSON(http.StatusUnprocessableEntity, ErrorResponse{
		Error:   "validation failed",
		Code:    "validation_failed",
		Details: fields,
	})
}

// respondInternalError logs the error and sends a 500 Internal Server Error response.
// The actual error is logged but not exposed to the client.
func respondInternalError(c *gin.Context, err error, context string) {
	requestLogger(c).Error().Err(err).Str("op", context).Msg("internal error")
	c.JSON(http.StatusInternalServerError, ErrorResponse{Error: "internal server error"})
}

// --- Parameter Parsing ---

// parseIDParam returns the unsigned integer ID captured by the route table,
// falling back to parsing the raw URL parameter for routes registered
// directly on gin. On failure it responds with 400 and returns 0, false.
func parseIDParam(c *gin.Context, paramName string) (uint, bool) {
	if id, ok := routes.IntParam(c, paramName); ok {
		return uint(id), true
	}
	id, err := strconv.ParseUint(c.Param(paramName), 10, 32)
	if err != nil {
		respondBadRequest(c, "invalid "+paramName)
		return 0, false
	}
	return uint(id), true
}

// parsePagination reads limit/offset query parameters, clamping limit to
// [1, maxLimit].
func parsePagination(c *gin.Context, defaultLimit, maxLimit int) (limit, offset int) {
	limit, err := strconv.Atoi(c.DefaultQuery("limit", strconv.Itoa(defaultLimit)))
	if err != nil || limit < 1 {
		limit = defaultLimit
	}
	if limit > maxLimit {
		limit = maxLimit
	}
	offset, err = strconv.Atoi(c.DefaultQuery("offset", "0"))
	if err != nil || offset < 0 {
		offset = 0
	}
	return limit, offset
}

func totalPages(total int64, perPage int) int {
	if perPage <= 0 {
		return 1
	}
	pages := int((total + int64(perPage) - 1) / int64(perPage))
	if pages < 1 {
		pages = 1
	}
	return pages
}

// --- HTMX Support ---

// isHTMXRequest returns true if the request is an HTMX request.
func isHTMXRequest(c *gin.Context) bool {
	return c.GetHeader("HX-Request") == "true"
}
