package http

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/mrlokans/bookshelf/internal/entities"
)

type AuditController struct {
	reader AuditReader
}

func NewAuditController(reader AuditReader) *AuditController {
	return &AuditController{reader: reader}
}

// GetAuditEvents returns paginated audit events as JSON
// GET /api/audit?limit=&offset=&type=
func (ac *AuditController) GetAuditEvents(c *gin.Context) {
	limit, offset := parsePagination(c, 25, 100)
	eventType := c.Query("type")

	var events []entities.AuditEvent
	var total int64
	var err error

	switch entities.AuditEventType(eventType) {
	case "":
		events, total, err = ac.reader.GetEvents(c.Request.Context(), limit, offset)
	case entities.AuditEventCreate, entities.AuditEventUpdate, entities.AuditEventDelete:
		events, total, err = ac.reader.GetEventsByType(c.Request.Context(), entities.AuditEventType(eventType), limit, offset)
	default:
		respondBadRequest(c, "unknown event type: "+eventType)
		return
	}
	if err != nil {
		respondInternalError(c, err, "load audit events")
		return
	}

	if events == nil {
		events = []entities.AuditEvent{}
	}
	c.JSON(http.StatusOK, PaginatedResponse{
		Data:       events,
		Total:      total,
		Limit:      limit,
		Offset:     offset,
		HasMore:    int64(offset+len(events)) < total,
		TotalPages: totalPages(total, limit),
	})
}
