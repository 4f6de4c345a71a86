package todo

import (
	"net/http"

	"todoshi/internal/middleware"
	"todoshi/internal/response"

	"github.com/gin-gonic/gin"
)

type Handler struct {
	service Service
}

func NewHandler(service Service) *Handler {
	return &Handler{service: service}
}

// ListByDate serves GET /todos/:projectId?date=YYYY-MM-DD
func (h *Handler) ListByDate(c *gin.Context) {
	todos, err := h.service.ListByDate(
		c.Request.Context(),
		c.Param("projectId"),
		c.GetString(middleware.ContextUserID),
		c.Query("date"),
	)
	if err != nil {
		c.Error(err)
		return
	}

	response.OK(c, http.StatusOK, "Todos fetched", todos)
}
