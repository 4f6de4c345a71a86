package projectlog

import (
	"net/http"

	"todoshi/internal/middleware"
	"todoshi/internal/response"
	"todoshi/internal/utils"

	"github.com/gin-gonic/gin"
)

type Handler struct {
	service Service
}

func NewHandler(service Service) *Handler {
	return &Handler{service: service}
}

func (h *Handler) List(c *gin.Context) {
	page, pageSize := utils.GetPaginationParams(c)

	result, err := h.service.List(c.Request.Context(), c.Param("projectId"), c.GetString(middleware.ContextUserID), page, pageSize)
	if err != nil {
		c.Error(err)
		return
	}

	response.OK(c, http.StatusOK, "Logs fetched", result)
}
