package request

import (
	"net/http"

	"todoshi/internal/errors"
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

type SendRequest struct {
	ProjectID  string `json:"projectId" binding:"required"`
	ReceiverID string `json:"receiverId" binding:"required"`
}

func (h *Handler) Send(c *gin.Context) {
	var form SendRequest
	if err := c.ShouldBindJSON(&form); err != nil {
		c.Error(errors.NewValidationError(err))
		return
	}

	request, err := h.service.Send(c.Request.Context(), form.ProjectID, c.GetString(middleware.ContextUserID), form.ReceiverID)
	if err != nil {
		c.Error(err)
		return
	}

	response.OK(c, http.StatusCreated, "Request sent", request)
}

func (h *Handler) Accept(c *gin.Context) {
	request, err := h.service.Accept(c.Request.Context(), c.Param("requestId"), c.GetString(middleware.ContextUserID))
	if err != nil {
		c.Error(err)
		return
	}

	response.OK(c, http.StatusOK, "Request accepted", request)
}

func (h *Handler) Reject(c *gin.Context) {
	request, err := h.service.Reject(c.Request.Context(), c.Param("requestId"), c.GetString(middleware.ContextUserID))
	if err != nil {
		c.Error(err)
		return
	}

	response.OK(c, http.StatusOK, "Request rejected", request)
}

func (h *Handler) ListReceived(c *gin.Context) {
	requests, err := h.service.ListReceived(c.Request.Context(), c.GetString(middleware.ContextUserID))
	if err != nil {
		c.Error(err)
		return
	}

	response.OK(c, http.StatusOK, "Requests fetched", requests)
}

func (h *Handler) ListForProject(c *gin.Context) {
	requests, err := h.service.ListForProject(c.Request.Context(), c.Param("projectId"), c.GetString(middleware.ContextUserID))
	if err != nil {
		c.Error(err)
		return
	}

	response.OK(c, http.StatusOK, "Requests fetched", requests)
}
