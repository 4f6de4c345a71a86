package chat

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

// SendRequest is bound from a multipart form, the attachment part is optional
type SendRequest struct {
	ProjectID string `form:"projectId" binding:"required"`
	Content   string `form:"content" binding:"required"`
}

type DeleteRequest struct {
	MessageID string `json:"messageId" form:"messageId" binding:"required"`
}

func (h *Handler) Send(c *gin.Context) {
	var form SendRequest
	if err := c.ShouldBind(&form); err != nil {
		c.Error(errors.NewValidationError(err))
		return
	}

	input := SendInput{ProjectID: form.ProjectID, Content: form.Content}
	if file, err := c.FormFile("attachment"); err == nil {
		input.Attachment = file
	}

	message, err := h.service.Send(c.Request.Context(), c.Param("roomID"), c.GetString(middleware.ContextUserID), input)
	if err != nil {
		c.Error(err)
		return
	}

	response.OK(c, http.StatusCreated, "Message sent", message)
}

func (h *Handler) History(c *gin.Context) {
	messages, err := h.service.History(
		c.Request.Context(),
		c.Param("projectId"),
		c.GetString(middleware.ContextUserID),
		c.Query("lastMessageId"),
	)
	if err != nil {
		c.Error(err)
		return
	}

	response.OK(c, http.StatusOK, "Messages fetched", messages)
}

func (h *Handler) Delete(c *gin.Context) {
	var form DeleteRequest
	// the id may come as a json body or a query parameter
	if err := c.ShouldBind(&form); err != nil {
		if form.MessageID = c.Query("messageId"); form.MessageID == "" {
			c.Error(errors.NewValidationError(err))
			return
		}
	}

	if err := h.service.Delete(c.Request.Context(), c.Param("roomID"), form.MessageID, c.GetString(middleware.ContextUserID)); err != nil {
		c.Error(err)
		return
	}

	response.OK(c, http.StatusOK, "Message deleted", gin.H{"messageId": form.MessageID})
}
