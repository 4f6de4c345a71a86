package project

import (
	"net/http"
	"time"

	"todoshi/internal/domain"
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

type CreateRequest struct {
	Title       string `json:"title" binding:"required,max=100"`
	Description string `json:"description" binding:"max=2000"`
	Deadline    string `json:"deadline" binding:"omitempty,datetime=2006-01-02"`
}

// UpdateDetailsRequest is bound from a multipart form, every field is optional
type UpdateDetailsRequest struct {
	Title       *string `form:"title" binding:"omitempty,max=100"`
	Description *string `form:"description" binding:"omitempty,max=2000"`
	Deadline    string  `form:"deadline" binding:"omitempty,datetime=2006-01-02"`
}

func parseDeadline(s string) *time.Time {
	if s == "" {
		return nil
	}
	// validated by the binding already
	t, err := time.Parse(domain.TodoDateLayout, s)
	if err != nil {
		return nil
	}
	return &t
}

func (h *Handler) Create(c *gin.Context) {
	var form CreateRequest
	if err := c.ShouldBindJSON(&form); err != nil {
		c.Error(errors.NewValidationError(err))
		return
	}

	project, err := h.service.Create(c.Request.Context(), c.GetString(middleware.ContextUserID), CreateInput{
		Title:       form.Title,
		Description: form.Description,
		Deadline:    parseDeadline(form.Deadline),
	})
	if err != nil {
		c.Error(err)
		return
	}

	response.OK(c, http.StatusCreated, "Project created", project)
}

func (h *Handler) List(c *gin.Context) {
	projects, err := h.service.ListMine(c.Request.Context(), c.GetString(middleware.ContextUserID))
	if err != nil {
		c.Error(err)
		return
	}

	response.OK(c, http.StatusOK, "Projects fetched", projects)
}

func (h *Handler) Show(c *gin.Context) {
	project, err := h.service.Get(c.Request.Context(), c.Param("projectId"), c.GetString(middleware.ContextUserID))
	if err != nil {
		c.Error(err)
		return
	}

	response.OK(c, http.StatusOK, "Project fetched", project)
}

func (h *Handler) UpdateDetails(c *gin.Context) {
	var form UpdateDetailsRequest
	if err := c.ShouldBind(&form); err != nil {
		c.Error(errors.NewValidationError(err))
		return
	}

	input := DetailsInput{
		Title:       form.Title,
		Description: form.Description,
		Deadline:    parseDeadline(form.Deadline),
	}
	if file, err := c.FormFile("image"); err == nil {
		input.Image = file
	}

	project, err := h.service.UpdateDetails(c.Request.Context(), c.Param("projectId"), c.GetString(middleware.ContextUserID), input)
	if err != nil {
		c.Error(err)
		return
	}

	response.OK(c, http.StatusOK, "Project updated", project)
}

func (h *Handler) UploadSRS(c *gin.Context) {
	file, err := c.FormFile("srs")
	if err != nil {
		c.Error(errors.BadRequest("SRS document is required", err))
		return
	}

	project, err := h.service.UploadSRS(c.Request.Context(), c.Param("projectId"), c.GetString(middleware.ContextUserID), file)
	if err != nil {
		c.Error(err)
		return
	}

	response.OK(c, http.StatusOK, "SRS document uploaded", project)
}

func (h *Handler) Delete(c *gin.Context) {
	if err := h.service.Delete(c.Request.Context(), c.Param("projectId"), c.GetString(middleware.ContextUserID)); err != nil {
		c.Error(err)
		return
	}

	response.OK(c, http.StatusOK, "Project deleted", nil)
}

func (h *Handler) RemoveCollaborator(c *gin.Context) {
	err := h.service.RemoveCollaborator(
		c.Request.Context(),
		c.Param("projectId"),
		c.GetString(middleware.ContextUserID),
		c.Param("userId"),
	)
	if err != nil {
		c.Error(err)
		return
	}

	response.OK(c, http.StatusOK, "Collaborator removed", nil)
}

func (h *Handler) Leave(c *gin.Context) {
	if err := h.service.Leave(c.Request.Context(), c.Param("projectId"), c.GetString(middleware.ContextUserID)); err != nil {
		c.Error(err)
		return
	}

	response.OK(c, http.StatusOK, "Left project", nil)
}
