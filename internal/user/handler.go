package user

import (
	"net/http"

	"todoshi/auth"
	"todoshi/internal/domain"
	"todoshi/internal/errors"
	"todoshi/internal/middleware"
	"todoshi/internal/response"

	"github.com/gin-gonic/gin"
)

// Handler handles HTTP requests for users
type Handler struct {
	service Service
}

// NewHandler creates a new user handler
func NewHandler(service Service) *Handler {
	return &Handler{service: service}
}

// FormLogin represents login form data
type FormLogin struct {
	Email    string `json:"email" binding:"required"`
	Password string `json:"password" binding:"required"`
}

// FormRegister represents registration form data
type FormRegister struct {
	Username string `json:"username" binding:"required,min=3,max=32"`
	FullName string `json:"fullName" binding:"max=100"`
	Email    string `json:"email" binding:"required,email"`
	Password string `json:"password" binding:"required,min=6"`
}

// FormUpdateProfile is bound from a multipart form, the avatar is optional
type FormUpdateProfile struct {
	Username *string `form:"username" binding:"omitempty,min=3,max=32"`
	FullName *string `form:"fullName" binding:"omitempty,max=100"`
}

// Register handles user registration
func (h *Handler) Register(c *gin.Context) {
	var form FormRegister
	if err := c.ShouldBindJSON(&form); err != nil {
		c.Error(errors.NewValidationError(err))
		return
	}

	user := &domain.User{
		Username: form.Username,
		FullName: form.FullName,
		Email:    form.Email,
		Password: form.Password,
	}

	if err := h.service.Register(c.Request.Context(), user); err != nil {
		c.Error(err)
		return
	}

	response.OK(c, http.StatusCreated, "User registered", user.ToSafeUser())
}

// Login handles user login
func (h *Handler) Login(c *gin.Context) {
	var form FormLogin
	if err := c.ShouldBindJSON(&form); err != nil {
		c.Error(errors.NewValidationError(err))
		return
	}

	user, err := h.service.Login(c.Request.Context(), form.Email, form.Password)
	if err != nil {
		c.Error(err)
		return
	}

	accessToken, err := auth.GenerateAccessToken(user.ID, user.TokenVersion)
	if err != nil {
		c.Error(errors.Internal(err))
		return
	}

	response.OK(c, http.StatusOK, "Logged in", gin.H{
		"access_token": accessToken,
		"user":         user.ToSafeUser(),
	})
}

// Logout revokes every token of the current user
func (h *Handler) Logout(c *gin.Context) {
	userID := c.GetString(middleware.ContextUserID)

	if err := h.service.Logout(c.Request.Context(), userID); err != nil {
		c.Error(err)
		return
	}
	response.OK(c, http.StatusOK, "Logged out", nil)
}

// GetProfile handles getting the current user's profile
func (h *Handler) GetProfile(c *gin.Context) {
	userID := c.GetString(middleware.ContextUserID)

	user, err := h.service.GetUserByID(c.Request.Context(), userID)
	if err != nil {
		c.Error(err)
		return
	}

	response.OK(c, http.StatusOK, "Profile fetched", user.ToSafeUser())
}

func (h *Handler) UpdateProfile(c *gin.Context) {
	var form FormUpdateProfile
	if err := c.ShouldBind(&form); err != nil {
		c.Error(errors.NewValidationError(err))
		return
	}

	input := UpdateProfileInput{Username: form.Username, FullName: form.FullName}
	if file, err := c.FormFile("avatar"); err == nil {
		input.Avatar = file
	}

	user, err := h.service.UpdateProfile(c.Request.Context(), c.GetString(middleware.ContextUserID), input)
	if err != nil {
		c.Error(err)
		return
	}

	response.OK(c, http.StatusOK, "Profile updated", user.ToSafeUser())
}

func (h *Handler) SearchUsers(c *gin.Context) {
	users, err := h.service.SearchUsers(c.Request.Context(), c.Query("q"))
	if err != nil {
		c.Error(err)
		return
	}

	response.OK(c, http.StatusOK, "Users fetched", users)
}
