package main

import (
	"todoshi/internal/chat"
	"todoshi/internal/config"
	"todoshi/internal/middleware"
	"todoshi/internal/project"
	"todoshi/internal/projectlog"
	"todoshi/internal/realtime"
	"todoshi/internal/request"
	"todoshi/internal/todo"
	"todoshi/internal/user"

	"github.com/gin-gonic/gin"
)

type routeHandlers struct {
	users    *user.Handler
	projects *project.Handler
	todos    *todo.Handler
	logs     *projectlog.Handler
	chats    *chat.Handler
	requests *request.Handler
	ws       *realtime.Handler
}

func registerRoutes(router *gin.Engine, h routeHandlers, authed gin.HandlerFunc) {
	router.GET("/health", func(c *gin.Context) {
		c.JSON(200, gin.H{"status": "ok"})
	})
	router.GET("/ws", h.ws.ServeWS)

	api := router.Group("/api/v1")

	// User routes
	limited := middleware.RateLimitMiddleware(config.AppConfig.RateLimitPerMinute, 5)
	api.POST("/auth/register", limited, h.users.Register)
	api.POST("/auth/login", limited, h.users.Login)

	users := api.Group("", authed)
	users.DELETE("/auth/logout", h.users.Logout)
	users.GET("/auth/profile", h.users.GetProfile)
	users.PUT("/auth/profile", h.users.UpdateProfile)
	users.GET("/users", h.users.SearchUsers)

	projects := api.Group("/projects", authed)
	projects.POST("", h.projects.Create)
	projects.GET("", h.projects.List)
	projects.GET("/:projectId", h.projects.Show)
	projects.PUT("/:projectId", h.projects.UpdateDetails)
	projects.POST("/:projectId/srs", h.projects.UploadSRS)
	projects.DELETE("/:projectId", h.projects.Delete)
	projects.DELETE("/:projectId/collaborators/:userId", h.projects.RemoveCollaborator)
	projects.POST("/:projectId/leave", h.projects.Leave)
	projects.GET("/:projectId/requests", h.requests.ListForProject)

	api.GET("/todos/:projectId", authed, h.todos.ListByDate)
	api.GET("/logs/:projectId", authed, h.logs.List)

	chats := api.Group("/chats", authed)
	chats.POST("/sendMessage/:roomID", h.chats.Send)
	chats.GET("/getPreviousMessages/:projectId", h.chats.History)
	chats.DELETE("/deleteMessage/:roomID", h.chats.Delete)

	requests := api.Group("/requests", authed)
	requests.POST("", h.requests.Send)
	requests.GET("", h.requests.ListReceived)
	requests.POST("/:requestId/accept", h.requests.Accept)
	requests.POST("/:requestId/reject", h.requests.Reject)
}
