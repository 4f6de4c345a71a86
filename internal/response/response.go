package response

import "github.com/gin-gonic/gin"

// Envelope is the uniform body returned by every REST endpoint
type Envelope struct {
	StatusCode int               `json:"statusCode"`
	Message    string            `json:"message"`
	Data       any               `json:"data"`
	Success    bool              `json:"success"`
	Errors     map[string]string `json:"errors,omitempty"`
}

// OK writes a successful envelope
func OK(c *gin.Context, status int, message string, data any) {
	c.JSON(status, Envelope{
		StatusCode: status,
		Message:    message,
		Data:       data,
		Success:    status < 400,
	})
}

// Fail writes a failed envelope and aborts the chain
func Fail(c *gin.Context, status int, message string, fields map[string]string) {
	c.AbortWithStatusJSON(status, Envelope{
		StatusCode: status,
		Message:    message,
		Data:       nil,
		Success:    false,
		Errors:     fields,
	})
}
