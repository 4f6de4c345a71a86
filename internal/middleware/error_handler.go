package middleware

import (
	apiError "todoshi/internal/errors"
	"todoshi/internal/response"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
)

func ErrorHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Next() // Execute the handler first

		if len(c.Errors) == 0 {
			return
		}

		err := c.Errors.Last().Err
		apiErr, ok := apiError.As(err)
		if !ok {
			// raw error we didn't wrap, treat as Internal
			apiErr = apiError.Internal(err)
		}

		log := logrus.WithFields(logrus.Fields{
			"method": c.Request.Method,
			"path":   c.FullPath(),
			"status": apiErr.Status,
		})
		if apiErr.Status >= 500 {
			log.WithError(apiErr.Internal).Error(apiErr.Message)
		} else {
			log.WithError(apiErr.Internal).Info(apiErr.Message)
		}

		response.Fail(c, apiErr.Status, apiErr.Message, apiErr.Fields)
	}
}
