package controllers

import (
	"fmt"
	"net/http"
	"strconv"

	"PinguinGuard/apperrors"
	"PinguinGuard/middlewares"
	"PinguinGuard/models"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

func respondError(c *gin.Context, logger *zap.Logger, err error) {
	code := apperrors.CodeOf(err)
	status := code.HTTPStatus()
	if status >= http.StatusInternalServerError {
		logger.Error("request failed",
			zap.String("method", c.Request.Method),
			zap.String("path", c.FullPath()),
			zap.Error(err))
	}
	c.JSON(status, gin.H{"error": err.Error(), "code": code})
}

// respondWarning answers with the committed result and the reason it is
// incomplete.
func respondWarning(c *gin.Context, status int, data any, err error) {
	c.JSON(status, gin.H{"data": data, "warning": err.Error(), "code": apperrors.CodeOf(err)})
}

func badRequest(c *gin.Context, err error) {
	c.JSON(http.StatusBadRequest, gin.H{"error": err.Error(), "code": apperrors.CodeInvalidArgument})
}

func session(c *gin.Context) (models.Session, bool) {
	s, ok := middlewares.SessionFrom(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "unauthorized", "code": apperrors.CodeUnauthorized})
	}
	return s, ok
}

// queryInt reads an optional integer query parameter; absent means zero.
func queryInt(c *gin.Context, name string) (int, error) {
	raw := c.Query(name)
	if raw == "" {
		return 0, nil
	}
	n, err := strconv.Atoi(raw)
	if err != nil {
		return 0, fmt.Errorf("%s must be an integer: %w", name, apperrors.ErrInvalidArgument)
	}
	return n, nil
}
