package controllers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"food_crm/internal/middleware"
	"food_crm/internal/models"
	"food_crm/internal/services"
)

// statusFor maps a service error to its HTTP status and client message.
func statusFor(err error) (int, string) {
	var verr *services.ValidationError
	switch {
	case errors.As(err, &verr):
		return http.StatusBadRequest, verr.Error()
	case errors.Is(err, services.ErrInvalidCredentials):
		return http.StatusUnauthorized, "Invalid credentials"
	case errors.Is(err, services.ErrForbidden):
		return http.StatusForbidden, "You do not have permission to perform this action"
	case errors.Is(err, services.ErrNotFound):
		return http.StatusNotFound, "Not found"
	case errors.Is(err, services.ErrExpired):
		return http.StatusBadRequest, "OTP has expired"
	case errors.Is(err, services.ErrMismatch):
		return http.StatusBadRequest, "Invalid OTP"
	case errors.Is(err, services.ErrTransport):
		return http.StatusBadGateway, "Failed to send OTP email"
	default:
		return http.StatusInternalServerError, "Internal server error"
	}
}

func respondError(c *gin.Context, err error) {
	status, msg := statusFor(err)
	if status >= http.StatusInternalServerError {
		logrus.WithError(err).WithFields(logrus.Fields{
			"path":       c.FullPath(),
			"request_id": c.GetString("request_id"),
		}).Error("request failed")
	}
	c.JSON(status, gin.H{"error": msg})
}

// respondNotFound answers 404 with a resource-specific message.
func respondNotFound(c *gin.Context, err error, msg string) bool {
	if errors.Is(err, services.ErrNotFound) {
		c.JSON(http.StatusNotFound, gin.H{"error": msg})
		return true
	}
	return false
}

func currentUser(c *gin.Context) (*models.User, bool) {
	user := middleware.CurrentUser(c)
	if user == nil {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Authentication required"})
		return nil, false
	}
	return user, true
}
