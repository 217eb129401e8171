package handler

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"stitchkart/internal/domain"
)

type response struct {
	Success bool   `json:"success"`
	Message string `json:"message"`
	Meta    *meta  `json:"meta,omitempty"`
	Data    any    `json:"data,omitempty"`
}

type meta struct {
	Page  int   `json:"page"`
	Limit int   `json:"limit"`
	Total int64 `json:"total"`
}

func sendData(c *gin.Context, message string, data any) {
	c.JSON(http.StatusOK, response{Success: true, Message: message, Data: data})
}

func sendPage(c *gin.Context, message string, m meta, data any) {
	c.JSON(http.StatusOK, response{Success: true, Message: message, Meta: &m, Data: data})
}

func sendError(c *gin.Context, err error) {
	c.JSON(statusOf(err), response{Success: false, Message: err.Error()})
}

func sendValidationError(c *gin.Context, err error) {
	c.JSON(http.StatusBadRequest, response{Success: false, Message: err.Error()})
}

func statusOf(err error) int {
	switch {
	case errors.Is(err, domain.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, domain.ErrPaymentMissing):
		return http.StatusBadRequest
	case errors.Is(err, domain.ErrAlreadyPaid):
		return http.StatusConflict
	case errors.Is(err, domain.ErrInsufficientStock):
		return http.StatusConflict
	default:
		return http.StatusInternalServerError
	}
}
