package rest

import (
	"errors"
	"net/http"
	"strings"

	"github.com/dmitrijs2005/tours/internal/common"
	"github.com/dmitrijs2005/tours/internal/logging"
	"github.com/gin-gonic/gin"
)

const (
	statusSuccess = "success"
	statusFail    = "fail"
	statusError   = "error"
)

// envelope is the body of every JSON response.
type envelope struct {
	Status  string `json:"status"`
	Message string `json:"message,omitempty"`
	Token   string `json:"token,omitempty"`
	Results *int   `json:"results,omitempty"`
	Data    any    `json:"data,omitempty"`
}

func respondOK(c *gin.Context, code int, data any) {
	c.JSON(code, envelope{Status: statusSuccess, Data: data})
}

func respondList[T any](c *gin.Context, items []T) {
	n := len(items)
	c.JSON(http.StatusOK, envelope{Status: statusSuccess, Results: &n, Data: items})
}

func respondFail(c *gin.Context, code int, msg string) {
	c.AbortWithStatusJSON(code, envelope{Status: statusFail, Message: msg})
}

// detail returns the text a service wrapped around sentinel, or fallback
// when the sentinel was returned bare.
func detail(err, sentinel error, fallback string) string {
	msg := err.Error()
	if d, ok := strings.CutPrefix(msg, sentinel.Error()+": "); ok && d != "" {
		return d
	}
	return fallback
}

// respondError maps service errors to status codes. Only messages the
// services wrote for clients are echoed; anything else is logged.
func respondError(c *gin.Context, logger logging.Logger, err error) {
	switch {
	case errors.Is(err, common.ErrorValidation):
		respondFail(c, http.StatusBadRequest, detail(err, common.ErrorValidation, "Invalid input data"))
	case errors.Is(err, common.ErrInvalidOrExpiredResetToken):
		respondFail(c, http.StatusBadRequest, "Token is invalid or expired")
	case errors.Is(err, common.ErrPageNotFound):
		respondFail(c, http.StatusBadRequest, "This page does not exist")
	case errors.Is(err, common.ErrorNotFound):
		respondFail(c, http.StatusNotFound, detail(err, common.ErrorNotFound, "No record found with that ID"))
	case errors.Is(err, common.ErrorUnauthorized):
		respondFail(c, http.StatusUnauthorized, msgUnauthorized)
	case errors.Is(err, common.ErrorConflict):
		respondFail(c, http.StatusConflict, "Duplicate value, a record with that value already exists")
	case errors.Is(err, common.ErrorDependency):
		logger.Error(c.Request.Context(), "dependency failure", "error", err)
		respondFail(c, http.StatusBadGateway, detail(err, common.ErrorDependency, "An upstream service is unavailable"))
	default:
		logger.Error(c.Request.Context(), "request failed", "error", err)
		c.AbortWithStatusJSON(http.StatusInternalServerError, envelope{Status: statusError, Message: "Something went wrong"})
	}
}
