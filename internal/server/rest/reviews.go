package rest

import (
	"net/http"

	"github.com/dmitrijs2005/tours/internal/logging"
	"github.com/dmitrijs2005/tours/internal/server/models"
	"github.com/dmitrijs2005/tours/internal/server/services"
	"github.com/gin-gonic/gin"
)

type ReviewHandler struct {
	reviews *services.ReviewService
	logger  logging.Logger
}

func NewReviewHandler(reviews *services.ReviewService, logger logging.Logger) *ReviewHandler {
	return &ReviewHandler{reviews: reviews, logger: logger}
}

func (h *ReviewHandler) List(c *gin.Context) {
	reviews, err := h.reviews.List(c.Request.Context(), c.Query("tour"))
	if err != nil {
		respondError(c, h.logger, err)
		return
	}
	respondList(c, reviews)
}

func (h *ReviewHandler) Get(c *gin.Context) {
	r, err := h.reviews.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		respondError(c, h.logger, err)
		return
	}
	respondOK(c, http.StatusOK, r)
}

// Create takes the tour from the body or the ?tour= parameter.
func (h *ReviewHandler) Create(c *gin.Context) {
	var in models.ReviewInput
	if err := c.ShouldBindJSON(&in); err != nil {
		respondFail(c, http.StatusBadRequest, msgBadBody)
		return
	}
	if in.Tour == "" {
		in.Tour = c.Query("tour")
	}

	r, err := h.reviews.Create(c.Request.Context(), in, currentUser(c))
	if err != nil {
		respondError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusCreated, envelope{Status: statusSuccess, Message: "Review saved successfully", Data: r})
}
