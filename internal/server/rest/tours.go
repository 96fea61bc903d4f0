package rest

import (
	"net/http"

	"github.com/dmitrijs2005/tours/internal/logging"
	"github.com/dmitrijs2005/tours/internal/server/models"
	"github.com/dmitrijs2005/tours/internal/server/services"
	"github.com/gin-gonic/gin"
)

type TourHandler struct {
	tours  *services.TourService
	logger logging.Logger
}

func NewTourHandler(tours *services.TourService, logger logging.Logger) *TourHandler {
	return &TourHandler{tours: tours, logger: logger}
}

func (h *TourHandler) List(c *gin.Context) {
	q, err := parseTourQuery(c.Request.URL.Query())
	if err != nil {
		respondError(c, h.logger, err)
		return
	}

	tours, err := h.tours.List(c.Request.Context(), q)
	if err != nil {
		respondError(c, h.logger, err)
		return
	}

	if len(q.Fields) == 0 {
		respondList(c, tours)
		return
	}

	projected, err := project(tours, q.Fields)
	if err != nil {
		respondError(c, h.logger, err)
		return
	}
	respondList(c, projected)
}

func (h *TourHandler) Get(c *gin.Context) {
	t, err := h.tours.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		respondError(c, h.logger, err)
		return
	}
	respondOK(c, http.StatusOK, t)
}

func (h *TourHandler) Create(c *gin.Context) {
	var t models.Tour
	if err := c.ShouldBindJSON(&t); err != nil {
		respondFail(c, http.StatusBadRequest, msgBadBody)
		return
	}

	created, err := h.tours.Create(c.Request.Context(), &t)
	if err != nil {
		respondError(c, h.logger, err)
		return
	}
	respondOK(c, http.StatusCreated, created)
}

func (h *TourHandler) Update(c *gin.Context) {
	var upd models.TourUpdate
	if err := c.ShouldBindJSON(&upd); err != nil {
		respondFail(c, http.StatusBadRequest, msgBadBody)
		return
	}

	t, err := h.tours.Update(c.Request.Context(), c.Param("id"), upd)
	if err != nil {
		respondError(c, h.logger, err)
		return
	}
	respondOK(c, http.StatusOK, t)
}

func (h *TourHandler) Delete(c *gin.Context) {
	if err := h.tours.Delete(c.Request.Context(), c.Param("id")); err != nil {
		respondError(c, h.logger, err)
		return
	}
	c.Status(http.StatusNoContent)
}

type uploadRequest struct {
	ContentType string `json:"contentType"`
}

// ImageUploadURL returns a presigned PUT URL. The body is optional.
func (h *TourHandler) ImageUploadURL(c *gin.Context) {
	var req uploadRequest
	if c.Request.ContentLength > 0 {
		if err := c.ShouldBindJSON(&req); err != nil {
			respondFail(c, http.StatusBadRequest, msgBadBody)
			return
		}
	}

	target, err := h.tours.ImageUploadURL(c.Request.Context(), c.Param("id"), req.ContentType)
	if err != nil {
		respondError(c, h.logger, err)
		return
	}
	respondOK(c, http.StatusCreated, target)
}
