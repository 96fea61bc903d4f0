package rest

import (
	"errors"
	"net/http"
	"strings"

	"github.com/dmitrijs2005/tours/internal/common"
	"github.com/dmitrijs2005/tours/internal/logging"
	"github.com/dmitrijs2005/tours/internal/server/models"
	"github.com/dmitrijs2005/tours/internal/server/services"
	"github.com/gin-gonic/gin"
)

const msgBadBody = "Invalid request body"

type UserHandler struct {
	users    *services.UserService
	logger   logging.Logger
	resetURL string
}

// NewUserHandler builds reset links from publicBaseURL, never from the
// request's Host or forwarding headers.
func NewUserHandler(users *services.UserService, logger logging.Logger, publicBaseURL string) *UserHandler {
	return &UserHandler{
		users:    users,
		logger:   logger,
		resetURL: strings.TrimRight(publicBaseURL, "/") + apiPrefix + "/users/reset-password/",
	}
}

func (h *UserHandler) Signup(c *gin.Context) {
	var in models.SignupInput
	if err := c.ShouldBindJSON(&in); err != nil {
		respondFail(c, http.StatusBadRequest, msgBadBody)
		return
	}

	res, err := h.users.Signup(c.Request.Context(), in)
	if err != nil {
		respondError(c, h.logger, err)
		return
	}

	c.JSON(http.StatusCreated, envelope{
		Status:  statusSuccess,
		Message: "user registered successfully",
		Token:   res.Token,
		Data:    res.User,
	})
}

func (h *UserHandler) Login(c *gin.Context) {
	var in models.LoginInput
	if err := c.ShouldBindJSON(&in); err != nil {
		respondFail(c, http.StatusBadRequest, msgBadBody)
		return
	}

	res, err := h.users.Login(c.Request.Context(), in)
	if err != nil {
		if errors.Is(err, common.ErrorUnauthorized) {
			respondFail(c, http.StatusUnauthorized, "Incorrect email or password")
			return
		}
		respondError(c, h.logger, err)
		return
	}

	c.JSON(http.StatusOK, envelope{Status: statusSuccess, Token: res.Token, Data: res.User})
}

func (h *UserHandler) ForgotPassword(c *gin.Context) {
	email := c.Param("email")
	if err := h.users.ForgotPassword(c.Request.Context(), email, h.resetURL); err != nil {
		respondError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusOK, envelope{Status: statusSuccess, Message: "Token sent to email"})
}

func (h *UserHandler) ResetPassword(c *gin.Context) {
	var in models.PasswordInput
	if err := c.ShouldBindJSON(&in); err != nil {
		respondFail(c, http.StatusBadRequest, msgBadBody)
		return
	}

	res, err := h.users.ResetPassword(c.Request.Context(), c.Param("resetToken"), in)
	if err != nil {
		respondError(c, h.logger, err)
		return
	}

	c.JSON(http.StatusOK, envelope{Status: statusSuccess, Token: res.Token})
}

func (h *UserHandler) Update(c *gin.Context) {
	var upd models.UserUpdate
	if err := c.ShouldBindJSON(&upd); err != nil {
		respondFail(c, http.StatusBadRequest, msgBadBody)
		return
	}

	u, err := h.users.UpdateDetails(c.Request.Context(), c.Param("id"), upd)
	if err != nil {
		respondError(c, h.logger, err)
		return
	}

	c.JSON(http.StatusOK, envelope{Status: statusSuccess, Message: "user details updated successfully", Data: u})
}

func (h *UserHandler) Delete(c *gin.Context) {
	if err := h.users.Delete(c.Request.Context(), c.Param("id")); err != nil {
		respondError(c, h.logger, err)
		return
	}
	c.Status(http.StatusNoContent)
}
