package handler

import (
	"errors"
	"net/http"

	"github.com/galvinchau/bac-hms-sub000/internal/logger"
	"github.com/galvinchau/bac-hms-sub000/internal/middleware"
	"github.com/galvinchau/bac-hms-sub000/internal/model"
	"github.com/galvinchau/bac-hms-sub000/internal/service"

	"github.com/gin-gonic/gin"
)

type AuthHandler struct {
	auth   *service.AuthService
	tokens *middleware.Tokens
}

func NewAuthHandler(auth *service.AuthService, tokens *middleware.Tokens) *AuthHandler {
	return &AuthHandler{auth: auth, tokens: tokens}
}

func (h *AuthHandler) Login(c *gin.Context) {
	var req model.LoginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "INVALID_REQUEST", "invalid request")
		return
	}

	st, err := h.auth.Login(c.Request.Context(), req.Username, req.Password)
	if err != nil {
		if errors.Is(err, service.ErrBadCredentials) || errors.Is(err, service.ErrForbidden) {
			logger.Warn("login.failed", "username", req.Username)
		}
		writeError(c, err)
		return
	}

	token, err := h.tokens.Issue(model.Actor{ID: st.ID, Name: st.Name, Role: st.Role})
	if err != nil {
		writeError(c, err)
		return
	}
	logger.Info("login.ok", "uid", st.ID, "role", st.Role)

	c.JSON(http.StatusOK, model.LoginResponse{
		Token: token,
		User:  model.User{ID: st.ID, Name: st.Name, Role: st.Role, Category: st.Category},
	})
}
