package web

import (
	"github.com/kataras/iris/v12"

	"courier/domain"
	"courier/errors"
	"courier/services"
)

type AuthHandler struct {
	auth services.IAuthService
}

func NewAuthHandler(auth services.IAuthService) *AuthHandler {
	return &AuthHandler{auth: auth}
}

type registerRequest struct {
	Name     string `json:"name"`
	Email    string `json:"email"`
	Password string `json:"password"`
}

type loginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type sessionResponse struct {
	Token string      `json:"token"`
	User  domain.User `json:"user"`
}

func (h *AuthHandler) Register(ctx iris.Context) {
	var req registerRequest
	if err := ctx.ReadJSON(&req); err != nil {
		ctx.StopWithJSON(iris.StatusBadRequest, iris.Map{"error": err.Error()})
		return
	}
	token, user, err := h.auth.Register(req.Name, req.Email, req.Password)
	if err != nil {
		ctx.StopWithJSON(errors.MapToHTTPStatus(err), iris.Map{"error": err.Error()})
		return
	}
	ctx.StatusCode(iris.StatusCreated)
	_ = ctx.JSON(sessionResponse{Token: token, User: user})
}

func (h *AuthHandler) Login(ctx iris.Context) {
	var req loginRequest
	if err := ctx.ReadJSON(&req); err != nil {
		ctx.StopWithJSON(iris.StatusBadRequest, iris.Map{"error": err.Error()})
		return
	}
	token, user, err := h.auth.Login(req.Email, req.Password)
	if err != nil {
		ctx.StopWithJSON(errors.MapToHTTPStatus(err), iris.Map{"error": err.Error()})
		return
	}
	_ = ctx.JSON(sessionResponse{Token: token, User: user})
}

func (h *AuthHandler) Logout(ctx iris.Context) {
	if err := h.auth.Logout(callerID(ctx)); err != nil {
		ctx.StopWithJSON(errors.MapToHTTPStatus(err), iris.Map{"error": err.Error()})
		return
	}
	ctx.StatusCode(iris.StatusNoContent)
}
