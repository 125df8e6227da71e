package controllers

import (
	"github.com/shashiranjanraj/mithai/app/resources"
	"github.com/shashiranjanraj/mithai/app/services"
	"github.com/shashiranjanraj/mithai/pkg/apperr"
	"github.com/shashiranjanraj/mithai/pkg/auth"
	"github.com/shashiranjanraj/mithai/pkg/ctx"
)

type AuthController struct {
	service *services.AuthService
}

func NewAuthController(service *services.AuthService) *AuthController {
	return &AuthController{service: service}
}

func (c *AuthController) Register(cx *ctx.Context) {
	var in services.RegisterInput
	if !cx.BindJSON(&in) {
		return
	}

	user, err := c.service.Register(cx.Context(), in)
	if err != nil {
		cx.Fail(err)
		return
	}
	cx.Created(resources.NewUser(user))
}

func (c *AuthController) Login(cx *ctx.Context) {
	var in services.LoginInput
	if !cx.BindJSON(&in) {
		return
	}

	token, err := c.service.Login(cx.Context(), in)
	if err != nil {
		cx.Fail(err)
		return
	}
	cx.Success(resources.NewToken(token))
}

func (c *AuthController) Logout(cx *ctx.Context) {
	id, ok := identity(cx)
	if !ok {
		return
	}
	if err := c.service.Logout(cx.Context(), id); err != nil {
		cx.Fail(err)
		return
	}
	cx.Message("Logged out successfully")
}

func (c *AuthController) Me(cx *ctx.Context) {
	id, ok := identity(cx)
	if !ok {
		return
	}
	user, err := c.service.Me(cx.Context(), id.UserID)
	if err != nil {
		cx.Fail(err)
		return
	}
	cx.Success(resources.NewUser(user))
}

// identity returns the caller confirmed by the access gate. Routes behind
// the gate always have one; a missing identity is answered with 401.
func identity(cx *ctx.Context) (auth.Identity, bool) {
	id, ok := auth.IdentityFrom(cx.Context())
	if !ok {
		cx.Fail(apperr.Unauthorized("Not authenticated"))
	}
	return id, ok
}
