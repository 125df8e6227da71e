package controllers

import (
	"strconv"

	"github.com/shashiranjanraj/mithai/app/resources"
	"github.com/shashiranjanraj/mithai/app/services"
	"github.com/shashiranjanraj/mithai/pkg/ctx"
	"github.com/shashiranjanraj/mithai/pkg/resource"
)

type AdminController struct {
	admin   *services.AdminService
	restock *services.RestockService
}

func NewAdminController(admin *services.AdminService, restock *services.RestockService) *AdminController {
	return &AdminController{admin: admin, restock: restock}
}

func (c *AdminController) Restock(cx *ctx.Context) {
	admin, ok := identity(cx)
	if !ok {
		return
	}
	var in services.RestockInput
	if !cx.BindJSON(&in) {
		return
	}

	receipt, err := c.restock.Restock(cx.Context(), admin.UserID, in)
	if err != nil {
		cx.Fail(err)
		return
	}
	cx.Created(resources.NewRestock(receipt))
}

func (c *AdminController) Users(cx *ctx.Context) {
	admin, ok := identity(cx)
	if !ok {
		return
	}
	users, err := c.admin.Users(cx.Context(), admin.UserID)
	if err != nil {
		cx.Fail(err)
		return
	}
	cx.Success(resources.NewUserList(users))
}

// AuditLogs supports ?action=, ?user_id=, ?page= and ?per_page=.
// Unparseable numbers fall back to their defaults.
func (c *AdminController) AuditLogs(cx *ctx.Context) {
	userID, _ := strconv.ParseUint(cx.Query("user_id"), 10, 64)
	page, _ := strconv.Atoi(cx.Query("page"))
	perPage, _ := strconv.Atoi(cx.Query("per_page"))

	result, err := c.admin.AuditLogs(cx.Context(), services.AuditQuery{
		Action:  cx.Query("action"),
		UserID:  uint(userID),
		Page:    page,
		PerPage: perPage,
	})
	if err != nil {
		cx.Fail(err)
		return
	}
	cx.Success(resource.Paginate(result.Logs, resources.NewAuditLog, result.Total, result.Page))
}
