package routes

import (
	"github.com/shashiranjanraj/mithai/app/controllers"
	"github.com/shashiranjanraj/mithai/pkg/auth"
	"github.com/shashiranjanraj/mithai/pkg/ctx"
	"github.com/shashiranjanraj/mithai/pkg/middleware"
	"github.com/shashiranjanraj/mithai/pkg/ratelimit"
	"github.com/shashiranjanraj/mithai/pkg/rbac"
	"github.com/shashiranjanraj/mithai/pkg/router"
)

type Controllers struct {
	Auth       *controllers.AuthController
	Sweets     *controllers.SweetController
	Categories *controllers.CategoryController
	Purchases  *controllers.PurchaseController
	Reviews    *controllers.ReviewController
	Admin      *controllers.AdminController
}

// Guards are the access gate and the two rate limiters: Public counts
// per client IP on the unauthenticated auth routes, Users per user id
// everywhere else.
type Guards struct {
	Gate   *rbac.Gate
	Public *ratelimit.Limiter
	Users  *ratelimit.Limiter
}

func RegisterAPI(r *router.Router, c Controllers, g Guards) {
	api := r.Group("/api")

	public := api.Group("/auth", middleware.RateLimit(g.Public, middleware.ByIP))
	public.Post("/register", "auth.register", ctx.Wrap(c.Auth.Register))
	public.Post("/login", "auth.login", ctx.Wrap(c.Auth.Login))

	user := api.Group("", g.Gate.Authenticate, middleware.RateLimit(g.Users, middleware.ByUser))
	user.Post("/auth/logout", "auth.logout", ctx.Wrap(c.Auth.Logout))
	user.Get("/auth/me", "auth.me", ctx.Wrap(c.Auth.Me))

	user.Get("/sweets", "sweets.index", ctx.Wrap(c.Sweets.Index))
	user.Get("/sweets/search", "sweets.search", ctx.Wrap(c.Sweets.Search))
	user.Get("/sweets/{id}", "sweets.show", ctx.Wrap(c.Sweets.Show))
	user.Get("/categories", "categories.index", ctx.Wrap(c.Categories.Index))

	user.Post("/purchases", "purchases.store", ctx.Wrap(c.Purchases.Store))
	user.Get("/purchases", "purchases.index", ctx.Wrap(c.Purchases.Index))

	user.Post("/reviews", "reviews.store", ctx.Wrap(c.Reviews.Store))
	user.Get("/reviews/sweet/{id}", "reviews.sweet", ctx.Wrap(c.Reviews.ForSweet))

	admin := user.Group("", g.Gate.RequireRole(auth.RoleAdmin))
	admin.Post("/sweets", "sweets.store", ctx.Wrap(c.Sweets.Store))
	admin.Put("/sweets/{id}", "sweets.update", ctx.Wrap(c.Sweets.Update))
	admin.Delete("/sweets/{id}", "sweets.destroy", ctx.Wrap(c.Sweets.Destroy))
	admin.Post("/categories", "categories.store", ctx.Wrap(c.Categories.Store))

	admin.Post("/admin/restock", "admin.restock", ctx.Wrap(c.Admin.Restock))
	admin.Get("/admin/users", "admin.users", ctx.Wrap(c.Admin.Users))
	admin.Get("/admin/audit-logs", "admin.audit_logs", ctx.Wrap(c.Admin.AuditLogs))
}
