package auth

import (
	"net/http"
	"path"
	"strings"

	"github.com/gofiber/fiber/v2"
	"github.com/goliatone/go-router"
)

// EdgeRoutes are the page paths served behind the route guard
type EdgeRoutes struct {
	Login        string
	Register     string
	Dashboard    string
	Unauthorized string
}

// EdgeController serves placeholder pages for the guarded route table.
// Page rendering proper belongs to the storefront frontend.
type EdgeController struct {
	Routes EdgeRoutes
	Logger Logger
}

// EdgeControllerOption customizes the controller
type EdgeControllerOption func(*EdgeController)

// WithEdgeLogger sets the controller logger
func WithEdgeLogger(logger Logger) EdgeControllerOption {
	return func(c *EdgeController) {
		if logger != nil {
			c.Logger = logger
		}
	}
}

// NewEdgeController builds the controller from cfg
func NewEdgeController(cfg Config, opts ...EdgeControllerOption) *EdgeController {
	c := &EdgeController{
		Routes: EdgeRoutes{
			Login:        cfg.GetLoginPath(),
			Register:     cfg.GetRegisterPath(),
			Dashboard:    cfg.GetDashboardPrefix(),
			Unauthorized: cfg.GetUnauthorizedPath(),
		},
		Logger: defLogger{},
	}
	for _, opt := range opts {
		if opt != nil {
			opt(c)
		}
	}
	return c
}

// RegisterEdgeRoutes mounts the guard and the guarded pages on app
func RegisterEdgeRoutes[T any](app router.Router[T], cfg Config, opts ...EdgeControllerOption) {
	controller := NewEdgeController(cfg, opts...)

	app.Use(NewRouteGuard(cfg, controller.Logger))

	app.Get(controller.Routes.Login, controller.LoginShow).SetName("login.get")
	app.Get(controller.Routes.Register, controller.RegisterShow).SetName("register.get")
	app.Get(controller.Routes.Unauthorized, controller.UnauthorizedShow).SetName("unauthorized.get")
	app.Get(controller.Routes.Dashboard, controller.DashboardShow).SetName("dashboard.get")
	app.Get(controller.Routes.Dashboard+"/*", controller.DashboardShow).SetName("dashboard.section.get")
}

// NewEdgeServer builds the fiber backed edge server with the guard and the
// pages mounted. Routing is case sensitive so the router and the guard
// agree on dashboard role segments.
func NewEdgeServer(cfg Config, development bool, opts ...EdgeControllerOption) router.Server[*fiber.App] {
	srv := router.NewFiberAdapter(func(a *fiber.App) *fiber.App {
		app := fiber.New(fiber.Config{
			UnescapePath:      true,
			CaseSensitive:     true,
			EnablePrintRoutes: development,
			StrictRouting:     false,
		})
		if development {
			return router.DefaultFiberOptions(app)
		}
		return app
	})

	RegisterEdgeRoutes(srv.Router(), cfg, opts...)
	return srv
}

func (a *EdgeController) LoginShow(ctx router.Context) error {
	return ctx.JSON(router.StatusOK, map[string]any{
		"page": "login",
	})
}

func (a *EdgeController) RegisterShow(ctx router.Context) error {
	return ctx.JSON(router.StatusOK, map[string]any{
		"page": "register",
	})
}

func (a *EdgeController) UnauthorizedShow(ctx router.Context) error {
	return ctx.JSON(router.StatusForbidden, map[string]any{
		"page":    "unauthorized",
		"message": "you do not have access to this dashboard",
	})
}

// DashboardShow describes the dashboard for the hinted role. The hint only
// picks the menu, it grants nothing.
func (a *EdgeController) DashboardShow(ctx router.Context) error {
	hint, ok := RoleHintFromRouter(ctx)
	if !ok {
		a.Logger.Error("dashboard served without a role hint: %s", ctx.Path())
		return ctx.Redirect(a.Routes.Login, http.StatusFound)
	}

	role := hint.Role
	if !role.IsValid() {
		role = RoleCustomer
	}

	section := strings.TrimPrefix(path.Clean("/"+ctx.Path()), a.Routes.Dashboard)
	section = strings.Trim(section, "/")

	return ctx.JSON(router.StatusOK, map[string]any{
		"page":    "dashboard",
		"section": section,
		"role":    role,
		"home":    role.DashboardPath(),
		"menu":    DashboardMenu(role),
	})
}
