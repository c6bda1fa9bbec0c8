package router // package router defines how HTTP routes are registered for the API

import (
	"log/slog"
	"net/http"

	"github.com/labstack/echo/v4"
	echomw "github.com/labstack/echo/v4/middleware"
	"github.com/ulule/limiter/v3"

	"github.com/faizvk/ecommerce-app/internal/handler"
	"github.com/faizvk/ecommerce-app/internal/middleware"
	"github.com/faizvk/ecommerce-app/internal/model"
	"github.com/faizvk/ecommerce-app/internal/service"
	"github.com/faizvk/ecommerce-app/internal/utils"
)

// Deps carries everything the HTTP surface needs.
type Deps struct {
	Identity   *service.IdentityService
	Catalog    *service.CatalogService
	Codec      *utils.TokenCodec
	Limiter    *limiter.Limiter // nil disables rate limiting
	Logger     *slog.Logger
	CORSOrigin string
	Cookie     handler.CookieOptions
}

// New builds the echo instance with the global middleware chain and every
// route registered.
func New(d Deps) (*echo.Echo, error) {
	if d.Logger == nil {
		d.Logger = slog.Default()
	}
	v, err := handler.NewValidator()
	if err != nil {
		return nil, err
	}
	e := echo.New()
	e.HideBanner = true
	e.HidePort = true
	e.Validator = v
	e.HTTPErrorHandler = handler.ErrorHandler

	e.Use(middleware.RequestLogger(d.Logger))
	e.Use(echomw.Recover())
	e.Use(echomw.Secure())
	if d.CORSOrigin != "" {
		e.Use(echomw.CORSWithConfig(echomw.CORSConfig{
			AllowOrigins:     []string{d.CORSOrigin},
			AllowMethods:     []string{http.MethodGet, http.MethodPost, http.MethodPut, http.MethodDelete, http.MethodOptions},
			AllowHeaders:     []string{echo.HeaderContentType, echo.HeaderAuthorization},
			AllowCredentials: true,
		}))
	}

	RegisterRoutes(e)
	api := e.Group("/api", middleware.RateLimit(d.Limiter))
	auth := middleware.JWTAuth(d.Codec)
	admin := middleware.RequireRole(model.RoleAdmin)

	RegisterAuth(api, handler.NewAuthHandler(d.Identity, d.Cookie), auth)
	RegisterUsers(api, handler.NewUserHandler(d.Identity), auth, admin)
	RegisterCatalog(api, handler.NewProductHandler(d.Catalog), auth, admin)
	return e, nil
}

// RegisterRoutes registers routes that do not require authentication and
// bypass the rate limiter.
func RegisterRoutes(e *echo.Echo) {
	e.GET("/api/health", handler.Health)
}

// RegisterAuth registers signup, login and session routes.  Password
// changes require an access token.
func RegisterAuth(g *echo.Group, a *handler.AuthHandler, auth echo.MiddlewareFunc) {
	g.POST("/signup", a.Signup)
	g.POST("/login", a.Login)
	g.POST("/google", a.Google)
	g.POST("/refresh", a.Refresh)
	g.POST("/logout", a.Logout)

	g.PUT("/update-password", a.UpdatePassword, auth)
	g.PUT("/set-password", a.SetPassword, auth)
}

// RegisterUsers registers profile routes and admin user management.
func RegisterUsers(g *echo.Group, u *handler.UserHandler, auth, admin echo.MiddlewareFunc) {
	g.GET("/me", u.Me, auth)
	g.PUT("/me", u.UpdateMe, auth)

	g.GET("/all", u.List, auth, admin)
	g.PUT("/updateRole/:id", u.UpdateRole, auth, admin)
}
