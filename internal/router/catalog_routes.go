package router

import (
	"github.com/labstack/echo/v4"

	"github.com/faizvk/ecommerce-app/internal/handler"
)

// RegisterCatalog registers product routes.  Reads are public; writes
// require an access token with the admin role.
func RegisterCatalog(g *echo.Group, p *handler.ProductHandler, auth, admin echo.MiddlewareFunc) {
	g.GET("/product", p.List)
	g.GET("/product/search", p.Search)
	g.GET("/product/:id", p.Get)

	g.POST("/product", p.Create, auth, admin)
	g.PUT("/product/:id", p.Update, auth, admin)
	g.DELETE("/product/:id", p.Delete, auth, admin)
}
