package handler

import (
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/shopspring/decimal"

	"github.com/faizvk/ecommerce-app/internal/apperrors"
	"github.com/faizvk/ecommerce-app/internal/middleware"
	"github.com/faizvk/ecommerce-app/internal/model"
	"github.com/faizvk/ecommerce-app/internal/service"
)

// ProductHandler serves the catalog endpoints.
type ProductHandler struct {
	Catalog *service.CatalogService
}

func NewProductHandler(cat *service.CatalogService) *ProductHandler {
	return &ProductHandler{Catalog: cat}
}

type createProductReq struct {
	Name        string          `json:"name" validate:"required,max=200"`
	Description string          `json:"description" validate:"required"`
	Category    string          `json:"category" validate:"required,max=100"`
	CostPrice   decimal.Decimal `json:"costPrice"`
	SalePrice   decimal.Decimal `json:"salePrice"`
	Stock       int             `json:"stock" validate:"gte=0"`
	Images      []string        `json:"images" validate:"omitempty,dive,url"`
}

type updateProductReq struct {
	Name        *string          `json:"name" validate:"omitempty,min=1,max=200"`
	Description *string          `json:"description" validate:"omitempty,min=1"`
	Category    *string          `json:"category" validate:"omitempty,min=1,max=100"`
	CostPrice   *decimal.Decimal `json:"costPrice"`
	SalePrice   *decimal.Decimal `json:"salePrice"`
	Stock       *int             `json:"stock" validate:"omitempty,gte=0"`
	Images      []string         `json:"images" validate:"omitempty,dive,url"`
}

// List returns the whole catalog and where it was served from.
func (h *ProductHandler) List(c echo.Context) error {
	products, src, err := h.Catalog.List(c.Request().Context())
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, echo.Map{"success": true, "source": src, "products": products})
}

// Get returns one product.
func (h *ProductHandler) Get(c echo.Context) error {
	p, src, err := h.Catalog.Get(c.Request().Context(), c.Param("id"))
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, echo.Map{"success": true, "source": src, "product": p})
}

// Search filters and pages the catalog.  Query parameters: name, category,
// minPrice, maxPrice, sortBy, order, page, limit.
func (h *ProductHandler) Search(c echo.Context) error {
	var (
		query              model.ProductQuery
		minPrice, maxPrice string
	)
	err := echo.QueryParamsBinder(c).
		String("name", &query.Name).
		String("category", &query.Category).
		String("minPrice", &minPrice).
		String("maxPrice", &maxPrice).
		String("sortBy", &query.SortBy).
		String("order", &query.Order).
		Int("page", &query.Page).
		Int("limit", &query.Limit).
		BindError()
	if err != nil {
		return apperrors.Wrap(apperrors.InvalidInput, "invalid query parameters", err)
	}
	if query.MinPrice, err = parsePrice(minPrice, "minPrice"); err != nil {
		return err
	}
	if query.MaxPrice, err = parsePrice(maxPrice, "maxPrice"); err != nil {
		return err
	}

	page, src, err := h.Catalog.Search(c.Request().Context(), query)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, echo.Map{
		"success":    true,
		"source":     src,
		"products":   page.Products,
		"totalCount": page.TotalCount,
		"totalPages": page.TotalPages,
		"page":       page.Page,
	})
}

func parsePrice(s, field string) (*decimal.Decimal, error) {
	if s == "" {
		return nil, nil
	}
	d, err := decimal.NewFromString(s)
	if err != nil || d.IsNegative() {
		return nil, apperrors.NewInvalidInput("invalid " + field)
	}
	return &d, nil
}

// Create adds a product owned by the calling admin.
func (h *ProductHandler) Create(c echo.Context) error {
	var req createProductReq
	if err := bind(c, &req); err != nil {
		return err
	}
	p, err := h.Catalog.Create(c.Request().Context(), middleware.UserID(c), service.ProductInput{
		Name:        req.Name,
		Description: req.Description,
		Category:    req.Category,
		CostPrice:   req.CostPrice,
		SalePrice:   req.SalePrice,
		Stock:       req.Stock,
		Images:      req.Images,
	})
	if err != nil {
		return err
	}
	return c.JSON(http.StatusCreated, echo.Map{"success": true, "message": "Product created successfully", "product": p})
}

// Update edits the product in the path.
func (h *ProductHandler) Update(c echo.Context) error {
	var req updateProductReq
	if err := bind(c, &req); err != nil {
		return err
	}
	p, err := h.Catalog.Update(c.Request().Context(), c.Param("id"), service.ProductPatch{
		Name:        req.Name,
		Description: req.Description,
		Category:    req.Category,
		CostPrice:   req.CostPrice,
		SalePrice:   req.SalePrice,
		Stock:       req.Stock,
		Images:      req.Images,
	})
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, echo.Map{"success": true, "message": "Product updated successfully", "product": p})
}

// Delete removes the product in the path.
func (h *ProductHandler) Delete(c echo.Context) error {
	p, err := h.Catalog.Delete(c.Request().Context(), c.Param("id"))
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, echo.Map{"success": true, "message": "Product deleted successfully", "product": p})
}
