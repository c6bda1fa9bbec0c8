package model

import (
	"net/url"
	"strconv"
	"time"

	"github.com/shopspring/decimal"
)

// Product is a catalog item as stored in the `products` table.  Prices are
// decimals so that cost and sale price compare exactly.
type Product struct {
	ID          string          `json:"id"`
	Name        string          `json:"name"`
	Description string          `json:"description"`
	Category    string          `json:"category"`
	CostPrice   decimal.Decimal `json:"costPrice"`
	SalePrice   decimal.Decimal `json:"salePrice"`
	Stock       int             `json:"stock"`
	Images      []string        `json:"images"`
	SellerID    string          `json:"sellerId"`
	CreatedAt   time.Time       `json:"createdAt"`
	UpdatedAt   time.Time       `json:"updatedAt"`
}

// ProductQuery describes a catalog search.  Zero values mean "no filter".
type ProductQuery struct {
	Name     string
	Category string
	MinPrice *decimal.Decimal
	MaxPrice *decimal.Decimal
	SortBy   string // createdAt | salePrice | name
	Order    string // asc | desc
	Page     int
	Limit    int
}

// ProductPage is one page of search results.
type ProductPage struct {
	Products   []Product `json:"products"`
	TotalCount int       `json:"totalCount"`
	TotalPages int       `json:"totalPages"`
	Page       int       `json:"page"`
}

// Values renders the query in its canonical URL form.  Two queries with the
// same filters produce the same encoding.
func (q ProductQuery) Values() url.Values {
	v := url.Values{}
	set := func(k, val string) {
		if val != "" {
			v.Set(k, val)
		}
	}
	set("name", q.Name)
	set("category", q.Category)
	if q.MinPrice != nil {
		set("minPrice", q.MinPrice.String())
	}
	if q.MaxPrice != nil {
		set("maxPrice", q.MaxPrice.String())
	}
	set("sortBy", q.SortBy)
	set("order", q.Order)
	v.Set("page", strconv.Itoa(q.Page))
	v.Set("limit", strconv.Itoa(q.Limit))
	return v
}
