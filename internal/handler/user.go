package handler

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/faizvk/ecommerce-app/internal/model"
	"github.com/faizvk/ecommerce-app/internal/service"
)

// UserHandler serves profile and admin user-management endpoints.
type UserHandler struct {
	Identity *service.IdentityService
}

func NewUserHandler(id *service.IdentityService) *UserHandler { return &UserHandler{Identity: id} }

type updateProfileReq struct {
	Name    *string `json:"name" validate:"omitempty,min=1,max=100"`
	Age     *int    `json:"age" validate:"omitempty,gt=0"`
	Address *string `json:"address" validate:"omitempty,max=255"`
	Contact *string `json:"contact" validate:"omitempty,max=32"`
}

type updateRoleReq struct {
	Role string `json:"role" validate:"required,oneof=user admin"`
}

// Me returns the authenticated user's profile.
func (h *UserHandler) Me(c echo.Context) error {
	uid, err := currentUser(c)
	if err != nil {
		return err
	}
	u, err := h.Identity.Profile(c.Request().Context(), uid)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, echo.Map{
		"success":           true,
		"user":              u,
		"isProfileComplete": u.ProfileComplete(),
	})
}

// UpdateMe edits the authenticated user's profile fields.
func (h *UserHandler) UpdateMe(c echo.Context) error {
	uid, err := currentUser(c)
	if err != nil {
		return err
	}
	var req updateProfileReq
	if err := bind(c, &req); err != nil {
		return err
	}
	u, err := h.Identity.UpdateProfile(c.Request().Context(), uid, model.Profile{
		Name:    req.Name,
		Age:     req.Age,
		Address: req.Address,
		Contact: req.Contact,
	})
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, echo.Map{
		"success":           true,
		"message":           "Profile updated successfully",
		"user":              u,
		"isProfileComplete": u.ProfileComplete(),
	})
}

// List returns every user.  Admin only.
func (h *UserHandler) List(c echo.Context) error {
	users, err := h.Identity.ListUsers(c.Request().Context())
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, echo.Map{"success": true, "users": users})
}

// UpdateRole changes the role of the user in the path.  Admin only.
func (h *UserHandler) UpdateRole(c echo.Context) error {
	var req updateRoleReq
	if err := bind(c, &req); err != nil {
		return err
	}
	u, err := h.Identity.UpdateRole(c.Request().Context(), c.Param("id"), req.Role)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, echo.Map{"success": true, "user": u})
}
