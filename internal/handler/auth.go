package handler

import (
	"net/http"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/faizvk/ecommerce-app/internal/apperrors"
	"github.com/faizvk/ecommerce-app/internal/middleware"
	"github.com/faizvk/ecommerce-app/internal/model"
	"github.com/faizvk/ecommerce-app/internal/service"
	"github.com/faizvk/ecommerce-app/internal/utils"
)

// RefreshCookie is the name of the cookie carrying the refresh token.
const RefreshCookie = "refreshToken"

// CookieOptions controls the refresh cookie attributes.
type CookieOptions struct {
	Secure   bool
	SameSite http.SameSite
}

// AuthHandler serves signup, login and session endpoints.
type AuthHandler struct {
	Identity *service.IdentityService
	Cookie   CookieOptions
}

func NewAuthHandler(id *service.IdentityService, cookie CookieOptions) *AuthHandler {
	return &AuthHandler{Identity: id, Cookie: cookie}
}

// ----- DTOs -----

type signupReq struct {
	Email    string  `json:"email" validate:"required,email"`
	Password string  `json:"password" validate:"required,strongpassword"`
	Name     string  `json:"name" validate:"omitempty,max=100"`
	Age      *int    `json:"age" validate:"omitempty,gt=0"`
	Address  *string `json:"address" validate:"omitempty,max=255"`
	Contact  *string `json:"contact" validate:"omitempty,max=32"`
}

type loginReq struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required"`
}

type googleReq struct {
	Credential string `json:"credential" validate:"required"`
}

type changePasswordReq struct {
	OldPassword string `json:"oldPassword" validate:"required"`
	NewPassword string `json:"newPassword" validate:"required,strongpassword"`
}

type setPasswordReq struct {
	NewPassword string `json:"newPassword" validate:"required,strongpassword"`
}

type sessionResp struct {
	Success     bool        `json:"success"`
	Message     string      `json:"message,omitempty"`
	AccessToken string      `json:"accessToken"`
	User        *model.User `json:"user,omitempty"`
}

type messageResp struct {
	Success bool   `json:"success"`
	Message string `json:"message"`
}

func (h *AuthHandler) setRefreshCookie(c echo.Context, tok *utils.Token) {
	if tok == nil {
		return
	}
	c.SetCookie(&http.Cookie{
		Name:     RefreshCookie,
		Value:    tok.Raw,
		Path:     "/",
		HttpOnly: true,
		Secure:   h.Cookie.Secure,
		SameSite: h.Cookie.SameSite,
		MaxAge:   int(h.Identity.RefreshTTL() / time.Second),
		Expires:  tok.Exp,
	})
}

func (h *AuthHandler) clearRefreshCookie(c echo.Context) {
	c.SetCookie(&http.Cookie{
		Name:     RefreshCookie,
		Value:    "",
		Path:     "/",
		HttpOnly: true,
		Secure:   h.Cookie.Secure,
		SameSite: h.Cookie.SameSite,
		MaxAge:   -1,
		Expires:  time.Unix(0, 0),
	})
}

func currentUser(c echo.Context) (string, error) {
	uid := middleware.UserID(c)
	if uid == "" {
		return "", apperrors.NewUnauthorized("authentication required")
	}
	return uid, nil
}

// Signup creates a local account.  No token is issued.
func (h *AuthHandler) Signup(c echo.Context) error {
	var req signupReq
	if err := bind(c, &req); err != nil {
		return err
	}
	u, err := h.Identity.Signup(c.Request().Context(), service.SignupInput{
		Email:    req.Email,
		Password: req.Password,
		Name:     req.Name,
		Profile:  model.Profile{Age: req.Age, Address: req.Address, Contact: req.Contact},
	})
	if err != nil {
		return err
	}
	return c.JSON(http.StatusCreated, echo.Map{
		"success": true,
		"message": "User created successfully",
		"user":    u,
	})
}

// Login verifies credentials, sets the refresh cookie and returns the
// access token.
func (h *AuthHandler) Login(c echo.Context) error {
	var req loginReq
	if err := bind(c, &req); err != nil {
		return err
	}
	sess, err := h.Identity.Login(c.Request().Context(), req.Email, req.Password)
	if err != nil {
		return err
	}
	h.setRefreshCookie(c, sess.Refresh)
	return c.JSON(http.StatusOK, sessionResp{
		Success:     true,
		Message:     "Login successful",
		AccessToken: sess.Access.Raw,
		User:        sess.User,
	})
}

// Google exchanges a Google ID token credential for a session.
func (h *AuthHandler) Google(c echo.Context) error {
	var req googleReq
	if err := bind(c, &req); err != nil {
		return err
	}
	sess, err := h.Identity.GoogleLogin(c.Request().Context(), req.Credential)
	if err != nil {
		return err
	}
	h.setRefreshCookie(c, sess.Refresh)
	return c.JSON(http.StatusOK, sessionResp{
		Success:     true,
		Message:     "Login successful",
		AccessToken: sess.Access.Raw,
		User:        sess.User,
	})
}

// Refresh issues a new access token from the refresh cookie.  The cookie is
// replaced only when refresh tokens rotate.
func (h *AuthHandler) Refresh(c echo.Context) error {
	var raw string
	if ck, err := c.Cookie(RefreshCookie); err == nil {
		raw = ck.Value
	}
	sess, err := h.Identity.Refresh(c.Request().Context(), raw)
	if err != nil {
		if apperrors.Is(err, apperrors.Unauthorized) && raw != "" {
			h.clearRefreshCookie(c)
		}
		return err
	}
	h.setRefreshCookie(c, sess.Refresh)
	return c.JSON(http.StatusOK, sessionResp{Success: true, AccessToken: sess.Access.Raw})
}

// Logout clears the refresh cookie.  It always succeeds.
func (h *AuthHandler) Logout(c echo.Context) error {
	if ck, err := c.Cookie(RefreshCookie); err == nil {
		h.Identity.Logout(c.Request().Context(), ck.Value)
	}
	h.clearRefreshCookie(c)
	return c.JSON(http.StatusOK, messageResp{Success: true, Message: "Logged out successfully"})
}

// UpdatePassword changes the password of the authenticated user.
func (h *AuthHandler) UpdatePassword(c echo.Context) error {
	uid, err := currentUser(c)
	if err != nil {
		return err
	}
	var req changePasswordReq
	if err := bind(c, &req); err != nil {
		return err
	}
	if err := h.Identity.ChangePassword(c.Request().Context(), uid, req.OldPassword, req.NewPassword); err != nil {
		return err
	}
	return c.JSON(http.StatusOK, messageResp{Success: true, Message: "Password updated successfully"})
}

// SetPassword lets a Google-only account add a local password.
func (h *AuthHandler) SetPassword(c echo.Context) error {
	uid, err := currentUser(c)
	if err != nil {
		return err
	}
	var req setPasswordReq
	if err := bind(c, &req); err != nil {
		return err
	}
	if err := h.Identity.SetPassword(c.Request().Context(), uid, req.NewPassword); err != nil {
		return err
	}
	return c.JSON(http.StatusOK, messageResp{Success: true, Message: "Password set successfully"})
}
