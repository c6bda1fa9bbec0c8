package handler

import (
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"reflect"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/labstack/echo/v4"

	"github.com/faizvk/ecommerce-app/internal/apperrors"
	"github.com/faizvk/ecommerce-app/internal/middleware"
	"github.com/faizvk/ecommerce-app/internal/utils"
)

// errorBody is the wire shape of every failed response.
type errorBody struct {
	Success bool   `json:"success"`
	Message string `json:"message"`
	Code    string `json:"code,omitempty"`
}

// ErrorHandler renders apperrors kinds and echo errors as errorBody.
// Internal failures are logged with their cause; the client only sees a
// generic message.
func ErrorHandler(err error, c echo.Context) {
	if c.Response().Committed {
		return
	}
	var (
		status int
		body   = errorBody{Success: false}
		he     *echo.HTTPError
	)
	if errors.As(err, &he) {
		status = he.Code
		body.Message = strings.ToLower(fmt.Sprint(he.Message))
		if status >= http.StatusInternalServerError {
			body.Message = "internal server error"
		}
	} else {
		kind := apperrors.KindOf(err)
		status = apperrors.HTTPStatus(kind)
		body.Message = apperrors.PublicMessage(err)
		body.Code = apperrors.Code(kind)
	}
	if status >= http.StatusInternalServerError {
		middleware.LoggerFrom(c).Error("request failed", slog.String("error", err.Error()))
	}

	if c.Request().Method == http.MethodHead {
		err = c.NoContent(status)
	} else {
		err = c.JSON(status, body)
	}
	if err != nil {
		middleware.LoggerFrom(c).Error("write error response", slog.String("error", err.Error()))
	}
}

// Validator adapts validator/v10 to echo.  Field names in messages use the
// json tag.
type Validator struct {
	v *validator.Validate
}

// NewValidator returns a Validator with the strongpassword rule installed.
func NewValidator() (*Validator, error) {
	v := validator.New(validator.WithRequiredStructEnabled())
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		name, _, _ := strings.Cut(f.Tag.Get("json"), ",")
		if name == "-" {
			return ""
		}
		return name
	})
	if err := utils.RegisterPasswordRule(v); err != nil {
		return nil, err
	}
	return &Validator{v: v}, nil
}

func (cv *Validator) Validate(i any) error {
	err := cv.v.Struct(i)
	if err == nil {
		return nil
	}
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) || len(verrs) == 0 {
		return apperrors.Wrap(apperrors.InvalidInput, "invalid request", err)
	}
	return apperrors.Wrap(apperrors.InvalidInput, fieldMessage(verrs[0]), err)
}

func fieldMessage(fe validator.FieldError) string {
	field := fe.Field()
	switch fe.Tag() {
	case "required":
		return field + " is required"
	case "email":
		return "invalid email address"
	case "strongpassword":
		return fmt.Sprintf("%s must be %d-%d characters and include upper, lower, number and symbol",
			field, utils.PasswordMinLen, utils.PasswordMaxLen)
	case "oneof":
		return fmt.Sprintf("%s must be one of: %s", field, fe.Param())
	case "gt":
		return fmt.Sprintf("%s must be greater than %s", field, fe.Param())
	case "gte", "min":
		return fmt.Sprintf("%s must be at least %s", field, fe.Param())
	case "max", "lte":
		return fmt.Sprintf("%s must be at most %s", field, fe.Param())
	default:
		return "invalid " + field
	}
}

// bind decodes the body into dst and validates it.
func bind(c echo.Context, dst any) error {
	if err := c.Bind(dst); err != nil {
		return apperrors.Wrap(apperrors.InvalidInput, "invalid request body", err)
	}
	return c.Validate(dst)
}
