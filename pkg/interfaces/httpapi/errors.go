package httpapi

import (
	"errors"
	"net/http"
	"reflect"

	"github.com/go-playground/validator/v10"
	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"

	"github.com/vsinha/agrostock/pkg/domain/entities"
)

var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New()
	// decimal.Decimal is a struct; expose it as a number so gt/min tags work
	v.RegisterCustomTypeFunc(func(field reflect.Value) interface{} {
		if d, ok := field.Interface().(decimal.Decimal); ok {
			f, _ := d.Float64()
			return f
		}
		return nil
	}, decimal.Decimal{})
	return v
}

// bindAndValidate binds the request and runs the validator tags
func bindAndValidate(c echo.Context, req interface{}) error {
	if err := c.Bind(req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid request body")
	}
	return validate.Struct(req)
}

// errorBody is the JSON shape of every error response
type errorBody struct {
	Error     string            `json:"error"`
	Kind      string            `json:"kind,omitempty"`
	Fields    map[string]string `json:"fields,omitempty"`
	Requested string            `json:"requested,omitempty"`
	Available string            `json:"available,omitempty"`
	Unit      string            `json:"unit,omitempty"`
}

// statusFor maps an error to its HTTP status and body
func statusFor(err error) (int, errorBody) {
	var (
		httpErr  *echo.HTTPError
		invalid  validator.ValidationErrors
		shortage *entities.InsufficientStockError
	)
	switch {
	case errors.As(err, &httpErr):
		msg, ok := httpErr.Message.(string)
		if !ok {
			msg = http.StatusText(httpErr.Code)
		}
		return httpErr.Code, errorBody{Error: msg}
	case errors.As(err, &invalid):
		fields := make(map[string]string, len(invalid))
		for _, fe := range invalid {
			fields[fe.Field()] = fe.Tag()
		}
		return http.StatusBadRequest, errorBody{Error: "validation failed", Kind: "validation", Fields: fields}
	case errors.Is(err, entities.ErrValidation):
		return http.StatusBadRequest, errorBody{Error: err.Error(), Kind: "validation"}
	case errors.Is(err, entities.ErrNotFound):
		return http.StatusNotFound, errorBody{Error: err.Error(), Kind: "not_found"}
	case errors.As(err, &shortage):
		return http.StatusConflict, errorBody{
			Error:     err.Error(),
			Kind:      "insufficient_stock",
			Requested: shortage.Requested.String(),
			Available: shortage.Available.String(),
			Unit:      shortage.Unit.String(),
		}
	case errors.Is(err, entities.ErrConflict):
		return http.StatusConflict, errorBody{Error: err.Error(), Kind: "conflict"}
	case errors.Is(err, entities.ErrInUse):
		return http.StatusConflict, errorBody{Error: err.Error(), Kind: "in_use"}
	default:
		return http.StatusInternalServerError, errorBody{Error: "internal error"}
	}
}

func errorHandler(log zerolog.Logger) echo.HTTPErrorHandler {
	return func(err error, c echo.Context) {
		if c.Response().Committed {
			return
		}
		status, body := statusFor(err)
		if status >= http.StatusInternalServerError {
			log.Error().Err(err).Str("path", c.Path()).Msg("request failed")
		}
		if c.Request().Method == http.MethodHead {
			err = c.NoContent(status)
		} else {
			err = c.JSON(status, body)
		}
		if err != nil {
			log.Error().Err(err).Msg("failed to write error response")
		}
	}
}
