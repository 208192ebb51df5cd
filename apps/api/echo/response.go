package echoapi

import (
	"net/http"
	"strconv"

	"github.com/go-playground/validator/v10"
	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"
)

// Response is the envelope of every JSON response. Code mirrors the HTTP status.
type Response struct {
	Code    int         `json:"code"`
	Message string      `json:"message"`
	Data    interface{} `json:"data,omitempty"`
}

func respond(ctx echo.Context, message string, data ...interface{}) error {
	res := Response{Code: http.StatusOK, Message: message}
	if len(data) > 0 {
		res.Data = data[0]
	}
	return ctx.JSON(http.StatusOK, res)
}

// validatable is implemented by every request model.
type validatable interface {
	Validate(validate *validator.Validate) error
}

// bindAndValidate decodes the JSON body into data and validates it.
// An undecodable body is reported as missing parameters.
func bindAndValidate(ctx echo.Context, validate *validator.Validate, data validatable) error {
	if err := ctx.Bind(data); err != nil {
		return errors.Wrap(errMissingParams, err.Error())
	}
	return data.Validate(validate)
}

func paramID(ctx echo.Context, name string) (int, error) {
	id, err := strconv.Atoi(ctx.Param(name))
	if err != nil || id <= 0 {
		return 0, errInvalidID
	}
	return id, nil
}
