package echoapi

import (
	"net/http"

	ut "github.com/go-playground/universal-translator"
	"github.com/go-playground/validator/v10"
	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/mathvision/mdm/core"
)

var (
	errUnauthorized    = echo.NewHTTPError(http.StatusUnauthorized, "Please login first")
	errTeacherRequired = echo.NewHTTPError(http.StatusForbidden, "Teacher permission required")
	errStudentRequired = echo.NewHTTPError(http.StatusForbidden, "Student permission required")
	errMissingParams   = echo.NewHTTPError(http.StatusBadRequest, "missing parameters")
	errInvalidID       = echo.NewHTTPError(http.StatusBadRequest, "invalid id")
)

// newAppHTTPErrorHandler returns a custom echo.HTTPErrorHandler that knows how to handle our errors.
// Every error is rendered as a Response whose code matches the HTTP status.
// signalShutdown is called in order to gracefully shutdown the Server whenever a core.shutdown error is caught.
func newAppHTTPErrorHandler(logger core.Logger, translator ut.Translator, signalShutdown func()) echo.HTTPErrorHandler {
	return func(err error, ctx echo.Context) {
		var code int
		var message string
		var data interface{}

		switch origErr := errors.Cause(err).(type) {
		case *echo.HTTPError:
			if origErr.Internal != nil {
				if herr, ok := origErr.Internal.(*echo.HTTPError); ok {
					origErr = herr
				}
			}
			code = origErr.Code
			if m, ok := origErr.Message.(string); ok {
				message = m
			} else {
				message = http.StatusText(code)
			}
		case validator.ValidationErrors:
			fldErrs := make(map[string]string, len(origErr))
			for _, vErr := range origErr {
				fldErrs[vErr.Field()] = vErr.Translate(translator)
			}
			code = http.StatusBadRequest
			message = "missing parameters"
			data = fldErrs
		case *core.ValidationError:
			code = http.StatusBadRequest
			message = origErr.Error()
			if origErr.Fields != nil {
				fldErrs := make(map[string]string, len(origErr.Fields))
				for _, fErr := range origErr.Fields {
					fldErrs[fErr.Field] = fErr.Error
				}
				data = fldErrs
			}
			if message == "" {
				message = "invalid parameters"
			}
		case *core.NotFoundError:
			code = http.StatusNotFound
			message = origErr.Error()
		case *core.PermissionError:
			code = http.StatusForbidden
			message = origErr.Error()
		default: // any other error is a server error
			code = http.StatusInternalServerError
			message = "error"

			var actor core.Actor
			if claims, cErr := getContextClaims(ctx); cErr == nil {
				actor = claims.Actor()
			}
			logger.Error(http.StatusText(code), errors.Wrap(err, ctx.Request().Method+" "+ctx.Path()), actor)

			// shutting down...
			if core.IsShutdown(err) {
				signalShutdown()
			}
		}

		if ctx.Echo().Debug && code == http.StatusInternalServerError {
			message = err.Error()
		}

		// Send response
		if !ctx.Response().Committed {
			if ctx.Request().Method == http.MethodHead {
				err = ctx.NoContent(code)
			} else {
				err = ctx.JSON(code, Response{Code: code, Message: message, Data: data})
			}
			if err != nil {
				ctx.Echo().Logger.Error(err)
			}
		}
	}
}
