package echoapi

import (
	"github.com/go-playground/validator/v10"
	"github.com/labstack/echo/v4"

	"github.com/mathvision/mdm/core/device"
)

type deviceApi struct {
	svc      *device.Service
	validate *validator.Validate
}

func registerDeviceAPI(app *echo.Echo, auth echo.MiddlewareFunc, deps ServerDeps) {
	api := deviceApi{svc: deps.DeviceSvc, validate: deps.Validate}

	vg := app.Group("/vp", auth, teacherMiddleware)
	vg.POST("/info", api.list)
	vg.POST("/add", api.create)
	vg.POST("/delete", api.destroy)
	vg.POST("/assign", api.assign)
	vg.POST("/release", api.release)
}

// Handlers

func (api *deviceApi) list(ctx echo.Context) error {
	claims, err := getContextClaims(ctx)
	if err != nil {
		return err
	}

	listings, err := api.svc.List(ctx.Request().Context(), claims.UserID())
	if err != nil {
		return err
	}
	return respond(ctx, "success", listings)
}

func (api *deviceApi) create(ctx echo.Context) error {
	claims, err := getContextClaims(ctx)
	if err != nil {
		return err
	}
	var data device.NewVisionPro
	if err = bindAndValidate(ctx, api.validate, &data); err != nil {
		return err
	}

	if err = api.svc.Add(ctx.Request().Context(), claims.UserID(), data); err != nil {
		return err
	}
	return respond(ctx, "Vision Pro added successfully")
}

func (api *deviceApi) destroy(ctx echo.Context) error {
	claims, err := getContextClaims(ctx)
	if err != nil {
		return err
	}
	var data deviceRequest
	if err = bindAndValidate(ctx, api.validate, &data); err != nil {
		return err
	}

	if err = api.svc.Delete(ctx.Request().Context(), claims.UserID(), data.ID); err != nil {
		return err
	}
	return respond(ctx, "Vision Pro deleted successfully")
}

func (api *deviceApi) assign(ctx echo.Context) error {
	claims, err := getContextClaims(ctx)
	if err != nil {
		return err
	}
	var data device.Assignment
	if err = bindAndValidate(ctx, api.validate, &data); err != nil {
		return err
	}

	if err = api.svc.Assign(ctx.Request().Context(), claims.UserID(), data); err != nil {
		return err
	}
	return respond(ctx, "Vision Pro assigned successfully")
}

func (api *deviceApi) release(ctx echo.Context) error {
	claims, err := getContextClaims(ctx)
	if err != nil {
		return err
	}
	var data deviceRequest
	if err = bindAndValidate(ctx, api.validate, &data); err != nil {
		return err
	}

	if err = api.svc.Release(ctx.Request().Context(), claims.UserID(), data.ID); err != nil {
		return err
	}
	return respond(ctx, "Vision Pro released successfully")
}
