package echoapi

import (
	"github.com/go-playground/validator/v10"
	"github.com/labstack/echo/v4"

	"github.com/mathvision/mdm/core/template"
)

type templateApi struct {
	svc      *template.Service
	validate *validator.Validate
}

func registerTemplateAPI(app *echo.Echo, auth echo.MiddlewareFunc, deps ServerDeps) {
	api := templateApi{svc: deps.TemplateSvc, validate: deps.Validate}

	tg := app.Group("/api/template", auth)
	tg.POST("/create", api.create, teacherMiddleware)
	tg.POST("/delete", api.destroy, teacherMiddleware)
	tg.POST("/detail", api.detail, teacherMiddleware)
	tg.POST("/student/answers", api.studentAnswers, teacherMiddleware)
	tg.POST("/score", api.grade, teacherMiddleware)
	tg.POST("/submit", api.submit, studentMiddleware)
}

// Handlers

func (api *templateApi) create(ctx echo.Context) error {
	claims, err := getContextClaims(ctx)
	if err != nil {
		return err
	}
	var data template.NewTemplate
	if err = bindAndValidate(ctx, api.validate, &data); err != nil {
		return err
	}

	id, err := api.svc.Create(ctx.Request().Context(), claims.UserID(), data)
	if err != nil {
		return err
	}
	return respond(ctx, "Template created successfully", map[string]int{"template_id": id})
}

func (api *templateApi) destroy(ctx echo.Context) error {
	claims, err := getContextClaims(ctx)
	if err != nil {
		return err
	}
	var data templateRequest
	if err = bindAndValidate(ctx, api.validate, &data); err != nil {
		return err
	}

	if err = api.svc.Delete(ctx.Request().Context(), claims.UserID(), data.TemplateID); err != nil {
		return err
	}
	return respond(ctx, "Template deleted successfully")
}

func (api *templateApi) detail(ctx echo.Context) error {
	claims, err := getContextClaims(ctx)
	if err != nil {
		return err
	}
	var data templateRequest
	if err = bindAndValidate(ctx, api.validate, &data); err != nil {
		return err
	}

	detail, err := api.svc.Detail(ctx.Request().Context(), claims.UserID(), data.TemplateID)
	if err != nil {
		return err
	}
	return respond(ctx, "Template details retrieved successfully", detail)
}

func (api *templateApi) studentAnswers(ctx echo.Context) error {
	claims, err := getContextClaims(ctx)
	if err != nil {
		return err
	}
	var data studentAnswersRequest
	if err = bindAndValidate(ctx, api.validate, &data); err != nil {
		return err
	}

	answers, err := api.svc.StudentAnswers(ctx.Request().Context(), claims.UserID(), data.TemplateID, data.StudentID)
	if err != nil {
		return err
	}
	return respond(ctx, "Student answers retrieved successfully", answers)
}

func (api *templateApi) grade(ctx echo.Context) error {
	claims, err := getContextClaims(ctx)
	if err != nil {
		return err
	}
	var data template.Grade
	if err = bindAndValidate(ctx, api.validate, &data); err != nil {
		return err
	}

	if err = api.svc.Grade(ctx.Request().Context(), claims.UserID(), data); err != nil {
		return err
	}
	return respond(ctx, "score updated successfully")
}

func (api *templateApi) submit(ctx echo.Context) error {
	claims, err := getContextClaims(ctx)
	if err != nil {
		return err
	}
	var data template.Submission
	if err = bindAndValidate(ctx, api.validate, &data); err != nil {
		return err
	}

	if err = api.svc.Submit(ctx.Request().Context(), claims.UserID(), data); err != nil {
		return err
	}
	return respond(ctx, "template submitted successfully")
}
