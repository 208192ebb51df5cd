package echoapi

import (
	"github.com/go-playground/validator/v10"
	"github.com/labstack/echo/v4"

	"github.com/mathvision/mdm/core/classroom"
)

type classApi struct {
	svc      *classroom.Service
	validate *validator.Validate
}

func registerClassAPI(app *echo.Echo, auth echo.MiddlewareFunc, deps ServerDeps) {
	api := classApi{svc: deps.ClassSvc, validate: deps.Validate}

	cg := app.Group("/class", auth, teacherMiddleware)
	cg.POST("/create", api.create)
	cg.POST("/info/update", api.update)
	cg.POST("/delete", api.destroy)
	cg.POST("/student/add", api.addStudent)
	cg.POST("/remove_student", api.removeStudent)
	cg.POST("/info/:id", api.info)
	cg.POST("/students/:id", api.students)
}

// Handlers

func (api *classApi) create(ctx echo.Context) error {
	claims, err := getContextClaims(ctx)
	if err != nil {
		return err
	}
	var data classroom.NewClass
	if err = bindAndValidate(ctx, api.validate, &data); err != nil {
		return err
	}

	cls, err := api.svc.Create(ctx.Request().Context(), claims.UserID(), data)
	if err != nil {
		return err
	}
	return respond(ctx, "class created successfully", map[string]int{"class_id": cls.ID})
}

func (api *classApi) update(ctx echo.Context) error {
	claims, err := getContextClaims(ctx)
	if err != nil {
		return err
	}
	var data classroom.UpdateClass
	if err = bindAndValidate(ctx, api.validate, &data); err != nil {
		return err
	}

	if _, err = api.svc.Update(ctx.Request().Context(), claims.UserID(), data); err != nil {
		return err
	}
	return respond(ctx, "class updated successfully")
}

func (api *classApi) destroy(ctx echo.Context) error {
	claims, err := getContextClaims(ctx)
	if err != nil {
		return err
	}
	var data classRequest
	if err = bindAndValidate(ctx, api.validate, &data); err != nil {
		return err
	}

	if err = api.svc.Delete(ctx.Request().Context(), claims.UserID(), data.ClassID); err != nil {
		return err
	}
	return respond(ctx, "class deleted successfully")
}

func (api *classApi) addStudent(ctx echo.Context) error {
	claims, err := getContextClaims(ctx)
	if err != nil {
		return err
	}
	var data addStudentRequest
	if err = bindAndValidate(ctx, api.validate, &data); err != nil {
		return err
	}

	if err = api.svc.AddStudent(ctx.Request().Context(), claims.UserID(), data.ClassID, data.StudentID); err != nil {
		return err
	}
	return respond(ctx, "student added to class successfully")
}

func (api *classApi) removeStudent(ctx echo.Context) error {
	claims, err := getContextClaims(ctx)
	if err != nil {
		return err
	}
	var data removeStudentRequest
	if err = bindAndValidate(ctx, api.validate, &data); err != nil {
		return err
	}

	if err = api.svc.RemoveStudent(ctx.Request().Context(), claims.UserID(), data.ClassID, data.StudentID); err != nil {
		return err
	}
	return respond(ctx, "student removed successfully")
}

func (api *classApi) info(ctx echo.Context) error {
	claims, err := getContextClaims(ctx)
	if err != nil {
		return err
	}
	id, err := paramID(ctx, "id")
	if err != nil {
		return err
	}

	info, err := api.svc.Info(ctx.Request().Context(), claims.UserID(), id)
	if err != nil {
		return err
	}
	return respond(ctx, "success", newClassInfo(info))
}

func (api *classApi) students(ctx echo.Context) error {
	claims, err := getContextClaims(ctx)
	if err != nil {
		return err
	}
	id, err := paramID(ctx, "id")
	if err != nil {
		return err
	}

	members, err := api.svc.Students(ctx.Request().Context(), claims.UserID(), id)
	if err != nil {
		return err
	}
	return respond(ctx, "success", members)
}
