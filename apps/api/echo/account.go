package echoapi

import (
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"
	"github.com/samber/lo"

	"github.com/mathvision/mdm/core/account"
	"github.com/mathvision/mdm/core/classroom"
	"github.com/mathvision/mdm/core/template"
)

type accountApi struct {
	svc             *account.Service
	classSvc        *classroom.Service
	templateSvc     *template.Service
	secret          string
	sessionLifetime time.Duration
	validate        *validator.Validate
}

func registerAccountAPI(app *echo.Echo, auth echo.MiddlewareFunc, deps ServerDeps) {
	api := accountApi{
		svc:             deps.AccountSvc,
		classSvc:        deps.ClassSvc,
		templateSvc:     deps.TemplateSvc,
		secret:          deps.Conf.SecretKey,
		sessionLifetime: deps.Conf.Server.SessionLifetime,
		validate:        deps.Validate,
	}

	// un-authed endpoints
	app.POST("/student/login", api.loginStudent)
	app.POST("/teacher/login", api.loginTeacher)
	app.POST("/user/register", api.register)

	// authed endpoints
	app.DELETE("/user/logout", api.logout, auth)

	tg := app.Group("", auth, teacherMiddleware)
	tg.POST("/api/teacher/info", api.teacherInfo)
	tg.POST("/api/teacher/update", api.updateTeacher)
	tg.POST("/teacher/classes", api.teacherClasses)
	tg.POST("/api/teacher/templates", api.teacherTemplates)
}

// Handlers

func (api *accountApi) loginStudent(ctx echo.Context) error {
	var data account.Credentials
	if err := bindAndValidate(ctx, api.validate, &data); err != nil {
		return err
	}

	c := ctx.Request().Context()
	s, err := api.svc.AuthenticateStudent(c, data)
	if err != nil {
		return err
	}
	token, err := GenerateToken(api.secret, NewStudentClaims(s, api.sessionLifetime))
	if err != nil {
		return errors.Wrap(err, "generating token")
	}
	classes, err := api.classSvc.StudentClasses(c, s.ID)
	if err != nil {
		return errors.Wrap(err, "listing student classes")
	}

	return respond(ctx, "login successfully", studentLoginResponse{
		Token:       token,
		StudentID:   s.ID,
		StudentName: s.Name,
		Classes: lo.Map(classes, func(cls classroom.Class, _ int) classSummary {
			return classSummary{ID: cls.ID, Name: cls.Name, StudentNum: cls.StudentNum}
		}),
	})
}

func (api *accountApi) loginTeacher(ctx echo.Context) error {
	var data account.Credentials
	if err := bindAndValidate(ctx, api.validate, &data); err != nil {
		return err
	}

	t, err := api.svc.AuthenticateTeacher(ctx.Request().Context(), data)
	if err != nil {
		return err
	}
	token, err := GenerateToken(api.secret, NewTeacherClaims(t, api.sessionLifetime))
	if err != nil {
		return errors.Wrap(err, "generating token")
	}

	return respond(ctx, "login successfully", teacherLoginResponse{Token: token, ID: t.ID, Name: t.Name})
}

func (api *accountApi) register(ctx echo.Context) error {
	var data account.NewUser
	if err := bindAndValidate(ctx, api.validate, &data); err != nil {
		return err
	}

	id, err := api.svc.Register(ctx.Request().Context(), data)
	if err != nil {
		return err
	}
	return respond(ctx, "user registered successfully", map[string]int{"id": id})
}

func (api *accountApi) logout(ctx echo.Context) error {
	claims, err := getContextClaims(ctx)
	if err != nil {
		return err
	}

	var expiresAt time.Time
	if claims.ExpiresAt != nil {
		expiresAt = claims.ExpiresAt.Time
	}
	if err = api.svc.Revoke(ctx.Request().Context(), claims.ID, expiresAt); err != nil {
		return errors.Wrap(err, "revoking token")
	}
	return respond(ctx, "logout successfully")
}

func (api *accountApi) teacherInfo(ctx echo.Context) error {
	claims, err := getContextClaims(ctx)
	if err != nil {
		return err
	}

	t, err := api.svc.GetTeacher(ctx.Request().Context(), claims.UserID())
	if err != nil {
		return err
	}
	return respond(ctx, "success", teacherInfo{
		Name:      t.Name,
		TeacherID: t.ID,
		Email:     t.Email,
		Birth:     t.Birth,
		Gender:    t.Gender,
		Phone:     t.Phone,
	})
}

func (api *accountApi) updateTeacher(ctx echo.Context) error {
	claims, err := getContextClaims(ctx)
	if err != nil {
		return err
	}
	var data account.UpdateTeacher
	if err = bindAndValidate(ctx, api.validate, &data); err != nil {
		return err
	}

	if _, err = api.svc.UpdateTeacher(ctx.Request().Context(), claims.UserID(), data); err != nil {
		return err
	}
	return respond(ctx, "Profile updated successfully")
}

func (api *accountApi) teacherClasses(ctx echo.Context) error {
	claims, err := getContextClaims(ctx)
	if err != nil {
		return err
	}

	classes, err := api.classSvc.TeacherClasses(ctx.Request().Context(), claims.UserID())
	if err != nil {
		return err
	}
	return respond(ctx, "success", classes)
}

func (api *accountApi) teacherTemplates(ctx echo.Context) error {
	claims, err := getContextClaims(ctx)
	if err != nil {
		return err
	}

	summaries, err := api.templateSvc.ListForTeacher(ctx.Request().Context(), claims.UserID())
	if err != nil {
		return err
	}
	return respond(ctx, "success", summaries)
}
