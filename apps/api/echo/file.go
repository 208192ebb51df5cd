package echoapi

import (
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"strconv"

	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/mathvision/mdm/core"
	"github.com/mathvision/mdm/core/template"
)

type fileApi struct {
	svc *template.Service
}

func registerFileAPI(app *echo.Echo, auth echo.MiddlewareFunc, deps ServerDeps) {
	api := fileApi{svc: deps.TemplateSvc}

	fg := app.Group("/api/template", auth)
	fg.POST("/:id/file/upload", api.upload)
	fg.GET("/:id/files", api.list)
	fg.GET("/file/question/:id", api.downloadQuestion)
	fg.GET("/file/answer/:id", api.downloadAnswer)
	fg.DELETE("/file/question/:id", api.destroyQuestion, teacherMiddleware)
	fg.DELETE("/file/answer/:id", api.destroyAnswer, teacherMiddleware)
}

// formFile opens the multipart file sent as name. It returns nil when the field is absent or empty.
func formFile(ctx echo.Context, name string) (*multipart.FileHeader, error) {
	fh, err := ctx.FormFile(name)
	if err != nil {
		if errors.Is(err, http.ErrMissingFile) {
			return nil, nil
		}
		return nil, errors.Wrap(errMissingParams, err.Error())
	}
	if fh.Filename == "" {
		return nil, nil
	}
	return fh, nil
}

// formInt reads an optional integer form value.
func formInt(ctx echo.Context, name string) (int, error) {
	v := ctx.FormValue(name)
	if v == "" {
		return 0, nil
	}
	n, err := strconv.Atoi(v)
	if err != nil || n < 0 {
		return 0, core.NewValidationError(errors.New("invalid "+name), core.FieldError{Field: name, Error: "must be a positive integer"})
	}
	return n, nil
}

// Handlers

func (api *fileApi) upload(ctx echo.Context) error {
	claims, err := getContextClaims(ctx)
	if err != nil {
		return err
	}
	templateID, err := paramID(ctx, "id")
	if err != nil {
		return err
	}

	var req template.UploadRequest
	if req.QuestionID, err = formInt(ctx, "question_id"); err != nil {
		return err
	}
	if req.StudentID, err = formInt(ctx, "student_id"); err != nil {
		return err
	}

	for _, field := range []string{"question_file", "answer_file"} {
		fh, err := formFile(ctx, field)
		if err != nil {
			return err
		}
		if fh == nil {
			continue
		}
		src, err := fh.Open()
		if err != nil {
			return errors.Wrap(err, "opening "+field)
		}
		defer src.Close()

		up := &template.Upload{Filename: fh.Filename, Content: src}
		if field == "question_file" {
			req.Question = up
		} else {
			req.Answer = up
		}
	}

	ids, err := api.svc.Upload(ctx.Request().Context(), claims.Caller(), templateID, req)
	if err != nil {
		return err
	}
	return respond(ctx, "file uploaded successfully", map[string][]int{"file_ids": ids})
}

func (api *fileApi) list(ctx echo.Context) error {
	claims, err := getContextClaims(ctx)
	if err != nil {
		return err
	}
	templateID, err := paramID(ctx, "id")
	if err != nil {
		return err
	}

	entries, err := api.svc.ListFiles(ctx.Request().Context(), claims.Caller(), templateID)
	if err != nil {
		return err
	}
	return respond(ctx, "files retrieved successfully", entries)
}

func (api *fileApi) downloadQuestion(ctx echo.Context) error {
	claims, err := getContextClaims(ctx)
	if err != nil {
		return err
	}
	id, err := paramID(ctx, "id")
	if err != nil {
		return err
	}

	q, rc, err := api.svc.OpenQuestion(ctx.Request().Context(), claims.Caller(), id)
	if err != nil {
		return err
	}
	return attachment(ctx, q.Name, rc)
}

func (api *fileApi) downloadAnswer(ctx echo.Context) error {
	claims, err := getContextClaims(ctx)
	if err != nil {
		return err
	}
	id, err := paramID(ctx, "id")
	if err != nil {
		return err
	}

	a, rc, err := api.svc.OpenAnswer(ctx.Request().Context(), claims.Caller(), id)
	if err != nil {
		return err
	}
	return attachment(ctx, a.Name, rc)
}

// attachment streams rc to the client as a file download and closes it.
func attachment(ctx echo.Context, name string, rc io.ReadCloser) error {
	defer rc.Close()
	ctx.Response().Header().Set(echo.HeaderContentDisposition, fmt.Sprintf("attachment; filename=%q", name))
	return ctx.Stream(http.StatusOK, echo.MIMEOctetStream, rc)
}

func (api *fileApi) destroyQuestion(ctx echo.Context) error {
	claims, err := getContextClaims(ctx)
	if err != nil {
		return err
	}
	id, err := paramID(ctx, "id")
	if err != nil {
		return err
	}

	if err = api.svc.DeleteQuestion(ctx.Request().Context(), claims.UserID(), id); err != nil {
		return err
	}
	return respond(ctx, "question file deleted successfully")
}

func (api *fileApi) destroyAnswer(ctx echo.Context) error {
	claims, err := getContextClaims(ctx)
	if err != nil {
		return err
	}
	id, err := paramID(ctx, "id")
	if err != nil {
		return err
	}

	if err = api.svc.DeleteAnswer(ctx.Request().Context(), claims.UserID(), id); err != nil {
		return err
	}
	return respond(ctx, "answer file deleted successfully")
}
