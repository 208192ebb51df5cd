package echoapi_test

import (
	"bytes"
	"encoding/json"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-playground/locales/en"
	ut "github.com/go-playground/universal-translator"
	"github.com/go-playground/validator/v10"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	. "github.com/mathvision/mdm/apps/api/echo"
	"github.com/mathvision/mdm/core"
	"github.com/mathvision/mdm/core/account"
	"github.com/mathvision/mdm/core/classroom"
	"github.com/mathvision/mdm/core/device"
	"github.com/mathvision/mdm/core/template"
	emailsvc "github.com/mathvision/mdm/services/email"
	sqlxrepos "github.com/mathvision/mdm/storage/database/sqlx"
	"github.com/mathvision/mdm/testutil"
)

type testApp struct {
	server    *Server
	conf      *core.Config
	accRepo   account.Repository
	classRepo classroom.Repository
}

func setup(t *testing.T) testApp {
	t.Helper()
	conf := testutil.NewConfig(t)
	db := testutil.PrepareDB(t, conf)
	logger := testutil.NewLogger()

	english := en.New()
	translator, _ := ut.New(english, english).GetTranslator("en")
	validate := validator.New()
	core.InitValidators(validate, translator)

	app := testApp{
		conf:      conf,
		accRepo:   sqlxrepos.NewAccountRepository(db),
		classRepo: sqlxrepos.NewClassroomRepository(db),
	}
	accSvc := account.NewService(app.accRepo, emailsvc.NewConsoleServiceMock(conf), conf)
	tmplSvc := template.NewService(sqlxrepos.NewTemplateRepository(db), accSvc, testutil.PrepareStore(t, conf), logger, conf)

	app.server = NewServer(ServerDeps{
		Conf:        conf,
		Logger:      logger,
		AccountSvc:  accSvc,
		ClassSvc:    classroom.NewService(app.classRepo),
		TemplateSvc: tmplSvc,
		DeviceSvc:   device.NewService(sqlxrepos.NewDeviceRepository(db), accSvc),
		Validate:    validate,
		Translator:  translator,
	})
	return app
}

func (app testApp) studentToken(t *testing.T, s account.Student) string {
	token, err := GenerateToken(app.conf.SecretKey, NewStudentClaims(s, app.conf.Server.SessionLifetime))
	require.NoError(t, err)
	return token
}

func (app testApp) teacherToken(t *testing.T, tch account.Teacher) string {
	token, err := GenerateToken(app.conf.SecretKey, NewTeacherClaims(tch, app.conf.Server.SessionLifetime))
	require.NoError(t, err)
	return token
}

type httpTest struct {
	name     string
	method   string
	path     string
	body     []byte
	token    string
	wantCode int
	wantData []byte
}

func newAuthRequest(method, path, token string, data ...[]byte) (*http.Request, *httptest.ResponseRecorder) {
	var body bytes.Buffer
	if len(data) > 0 {
		body.Write(data[0])
	}
	req := httptest.NewRequest(method, path, &body)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	return req, httptest.NewRecorder()
}

// do sends a JSON request and decodes the response envelope.
func (app testApp) do(t *testing.T, method, path, token string, payload interface{}, data interface{}) (int, Response) {
	t.Helper()
	req, rec := newAuthRequest(method, path, token, marshalObj(t, payload))
	app.server.ServeHTTP(rec, req)
	return rec.Code, decodeResponse(t, rec, data)
}

func (app testApp) runTests(t *testing.T, tests []httpTest) {
	t.Helper()
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			method := tc.method
			if method == "" {
				method = http.MethodPost
			}
			req, rec := newAuthRequest(method, tc.path, tc.token, tc.body)
			app.server.ServeHTTP(rec, req)
			checkCodeAndData(t, tc, rec)
		})
	}
}

// upload posts a multipart form. files maps a form field to the name of the file sent in it.
func (app testApp) upload(t *testing.T, path, token string, fields, files map[string]string, data interface{}) (int, Response) {
	t.Helper()
	var body bytes.Buffer
	w := multipart.NewWriter(&body)
	for k, v := range fields {
		require.NoError(t, w.WriteField(k, v))
	}
	for field, name := range files {
		fw, err := w.CreateFormFile(field, name)
		require.NoError(t, err)
		_, err = fw.Write([]byte("content of " + name))
		require.NoError(t, err)
	}
	require.NoError(t, w.Close())

	req := httptest.NewRequest(http.MethodPost, path, &body)
	req.Header.Set("Content-Type", w.FormDataContentType())
	req.Header.Set("Authorization", "Bearer "+token)
	rec := httptest.NewRecorder()
	app.server.ServeHTTP(rec, req)

	return rec.Code, decodeResponse(t, rec, data)
}

func decodeResponse(t *testing.T, rec *httptest.ResponseRecorder, data interface{}) Response {
	t.Helper()
	var raw struct {
		Response
		Data json.RawMessage `json:"data"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &raw), rec.Body.String())
	res := raw.Response
	if data != nil && len(raw.Data) > 0 {
		require.NoError(t, json.Unmarshal(raw.Data, data))
		res.Data = data
	}
	return res
}

func marshalObj(t *testing.T, obj interface{}) []byte {
	if obj == nil {
		return nil
	}
	data, err := json.Marshal(obj)
	require.NoError(t, err)
	return data
}

func envelope(t *testing.T, code int, message string, data ...interface{}) []byte {
	res := Response{Code: code, Message: message}
	if len(data) > 0 {
		res.Data = data[0]
	}
	return marshalObj(t, res)
}

func checkCodeAndData(t *testing.T, tc httpTest, rec *httptest.ResponseRecorder) {
	assert.Equal(t, tc.wantCode, rec.Code)
	if tc.wantData != nil {
		assert.JSONEq(t, string(tc.wantData), rec.Body.String())
	}
}
