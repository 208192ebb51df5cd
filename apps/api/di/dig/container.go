package dig_container

import (
	"fmt"
	"log"
	"os"

	"github.com/go-playground/locales/en"
	ut "github.com/go-playground/universal-translator"
	"github.com/go-playground/validator/v10"
	"github.com/jmoiron/sqlx"
	"github.com/pkg/errors"
	"go.uber.org/dig"

	echoapi "github.com/mathvision/mdm/apps/api/echo"
	"github.com/mathvision/mdm/core"
	"github.com/mathvision/mdm/core/account"
	"github.com/mathvision/mdm/core/classroom"
	"github.com/mathvision/mdm/core/device"
	"github.com/mathvision/mdm/core/template"
	emailsvc "github.com/mathvision/mdm/services/email"
	"github.com/mathvision/mdm/services/filestore"
	logsvc "github.com/mathvision/mdm/services/logger"
	"github.com/mathvision/mdm/storage/database"
	sqlxrepos "github.com/mathvision/mdm/storage/database/sqlx"
)

type DBLoggerParam struct {
	dig.In
	Logger core.Logger `name:"dbLogger"`
}

type serverParams struct {
	dig.In
	Conf        *core.Config
	Logger      core.Logger
	AccountSvc  *account.Service
	ClassSvc    *classroom.Service
	TemplateSvc *template.Service
	DeviceSvc   *device.Service
	Validate    *validator.Validate
	Translator  ut.Translator
}

func newLogger(conf *core.Config) core.Logger {
	stdLogger := log.New(os.Stdout, "API : ", log.LstdFlags)
	logger := logsvc.NewRollbarLogger(stdLogger, conf)
	logger.Enable(!conf.Debug)
	return logger
}

func newDBLogger(conf *core.Config) core.Logger {
	stdLogger := log.New(os.Stdout, "DB : ", log.LstdFlags|log.Lmicroseconds|log.Lshortfile)
	logger := logsvc.NewRollbarLogger(stdLogger, conf)
	logger.Enable(!conf.Debug)
	return logger
}

func newDB(conf *core.Config, loggerParam DBLoggerParam) *sqlx.DB {
	setUp := func() (*sqlx.DB, error) {
		if err := database.CreateIfNotExist(conf); err != nil {
			return nil, err
		}

		db, err := database.Open(conf)
		if err != nil {
			return nil, err
		}

		if err = database.Migrate(db, conf); err != nil {
			_ = db.Close()
			return nil, err
		}
		return db, nil
	}

	db, err := setUp()
	if err != nil {
		loggerParam.Logger.Fatal(fmt.Sprintf("setting up database: %v", err), err)
	}
	return db
}

func newEmailService(conf *core.Config, logger core.Logger) core.EmailService {
	if conf.Debug {
		return emailsvc.NewConsoleService(log.New(os.Stdout, "MAIL : ", log.LstdFlags), conf)
	}
	return emailsvc.NewSendgridService(logger, conf)
}

func newTranslator() ut.Translator {
	_en := en.New()
	uni := ut.New(_en, _en)
	translator, _ := uni.GetTranslator("en")
	return translator
}

func newTemplateService(
	repo template.Repository,
	accSvc *account.Service,
	store core.FileStore,
	logger core.Logger,
	conf *core.Config,
) *template.Service {
	return template.NewService(repo, accSvc, store, logger, conf)
}

func newDeviceService(repo device.Repository, accSvc *account.Service) *device.Service {
	return device.NewService(repo, accSvc)
}

func newServer(p serverParams) *echoapi.Server {
	return echoapi.NewServer(echoapi.ServerDeps{
		Conf:        p.Conf,
		Logger:      p.Logger,
		AccountSvc:  p.AccountSvc,
		ClassSvc:    p.ClassSvc,
		TemplateSvc: p.TemplateSvc,
		DeviceSvc:   p.DeviceSvc,
		Validate:    p.Validate,
		Translator:  p.Translator,
	})
}

// New returns a new dependency injection dig.Container
func New() *dig.Container {
	c := dig.New()

	must(c.Provide(core.NewConfig))
	must(c.Provide(newLogger))
	must(c.Provide(newDBLogger, dig.Name("dbLogger")))
	must(c.Provide(newDB))
	must(c.Provide(newEmailService))
	must(c.Provide(filestore.NewLocalStore, dig.As(new(core.FileStore))))
	must(c.Provide(sqlxrepos.NewAccountRepository, dig.As(new(account.Repository))))
	must(c.Provide(sqlxrepos.NewClassroomRepository, dig.As(new(classroom.Repository))))
	must(c.Provide(sqlxrepos.NewTemplateRepository, dig.As(new(template.Repository))))
	must(c.Provide(sqlxrepos.NewDeviceRepository, dig.As(new(device.Repository))))
	must(c.Provide(validator.New))
	must(c.Provide(newTranslator))
	must(c.Provide(account.NewService))
	must(c.Provide(classroom.NewService))
	must(c.Provide(newTemplateService))
	must(c.Provide(newDeviceService))
	must(c.Provide(newServer))

	return c
}

// must exits program if err happened
func must(err error) {
	if err != nil {
		log.Fatal(errors.Wrap(err, "failed to provide dependency").Error())
	}
}
