package account

import (
	"context"
	"fmt"
	"net/mail"
	"time"

	"github.com/pkg/errors"

	"github.com/mathvision/mdm/core"
)

var (
	// errors
	ErrStudentNotFound = core.NewNotFoundError("Student not found")
	ErrTeacherNotFound = core.NewNotFoundError("Teacher not found")
	ErrAccountExists   = errors.New("account already exists")
	ErrNameExists      = errors.New("name already exists")

	// login errors are reported as bad input, like the registration ones
	errLoginStudent  = core.NewValidationError(errors.New("student not found"))
	errLoginTeacher  = core.NewValidationError(errors.New("teacher not found"))
	errWrongPassword = core.NewValidationError(errors.New("password incorrect"))

	NowFunc = time.Now // mockable
)

type (
	Repository interface {
		// AccountExists checks both the student and teacher tables.
		AccountExists(ctx context.Context, account string) (bool, error)
		// NameExists checks both the student and teacher tables.
		NameExists(ctx context.Context, name string) (bool, error)
		CreateStudent(ctx context.Context, s Student) (Student, error)
		CreateTeacher(ctx context.Context, t Teacher) (Teacher, error)
		GetStudentByID(ctx context.Context, id int) (Student, error)
		GetStudentByAccount(ctx context.Context, account string) (Student, error)
		GetTeacherByID(ctx context.Context, id int) (Teacher, error)
		GetTeacherByAccount(ctx context.Context, account string) (Teacher, error)
		UpdateStudent(ctx context.Context, s Student) (Student, error)
		UpdateTeacher(ctx context.Context, t Teacher) (Teacher, error)
		RevokeToken(ctx context.Context, jti string, expiresAt time.Time) error
		IsTokenRevoked(ctx context.Context, jti string) (bool, error)
		PurgeRevokedTokens(ctx context.Context, before time.Time) (int64, error)
	}

	Service struct {
		repo    Repository
		mailSvc core.EmailService
		conf    *core.Config
	}
)

func NewService(repo Repository, mailSvc core.EmailService, conf *core.Config) *Service {
	return &Service{repo: repo, mailSvc: mailSvc, conf: conf}
}

// CheckUniqueness makes sure neither the account nor the name is taken by a Student or a Teacher.
func (svc *Service) CheckUniqueness(ctx context.Context, account, name string) error {
	exists, err := svc.repo.AccountExists(ctx, account)
	if err != nil {
		return errors.Wrap(err, "checking account uniqueness")
	}
	if exists {
		return core.NewValidationError(ErrAccountExists, core.FieldError{Field: "account", Error: ErrAccountExists.Error()})
	}

	exists, err = svc.repo.NameExists(ctx, name)
	if err != nil {
		return errors.Wrap(err, "checking name uniqueness")
	}
	if exists {
		return core.NewValidationError(ErrNameExists, core.FieldError{Field: "name", Error: ErrNameExists.Error()})
	}
	return nil
}

// Register creates a Student or a Teacher from nu and returns the new id.
// nu must have been validated.
func (svc *Service) Register(ctx context.Context, nu NewUser) (int, error) {
	if err := svc.CheckUniqueness(ctx, nu.Account, nu.Name); err != nil {
		return 0, err
	}

	now := NowFunc().UTC()
	if nu.IsTeacher() {
		t := Teacher{
			Name:      nu.Name,
			Account:   nu.Account,
			Birth:     nu.Birth,
			Gender:    nu.Gender,
			Email:     nu.Email,
			Phone:     nu.Phone,
			CreatedAt: now,
		}
		if err := t.SetPassword(nu.Password); err != nil {
			return 0, errors.Wrap(err, "hashing password")
		}
		t, err := svc.repo.CreateTeacher(ctx, t)
		if err != nil {
			return 0, errors.Wrap(err, "creating teacher")
		}
		svc.sendWelcomeMail(t)
		return t.ID, nil
	}

	s := Student{
		Name:      nu.Name,
		Account:   nu.Account,
		Birth:     nu.Birth,
		Gender:    nu.Gender,
		CreatedAt: now,
	}
	if err := s.SetPassword(nu.Password); err != nil {
		return 0, errors.Wrap(err, "hashing password")
	}
	s, err := svc.repo.CreateStudent(ctx, s)
	if err != nil {
		return 0, errors.Wrap(err, "creating student")
	}
	return s.ID, nil
}

func (svc *Service) sendWelcomeMail(t Teacher) {
	if t.Email == "" || svc.mailSvc == nil {
		return
	}
	svc.mailSvc.SendMessages(&core.EmailMessage{
		To:      []mail.Address{{Name: t.Name, Address: t.Email}},
		Subject: "Welcome",
		TextContent: fmt.Sprintf(
			"Hello %s,\n\nyour teacher account %q is ready. Sign in at %s to create classes and templates.\n",
			t.Name, t.Account, svc.conf.FrontendBaseURL,
		),
	})
}

func (svc *Service) AuthenticateStudent(ctx context.Context, creds Credentials) (Student, error) {
	s, err := svc.repo.GetStudentByAccount(ctx, creds.Account)
	if err != nil {
		if errors.Cause(err) == ErrStudentNotFound {
			return Student{}, errLoginStudent
		}
		return Student{}, errors.Wrap(err, "finding student by account")
	}
	if err = s.CheckPassword(creds.Password); err != nil {
		return Student{}, errWrongPassword
	}
	return s, nil
}

func (svc *Service) AuthenticateTeacher(ctx context.Context, creds Credentials) (Teacher, error) {
	t, err := svc.repo.GetTeacherByAccount(ctx, creds.Account)
	if err != nil {
		if errors.Cause(err) == ErrTeacherNotFound {
			return Teacher{}, errLoginTeacher
		}
		return Teacher{}, errors.Wrap(err, "finding teacher by account")
	}
	if err = t.CheckPassword(creds.Password); err != nil {
		return Teacher{}, errWrongPassword
	}
	return t, nil
}

func (svc *Service) GetStudent(ctx context.Context, id int) (Student, error) {
	return svc.repo.GetStudentByID(ctx, id)
}

func (svc *Service) GetTeacher(ctx context.Context, id int) (Teacher, error) {
	return svc.repo.GetTeacherByID(ctx, id)
}

func (svc *Service) UpdateTeacher(ctx context.Context, id int, ut UpdateTeacher) (Teacher, error) {
	t, err := svc.repo.GetTeacherByID(ctx, id)
	if err != nil {
		return Teacher{}, err
	}
	return svc.repo.UpdateTeacher(ctx, ut.apply(t))
}

// SetPassword resets the password of the Student or Teacher owning account.
func (svc *Service) SetPassword(ctx context.Context, account, pwd string) error {
	account = core.CleanString(account)
	if t, err := svc.repo.GetTeacherByAccount(ctx, account); err == nil {
		if err = t.SetPassword(pwd); err != nil {
			return errors.Wrap(err, "hashing password")
		}
		_, err = svc.repo.UpdateTeacher(ctx, t)
		return errors.Wrap(err, "updating teacher")
	} else if errors.Cause(err) != ErrTeacherNotFound {
		return errors.Wrap(err, "finding teacher by account")
	}

	s, err := svc.repo.GetStudentByAccount(ctx, account)
	if err != nil {
		return err
	}
	if err = s.SetPassword(pwd); err != nil {
		return errors.Wrap(err, "hashing password")
	}
	_, err = svc.repo.UpdateStudent(ctx, s)
	return errors.Wrap(err, "updating student")
}

// Revoke invalidates a session token until it expires on its own.
func (svc *Service) Revoke(ctx context.Context, jti string, expiresAt time.Time) error {
	if jti == "" {
		return nil
	}
	if _, err := svc.repo.PurgeRevokedTokens(ctx, NowFunc().UTC()); err != nil {
		return errors.Wrap(err, "purging revoked tokens")
	}
	return svc.repo.RevokeToken(ctx, jti, expiresAt.UTC())
}

func (svc *Service) IsRevoked(ctx context.Context, jti string) (bool, error) {
	if jti == "" {
		return false, nil
	}
	return svc.repo.IsTokenRevoked(ctx, jti)
}
