package account

import (
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/volatiletech/null/v8"
	"golang.org/x/crypto/bcrypt"

	"github.com/mathvision/mdm/core"
)

// Roles
const (
	RoleStudent = "student"
	RoleTeacher = "teacher"
)

type Student struct {
	ID           int         `json:"student_id" db:"id"`
	Name         string      `json:"name" db:"name"`
	Account      string      `json:"account" db:"account"`
	PasswordHash string      `json:"-" db:"password_hash"`
	Birth        string      `json:"birth" db:"birth"`
	Gender       string      `json:"gender" db:"gender"`
	VisionProID  null.String `json:"vp_id" db:"vp_id"`
	CreatedAt    time.Time   `json:"-" db:"created_at"` // UTC
}

func (s *Student) SetPassword(pwd string) error {
	hash, err := hashPassword(pwd)
	if err != nil {
		return err
	}
	s.PasswordHash = hash
	return nil
}

func (s *Student) CheckPassword(pwd string) error {
	return bcrypt.CompareHashAndPassword([]byte(s.PasswordHash), []byte(pwd))
}

type Teacher struct {
	ID           int       `json:"teacher_id" db:"id"`
	Name         string    `json:"name" db:"name"`
	Account      string    `json:"account" db:"account"`
	PasswordHash string    `json:"-" db:"password_hash"`
	Birth        string    `json:"birth" db:"birth"`
	Gender       string    `json:"gender" db:"gender"`
	Email        string    `json:"email" db:"email"`
	Phone        string    `json:"phone" db:"phone"`
	CreatedAt    time.Time `json:"-" db:"created_at"` // UTC
}

func (t *Teacher) SetPassword(pwd string) error {
	hash, err := hashPassword(pwd)
	if err != nil {
		return err
	}
	t.PasswordHash = hash
	return nil
}

func (t *Teacher) CheckPassword(pwd string) error {
	return bcrypt.CompareHashAndPassword([]byte(t.PasswordHash), []byte(pwd))
}

func hashPassword(pwd string) (string, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(pwd), bcrypt.DefaultCost)
	if err != nil {
		return "", err
	}
	return string(hash), nil
}

// NewUser contains information needed to register a Student or a Teacher.
type NewUser struct {
	Name      string `json:"name" validate:"required"`
	Account   string `json:"account" validate:"required"`
	Password  string `json:"password" validate:"required"`
	Birth     string `json:"birth" validate:"required"`
	Gender    string `json:"gender" validate:"required"`
	IfTeacher *int   `json:"ifTeacher" validate:"required,oneof=0 1"`
	Email     string `json:"email" validate:"omitempty,email"`
	Phone     string `json:"phone"`
}

func (nu *NewUser) IsTeacher() bool {
	return nu.IfTeacher != nil && *nu.IfTeacher == 1
}

func (nu *NewUser) Clean() {
	nu.Name = core.CleanString(nu.Name)
	nu.Account = core.CleanString(nu.Account)
	nu.Birth = core.CleanString(nu.Birth)
	nu.Gender = core.CleanString(nu.Gender)
	nu.Email = core.CleanString(nu.Email, true /* lower */)
	nu.Phone = core.CleanString(nu.Phone)
}

func (nu *NewUser) Validate(validate *validator.Validate) error {
	nu.Clean()
	return validate.Struct(nu)
}

// Credentials are used by both login endpoints.
type Credentials struct {
	Account  string `json:"account" validate:"required"`
	Password string `json:"password" validate:"required"`
}

func (c *Credentials) Validate(validate *validator.Validate) error {
	c.Account = core.CleanString(c.Account)
	return validate.Struct(c)
}

// UpdateTeacher defines what information may be provided to modify a Teacher's profile.
// Blank fields keep their current value.
type UpdateTeacher struct {
	Name  string `json:"name"`
	Email string `json:"email" validate:"omitempty,email"`
	Phone string `json:"phone"`
}

func (ut *UpdateTeacher) Validate(validate *validator.Validate) error {
	ut.Name = core.CleanString(ut.Name)
	ut.Email = core.CleanString(ut.Email, true /* lower */)
	ut.Phone = core.CleanString(ut.Phone)
	return validate.Struct(ut)
}

func (ut UpdateTeacher) apply(t Teacher) Teacher {
	if ut.Name != "" {
		t.Name = ut.Name
	}
	if ut.Email != "" {
		t.Email = ut.Email
	}
	if ut.Phone != "" {
		t.Phone = ut.Phone
	}
	return t
}
