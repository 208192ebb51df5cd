package classroom

import (
	"time"

	"github.com/go-playground/validator/v10"

	"github.com/mathvision/mdm/core"
)

type Class struct {
	ID         int       `json:"class_id" db:"id"`
	Name       string    `json:"class_name" db:"name"`
	StudentNum int       `json:"student_count" db:"student_num"`
	CreatedAt  time.Time `json:"created_time" db:"created_at"` // UTC
}

// Info is a Class with its live member count.
type Info struct {
	Class
	MemberCount int `json:"member_count"`
}

// Member statuses
const MemberActive = "Active"

// Member is a Student enrolled in a Class.
type Member struct {
	StudentID int       `json:"student_id" db:"student_id"`
	Name      string    `json:"name" db:"name"`
	Account   string    `json:"account" db:"account"`
	JoinedAt  time.Time `json:"join_date" db:"joined_at"` // UTC
	Status    string    `json:"status" db:"-"`
}

// NewClass contains information needed to create a Class.
type NewClass struct {
	Name       string `json:"name" validate:"required"`
	StudentNum *int   `json:"studentNum" validate:"required,min=0"`
}

func (nc *NewClass) Validate(validate *validator.Validate) error {
	nc.Name = core.CleanString(nc.Name)
	return validate.Struct(nc)
}

// UpdateClass defines what may be changed on a Class. Nil or blank fields are left untouched.
type UpdateClass struct {
	ClassID    int    `json:"classId" validate:"required"`
	Name       string `json:"name"`
	StudentNum *int   `json:"studentNum" validate:"omitempty,min=0"`
}

func (uc *UpdateClass) Validate(validate *validator.Validate) error {
	uc.Name = core.CleanString(uc.Name)
	return validate.Struct(uc)
}

func (uc UpdateClass) apply(cls Class) Class {
	if uc.Name != "" {
		cls.Name = uc.Name
	}
	if uc.StudentNum != nil {
		cls.StudentNum = *uc.StudentNum
	}
	return cls
}
