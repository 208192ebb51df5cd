package echoapi

import (
	"github.com/go-playground/validator/v10"

	"github.com/mathvision/mdm/core"
	"github.com/mathvision/mdm/core/classroom"
)

// Request bodies that only identify a resource.

type templateRequest struct {
	TemplateID int `json:"template_id" validate:"required"`
}

func (r *templateRequest) Validate(validate *validator.Validate) error {
	return validate.Struct(r)
}

type studentAnswersRequest struct {
	TemplateID int `json:"template_id" validate:"required"`
	StudentID  int `json:"student_id" validate:"required"`
}

func (r *studentAnswersRequest) Validate(validate *validator.Validate) error {
	return validate.Struct(r)
}

type classRequest struct {
	ClassID int `json:"classId" validate:"required"`
}

func (r *classRequest) Validate(validate *validator.Validate) error {
	return validate.Struct(r)
}

type addStudentRequest struct {
	ClassID   int `json:"classId" validate:"required"`
	StudentID int `json:"studentId" validate:"required"`
}

func (r *addStudentRequest) Validate(validate *validator.Validate) error {
	return validate.Struct(r)
}

type removeStudentRequest struct {
	ClassID   int `json:"class_id" validate:"required"`
	StudentID int `json:"student_id" validate:"required"`
}

func (r *removeStudentRequest) Validate(validate *validator.Validate) error {
	return validate.Struct(r)
}

type deviceRequest struct {
	ID string `json:"vp_id" validate:"required"`
}

func (r *deviceRequest) Validate(validate *validator.Validate) error {
	r.ID = core.CleanString(r.ID)
	return validate.Struct(r)
}

// Responses

type classSummary struct {
	ID         int    `json:"id"`
	Name       string `json:"name"`
	StudentNum int    `json:"studentNum"`
}

type studentLoginResponse struct {
	Token       string         `json:"token"`
	StudentID   int            `json:"student_id"`
	StudentName string         `json:"student_name"`
	Classes     []classSummary `json:"classes"`
}

type teacherLoginResponse struct {
	Token string `json:"token"`
	ID    int    `json:"id"`
	Name  string `json:"name"`
}

type teacherInfo struct {
	Name      string `json:"name"`
	TeacherID int    `json:"teacher_id"`
	Email     string `json:"email"`
	Birth     string `json:"birth"`
	Gender    string `json:"gender"`
	Phone     string `json:"phone"`
}

type classInfo struct {
	ID           int    `json:"class_id"`
	Name         string `json:"class_name"`
	StudentCount int    `json:"student_count"`
	CreatedTime  string `json:"created_time"`
}

const dateTimeLayout = "2006-01-02 15:04:05"

func newClassInfo(info classroom.Info) classInfo {
	return classInfo{
		ID:           info.ID,
		Name:         info.Name,
		StudentCount: info.MemberCount,
		CreatedTime:  info.CreatedAt.Format(dateTimeLayout),
	}
}
