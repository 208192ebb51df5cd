package template

import (
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/samber/lo"

	"github.com/mathvision/mdm/core"
)

// Template is an assignment packet: a named, time-bounded set of question files
// assigned to a set of students.
type Template struct {
	ID          int       `json:"template_id" db:"id"`
	Name        string    `json:"template_name" db:"name"`
	StartTime   string    `json:"start_time" db:"start_time"`
	EndTime     string    `json:"end_time" db:"end_time"`
	Description string    `json:"description" db:"description"`
	CreatedAt   time.Time `json:"-" db:"created_at"` // UTC
}

// Assignment carries one student's progress against one Template.
type Assignment struct {
	StudentID   int    `json:"student_id" db:"student_id"`
	TemplateID  int    `json:"-" db:"template_id"`
	IsSubmitted bool   `json:"is_submitted" db:"is_submitted"`
	TotalTime   int    `json:"total_time" db:"total_time"` // minutes
	Score       string `json:"score" db:"score"`
}

// AssignedStudent is an Assignment with the student's identity.
type AssignedStudent struct {
	Assignment
	StudentName string `json:"student_name" db:"student_name"`
	Account     string `json:"account" db:"account"`
}

type QuestionFile struct {
	ID         int       `json:"question_id" db:"id"`
	Name       string    `json:"question_name" db:"name"`
	Path       string    `json:"question_path" db:"path"`
	UploadedAt time.Time `json:"-" db:"uploaded_at"` // UTC
}

type AnswerFile struct {
	ID         int       `json:"answer_id" db:"id"`
	Name       string    `json:"answer_name" db:"name"`
	Path       string    `json:"answer_path" db:"path"`
	UploadedAt time.Time `json:"-" db:"uploaded_at"` // UTC
}

// Summary is a Template as listed for its teacher.
type Summary struct {
	ID           int    `json:"template_id" db:"id"`
	Name         string `json:"template_name" db:"name"`
	StartTime    string `json:"start_time" db:"start_time"`
	EndTime      string `json:"end_time" db:"end_time"`
	SubmittedNum int    `json:"submitted_num" db:"submitted_num"`
	TotalNum     int    `json:"total_num" db:"total_num"`
}

// Detail is the roster view of a Template. Progress fields come straight from the assignments.
type Detail struct {
	Template       Template          `json:"template"`
	Questions      []QuestionFile    `json:"questions"`
	QuestionsCount int               `json:"questions_count"`
	Students       []AssignedStudent `json:"students"`
}

// QuestionAnswer reports whether a student answered one question.
type QuestionAnswer struct {
	QuestionID   int    `json:"question_id"`
	QuestionName string `json:"question_name"`
	QuestionPath string `json:"question_path"`
	HasAnswer    bool   `json:"has_answer"`
	AnswerID     *int   `json:"answer_id,omitempty"`
	AnswerName   string `json:"answer_name,omitempty"`
	AnswerPath   string `json:"answer_path,omitempty"`
}

// StudentAnswers is the per-student detail view of a Template.
type StudentAnswers struct {
	StudentID   int              `json:"student_id"`
	StudentName string           `json:"student_name"`
	Account     string           `json:"account"`
	TotalTime   int              `json:"total_time"`
	Score       string           `json:"score"`
	IsSubmitted bool             `json:"is_submitted"`
	Questions   []QuestionAnswer `json:"questions"`
}

// File kinds
const (
	KindQuestion = "question"
	KindAnswer   = "answer"
)

// FileEntry is one row of a Template's file listing.
type FileEntry struct {
	ID               int     `json:"id"`
	Type             string  `json:"type"`
	HasQuestion      bool    `json:"has_question"`
	QuestionFilename *string `json:"question_filename"`
	HasAnswer        bool    `json:"has_answer"`
	AnswerFilename   *string `json:"answer_filename"`
	UploadDate       string  `json:"upload_date"`
}

// NewTemplate contains information needed to create a Template.
type NewTemplate struct {
	Name          string   `json:"name" validate:"required,dirname"`
	StartTime     string   `json:"startTime"`
	EndTime       string   `json:"endTime"`
	Description   string   `json:"description"`
	StudentIDs    []int    `json:"student_ids" validate:"required,min=1"`
	QuestionNames []string `json:"question_names" validate:"omitempty,dirname"`
}

func (nt *NewTemplate) Validate(validate *validator.Validate) error {
	nt.Name = core.CleanString(nt.Name)
	nt.StartTime = core.CleanString(nt.StartTime)
	nt.EndTime = core.CleanString(nt.EndTime)
	nt.QuestionNames = lo.Map(nt.QuestionNames, func(n string, _ int) string { return core.CleanString(n) })
	return validate.Struct(nt)
}

// Draft is everything CreateTemplate persists in one transaction.
// File names are derived from the assigned Template id by the repository.
type Draft struct {
	Template   Template
	TeacherID  int
	StudentIDs []int
	Questions  []DraftFile
	Answers    []DraftFile
}

type DraftFile struct {
	StudentID int // answers only
	BaseName  string
	Path      string
}

// Submission is sent by a student when they are done with a Template.
type Submission struct {
	TemplateID int `json:"template_id" validate:"required"`
	TotalTime  int `json:"total_time" validate:"min=0"`
}

func (sub *Submission) Validate(validate *validator.Validate) error {
	return validate.Struct(sub)
}

// Grade sets a student's score on a Template.
type Grade struct {
	TemplateID int    `json:"template_id" validate:"required"`
	StudentID  int    `json:"student_id" validate:"required"`
	Score      string `json:"score" validate:"max=20"`
}

func (g *Grade) Validate(validate *validator.Validate) error {
	g.Score = core.CleanString(g.Score)
	return validate.Struct(g)
}
