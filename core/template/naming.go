package template

import (
	"path"
	"strconv"
)

// Stored names and relative paths of template files. Answers are matched to
// questions through these names, and the directory tree mirrors them:
//
//	questions/<template name>/<base>
//	answers/<template name>/<student id>/<base>
const (
	QuestionsRoot = "questions"
	AnswersRoot   = "answers"
)

// QuestionFileName is the stored name of a question provisioned for templateID.
func QuestionFileName(templateID int, base string) string {
	return strconv.Itoa(templateID) + base
}

// AnswerFileName is the stored name of an answer placeholder provisioned at creation time.
func AnswerFileName(templateID, studentID int, base string) string {
	return strconv.Itoa(templateID) + strconv.Itoa(studentID) + base
}

// SubmittedAnswerName is the name a student's answer to question is stored under.
// The student answers view matches on it.
func SubmittedAnswerName(studentID int, questionName string) string {
	return strconv.Itoa(studentID) + questionName
}

func QuestionDir(templateName string) string {
	return path.Join(QuestionsRoot, templateName)
}

func AnswerDir(templateName string, studentID int) string {
	return path.Join(AnswersRoot, templateName, strconv.Itoa(studentID))
}

// answersTemplateDir is the parent of every AnswerDir of templateName.
func answersTemplateDir(templateName string) string {
	return path.Join(AnswersRoot, templateName)
}
