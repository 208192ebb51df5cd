package template

import (
	"context"
	"io"
	"path"
	"strings"

	"github.com/pkg/errors"
	"github.com/samber/lo"

	"github.com/mathvision/mdm/core"
	"github.com/mathvision/mdm/core/account"
)

var (
	ErrQuestionNotFound      = core.NewNotFoundError("Question file not found")
	ErrAnswerNotFound        = core.NewNotFoundError("Answer file not found")
	ErrBlobNotFound          = core.NewNotFoundError("file not found or inaccessible")
	ErrNotAllowed            = core.NewPermissionError("not allowed to access this template")
	ErrMissingFiles          = core.NewValidationError(errors.New("missing files"))
	ErrFileExists            = core.NewValidationError(errors.New("file already exists"))
	ErrInvalidFileName       = core.NewValidationError(errors.New("invalid file name"))
	ErrQuestionNotInTemplate = core.NewValidationError(errors.New("question does not belong to this template"))
	ErrMissingQuestion       = core.NewValidationError(errors.New("question_id is required"), requiredField("question_id"))
	ErrMissingStudent        = core.NewValidationError(errors.New("student_id is required"), requiredField("student_id"))
)

func requiredField(name string) core.FieldError {
	return core.FieldError{Field: name, Error: "this field is required"}
}

// UploadDateLayout formats FileEntry.UploadDate.
const UploadDateLayout = "2006-01-02 15:04:05"

// Caller is the logged in user acting on template files.
type Caller struct {
	ID   int
	Role string
}

func (c Caller) IsTeacher() bool {
	return c.Role == account.RoleTeacher
}

// Upload is one multipart file.
type Upload struct {
	Filename string
	Content  io.Reader
}

// UploadRequest carries the files sent to a Template. Answers need QuestionID, and
// StudentID when a teacher uploads on behalf of a student.
type UploadRequest struct {
	Question   *Upload
	Answer     *Upload
	QuestionID int
	StudentID  int
}

// checkAccess lets the owning teacher and the assigned students through.
func (svc *Service) checkAccess(ctx context.Context, caller Caller, templateID int) (Template, error) {
	if caller.IsTeacher() {
		return svc.authorize(ctx, caller.ID, templateID)
	}
	tmpl, err := svc.repo.GetTemplate(ctx, templateID)
	if err != nil {
		return Template{}, err
	}
	if _, err = svc.repo.GetAssignment(ctx, templateID, caller.ID); err != nil {
		if errors.Cause(err) == ErrStudentNotAssigned {
			return Template{}, ErrNotAllowed
		}
		return Template{}, err
	}
	return tmpl, nil
}

// checkAnyAccess passes when caller may access at least one of templateIDs.
// Files linked to no template are only reachable by teachers.
func (svc *Service) checkAnyAccess(ctx context.Context, caller Caller, templateIDs []int) error {
	if len(templateIDs) == 0 {
		if caller.IsTeacher() {
			return nil
		}
		return ErrNotAllowed
	}
	var err error
	for _, tid := range templateIDs {
		if _, err = svc.checkAccess(ctx, caller, tid); err == nil {
			return nil
		}
		if !core.IsPermission(err) && !core.IsNotFound(err) {
			return err
		}
	}
	return ErrNotAllowed
}

// Upload stores the question and/or answer of req for the Template and returns the ids
// of the file rows written.
func (svc *Service) Upload(ctx context.Context, caller Caller, templateID int, req UploadRequest) ([]int, error) {
	if req.Question == nil && req.Answer == nil {
		return nil, ErrMissingFiles
	}
	tmpl, err := svc.checkAccess(ctx, caller, templateID)
	if err != nil {
		return nil, err
	}

	var ids []int
	if req.Question != nil {
		if !caller.IsTeacher() {
			return nil, ErrNotAllowed
		}
		q, err := svc.uploadQuestion(ctx, tmpl, *req.Question)
		if err != nil {
			return nil, err
		}
		ids = append(ids, q.ID)
	}
	if req.Answer != nil {
		studentID := caller.ID
		if caller.IsTeacher() {
			studentID = req.StudentID
		}
		a, err := svc.uploadAnswer(ctx, tmpl, studentID, req.QuestionID, *req.Answer)
		if err != nil {
			return nil, err
		}
		ids = append(ids, a.ID)
	}
	return ids, nil
}

func (svc *Service) uploadQuestion(ctx context.Context, tmpl Template, up Upload) (QuestionFile, error) {
	name := core.CleanString(path.Base(up.Filename))
	if !core.IsSafePathSegment(name) {
		return QuestionFile{}, ErrInvalidFileName
	}
	name = QuestionFileName(tmpl.ID, name)

	exists, err := svc.repo.QuestionNameExists(ctx, name)
	if err != nil {
		return QuestionFile{}, errors.Wrap(err, "checking question name")
	}
	if exists {
		return QuestionFile{}, ErrFileExists
	}

	stored, err := svc.store.Save(QuestionDir(tmpl.Name), up.Filename, up.Content)
	if err != nil {
		return QuestionFile{}, errors.Wrap(err, "saving question file")
	}
	q, err := svc.repo.AddQuestion(ctx, tmpl.ID, QuestionFile{
		Name:       name,
		Path:       stored.Path,
		UploadedAt: NowFunc().UTC(),
	})
	if err != nil {
		svc.removeBlob(stored.Path)
		return QuestionFile{}, errors.Wrap(err, "adding question file")
	}
	return q, nil
}

// uploadAnswer records the answer of studentID to question questionID.
// An earlier answer to the same question is replaced.
func (svc *Service) uploadAnswer(ctx context.Context, tmpl Template, studentID, questionID int, up Upload) (AnswerFile, error) {
	if questionID == 0 {
		return AnswerFile{}, ErrMissingQuestion
	}
	if studentID == 0 {
		return AnswerFile{}, ErrMissingStudent
	}
	if _, err := svc.repo.GetAssignment(ctx, tmpl.ID, studentID); err != nil {
		return AnswerFile{}, err
	}
	q, err := svc.repo.GetQuestion(ctx, questionID)
	if err != nil {
		return AnswerFile{}, err
	}
	linked, err := svc.repo.QuestionTemplates(ctx, q.ID)
	if err != nil {
		return AnswerFile{}, errors.Wrap(err, "listing question templates")
	}
	if !lo.Contains(linked, tmpl.ID) {
		return AnswerFile{}, ErrQuestionNotInTemplate
	}

	stored, err := svc.store.Save(AnswerDir(tmpl.Name, studentID), up.Filename, up.Content)
	if err != nil {
		return AnswerFile{}, errors.Wrap(err, "saving answer file")
	}

	// answer names are only unique within a template
	name := SubmittedAnswerName(studentID, q.Name)
	prev, err := svc.repo.GetTemplateAnswerByName(ctx, tmpl.ID, name)
	switch {
	case err == nil:
		oldPath := prev.Path
		prev.Path = stored.Path
		prev.UploadedAt = NowFunc().UTC()
		if err = svc.repo.UpdateAnswer(ctx, prev); err != nil {
			svc.removeBlob(stored.Path)
			return AnswerFile{}, errors.Wrap(err, "updating answer file")
		}
		svc.removeBlob(oldPath)
		return prev, nil
	case errors.Cause(err) == ErrAnswerNotFound:
		a, err := svc.repo.AddAnswer(ctx, tmpl.ID, AnswerFile{
			Name:       name,
			Path:       stored.Path,
			UploadedAt: NowFunc().UTC(),
		})
		if err != nil {
			svc.removeBlob(stored.Path)
			return AnswerFile{}, errors.Wrap(err, "adding answer file")
		}
		return a, nil
	default:
		svc.removeBlob(stored.Path)
		return AnswerFile{}, errors.Wrap(err, "finding answer file")
	}
}

func (svc *Service) removeBlob(p string) {
	if err := svc.store.Remove(p); err != nil {
		svc.logger.Warn("removing file "+p, err)
	}
}

// ListFiles lists the question and answer files of a Template.
// Students only see their own answers.
func (svc *Service) ListFiles(ctx context.Context, caller Caller, templateID int) ([]FileEntry, error) {
	tmpl, err := svc.checkAccess(ctx, caller, templateID)
	if err != nil {
		return nil, err
	}
	questions, err := svc.repo.ListQuestions(ctx, templateID)
	if err != nil {
		return nil, errors.Wrap(err, "listing questions")
	}
	answers, err := svc.repo.ListAnswers(ctx, templateID)
	if err != nil {
		return nil, errors.Wrap(err, "listing answers")
	}
	if !caller.IsTeacher() {
		own := AnswerDir(tmpl.Name, caller.ID) + "/"
		answers = lo.Filter(answers, func(a AnswerFile, _ int) bool {
			return strings.HasPrefix(a.Path, own)
		})
	}

	entries := make([]FileEntry, 0, len(questions)+len(answers))
	for _, q := range questions {
		entries = append(entries, FileEntry{
			ID:               q.ID,
			Type:             KindQuestion,
			HasQuestion:      true,
			QuestionFilename: lo.ToPtr(q.Name),
			UploadDate:       q.UploadedAt.Format(UploadDateLayout),
		})
	}
	for _, a := range answers {
		entries = append(entries, FileEntry{
			ID:             a.ID,
			Type:           KindAnswer,
			HasAnswer:      true,
			AnswerFilename: lo.ToPtr(a.Name),
			UploadDate:     a.UploadedAt.Format(UploadDateLayout),
		})
	}
	return entries, nil
}

// OpenQuestion returns the question row and its blob. The caller must close the blob.
func (svc *Service) OpenQuestion(ctx context.Context, caller Caller, id int) (QuestionFile, io.ReadCloser, error) {
	q, err := svc.repo.GetQuestion(ctx, id)
	if err != nil {
		return QuestionFile{}, nil, err
	}
	linked, err := svc.repo.QuestionTemplates(ctx, id)
	if err != nil {
		return QuestionFile{}, nil, errors.Wrap(err, "listing question templates")
	}
	if err = svc.checkAnyAccess(ctx, caller, linked); err != nil {
		return QuestionFile{}, nil, err
	}
	rc, err := svc.openBlob(q.Path)
	if err != nil {
		return QuestionFile{}, nil, err
	}
	return q, rc, nil
}

// OpenAnswer returns the answer row and its blob. The caller must close the blob.
func (svc *Service) OpenAnswer(ctx context.Context, caller Caller, id int) (AnswerFile, io.ReadCloser, error) {
	a, err := svc.repo.GetAnswer(ctx, id)
	if err != nil {
		return AnswerFile{}, nil, err
	}
	linked, err := svc.repo.AnswerTemplates(ctx, id)
	if err != nil {
		return AnswerFile{}, nil, errors.Wrap(err, "listing answer templates")
	}
	if err = svc.checkAnyAccess(ctx, caller, linked); err != nil {
		return AnswerFile{}, nil, err
	}
	rc, err := svc.openBlob(a.Path)
	if err != nil {
		return AnswerFile{}, nil, err
	}
	return a, rc, nil
}

func (svc *Service) openBlob(p string) (io.ReadCloser, error) {
	if p == "" || !svc.store.Exists(p) {
		return nil, ErrBlobNotFound
	}
	rc, err := svc.store.Open(p)
	if err != nil {
		svc.logger.Warn("opening file "+p, err)
		return nil, ErrBlobNotFound
	}
	return rc, nil
}

// DeleteQuestion removes a question row, its bridge rows and its blob.
func (svc *Service) DeleteQuestion(ctx context.Context, teacherID, id int) error {
	q, err := svc.repo.GetQuestion(ctx, id)
	if err != nil {
		return err
	}
	linked, err := svc.repo.QuestionTemplates(ctx, id)
	if err != nil {
		return errors.Wrap(err, "listing question templates")
	}
	if err = svc.checkAnyAccess(ctx, Caller{ID: teacherID, Role: account.RoleTeacher}, linked); err != nil {
		return err
	}
	if err = svc.repo.DeleteQuestion(ctx, id); err != nil {
		return errors.Wrap(err, "deleting question file")
	}
	svc.removeBlob(q.Path)
	return nil
}

// DeleteAnswer removes an answer row, its bridge rows and its blob.
func (svc *Service) DeleteAnswer(ctx context.Context, teacherID, id int) error {
	a, err := svc.repo.GetAnswer(ctx, id)
	if err != nil {
		return err
	}
	linked, err := svc.repo.AnswerTemplates(ctx, id)
	if err != nil {
		return errors.Wrap(err, "listing answer templates")
	}
	if err = svc.checkAnyAccess(ctx, Caller{ID: teacherID, Role: account.RoleTeacher}, linked); err != nil {
		return err
	}
	if err = svc.repo.DeleteAnswer(ctx, id); err != nil {
		return errors.Wrap(err, "deleting answer file")
	}
	svc.removeBlob(a.Path)
	return nil
}
