package template

import (
	"context"
	"path"
	"time"

	"github.com/pkg/errors"
	"github.com/samber/lo"

	"github.com/mathvision/mdm/core"
	"github.com/mathvision/mdm/core/account"
)

var (
	// errors
	ErrTemplateNotFound   = core.NewNotFoundError("Template not found")
	ErrStudentNotAssigned = core.NewNotFoundError("student not assigned to this template")
	ErrNotTemplateTeacher = core.NewPermissionError("not the teacher of this template")
	ErrTemplateExists     = core.NewValidationError(
		errors.New("template name already exists"),
		core.FieldError{Field: "name", Error: "template name already exists"},
	)

	NowFunc = time.Now // mockable
)

type (
	Repository interface {
		// CreateTemplate persists every row of d in one transaction and returns the Template id.
		CreateTemplate(ctx context.Context, d Draft) (int, error)
		GetTemplate(ctx context.Context, id int) (Template, error)
		TemplateNameExists(ctx context.Context, name string) (bool, error)
		IsTemplateTeacher(ctx context.Context, templateID, teacherID int) (bool, error)
		// DeleteTemplate removes the Template and all its dependents in one transaction.
		// It returns the storage paths of the file rows it removed.
		DeleteTemplate(ctx context.Context, id int) ([]string, error)
		ListTeacherTemplates(ctx context.Context, teacherID int) ([]Summary, error)

		ListAssignments(ctx context.Context, templateID int) ([]AssignedStudent, error)
		GetAssignment(ctx context.Context, templateID, studentID int) (Assignment, error)
		UpdateAssignment(ctx context.Context, a Assignment) error

		ListQuestions(ctx context.Context, templateID int) ([]QuestionFile, error)
		ListAnswers(ctx context.Context, templateID int) ([]AnswerFile, error)
		GetQuestion(ctx context.Context, id int) (QuestionFile, error)
		GetAnswer(ctx context.Context, id int) (AnswerFile, error)
		// GetTemplateAnswerByName looks name up among the answers linked to templateID.
		GetTemplateAnswerByName(ctx context.Context, templateID int, name string) (AnswerFile, error)
		QuestionNameExists(ctx context.Context, name string) (bool, error)
		// AddQuestion inserts the file and links it to templateID.
		AddQuestion(ctx context.Context, templateID int, f QuestionFile) (QuestionFile, error)
		// AddAnswer inserts the file and links it to templateID.
		AddAnswer(ctx context.Context, templateID int, f AnswerFile) (AnswerFile, error)
		UpdateAnswer(ctx context.Context, f AnswerFile) error
		// DeleteQuestion removes the file and its bridge rows.
		DeleteQuestion(ctx context.Context, id int) error
		// DeleteAnswer removes the file and its bridge rows.
		DeleteAnswer(ctx context.Context, id int) error
		QuestionTemplates(ctx context.Context, fileID int) ([]int, error)
		AnswerTemplates(ctx context.Context, fileID int) ([]int, error)
	}

	// AccountFinder resolves the teachers and students a Template refers to.
	AccountFinder interface {
		GetTeacher(ctx context.Context, id int) (account.Teacher, error)
		GetStudent(ctx context.Context, id int) (account.Student, error)
	}

	Service struct {
		repo                Repository
		accounts            AccountFinder
		store               core.FileStore
		logger              core.Logger
		provisionAllAnswers bool
	}
)

func NewService(repo Repository, accounts AccountFinder, store core.FileStore, logger core.Logger, conf *core.Config) *Service {
	return &Service{
		repo:                repo,
		accounts:            accounts,
		store:               store,
		logger:              logger,
		provisionAllAnswers: conf.Template.ProvisionAllAnswers,
	}
}

// authorize loads the Template and checks that teacherID owns it.
func (svc *Service) authorize(ctx context.Context, teacherID, templateID int) (Template, error) {
	tmpl, err := svc.repo.GetTemplate(ctx, templateID)
	if err != nil {
		return Template{}, err
	}
	ok, err := svc.repo.IsTemplateTeacher(ctx, templateID, teacherID)
	if err != nil {
		return Template{}, errors.Wrap(err, "checking template teacher")
	}
	if !ok {
		return Template{}, ErrNotTemplateTeacher
	}
	return tmpl, nil
}

// Create validates the teacher, the students and the name, provisions the template directories
// and persists the Template with its files and links in a single transaction.
// Directories created here are removed again when persisting fails.
// nt must have been validated.
func (svc *Service) Create(ctx context.Context, teacherID int, nt NewTemplate) (int, error) {
	if _, err := svc.accounts.GetTeacher(ctx, teacherID); err != nil {
		return 0, err
	}
	studentIDs := lo.Uniq(nt.StudentIDs)
	for _, sid := range studentIDs {
		if _, err := svc.accounts.GetStudent(ctx, sid); err != nil {
			return 0, err
		}
	}

	// the directory tree is keyed by name
	taken, err := svc.repo.TemplateNameExists(ctx, nt.Name)
	if err != nil {
		return 0, errors.Wrap(err, "checking template name")
	}
	if taken {
		return 0, ErrTemplateExists
	}

	draft := svc.draft(teacherID, nt, studentIDs)

	created, err := svc.provisionDirs(nt.Name, studentIDs)
	if err != nil {
		svc.removeDirs(created)
		return 0, errors.Wrap(err, "provisioning template directories")
	}

	id, err := svc.repo.CreateTemplate(ctx, draft)
	if err != nil {
		svc.removeDirs(created)
		return 0, errors.Wrap(err, "creating template")
	}
	return id, nil
}

func (svc *Service) draft(teacherID int, nt NewTemplate, studentIDs []int) Draft {
	bases := lo.Uniq(nt.QuestionNames)
	d := Draft{
		Template: Template{
			Name:        nt.Name,
			StartTime:   nt.StartTime,
			EndTime:     nt.EndTime,
			Description: nt.Description,
			CreatedAt:   NowFunc().UTC(),
		},
		TeacherID:  teacherID,
		StudentIDs: studentIDs,
	}
	for _, base := range bases {
		d.Questions = append(d.Questions, DraftFile{
			BaseName: base,
			Path:     path.Join(QuestionDir(nt.Name), base),
		})
	}

	// answer placeholders go to the last listed student unless every pair is asked for
	owners := studentIDs
	if !svc.provisionAllAnswers && len(studentIDs) > 0 {
		owners = studentIDs[len(studentIDs)-1:]
	}
	for _, sid := range owners {
		for _, base := range bases {
			d.Answers = append(d.Answers, DraftFile{
				StudentID: sid,
				BaseName:  base,
				Path:      path.Join(AnswerDir(nt.Name, sid), base),
			})
		}
	}
	return d
}

// provisionDirs creates the question directory and one answer directory per student.
// It returns the directories it had to create, in creation order.
func (svc *Service) provisionDirs(name string, studentIDs []int) ([]string, error) {
	dirs := []string{QuestionDir(name), answersTemplateDir(name)}
	for _, sid := range studentIDs {
		dirs = append(dirs, AnswerDir(name, sid))
	}

	var created []string
	for _, dir := range dirs {
		if svc.store.Exists(dir) {
			continue
		}
		if err := svc.store.MkdirAll(dir); err != nil {
			return created, err
		}
		created = append(created, dir)
	}
	return created, nil
}

func (svc *Service) removeDirs(dirs []string) {
	for i := len(dirs) - 1; i >= 0; i-- {
		if err := svc.store.RemoveAll(dirs[i]); err != nil {
			svc.logger.Error("removing template directory "+dirs[i], err)
		}
	}
}

// Delete removes the Template owned by teacherID with all its dependent rows.
// Blobs are removed after the transaction commits; failures there are only logged.
func (svc *Service) Delete(ctx context.Context, teacherID, templateID int) error {
	tmpl, err := svc.authorize(ctx, teacherID, templateID)
	if err != nil {
		return err
	}
	paths, err := svc.repo.DeleteTemplate(ctx, templateID)
	if err != nil {
		return errors.Wrap(err, "deleting template")
	}

	for _, p := range paths {
		if err = svc.store.Remove(p); err != nil {
			svc.logger.Warn("removing template file "+p, err)
		}
	}

	// namesakes are rejected on creation but may predate that check
	inUse, err := svc.repo.TemplateNameExists(ctx, tmpl.Name)
	if err != nil {
		svc.logger.Warn("checking template name", err)
		return nil
	}
	if !inUse {
		svc.removeDirs([]string{QuestionDir(tmpl.Name), answersTemplateDir(tmpl.Name)})
	}
	return nil
}

// Detail returns the roster view of a Template: progress fields are reported as stored.
func (svc *Service) Detail(ctx context.Context, teacherID, templateID int) (Detail, error) {
	tmpl, err := svc.authorize(ctx, teacherID, templateID)
	if err != nil {
		return Detail{}, err
	}
	questions, err := svc.repo.ListQuestions(ctx, templateID)
	if err != nil {
		return Detail{}, errors.Wrap(err, "listing questions")
	}
	students, err := svc.repo.ListAssignments(ctx, templateID)
	if err != nil {
		return Detail{}, errors.Wrap(err, "listing assignments")
	}
	return Detail{
		Template:       tmpl,
		Questions:      questions,
		QuestionsCount: len(questions),
		Students:       students,
	}, nil
}

// StudentAnswers matches every question of the Template with the answer the student
// uploaded for it. The student counts as having submitted when the stored flag is set
// or when at least one answer exists.
func (svc *Service) StudentAnswers(ctx context.Context, teacherID, templateID, studentID int) (StudentAnswers, error) {
	if _, err := svc.authorize(ctx, teacherID, templateID); err != nil {
		return StudentAnswers{}, err
	}
	student, err := svc.accounts.GetStudent(ctx, studentID)
	if err != nil {
		return StudentAnswers{}, err
	}
	asg, err := svc.repo.GetAssignment(ctx, templateID, studentID)
	if err != nil {
		return StudentAnswers{}, err
	}

	questions, err := svc.repo.ListQuestions(ctx, templateID)
	if err != nil {
		return StudentAnswers{}, errors.Wrap(err, "listing questions")
	}
	answers, err := svc.repo.ListAnswers(ctx, templateID)
	if err != nil {
		return StudentAnswers{}, errors.Wrap(err, "listing answers")
	}
	byName := lo.KeyBy(answers, func(a AnswerFile) string { return a.Name })

	result := StudentAnswers{
		StudentID:   student.ID,
		StudentName: student.Name,
		Account:     student.Account,
		TotalTime:   asg.TotalTime,
		Score:       asg.Score,
		Questions:   make([]QuestionAnswer, 0, len(questions)),
	}
	for _, q := range questions {
		qa := QuestionAnswer{QuestionID: q.ID, QuestionName: q.Name, QuestionPath: q.Path}
		if ans, ok := byName[SubmittedAnswerName(studentID, q.Name)]; ok {
			qa.HasAnswer = true
			qa.AnswerID = lo.ToPtr(ans.ID)
			qa.AnswerName = ans.Name
			qa.AnswerPath = ans.Path
		}
		result.Questions = append(result.Questions, qa)
	}
	result.IsSubmitted = asg.IsSubmitted || lo.SomeBy(result.Questions, func(qa QuestionAnswer) bool { return qa.HasAnswer })
	return result, nil
}

func (svc *Service) ListForTeacher(ctx context.Context, teacherID int) ([]Summary, error) {
	if _, err := svc.accounts.GetTeacher(ctx, teacherID); err != nil {
		return nil, err
	}
	return svc.repo.ListTeacherTemplates(ctx, teacherID)
}

// Submit marks the student's assignment as submitted.
func (svc *Service) Submit(ctx context.Context, studentID int, sub Submission) error {
	if _, err := svc.repo.GetTemplate(ctx, sub.TemplateID); err != nil {
		return err
	}
	asg, err := svc.repo.GetAssignment(ctx, sub.TemplateID, studentID)
	if err != nil {
		return err
	}
	asg.IsSubmitted = true
	asg.TotalTime = sub.TotalTime
	return svc.repo.UpdateAssignment(ctx, asg)
}

// Grade records a score on one assignment of a Template owned by teacherID.
func (svc *Service) Grade(ctx context.Context, teacherID int, g Grade) error {
	if _, err := svc.authorize(ctx, teacherID, g.TemplateID); err != nil {
		return err
	}
	asg, err := svc.repo.GetAssignment(ctx, g.TemplateID, g.StudentID)
	if err != nil {
		return err
	}
	asg.Score = core.CleanString(g.Score)
	return svc.repo.UpdateAssignment(ctx, asg)
}
