package classroom

import (
	"context"
	"time"

	"github.com/pkg/errors"

	"github.com/mathvision/mdm/core"
)

var (
	// errors
	ErrClassNotFound     = core.NewNotFoundError("class not found")
	ErrStudentNotFound   = core.NewValidationError(errors.New("student not found"))
	ErrStudentNotInClass = core.NewNotFoundError("student not in this class")
	ErrNotClassTeacher   = core.NewPermissionError("not the teacher of this class")
	ErrStudentInClass    = core.NewValidationError(errors.New("student already in this class"))
	ErrClassHasTemplates = core.NewValidationError(errors.New("class has templates, cannot be deleted"))
	ErrTeacherNotFound   = core.NewNotFoundError("Teacher not found")

	NowFunc = time.Now // mockable
)

type (
	Repository interface {
		// CreateClass inserts the Class and links it to teacherID.
		CreateClass(ctx context.Context, cls Class, teacherID int) (Class, error)
		GetClass(ctx context.Context, id int) (Class, error)
		UpdateClass(ctx context.Context, cls Class) (Class, error)
		// DeleteClass removes the Class and its membership and teacher links.
		DeleteClass(ctx context.Context, id int) error
		IsClassTeacher(ctx context.Context, classID, teacherID int) (bool, error)
		TeacherExists(ctx context.Context, teacherID int) (bool, error)
		// HasTemplates reports whether a template owned by one of the class teachers
		// is assigned to one of the class students.
		HasTemplates(ctx context.Context, classID int) (bool, error)
		CountStudents(ctx context.Context, classID int) (int, error)
		ListStudents(ctx context.Context, classID int) ([]Member, error)
		// AddStudent inserts the membership and increments the class counter.
		AddStudent(ctx context.Context, classID, studentID int, joinedAt time.Time) error
		// RemoveStudent deletes the membership and decrements the class counter, never below 0.
		RemoveStudent(ctx context.Context, classID, studentID int) error
		ListTeacherClasses(ctx context.Context, teacherID int) ([]Class, error)
		ListStudentClasses(ctx context.Context, studentID int) ([]Class, error)
		// ReconcileStudentCounts rewrites every counter from the membership table.
		ReconcileStudentCounts(ctx context.Context) (int64, error)
	}

	Service struct {
		repo Repository
	}
)

func NewService(repo Repository) *Service {
	return &Service{repo: repo}
}

// authorize loads the Class and checks that teacherID teaches it.
func (svc *Service) authorize(ctx context.Context, teacherID, classID int) (Class, error) {
	cls, err := svc.repo.GetClass(ctx, classID)
	if err != nil {
		return Class{}, err
	}
	ok, err := svc.repo.IsClassTeacher(ctx, classID, teacherID)
	if err != nil {
		return Class{}, errors.Wrap(err, "checking class teacher")
	}
	if !ok {
		return Class{}, ErrNotClassTeacher
	}
	return cls, nil
}

func (svc *Service) Create(ctx context.Context, teacherID int, nc NewClass) (Class, error) {
	exists, err := svc.repo.TeacherExists(ctx, teacherID)
	if err != nil {
		return Class{}, errors.Wrap(err, "checking teacher")
	}
	if !exists {
		return Class{}, ErrTeacherNotFound
	}

	cls := Class{
		Name:      nc.Name,
		CreatedAt: NowFunc().UTC(),
	}
	if nc.StudentNum != nil {
		cls.StudentNum = *nc.StudentNum
	}
	return svc.repo.CreateClass(ctx, cls, teacherID)
}

func (svc *Service) Update(ctx context.Context, teacherID int, uc UpdateClass) (Class, error) {
	cls, err := svc.authorize(ctx, teacherID, uc.ClassID)
	if err != nil {
		return Class{}, err
	}
	return svc.repo.UpdateClass(ctx, uc.apply(cls))
}

func (svc *Service) Delete(ctx context.Context, teacherID, classID int) error {
	if _, err := svc.authorize(ctx, teacherID, classID); err != nil {
		return err
	}
	has, err := svc.repo.HasTemplates(ctx, classID)
	if err != nil {
		return errors.Wrap(err, "checking class templates")
	}
	if has {
		return ErrClassHasTemplates
	}
	return svc.repo.DeleteClass(ctx, classID)
}

// Info returns the Class with a live count of its members.
func (svc *Service) Info(ctx context.Context, teacherID, classID int) (Info, error) {
	cls, err := svc.authorize(ctx, teacherID, classID)
	if err != nil {
		return Info{}, err
	}
	count, err := svc.repo.CountStudents(ctx, classID)
	if err != nil {
		return Info{}, errors.Wrap(err, "counting students")
	}
	return Info{Class: cls, MemberCount: count}, nil
}

func (svc *Service) Students(ctx context.Context, teacherID, classID int) ([]Member, error) {
	if _, err := svc.authorize(ctx, teacherID, classID); err != nil {
		return nil, err
	}
	members, err := svc.repo.ListStudents(ctx, classID)
	if err != nil {
		return nil, err
	}
	for i := range members {
		members[i].Status = MemberActive
	}
	return members, nil
}

func (svc *Service) AddStudent(ctx context.Context, teacherID, classID, studentID int) error {
	if _, err := svc.authorize(ctx, teacherID, classID); err != nil {
		return err
	}
	return svc.repo.AddStudent(ctx, classID, studentID, NowFunc().UTC())
}

func (svc *Service) RemoveStudent(ctx context.Context, teacherID, classID, studentID int) error {
	if _, err := svc.authorize(ctx, teacherID, classID); err != nil {
		return err
	}
	return svc.repo.RemoveStudent(ctx, classID, studentID)
}

func (svc *Service) TeacherClasses(ctx context.Context, teacherID int) ([]Class, error) {
	exists, err := svc.repo.TeacherExists(ctx, teacherID)
	if err != nil {
		return nil, errors.Wrap(err, "checking teacher")
	}
	if !exists {
		return nil, ErrTeacherNotFound
	}
	return svc.repo.ListTeacherClasses(ctx, teacherID)
}

func (svc *Service) StudentClasses(ctx context.Context, studentID int) ([]Class, error) {
	return svc.repo.ListStudentClasses(ctx, studentID)
}

// Reconcile rewrites the stored student counters from the membership rows.
// It returns how many classes had drifted.
func (svc *Service) Reconcile(ctx context.Context) (int64, error) {
	return svc.repo.ReconcileStudentCounts(ctx)
}
