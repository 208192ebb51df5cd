package device

import (
	"context"

	"github.com/pkg/errors"
	"github.com/samber/lo"
	"github.com/volatiletech/null/v8"

	"github.com/mathvision/mdm/core"
	"github.com/mathvision/mdm/core/account"
)

var (
	// errors
	ErrExists         = core.NewValidationError(errors.New("Vision Pro already exists"))
	ErrNotFound       = core.NewNotFoundError("Vision Pro not found")
	ErrNotOwner       = core.NewPermissionError("not the teacher of this Vision Pro")
	ErrStudentHasOne  = core.NewValidationError(errors.New("student already has a Vision Pro"))
	ErrAlreadyInUse   = core.NewValidationError(errors.New("Vision Pro already assigned"))
	ErrNotAssignedYet = core.NewValidationError(errors.New("Vision Pro not assigned"))
)

type (
	Repository interface {
		Exists(ctx context.Context, id string) (bool, error)
		Create(ctx context.Context, vp VisionPro) error
		Get(ctx context.Context, id string) (VisionPro, error)
		GetByOwner(ctx context.Context, studentID int) (VisionPro, error)
		// Delete releases the device from its student and removes it in one transaction.
		Delete(ctx context.Context, id string) error
		// ListByTeacher resolves the first class of every owner.
		ListByTeacher(ctx context.Context, teacherID int) ([]ListingRow, error)
		// Assign sets the owner of the device and the student's device id in one transaction.
		Assign(ctx context.Context, vp VisionPro) error
		// Release clears the owner of the device and the student's device id in one transaction.
		Release(ctx context.Context, vp VisionPro) error
	}

	StudentFinder interface {
		GetStudent(ctx context.Context, id int) (account.Student, error)
	}

	Service struct {
		repo     Repository
		students StudentFinder
	}
)

func NewService(repo Repository, students StudentFinder) *Service {
	return &Service{repo: repo, students: students}
}

// Add registers a new, unassigned VisionPro for teacherID.
// nv must have been validated.
func (svc *Service) Add(ctx context.Context, teacherID int, nv NewVisionPro) error {
	exists, err := svc.repo.Exists(ctx, nv.ID)
	if err != nil {
		return errors.Wrap(err, "checking vision pro")
	}
	if exists {
		return ErrExists
	}
	return svc.repo.Create(ctx, VisionPro{
		ID:        nv.ID,
		TeacherID: teacherID,
		State:     StateNotAssigned,
	})
}

func (svc *Service) authorize(ctx context.Context, teacherID int, id string) (VisionPro, error) {
	vp, err := svc.repo.Get(ctx, id)
	if err != nil {
		return VisionPro{}, err
	}
	if vp.TeacherID != teacherID {
		return VisionPro{}, ErrNotOwner
	}
	return vp, nil
}

func (svc *Service) Delete(ctx context.Context, teacherID int, id string) error {
	vp, err := svc.authorize(ctx, teacherID, core.CleanString(id))
	if err != nil {
		return err
	}
	return svc.repo.Delete(ctx, vp.ID)
}

func (svc *Service) List(ctx context.Context, teacherID int) ([]Listing, error) {
	rows, err := svc.repo.ListByTeacher(ctx, teacherID)
	if err != nil {
		return nil, errors.Wrap(err, "listing vision pros")
	}
	return lo.Map(rows, func(r ListingRow, _ int) Listing { return r.Listing() }), nil
}

// Assign hands the VisionPro to a student. A student holds at most one device.
func (svc *Service) Assign(ctx context.Context, teacherID int, a Assignment) error {
	vp, err := svc.authorize(ctx, teacherID, a.ID)
	if err != nil {
		return err
	}
	if vp.OwnerID.Valid {
		if vp.OwnerID.Int == a.StudentID {
			return nil
		}
		return ErrAlreadyInUse
	}
	student, err := svc.students.GetStudent(ctx, a.StudentID)
	if err != nil {
		return err
	}
	held, err := svc.repo.GetByOwner(ctx, student.ID)
	if err == nil && held.ID != vp.ID {
		return ErrStudentHasOne
	} else if err != nil && errors.Cause(err) != ErrNotFound {
		return errors.Wrap(err, "finding student vision pro")
	}

	vp.OwnerID = null.IntFrom(student.ID)
	vp.OwnerName = null.StringFrom(student.Name)
	vp.State = StateAssigned
	return svc.repo.Assign(ctx, vp)
}

// Release takes the VisionPro back from its student.
func (svc *Service) Release(ctx context.Context, teacherID int, id string) error {
	vp, err := svc.authorize(ctx, teacherID, core.CleanString(id))
	if err != nil {
		return err
	}
	if !vp.OwnerID.Valid {
		return ErrNotAssignedYet
	}
	return svc.repo.Release(ctx, vp)
}
