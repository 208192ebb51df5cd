package device

import (
	"github.com/go-playground/validator/v10"
	"github.com/volatiletech/null/v8"

	"github.com/mathvision/mdm/core"
)

// Device states
const (
	StateAssigned    = "Assigned"
	StateNotAssigned = "Not Assigned"
)

// VisionPro is one headset registered by a teacher, optionally handed to a student.
type VisionPro struct {
	ID        string      `db:"vp_id"`
	OwnerName null.String `db:"owner_name"`
	OwnerID   null.Int    `db:"owner_id"`
	TeacherID int         `db:"teacher_id"`
	State     string      `db:"cur_state"`
}

// Listing is a VisionPro as shown to its teacher.
type Listing struct {
	ID        string `json:"vp_id"`
	OwnerName string `json:"owner_name"`
	OwnerID   *int   `json:"owner_id"`
	TeacherID int    `json:"teacher_id"`
	Class     string `json:"class"`
	State     string `json:"curState"`
}

// ListingRow is what the repository reads back for a Listing.
type ListingRow struct {
	VisionPro
	ClassName null.String `db:"class_name"`
}

func (r ListingRow) Listing() Listing {
	l := Listing{
		ID:        r.ID,
		OwnerName: StateNotAssigned,
		TeacherID: r.TeacherID,
		Class:     StateNotAssigned,
		State:     r.State,
	}
	if r.OwnerName.Valid && r.OwnerName.String != "" {
		l.OwnerName = r.OwnerName.String
	}
	if r.OwnerID.Valid {
		l.OwnerID = r.OwnerID.Ptr()
	}
	if r.ClassName.Valid && r.ClassName.String != "" {
		l.Class = r.ClassName.String
	}
	return l
}

type NewVisionPro struct {
	ID string `json:"vp_id" validate:"required,max=80"`
}

func (nv *NewVisionPro) Validate(validate *validator.Validate) error {
	nv.ID = core.CleanString(nv.ID)
	return validate.Struct(nv)
}

// Assignment hands a VisionPro to a student.
type Assignment struct {
	ID        string `json:"vp_id" validate:"required"`
	StudentID int    `json:"student_id" validate:"required"`
}

func (a *Assignment) Validate(validate *validator.Validate) error {
	a.ID = core.CleanString(a.ID)
	return validate.Struct(a)
}
