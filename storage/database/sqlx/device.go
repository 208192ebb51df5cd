package sqlxrepos

import (
	"context"

	"github.com/jmoiron/sqlx"
	"github.com/pkg/errors"

	"github.com/mathvision/mdm/core/device"
)

const deviceColumns = "v.vp_id, v.owner_name, v.owner_id, v.teacher_id, v.cur_state"

type deviceRepository struct {
	db *sqlx.DB
}

var _ device.Repository = (*deviceRepository)(nil) // interface compliance check

func NewDeviceRepository(db *sqlx.DB) *deviceRepository {
	return &deviceRepository{db: db}
}

func (repo deviceRepository) Exists(ctx context.Context, id string) (bool, error) {
	return exists(ctx, repo.db, "SELECT 1 FROM vision_pro WHERE vp_id = ?", id)
}

func (repo deviceRepository) Create(ctx context.Context, vp device.VisionPro) error {
	_, err := exec(ctx, repo.db,
		"INSERT INTO vision_pro (vp_id, owner_name, owner_id, teacher_id, cur_state) VALUES (?, ?, ?, ?, ?)",
		vp.ID, vp.OwnerName, vp.OwnerID, vp.TeacherID, vp.State)
	return errors.Wrap(err, "inserting vision pro")
}

func (repo deviceRepository) Get(ctx context.Context, id string) (device.VisionPro, error) {
	var vp device.VisionPro
	if err := get(ctx, repo.db, &vp, "SELECT "+deviceColumns+" FROM vision_pro v WHERE v.vp_id = ?", id); err != nil {
		return device.VisionPro{}, trapNoRowsErr(err, device.ErrNotFound, "finding vision pro")
	}
	return vp, nil
}

func (repo deviceRepository) GetByOwner(ctx context.Context, studentID int) (device.VisionPro, error) {
	var vp device.VisionPro
	if err := get(ctx, repo.db, &vp, "SELECT "+deviceColumns+" FROM vision_pro v WHERE v.owner_id = ?", studentID); err != nil {
		return device.VisionPro{}, trapNoRowsErr(err, device.ErrNotFound, "finding vision pro by owner")
	}
	return vp, nil
}

func (repo deviceRepository) Delete(ctx context.Context, id string) error {
	return withTx(ctx, repo.db, func(tx *sqlx.Tx) error {
		if _, err := exec(ctx, tx, "UPDATE student SET vp_id = NULL WHERE vp_id = ?", id); err != nil {
			return errors.Wrap(err, "clearing student vision pro")
		}
		res, err := exec(ctx, tx, "DELETE FROM vision_pro WHERE vp_id = ?", id)
		if err != nil {
			return errors.Wrap(err, "deleting vision pro")
		}
		if n, _ := res.RowsAffected(); n == 0 {
			return device.ErrNotFound
		}
		return nil
	})
}

// ListByTeacher picks the owner's class with the lowest id.
func (repo deviceRepository) ListByTeacher(ctx context.Context, teacherID int) ([]device.ListingRow, error) {
	rows := make([]device.ListingRow, 0)
	err := selectAll(ctx, repo.db, &rows, `
		SELECT `+deviceColumns+`,
			(SELECT c.name
			 FROM student_class sc
			 JOIN class c ON c.id = sc.class_id
			 WHERE sc.student_id = v.owner_id
			 ORDER BY sc.class_id
			 LIMIT 1) AS class_name
		FROM vision_pro v
		WHERE v.teacher_id = ?
		ORDER BY v.vp_id`, teacherID)
	return rows, errors.Wrap(err, "listing vision pros")
}

func (repo deviceRepository) Assign(ctx context.Context, vp device.VisionPro) error {
	return withTx(ctx, repo.db, func(tx *sqlx.Tx) error {
		_, err := exec(ctx, tx,
			"UPDATE vision_pro SET owner_name = ?, owner_id = ?, cur_state = ? WHERE vp_id = ?",
			vp.OwnerName, vp.OwnerID, device.StateAssigned, vp.ID)
		if err != nil {
			return errors.Wrap(err, "assigning vision pro")
		}
		_, err = exec(ctx, tx, "UPDATE student SET vp_id = ? WHERE id = ?", vp.ID, vp.OwnerID)
		return errors.Wrap(err, "setting student vision pro")
	})
}

func (repo deviceRepository) Release(ctx context.Context, vp device.VisionPro) error {
	return withTx(ctx, repo.db, func(tx *sqlx.Tx) error {
		_, err := exec(ctx, tx,
			"UPDATE vision_pro SET owner_name = NULL, owner_id = NULL, cur_state = ? WHERE vp_id = ?",
			device.StateNotAssigned, vp.ID)
		if err != nil {
			return errors.Wrap(err, "releasing vision pro")
		}
		_, err = exec(ctx, tx, "UPDATE student SET vp_id = NULL WHERE vp_id = ?", vp.ID)
		return errors.Wrap(err, "clearing student vision pro")
	})
}
