package sqlxrepos

import (
	"context"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/pkg/errors"

	"github.com/mathvision/mdm/core/classroom"
)

const classColumns = "c.id, c.name, c.student_num, c.created_at"

type classroomRepository struct {
	db *sqlx.DB
}

var _ classroom.Repository = (*classroomRepository)(nil) // interface compliance check

func NewClassroomRepository(db *sqlx.DB) *classroomRepository {
	return &classroomRepository{db: db}
}

func (repo classroomRepository) CreateClass(ctx context.Context, cls classroom.Class, teacherID int) (classroom.Class, error) {
	err := withTx(ctx, repo.db, func(tx *sqlx.Tx) error {
		id, err := insertID(ctx, tx,
			"INSERT INTO class (name, student_num, created_at) VALUES (?, ?, ?)",
			cls.Name, cls.StudentNum, cls.CreatedAt.UTC())
		if err != nil {
			return errors.Wrap(err, "inserting class")
		}
		cls.ID = id

		_, err = exec(ctx, tx, "INSERT INTO teacher_class (teacher_id, class_id) VALUES (?, ?)", teacherID, id)
		return errors.Wrap(err, "linking class teacher")
	})
	if err != nil {
		return classroom.Class{}, err
	}
	return cls, nil
}

func (repo classroomRepository) GetClass(ctx context.Context, id int) (classroom.Class, error) {
	var cls classroom.Class
	if err := get(ctx, repo.db, &cls, "SELECT "+classColumns+" FROM class c WHERE c.id = ?", id); err != nil {
		return classroom.Class{}, trapNoRowsErr(err, classroom.ErrClassNotFound, "finding class by ID")
	}
	return cls, nil
}

func (repo classroomRepository) UpdateClass(ctx context.Context, cls classroom.Class) (classroom.Class, error) {
	_, err := exec(ctx, repo.db, "UPDATE class SET name = ?, student_num = ? WHERE id = ?", cls.Name, cls.StudentNum, cls.ID)
	if err != nil {
		return classroom.Class{}, errors.Wrap(err, "updating class")
	}
	return cls, nil
}

func (repo classroomRepository) DeleteClass(ctx context.Context, id int) error {
	return withTx(ctx, repo.db, func(tx *sqlx.Tx) error {
		if _, err := exec(ctx, tx, "DELETE FROM student_class WHERE class_id = ?", id); err != nil {
			return errors.Wrap(err, "deleting class students")
		}
		if _, err := exec(ctx, tx, "DELETE FROM teacher_class WHERE class_id = ?", id); err != nil {
			return errors.Wrap(err, "deleting class teachers")
		}
		res, err := exec(ctx, tx, "DELETE FROM class WHERE id = ?", id)
		if err != nil {
			return errors.Wrap(err, "deleting class")
		}
		if n, _ := res.RowsAffected(); n == 0 {
			return classroom.ErrClassNotFound
		}
		return nil
	})
}

func (repo classroomRepository) IsClassTeacher(ctx context.Context, classID, teacherID int) (bool, error) {
	return exists(ctx, repo.db, "SELECT 1 FROM teacher_class WHERE class_id = ? AND teacher_id = ?", classID, teacherID)
}

func (repo classroomRepository) TeacherExists(ctx context.Context, teacherID int) (bool, error) {
	return exists(ctx, repo.db, "SELECT 1 FROM teacher WHERE id = ?", teacherID)
}

func (repo classroomRepository) HasTemplates(ctx context.Context, classID int) (bool, error) {
	return exists(ctx, repo.db, `
		SELECT 1
		FROM student_template st
		JOIN student_class sc ON sc.student_id = st.student_id
		JOIN teacher_template tt ON tt.template_id = st.template_id
		JOIN teacher_class tc ON tc.teacher_id = tt.teacher_id AND tc.class_id = sc.class_id
		WHERE sc.class_id = ?`, classID)
}

func (repo classroomRepository) CountStudents(ctx context.Context, classID int) (int, error) {
	var n int
	err := get(ctx, repo.db, &n, "SELECT COUNT(*) FROM student_class WHERE class_id = ?", classID)
	return n, errors.Wrap(err, "counting class students")
}

func (repo classroomRepository) ListStudents(ctx context.Context, classID int) ([]classroom.Member, error) {
	members := make([]classroom.Member, 0)
	err := selectAll(ctx, repo.db, &members, `
		SELECT s.id AS student_id, s.name, s.account, sc.joined_at
		FROM student_class sc
		JOIN student s ON s.id = sc.student_id
		WHERE sc.class_id = ?
		ORDER BY s.id`, classID)
	if err != nil {
		return nil, errors.Wrap(err, "listing class students")
	}
	return members, nil
}

func (repo classroomRepository) AddStudent(ctx context.Context, classID, studentID int, joinedAt time.Time) error {
	return withTx(ctx, repo.db, func(tx *sqlx.Tx) error {
		ok, err := exists(ctx, tx, "SELECT 1 FROM student WHERE id = ?", studentID)
		if err != nil {
			return errors.Wrap(err, "checking student")
		}
		if !ok {
			return classroom.ErrStudentNotFound
		}

		ok, err = exists(ctx, tx, "SELECT 1 FROM student_class WHERE class_id = ? AND student_id = ?", classID, studentID)
		if err != nil {
			return errors.Wrap(err, "checking class membership")
		}
		if ok {
			return classroom.ErrStudentInClass
		}

		_, err = exec(ctx, tx,
			"INSERT INTO student_class (student_id, class_id, joined_at) VALUES (?, ?, ?)", studentID, classID, joinedAt.UTC())
		if err != nil {
			return errors.Wrap(err, "inserting class membership")
		}
		_, err = exec(ctx, tx, "UPDATE class SET student_num = student_num + 1 WHERE id = ?", classID)
		return errors.Wrap(err, "incrementing class student count")
	})
}

func (repo classroomRepository) RemoveStudent(ctx context.Context, classID, studentID int) error {
	return withTx(ctx, repo.db, func(tx *sqlx.Tx) error {
		res, err := exec(ctx, tx, "DELETE FROM student_class WHERE class_id = ? AND student_id = ?", classID, studentID)
		if err != nil {
			return errors.Wrap(err, "deleting class membership")
		}
		if n, _ := res.RowsAffected(); n == 0 {
			return classroom.ErrStudentNotInClass
		}
		_, err = exec(ctx, tx,
			"UPDATE class SET student_num = CASE WHEN student_num > 0 THEN student_num - 1 ELSE 0 END WHERE id = ?", classID)
		return errors.Wrap(err, "decrementing class student count")
	})
}

func (repo classroomRepository) ListTeacherClasses(ctx context.Context, teacherID int) ([]classroom.Class, error) {
	classes := make([]classroom.Class, 0)
	err := selectAll(ctx, repo.db, &classes, `
		SELECT `+classColumns+`
		FROM class c
		JOIN teacher_class tc ON tc.class_id = c.id
		WHERE tc.teacher_id = ?
		ORDER BY c.id`, teacherID)
	return classes, errors.Wrap(err, "listing teacher classes")
}

func (repo classroomRepository) ListStudentClasses(ctx context.Context, studentID int) ([]classroom.Class, error) {
	classes := make([]classroom.Class, 0)
	err := selectAll(ctx, repo.db, &classes, `
		SELECT `+classColumns+`
		FROM class c
		JOIN student_class sc ON sc.class_id = c.id
		WHERE sc.student_id = ?
		ORDER BY c.id`, studentID)
	return classes, errors.Wrap(err, "listing student classes")
}

func (repo classroomRepository) ReconcileStudentCounts(ctx context.Context) (int64, error) {
	res, err := exec(ctx, repo.db, `
		UPDATE class SET student_num = (SELECT COUNT(*) FROM student_class sc WHERE sc.class_id = class.id)
		WHERE student_num <> (SELECT COUNT(*) FROM student_class sc WHERE sc.class_id = class.id)`)
	if err != nil {
		return 0, errors.Wrap(err, "reconciling class student counts")
	}
	return res.RowsAffected()
}
