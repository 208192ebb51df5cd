package sqlxrepos

import (
	"context"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/pkg/errors"

	"github.com/mathvision/mdm/core/account"
)

const (
	studentColumns = "id, name, account, password_hash, birth, gender, vp_id, created_at"
	teacherColumns = "id, name, account, password_hash, birth, gender, email, phone, created_at"
)

type accountRepository struct {
	db *sqlx.DB
}

var _ account.Repository = (*accountRepository)(nil) // interface compliance check

func NewAccountRepository(db *sqlx.DB) *accountRepository {
	return &accountRepository{db: db}
}

func (repo accountRepository) AccountExists(ctx context.Context, acc string) (bool, error) {
	ok, err := exists(ctx, repo.db,
		"SELECT 1 FROM student WHERE account = ? UNION ALL SELECT 1 FROM teacher WHERE account = ?", acc, acc)
	return ok, errors.Wrap(err, "checking account")
}

func (repo accountRepository) NameExists(ctx context.Context, name string) (bool, error) {
	ok, err := exists(ctx, repo.db,
		"SELECT 1 FROM student WHERE name = ? UNION ALL SELECT 1 FROM teacher WHERE name = ?", name, name)
	return ok, errors.Wrap(err, "checking name")
}

func (repo accountRepository) CreateStudent(ctx context.Context, s account.Student) (account.Student, error) {
	id, err := insertID(ctx, repo.db,
		"INSERT INTO student (name, account, password_hash, birth, gender, vp_id, created_at) VALUES (?, ?, ?, ?, ?, ?, ?)",
		s.Name, s.Account, s.PasswordHash, s.Birth, s.Gender, s.VisionProID, s.CreatedAt.UTC())
	if err != nil {
		return account.Student{}, errors.Wrap(err, "inserting student")
	}
	s.ID = id
	return s, nil
}

func (repo accountRepository) CreateTeacher(ctx context.Context, t account.Teacher) (account.Teacher, error) {
	id, err := insertID(ctx, repo.db,
		"INSERT INTO teacher (name, account, password_hash, birth, gender, email, phone, created_at) VALUES (?, ?, ?, ?, ?, ?, ?, ?)",
		t.Name, t.Account, t.PasswordHash, t.Birth, t.Gender, t.Email, t.Phone, t.CreatedAt.UTC())
	if err != nil {
		return account.Teacher{}, errors.Wrap(err, "inserting teacher")
	}
	t.ID = id
	return t, nil
}

func (repo accountRepository) GetStudentByID(ctx context.Context, id int) (account.Student, error) {
	var s account.Student
	if err := get(ctx, repo.db, &s, "SELECT "+studentColumns+" FROM student WHERE id = ?", id); err != nil {
		return account.Student{}, trapNoRowsErr(err, account.ErrStudentNotFound, "finding student by ID")
	}
	return s, nil
}

func (repo accountRepository) GetStudentByAccount(ctx context.Context, acc string) (account.Student, error) {
	var s account.Student
	if err := get(ctx, repo.db, &s, "SELECT "+studentColumns+" FROM student WHERE account = ?", acc); err != nil {
		return account.Student{}, trapNoRowsErr(err, account.ErrStudentNotFound, "finding student by account")
	}
	return s, nil
}

func (repo accountRepository) GetTeacherByID(ctx context.Context, id int) (account.Teacher, error) {
	var t account.Teacher
	if err := get(ctx, repo.db, &t, "SELECT "+teacherColumns+" FROM teacher WHERE id = ?", id); err != nil {
		return account.Teacher{}, trapNoRowsErr(err, account.ErrTeacherNotFound, "finding teacher by ID")
	}
	return t, nil
}

func (repo accountRepository) GetTeacherByAccount(ctx context.Context, acc string) (account.Teacher, error) {
	var t account.Teacher
	if err := get(ctx, repo.db, &t, "SELECT "+teacherColumns+" FROM teacher WHERE account = ?", acc); err != nil {
		return account.Teacher{}, trapNoRowsErr(err, account.ErrTeacherNotFound, "finding teacher by account")
	}
	return t, nil
}

func (repo accountRepository) UpdateStudent(ctx context.Context, s account.Student) (account.Student, error) {
	_, err := exec(ctx, repo.db,
		"UPDATE student SET name = ?, password_hash = ?, birth = ?, gender = ?, vp_id = ? WHERE id = ?",
		s.Name, s.PasswordHash, s.Birth, s.Gender, s.VisionProID, s.ID)
	if err != nil {
		return account.Student{}, errors.Wrap(err, "updating student")
	}
	return s, nil
}

func (repo accountRepository) UpdateTeacher(ctx context.Context, t account.Teacher) (account.Teacher, error) {
	_, err := exec(ctx, repo.db,
		"UPDATE teacher SET name = ?, password_hash = ?, birth = ?, gender = ?, email = ?, phone = ? WHERE id = ?",
		t.Name, t.PasswordHash, t.Birth, t.Gender, t.Email, t.Phone, t.ID)
	if err != nil {
		return account.Teacher{}, errors.Wrap(err, "updating teacher")
	}
	return t, nil
}

func (repo accountRepository) RevokeToken(ctx context.Context, jti string, expiresAt time.Time) error {
	revoked, err := repo.IsTokenRevoked(ctx, jti)
	if err != nil || revoked {
		return err
	}
	_, err = exec(ctx, repo.db, "INSERT INTO revoked_token (jti, expires_at) VALUES (?, ?)", jti, expiresAt.UTC())
	return errors.Wrap(err, "revoking token")
}

func (repo accountRepository) IsTokenRevoked(ctx context.Context, jti string) (bool, error) {
	ok, err := exists(ctx, repo.db, "SELECT 1 FROM revoked_token WHERE jti = ?", jti)
	return ok, errors.Wrap(err, "checking revoked token")
}

func (repo accountRepository) PurgeRevokedTokens(ctx context.Context, before time.Time) (int64, error) {
	res, err := exec(ctx, repo.db, "DELETE FROM revoked_token WHERE expires_at < ?", before.UTC())
	if err != nil {
		return 0, errors.Wrap(err, "purging revoked tokens")
	}
	return res.RowsAffected()
}
