package sqlxrepos

import (
	"context"

	"github.com/jmoiron/sqlx"
	"github.com/pkg/errors"
	"github.com/samber/lo"

	"github.com/mathvision/mdm/core/template"
)

const (
	templateColumns = "t.id, t.name, t.start_time, t.end_time, t.description, t.created_at"
	fileColumns     = "f.id, f.name, f.path, f.uploaded_at"
)

type templateRepository struct {
	db *sqlx.DB
}

var _ template.Repository = (*templateRepository)(nil) // interface compliance check

func NewTemplateRepository(db *sqlx.DB) *templateRepository {
	return &templateRepository{db: db}
}

// CreateTemplate threads every inserted id forward instead of reading rows back by name.
func (repo templateRepository) CreateTemplate(ctx context.Context, d template.Draft) (int, error) {
	var templateID int
	err := withTx(ctx, repo.db, func(tx *sqlx.Tx) error {
		t := d.Template
		id, err := insertID(ctx, tx,
			"INSERT INTO template (name, start_time, end_time, description, created_at) VALUES (?, ?, ?, ?, ?)",
			t.Name, t.StartTime, t.EndTime, t.Description, t.CreatedAt.UTC())
		if err != nil {
			return errors.Wrap(err, "inserting template")
		}
		templateID = id

		for _, q := range d.Questions {
			fid, err := insertID(ctx, tx,
				"INSERT INTO question_file (name, path, uploaded_at) VALUES (?, ?, ?)",
				template.QuestionFileName(id, q.BaseName), q.Path, t.CreatedAt.UTC())
			if err != nil {
				return errors.Wrapf(err, "inserting question file %s", q.BaseName)
			}
			if _, err = exec(ctx, tx,
				"INSERT INTO template_question_file (template_id, question_file_id) VALUES (?, ?)", id, fid); err != nil {
				return errors.Wrap(err, "linking question file")
			}
		}

		for _, a := range d.Answers {
			fid, err := insertID(ctx, tx,
				"INSERT INTO answer_file (name, path, uploaded_at) VALUES (?, ?, ?)",
				template.AnswerFileName(id, a.StudentID, a.BaseName), a.Path, t.CreatedAt.UTC())
			if err != nil {
				return errors.Wrapf(err, "inserting answer file %s", a.BaseName)
			}
			if _, err = exec(ctx, tx,
				"INSERT INTO template_answer_file (template_id, answer_file_id) VALUES (?, ?)", id, fid); err != nil {
				return errors.Wrap(err, "linking answer file")
			}
		}

		for _, sid := range d.StudentIDs {
			if _, err = exec(ctx, tx,
				"INSERT INTO student_template (student_id, template_id, is_submitted, total_time, score) VALUES (?, ?, ?, ?, ?)",
				sid, id, false, 0, ""); err != nil {
				return errors.Wrap(err, "assigning template")
			}
		}

		_, err = exec(ctx, tx, "INSERT INTO teacher_template (teacher_id, template_id) VALUES (?, ?)", d.TeacherID, id)
		return errors.Wrap(err, "linking template teacher")
	})
	if err != nil {
		return 0, err
	}
	return templateID, nil
}

func (repo templateRepository) GetTemplate(ctx context.Context, id int) (template.Template, error) {
	var t template.Template
	if err := get(ctx, repo.db, &t, "SELECT "+templateColumns+" FROM template t WHERE t.id = ?", id); err != nil {
		return template.Template{}, trapNoRowsErr(err, template.ErrTemplateNotFound, "finding template by ID")
	}
	return t, nil
}

func (repo templateRepository) TemplateNameExists(ctx context.Context, name string) (bool, error) {
	return exists(ctx, repo.db, "SELECT 1 FROM template WHERE name = ?", name)
}

func (repo templateRepository) IsTemplateTeacher(ctx context.Context, templateID, teacherID int) (bool, error) {
	return exists(ctx, repo.db, "SELECT 1 FROM teacher_template WHERE template_id = ? AND teacher_id = ?", templateID, teacherID)
}

// DeleteTemplate removes the bridges first, then the files no other template links to,
// the assignments, the teacher links and finally the template.
func (repo templateRepository) DeleteTemplate(ctx context.Context, id int) ([]string, error) {
	var paths []string
	err := withTx(ctx, repo.db, func(tx *sqlx.Tx) error {
		ok, err := exists(ctx, tx, "SELECT 1 FROM template WHERE id = ?", id)
		if err != nil {
			return errors.Wrap(err, "checking template")
		}
		if !ok {
			return template.ErrTemplateNotFound
		}

		var questionIDs, answerIDs []int
		if err = selectAll(ctx, tx, &questionIDs,
			"SELECT question_file_id FROM template_question_file WHERE template_id = ?", id); err != nil {
			return errors.Wrap(err, "listing question files")
		}
		if err = selectAll(ctx, tx, &answerIDs,
			"SELECT answer_file_id FROM template_answer_file WHERE template_id = ?", id); err != nil {
			return errors.Wrap(err, "listing answer files")
		}

		if _, err = exec(ctx, tx, "DELETE FROM template_question_file WHERE template_id = ?", id); err != nil {
			return errors.Wrap(err, "deleting question file links")
		}
		if _, err = exec(ctx, tx, "DELETE FROM template_answer_file WHERE template_id = ?", id); err != nil {
			return errors.Wrap(err, "deleting answer file links")
		}

		qPaths, err := deleteOrphanFiles(ctx, tx, "question_file", "template_question_file", "question_file_id", questionIDs)
		if err != nil {
			return errors.Wrap(err, "deleting question files")
		}
		aPaths, err := deleteOrphanFiles(ctx, tx, "answer_file", "template_answer_file", "answer_file_id", answerIDs)
		if err != nil {
			return errors.Wrap(err, "deleting answer files")
		}

		if _, err = exec(ctx, tx, "DELETE FROM student_template WHERE template_id = ?", id); err != nil {
			return errors.Wrap(err, "deleting assignments")
		}
		if _, err = exec(ctx, tx, "DELETE FROM teacher_template WHERE template_id = ?", id); err != nil {
			return errors.Wrap(err, "deleting template teachers")
		}
		if _, err = exec(ctx, tx, "DELETE FROM template WHERE id = ?", id); err != nil {
			return errors.Wrap(err, "deleting template")
		}
		paths = append(qPaths, aPaths...)
		return nil
	})
	if err != nil {
		return nil, err
	}
	return paths, nil
}

type fileRef struct {
	ID   int    `db:"id"`
	Path string `db:"path"`
}

// deleteOrphanFiles deletes the rows of table among ids that no bridge row references anymore
// and returns their paths.
func deleteOrphanFiles(ctx context.Context, tx *sqlx.Tx, table, bridge, bridgeColumn string, ids []int) ([]string, error) {
	if len(ids) == 0 {
		return nil, nil
	}
	var orphans []fileRef
	err := selectIn(ctx, tx, &orphans,
		"SELECT f.id, f.path FROM "+table+" f WHERE f.id IN (?) AND NOT EXISTS (SELECT 1 FROM "+bridge+" b WHERE b."+bridgeColumn+" = f.id)",
		ids)
	if err != nil {
		return nil, err
	}
	if len(orphans) == 0 {
		return nil, nil
	}

	orphanIDs := lo.Map(orphans, func(f fileRef, _ int) int { return f.ID })
	if _, err = execIn(ctx, tx, "DELETE FROM "+table+" WHERE id IN (?)", orphanIDs); err != nil {
		return nil, err
	}
	return lo.FilterMap(orphans, func(f fileRef, _ int) (string, bool) { return f.Path, f.Path != "" }), nil
}

func (repo templateRepository) ListTeacherTemplates(ctx context.Context, teacherID int) ([]template.Summary, error) {
	summaries := make([]template.Summary, 0)
	err := selectAll(ctx, repo.db, &summaries, `
		SELECT t.id, t.name, t.start_time, t.end_time,
			COALESCE(SUM(CASE WHEN st.is_submitted THEN 1 ELSE 0 END), 0) AS submitted_num,
			COUNT(st.student_id) AS total_num
		FROM template t
		JOIN teacher_template tt ON tt.template_id = t.id
		LEFT JOIN student_template st ON st.template_id = t.id
		WHERE tt.teacher_id = ?
		GROUP BY t.id, t.name, t.start_time, t.end_time
		ORDER BY t.id DESC`, teacherID)
	return summaries, errors.Wrap(err, "listing teacher templates")
}

func (repo templateRepository) ListAssignments(ctx context.Context, templateID int) ([]template.AssignedStudent, error) {
	students := make([]template.AssignedStudent, 0)
	err := selectAll(ctx, repo.db, &students, `
		SELECT st.student_id, st.template_id, st.is_submitted, st.total_time, st.score,
			s.name AS student_name, s.account
		FROM student_template st
		JOIN student s ON s.id = st.student_id
		WHERE st.template_id = ?
		ORDER BY st.student_id`, templateID)
	return students, errors.Wrap(err, "listing assignments")
}

func (repo templateRepository) GetAssignment(ctx context.Context, templateID, studentID int) (template.Assignment, error) {
	var a template.Assignment
	err := get(ctx, repo.db, &a, `
		SELECT student_id, template_id, is_submitted, total_time, score
		FROM student_template
		WHERE template_id = ? AND student_id = ?`, templateID, studentID)
	if err != nil {
		return template.Assignment{}, trapNoRowsErr(err, template.ErrStudentNotAssigned, "finding assignment")
	}
	return a, nil
}

func (repo templateRepository) UpdateAssignment(ctx context.Context, a template.Assignment) error {
	_, err := exec(ctx, repo.db,
		"UPDATE student_template SET is_submitted = ?, total_time = ?, score = ? WHERE template_id = ? AND student_id = ?",
		a.IsSubmitted, a.TotalTime, a.Score, a.TemplateID, a.StudentID)
	return errors.Wrap(err, "updating assignment")
}

func (repo templateRepository) ListQuestions(ctx context.Context, templateID int) ([]template.QuestionFile, error) {
	files := make([]template.QuestionFile, 0)
	err := selectAll(ctx, repo.db, &files, `
		SELECT `+fileColumns+`
		FROM question_file f
		JOIN template_question_file b ON b.question_file_id = f.id
		WHERE b.template_id = ?
		ORDER BY f.id`, templateID)
	return files, errors.Wrap(err, "listing question files")
}

func (repo templateRepository) ListAnswers(ctx context.Context, templateID int) ([]template.AnswerFile, error) {
	files := make([]template.AnswerFile, 0)
	err := selectAll(ctx, repo.db, &files, `
		SELECT `+fileColumns+`
		FROM answer_file f
		JOIN template_answer_file b ON b.answer_file_id = f.id
		WHERE b.template_id = ?
		ORDER BY f.id`, templateID)
	return files, errors.Wrap(err, "listing answer files")
}

func (repo templateRepository) GetQuestion(ctx context.Context, id int) (template.QuestionFile, error) {
	var f template.QuestionFile
	if err := get(ctx, repo.db, &f, "SELECT "+fileColumns+" FROM question_file f WHERE f.id = ?", id); err != nil {
		return template.QuestionFile{}, trapNoRowsErr(err, template.ErrQuestionNotFound, "finding question file")
	}
	return f, nil
}

func (repo templateRepository) GetAnswer(ctx context.Context, id int) (template.AnswerFile, error) {
	var f template.AnswerFile
	if err := get(ctx, repo.db, &f, "SELECT "+fileColumns+" FROM answer_file f WHERE f.id = ?", id); err != nil {
		return template.AnswerFile{}, trapNoRowsErr(err, template.ErrAnswerNotFound, "finding answer file")
	}
	return f, nil
}

func (repo templateRepository) GetTemplateAnswerByName(ctx context.Context, templateID int, name string) (template.AnswerFile, error) {
	var f template.AnswerFile
	err := get(ctx, repo.db, &f, `
		SELECT `+fileColumns+`
		FROM answer_file f
		JOIN template_answer_file b ON b.answer_file_id = f.id
		WHERE b.template_id = ? AND f.name = ?
		ORDER BY f.id
		LIMIT 1`, templateID, name)
	if err != nil {
		return template.AnswerFile{}, trapNoRowsErr(err, template.ErrAnswerNotFound, "finding answer file by name")
	}
	return f, nil
}

func (repo templateRepository) QuestionNameExists(ctx context.Context, name string) (bool, error) {
	return exists(ctx, repo.db, "SELECT 1 FROM question_file WHERE name = ?", name)
}

func (repo templateRepository) AddQuestion(ctx context.Context, templateID int, f template.QuestionFile) (template.QuestionFile, error) {
	err := withTx(ctx, repo.db, func(tx *sqlx.Tx) error {
		id, err := insertID(ctx, tx,
			"INSERT INTO question_file (name, path, uploaded_at) VALUES (?, ?, ?)", f.Name, f.Path, f.UploadedAt.UTC())
		if err != nil {
			return errors.Wrap(err, "inserting question file")
		}
		f.ID = id
		_, err = exec(ctx, tx,
			"INSERT INTO template_question_file (template_id, question_file_id) VALUES (?, ?)", templateID, id)
		return errors.Wrap(err, "linking question file")
	})
	if err != nil {
		return template.QuestionFile{}, err
	}
	return f, nil
}

func (repo templateRepository) AddAnswer(ctx context.Context, templateID int, f template.AnswerFile) (template.AnswerFile, error) {
	err := withTx(ctx, repo.db, func(tx *sqlx.Tx) error {
		id, err := insertID(ctx, tx,
			"INSERT INTO answer_file (name, path, uploaded_at) VALUES (?, ?, ?)", f.Name, f.Path, f.UploadedAt.UTC())
		if err != nil {
			return errors.Wrap(err, "inserting answer file")
		}
		f.ID = id
		_, err = exec(ctx, tx,
			"INSERT INTO template_answer_file (template_id, answer_file_id) VALUES (?, ?)", templateID, id)
		return errors.Wrap(err, "linking answer file")
	})
	if err != nil {
		return template.AnswerFile{}, err
	}
	return f, nil
}

func (repo templateRepository) UpdateAnswer(ctx context.Context, f template.AnswerFile) error {
	_, err := exec(ctx, repo.db, "UPDATE answer_file SET path = ?, uploaded_at = ? WHERE id = ?", f.Path, f.UploadedAt.UTC(), f.ID)
	return errors.Wrap(err, "updating answer file")
}

func (repo templateRepository) DeleteQuestion(ctx context.Context, id int) error {
	return withTx(ctx, repo.db, func(tx *sqlx.Tx) error {
		if _, err := exec(ctx, tx, "DELETE FROM template_question_file WHERE question_file_id = ?", id); err != nil {
			return errors.Wrap(err, "deleting question file links")
		}
		res, err := exec(ctx, tx, "DELETE FROM question_file WHERE id = ?", id)
		if err != nil {
			return errors.Wrap(err, "deleting question file")
		}
		if n, _ := res.RowsAffected(); n == 0 {
			return template.ErrQuestionNotFound
		}
		return nil
	})
}

func (repo templateRepository) DeleteAnswer(ctx context.Context, id int) error {
	return withTx(ctx, repo.db, func(tx *sqlx.Tx) error {
		if _, err := exec(ctx, tx, "DELETE FROM template_answer_file WHERE answer_file_id = ?", id); err != nil {
			return errors.Wrap(err, "deleting answer file links")
		}
		res, err := exec(ctx, tx, "DELETE FROM answer_file WHERE id = ?", id)
		if err != nil {
			return errors.Wrap(err, "deleting answer file")
		}
		if n, _ := res.RowsAffected(); n == 0 {
			return template.ErrAnswerNotFound
		}
		return nil
	})
}

func (repo templateRepository) QuestionTemplates(ctx context.Context, fileID int) ([]int, error) {
	ids := make([]int, 0)
	err := selectAll(ctx, repo.db, &ids,
		"SELECT template_id FROM template_question_file WHERE question_file_id = ? ORDER BY template_id", fileID)
	return ids, errors.Wrap(err, "listing question file templates")
}

func (repo templateRepository) AnswerTemplates(ctx context.Context, fileID int) ([]int, error) {
	ids := make([]int, 0)
	err := selectAll(ctx, repo.db, &ids,
		"SELECT template_id FROM template_answer_file WHERE answer_file_id = ? ORDER BY template_id", fileID)
	return ids, errors.Wrap(err, "listing answer file templates")
}
