package sqlxrepos_test

import (
	"context"
	"testing"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mathvision/mdm/core/template"
	sqlxrepos "github.com/mathvision/mdm/storage/database/sqlx"
	"github.com/mathvision/mdm/testutil"
)

func countRows(t *testing.T, db *sqlx.DB, table string) int {
	t.Helper()
	var n int
	require.NoError(t, db.Get(&n, "SELECT COUNT(*) FROM "+table))
	return n
}

var templateTables = []string{
	"template", "teacher_template", "student_template",
	"question_file", "answer_file", "template_question_file", "template_answer_file",
}

func TestTemplateRepository_CreateTemplate(t *testing.T) {
	db := testutil.PrepareDB(t)
	accRepo := sqlxrepos.NewAccountRepository(db)
	repo := sqlxrepos.NewTemplateRepository(db)
	ctx := context.Background()

	teacher := testutil.CreateTeacher(t, accRepo, "Jerry", "jerry", "secret")
	s1 := testutil.CreateStudent(t, accRepo, "Alice", "alice", "secret")
	s2 := testutil.CreateStudent(t, accRepo, "Bob", "bob", "secret")

	id, err := repo.CreateTemplate(ctx, template.Draft{
		Template: template.Template{
			Name:        "HW1",
			StartTime:   "2025-01-01",
			EndTime:     "2025-01-08",
			Description: "first homework",
			CreatedAt:   time.Now(),
		},
		TeacherID:  teacher.ID,
		StudentIDs: []int{s1.ID, s2.ID},
		Questions: []template.DraftFile{
			{BaseName: "q1.pdf", Path: "questions/HW1/q1.pdf"},
			{BaseName: "q2.pdf", Path: "questions/HW1/q2.pdf"},
		},
		Answers: []template.DraftFile{
			{StudentID: s2.ID, BaseName: "q1.pdf", Path: "answers/HW1/2/q1.pdf"},
			{StudentID: s2.ID, BaseName: "q2.pdf", Path: "answers/HW1/2/q2.pdf"},
		},
	})
	require.NoError(t, err)

	tmpl, err := repo.GetTemplate(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, "HW1", tmpl.Name)
	assert.Equal(t, "2025-01-08", tmpl.EndTime)

	ok, err := repo.IsTemplateTeacher(ctx, id, teacher.ID)
	require.NoError(t, err)
	assert.True(t, ok)

	questions, err := repo.ListQuestions(ctx, id)
	require.NoError(t, err)
	require.Len(t, questions, 2)
	assert.Equal(t, template.QuestionFileName(id, "q1.pdf"), questions[0].Name)
	assert.Equal(t, "questions/HW1/q2.pdf", questions[1].Path)

	answers, err := repo.ListAnswers(ctx, id)
	require.NoError(t, err)
	require.Len(t, answers, 2)
	assert.Equal(t, template.AnswerFileName(id, s2.ID, "q1.pdf"), answers[0].Name)

	students, err := repo.ListAssignments(ctx, id)
	require.NoError(t, err)
	require.Len(t, students, 2)
	for _, st := range students {
		assert.False(t, st.IsSubmitted)
		assert.Equal(t, 0, st.TotalTime)
		assert.Equal(t, "", st.Score)
	}
	assert.Equal(t, "Alice", students[0].StudentName)

	summaries, err := repo.ListTeacherTemplates(ctx, teacher.ID)
	require.NoError(t, err)
	require.Len(t, summaries, 1)
	assert.Equal(t, template.Summary{
		ID:        id,
		Name:      "HW1",
		StartTime: "2025-01-01",
		EndTime:   "2025-01-08",
		TotalNum:  2,
	}, summaries[0])

	asg, err := repo.GetAssignment(ctx, id, s1.ID)
	require.NoError(t, err)
	asg.IsSubmitted = true
	asg.TotalTime = 42
	require.NoError(t, repo.UpdateAssignment(ctx, asg))

	summaries, err = repo.ListTeacherTemplates(ctx, teacher.ID)
	require.NoError(t, err)
	assert.Equal(t, 1, summaries[0].SubmittedNum)
}

func TestTemplateRepository_CreateTemplate_rollback(t *testing.T) {
	db := testutil.PrepareDB(t)
	accRepo := sqlxrepos.NewAccountRepository(db)
	repo := sqlxrepos.NewTemplateRepository(db)
	ctx := context.Background()

	teacher := testutil.CreateTeacher(t, accRepo, "Jerry", "jerry", "secret")
	s1 := testutil.CreateStudent(t, accRepo, "Alice", "alice", "secret")

	// the same student twice violates UNIQUE(student_id, template_id) after every file row is in
	_, err := repo.CreateTemplate(ctx, template.Draft{
		Template:   template.Template{Name: "HW1", CreatedAt: time.Now()},
		TeacherID:  teacher.ID,
		StudentIDs: []int{s1.ID, s1.ID},
		Questions:  []template.DraftFile{{BaseName: "q1.pdf", Path: "questions/HW1/q1.pdf"}},
		Answers:    []template.DraftFile{{StudentID: s1.ID, BaseName: "q1.pdf", Path: "answers/HW1/1/q1.pdf"}},
	})
	require.Error(t, err)

	for _, table := range templateTables {
		assert.Equal(t, 0, countRows(t, db, table), table)
	}
}

func TestTemplateRepository_DeleteTemplate(t *testing.T) {
	db := testutil.PrepareDB(t)
	accRepo := sqlxrepos.NewAccountRepository(db)
	repo := sqlxrepos.NewTemplateRepository(db)
	ctx := context.Background()

	teacher := testutil.CreateTeacher(t, accRepo, "Jerry", "jerry", "secret")
	s1 := testutil.CreateStudent(t, accRepo, "Alice", "alice", "secret")

	newDraft := func(name string) template.Draft {
		return template.Draft{
			Template:   template.Template{Name: name, CreatedAt: time.Now()},
			TeacherID:  teacher.ID,
			StudentIDs: []int{s1.ID},
			Questions:  []template.DraftFile{{BaseName: "q1.pdf", Path: "questions/" + name + "/q1.pdf"}},
			Answers:    []template.DraftFile{{StudentID: s1.ID, BaseName: "q1.pdf", Path: "answers/" + name + "/1/q1.pdf"}},
		}
	}
	id, err := repo.CreateTemplate(ctx, newDraft("HW1"))
	require.NoError(t, err)
	keep, err := repo.CreateTemplate(ctx, newDraft("HW2"))
	require.NoError(t, err)

	_, err = repo.DeleteTemplate(ctx, 9999)
	assert.Equal(t, template.ErrTemplateNotFound, err)

	paths, err := repo.DeleteTemplate(ctx, id)
	require.NoError(t, err)
	assert.ElementsMatch(t, []string{"questions/HW1/q1.pdf", "answers/HW1/1/q1.pdf"}, paths)

	_, err = repo.GetTemplate(ctx, id)
	assert.Equal(t, template.ErrTemplateNotFound, err)
	_, err = repo.GetAssignment(ctx, id, s1.ID)
	assert.Equal(t, template.ErrStudentNotAssigned, err)

	// the other template is untouched
	for _, table := range templateTables {
		assert.Equal(t, 1, countRows(t, db, table), table)
	}
	questions, err := repo.ListQuestions(ctx, keep)
	require.NoError(t, err)
	assert.Len(t, questions, 1)
}

func TestTemplateRepository_DeleteTemplate_rollback(t *testing.T) {
	db := testutil.PrepareDB(t)
	accRepo := sqlxrepos.NewAccountRepository(db)
	repo := sqlxrepos.NewTemplateRepository(db)
	ctx := context.Background()

	teacher := testutil.CreateTeacher(t, accRepo, "Jerry", "jerry", "secret")
	s1 := testutil.CreateStudent(t, accRepo, "Alice", "alice", "secret")
	id, err := repo.CreateTemplate(ctx, template.Draft{
		Template:   template.Template{Name: "HW1", CreatedAt: time.Now()},
		TeacherID:  teacher.ID,
		StudentIDs: []int{s1.ID},
		Questions:  []template.DraftFile{{BaseName: "q1.pdf", Path: "questions/HW1/q1.pdf"}},
		Answers:    []template.DraftFile{{StudentID: s1.ID, BaseName: "q1.pdf", Path: "answers/HW1/1/q1.pdf"}},
	})
	require.NoError(t, err)

	// fail on the very last statement of the transaction
	_, err = db.Exec(`CREATE TRIGGER template_delete_fails BEFORE DELETE ON template
		BEGIN SELECT RAISE(ABORT, 'boom'); END`)
	require.NoError(t, err)

	_, err = repo.DeleteTemplate(ctx, id)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "boom")

	for _, table := range templateTables {
		assert.Equal(t, 1, countRows(t, db, table), table)
	}
}

func TestTemplateRepository_files(t *testing.T) {
	db := testutil.PrepareDB(t)
	accRepo := sqlxrepos.NewAccountRepository(db)
	repo := sqlxrepos.NewTemplateRepository(db)
	ctx := context.Background()

	teacher := testutil.CreateTeacher(t, accRepo, "Jerry", "jerry", "secret")
	s1 := testutil.CreateStudent(t, accRepo, "Alice", "alice", "secret")
	id, err := repo.CreateTemplate(ctx, template.Draft{
		Template:   template.Template{Name: "HW1", CreatedAt: time.Now()},
		TeacherID:  teacher.ID,
		StudentIDs: []int{s1.ID},
	})
	require.NoError(t, err)

	q, err := repo.AddQuestion(ctx, id, template.QuestionFile{Name: "1q.pdf", Path: "questions/HW1/x_q.pdf", UploadedAt: time.Now()})
	require.NoError(t, err)
	ok, err := repo.QuestionNameExists(ctx, "1q.pdf")
	require.NoError(t, err)
	assert.True(t, ok)
	tids, err := repo.QuestionTemplates(ctx, q.ID)
	require.NoError(t, err)
	assert.Equal(t, []int{id}, tids)

	a, err := repo.AddAnswer(ctx, id, template.AnswerFile{Name: "11q.pdf", Path: "answers/HW1/1/x_q.pdf", UploadedAt: time.Now()})
	require.NoError(t, err)
	a.Path = "answers/HW1/1/y_q.pdf"
	require.NoError(t, repo.UpdateAnswer(ctx, a))
	got, err := repo.GetTemplateAnswerByName(ctx, id, "11q.pdf")
	require.NoError(t, err)
	assert.Equal(t, a.ID, got.ID)
	assert.Equal(t, "answers/HW1/1/y_q.pdf", got.Path)

	// the same name may be used by another template
	otherID, err := repo.CreateTemplate(ctx, template.Draft{
		Template:   template.Template{Name: "HW2", CreatedAt: time.Now()},
		TeacherID:  teacher.ID,
		StudentIDs: []int{s1.ID},
	})
	require.NoError(t, err)
	_, err = repo.GetTemplateAnswerByName(ctx, otherID, "11q.pdf")
	assert.Equal(t, template.ErrAnswerNotFound, err)
	b, err := repo.AddAnswer(ctx, otherID, template.AnswerFile{Name: "11q.pdf", Path: "answers/HW2/1/x_q.pdf", UploadedAt: time.Now()})
	require.NoError(t, err)
	got, err = repo.GetTemplateAnswerByName(ctx, otherID, "11q.pdf")
	require.NoError(t, err)
	assert.Equal(t, b.ID, got.ID)
	got, err = repo.GetTemplateAnswerByName(ctx, id, "11q.pdf")
	require.NoError(t, err)
	assert.Equal(t, a.ID, got.ID)

	require.NoError(t, repo.DeleteQuestion(ctx, q.ID))
	_, err = repo.GetQuestion(ctx, q.ID)
	assert.Equal(t, template.ErrQuestionNotFound, err)
	assert.Equal(t, template.ErrQuestionNotFound, repo.DeleteQuestion(ctx, q.ID))

	require.NoError(t, repo.DeleteAnswer(ctx, a.ID))
	tids, err = repo.AnswerTemplates(ctx, a.ID)
	require.NoError(t, err)
	assert.Empty(t, tids)
	assert.Equal(t, 1, countRows(t, db, "template_answer_file"), "the other template keeps its answer")
}
