package classroom_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mathvision/mdm/core/classroom"
	"github.com/mathvision/mdm/core/template"
	sqlxrepos "github.com/mathvision/mdm/storage/database/sqlx"
	"github.com/mathvision/mdm/testutil"
)

func intPtr(n int) *int { return &n }

func TestService(t *testing.T) {
	db := testutil.PrepareDB(t)
	accRepo := sqlxrepos.NewAccountRepository(db)
	repo := sqlxrepos.NewClassroomRepository(db)
	tmplRepo := sqlxrepos.NewTemplateRepository(db)
	svc := classroom.NewService(repo)
	ctx := context.Background()

	teacher := testutil.CreateTeacher(t, accRepo, "Jerry", "jerry", "secret")
	other := testutil.CreateTeacher(t, accRepo, "Tom", "tom", "secret")
	alice := testutil.CreateStudent(t, accRepo, "Alice", "alice", "secret")

	_, err := svc.Create(ctx, 9999, classroom.NewClass{Name: "ghost", StudentNum: intPtr(1)})
	assert.Equal(t, classroom.ErrTeacherNotFound, err)

	cls, err := svc.Create(ctx, teacher.ID, classroom.NewClass{Name: "Year1_Class1", StudentNum: intPtr(30)})
	require.NoError(t, err)
	assert.Equal(t, 30, cls.StudentNum)

	t.Run("teacher only", func(t *testing.T) {
		_, err := svc.Info(ctx, other.ID, cls.ID)
		assert.Equal(t, classroom.ErrNotClassTeacher, err)
		_, err = svc.Update(ctx, other.ID, classroom.UpdateClass{ClassID: cls.ID, Name: "stolen"})
		assert.Equal(t, classroom.ErrNotClassTeacher, err)
		assert.Equal(t, classroom.ErrNotClassTeacher, svc.AddStudent(ctx, other.ID, cls.ID, alice.ID))
		assert.Equal(t, classroom.ErrNotClassTeacher, svc.Delete(ctx, other.ID, cls.ID))
		_, err = svc.Info(ctx, teacher.ID, 9999)
		assert.Equal(t, classroom.ErrClassNotFound, err)
	})

	updated, err := svc.Update(ctx, teacher.ID, classroom.UpdateClass{ClassID: cls.ID, Name: "Year2_Class2"})
	require.NoError(t, err)
	assert.Equal(t, "Year2_Class2", updated.Name)
	assert.Equal(t, 30, updated.StudentNum, "a nil studentNum keeps the stored value")

	require.NoError(t, svc.AddStudent(ctx, teacher.ID, cls.ID, alice.ID))
	assert.Equal(t, classroom.ErrStudentInClass, svc.AddStudent(ctx, teacher.ID, cls.ID, alice.ID))

	info, err := svc.Info(ctx, teacher.ID, cls.ID)
	require.NoError(t, err)
	assert.Equal(t, 1, info.MemberCount, "info reports the live count")
	assert.Equal(t, 31, info.StudentNum)

	members, err := svc.Students(ctx, teacher.ID, cls.ID)
	require.NoError(t, err)
	require.Len(t, members, 1)
	assert.Equal(t, classroom.MemberActive, members[0].Status)

	classes, err := svc.StudentClasses(ctx, alice.ID)
	require.NoError(t, err)
	require.Len(t, classes, 1)
	assert.Equal(t, "Year2_Class2", classes[0].Name)

	_, err = tmplRepo.CreateTemplate(ctx, template.Draft{
		Template:   template.Template{Name: "HW1", CreatedAt: time.Now()},
		TeacherID:  teacher.ID,
		StudentIDs: []int{alice.ID},
	})
	require.NoError(t, err)
	assert.Equal(t, classroom.ErrClassHasTemplates, svc.Delete(ctx, teacher.ID, cls.ID))

	require.NoError(t, svc.RemoveStudent(ctx, teacher.ID, cls.ID, alice.ID))
	assert.Equal(t, classroom.ErrStudentNotInClass, svc.RemoveStudent(ctx, teacher.ID, cls.ID, alice.ID))
	require.NoError(t, svc.Delete(ctx, teacher.ID, cls.ID))

	classes, err = svc.TeacherClasses(ctx, teacher.ID)
	require.NoError(t, err)
	assert.Empty(t, classes)
	_, err = svc.TeacherClasses(ctx, 9999)
	assert.Equal(t, classroom.ErrTeacherNotFound, err)
}

func TestService_Reconcile(t *testing.T) {
	db := testutil.PrepareDB(t)
	accRepo := sqlxrepos.NewAccountRepository(db)
	repo := sqlxrepos.NewClassroomRepository(db)
	svc := classroom.NewService(repo)
	ctx := context.Background()

	teacher := testutil.CreateTeacher(t, accRepo, "Jerry", "jerry", "secret")
	cls, err := svc.Create(ctx, teacher.ID, classroom.NewClass{Name: "Year1_Class1", StudentNum: intPtr(25)})
	require.NoError(t, err)

	n, err := svc.Reconcile(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(1), n)

	info, err := svc.Info(ctx, teacher.ID, cls.ID)
	require.NoError(t, err)
	assert.Equal(t, 0, info.StudentNum)

	n, err = svc.Reconcile(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(0), n)
}
