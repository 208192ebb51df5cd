package sqlxrepos_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/volatiletech/null/v8"

	"github.com/mathvision/mdm/core/device"
	sqlxrepos "github.com/mathvision/mdm/storage/database/sqlx"
	"github.com/mathvision/mdm/testutil"
)

func TestDeviceRepository(t *testing.T) {
	db := testutil.PrepareDB(t)
	accRepo := sqlxrepos.NewAccountRepository(db)
	clsRepo := sqlxrepos.NewClassroomRepository(db)
	repo := sqlxrepos.NewDeviceRepository(db)
	ctx := context.Background()

	teacher := testutil.CreateTeacher(t, accRepo, "Jerry", "jerry", "secret")
	alice := testutil.CreateStudent(t, accRepo, "Alice", "alice", "secret")
	testutil.CreateClass(t, clsRepo, teacher.ID, "Year1_Class2", alice.ID)
	testutil.CreateClass(t, clsRepo, teacher.ID, "Year1_Class3", alice.ID)

	for _, id := range []string{"vp-2", "vp-1"} {
		require.NoError(t, repo.Create(ctx, device.VisionPro{ID: id, TeacherID: teacher.ID, State: device.StateNotAssigned}))
	}
	err := repo.Create(ctx, device.VisionPro{ID: "vp-1", TeacherID: teacher.ID, State: device.StateNotAssigned})
	assert.Error(t, err, "vp_id is the primary key")

	ok, err := repo.Exists(ctx, "vp-1")
	require.NoError(t, err)
	assert.True(t, ok)

	vp, err := repo.Get(ctx, "vp-1")
	require.NoError(t, err)
	vp.OwnerID = null.IntFrom(alice.ID)
	vp.OwnerName = null.StringFrom(alice.Name)
	require.NoError(t, repo.Assign(ctx, vp))

	held, err := repo.GetByOwner(ctx, alice.ID)
	require.NoError(t, err)
	assert.Equal(t, "vp-1", held.ID)
	assert.Equal(t, device.StateAssigned, held.State)
	s, err := accRepo.GetStudentByID(ctx, alice.ID)
	require.NoError(t, err)
	assert.Equal(t, null.StringFrom("vp-1"), s.VisionProID)

	rows, err := repo.ListByTeacher(ctx, teacher.ID)
	require.NoError(t, err)
	require.Len(t, rows, 2)
	one := rows[0].Listing()
	assert.Equal(t, "vp-1", one.ID)
	assert.Equal(t, "Alice", one.OwnerName)
	assert.Equal(t, "Year1_Class2", one.Class, "the first class of the owner is reported")
	two := rows[1].Listing()
	assert.Equal(t, device.StateNotAssigned, two.OwnerName)
	assert.Nil(t, two.OwnerID)
	assert.Equal(t, device.StateNotAssigned, two.Class)

	require.NoError(t, repo.Release(ctx, held))
	_, err = repo.GetByOwner(ctx, alice.ID)
	assert.Equal(t, device.ErrNotFound, err)
	s, err = accRepo.GetStudentByID(ctx, alice.ID)
	require.NoError(t, err)
	assert.False(t, s.VisionProID.Valid)

	require.NoError(t, repo.Delete(ctx, "vp-1"))
	assert.Equal(t, device.ErrNotFound, repo.Delete(ctx, "vp-1"))
}

func TestDeviceRepository_Delete(t *testing.T) {
	db := testutil.PrepareDB(t)
	accRepo := sqlxrepos.NewAccountRepository(db)
	repo := sqlxrepos.NewDeviceRepository(db)
	ctx := context.Background()

	teacher := testutil.CreateTeacher(t, accRepo, "Jerry", "jerry", "secret")
	alice := testutil.CreateStudent(t, accRepo, "Alice", "alice", "secret")
	require.NoError(t, repo.Create(ctx, device.VisionPro{ID: "vp-1", TeacherID: teacher.ID, State: device.StateNotAssigned}))
	require.NoError(t, repo.Assign(ctx, device.VisionPro{
		ID:        "vp-1",
		OwnerID:   null.IntFrom(alice.ID),
		OwnerName: null.StringFrom(alice.Name),
		TeacherID: teacher.ID,
	}))

	_, err := db.Exec(`CREATE TRIGGER vision_pro_delete_fails BEFORE DELETE ON vision_pro
		BEGIN SELECT RAISE(ABORT, 'boom'); END`)
	require.NoError(t, err)

	err = repo.Delete(ctx, "vp-1")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "boom")

	// nothing was released
	held, err := repo.GetByOwner(ctx, alice.ID)
	require.NoError(t, err)
	assert.Equal(t, device.StateAssigned, held.State)
	s, err := accRepo.GetStudentByID(ctx, alice.ID)
	require.NoError(t, err)
	assert.Equal(t, null.StringFrom("vp-1"), s.VisionProID)

	_, err = db.Exec("DROP TRIGGER vision_pro_delete_fails")
	require.NoError(t, err)

	require.NoError(t, repo.Delete(ctx, "vp-1"))
	s, err = accRepo.GetStudentByID(ctx, alice.ID)
	require.NoError(t, err)
	assert.False(t, s.VisionProID.Valid, "deleting a device releases its student")
	assert.Equal(t, device.ErrNotFound, repo.Delete(ctx, "vp-1"))
}
