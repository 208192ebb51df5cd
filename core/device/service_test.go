package device_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mathvision/mdm/core/account"
	"github.com/mathvision/mdm/core/device"
	sqlxrepos "github.com/mathvision/mdm/storage/database/sqlx"
	"github.com/mathvision/mdm/testutil"
)

func TestService(t *testing.T) {
	conf := testutil.NewConfig(t)
	db := testutil.PrepareDB(t, conf)
	accRepo := sqlxrepos.NewAccountRepository(db)
	svc := device.NewService(sqlxrepos.NewDeviceRepository(db), account.NewService(accRepo, nil, conf))
	ctx := context.Background()

	teacher := testutil.CreateTeacher(t, accRepo, "Jerry", "jerry", "secret")
	other := testutil.CreateTeacher(t, accRepo, "Tom", "tom", "secret")
	alice := testutil.CreateStudent(t, accRepo, "Alice", "alice", "secret")

	require.NoError(t, svc.Add(ctx, teacher.ID, device.NewVisionPro{ID: "vp-1"}))
	assert.Equal(t, device.ErrExists, svc.Add(ctx, teacher.ID, device.NewVisionPro{ID: "vp-1"}))
	require.NoError(t, svc.Add(ctx, teacher.ID, device.NewVisionPro{ID: "vp-2"}))

	listings, err := svc.List(ctx, teacher.ID)
	require.NoError(t, err)
	require.Len(t, listings, 2)
	assert.Equal(t, device.Listing{
		ID:        "vp-1",
		OwnerName: device.StateNotAssigned,
		TeacherID: teacher.ID,
		Class:     device.StateNotAssigned,
		State:     device.StateNotAssigned,
	}, listings[0])

	listings, err = svc.List(ctx, other.ID)
	require.NoError(t, err)
	assert.Empty(t, listings)

	assert.Equal(t, device.ErrNotOwner, svc.Delete(ctx, other.ID, "vp-1"))
	assert.Equal(t, device.ErrNotFound, svc.Delete(ctx, teacher.ID, "vp-9"))
	assert.Equal(t, device.ErrNotAssignedYet, svc.Release(ctx, teacher.ID, "vp-1"))

	require.NoError(t, svc.Assign(ctx, teacher.ID, device.Assignment{ID: "vp-1", StudentID: alice.ID}))
	require.NoError(t, svc.Assign(ctx, teacher.ID, device.Assignment{ID: "vp-1", StudentID: alice.ID}), "assigning twice is a no-op")
	assert.Equal(t, device.ErrStudentHasOne, svc.Assign(ctx, teacher.ID, device.Assignment{ID: "vp-2", StudentID: alice.ID}))
	err = svc.Assign(ctx, teacher.ID, device.Assignment{ID: "vp-2", StudentID: 9999})
	assert.Equal(t, account.ErrStudentNotFound, err)

	listings, err = svc.List(ctx, teacher.ID)
	require.NoError(t, err)
	assert.Equal(t, "Alice", listings[0].OwnerName)
	require.NotNil(t, listings[0].OwnerID)
	assert.Equal(t, alice.ID, *listings[0].OwnerID)
	assert.Equal(t, device.StateAssigned, listings[0].State)

	// deleting an assigned device releases it first
	require.NoError(t, svc.Delete(ctx, teacher.ID, "vp-1"))
	s, err := accRepo.GetStudentByID(ctx, alice.ID)
	require.NoError(t, err)
	assert.False(t, s.VisionProID.Valid)

	require.NoError(t, svc.Assign(ctx, teacher.ID, device.Assignment{ID: "vp-2", StudentID: alice.ID}))
	require.NoError(t, svc.Release(ctx, teacher.ID, "vp-2"))
}
