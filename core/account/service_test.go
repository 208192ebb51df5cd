package account_test

import (
	"context"
	"testing"
	"time"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mathvision/mdm/core"
	"github.com/mathvision/mdm/core/account"
	emailsvc "github.com/mathvision/mdm/services/email"
	sqlxrepos "github.com/mathvision/mdm/storage/database/sqlx"
	"github.com/mathvision/mdm/testutil"
)

func flag(n int) *int { return &n }

func setup(t *testing.T) (*account.Service, *emailsvc.ConsoleServiceMock) {
	conf := testutil.NewConfig(t)
	conf.FrontendBaseURL = "https://mdm.test"
	db := testutil.PrepareDB(t, conf)
	mailSvc := emailsvc.NewConsoleServiceMock(conf)
	return account.NewService(sqlxrepos.NewAccountRepository(db), mailSvc, conf), mailSvc
}

func TestService_Register(t *testing.T) {
	svc, mailSvc := setup(t)
	ctx := context.Background()

	sid, err := svc.Register(ctx, account.NewUser{
		Name: "Alice", Account: "alice", Password: "secret", Birth: "2010-01-01", Gender: "F", IfTeacher: flag(0),
	})
	require.NoError(t, err)
	assert.Empty(t, mailSvc.Sent(), "students get no mail")

	tid, err := svc.Register(ctx, account.NewUser{
		Name: "Jerry", Account: "jerry", Password: "secret", Birth: "1980-01-01", Gender: "M", IfTeacher: flag(1),
		Email: "jerry@mdm.test",
	})
	require.NoError(t, err)

	sent := mailSvc.Sent()
	require.Len(t, sent, 1)
	assert.Equal(t, "jerry@mdm.test", sent[0].To[0].Address)
	assert.Contains(t, sent[0].TextContent, "https://mdm.test")

	s, err := svc.GetStudent(ctx, sid)
	require.NoError(t, err)
	assert.Equal(t, "alice", s.Account)
	assert.NotEqual(t, "secret", s.PasswordHash)

	tch, err := svc.GetTeacher(ctx, tid)
	require.NoError(t, err)
	assert.Equal(t, "Jerry", tch.Name)

	tests := []struct {
		name      string
		nu        account.NewUser
		wantField string
	}{
		{"student account taken by a teacher", account.NewUser{Name: "Bob", Account: "jerry", IfTeacher: flag(0)}, "account"},
		{"teacher account taken by a student", account.NewUser{Name: "Tom", Account: "alice", IfTeacher: flag(1)}, "account"},
		{"name taken", account.NewUser{Name: "Alice", Account: "alice2", IfTeacher: flag(1)}, "name"},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			tc.nu.Password = "secret"
			_, err := svc.Register(ctx, tc.nu)
			require.Error(t, err)
			var verr *core.ValidationError
			require.True(t, errors.As(err, &verr))
			require.Len(t, verr.Fields, 1)
			assert.Equal(t, tc.wantField, verr.Fields[0].Field)
		})
	}
}

func TestService_Authenticate(t *testing.T) {
	svc, _ := setup(t)
	ctx := context.Background()

	_, err := svc.Register(ctx, account.NewUser{Name: "Alice", Account: "alice", Password: "secret", IfTeacher: flag(0)})
	require.NoError(t, err)
	_, err = svc.Register(ctx, account.NewUser{Name: "Jerry", Account: "jerry", Password: "secret", IfTeacher: flag(1)})
	require.NoError(t, err)

	s, err := svc.AuthenticateStudent(ctx, account.Credentials{Account: "alice", Password: "secret"})
	require.NoError(t, err)
	assert.Equal(t, "Alice", s.Name)

	_, err = svc.AuthenticateStudent(ctx, account.Credentials{Account: "jerry", Password: "secret"})
	assert.EqualError(t, err, "student not found", "teachers cannot use the student login")
	_, err = svc.AuthenticateStudent(ctx, account.Credentials{Account: "alice", Password: "wrong"})
	assert.EqualError(t, err, "password incorrect")

	tch, err := svc.AuthenticateTeacher(ctx, account.Credentials{Account: "jerry", Password: "secret"})
	require.NoError(t, err)
	assert.Equal(t, "Jerry", tch.Name)
	_, err = svc.AuthenticateTeacher(ctx, account.Credentials{Account: "alice", Password: "secret"})
	assert.EqualError(t, err, "teacher not found")

	t.Run("set password", func(t *testing.T) {
		require.NoError(t, svc.SetPassword(ctx, "alice", "n3w"))
		_, err := svc.AuthenticateStudent(ctx, account.Credentials{Account: "alice", Password: "n3w"})
		assert.NoError(t, err)

		require.NoError(t, svc.SetPassword(ctx, "jerry", "n3w"))
		_, err = svc.AuthenticateTeacher(ctx, account.Credentials{Account: "jerry", Password: "n3w"})
		assert.NoError(t, err)

		assert.Equal(t, account.ErrStudentNotFound, svc.SetPassword(ctx, "nobody", "n3w"))
	})
}

func TestService_UpdateTeacher(t *testing.T) {
	svc, _ := setup(t)
	ctx := context.Background()

	id, err := svc.Register(ctx, account.NewUser{
		Name: "Jerry", Account: "jerry", Password: "secret", Phone: "123", IfTeacher: flag(1),
	})
	require.NoError(t, err)

	tch, err := svc.UpdateTeacher(ctx, id, account.UpdateTeacher{Email: "jerry@mdm.test"})
	require.NoError(t, err)
	assert.Equal(t, "Jerry", tch.Name)
	assert.Equal(t, "123", tch.Phone)
	assert.Equal(t, "jerry@mdm.test", tch.Email)

	_, err = svc.UpdateTeacher(ctx, 9999, account.UpdateTeacher{Name: "ghost"})
	assert.Equal(t, account.ErrTeacherNotFound, err)
}

func TestService_Revoke(t *testing.T) {
	svc, _ := setup(t)
	ctx := context.Background()

	revoked, err := svc.IsRevoked(ctx, "")
	require.NoError(t, err)
	assert.False(t, revoked)

	require.NoError(t, svc.Revoke(ctx, "jti-1", time.Now().Add(time.Hour)))
	require.NoError(t, svc.Revoke(ctx, "jti-1", time.Now().Add(time.Hour)))
	revoked, err = svc.IsRevoked(ctx, "jti-1")
	require.NoError(t, err)
	assert.True(t, revoked)

	// expired entries are purged on the next revocation
	require.NoError(t, svc.Revoke(ctx, "jti-2", time.Now().Add(-time.Minute)))
	require.NoError(t, svc.Revoke(ctx, "jti-3", time.Now().Add(time.Hour)))
	revoked, err = svc.IsRevoked(ctx, "jti-2")
	require.NoError(t, err)
	assert.False(t, revoked)
}
