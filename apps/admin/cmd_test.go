package main

import (
	"context"
	"database/sql"
	"fmt"
	"strconv"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mathvision/mdm/core/account"
	"github.com/mathvision/mdm/core/classroom"
	sqlxrepos "github.com/mathvision/mdm/storage/database/sqlx"
	"github.com/mathvision/mdm/testutil"
)

var accRepo account.Repository

func setup(t *testing.T) *commandLine {
	conf := testutil.NewConfig(t)
	db := testutil.PrepareDB(t, conf)
	accRepo = sqlxrepos.NewAccountRepository(db)

	return &commandLine{
		db:       db,
		conf:     conf,
		accSvc:   account.NewService(accRepo, nil, conf),
		classSvc: classroom.NewService(sqlxrepos.NewClassroomRepository(db)),
	}
}

type cliTest struct {
	name       string
	args       []string // without program name
	wantErr    error
	wantErrStr string
	extra      interface{}
}

func runCLITests(t *testing.T, cli *commandLine, tests []cliTest, check func(t *testing.T, tt cliTest)) {
	for _, tt := range tests {
		args := append([]string{"admin"}, tt.args...)
		pwd, _ := tt.extra.(string)
		readPasswordFunc = func(fd int) ([]byte, error) {
			return []byte(pwd), nil
		}

		t.Run(tt.name, func(t *testing.T) {
			err := cli.run(args)
			switch {
			case tt.wantErr != nil:
				assert.Equal(t, tt.wantErr, err)
			case tt.wantErrStr != "":
				assert.EqualError(t, err, tt.wantErrStr)
			default:
				require.NoError(t, err)
				if check != nil {
					check(t, tt)
				}
			}
		})
	}
}

func Test_commandLine_migrate(t *testing.T) {
	cli := setup(t)

	var gotDir string
	gooseRunFunc = func(command string, db *sql.DB, dir string, args ...string) error {
		gotDir = dir
		switch command {
		case "up", "up-by-one", "down", "fix", "redo", "reset", "status", "version": // pass
		case "up-to", "down-to":
			if len(args) == 0 {
				return fmt.Errorf("%s must be of form: goose [OPTIONS] DRIVER DBSTRING %s VERSION", command, command)
			}
			if _, err := strconv.ParseInt(args[0], 10, 64); err != nil {
				return fmt.Errorf("version must be a number (got '%s')", args[0])
			}
		case "create":
			if len(args) == 0 {
				return fmt.Errorf("create must be of form: goose [OPTIONS] DRIVER DBSTRING create NAME [go|sql]")
			}
		default:
			return fmt.Errorf("%q: no such command", command)
		}
		return nil
	}

	runCLITests(t, cli, []cliTest{
		{name: "no subcommand", args: []string{"migrate"}, wantErr: errHelp},
		{name: "unknown subcommand", args: []string{"migrate", "lol"}, wantErrStr: "\"lol\": no such command"},
		{name: "up-to: no args", args: []string{"migrate", "up-to"}, wantErrStr: "up-to must be of form: goose [OPTIONS] DRIVER DBSTRING up-to VERSION"},
		{name: "up-to: non-int arg", args: []string{"migrate", "up-to", "lol"}, wantErrStr: "version must be a number (got 'lol')"},
		{name: "create: no args", args: []string{"migrate", "create"}, wantErrStr: "create must be of form: goose [OPTIONS] DRIVER DBSTRING create NAME [go|sql]"},
		{name: "down-to: no args", args: []string{"migrate", "down-to"}, wantErrStr: "down-to must be of form: goose [OPTIONS] DRIVER DBSTRING down-to VERSION"},
		{name: "up", args: []string{"migrate", "up"}},
		{name: "up-to", args: []string{"migrate", "up-to", "2"}},
		{name: "down", args: []string{"migrate", "down"}},
		{name: "redo", args: []string{"migrate", "redo"}},
		{name: "status", args: []string{"migrate", "status"}},
		{name: "version", args: []string{"migrate", "version"}},
		{name: "create", args: []string{"migrate", "create", "add_course", "sql"}},
	}, func(t *testing.T, _ cliTest) {
		assert.Equal(t, "migrations/sqlite", gotDir)
	})
}

func Test_commandLine_resetPassword(t *testing.T) {
	cli := setup(t)
	testutil.CreateStudent(t, accRepo, "Alice", "alice", "secret")
	testutil.CreateTeacher(t, accRepo, "Jerry", "jerry", "secret")

	runCLITests(t, cli, []cliTest{
		{name: "no command", wantErr: errHelp},
		{name: "unknown command", args: []string{"lol"}, wantErr: errHelp},
		{name: "no args", args: []string{"resetpassword"}, wantErr: errHelp},
		{name: "account but no password", args: []string{"resetpassword", "-account", "alice"}, wantErr: errHelp},
		{name: "account not found", args: []string{"resetpassword", "-account", "lol"}, extra: "lol", wantErr: account.ErrStudentNotFound},
		{name: "reset student", args: []string{"resetpassword", "-account", "alice"}, extra: "n3w"},
		{name: "reset teacher", args: []string{"resetpassword", "-account", "jerry"}, extra: "n3w"},
	}, func(t *testing.T, tt cliTest) {
		ctx := context.Background()
		creds := account.Credentials{Account: tt.args[3], Password: tt.extra.(string)}
		if creds.Account == "jerry" {
			_, err := cli.accSvc.AuthenticateTeacher(ctx, creds)
			assert.NoError(t, err)
		} else {
			_, err := cli.accSvc.AuthenticateStudent(ctx, creds)
			assert.NoError(t, err)
		}
	})
}

func Test_commandLine_addUser(t *testing.T) {
	cli := setup(t)

	runCLITests(t, cli, []cliTest{
		{name: "no args", args: []string{"adduser"}, wantErr: errHelp},
		{name: "no name", args: []string{"adduser", "-account", "jerry"}, wantErr: errHelp},
		{name: "no password", args: []string{"adduser", "-name", "Jerry", "-account", "jerry"}, wantErr: errHelp},
		{name: "teacher", args: []string{"adduser", "-name", "Jerry", "-account", "jerry", "-teacher", "-email", "jerry@mdm.test"}, extra: "secret"},
		{name: "student", args: []string{"adduser", "-name", "Alice", "-account", "alice"}, extra: "secret"},
		{
			name: "account taken", args: []string{"adduser", "-name", "Tom", "-account", "jerry"}, extra: "secret",
			wantErrStr: "account already exists",
		},
	}, nil)

	tch, err := accRepo.GetTeacherByAccount(context.Background(), "jerry")
	require.NoError(t, err)
	assert.Equal(t, "jerry@mdm.test", tch.Email)
	_, err = accRepo.GetStudentByAccount(context.Background(), "alice")
	assert.NoError(t, err)
}

func Test_commandLine_seedAndReconcile(t *testing.T) {
	cli := setup(t)
	ctx := context.Background()

	runCLITests(t, cli, []cliTest{
		{name: "seed", args: []string{"seed", "-password", "demo"}},
		{name: "seed again", args: []string{"seed"}},
		{name: "reconcile", args: []string{"reconcile"}},
	}, nil)

	tch, err := cli.accSvc.AuthenticateTeacher(ctx, account.Credentials{Account: "teacher", Password: "demo"})
	require.NoError(t, err)
	classes, err := cli.classSvc.TeacherClasses(ctx, tch.ID)
	require.NoError(t, err)
	require.Len(t, classes, 1, "seeding twice creates nothing new")

	members, err := cli.classSvc.Students(ctx, tch.ID, classes[0].ID)
	require.NoError(t, err)
	assert.Len(t, members, len(seedStudents))
	assert.Equal(t, len(seedStudents), classes[0].StudentNum)
}
