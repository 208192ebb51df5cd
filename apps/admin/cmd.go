package main

import (
	"errors"
	"flag"
	"fmt"
	"syscall"

	"github.com/jmoiron/sqlx"
	"golang.org/x/term"

	"github.com/mathvision/mdm/core"
	"github.com/mathvision/mdm/core/account"
	"github.com/mathvision/mdm/core/classroom"
)

var (
	readPasswordFunc = term.ReadPassword // mockable

	errHelp = errors.New("help provided")
)

type commandLine struct {
	db       *sqlx.DB
	conf     *core.Config
	accSvc   *account.Service
	classSvc *classroom.Service
}

func (cli *commandLine) printUsage() {
	fmt.Println("Usage:")
	fmt.Println("  migrate COMMAND [ARGS] - run a goose command (up, down, status, version, ...)")
	fmt.Println("  resetpassword -account ACCOUNT - reset a student's or teacher's password")
	fmt.Println("  adduser -name NAME -account ACCOUNT [-teacher] [-email EMAIL] - create a student or a teacher")
	fmt.Println("  seed [-password PASSWORD] - create a demo teacher with a class of students")
	fmt.Println("  reconcile - recompute every class student counter")
}

// readPassword prompts for a password on the terminal.
func readPassword(fs *flag.FlagSet) (string, error) {
	fmt.Print("Enter password:")
	pwd, err := readPasswordFunc(int(syscall.Stdin))
	fmt.Println()
	if err != nil {
		return "", err
	}
	if len(pwd) == 0 {
		fs.Usage()
		return "", errHelp
	}
	return string(pwd), nil
}

func (cli *commandLine) run(args []string) error {
	if len(args) < 2 {
		cli.printUsage()
		return errHelp
	}

	resetPasswordCmd := flag.NewFlagSet("resetpassword", flag.ContinueOnError)
	resetPasswordAcc := resetPasswordCmd.String("account", "", "The account of the student or teacher. The password will be prompted next.")

	addUserCmd := flag.NewFlagSet("adduser", flag.ContinueOnError)
	addUserName := addUserCmd.String("name", "", "The display name (must be unique).")
	addUserAcc := addUserCmd.String("account", "", "The login account (must be unique). The password will be prompted next.")
	addUserTeacher := addUserCmd.Bool("teacher", false, "Create a teacher instead of a student.")
	addUserEmail := addUserCmd.String("email", "", "The teacher's email.")

	seedCmd := flag.NewFlagSet("seed", flag.ContinueOnError)
	seedPwd := seedCmd.String("password", "mdm", "The password of every seeded account.")

	switch args[1] {
	case "migrate":
		if len(args) < 3 {
			cli.printUsage()
			return errHelp
		}
		return cli.migrate(args[2:])
	case "resetpassword":
		if err := resetPasswordCmd.Parse(args[2:]); err != nil {
			return err
		}
		if *resetPasswordAcc == "" {
			resetPasswordCmd.Usage()
			return errHelp
		}
		pwd, err := readPassword(resetPasswordCmd)
		if err != nil {
			return err
		}
		return cli.resetPassword(*resetPasswordAcc, pwd)
	case "adduser":
		if err := addUserCmd.Parse(args[2:]); err != nil {
			return err
		}
		if *addUserName == "" || *addUserAcc == "" {
			addUserCmd.Usage()
			return errHelp
		}
		pwd, err := readPassword(addUserCmd)
		if err != nil {
			return err
		}
		return cli.addUser(*addUserName, *addUserAcc, *addUserEmail, pwd, *addUserTeacher)
	case "seed":
		if err := seedCmd.Parse(args[2:]); err != nil {
			return err
		}
		return cli.seed(*seedPwd)
	case "reconcile":
		return cli.reconcile()
	default:
		cli.printUsage()
		return errHelp
	}
}
