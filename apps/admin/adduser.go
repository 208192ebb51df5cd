package main

import (
	"context"
	"fmt"

	"github.com/mathvision/mdm/core/account"
)

// addUser registers a Student, or a Teacher when isTeacher is set.
func (cli *commandLine) addUser(name, acc, email, pwd string, isTeacher bool) error {
	ifTeacher := 0
	if isTeacher {
		ifTeacher = 1
	}
	nu := account.NewUser{
		Name:      name,
		Account:   acc,
		Password:  pwd,
		IfTeacher: &ifTeacher,
		Email:     email,
	}
	nu.Clean()

	id, err := cli.accSvc.Register(context.Background(), nu)
	if err != nil {
		return err
	}
	fmt.Printf("created %s %q with id %d\n", roleName(isTeacher), nu.Account, id)
	return nil
}

func roleName(isTeacher bool) string {
	if isTeacher {
		return account.RoleTeacher
	}
	return account.RoleStudent
}
