package main

import (
	"context"
	"fmt"
	"strings"

	"github.com/pkg/errors"
	"github.com/samber/lo"

	"github.com/mathvision/mdm/core"
	"github.com/mathvision/mdm/core/account"
	"github.com/mathvision/mdm/core/classroom"
)

var seedStudents = []string{"Alice", "Bob", "Carol"}

// seed creates a demo teacher owning one class with a few students.
// Accounts that already exist are left alone.
func (cli *commandLine) seed(pwd string) error {
	ctx := context.Background()
	teacherFlag, studentFlag := 1, 0

	teacherID, err := cli.seedUser(ctx, account.NewUser{
		Name:      "Demo Teacher",
		Account:   "teacher",
		Password:  pwd,
		IfTeacher: &teacherFlag,
	})
	if err != nil {
		return err
	}
	if teacherID == 0 {
		fmt.Println("already seeded")
		return nil
	}

	studentIDs := make([]int, 0, len(seedStudents))
	for _, name := range seedStudents {
		id, err := cli.seedUser(ctx, account.NewUser{
			Name:      name,
			Account:   strings.ToLower(name),
			Password:  pwd,
			IfTeacher: &studentFlag,
		})
		if err != nil {
			return err
		}
		if id != 0 {
			studentIDs = append(studentIDs, id)
		}
	}

	cls, err := cli.classSvc.Create(ctx, teacherID, classroom.NewClass{Name: "Demo_Class", StudentNum: lo.ToPtr(0)})
	if err != nil {
		return errors.Wrap(err, "creating demo class")
	}
	for _, sid := range studentIDs {
		if err = cli.classSvc.AddStudent(ctx, teacherID, cls.ID, sid); err != nil {
			return errors.Wrap(err, "adding demo student")
		}
	}
	fmt.Printf("seeded teacher %d, class %d and %d students\n", teacherID, cls.ID, len(studentIDs))
	return nil
}

// seedUser registers nu and returns its id, or 0 when the account or name is taken.
func (cli *commandLine) seedUser(ctx context.Context, nu account.NewUser) (int, error) {
	id, err := cli.accSvc.Register(ctx, nu)
	if err != nil {
		if core.IsValidation(err) {
			return 0, nil
		}
		return 0, errors.Wrap(err, "seeding "+nu.Account)
	}
	return id, nil
}
