package testutil

import (
	"context"
	"testing"
	"time"

	"github.com/mathvision/mdm/core/account"
	"github.com/mathvision/mdm/core/classroom"
)

func CreateStudent(t *testing.T, repo account.Repository, name, acc, pwd string) account.Student {
	t.Helper()
	s := account.Student{
		Name:      name,
		Account:   acc,
		Birth:     "2010-01-01",
		Gender:    "F",
		CreatedAt: time.Now().UTC(),
	}
	if err := s.SetPassword(pwd); err != nil {
		t.Fatalf("CreateStudent(): %v", err)
	}
	s, err := repo.CreateStudent(context.Background(), s)
	if err != nil {
		t.Fatalf("CreateStudent(): %v", err)
	}
	return s
}

func CreateTeacher(t *testing.T, repo account.Repository, name, acc, pwd string, email ...string) account.Teacher {
	t.Helper()
	tchr := account.Teacher{
		Name:      name,
		Account:   acc,
		Birth:     "1985-06-15",
		Gender:    "M",
		CreatedAt: time.Now().UTC(),
	}
	if len(email) > 0 {
		tchr.Email = email[0]
	}
	if err := tchr.SetPassword(pwd); err != nil {
		t.Fatalf("CreateTeacher(): %v", err)
	}
	tchr, err := repo.CreateTeacher(context.Background(), tchr)
	if err != nil {
		t.Fatalf("CreateTeacher(): %v", err)
	}
	return tchr
}

func CreateClass(t *testing.T, repo classroom.Repository, teacherID int, name string, studentIDs ...int) classroom.Class {
	t.Helper()
	ctx := context.Background()
	cls, err := repo.CreateClass(ctx, classroom.Class{Name: name, CreatedAt: time.Now().UTC()}, teacherID)
	if err != nil {
		t.Fatalf("CreateClass(): %v", err)
	}
	for _, sid := range studentIDs {
		if err = repo.AddStudent(ctx, cls.ID, sid, time.Now().UTC()); err != nil {
			t.Fatalf("CreateClass(): %v", err)
		}
	}
	if cls, err = repo.GetClass(ctx, cls.ID); err != nil {
		t.Fatalf("CreateClass(): %v", err)
	}
	return cls
}
