package testutil

import (
	"context"
	"testing"
	"time"

	"github.com/trezcool/masomo/core"
	"github.com/trezcool/masomo/core/course"
	"github.com/trezcool/masomo/core/user"
)

// NewConfig returns a test configuration: PROD-like error rendering with
// test mode on.
func NewConfig() *core.Config {
	conf := core.NewConfig()
	conf.Debug = false
	conf.TestMode = true
	return conf
}

func CreateUser(
	t *testing.T,
	repo user.Repository,
	name, uname, email, pwd string,
	roles []string,
	isActive bool,
	createdAt ...time.Time,
) user.User {
	t.Helper()

	tstamp := time.Now().UTC()
	if len(createdAt) > 0 {
		tstamp = createdAt[0].UTC()
	}
	usr := user.User{
		Name:      name,
		Username:  uname,
		Email:     email,
		Roles:     roles,
		CreatedAt: tstamp,
		UpdatedAt: tstamp,
	}
	usr.SetActive(isActive)
	if pwd != "" {
		if err := usr.SetPassword(pwd); err != nil {
			t.Fatalf("CreateUser() failed: %v", err)
		}
	}
	usr, err := repo.CreateUser(context.Background(), usr)
	if err != nil {
		t.Fatalf("CreateUser() failed: %v", err)
	}
	return usr
}

func CreateCourse(t *testing.T, repo course.Repository, name, code string) course.Course {
	t.Helper()

	now := time.Now().UTC()
	crs, err := repo.CreateCourse(context.Background(), course.Course{
		Name:      name,
		Code:      code,
		CreatedAt: now,
		UpdatedAt: now,
	})
	if err != nil {
		t.Fatalf("CreateCourse() failed: %v", err)
	}
	return crs
}

func CreateContentUnit(t *testing.T, repo course.Repository, courseID, title string) course.ContentUnit {
	t.Helper()

	now := time.Now().UTC()
	unit, err := repo.CreateContentUnit(context.Background(), course.ContentUnit{
		CourseID:  courseID,
		Title:     title,
		CreatedAt: now,
		UpdatedAt: now,
	})
	if err != nil {
		t.Fatalf("CreateContentUnit() failed: %v", err)
	}
	return unit
}

func CreateResource(t *testing.T, repo course.Repository, title, kind string) course.Resource {
	t.Helper()

	now := time.Now().UTC()
	res, err := repo.CreateResource(context.Background(), course.Resource{
		Title:     title,
		Kind:      kind,
		CreatedAt: now,
		UpdatedAt: now,
	})
	if err != nil {
		t.Fatalf("CreateResource() failed: %v", err)
	}
	return res
}

func AttachResource(t *testing.T, repo course.Repository, unitID, resourceID string) {
	t.Helper()

	if err := repo.AttachResource(context.Background(), unitID, resourceID); err != nil {
		t.Fatalf("AttachResource() failed: %v", err)
	}
}
