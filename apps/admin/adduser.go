package main

import (
	"context"

	"github.com/trezcool/masomo/core"
	"github.com/trezcool/masomo/core/user"
)

// addUser creates the user, or updates the existing one matched by username
// or email.
func (cli *commandLine) addUser(uname, email, pwd string, isAdmin bool) error {
	ctx := context.Background()
	uname = core.CleanString(uname, true /* lower */)
	email = core.CleanString(email, true /* lower */)

	usr, err := cli.usrRepo.GetUser(ctx, user.GetFilter{UsernameOrEmail: []string{uname, email}})
	switch err {
	case nil:
	case user.ErrNotFound:
		usr = user.User{Username: uname, Email: email}
	default:
		return err
	}

	if isAdmin {
		usr.Roles = user.AllRoles
	}
	usr.SetActive(true)
	if err = usr.SetPassword(pwd); err != nil {
		return err
	}
	_, err = cli.usrRepo.UpdateOrCreateUser(ctx, usr)
	return err
}
