package main

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/mazoezi/backend/core"
	"github.com/mazoezi/backend/core/user"
)

// addSuperAdmin creates a SUPER_ADMIN account, or promotes the existing
// account with that email and resets its password.
func (cli *commandLine) addSuperAdmin(name, email, pwd string) error {
	ctx := context.Background()
	name = core.CleanString(name)
	email = core.CleanString(email, true /* lower */)

	usr, err := cli.usrRepo.GetUserByEmail(ctx, email)
	if err != nil {
		if err != user.ErrNotFound {
			return err
		}
		now := time.Now().UTC()
		usr = user.User{
			ID:        uuid.New().String(),
			Name:      name,
			Email:     email,
			Role:      user.RoleSuperAdmin,
			Status:    user.StatusActive,
			CreatedAt: now,
			UpdatedAt: now,
		}
		if err := usr.SetPassword(pwd); err != nil {
			return err
		}
		_, err = cli.usrRepo.CreateUser(ctx, usr)
		return err
	}

	// carry the promoted role and status forward so the final update
	// does not write the pre-fetch values back
	if usr, err = cli.usrRepo.SetUserRole(ctx, usr.ID, user.RoleSuperAdmin, ""); err != nil {
		return err
	}
	if usr, err = cli.usrRepo.SetUserStatus(ctx, usr.ID, user.StatusActive); err != nil {
		return err
	}
	if err := usr.SetPassword(pwd); err != nil {
		return err
	}
	usr.UpdatedAt = time.Now().UTC()
	_, err = cli.usrRepo.UpdateUser(ctx, usr)
	return err
}
