package main

import (
	"context"
	"errors"

	"github.com/iliyamo/asistetec/internal/auth"
	"github.com/iliyamo/asistetec/internal/config"
	"github.com/iliyamo/asistetec/internal/handler"
	"github.com/iliyamo/asistetec/internal/logging"
	"github.com/iliyamo/asistetec/internal/model"
	"github.com/iliyamo/asistetec/internal/repository"
)

type userCreator interface {
	Create(ctx context.Context, u model.NewUser) (int64, error)
}

// seedAdmin creates the configured Administrador.  An existing account with
// the same email is left untouched.
func seedAdmin(ctx context.Context, users userCreator, hasher handler.PasswordHasher, ac config.AdminConfig, log logging.Logger) error {
	hash, err := hasher.Hash(ac.Password)
	if err != nil {
		return err
	}
	id, err := users.Create(ctx, model.NewUser{
		Email: ac.Email, PasswordHash: hash, Name: ac.Name, Role: auth.RoleAdmin.String(),
	})
	if errors.Is(err, repository.ErrEmailExists) {
		log.Info(ctx, "administrator already present", "correo", ac.Email)
		return nil
	}
	if err != nil {
		return err
	}
	log.Info(ctx, "administrator created", "user_id", id, "correo", ac.Email)
	return nil
}
