// Command createsuperuser creates an admin account with the elevated system
// flag. The account logs in through the usual signup and token flow.
package main

import (
	"context"
	"errors"
	"fmt"
	"os"

	"github.com/spf13/pflag"

	"github.com/Slimpush/api-yamdb-final-master/pkg/config"
	"github.com/Slimpush/api-yamdb-final-master/pkg/database"
	"github.com/Slimpush/api-yamdb-final-master/pkg/logger"
	"github.com/Slimpush/api-yamdb-final-master/pkg/service"
	"github.com/Slimpush/api-yamdb-final-master/pkg/store"
	"github.com/Slimpush/api-yamdb-final-master/pkg/validation"
)

func main() {
	if err := run(os.Args[1:]); err != nil {
		fmt.Fprintln(os.Stderr, "createsuperuser:", err)
		os.Exit(1)
	}
}

func run(args []string) error {
	var username, email string
	flagSet := pflag.NewFlagSet("createsuperuser", pflag.ContinueOnError)
	flagSet.StringVarP(&username, "username", "u", "", "username of the new superuser")
	flagSet.StringVarP(&email, "email", "e", "", "email of the new superuser")
	if err := flagSet.Parse(args); err != nil {
		if errors.Is(err, pflag.ErrHelp) {
			return nil
		}
		return err
	}
	if username == "" || email == "" {
		return errors.New("both --username and --email are required")
	}

	cfg, err := config.Load()
	if err != nil {
		return err
	}
	log := logger.New(logger.Config{
		Format:      cfg.Logger.Format,
		Environment: cfg.App.Environment,
		Level:       logger.ParseLevel(cfg.Logger.Level),
	})

	db, err := database.Open(cfg.Database, log)
	if err != nil {
		return err
	}
	defer func() {
		if sqlDB, err := db.DB(); err == nil {
			_ = sqlDB.Close()
		}
	}()

	users := service.NewUserService(store.New(db), validation.New(), log)
	user, err := users.CreateSuperuser(context.Background(), service.CreateUserInput{
		Username: username,
		Email:    email,
	})
	if err != nil {
		return err
	}

	log.Info("superuser created", "user_id", user.ID, "username", user.Username)
	return nil
}
