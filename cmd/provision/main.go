// Command provision applies migrations and creates staff accounts.
//
//	provision migrate [up|down|status|version|redo] [args...]
//	provision add-user -username alice -password secret123 -role admin
package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"

	"go.uber.org/zap"

	"github.com/noah-isme/school-admin-api/internal/models"
	"github.com/noah-isme/school-admin-api/internal/repository"
	"github.com/noah-isme/school-admin-api/internal/service"
	"github.com/noah-isme/school-admin-api/pkg/config"
	"github.com/noah-isme/school-admin-api/pkg/database"
	"github.com/noah-isme/school-admin-api/pkg/logger"
)

func main() {
	if len(os.Args) < 2 {
		usage()
		os.Exit(2)
	}

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}
	logr, err := logger.New(cfg)
	if err != nil {
		log.Fatalf("failed to init logger: %v", err)
	}
	defer logr.Sync() //nolint:errcheck

	ctx := context.Background()
	switch os.Args[1] {
	case "migrate":
		err = migrate(ctx, cfg, logr, os.Args[2:])
	case "add-user":
		err = addUser(ctx, cfg, logr, os.Args[2:])
	default:
		usage()
		os.Exit(2)
	}
	if err != nil {
		logr.Fatal("provision failed", zap.String("command", os.Args[1]), zap.Error(err))
	}
}

func usage() {
	fmt.Fprintln(os.Stderr, "usage: provision migrate [up|down|status|version|redo] | provision add-user -username NAME -password PASS -role admin|teacher")
}

func migrate(ctx context.Context, cfg *config.Config, logr *zap.Logger, args []string) error {
	command := "up"
	if len(args) > 0 {
		command, args = args[0], args[1:]
	}

	db, err := database.NewPostgres(ctx, cfg.Database)
	if err != nil {
		return err
	}
	defer db.Close()
	return database.Run(ctx, db, logr, command, args...)
}

func addUser(ctx context.Context, cfg *config.Config, logr *zap.Logger, args []string) error {
	fs := flag.NewFlagSet("add-user", flag.ContinueOnError)
	username := fs.String("username", "", "login name")
	password := fs.String("password", "", "password, at least 6 characters")
	role := fs.String("role", string(models.RoleTeacher), "admin or teacher")
	if err := fs.Parse(args); err != nil {
		return err
	}

	db, err := database.NewPostgres(ctx, cfg.Database)
	if err != nil {
		return err
	}
	defer db.Close()

	auth := service.NewAuthService(repository.NewUserRepository(db), nil, nil, nil, nil, logr, service.AuthConfig{})
	user, err := auth.CreateStaff(ctx, service.CreateStaffRequest{
		Username: *username,
		Password: *password,
		Role:     models.UserRole(*role),
	})
	if err != nil {
		return err
	}
	logr.Info("staff account created", zap.String("id", user.ID), zap.String("username", user.Username), zap.String("role", string(user.Role)))
	return nil
}
