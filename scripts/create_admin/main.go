package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"os"
	"strings"

	"github.com/garnizeh/recruit/internal/auth"
	"github.com/garnizeh/recruit/internal/config"
	"github.com/garnizeh/recruit/internal/db"
	"github.com/garnizeh/recruit/internal/repository/sqlite"
	"github.com/garnizeh/recruit/pkg/models"
	"github.com/garnizeh/recruit/pkg/repository"
)

func main() {
	configPath := flag.String("config", "", "Path to config YAML file")
	username := flag.String("username", "", "Account username")
	password := flag.String("password", "", "Account password")
	role := flag.String("role", string(models.RoleAdmin), "admin or staff")
	flag.Parse()

	r := models.Role(*role)
	if r != models.RoleAdmin && r != models.RoleStaff {
		fmt.Fprintf(os.Stderr, "role must be admin or staff, got %q\n", *role)
		os.Exit(2)
	}
	name := strings.ToLower(strings.TrimSpace(*username))
	if name == "" || *password == "" {
		fmt.Fprintln(os.Stderr, "username and password are required")
		os.Exit(2)
	}

	cfg, err := config.LoadConfig(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Config error: %v\n", err)
		os.Exit(1)
	}

	hash, err := auth.HashPassword(*password)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Hash error: %v\n", err)
		os.Exit(1)
	}

	ctx := context.Background()
	database, err := db.New(ctx, cfg.DatabasePath, nil)
	if err != nil {
		fmt.Fprintf(os.Stderr, "DB error: %v\n", err)
		os.Exit(1)
	}
	defer database.Close()

	repo := sqlite.New(database, nil)
	id, err := repo.CreateAccount(ctx, &models.Account{Username: name, PasswordHash: hash, Role: r})
	if errors.Is(err, repository.ErrDuplicate) {
		fmt.Fprintf(os.Stderr, "account %q already exists\n", name)
		os.Exit(1)
	}
	if err != nil {
		fmt.Fprintf(os.Stderr, "Create error: %v\n", err)
		os.Exit(1)
	}

	fmt.Printf("Created %s account %q (id %d).\n", r, name, id)
}
