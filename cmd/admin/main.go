// Package main provides group and staff management for Quill.
package main

import (
	"context"
	"fmt"
	"log"
	"os"
	"strings"

	"quill/internal/config"
	"quill/internal/database"
	"quill/internal/models"
	"quill/internal/repository"
	"quill/internal/service"

	"gopkg.in/yaml.v3"
	"gorm.io/gorm"
)

func usage() {
	fmt.Println("Usage:")
	fmt.Println("  admin create-group <slug> <title> [description]  - Create a group")
	fmt.Println("  admin list-groups                                 - List all groups")
	fmt.Println("  admin import-groups <file.yml>                    - Upsert groups from YAML")
	fmt.Println("  admin list-users                                  - List users and staff flags")
	fmt.Println("  admin promote <username>                          - Grant staff")
	fmt.Println("  admin demote <username>                           - Revoke staff")
}

func main() {
	if len(os.Args) < 2 {
		usage()
		os.Exit(1)
	}

	cfg, err := config.LoadConfig()
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	db, err := database.Connect(cfg)
	if err != nil {
		log.Fatalf("Failed to connect to database: %v", err)
	}

	if err := run(context.Background(), db, os.Args[1], os.Args[2:]); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func run(ctx context.Context, db *gorm.DB, command string, args []string) error {
	groups := service.NewGroupService(repository.NewGroupRepository(db))
	users := service.NewUserService(repository.NewUserRepository(db))

	switch command {
	case "create-group":
		if len(args) < 2 {
			return fmt.Errorf("usage: admin create-group <slug> <title> [description]")
		}
		in := service.CreateGroupInput{Slug: args[0], Title: args[1]}
		if len(args) > 2 {
			in.Description = strings.Join(args[2:], " ")
		}
		group, err := groups.CreateGroup(ctx, in)
		if err != nil {
			return err
		}
		fmt.Printf("Created group %q (ID: %d)\n", group.Slug, group.ID)

	case "list-groups":
		list, err := groups.ListGroups(ctx)
		if err != nil {
			return err
		}
		if len(list) == 0 {
			fmt.Println("No groups found")
			return nil
		}
		for _, g := range list {
			fmt.Printf("ID: %d | Slug: %s | Title: %s\n", g.ID, g.Slug, g.Title)
		}

	case "import-groups":
		if len(args) < 1 {
			return fmt.Errorf("usage: admin import-groups <file.yml>")
		}
		in, err := readGroups(args[0])
		if err != nil {
			return err
		}
		n, err := groups.ImportGroups(ctx, in)
		if err != nil {
			return fmt.Errorf("imported %d groups before failing: %w", n, err)
		}
		fmt.Printf("Imported %d groups\n", n)

	case "list-users":
		list, err := users.ListUsers(ctx, 200, 0)
		if err != nil {
			return err
		}
		for _, u := range list {
			fmt.Printf("ID: %d | Username: %s | Staff: %t\n", u.ID, u.Username, u.IsStaff)
		}

	case "promote", "demote":
		if len(args) < 1 {
			return fmt.Errorf("usage: admin %s <username>", command)
		}
		staff := command == "promote"
		if err := users.SetStaff(ctx, args[0], staff); err != nil {
			if models.IsNotFound(err) {
				return fmt.Errorf("user %q not found", args[0])
			}
			return err
		}
		fmt.Printf("Set staff=%t for %s\n", staff, args[0])

	default:
		usage()
		return fmt.Errorf("unknown command: %s", command)
	}
	return nil
}

// readGroups parses a YAML list of {slug, title, description} entries.
func readGroups(path string) ([]service.CreateGroupInput, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", path, err)
	}
	var in []service.CreateGroupInput
	if err := yaml.Unmarshal(raw, &in); err != nil {
		return nil, fmt.Errorf("parse %s: %w", path, err)
	}
	return in, nil
}
