// Package main provides admin management utilities for the arcade backend.
package main

import (
	"context"
	"fmt"
	"log"
	"os"
	"strconv"

	"arcade/internal/bootstrap"
	"arcade/internal/config"
	"arcade/internal/models"
	"arcade/internal/observability"
	"arcade/internal/repository"
	"arcade/internal/service"
)

func usage() {
	fmt.Println("Usage:")
	fmt.Println("  go run ./cmd/admin promote <profile_id>   - Promote profile to admin")
	fmt.Println("  go run ./cmd/admin demote <profile_id>    - Demote profile from admin")
	fmt.Println("  go run ./cmd/admin list-admins            - List all admins")
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

	ctx := observability.WithCorrelationID(context.Background(), observability.GenerateCorrelationID())
	rt, err := bootstrap.InitRuntime(ctx, cfg, bootstrap.Options{})
	if err != nil {
		log.Fatalf("Failed to open store: %v", err)
	}
	defer func() { _ = rt.Close(ctx) }()

	profiles := service.NewProfileService(repository.NewProfileRepository(rt.Store))

	command := os.Args[1]
	switch command {
	case "promote", "demote":
		if len(os.Args) < 3 {
			fmt.Printf("Usage: go run ./cmd/admin %s <profile_id>\n", command)
			os.Exit(1)
		}
		id, err := strconv.ParseUint(os.Args[2], 10, 64)
		if err != nil || id == 0 {
			fmt.Printf("Invalid profile ID %q\n", os.Args[2])
			os.Exit(1)
		}
		role := models.RoleAdmin
		if command == "demote" {
			role = models.RoleUser
		}
		if err := setRole(ctx, profiles, id, role); err != nil {
			log.Fatalf("Failed to %s profile: %v", command, err)
		}

	case "list-admins":
		if err := listAdmins(ctx, profiles); err != nil {
			log.Fatalf("Failed to fetch admins: %v", err)
		}

	default:
		fmt.Printf("Unknown command: %s\n", command)
		usage()
		os.Exit(1)
	}
}

func setRole(ctx context.Context, profiles *service.ProfileService, id uint64, role models.Role) error {
	profile, err := profiles.GetProfile(ctx, id)
	if err != nil {
		if models.IsNotFound(err) {
			fmt.Printf("Profile with ID %d not found\n", id)
			os.Exit(1)
		}
		return err
	}

	if profile.Role == role {
		fmt.Printf("Profile %s (ID: %d) already has role %s\n", profile.Nickname, profile.ID, role)
		return nil
	}

	if _, err := profiles.SetRole(ctx, id, role); err != nil {
		return err
	}
	fmt.Printf("Updated %s (ID: %d) to role %s\n", profile.Nickname, profile.ID, role)
	return nil
}

func listAdmins(ctx context.Context, profiles *service.ProfileService) error {
	admins, err := profiles.ListAdmins(ctx)
	if err != nil {
		return err
	}

	if len(admins) == 0 {
		fmt.Println("No admins found in the system")
		return nil
	}

	fmt.Println("\nCurrent Admins:")
	fmt.Println("─────────────────────────────────────")
	for _, admin := range admins {
		fmt.Printf("ID: %d | Nickname: %s | Identity: %s\n", admin.ID, admin.Nickname, admin.ExternalID)
	}
	fmt.Println("─────────────────────────────────────")
	return nil
}
