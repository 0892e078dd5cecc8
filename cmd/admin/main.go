package main

import (
	"context"
	"fmt"
	"os"
	"strconv"

	"camerashop/backend/internal/auth"
	"camerashop/backend/internal/chat"
	"camerashop/backend/internal/config"
	"camerashop/backend/internal/logging"
	"camerashop/backend/internal/models"
	"camerashop/backend/internal/storage"
)

const usage = `Usage: admin <command> [args]

Commands:
  create-user <fullName> <email> <password> [USER|ADMIN]
  issue-token <userId>
  close-room <roomKey>
  unread <roomKey>`

func main() {
	if len(os.Args) < 2 {
		fmt.Println(usage)
		os.Exit(1)
	}

	cfg, err := config.Load()
	if err != nil {
		logging.Fatal().Err(err).Msg("failed to load configuration")
	}
	logging.Init(logging.Config{Level: "warn", Format: "console"})

	store, err := storage.Open(cfg.Database.DSN)
	if err != nil {
		logging.Fatal().Err(err).Msg("failed to open database")
	}
	ctx := context.Background()
	args := os.Args[2:]

	switch os.Args[1] {
	case "create-user":
		if len(args) < 3 || len(args) > 4 {
			fmt.Println("Usage: admin create-user <fullName> <email> <password> [USER|ADMIN]")
			os.Exit(1)
		}
		role := models.RoleUser
		if len(args) == 4 {
			role = models.Role(args[3])
		}
		user, err := createUser(ctx, store, args[0], args[1], args[2], role)
		if err != nil {
			logging.Fatal().Err(err).Msg("error creating user")
		}
		fmt.Printf("User %s created with id %d.\n", user.FullName, user.ID)

	case "issue-token":
		if len(args) != 1 {
			fmt.Println("Usage: admin issue-token <userId>")
			os.Exit(1)
		}
		userID, err := strconv.ParseUint(args[0], 10, 64)
		if err != nil {
			fmt.Println("Invalid user id. Please provide a positive integer.")
			os.Exit(1)
		}
		tokens := auth.NewTokenService(cfg.JWT.Secret, cfg.JWT.Expiration)
		token, err := issueToken(ctx, store, tokens, uint(userID))
		if err != nil {
			logging.Fatal().Err(err).Msg("error issuing token")
		}
		fmt.Println(token)

	case "close-room":
		if len(args) != 1 {
			fmt.Println("Usage: admin close-room <roomKey>")
			os.Exit(1)
		}
		if err := chat.NewService(store, nil).CloseRoom(ctx, args[0]); err != nil {
			logging.Fatal().Err(err).Msg("error closing room")
		}
		fmt.Printf("Room %s has been closed.\n", args[0])

	case "unread":
		if len(args) != 1 {
			fmt.Println("Usage: admin unread <roomKey>")
			os.Exit(1)
		}
		n, err := chat.NewService(store, nil).UnreadBySession(ctx, args[0])
		if err != nil {
			logging.Fatal().Err(err).Msg("error counting unread messages")
		}
		fmt.Printf("Room %s has %d unread message(s).\n", args[0], n)

	default:
		fmt.Println("Unknown command")
		fmt.Println(usage)
		os.Exit(1)
	}
}
