// Command issue-token prints a session token for a user, for local testing
// against a running server.
package main

import (
	"flag"
	"fmt"
	"os"

	"github.com/simaogato/investdash-backend/internal/adapter/auth"
	"github.com/simaogato/investdash-backend/internal/config"
)

func main() {
	userID := flag.Int64("user", 1, "user id to embed in the token")
	subject := flag.String("subject", "", "external account id (telegram id)")
	flag.Parse()

	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Invalid configuration: %v\n", err)
		os.Exit(1)
	}

	token, err := auth.NewTokenManager(cfg.JWTSecret, cfg.TokenTTL).Issue(*userID, *subject)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to issue token: %v\n", err)
		os.Exit(1)
	}
	fmt.Println(token)
}
