package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"time"

	"github.com/Adithya-Monish-Kumar-K/rarematch/internal/auth/token"
	"github.com/Adithya-Monish-Kumar-K/rarematch/pkg/config"
	"github.com/Adithya-Monish-Kumar-K/rarematch/pkg/logger"
	"github.com/Adithya-Monish-Kumar-K/rarematch/pkg/postgres"
)

// auth is a CLI tool for managing API tokens.
//
// Usage:
//
//	auth issue   --user <user-id> --name "frontend" [--rate-limit 60] [--expires-in 720h]
//	auth revoke  --token <raw-token>
//	auth list    [--user <user-id>]
func main() {
	configPath := flag.String("config", "configs/development.yaml", "path to config file")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load config: %v\n", err)
		os.Exit(1)
	}

	logger.Setup(cfg.Logging.Level, cfg.Logging.Format)

	args := flag.Args()
	if len(args) == 0 {
		printUsage()
		os.Exit(1)
	}

	db, err := postgres.New(cfg.Postgres)
	if err != nil {
		slog.Error("failed to connect to postgres", "error", err)
		os.Exit(1)
	}
	defer db.Close()

	verifier := token.NewVerifier(db)
	ctx := context.Background()

	switch args[0] {
	case "issue":
		err = cmdIssue(ctx, verifier, cfg.Auth.DefaultRateLimit, args[1:])
	case "revoke":
		err = cmdRevoke(ctx, verifier, args[1:])
	case "list":
		err = cmdList(ctx, verifier, args[1:])
	default:
		fmt.Fprintf(os.Stderr, "unknown command: %s\n", args[0])
		printUsage()
		os.Exit(1)
	}
	if err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

func cmdIssue(ctx context.Context, v *token.Verifier, defaultRate int, args []string) error {
	fs := flag.NewFlagSet("issue", flag.ExitOnError)
	userID := fs.String("user", "", "user id the token acts as")
	name := fs.String("name", "", "name for the token")
	rateLimit := fs.Int("rate-limit", defaultRate, "requests per rate-limit window")
	expiresIn := fs.Duration("expires-in", 0, "expiry duration, e.g. 720h (optional)")
	fs.Parse(args)

	if *userID == "" || *name == "" {
		return fmt.Errorf("--user and --name are required")
	}

	var expiresAt *time.Time
	if *expiresIn > 0 {
		t := time.Now().Add(*expiresIn)
		expiresAt = &t
	}

	raw, err := v.Issue(ctx, *userID, *name, *rateLimit, expiresAt)
	if err != nil {
		return err
	}

	fmt.Println("API token issued. Store it securely, it cannot be retrieved again.")
	fmt.Println()
	fmt.Printf("  Token:      %s\n", raw)
	fmt.Printf("  User:       %s\n", *userID)
	fmt.Printf("  Name:       %s\n", *name)
	fmt.Printf("  Rate Limit: %d req/window\n", *rateLimit)
	if expiresAt != nil {
		fmt.Printf("  Expires:    %s\n", expiresAt.Format(time.RFC3339))
	} else {
		fmt.Println("  Expires:    never")
	}
	return nil
}

func cmdRevoke(ctx context.Context, v *token.Verifier, args []string) error {
	fs := flag.NewFlagSet("revoke", flag.ExitOnError)
	raw := fs.String("token", "", "raw api token to revoke")
	fs.Parse(args)

	if *raw == "" {
		return fmt.Errorf("--token is required")
	}
	if err := v.Revoke(ctx, *raw); err != nil {
		return err
	}
	fmt.Println("API token revoked.")
	return nil
}

func cmdList(ctx context.Context, v *token.Verifier, args []string) error {
	fs := flag.NewFlagSet("list", flag.ExitOnError)
	userID := fs.String("user", "", "only list tokens of this user")
	fs.Parse(args)

	tokens, err := v.List(ctx, *userID)
	if err != nil {
		return err
	}
	if len(tokens) == 0 {
		fmt.Println("No active API tokens.")
		return nil
	}

	fmt.Printf("%-8s  %-24s  %-20s  %-10s  %s\n", "ID", "User", "Name", "Rate Limit", "Expires")
	for _, t := range tokens {
		expires := "never"
		if t.ExpiresAt != nil {
			expires = t.ExpiresAt.Format(time.RFC3339)
		}
		fmt.Printf("%-8s  %-24s  %-20s  %-10d  %s\n", t.TokenID, t.UserID, t.Name, t.RateLimit, expires)
	}
	fmt.Printf("\nTotal: %d active token(s)\n", len(tokens))
	return nil
}

func printUsage() {
	fmt.Fprintln(os.Stderr, "Usage: auth <command> [flags]")
	fmt.Fprintln(os.Stderr, "")
	fmt.Fprintln(os.Stderr, "Commands:")
	fmt.Fprintln(os.Stderr, "  issue    Issue a new API token for a user")
	fmt.Fprintln(os.Stderr, "  revoke   Revoke an API token")
	fmt.Fprintln(os.Stderr, "  list     List active API tokens")
	fmt.Fprintln(os.Stderr, "")
	fmt.Fprintln(os.Stderr, "Examples:")
	fmt.Fprintln(os.Stderr, `  auth issue --user 7f3c... --name "frontend" --rate-limit 60 --expires-in 720h`)
	fmt.Fprintln(os.Stderr, `  auth revoke --token "rm_abc123..."`)
	fmt.Fprintln(os.Stderr, `  auth list --user 7f3c...`)
}
