// Package main provides the entry point for the application with CLI commands.
package main

import (
	"context"
	"log/slog"
	"os"

	"github.com/urfave/cli/v3"

	"github.com/JDIVE/google-workspace-remote-mcp/cmd/app/commands"
)

const version = "1.0.0"

func main() {
	cmd := &cli.Command{
		Name:    "app",
		Usage:   "Workspace gateway credential and session service",
		Version: version,
		Commands: []*cli.Command{
			{
				Name:  "server",
				Usage: "Start the HTTP server",
				Action: func(ctx context.Context, cmd *cli.Command) error {
					return commands.RunServer(ctx, version)
				},
			},
			{
				Name:  "migrate",
				Usage: "Run database migrations for the SQL-backed store",
				Action: func(ctx context.Context, cmd *cli.Command) error {
					return commands.RunMigrations()
				},
			},
			{
				Name:  "generate-credential-key",
				Usage: "Generate a new credential encryption key",
				Flags: []cli.Flag{
					&cli.IntFlag{
						Name:    "version",
						Aliases: []string{"v"},
						Value:   1,
						Usage:   "Version tag for the new key (must exceed the current key's version when rotating)",
					},
					&cli.StringFlag{
						Name:  "kms-key-uri",
						Value: "",
						Usage: "KMS key URI to wrap the generated key (omit for plain base64 output)",
					},
				},
				Action: func(ctx context.Context, cmd *cli.Command) error {
					return commands.RunGenerateCredentialKey(ctx, int(cmd.Int("version")), cmd.String("kms-key-uri"))
				},
			},
			{
				Name:  "generate-session-secret",
				Usage: "Generate a new session token signing secret",
				Action: func(ctx context.Context, cmd *cli.Command) error {
					return commands.RunGenerateSessionSecret()
				},
			},
			{
				Name:  "rotate-credential-keys",
				Usage: "Re-encrypt all stored credential records under the current key",
				Flags: []cli.Flag{
					&cli.IntFlag{
						Name:    "concurrency",
						Aliases: []string{"c"},
						Value:   4,
						Usage:   "Number of records rotated in parallel",
					},
				},
				Action: func(ctx context.Context, cmd *cli.Command) error {
					return commands.RunRotateCredentialKeys(ctx, int(cmd.Int("concurrency")))
				},
			},
			{
				Name:  "clean-expired",
				Usage: "Remove expired entries from the SQL-backed store",
				Action: func(ctx context.Context, cmd *cli.Command) error {
					return commands.RunCleanExpired(ctx)
				},
			},
		},
	}

	if err := cmd.Run(context.Background(), os.Args); err != nil {
		slog.Error("application error", slog.Any("error", err))
		os.Exit(1)
	}
}
