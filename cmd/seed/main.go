// Command seed loads a JSON fixture of users, teams and projects into the
// configured store.
//
//	seed fixtures/demo.json
//	DB_DRIVER=postgres DATABASE_URL=... seed fixtures/demo.json
package main

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"github.com/sakif/bounty-portal/internal/config"
	"github.com/sakif/bounty-portal/internal/logging"
	"github.com/sakif/bounty-portal/internal/seed"
	"github.com/sakif/bounty-portal/internal/server"
	"github.com/sakif/bounty-portal/internal/service"
)

var rootCmd = &cobra.Command{
	Use:   "seed <fixture.json>",
	Short: "Load users, teams and projects from a JSON fixture",
	Long: `Load a fixture into the store selected by DB_DRIVER.

Users are created through the same identity rules as /api/oauth/sync, so
their email domain must be allowed and handles are generated as usual.
Re-running with the same users reuses them; teams and projects are
inserted again.`,
	Args:          cobra.ExactArgs(1),
	SilenceUsage:  true,
	SilenceErrors: true,
	RunE:          runSeed,
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "seed:", err)
		os.Exit(1)
	}
}

func runSeed(cmd *cobra.Command, args []string) error {
	cfg, err := config.Load()
	if err != nil {
		return err
	}
	logger := logging.New(os.Stderr, cfg.LogLevel, cfg.LogFormat)

	f, err := os.Open(args[0])
	if err != nil {
		return fmt.Errorf("opening fixture: %w", err)
	}
	defer f.Close()

	fixture, err := seed.Decode(f)
	if err != nil {
		return err
	}

	ctx := cmd.Context()
	store, err := server.OpenStore(ctx, cfg, logger)
	if err != nil {
		return err
	}
	defer store.Close()

	identity := service.NewIdentityService(store, service.IdentityOptions{
		AllowedDomains:      cfg.AllowedEmailDomains,
		DefaultRole:         cfg.DefaultRole,
		MaxUsernameAttempts: cfg.MaxUsernameAttempts,
	}, logger)

	sum, err := seed.NewSeeder(identity, store, cfg.TeamVocabulary, cfg.ProjectType, logger).Apply(ctx, fixture)
	if err != nil {
		return err
	}

	fmt.Fprintf(cmd.OutOrStdout(), "users: %d created, %d existing; teams: %d; projects: %d\n",
		sum.UsersCreated, sum.UsersExisting, sum.Teams, sum.Projects)
	logger.Debug("seed finished", slog.String("fixture", args[0]))
	return nil
}
