package main

import (
	"github.com/spf13/cobra"

	auth "github.com/edutrial/go-auth"
)

// NewSeedCmd creates the seed subcommand.
func NewSeedCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "seed",
		Short: "Seed roles and bootstrap accounts",
		Long: `Create the predefined roles and the administrator account. With
--seed-demo-accounts the demo accounts for each role are created too.
Existing rows are left untouched.`,
		RunE: runSeed,
	}
}

func runSeed(cmd *cobra.Command, _ []string) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	log, err := newLogrus(cfg.Log)
	if err != nil {
		return err
	}
	logger := auth.NewLogrusLogger(log, "seed")

	db, err := openDatabase(cmd, cfg, logger.Named("db"))
	if err != nil {
		return err
	}
	defer db.Close()

	seeder := auth.NewSeeder(auth.NewRepositoryManager(db), nil).WithLogger(logger)
	if err := seeder.SeedRoles(cmd.Context()); err != nil {
		return err
	}

	seeds := []auth.SeedAccount{cfg.AdminAccount()}
	if cfg.Seed.DemoAccounts {
		seeds = append(seeds, auth.DemoAccounts()...)
	}
	if err := seeder.EnsureAccounts(cmd.Context(), seeds...); err != nil {
		return err
	}

	cmd.Printf("Seeded %d roles and %d accounts\n", len(auth.PredefinedRoles()), len(seeds))
	return nil
}
