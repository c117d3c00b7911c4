package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/solatis/fieldcheck/internal/core/db"
)

func newMigrateCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "migrate",
		Short: "Manage the database schema",
	}

	run := func(name string, fn func(string) error) *cobra.Command {
		return &cobra.Command{
			Use:   name,
			Short: fmt.Sprintf("Apply %s migrations", name),
			Args:  cobra.NoArgs,
			RunE: func(cmd *cobra.Command, args []string) error {
				url, err := requireDBURL(cmd)
				if err != nil {
					return err
				}
				if err := fn(url); err != nil {
					return err
				}
				return printStatus(cmd, url)
			},
		}
	}

	status := &cobra.Command{
		Use:   "status",
		Short: "Show the schema version",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			url, err := requireDBURL(cmd)
			if err != nil {
				return err
			}
			return printStatus(cmd, url)
		},
	}

	cmd.AddCommand(run("up", db.MigrateUp), run("down", db.MigrateDown), status)
	return cmd
}

func requireDBURL(cmd *cobra.Command) (string, error) {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return "", err
	}
	if cfg.DatabaseURL == "" {
		return "", fmt.Errorf("--db-url or FC_SERVICE_DB_URL required")
	}
	return cfg.DatabaseURL, nil
}

func printStatus(cmd *cobra.Command, url string) error {
	st, err := db.MigrateStatus(url)
	if err != nil {
		return err
	}
	state := "up to date"
	switch {
	case st.Dirty:
		state = "dirty"
	case st.Pending():
		state = "pending"
	}
	fmt.Fprintf(cmd.OutOrStdout(), "version %d of %d (%s)\n", st.Version, st.Latest, state)
	return nil
}
