package cmd

import (
	"encoding/json"
	"fmt"
	"text/tabwriter"

	"github.com/spf13/cobra"
)

func newRuleSetCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:     "ruleset",
		Aliases: []string{"rulesets"},
		Short:   "Manage stored rule sets",
	}

	var file string
	put := &cobra.Command{
		Use:   "put NAME",
		Short: "Validate and store a rule-set document",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			env, err := newServiceEnv(cmd)
			if err != nil {
				return err
			}
			defer env.Close()

			doc, err := readInput(cmd, file)
			if err != nil {
				return err
			}
			rec, err := env.service.PutRuleSet(cmd.Context(), args[0], doc)
			if err != nil {
				return exitForError(err)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "stored %s (%s)\n", rec.Name, rec.ID)
			return nil
		},
	}
	put.Flags().StringVarP(&file, "file", "f", "-", "rule-set file (JSON or YAML, - for stdin)")

	get := &cobra.Command{
		Use:   "get NAME",
		Short: "Print a stored rule-set document",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			env, err := newServiceEnv(cmd)
			if err != nil {
				return err
			}
			defer env.Close()

			rec, err := env.service.GetRuleSet(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), rec.Document)
			return nil
		},
	}

	var asJSON bool
	list := &cobra.Command{
		Use:   "list",
		Short: "List stored rule sets",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			env, err := newServiceEnv(cmd)
			if err != nil {
				return err
			}
			defer env.Close()

			recs, err := env.service.ListRuleSets(cmd.Context())
			if err != nil {
				return err
			}
			if asJSON {
				return json.NewEncoder(cmd.OutOrStdout()).Encode(recs)
			}
			w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
			fmt.Fprintln(w, "NAME\tID\tUPDATED")
			for _, rec := range recs {
				fmt.Fprintf(w, "%s\t%s\t%s\n", rec.Name, rec.ID, rec.UpdatedAt.Format("2006-01-02T15:04:05Z07:00"))
			}
			return w.Flush()
		},
	}
	list.Flags().BoolVar(&asJSON, "json", false, "print JSON")

	del := &cobra.Command{
		Use:   "delete NAME",
		Short: "Delete a stored rule set",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			env, err := newServiceEnv(cmd)
			if err != nil {
				return err
			}
			defer env.Close()

			if err := env.service.DeleteRuleSet(cmd.Context(), args[0]); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "deleted %s\n", args[0])
			return nil
		},
	}

	cmd.AddCommand(put, get, list, del)
	return cmd
}
