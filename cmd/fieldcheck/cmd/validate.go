package cmd

import (
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/solatis/fieldcheck/internal/core/api"
)

func newValidateCmd() *cobra.Command {
	var (
		dataPath  string
		rulesPath string
		ruleSet   string
		allow     []string
	)

	cmd := &cobra.Command{
		Use:   "validate",
		Short: "Validate a record against a rule set",
		Long: `Validate a JSON or YAML record against inline rules (--rules) or a stored
rule set (--rule-set). Prints {"validate": bool, "message": string}.
Exits 1 when the record fails and 2 on a configuration error.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if (rulesPath == "") == (ruleSet == "") {
				return &ExitError{Code: ExitConfig, Err: fmt.Errorf("exactly one of --rules or --rule-set is required")}
			}

			env, err := newServiceEnv(cmd)
			if err != nil {
				return exitForError(err)
			}
			defer env.Close()

			data, err := readInput(cmd, dataPath)
			if err != nil {
				return &ExitError{Code: ExitConfig, Err: err}
			}
			req := api.ValidateRequest{
				Data:          data,
				RuleSet:       ruleSet,
				AllowedFields: allow,
				Locale:        env.cfg.Locale,
			}
			if rulesPath != "" {
				if req.Rules, err = readInput(cmd, rulesPath); err != nil {
					return &ExitError{Code: ExitConfig, Err: err}
				}
			}

			resp, err := env.service.Validate(cmd.Context(), req)
			if err != nil {
				return exitForError(err)
			}

			enc := json.NewEncoder(cmd.OutOrStdout())
			if err := enc.Encode(resp); err != nil {
				return err
			}
			if !resp.Validate {
				return &ExitError{Code: ExitInvalid}
			}
			return nil
		},
	}

	cmd.Flags().StringVar(&dataPath, "data", "", "record file (JSON or YAML, - for stdin)")
	cmd.Flags().StringVar(&rulesPath, "rules", "", "rule-set file (JSON or YAML)")
	cmd.Flags().StringVar(&ruleSet, "rule-set", "", "name of a stored rule set")
	cmd.Flags().StringSliceVar(&allow, "allow", nil, "allowed field names (comma separated)")
	_ = cmd.MarkFlagRequired("data")
	return cmd
}
