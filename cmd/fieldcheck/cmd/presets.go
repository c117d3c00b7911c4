package cmd

import (
	"fmt"

	"github.com/spf13/cobra"
)

func newPresetsCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "presets",
		Short: "List the effective custom presets",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			env, err := newServiceEnv(cmd)
			if err != nil {
				return err
			}
			defer env.Close()

			for _, name := range env.service.Presets() {
				fmt.Fprintln(cmd.OutOrStdout(), name)
			}
			return nil
		},
	}

	var file string
	put := &cobra.Command{
		Use:   "put NAME",
		Short: "Store a custom preset (a single field-rule document)",
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
			if _, err := env.service.PutPreset(cmd.Context(), args[0], doc); err != nil {
				return exitForError(err)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "stored preset %s\n", args[0])
			return nil
		},
	}
	put.Flags().StringVarP(&file, "file", "f", "-", "preset file (JSON or YAML, - for stdin)")

	del := &cobra.Command{
		Use:   "delete NAME",
		Short: "Delete a stored custom preset",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			env, err := newServiceEnv(cmd)
			if err != nil {
				return err
			}
			defer env.Close()

			if err := env.service.DeletePreset(cmd.Context(), args[0]); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "deleted preset %s\n", args[0])
			return nil
		},
	}

	cmd.AddCommand(put, del)
	return cmd
}
