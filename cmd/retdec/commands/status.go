package commands

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/spf13/cobra"
)

func newStatusCmd(root *rootOptions) *cobra.Command {
	var asJSON bool

	cmd := &cobra.Command{
		Use:   "status ID",
		Short: "Show the status of a decompilation",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			decompiler, err := root.newDecompiler(cmd)
			if err != nil {
				return err
			}
			defer decompiler.Close()

			d := decompiler.Decompilation(args[0])
			status, err := d.GetStatusWithContext(cmd.Context())
			if err != nil {
				return fmt.Errorf("error fetching status: %w", err)
			}

			if asJSON {
				prettyJSON, err := json.MarshalIndent(status, "", "  ")
				if err != nil {
					return fmt.Errorf("error formatting response: %w", err)
				}
				fmt.Fprintln(cmd.OutOrStdout(), string(prettyJSON))
				return nil
			}

			out := newPrinter(cmd.OutOrStdout())
			out.field("ID", d.ID())
			out.field("State", stateOf(status))
			out.field("Completion", fmt.Sprintf("%s %d%%", progressBar(status.Completion, progressWidth), status.Completion))
			if status.Error != "" {
				out.field("Error", status.Error)
			}
			for _, phase := range status.Phases {
				line := fmt.Sprintf("%3d%% %s", phase.Completion, phase.Name)
				if phase.Description != "" {
					line += " - " + phase.Description
				}
				if len(phase.Warnings) > 0 {
					line += " (warnings: " + strings.Join(phase.Warnings, "; ") + ")"
				}
				out.field("Phase", line)
			}
			return nil
		},
	}

	cmd.Flags().BoolVar(&asJSON, "json", false, "Print the raw status document as JSON")
	return cmd
}
