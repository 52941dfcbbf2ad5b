package commands

import (
	"fmt"

	"github.com/spf13/cobra"
)

func newDownloadCmd(root *rootOptions) *cobra.Command {
	var outputDir string

	cmd := &cobra.Command{
		Use:   "download ID",
		Short: "Download the decompiled output of a finished decompilation",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			decompiler, err := root.newDecompiler(cmd)
			if err != nil {
				return err
			}
			defer decompiler.Close()

			d := decompiler.Decompilation(args[0])
			path, err := d.SaveOutputHLLWithContext(cmd.Context(), outputDir)
			if err != nil {
				return fmt.Errorf("error downloading output: %w", err)
			}
			newPrinter(cmd.OutOrStdout()).ok("saved %s (%s)", path, formatSize(fileSize(path)))
			return nil
		},
	}

	cmd.Flags().StringVarP(&outputDir, "output-dir", "o", ".", "Directory to save the decompiled output in")
	return cmd
}
