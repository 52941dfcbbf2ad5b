package commands

import (
	"errors"
	"fmt"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	retdec "github.com/retdec/retdec-golang"
)

type decompileOptions struct {
	mode      string
	params    map[string]string
	outputDir string
	interval  time.Duration
	quiet     bool
}

func newDecompileCmd(root *rootOptions) *cobra.Command {
	opts := &decompileOptions{}

	cmd := &cobra.Command{
		Use:   "decompile FILE",
		Short: "Decompile a binary or C source file and save the output",
		Example: `  retdec decompile prog.exe
  retdec decompile --mode c -p target_language=py -o out/ prog.c`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runDecompile(cmd, root, opts, args[0])
		},
	}

	cmd.Flags().StringVarP(&opts.mode, "mode", "m", "", "Decompilation mode: c or bin (inferred from the file name when empty)")
	cmd.Flags().StringToStringVarP(&opts.params, "param", "p", nil, "Extra decompilation parameter as key=value")
	cmd.Flags().StringVarP(&opts.outputDir, "output-dir", "o", ".", "Directory to save the decompiled output in")
	cmd.Flags().DurationVar(&opts.interval, "interval", 0, "Pause between status checks (default from RETDEC_WAIT_INTERVAL or 5s)")
	cmd.Flags().BoolVarP(&opts.quiet, "quiet", "q", false, "Do not print progress")

	return cmd
}

func runDecompile(cmd *cobra.Command, root *rootOptions, opts *decompileOptions, input string) error {
	ctx := cmd.Context()
	log := root.logger()
	out := newPrinter(cmd.OutOrStdout())

	decompiler, err := root.newDecompiler(cmd)
	if err != nil {
		return err
	}
	defer decompiler.Close()

	d, err := decompiler.RunDecompilationWithContext(ctx, retdec.DecompilationArgs{
		InputFile: retdec.FileUpload{Path: input},
		Mode:      opts.mode,
		Params:    opts.params,
	})
	if err != nil {
		return fmt.Errorf("error starting decompilation: %w", err)
	}
	log.WithFields(logrus.Fields{"id": d.ID(), "input": input}).Info("Decompilation started")

	err = d.WaitUntilFinishedWithContext(ctx, retdec.WaitOptions{
		Interval: opts.interval,
		Callback: func(d *retdec.Decompilation) {
			status, ok := d.LastStatus()
			if !ok {
				return
			}
			log.WithFields(logrus.Fields{"id": d.ID(), "completion": status.Completion}).Debug("Status changed")
			if !opts.quiet {
				out.progress(status)
			}
		},
	})
	if err != nil {
		var failed *retdec.DecompilationFailedError
		if errors.As(err, &failed) {
			out.failed("decompilation %s failed", d.ID())
		}
		return err
	}

	path, err := d.SaveOutputHLLWithContext(ctx, opts.outputDir)
	if err != nil {
		return fmt.Errorf("error saving output: %w", err)
	}
	size := fileSize(path)
	log.WithFields(logrus.Fields{"id": d.ID(), "path": path, "bytes": size}).Debug("Output saved")
	out.ok("saved %s (%s)", path, formatSize(size))
	return nil
}
