package commands

import (
	"context"
	"os"
	"strings"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	retdec "github.com/retdec/retdec-golang"
)

// flag names
const (
	flagAPIKey   = "api-key"
	flagAPIURL   = "api-url"
	flagConfig   = "config"
	flagLogLevel = "log-level"
	flagDebug    = "debug"
)

// environment variable names
const (
	envLogLevel = "LOG_LEVEL"
)

// rootOptions holds the persistent flags shared by every subcommand.
type rootOptions struct {
	apiKey     string
	apiURL     string
	configFile string
	logLevel   string
	debug      bool

	log *logrus.Logger
}

// NewRootCmd builds the retdec command tree.
func NewRootCmd() *cobra.Command {
	opts := &rootOptions{}

	cmd := &cobra.Command{
		Use:   "retdec",
		Short: "RetDec CLI - decompile binaries with the RetDec web service",
		Long: `retdec uploads a binary or C source file to the RetDec decompilation service,
waits for the decompilation to finish and saves the decompiled code.

The API key is read from --api-key, RETDEC_API_KEY, a .env file or the YAML
file given by --config / RETDEC_CONFIG.`,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			opts.initLogger(cmd)
			return nil
		},
	}

	flags := cmd.PersistentFlags()
	flags.StringVarP(&opts.apiKey, flagAPIKey, "k", "", "RetDec API key (env: RETDEC_API_KEY)")
	flags.StringVar(&opts.apiURL, flagAPIURL, "", "RetDec API URL (env: RETDEC_API_URL)")
	flags.StringVar(&opts.configFile, flagConfig, "", "Path to a YAML config file (env: RETDEC_CONFIG)")
	flags.StringVar(&opts.logLevel, flagLogLevel, "", "Log level: trace, debug, info, warn, error (env: LOG_LEVEL)")
	flags.BoolVar(&opts.debug, flagDebug, false, "Log every HTTP request and response (env: RETDEC_DEBUG)")

	cmd.AddCommand(newDecompileCmd(opts))
	cmd.AddCommand(newStatusCmd(opts))
	cmd.AddCommand(newDownloadCmd(opts))

	return cmd
}

// Execute runs the command tree with a background context.
func Execute() error {
	return ExecuteContext(context.Background())
}

// ExecuteContext runs the command tree; ctx cancels in-flight requests and
// waits.
func ExecuteContext(ctx context.Context) error {
	return NewRootCmd().ExecuteContext(ctx)
}

// initLogger sets up logrus on the command's error stream. The level comes
// from --log-level, then LOG_LEVEL, and defaults to info.
func (o *rootOptions) initLogger(cmd *cobra.Command) {
	log := logrus.New()
	log.SetOutput(cmd.ErrOrStderr())
	log.SetFormatter(&logrus.TextFormatter{DisableTimestamp: true})
	log.SetLevel(logrus.InfoLevel)

	levelStr := o.logLevel
	if !cmd.Flags().Changed(flagLogLevel) {
		levelStr = os.Getenv(envLogLevel)
	}
	if levelStr != "" {
		level, err := logrus.ParseLevel(strings.ToLower(levelStr))
		if err != nil {
			log.Warnf("Invalid log level '%s', defaulting to 'info'", levelStr)
		} else {
			log.SetLevel(level)
		}
	}
	o.log = log
}

func (o *rootOptions) logger() *logrus.Logger {
	if o.log == nil {
		o.log = logrus.New()
	}
	return o.log
}

// newDecompiler builds a client from the persistent flags. Unset flags fall
// back to the library's environment and config file lookup.
func (o *rootOptions) newDecompiler(cmd *cobra.Command) (*retdec.Decompiler, error) {
	params := retdec.ConfigParams{
		APIKey:     o.apiKey,
		APIURL:     o.apiURL,
		ConfigFile: o.configFile,
		Logger:     o.logger(),
	}
	if cmd.Flags().Changed(flagDebug) {
		debug := o.debug
		params.Debug = &debug
	}
	return retdec.NewDecompilerWithParams(params)
}
