package cli

import (
	"fmt"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/pez-globo/ventserver/internal/config"
)

// NewConfigCommand creates the config command.
func NewConfigCommand(rootOpts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "config",
		Short: "Print the effective configuration",
		Long: `Load the configuration given by --config, apply defaults, validate it
and print the result.

Exit codes:
  0 - Configuration is valid
  2 - Configuration could not be read or is invalid

Examples:
  ventserver config
  ventserver config --config /etc/ventserver.yaml --format json`,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runConfig(rootOpts, cmd)
		},
	}
}

func runConfig(opts *RootOptions, cmd *cobra.Command) error {
	formatter := &OutputFormatter{
		Format:    opts.Format,
		Writer:    cmd.OutOrStdout(),
		ErrWriter: cmd.ErrOrStderr(),
		Verbose:   opts.Verbose,
	}

	cfg, err := loadConfig(opts.Config)
	if err != nil {
		_ = formatter.Error(ErrCodeConfig, err.Error(), nil)
		return WrapExitError(ExitCommandError, "failed to load config", err)
	}
	if opts.Config == "" {
		formatter.VerboseLog("No --config given, using defaults")
	}

	if formatter.JSON() {
		return formatter.Success(cfg)
	}
	out, err := yaml.Marshal(cfg)
	if err != nil {
		return WrapExitError(ExitCommandError, "failed to render config", err)
	}
	_, err = fmt.Fprint(cmd.OutOrStdout(), string(out))
	return err
}

// loadConfig reads path, or returns the defaults when path is empty.
func loadConfig(path string) (*config.Config, error) {
	if path == "" {
		return config.Default(), nil
	}
	return config.Load(path)
}
