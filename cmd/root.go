// Package cmd provides the command-line interface for wrap.
//
// Configuration System:
//
//	Settings come from several sources with clear precedence:
//	1. Command-line flags (--fragment, --port, etc.) - highest priority
//	2. Individual environment variables (WRAP_SERVER_PORT, etc.)
//	3. The configuration file: --config, else WRAP_CONFIG_FILE, else .wrap.yml
//	4. Built-in defaults - lowest priority
//
// Environment Variables:
//
//	WRAP_CONFIG_FILE: Path to a configuration file
//	WRAP_SERVER_PORT, WRAP_SERVER_HOST: Live server address
//	WRAP_SCENE_FRAGMENT: Fragment file to bind
//	And the rest of the WRAP_<SECTION>_<OPTION> keys
package cmd

import (
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/conneroisu/wrap/internal/config"
	wraperrors "github.com/conneroisu/wrap/internal/errors"
)

// NewRootCommand builds the command tree around its own Viper instance.
func NewRootCommand() *cobra.Command {
	v := viper.New()
	var cfgFile string

	rootCmd := &cobra.Command{
		Use:   "wrap",
		Short: "Bind {{placeholders}} and @events in HTML fragments",
		Long: `wrap binds an HTML fragment into a host page: {{name}} markers in text and
attribute values become live placeholders and @name attributes become event
hooks.

Quick Start:
  wrap render -f counter.html --set count=3   Render the bound page
  wrap inspect -f counter.html                List placeholders and events
  wrap serve -f counter.html                  Serve it with live updates`,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return initConfig(v, cfgFile)
		},
	}

	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default is .wrap.yml, can also use WRAP_CONFIG_FILE env var)")
	rootCmd.PersistentFlags().StringP("log-level", "l", "info", "log level (debug, info, warn, error)")
	rootCmd.PersistentFlags().String("log-format", "text", "log format (text, json)")
	_ = v.BindPFlag("log.level", rootCmd.PersistentFlags().Lookup("log-level"))
	_ = v.BindPFlag("log.format", rootCmd.PersistentFlags().Lookup("log-format"))

	rootCmd.AddCommand(
		newRenderCmd(v),
		newInspectCmd(v),
		newServeCmd(v),
		newVersionCmd(),
	)

	return rootCmd
}

// Execute runs the CLI and prints errors with their suggestions.
func Execute() error {
	return execute(NewRootCommand(), os.Args[1:], os.Stderr)
}

func execute(rootCmd *cobra.Command, args []string, stderr io.Writer) error {
	rootCmd.SetArgs(args)
	err := rootCmd.Execute()
	if err != nil {
		fmt.Fprintln(stderr, "Error:", wraperrors.FormatErrorWithSuggestions(err))
	}

	return err
}

// initConfig points v at the config file and the environment.
//
// Configuration file priority (highest to lowest):
//  1. --config flag
//  2. WRAP_CONFIG_FILE environment variable
//  3. .wrap.yml in the current directory, if present
//
// An explicitly named file must exist; the default one is optional.
func initConfig(v *viper.Viper, cfgFile string) error {
	explicit := cfgFile
	if explicit == "" {
		explicit = os.Getenv(config.EnvPrefix + "_CONFIG_FILE")
	}

	if explicit != "" {
		v.SetConfigFile(explicit)
	} else {
		v.AddConfigPath(".")
		v.SetConfigType("yaml")
		v.SetConfigName(".wrap")
	}

	if err := config.BindEnv(v); err != nil {
		return err
	}

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if explicit == "" && errors.As(err, &notFound) {
			return nil
		}
		return wraperrors.Wrap(err, wraperrors.ErrorTypeConfig, wraperrors.ErrCodeConfigInvalid,
			"failed to read config file").WithFile(v.ConfigFileUsed())
	}

	return nil
}
