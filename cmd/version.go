package cmd

import (
	"encoding/json"
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/conneroisu/wrap/internal/version"
)

func newVersionCmd() *cobra.Command {
	var (
		format string
		short  bool
	)

	cmd := &cobra.Command{
		Use:   "version",
		Short: "Show version information",
		Long: `Display version information for wrap: version, commit, build time,
Go version and target platform.

Examples:
  wrap version
  wrap version --short
  wrap version --format json`,
		Args: cobra.NoArgs,
		// The version needs no configuration.
		PersistentPreRunE: func(*cobra.Command, []string) error { return nil },
		RunE: func(cmd *cobra.Command, args []string) error {
			return writeVersion(cmd.OutOrStdout(), version.GetBuildInfo(), format, short)
		},
	}

	cmd.Flags().StringVar(&format, "format", "text", "output format (text, json)")
	cmd.Flags().BoolVar(&short, "short", false, "show the version only")
	AddFlagValidation(cmd, "format", oneOf("text", "json"))

	return cmd
}

func writeVersion(w io.Writer, info *version.BuildInfo, format string, short bool) error {
	if format == "json" {
		encoder := json.NewEncoder(w)
		encoder.SetIndent("", "  ")
		return encoder.Encode(info)
	}

	if short {
		_, err := fmt.Fprintln(w, info.Short())
		return err
	}

	line := "wrap " + info.Short()
	if info.Dirty {
		line += " (dirty)"
	}
	fmt.Fprintln(w, line)
	if !info.BuildTime.IsZero() {
		fmt.Fprintf(w, "Built: %s\n", info.BuildTime.UTC().Format("2006-01-02 15:04:05 UTC"))
	}
	fmt.Fprintf(w, "Go: %s\n", info.GoVersion)
	_, err := fmt.Fprintf(w, "Platform: %s\n", info.Platform)

	return err
}
