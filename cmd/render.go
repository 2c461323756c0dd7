package cmd

import (
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/conneroisu/wrap/internal/config"
	"github.com/conneroisu/wrap/internal/scene"
)

func newRenderCmd(v *viper.Viper) *cobra.Command {
	var (
		sets   pairsValue
		inner  bool
		output string
	)

	cmd := &cobra.Command{
		Use:   "render",
		Short: "Bind a fragment and print the resulting HTML",
		Long: `Bind a fragment into the host page, apply values and print the result.

Values are applied in order: the values file, then scene.values from the
config file, then each --set flag. Markers whose names never receive a value
are left as written.

Examples:
  wrap render -f card.html --set title=Hello --set count=3
  wrap render -f card.html --values values.yml --inner
  wrap render -f card.html --page layout.html -c main -o out.html`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.LoadFrom(v)
			if err != nil {
				return err
			}
			for _, p := range sets.pairs {
				cfg.Scene.Values = append(cfg.Scene.Values, config.ValueConfig{Name: p.Name, Value: p.Value})
			}

			if output == "" {
				return runRender(cmd, cfg, inner, cmd.OutOrStdout())
			}

			return writeOutput(output, func(w io.Writer) error {
				return runRender(cmd, cfg, inner, w)
			})
		},
	}

	addSceneFlags(cmd, v)
	cmd.Flags().Var(&sets, "set", "set a placeholder value (repeatable)")
	cmd.Flags().BoolVar(&inner, "inner", false, "print only the container's contents")
	cmd.Flags().StringVarP(&output, "output", "o", "", "write to a file instead of stdout")

	return cmd
}

func runRender(cmd *cobra.Command, cfg *config.Config, inner bool, out io.Writer) error {
	logger := cfg.Logger()

	spec, err := scene.ReadSpec(cfg)
	if err != nil {
		return err
	}

	sc, err := scene.Build(cmd.Context(), spec, logger)
	if err != nil {
		return err
	}

	if inner {
		_, err = fmt.Fprintln(out, sc.InnerHTML())
		return err
	}

	if err := sc.Render(out); err != nil {
		return err
	}
	_, err = fmt.Fprintln(out)

	return err
}

// createOutput opens the -o target. Replaced in tests.
var createOutput = func(path string) (io.WriteCloser, error) {
	return os.Create(path)
}

// writeOutput runs write against the file at path and reports a failed
// close, which is where buffered data may be lost.
func writeOutput(path string, write func(io.Writer) error) (err error) {
	f, err := createOutput(path)
	if err != nil {
		return fmt.Errorf("creating output file: %w", err)
	}
	defer func() {
		if closeErr := f.Close(); closeErr != nil && err == nil {
			err = fmt.Errorf("closing output file: %w", closeErr)
		}
	}()

	return write(f)
}
