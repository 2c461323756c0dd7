package cmd

import (
	"encoding/json"
	"fmt"
	"io"
	"path/filepath"
	"strings"
	"text/tabwriter"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"golang.org/x/net/html"
	"golang.org/x/text/cases"
	"golang.org/x/text/language"
	"gopkg.in/yaml.v3"

	"github.com/conneroisu/wrap/internal/config"
	"github.com/conneroisu/wrap/internal/scene"
)

type placeholderInfo struct {
	Name     string `json:"name" yaml:"name"`
	Bindings int    `json:"bindings" yaml:"bindings"`
}

type eventInfo struct {
	Name     string   `json:"name" yaml:"name"`
	Elements []string `json:"elements" yaml:"elements"`
}

type inspectReport struct {
	Title        string            `json:"title" yaml:"title"`
	Fragment     string            `json:"fragment" yaml:"fragment"`
	Placeholders []placeholderInfo `json:"placeholders" yaml:"placeholders"`
	Events       []eventInfo       `json:"events" yaml:"events"`
}

func newInspectCmd(v *viper.Viper) *cobra.Command {
	var format string

	cmd := &cobra.Command{
		Use:   "inspect",
		Short: "List the placeholders and events a fragment declares",
		Long: `Bind a fragment and report what it declares: every placeholder name with
the number of text nodes and attributes bound to it, and every @event name
with the elements that declared it. Both lists are in document order.

Examples:
  wrap inspect -f card.html
  wrap inspect -f card.html --format json`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.LoadFrom(v)
			if err != nil {
				return err
			}

			report, err := inspect(cmd, cfg)
			if err != nil {
				return err
			}

			return writeReport(cmd.OutOrStdout(), report, format)
		},
	}

	addSceneFlags(cmd, v)
	cmd.Flags().StringVar(&format, "format", "text", "output format (text, json, yaml)")
	AddFlagValidation(cmd, "format", oneOf("text", "json", "yaml"))

	return cmd
}

func inspect(cmd *cobra.Command, cfg *config.Config) (*inspectReport, error) {
	spec, err := scene.ReadSpec(cfg)
	if err != nil {
		return nil, err
	}
	// Only the declarations matter here.
	spec.Values = nil
	spec.Actions = nil

	sc, err := scene.Build(cmd.Context(), spec, cfg.Logger())
	if err != nil {
		return nil, err
	}

	report := &inspectReport{
		Title:        fragmentTitle(cfg.Scene.Fragment),
		Fragment:     cfg.Scene.Fragment,
		Placeholders: []placeholderInfo{},
		Events:       []eventInfo{},
	}
	for _, name := range sc.Handle.Placeholders() {
		report.Placeholders = append(report.Placeholders, placeholderInfo{
			Name:     name,
			Bindings: sc.Handle.Bindings(name),
		})
	}
	for _, name := range sc.Handle.Events() {
		info := eventInfo{Name: name}
		for _, n := range sc.Handle.EventNodes(name) {
			info.Elements = append(info.Elements, describe(n))
		}
		report.Events = append(report.Events, info)
	}

	return report, nil
}

// fragmentTitle turns a fragment path into a heading: user-card.html
// becomes "User Card".
func fragmentTitle(path string) string {
	base := strings.TrimSuffix(filepath.Base(path), filepath.Ext(path))
	words := strings.FieldsFunc(base, func(r rune) bool {
		return r == '-' || r == '_' || r == '.' || r == ' '
	})

	return cases.Title(language.English).String(strings.Join(words, " "))
}

// describe renders an element as tag#id.class for listings.
func describe(n *html.Node) string {
	var sb strings.Builder
	sb.WriteString(n.Data)
	for _, a := range n.Attr {
		switch a.Key {
		case "id":
			sb.WriteString("#" + a.Val)
		case "class":
			for _, c := range strings.Fields(a.Val) {
				sb.WriteString("." + c)
			}
		}
	}

	return sb.String()
}

func writeReport(w io.Writer, report *inspectReport, format string) error {
	switch format {
	case "json":
		encoder := json.NewEncoder(w)
		encoder.SetIndent("", "  ")
		return encoder.Encode(report)
	case "yaml":
		encoder := yaml.NewEncoder(w)
		encoder.SetIndent(2)
		if err := encoder.Encode(report); err != nil {
			return err
		}
		return encoder.Close()
	case "text", "":
		return writeReportText(w, report)
	default:
		return fmt.Errorf("unsupported format: %s (supported: text, json, yaml)", format)
	}
}

func writeReportText(w io.Writer, report *inspectReport) error {
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)

	fmt.Fprintf(tw, "%s (%s)\n\n", report.Title, report.Fragment)
	fmt.Fprintf(tw, "Placeholders (%d)\n", len(report.Placeholders))
	for _, p := range report.Placeholders {
		fmt.Fprintf(tw, "  %s\t%d %s\n", p.Name, p.Bindings, plural(p.Bindings, "binding"))
	}

	fmt.Fprintf(tw, "Events (%d)\n", len(report.Events))
	for _, e := range report.Events {
		fmt.Fprintf(tw, "  @%s\t%s\n", e.Name, strings.Join(e.Elements, ", "))
	}

	return tw.Flush()
}

func plural(n int, word string) string {
	if n == 1 {
		return word
	}
	return word + "s"
}
