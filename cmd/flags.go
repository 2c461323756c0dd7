package cmd

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"

	"github.com/conneroisu/wrap/internal/binder"
)

// pairsValue collects repeated name=value flags in order.
type pairsValue struct {
	pairs []binder.Pair
}

var _ pflag.Value = (*pairsValue)(nil)

func (p *pairsValue) String() string {
	parts := make([]string, 0, len(p.pairs))
	for _, pair := range p.pairs {
		parts = append(parts, pair.Name+"="+pair.Value)
	}
	return "[" + strings.Join(parts, ",") + "]"
}

func (p *pairsValue) Set(s string) error {
	name, value, ok := strings.Cut(s, "=")
	if !ok {
		return fmt.Errorf("expected name=value, got %q", s)
	}
	name = strings.TrimSpace(name)
	if name == "" {
		return fmt.Errorf("missing placeholder name in %q", s)
	}

	p.pairs = append(p.pairs, binder.Pair{Name: name, Value: value})
	return nil
}

func (p *pairsValue) Type() string {
	return "name=value"
}

// addSceneFlags adds the flags that select a scene and binds them to v.
func addSceneFlags(cmd *cobra.Command, v *viper.Viper) {
	cmd.Flags().StringP("fragment", "f", "", "HTML fragment file to bind")
	cmd.Flags().String("page", "", "host page file (default is a minimal page with <div id=\"app\">)")
	cmd.Flags().StringP("container", "c", "", "CSS selector of the container in the page (default \"#app\")")
	cmd.Flags().String("values", "", "YAML file of initial placeholder values")

	bindFlags(cmd, v, map[string]string{
		"fragment":  "scene.fragment",
		"page":      "scene.page",
		"container": "scene.container",
		"values":    "scene.values_file",
	})
}

// bindFlags binds each flag to its configuration key.
func bindFlags(cmd *cobra.Command, v *viper.Viper, bindings map[string]string) {
	for flagName, configKey := range bindings {
		if flag := cmd.Flags().Lookup(flagName); flag != nil {
			_ = v.BindPFlag(configKey, flag)
		}
	}
}

// AddFlagValidation validates a flag's value whenever it is set.
func AddFlagValidation(cmd *cobra.Command, flagName string, validator func(string) error) {
	flag := cmd.Flags().Lookup(flagName)
	if flag == nil {
		return
	}

	flag.Value = &validatingValue{Value: flag.Value, validator: validator}
}

type validatingValue struct {
	pflag.Value
	validator func(string) error
}

func (v *validatingValue) Set(val string) error {
	if err := v.validator(val); err != nil {
		return err
	}
	return v.Value.Set(val)
}

// ValidatePort accepts 0 (any free port) through 65535.
func ValidatePort(portStr string) error {
	port, err := strconv.Atoi(portStr)
	if err != nil {
		return fmt.Errorf("invalid port number: %s", portStr)
	}

	if port < 0 || port > 65535 {
		return fmt.Errorf("port must be between 0 and 65535, got %d", port)
	}

	return nil
}

// oneOf returns a validator accepting only the given values.
func oneOf(allowed ...string) func(string) error {
	return func(val string) error {
		for _, a := range allowed {
			if val == a {
				return nil
			}
		}
		return fmt.Errorf("invalid value %s, must be one of: %s", val, strings.Join(allowed, ", "))
	}
}
