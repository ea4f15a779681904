package main

import (
	"fmt"
	"sort"
	"strings"

	"github.com/spf13/cobra"

	"github.com/cognicore/trendscan/pkg/trendscan/config"
	"github.com/cognicore/trendscan/pkg/trendscan/stoplist"
)

func newConfigCommand(ctx *commandContext) *cobra.Command {
	configCmd := &cobra.Command{
		Use:   "config",
		Short: "Configuration utilities",
	}

	configCmd.AddCommand(newConfigShowCommand(ctx))
	configCmd.AddCommand(newConfigValidateCommand(ctx))
	configCmd.AddCommand(newConfigDefaultsCommand())

	return configCmd
}

func newConfigShowCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "show",
		Short: "Print the effective configuration (defaults, file and environment merged)",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			data, err := cfg.YAML()
			if err != nil {
				return fmt.Errorf("encode config: %w", err)
			}
			_, err = cmd.OutOrStdout().Write(data)
			return err
		},
	}
}

func newConfigValidateCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "validate",
		Short: "Validate the configuration and the term files it references",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			comp, err := cfg.Loader().Load()
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "Denylist terms:  %d%s\n", comp.Denylist.Len(), reasonBreakdown(comp.Denylist))
			fmt.Fprintf(out, "Stopwords:       %d\n", len(comp.Stopwords))
			fmt.Fprintf(out, "Seed topics:     %d (%d terms)\n", len(comp.Seeds), len(comp.Seeds.Terms()))
			fmt.Fprintf(out, "Gazetteer names: %d\n", comp.Gazetteer.Len())
			fmt.Fprintln(out, "Configuration valid")
			return nil
		},
	}
}

// reasonBreakdown renders " (bot 3, slang 4)" with reasons sorted
func reasonBreakdown(m *stoplist.Manager) string {
	counts := map[string]int{}
	for _, term := range m.All() {
		r, _ := m.Reason(term)
		counts[string(r)]++
	}
	if len(counts) == 0 {
		return ""
	}
	reasons := make([]string, 0, len(counts))
	for r := range counts {
		reasons = append(reasons, r)
	}
	sort.Strings(reasons)
	parts := make([]string, len(reasons))
	for i, r := range reasons {
		parts[i] = fmt.Sprintf("%s %d", r, counts[r])
	}
	return " (" + strings.Join(parts, ", ") + ")"
}

func newConfigDefaultsCommand() *cobra.Command {
	return &cobra.Command{
		Use:         "defaults",
		Short:       "Print the built-in defaults as a starting configuration file",
		Annotations: map[string]string{"skipConfigLoad": "true"},
		RunE: func(cmd *cobra.Command, args []string) error {
			data, err := config.Default().YAML()
			if err != nil {
				return err
			}
			_, err = cmd.OutOrStdout().Write(data)
			return err
		},
	}
}
