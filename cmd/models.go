package cmd

import (
	"fmt"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"

	"github.com/KaramelBytes/salespipe-cli/internal/ai"
)

var modelsProvider string

var modelsCmd = &cobra.Command{
	Use:   "models",
	Short: "List the AI providers and models the report can use",
	Example: `  salespipe models
  salespipe models --provider ollama
  salespipe config set model_catalog ./models.json`,
	RunE: func(cmd *cobra.Command, args []string) error {
		providers := ai.Providers()
		if modelsProvider != "" {
			if _, ok := ai.DefaultModel(modelsProvider); !ok {
				return fmt.Errorf("unknown provider %q (known: %v)", modelsProvider, providers)
			}
			providers = []string{modelsProvider}
		}
		tw := newTable(cmd.OutOrStdout(), "Provider", "Model", "Context", "Default", "Key")
		for _, p := range providers {
			def, _ := ai.DefaultModel(p)
			key := "not required"
			if ai.NeedsKey(p) {
				key = "required"
			}
			for _, m := range ai.ProviderModels(p) {
				mark := ""
				if m.Name == def {
					mark = "*"
				}
				tw.Append([]string{p, m.Name, humanize.Comma(int64(m.ContextTokens)), mark, key})
			}
		}
		tw.Render()
		return nil
	},
}

func init() {
	rootCmd.AddCommand(modelsCmd)
	modelsCmd.Flags().StringVar(&modelsProvider, "provider", "", "only list models of one provider")
}
