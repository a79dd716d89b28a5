package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/aadityaincode/Deep-Notes/internal/config"
	"github.com/aadityaincode/Deep-Notes/internal/ui"
)

// configCmd represents the config command
var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Show the resolved configuration",
	Args:  cobra.NoArgs,
	RunE:  runConfig,
}

func runConfig(cmd *cobra.Command, args []string) error {
	cfg := config.Get()

	source := config.ConfigFilePath()
	if source == "" {
		source = "(defaults)"
	}

	fmt.Println(ui.Header.Render("Configuration") + " " + ui.Dim.Render(source))
	fmt.Printf("  vault.path:          %s\n", cfg.Vault.Path)
	fmt.Printf("  vault.extensions:    %v\n", cfg.Vault.Extensions)
	fmt.Printf("  vault.ignore:        %v\n", cfg.Vault.Ignore)
	fmt.Printf("  embeddings.provider: %s\n", cfg.Embeddings.Provider)
	switch cfg.Embeddings.Provider {
	case "ollama":
		fmt.Printf("  embeddings.model:    %s\n", cfg.Embeddings.Ollama.Model)
		fmt.Printf("  embeddings.url:      %s\n", cfg.Embeddings.Ollama.URL)
	case "openai":
		fmt.Printf("  embeddings.model:    %s\n", cfg.Embeddings.OpenAI.Model)
		keyState := "unset"
		if cfg.Embeddings.OpenAI.APIKey != "" {
			keyState = "set"
		}
		fmt.Printf("  embeddings.api_key:  %s\n", keyState)
	}
	fmt.Printf("  database.path:       %s\n", cfg.Database.Path)
	fmt.Printf("  search.top_k:        %d\n", cfg.Search.TopK)

	return nil
}
