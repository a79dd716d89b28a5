package cli

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"github.com/charmbracelet/glamour"
	"github.com/charmbracelet/log"
	"github.com/spf13/cobra"

	"github.com/aadityaincode/Deep-Notes/internal/config"
	"github.com/aadityaincode/Deep-Notes/internal/retriever"
	"github.com/aadityaincode/Deep-Notes/internal/ui"
)

var (
	searchTopK    int
	searchExclude string
	searchRender  bool
	searchJSON    bool
)

// searchCmd represents the search command
var searchCmd = &cobra.Command{
	Use:   "search <query>",
	Short: "Find related passages across the vault",
	Long: `Search the indexed vault by semantic similarity.

The query is embedded with the configured provider and matched against
every indexed chunk; results carry the note title, section heading, and
similarity score.

Examples:
  # Basic search
  deep-notes search "thoughts on daily reviews"

  # More results
  deep-notes search "project ideas" --top-k 10

  # Exclude the note the question came from
  deep-notes search "related reading" --exclude ~/notes/inbox.md

  # Render matched chunks as markdown
  deep-notes search "recipes" --render`,
	Args: cobra.ExactArgs(1),
	RunE: runSearch,
}

func init() {
	searchCmd.Flags().IntVarP(&searchTopK, "top-k", "k", 0, "maximum number of results (default from config)")
	searchCmd.Flags().StringVar(&searchExclude, "exclude", "", "note path to exclude from results")
	searchCmd.Flags().BoolVar(&searchRender, "render", false, "render matched chunks as markdown")
	searchCmd.Flags().BoolVar(&searchJSON, "json", false, "output results as JSON")
}

func runSearch(cmd *cobra.Command, args []string) error {
	query := args[0]
	cfg := config.Get()

	topK := searchTopK
	if topK <= 0 {
		topK = cfg.Search.TopK
	}

	excludePath := searchExclude
	if excludePath != "" {
		if abs, err := filepath.Abs(excludePath); err == nil {
			excludePath = abs
		}
	}

	log.Debug("Starting search", "query", query, "topK", topK, "exclude", excludePath)

	st, err := openStore(cfg)
	if err != nil {
		return err
	}
	defer st.Close()

	emb, err := newEmbedder(cfg)
	if err != nil {
		return err
	}

	ctx := context.Background()

	queryVector, err := emb.EmbedQuery(ctx, query)
	if err != nil {
		return fmt.Errorf("failed to embed query: %w", err)
	}

	results, err := retriever.New(st).Search(ctx, queryVector, topK, excludePath)
	if err != nil {
		return err
	}

	if searchJSON {
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(results)
	}

	if len(results) == 0 {
		fmt.Println(ui.Dim.Render("No matches. Is the vault indexed?"))
		return nil
	}

	return printResults(results)
}

// printResults writes styled results to stdout.
func printResults(results []retriever.Result) error {
	var renderer *glamour.TermRenderer
	if searchRender {
		r, err := glamour.NewTermRenderer(
			glamour.WithAutoStyle(),
			glamour.WithWordWrap(100),
		)
		if err != nil {
			log.Debug("Failed to create markdown renderer", "error", err)
		} else {
			renderer = r
		}
	}

	for i, res := range results {
		fmt.Printf("%d. %s %s\n", i+1,
			ui.FormatResultHeader(res.NoteTitle, res.Heading),
			ui.FormatScore(res.Score),
		)
		fmt.Println(ui.NotePath.Render("   " + res.FilePath))

		if renderer != nil {
			rendered, err := renderer.Render(res.Text)
			if err == nil {
				fmt.Print(rendered)
				continue
			}
		}
		fmt.Println(ui.ResultContent.Render(res.Text))
		fmt.Println()
	}

	return nil
}
