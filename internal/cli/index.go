package cli

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/charmbracelet/log"
	"github.com/spf13/cobra"

	"github.com/aadityaincode/Deep-Notes/internal/config"
	"github.com/aadityaincode/Deep-Notes/internal/indexer"
	"github.com/aadityaincode/Deep-Notes/internal/ui"
)

var indexForce bool

// indexCmd represents the index command
var indexCmd = &cobra.Command{
	Use:   "index [vault-path]",
	Short: "Index the vault for semantic search",
	Long: `Index every note in the vault (or the configured vault path).

Notes whose modification time matches the index are skipped; modified
notes have their old records replaced in full. Failures on individual
notes are counted and logged without aborting the pass.

Examples:
  # Index the configured vault
  deep-notes index

  # Index a specific directory
  deep-notes index ~/notes

  # Re-embed everything regardless of freshness
  deep-notes index --force`,
	Args: cobra.MaximumNArgs(1),
	RunE: runIndex,
}

func init() {
	indexCmd.Flags().BoolVarP(&indexForce, "force", "f", false, "re-index all notes regardless of freshness")
}

func runIndex(cmd *cobra.Command, args []string) error {
	path := ""
	if len(args) > 0 {
		path = args[0]
	}

	cfg := config.Get()

	v, err := openVault(cfg, path)
	if err != nil {
		return err
	}

	st, err := openStore(cfg)
	if err != nil {
		return err
	}
	defer st.Close()

	emb, err := newEmbedder(cfg)
	if err != nil {
		return err
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)
	go func() {
		<-sigCh
		fmt.Println("\nInterrupted")
		cancel()
	}()

	ix := indexer.New(st, emb, v)

	sum, err := ix.IndexAll(ctx, indexer.Options{
		Force: indexForce,
		OnProgress: func(processed, total int, current string) {
			log.Info("Indexing", "processed", processed, "total", total, "current", current)
		},
	})
	if errors.Is(err, indexer.ErrIndexingInProgress) {
		fmt.Println(ui.Warning.Render("An indexing pass is already running; nothing to do."))
		return nil
	}
	if err != nil {
		return err
	}

	fmt.Printf("%s %d indexed, %d skipped, %d failed\n",
		ui.Success.Render("Done:"), sum.Indexed, sum.Skipped, sum.Failed)

	return nil
}
