package cli

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/aadityaincode/Deep-Notes/internal/config"
	"github.com/aadityaincode/Deep-Notes/internal/indexer"
	"github.com/aadityaincode/Deep-Notes/internal/watcher"
)

// watchCmd represents the watch command
var watchCmd = &cobra.Command{
	Use:   "watch [vault-path]",
	Short: "Keep the index fresh as notes change",
	Long: `Watch the vault and re-index notes as they are created, modified,
or deleted. Runs until interrupted.`,
	Args: cobra.MaximumNArgs(1),
	RunE: runWatch,
}

func runWatch(cmd *cobra.Command, args []string) error {
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
		fmt.Println("\nStopping watcher")
		cancel()
	}()

	ix := indexer.New(st, emb, v)

	// Catch up before watching so change events start from a fresh index.
	if _, err := ix.IndexAll(ctx, indexer.Options{}); err != nil && ctx.Err() == nil {
		return err
	}

	w := watcher.New(v)
	ix.Follow(ctx, w, v.Stat)

	err = w.Start(ctx)
	if err == context.Canceled {
		return nil
	}
	return err
}
