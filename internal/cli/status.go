package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/aadityaincode/Deep-Notes/internal/config"
	"github.com/aadityaincode/Deep-Notes/internal/ui"
)

// statusCmd represents the status command
var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show index statistics",
	Args:  cobra.NoArgs,
	RunE:  runStatus,
}

func runStatus(cmd *cobra.Command, args []string) error {
	cfg := config.Get()

	st, err := openStore(cfg)
	if err != nil {
		return err
	}
	defer st.Close()

	stats, err := st.Stats()
	if err != nil {
		return err
	}

	fmt.Println(ui.Header.Render("Index status"))
	fmt.Printf("  database:  %s\n", cfg.Database.Path)
	fmt.Printf("  documents: %d\n", stats.Documents)
	fmt.Printf("  records:   %d\n", stats.TotalRecords)

	return nil
}
