package cli

import (
	"bufio"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/aadityaincode/Deep-Notes/internal/config"
	"github.com/aadityaincode/Deep-Notes/internal/ui"
)

var clearYes bool

// clearCmd represents the clear command
var clearCmd = &cobra.Command{
	Use:   "clear",
	Short: "Drop the index and start empty",
	Long: `Drop every record and recreate the empty index.

Required after changing the embedding provider or model: vectors from
different models are not comparable, and mixing them silently corrupts
ranking. Follow a clear with a full 'deep-notes index'.`,
	Args: cobra.NoArgs,
	RunE: runClear,
}

func init() {
	clearCmd.Flags().BoolVarP(&clearYes, "yes", "y", false, "skip confirmation")
}

func runClear(cmd *cobra.Command, args []string) error {
	cfg := config.Get()

	if !clearYes {
		fmt.Print(ui.Warning.Render("Drop the entire index?") + " [y/N] ")
		reader := bufio.NewReader(os.Stdin)
		answer, _ := reader.ReadString('\n')
		if strings.ToLower(strings.TrimSpace(answer)) != "y" {
			fmt.Println("Aborted.")
			return nil
		}
	}

	st, err := openStore(cfg)
	if err != nil {
		return err
	}
	defer st.Close()

	if err := st.Clear(); err != nil {
		return err
	}

	fmt.Println(ui.Success.Render("Index cleared.") + " Run 'deep-notes index' to rebuild.")
	return nil
}
