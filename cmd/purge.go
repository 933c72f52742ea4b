package cmd

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/kamal-hamza/stasher/pkg/ui"
)

var (
	purgeForce bool
)

// purgeCmd represents the purge command
var purgeCmd = &cobra.Command{
	Use:   "purge [table]",
	Short: "Delete every record of a table and all its files",
	Long: `Delete every record of a table and every file in its directory.

This action cannot be undone.

Examples:
  # Purge with confirmation prompt
  stasher purge invoices

  # Purge without confirmation
  stasher purge invoices --force`,
	Args: cobra.ExactArgs(1),
	RunE: runPurge,
}

func init() {
	purgeCmd.Flags().BoolVarP(&purgeForce, "force", "f", false, "Skip confirmation prompt (dangerous)")
}

func runPurge(cmd *cobra.Command, args []string) error {
	table := args[0]

	if !purgeForce {
		fmt.Println(ui.FormatWarning(fmt.Sprintf("You are about to delete every %s record and %d files in:", table, countFiles(table))))
		fmt.Printf("  %s %s\n", ui.StyleBold.Render("Location:"), entityFiles.Dir(table))
		fmt.Println()

		if !confirm(os.Stdin, fmt.Sprintf("Type the table name (%s) to confirm: ", table), table) {
			fmt.Println(ui.FormatInfo("Purge cancelled."))
			return nil
		}
	}

	result, err := recordService.DeleteAll(getContext(), table)
	if err != nil {
		fmt.Println(ui.FormatError("Failed to purge " + table))
		return err
	}

	fmt.Println(ui.FormatTrash(fmt.Sprintf("Purged %s, removed %d files", table, result.Removed)))
	reportCleanup(result)
	return nil
}

// confirm prompts until the answer matches want; an empty line cancels.
func confirm(in io.Reader, prompt, want string) bool {
	reader := bufio.NewReader(in)
	for {
		fmt.Print(ui.StyleError.Render(prompt))
		response, err := reader.ReadString('\n')
		if err != nil {
			return false
		}
		response = strings.TrimSpace(response)
		switch response {
		case want:
			return true
		case "":
			return false
		}
		fmt.Println(ui.FormatWarning("Does not match. Try again or press Enter to cancel."))
	}
}
