package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/kamal-hamza/stasher/internal/core/services"
	"github.com/kamal-hamza/stasher/pkg/ui"
)

var deleteCmd = &cobra.Command{
	Use:   "delete [table] [id...]",
	Short: "Delete records and their files",
	Long: `Delete one or more records of a table.

Every file in the table directory named after a deleted record is removed
once the rows are gone.

Examples:
  stasher delete invoices 7
  stasher delete invoices 7 8 12`,
	Args: cobra.MinimumNArgs(2),
	RunE: runDelete,
}

func runDelete(cmd *cobra.Command, args []string) error {
	ctx := getContext()
	table := args[0]

	ids := make([]int64, 0, len(args)-1)
	for _, arg := range args[1:] {
		id, err := parseID(arg)
		if err != nil {
			return err
		}
		ids = append(ids, id)
	}

	var result *services.CleanupResult
	var err error
	if len(ids) == 1 {
		result, err = recordService.Delete(ctx, table, ids[0])
	} else {
		result, err = recordService.DeleteIDs(ctx, table, ids)
	}
	if err != nil {
		fmt.Println(ui.FormatError("Failed to delete records"))
		return err
	}

	fmt.Println(ui.FormatTrash(fmt.Sprintf("Deleted %d %s records, removed %d files", len(ids), table, result.Removed)))
	reportCleanup(result)
	return nil
}

// reportCleanup warns about files that survived their record
func reportCleanup(result *services.CleanupResult) {
	if result.Err != nil {
		fmt.Println(ui.FormatWarning("Some files could not be removed: " + result.Err.Error()))
	}
}
