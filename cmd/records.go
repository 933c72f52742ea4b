package cmd

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/dustin/go-humanize"
	"github.com/spf13/afero"
	"github.com/spf13/cobra"

	"github.com/kamal-hamza/stasher/internal/core/domain"
	"github.com/kamal-hamza/stasher/internal/core/ports"
	"github.com/kamal-hamza/stasher/pkg/ui"
)

var recordsCmd = &cobra.Command{
	Use:   "records [table]",
	Short: "List the records of a table and their files",
	Long: `List the records of a table with the size of each committed file.

Without a table the known tables are listed.`,
	Args: cobra.MaximumNArgs(1),
	RunE: runRecords,
}

func runRecords(cmd *cobra.Command, args []string) error {
	if len(args) == 0 {
		return runTables()
	}
	table := args[0]

	records, err := recordService.List(getContext(), table)
	if err != nil {
		return err
	}
	if len(records) == 0 {
		fmt.Println(ui.FormatInfo("No records in " + table))
		return nil
	}

	t := ui.NewTable("ID", "FIELD", "FILE", "SIZE")
	t.RightAlign[0] = true
	t.RightAlign[3] = true
	for _, rec := range records {
		fields := rec.FieldNames()
		if len(fields) == 0 {
			t.AddRow(strconv.FormatInt(rec.ID, 10), "", ui.FormatMuted("(no files)"), "")
			continue
		}
		for i, field := range fields {
			id := ""
			if i == 0 {
				id = strconv.FormatInt(rec.ID, 10)
			}
			t.AddRow(id, field, rec.Get(field), describeFile(rec, field))
		}
	}

	fmt.Print(t.Render())
	fmt.Println(ui.FormatMuted(fmt.Sprintf("%d records in %s", len(records), entityFiles.Dir(table))))
	return nil
}

func runTables() error {
	lister, ok := recordRepo.(ports.TableLister)
	if !ok {
		return fmt.Errorf("the %s driver cannot list tables", appConfig.Database.Driver)
	}
	tables, err := lister.Tables(getContext())
	if err != nil {
		return err
	}
	if len(tables) == 0 {
		fmt.Println(ui.FormatInfo("No tables yet"))
		return nil
	}

	t := ui.NewTable("TABLE", "FILES")
	t.RightAlign[1] = true
	for _, table := range tables {
		t.AddRow(table, strconv.Itoa(countFiles(table)))
	}
	fmt.Print(t.Render())
	return nil
}

// describeFile returns the size of the committed file of field, or a marker
// when the file is gone.
func describeFile(rec *domain.Record, field string) string {
	path := entityFiles.Path(rec, field)
	if path == "" {
		return ""
	}
	info, err := appFS.Stat(path)
	if err != nil {
		return ui.StyleError.Render("missing")
	}
	return humanize.Bytes(uint64(info.Size()))
}

// countFiles reports how many files a table directory holds
func countFiles(table string) int {
	entries, err := afero.ReadDir(appFS, entityFiles.Dir(table))
	if err != nil {
		return 0
	}
	n := 0
	for _, e := range entries {
		if !e.IsDir() && !strings.HasPrefix(e.Name(), ".") {
			n++
		}
	}
	return n
}
