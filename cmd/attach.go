package cmd

import (
	"errors"
	"fmt"
	"path/filepath"
	"strconv"

	"github.com/dustin/go-humanize"
	fuzzyfinder "github.com/ktr0731/go-fuzzyfinder"
	"github.com/spf13/cobra"

	"github.com/kamal-hamza/stasher/internal/core/domain"
	"github.com/kamal-hamza/stasher/internal/core/services"
	"github.com/kamal-hamza/stasher/pkg/ui"
)

var (
	attachToken string
	attachFile  string
	attachMove  bool
)

var attachCmd = &cobra.Command{
	Use:   "attach [table] [id|new] [field]",
	Short: "Attach a stashed or local file to a record field",
	Long: `Attach a file to a record and save the record.

The file comes from one of:
  --token   a stash entry, removed from the stash once committed
  --file    a local file, copied (or moved with --move)

Without --token or --file a picker lists the stash.
Use "new" as id to create a record.

Examples:
  stasher attach invoices new pdf --token 1f0c...
  stasher attach invoices 7 scan --file ~/scan.png --move
  stasher attach invoices 7 scan`,
	Args: cobra.ExactArgs(3),
	RunE: runAttach,
}

var detachCmd = &cobra.Command{
	Use:   "detach [table] [id] [field]",
	Short: "Remove the file of a record field",
	Args:  cobra.ExactArgs(3),
	RunE:  runDetach,
}

func init() {
	attachCmd.Flags().StringVarP(&attachToken, "token", "t", "", "Stash token to attach")
	attachCmd.Flags().StringVarP(&attachFile, "file", "f", "", "Local file to attach")
	attachCmd.Flags().BoolVar(&attachMove, "move", false, "Move the local file instead of copying it")
	attachCmd.MarkFlagsMutuallyExclusive("token", "file")
}

func runAttach(cmd *cobra.Command, args []string) error {
	ctx := getContext()
	table, idArg, field := args[0], args[1], args[2]

	st, err := loadState(table, idArg)
	if err != nil {
		return err
	}

	switch {
	case attachFile != "":
		absPath, err := filepath.Abs(attachFile)
		if err != nil {
			return err
		}
		if err := st.AttachLocal(field, absPath, attachMove); err != nil {
			return err
		}
	case attachToken != "":
		if err := st.AttachStashToken(field, attachToken); err != nil {
			fmt.Println(ui.FormatError("Unknown or expired token"))
			return err
		}
	default:
		f, err := pickStashed()
		if err != nil {
			return err
		}
		if f == nil {
			fmt.Println(ui.FormatInfo("Nothing attached"))
			return nil
		}
		if err := st.AttachStashed(field, f); err != nil {
			return err
		}
	}

	if err := recordService.Save(ctx, st); err != nil {
		fmt.Println(ui.FormatError("Failed to save record"))
		return err
	}

	rec := st.Record()
	fmt.Println(ui.FormatSuccess(fmt.Sprintf("Attached %s to %s #%d", field, rec.Table, rec.ID)))
	if path, ok := st.Path(field); ok {
		fmt.Println(ui.FormatMuted(path))
	}
	return nil
}

func runDetach(cmd *cobra.Command, args []string) error {
	ctx := getContext()
	table, field := args[0], args[2]

	id, err := parseID(args[1])
	if err != nil {
		return err
	}
	st, err := recordService.Get(ctx, table, id)
	if err != nil {
		return err
	}

	if !st.Has(field) {
		fmt.Println(ui.FormatWarning(fmt.Sprintf("%s #%d has no file in %s", table, id, field)))
		return nil
	}

	st.Remove(field)
	if err := recordService.Save(ctx, st); err != nil {
		fmt.Println(ui.FormatError("Failed to save record"))
		return err
	}

	fmt.Println(ui.FormatTrash(fmt.Sprintf("Removed %s from %s #%d", field, table, id)))
	return nil
}

// loadState returns staging state for an existing record, or a new one when
// idArg is "new".
func loadState(table, idArg string) (*services.AttachmentState, error) {
	if idArg == "new" {
		return recordService.New(table)
	}
	id, err := parseID(idArg)
	if err != nil {
		return nil, err
	}
	return recordService.Get(getContext(), table, id)
}

func parseID(s string) (int64, error) {
	id, err := strconv.ParseInt(s, 10, 64)
	if err != nil || id <= 0 {
		return 0, fmt.Errorf("invalid record id %q", s)
	}
	return id, nil
}

// pickStashed lets the user choose a stash entry. It returns nil when the
// stash is empty or the picker was aborted.
func pickStashed() (*domain.StashedFile, error) {
	entries, err := stashService.List(getContext())
	if err != nil {
		return nil, err
	}
	if len(entries) == 0 {
		fmt.Println(ui.FormatWarning("The stash is empty"))
		return nil, nil
	}

	idx, err := fuzzyfinder.Find(
		entries,
		func(i int) string {
			return fmt.Sprintf("%s  %s", entries[i].Name, humanize.Time(entries[i].Created))
		},
		fuzzyfinder.WithPreviewWindow(func(i, w, h int) string {
			if i == -1 {
				return ""
			}
			e := entries[i]
			return fmt.Sprintf("Name: %s\nType: %s\nSize: %s\nStashed: %s\n\nToken:\n%s",
				e.Name, e.Type, humanize.Bytes(uint64(e.Size)), humanize.Time(e.Created), e.Token)
		}),
	)
	if err != nil {
		if errors.Is(err, fuzzyfinder.ErrAbort) {
			return nil, nil
		}
		return nil, err
	}

	return stashService.Load(entries[idx].Token)
}
