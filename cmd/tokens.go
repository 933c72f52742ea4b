package cmd

import (
	"fmt"
	"sort"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"

	"github.com/kamal-hamza/stasher/internal/core/domain"
	"github.com/kamal-hamza/stasher/pkg/ui"
)

var tokensCmd = &cobra.Command{
	Use:     "tokens",
	Aliases: []string{"ls"},
	Short:   "List stashed files",
	RunE:    runTokens,
}

var showCmd = &cobra.Command{
	Use:   "show [token]",
	Short: "Show the metadata stored for a token",
	Args:  cobra.ExactArgs(1),
	RunE:  runShow,
}

var gcCmd = &cobra.Command{
	Use:   "gc",
	Short: "Remove expired stash entries",
	Long: `Remove every stash file older than the configured lifetime.

Both files of an entry are removed when either has expired.`,
	RunE: runGC,
}

func runTokens(cmd *cobra.Command, args []string) error {
	entries, err := stashService.List(getContext())
	if err != nil {
		return err
	}
	if len(entries) == 0 {
		fmt.Println(ui.FormatInfo("The stash is empty"))
		return nil
	}

	expiry := stashService.Lifetime()
	table := ui.NewTable("TOKEN", "NAME", "TYPE", "SIZE", "EXPIRES")
	table.RightAlign[3] = true
	for _, e := range entries {
		table.AddRow(
			shortToken(e.Token),
			e.Name,
			e.Type,
			humanize.Bytes(uint64(e.Size)),
			humanize.Time(e.Created.Add(expiry)),
		)
	}
	fmt.Print(table.Render())
	fmt.Println(ui.FormatMuted(fmt.Sprintf("%d entries in %s", len(entries), stashService.Directory())))
	return nil
}

func runShow(cmd *cobra.Command, args []string) error {
	f, err := stashService.Load(args[0])
	if err != nil {
		fmt.Println(ui.FormatError("Unknown or expired token"))
		return err
	}

	keys := make([]string, 0, len(f.Meta))
	for k := range f.Meta {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	fmt.Println(ui.RenderKeyValue("token", f.Token))
	for _, k := range keys {
		value := fmt.Sprint(f.Meta[k])
		if k == domain.MetaSize {
			value = humanize.Bytes(uint64(f.Meta.Size()))
		}
		fmt.Println(ui.RenderKeyValue(k, value))
	}
	return nil
}

func runGC(cmd *cobra.Command, args []string) error {
	result, err := stashService.GarbageCollect(getContext())
	if err != nil {
		return err
	}

	fmt.Println(ui.FormatTrash(fmt.Sprintf("Removed %d of %d stash files", result.Removed, result.Scanned)))
	fmt.Println(ui.FormatMuted("Cutoff: " + result.Cutoff.Format(time.RFC3339)))
	if result.Failed > 0 {
		fmt.Println(ui.FormatWarning(fmt.Sprintf("%d files could not be removed", result.Failed)))
	}
	return nil
}

// shortToken abbreviates a token for tables
func shortToken(token string) string {
	if len(token) <= 16 {
		return token
	}
	return token[:8] + "…" + token[len(token)-6:]
}
