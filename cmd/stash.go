package cmd

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/atotto/clipboard"
	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"

	"github.com/kamal-hamza/stasher/internal/core/domain"
	"github.com/kamal-hamza/stasher/pkg/ui"
)

var stashCmd = &cobra.Command{
	Use:   "stash [file]",
	Short: "Stash a file and print its token",
	Long: `Receive a file into the inbox and park it in the stash.

The printed token identifies the file until it is attached to a record or
expires. The token is copied to the clipboard when possible.

Examples:
  stasher stash ~/Downloads/scan.png`,
	Args: cobra.ExactArgs(1),
	RunE: runStash,
}

func runStash(cmd *cobra.Command, args []string) error {
	ctx := getContext()

	absPath, err := filepath.Abs(args[0])
	if err != nil {
		return err
	}

	src, err := os.Open(absPath)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return fmt.Errorf("%w: %s", domain.ErrFileNotFound, absPath)
		}
		return err
	}
	defer src.Close()

	upload, err := inbox.Receive(src, filepath.Base(absPath))
	if err != nil {
		return err
	}

	token, err := stashService.Save(ctx, upload)
	if err != nil {
		fmt.Println(ui.FormatError("Failed to stash " + upload.Name))
		return err
	}

	fmt.Println(ui.FormatSuccess(fmt.Sprintf("Stashed %s (%s, %s)",
		upload.Name, upload.Type, humanize.Bytes(uint64(upload.Size)))))
	fmt.Println()
	fmt.Println(ui.FormatBold(token))

	if err := clipboard.WriteAll(token); err != nil {
		fmt.Println(ui.FormatMuted("(Clipboard access failed, please copy manually)"))
	} else {
		fmt.Println(ui.FormatMuted("(Copied to clipboard)"))
	}
	return nil
}
