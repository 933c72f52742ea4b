package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/kamal-hamza/stasher/pkg/config"
	"github.com/kamal-hamza/stasher/pkg/ui"
	"github.com/kamal-hamza/stasher/pkg/vault"
)

// initCmd represents the init command
var initCmd = &cobra.Command{
	Use:   "init",
	Short: "Initialize the stasher vault",
	Long: `Initialize the stasher vault directory structure.

This creates the managed vault at ~/.local/share/stasher/ with:
  - stash/      : Stashed uploads (<token>_file and <token>_meta pairs)
  - files/      : Committed record files, one directory per table
  - inbox/      : Files received and waiting to be stashed
  - records.db  : Record store (sqlite driver)

and writes a default config.yaml to the config directory.`,
	RunE: runInit,
}

func runInit(cmd *cobra.Command, args []string) error {
	v, err := vault.New()
	if err != nil {
		fmt.Println(ui.FormatError("Failed to determine vault location"))
		return err
	}

	if v.Exists() {
		fmt.Println(ui.FormatWarning("Vault already initialized"))
		fmt.Println(ui.FormatMuted("Location: " + v.RootPath))
		return nil
	}

	fmt.Println(ui.FormatStash("Initializing stasher vault..."))
	fmt.Println()

	cfg := config.DefaultConfig(v.RootPath)
	if err := v.Initialize(cfg.Stash.Directory, cfg.FilesRoot(), cfg.Inbox); err != nil {
		fmt.Println(ui.FormatError("Failed to initialize vault"))
		return err
	}

	if _, err := os.Stat(v.ConfigPath); os.IsNotExist(err) {
		if err := cfg.Save(v.ConfigPath); err != nil {
			fmt.Println(ui.FormatWarning("Failed to create default config: " + err.Error()))
		} else {
			fmt.Println(ui.FormatSuccess("Default config created"))
		}
	}

	fmt.Println(ui.FormatSuccess("Vault initialized successfully!"))
	fmt.Println()
	fmt.Println(ui.RenderKeyValue("Location", v.RootPath))
	fmt.Println(ui.RenderKeyValue("Config", v.ConfigPath))
	fmt.Println()
	fmt.Println(ui.FormatInfo("Next steps:"))
	fmt.Println(ui.FormatMuted("  1. Stash a file:       stasher stash ~/Downloads/report.pdf"))
	fmt.Println(ui.FormatMuted("  2. Attach it:          stasher attach invoices new pdf --token <token>"))
	fmt.Println(ui.FormatMuted("  3. List the records:   stasher records invoices"))

	return nil
}
