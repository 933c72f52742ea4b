package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/kamal-hamza/stasher/internal/adapters/upload"
	"github.com/kamal-hamza/stasher/internal/core/services"
	"github.com/kamal-hamza/stasher/pkg/config"
	"github.com/kamal-hamza/stasher/pkg/ui"
)

var doctorCmd = &cobra.Command{
	Use:   "doctor",
	Short: "Check the health of your stasher installation",
	Long: `Diagnose issues with your stasher setup.

Checks for:
  - Vault and configuration file
  - Stash directory (exists and writable)
  - Files root of the configured connection
  - Inbox directory
  - Record store`,
	Run: runDoctor,
}

func runDoctor(cmd *cobra.Command, args []string) {
	fmt.Println(ui.StyleTitle.Render("Stasher Doctor"))
	fmt.Println()

	checkStep("Vault Directory", func() error {
		if !appVault.Exists() {
			return fmt.Errorf("not found at %s", appVault.RootPath)
		}
		return nil
	})

	checkStep("Configuration File", func() error {
		if _, err := os.Stat(appVault.ConfigPath); os.IsNotExist(err) {
			return fmt.Errorf("missing at %s (defaults in use)", appVault.ConfigPath)
		}
		return nil
	})

	verifier := upload.NewInboxVerifier(appFS, appConfig.Inbox)

	checkStep("Stash Directory", func() error {
		_, err := services.NewStashService(appFS, services.StashConfig{
			Directory:     appConfig.Stash.Directory,
			GCProbability: appConfig.Stash.GCProbability,
		}, verifier)
		return err
	})

	checkStep("Files Root", func() error {
		_, err := services.NewEntityFiles(appFS, services.FilesConfig{
			Roots:       appConfig.ORMFiles,
			Connection:  appConfig.Database.Connection,
			TablePrefix: appConfig.Database.TablePrefix,
		}, appLogger)
		if err != nil {
			return err
		}
		if _, err := os.Stat(appConfig.FilesRoot()); err != nil {
			return fmt.Errorf("missing at %s (created on first attach)", appConfig.FilesRoot())
		}
		return nil
	})

	checkStep("Inbox Directory", func() error {
		if _, err := os.Stat(verifier.Dir()); err != nil {
			return fmt.Errorf("missing at %s", verifier.Dir())
		}
		return nil
	})

	checkStep("Record Store ("+appConfig.Database.Driver+")", func() error {
		if appConfig.Database.Driver == config.DriverManifest {
			return nil
		}
		if _, err := os.Stat(appConfig.Database.DSN); err != nil {
			return fmt.Errorf("missing at %s (created on first save)", appConfig.Database.DSN)
		}
		return nil
	})
}

func checkStep(name string, check func() error) {
	if err := check(); err != nil {
		fmt.Printf("%s %s: %s\n", ui.StyleError.Render(ui.IconError), name, ui.FormatMuted(err.Error()))
		return
	}
	fmt.Printf("%s %s\n", ui.StyleSuccess.Render(ui.IconSuccess), name)
}
