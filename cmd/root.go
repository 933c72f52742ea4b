package cmd

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/charmbracelet/log"
	"github.com/spf13/afero"
	"github.com/spf13/cobra"

	"github.com/kamal-hamza/stasher/internal/adapters/repository"
	"github.com/kamal-hamza/stasher/internal/adapters/upload"
	"github.com/kamal-hamza/stasher/internal/core/domain"
	"github.com/kamal-hamza/stasher/internal/core/ports"
	"github.com/kamal-hamza/stasher/internal/core/services"
	"github.com/kamal-hamza/stasher/pkg/config"
	"github.com/kamal-hamza/stasher/pkg/logging"
	"github.com/kamal-hamza/stasher/pkg/ui"
	"github.com/kamal-hamza/stasher/pkg/vault"
)

var (
	// Global vault and configuration
	appVault  *vault.Vault
	appConfig *config.Config
	appLogger *log.Logger
	appFS     afero.Fs

	// Services
	inbox         *upload.InboxVerifier
	stashService  *services.StashService
	entityFiles   *services.EntityFiles
	recordService *services.RecordService

	// Repository
	recordRepo ports.RecordRepository
	repoCloser io.Closer
)

// rootCmd represents the base command when called without any subcommands
var rootCmd = &cobra.Command{
	Use:   "stasher",
	Short: "Stasher - token-addressed file stash with record attachments",
	Long: ui.StyleTitle.Render("Stasher") + " - File Stash & Attachments\n\n" +
		"Park uploaded files under an opaque token, then attach them to records.\n" +
		"Files follow their records: saved with them, replaced with them, deleted with them.",
	SilenceUsage:       true,
	PersistentPreRunE:  initializeApp,
	PersistentPostRunE: shutdownApp,
}

// Execute adds all child commands to the root command and sets flags appropriately.
func Execute() {
	err := rootCmd.Execute()
	if err != nil {
		os.Exit(1)
	}
}

func init() {
	rootCmd.AddCommand(initCmd)
	rootCmd.AddCommand(stashCmd)
	rootCmd.AddCommand(tokensCmd)
	rootCmd.AddCommand(showCmd)
	rootCmd.AddCommand(gcCmd)
	rootCmd.AddCommand(attachCmd)
	rootCmd.AddCommand(detachCmd)
	rootCmd.AddCommand(recordsCmd)
	rootCmd.AddCommand(deleteCmd)
	rootCmd.AddCommand(purgeCmd)
	rootCmd.AddCommand(daemonCmd)
	rootCmd.AddCommand(doctorCmd)
	rootCmd.AddCommand(configCmd)
	rootCmd.AddCommand(versionCmd)
}

// skipsInit lists commands that run without a configured vault
var skipsInit = map[string]bool{
	"init":    true,
	"version": true,
	"help":    true,
}

// initializeApp initializes the application components
func initializeApp(cmd *cobra.Command, args []string) error {
	if skipsInit[cmd.Name()] {
		return nil
	}

	v, err := vault.New()
	if err != nil {
		return fmt.Errorf("failed to initialize vault: %w", err)
	}
	appVault = v

	if !appVault.Exists() {
		fmt.Println(ui.FormatError("Vault not initialized"))
		fmt.Println(ui.FormatInfo("Run 'stasher init' to initialize the vault"))
		os.Exit(1)
	}

	cfg, err := config.Load(appVault.ConfigPath, appVault.RootPath)
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}
	appConfig = cfg
	appLogger = logging.Init(cfg.LogLevel)
	appFS = afero.NewOsFs()

	// doctor reports configuration problems instead of failing on them
	if cmd.Name() == "doctor" || cmd.Name() == "config" {
		return nil
	}

	if err := buildServices(); err != nil {
		var cfgErr *domain.ConfigError
		if errors.As(err, &cfgErr) {
			fmt.Println(ui.FormatError("Invalid configuration: " + cfgErr.Error()))
			fmt.Println(ui.FormatInfo("Run 'stasher doctor' for details"))
			os.Exit(1)
		}
		return err
	}
	return nil
}

// buildServices wires the stash, the file store and the record repository
// from appConfig.
func buildServices() error {
	inbox = upload.NewInboxVerifier(appFS, appConfig.Inbox)

	var err error
	stashService, err = services.NewStashService(appFS, services.StashConfig{
		Directory:     appConfig.Stash.Directory,
		Lifetime:      time.Duration(appConfig.Stash.Lifetime) * time.Second,
		GCProbability: appConfig.Stash.GCProbability,
	}, inbox, services.WithStashLogger(appLogger))
	if err != nil {
		return err
	}

	entityFiles, err = services.NewEntityFiles(appFS, services.FilesConfig{
		Roots:       appConfig.ORMFiles,
		Connection:  appConfig.Database.Connection,
		TablePrefix: appConfig.Database.TablePrefix,
	}, appLogger)
	if err != nil {
		return err
	}

	switch appConfig.Database.Driver {
	case config.DriverManifest:
		recordRepo = repository.NewManifestRepository(appFS, appConfig.Database.DSN, appConfig.Database.TablePrefix)
		repoCloser = nil
	default:
		db, err := repository.OpenSQLite(appConfig.Database.DSN, appConfig.Database.TablePrefix)
		if err != nil {
			return err
		}
		recordRepo = db
		repoCloser = db
	}

	recordService = services.NewRecordService(recordRepo, entityFiles, stashService, inbox,
		services.WithRecordLogger(appLogger))
	return nil
}

func shutdownApp(cmd *cobra.Command, args []string) error {
	if repoCloser != nil {
		return repoCloser.Close()
	}
	return nil
}

// getContext returns a context for operations
func getContext() context.Context {
	return context.Background()
}
